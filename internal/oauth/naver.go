package oauth

import (
	"fmt"

	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"

	"STUDYHUB_BACK-END/internal/config"
)

const (
	naverAuthBase = "https://nid.naver.com"
	naverAPIBase  = "https://openapi.naver.com"
)

// NewNaver creates the Naver Login provider
func NewNaver(cfg config.OAuthProviderConfig) Provider {
	return newNaver(cfg, naverAuthBase, naverAPIBase)
}

func newNaver(cfg config.OAuthProviderConfig, authBase, apiBase string) *restProvider {
	return &restProvider{
		name: Naver,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint: oauth2.Endpoint{
				AuthURL:   authBase + "/oauth2.0/authorize",
				TokenURL:  authBase + "/oauth2.0/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		profileURL: apiBase + "/v1/nid/me",
		parse:      parseNaverProfile,
	}
}

// Naver wraps the profile in {resultcode, message, response}
func parseNaverProfile(res gjson.Result) (*UserInfo, error) {
	if code := res.Get("resultcode").String(); code != "00" {
		return nil, fmt.Errorf("profile error %s: %s", code, res.Get("message").String())
	}
	id := res.Get("response.id").String()
	if id == "" {
		return nil, fmt.Errorf("profile without id")
	}
	info := &UserInfo{
		ID:        id,
		Email:     res.Get("response.email").String(),
		Nickname:  res.Get("response.nickname").String(),
		AvatarURL: res.Get("response.profile_image").String(),
	}
	if info.Nickname == "" {
		info.Nickname = res.Get("response.name").String()
	}
	return info, nil
}
