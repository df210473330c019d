package oauth

import (
	"errors"

	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"

	"STUDYHUB_BACK-END/internal/config"
)

const (
	kakaoAuthBase = "https://kauth.kakao.com"
	kakaoAPIBase  = "https://kapi.kakao.com"
)

// NewKakao creates the Kakao Login provider
func NewKakao(cfg config.OAuthProviderConfig) Provider {
	return newKakao(cfg, kakaoAuthBase, kakaoAPIBase)
}

func newKakao(cfg config.OAuthProviderConfig, authBase, apiBase string) *restProvider {
	return &restProvider{
		name: Kakao,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"profile_nickname", "profile_image", "account_email"},
			Endpoint: oauth2.Endpoint{
				AuthURL:   authBase + "/oauth/authorize",
				TokenURL:  authBase + "/oauth/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		profileURL: apiBase + "/v2/user/me",
		parse:      parseKakaoProfile,
	}
}

func parseKakaoProfile(res gjson.Result) (*UserInfo, error) {
	id := res.Get("id")
	if !id.Exists() {
		return nil, errors.New("profile without id")
	}
	info := &UserInfo{
		ID:        id.String(),
		Email:     res.Get("kakao_account.email").String(),
		Nickname:  res.Get("kakao_account.profile.nickname").String(),
		AvatarURL: res.Get("kakao_account.profile.profile_image_url").String(),
	}
	if info.Nickname == "" {
		info.Nickname = res.Get("properties.nickname").String()
	}
	return info, nil
}
