package oauth

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	googleOAuth2 "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"

	"STUDYHUB_BACK-END/internal/config"
)

// GoogleProvider signs users in with their Google account
type GoogleProvider struct {
	oauth *oauth2.Config
	// apiEndpoint overrides the userinfo API base, used by tests
	apiEndpoint string
}

// NewGoogle creates the Google provider
func NewGoogle(cfg config.OAuthProviderConfig) *GoogleProvider {
	return &GoogleProvider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
	}
}

// Name implements Provider
func (p *GoogleProvider) Name() string { return Google }

// AuthCodeURL implements Provider
func (p *GoogleProvider) AuthCodeURL(state string) string {
	return p.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades code for a token and loads the userinfo profile
func (p *GoogleProvider) Exchange(ctx context.Context, code string) (*UserInfo, error) {
	token, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("google: exchange code: %w", err)
	}

	opts := []option.ClientOption{option.WithHTTPClient(p.oauth.Client(ctx, token))}
	if p.apiEndpoint != "" {
		opts = append(opts, option.WithEndpoint(p.apiEndpoint))
	}
	service, err := googleOAuth2.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("google: create service: %w", err)
	}

	userInfo, err := service.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("google: fetch profile: %w", err)
	}

	nickname := userInfo.Name
	if nickname == "" {
		nickname = userInfo.GivenName
	}
	return &UserInfo{
		Provider:  Google,
		ID:        userInfo.Id,
		Email:     userInfo.Email,
		Nickname:  nickname,
		AvatarURL: userInfo.Picture,
	}, nil
}
