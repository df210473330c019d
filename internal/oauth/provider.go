// Package oauth implements the social login providers (Kakao, Naver, Google)
// and the short-lived state store that protects their callbacks.
package oauth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"

	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"

	"STUDYHUB_BACK-END/internal/config"
)

// Provider names
const (
	Kakao  = "kakao"
	Naver  = "naver"
	Google = "google"
)

// ErrUnknownProvider is returned for providers that are not configured
var ErrUnknownProvider = errors.New("oauth: unknown provider")

// UserInfo is the normalized profile returned by every provider
type UserInfo struct {
	Provider  string
	ID        string
	Email     string
	Nickname  string
	AvatarURL string
}

// Provider runs one provider's authorization code flow
type Provider interface {
	Name() string
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*UserInfo, error)
}

// Registry holds the configured providers
type Registry struct {
	providers map[string]Provider
}

// NewRegistry registers every provider that has client credentials
func NewRegistry(cfg *config.Config) *Registry {
	r := &Registry{providers: map[string]Provider{}}
	if cfg.IsOAuthConfigured(cfg.OAuth.Kakao) {
		r.Register(NewKakao(cfg.OAuth.Kakao))
	}
	if cfg.IsOAuthConfigured(cfg.OAuth.Naver) {
		r.Register(NewNaver(cfg.OAuth.Naver))
	}
	if cfg.IsOAuthConfigured(cfg.OAuth.Google) {
		r.Register(NewGoogle(cfg.OAuth.Google))
	}
	return r
}

// Register adds or replaces a provider
func (r *Registry) Register(p Provider) {
	r.providers[p.Name()] = p
}

// Get returns the provider called name
func (r *Registry) Get(name string) (Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	return p, nil
}

// Names lists the registered providers in order
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// restProvider covers providers whose profile is a JSON document behind a bearer token
type restProvider struct {
	name       string
	oauth      *oauth2.Config
	profileURL string
	parse      func(gjson.Result) (*UserInfo, error)
}

func (p *restProvider) Name() string { return p.name }

func (p *restProvider) AuthCodeURL(state string) string {
	return p.oauth.AuthCodeURL(state)
}

func (p *restProvider) Exchange(ctx context.Context, code string) (*UserInfo, error) {
	token, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%s: exchange code: %w", p.name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.profileURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.oauth.Client(ctx, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: fetch profile: %w", p.name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%s: read profile: %w", p.name, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: profile request failed with status %d", p.name, resp.StatusCode)
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%s: malformed profile response", p.name)
	}

	info, err := p.parse(gjson.ParseBytes(body))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.name, err)
	}
	info.Provider = p.name
	return info, nil
}
