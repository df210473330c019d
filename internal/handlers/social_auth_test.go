package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"STUDYHUB_BACK-END/internal/config"
	"STUDYHUB_BACK-END/internal/dto"
	"STUDYHUB_BACK-END/internal/middleware"
	"STUDYHUB_BACK-END/internal/models"
	"STUDYHUB_BACK-END/internal/oauth"
)

// stubProvider answers Exchange from a fixed table of codes
type stubProvider struct {
	name  string
	users map[string]oauth.UserInfo
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) AuthCodeURL(state string) string {
	return "https://auth.example.com/" + p.name + "?state=" + state
}

func (p *stubProvider) Exchange(_ context.Context, code string) (*oauth.UserInfo, error) {
	u, ok := p.users[code]
	if !ok {
		return nil, errors.New("invalid_grant")
	}
	u.Provider = p.name
	return &u, nil
}

type socialFixture struct {
	profiles *fakeProfiles
	states   *oauth.MemoryStateStore
	handler  *SocialAuthHandler
}

func newSocialFixture() *socialFixture {
	registry := oauth.NewRegistry(&config.Config{})
	registry.Register(&stubProvider{name: oauth.Kakao, users: map[string]oauth.UserInfo{
		"good":    {ID: "k-100", Email: "Kim@Example.com", Nickname: "kim"},
		"clash":   {ID: "k-200", Email: "lee@example.com", Nickname: "lee"},
		"noemail": {ID: "k-300"},
	}})
	registry.Register(&stubProvider{name: oauth.Naver})

	f := &socialFixture{profiles: newFakeProfiles(), states: oauth.NewMemoryStateStore()}
	f.handler = NewSocialAuthHandler(registry, f.states, f.profiles, testJWT, "https://studyhub.example.com/")
	return f
}

func (f *socialFixture) login(t *testing.T, provider string) string {
	t.Helper()
	rec := httptest.NewRecorder()
	f.handler.Login(rec, newRequest(t, http.MethodGet, "/x", nil, nil, map[string]string{"provider": provider}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decodeJSON[dto.OAuthLoginResponse](t, rec)
	assert.Contains(t, resp.AuthURL, resp.State)
	return resp.State
}

func (f *socialFixture) callback(t *testing.T, provider, code, state string) *httptest.ResponseRecorder {
	t.Helper()
	q := url.Values{}
	if code != "" {
		q.Set("code", code)
	}
	if state != "" {
		q.Set("state", state)
	}
	rec := httptest.NewRecorder()
	f.handler.Callback(rec, newRequest(t, http.MethodGet, "/auth/"+provider+"/callback?"+q.Encode(), nil, nil, map[string]string{"provider": provider}))
	return rec
}

func TestSocialAuth_CallbackRedirectsWithToken(t *testing.T) {
	f := newSocialFixture()

	rec := f.callback(t, oauth.Kakao, "good", f.login(t, oauth.Kakao))
	require.Equal(t, http.StatusFound, rec.Code, rec.Body.String())

	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "studyhub.example.com", loc.Host)
	assert.Equal(t, "/auth/callback", loc.Path)
	assert.Equal(t, oauth.Kakao, loc.Query().Get("provider"))

	claims, err := middleware.ValidateToken(loc.Query().Get("token"), testJWT)
	require.NoError(t, err)
	assert.Equal(t, "kim@example.com", claims.Email)
	assert.Equal(t, models.RoleUser, claims.Role)

	// the same provider account maps to the same profile
	rec = f.callback(t, oauth.Kakao, "good", f.login(t, oauth.Kakao))
	require.Equal(t, http.StatusFound, rec.Code)
	again, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	second, err := middleware.ValidateToken(again.Query().Get("token"), testJWT)
	require.NoError(t, err)
	assert.Equal(t, claims.UserID, second.UserID)
}

func TestSocialAuth_CallbackWithoutEmail(t *testing.T) {
	f := newSocialFixture()

	rec := f.callback(t, oauth.Kakao, "noemail", f.login(t, oauth.Kakao))
	require.Equal(t, http.StatusFound, rec.Code, rec.Body.String())
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	claims, err := middleware.ValidateToken(loc.Query().Get("token"), testJWT)
	require.NoError(t, err)

	p, err := f.profiles.GetProfile(context.Background(), claims.UserID)
	require.NoError(t, err)
	assert.Nil(t, p.Email)
	assert.Equal(t, "kakao user", p.Nickname)
}

func TestSocialAuth_CallbackRejectsStateFromAnotherProvider(t *testing.T) {
	f := newSocialFixture()
	state := f.login(t, oauth.Naver)

	rec := f.callback(t, oauth.Kakao, "good", state)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// the state is single use, even after a mismatch
	rec = f.callback(t, oauth.Naver, "good", state)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSocialAuth_CallbackEmailCollision(t *testing.T) {
	f := newSocialFixture()
	f.profiles.add(emailProfile(t, "lee@example.com", "correct horse"))

	rec := f.callback(t, oauth.Kakao, "clash", f.login(t, oauth.Kakao))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSocialAuth_CallbackErrors(t *testing.T) {
	f := newSocialFixture()

	tests := []struct {
		name     string
		provider string
		code     string
		state    func() string
		want     int
	}{
		{"unknown provider", oauth.Google, "good", func() string { return "x" }, http.StatusNotFound},
		{"missing code", oauth.Kakao, "", func() string { return f.login(t, oauth.Kakao) }, http.StatusBadRequest},
		{"missing state", oauth.Kakao, "good", func() string { return "" }, http.StatusBadRequest},
		{"unknown state", oauth.Kakao, "good", func() string { return oauth.NewState() }, http.StatusBadRequest},
		{"exchange fails", oauth.Kakao, "expired", func() string { return f.login(t, oauth.Kakao) }, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.callback(t, tt.provider, tt.code, tt.state())
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}

	rec := httptest.NewRecorder()
	q := "/x?error=access_denied"
	f.handler.Callback(rec, newRequest(t, http.MethodGet, q, nil, nil, map[string]string{"provider": oauth.Kakao}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSocialAuth_Providers(t *testing.T) {
	f := newSocialFixture()

	rec := httptest.NewRecorder()
	f.handler.Providers(rec, newRequest(t, http.MethodGet, "/x", nil, nil, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{oauth.Kakao, oauth.Naver}, decodeJSON[dto.OAuthProvidersResponse](t, rec).Providers)
}
