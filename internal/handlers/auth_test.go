package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"STUDYHUB_BACK-END/internal/dto"
	"STUDYHUB_BACK-END/internal/middleware"
	"STUDYHUB_BACK-END/internal/models"
)

func emailProfile(t *testing.T, email, password string) models.Profile {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	h := string(hash)
	return models.Profile{Email: &email, PasswordHash: &h, Nickname: "lee", Role: models.RoleUser, Provider: models.ProviderEmail}
}

func TestAuth_RegisterAndLogin(t *testing.T) {
	profiles := newFakeProfiles()
	h := NewAuthHandler(profiles, testJWT)

	rec := httptest.NewRecorder()
	body := dto.RegisterRequest{Email: " Lee@Example.com ", Password: "correct horse", Nickname: "lee"}
	h.Register(rec, newRequest(t, http.MethodPost, "/api/auth/register", body, nil, nil))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	reg := decodeJSON[dto.AuthResponse](t, rec)
	require.NotNil(t, reg.User.Email)
	assert.Equal(t, "lee@example.com", *reg.User.Email)
	assert.Equal(t, models.RoleUser, reg.User.Role)
	claims, err := middleware.ValidateToken(reg.Token, testJWT)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, claims.UserID.String())

	rec = httptest.NewRecorder()
	h.Register(rec, newRequest(t, http.MethodPost, "/api/auth/register", body, nil, nil))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = httptest.NewRecorder()
	h.Login(rec, newRequest(t, http.MethodPost, "/api/auth/login", dto.LoginRequest{Email: "lee@example.com", Password: "correct horse"}, nil, nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, reg.User.ID, decodeJSON[dto.AuthResponse](t, rec).User.ID)
}

func TestAuth_RegisterValidatesInput(t *testing.T) {
	h := NewAuthHandler(newFakeProfiles(), testJWT)

	tests := []struct {
		name string
		body dto.RegisterRequest
	}{
		{"bad email", dto.RegisterRequest{Email: "lee", Password: "correct horse", Nickname: "lee"}},
		{"short password", dto.RegisterRequest{Email: "lee@example.com", Password: "short", Nickname: "lee"}},
		{"missing nickname", dto.RegisterRequest{Email: "lee@example.com", Password: "correct horse"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.Register(rec, newRequest(t, http.MethodPost, "/x", tt.body, nil, nil))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestAuth_LoginRejectsBadCredentials(t *testing.T) {
	profiles := newFakeProfiles()
	profiles.add(emailProfile(t, "lee@example.com", "correct horse"))
	social := "kakao@example.com"
	providerID := "k-1"
	profiles.add(models.Profile{Email: &social, Nickname: "kim", Role: models.RoleUser, Provider: models.ProviderKakao, ProviderID: &providerID})
	h := NewAuthHandler(profiles, testJWT)

	tests := []struct {
		name string
		body dto.LoginRequest
	}{
		{"wrong password", dto.LoginRequest{Email: "lee@example.com", Password: "battery staple"}},
		{"unknown email", dto.LoginRequest{Email: "nobody@example.com", Password: "correct horse"}},
		{"social account", dto.LoginRequest{Email: social, Password: "anything"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.Login(rec, newRequest(t, http.MethodPost, "/x", tt.body, nil, nil))
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestAuth_Me(t *testing.T) {
	profiles := newFakeProfiles()
	p := profiles.add(emailProfile(t, "lee@example.com", "correct horse"))
	h := NewAuthHandler(profiles, testJWT)

	rec := httptest.NewRecorder()
	h.Me(rec, newRequest(t, http.MethodGet, "/api/auth/me", nil, userClaims(p.ID, models.RoleUser), nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, p.ID.String(), decodeJSON[dto.UserResponse](t, rec).ID)

	rec = httptest.NewRecorder()
	h.Me(rec, newRequest(t, http.MethodGet, "/api/auth/me", nil, nil, nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
