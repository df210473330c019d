package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"STUDYHUB_BACK-END/internal/dto"
	"STUDYHUB_BACK-END/internal/middleware"
)

type recordingCodeMailer struct {
	mu    sync.Mutex
	codes map[string]string
}

func (m *recordingCodeMailer) SendVerificationCode(_ context.Context, to, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.codes == nil {
		m.codes = map[string]string{}
	}
	m.codes[to] = code
	return nil
}

func (m *recordingCodeMailer) code(to string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.codes[to]
}

func TestForgotPassword_LiveCodeIsRateLimited(t *testing.T) {
	profiles := newFakeProfiles()
	profiles.add(emailProfile(t, "lee@example.com", "correct horse"))
	verifications := &fakeVerifications{}
	mailer := &recordingCodeMailer{}
	h := NewForgotPasswordHandler(profiles, verifications, mailer, testJWT)
	body := dto.ForgotPasswordRequest{Email: "Lee@example.com"}

	rec := httptest.NewRecorder()
	h.ForgotPassword(rec, newRequest(t, http.MethodPost, "/x", body, nil, nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	first := mailer.code("lee@example.com")
	assert.Len(t, first, 6)

	rec = httptest.NewRecorder()
	h.ForgotPassword(rec, newRequest(t, http.MethodPost, "/x", body, nil, nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Len(t, verifications.items, 1)

	// once the code has expired a new one is issued
	h.now = func() time.Time { return time.Now().Add(verificationCodeTTL + time.Second) }
	rec = httptest.NewRecorder()
	h.ForgotPassword(rec, newRequest(t, http.MethodPost, "/x", body, nil, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, verifications.items, 2)
}

func TestForgotPassword_UnknownEmail(t *testing.T) {
	h := NewForgotPasswordHandler(newFakeProfiles(), &fakeVerifications{}, nil, testJWT)

	rec := httptest.NewRecorder()
	h.ForgotPassword(rec, newRequest(t, http.MethodPost, "/x", dto.ForgotPasswordRequest{Email: "nobody@example.com"}, nil, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestForgotPassword_ResetConsumesCode(t *testing.T) {
	profiles := newFakeProfiles()
	p := profiles.add(emailProfile(t, "lee@example.com", "correct horse"))
	verifications := &fakeVerifications{}
	mailer := &recordingCodeMailer{}
	h := NewForgotPasswordHandler(profiles, verifications, mailer, testJWT)

	rec := httptest.NewRecorder()
	h.ForgotPassword(rec, newRequest(t, http.MethodPost, "/x", dto.ForgotPasswordRequest{Email: "lee@example.com"}, nil, nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	code := mailer.code("lee@example.com")

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	rec = httptest.NewRecorder()
	h.VerifyOTP(rec, newRequest(t, http.MethodPost, "/x", dto.VerifyOTPRequest{Email: "lee@example.com", Code: wrong}, nil, nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	h.VerifyOTP(rec, newRequest(t, http.MethodPost, "/x", dto.VerifyOTPRequest{Email: "lee@example.com", Code: code}, nil, nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	otp := decodeJSON[dto.VerifyOTPResponse](t, rec)
	assert.Equal(t, int(testJWT.ResetTokenTTL.Seconds()), otp.ExpiresIn)

	reset := dto.ResetPasswordRequest{ResetToken: otp.ResetToken, NewPassword: "battery staple"}
	rec = httptest.NewRecorder()
	h.ResetPassword(rec, newRequest(t, http.MethodPost, "/x", reset, nil, nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.True(t, verifications.latest().Used)
	updated, err := profiles.GetProfile(context.Background(), p.ID)
	require.NoError(t, err)
	require.NotNil(t, updated.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(*updated.PasswordHash), []byte("battery staple")))

	// the token cannot be replayed
	rec = httptest.NewRecorder()
	h.ResetPassword(rec, newRequest(t, http.MethodPost, "/x", dto.ResetPasswordRequest{ResetToken: otp.ResetToken, NewPassword: "another secret"}, nil, nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	updated, err = profiles.GetProfile(context.Background(), p.ID)
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(*updated.PasswordHash), []byte("battery staple")))
}

func TestForgotPassword_ResetRejectsAccessToken(t *testing.T) {
	profiles := newFakeProfiles()
	p := profiles.add(emailProfile(t, "lee@example.com", "correct horse"))
	h := NewForgotPasswordHandler(profiles, &fakeVerifications{}, nil, testJWT)

	rec := httptest.NewRecorder()
	h.ResetPassword(rec, newRequest(t, http.MethodPost, "/x", dto.ResetPasswordRequest{ResetToken: "not-a-jwt", NewPassword: "battery staple"}, nil, nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	access, err := middleware.GenerateToken(p.ID, p.Role, *p.Email, testJWT)
	require.NoError(t, err)
	rec = httptest.NewRecorder()
	h.ResetPassword(rec, newRequest(t, http.MethodPost, "/x", dto.ResetPasswordRequest{ResetToken: access, NewPassword: "battery staple"}, nil, nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	stored, err := profiles.GetProfile(context.Background(), p.ID)
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(*stored.PasswordHash), []byte("correct horse")))
}
