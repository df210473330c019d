package utils

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"STUDYHUB_BACK-END/internal/config"
)

type registerBody struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Nickname string `json:"nickname" validate:"required,max=30"`
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"valid", `{"email":"a@b.kr","password":"12345678","nickname":"kim"}`, ""},
		{"empty", ``, "request body is empty"},
		{"malformed", `{"email":`, "invalid JSON"},
		{"unknown field", `{"email":"a@b.kr","password":"12345678","nickname":"kim","admin":true}`, "unknown field"},
		{"two objects", `{"email":"a@b.kr","password":"12345678","nickname":"kim"}{}`, "single JSON object"},
		{"validation", `{"email":"nope","password":"123","nickname":""}`, "email must be a valid email; password must be at least 8; nickname is required"},
		{"too large", `{"nickname":"` + strings.Repeat("a", maxBodyBytes) + `"}`, "too large"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var dst registerBody
			err := DecodeJSON(httptest.NewRecorder(), r, &dst)
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, "kim", dst.Nickname)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDecodeJSONChunkedEmptyBody(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", http.NoBody)
	r.ContentLength = -1
	r.TransferEncoding = []string{"chunked"}

	var dst registerBody
	err := DecodeJSON(httptest.NewRecorder(), r, &dst)
	assert.ErrorIs(t, err, ErrEmptyBody)
}

func TestWriteErrorResponse(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteErrorResponse(rec, http.StatusConflict, "Conflict", "already purchased")

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var body ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, ErrorResponse{Error: "Conflict", Message: "already purchased"}, body)
}

func TestPagination(t *testing.T) {
	tests := []struct {
		query       string
		limit, off  int
		expectError bool
	}{
		{"", 20, 0, false},
		{"limit=5&offset=10", 5, 10, false},
		{"limit=100", 100, 0, false},
		{"limit=0", 0, 0, true},
		{"limit=101", 0, 0, true},
		{"limit=abc", 0, 0, true},
		{"offset=-1", 0, 0, true},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/?"+tt.query, nil)
		limit, offset, err := Pagination(r, 20, 100)
		if tt.expectError {
			assert.Error(t, err, tt.query)
			continue
		}
		require.NoError(t, err, tt.query)
		assert.Equal(t, tt.limit, limit, tt.query)
		assert.Equal(t, tt.off, offset, tt.query)
	}
}

func TestEmailService_SMTP(t *testing.T) {
	cfg := &config.EmailConfig{
		SMTPHost:     "smtp.example.com",
		SMTPPort:     "587",
		SMTPUsername: "noreply@studyhub.kr",
		SMTPPassword: "secret",
		FromName:     "Studyhub",
	}
	svc := NewEmailService(cfg)

	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte
	svc.sendMail = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	require.NoError(t, svc.SendVerificationCode(context.Background(), "student@studyhub.kr", "123456"))
	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, "noreply@studyhub.kr", gotFrom)
	assert.Equal(t, []string{"student@studyhub.kr"}, gotTo)
	assert.Contains(t, string(gotMsg), "From: Studyhub <noreply@studyhub.kr>")
	assert.Contains(t, string(gotMsg), "123456")

	require.NoError(t, svc.SendPurchaseCompleted(context.Background(), "student@studyhub.kr", "<Math> notes", 12000))
	assert.Contains(t, string(gotMsg), "&lt;Math&gt; notes")
	assert.Contains(t, string(gotMsg), "12,000원")

	svc.sendMail = func(string, smtp.Auth, string, []string, []byte) error { return errors.New("dial tcp: refused") }
	assert.ErrorContains(t, svc.SendPayoutApproved(context.Background(), "c@studyhub.kr", 10000), "refused")

	unconfigured := NewEmailService(&config.EmailConfig{})
	assert.ErrorContains(t, unconfigured.SendPayoutApproved(context.Background(), "c@studyhub.kr", 10000), "not configured")
}

func TestEmailService_Resend(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/emails", r.URL.Path)
		assert.Equal(t, "Bearer re_test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"email-1"}`))
	}))
	defer srv.Close()

	svc := NewEmailService(&config.EmailConfig{ResendAPIKey: "re_test", FromEmail: "noreply@studyhub.kr", FromName: "Studyhub"})
	base, err := url.Parse(srv.URL + "/")
	require.NoError(t, err)
	svc.resend.BaseURL = base
	svc.sendMail = func(string, smtp.Auth, string, []string, []byte) error {
		t.Fatal("smtp must not be used when resend is configured")
		return nil
	}

	require.NoError(t, svc.SendPayoutApproved(context.Background(), "creator@studyhub.kr", 50000))
	assert.Equal(t, "Studyhub <noreply@studyhub.kr>", got["from"])
	assert.Equal(t, []any{"creator@studyhub.kr"}, got["to"])
	assert.Equal(t, "[Studyhub] Payout approved", got["subject"])
	assert.Contains(t, got["html"], "50,000원")

}
