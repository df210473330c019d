package storage

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"STUDYHUB_BACK-END/internal/config"
)

func TestSupabaseSigner(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "service-key", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer service-key", r.Header.Get("Authorization"))

		var body map[string]int
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, 1800, body["expiresIn"])

		switch r.URL.Path {
		case "/storage/v1/object/sign/contents/creator-1/physics notes.pdf":
			_, _ = w.Write([]byte(`{"signedURL":"/object/sign/contents/creator-1/physics%20notes.pdf?token=abc"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"statusCode":"404","error":"not_found","message":"Object not found"}`))
		}
	}))
	defer srv.Close()

	s := NewSupabaseSigner(config.StorageConfig{
		SupabaseURL:    srv.URL + "/",
		ServiceRoleKey: "service-key",
		Bucket:         "contents",
		SignedURLTTL:   30 * time.Minute,
	})

	u, ttl, err := s.SignedURL(context.Background(), "contents/creator-1/physics notes.pdf")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/storage/v1/object/sign/contents/creator-1/physics%20notes.pdf?token=abc", u)
	assert.Equal(t, 30*time.Minute, ttl)

	_, _, err = s.SignedURL(context.Background(), "missing.pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Object not found")

	u, ttl, err = s.SignedURL(context.Background(), "https://cdn.example/file.pdf")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/file.pdf", u)
	assert.Zero(t, ttl)

	_, _, err = s.SignedURL(context.Background(), "/")
	assert.Error(t, err)
}

func TestNewSigner(t *testing.T) {
	assert.IsType(t, PassthroughSigner{}, NewSigner(&config.Config{}))

	cfg := &config.Config{Storage: config.StorageConfig{SupabaseURL: "https://x.supabase.co", ServiceRoleKey: "k", Bucket: "contents"}}
	assert.IsType(t, &SupabaseSigner{}, NewSigner(cfg))

	u, ttl, err := PassthroughSigner{}.SignedURL(context.Background(), "a/b.pdf")
	require.NoError(t, err)
	assert.Equal(t, "a/b.pdf", u)
	assert.Zero(t, ttl)
}
