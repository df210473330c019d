// Package storage issues time-limited download links for content files kept
// in Supabase Storage.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"STUDYHUB_BACK-END/internal/config"
)

// Signer turns a stored file path into a URL the client can download
type Signer interface {
	SignedURL(ctx context.Context, path string) (string, time.Duration, error)
}

// NewSigner returns a Supabase signer, or a passthrough signer when storage is not configured
func NewSigner(cfg *config.Config) Signer {
	if !cfg.IsStorageConfigured() {
		return PassthroughSigner{}
	}
	return NewSupabaseSigner(cfg.Storage)
}

// PassthroughSigner returns paths unchanged
type PassthroughSigner struct{}

// SignedURL implements Signer
func (PassthroughSigner) SignedURL(_ context.Context, path string) (string, time.Duration, error) {
	return path, 0, nil
}

// SupabaseSigner calls the Supabase Storage sign endpoint
type SupabaseSigner struct {
	baseURL string
	key     string
	bucket  string
	ttl     time.Duration
	http    *http.Client
}

// NewSupabaseSigner creates a signer for cfg.Bucket
func NewSupabaseSigner(cfg config.StorageConfig) *SupabaseSigner {
	ttl := cfg.SignedURLTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &SupabaseSigner{
		baseURL: strings.TrimRight(cfg.SupabaseURL, "/"),
		key:     cfg.ServiceRoleKey,
		bucket:  cfg.Bucket,
		ttl:     ttl,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// SignedURL implements Signer. Absolute URLs are returned as they are.
func (s *SupabaseSigner) SignedURL(ctx context.Context, path string) (string, time.Duration, error) {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path, 0, nil
	}
	object := strings.TrimPrefix(path, "/")
	object = strings.TrimPrefix(object, s.bucket+"/")
	if object == "" {
		return "", 0, fmt.Errorf("storage: empty object path")
	}

	payload, err := json.Marshal(map[string]int{"expiresIn": int(s.ttl.Seconds())})
	if err != nil {
		return "", 0, err
	}
	endpoint := fmt.Sprintf("%s/storage/v1/object/sign/%s/%s", s.baseURL, url.PathEscape(s.bucket), escapePath(object))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", s.key)
	req.Header.Set("Authorization", "Bearer "+s.key)

	resp, err := s.http.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("storage: sign request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", 0, fmt.Errorf("storage: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := gjson.GetBytes(body, "message").String()
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return "", 0, fmt.Errorf("storage: sign failed (%d): %s", resp.StatusCode, msg)
	}

	signed := gjson.GetBytes(body, "signedURL").String()
	if signed == "" {
		return "", 0, fmt.Errorf("storage: response without signedURL")
	}
	return s.baseURL + "/storage/v1" + signed, s.ttl, nil
}

func escapePath(p string) string {
	parts := strings.Split(p, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}
