// Package payments talks to the Toss Payments and PortOne v2 REST APIs and
// verifies their webhook deliveries.
package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"
)

const maxResponseBytes = 1 << 20

// ProviderError is returned when a gateway answers with a non-2xx status
type ProviderError struct {
	Provider string
	Status   int
	Code     string
	Message  string
}

func (e *ProviderError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s (%s, http %d)", e.Provider, e.Message, e.Code, e.Status)
	}
	return fmt.Sprintf("%s: %s (http %d)", e.Provider, e.Message, e.Status)
}

// restClient is the shared plumbing of the gateway clients
type restClient struct {
	provider string
	baseURL  string
	auth     string
	http     *http.Client
}

func newRESTClient(provider, baseURL, auth string) restClient {
	return restClient{
		provider: provider,
		baseURL:  baseURL,
		auth:     auth,
		http:     &http.Client{Timeout: 10 * time.Second},
	}
}

// do sends a JSON request and returns the raw body of a 2xx answer. Non-2xx
// answers become a *ProviderError built from the gateway's code/message fields.
func (c restClient) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("%s: encode request: %w", c.provider, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", c.provider, err)
	}
	req.Header.Set("Authorization", c.auth)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.provider, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w", c.provider, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := gjson.GetBytes(raw, "message").String()
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		code := gjson.GetBytes(raw, "code").String()
		if code == "" {
			code = gjson.GetBytes(raw, "type").String()
		}
		return nil, &ProviderError{Provider: c.provider, Status: resp.StatusCode, Code: code, Message: msg}
	}
	return raw, nil
}
