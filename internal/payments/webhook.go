package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Standard Webhooks headers sent by PortOne
const (
	HeaderWebhookID        = "webhook-id"
	HeaderWebhookTimestamp = "webhook-timestamp"
	HeaderWebhookSignature = "webhook-signature"
)

// WebhookTolerance bounds the age of an accepted delivery
const WebhookTolerance = 5 * time.Minute

var (
	ErrWebhookSecretMissing  = errors.New("webhook: signing secret not configured")
	ErrMissingWebhookHeaders = errors.New("webhook: missing headers")
	ErrWebhookTimestamp      = errors.New("webhook: timestamp outside tolerance")
	ErrWebhookSignature      = errors.New("webhook: signature mismatch")
	ErrMalformedWebhook      = errors.New("webhook: malformed body")
)

// VerifyStandardWebhook checks a Standard Webhooks signature. secret is the
// "whsec_" prefixed base64 key shown in the PortOne console. An empty secret
// rejects every delivery.
func VerifyStandardWebhook(secret string, header http.Header, body []byte, now time.Time) error {
	if len(webhookKey(secret)) == 0 {
		return ErrWebhookSecretMissing
	}
	id := header.Get(HeaderWebhookID)
	ts := header.Get(HeaderWebhookTimestamp)
	sigs := header.Get(HeaderWebhookSignature)
	if id == "" || ts == "" || sigs == "" {
		return ErrMissingWebhookHeaders
	}

	sec, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return ErrWebhookTimestamp
	}
	sent := time.Unix(sec, 0)
	if now.Sub(sent) > WebhookTolerance || sent.Sub(now) > WebhookTolerance {
		return ErrWebhookTimestamp
	}

	expected := signature(secret, id, ts, body)
	for _, candidate := range strings.Fields(sigs) {
		version, sig, ok := strings.Cut(candidate, ",")
		if !ok || version != "v1" {
			continue
		}
		if hmac.Equal([]byte(sig), []byte(expected)) {
			return nil
		}
	}
	return ErrWebhookSignature
}

// SignStandardWebhook returns the "v1,<sig>" header value for a delivery
func SignStandardWebhook(secret, id string, ts time.Time, body []byte) string {
	return "v1," + signature(secret, id, strconv.FormatInt(ts.Unix(), 10), body)
}

func signature(secret, id, ts string, body []byte) string {
	mac := hmac.New(sha256.New, webhookKey(secret))
	mac.Write([]byte(id))
	mac.Write([]byte("."))
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func webhookKey(secret string) []byte {
	trimmed := strings.TrimPrefix(secret, "whsec_")
	if key, err := base64.StdEncoding.DecodeString(trimmed); err == nil {
		return key
	}
	return []byte(trimmed)
}
