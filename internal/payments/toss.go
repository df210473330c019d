package payments

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
)

// Toss payment statuses used by the marketplace
const (
	TossStatusDone            = "DONE"
	TossStatusCanceled        = "CANCELED"
	TossStatusPartialCanceled = "PARTIAL_CANCELED"
)

// TossPayment is the subset of a Toss payment object we rely on
type TossPayment struct {
	PaymentKey  string
	OrderID     string
	Status      string
	Method      string
	TotalAmount int64
	ApprovedAt  string
}

// TossClient confirms and looks up Toss payments
type TossClient struct {
	rest restClient
}

// NewTossClient builds a client authenticated with the secret key (Basic auth, empty password)
func NewTossClient(baseURL, secretKey string) *TossClient {
	auth := "Basic " + base64.StdEncoding.EncodeToString([]byte(secretKey+":"))
	return &TossClient{rest: newRESTClient("toss", strings.TrimRight(baseURL, "/"), auth)}
}

// Confirm approves a payment authorized on the client side
func (c *TossClient) Confirm(ctx context.Context, paymentKey, orderID string, amount int64) (*TossPayment, error) {
	raw, err := c.rest.do(ctx, http.MethodPost, "/v1/payments/confirm", map[string]any{
		"paymentKey": paymentKey,
		"orderId":    orderID,
		"amount":     amount,
	})
	if err != nil {
		return nil, err
	}
	return parseTossPayment(raw)
}

// GetPayment fetches a payment by its key
func (c *TossClient) GetPayment(ctx context.Context, paymentKey string) (*TossPayment, error) {
	raw, err := c.rest.do(ctx, http.MethodGet, "/v1/payments/"+url.PathEscape(paymentKey), nil)
	if err != nil {
		return nil, err
	}
	return parseTossPayment(raw)
}

func parseTossPayment(raw []byte) (*TossPayment, error) {
	res := gjson.ParseBytes(raw)
	p := &TossPayment{
		PaymentKey:  res.Get("paymentKey").String(),
		OrderID:     res.Get("orderId").String(),
		Status:      res.Get("status").String(),
		Method:      res.Get("method").String(),
		TotalAmount: res.Get("totalAmount").Int(),
		ApprovedAt:  res.Get("approvedAt").String(),
	}
	if p.PaymentKey == "" || p.Status == "" {
		return nil, fmt.Errorf("toss: unexpected payment payload")
	}
	return p, nil
}

// TossWebhook is the parsed body of a Toss PAYMENT_STATUS_CHANGED webhook
type TossWebhook struct {
	EventType  string
	PaymentKey string
	OrderID    string
	Status     string
}

// ParseTossWebhook extracts the payment reference of a Toss webhook
func ParseTossWebhook(body []byte) (*TossWebhook, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("toss: %w: invalid JSON", ErrMalformedWebhook)
	}
	res := gjson.ParseBytes(body)
	wh := &TossWebhook{
		EventType:  res.Get("eventType").String(),
		PaymentKey: res.Get("data.paymentKey").String(),
		OrderID:    res.Get("data.orderId").String(),
		Status:     res.Get("data.status").String(),
	}
	if wh.PaymentKey == "" {
		return nil, fmt.Errorf("toss: %w: missing paymentKey", ErrMalformedWebhook)
	}
	return wh, nil
}
