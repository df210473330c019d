package payments

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
)

// PortOne payment statuses
const (
	PortOneStatusPaid      = "PAID"
	PortOneStatusCancelled = "CANCELLED"
)

// PortOne webhook event types
const (
	PortOneEventPaid      = "Transaction.Paid"
	PortOneEventCancelled = "Transaction.Cancelled"
)

// PortOnePayment is the subset of a PortOne v2 payment we rely on
type PortOnePayment struct {
	ID          string
	Status      string
	OrderName   string
	Currency    string
	TotalAmount int64
}

// PortOneClient looks up PortOne v2 payments
type PortOneClient struct {
	rest restClient
}

// NewPortOneClient builds a client authenticated with the V2 API secret
func NewPortOneClient(baseURL, apiSecret string) *PortOneClient {
	return &PortOneClient{rest: newRESTClient("portone", strings.TrimRight(baseURL, "/"), "PortOne "+apiSecret)}
}

// GetPayment fetches a payment by the id the storefront passed to the SDK
func (c *PortOneClient) GetPayment(ctx context.Context, paymentID string) (*PortOnePayment, error) {
	raw, err := c.rest.do(ctx, http.MethodGet, "/payments/"+url.PathEscape(paymentID), nil)
	if err != nil {
		return nil, err
	}

	res := gjson.ParseBytes(raw)
	p := &PortOnePayment{
		ID:          res.Get("id").String(),
		Status:      res.Get("status").String(),
		OrderName:   res.Get("orderName").String(),
		Currency:    res.Get("currency").String(),
		TotalAmount: res.Get("amount.total").Int(),
	}
	if p.Status == "" {
		return nil, fmt.Errorf("portone: unexpected payment payload")
	}
	if p.ID == "" {
		p.ID = paymentID
	}
	return p, nil
}

// PortOneWebhook is the parsed body of a PortOne v2 webhook
type PortOneWebhook struct {
	Type          string
	PaymentID     string
	TransactionID string
}

// ParsePortOneWebhook extracts the event type and payment id
func ParsePortOneWebhook(body []byte) (*PortOneWebhook, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("portone: %w: invalid JSON", ErrMalformedWebhook)
	}
	res := gjson.ParseBytes(body)
	wh := &PortOneWebhook{
		Type:          res.Get("type").String(),
		PaymentID:     res.Get("data.paymentId").String(),
		TransactionID: res.Get("data.transactionId").String(),
	}
	if wh.Type == "" {
		return nil, fmt.Errorf("portone: %w: missing type", ErrMalformedWebhook)
	}
	return wh, nil
}
