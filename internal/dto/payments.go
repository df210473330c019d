package dto

// TossConfirmRequest is sent by the client after the Toss checkout redirect
type TossConfirmRequest struct {
	PaymentKey string `json:"paymentKey" validate:"required,max=200"`
	OrderID    string `json:"orderId" validate:"required,max=64"`
	Amount     int64  `json:"amount" validate:"required,gt=0"`
}

// PortOneCompleteRequest is sent by the client after the PortOne checkout
type PortOneCompleteRequest struct {
	PaymentID string `json:"paymentId" validate:"required,max=64"`
}

// WebhookAckResponse acknowledges a webhook delivery
type WebhookAckResponse struct {
	Received bool `json:"received"`
}
