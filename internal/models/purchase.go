package models

import (
	"time"

	"github.com/google/uuid"
)

// Purchase statuses
const (
	PurchasePendingPayment = "pending_payment"
	PurchasePendingConfirm = "pending_confirm"
	PurchaseCompleted      = "completed"
	PurchaseRejected       = "rejected"
	PurchaseRefunded       = "refunded"
)

// Payment methods
const (
	MethodP2P     = "p2p"
	MethodToss    = "toss"
	MethodPortOne = "portone"
	MethodFree    = "free"
)

// ActivePurchaseStatuses block a second purchase of the same content
var ActivePurchaseStatuses = []string{PurchasePendingPayment, PurchasePendingConfirm, PurchaseCompleted}

// Purchase represents a row of public.content_purchases
type Purchase struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	ContentID     uuid.UUID  `json:"content_id" db:"content_id"`
	BuyerID       uuid.UUID  `json:"buyer_id" db:"buyer_id"`
	CreatorID     uuid.UUID  `json:"creator_id" db:"creator_id"`
	Amount        int64      `json:"amount" db:"amount"`
	CreatorAmount int64      `json:"creator_amount" db:"creator_amount"`
	PlatformFee   int64      `json:"platform_fee" db:"platform_fee"`
	PaymentMethod string     `json:"payment_method" db:"payment_method"`
	Status        string     `json:"status" db:"status"`
	DepositorName *string    `json:"depositor_name" db:"depositor_name"`
	PaymentKey    *string    `json:"payment_key" db:"payment_key"`
	OrderID       string     `json:"order_id" db:"order_id"`
	AdminNote     *string    `json:"admin_note" db:"admin_note"`
	ConfirmedBy   *uuid.UUID `json:"confirmed_by" db:"confirmed_by"`
	ConfirmedAt   *time.Time `json:"confirmed_at" db:"confirmed_at"`
	RefundedAt    *time.Time `json:"refunded_at" db:"refunded_at"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`

	// Joined from contents
	ContentTitle string `json:"content_title" db:"content_title"`
}

// StatusChange describes a purchase status transition
type StatusChange struct {
	From        []string
	To          string
	AdminNote   *string
	ActorID     *uuid.UUID
	PaymentKey  *string
	ConfirmedAt *time.Time
	RefundedAt  *time.Time
}

// CreatorBalance represents a row of public.creator_balances
type CreatorBalance struct {
	CreatorID      uuid.UUID `json:"creator_id" db:"creator_id"`
	Available      int64     `json:"available_amount" db:"available_amount"`
	Pending        int64     `json:"pending_amount" db:"pending_amount"`
	TotalEarned    int64     `json:"total_earned" db:"total_earned"`
	TotalWithdrawn int64     `json:"total_withdrawn" db:"total_withdrawn"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// BalanceDelta is applied atomically to a creator balance
type BalanceDelta struct {
	Available      int64
	Pending        int64
	TotalEarned    int64
	TotalWithdrawn int64
}

// PaymentEvent records a processed webhook delivery
type PaymentEvent struct {
	ID         string    `db:"id"`
	Provider   string    `db:"provider"`
	EventType  string    `db:"event_type"`
	Payload    []byte    `db:"payload"`
	ReceivedAt time.Time `db:"received_at"`
}

// MarketStats aggregates numbers for the admin dashboard
type MarketStats struct {
	PurchasesByStatus  map[string]int64 `json:"purchases_by_status"`
	GrossRevenue       int64            `json:"gross_revenue"`
	PlatformFees       int64            `json:"platform_fees"`
	PendingPayoutTotal int64            `json:"pending_payout_total"`
	UserCount          int64            `json:"user_count"`
	CreatorCount       int64            `json:"creator_count"`
	ContentCount       int64            `json:"content_count"`
}
