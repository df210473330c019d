package models

import (
	"time"

	"github.com/google/uuid"
)

// Payout request statuses
const (
	PayoutPending  = "pending"
	PayoutApproved = "approved"
	PayoutRejected = "rejected"
)

// PayoutRequest is a creator's request to withdraw available balance
type PayoutRequest struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	CreatorID     uuid.UUID  `json:"creator_id" db:"creator_id"`
	Amount        int64      `json:"amount" db:"amount"`
	BankName      string     `json:"bank_name" db:"bank_name"`
	AccountNumber string     `json:"account_number" db:"account_number"`
	AccountHolder string     `json:"account_holder" db:"account_holder"`
	Status        string     `json:"status" db:"status"`
	AdminNote     *string    `json:"admin_note" db:"admin_note"`
	ProcessedBy   *uuid.UUID `json:"processed_by" db:"processed_by"`
	ProcessedAt   *time.Time `json:"processed_at" db:"processed_at"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
}
