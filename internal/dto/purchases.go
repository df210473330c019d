package dto

import (
	"time"

	"STUDYHUB_BACK-END/internal/config"
	"STUDYHUB_BACK-END/internal/models"
)

// PurchaseCreateRequest opens a purchase
type PurchaseCreateRequest struct {
	ContentID     string `json:"content_id" validate:"required,uuid"`
	PaymentMethod string `json:"payment_method" validate:"required,oneof=p2p toss portone"`
	DepositorName string `json:"depositor_name" validate:"omitempty,max=50"`
}

// DepositRequest reports a bank transfer; depositor name may be corrected
type DepositRequest struct {
	DepositorName string `json:"depositor_name" validate:"omitempty,max=50"`
}

// PurchaseResponse represents a purchase
type PurchaseResponse struct {
	ID            string  `json:"id"`
	ContentID     string  `json:"content_id"`
	ContentTitle  string  `json:"content_title,omitempty"`
	BuyerID       string  `json:"buyer_id"`
	CreatorID     string  `json:"creator_id"`
	Amount        int64   `json:"amount"`
	CreatorAmount int64   `json:"creator_amount"`
	PlatformFee   int64   `json:"platform_fee"`
	PaymentMethod string  `json:"payment_method"`
	Status        string  `json:"status"`
	DepositorName *string `json:"depositor_name"`
	OrderID       string  `json:"order_id"`
	AdminNote     *string `json:"admin_note"`
	ConfirmedAt   *string `json:"confirmed_at"`
	RefundedAt    *string `json:"refunded_at"`
	CreatedAt     string  `json:"created_at"`
	UpdatedAt     string  `json:"updated_at"`
}

// NewPurchaseResponse converts a purchase row
func NewPurchaseResponse(p *models.Purchase) PurchaseResponse {
	return PurchaseResponse{
		ID:            p.ID.String(),
		ContentID:     p.ContentID.String(),
		ContentTitle:  p.ContentTitle,
		BuyerID:       p.BuyerID.String(),
		CreatorID:     p.CreatorID.String(),
		Amount:        p.Amount,
		CreatorAmount: p.CreatorAmount,
		PlatformFee:   p.PlatformFee,
		PaymentMethod: p.PaymentMethod,
		Status:        p.Status,
		DepositorName: p.DepositorName,
		OrderID:       p.OrderID,
		AdminNote:     p.AdminNote,
		ConfirmedAt:   formatTimePtr(p.ConfirmedAt),
		RefundedAt:    formatTimePtr(p.RefundedAt),
		CreatedAt:     p.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:     p.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// NewPurchaseResponses converts a page of purchases
func NewPurchaseResponses(items []models.Purchase) []PurchaseResponse {
	out := make([]PurchaseResponse, 0, len(items))
	for i := range items {
		out = append(out, NewPurchaseResponse(&items[i]))
	}
	return out
}

// BankAccountInfo is the platform account buyers transfer to
type BankAccountInfo struct {
	BankName      string `json:"bank_name"`
	AccountNumber string `json:"account_number"`
	AccountHolder string `json:"account_holder"`
}

// PurchaseCreateResponse adds what the client needs to pay
type PurchaseCreateResponse struct {
	Purchase    PurchaseResponse `json:"purchase"`
	BankAccount *BankAccountInfo `json:"bank_account,omitempty"`
}

// NewBankAccountInfo converts the configured platform account
func NewBankAccountInfo(a config.BankAccount) *BankAccountInfo {
	return &BankAccountInfo{
		BankName:      a.BankName,
		AccountNumber: a.AccountNumber,
		AccountHolder: a.AccountHolder,
	}
}

// PurchaseListResponse lists purchases with pagination
type PurchaseListResponse struct {
	Purchases  []PurchaseResponse `json:"purchases"`
	Pagination Pagination         `json:"pagination"`
}

// LibraryItem is a completed purchase with its content
type LibraryItem struct {
	PurchaseID   string `json:"purchase_id"`
	ContentID    string `json:"content_id"`
	ContentTitle string `json:"content_title"`
	Amount       int64  `json:"amount"`
	PurchasedAt  string `json:"purchased_at"`
}

// LibraryResponse lists the caller's purchased contents
type LibraryResponse struct {
	Items      []LibraryItem `json:"items"`
	Pagination Pagination    `json:"pagination"`
}
