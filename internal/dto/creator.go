package dto

import (
	"time"

	"STUDYHUB_BACK-END/internal/models"
	"STUDYHUB_BACK-END/internal/service"
)

// CreatorSettingsRequest creates or replaces creator settings
type CreatorSettingsRequest struct {
	DisplayName      string  `json:"display_name" validate:"required,min=1,max=50"`
	Intro            *string `json:"intro" validate:"omitempty,max=1000"`
	QuestionPrice    int64   `json:"question_price" validate:"gte=0"`
	AcceptsQuestions bool    `json:"accepts_questions"`
}

// CreatorSettingsResponse represents creator settings in API responses
type CreatorSettingsResponse struct {
	UserID              string  `json:"user_id"`
	DisplayName         string  `json:"display_name"`
	Intro               *string `json:"intro"`
	QuestionPrice       int64   `json:"question_price"`
	AcceptsQuestions    bool    `json:"accepts_questions"`
	RevenueSharePercent *int    `json:"revenue_share_percent,omitempty"`
	UpdatedAt           string  `json:"updated_at"`
}

// NewCreatorSettingsResponse converts a settings row
func NewCreatorSettingsResponse(s *models.CreatorSettings) CreatorSettingsResponse {
	return CreatorSettingsResponse{
		UserID:              s.UserID.String(),
		DisplayName:         s.DisplayName,
		Intro:               s.Intro,
		QuestionPrice:       s.QuestionPrice,
		AcceptsQuestions:    s.AcceptsQuestions,
		RevenueSharePercent: s.RevenueSharePercent,
		UpdatedAt:           s.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// CreatorSettingsUpdateResponse carries a fresh token when the caller was promoted
type CreatorSettingsUpdateResponse struct {
	Settings CreatorSettingsResponse `json:"settings"`
	Role     string                  `json:"role"`
	Token    *string                 `json:"token,omitempty"`
}

// BalanceResponse represents a creator balance
type BalanceResponse struct {
	AvailableAmount int64 `json:"available_amount"`
	PendingAmount   int64 `json:"pending_amount"`
	TotalEarned     int64 `json:"total_earned"`
	TotalWithdrawn  int64 `json:"total_withdrawn"`
	MinPayoutAmount int64 `json:"min_payout_amount"`
}

// NewBalanceResponse converts a balance row
func NewBalanceResponse(b *models.CreatorBalance, minPayout int64) BalanceResponse {
	return BalanceResponse{
		AvailableAmount: b.Available,
		PendingAmount:   b.Pending,
		TotalEarned:     b.TotalEarned,
		TotalWithdrawn:  b.TotalWithdrawn,
		MinPayoutAmount: minPayout,
	}
}

// PayoutCreateRequest asks to withdraw part of the available balance
type PayoutCreateRequest struct {
	Amount int64 `json:"amount" validate:"required,gt=0"`
}

// PayoutResponse represents a payout request; the account number is masked
type PayoutResponse struct {
	ID            string  `json:"id"`
	CreatorID     string  `json:"creator_id"`
	Amount        int64   `json:"amount"`
	BankName      string  `json:"bank_name"`
	AccountNumber string  `json:"account_number"`
	AccountHolder string  `json:"account_holder"`
	Status        string  `json:"status"`
	AdminNote     *string `json:"admin_note"`
	ProcessedAt   *string `json:"processed_at"`
	CreatedAt     string  `json:"created_at"`
}

// NewPayoutResponse converts a payout row. Admins see the full account number.
func NewPayoutResponse(p *models.PayoutRequest, unmasked bool) PayoutResponse {
	account := p.AccountNumber
	if !unmasked {
		account = service.MaskAccountNumber(account)
	}
	return PayoutResponse{
		ID:            p.ID.String(),
		CreatorID:     p.CreatorID.String(),
		Amount:        p.Amount,
		BankName:      p.BankName,
		AccountNumber: account,
		AccountHolder: p.AccountHolder,
		Status:        p.Status,
		AdminNote:     p.AdminNote,
		ProcessedAt:   formatTimePtr(p.ProcessedAt),
		CreatedAt:     p.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// PayoutListResponse lists payouts with pagination
type PayoutListResponse struct {
	Payouts    []PayoutResponse `json:"payouts"`
	Pagination Pagination       `json:"pagination"`
}

// PaymentAccountRequest creates or replaces the caller's bank account
type PaymentAccountRequest struct {
	BankName      string `json:"bank_name" validate:"required,min=1,max=50"`
	AccountNumber string `json:"account_number" validate:"required,min=6,max=30,account_number"`
	AccountHolder string `json:"account_holder" validate:"required,min=1,max=50"`
}

// PaymentAccountResponse represents a bank account with a masked number
type PaymentAccountResponse struct {
	BankName      string `json:"bank_name"`
	AccountNumber string `json:"account_number"`
	AccountHolder string `json:"account_holder"`
	UpdatedAt     string `json:"updated_at"`
}

// NewPaymentAccountResponse converts and masks a bank account
func NewPaymentAccountResponse(a *models.PaymentAccount) PaymentAccountResponse {
	return PaymentAccountResponse{
		BankName:      a.BankName,
		AccountNumber: service.MaskAccountNumber(a.AccountNumber),
		AccountHolder: a.AccountHolder,
		UpdatedAt:     a.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// Pagination is shared by paged list responses
type Pagination struct {
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}
