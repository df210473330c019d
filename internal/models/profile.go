package models

import (
	"time"

	"github.com/google/uuid"
)

// Roles stored in profiles.role
const (
	RoleUser    = "user"
	RoleCreator = "creator"
	RoleAdmin   = "admin"
)

// Login providers stored in profiles.provider
const (
	ProviderEmail  = "email"
	ProviderKakao  = "kakao"
	ProviderNaver  = "naver"
	ProviderGoogle = "google"
)

// Profile represents a row of public.profiles
type Profile struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Email        *string   `json:"email" db:"email"`
	PasswordHash *string   `json:"-" db:"password_hash"` // Hidden from JSON responses
	Nickname     string    `json:"nickname" db:"nickname"`
	AvatarURL    *string   `json:"avatar_url" db:"avatar_url"`
	Bio          *string   `json:"bio" db:"bio"`
	Role         string    `json:"role" db:"role"`
	Provider     string    `json:"provider" db:"provider"`
	ProviderID   *string   `json:"-" db:"provider_id"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// IsCreator reports whether the profile may publish content and request payouts
func (p *Profile) IsCreator() bool {
	return p.Role == RoleCreator || p.Role == RoleAdmin
}

// CreatorSettings represents a row of public.creator_settings
type CreatorSettings struct {
	UserID              uuid.UUID `json:"user_id" db:"user_id"`
	DisplayName         string    `json:"display_name" db:"display_name"`
	Intro               *string   `json:"intro" db:"intro"`
	QuestionPrice       int64     `json:"question_price" db:"question_price"`
	AcceptsQuestions    bool      `json:"accepts_questions" db:"accepts_questions"`
	RevenueSharePercent *int      `json:"revenue_share_percent" db:"revenue_share_percent"`
	CreatedAt           time.Time `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time `json:"updated_at" db:"updated_at"`
}

// PaymentAccount represents a row of public.user_payment_accounts
type PaymentAccount struct {
	UserID        uuid.UUID `json:"user_id" db:"user_id"`
	BankName      string    `json:"bank_name" db:"bank_name"`
	AccountNumber string    `json:"account_number" db:"account_number"`
	AccountHolder string    `json:"account_holder" db:"account_holder"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// AuthVerification represents a password reset code
type AuthVerification struct {
	ID        uuid.UUID `db:"id"`
	UserID    uuid.UUID `db:"user_id"`
	Email     string    `db:"email"`
	Code      string    `db:"code"`
	ExpiresAt time.Time `db:"expires_at"`
	Used      bool      `db:"used"`
	CreatedAt time.Time `db:"created_at"`
}
