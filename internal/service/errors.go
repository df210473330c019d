// Package service holds the marketplace rules: purchase lifecycle, revenue
// split, creator balances, payouts, gateway confirmation and notifications.
// Handlers translate the sentinel errors below into HTTP statuses.
package service

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrForbidden           = errors.New("forbidden")
	ErrOwnContent          = errors.New("cannot purchase your own content")
	ErrAlreadyPurchased    = errors.New("content already purchased or purchase in progress")
	ErrDepositorRequired   = errors.New("depositor name is required for bank transfer")
	ErrInvalidStatus       = errors.New("invalid status transition")
	ErrAmountMismatch      = errors.New("payment amount does not match purchase amount")
	ErrPaymentFailed       = errors.New("payment failed")
	ErrBelowMinimumPayout  = errors.New("amount is below the minimum payout")
	ErrInsufficientBalance = errors.New("amount exceeds available balance")
	ErrPayoutInProgress    = errors.New("a payout request is already pending")
	ErrBankAccountRequired = errors.New("register a payment account first")
	ErrInvalidNotification = errors.New("invalid notification")
	ErrWebhookUnverified   = errors.New("webhook could not be verified")
)
