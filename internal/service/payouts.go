package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"STUDYHUB_BACK-END/internal/config"
	"STUDYHUB_BACK-END/internal/metrics"
	"STUDYHUB_BACK-END/internal/models"
	"STUDYHUB_BACK-END/internal/repository"
)

// Payouts moves creator earnings from available to pending to withdrawn
type Payouts struct {
	market   repository.MarketStore
	creators repository.CreatorStore
	profiles repository.ProfileStore
	notifier *Notifier
	mailer   Mailer
	cfg      config.MarketplaceConfig
}

// NewPayouts creates the payout service. mailer may be nil.
func NewPayouts(
	market repository.MarketStore,
	creators repository.CreatorStore,
	profiles repository.ProfileStore,
	notifier *Notifier,
	mailer Mailer,
	cfg config.MarketplaceConfig,
) *Payouts {
	return &Payouts{
		market:   market,
		creators: creators,
		profiles: profiles,
		notifier: notifier,
		mailer:   mailer,
		cfg:      cfg,
	}
}

// Balance returns the creator's balance, zeroed when no sale happened yet
func (s *Payouts) Balance(ctx context.Context, creatorID uuid.UUID) (*models.CreatorBalance, error) {
	b, err := s.market.GetBalance(ctx, creatorID)
	if errors.Is(err, repository.ErrNotFound) {
		return &models.CreatorBalance{CreatorID: creatorID}, nil
	}
	return b, err
}

// Request opens a payout request and reserves amount from the available balance
func (s *Payouts) Request(ctx context.Context, creatorID uuid.UUID, amount int64) (*models.PayoutRequest, error) {
	profile, err := s.profiles.GetProfile(ctx, creatorID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrForbidden
		}
		return nil, err
	}
	if !profile.IsCreator() {
		return nil, ErrForbidden
	}
	if amount < s.cfg.MinPayoutAmount {
		return nil, ErrBelowMinimumPayout
	}

	account, err := s.creators.GetPaymentAccount(ctx, creatorID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrBankAccountRequired
		}
		return nil, err
	}

	payout := &models.PayoutRequest{
		CreatorID:     creatorID,
		Amount:        amount,
		BankName:      account.BankName,
		AccountNumber: account.AccountNumber,
		AccountHolder: account.AccountHolder,
		Status:        models.PayoutPending,
	}

	err = s.market.WithinTx(ctx, func(tx repository.MarketStore) error {
		balance, err := tx.LockBalance(ctx, creatorID)
		if err != nil {
			return err
		}
		if _, err := tx.GetPendingPayout(ctx, creatorID); err == nil {
			return ErrPayoutInProgress
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		if amount > balance.Available {
			return ErrInsufficientBalance
		}
		if err := tx.CreatePayout(ctx, payout); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return ErrPayoutInProgress
			}
			return err
		}
		_, err = tx.ApplyBalanceDelta(ctx, creatorID, models.BalanceDelta{
			Available: -amount,
			Pending:   amount,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	metrics.RecordPayout("requested")

	log.WithFields(log.Fields{"payout_id": payout.ID, "creator_id": creatorID, "amount": amount}).Info("payout requested")

	s.notifier.NotifyAdmins(ctx, Message{
		Type:      NotifyPayoutRequested,
		Title:     "New payout request",
		Message:   fmt.Sprintf("%s requested %s", profile.Nickname, FormatKRW(amount)),
		Data:      map[string]any{"payout_id": payout.ID.String(), "creator_id": creatorID.String()},
		ActionURL: "/admin/payouts",
	})
	return payout, nil
}

// Approve marks a pending payout as paid out
func (s *Payouts) Approve(ctx context.Context, payoutID, actorID uuid.UUID, note string) (*models.PayoutRequest, error) {
	p, err := s.decide(ctx, payoutID, actorID, models.PayoutApproved, note, func(amount int64) models.BalanceDelta {
		return models.BalanceDelta{Pending: -amount, TotalWithdrawn: amount}
	})
	if err != nil {
		return nil, err
	}

	s.notifier.NotifyQuietly(ctx, p.CreatorID, Message{
		Type:      NotifyPayoutApproved,
		Title:     "Payout approved",
		Message:   fmt.Sprintf("%s will be transferred to %s %s.", FormatKRW(p.Amount), p.BankName, MaskAccountNumber(p.AccountNumber)),
		Data:      map[string]any{"payout_id": p.ID.String()},
		ActionURL: "/creator/payouts",
	})
	if s.mailer != nil {
		if creator, err := s.profiles.GetProfile(ctx, p.CreatorID); err == nil && creator.Email != nil {
			if err := s.mailer.SendPayoutApproved(ctx, *creator.Email, p.Amount); err != nil {
				log.WithField("payout_id", p.ID).WithError(err).Warn("payout approval email not sent")
			}
		}
	}
	return p, nil
}

// Reject declines a pending payout and releases the reserved amount
func (s *Payouts) Reject(ctx context.Context, payoutID, actorID uuid.UUID, note string) (*models.PayoutRequest, error) {
	p, err := s.decide(ctx, payoutID, actorID, models.PayoutRejected, note, func(amount int64) models.BalanceDelta {
		return models.BalanceDelta{Pending: -amount, Available: amount}
	})
	if err != nil {
		return nil, err
	}

	msg := fmt.Sprintf("Your payout of %s was rejected.", FormatKRW(p.Amount))
	if note = strings.TrimSpace(note); note != "" {
		msg = fmt.Sprintf("Your payout of %s was rejected: %s", FormatKRW(p.Amount), note)
	}
	s.notifier.NotifyQuietly(ctx, p.CreatorID, Message{
		Type:      NotifyPayoutRejected,
		Title:     "Payout rejected",
		Message:   msg,
		Data:      map[string]any{"payout_id": p.ID.String()},
		ActionURL: "/creator/payouts",
	})
	return p, nil
}

func (s *Payouts) decide(
	ctx context.Context,
	payoutID, actorID uuid.UUID,
	status, note string,
	delta func(amount int64) models.BalanceDelta,
) (*models.PayoutRequest, error) {
	var notePtr *string
	if n := strings.TrimSpace(note); n != "" {
		notePtr = &n
	}

	var decided *models.PayoutRequest
	err := s.market.WithinTx(ctx, func(tx repository.MarketStore) error {
		current, err := tx.GetPayout(ctx, payoutID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrNotFound
			}
			return err
		}
		if current.Status != models.PayoutPending {
			return ErrInvalidStatus
		}
		if _, err := tx.LockBalance(ctx, current.CreatorID); err != nil {
			return err
		}
		p, err := tx.DecidePayout(ctx, payoutID, status, notePtr, actorID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrInvalidStatus
			}
			return err
		}
		if _, err := tx.ApplyBalanceDelta(ctx, p.CreatorID, delta(p.Amount)); err != nil {
			return err
		}
		decided = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.RecordPayout(status)

	log.WithFields(log.Fields{
		"payout_id":  decided.ID,
		"creator_id": decided.CreatorID,
		"status":     status,
		"actor_id":   actorID,
	}).Info("payout decided")
	return decided, nil
}

// MaskAccountNumber hides every digit but the last four
func MaskAccountNumber(number string) string {
	runes := []rune(number)
	digits := 0
	for i := len(runes) - 1; i >= 0; i-- {
		if runes[i] < '0' || runes[i] > '9' {
			continue
		}
		digits++
		if digits > 4 {
			runes[i] = '*'
		}
	}
	return string(runes)
}
