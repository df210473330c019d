package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"STUDYHUB_BACK-END/internal/config"
	"STUDYHUB_BACK-END/internal/metrics"
	"STUDYHUB_BACK-END/internal/models"
	"STUDYHUB_BACK-END/internal/repository"
)

// Admin notes written by the system
const (
	NoteCancelledByBuyer = "cancelled by buyer"
	NoteExpired          = "expired"
)

// Mailer sends the transactional emails of the marketplace
type Mailer interface {
	SendPurchaseCompleted(ctx context.Context, to, contentTitle string, amount int64) error
	SendPayoutApproved(ctx context.Context, to string, amount int64) error
}

// CreatePurchaseInput is a buyer's purchase request
type CreatePurchaseInput struct {
	BuyerID       uuid.UUID
	ContentID     uuid.UUID
	Method        string
	DepositorName string
}

// Purchases runs the purchase lifecycle and keeps creator balances in step
type Purchases struct {
	market   repository.MarketStore
	contents repository.ContentStore
	creators repository.CreatorStore
	profiles repository.ProfileStore
	notifier *Notifier
	mailer   Mailer
	cfg      config.MarketplaceConfig
	now      func() time.Time
}

// NewPurchases creates the purchase service. mailer may be nil.
func NewPurchases(
	market repository.MarketStore,
	contents repository.ContentStore,
	creators repository.CreatorStore,
	profiles repository.ProfileStore,
	notifier *Notifier,
	mailer Mailer,
	cfg config.MarketplaceConfig,
) *Purchases {
	return &Purchases{
		market:   market,
		contents: contents,
		creators: creators,
		profiles: profiles,
		notifier: notifier,
		mailer:   mailer,
		cfg:      cfg,
		now:      time.Now,
	}
}

// SplitRevenue divides amount between creator and platform. The creator share
// is floored; the platform keeps the remainder.
func SplitRevenue(amount int64, creatorPercent int) (creatorAmount, platformFee int64) {
	if creatorPercent < 0 {
		creatorPercent = 0
	}
	if creatorPercent > 100 {
		creatorPercent = 100
	}
	creatorAmount = amount * int64(creatorPercent) / 100
	return creatorAmount, amount - creatorAmount
}

// NewOrderID returns "SH-" followed by 20 random hex characters
func NewOrderID() (string, error) {
	buf := make([]byte, 10)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate order id: %w", err)
	}
	return "SH-" + hex.EncodeToString(buf), nil
}

func (s *Purchases) creatorShare(ctx context.Context, creatorID uuid.UUID) int {
	settings, err := s.creators.GetCreatorSettings(ctx, creatorID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			log.WithField("creator_id", creatorID).WithError(err).Warn("load creator settings, using default share")
		}
		return s.cfg.CreatorSharePercent
	}
	if settings.RevenueSharePercent != nil {
		return *settings.RevenueSharePercent
	}
	return s.cfg.CreatorSharePercent
}

// Create opens a purchase. Free content completes immediately.
func (s *Purchases) Create(ctx context.Context, in CreatePurchaseInput) (*models.Purchase, error) {
	content, err := s.contents.GetContent(ctx, in.ContentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !content.IsPublished {
		return nil, ErrNotFound
	}
	if content.CreatorID == in.BuyerID {
		return nil, ErrOwnContent
	}

	if _, err := s.market.FindActivePurchase(ctx, content.ID, in.BuyerID); err == nil {
		return nil, ErrAlreadyPurchased
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	orderID, err := NewOrderID()
	if err != nil {
		return nil, err
	}

	p := &models.Purchase{
		ContentID:     content.ID,
		BuyerID:       in.BuyerID,
		CreatorID:     content.CreatorID,
		Amount:        content.Price,
		PaymentMethod: in.Method,
		Status:        models.PurchasePendingPayment,
		OrderID:       orderID,
		ContentTitle:  content.Title,
	}

	if content.IsFree() {
		now := s.now().UTC()
		p.PaymentMethod = models.MethodFree
		p.Status = models.PurchaseCompleted
		p.ConfirmedAt = &now
	} else {
		if in.Method == models.MethodP2P {
			name := strings.TrimSpace(in.DepositorName)
			if name == "" {
				return nil, ErrDepositorRequired
			}
			p.DepositorName = &name
		}
		p.CreatorAmount, p.PlatformFee = SplitRevenue(content.Price, s.creatorShare(ctx, content.CreatorID))
	}

	if err := s.market.CreatePurchase(ctx, p); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrAlreadyPurchased
		}
		return nil, err
	}
	metrics.RecordPurchase(p.PaymentMethod, p.Status)

	log.WithFields(log.Fields{
		"purchase_id": p.ID,
		"content_id":  p.ContentID,
		"buyer_id":    p.BuyerID,
		"method":      p.PaymentMethod,
		"amount":      p.Amount,
	}).Info("purchase created")

	if p.PaymentMethod == models.MethodP2P {
		s.notifier.NotifyAdmins(ctx, Message{
			Type:      NotifyPurchaseRequested,
			Title:     "New bank transfer purchase",
			Message:   fmt.Sprintf("%s: %s (%s)", content.Title, FormatKRW(p.Amount), *p.DepositorName),
			Data:      map[string]any{"purchase_id": p.ID.String(), "order_id": p.OrderID},
			ActionURL: "/admin/purchases",
		})
	}
	return p, nil
}

// ReportDeposit moves a bank transfer purchase to pending_confirm once the buyer says they paid
func (s *Purchases) ReportDeposit(ctx context.Context, buyerID, purchaseID uuid.UUID, depositorName string) (*models.Purchase, error) {
	p, err := s.ownedPurchase(ctx, buyerID, purchaseID)
	if err != nil {
		return nil, err
	}
	if p.PaymentMethod != models.MethodP2P {
		return nil, ErrInvalidStatus
	}

	change := models.StatusChange{
		From: []string{models.PurchasePendingPayment},
		To:   models.PurchasePendingConfirm,
	}
	updated, err := s.transition(ctx, s.market, p.ID, change)
	if err != nil {
		return nil, err
	}
	metrics.RecordPurchase(updated.PaymentMethod, updated.Status)

	depositor := strings.TrimSpace(depositorName)
	if depositor == "" && updated.DepositorName != nil {
		depositor = *updated.DepositorName
	}
	s.notifier.NotifyAdmins(ctx, Message{
		Type:      NotifyDepositReported,
		Title:     "Deposit reported",
		Message:   fmt.Sprintf("%s: %s from %s", updated.ContentTitle, FormatKRW(updated.Amount), depositor),
		Data:      map[string]any{"purchase_id": updated.ID.String(), "order_id": updated.OrderID},
		ActionURL: "/admin/purchases",
	})
	return updated, nil
}

// Cancel lets the buyer abandon a purchase that has not been paid
func (s *Purchases) Cancel(ctx context.Context, buyerID, purchaseID uuid.UUID) (*models.Purchase, error) {
	if _, err := s.ownedPurchase(ctx, buyerID, purchaseID); err != nil {
		return nil, err
	}
	note := NoteCancelledByBuyer
	updated, err := s.transition(ctx, s.market, purchaseID, models.StatusChange{
		From:      []string{models.PurchasePendingPayment},
		To:        models.PurchaseRejected,
		AdminNote: &note,
	})
	if err != nil {
		return nil, err
	}
	metrics.RecordPurchase(updated.PaymentMethod, updated.Status)
	return updated, nil
}

// Complete marks a purchase paid and credits the creator. actorID is the
// confirming admin (nil for gateways); paymentKey is the gateway reference.
func (s *Purchases) Complete(ctx context.Context, purchaseID uuid.UUID, actorID *uuid.UUID, paymentKey *string) (*models.Purchase, error) {
	return s.complete(ctx, purchaseID, actorID, paymentKey, nil)
}

// Confirm is the admin completion of a bank transfer; a blank note is not stored
func (s *Purchases) Confirm(ctx context.Context, purchaseID, actorID uuid.UUID, note string) (*models.Purchase, error) {
	var adminNote *string
	if note = strings.TrimSpace(note); note != "" {
		adminNote = &note
	}
	return s.complete(ctx, purchaseID, &actorID, nil, adminNote)
}

func (s *Purchases) complete(ctx context.Context, purchaseID uuid.UUID, actorID *uuid.UUID, paymentKey, note *string) (*models.Purchase, error) {
	var completed *models.Purchase
	err := s.market.WithinTx(ctx, func(tx repository.MarketStore) error {
		now := s.now().UTC()
		p, err := s.transition(ctx, tx, purchaseID, models.StatusChange{
			From:        []string{models.PurchasePendingPayment, models.PurchasePendingConfirm},
			To:          models.PurchaseCompleted,
			ActorID:     actorID,
			PaymentKey:  paymentKey,
			AdminNote:   note,
			ConfirmedAt: &now,
		})
		if err != nil {
			return err
		}
		if p.CreatorAmount != 0 {
			if _, err := tx.LockBalance(ctx, p.CreatorID); err != nil {
				return err
			}
			if _, err := tx.ApplyBalanceDelta(ctx, p.CreatorID, models.BalanceDelta{
				Available:   p.CreatorAmount,
				TotalEarned: p.CreatorAmount,
			}); err != nil {
				return err
			}
		}
		completed = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.RecordPurchase(completed.PaymentMethod, completed.Status)

	log.WithFields(log.Fields{
		"purchase_id":    completed.ID,
		"creator_id":     completed.CreatorID,
		"creator_amount": completed.CreatorAmount,
	}).Info("purchase completed")

	s.afterCompletion(ctx, completed)
	return completed, nil
}

func (s *Purchases) afterCompletion(ctx context.Context, p *models.Purchase) {
	data := map[string]any{"purchase_id": p.ID.String(), "content_id": p.ContentID.String()}
	s.notifier.NotifyQuietly(ctx, p.BuyerID, Message{
		Type:      NotifyPurchaseCompleted,
		Title:     "Purchase completed",
		Message:   fmt.Sprintf("%s is now in your library.", p.ContentTitle),
		Data:      data,
		ActionURL: "/contents/" + p.ContentID.String(),
	})
	s.notifier.NotifyQuietly(ctx, p.CreatorID, Message{
		Type:      NotifyPurchaseCompleted,
		Title:     "New sale",
		Message:   fmt.Sprintf("%s sold. %s added to your balance.", p.ContentTitle, FormatKRW(p.CreatorAmount)),
		Data:      data,
		ActionURL: "/creator/sales",
	})

	if s.mailer == nil {
		return
	}
	buyer, err := s.profiles.GetProfile(ctx, p.BuyerID)
	if err != nil || buyer.Email == nil {
		return
	}
	if err := s.mailer.SendPurchaseCompleted(ctx, *buyer.Email, p.ContentTitle, p.Amount); err != nil {
		log.WithField("purchase_id", p.ID).WithError(err).Warn("purchase completion email not sent")
	}
}

// Reject closes an unpaid or unconfirmed purchase
func (s *Purchases) Reject(ctx context.Context, purchaseID uuid.UUID, actorID *uuid.UUID, note string) (*models.Purchase, error) {
	change := models.StatusChange{
		From:    []string{models.PurchasePendingPayment, models.PurchasePendingConfirm},
		To:      models.PurchaseRejected,
		ActorID: actorID,
	}
	if note = strings.TrimSpace(note); note != "" {
		change.AdminNote = &note
	}
	p, err := s.transition(ctx, s.market, purchaseID, change)
	if err != nil {
		return nil, err
	}
	metrics.RecordPurchase(p.PaymentMethod, p.Status)

	s.notifier.NotifyQuietly(ctx, p.BuyerID, Message{
		Type:    NotifyPurchaseRejected,
		Title:   "Purchase rejected",
		Message: rejectionMessage(p.ContentTitle, note),
		Data:    map[string]any{"purchase_id": p.ID.String()},
	})
	return p, nil
}

// Refund reverses a completed purchase and debits the creator. The balance
// may go negative and is recovered from later sales.
func (s *Purchases) Refund(ctx context.Context, purchaseID uuid.UUID, actorID *uuid.UUID, note string) (*models.Purchase, error) {
	var refunded *models.Purchase
	err := s.market.WithinTx(ctx, func(tx repository.MarketStore) error {
		now := s.now().UTC()
		change := models.StatusChange{
			From:       []string{models.PurchaseCompleted},
			To:         models.PurchaseRefunded,
			ActorID:    actorID,
			RefundedAt: &now,
		}
		if n := strings.TrimSpace(note); n != "" {
			change.AdminNote = &n
		}
		p, err := s.transition(ctx, tx, purchaseID, change)
		if err != nil {
			return err
		}
		if p.CreatorAmount != 0 {
			if _, err := tx.LockBalance(ctx, p.CreatorID); err != nil {
				return err
			}
			if _, err := tx.ApplyBalanceDelta(ctx, p.CreatorID, models.BalanceDelta{
				Available:   -p.CreatorAmount,
				TotalEarned: -p.CreatorAmount,
			}); err != nil {
				return err
			}
		}
		refunded = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.RecordPurchase(refunded.PaymentMethod, refunded.Status)

	log.WithFields(log.Fields{
		"purchase_id":    refunded.ID,
		"creator_id":     refunded.CreatorID,
		"creator_amount": refunded.CreatorAmount,
	}).Info("purchase refunded")

	data := map[string]any{"purchase_id": refunded.ID.String()}
	s.notifier.NotifyQuietly(ctx, refunded.BuyerID, Message{
		Type:    NotifyPurchaseRefunded,
		Title:   "Purchase refunded",
		Message: fmt.Sprintf("%s has been refunded (%s).", refunded.ContentTitle, FormatKRW(refunded.Amount)),
		Data:    data,
	})
	s.notifier.NotifyQuietly(ctx, refunded.CreatorID, Message{
		Type:    NotifyPurchaseRefunded,
		Title:   "Sale refunded",
		Message: fmt.Sprintf("%s was refunded. %s deducted from your balance.", refunded.ContentTitle, FormatKRW(refunded.CreatorAmount)),
		Data:    data,
	})
	return refunded, nil
}

// ExpireStale rejects pending_payment purchases older than the configured TTL
func (s *Purchases) ExpireStale(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.cfg.PurchasePendingTTL)
	stale, err := s.market.ListStalePurchases(ctx, models.PurchasePendingPayment, cutoff, 500)
	if err != nil {
		return 0, err
	}

	note := NoteExpired
	expired := 0
	for _, p := range stale {
		updated, err := s.transition(ctx, s.market, p.ID, models.StatusChange{
			From:      []string{models.PurchasePendingPayment},
			To:        models.PurchaseRejected,
			AdminNote: &note,
		})
		if errors.Is(err, ErrInvalidStatus) || errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return expired, err
		}
		expired++
		metrics.RecordPurchase(updated.PaymentMethod, updated.Status)
		s.notifier.NotifyQuietly(ctx, updated.BuyerID, Message{
			Type:    NotifyPurchaseRejected,
			Title:   "Purchase expired",
			Message: fmt.Sprintf("Payment for %s was not received in time.", updated.ContentTitle),
			Data:    map[string]any{"purchase_id": updated.ID.String()},
		})
	}
	return expired, nil
}

// Get loads a purchase visible to the caller (buyer, creator or admin)
func (s *Purchases) Get(ctx context.Context, callerID uuid.UUID, isAdmin bool, purchaseID uuid.UUID) (*models.Purchase, error) {
	p, err := s.market.GetPurchase(ctx, purchaseID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !isAdmin && p.BuyerID != callerID && p.CreatorID != callerID {
		return nil, ErrForbidden
	}
	return p, nil
}

// HasAccess reports whether userID may download content. Free contents are
// open to everyone once published.
func (s *Purchases) HasAccess(ctx context.Context, userID uuid.UUID, isAdmin bool, content *models.Content) (bool, error) {
	if isAdmin || content.CreatorID == userID {
		return true, nil
	}
	if content.IsFree() {
		return content.IsPublished, nil
	}
	if userID == uuid.Nil {
		return false, nil
	}
	p, err := s.market.FindActivePurchase(ctx, content.ID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return p.Status == models.PurchaseCompleted, nil
}

func (s *Purchases) ownedPurchase(ctx context.Context, buyerID, purchaseID uuid.UUID) (*models.Purchase, error) {
	p, err := s.market.GetPurchase(ctx, purchaseID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if p.BuyerID != buyerID {
		return nil, ErrForbidden
	}
	return p, nil
}

// transition applies change and tells a missing row apart from a row in
// the wrong status.
func (s *Purchases) transition(ctx context.Context, store repository.MarketStore, id uuid.UUID, change models.StatusChange) (*models.Purchase, error) {
	p, err := store.TransitionPurchase(ctx, id, change)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if _, getErr := store.GetPurchase(ctx, id); getErr != nil {
		if errors.Is(getErr, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, getErr
	}
	return nil, ErrInvalidStatus
}

func rejectionMessage(title, note string) string {
	if note == "" {
		return fmt.Sprintf("Your purchase of %s was rejected.", title)
	}
	return fmt.Sprintf("Your purchase of %s was rejected: %s", title, note)
}

// FormatKRW renders an amount as "12,000원"
func FormatKRW(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	digits := fmt.Sprintf("%d", amount)
	var b strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(d)
	}
	return sign + b.String() + "원"
}
