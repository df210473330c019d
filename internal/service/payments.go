package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"STUDYHUB_BACK-END/internal/metrics"
	"STUDYHUB_BACK-END/internal/models"
	"STUDYHUB_BACK-END/internal/payments"
	"STUDYHUB_BACK-END/internal/repository"
)

// TossGateway is implemented by payments.TossClient
type TossGateway interface {
	Confirm(ctx context.Context, paymentKey, orderID string, amount int64) (*payments.TossPayment, error)
	GetPayment(ctx context.Context, paymentKey string) (*payments.TossPayment, error)
}

// PortOneGateway is implemented by payments.PortOneClient
type PortOneGateway interface {
	GetPayment(ctx context.Context, paymentID string) (*payments.PortOnePayment, error)
}

// Webhook outcomes reported to metrics
const (
	webhookProcessed = "processed"
	webhookDuplicate = "duplicate"
	webhookIgnored   = "ignored"
)

// Payments confirms gateway payments and applies webhook events
type Payments struct {
	purchases *Purchases
	market    repository.MarketStore
	toss      TossGateway
	portone   PortOneGateway
}

// NewPayments creates the gateway service
func NewPayments(purchases *Purchases, market repository.MarketStore, toss TossGateway, portone PortOneGateway) *Payments {
	return &Payments{purchases: purchases, market: market, toss: toss, portone: portone}
}

func (s *Payments) buyerPurchase(ctx context.Context, buyerID uuid.UUID, orderID string) (*models.Purchase, error) {
	p, err := s.market.GetPurchaseByOrderID(ctx, orderID)
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

// ConfirmToss approves a Toss payment authorized by the buyer and completes the purchase
func (s *Payments) ConfirmToss(ctx context.Context, buyerID uuid.UUID, paymentKey, orderID string, amount int64) (*models.Purchase, error) {
	p, err := s.buyerPurchase(ctx, buyerID, orderID)
	if err != nil {
		return nil, err
	}
	if p.Status != models.PurchasePendingPayment {
		return nil, ErrInvalidStatus
	}
	if amount != p.Amount {
		return nil, ErrAmountMismatch
	}

	payment, err := s.toss.Confirm(ctx, paymentKey, orderID, amount)
	if err != nil {
		var pe *payments.ProviderError
		if errors.As(err, &pe) {
			return nil, fmt.Errorf("%w: %s", ErrPaymentFailed, pe.Message)
		}
		return nil, fmt.Errorf("%w: %v", ErrPaymentFailed, err)
	}
	if payment.Status != payments.TossStatusDone {
		return nil, fmt.Errorf("%w: payment status %s", ErrPaymentFailed, payment.Status)
	}

	return s.purchases.Complete(ctx, p.ID, nil, &payment.PaymentKey)
}

// CompletePortOne verifies a PortOne payment (paymentID is the order id) and completes the purchase
func (s *Payments) CompletePortOne(ctx context.Context, buyerID uuid.UUID, paymentID string) (*models.Purchase, error) {
	p, err := s.buyerPurchase(ctx, buyerID, paymentID)
	if err != nil {
		return nil, err
	}
	if p.Status == models.PurchaseCompleted {
		return p, nil
	}
	if err := s.verifyPortOne(ctx, paymentID, p.Amount); err != nil {
		return nil, err
	}
	return s.purchases.Complete(ctx, p.ID, nil, &paymentID)
}

func (s *Payments) verifyPortOne(ctx context.Context, paymentID string, amount int64) error {
	payment, err := s.portone.GetPayment(ctx, paymentID)
	if err != nil {
		var pe *payments.ProviderError
		if errors.As(err, &pe) {
			return fmt.Errorf("%w: %s", ErrPaymentFailed, pe.Message)
		}
		return fmt.Errorf("%w: %v", ErrPaymentFailed, err)
	}
	if payment.Status != payments.PortOneStatusPaid {
		return fmt.Errorf("%w: payment status %s", ErrPaymentFailed, payment.Status)
	}
	if payment.TotalAmount != amount {
		return ErrAmountMismatch
	}
	return nil
}

// verifyPortOneCancelled re-fetches the payment and requires the gateway to report it cancelled
func (s *Payments) verifyPortOneCancelled(ctx context.Context, paymentID string) error {
	payment, err := s.portone.GetPayment(ctx, paymentID)
	if err != nil {
		var pe *payments.ProviderError
		if errors.As(err, &pe) && pe.Status < 500 {
			return fmt.Errorf("%w: %s", ErrPaymentFailed, pe.Message)
		}
		return err
	}
	if payment.Status != payments.PortOneStatusCancelled {
		return fmt.Errorf("%w: payment status %s", ErrPaymentFailed, payment.Status)
	}
	return nil
}

// HandlePortOneWebhook applies a signature-verified PortOne delivery
func (s *Payments) HandlePortOneWebhook(ctx context.Context, webhookID string, body []byte) error {
	wh, err := payments.ParsePortOneWebhook(body)
	if err != nil {
		return err
	}
	logger := log.WithFields(log.Fields{"provider": "portone", "webhook_id": webhookID, "type": wh.Type, "payment_id": wh.PaymentID})

	if seen, err := s.market.PaymentEventExists(ctx, webhookID); err != nil {
		return err
	} else if seen {
		metrics.RecordWebhook("portone", webhookDuplicate)
		logger.Info("duplicate webhook skipped")
		return nil
	}

	result := webhookIgnored
	switch wh.Type {
	case payments.PortOneEventPaid:
		result, err = s.completeByOrder(ctx, wh.PaymentID, func(p *models.Purchase) error {
			return s.verifyPortOne(ctx, wh.PaymentID, p.Amount)
		}, wh.PaymentID)
	case payments.PortOneEventCancelled:
		result, err = s.refundByOrder(ctx, wh.PaymentID, models.MethodPortOne, func(*models.Purchase) error {
			return s.verifyPortOneCancelled(ctx, wh.PaymentID)
		})
	}
	if err != nil {
		metrics.RecordWebhook("portone", "error")
		return err
	}

	if err := s.record(ctx, webhookID, "portone", wh.Type, body); err != nil {
		return err
	}
	metrics.RecordWebhook("portone", result)
	logger.WithField("result", result).Info("webhook handled")
	return nil
}

// HandleTossWebhook applies a Toss delivery. Toss does not sign webhooks, so
// the payment is re-fetched and must reference the same order.
func (s *Payments) HandleTossWebhook(ctx context.Context, body []byte) error {
	wh, err := payments.ParseTossWebhook(body)
	if err != nil {
		return err
	}

	payment, err := s.toss.GetPayment(ctx, wh.PaymentKey)
	if err != nil {
		var pe *payments.ProviderError
		if errors.As(err, &pe) && pe.Status < 500 {
			metrics.RecordWebhook("toss", "unverified")
			return fmt.Errorf("%w: %s", ErrWebhookUnverified, pe.Message)
		}
		return err
	}
	if wh.OrderID != "" && payment.OrderID != wh.OrderID {
		metrics.RecordWebhook("toss", "unverified")
		return ErrWebhookUnverified
	}

	eventID := fmt.Sprintf("toss:%s:%s", payment.PaymentKey, payment.Status)
	logger := log.WithFields(log.Fields{"provider": "toss", "event_id": eventID, "order_id": payment.OrderID})

	if seen, err := s.market.PaymentEventExists(ctx, eventID); err != nil {
		return err
	} else if seen {
		metrics.RecordWebhook("toss", webhookDuplicate)
		logger.Info("duplicate webhook skipped")
		return nil
	}

	result := webhookIgnored
	switch payment.Status {
	case payments.TossStatusDone:
		result, err = s.completeByOrder(ctx, payment.OrderID, func(p *models.Purchase) error {
			if payment.TotalAmount != p.Amount {
				return ErrAmountMismatch
			}
			return nil
		}, payment.PaymentKey)
	case payments.TossStatusCanceled:
		result, err = s.refundByOrder(ctx, payment.OrderID, models.MethodToss, func(*models.Purchase) error { return nil })
	}
	if err != nil {
		metrics.RecordWebhook("toss", "error")
		return err
	}

	if err := s.record(ctx, eventID, "toss", wh.EventType, body); err != nil {
		return err
	}
	metrics.RecordWebhook("toss", result)
	logger.WithField("result", result).Info("webhook handled")
	return nil
}

// completeByOrder completes the purchase of orderID after verify succeeds.
// Purchases that are unknown, already completed or mismatched are acknowledged and logged.
func (s *Payments) completeByOrder(ctx context.Context, orderID string, verify func(*models.Purchase) error, paymentKey string) (string, error) {
	p, err := s.market.GetPurchaseByOrderID(ctx, orderID)
	if errors.Is(err, repository.ErrNotFound) {
		log.WithField("order_id", orderID).Warn("webhook for unknown order")
		return webhookIgnored, nil
	}
	if err != nil {
		return "", err
	}
	if p.Status != models.PurchasePendingPayment && p.Status != models.PurchasePendingConfirm {
		return webhookIgnored, nil
	}
	if err := verify(p); err != nil {
		if errors.Is(err, ErrAmountMismatch) || errors.Is(err, ErrPaymentFailed) {
			log.WithField("order_id", orderID).WithError(err).Warn("webhook payment not accepted")
			return webhookIgnored, nil
		}
		return "", err
	}
	if _, err := s.purchases.Complete(ctx, p.ID, nil, &paymentKey); err != nil {
		if errors.Is(err, ErrInvalidStatus) {
			return webhookIgnored, nil
		}
		return "", err
	}
	return webhookProcessed, nil
}

// refundByOrder refunds the completed purchase of orderID. Only purchases paid
// through method are touched, and verify must confirm the cancellation.
func (s *Payments) refundByOrder(ctx context.Context, orderID, method string, verify func(*models.Purchase) error) (string, error) {
	p, err := s.market.GetPurchaseByOrderID(ctx, orderID)
	if errors.Is(err, repository.ErrNotFound) {
		log.WithField("order_id", orderID).Warn("webhook for unknown order")
		return webhookIgnored, nil
	}
	if err != nil {
		return "", err
	}
	logger := log.WithFields(log.Fields{"order_id": orderID, "payment_method": p.PaymentMethod})
	if p.PaymentMethod != method {
		logger.Warn("cancellation for a purchase paid another way ignored")
		return webhookIgnored, nil
	}
	if p.Status != models.PurchaseCompleted {
		return webhookIgnored, nil
	}
	if err := verify(p); err != nil {
		if errors.Is(err, ErrPaymentFailed) {
			logger.WithError(err).Warn("webhook cancellation not accepted")
			return webhookIgnored, nil
		}
		return "", err
	}
	if _, err := s.purchases.Refund(ctx, p.ID, nil, "cancelled at payment gateway"); err != nil {
		if errors.Is(err, ErrInvalidStatus) {
			return webhookIgnored, nil
		}
		return "", err
	}
	return webhookProcessed, nil
}

func (s *Payments) record(ctx context.Context, id, provider, eventType string, body []byte) error {
	_, err := s.market.RecordPaymentEvent(ctx, &models.PaymentEvent{
		ID:        id,
		Provider:  provider,
		EventType: eventType,
		Payload:   body,
	})
	return err
}
