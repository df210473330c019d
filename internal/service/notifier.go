package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"STUDYHUB_BACK-END/internal/models"
	"STUDYHUB_BACK-END/internal/repository"
)

// Notification types
const (
	NotifyPurchaseRequested = "purchase_requested"
	NotifyPurchaseCompleted = "purchase_completed"
	NotifyPurchaseRejected  = "purchase_rejected"
	NotifyPurchaseRefunded  = "purchase_refunded"
	NotifyDepositReported   = "deposit_reported"
	NotifyPayoutRequested   = "payout_requested"
	NotifyPayoutApproved    = "payout_approved"
	NotifyPayoutRejected    = "payout_rejected"
	NotifyQuestionReceived  = "question_received"
	NotifyQuestionAnswered  = "question_answered"
	NotifyNewContent        = "new_content"
	NotifyNewSubscriber     = "new_subscriber"
)

var notificationTypes = map[string]bool{
	NotifyPurchaseRequested: true,
	NotifyPurchaseCompleted: true,
	NotifyPurchaseRejected:  true,
	NotifyPurchaseRefunded:  true,
	NotifyDepositReported:   true,
	NotifyPayoutRequested:   true,
	NotifyPayoutApproved:    true,
	NotifyPayoutRejected:    true,
	NotifyQuestionReceived:  true,
	NotifyQuestionAnswered:  true,
	NotifyNewContent:        true,
	NotifyNewSubscriber:     true,
}

// IsNotificationType reports whether t is a known notification type
func IsNotificationType(t string) bool {
	return notificationTypes[t]
}

const (
	maxTitleLen     = 255
	maxMessageLen   = 10000
	maxActionURLLen = 2048
	maxDataBytes    = 1 << 20
)

// Publisher pushes a stored notification to connected clients
type Publisher interface {
	Publish(userID uuid.UUID, n *models.Notification)
}

// Message is one notification to deliver
type Message struct {
	Type      string
	Title     string
	Message   string
	Data      map[string]any
	ActionURL string
}

// Notifier validates, stores and publishes notifications
type Notifier struct {
	store    repository.NotificationStore
	profiles repository.ProfileStore
	pub      Publisher
}

// NewNotifier creates a Notifier. pub may be nil.
func NewNotifier(store repository.NotificationStore, profiles repository.ProfileStore, pub Publisher) *Notifier {
	return &Notifier{store: store, profiles: profiles, pub: pub}
}

// Notify stores one notification for userID and publishes it
func (n *Notifier) Notify(ctx context.Context, userID uuid.UUID, msg Message) (*models.Notification, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("%w: user_id cannot be nil", ErrInvalidNotification)
	}
	if strings.TrimSpace(msg.Type) == "" {
		return nil, fmt.Errorf("%w: type is required", ErrInvalidNotification)
	}
	if strings.TrimSpace(msg.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidNotification)
	}
	if len(msg.Title) > maxTitleLen {
		return nil, fmt.Errorf("%w: title exceeds %d characters", ErrInvalidNotification, maxTitleLen)
	}
	if len(msg.Message) > maxMessageLen {
		return nil, fmt.Errorf("%w: message exceeds %d characters", ErrInvalidNotification, maxMessageLen)
	}
	if len(msg.ActionURL) > maxActionURLLen {
		return nil, fmt.Errorf("%w: action_url exceeds %d characters", ErrInvalidNotification, maxActionURLLen)
	}
	if len(msg.Data) > 0 {
		raw, err := json.Marshal(msg.Data)
		if err != nil {
			return nil, fmt.Errorf("%w: data: %v", ErrInvalidNotification, err)
		}
		if len(raw) > maxDataBytes {
			return nil, fmt.Errorf("%w: data exceeds 1MB", ErrInvalidNotification)
		}
	}
	if !IsNotificationType(msg.Type) {
		log.WithFields(log.Fields{"type": msg.Type, "user_id": userID}).Warn("unknown notification type")
	}

	item := &models.Notification{
		UserID: userID,
		Type:   msg.Type,
		Title:  msg.Title,
		Data:   msg.Data,
	}
	if msg.Message != "" {
		item.Message = &msg.Message
	}
	if msg.ActionURL != "" {
		item.ActionURL = &msg.ActionURL
	}

	insertCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := n.store.CreateNotification(insertCtx, item); err != nil {
		return nil, fmt.Errorf("store notification: %w", err)
	}

	if n.pub != nil {
		n.pub.Publish(userID, item)
	}
	return item, nil
}

// NotifyQuietly delivers msg and only logs failures
func (n *Notifier) NotifyQuietly(ctx context.Context, userID uuid.UUID, msg Message) {
	if _, err := n.Notify(ctx, userID, msg); err != nil {
		log.WithFields(log.Fields{"user_id": userID, "type": msg.Type}).WithError(err).Warn("notification skipped")
	}
}

// NotifyAdmins delivers msg to every admin, best effort
func (n *Notifier) NotifyAdmins(ctx context.Context, msg Message) {
	ids, err := n.profiles.ListAdminIDs(ctx)
	if err != nil {
		log.WithField("type", msg.Type).WithError(err).Warn("list admins for notification")
		return
	}
	for _, id := range ids {
		n.NotifyQuietly(ctx, id, msg)
	}
}

// NotifyMany delivers msg to each user, best effort
func (n *Notifier) NotifyMany(ctx context.Context, userIDs []uuid.UUID, msg Message) {
	for _, id := range userIDs {
		n.NotifyQuietly(ctx, id, msg)
	}
}
