// Package repository is the persistence layer. Handlers and services depend on
// the narrow Store interfaces declared here; Postgres implements all of them
// with pgx.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"STUDYHUB_BACK-END/internal/models"
)

var (
	// ErrNotFound is returned when no row matched
	ErrNotFound = errors.New("repository: not found")
	// ErrConflict is returned on unique constraint violations
	ErrConflict = errors.New("repository: conflict")
)

// DBTX is satisfied by *pgxpool.Pool and pgx.Tx
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ProfileStore persists profiles
type ProfileStore interface {
	CreateProfile(ctx context.Context, p *models.Profile) error
	GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	GetProfileByEmail(ctx context.Context, email string) (*models.Profile, error)
	UpsertOAuthProfile(ctx context.Context, p *models.Profile) (*models.Profile, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, nickname, avatarURL, bio *string) (*models.Profile, error)
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
	SetRole(ctx context.Context, id uuid.UUID, role string) error
	ListAdminIDs(ctx context.Context) ([]uuid.UUID, error)
}

// CreatorStore persists creator settings and payout bank accounts
type CreatorStore interface {
	GetCreatorSettings(ctx context.Context, userID uuid.UUID) (*models.CreatorSettings, error)
	UpsertCreatorSettings(ctx context.Context, s *models.CreatorSettings) (*models.CreatorSettings, error)
	GetPaymentAccount(ctx context.Context, userID uuid.UUID) (*models.PaymentAccount, error)
	UpsertPaymentAccount(ctx context.Context, a *models.PaymentAccount) (*models.PaymentAccount, error)
}

// VerificationStore persists password reset codes
type VerificationStore interface {
	LatestActiveVerification(ctx context.Context, userID uuid.UUID) (*models.AuthVerification, error)
	CreateVerification(ctx context.Context, v *models.AuthVerification) error
	FindVerification(ctx context.Context, email, code string) (*models.AuthVerification, error)
	MarkVerificationUsed(ctx context.Context, id uuid.UUID) error
}

// ContentStore persists contents
type ContentStore interface {
	CreateContent(ctx context.Context, c *models.Content) error
	GetContent(ctx context.Context, id uuid.UUID) (*models.Content, error)
	ListContents(ctx context.Context, f models.ContentFilter) ([]models.Content, int, error)
	UpdateContent(ctx context.Context, c *models.Content) error
	DeleteContent(ctx context.Context, id uuid.UUID) error
	IncrementViewCount(ctx context.Context, id uuid.UUID) error
	CountPurchases(ctx context.Context, contentID uuid.UUID) (int, error)
}

// PurchaseFilter narrows purchase listings
type PurchaseFilter struct {
	BuyerID   *uuid.UUID
	CreatorID *uuid.UUID
	Statuses  []string
	Limit     int
	Offset    int
}

// PayoutFilter narrows payout listings
type PayoutFilter struct {
	CreatorID *uuid.UUID
	Status    string
	Limit     int
	Offset    int
}

// MarketStore persists purchases, creator balances, payouts and webhook
// events. WithinTx runs fn against a store bound to one transaction.
type MarketStore interface {
	CreatePurchase(ctx context.Context, p *models.Purchase) error
	GetPurchase(ctx context.Context, id uuid.UUID) (*models.Purchase, error)
	GetPurchaseByOrderID(ctx context.Context, orderID string) (*models.Purchase, error)
	FindActivePurchase(ctx context.Context, contentID, buyerID uuid.UUID) (*models.Purchase, error)
	ListPurchases(ctx context.Context, f PurchaseFilter) ([]models.Purchase, int, error)
	TransitionPurchase(ctx context.Context, id uuid.UUID, change models.StatusChange) (*models.Purchase, error)
	ListStalePurchases(ctx context.Context, status string, before time.Time, limit int) ([]models.Purchase, error)

	GetBalance(ctx context.Context, creatorID uuid.UUID) (*models.CreatorBalance, error)
	LockBalance(ctx context.Context, creatorID uuid.UUID) (*models.CreatorBalance, error)
	ApplyBalanceDelta(ctx context.Context, creatorID uuid.UUID, d models.BalanceDelta) (*models.CreatorBalance, error)

	CreatePayout(ctx context.Context, p *models.PayoutRequest) error
	GetPayout(ctx context.Context, id uuid.UUID) (*models.PayoutRequest, error)
	GetPendingPayout(ctx context.Context, creatorID uuid.UUID) (*models.PayoutRequest, error)
	ListPayouts(ctx context.Context, f PayoutFilter) ([]models.PayoutRequest, int, error)
	DecidePayout(ctx context.Context, id uuid.UUID, status string, note *string, actorID uuid.UUID) (*models.PayoutRequest, error)

	PaymentEventExists(ctx context.Context, id string) (bool, error)
	RecordPaymentEvent(ctx context.Context, e *models.PaymentEvent) (bool, error)
	MarketStats(ctx context.Context) (*models.MarketStats, error)

	WithinTx(ctx context.Context, fn func(MarketStore) error) error
}

// SubscriptionStore persists creator subscriptions
type SubscriptionStore interface {
	Subscribe(ctx context.Context, subscriberID, creatorID uuid.UUID) (*models.Subscription, error)
	Unsubscribe(ctx context.Context, subscriberID, creatorID uuid.UUID) error
	ListSubscriptions(ctx context.Context, subscriberID uuid.UUID) ([]models.Subscription, error)
	ListSubscriberIDs(ctx context.Context, creatorID uuid.UUID) ([]uuid.UUID, error)
	CountSubscribers(ctx context.Context, creatorID uuid.UUID) (int, error)
}

// QuestionFilter narrows question listings
type QuestionFilter struct {
	AskerID   *uuid.UUID
	CreatorID *uuid.UUID
	Status    string
	Limit     int
	Offset    int
}

// QuestionStore persists questions and answers
type QuestionStore interface {
	CreateQuestion(ctx context.Context, q *models.Question) error
	GetQuestion(ctx context.Context, id uuid.UUID) (*models.Question, error)
	ListQuestions(ctx context.Context, f QuestionFilter) ([]models.Question, error)
	SetQuestionStatus(ctx context.Context, id uuid.UUID, status string) error
	CreateAnswer(ctx context.Context, a *models.Answer) error
	ListAnswers(ctx context.Context, questionID uuid.UUID) ([]models.Answer, error)
}

// NotificationStore persists notifications
type NotificationStore interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
	ListNotifications(ctx context.Context, userID uuid.UUID, f models.NotificationFilter) (items []models.Notification, total int, unread int, err error)
	MarkNotificationRead(ctx context.Context, id, userID uuid.UUID) (int64, error)
	NotificationExists(ctx context.Context, id uuid.UUID) (bool, error)
	MarkAllNotificationsRead(ctx context.Context, userID uuid.UUID) (int64, error)
}

// RoutineStore persists study routines
type RoutineStore interface {
	CreateRoutine(ctx context.Context, r *models.Routine) error
	GetRoutine(ctx context.Context, id uuid.UUID) (*models.Routine, error)
	ListRoutines(ctx context.Context, userID uuid.UUID) ([]models.Routine, error)
	UpdateRoutine(ctx context.Context, r *models.Routine) error
	DeleteRoutine(ctx context.Context, id, userID uuid.UUID) error
}

var (
	_ ProfileStore      = (*Postgres)(nil)
	_ CreatorStore      = (*Postgres)(nil)
	_ VerificationStore = (*Postgres)(nil)
	_ ContentStore      = (*Postgres)(nil)
	_ MarketStore       = (*Postgres)(nil)
	_ SubscriptionStore = (*Postgres)(nil)
	_ QuestionStore     = (*Postgres)(nil)
	_ NotificationStore = (*Postgres)(nil)
	_ RoutineStore      = (*Postgres)(nil)
)

// Postgres implements every store on top of pgx
type Postgres struct {
	pool *pgxpool.Pool
	db   DBTX
}

// NewPostgres wraps a pool
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool, db: pool}
}

// Ping checks database connectivity
func (p *Postgres) Ping(ctx context.Context) error {
	if p.pool == nil {
		return nil
	}
	return p.pool.Ping(ctx)
}

// WithinTx runs fn inside a transaction. Nested calls reuse the outer transaction.
func (p *Postgres) WithinTx(ctx context.Context, fn func(MarketStore) error) error {
	if _, inTx := p.db.(pgx.Tx); inTx || p.pool == nil {
		return fn(p)
	}

	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		// no-op after a successful commit
		_ = tx.Rollback(ctx)
	}()

	if err := fn(&Postgres{pool: p.pool, db: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// mapErr converts driver errors into repository sentinels
func mapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%s: %w (%s)", op, ErrConflict, pgErr.ConstraintName)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
