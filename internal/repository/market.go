package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"STUDYHUB_BACK-END/internal/models"
)

const purchaseColumns = `cp.id, cp.content_id, cp.buyer_id, cp.creator_id, cp.amount, cp.creator_amount,
	cp.platform_fee, cp.payment_method, cp.status, cp.depositor_name, cp.payment_key, cp.order_id,
	cp.admin_note, cp.confirmed_by, cp.confirmed_at, cp.refunded_at, cp.created_at, cp.updated_at,
	COALESCE(c.title, '')`

const purchaseFrom = `content_purchases cp LEFT JOIN contents c ON c.id = cp.content_id`

func scanPurchase(row pgx.Row) (*models.Purchase, error) {
	var p models.Purchase
	err := row.Scan(&p.ID, &p.ContentID, &p.BuyerID, &p.CreatorID, &p.Amount, &p.CreatorAmount,
		&p.PlatformFee, &p.PaymentMethod, &p.Status, &p.DepositorName, &p.PaymentKey, &p.OrderID,
		&p.AdminNote, &p.ConfirmedBy, &p.ConfirmedAt, &p.RefundedAt, &p.CreatedAt, &p.UpdatedAt,
		&p.ContentTitle)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreatePurchase inserts a purchase. A second active purchase of the same
// content by the same buyer violates a partial unique index and yields ErrConflict.
func (p *Postgres) CreatePurchase(ctx context.Context, pu *models.Purchase) error {
	if pu.ID == uuid.Nil {
		pu.ID = uuid.New()
	}
	now := time.Now().UTC()
	pu.CreatedAt, pu.UpdatedAt = now, now

	_, err := p.db.Exec(ctx,
		`INSERT INTO content_purchases (id, content_id, buyer_id, creator_id, amount, creator_amount,
		     platform_fee, payment_method, status, depositor_name, payment_key, order_id,
		     confirmed_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $14)`,
		pu.ID, pu.ContentID, pu.BuyerID, pu.CreatorID, pu.Amount, pu.CreatorAmount,
		pu.PlatformFee, pu.PaymentMethod, pu.Status, pu.DepositorName, pu.PaymentKey, pu.OrderID,
		pu.ConfirmedAt, now)
	return mapErr("create purchase", err)
}

// GetPurchase loads a purchase by id
func (p *Postgres) GetPurchase(ctx context.Context, id uuid.UUID) (*models.Purchase, error) {
	pu, err := scanPurchase(p.db.QueryRow(ctx,
		`SELECT `+purchaseColumns+` FROM `+purchaseFrom+` WHERE cp.id = $1`, id))
	return pu, mapErr("get purchase", err)
}

// GetPurchaseByOrderID loads a purchase by its gateway order id
func (p *Postgres) GetPurchaseByOrderID(ctx context.Context, orderID string) (*models.Purchase, error) {
	pu, err := scanPurchase(p.db.QueryRow(ctx,
		`SELECT `+purchaseColumns+` FROM `+purchaseFrom+` WHERE cp.order_id = $1`, orderID))
	return pu, mapErr("get purchase by order", err)
}

// FindActivePurchase returns the pending or completed purchase of a content by a buyer
func (p *Postgres) FindActivePurchase(ctx context.Context, contentID, buyerID uuid.UUID) (*models.Purchase, error) {
	pu, err := scanPurchase(p.db.QueryRow(ctx,
		`SELECT `+purchaseColumns+` FROM `+purchaseFrom+`
		  WHERE cp.content_id = $1 AND cp.buyer_id = $2 AND cp.status = ANY($3)
		  ORDER BY cp.created_at DESC LIMIT 1`,
		contentID, buyerID, models.ActivePurchaseStatuses))
	return pu, mapErr("find active purchase", err)
}

// ListPurchases returns one page of purchases and the total match count
func (p *Postgres) ListPurchases(ctx context.Context, f PurchaseFilter) ([]models.Purchase, int, error) {
	var (
		conds  []string
		args   []any
		argNum = 1
	)
	if f.BuyerID != nil {
		conds = append(conds, fmt.Sprintf("cp.buyer_id = $%d", argNum))
		args = append(args, *f.BuyerID)
		argNum++
	}
	if f.CreatorID != nil {
		conds = append(conds, fmt.Sprintf("cp.creator_id = $%d", argNum))
		args = append(args, *f.CreatorID)
		argNum++
	}
	if len(f.Statuses) > 0 {
		conds = append(conds, fmt.Sprintf("cp.status = ANY($%d)", argNum))
		args = append(args, f.Statuses)
		argNum++
	}
	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := p.db.QueryRow(ctx,
		`SELECT COUNT(1) FROM content_purchases cp `+where, args...).Scan(&total); err != nil {
		return nil, 0, mapErr("count purchases", err)
	}

	limit := clampLimit(f.Limit, 20, 100)
	args = append(args, limit, f.Offset)
	rows, err := p.db.Query(ctx, fmt.Sprintf(
		`SELECT `+purchaseColumns+` FROM `+purchaseFrom+` %s
		  ORDER BY cp.created_at DESC LIMIT $%d OFFSET $%d`, where, argNum, argNum+1), args...)
	if err != nil {
		return nil, 0, mapErr("list purchases", err)
	}
	defer rows.Close()

	items := make([]models.Purchase, 0, limit)
	for rows.Next() {
		pu, err := scanPurchase(rows)
		if err != nil {
			return nil, 0, mapErr("scan purchase", err)
		}
		items = append(items, *pu)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, mapErr("iterate purchases", err)
	}
	return items, total, nil
}

// TransitionPurchase moves a purchase to change.To only when its current
// status is one of change.From. ErrNotFound means the row is missing or was
// already moved by someone else.
func (p *Postgres) TransitionPurchase(ctx context.Context, id uuid.UUID, change models.StatusChange) (*models.Purchase, error) {
	var updatedID uuid.UUID
	err := p.db.QueryRow(ctx,
		`UPDATE content_purchases
		    SET status       = $3,
		        admin_note   = COALESCE($4, admin_note),
		        confirmed_by = COALESCE($5, confirmed_by),
		        payment_key  = COALESCE($6, payment_key),
		        confirmed_at = COALESCE($7, confirmed_at),
		        refunded_at  = COALESCE($8, refunded_at),
		        updated_at   = now()
		  WHERE id = $1 AND status = ANY($2)
		 RETURNING id`,
		id, change.From, change.To, change.AdminNote, change.ActorID, change.PaymentKey,
		change.ConfirmedAt, change.RefundedAt).Scan(&updatedID)
	if err != nil {
		return nil, mapErr("transition purchase", err)
	}
	return p.GetPurchase(ctx, updatedID)
}

// ListStalePurchases returns purchases stuck in status since before
func (p *Postgres) ListStalePurchases(ctx context.Context, status string, before time.Time, limit int) ([]models.Purchase, error) {
	rows, err := p.db.Query(ctx,
		`SELECT `+purchaseColumns+` FROM `+purchaseFrom+`
		  WHERE cp.status = $1 AND cp.created_at < $2
		  ORDER BY cp.created_at LIMIT $3`, status, before, clampLimit(limit, 100, 1000))
	if err != nil {
		return nil, mapErr("list stale purchases", err)
	}
	defer rows.Close()

	var items []models.Purchase
	for rows.Next() {
		pu, err := scanPurchase(rows)
		if err != nil {
			return nil, mapErr("scan purchase", err)
		}
		items = append(items, *pu)
	}
	return items, mapErr("iterate stale purchases", rows.Err())
}

const balanceColumns = `creator_id, available_amount, pending_amount, total_earned, total_withdrawn, updated_at`

func scanBalance(row pgx.Row) (*models.CreatorBalance, error) {
	var b models.CreatorBalance
	if err := row.Scan(&b.CreatorID, &b.Available, &b.Pending, &b.TotalEarned, &b.TotalWithdrawn, &b.UpdatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

// GetBalance loads a creator balance
func (p *Postgres) GetBalance(ctx context.Context, creatorID uuid.UUID) (*models.CreatorBalance, error) {
	b, err := scanBalance(p.db.QueryRow(ctx,
		`SELECT `+balanceColumns+` FROM creator_balances WHERE creator_id = $1`, creatorID))
	return b, mapErr("get balance", err)
}

// LockBalance creates the balance row when missing and locks it until the
// surrounding transaction ends.
func (p *Postgres) LockBalance(ctx context.Context, creatorID uuid.UUID) (*models.CreatorBalance, error) {
	if _, err := p.db.Exec(ctx,
		`INSERT INTO creator_balances (creator_id) VALUES ($1) ON CONFLICT (creator_id) DO NOTHING`,
		creatorID); err != nil {
		return nil, mapErr("ensure balance", err)
	}
	b, err := scanBalance(p.db.QueryRow(ctx,
		`SELECT `+balanceColumns+` FROM creator_balances WHERE creator_id = $1 FOR UPDATE`, creatorID))
	return b, mapErr("lock balance", err)
}

// ApplyBalanceDelta adds d to a creator balance, creating the row when missing
func (p *Postgres) ApplyBalanceDelta(ctx context.Context, creatorID uuid.UUID, d models.BalanceDelta) (*models.CreatorBalance, error) {
	b, err := scanBalance(p.db.QueryRow(ctx,
		`INSERT INTO creator_balances (creator_id, available_amount, pending_amount, total_earned, total_withdrawn, updated_at)
		 VALUES ($1, $2, $3, $4, $5, now())
		 ON CONFLICT (creator_id) DO UPDATE
		   SET available_amount = creator_balances.available_amount + EXCLUDED.available_amount,
		       pending_amount   = creator_balances.pending_amount + EXCLUDED.pending_amount,
		       total_earned     = creator_balances.total_earned + EXCLUDED.total_earned,
		       total_withdrawn  = creator_balances.total_withdrawn + EXCLUDED.total_withdrawn,
		       updated_at       = now()
		 RETURNING `+balanceColumns,
		creatorID, d.Available, d.Pending, d.TotalEarned, d.TotalWithdrawn))
	return b, mapErr("apply balance delta", err)
}

const payoutColumns = `id, creator_id, amount, bank_name, account_number, account_holder, status,
	admin_note, processed_by, processed_at, created_at`

func scanPayout(row pgx.Row) (*models.PayoutRequest, error) {
	var pr models.PayoutRequest
	err := row.Scan(&pr.ID, &pr.CreatorID, &pr.Amount, &pr.BankName, &pr.AccountNumber, &pr.AccountHolder,
		&pr.Status, &pr.AdminNote, &pr.ProcessedBy, &pr.ProcessedAt, &pr.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &pr, nil
}

// CreatePayout inserts a pending payout request. A second pending request
// for the same creator yields ErrConflict.
func (p *Postgres) CreatePayout(ctx context.Context, pr *models.PayoutRequest) error {
	if pr.ID == uuid.Nil {
		pr.ID = uuid.New()
	}
	pr.CreatedAt = time.Now().UTC()
	if pr.Status == "" {
		pr.Status = models.PayoutPending
	}
	_, err := p.db.Exec(ctx,
		`INSERT INTO payout_requests (id, creator_id, amount, bank_name, account_number, account_holder, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		pr.ID, pr.CreatorID, pr.Amount, pr.BankName, pr.AccountNumber, pr.AccountHolder, pr.Status, pr.CreatedAt)
	return mapErr("create payout", err)
}

// GetPayout loads a payout request
func (p *Postgres) GetPayout(ctx context.Context, id uuid.UUID) (*models.PayoutRequest, error) {
	pr, err := scanPayout(p.db.QueryRow(ctx,
		`SELECT `+payoutColumns+` FROM payout_requests WHERE id = $1`, id))
	return pr, mapErr("get payout", err)
}

// GetPendingPayout loads the pending payout request of a creator
func (p *Postgres) GetPendingPayout(ctx context.Context, creatorID uuid.UUID) (*models.PayoutRequest, error) {
	pr, err := scanPayout(p.db.QueryRow(ctx,
		`SELECT `+payoutColumns+` FROM payout_requests WHERE creator_id = $1 AND status = 'pending'`, creatorID))
	return pr, mapErr("get pending payout", err)
}

// ListPayouts returns one page of payout requests and the total match count
func (p *Postgres) ListPayouts(ctx context.Context, f PayoutFilter) ([]models.PayoutRequest, int, error) {
	var (
		conds  []string
		args   []any
		argNum = 1
	)
	if f.CreatorID != nil {
		conds = append(conds, fmt.Sprintf("creator_id = $%d", argNum))
		args = append(args, *f.CreatorID)
		argNum++
	}
	if f.Status != "" {
		conds = append(conds, fmt.Sprintf("status = $%d", argNum))
		args = append(args, f.Status)
		argNum++
	}
	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := p.db.QueryRow(ctx, `SELECT COUNT(1) FROM payout_requests `+where, args...).Scan(&total); err != nil {
		return nil, 0, mapErr("count payouts", err)
	}

	limit := clampLimit(f.Limit, 20, 100)
	args = append(args, limit, f.Offset)
	rows, err := p.db.Query(ctx, fmt.Sprintf(
		`SELECT `+payoutColumns+` FROM payout_requests %s
		  ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, where, argNum, argNum+1), args...)
	if err != nil {
		return nil, 0, mapErr("list payouts", err)
	}
	defer rows.Close()

	items := make([]models.PayoutRequest, 0, limit)
	for rows.Next() {
		pr, err := scanPayout(rows)
		if err != nil {
			return nil, 0, mapErr("scan payout", err)
		}
		items = append(items, *pr)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, mapErr("iterate payouts", err)
	}
	return items, total, nil
}

// DecidePayout moves a pending payout to approved or rejected
func (p *Postgres) DecidePayout(ctx context.Context, id uuid.UUID, status string, note *string, actorID uuid.UUID) (*models.PayoutRequest, error) {
	pr, err := scanPayout(p.db.QueryRow(ctx,
		`UPDATE payout_requests
		    SET status = $2, admin_note = COALESCE($3, admin_note), processed_by = $4, processed_at = now()
		  WHERE id = $1 AND status = 'pending'
		 RETURNING `+payoutColumns,
		id, status, note, actorID))
	return pr, mapErr("decide payout", err)
}

// PaymentEventExists reports whether a webhook delivery id was already processed
func (p *Postgres) PaymentEventExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := p.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM payment_events WHERE id = $1)`, id).Scan(&exists)
	return exists, mapErr("payment event exists", err)
}

// RecordPaymentEvent stores a webhook delivery id. It returns false when the
// id was already recorded.
func (p *Postgres) RecordPaymentEvent(ctx context.Context, e *models.PaymentEvent) (bool, error) {
	var payload any
	if len(e.Payload) > 0 {
		payload = string(e.Payload)
	}
	tag, err := p.db.Exec(ctx,
		`INSERT INTO payment_events (id, provider, event_type, payload, received_at)
		 VALUES ($1, $2, $3, $4::jsonb, now())
		 ON CONFLICT (id) DO NOTHING`,
		e.ID, e.Provider, e.EventType, payload)
	if err != nil {
		return false, mapErr("record payment event", err)
	}
	return tag.RowsAffected() == 1, nil
}

// MarketStats aggregates dashboard numbers
func (p *Postgres) MarketStats(ctx context.Context) (*models.MarketStats, error) {
	stats := &models.MarketStats{PurchasesByStatus: map[string]int64{}}

	rows, err := p.db.Query(ctx,
		`SELECT status, COUNT(1),
		        COALESCE(SUM(amount) FILTER (WHERE status = 'completed'), 0),
		        COALESCE(SUM(platform_fee) FILTER (WHERE status = 'completed'), 0)
		   FROM content_purchases GROUP BY status`)
	if err != nil {
		return nil, mapErr("purchase stats", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			status       string
			count, gross int64
			fees         int64
		)
		if err := rows.Scan(&status, &count, &gross, &fees); err != nil {
			return nil, mapErr("scan purchase stats", err)
		}
		stats.PurchasesByStatus[status] = count
		stats.GrossRevenue += gross
		stats.PlatformFees += fees
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr("iterate purchase stats", err)
	}

	err = p.db.QueryRow(ctx,
		`SELECT
		   (SELECT COALESCE(SUM(amount), 0) FROM payout_requests WHERE status = 'pending'),
		   (SELECT COUNT(1) FROM profiles),
		   (SELECT COUNT(1) FROM profiles WHERE role = 'creator'),
		   (SELECT COUNT(1) FROM contents)`).
		Scan(&stats.PendingPayoutTotal, &stats.UserCount, &stats.CreatorCount, &stats.ContentCount)
	if err != nil {
		return nil, mapErr("market stats", err)
	}
	return stats, nil
}
