package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	log "github.com/sirupsen/logrus"

	"STUDYHUB_BACK-END/internal/models"
)

// Subscribe records a subscription; ErrConflict when it already exists
func (p *Postgres) Subscribe(ctx context.Context, subscriberID, creatorID uuid.UUID) (*models.Subscription, error) {
	s := &models.Subscription{
		ID:           uuid.New(),
		SubscriberID: subscriberID,
		CreatorID:    creatorID,
		CreatedAt:    time.Now().UTC(),
	}
	_, err := p.db.Exec(ctx,
		`INSERT INTO user_subscriptions (id, subscriber_id, creator_id, created_at) VALUES ($1, $2, $3, $4)`,
		s.ID, s.SubscriberID, s.CreatorID, s.CreatedAt)
	if err != nil {
		return nil, mapErr("subscribe", err)
	}
	return s, nil
}

// Unsubscribe removes a subscription
func (p *Postgres) Unsubscribe(ctx context.Context, subscriberID, creatorID uuid.UUID) error {
	tag, err := p.db.Exec(ctx,
		`DELETE FROM user_subscriptions WHERE subscriber_id = $1 AND creator_id = $2`, subscriberID, creatorID)
	if err != nil {
		return mapErr("unsubscribe", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListSubscriptions returns the creators a user follows
func (p *Postgres) ListSubscriptions(ctx context.Context, subscriberID uuid.UUID) ([]models.Subscription, error) {
	rows, err := p.db.Query(ctx,
		`SELECT s.id, s.subscriber_id, s.creator_id, s.created_at, pr.nickname, pr.avatar_url
		   FROM user_subscriptions s JOIN profiles pr ON pr.id = s.creator_id
		  WHERE s.subscriber_id = $1
		  ORDER BY s.created_at DESC`, subscriberID)
	if err != nil {
		return nil, mapErr("list subscriptions", err)
	}
	defer rows.Close()

	items := []models.Subscription{}
	for rows.Next() {
		var s models.Subscription
		if err := rows.Scan(&s.ID, &s.SubscriberID, &s.CreatorID, &s.CreatedAt, &s.CreatorNickname, &s.CreatorAvatar); err != nil {
			return nil, mapErr("scan subscription", err)
		}
		items = append(items, s)
	}
	return items, mapErr("iterate subscriptions", rows.Err())
}

// ListSubscriberIDs returns every subscriber of a creator
func (p *Postgres) ListSubscriberIDs(ctx context.Context, creatorID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := p.db.Query(ctx,
		`SELECT subscriber_id FROM user_subscriptions WHERE creator_id = $1`, creatorID)
	if err != nil {
		return nil, mapErr("list subscribers", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	return ids, mapErr("list subscribers", err)
}

// CountSubscribers counts a creator's subscribers
func (p *Postgres) CountSubscribers(ctx context.Context, creatorID uuid.UUID) (int, error) {
	var n int
	err := p.db.QueryRow(ctx,
		`SELECT COUNT(1) FROM user_subscriptions WHERE creator_id = $1`, creatorID).Scan(&n)
	return n, mapErr("count subscribers", err)
}

const questionColumns = `id, asker_id, creator_id, content_id, title, body, status, created_at, updated_at`

func scanQuestion(row pgx.Row) (*models.Question, error) {
	var q models.Question
	if err := row.Scan(&q.ID, &q.AskerID, &q.CreatorID, &q.ContentID, &q.Title, &q.Body,
		&q.Status, &q.CreatedAt, &q.UpdatedAt); err != nil {
		return nil, err
	}
	return &q, nil
}

// CreateQuestion inserts an open question
func (p *Postgres) CreateQuestion(ctx context.Context, q *models.Question) error {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	now := time.Now().UTC()
	q.CreatedAt, q.UpdatedAt = now, now
	if q.Status == "" {
		q.Status = models.QuestionOpen
	}
	_, err := p.db.Exec(ctx,
		`INSERT INTO questions (`+questionColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)`,
		q.ID, q.AskerID, q.CreatorID, q.ContentID, q.Title, q.Body, q.Status, now)
	return mapErr("create question", err)
}

// GetQuestion loads a question
func (p *Postgres) GetQuestion(ctx context.Context, id uuid.UUID) (*models.Question, error) {
	q, err := scanQuestion(p.db.QueryRow(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE id = $1`, id))
	return q, mapErr("get question", err)
}

// ListQuestions returns questions asked by or addressed to a user
func (p *Postgres) ListQuestions(ctx context.Context, f QuestionFilter) ([]models.Question, error) {
	var (
		conds  []string
		args   []any
		argNum = 1
	)
	if f.AskerID != nil {
		conds = append(conds, fmt.Sprintf("asker_id = $%d", argNum))
		args = append(args, *f.AskerID)
		argNum++
	}
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
	args = append(args, clampLimit(f.Limit, 20, 100), f.Offset)

	rows, err := p.db.Query(ctx, fmt.Sprintf(
		`SELECT `+questionColumns+` FROM questions %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		where, argNum, argNum+1), args...)
	if err != nil {
		return nil, mapErr("list questions", err)
	}
	defer rows.Close()

	items := []models.Question{}
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, mapErr("scan question", err)
		}
		items = append(items, *q)
	}
	return items, mapErr("iterate questions", rows.Err())
}

// SetQuestionStatus changes a question's status
func (p *Postgres) SetQuestionStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := p.db.Exec(ctx,
		`UPDATE questions SET status = $2, updated_at = now() WHERE id = $1`, id, status)
	if err != nil {
		return mapErr("set question status", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateAnswer inserts an answer
func (p *Postgres) CreateAnswer(ctx context.Context, a *models.Answer) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.CreatedAt = time.Now().UTC()
	_, err := p.db.Exec(ctx,
		`INSERT INTO answers (id, question_id, author_id, body, created_at) VALUES ($1, $2, $3, $4, $5)`,
		a.ID, a.QuestionID, a.AuthorID, a.Body, a.CreatedAt)
	return mapErr("create answer", err)
}

// ListAnswers returns a question's answers oldest first
func (p *Postgres) ListAnswers(ctx context.Context, questionID uuid.UUID) ([]models.Answer, error) {
	rows, err := p.db.Query(ctx,
		`SELECT id, question_id, author_id, body, created_at FROM answers
		  WHERE question_id = $1 ORDER BY created_at`, questionID)
	if err != nil {
		return nil, mapErr("list answers", err)
	}
	defer rows.Close()

	items := []models.Answer{}
	for rows.Next() {
		var a models.Answer
		if err := rows.Scan(&a.ID, &a.QuestionID, &a.AuthorID, &a.Body, &a.CreatedAt); err != nil {
			return nil, mapErr("scan answer", err)
		}
		items = append(items, a)
	}
	return items, mapErr("iterate answers", rows.Err())
}

// CreateNotification inserts a notification; data is stored as jsonb
func (p *Postgres) CreateNotification(ctx context.Context, n *models.Notification) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	n.CreatedAt = time.Now().UTC()

	var dataJSON any
	if len(n.Data) > 0 {
		b, err := json.Marshal(n.Data)
		if err != nil {
			return fmt.Errorf("marshal notification data: %w", err)
		}
		dataJSON = string(b)
	}

	tag, err := p.db.Exec(ctx,
		`INSERT INTO notifications (id, user_id, type, title, message, data, action_url, read, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7, false, $8)`,
		n.ID, n.UserID, n.Type, n.Title, n.Message, dataJSON, n.ActionURL, n.CreatedAt)
	if err != nil {
		return mapErr("create notification", err)
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("create notification: unexpected rows affected %d", tag.RowsAffected())
	}
	return nil
}

// ListNotifications returns one page of a user's notifications plus the
// filtered total and the overall unread count
func (p *Postgres) ListNotifications(ctx context.Context, userID uuid.UUID, f models.NotificationFilter) ([]models.Notification, int, int, error) {
	var unread int
	if err := p.db.QueryRow(ctx,
		`SELECT COUNT(1) FROM notifications WHERE user_id = $1 AND read = false`, userID,
	).Scan(&unread); err != nil {
		return nil, 0, 0, mapErr("count unread notifications", err)
	}

	args := []any{userID}
	where := `WHERE user_id = $1`
	argNum := 2
	if f.UnreadOnly {
		where += " AND read = false"
	}
	if f.Type != "" {
		where += fmt.Sprintf(" AND type = $%d", argNum)
		args = append(args, f.Type)
		argNum++
	}

	var total int
	if err := p.db.QueryRow(ctx, `SELECT COUNT(1) FROM notifications `+where, args...).Scan(&total); err != nil {
		return nil, 0, 0, mapErr("count notifications", err)
	}

	limit := clampLimit(f.Limit, 20, 100)
	args = append(args, limit, f.Offset)
	rows, err := p.db.Query(ctx, fmt.Sprintf(
		`SELECT id, user_id, type, title, message, data, action_url, read, created_at
		   FROM notifications %s
		  ORDER BY created_at DESC
		  LIMIT $%d OFFSET $%d`, where, argNum, argNum+1), args...)
	if err != nil {
		return nil, 0, 0, mapErr("list notifications", err)
	}
	defer rows.Close()

	items := make([]models.Notification, 0, limit)
	for rows.Next() {
		var (
			n       models.Notification
			dataRaw []byte
		)
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &dataRaw,
			&n.ActionURL, &n.Read, &n.CreatedAt); err != nil {
			return nil, 0, 0, mapErr("scan notification", err)
		}
		if len(dataRaw) > 0 && string(dataRaw) != "null" {
			if err := json.Unmarshal(dataRaw, &n.Data); err != nil {
				// keep the row, drop the broken payload
				log.WithField("notification_id", n.ID).Warnf("unmarshal notification data: %v", err)
				n.Data = nil
			}
		}
		items = append(items, n)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, 0, mapErr("iterate notifications", err)
	}
	return items, total, unread, nil
}

// MarkNotificationRead marks one unread notification of the user as read
func (p *Postgres) MarkNotificationRead(ctx context.Context, id, userID uuid.UUID) (int64, error) {
	tag, err := p.db.Exec(ctx,
		`UPDATE notifications SET read = true WHERE id = $1 AND user_id = $2 AND read = false`, id, userID)
	if err != nil {
		return 0, mapErr("mark notification read", err)
	}
	return tag.RowsAffected(), nil
}

// NotificationExists reports whether a notification id exists for any user
func (p *Postgres) NotificationExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := p.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM notifications WHERE id = $1)`, id).Scan(&exists)
	return exists, mapErr("notification exists", err)
}

// MarkAllNotificationsRead marks every unread notification of the user as read
func (p *Postgres) MarkAllNotificationsRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	tag, err := p.db.Exec(ctx,
		`UPDATE notifications SET read = true WHERE user_id = $1 AND read = false`, userID)
	if err != nil {
		return 0, mapErr("mark all notifications read", err)
	}
	return tag.RowsAffected(), nil
}

const routineColumns = `id, user_id, title, description, days_of_week, start_time, end_time, is_active, created_at, updated_at`

func scanRoutine(row pgx.Row) (*models.Routine, error) {
	var r models.Routine
	if err := row.Scan(&r.ID, &r.UserID, &r.Title, &r.Description, &r.DaysOfWeek, &r.StartTime,
		&r.EndTime, &r.IsActive, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

// CreateRoutine inserts a routine
func (p *Postgres) CreateRoutine(ctx context.Context, r *models.Routine) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	now := time.Now().UTC()
	r.CreatedAt, r.UpdatedAt = now, now
	_, err := p.db.Exec(ctx,
		`INSERT INTO routines (`+routineColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)`,
		r.ID, r.UserID, r.Title, r.Description, r.DaysOfWeek, r.StartTime, r.EndTime, r.IsActive, now)
	return mapErr("create routine", err)
}

// GetRoutine loads a routine
func (p *Postgres) GetRoutine(ctx context.Context, id uuid.UUID) (*models.Routine, error) {
	r, err := scanRoutine(p.db.QueryRow(ctx, `SELECT `+routineColumns+` FROM routines WHERE id = $1`, id))
	return r, mapErr("get routine", err)
}

// ListRoutines returns a user's routines ordered by start time
func (p *Postgres) ListRoutines(ctx context.Context, userID uuid.UUID) ([]models.Routine, error) {
	rows, err := p.db.Query(ctx,
		`SELECT `+routineColumns+` FROM routines WHERE user_id = $1 ORDER BY start_time, created_at`, userID)
	if err != nil {
		return nil, mapErr("list routines", err)
	}
	defer rows.Close()

	items := []models.Routine{}
	for rows.Next() {
		r, err := scanRoutine(rows)
		if err != nil {
			return nil, mapErr("scan routine", err)
		}
		items = append(items, *r)
	}
	return items, mapErr("iterate routines", rows.Err())
}

// UpdateRoutine overwrites a routine owned by r.UserID
func (p *Postgres) UpdateRoutine(ctx context.Context, r *models.Routine) error {
	r.UpdatedAt = time.Now().UTC()
	tag, err := p.db.Exec(ctx,
		`UPDATE routines
		    SET title = $3, description = $4, days_of_week = $5, start_time = $6, end_time = $7,
		        is_active = $8, updated_at = $9
		  WHERE id = $1 AND user_id = $2`,
		r.ID, r.UserID, r.Title, r.Description, r.DaysOfWeek, r.StartTime, r.EndTime, r.IsActive, r.UpdatedAt)
	if err != nil {
		return mapErr("update routine", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteRoutine removes a routine owned by userID
func (p *Postgres) DeleteRoutine(ctx context.Context, id, userID uuid.UUID) error {
	tag, err := p.db.Exec(ctx, `DELETE FROM routines WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return mapErr("delete routine", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
