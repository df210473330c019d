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

const contentColumns = `c.id, c.creator_id, c.type, c.title, c.description, c.price, c.file_path,
	c.thumbnail_url, c.subject, c.is_published, c.view_count, c.created_at, c.updated_at,
	COALESCE(pr.nickname, '')`

func scanContent(row pgx.Row) (*models.Content, error) {
	var c models.Content
	err := row.Scan(&c.ID, &c.CreatorID, &c.Type, &c.Title, &c.Description, &c.Price, &c.FilePath,
		&c.ThumbnailURL, &c.Subject, &c.IsPublished, &c.ViewCount, &c.CreatedAt, &c.UpdatedAt,
		&c.CreatorNickname)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateContent inserts a content row
func (p *Postgres) CreateContent(ctx context.Context, c *models.Content) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now

	_, err := p.db.Exec(ctx,
		`INSERT INTO contents (id, creator_id, type, title, description, price, file_path,
		                       thumbnail_url, subject, is_published, view_count, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 0, $11, $11)`,
		c.ID, c.CreatorID, c.Type, c.Title, c.Description, c.Price, c.FilePath,
		c.ThumbnailURL, c.Subject, c.IsPublished, now)
	return mapErr("create content", err)
}

// GetContent loads a content with its creator nickname
func (p *Postgres) GetContent(ctx context.Context, id uuid.UUID) (*models.Content, error) {
	c, err := scanContent(p.db.QueryRow(ctx,
		`SELECT `+contentColumns+`
		   FROM contents c LEFT JOIN profiles pr ON pr.id = c.creator_id
		  WHERE c.id = $1`, id))
	return c, mapErr("get content", err)
}

// ListContents returns one page of contents and the total match count
func (p *Postgres) ListContents(ctx context.Context, f models.ContentFilter) ([]models.Content, int, error) {
	var (
		conds  []string
		args   []any
		argNum = 1
	)
	add := func(cond string, v any) {
		conds = append(conds, fmt.Sprintf(cond, argNum))
		args = append(args, v)
		argNum++
	}

	if f.PublishedOnly {
		conds = append(conds, "c.is_published = true")
	}
	if f.Type != "" {
		add("c.type = $%d", f.Type)
	}
	if f.CreatorID != nil {
		add("c.creator_id = $%d", *f.CreatorID)
	}
	if f.Subject != "" {
		add("c.subject = $%d", f.Subject)
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		add("(c.title ILIKE $%[1]d OR c.description ILIKE $%[1]d)", "%"+q+"%")
	}

	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := p.db.QueryRow(ctx,
		`SELECT COUNT(1) FROM contents c `+where, args...).Scan(&total); err != nil {
		return nil, 0, mapErr("count contents", err)
	}

	limit := clampLimit(f.Limit, 20, 100)
	args = append(args, limit, f.Offset)
	rows, err := p.db.Query(ctx,
		fmt.Sprintf(`SELECT `+contentColumns+`
		   FROM contents c LEFT JOIN profiles pr ON pr.id = c.creator_id
		   %s
		  ORDER BY c.created_at DESC
		  LIMIT $%d OFFSET $%d`, where, argNum, argNum+1), args...)
	if err != nil {
		return nil, 0, mapErr("list contents", err)
	}
	defer rows.Close()

	items := make([]models.Content, 0, limit)
	for rows.Next() {
		c, err := scanContent(rows)
		if err != nil {
			return nil, 0, mapErr("scan content", err)
		}
		items = append(items, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, mapErr("iterate contents", err)
	}
	return items, total, nil
}

// UpdateContent overwrites the editable content fields
func (p *Postgres) UpdateContent(ctx context.Context, c *models.Content) error {
	c.UpdatedAt = time.Now().UTC()
	tag, err := p.db.Exec(ctx,
		`UPDATE contents
		    SET type = $2, title = $3, description = $4, price = $5, file_path = $6,
		        thumbnail_url = $7, subject = $8, is_published = $9, updated_at = $10
		  WHERE id = $1`,
		c.ID, c.Type, c.Title, c.Description, c.Price, c.FilePath,
		c.ThumbnailURL, c.Subject, c.IsPublished, c.UpdatedAt)
	if err != nil {
		return mapErr("update content", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteContent removes a content row
func (p *Postgres) DeleteContent(ctx context.Context, id uuid.UUID) error {
	tag, err := p.db.Exec(ctx, `DELETE FROM contents WHERE id = $1`, id)
	if err != nil {
		return mapErr("delete content", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementViewCount bumps a content's view counter
func (p *Postgres) IncrementViewCount(ctx context.Context, id uuid.UUID) error {
	_, err := p.db.Exec(ctx, `UPDATE contents SET view_count = view_count + 1 WHERE id = $1`, id)
	return mapErr("increment view count", err)
}

// CountPurchases counts purchase rows of any status for a content
func (p *Postgres) CountPurchases(ctx context.Context, contentID uuid.UUID) (int, error) {
	var n int
	err := p.db.QueryRow(ctx,
		`SELECT COUNT(1) FROM content_purchases WHERE content_id = $1`, contentID).Scan(&n)
	return n, mapErr("count purchases", err)
}
