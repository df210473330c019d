package models

import (
	"time"

	"github.com/google/uuid"
)

// Content types
const (
	ContentMaterial = "material"
	ContentVideo    = "video"
	ContentQnA      = "qna"
)

// Content represents a study material, video or Q&A pack published by a creator
type Content struct {
	ID           uuid.UUID `json:"id" db:"id"`
	CreatorID    uuid.UUID `json:"creator_id" db:"creator_id"`
	Type         string    `json:"type" db:"type"`
	Title        string    `json:"title" db:"title"`
	Description  *string   `json:"description" db:"description"`
	Price        int64     `json:"price" db:"price"`
	FilePath     *string   `json:"file_path" db:"file_path"`
	ThumbnailURL *string   `json:"thumbnail_url" db:"thumbnail_url"`
	Subject      *string   `json:"subject" db:"subject"`
	IsPublished  bool      `json:"is_published" db:"is_published"`
	ViewCount    int64     `json:"view_count" db:"view_count"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`

	// Joined from profiles
	CreatorNickname string `json:"creator_nickname" db:"creator_nickname"`
}

// IsFree reports whether the content can be accessed without a purchase
func (c *Content) IsFree() bool {
	return c.Price == 0
}

// ContentFilter narrows content listings
type ContentFilter struct {
	Type          string
	CreatorID     *uuid.UUID
	Subject       string
	Query         string
	PublishedOnly bool
	Limit         int
	Offset        int
}
