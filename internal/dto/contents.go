package dto

import (
	"time"

	"STUDYHUB_BACK-END/internal/models"
)

// ContentRequest creates or replaces a content
type ContentRequest struct {
	Type         string  `json:"type" validate:"required,oneof=material video qna"`
	Title        string  `json:"title" validate:"required,min=1,max=200"`
	Description  *string `json:"description" validate:"omitempty,max=5000"`
	Price        int64   `json:"price" validate:"gte=0,lte=10000000"`
	FilePath     *string `json:"file_path" validate:"omitempty,max=1024"`
	ThumbnailURL *string `json:"thumbnail_url" validate:"omitempty,url,max=2048"`
	Subject      *string `json:"subject" validate:"omitempty,max=50"`
	IsPublished  bool    `json:"is_published"`
}

// ContentResponse represents a content; file_path only appears for callers with access
type ContentResponse struct {
	ID              string  `json:"id"`
	CreatorID       string  `json:"creator_id"`
	CreatorNickname string  `json:"creator_nickname"`
	Type            string  `json:"type"`
	Title           string  `json:"title"`
	Description     *string `json:"description"`
	Price           int64   `json:"price"`
	FilePath        *string `json:"file_path,omitempty"`
	ThumbnailURL    *string `json:"thumbnail_url"`
	Subject         *string `json:"subject"`
	IsPublished     bool    `json:"is_published"`
	ViewCount       int64   `json:"view_count"`
	Purchased       bool    `json:"purchased"`
	CreatedAt       string  `json:"created_at"`
	UpdatedAt       string  `json:"updated_at"`
}

// NewContentResponse converts a content row
func NewContentResponse(c *models.Content, hasAccess bool) ContentResponse {
	out := ContentResponse{
		ID:              c.ID.String(),
		CreatorID:       c.CreatorID.String(),
		CreatorNickname: c.CreatorNickname,
		Type:            c.Type,
		Title:           c.Title,
		Description:     c.Description,
		Price:           c.Price,
		ThumbnailURL:    c.ThumbnailURL,
		Subject:         c.Subject,
		IsPublished:     c.IsPublished,
		ViewCount:       c.ViewCount,
		CreatedAt:       c.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:       c.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if hasAccess {
		out.FilePath = c.FilePath
	}
	return out
}

// ContentListResponse lists contents with pagination
type ContentListResponse struct {
	Contents   []ContentResponse `json:"contents"`
	Pagination Pagination        `json:"pagination"`
}

// ContentDeleteResponse reports whether a content was removed or only unpublished
type ContentDeleteResponse struct {
	Message     string `json:"message"`
	Unpublished bool   `json:"unpublished"`
}

// ContentAccessResponse carries a time-limited download URL
type ContentAccessResponse struct {
	URL       string `json:"url"`
	ExpiresIn int    `json:"expires_in"`
}
