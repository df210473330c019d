package models

import (
	"time"

	"github.com/google/uuid"
)

// Question statuses
const (
	QuestionOpen     = "open"
	QuestionAnswered = "answered"
	QuestionClosed   = "closed"
)

// Question is asked by a user to a creator, optionally about one content
type Question struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	AskerID   uuid.UUID  `json:"asker_id" db:"asker_id"`
	CreatorID uuid.UUID  `json:"creator_id" db:"creator_id"`
	ContentID *uuid.UUID `json:"content_id" db:"content_id"`
	Title     string     `json:"title" db:"title"`
	Body      string     `json:"body" db:"body"`
	Status    string     `json:"status" db:"status"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}

// Answer belongs to a question
type Answer struct {
	ID         uuid.UUID `json:"id" db:"id"`
	QuestionID uuid.UUID `json:"question_id" db:"question_id"`
	AuthorID   uuid.UUID `json:"author_id" db:"author_id"`
	Body       string    `json:"body" db:"body"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// Subscription links a subscriber to a creator
type Subscription struct {
	ID           uuid.UUID `json:"id" db:"id"`
	SubscriberID uuid.UUID `json:"subscriber_id" db:"subscriber_id"`
	CreatorID    uuid.UUID `json:"creator_id" db:"creator_id"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`

	// Joined from profiles
	CreatorNickname string  `json:"creator_nickname" db:"creator_nickname"`
	CreatorAvatar   *string `json:"creator_avatar_url" db:"creator_avatar_url"`
}

// Notification represents a row of public.notifications
type Notification struct {
	ID        uuid.UUID      `json:"id" db:"id"`
	UserID    uuid.UUID      `json:"user_id" db:"user_id"`
	Type      string         `json:"type" db:"type"`
	Title     string         `json:"title" db:"title"`
	Message   *string        `json:"message" db:"message"`
	Data      map[string]any `json:"data" db:"data"`
	ActionURL *string        `json:"action_url" db:"action_url"`
	Read      bool           `json:"read" db:"read"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
}

// NotificationFilter narrows notification listings
type NotificationFilter struct {
	UnreadOnly bool
	Type       string
	Limit      int
	Offset     int
}

// Routine is a recurring study block in a user's planner
type Routine struct {
	ID          uuid.UUID `json:"id" db:"id"`
	UserID      uuid.UUID `json:"user_id" db:"user_id"`
	Title       string    `json:"title" db:"title"`
	Description *string   `json:"description" db:"description"`
	DaysOfWeek  []int32   `json:"days_of_week" db:"days_of_week"`
	StartTime   string    `json:"start_time" db:"start_time"`
	EndTime     string    `json:"end_time" db:"end_time"`
	IsActive    bool      `json:"is_active" db:"is_active"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}
