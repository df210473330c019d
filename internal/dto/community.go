package dto

import (
	"time"

	"STUDYHUB_BACK-END/internal/models"
)

// SubscriptionResponse represents a followed creator
type SubscriptionResponse struct {
	ID               string  `json:"id"`
	CreatorID        string  `json:"creator_id"`
	CreatorNickname  string  `json:"creator_nickname"`
	CreatorAvatarURL *string `json:"creator_avatar_url"`
	CreatedAt        string  `json:"created_at"`
}

// NewSubscriptionResponse converts a subscription row
func NewSubscriptionResponse(s *models.Subscription) SubscriptionResponse {
	return SubscriptionResponse{
		ID:               s.ID.String(),
		CreatorID:        s.CreatorID.String(),
		CreatorNickname:  s.CreatorNickname,
		CreatorAvatarURL: s.CreatorAvatar,
		CreatedAt:        s.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// SubscriptionListResponse lists the creators the caller follows
type SubscriptionListResponse struct {
	Subscriptions []SubscriptionResponse `json:"subscriptions"`
}

// SubscriberCountResponse reports a creator's follower count
type SubscriberCountResponse struct {
	CreatorID string `json:"creator_id"`
	Count     int    `json:"count"`
}

// QuestionCreateRequest asks a creator a question
type QuestionCreateRequest struct {
	CreatorID string  `json:"creator_id" validate:"required,uuid"`
	ContentID *string `json:"content_id" validate:"omitempty,uuid"`
	Title     string  `json:"title" validate:"required,min=1,max=200"`
	Body      string  `json:"body" validate:"required,min=1,max=5000"`
}

// AnswerCreateRequest answers a question
type AnswerCreateRequest struct {
	Body string `json:"body" validate:"required,min=1,max=5000"`
}

// AnswerResponse represents an answer
type AnswerResponse struct {
	ID         string `json:"id"`
	QuestionID string `json:"question_id"`
	AuthorID   string `json:"author_id"`
	Body       string `json:"body"`
	CreatedAt  string `json:"created_at"`
}

// NewAnswerResponse converts an answer row
func NewAnswerResponse(a *models.Answer) AnswerResponse {
	return AnswerResponse{
		ID:         a.ID.String(),
		QuestionID: a.QuestionID.String(),
		AuthorID:   a.AuthorID.String(),
		Body:       a.Body,
		CreatedAt:  a.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// QuestionResponse represents a question, with answers on the detail view
type QuestionResponse struct {
	ID        string           `json:"id"`
	AskerID   string           `json:"asker_id"`
	CreatorID string           `json:"creator_id"`
	ContentID *string          `json:"content_id"`
	Title     string           `json:"title"`
	Body      string           `json:"body"`
	Status    string           `json:"status"`
	Answers   []AnswerResponse `json:"answers,omitempty"`
	CreatedAt string           `json:"created_at"`
	UpdatedAt string           `json:"updated_at"`
}

// NewQuestionResponse converts a question row
func NewQuestionResponse(q *models.Question, answers []models.Answer) QuestionResponse {
	out := QuestionResponse{
		ID:        q.ID.String(),
		AskerID:   q.AskerID.String(),
		CreatorID: q.CreatorID.String(),
		Title:     q.Title,
		Body:      q.Body,
		Status:    q.Status,
		CreatedAt: q.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: q.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if q.ContentID != nil {
		s := q.ContentID.String()
		out.ContentID = &s
	}
	for i := range answers {
		out.Answers = append(out.Answers, NewAnswerResponse(&answers[i]))
	}
	return out
}

// QuestionListResponse lists questions
type QuestionListResponse struct {
	Questions []QuestionResponse `json:"questions"`
}

// RoutineRequest creates or replaces a study routine
type RoutineRequest struct {
	Title       string  `json:"title" validate:"required,min=1,max=100"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
	DaysOfWeek  []int32 `json:"days_of_week" validate:"required,min=1,max=7,unique,dive,gte=0,lte=6"`
	StartTime   string  `json:"start_time" validate:"required,hhmm"`
	EndTime     string  `json:"end_time" validate:"required,hhmm"`
	IsActive    *bool   `json:"is_active"`
}

// RoutineResponse represents a study routine
type RoutineResponse struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	DaysOfWeek  []int32 `json:"days_of_week"`
	StartTime   string  `json:"start_time"`
	EndTime     string  `json:"end_time"`
	IsActive    bool    `json:"is_active"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

// NewRoutineResponse converts a routine row
func NewRoutineResponse(r *models.Routine) RoutineResponse {
	return RoutineResponse{
		ID:          r.ID.String(),
		Title:       r.Title,
		Description: r.Description,
		DaysOfWeek:  r.DaysOfWeek,
		StartTime:   r.StartTime,
		EndTime:     r.EndTime,
		IsActive:    r.IsActive,
		CreatedAt:   r.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   r.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// RoutineListResponse lists the caller's routines
type RoutineListResponse struct {
	Routines []RoutineResponse `json:"routines"`
}
