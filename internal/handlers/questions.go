package handlers

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"STUDYHUB_BACK-END/internal/dto"
	"STUDYHUB_BACK-END/internal/models"
	"STUDYHUB_BACK-END/internal/repository"
	"STUDYHUB_BACK-END/internal/service"
	"STUDYHUB_BACK-END/internal/utils"
)

// QuestionsHandler serves the question and answer board between users and creators
type QuestionsHandler struct {
	questions repository.QuestionStore
	creators  repository.CreatorStore
	contents  repository.ContentStore
	notifier  *service.Notifier
}

// NewQuestionsHandler creates a new QuestionsHandler instance
func NewQuestionsHandler(
	questions repository.QuestionStore,
	creators repository.CreatorStore,
	contents repository.ContentStore,
	notifier *service.Notifier,
) *QuestionsHandler {
	return &QuestionsHandler{questions: questions, creators: creators, contents: contents, notifier: notifier}
}

// Create asks a creator a question
// @Summary Ask a question
// @Tags questions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.QuestionCreateRequest true "Question"
// @Success 201 {object} dto.QuestionResponse
// @Failure 400 {object} dto.ErrorResponse "Creator does not accept questions"
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse "Creator or content not found"
// @Router /api/questions [post]
func (h *QuestionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req dto.QuestionCreateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	creatorID, err := uuid.Parse(req.CreatorID)
	if err != nil {
		utils.WriteErrorResponse(w, http.StatusBadRequest, "Invalid request body", "creator_id must be a valid UUID")
		return
	}
	if creatorID == claims.UserID {
		utils.WriteErrorResponse(w, http.StatusBadRequest, "Bad Request", "cannot ask yourself a question")
		return
	}

	settings, err := h.creators.GetCreatorSettings(r.Context(), creatorID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if !settings.AcceptsQuestions {
		utils.WriteErrorResponse(w, http.StatusBadRequest, "Bad Request", "creator does not accept questions")
		return
	}

	q := &models.Question{
		AskerID:   claims.UserID,
		CreatorID: creatorID,
		Title:     req.Title,
		Body:      req.Body,
		Status:    models.QuestionOpen,
	}
	if req.ContentID != nil {
		contentID, err := uuid.Parse(*req.ContentID)
		if err != nil {
			utils.WriteErrorResponse(w, http.StatusBadRequest, "Invalid request body", "content_id must be a valid UUID")
			return
		}
		c, err := h.contents.GetContent(r.Context(), contentID)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		if c.CreatorID != creatorID {
			utils.WriteErrorResponse(w, http.StatusBadRequest, "Bad Request", "content does not belong to this creator")
			return
		}
		q.ContentID = &contentID
	}

	if err := h.questions.CreateQuestion(r.Context(), q); err != nil {
		writeServiceError(w, r, err)
		return
	}

	h.notifier.NotifyQuietly(r.Context(), creatorID, service.Message{
		Type:      service.NotifyQuestionReceived,
		Title:     "New question received",
		Message:   q.Title,
		Data:      map[string]any{"question_id": q.ID.String()},
		ActionURL: fmt.Sprintf("/questions/%s", q.ID),
	})

	utils.WriteJSONResponse(w, http.StatusCreated, dto.NewQuestionResponse(q, nil))
}

// List returns questions the caller asked or received
// @Summary List questions
// @Tags questions
// @Produce json
// @Security BearerAuth
// @Param role query string false "asked (default) | received"
// @Param status query string false "open|answered|closed"
// @Param limit query int false "default 20 (max 100)"
// @Param offset query int false "default 0"
// @Success 200 {object} dto.QuestionListResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /api/questions [get]
func (h *QuestionsHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}
	limit, offset, ok := pagination(w, r, 20, 100)
	if !ok {
		return
	}

	q := r.URL.Query()
	filter := repository.QuestionFilter{Limit: limit, Offset: offset}
	switch q.Get("role") {
	case "", "asked":
		filter.AskerID = &claims.UserID
	case "received":
		filter.CreatorID = &claims.UserID
	default:
		utils.WriteErrorResponse(w, http.StatusBadRequest, "Invalid role", "role must be asked or received")
		return
	}
	switch status := q.Get("status"); status {
	case "", models.QuestionOpen, models.QuestionAnswered, models.QuestionClosed:
		filter.Status = status
	default:
		utils.WriteErrorResponse(w, http.StatusBadRequest, "Invalid status", "status must be open, answered or closed")
		return
	}

	items, err := h.questions.ListQuestions(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	out := make([]dto.QuestionResponse, 0, len(items))
	for i := range items {
		out = append(out, dto.NewQuestionResponse(&items[i], nil))
	}
	utils.WriteJSONResponse(w, http.StatusOK, dto.QuestionListResponse{Questions: out})
}

// Get returns a question with its answers
// @Summary Get a question
// @Tags questions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Question ID"
// @Success 200 {object} dto.QuestionResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/questions/{id} [get]
func (h *QuestionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}
	q, ok := h.visibleQuestion(w, r, claims.UserID, claims.IsAdmin())
	if !ok {
		return
	}

	answers, err := h.questions.ListAnswers(r.Context(), q.ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, dto.NewQuestionResponse(q, answers))
}

// Answer replies to a question as its creator
// @Summary Answer a question
// @Tags questions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Question ID"
// @Param request body dto.AnswerCreateRequest true "Answer"
// @Success 201 {object} dto.AnswerResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse "Question is closed"
// @Router /api/questions/{id}/answers [post]
func (h *QuestionsHandler) Answer(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}
	q, ok := h.visibleQuestion(w, r, claims.UserID, claims.IsAdmin())
	if !ok {
		return
	}
	if q.CreatorID != claims.UserID && !claims.IsAdmin() {
		utils.WriteErrorResponse(w, http.StatusForbidden, "Forbidden", "only the creator can answer")
		return
	}
	if q.Status == models.QuestionClosed {
		utils.WriteErrorResponse(w, http.StatusConflict, "Conflict", "question is closed")
		return
	}
	var req dto.AnswerCreateRequest
	if !decodeBody(w, r, &req) {
		return
	}

	a := &models.Answer{QuestionID: q.ID, AuthorID: claims.UserID, Body: req.Body}
	if err := h.questions.CreateAnswer(r.Context(), a); err != nil {
		writeServiceError(w, r, err)
		return
	}
	if q.Status != models.QuestionAnswered {
		if err := h.questions.SetQuestionStatus(r.Context(), q.ID, models.QuestionAnswered); err != nil {
			writeServiceError(w, r, err)
			return
		}
	}

	h.notifier.NotifyQuietly(r.Context(), q.AskerID, service.Message{
		Type:      service.NotifyQuestionAnswered,
		Title:     "Your question was answered",
		Message:   q.Title,
		Data:      map[string]any{"question_id": q.ID.String()},
		ActionURL: fmt.Sprintf("/questions/%s", q.ID),
	})

	utils.WriteJSONResponse(w, http.StatusCreated, dto.NewAnswerResponse(a))
}

// Close closes a question as its asker
// @Summary Close a question
// @Tags questions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Question ID"
// @Success 200 {object} dto.QuestionResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/questions/{id}/close [post]
func (h *QuestionsHandler) Close(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}
	q, ok := h.visibleQuestion(w, r, claims.UserID, claims.IsAdmin())
	if !ok {
		return
	}
	if q.AskerID != claims.UserID {
		utils.WriteErrorResponse(w, http.StatusForbidden, "Forbidden", "only the asker can close a question")
		return
	}

	if q.Status != models.QuestionClosed {
		if err := h.questions.SetQuestionStatus(r.Context(), q.ID, models.QuestionClosed); err != nil {
			writeServiceError(w, r, err)
			return
		}
		q.Status = models.QuestionClosed
	}
	utils.WriteJSONResponse(w, http.StatusOK, dto.NewQuestionResponse(q, nil))
}

// visibleQuestion loads the {id} question if the caller is its asker,
// its creator or an admin
func (h *QuestionsHandler) visibleQuestion(w http.ResponseWriter, r *http.Request, userID uuid.UUID, isAdmin bool) (*models.Question, bool) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return nil, false
	}
	q, err := h.questions.GetQuestion(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return nil, false
	}
	if q.AskerID != userID && q.CreatorID != userID && !isAdmin {
		utils.WriteErrorResponse(w, http.StatusForbidden, "Forbidden", "not a participant of this question")
		return nil, false
	}
	return q, true
}
