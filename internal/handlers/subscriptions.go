package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"STUDYHUB_BACK-END/internal/dto"
	"STUDYHUB_BACK-END/internal/repository"
	"STUDYHUB_BACK-END/internal/service"
	"STUDYHUB_BACK-END/internal/utils"
)

// SubscriptionsHandler lets users follow creators
type SubscriptionsHandler struct {
	subscriptions repository.SubscriptionStore
	profiles      repository.ProfileStore
	notifier      *service.Notifier
}

// NewSubscriptionsHandler creates a new SubscriptionsHandler instance
func NewSubscriptionsHandler(subscriptions repository.SubscriptionStore, profiles repository.ProfileStore, notifier *service.Notifier) *SubscriptionsHandler {
	return &SubscriptionsHandler{subscriptions: subscriptions, profiles: profiles, notifier: notifier}
}

// Subscribe follows a creator
// @Summary Follow a creator
// @Tags subscriptions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Creator ID"
// @Success 201 {object} dto.SubscriptionResponse
// @Failure 400 {object} dto.ErrorResponse "Cannot follow yourself"
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse "Creator not found"
// @Failure 409 {object} dto.ErrorResponse "Already following"
// @Router /api/creators/{id}/subscribe [post]
func (h *SubscriptionsHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}
	creatorID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	if creatorID == claims.UserID {
		utils.WriteErrorResponse(w, http.StatusBadRequest, "Bad Request", "cannot subscribe to yourself")
		return
	}

	creator, err := h.profiles.GetProfile(r.Context(), creatorID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if !creator.IsCreator() {
		utils.WriteErrorResponse(w, http.StatusNotFound, "Not Found", "creator not found")
		return
	}

	s, err := h.subscriptions.Subscribe(r.Context(), claims.UserID, creatorID)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			utils.WriteErrorResponse(w, http.StatusConflict, "Conflict", "already subscribed")
			return
		}
		writeServiceError(w, r, err)
		return
	}
	s.CreatorNickname = creator.Nickname
	s.CreatorAvatar = creator.AvatarURL

	h.notifier.NotifyQuietly(r.Context(), creatorID, service.Message{
		Type:      service.NotifyNewSubscriber,
		Title:     "You have a new subscriber",
		Data:      map[string]any{"subscriber_id": claims.UserID.String()},
		ActionURL: fmt.Sprintf("/profiles/%s", claims.UserID),
	})

	utils.WriteJSONResponse(w, http.StatusCreated, dto.NewSubscriptionResponse(s))
}

// Unsubscribe stops following a creator
// @Summary Unfollow a creator
// @Tags subscriptions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Creator ID"
// @Success 200 {object} dto.MessageResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse "Not subscribed"
// @Router /api/creators/{id}/subscribe [delete]
func (h *SubscriptionsHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}
	creatorID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	if err := h.subscriptions.Unsubscribe(r.Context(), claims.UserID, creatorID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, dto.MessageResponse{Message: "Unsubscribed"})
}

// List returns the creators the caller follows
// @Summary List followed creators
// @Tags subscriptions
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.SubscriptionListResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /api/subscriptions [get]
func (h *SubscriptionsHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}
	items, err := h.subscriptions.ListSubscriptions(r.Context(), claims.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]dto.SubscriptionResponse, 0, len(items))
	for i := range items {
		out = append(out, dto.NewSubscriptionResponse(&items[i]))
	}
	utils.WriteJSONResponse(w, http.StatusOK, dto.SubscriptionListResponse{Subscriptions: out})
}

// Count returns a creator's subscriber count
// @Summary Count subscribers
// @Tags subscriptions
// @Produce json
// @Param id path string true "Creator ID"
// @Success 200 {object} dto.SubscriberCountResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /api/creators/{id}/subscribers/count [get]
func (h *SubscriptionsHandler) Count(w http.ResponseWriter, r *http.Request) {
	creatorID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	n, err := h.subscriptions.CountSubscribers(r.Context(), creatorID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, dto.SubscriberCountResponse{CreatorID: creatorID.String(), Count: n})
}
