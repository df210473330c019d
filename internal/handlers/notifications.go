package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"STUDYHUB_BACK-END/internal/dto"
	"STUDYHUB_BACK-END/internal/models"
	"STUDYHUB_BACK-END/internal/repository"
	"STUDYHUB_BACK-END/internal/service"
	"STUDYHUB_BACK-END/internal/utils"
)

// Realtime upgrades a request to the per-user notification stream
type Realtime interface {
	ServeWS(w http.ResponseWriter, r *http.Request, userID uuid.UUID)
}

// NotificationsHandler: HTTP endpoints (list/mark read/mark all read/stream)
type NotificationsHandler struct {
	store repository.NotificationStore
	hub   Realtime
}

func NewNotificationsHandler(store repository.NotificationStore, hub Realtime) *NotificationsHandler {
	return &NotificationsHandler{store: store, hub: hub}
}

// -----------------------------------------------------------------------------
// GET /api/notifications
// @Summary List notifications
// @Description List user notifications with filters and pagination.
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Param unread_only query bool false "true|false (default false)"
// @Param type query string false "filter by type"
// @Param limit query int false "default 20 (max 100)"
// @Param offset query int false "default 0"
// @Success 200 {object} dto.NotificationsListResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/notifications [get]
func (h *NotificationsHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}
	limit, offset, ok := pagination(w, r, 20, 100)
	if !ok {
		return
	}

	q := r.URL.Query()
	filter := models.NotificationFilter{
		UnreadOnly: strings.EqualFold(q.Get("unread_only"), "true"),
		Type:       strings.TrimSpace(q.Get("type")),
		Limit:      limit,
		Offset:     offset,
	}
	if filter.Type != "" && !service.IsNotificationType(filter.Type) {
		utils.WriteErrorResponse(w, http.StatusBadRequest, "Invalid type", "invalid notification type")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	rows, total, unread, err := h.store.ListNotifications(ctx, claims.UserID, filter)
	if err != nil {
		log.WithField("user_id", claims.UserID).WithError(err).Error("list notifications")
		utils.WriteErrorResponse(w, http.StatusInternalServerError, "Database error", "Failed to fetch notifications")
		return
	}

	items := make([]dto.NotificationItem, 0, len(rows))
	for i := range rows {
		items = append(items, dto.NewNotificationItem(&rows[i]))
	}
	utils.WriteJSONResponse(w, http.StatusOK, dto.NotificationsListResponse{
		Notifications: items,
		Pagination: dto.NotificationsPagination{
			Total:       total,
			UnreadCount: unread,
			Limit:       limit,
			Offset:      offset,
		},
	})
}

// -----------------------------------------------------------------------------
// POST /api/notifications/{id}/read  (mark one as read)
// @Summary Mark a notification as read
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Param id path string true "Notification ID"
// @Success 200 {object} dto.MessageResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/notifications/{id}/read [post]
func (h *NotificationsHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}
	nID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// only the owner's unread rows are updated
	n, err := h.store.MarkNotificationRead(ctx, nID, claims.UserID)
	if err != nil {
		log.WithFields(log.Fields{"notification_id": nID, "user_id": claims.UserID}).
			WithError(err).Error("mark notification read")
		utils.WriteErrorResponse(w, http.StatusInternalServerError, "Database error", "Failed to update notification")
		return
	}

	if n == 0 {
		// exists but belongs to another user or is already read
		if exists, err := h.store.NotificationExists(ctx, nID); err == nil && exists {
			utils.WriteErrorResponse(w, http.StatusForbidden, "Forbidden",
				"Notification not found or already marked as read")
		} else {
			utils.WriteErrorResponse(w, http.StatusNotFound, "Not Found", "Notification not found")
		}
		return
	}

	utils.WriteJSONResponse(w, http.StatusOK, dto.MessageResponse{Message: "Notification marked as read"})
}

// -----------------------------------------------------------------------------
// POST /api/notifications/read-all
// @Summary Mark all notifications as read
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.MarkAllReadResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/notifications/read-all [post]
func (h *NotificationsHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	updated, err := h.store.MarkAllNotificationsRead(ctx, claims.UserID)
	if err != nil {
		log.WithField("user_id", claims.UserID).WithError(err).Error("mark all notifications read")
		utils.WriteErrorResponse(w, http.StatusInternalServerError, "Database error", "Failed to update notifications")
		return
	}

	utils.WriteJSONResponse(w, http.StatusOK, dto.MarkAllReadResponse{
		Message:      "All notifications marked as read",
		UpdatedCount: updated,
	})
}

// -----------------------------------------------------------------------------
// GET /api/notifications/ws?token=
// @Summary Notification stream
// @Description Upgrades to a websocket; new notifications are pushed as JSON.
// @Tags notifications
// @Param token query string false "JWT when the Authorization header cannot be set"
// @Success 101
// @Failure 401 {object} dto.ErrorResponse
// @Router /api/notifications/ws [get]
func (h *NotificationsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}
	h.hub.ServeWS(w, r, claims.UserID)
}
