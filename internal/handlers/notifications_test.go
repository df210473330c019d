package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"STUDYHUB_BACK-END/internal/dto"
	"STUDYHUB_BACK-END/internal/models"
	"STUDYHUB_BACK-END/internal/service"
)

type fakeHub struct {
	served []uuid.UUID
}

func (f *fakeHub) ServeWS(w http.ResponseWriter, _ *http.Request, userID uuid.UUID) {
	f.served = append(f.served, userID)
	w.WriteHeader(http.StatusSwitchingProtocols)
}

func seedNotifications(t *testing.T, store *fakeNotifications, userID uuid.UUID) {
	t.Helper()
	n := service.NewNotifier(store, newFakeProfiles(), nil)
	for _, typ := range []string{service.NotifyPurchaseCompleted, service.NotifyNewContent, service.NotifyNewContent} {
		_, err := n.Notify(t.Context(), userID, service.Message{Type: typ, Title: "hello"})
		require.NoError(t, err)
	}
}

func TestNotifications_List(t *testing.T) {
	store := &fakeNotifications{}
	user := userClaims(uuid.New(), models.RoleUser)
	seedNotifications(t, store, user.UserID)
	seedNotifications(t, store, uuid.New())
	h := NewNotificationsHandler(store, &fakeHub{})

	rec := httptest.NewRecorder()
	h.ListNotifications(rec, newRequest(t, http.MethodGet, "/api/notifications?type=new_content&limit=1", nil, user, nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decodeJSON[dto.NotificationsListResponse](t, rec)
	assert.Len(t, resp.Notifications, 1)
	assert.Equal(t, 2, resp.Pagination.Total)
	assert.Equal(t, 3, resp.Pagination.UnreadCount)
	assert.Equal(t, 1, resp.Pagination.Limit)
}

func TestNotifications_ListRejectsBadInput(t *testing.T) {
	h := NewNotificationsHandler(&fakeNotifications{}, &fakeHub{})
	user := userClaims(uuid.New(), models.RoleUser)

	for _, target := range []string{
		"/api/notifications?type=trip_update",
		"/api/notifications?limit=0",
		"/api/notifications?limit=101",
		"/api/notifications?offset=-1",
	} {
		rec := httptest.NewRecorder()
		h.ListNotifications(rec, newRequest(t, http.MethodGet, target, nil, user, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestNotifications_MarkRead(t *testing.T) {
	store := &fakeNotifications{}
	owner := userClaims(uuid.New(), models.RoleUser)
	seedNotifications(t, store, owner.UserID)
	id := store.forUser(owner.UserID)[0].ID.String()
	h := NewNotificationsHandler(store, &fakeHub{})

	// someone else's notification
	rec := httptest.NewRecorder()
	h.MarkRead(rec, newRequest(t, http.MethodPost, "/x", nil, userClaims(uuid.New(), models.RoleUser), map[string]string{"id": id}))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	h.MarkRead(rec, newRequest(t, http.MethodPost, "/x", nil, owner, map[string]string{"id": id}))
	assert.Equal(t, http.StatusOK, rec.Code)

	// already read
	rec = httptest.NewRecorder()
	h.MarkRead(rec, newRequest(t, http.MethodPost, "/x", nil, owner, map[string]string{"id": id}))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	h.MarkRead(rec, newRequest(t, http.MethodPost, "/x", nil, owner, map[string]string{"id": uuid.NewString()}))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNotifications_MarkAllRead(t *testing.T) {
	store := &fakeNotifications{}
	owner := userClaims(uuid.New(), models.RoleUser)
	seedNotifications(t, store, owner.UserID)
	h := NewNotificationsHandler(store, &fakeHub{})

	rec := httptest.NewRecorder()
	h.MarkAllRead(rec, newRequest(t, http.MethodPost, "/x", nil, owner, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(3), decodeJSON[dto.MarkAllReadResponse](t, rec).UpdatedCount)

	rec = httptest.NewRecorder()
	h.MarkAllRead(rec, newRequest(t, http.MethodPost, "/x", nil, owner, nil))
	assert.Equal(t, int64(0), decodeJSON[dto.MarkAllReadResponse](t, rec).UpdatedCount)
}

func TestNotifications_Stream(t *testing.T) {
	hub := &fakeHub{}
	h := NewNotificationsHandler(&fakeNotifications{}, hub)
	user := userClaims(uuid.New(), models.RoleUser)

	rec := httptest.NewRecorder()
	h.Stream(rec, newRequest(t, http.MethodGet, "/api/notifications/ws", nil, nil, nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	h.Stream(rec, newRequest(t, http.MethodGet, "/api/notifications/ws", nil, user, nil))
	assert.Equal(t, []uuid.UUID{user.UserID}, hub.served)
}
