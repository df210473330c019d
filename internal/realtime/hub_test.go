package realtime

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"STUDYHUB_BACK-END/internal/models"
)

func dial(t *testing.T, srv *httptest.Server, origin string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	header := http.Header{}
	if origin != "" {
		header.Set("Origin", origin)
	}
	return websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), header)
}

func TestHub_PublishReachesEveryConnectionOfTheUser(t *testing.T) {
	hub := NewHub([]string{"http://localhost:3000"})
	defer hub.Close()
	user, other := uuid.New(), uuid.New()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := user
		if r.URL.Query().Get("who") == "other" {
			id = other
		}
		hub.ServeWS(w, r, id)
	}))
	defer srv.Close()

	first, _, err := dial(t, srv, "http://localhost:3000")
	require.NoError(t, err)
	defer first.Close()
	second, _, err := dial(t, srv, "")
	require.NoError(t, err)
	defer second.Close()

	require.Eventually(t, func() bool { return hub.Connections(user) == 2 }, 2*time.Second, 10*time.Millisecond)

	hub.Publish(other, &models.Notification{Title: "not for you"})
	hub.Publish(user, &models.Notification{ID: uuid.New(), UserID: user, Type: "purchase_completed", Title: "Purchase completed"})

	for _, conn := range []*websocket.Conn{first, second} {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var ev Event
		require.NoError(t, conn.ReadJSON(&ev))
		assert.Equal(t, "notification", ev.Type)
		require.NotNil(t, ev.Data)
		assert.Equal(t, "Purchase completed", ev.Data.Title)
	}
}

func TestHub_UnregistersOnDisconnect(t *testing.T) {
	hub := NewHub([]string{"*"})
	user := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, user)
	}))
	defer srv.Close()

	conn, _, err := dial(t, srv, "https://anywhere.example")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return hub.Connections(user) == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.Connections(user) == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_RejectsForeignOrigin(t *testing.T) {
	hub := NewHub([]string{"https://studyhub.kr"})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, uuid.New())
	}))
	defer srv.Close()

	_, resp, err := dial(t, srv, "https://evil.example")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
