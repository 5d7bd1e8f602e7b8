package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/stockroom-backend/pkg/db/models"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnDeliversEventsOverWebsocket(t *testing.T) {
	hub := NewHub(nil, nil)
	tenant := uuid.New()
	subscribed := make(chan struct{})

	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn := NewConn(ws, time.Second)
		hub.Subscribe(conn, tenant)
		close(subscribed)
		conn.Drain()
		hub.Unsubscribe(conn, tenant)
		_ = conn.Close()
	}))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer client.Close()

	select {
	case <-subscribed:
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber was not registered")
	}

	delivered := hub.Broadcast(context.Background(), tenant, UpdateEvent(models.Item{Name: "gloves", Available: 4}))
	require.Equal(t, 1, delivered)

	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	var event Event
	require.NoError(t, client.ReadJSON(&event))
	assert.Equal(t, EventUpdate, event.Event)
	assert.Equal(t, "gloves", event.Item)
	require.NotNil(t, event.Available)
	assert.Equal(t, 4, *event.Available)
}
