package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/angelmondragon/stockroom-backend/internal/realtime"
	"github.com/angelmondragon/stockroom-backend/pkg/logger"
)

type liveHub interface {
	Subscribe(sub realtime.Subscriber, tenantID uuid.UUID)
	Unsubscribe(sub realtime.Subscriber, tenantID uuid.UUID) bool
}

// NewUpgrader accepts requests without an Origin header and those whose
// origin is listed. A "*" entry admits any origin.
func NewUpgrader(origins []string) *websocket.Upgrader {
	allowed := make(map[string]struct{}, len(origins))
	for _, origin := range origins {
		allowed[strings.TrimRight(strings.TrimSpace(origin), "/")] = struct{}{}
	}
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			if _, ok := allowed["*"]; ok {
				return true
			}
			_, ok := allowed[strings.TrimRight(origin, "/")]
			return ok
		},
	}
}

// LiveInventory upgrades the request and streams the caller tenant's stock
// events until the client disconnects.
func LiveInventory(hub liveHub, upgrader *websocket.Upgrader, writeTimeout time.Duration, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := callerIdentity(w, r, logg)
		if !ok {
			return
		}

		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade has already written the HTTP error.
			if logg != nil {
				logg.Warn(logg.WithField(r.Context(), "error", err.Error()), "live.upgrade_failed")
			}
			return
		}

		conn := realtime.NewConn(ws, writeTimeout)
		hub.Subscribe(conn, id.TenantID)
		if logg != nil {
			logg.Info(r.Context(), "live.subscribed")
		}

		conn.Drain()

		hub.Unsubscribe(conn, id.TenantID)
		_ = conn.Close()
		if logg != nil {
			logg.Info(r.Context(), "live.unsubscribed")
		}
	}
}
