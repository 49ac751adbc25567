package boardapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/BearBump/LoadBoard/internal/access"
	"github.com/BearBump/LoadBoard/internal/models"
	"github.com/BearBump/LoadBoard/internal/realtime"
	"github.com/gorilla/websocket"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsPingInterval = 30 * time.Second
	wsBuffer       = 32
)

// handleWS — живая лента: изменения грузов пользователя, его уведомления,
// водителям дополнительно движение открытого рынка.
func (a *API) handleWS(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("token")
	if raw == "" {
		raw = bearerToken(r)
	}
	id, err := a.auth.ParseToken(raw)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: errorInfo{
			Code: "unauthorized", Message: "invalid token",
		}})
		return
	}

	filters := []realtime.Filter{
		realtime.ParticipantLoads(id.UserID),
		realtime.RecipientNotifications(id.UserID),
	}
	if id.Role == models.RoleDriver {
		filters = append(filters, realtime.MarketLoads())
	}
	if access.Allowed(id.Role, access.OpViewAllLoads) {
		filters = append(filters, func(e realtime.Event) bool { return e.Kind == realtime.EventKindLoad })
	}

	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade сам ответил клиенту.
		return
	}

	sub, err := a.hub.Subscribe(wsBuffer, realtime.Any(filters...))
	if err != nil {
		_ = conn.Close()
		return
	}

	slog.Info("ws connected", "user_id", id.UserID, "role", id.Role)

	// Читатель нужен только чтобы заметить закрытие со стороны клиента.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
		sub.Cancel()
	}()

	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()
	defer func() {
		sub.Cancel()
		_ = conn.Close()
		slog.Info("ws disconnected", "user_id", id.UserID)
	}()

	for {
		select {
		case e, ok := <-sub.C():
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(e); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
