package session

import (
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/inamate/maskstudio/internal/auth"
)

// Handler upgrades GET /ws/editor to a websocket editor connection. When auth
// is enabled the bearer token travels in the "token" query parameter, since
// browsers cannot set headers on websocket requests.
type Handler struct {
	hub            *Hub
	auth           *auth.Service
	originPatterns []string
}

func NewHandler(hub *Hub, authSvc *auth.Service, originPatterns []string) *Handler {
	return &Handler{hub: hub, auth: authSvc, originPatterns: originPatterns}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var userID string
	if h.auth != nil && h.auth.Enabled() {
		token := r.URL.Query().Get("token")
		if token == "" {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}
		var err error
		userID, err = h.auth.ValidateToken(token)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
	} else {
		userID = "anon-" + uuid.New().String()[:8]
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		slog.Error("websocket accept", "error", err)
		return
	}

	client := NewClient(h.hub, conn, userID, uuid.New().String())
	h.hub.Register(client)

	ctx := r.Context()
	go client.WritePump(ctx)
	client.ReadPump(ctx)
}
