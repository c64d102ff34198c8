package realtime

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	myMiddleware "github.com/SAPAAAA/Roundtable-sub001/internal/middleware"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all for now (Dev mode)
	},
}

type Handler struct {
	registry *Registry
	log      *logrus.Logger
}

func NewHandler(registry *Registry, log *logrus.Logger) *Handler {
	return &Handler{registry: registry, log: log}
}

// ServeWs upgrades the request to a websocket and registers the resulting
// connection under the authenticated user. Identity comes from the auth
// middleware; an unauthenticated upgrade attempt is rejected before the
// handshake completes.
func (h *Handler) ServeWs(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(myMiddleware.UserKey).(int)
	username, ok2 := r.Context().Value(myMiddleware.UsernameKey).(string)
	if !ok || !ok2 {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	client := NewClient(h.registry, conn, userID, username, h.log)
	h.registry.Register(client)

	go client.WritePump()
	go client.ReadPump()
}
