package ws

import (
	"context"
	"net/http"
	"strings"

	"vitalwatch/internal/auth"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handler upgrades HTTP requests to websocket sessions. Connections identify
// themselves with a bearer token (query param or Authorization header); the
// verified identity is attached to the session before registration.
type Handler struct {
	hub      *Hub
	verifier *auth.Verifier
	events   EventHandler
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

func NewHandler(hub *Hub, verifier *auth.Verifier, events EventHandler, logger *zap.Logger) *Handler {
	return &Handler{
		hub:      hub,
		verifier: verifier,
		events:   events,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
			token = strings.TrimPrefix(header, "Bearer ")
		}
	}
	if token == "" {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	claims, err := h.verifier.Parse(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Websocket upgrade failed", zap.Error(err))
		return
	}

	client := NewClient(uuid.New().String(), claims.UserID, claims.Role, h.hub, conn, h.events, h.logger)

	h.hub.Register(client)

	go client.WritePump()
	// 不用 r.Context()：升级后 handler 返回即取消，会波及确认链路的数据库写入
	go client.ReadPump(context.Background())
}
