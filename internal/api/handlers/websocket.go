package handlers

import (
	"net/http"

	"github.com/dom/quiz-engine/internal/api/middleware"
	"github.com/dom/quiz-engine/internal/logger"
	"github.com/dom/quiz-engine/internal/websocket"
	ws "github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = ws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WebSocketHandler struct {
	hub    *websocket.Hub
	tokens middleware.TokenValidator
}

func NewWebSocketHandler(hub *websocket.Hub, tokens middleware.TokenValidator) *WebSocketHandler {
	return &WebSocketHandler{
		hub:    hub,
		tokens: tokens,
	}
}

func (h *WebSocketHandler) Handle(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "Token required", http.StatusUnauthorized)
		return
	}

	userID, err := h.tokens.ValidateToken(token)
	if err != nil {
		http.Error(w, "Invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	client, err := websocket.NewClient(h.hub, conn, userID)
	if err != nil {
		logger.Error("Failed to create client", zap.Error(err))
		conn.Close()
		return
	}
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}
