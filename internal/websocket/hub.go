package websocket

import (
	"context"
	"sync"

	"github.com/dom/quiz-engine/internal/domain"
	"github.com/dom/quiz-engine/internal/engine"
	"github.com/dom/quiz-engine/internal/logger"
	"go.uber.org/zap"
)

// Submitter runs client actions. The executor reports rejections back to the
// socket itself, so the hub only logs failures.
type Submitter interface {
	Execute(ctx context.Context, action engine.Action) (engine.Outcome, error)
}

// SessionWriter maintains the socket -> user/game rows the engine reads.
type SessionWriter interface {
	Set(ctx context.Context, socketID string, userID int, gameID string) error
	Delete(ctx context.Context, socketID string) error
}

// Hub owns the connections of this process.
type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	stop       chan struct{}
	done       chan struct{} // closed when Run() exits
	stopped    bool
	exec       Submitter
	sessions   SessionWriter
	pending    sync.WaitGroup
	mu         sync.RWMutex
}

func NewHub(exec Submitter, sessions SessionWriter) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
		exec:       exec,
		sessions:   sessions,
	}
}

// SetSubmitter binds the executor when it is built after the hub. Call
// before Run.
func (h *Hub) SetSubmitter(exec Submitter) {
	h.exec = exec
}

func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.stop:
			h.mu.Lock()
			h.stopped = true
			closing := make([]*Client, 0, len(h.clients))
			for _, client := range h.clients {
				client.Close()
				closing = append(closing, client)
			}
			h.clients = make(map[string]*Client)
			h.pending.Add(len(closing))
			h.mu.Unlock()

			// Unregister is a no-op from here on, so the hub reports the
			// departures itself.
			for _, client := range closing {
				go h.disconnect(client)
			}

			h.pending.Wait()
			return

		case client := <-h.register:
			h.mu.Lock()
			if !h.stopped {
				h.clients[client.id] = client
			}
			h.mu.Unlock()
			logger.Debug("Client connected", zap.String("socketId", client.id), zap.Int("userId", client.userID))

		case client := <-h.unregister:
			h.mu.Lock()
			_, ok := h.clients[client.id]
			if ok {
				delete(h.clients, client.id)
				client.Close()
				h.pending.Add(1)
			}
			h.mu.Unlock()
			if ok {
				go h.disconnect(client)
			}
		}
	}
}

// Stop closes every connection and waits for pending disconnects.
func (h *Hub) Stop() {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}
	h.mu.Unlock()

	close(h.stop)
	<-h.done
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister is safe to call after the hub stopped.
func (h *Hub) Unregister(client *Client) {
	h.mu.RLock()
	stopped := h.stopped
	h.mu.RUnlock()

	if stopped {
		return
	}

	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Deliver writes encoded bytes to a local socket. It reports false when the
// socket is not connected here.
func (h *Hub) Deliver(socketID string, data []byte) bool {
	h.mu.RLock()
	client, ok := h.clients[socketID]
	h.mu.RUnlock()
	if !ok {
		return false
	}
	return client.deliver(data)
}

// Broadcast writes encoded bytes to every local socket.
func (h *Hub) Broadcast(data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		client.deliver(data)
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// handle turns one inbound message into an engine action. JOIN binds the
// socket to a game; every later message targets that game.
func (h *Hub) handle(c *Client, msg *Message) {
	ctx := context.Background()

	gameID := c.GameID()
	switch msg.Type {
	case "":
		c.sendError(domain.ErrCodeInvalidPayload, "message type is required")
		return
	case engine.ActionTimerExpired, engine.ActionDisconnect:
		c.sendError(domain.ErrCodeUnknownAction, "unknown action "+string(msg.Type))
		return
	case engine.ActionJoin:
		if msg.GameID == "" {
			c.sendError(domain.ErrCodeInvalidPayload, "JOIN requires a gameId")
			return
		}
		if gameID != "" && gameID != msg.GameID {
			h.submit(ctx, engine.NewAction(gameID, c.id, c.userID, engine.ActionDisconnect, nil))
		}
		if err := h.sessions.Set(ctx, c.id, c.userID, msg.GameID); err != nil {
			logger.Error("Failed to write session", zap.String("socketId", c.id), zap.Error(err))
			c.sendError(domain.ErrCodeInternal, "internal error")
			return
		}
		c.setGame(msg.GameID)
		gameID = msg.GameID
	default:
		if gameID == "" {
			c.sendError(domain.ErrCodeGameNotFound, "join a game first")
			return
		}
	}

	h.submit(ctx, engine.NewAction(gameID, c.id, c.userID, msg.Type, msg.Payload))
}

func (h *Hub) submit(ctx context.Context, action engine.Action) {
	out, err := h.exec.Execute(ctx, action)
	if err != nil {
		logger.Error("Action failed",
			zap.String("gameId", action.GameID),
			zap.String("action", string(action.Type)),
			zap.String("socketId", action.SocketID),
			zap.Error(err),
		)
		return
	}
	logger.Debug("Action submitted",
		zap.String("gameId", action.GameID),
		zap.String("action", string(action.Type)),
		zap.String("status", string(out.Status)),
	)
}

// disconnect tells the engine the socket is gone and drops its session.
func (h *Hub) disconnect(c *Client) {
	defer h.pending.Done()
	ctx := context.Background()

	if gameID := c.GameID(); gameID != "" {
		h.submit(ctx, engine.NewAction(gameID, c.id, c.userID, engine.ActionDisconnect, nil))
	}
	if err := h.sessions.Delete(ctx, c.id); err != nil {
		logger.Warn("Failed to delete session", zap.String("socketId", c.id), zap.Error(err))
	}
	logger.Debug("Client disconnected", zap.String("socketId", c.id))
}
