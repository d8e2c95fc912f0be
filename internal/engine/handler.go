package engine

import (
	"context"
	"sync"
	"time"

	"github.com/dom/quiz-engine/internal/domain"
	"github.com/dom/quiz-engine/internal/store"
)

// SavedTimers reads parked timers, which are not part of the prefetch.
type SavedTimers interface {
	GetSaved(ctx context.Context, gameID, suffix string) (*domain.Timer, error)
}

// ActionContext is the reconstructed state an action runs against.
type ActionContext struct {
	Action  Action
	Game    *domain.Game
	Timer   *domain.Timer
	Session *store.Session
	Now     time.Time
	Saved   SavedTimers
}

// RequireGame returns the game or GAME_NOT_FOUND.
func (ac *ActionContext) RequireGame() (*domain.Game, error) {
	if ac.Game == nil {
		return nil, domain.NewClientError(domain.ErrCodeGameNotFound, "game %s not found", ac.Action.GameID)
	}
	return ac.Game, nil
}

// Handler is the business logic of one action type. It validates first and
// returns ClientErrors without touching the game.
type Handler interface {
	Handle(ctx context.Context, ac *ActionContext) ([]Mutation, error)
}

type HandlerFunc func(ctx context.Context, ac *ActionContext) ([]Mutation, error)

func (f HandlerFunc) Handle(ctx context.Context, ac *ActionContext) ([]Mutation, error) {
	return f(ctx, ac)
}

// Registry maps action types to handlers.
type Registry struct {
	mu       sync.RWMutex
	handlers map[ActionType]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[ActionType]Handler)}
}

func (r *Registry) Register(t ActionType, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[t] = h
}

func (r *Registry) Lookup(t ActionType) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[t]
	return h, ok
}
