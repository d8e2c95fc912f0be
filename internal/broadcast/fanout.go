package broadcast

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/dom/quiz-engine/internal/domain"
	"github.com/dom/quiz-engine/internal/logger"
	"github.com/dom/quiz-engine/internal/store"
	"go.uber.org/zap"
)

// Transport delivers events to connections. Rooms are named by game id.
type Transport interface {
	EmitToSocket(ctx context.Context, socketID string, event Event, payload any) error
	EmitToRoom(ctx context.Context, room string, event Event, payload any) error
	EmitToAll(ctx context.Context, event Event, payload any) error
	RoomMembers(ctx context.Context, room string) ([]string, error)
	Join(ctx context.Context, socketID, room string) error
	Leave(ctx context.Context, socketID, room string) error
}

// SessionLookup resolves a connection to its user.
type SessionLookup interface {
	Get(ctx context.Context, socketID string) (*store.Session, error)
}

// Fanout turns intents into transport calls.
type Fanout struct {
	transport Transport
	sessions  SessionLookup
}

func NewFanout(transport Transport, sessions SessionLookup) *Fanout {
	return &Fanout{transport: transport, sessions: sessions}
}

// Emit delivers intents in order. A failed intent does not stop later ones;
// all failures are returned joined.
func (f *Fanout) Emit(ctx context.Context, game *domain.Game, intents []Intent) error {
	var errs []error
	for _, intent := range intents {
		if err := f.emit(ctx, game, intent); err != nil {
			logger.Warn("Broadcast failed",
				zap.String("gameId", gameID(game)),
				zap.String("event", string(intent.Event)),
				zap.Error(err),
			)
			errs = append(errs, fmt.Errorf("%s: %w", intent.Event, err))
		}
	}
	return errors.Join(errs...)
}

func (f *Fanout) emit(ctx context.Context, game *domain.Game, intent Intent) error {
	switch intent.Target {
	case TargetAll:
		return f.transport.EmitToAll(ctx, intent.Event, intent.Payload)
	case TargetSocket:
		if intent.SocketID != "" {
			return f.transport.EmitToSocket(ctx, intent.SocketID, intent.Event, intent.Payload)
		}
		if game == nil {
			return errors.New("socket intent without socket or game")
		}
		return f.transport.EmitToRoom(ctx, game.ID, intent.Event, intent.Payload)
	case TargetGame:
		if game == nil {
			return errors.New("game intent without game")
		}
		if intent.Project == nil {
			return f.transport.EmitToRoom(ctx, game.ID, intent.Event, intent.Payload)
		}
		return f.emitProjected(ctx, game, intent)
	}
	return fmt.Errorf("unknown target %q", intent.Target)
}

// emitProjected sends each connection its own payload, in socket id order.
func (f *Fanout) emitProjected(ctx context.Context, game *domain.Game, intent Intent) error {
	payloads, err := f.Resolve(ctx, game, intent.Project)
	if err != nil {
		return err
	}
	socketIDs := slices.Sorted(maps.Keys(payloads))
	var errs []error
	for _, socketID := range socketIDs {
		if err := f.transport.EmitToSocket(ctx, socketID, intent.Event, payloads[socketID]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Resolve materializes socketID -> payload for every connection in the
// game's room. Connections without a known player are spectators.
func (f *Fanout) Resolve(ctx context.Context, game *domain.Game, project func(Recipient) any) (map[string]any, error) {
	members, err := f.transport.RoomMembers(ctx, game.ID)
	if err != nil {
		return nil, fmt.Errorf("room members: %w", err)
	}
	out := make(map[string]any, len(members))
	for _, socketID := range members {
		out[socketID] = project(f.recipient(ctx, game, socketID))
	}
	return out, nil
}

func (f *Fanout) recipient(ctx context.Context, game *domain.Game, socketID string) Recipient {
	r := Recipient{SocketID: socketID, Role: domain.RoleSpectator}
	session, err := f.sessions.Get(ctx, socketID)
	if err != nil {
		logger.Debug("Session lookup failed", zap.String("socketId", socketID), zap.Error(err))
		return r
	}
	if session == nil {
		return r
	}
	r.UserID = session.UserID
	if p := game.FindPlayer(session.UserID); p != nil {
		r.Role = p.Role
	}
	return r
}

func gameID(game *domain.Game) string {
	if game == nil {
		return ""
	}
	return game.ID
}
