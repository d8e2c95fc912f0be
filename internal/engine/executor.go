package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dom/quiz-engine/internal/broadcast"
	"github.com/dom/quiz-engine/internal/domain"
	"github.com/dom/quiz-engine/internal/logger"
	"github.com/dom/quiz-engine/internal/store"
	"go.uber.org/zap"
)

type Status string

const (
	StatusExecuted Status = "EXECUTED"
	StatusQueued   Status = "QUEUED"
	StatusRejected Status = "REJECTED"
	StatusFailed   Status = "FAILED"
)

// Outcome reports what happened to the caller's own action. Actions drained
// from the queue while the caller held the lock are only logged.
type Outcome struct {
	Status Status
	Err    error
}

// ErrNotPersisted marks a mutation that was applied in memory but could not
// be written to the store.
var ErrNotPersisted = errors.New("mutation applied in memory but not persisted")

// Locker is the per-game lock and queue.
type Locker interface {
	AcquireOrEnqueue(ctx context.Context, gameID string, ttl time.Duration, action []byte) (store.LockResult, error)
	Prefetch(ctx context.Context, gameID, socketID string, gameTTL time.Duration) (store.Snapshot, error)
	DrainAndReacquire(ctx context.Context, gameID, token string, lockTTL, gameTTL time.Duration) (store.DrainResult, error)
	Release(ctx context.Context, gameID, token string) (bool, error)
	QueueLen(ctx context.Context, gameID string) (int64, error)
}

type GameWriter interface {
	Save(ctx context.Context, game *domain.Game) error
}

type TimerWriter interface {
	SavedTimers
	SetActive(ctx context.Context, gameID string, t *domain.Timer) error
	DeleteActive(ctx context.Context, gameID string) error
	Save(ctx context.Context, gameID, suffix string, t *domain.Timer) error
	DeleteSaved(ctx context.Context, gameID, suffix string) error
}

// Archiver keeps finished games beyond the shared store's TTL.
type Archiver interface {
	Archive(ctx context.Context, game *domain.Game) error
}

type Rooms interface {
	Join(ctx context.Context, socketID, room string) error
	Leave(ctx context.Context, socketID, room string) error
}

type Emitter interface {
	Emit(ctx context.Context, game *domain.Game, intents []broadcast.Intent) error
}

type Deps struct {
	Locks    Locker
	Games    GameWriter
	Timers   TimerWriter
	Archive  Archiver
	Rooms    Rooms
	Fanout   Emitter
	Handlers *Registry
}

type Options struct {
	LockTTL time.Duration
	GameTTL time.Duration
	Now     func() time.Time
}

// Executor runs actions one at a time per game across every process that
// shares the store.
type Executor struct {
	Deps
	opts Options
}

func NewExecutor(deps Deps, opts Options) *Executor {
	if opts.LockTTL <= 0 {
		opts.LockTTL = 10 * time.Second
	}
	if opts.GameTTL <= 0 {
		opts.GameTTL = 24 * time.Hour
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Executor{Deps: deps, opts: opts}
}

// Execute runs action if the game is free, or queues it for the current
// holder. The holder runs every queued action before releasing the lock.
func (e *Executor) Execute(ctx context.Context, action Action) (Outcome, error) {
	// A started action runs to completion even if the caller goes away.
	ctx = context.WithoutCancel(ctx)

	raw, err := json.Marshal(action)
	if err != nil {
		return Outcome{Status: StatusFailed, Err: err}, fmt.Errorf("encode action: %w", err)
	}

	lock, err := e.Locks.AcquireOrEnqueue(ctx, action.GameID, e.opts.LockTTL, raw)
	if err != nil {
		return Outcome{Status: StatusFailed, Err: err}, err
	}
	if !lock.Acquired {
		logger.Debug("Action queued",
			zap.String("gameId", action.GameID),
			zap.String("action", string(action.Type)),
			zap.String("actionId", action.ID),
		)
		return Outcome{Status: StatusQueued}, nil
	}

	var outcome Outcome
	snap, err := e.Locks.Prefetch(ctx, action.GameID, action.SocketID, e.opts.GameTTL)
	if err != nil {
		logger.Error("Prefetch failed", zap.String("gameId", action.GameID), zap.Error(err))
		e.reportFailure(ctx, action, nil, err)
		outcome = Outcome{Status: StatusFailed, Err: err}
	} else {
		outcome = e.run(ctx, action, snap)
	}

	e.drain(ctx, action.GameID, lock.Token)

	if outcome.Status == StatusFailed {
		return outcome, outcome.Err
	}
	return outcome, nil
}

const (
	drainAttempts   = 3
	drainRetryDelay = 20 * time.Millisecond
)

// drain runs queued actions under a fresh token each time until the queue
// is empty, which releases the lock in the same atomic step.
func (e *Executor) drain(ctx context.Context, gameID, token string) {
	for {
		res, err := e.drainNext(ctx, gameID, token)
		if err != nil {
			queued, _ := e.Locks.QueueLen(ctx, gameID)
			logger.Error("Drain failed, releasing lock",
				zap.String("gameId", gameID),
				zap.Int64("queued", queued),
				zap.Error(err),
			)
			if _, err := e.Locks.Release(ctx, gameID, token); err != nil {
				logger.Error("Release failed", zap.String("gameId", gameID), zap.Error(err))
			}
			return
		}

		switch res.Status {
		case store.DrainQueueEmpty:
			return
		case store.DrainLockLost:
			logger.Warn("Lock lost while draining", zap.String("gameId", gameID))
			return
		}

		token = res.NewToken
		var next Action
		if err := json.Unmarshal(res.Action, &next); err != nil {
			logger.Error("Dropping malformed queued action", zap.String("gameId", gameID), zap.Error(err))
			continue
		}
		outcome := e.run(ctx, next, res.Snapshot)
		fields := []zap.Field{
			zap.String("gameId", gameID),
			zap.String("action", string(next.Type)),
			zap.String("status", string(outcome.Status)),
		}
		if queued, err := e.Locks.QueueLen(ctx, gameID); err == nil {
			fields = append(fields, zap.Int64("queued", queued))
		}
		logger.Debug("Queued action finished", fields...)
	}
}

// drainNext pops the next queued action, retrying transient store errors.
// A retry after a lost reply reports the lock as lost.
func (e *Executor) drainNext(ctx context.Context, gameID, token string) (store.DrainResult, error) {
	var err error
	for attempt := 1; attempt <= drainAttempts; attempt++ {
		var res store.DrainResult
		res, err = e.Locks.DrainAndReacquire(ctx, gameID, token, e.opts.LockTTL, e.opts.GameTTL)
		if err == nil {
			return res, nil
		}
		if attempt < drainAttempts {
			logger.Warn("Drain failed, retrying",
				zap.String("gameId", gameID),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			time.Sleep(drainRetryDelay * time.Duration(attempt))
		}
	}
	return store.DrainResult{}, err
}

// run executes one action against a snapshot. It never panics and never
// leaves the lock to the caller's error handling.
func (e *Executor) run(ctx context.Context, action Action, snap store.Snapshot) (outcome Outcome) {
	log := logger.L().With(
		zap.String("gameId", action.GameID),
		zap.String("action", string(action.Type)),
		zap.String("actionId", action.ID),
	)
	var game *domain.Game

	defer func() {
		if r := recover(); r != nil {
			err := &domain.ServerError{Op: "handle " + string(action.Type), Err: fmt.Errorf("panic: %v", r)}
			log.Error("Handler panicked", zap.Any("panic", r), zap.Stack("stack"))
			e.reportFailure(ctx, action, game, err)
			outcome = Outcome{Status: StatusFailed, Err: err}
		}
	}()

	ac, err := e.reconstruct(action, snap)
	if err != nil {
		log.Error("Failed to reconstruct game", zap.Error(err))
		e.reportFailure(ctx, action, nil, err)
		return Outcome{Status: StatusFailed, Err: err}
	}
	game = ac.Game

	handler, ok := e.Handlers.Lookup(action.Type)
	if !ok {
		err := domain.NewClientError(domain.ErrCodeUnknownAction, "unknown action %q", action.Type)
		e.reportFailure(ctx, action, game, err)
		return Outcome{Status: StatusRejected, Err: err}
	}

	mutations, err := handler.Handle(ctx, ac)
	if err != nil {
		e.reportFailure(ctx, action, game, err)
		if domain.KindOf(err) == domain.KindClient {
			log.Debug("Action rejected", zap.Error(err))
			return Outcome{Status: StatusRejected, Err: err}
		}
		log.Error("Action failed", zap.Error(err))
		return Outcome{Status: StatusFailed, Err: err}
	}

	if err := validate(mutations); err != nil {
		log.Error("Handler produced an inconsistent game state", zap.Error(err))
		e.reportFailure(ctx, action, game, err)
		return Outcome{Status: StatusFailed, Err: err}
	}

	if err := e.apply(ctx, action, game, mutations); err != nil {
		log.Error("Mutation applied in memory but not persisted", zap.Error(err))
		e.reportFailure(ctx, action, game, err)
		return Outcome{Status: StatusFailed, Err: err}
	}
	log.Debug("Action executed", zap.Int("mutations", len(mutations)))
	return Outcome{Status: StatusExecuted}
}

// validate rejects a batch that would store a game whose special-mechanic
// payload disagrees with its question state.
func validate(mutations []Mutation) error {
	for _, m := range mutations {
		saved, ok := m.(SaveGame)
		if !ok || saved.Game == nil {
			continue
		}
		if err := saved.Game.State.Validate(saved.Game.IsFinalRound()); err != nil {
			return &domain.ServerError{Op: "validate state", Err: err}
		}
	}
	return nil
}

func (e *Executor) reconstruct(action Action, snap store.Snapshot) (*ActionContext, error) {
	ac := &ActionContext{
		Action:  action,
		Session: store.DecodeSession(action.SocketID, snap.SessionFields),
		Now:     e.opts.Now(),
		Saved:   e.Timers,
	}
	if len(snap.GameFields) > 0 {
		game, err := store.DecodeGame(snap.GameFields)
		if err != nil {
			return nil, &domain.ServerError{Op: "decode game", Err: err}
		}
		ac.Game = game
	}
	if len(snap.Timer) > 0 {
		timer, err := store.DecodeTimer(snap.Timer)
		if err != nil {
			return nil, &domain.ServerError{Op: "decode timer", Err: err}
		}
		ac.Timer = timer
	}
	return ac, nil
}

// apply persists in declared order and only then broadcasts. If any write
// fails the broadcasts are skipped so no client sees state that is not
// durable.
func (e *Executor) apply(ctx context.Context, action Action, game *domain.Game, mutations []Mutation) error {
	var intents []broadcast.Intent
	for _, m := range mutations {
		if !isPersistence(m) {
			intents = append(intents, m.(Broadcast).Intents...)
			continue
		}
		if saved, ok := m.(SaveGame); ok && saved.Game != nil {
			game = saved.Game
		}
		if err := e.persist(ctx, action.GameID, m); err != nil {
			return fmt.Errorf("%w: %T: %v", ErrNotPersisted, m, err)
		}
	}

	if len(intents) == 0 {
		return nil
	}
	if err := e.Fanout.Emit(ctx, game, intents); err != nil {
		// Delivery is best effort once the state is durable.
		logger.Warn("Some broadcasts were not delivered",
			zap.String("gameId", action.GameID),
			zap.String("action", string(action.Type)),
			zap.Error(err),
		)
	}
	return nil
}

func (e *Executor) persist(ctx context.Context, gameID string, m Mutation) error {
	switch m := m.(type) {
	case SaveGame:
		return e.Games.Save(ctx, m.Game)
	case SetTimer:
		return e.Timers.SetActive(ctx, gameID, m.Timer)
	case DeleteTimer:
		return e.Timers.DeleteActive(ctx, gameID)
	case SaveTimer:
		return e.Timers.Save(ctx, gameID, m.Suffix, m.Timer)
	case DeleteSavedTimer:
		return e.Timers.DeleteSaved(ctx, gameID, m.Suffix)
	case ArchiveGame:
		if e.Archive == nil {
			return nil
		}
		return e.Archive.Archive(ctx, m.Game)
	case JoinRoom:
		return e.Rooms.Join(ctx, m.SocketID, m.Room)
	case LeaveRoom:
		return e.Rooms.Leave(ctx, m.SocketID, m.Room)
	}
	return fmt.Errorf("unknown mutation %T", m)
}

// reportFailure tells the originating connection why its action did not
// apply. Server errors are reported without detail.
func (e *Executor) reportFailure(ctx context.Context, action Action, game *domain.Game, err error) {
	if action.SocketID == "" {
		return
	}
	intent := broadcast.ErrorTo(action.SocketID, domain.ErrCodeInternal, "internal error")
	if ce, ok := domain.AsClientError(err); ok {
		intent = broadcast.ErrorTo(action.SocketID, ce.Code, ce.Message)
	}
	if emitErr := e.Fanout.Emit(ctx, game, []broadcast.Intent{intent}); emitErr != nil {
		logger.Warn("Failed to report error",
			zap.String("gameId", action.GameID),
			zap.String("socketId", action.SocketID),
			zap.Error(emitErr),
		)
	}
}
