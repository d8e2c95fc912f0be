// Package timer turns expired countdown keys into TIMER_EXPIRED actions.
//
// Every process subscribes to Redis expired-key events. A short-lived claim
// key per countdown instance makes sure only one of them submits the action
// for a given expiry. Expiry events are delivered at most once, so a periodic
// sweep also submits TIMER_EXPIRED for running countdowns that ran out
// without anyone hearing about it.
package timer

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dom/quiz-engine/internal/domain"
	"github.com/dom/quiz-engine/internal/engine"
	"github.com/dom/quiz-engine/internal/logger"
	"github.com/dom/quiz-engine/internal/store"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	expiredPattern = "__keyevent@*__:expired"

	DefaultClaimTTL      = 2 * time.Second
	DefaultSweepInterval = 30 * time.Second
)

// Submitter runs an action under the game's lock.
type Submitter interface {
	Execute(ctx context.Context, action engine.Action) (engine.Outcome, error)
}

// Games reads the shared game state.
type Games interface {
	Get(ctx context.Context, id string) (*domain.Game, error)
	ListActive(ctx context.Context) ([]*domain.Game, error)
}

type ExpiryListener struct {
	rdb           redis.UniversalClient
	games         Games
	exec          Submitter
	claimTTL      time.Duration
	sweepInterval time.Duration
	owner         string
	now           func() time.Time
	ready         chan struct{}
}

func NewExpiryListener(rdb redis.UniversalClient, games Games, exec Submitter) *ExpiryListener {
	return &ExpiryListener{
		rdb:           rdb,
		games:         games,
		exec:          exec,
		claimTTL:      DefaultClaimTTL,
		sweepInterval: DefaultSweepInterval,
		owner:         uuid.NewString(),
		now:           func() time.Time { return time.Now().UTC() },
		ready:         make(chan struct{}),
	}
}

// WithClaimTTL overrides how long an expiry stays claimed.
func (l *ExpiryListener) WithClaimTTL(ttl time.Duration) *ExpiryListener {
	l.claimTTL = ttl
	return l
}

// WithSweepInterval overrides how often running countdowns are checked.
// Zero disables the periodic sweep; the startup sweep always runs.
func (l *ExpiryListener) WithSweepInterval(d time.Duration) *ExpiryListener {
	l.sweepInterval = d
	return l
}

func (l *ExpiryListener) WithClock(now func() time.Time) *ExpiryListener {
	l.now = now
	return l
}

// Ready is closed once the subscription is confirmed.
func (l *ExpiryListener) Ready() <-chan struct{} {
	return l.ready
}

// EnableNotifications turns on expired-key events for the server. Hosted
// Redis often rejects CONFIG, in which case events must be enabled out of band.
func (l *ExpiryListener) EnableNotifications(ctx context.Context) error {
	return l.rdb.ConfigSet(ctx, "notify-keyspace-events", "Ex").Err()
}

// Run consumes expiry events until ctx is cancelled. Once subscribed it
// sweeps for countdowns that expired while nobody was listening.
func (l *ExpiryListener) Run(ctx context.Context) error {
	if err := l.EnableNotifications(ctx); err != nil {
		logger.Warn("Could not enable keyspace notifications", zap.Error(err))
	}

	sub := l.rdb.PSubscribe(ctx, expiredPattern)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe to %s: %w", expiredPattern, err)
	}
	close(l.ready)
	logger.Info("Timer expiry listener started")

	l.Sweep(ctx)

	var sweep <-chan time.Time
	if l.sweepInterval > 0 {
		ticker := time.NewTicker(l.sweepInterval)
		defer ticker.Stop()
		sweep = ticker.C
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			logger.Info("Timer expiry listener stopped")
			return nil
		case <-sweep:
			l.Sweep(ctx)
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			l.HandleExpired(ctx, msg.Payload)
		}
	}
}

// HandleExpired submits TIMER_EXPIRED for an expired active timer key. It
// reports whether this process submitted the action.
//
// Only a countdown that has really run out is claimed. An event that does
// not match the stored countdown is still submitted unclaimed so the
// executor can re-arm the key.
func (l *ExpiryListener) HandleExpired(ctx context.Context, key string) bool {
	gameID, ok := store.ParseActiveTimerKey(key)
	if !ok {
		return false
	}

	game, err := l.games.Get(ctx, gameID)
	switch {
	case errors.Is(err, store.ErrGameNotFound):
		return false
	case err != nil:
		logger.Warn("Could not read game for timer expiry, submitting unclaimed",
			zap.String("gameId", gameID), zap.Error(err))
		return l.submit(ctx, gameID)
	}

	t := game.State.Timer
	if t == nil || !t.IsExpired(l.now()) {
		return l.submit(ctx, gameID)
	}

	claimed, err := l.rdb.SetNX(ctx, store.TimerClaimKey(gameID, Instance(t)), l.owner, l.claimTTL).Result()
	if err != nil {
		logger.Error("Failed to claim timer expiry", zap.String("gameId", gameID), zap.Error(err))
		return false
	}
	if !claimed {
		logger.Debug("Timer expiry claimed elsewhere", zap.String("gameId", gameID))
		return false
	}
	return l.submit(ctx, gameID)
}

// Sweep submits TIMER_EXPIRED for every active game whose running countdown
// has run out. It returns the number of games submitted.
func (l *ExpiryListener) Sweep(ctx context.Context) int {
	games, err := l.games.ListActive(ctx)
	if err != nil {
		logger.Error("Timer sweep failed", zap.Error(err))
		return 0
	}

	now := l.now()
	submitted := 0
	for _, g := range games {
		t := g.State.Timer
		if t == nil || !t.IsRunning() || g.State.IsPaused || !t.IsExpired(now) {
			continue
		}
		claimed, err := l.rdb.SetNX(ctx, store.TimerClaimKey(g.ID, Instance(t)), l.owner, l.claimTTL).Result()
		if err != nil || !claimed {
			continue
		}
		logger.Info("Recovering missed timer expiry", zap.String("gameId", g.ID))
		if l.submit(ctx, g.ID) {
			submitted++
		}
	}
	return submitted
}

func (l *ExpiryListener) submit(ctx context.Context, gameID string) bool {
	out, err := l.exec.Execute(ctx, engine.SystemAction(gameID, engine.ActionTimerExpired))
	if err != nil {
		logger.Error("Timer expiry failed", zap.String("gameId", gameID), zap.Error(err))
		return true
	}
	logger.Debug("Timer expiry submitted",
		zap.String("gameId", gameID),
		zap.String("status", string(out.Status)),
	)
	return true
}

// Instance identifies one running segment of a countdown. A restart, a
// restored countdown or a resume each yield a new instance.
func Instance(t *domain.Timer) string {
	id := strconv.FormatInt(t.StartedAt.UnixMilli(), 10)
	if t.ResumedAt != nil {
		id += "." + strconv.FormatInt(t.ResumedAt.UnixMilli(), 10)
	}
	return id
}
