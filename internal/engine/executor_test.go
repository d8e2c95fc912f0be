package engine_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dom/quiz-engine/internal/broadcast"
	"github.com/dom/quiz-engine/internal/domain"
	"github.com/dom/quiz-engine/internal/engine"
	"github.com/dom/quiz-engine/internal/logger"
	"github.com/dom/quiz-engine/internal/store"
	"github.com/dom/quiz-engine/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const actionIncrement engine.ActionType = "INCREMENT"

type fixture struct {
	redis     *testutil.TestRedis
	transport *testutil.FakeTransport
	games     *store.GameRepository
	registry  *engine.Registry
	deps      engine.Deps
	exec      *engine.Executor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	tr := testutil.NewTestRedis(t)
	transport := testutil.NewFakeTransport()
	games := store.NewGameRepository(tr.Client, time.Hour)
	registry := engine.NewRegistry()
	deps := engine.Deps{
		Locks:    store.NewLockManager(tr.Client),
		Games:    games,
		Timers:   store.NewTimerStore(tr.Client, 500*time.Millisecond, time.Hour),
		Rooms:    transport,
		Fanout:   broadcast.NewFanout(transport, store.NewSessionStore(tr.Client, time.Hour)),
		Handlers: registry,
	}
	return &fixture{
		redis:     tr,
		transport: transport,
		games:     games,
		registry:  registry,
		deps:      deps,
		exec:      engine.NewExecutor(deps, engine.Options{}),
	}
}

func (f *fixture) seed(t *testing.T) *domain.Game {
	t.Helper()
	game := testutil.NewGameBuilder().WithShowman(1).WithPlayer(2, 0, 0).Build()
	require.NoError(t, f.games.Save(context.Background(), game))
	return game
}

func (f *fixture) assertUnlocked(t *testing.T, gameID string) {
	t.Helper()
	assert.False(t, f.redis.Server.Exists(store.LockKey(gameID)), "lock must be released")
	assert.False(t, f.redis.Server.Exists(store.QueueKey(gameID)), "queue must be drained")
}

func errorCodes(t *testing.T, tr *testutil.FakeTransport, socketID string) []domain.ErrorCode {
	t.Helper()
	var codes []domain.ErrorCode
	for _, e := range tr.Named(broadcast.EventError) {
		require.Equal(t, socketID, e.To)
		codes = append(codes, e.Payload.(broadcast.ErrorPayload).Code)
	}
	return codes
}

func TestExecutor_SerializesConcurrentActions(t *testing.T) {
	f := newFixture(t)
	game := f.seed(t)

	var (
		mu   sync.Mutex
		seen []int
	)
	f.registry.Register(actionIncrement, engine.HandlerFunc(func(_ context.Context, ac *engine.ActionContext) ([]engine.Mutation, error) {
		g, err := ac.RequireGame()
		if err != nil {
			return nil, err
		}
		p := g.FindPlayer(2)
		mu.Lock()
		seen = append(seen, p.Score)
		mu.Unlock()
		p.Score++
		return []engine.Mutation{engine.SaveGame{Game: g}}, nil
	}))

	const n = 25
	var wg sync.WaitGroup
	statuses := make(chan engine.Status, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := f.exec.Execute(context.Background(), engine.NewAction(game.ID, "", 2, actionIncrement, nil))
			assert.NoError(t, err)
			statuses <- out.Status
		}()
	}
	wg.Wait()
	close(statuses)

	for s := range statuses {
		assert.Contains(t, []engine.Status{engine.StatusExecuted, engine.StatusQueued}, s)
	}

	stored, err := f.games.Get(context.Background(), game.ID)
	require.NoError(t, err)
	assert.Equal(t, n, stored.FindPlayer(2).Score)

	require.Len(t, seen, n)
	for i, v := range seen {
		assert.Equal(t, i, v, "every action must observe the previous one's write")
	}
	f.assertUnlocked(t, game.ID)
}

func TestExecutor_QueuedActionRunsUnderHoldersLock(t *testing.T) {
	f := newFixture(t)
	game := f.seed(t)

	started := make(chan struct{})
	unblock := make(chan struct{})
	var (
		mu    sync.Mutex
		order []string
	)
	record := func(name string) {
		mu.Lock()
		defer mu.Unlock()
		order = append(order, name)
	}

	f.registry.Register("SLOW", engine.HandlerFunc(func(_ context.Context, ac *engine.ActionContext) ([]engine.Mutation, error) {
		close(started)
		<-unblock
		record("slow")
		return []engine.Mutation{engine.SaveGame{Game: ac.Game}}, nil
	}))
	f.registry.Register("FAST", engine.HandlerFunc(func(_ context.Context, ac *engine.ActionContext) ([]engine.Mutation, error) {
		record("fast")
		return []engine.Mutation{engine.SaveGame{Game: ac.Game}}, nil
	}))

	done := make(chan engine.Outcome, 1)
	go func() {
		out, err := f.exec.Execute(context.Background(), engine.NewAction(game.ID, "", 2, "SLOW", nil))
		assert.NoError(t, err)
		done <- out
	}()
	<-started

	out, err := f.exec.Execute(context.Background(), engine.NewAction(game.ID, "", 2, "FAST", nil))
	require.NoError(t, err)
	assert.Equal(t, engine.StatusQueued, out.Status)

	mu.Lock()
	assert.Empty(t, order, "queued action must not run while the holder is busy")
	mu.Unlock()

	close(unblock)
	assert.Equal(t, engine.StatusExecuted, (<-done).Status)
	assert.Equal(t, []string{"slow", "fast"}, order)
	f.assertUnlocked(t, game.ID)
}

func TestExecutor_ErrorPolicy(t *testing.T) {
	tests := []struct {
		name       string
		handler    engine.HandlerFunc
		actionType engine.ActionType
		wantStatus engine.Status
		wantErr    bool
		wantCode   domain.ErrorCode
	}{
		{
			name: "client error is rejected",
			handler: func(context.Context, *engine.ActionContext) ([]engine.Mutation, error) {
				return nil, domain.NewClientError(domain.ErrCodeWrongRole, "only the showman can do that")
			},
			actionType: "FAILS",
			wantStatus: engine.StatusRejected,
			wantCode:   domain.ErrCodeWrongRole,
		},
		{
			name: "server error fails",
			handler: func(context.Context, *engine.ActionContext) ([]engine.Mutation, error) {
				return nil, domain.NewServerError("test", "invariant broken")
			},
			actionType: "FAILS",
			wantStatus: engine.StatusFailed,
			wantErr:    true,
			wantCode:   domain.ErrCodeInternal,
		},
		{
			name: "unexpected error fails",
			handler: func(context.Context, *engine.ActionContext) ([]engine.Mutation, error) {
				return nil, errors.New("boom")
			},
			actionType: "FAILS",
			wantStatus: engine.StatusFailed,
			wantErr:    true,
			wantCode:   domain.ErrCodeInternal,
		},
		{
			name: "panic is recovered",
			handler: func(context.Context, *engine.ActionContext) ([]engine.Mutation, error) {
				panic("handler bug")
			},
			actionType: "FAILS",
			wantStatus: engine.StatusFailed,
			wantErr:    true,
			wantCode:   domain.ErrCodeInternal,
		},
		{
			name:       "unknown action is rejected",
			actionType: "NOPE",
			wantStatus: engine.StatusRejected,
			wantCode:   domain.ErrCodeUnknownAction,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			game := f.seed(t)
			if tt.handler != nil {
				f.registry.Register("FAILS", tt.handler)
			}

			out, err := f.exec.Execute(context.Background(), engine.NewAction(game.ID, "sock-1", 2, tt.actionType, nil))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantStatus, out.Status)
			assert.Error(t, out.Err)
			assert.Equal(t, []domain.ErrorCode{tt.wantCode}, errorCodes(t, f.transport, "sock-1"))
			f.assertUnlocked(t, game.ID)
		})
	}
}

func TestExecutor_MissingGame(t *testing.T) {
	f := newFixture(t)
	f.registry.Register(actionIncrement, engine.HandlerFunc(func(_ context.Context, ac *engine.ActionContext) ([]engine.Mutation, error) {
		_, err := ac.RequireGame()
		return nil, err
	}))

	out, err := f.exec.Execute(context.Background(), engine.NewAction("missing", "sock-1", 2, actionIncrement, nil))
	require.NoError(t, err)
	assert.Equal(t, engine.StatusRejected, out.Status)
	assert.Equal(t, []domain.ErrorCode{domain.ErrCodeGameNotFound}, errorCodes(t, f.transport, "sock-1"))
	f.assertUnlocked(t, "missing")
}

func TestExecutor_FailingActionDoesNotBlockQueue(t *testing.T) {
	f := newFixture(t)
	game := f.seed(t)

	started := make(chan struct{})
	unblock := make(chan struct{})
	ran := make(chan struct{}, 1)
	f.registry.Register("SLOW_FAIL", engine.HandlerFunc(func(context.Context, *engine.ActionContext) ([]engine.Mutation, error) {
		close(started)
		<-unblock
		return nil, errors.New("boom")
	}))
	f.registry.Register("FAST", engine.HandlerFunc(func(_ context.Context, ac *engine.ActionContext) ([]engine.Mutation, error) {
		ran <- struct{}{}
		return []engine.Mutation{engine.SaveGame{Game: ac.Game}}, nil
	}))

	done := make(chan error, 1)
	go func() {
		_, err := f.exec.Execute(context.Background(), engine.NewAction(game.ID, "", 2, "SLOW_FAIL", nil))
		done <- err
	}()
	<-started

	out, err := f.exec.Execute(context.Background(), engine.NewAction(game.ID, "", 2, "FAST", nil))
	require.NoError(t, err)
	require.Equal(t, engine.StatusQueued, out.Status)

	close(unblock)
	assert.Error(t, <-done)
	select {
	case <-ran:
	default:
		t.Fatal("queued action was dropped after the holder failed")
	}
	f.assertUnlocked(t, game.ID)
}

// holdLock runs a blocking action on game and returns once it holds the
// lock, with a func that lets it finish and reports its error.
func holdLock(t *testing.T, f *fixture, exec *engine.Executor, gameID string) func() error {
	t.Helper()
	started := make(chan struct{})
	unblock := make(chan struct{})
	f.registry.Register("HOLD", engine.HandlerFunc(func(context.Context, *engine.ActionContext) ([]engine.Mutation, error) {
		close(started)
		<-unblock
		return nil, nil
	}))
	done := make(chan error, 1)
	go func() {
		_, err := exec.Execute(context.Background(), engine.NewAction(gameID, "", 2, "HOLD", nil))
		done <- err
	}()
	<-started
	return func() error {
		close(unblock)
		return <-done
	}
}

func TestExecutor_LogsQueueDepth(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	prev := logger.L()
	logger.Set(zap.New(core))
	t.Cleanup(func() { logger.Set(prev) })

	f := newFixture(t)
	game := f.seed(t)
	f.registry.Register("FAST", engine.HandlerFunc(func(context.Context, *engine.ActionContext) ([]engine.Mutation, error) {
		return nil, nil
	}))

	finish := holdLock(t, f, f.exec, game.ID)
	for range 2 {
		out, err := f.exec.Execute(context.Background(), engine.NewAction(game.ID, "", 2, "FAST", nil))
		require.NoError(t, err)
		require.Equal(t, engine.StatusQueued, out.Status)
	}
	require.NoError(t, finish())

	var depths []int64
	for _, e := range logs.FilterMessage("Queued action finished").AllUntimed() {
		depths = append(depths, e.ContextMap()["queued"].(int64))
	}
	assert.Equal(t, []int64{1, 0}, depths)
	f.assertUnlocked(t, game.ID)
}

// flakyLocks fails the first fails drain calls.
type flakyLocks struct {
	*store.LockManager
	mu    sync.Mutex
	fails int
	calls int
}

func (l *flakyLocks) DrainAndReacquire(ctx context.Context, gameID, token string, lockTTL, gameTTL time.Duration) (store.DrainResult, error) {
	l.mu.Lock()
	l.calls++
	fail := l.calls <= l.fails
	l.mu.Unlock()
	if fail {
		return store.DrainResult{}, errors.New("connection reset")
	}
	return l.LockManager.DrainAndReacquire(ctx, gameID, token, lockTTL, gameTTL)
}

func TestExecutor_DrainFailure(t *testing.T) {
	tests := []struct {
		name       string
		fails      int
		wantRan    bool
		wantQueued int64
	}{
		{"transient failure is retried", 1, true, 0},
		{"persistent failure releases the lock", 100, false, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			game := f.seed(t)
			locks := &flakyLocks{LockManager: store.NewLockManager(f.redis.Client), fails: tt.fails}
			deps := f.deps
			deps.Locks = locks
			exec := engine.NewExecutor(deps, engine.Options{})

			ran := make(chan struct{}, 1)
			f.registry.Register("FAST", engine.HandlerFunc(func(context.Context, *engine.ActionContext) ([]engine.Mutation, error) {
				ran <- struct{}{}
				return nil, nil
			}))

			finish := holdLock(t, f, exec, game.ID)
			out, err := exec.Execute(context.Background(), engine.NewAction(game.ID, "", 2, "FAST", nil))
			require.NoError(t, err)
			require.Equal(t, engine.StatusQueued, out.Status)
			require.NoError(t, finish())

			assert.Equal(t, tt.wantRan, len(ran) == 1)
			assert.False(t, f.redis.Server.Exists(store.LockKey(game.ID)), "lock must be released")
			queued, err := locks.QueueLen(context.Background(), game.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantQueued, queued)
		})
	}
}

type failingGames struct{ err error }

func (g failingGames) Save(context.Context, *domain.Game) error { return g.err }

func TestExecutor_PersistenceFailureSkipsBroadcasts(t *testing.T) {
	f := newFixture(t)
	game := f.seed(t)

	deps := f.deps
	deps.Games = failingGames{err: errors.New("store unavailable")}
	exec := engine.NewExecutor(deps, engine.Options{})

	f.registry.Register(actionIncrement, engine.HandlerFunc(func(_ context.Context, ac *engine.ActionContext) ([]engine.Mutation, error) {
		ac.Game.FindPlayer(2).Score = 500
		return []engine.Mutation{
			engine.SaveGame{Game: ac.Game},
			engine.Broadcast{Intents: []broadcast.Intent{
				broadcast.ToAll(broadcast.EventScoreChanged, broadcast.ScoreChangedPayload{PlayerID: 2, Score: 500}),
			}},
		}, nil
	}))

	out, err := exec.Execute(context.Background(), engine.NewAction(game.ID, "sock-1", 2, actionIncrement, nil))
	require.Error(t, err)
	assert.ErrorIs(t, err, engine.ErrNotPersisted)
	assert.Equal(t, engine.StatusFailed, out.Status)
	assert.Empty(t, f.transport.Named(broadcast.EventScoreChanged))
	assert.Equal(t, []domain.ErrorCode{domain.ErrCodeInternal}, errorCodes(t, f.transport, "sock-1"))
	f.assertUnlocked(t, game.ID)

	stored, err := f.games.Get(context.Background(), game.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.FindPlayer(2).Score)
}

func TestExecutor_InconsistentStateIsNotSaved(t *testing.T) {
	tests := []struct {
		name string
		edit func(*domain.GameState)
	}{
		{"reviewing without final data", func(s *domain.GameState) {
			s.QuestionState = domain.QuestionStateReviewing
		}},
		{"two special payloads", func(s *domain.GameState) {
			s.QuestionState = domain.QuestionStateAnswering
			s.SecretQuestionData = &domain.SecretQuestionData{}
			s.StakeQuestionData = &domain.StakeQuestionData{}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			game := f.seed(t)
			f.registry.Register(actionIncrement, engine.HandlerFunc(func(_ context.Context, ac *engine.ActionContext) ([]engine.Mutation, error) {
				ac.Game.FindPlayer(2).Score = 500
				tt.edit(&ac.Game.State)
				return []engine.Mutation{
					engine.SaveGame{Game: ac.Game},
					engine.Broadcast{Intents: []broadcast.Intent{
						broadcast.ToAll(broadcast.EventScoreChanged, broadcast.ScoreChangedPayload{PlayerID: 2, Score: 500}),
					}},
				}, nil
			}))

			out, err := f.exec.Execute(context.Background(), engine.NewAction(game.ID, "sock-1", 2, actionIncrement, nil))
			require.Error(t, err)
			assert.Equal(t, engine.StatusFailed, out.Status)
			assert.Equal(t, domain.KindServer, domain.KindOf(err))
			assert.Empty(t, f.transport.Named(broadcast.EventScoreChanged))
			assert.Equal(t, []domain.ErrorCode{domain.ErrCodeInternal}, errorCodes(t, f.transport, "sock-1"))
			f.assertUnlocked(t, game.ID)

			stored, err := f.games.Get(context.Background(), game.ID)
			require.NoError(t, err)
			assert.Equal(t, 0, stored.FindPlayer(2).Score)
		})
	}
}

type journal struct {
	mu      sync.Mutex
	entries []string
}

func (j *journal) add(s string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, s)
}

type journalGames struct{ j *journal }

func (g journalGames) Save(context.Context, *domain.Game) error {
	g.j.add("save")
	return nil
}

type journalEmitter struct{ j *journal }

func (e journalEmitter) Emit(_ context.Context, _ *domain.Game, intents []broadcast.Intent) error {
	for _, in := range intents {
		e.j.add("emit " + string(in.Event))
	}
	return nil
}

func TestExecutor_PersistsBeforeBroadcasting(t *testing.T) {
	f := newFixture(t)
	game := f.seed(t)

	j := &journal{}
	deps := f.deps
	deps.Games = journalGames{j: j}
	deps.Fanout = journalEmitter{j: j}
	exec := engine.NewExecutor(deps, engine.Options{})

	f.registry.Register(actionIncrement, engine.HandlerFunc(func(_ context.Context, ac *engine.ActionContext) ([]engine.Mutation, error) {
		return []engine.Mutation{
			engine.Broadcast{Intents: []broadcast.Intent{broadcast.ToAll(broadcast.EventGamePaused, nil)}},
			engine.SaveGame{Game: ac.Game},
			engine.Broadcast{Intents: []broadcast.Intent{broadcast.ToAll(broadcast.EventGameUnpaused, nil)}},
			engine.JoinRoom{SocketID: "sock-1", Room: ac.Game.ID},
		}, nil
	}))

	out, err := exec.Execute(context.Background(), engine.NewAction(game.ID, "sock-1", 2, actionIncrement, nil))
	require.NoError(t, err)
	assert.Equal(t, engine.StatusExecuted, out.Status)
	assert.Equal(t, []string{"save", "emit GAME_PAUSED", "emit GAME_UNPAUSED"}, j.entries)

	members, err := f.transport.RoomMembers(context.Background(), game.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"sock-1"}, members)
}

func TestExecutor_TimerMutations(t *testing.T) {
	f := newFixture(t)
	game := f.seed(t)
	timers := store.NewTimerStore(f.redis.Client, 500*time.Millisecond, time.Hour)
	now := time.Now().UTC()

	f.registry.Register("ARM", engine.HandlerFunc(func(_ context.Context, ac *engine.ActionContext) ([]engine.Mutation, error) {
		return []engine.Mutation{
			engine.SetTimer{Timer: domain.NewTimer(30*time.Second, now)},
			engine.SaveTimer{Suffix: domain.SavedTimerShowing, Timer: domain.NewTimer(10*time.Second, now)},
		}, nil
	}))
	f.registry.Register("DISARM", engine.HandlerFunc(func(_ context.Context, ac *engine.ActionContext) ([]engine.Mutation, error) {
		require.NotNil(t, ac.Timer, "active timer is prefetched")
		saved, err := ac.Saved.GetSaved(context.Background(), ac.Game.ID, domain.SavedTimerShowing)
		require.NoError(t, err)
		require.NotNil(t, saved)
		return []engine.Mutation{engine.DeleteTimer{}, engine.DeleteSavedTimer{Suffix: domain.SavedTimerShowing}}, nil
	}))

	_, err := f.exec.Execute(context.Background(), engine.NewAction(game.ID, "", 0, "ARM", nil))
	require.NoError(t, err)
	active, err := timers.GetActive(context.Background(), game.ID)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, int64(30000), active.DurationMs)

	_, err = f.exec.Execute(context.Background(), engine.NewAction(game.ID, "", 0, "DISARM", nil))
	require.NoError(t, err)
	assert.False(t, f.redis.Server.Exists(store.TimerKey(game.ID)))
	assert.False(t, f.redis.Server.Exists(store.SavedTimerKey(game.ID, domain.SavedTimerShowing)))
}
