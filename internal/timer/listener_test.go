package timer_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dom/quiz-engine/internal/domain"
	"github.com/dom/quiz-engine/internal/engine"
	"github.com/dom/quiz-engine/internal/store"
	"github.com/dom/quiz-engine/internal/testutil"
	"github.com/dom/quiz-engine/internal/timer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

type recordingSubmitter struct {
	mu      sync.Mutex
	actions []engine.Action
}

func (r *recordingSubmitter) Execute(_ context.Context, action engine.Action) (engine.Outcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = append(r.actions, action)
	return engine.Outcome{Status: engine.StatusExecuted}, nil
}

func (r *recordingSubmitter) submitted() []engine.Action {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]engine.Action(nil), r.actions...)
}

func (r *recordingSubmitter) gameIDs() []string {
	var ids []string
	for _, a := range r.submitted() {
		ids = append(ids, a.GameID)
	}
	return ids
}

type fixture struct {
	redis *testutil.TestRedis
	games *store.GameRepository
	sub   *recordingSubmitter

	mu  sync.Mutex
	now time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	tr := testutil.NewTestRedis(t)
	return &fixture{
		redis: tr,
		games: store.NewGameRepository(tr.Client, time.Hour),
		sub:   &recordingSubmitter{},
		now:   t0,
	}
}

func (f *fixture) listener() *timer.ExpiryListener {
	return timer.NewExpiryListener(f.redis.Client, f.games, f.sub).
		WithSweepInterval(0).
		WithClock(f.clock)
}

func (f *fixture) clock() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fixture) advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
	f.redis.Server.FastForward(d)
}

// save stores a started game whose countdown is t.
func (f *fixture) save(t *testing.T, id string, countdown *domain.Timer, edit ...func(*domain.GameState)) {
	t.Helper()
	b := testutil.NewGameBuilder().
		WithID(id).
		WithShowman(1).
		WithPlayer(2, 0, 0).
		Started().
		WithState(func(s *domain.GameState) { s.Timer = countdown })
	for _, fn := range edit {
		b = b.WithState(fn)
	}
	require.NoError(t, f.games.Save(context.Background(), b.Build()))
}

// expiredAt returns a running countdown that ran out at at.
func expiredAt(at time.Time) *domain.Timer {
	return domain.NewTimer(5*time.Second, at.Add(-5*time.Second))
}

func TestHandleExpired_KeyFilter(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want bool
	}{
		{"active timer", "timer:game-1", true},
		{"saved timer", "timer:game-1:showing", false},
		{"claim key", "timer:claim:game-1:123", false},
		{"unrelated key", "lock:game:game-1", false},
		{"empty id", "timer:", false},
		{"unknown game", "timer:ghost", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.save(t, "game-1", expiredAt(t0))

			assert.Equal(t, tt.want, f.listener().HandleExpired(context.Background(), tt.key))
			if tt.want {
				require.Len(t, f.sub.submitted(), 1)
				action := f.sub.submitted()[0]
				assert.Equal(t, engine.ActionTimerExpired, action.Type)
				assert.Equal(t, "game-1", action.GameID)
				assert.True(t, action.IsSystem())
			} else {
				assert.Empty(t, f.sub.submitted())
			}
		})
	}
}

func TestHandleExpired_SingleClaimAcrossProcesses(t *testing.T) {
	f := newFixture(t)
	countdown := expiredAt(t0)
	f.save(t, "game-1", countdown)
	f.save(t, "game-2", expiredAt(t0))
	first, second := f.listener(), f.listener()
	ctx := context.Background()

	assert.True(t, first.HandleExpired(ctx, "timer:game-1"))
	assert.False(t, second.HandleExpired(ctx, "timer:game-1"))
	assert.True(t, f.redis.Server.Exists(store.TimerClaimKey("game-1", timer.Instance(countdown))))

	// Another game is claimed independently.
	assert.True(t, second.HandleExpired(ctx, "timer:game-2"))
	assert.Equal(t, []string{"game-1", "game-2"}, f.sub.gameIDs())
}

func TestHandleExpired_NextCountdownInsideClaimWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	l := f.listener()

	// The answering countdown runs out first.
	f.save(t, "game-1", expiredAt(t0))
	require.True(t, l.HandleExpired(ctx, "timer:game-1"))

	// Handling it restored the parked showing countdown with 600ms left.
	showing := domain.NewTimer(30*time.Second, t0.Add(-40*time.Second))
	showing.Pause(t0.Add(-10*time.Second - 600*time.Millisecond))
	showing.Resume(t0.Add(200 * time.Millisecond))
	f.save(t, "game-1", showing)

	f.advance(800 * time.Millisecond)
	require.True(t, showing.IsExpired(f.clock()))
	assert.True(t, l.HandleExpired(ctx, "timer:game-1"), "a different countdown is claimed on its own")
	assert.Len(t, f.sub.submitted(), 2)
}

func TestHandleExpired_RunningCountdownSubmittedUnclaimed(t *testing.T) {
	f := newFixture(t)
	running := domain.NewTimer(5*time.Second, t0.Add(-4*time.Second))
	f.save(t, "game-1", running)
	ctx := context.Background()

	// Every process forwards it; the executor re-arms the key.
	assert.True(t, f.listener().HandleExpired(ctx, "timer:game-1"))
	assert.True(t, f.listener().HandleExpired(ctx, "timer:game-1"))
	assert.False(t, f.redis.Server.Exists(store.TimerClaimKey("game-1", timer.Instance(running))))
	assert.Len(t, f.sub.submitted(), 2)
}

func TestSweep(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.save(t, "expired", expiredAt(t0.Add(-time.Minute)))
	f.save(t, "running", domain.NewTimer(time.Minute, t0))
	f.save(t, "no-timer", nil)
	f.save(t, "paused", expiredAt(t0), func(s *domain.GameState) { s.IsPaused = true })

	frozen := domain.NewTimer(5*time.Second, t0.Add(-10*time.Second))
	frozen.Pause(t0.Add(-9 * time.Second))
	f.save(t, "frozen", frozen)

	lobby := testutil.NewGameBuilder().WithID("lobby").WithShowman(1).
		WithState(func(s *domain.GameState) { s.Timer = expiredAt(t0) }).Build()
	require.NoError(t, f.games.Save(ctx, lobby))

	done := testutil.NewGameBuilder().WithID("done").WithShowman(1).WithPlayer(2, 0, 0).Started().Finished().
		WithState(func(s *domain.GameState) { s.Timer = expiredAt(t0) }).Build()
	require.NoError(t, f.games.Save(ctx, done))

	assert.Equal(t, 1, f.listener().Sweep(ctx))
	assert.Equal(t, []string{"expired"}, f.sub.gameIDs())

	// A second process sweeping at the same moment finds it claimed.
	assert.Equal(t, 0, f.listener().Sweep(ctx))
	assert.Len(t, f.sub.submitted(), 1)
}

func TestRun_SweepsThenDeliversPublishedExpiry(t *testing.T) {
	f := newFixture(t)
	f.save(t, "game-1", expiredAt(t0))
	// Expired while no process was listening.
	f.save(t, "missed", expiredAt(t0.Add(-time.Hour)))
	l := f.listener()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	select {
	case <-l.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not subscribe")
	}

	assert.Eventually(t, func() bool {
		return len(f.sub.submitted()) == 2
	}, 2*time.Second, 10*time.Millisecond, "startup sweep")
	assert.ElementsMatch(t, []string{"game-1", "missed"}, f.sub.gameIDs())

	// game-1 is already claimed by the sweep, so only the new countdown counts.
	f.advance(timer.DefaultClaimTTL + time.Millisecond)
	f.save(t, "game-1", expiredAt(f.clock()))
	require.NoError(t, f.redis.Client.Publish(context.Background(), "__keyevent@0__:expired", "timer:game-1").Err())
	require.NoError(t, f.redis.Client.Publish(context.Background(), "__keyevent@0__:expired", "timer:game-1:showing").Err())

	assert.Eventually(t, func() bool {
		return len(f.sub.submitted()) == 3
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not stop")
	}
	assert.Len(t, f.sub.submitted(), 3)
}

func TestInstance(t *testing.T) {
	start := domain.NewTimer(30*time.Second, t0)
	same := domain.NewTimer(30*time.Second, t0)
	restarted := domain.NewTimer(30*time.Second, t0.Add(time.Second))

	resumed := start.Clone()
	resumed.Pause(t0.Add(5 * time.Second))
	resumed.Resume(t0.Add(9 * time.Second))

	assert.Equal(t, timer.Instance(start), timer.Instance(same))
	assert.NotEqual(t, timer.Instance(start), timer.Instance(restarted))
	assert.NotEqual(t, timer.Instance(start), timer.Instance(resumed))
}
