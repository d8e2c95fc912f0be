package transition_test

import (
	"testing"
	"time"

	"github.com/dom/quiz-engine/internal/broadcast"
	"github.com/dom/quiz-engine/internal/domain"
	"github.com/dom/quiz-engine/internal/transition"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

const showmanID = 1

// harness drives a game through the default router the way the executor
// does, tracking the parked showing timer between actions.
type harness struct {
	t      *testing.T
	router *transition.Router
	game   *domain.Game
	now    time.Time
	saved  *domain.Timer
}

func newHarness(t *testing.T, g *domain.Game) *harness {
	return &harness{t: t, router: transition.NewDefaultRouter(), game: g, now: t0}
}

func (h *harness) advance(d time.Duration) {
	h.now = h.now.Add(d)
}

func (h *harness) context(trigger transition.Trigger, actor transition.Actor, payload transition.Payload) *transition.Context {
	return &transition.Context{
		Game:              h.game,
		Trigger:           trigger,
		Actor:             actor,
		Payload:           payload,
		ActiveTimer:       h.game.State.Timer,
		SavedShowingTimer: h.saved,
		Now:               h.now,
	}
}

func (h *harness) run(ctx *transition.Context) *transition.Result {
	h.t.Helper()
	res, err := h.router.Run(ctx)
	require.NoError(h.t, err)
	for _, m := range res.TimerMutations {
		switch m.Op {
		case transition.TimerSave:
			h.saved = m.Timer
		case transition.TimerDeleteSaved:
			h.saved = nil
		}
	}
	return res
}

func (h *harness) actor(userID int) transition.Actor {
	p := h.game.FindPlayer(userID)
	require.NotNil(h.t, p, "user %d not in game", userID)
	return transition.Actor{PlayerID: userID, Role: p.Role}
}

// as runs a user action and requires an edge to fire.
func (h *harness) as(userID int, payload transition.Payload) *transition.Result {
	h.t.Helper()
	res := h.run(h.context(transition.TriggerUserAction, h.actor(userID), payload))
	require.True(h.t, res.Success, "no edge accepted %T from user %d in %s", payload, userID, res.From)
	return res
}

func (h *harness) expire() *transition.Result {
	h.t.Helper()
	res := h.run(h.context(transition.TriggerTimerExpired, transition.SystemActor(), nil))
	require.True(h.t, res.Success, "no edge accepted timer expiry in %s", res.From)
	return res
}

// check re-evaluates after a direct domain change.
func (h *harness) check() *transition.Result {
	h.t.Helper()
	return h.run(h.context(transition.TriggerConditionMet, transition.SystemActor(), nil))
}

func (h *harness) phase() domain.GamePhase {
	return domain.GetGamePhase(h.game)
}

func (h *harness) score(userID int) int {
	return h.game.FindPlayer(userID).Score
}

func events(res *transition.Result) []broadcast.Event {
	out := make([]broadcast.Event, 0, len(res.Broadcasts))
	for _, b := range res.Broadcasts {
		out = append(out, b.Event)
	}
	return out
}

func ops(res *transition.Result) []transition.TimerOp {
	out := make([]transition.TimerOp, 0, len(res.TimerMutations))
	for _, m := range res.TimerMutations {
		out = append(out, m.Op)
	}
	return out
}

func findIntent(t *testing.T, res *transition.Result, event broadcast.Event) broadcast.Intent {
	t.Helper()
	for _, b := range res.Broadcasts {
		if b.Event == event {
			return b
		}
	}
	require.Failf(t, "missing broadcast", "%s not in %v", event, events(res))
	return broadcast.Intent{}
}
