package transition

import (
	"time"

	"github.com/dom/quiz-engine/internal/broadcast"
	"github.com/dom/quiz-engine/internal/domain"
)

// Handler owns one edge of the phase graph. CanTransition must be pure;
// Mutate is only called after CanTransition returned true for the same
// context.
type Handler interface {
	Name() string
	From() domain.GamePhase
	To() domain.GamePhase
	CanTransition(ctx *Context) bool
	Mutate(ctx *Context) (Mutation, error)
	HandleTimer(ctx *Context, m Mutation) TimerResult
	CollectBroadcasts(ctx *Context, m Mutation, timer TimerResult) []broadcast.Intent
}

type edge struct {
	name string
	from domain.GamePhase
	to   domain.GamePhase
}

func (e edge) Name() string           { return e.name }
func (e edge) From() domain.GamePhase { return e.from }
func (e edge) To() domain.GamePhase   { return e.to }

// at is the phase re-check every guard starts with.
func (e edge) at(ctx *Context) bool {
	return ctx.Game != nil && ctx.Phase() == e.from
}

func startTimer(ctx *Context, d time.Duration) TimerResult {
	t := domain.NewTimer(d, ctx.Now)
	return TimerResult{
		Timer:     t,
		Mutations: []TimerMutation{{Op: TimerSet, Timer: t}},
	}
}

func noTimer() TimerResult {
	return TimerResult{Mutations: []TimerMutation{{Op: TimerDelete}}}
}

func dropSavedShowing(tr TimerResult) TimerResult {
	tr.Mutations = append(tr.Mutations, TimerMutation{Op: TimerDeleteSaved, Suffix: domain.SavedTimerShowing})
	return tr
}

func intPtr(v int) *int {
	return &v
}

func timePtr(t time.Time) *time.Time {
	return &t
}

// revealAnswer moves the question into SHOWING_ANSWER.
func revealAnswer(g *domain.Game) {
	g.State.QuestionState = domain.QuestionStateShowingAnswer
	g.State.AnsweringPlayer = nil
}

// finishGame stamps the game finished and reports the standings.
func finishGame(ctx *Context, closed *domain.Question) GameFinished {
	g := ctx.Game
	g.FinishedAt = timePtr(ctx.Now)
	g.State.AnsweringPlayer = nil
	g.State.CurrentTurnPlayerID = nil
	m := GameFinished{Closed: closed, Scores: g.Scores()}
	if leader := g.Leader(); leader != nil {
		m.WinnerID = intPtr(leader.Meta.ID)
	}
	return m
}

func gameFinishedIntent(m GameFinished) broadcast.Intent {
	return broadcast.ToGame(broadcast.EventGameFinished, broadcast.GameFinishedPayload{
		WinnerID: m.WinnerID,
		Scores:   m.Scores,
	})
}
