package transition

import (
	"github.com/dom/quiz-engine/internal/broadcast"
	"github.com/dom/quiz-engine/internal/domain"
)

// Leaving SHOWING_ANSWER happens on the reveal countdown or a showman skip.
// The four edges split on what comes after the closed question.

func leavesAnswer(ctx *Context) bool {
	return ctx.IsTimerExpired() || ctx.isForceSkip()
}

func roundFinished(g *domain.Game) bool {
	r := g.CurrentRound()
	return r == nil || r.IsFinished()
}

func nextRoundType(g *domain.Game) domain.RoundType {
	if r := g.NextRound(); r != nil {
		return r.Type
	}
	return ""
}

// keepTurn returns the turn player if still connected, otherwise the first
// seated contestant.
func keepTurn(g *domain.Game) *int {
	if id := g.State.CurrentTurnPlayerID; id != nil {
		if p := g.FindPlayer(*id); p != nil && p.IsActivePlayer() {
			return id
		}
	}
	return g.FirstTurnPlayer()
}

func closedQuestion(ctx *Context, op string) (*domain.Question, error) {
	q, _ := ctx.Game.CurrentQuestion()
	if q == nil {
		return nil, domain.NewServerError(op, "no current question")
	}
	return q, nil
}

func questionFinishIntent(q *domain.Question, turn *int) broadcast.Intent {
	return broadcast.ToGame(broadcast.EventQuestionFinish, broadcast.QuestionFinishPayload{
		QuestionID:   q.ID,
		Answer:       q.Answer,
		TurnPlayerID: turn,
	})
}

// nextQuestion returns to the board while the round has unplayed questions.
type nextQuestion struct{ edge }

func newNextQuestion() Handler {
	return &nextQuestion{edge{"next-question", domain.PhaseShowingAnswer, domain.PhaseChoosing}}
}

func (h *nextQuestion) CanTransition(ctx *Context) bool {
	return h.at(ctx) && leavesAnswer(ctx) && !roundFinished(ctx.Game)
}

func (h *nextQuestion) Mutate(ctx *Context) (Mutation, error) {
	q, err := closedQuestion(ctx, h.name)
	if err != nil {
		return nil, err
	}
	g := ctx.Game
	g.State.ResetQuestion()
	g.State.QuestionState = domain.QuestionStateChoosing
	g.State.CurrentTurnPlayerID = keepTurn(g)
	return QuestionClosed{Question: q, TurnPlayerID: g.State.CurrentTurnPlayerID}, nil
}

func (h *nextQuestion) HandleTimer(*Context, Mutation) TimerResult {
	return noTimer()
}

func (h *nextQuestion) CollectBroadcasts(_ *Context, m Mutation, _ TimerResult) []broadcast.Intent {
	closed := m.(QuestionClosed)
	return []broadcast.Intent{questionFinishIntent(closed.Question, closed.TurnPlayerID)}
}

// nextRound moves on to the following regular round.
type nextRound struct{ edge }

func newNextRound() Handler {
	return &nextRound{edge{"next-round", domain.PhaseShowingAnswer, domain.PhaseChoosing}}
}

func (h *nextRound) CanTransition(ctx *Context) bool {
	return h.at(ctx) && leavesAnswer(ctx) &&
		roundFinished(ctx.Game) &&
		nextRoundType(ctx.Game) == domain.RoundTypeSimple
}

func (h *nextRound) Mutate(ctx *Context) (Mutation, error) {
	q, err := closedQuestion(ctx, h.name)
	if err != nil {
		return nil, err
	}
	g := ctx.Game
	idx := *g.State.CurrentRound + 1
	g.State.ResetQuestion()
	g.State.CurrentRound = intPtr(idx)
	g.State.QuestionState = domain.QuestionStateChoosing
	g.State.CurrentTurnPlayerID = keepTurn(g)
	return RoundAdvanced{
		Closed:       q,
		RoundIndex:   idx,
		Round:        &g.Package.Rounds[idx],
		TurnPlayerID: g.State.CurrentTurnPlayerID,
	}, nil
}

func (h *nextRound) HandleTimer(*Context, Mutation) TimerResult {
	return noTimer()
}

func (h *nextRound) CollectBroadcasts(_ *Context, m Mutation, _ TimerResult) []broadcast.Intent {
	adv := m.(RoundAdvanced)
	return []broadcast.Intent{
		questionFinishIntent(adv.Closed, adv.TurnPlayerID),
		broadcast.ToGameProjected(broadcast.EventNextRound, func(r broadcast.Recipient) any {
			return broadcast.NextRoundPayload{
				RoundIndex:   adv.RoundIndex,
				Round:        broadcast.NewRoundView(adv.Round, r.Role),
				TurnPlayerID: adv.TurnPlayerID,
			}
		}),
	}
}

// enterFinalRound starts the final once the last regular round is played
// and at least one contestant qualifies.
type enterFinalRound struct{ edge }

func newEnterFinalRound() Handler {
	return &enterFinalRound{edge{"enter-final", domain.PhaseShowingAnswer, domain.PhaseFinalThemeElimination}}
}

func (h *enterFinalRound) CanTransition(ctx *Context) bool {
	return h.at(ctx) && leavesAnswer(ctx) &&
		roundFinished(ctx.Game) &&
		nextRoundType(ctx.Game) == domain.RoundTypeFinal &&
		len(ctx.Game.FinalEligible()) > 0
}

func (h *enterFinalRound) Mutate(ctx *Context) (Mutation, error) {
	q, err := closedQuestion(ctx, h.name)
	if err != nil {
		return nil, err
	}
	m := enterFinal(ctx.Game, *ctx.Game.State.CurrentRound+1)
	m.Closed = q
	return m, nil
}

func (h *enterFinalRound) HandleTimer(ctx *Context, _ Mutation) TimerResult {
	return startTimer(ctx, domain.ThemeEliminationDuration)
}

func (h *enterFinalRound) CollectBroadcasts(ctx *Context, m Mutation, tr TimerResult) []broadcast.Intent {
	entered := m.(FinalRoundEntered)
	return append(
		[]broadcast.Intent{questionFinishIntent(entered.Closed, ctx.Game.State.CurrentTurnPlayerID)},
		finalEnteredIntents(ctx, entered, tr, domain.PhaseShowingAnswer)...,
	)
}

// finishAfterRound ends the game when no round follows, or the final has
// no qualifying contestant.
type finishAfterRound struct{ edge }

func newFinishAfterRound() Handler {
	return &finishAfterRound{edge{"finish-after-round", domain.PhaseShowingAnswer, domain.PhaseGameFinished}}
}

func (h *finishAfterRound) CanTransition(ctx *Context) bool {
	if !h.at(ctx) || !leavesAnswer(ctx) || !roundFinished(ctx.Game) {
		return false
	}
	switch nextRoundType(ctx.Game) {
	case "":
		return true
	case domain.RoundTypeFinal:
		return len(ctx.Game.FinalEligible()) == 0
	}
	return false
}

func (h *finishAfterRound) Mutate(ctx *Context) (Mutation, error) {
	q, err := closedQuestion(ctx, h.name)
	if err != nil {
		return nil, err
	}
	ctx.Game.State.ResetQuestion()
	return finishGame(ctx, q), nil
}

func (h *finishAfterRound) HandleTimer(*Context, Mutation) TimerResult {
	return noTimer()
}

func (h *finishAfterRound) CollectBroadcasts(_ *Context, m Mutation, _ TimerResult) []broadcast.Intent {
	finished := m.(GameFinished)
	return []broadcast.Intent{
		questionFinishIntent(finished.Closed, nil),
		gameFinishedIntent(finished),
	}
}
