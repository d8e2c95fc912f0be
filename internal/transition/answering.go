package transition

import (
	"github.com/dom/quiz-engine/internal/broadcast"
	"github.com/dom/quiz-engine/internal/domain"
)

// closesQuestion reports whether the verdict ends the question: a correct
// answer, a single-answerer question, or nobody left to try.
func closesQuestion(ctx *Context, result domain.AnswerResultType) bool {
	if result == domain.AnswerCorrect {
		return true
	}
	q, _ := ctx.Game.CurrentQuestion()
	if q == nil || !q.Type.AllowsRebuzz() {
		return true
	}
	answering := ctx.Game.State.AnsweringPlayer
	if answering == nil {
		return true
	}
	return ctx.Game.ExhaustedAfter(*answering)
}

// recordAnswer scores the answering player and stores the verdict.
func recordAnswer(ctx *Context, result domain.AnswerResultType) (AnswerRecorded, error) {
	g := ctx.Game
	q, _ := g.CurrentQuestion()
	if q == nil || g.State.AnsweringPlayer == nil {
		return AnswerRecorded{}, domain.NewServerError("record-answer", "no question or answering player")
	}
	playerID := *g.State.AnsweringPlayer
	delta := g.ScoreDelta(result)
	score := 0
	if p := g.FindPlayer(playerID); p != nil {
		p.Score += delta
		score = p.Score
	}
	g.State.AnsweredPlayers = append(g.State.AnsweredPlayers, domain.AnswerRecord{
		PlayerID:   playerID,
		Result:     result,
		ScoreDelta: delta,
	})
	g.State.AnsweringPlayer = nil
	return AnswerRecorded{Question: q, PlayerID: playerID, Result: result, Delta: delta, Score: score}, nil
}

func answerResultIntent(m AnswerRecorded, timer *domain.Timer) broadcast.Intent {
	return broadcast.ToGame(broadcast.EventAnswerResult, broadcast.AnswerResultPayload{
		PlayerID:   m.PlayerID,
		Result:     m.Result,
		ScoreDelta: m.Delta,
		Score:      m.Score,
		Timer:      timer,
	})
}

// answerRetry returns to SHOWING after a wrong answer while others may still
// buzz. The parked showing countdown resumes where it stopped.
type answerRetry struct{ edge }

func newAnswerRetry() Handler {
	return &answerRetry{edge{"answer-retry", domain.PhaseAnswering, domain.PhaseShowing}}
}

func (h *answerRetry) CanTransition(ctx *Context) bool {
	if !h.at(ctx) {
		return false
	}
	result, ok := ctx.answerVerdict()
	return ok && !closesQuestion(ctx, result)
}

func (h *answerRetry) Mutate(ctx *Context) (Mutation, error) {
	result, _ := ctx.answerVerdict()
	m, err := recordAnswer(ctx, result)
	if err != nil {
		return nil, err
	}
	ctx.Game.State.QuestionState = domain.QuestionStateShowing
	return m, nil
}

func (h *answerRetry) HandleTimer(ctx *Context, _ Mutation) TimerResult {
	if ctx.SavedShowingTimer == nil {
		return dropSavedShowing(startTimer(ctx, domain.ShowingDuration))
	}
	restored := ctx.SavedShowingTimer.Clone()
	restored.Resume(ctx.Now)
	return TimerResult{
		Timer: restored,
		Mutations: []TimerMutation{
			{Op: TimerSet, Timer: restored},
			{Op: TimerDeleteSaved, Suffix: domain.SavedTimerShowing},
		},
	}
}

func (h *answerRetry) CollectBroadcasts(_ *Context, m Mutation, tr TimerResult) []broadcast.Intent {
	return []broadcast.Intent{answerResultIntent(m.(AnswerRecorded), tr.Timer)}
}

// answerClose reveals the answer after the verdict that ends the question.
type answerClose struct{ edge }

func newAnswerClose() Handler {
	return &answerClose{edge{"answer-close", domain.PhaseAnswering, domain.PhaseShowingAnswer}}
}

func (h *answerClose) CanTransition(ctx *Context) bool {
	if !h.at(ctx) {
		return false
	}
	result, ok := ctx.answerVerdict()
	return ok && closesQuestion(ctx, result)
}

func (h *answerClose) Mutate(ctx *Context) (Mutation, error) {
	result, _ := ctx.answerVerdict()
	m, err := recordAnswer(ctx, result)
	if err != nil {
		return nil, err
	}
	if result == domain.AnswerCorrect {
		ctx.Game.State.CurrentTurnPlayerID = intPtr(m.PlayerID)
	}
	revealAnswer(ctx.Game)
	m.Reveal = true
	return m, nil
}

func (h *answerClose) HandleTimer(ctx *Context, _ Mutation) TimerResult {
	return dropSavedShowing(startTimer(ctx, domain.ShowingAnswerDuration))
}

func (h *answerClose) CollectBroadcasts(_ *Context, m Mutation, tr TimerResult) []broadcast.Intent {
	recorded := m.(AnswerRecorded)
	return []broadcast.Intent{
		answerResultIntent(recorded, nil),
		answerShowStart(recorded.Question, tr.Timer),
	}
}
