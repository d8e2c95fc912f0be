package transition

import (
	"github.com/dom/quiz-engine/internal/broadcast"
	"github.com/dom/quiz-engine/internal/domain"
)

func finalPhaseComplete(from, to domain.GamePhase, timer *domain.Timer) broadcast.Intent {
	return broadcast.ToGame(broadcast.EventFinalPhaseComplete, broadcast.FinalPhaseCompletePayload{
		Phase:     from,
		NextPhase: to,
		Timer:     timer,
	})
}

func finalQuestion(ctx *Context, op string) (*domain.Question, *domain.Theme, error) {
	q, theme := ctx.Game.FinalQuestion()
	if q == nil {
		return nil, nil, domain.NewServerError(op, "final round has no single remaining theme")
	}
	return q, theme, nil
}

// closesFinalStage is the shared guard of the timed final stages.
func closesFinalStage(ctx *Context, done bool) bool {
	return done || ctx.IsTimerExpired() || ctx.isForceSkip()
}

// themeChosen opens final bidding once a single theme is left.
type themeChosen struct{ edge }

func newThemeChosen() Handler {
	return &themeChosen{edge{"final-theme-chosen", domain.PhaseFinalThemeElimination, domain.PhaseFinalBidding}}
}

func (h *themeChosen) CanTransition(ctx *Context) bool {
	return h.at(ctx) && len(ctx.Game.RemainingThemes()) == 1
}

func (h *themeChosen) Mutate(ctx *Context) (Mutation, error) {
	q, theme, err := finalQuestion(ctx, h.name)
	if err != nil {
		return nil, err
	}
	g := ctx.Game
	g.State.FinalRoundData.QuestionID = intPtr(q.ID)
	g.State.CurrentQuestion = intPtr(q.ID)
	g.State.QuestionState = domain.QuestionStateBidding
	return FinalThemeChosen{Theme: theme, Question: q}, nil
}

func (h *themeChosen) HandleTimer(ctx *Context, _ Mutation) TimerResult {
	return startTimer(ctx, domain.FinalBiddingDuration)
}

func (h *themeChosen) CollectBroadcasts(_ *Context, _ Mutation, tr TimerResult) []broadcast.Intent {
	return []broadcast.Intent{finalPhaseComplete(h.from, h.to, tr.Timer)}
}

// finalBidsClosed reveals the final question once every finalist has bid or
// bidding timed out. Missing bids are filed at the minimum.
type finalBidsClosed struct{ edge }

func newFinalBidsClosed() Handler {
	return &finalBidsClosed{edge{"final-bids-closed", domain.PhaseFinalBidding, domain.PhaseFinalAnswering}}
}

func (h *finalBidsClosed) CanTransition(ctx *Context) bool {
	if !h.at(ctx) {
		return false
	}
	return closesFinalStage(ctx, ctx.Game.AllFinalBidsIn(ctx.Game.State.FinalRoundData))
}

func (h *finalBidsClosed) Mutate(ctx *Context) (Mutation, error) {
	q, theme, err := finalQuestion(ctx, h.name)
	if err != nil {
		return nil, err
	}
	g := ctx.Game
	filled := g.FillMissingFinalBids(g.State.FinalRoundData)
	q.IsPlayed = true
	g.State.QuestionState = domain.QuestionStateAnswering
	return FinalBidsClosed{Theme: theme, Question: q, AutoBids: filled}, nil
}

func (h *finalBidsClosed) HandleTimer(ctx *Context, _ Mutation) TimerResult {
	return startTimer(ctx, domain.FinalAnsweringDuration)
}

func (h *finalBidsClosed) CollectBroadcasts(_ *Context, m Mutation, tr TimerResult) []broadcast.Intent {
	closed := m.(FinalBidsClosed)
	return []broadcast.Intent{
		finalPhaseComplete(h.from, h.to, tr.Timer),
		broadcast.ToGameProjected(broadcast.EventFinalQuestionData, func(r broadcast.Recipient) any {
			return broadcast.FinalQuestionDataPayload{
				ThemeID:  closed.Theme.ID,
				Question: broadcast.NewQuestionView(closed.Question, r.Role),
				Timer:    tr.Timer,
			}
		}),
	}
}

// finalAnswersClosed hands the answers to the showman for review. Finalists
// who did not answer lose their bid right away.
type finalAnswersClosed struct{ edge }

func newFinalAnswersClosed() Handler {
	return &finalAnswersClosed{edge{"final-answers-closed", domain.PhaseFinalAnswering, domain.PhaseFinalReviewing}}
}

func (h *finalAnswersClosed) CanTransition(ctx *Context) bool {
	if !h.at(ctx) {
		return false
	}
	return closesFinalStage(ctx, ctx.Game.AllFinalAnswersIn(ctx.Game.State.FinalRoundData))
}

func (h *finalAnswersClosed) Mutate(ctx *Context) (Mutation, error) {
	g := ctx.Game
	filed := g.FileAutoLossAnswers(g.State.FinalRoundData)
	g.State.QuestionState = domain.QuestionStateReviewing
	return FinalAnswersClosed{AutoLoss: filed}, nil
}

func (h *finalAnswersClosed) HandleTimer(*Context, Mutation) TimerResult {
	return noTimer()
}

func (h *finalAnswersClosed) CollectBroadcasts(ctx *Context, m Mutation, _ TimerResult) []broadcast.Intent {
	out := []broadcast.Intent{finalPhaseComplete(h.from, h.to, nil)}
	for _, a := range m.(FinalAnswersClosed).AutoLoss {
		score := 0
		if p := ctx.Game.FindPlayer(a.PlayerID); p != nil {
			score = p.Score
		}
		out = append(out, broadcast.ToGame(broadcast.EventFinalAnswerReviewed, broadcast.FinalAnswerReviewedPayload{
			PlayerID:   a.PlayerID,
			IsCorrect:  false,
			ScoreDelta: a.ScoreDelta,
			Score:      score,
		}))
	}
	return out
}

// finalReviewed ends the game after the last final answer is judged.
type finalReviewed struct{ edge }

func newFinalReviewed() Handler {
	return &finalReviewed{edge{"final-reviewed", domain.PhaseFinalReviewing, domain.PhaseGameFinished}}
}

func (h *finalReviewed) CanTransition(ctx *Context) bool {
	return h.at(ctx) && ctx.Game.State.FinalRoundData.AllReviewed()
}

func (h *finalReviewed) Mutate(ctx *Context) (Mutation, error) {
	q, _ := ctx.Game.CurrentQuestion()
	return finishGame(ctx, q), nil
}

func (h *finalReviewed) HandleTimer(*Context, Mutation) TimerResult {
	return noTimer()
}

func (h *finalReviewed) CollectBroadcasts(_ *Context, m Mutation, _ TimerResult) []broadcast.Intent {
	return []broadcast.Intent{
		finalPhaseComplete(h.from, h.to, nil),
		gameFinishedIntent(m.(GameFinished)),
	}
}
