package transition

import (
	"github.com/dom/quiz-engine/internal/broadcast"
	"github.com/dom/quiz-engine/internal/domain"
)

// stakeWinner hands a stake question to the winning bidder once bidding is
// complete or its countdown ran out.
type stakeWinner struct{ edge }

func newStakeWinner() Handler {
	return &stakeWinner{edge{"stake-winner", domain.PhaseStakeBidding, domain.PhaseAnswering}}
}

func (h *stakeWinner) CanTransition(ctx *Context) bool {
	if !h.at(ctx) {
		return false
	}
	d := ctx.Game.State.StakeQuestionData
	return d.IsPhaseComplete || ctx.IsTimerExpired() || ctx.isForceSkip()
}

func (h *stakeWinner) Mutate(ctx *Context) (Mutation, error) {
	g := ctx.Game
	d := g.State.StakeQuestionData
	if !d.IsPhaseComplete {
		g.FinishStake(d)
	}
	q, _ := g.CurrentQuestion()
	if q == nil || d.WinnerPlayerID == nil {
		return nil, domain.NewServerError("stake-winner", "stake finished without question or winner")
	}
	winner := *d.WinnerPlayerID
	g.State.AnsweringPlayer = intPtr(winner)
	g.State.QuestionState = domain.QuestionStateAnswering
	return StakeWon{Question: q, WinnerID: winner, Bid: d.WinningBid()}, nil
}

func (h *stakeWinner) HandleTimer(ctx *Context, _ Mutation) TimerResult {
	return startTimer(ctx, domain.AnsweringDuration)
}

func (h *stakeWinner) CollectBroadcasts(ctx *Context, m Mutation, tr TimerResult) []broadcast.Intent {
	won := m.(StakeWon)
	_, theme := ctx.Game.CurrentQuestion()
	return []broadcast.Intent{
		broadcast.ToGameProjected(broadcast.EventStakeQuestionWinner, func(r broadcast.Recipient) any {
			return broadcast.StakeQuestionWinnerPayload{
				WinnerPlayerID: won.WinnerID,
				FinalBid:       won.Bid,
				Question:       broadcast.NewQuestionView(won.Question, r.Role),
				Timer:          tr.Timer,
			}
		}),
		broadcast.QuestionData(theme.ID, won.Question, ctx.Game.State.QuestionState, tr.Timer),
	}
}
