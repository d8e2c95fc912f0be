package transition

import (
	"slices"

	"github.com/dom/quiz-engine/internal/broadcast"
	"github.com/dom/quiz-engine/internal/domain"
)

// ValidSecretTargets lists the players a secret question may be handed to.
// With EXCEPT_CURRENT the picker is excluded unless nobody else is left.
func ValidSecretTargets(g *domain.Game, d *domain.SecretQuestionData) []int {
	var out []int
	for _, id := range g.ActivePlayerIDs() {
		if d.TransferType == domain.TransferExceptCurrent && id == d.PickerPlayerID {
			continue
		}
		out = append(out, id)
	}
	if len(out) == 0 {
		if p := g.FindPlayer(d.PickerPlayerID); p != nil && p.IsActivePlayer() {
			out = append(out, d.PickerPlayerID)
		}
	}
	return out
}

// secretTarget resolves who receives the question for this context: the
// chosen target on a user transfer, the first valid target on expiry.
func secretTarget(ctx *Context) (int, bool) {
	d := ctx.Game.State.SecretQuestionData
	targets := ValidSecretTargets(ctx.Game, d)
	if len(targets) == 0 {
		return 0, false
	}
	switch {
	case ctx.IsUserAction():
		p, ok := ctx.Payload.(SecretTransferPayload)
		if ok && slices.Contains(targets, p.TargetPlayerID) {
			return p.TargetPlayerID, true
		}
		if ctx.isForceSkip() {
			return targets[0], true
		}
	case ctx.IsTimerExpired():
		return targets[0], true
	}
	return 0, false
}

// secretTransfer gives a secret question to its new owner.
type secretTransfer struct{ edge }

func newSecretTransfer() Handler {
	return &secretTransfer{edge{"secret-transfer", domain.PhaseSecretQuestionTransfer, domain.PhaseAnswering}}
}

func (h *secretTransfer) CanTransition(ctx *Context) bool {
	if !h.at(ctx) {
		return false
	}
	_, ok := secretTarget(ctx)
	return ok
}

func (h *secretTransfer) Mutate(ctx *Context) (Mutation, error) {
	g := ctx.Game
	target, _ := secretTarget(ctx)
	q, _ := g.CurrentQuestion()
	if q == nil {
		return nil, domain.NewServerError("secret-transfer", "no current question")
	}
	d := g.State.SecretQuestionData
	d.TargetPlayerID = intPtr(target)
	g.State.AnsweringPlayer = intPtr(target)
	g.State.QuestionState = domain.QuestionStateAnswering
	return SecretTransferred{Question: q, FromID: d.PickerPlayerID, ToID: target}, nil
}

func (h *secretTransfer) HandleTimer(ctx *Context, _ Mutation) TimerResult {
	return startTimer(ctx, domain.AnsweringDuration)
}

func (h *secretTransfer) CollectBroadcasts(ctx *Context, m Mutation, tr TimerResult) []broadcast.Intent {
	moved := m.(SecretTransferred)
	_, theme := ctx.Game.CurrentQuestion()
	return []broadcast.Intent{
		broadcast.ToGameProjected(broadcast.EventSecretQuestionTransferred, func(r broadcast.Recipient) any {
			return broadcast.SecretQuestionTransferredPayload{
				FromPlayerID: moved.FromID,
				ToPlayerID:   moved.ToID,
				Question:     broadcast.NewQuestionView(moved.Question, r.Role),
				Timer:        tr.Timer,
			}
		}),
		broadcast.QuestionData(theme.ID, moved.Question, ctx.Game.State.QuestionState, tr.Timer),
	}
}
