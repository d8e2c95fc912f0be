package transition

import (
	"github.com/dom/quiz-engine/internal/broadcast"
	"github.com/dom/quiz-engine/internal/domain"
)

// pickedQuestion resolves the question a PICK payload refers to, if it is
// unplayed in the current round.
func pickedQuestion(ctx *Context) (*domain.Question, *domain.Theme) {
	p, ok := ctx.Payload.(PickQuestionPayload)
	if !ok || !ctx.IsUserAction() {
		return nil, nil
	}
	round := ctx.Game.CurrentRound()
	if round == nil || round.Type != domain.RoundTypeSimple {
		return nil, nil
	}
	q, theme := round.FindQuestion(p.QuestionID)
	if q == nil || q.IsPlayed {
		return nil, nil
	}
	return q, theme
}

func pickedOfType(ctx *Context, types ...domain.QuestionType) bool {
	q, _ := pickedQuestion(ctx)
	if q == nil {
		return false
	}
	for _, t := range types {
		if q.Type == t {
			return true
		}
	}
	return false
}

// picker is the player a pick is made for: the actor, or the turn player
// when the showman picks on their behalf.
func picker(ctx *Context) int {
	if ctx.Actor.Role == domain.RolePlayer {
		return ctx.Actor.PlayerID
	}
	if id := ctx.Game.State.CurrentTurnPlayerID; id != nil {
		return *id
	}
	if id := ctx.Game.FirstTurnPlayer(); id != nil {
		return *id
	}
	return 0
}

func openQuestion(g *domain.Game, q *domain.Question) {
	g.State.ResetQuestion()
	q.IsPlayed = true
	g.State.CurrentQuestion = intPtr(q.ID)
}

// pickSimple shows a regular or no-risk question.
type pickSimple struct{ edge }

func newPickSimple() Handler {
	return &pickSimple{edge{"pick-simple", domain.PhaseChoosing, domain.PhaseShowing}}
}

func (h *pickSimple) CanTransition(ctx *Context) bool {
	return h.at(ctx) && pickedOfType(ctx, domain.QuestionTypeSimple, domain.QuestionTypeNoRisk, "")
}

func (h *pickSimple) Mutate(ctx *Context) (Mutation, error) {
	q, theme := pickedQuestion(ctx)
	openQuestion(ctx.Game, q)
	ctx.Game.State.QuestionState = domain.QuestionStateShowing
	if q.HasMedia() {
		ctx.Game.State.QuestionState = domain.QuestionStateMediaDownloading
	}
	return QuestionPicked{Theme: theme, Question: q, MediaPending: q.HasMedia()}, nil
}

func (h *pickSimple) HandleTimer(ctx *Context, m Mutation) TimerResult {
	if m.(QuestionPicked).MediaPending {
		return dropSavedShowing(startTimer(ctx, domain.MediaDownloadDuration))
	}
	return dropSavedShowing(startTimer(ctx, domain.ShowingDuration))
}

func (h *pickSimple) CollectBroadcasts(ctx *Context, m Mutation, tr TimerResult) []broadcast.Intent {
	picked := m.(QuestionPicked)
	return []broadcast.Intent{
		broadcast.QuestionData(picked.Theme.ID, picked.Question, ctx.Game.State.QuestionState, tr.Timer),
	}
}

// pickStake opens stake bidding.
type pickStake struct{ edge }

func newPickStake() Handler {
	return &pickStake{edge{"pick-stake", domain.PhaseChoosing, domain.PhaseStakeBidding}}
}

func (h *pickStake) CanTransition(ctx *Context) bool {
	return h.at(ctx) && pickedOfType(ctx, domain.QuestionTypeStake) && len(ctx.Game.ActivePlayers()) > 0
}

func (h *pickStake) Mutate(ctx *Context) (Mutation, error) {
	q, _ := pickedQuestion(ctx)
	g := ctx.Game
	openQuestion(g, q)
	d := g.NewStakeQuestion(picker(ctx), q)
	g.State.StakeQuestionData = d
	g.State.QuestionState = domain.QuestionStateBidding
	return StakePicked{Question: q, Data: d}, nil
}

func (h *pickStake) HandleTimer(ctx *Context, _ Mutation) TimerResult {
	return dropSavedShowing(startTimer(ctx, domain.StakeBiddingDuration))
}

func (h *pickStake) CollectBroadcasts(ctx *Context, m Mutation, tr TimerResult) []broadcast.Intent {
	picked := m.(StakePicked)
	d := picked.Data
	return []broadcast.Intent{
		broadcast.ToGame(broadcast.EventStakeQuestionPicked, broadcast.StakeQuestionPickedPayload{
			PickerPlayerID: d.PickerPlayerID,
			QuestionID:     d.QuestionID,
			NominalPrice:   d.NominalPrice,
			MaxPrice:       d.MaxPrice,
			BiddingOrder:   d.BiddingOrder,
			Bids:           d.Bids,
			CurrentBidder:  d.CurrentBidder(),
			Timer:          tr.Timer,
		}),
	}
}

// pickSecret starts a secret question transfer.
type pickSecret struct{ edge }

func newPickSecret() Handler {
	return &pickSecret{edge{"pick-secret", domain.PhaseChoosing, domain.PhaseSecretQuestionTransfer}}
}

func (h *pickSecret) CanTransition(ctx *Context) bool {
	return h.at(ctx) && pickedOfType(ctx, domain.QuestionTypeSecret)
}

func (h *pickSecret) Mutate(ctx *Context) (Mutation, error) {
	q, _ := pickedQuestion(ctx)
	g := ctx.Game
	openQuestion(g, q)
	transfer := q.TransferType
	if transfer == "" {
		transfer = domain.TransferAny
	}
	d := &domain.SecretQuestionData{
		PickerPlayerID: picker(ctx),
		QuestionID:     q.ID,
		TransferType:   transfer,
	}
	g.State.SecretQuestionData = d
	g.State.QuestionState = domain.QuestionStateSecretTransfer
	return SecretPicked{Question: q, Data: d}, nil
}

func (h *pickSecret) HandleTimer(ctx *Context, _ Mutation) TimerResult {
	return dropSavedShowing(startTimer(ctx, domain.SecretTransferDuration))
}

func (h *pickSecret) CollectBroadcasts(ctx *Context, m Mutation, tr TimerResult) []broadcast.Intent {
	d := m.(SecretPicked).Data
	return []broadcast.Intent{
		broadcast.ToGame(broadcast.EventSecretQuestionPicked, broadcast.SecretQuestionPickedPayload{
			PickerPlayerID: d.PickerPlayerID,
			QuestionID:     d.QuestionID,
			TransferType:   d.TransferType,
			Timer:          tr.Timer,
		}),
	}
}
