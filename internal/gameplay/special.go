package gameplay

import (
	"context"
	"slices"

	"github.com/dom/quiz-engine/internal/broadcast"
	"github.com/dom/quiz-engine/internal/domain"
	"github.com/dom/quiz-engine/internal/engine"
	"github.com/dom/quiz-engine/internal/transition"
)

// stakeBid records a bid and hands the turn on. Each accepted bid restarts
// the bidding countdown; the last one closes bidding.
func (s *Service) stakeBid(ctx context.Context, ac *engine.ActionContext) ([]engine.Mutation, error) {
	game, p, err := contestant(ac)
	if err != nil {
		return nil, err
	}
	if err := inPhase(game, domain.PhaseStakeBidding); err != nil {
		return nil, err
	}
	if err := notPaused(game); err != nil {
		return nil, err
	}
	var req StakeBidPayload
	if err := ac.Action.Decode(&req); err != nil {
		return nil, err
	}

	d := game.State.StakeQuestionData
	out, err := game.PlaceStakeBid(d, p.Meta.ID, req.Type, req.Amount)
	if err != nil {
		return nil, err
	}
	submitted := broadcast.StakeBidSubmittedPayload{
		PlayerID:   p.Meta.ID,
		Bid:        out.Bid,
		AutoPassed: out.AutoPassed,
		NextBidder: d.CurrentBidder(),
		HighestBid: d.HighestBid,
	}

	if out.Complete {
		res, err := s.settle(ctx, ac, actorOf(p))
		if err != nil {
			return nil, err
		}
		return commit(game, res, broadcast.ToGame(broadcast.EventStakeBidSubmitted, submitted)), nil
	}

	timer := restartTimer(ac, domain.StakeBiddingDuration)
	submitted.Timer = timer
	return []engine.Mutation{
		engine.SaveGame{Game: game},
		engine.SetTimer{Timer: timer},
		engine.Broadcast{Intents: []broadcast.Intent{
			broadcast.ToGame(broadcast.EventStakeBidSubmitted, submitted),
		}},
	}, nil
}

func (s *Service) secretTransfer(ctx context.Context, ac *engine.ActionContext) ([]engine.Mutation, error) {
	game, p, err := member(ac)
	if err != nil {
		return nil, err
	}
	if err := inPhase(game, domain.PhaseSecretQuestionTransfer); err != nil {
		return nil, err
	}
	if err := notPaused(game); err != nil {
		return nil, err
	}
	d := game.State.SecretQuestionData
	if p.Role != domain.RoleShowman && p.Meta.ID != d.PickerPlayerID {
		return nil, domain.NewClientError(domain.ErrCodeNotYourTurn, "only the picker can hand the question over")
	}

	var req SecretTransferPayload
	if err := ac.Action.Decode(&req); err != nil {
		return nil, err
	}
	if !slices.Contains(transition.ValidSecretTargets(game, d), req.TargetPlayerID) {
		return nil, domain.NewClientError(domain.ErrCodePlayerNotFound, "player %d cannot receive this question", req.TargetPlayerID)
	}

	res, err := s.transit(ctx, ac, transition.TriggerUserAction, actorOf(p),
		transition.SecretTransferPayload{TargetPlayerID: req.TargetPlayerID})
	if err != nil {
		return nil, err
	}
	if err := requireTransition(res, ac.Action.Type); err != nil {
		return nil, err
	}
	return commit(game, res), nil
}
