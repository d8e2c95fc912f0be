package gameplay

import (
	"context"

	"github.com/dom/quiz-engine/internal/broadcast"
	"github.com/dom/quiz-engine/internal/domain"
	"github.com/dom/quiz-engine/internal/engine"
	"github.com/dom/quiz-engine/internal/transition"
)

func (s *Service) themeEliminate(ctx context.Context, ac *engine.ActionContext) ([]engine.Mutation, error) {
	game, p, err := member(ac)
	if err != nil {
		return nil, err
	}
	if err := inPhase(game, domain.PhaseFinalThemeElimination); err != nil {
		return nil, err
	}
	if err := notPaused(game); err != nil {
		return nil, err
	}

	turn := game.State.FinalRoundData.CurrentTurnPlayer()
	switch p.Role {
	case domain.RoleShowman:
	case domain.RolePlayer:
		if turn == nil || *turn != p.Meta.ID {
			return nil, domain.NewClientError(domain.ErrCodeNotYourTurn, "it is not your turn to eliminate a theme")
		}
	default:
		return nil, domain.NewClientError(domain.ErrCodeWrongRole, "spectators cannot eliminate themes")
	}

	var req ThemeEliminatePayload
	if err := ac.Action.Decode(&req); err != nil {
		return nil, err
	}
	by := p.Meta.ID
	if turn != nil {
		by = *turn
	}
	return s.eliminate(ctx, ac, actorOf(p), by, req.ThemeID)
}

// eliminate removes a theme for the finalist whose turn it is. Elimination
// continues on a fresh countdown until one theme is left.
func (s *Service) eliminate(ctx context.Context, ac *engine.ActionContext, actor transition.Actor, by, themeID int) ([]engine.Mutation, error) {
	game := ac.Game
	if err := game.EliminateTheme(game.State.FinalRoundData, themeID); err != nil {
		return nil, err
	}
	eliminated := broadcast.ThemeEliminatedPayload{
		PlayerID:     by,
		ThemeID:      themeID,
		TurnPlayerID: game.State.CurrentTurnPlayerID,
	}

	if len(game.RemainingThemes()) > 1 {
		timer := restartTimer(ac, domain.ThemeEliminationDuration)
		eliminated.Timer = timer
		return []engine.Mutation{
			engine.SaveGame{Game: game},
			engine.SetTimer{Timer: timer},
			engine.Broadcast{Intents: []broadcast.Intent{
				broadcast.ToGame(broadcast.EventThemeEliminated, eliminated),
			}},
		}, nil
	}

	res, err := s.settle(ctx, ac, actor)
	if err != nil {
		return nil, err
	}
	return commit(game, res, broadcast.ToGame(broadcast.EventThemeEliminated, eliminated)), nil
}

func (s *Service) finalBid(ctx context.Context, ac *engine.ActionContext) ([]engine.Mutation, error) {
	game, p, err := contestant(ac)
	if err != nil {
		return nil, err
	}
	if err := inPhase(game, domain.PhaseFinalBidding); err != nil {
		return nil, err
	}
	if err := notPaused(game); err != nil {
		return nil, err
	}
	var req FinalBidPayload
	if err := ac.Action.Decode(&req); err != nil {
		return nil, err
	}
	if err := game.PlaceFinalBid(game.State.FinalRoundData, p.Meta.ID, req.Amount); err != nil {
		return nil, err
	}

	res, err := s.settle(ctx, ac, actorOf(p))
	if err != nil {
		return nil, err
	}
	// Amounts stay hidden until the answers are reviewed.
	return commit(game, res, broadcast.ToGame(broadcast.EventFinalBidSubmitted,
		broadcast.FinalBidSubmittedPayload{PlayerID: p.Meta.ID})), nil
}

func (s *Service) finalAnswer(ctx context.Context, ac *engine.ActionContext) ([]engine.Mutation, error) {
	game, p, err := contestant(ac)
	if err != nil {
		return nil, err
	}
	if err := inPhase(game, domain.PhaseFinalAnswering); err != nil {
		return nil, err
	}
	if err := notPaused(game); err != nil {
		return nil, err
	}
	var req FinalAnswerPayload
	if err := ac.Action.Decode(&req); err != nil {
		return nil, err
	}
	if err := game.SubmitFinalAnswer(game.State.FinalRoundData, p.Meta.ID, req.Answer); err != nil {
		return nil, err
	}

	playerID, text := p.Meta.ID, req.Answer
	submitted := broadcast.ToGameProjected(broadcast.EventFinalAnswerSubmitted, func(r broadcast.Recipient) any {
		if r.Role == domain.RoleShowman {
			return broadcast.FinalAnswerSubmittedPayload{PlayerID: playerID, Answer: text}
		}
		return broadcast.FinalAnswerSubmittedPayload{PlayerID: playerID}
	})

	res, err := s.settle(ctx, ac, actorOf(p))
	if err != nil {
		return nil, err
	}
	return commit(game, res, submitted), nil
}

func (s *Service) finalReview(ctx context.Context, ac *engine.ActionContext) ([]engine.Mutation, error) {
	game, p, err := showman(ac)
	if err != nil {
		return nil, err
	}
	if err := inPhase(game, domain.PhaseFinalReviewing); err != nil {
		return nil, err
	}
	var req FinalReviewPayload
	if err := ac.Action.Decode(&req); err != nil {
		return nil, err
	}
	answer, err := game.ReviewFinalAnswer(game.State.FinalRoundData, req.PlayerID, req.Correct)
	if err != nil {
		return nil, err
	}
	reviewed := broadcast.FinalAnswerReviewedPayload{
		PlayerID:   req.PlayerID,
		IsCorrect:  req.Correct,
		ScoreDelta: answer.ScoreDelta,
	}
	if finalist := game.FindPlayer(req.PlayerID); finalist != nil {
		reviewed.Score = finalist.Score
	}

	res, err := s.settle(ctx, ac, actorOf(p))
	if err != nil {
		return nil, err
	}
	return commit(game, res, broadcast.ToGame(broadcast.EventFinalAnswerReviewed, reviewed)), nil
}
