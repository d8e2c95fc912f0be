package gameplay

import (
	"context"

	"github.com/dom/quiz-engine/internal/broadcast"
	"github.com/dom/quiz-engine/internal/domain"
	"github.com/dom/quiz-engine/internal/engine"
	"github.com/dom/quiz-engine/internal/transition"
)

func (s *Service) pickQuestion(ctx context.Context, ac *engine.ActionContext) ([]engine.Mutation, error) {
	game, p, err := member(ac)
	if err != nil {
		return nil, err
	}
	if err := inPhase(game, domain.PhaseChoosing); err != nil {
		return nil, err
	}
	if err := notPaused(game); err != nil {
		return nil, err
	}
	switch p.Role {
	case domain.RoleShowman:
	case domain.RolePlayer:
		if turn := game.State.CurrentTurnPlayerID; turn == nil || *turn != p.Meta.ID {
			return nil, domain.NewClientError(domain.ErrCodeNotYourTurn, "it is not your turn to pick")
		}
	default:
		return nil, domain.NewClientError(domain.ErrCodeWrongRole, "spectators cannot pick questions")
	}

	var req PickQuestionPayload
	if err := ac.Action.Decode(&req); err != nil {
		return nil, err
	}
	q, _ := domain.PackageStore{}.FindQuestion(game, req.QuestionID)
	if q == nil {
		return nil, domain.NewClientError(domain.ErrCodeQuestionNotFound, "question %d not found", req.QuestionID)
	}
	if q.IsPlayed {
		return nil, domain.NewClientError(domain.ErrCodeQuestionNotFound, "question %d was already played", req.QuestionID)
	}

	res, err := s.transit(ctx, ac, transition.TriggerUserAction, actorOf(p),
		transition.PickQuestionPayload{QuestionID: req.QuestionID})
	if err != nil {
		return nil, err
	}
	if err := requireTransition(res, ac.Action.Type); err != nil {
		return nil, err
	}
	return commit(game, res), nil
}

func (s *Service) mediaDownloaded(ctx context.Context, ac *engine.ActionContext) ([]engine.Mutation, error) {
	game, p, err := contestant(ac)
	if err != nil {
		return nil, err
	}
	if err := inPhase(game, domain.PhaseShowing); err != nil {
		return nil, err
	}
	if game.State.QuestionState != domain.QuestionStateMediaDownloading {
		return nil, domain.NewClientError(domain.ErrCodeInvalidPhase, "no media is loading")
	}
	if !game.State.IsReady(p.Meta.ID) {
		game.State.ReadyPlayers = append(game.State.ReadyPlayers, p.Meta.ID)
	}

	res, err := s.settle(ctx, ac, actorOf(p))
	if err != nil {
		return nil, err
	}
	if res.Success {
		return commit(game, res), nil
	}
	return commit(game, nil, broadcast.ToGame(broadcast.EventMediaDownloaded,
		broadcast.MediaDownloadedPayload{PlayerID: p.Meta.ID})), nil
}

func (s *Service) buzz(ctx context.Context, ac *engine.ActionContext) ([]engine.Mutation, error) {
	game, p, err := contestant(ac)
	if err != nil {
		return nil, err
	}
	if err := inPhase(game, domain.PhaseShowing); err != nil {
		return nil, err
	}
	if err := notPaused(game); err != nil {
		return nil, err
	}
	switch {
	case game.State.QuestionState != domain.QuestionStateShowing:
		return nil, domain.NewClientError(domain.ErrCodeInvalidPhase, "the question is not open for answers")
	case p.IsRestricted:
		return nil, domain.NewClientError(domain.ErrCodeRestricted, "you are restricted from answering")
	case game.State.HasAnswered(p.Meta.ID), game.State.HasSkipped(p.Meta.ID):
		return nil, domain.NewClientError(domain.ErrCodeAlreadyAnswered, "you already answered this question")
	}

	res, err := s.transit(ctx, ac, transition.TriggerUserAction, actorOf(p), transition.BuzzPayload{})
	if err != nil {
		return nil, err
	}
	if err := requireTransition(res, ac.Action.Type); err != nil {
		return nil, err
	}
	return commit(game, res), nil
}

func (s *Service) skip(ctx context.Context, ac *engine.ActionContext) ([]engine.Mutation, error) {
	game, p, err := contestant(ac)
	if err != nil {
		return nil, err
	}
	if err := inPhase(game, domain.PhaseShowing); err != nil {
		return nil, err
	}
	if game.State.HasAnswered(p.Meta.ID) || game.State.HasSkipped(p.Meta.ID) {
		return nil, domain.NewClientError(domain.ErrCodeAlreadyAnswered, "you already answered or skipped this question")
	}
	game.State.SkippedPlayers = append(game.State.SkippedPlayers, p.Meta.ID)

	res, err := s.settle(ctx, ac, actorOf(p))
	if err != nil {
		return nil, err
	}
	return commit(game, res, broadcast.ToGame(broadcast.EventPlayerSkipped,
		broadcast.PlayerSkippedPayload{PlayerID: p.Meta.ID})), nil
}

// forceSkip lets the showman end whatever is currently waiting.
func (s *Service) forceSkip(ctx context.Context, ac *engine.ActionContext) ([]engine.Mutation, error) {
	game, p, err := showman(ac)
	if err != nil {
		return nil, err
	}
	err = inPhase(game,
		domain.PhaseShowing,
		domain.PhaseShowingAnswer,
		domain.PhaseStakeBidding,
		domain.PhaseSecretQuestionTransfer,
		domain.PhaseFinalBidding,
		domain.PhaseFinalAnswering,
	)
	if err != nil {
		return nil, err
	}

	res, err := s.transit(ctx, ac, transition.TriggerUserAction, actorOf(p), transition.ForceSkipPayload{})
	if err != nil {
		return nil, err
	}
	if err := requireTransition(res, ac.Action.Type); err != nil {
		return nil, err
	}
	return commit(game, res), nil
}

func (s *Service) answerResult(ctx context.Context, ac *engine.ActionContext) ([]engine.Mutation, error) {
	game, p, err := showman(ac)
	if err != nil {
		return nil, err
	}
	if err := inPhase(game, domain.PhaseAnswering); err != nil {
		return nil, err
	}
	var req AnswerResultPayload
	if err := ac.Action.Decode(&req); err != nil {
		return nil, err
	}

	res, err := s.transit(ctx, ac, transition.TriggerUserAction, actorOf(p),
		transition.AnswerResultPayload{Correct: req.Correct})
	if err != nil {
		return nil, err
	}
	if err := requireTransition(res, ac.Action.Type); err != nil {
		return nil, err
	}
	return commit(game, res), nil
}
