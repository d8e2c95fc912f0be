package gameplay

import (
	"context"
	"slices"

	"github.com/dom/quiz-engine/internal/broadcast"
	"github.com/dom/quiz-engine/internal/domain"
	"github.com/dom/quiz-engine/internal/engine"
	"github.com/dom/quiz-engine/internal/transition"
)

func running(game *domain.Game) error {
	if !game.IsStarted() || game.IsFinished() {
		return domain.NewClientError(domain.ErrCodeInvalidPhase, "the game is not running")
	}
	return nil
}

// pause freezes the active countdown. The timer key is rewritten without an
// expiry so it cannot fire while paused.
func (s *Service) pause(_ context.Context, ac *engine.ActionContext) ([]engine.Mutation, error) {
	game, _, err := showman(ac)
	if err != nil {
		return nil, err
	}
	if err := running(game); err != nil {
		return nil, err
	}
	if game.State.IsPaused {
		return nil, domain.NewClientError(domain.ErrCodeGamePaused, "the game is already paused")
	}

	game.State.IsPaused = true
	mutations := []engine.Mutation{engine.SaveGame{Game: game}}
	timer := game.State.Timer
	if timer != nil {
		timer.Pause(ac.Now)
		mutations = append(mutations, engine.SetTimer{Timer: timer})
	}
	return append(mutations, engine.Broadcast{Intents: []broadcast.Intent{
		broadcast.ToGame(broadcast.EventGamePaused, broadcast.GamePausedPayload{Timer: timer}),
	}}), nil
}

func (s *Service) resume(_ context.Context, ac *engine.ActionContext) ([]engine.Mutation, error) {
	game, _, err := showman(ac)
	if err != nil {
		return nil, err
	}
	if err := running(game); err != nil {
		return nil, err
	}
	if !game.State.IsPaused {
		return nil, domain.NewClientError(domain.ErrCodeInvalidPhase, "the game is not paused")
	}

	game.State.IsPaused = false
	mutations := []engine.Mutation{engine.SaveGame{Game: game}}
	timer := game.State.Timer
	if timer != nil {
		timer.Resume(ac.Now)
		mutations = append(mutations, engine.SetTimer{Timer: timer})
	}
	return append(mutations, engine.Broadcast{Intents: []broadcast.Intent{
		broadcast.ToGame(broadcast.EventGameUnpaused, broadcast.GamePausedPayload{Timer: timer}),
	}}), nil
}

func (s *Service) scoreChange(_ context.Context, ac *engine.ActionContext) ([]engine.Mutation, error) {
	game, _, err := showman(ac)
	if err != nil {
		return nil, err
	}
	var req ScoreChangePayload
	if err := ac.Action.Decode(&req); err != nil {
		return nil, err
	}
	target := game.FindPlayer(req.PlayerID)
	if target == nil || target.Role != domain.RolePlayer {
		return nil, domain.NewClientError(domain.ErrCodePlayerNotFound, "player %d not found", req.PlayerID)
	}
	target.Score = req.Score
	return commit(game, nil, broadcast.ToGame(broadcast.EventScoreChanged,
		broadcast.ScoreChangedPayload{PlayerID: target.Meta.ID, Score: target.Score})), nil
}

func (s *Service) turnChange(_ context.Context, ac *engine.ActionContext) ([]engine.Mutation, error) {
	game, _, err := showman(ac)
	if err != nil {
		return nil, err
	}
	if err := running(game); err != nil {
		return nil, err
	}
	var req TurnChangePayload
	if err := ac.Action.Decode(&req); err != nil {
		return nil, err
	}
	if req.PlayerID != nil {
		target := game.FindPlayer(*req.PlayerID)
		if target == nil || !target.IsActivePlayer() {
			return nil, domain.NewClientError(domain.ErrCodePlayerNotFound, "player %d not found", *req.PlayerID)
		}
		if d := game.State.FinalRoundData; d != nil {
			if idx := slices.Index(d.TurnOrder, *req.PlayerID); idx >= 0 {
				d.CurrentTurnIndex = idx
			}
		}
	}
	game.State.CurrentTurnPlayerID = req.PlayerID
	return commit(game, nil, broadcast.ToGame(broadcast.EventTurnPlayerChanged,
		broadcast.TurnPlayerChangedPayload{PlayerID: req.PlayerID})), nil
}

// restrict updates moderation flags. A ban removes the participant for good
// and is handled like a departure.
func (s *Service) restrict(ctx context.Context, ac *engine.ActionContext) ([]engine.Mutation, error) {
	game, _, err := showman(ac)
	if err != nil {
		return nil, err
	}
	var req RestrictPayload
	if err := ac.Action.Decode(&req); err != nil {
		return nil, err
	}
	target := game.FindPlayer(req.PlayerID)
	if target == nil {
		return nil, domain.NewClientError(domain.ErrCodePlayerNotFound, "player %d not found", req.PlayerID)
	}
	if target.Role == domain.RoleShowman {
		return nil, domain.NewClientError(domain.ErrCodeWrongRole, "the showman cannot be restricted")
	}

	target.IsMuted = req.Muted
	target.IsRestricted = req.Restricted
	target.IsBanned = req.Banned
	restricted := broadcast.ToGame(broadcast.EventPlayerRestricted, broadcast.PlayerRestrictedPayload{
		PlayerID:     target.Meta.ID,
		IsMuted:      target.IsMuted,
		IsRestricted: target.IsRestricted,
		IsBanned:     target.IsBanned,
	})
	if !req.Banned {
		if running(game) != nil {
			return commit(game, nil, restricted), nil
		}
		// Restricting the last eligible answerer can close the question.
		res, err := s.settle(ctx, ac, transition.SystemActor())
		if err != nil {
			return nil, err
		}
		return commit(game, res, restricted), nil
	}

	game.RemovePlayer(target.Meta.ID)
	return s.playerGone(ctx, ac, target.Meta.ID, restricted,
		broadcast.ToGame(broadcast.EventPlayerLeft, broadcast.PlayerLeftPayload{UserID: target.Meta.ID}))
}
