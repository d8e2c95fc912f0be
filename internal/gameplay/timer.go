package gameplay

import (
	"context"

	"github.com/dom/quiz-engine/internal/domain"
	"github.com/dom/quiz-engine/internal/engine"
	"github.com/dom/quiz-engine/internal/logger"
	"github.com/dom/quiz-engine/internal/transition"
	"go.uber.org/zap"
)

// timerExpired feeds an expired countdown into the router. Expiries that
// arrive while paused or for a countdown that was replaced are dropped. An
// early expiry, from clock skew between processes, re-arms the key so the
// countdown still fires.
func (s *Service) timerExpired(ctx context.Context, ac *engine.ActionContext) ([]engine.Mutation, error) {
	game := ac.Game
	if game == nil || !game.IsStarted() || game.IsFinished() {
		return nil, nil
	}
	timer := game.State.Timer
	switch {
	case game.State.IsPaused:
		logger.Debug("Ignoring timer expiry while paused", zap.String("gameId", game.ID))
		return nil, nil
	case timer == nil:
		return nil, nil
	case timer.Remaining(ac.Now) > 0:
		logger.Debug("Re-arming timer that has not run out",
			zap.String("gameId", game.ID),
			zap.Duration("remaining", timer.Remaining(ac.Now)),
		)
		return []engine.Mutation{engine.SetTimer{Timer: timer}}, nil
	}

	if domain.GetGamePhase(game) == domain.PhaseFinalThemeElimination {
		return s.autoEliminate(ctx, ac)
	}

	res, err := s.transit(ctx, ac, transition.TriggerTimerExpired, transition.SystemActor(), nil)
	if err != nil {
		return nil, err
	}
	if !res.Success {
		logger.Debug("Timer expiry matched no transition",
			zap.String("gameId", game.ID),
			zap.String("phase", res.From.String()),
		)
		return nil, nil
	}
	return commit(game, res), nil
}

// autoEliminate removes the first remaining theme for a finalist who let the
// countdown run out.
func (s *Service) autoEliminate(ctx context.Context, ac *engine.ActionContext) ([]engine.Mutation, error) {
	game := ac.Game
	themes := game.RemainingThemes()
	if len(themes) < 2 {
		res, err := s.settle(ctx, ac, transition.SystemActor())
		if err != nil {
			return nil, err
		}
		return commit(game, res), nil
	}
	by := 0
	if turn := game.State.FinalRoundData.CurrentTurnPlayer(); turn != nil {
		by = *turn
	}
	return s.eliminate(ctx, ac, transition.SystemActor(), by, themes[0].ID)
}
