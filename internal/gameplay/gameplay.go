// Package gameplay holds the business handler of every game action. Handlers
// validate against the reconstructed game, apply the domain edit and let the
// transition router decide whether the phase moves.
package gameplay

import (
	"context"
	"slices"
	"time"

	"github.com/dom/quiz-engine/internal/broadcast"
	"github.com/dom/quiz-engine/internal/domain"
	"github.com/dom/quiz-engine/internal/engine"
	"github.com/dom/quiz-engine/internal/transition"
)

type Service struct {
	router *transition.Router
}

func NewService(router *transition.Router) *Service {
	return &Service{router: router}
}

// Register binds every action type to its handler.
func (s *Service) Register(reg *engine.Registry) {
	handlers := map[engine.ActionType]engine.HandlerFunc{
		engine.ActionJoin:            s.join,
		engine.ActionLeave:           s.leave,
		engine.ActionDisconnect:      s.leave,
		engine.ActionStart:           s.start,
		engine.ActionPickQuestion:    s.pickQuestion,
		engine.ActionMediaDownloaded: s.mediaDownloaded,
		engine.ActionBuzz:            s.buzz,
		engine.ActionSkip:            s.skip,
		engine.ActionForceSkip:       s.forceSkip,
		engine.ActionAnswerResult:    s.answerResult,
		engine.ActionStakeBid:        s.stakeBid,
		engine.ActionSecretTransfer:  s.secretTransfer,
		engine.ActionThemeEliminate:  s.themeEliminate,
		engine.ActionFinalBid:        s.finalBid,
		engine.ActionFinalAnswer:     s.finalAnswer,
		engine.ActionFinalReview:     s.finalReview,
		engine.ActionPause:           s.pause,
		engine.ActionResume:          s.resume,
		engine.ActionScoreChange:     s.scoreChange,
		engine.ActionTurnChange:      s.turnChange,
		engine.ActionRestrict:        s.restrict,
		engine.ActionTimerExpired:    s.timerExpired,
	}
	for t, h := range handlers {
		reg.Register(t, h)
	}
}

// transit runs the router from the action's game. The parked showing timer
// is only read when an answer can end.
func (s *Service) transit(ctx context.Context, ac *engine.ActionContext, trigger transition.Trigger, actor transition.Actor, payload transition.Payload) (*transition.Result, error) {
	tc := &transition.Context{
		Game:        ac.Game,
		Trigger:     trigger,
		Actor:       actor,
		Payload:     payload,
		ActiveTimer: ac.Timer,
		Now:         ac.Now,
	}
	if domain.GetGamePhase(ac.Game) == domain.PhaseAnswering && ac.Saved != nil {
		saved, err := ac.Saved.GetSaved(ctx, ac.Game.ID, domain.SavedTimerShowing)
		if err != nil {
			return nil, &domain.ServerError{Op: "load saved timer", Err: err}
		}
		tc.SavedShowingTimer = saved
	}
	return s.router.Run(tc)
}

// settle re-evaluates the phase after a domain edit made by the action.
func (s *Service) settle(ctx context.Context, ac *engine.ActionContext, actor transition.Actor) (*transition.Result, error) {
	return s.transit(ctx, ac, transition.TriggerConditionMet, actor, nil)
}

// commit turns an optional transition result into mutations. lead intents are
// emitted before the transition's own broadcasts.
func commit(game *domain.Game, res *transition.Result, lead ...broadcast.Intent) []engine.Mutation {
	if res == nil || !res.Success {
		out := []engine.Mutation{engine.SaveGame{Game: game}}
		if len(lead) > 0 {
			out = append(out, engine.Broadcast{Intents: lead})
		}
		return out
	}
	merged := *res
	merged.Broadcasts = append(slices.Clone(lead), res.Broadcasts...)
	return engine.FromTransition(&merged)
}

// requireTransition maps "no edge fired" on a user action to INVALID_PHASE.
func requireTransition(res *transition.Result, action engine.ActionType) error {
	if res == nil || !res.Success {
		return domain.NewClientError(domain.ErrCodeInvalidPhase, "%s is not possible now", action)
	}
	return nil
}

// member returns the caller's player record.
func member(ac *engine.ActionContext) (*domain.Game, *domain.Player, error) {
	game, err := ac.RequireGame()
	if err != nil {
		return nil, nil, err
	}
	p := game.FindPlayer(callerID(ac))
	if p == nil || !p.IsInGame() {
		return nil, nil, domain.NewClientError(domain.ErrCodePlayerNotFound, "you are not in this game")
	}
	return game, p, nil
}

// callerID prefers the authenticated user of the action over the session.
func callerID(ac *engine.ActionContext) int {
	if ac.Action.UserID != 0 {
		return ac.Action.UserID
	}
	if ac.Session != nil {
		return ac.Session.UserID
	}
	return 0
}

func showman(ac *engine.ActionContext) (*domain.Game, *domain.Player, error) {
	game, p, err := member(ac)
	if err != nil {
		return nil, nil, err
	}
	if p.Role != domain.RoleShowman {
		return nil, nil, domain.NewClientError(domain.ErrCodeWrongRole, "only the showman can do that")
	}
	return game, p, nil
}

func contestant(ac *engine.ActionContext) (*domain.Game, *domain.Player, error) {
	game, p, err := member(ac)
	if err != nil {
		return nil, nil, err
	}
	if !p.IsActivePlayer() {
		return nil, nil, domain.NewClientError(domain.ErrCodeWrongRole, "only players can do that")
	}
	return game, p, nil
}

func actorOf(p *domain.Player) transition.Actor {
	return transition.Actor{PlayerID: p.Meta.ID, Role: p.Role}
}

func inPhase(game *domain.Game, phases ...domain.GamePhase) error {
	phase := domain.GetGamePhase(game)
	if !slices.Contains(phases, phase) {
		return domain.NewClientError(domain.ErrCodeInvalidPhase, "not allowed during %s", phase)
	}
	return nil
}

func notPaused(game *domain.Game) error {
	if game.State.IsPaused {
		return domain.NewClientError(domain.ErrCodeGamePaused, "the game is paused")
	}
	return nil
}

// restartTimer replaces the running countdown with a fresh one.
func restartTimer(ac *engine.ActionContext, d time.Duration) *domain.Timer {
	t := domain.NewTimer(d, ac.Now)
	if ac.Game.State.IsPaused {
		t.Pause(ac.Now)
	}
	ac.Game.State.Timer = t
	return t
}
