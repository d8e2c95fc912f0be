package transition

import (
	"time"

	"github.com/dom/quiz-engine/internal/domain"
)

// Trigger is why a transition is being evaluated.
type Trigger string

const (
	TriggerUserAction   Trigger = "USER_ACTION"
	TriggerTimerExpired Trigger = "TIMER_EXPIRED"
	TriggerPlayerLeft   Trigger = "PLAYER_LEFT"
	TriggerConditionMet Trigger = "CONDITION_MET"
)

// Actor is who caused the evaluation. System actors are timers and chains.
type Actor struct {
	PlayerID int
	Role     domain.PlayerRole
	System   bool
}

func SystemActor() Actor {
	return Actor{System: true}
}

// Payload is the per-trigger input of a transition.
type Payload interface {
	payload()
}

type StartPayload struct{}

type PickQuestionPayload struct {
	QuestionID int
}

type BuzzPayload struct{}

type ForceSkipPayload struct{}

type AnswerResultPayload struct {
	Correct bool
}

type SecretTransferPayload struct {
	TargetPlayerID int
}

type PlayerLeftPayload struct {
	PlayerID int
}

func (StartPayload) payload()          {}
func (PickQuestionPayload) payload()   {}
func (BuzzPayload) payload()           {}
func (ForceSkipPayload) payload()      {}
func (AnswerResultPayload) payload()   {}
func (SecretTransferPayload) payload() {}
func (PlayerLeftPayload) payload()     {}

// Context is the input of one evaluation. ActiveTimer and SavedShowingTimer
// are the persisted timers read before the action ran.
type Context struct {
	Game              *domain.Game
	Trigger           Trigger
	Actor             Actor
	Payload           Payload
	ActiveTimer       *domain.Timer
	SavedShowingTimer *domain.Timer
	Now               time.Time
}

func (c *Context) Phase() domain.GamePhase {
	return domain.GetGamePhase(c.Game)
}

func (c *Context) IsUserAction() bool {
	return c.Trigger == TriggerUserAction
}

func (c *Context) IsTimerExpired() bool {
	return c.Trigger == TriggerTimerExpired
}

// currentTimer is the running countdown, preferring the persisted key.
func (c *Context) currentTimer() *domain.Timer {
	if c.ActiveTimer != nil {
		return c.ActiveTimer
	}
	return c.Game.State.Timer
}

func (c *Context) isForceSkip() bool {
	_, ok := c.Payload.(ForceSkipPayload)
	return ok && c.IsUserAction()
}

// answerVerdict maps the trigger to the answering player's result. ok is
// false when the context carries no verdict.
func (c *Context) answerVerdict() (result domain.AnswerResultType, ok bool) {
	switch c.Trigger {
	case TriggerUserAction:
		p, isAnswer := c.Payload.(AnswerResultPayload)
		if !isAnswer {
			return "", false
		}
		if p.Correct {
			return domain.AnswerCorrect, true
		}
		return domain.AnswerWrong, true
	case TriggerTimerExpired:
		return domain.AnswerWrong, true
	case TriggerPlayerLeft:
		p, isLeft := c.Payload.(PlayerLeftPayload)
		answering := c.Game.State.AnsweringPlayer
		if isLeft && answering != nil && *answering == p.PlayerID {
			return domain.AnswerSkip, true
		}
	}
	return "", false
}
