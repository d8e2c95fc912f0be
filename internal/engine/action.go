package engine

import (
	"encoding/json"
	"time"

	"github.com/dom/quiz-engine/internal/domain"
	"github.com/google/uuid"
)

type ActionType string

const (
	ActionJoin            ActionType = "JOIN"
	ActionLeave           ActionType = "LEAVE"
	ActionDisconnect      ActionType = "DISCONNECT"
	ActionStart           ActionType = "START"
	ActionPickQuestion    ActionType = "PICK_QUESTION"
	ActionMediaDownloaded ActionType = "MEDIA_DOWNLOADED"
	ActionBuzz            ActionType = "BUZZ"
	ActionSkip            ActionType = "SKIP"
	ActionForceSkip       ActionType = "FORCE_SKIP"
	ActionAnswerResult    ActionType = "ANSWER_RESULT"
	ActionStakeBid        ActionType = "STAKE_BID"
	ActionSecretTransfer  ActionType = "SECRET_TRANSFER"
	ActionThemeEliminate  ActionType = "THEME_ELIMINATE"
	ActionFinalBid        ActionType = "FINAL_BID"
	ActionFinalAnswer     ActionType = "FINAL_ANSWER"
	ActionFinalReview     ActionType = "FINAL_REVIEW"
	ActionPause           ActionType = "PAUSE"
	ActionResume          ActionType = "RESUME"
	ActionScoreChange     ActionType = "SCORE_CHANGE"
	ActionTurnChange      ActionType = "TURN_CHANGE"
	ActionRestrict        ActionType = "RESTRICT"
	ActionTimerExpired    ActionType = "TIMER_EXPIRED"
)

// Action is one request against a game. It is also the queue entry format,
// so the JSON names are part of the store contract.
type Action struct {
	ID        string          `json:"id"`
	GameID    string          `json:"gameId"`
	SocketID  string          `json:"socketId,omitempty"`
	UserID    int             `json:"userId"`
	Type      ActionType      `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

func NewAction(gameID, socketID string, userID int, actionType ActionType, payload json.RawMessage) Action {
	return Action{
		ID:        uuid.NewString(),
		GameID:    gameID,
		SocketID:  socketID,
		UserID:    userID,
		Type:      actionType,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}
}

// SystemAction builds an action raised by the server itself, such as a
// timer expiry. It has no connection to report errors to.
func SystemAction(gameID string, actionType ActionType) Action {
	return NewAction(gameID, "", 0, actionType, nil)
}

func (a Action) IsSystem() bool {
	return a.SocketID == "" && a.UserID == 0
}

// Decode unmarshals the payload into v, reporting bad input as a client error.
func (a Action) Decode(v any) error {
	if len(a.Payload) == 0 {
		return domain.NewClientError(domain.ErrCodeInvalidPayload, "%s requires a payload", a.Type)
	}
	if err := json.Unmarshal(a.Payload, v); err != nil {
		return domain.NewClientError(domain.ErrCodeInvalidPayload, "invalid %s payload: %v", a.Type, err)
	}
	return nil
}
