package broadcast

import "github.com/dom/quiz-engine/internal/domain"

type Target string

const (
	TargetSocket Target = "SOCKET"
	TargetGame   Target = "GAME"
	TargetAll    Target = "ALL"
)

// Recipient is one connection resolved for a projected broadcast.
type Recipient struct {
	SocketID string
	UserID   int
	Role     domain.PlayerRole
}

// Intent declares who should receive an event. A GAME intent with Project set
// is emitted per connection with the projected payload instead of Payload.
type Intent struct {
	Event    Event
	Payload  any
	Target   Target
	SocketID string
	Project  func(Recipient) any
}

func ToSocket(socketID string, event Event, payload any) Intent {
	return Intent{Event: event, Payload: payload, Target: TargetSocket, SocketID: socketID}
}

func ToGame(event Event, payload any) Intent {
	return Intent{Event: event, Payload: payload, Target: TargetGame}
}

// ToGameProjected emits a per-recipient payload to every connection in the game.
func ToGameProjected(event Event, project func(Recipient) any) Intent {
	return Intent{Event: event, Target: TargetGame, Project: project}
}

func ToAll(event Event, payload any) Intent {
	return Intent{Event: event, Payload: payload, Target: TargetAll}
}

// ErrorTo reports a rejected action to its originating connection.
func ErrorTo(socketID string, code domain.ErrorCode, message string) Intent {
	return ToSocket(socketID, EventError, ErrorPayload{Code: code, Message: message})
}

// GameData sends the role-projected full game state to every connection.
func GameData(game *domain.Game) Intent {
	return ToGameProjected(EventGameData, func(r Recipient) any {
		return GameDataPayload{Game: NewGameView(game, r.Role, r.UserID)}
	})
}

// QuestionData sends the current question, with the answer for the showman only.
func QuestionData(themeID int, q *domain.Question, state domain.QuestionState, timer *domain.Timer) Intent {
	return ToGameProjected(EventQuestionData, func(r Recipient) any {
		return QuestionDataPayload{
			ThemeID:       themeID,
			Question:      NewQuestionView(q, r.Role),
			QuestionState: state,
			Timer:         timer,
		}
	})
}
