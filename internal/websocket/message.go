package websocket

import (
	"encoding/json"
	"time"

	"github.com/dom/quiz-engine/internal/broadcast"
	"github.com/dom/quiz-engine/internal/engine"
)

// Message is a client request. Type is an action name such as JOIN or BUZZ.
// GameID is only read on JOIN; later messages target the joined game.
type Message struct {
	Type    engine.ActionType `json:"type"`
	GameID  string            `json:"gameId,omitempty"`
	Payload json.RawMessage   `json:"payload,omitempty"`
}

// Envelope is what the server sends to clients.
type Envelope struct {
	Event     broadcast.Event `json:"event"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

func NewEnvelope(event broadcast.Event, payload any) (*Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Envelope{
		Event:     event,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	}, nil
}

// Encode serializes an event into the bytes written to a connection.
func Encode(event broadcast.Event, payload any) ([]byte, error) {
	env, err := NewEnvelope(event, payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(env)
}
