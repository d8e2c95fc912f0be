package main

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/dom/quiz-engine/internal/broadcast"
	"github.com/dom/quiz-engine/internal/engine"
	"github.com/dom/quiz-engine/internal/websocket"
	ws "github.com/gorilla/websocket"
)

// Bot is one simulated connection.
type Bot struct {
	Name   string
	UserID int
	conn   *ws.Conn
	mu     sync.Mutex
	events chan websocket.Envelope
	quiet  bool
}

func Dial(url, name string, userID int, quiet bool) (*Bot, error) {
	dialer := *ws.DefaultDialer
	dialer.HandshakeTimeout = 5 * time.Second
	conn, _, err := dialer.Dial(url, nil)
	if err != nil {
		return nil, err
	}
	b := &Bot{
		Name:   name,
		UserID: userID,
		conn:   conn,
		events: make(chan websocket.Envelope, 64),
		quiet:  quiet,
	}
	go b.read()
	return b, nil
}

func (b *Bot) read() {
	defer close(b.events)
	for {
		var env websocket.Envelope
		if err := b.conn.ReadJSON(&env); err != nil {
			return
		}
		if !b.quiet {
			fmt.Printf("  [%s] %s %s\n", b.Name, env.Event, string(env.Data))
		}
		select {
		case b.events <- env:
		default:
		}
	}
}

func (b *Bot) Send(action engine.ActionType, gameID string, payload interface{}) error {
	msg := websocket.Message{Type: action, GameID: gameID}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		msg.Payload = raw
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn.WriteJSON(msg)
}

// Await blocks until event arrives or timeout passes.
func (b *Bot) Await(event broadcast.Event, timeout time.Duration) (*websocket.Envelope, error) {
	deadline := time.After(timeout)
	for {
		select {
		case env, ok := <-b.events:
			if !ok {
				return nil, fmt.Errorf("%s: connection closed", b.Name)
			}
			if env.Event == broadcast.EventError {
				return nil, fmt.Errorf("%s: server error %s", b.Name, string(env.Data))
			}
			if env.Event == event {
				return &env, nil
			}
		case <-deadline:
			return nil, fmt.Errorf("%s: timed out waiting for %s", b.Name, event)
		}
	}
}

// Events returns the stream of received envelopes.
func (b *Bot) Events() <-chan websocket.Envelope {
	return b.events
}

func (b *Bot) Close() {
	b.mu.Lock()
	b.conn.WriteMessage(ws.CloseMessage, ws.FormatCloseMessage(ws.CloseNormalClosure, ""))
	b.mu.Unlock()
	b.conn.Close()
}
