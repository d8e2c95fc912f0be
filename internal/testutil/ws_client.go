package testutil

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/dom/quiz-engine/internal/broadcast"
	"github.com/dom/quiz-engine/internal/engine"
	"github.com/dom/quiz-engine/internal/websocket"
	gorillaWS "github.com/gorilla/websocket"
)

// WSClient is a test WebSocket client
type WSClient struct {
	t        *testing.T
	conn     *gorillaWS.Conn
	messages chan *websocket.Envelope
	done     chan struct{}
	once     sync.Once
	mu       sync.Mutex
}

// NewWSClient creates a new WebSocket test client
func NewWSClient(t *testing.T, url string) *WSClient {
	t.Helper()

	dialer := *gorillaWS.DefaultDialer
	dialer.HandshakeTimeout = 5 * time.Second

	conn, _, err := dialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("failed to connect to websocket: %v", err)
	}

	client := &WSClient{
		t:        t,
		conn:     conn,
		messages: make(chan *websocket.Envelope, 100),
		done:     make(chan struct{}),
	}

	go client.readPump()

	t.Cleanup(func() {
		client.Close()
	})

	return client
}

func (c *WSClient) readPump() {
	defer close(c.messages)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var env websocket.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			continue
		}
		select {
		case c.messages <- &env:
		case <-c.done:
			return
		}
	}
}

// Close closes the connection
func (c *WSClient) Close() {
	c.once.Do(func() {
		close(c.done)
		c.mu.Lock()
		c.conn.WriteMessage(gorillaWS.CloseMessage, gorillaWS.FormatCloseMessage(gorillaWS.CloseNormalClosure, ""))
		c.mu.Unlock()
		c.conn.Close()
	})
}

// Send writes one action envelope
func (c *WSClient) Send(actionType engine.ActionType, gameID string, payload interface{}) {
	c.t.Helper()

	msg := websocket.Message{Type: actionType, GameID: gameID}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			c.t.Fatalf("failed to marshal payload: %v", err)
		}
		msg.Payload = raw
	}

	c.mu.Lock()
	err := c.conn.WriteJSON(msg)
	c.mu.Unlock()
	if err != nil {
		c.t.Fatalf("failed to send %s: %v", actionType, err)
	}
}

// Join joins gameID with the given role
func (c *WSClient) Join(gameID string, payload interface{}) {
	c.Send(engine.ActionJoin, gameID, payload)
}

// ExpectEvent waits for an event, skipping others
func (c *WSClient) ExpectEvent(event broadcast.Event, timeout time.Duration) *websocket.Envelope {
	c.t.Helper()

	deadline := time.After(timeout)
	for {
		select {
		case env := <-c.messages:
			if env == nil {
				c.t.Fatalf("connection closed while waiting for %s", event)
			}
			if env.Event == event {
				return env
			}
		case <-deadline:
			c.t.Fatalf("timeout waiting for event %s", event)
		}
	}
}

// ExpectPayload waits for an event and decodes its data into v
func (c *WSClient) ExpectPayload(event broadcast.Event, v interface{}, timeout time.Duration) {
	c.t.Helper()

	env := c.ExpectEvent(event, timeout)
	if err := json.Unmarshal(env.Data, v); err != nil {
		c.t.Fatalf("failed to decode %s payload: %v", event, err)
	}
}

// ExpectError waits for an ERROR event
func (c *WSClient) ExpectError(timeout time.Duration) *broadcast.ErrorPayload {
	c.t.Helper()

	var payload broadcast.ErrorPayload
	c.ExpectPayload(broadcast.EventError, &payload, timeout)
	return &payload
}

// ExpectNoEvent verifies event is not received within timeout
func (c *WSClient) ExpectNoEvent(event broadcast.Event, timeout time.Duration) {
	c.t.Helper()

	deadline := time.After(timeout)
	for {
		select {
		case env := <-c.messages:
			if env == nil {
				return
			}
			if env.Event == event {
				c.t.Fatalf("unexpected event received: %s", event)
			}
		case <-deadline:
			return
		}
	}
}

// DrainMessages drops everything buffered once the stream has been quiet
// for 50ms, or after 500ms.
func (c *WSClient) DrainMessages() {
	deadline := time.After(500 * time.Millisecond)
	for {
		select {
		case env := <-c.messages:
			if env == nil {
				return
			}
		case <-time.After(50 * time.Millisecond):
			return
		case <-deadline:
			return
		}
	}
}
