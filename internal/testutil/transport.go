package testutil

import (
	"context"
	"sort"
	"sync"

	"github.com/dom/quiz-engine/internal/broadcast"
)

// Emission records one transport call.
type Emission struct {
	Kind    string // socket, room or all
	To      string
	Event   broadcast.Event
	Payload any
}

// FakeTransport is an in-memory broadcast.Transport that records every emit.
type FakeTransport struct {
	mu      sync.Mutex
	rooms   map[string]map[string]bool
	emitted []Emission

	// EmitErr, when set, is returned by every emit call.
	EmitErr error
}

func NewFakeTransport() *FakeTransport {
	return &FakeTransport{rooms: make(map[string]map[string]bool)}
}

func (f *FakeTransport) record(e Emission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.EmitErr != nil {
		return f.EmitErr
	}
	f.emitted = append(f.emitted, e)
	return nil
}

func (f *FakeTransport) EmitToSocket(_ context.Context, socketID string, event broadcast.Event, payload any) error {
	return f.record(Emission{Kind: "socket", To: socketID, Event: event, Payload: payload})
}

func (f *FakeTransport) EmitToRoom(_ context.Context, room string, event broadcast.Event, payload any) error {
	return f.record(Emission{Kind: "room", To: room, Event: event, Payload: payload})
}

func (f *FakeTransport) EmitToAll(_ context.Context, event broadcast.Event, payload any) error {
	return f.record(Emission{Kind: "all", Event: event, Payload: payload})
}

func (f *FakeTransport) RoomMembers(_ context.Context, room string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for id := range f.rooms[room] {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

func (f *FakeTransport) Join(_ context.Context, socketID, room string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rooms[room] == nil {
		f.rooms[room] = make(map[string]bool)
	}
	f.rooms[room][socketID] = true
	return nil
}

func (f *FakeTransport) Leave(_ context.Context, socketID, room string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rooms[room], socketID)
	return nil
}

// Emissions returns a copy of everything emitted so far.
func (f *FakeTransport) Emissions() []Emission {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Emission, len(f.emitted))
	copy(out, f.emitted)
	return out
}

// Events returns the emitted event names in order.
func (f *FakeTransport) Events() []broadcast.Event {
	var out []broadcast.Event
	for _, e := range f.Emissions() {
		out = append(out, e.Event)
	}
	return out
}

// Named returns the emissions of one event.
func (f *FakeTransport) Named(event broadcast.Event) []Emission {
	var out []Emission
	for _, e := range f.Emissions() {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

func (f *FakeTransport) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.emitted = nil
}
