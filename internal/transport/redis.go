// Package transport delivers broadcast events across server processes.
//
// Room membership lives in Redis sets so any process can resolve a room.
// Every emit is published once on a shared channel; each process delivers
// the frames addressed to sockets it owns. Delivery is at-most-once.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dom/quiz-engine/internal/broadcast"
	"github.com/dom/quiz-engine/internal/logger"
	"github.com/dom/quiz-engine/internal/store"
	"github.com/dom/quiz-engine/internal/websocket"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const EventsChannel = "transport:events"

// Local is the set of connections owned by this process.
type Local interface {
	Deliver(socketID string, data []byte) bool
	Broadcast(data []byte)
}

// frame is one published emit. Sockets is empty for a broadcast to all.
type frame struct {
	Sockets []string        `json:"sockets,omitempty"`
	All     bool            `json:"all,omitempty"`
	Message json.RawMessage `json:"message"`
}

type RedisTransport struct {
	rdb     redis.UniversalClient
	local   Local
	roomTTL time.Duration
	ready   chan struct{}
}

var _ broadcast.Transport = (*RedisTransport)(nil)

// NewRedisTransport builds a transport whose room sets expire roomTTL after
// the last join.
func NewRedisTransport(rdb redis.UniversalClient, local Local, roomTTL time.Duration) *RedisTransport {
	return &RedisTransport{
		rdb:     rdb,
		local:   local,
		roomTTL: roomTTL,
		ready:   make(chan struct{}),
	}
}

func (t *RedisTransport) EmitToSocket(ctx context.Context, socketID string, event broadcast.Event, payload any) error {
	return t.publish(ctx, frame{Sockets: []string{socketID}}, event, payload)
}

func (t *RedisTransport) EmitToRoom(ctx context.Context, room string, event broadcast.Event, payload any) error {
	members, err := t.RoomMembers(ctx, room)
	if err != nil {
		return err
	}
	if len(members) == 0 {
		return nil
	}
	return t.publish(ctx, frame{Sockets: members}, event, payload)
}

func (t *RedisTransport) EmitToAll(ctx context.Context, event broadcast.Event, payload any) error {
	return t.publish(ctx, frame{All: true}, event, payload)
}

func (t *RedisTransport) RoomMembers(ctx context.Context, room string) ([]string, error) {
	members, err := t.rdb.SMembers(ctx, store.RoomMembersKey(room)).Result()
	if err != nil {
		return nil, fmt.Errorf("room members %s: %w", room, err)
	}
	return members, nil
}

func (t *RedisTransport) Join(ctx context.Context, socketID, room string) error {
	key := store.RoomMembersKey(room)
	_, err := t.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, key, socketID)
		pipe.Expire(ctx, key, t.roomTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("join %s to %s: %w", socketID, room, err)
	}
	return nil
}

func (t *RedisTransport) Leave(ctx context.Context, socketID, room string) error {
	if err := t.rdb.SRem(ctx, store.RoomMembersKey(room), socketID).Err(); err != nil {
		return fmt.Errorf("remove %s from %s: %w", socketID, room, err)
	}
	return nil
}

func (t *RedisTransport) publish(ctx context.Context, f frame, event broadcast.Event, payload any) error {
	msg, err := websocket.Encode(event, payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", event, err)
	}
	f.Message = msg
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	if err := t.rdb.Publish(ctx, EventsChannel, data).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", event, err)
	}
	return nil
}

// Ready is closed once the relay subscription is confirmed.
func (t *RedisTransport) Ready() <-chan struct{} {
	return t.ready
}

// Run relays published frames to local connections until ctx is cancelled.
func (t *RedisTransport) Run(ctx context.Context) error {
	sub := t.rdb.Subscribe(ctx, EventsChannel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe to %s: %w", EventsChannel, err)
	}
	close(t.ready)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			t.deliver(msg.Payload)
		}
	}
}

func (t *RedisTransport) deliver(payload string) {
	var f frame
	if err := json.Unmarshal([]byte(payload), &f); err != nil {
		logger.Warn("Dropping malformed transport frame", zap.Error(err))
		return
	}
	if f.All {
		t.local.Broadcast(f.Message)
		return
	}
	for _, id := range f.Sockets {
		t.local.Deliver(id, f.Message)
	}
}
