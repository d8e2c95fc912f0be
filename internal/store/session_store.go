package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Session ties a connection to a user and the game it joined.
type Session struct {
	SocketID string
	UserID   int
	GameID   string
}

type SessionStore struct {
	rdb redis.UniversalClient
	ttl time.Duration
}

func NewSessionStore(rdb redis.UniversalClient, ttl time.Duration) *SessionStore {
	return &SessionStore{rdb: rdb, ttl: ttl}
}

func (s *SessionStore) Set(ctx context.Context, socketID string, userID int, gameID string) error {
	key := SessionKey(socketID)
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, "userId", strconv.Itoa(userID), "gameId", gameID)
		if s.ttl > 0 {
			pipe.PExpire(ctx, key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("set session %s: %w", socketID, err)
	}
	return nil
}

// Get returns nil without error when the connection has no session.
func (s *SessionStore) Get(ctx context.Context, socketID string) (*Session, error) {
	fields, err := s.rdb.HGetAll(ctx, SessionKey(socketID)).Result()
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", socketID, err)
	}
	return DecodeSession(socketID, fields), nil
}

func (s *SessionStore) Delete(ctx context.Context, socketID string) error {
	return s.rdb.Del(ctx, SessionKey(socketID)).Err()
}

// DecodeSession builds a Session from prefetched hash fields.
func DecodeSession(socketID string, fields map[string]string) *Session {
	if len(fields) == 0 {
		return nil
	}
	userID, err := strconv.Atoi(fields["userId"])
	if err != nil {
		return nil
	}
	return &Session{SocketID: socketID, UserID: userID, GameID: fields["gameId"]}
}
