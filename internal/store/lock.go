package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type LockResult struct {
	Acquired bool
	Token    string
}

type DrainStatus int

const (
	DrainLockLost     DrainStatus = 0
	DrainQueueEmpty   DrainStatus = 1
	DrainActionPopped DrainStatus = 2
)

func (s DrainStatus) String() string {
	switch s {
	case DrainLockLost:
		return "lock-lost"
	case DrainQueueEmpty:
		return "queue-empty"
	case DrainActionPopped:
		return "action-popped"
	}
	return fmt.Sprintf("drain(%d)", int(s))
}

// Snapshot is the raw state read alongside a lock operation.
type Snapshot struct {
	Timer         []byte
	SessionFields map[string]string
	GameFields    map[string]string
}

type DrainResult struct {
	Status   DrainStatus
	NewToken string
	Action   []byte
	Snapshot
}

// LockManager owns the per-game lock and the FIFO action queue.
type LockManager struct {
	rdb redis.UniversalClient
}

func NewLockManager(rdb redis.UniversalClient) *LockManager {
	return &LockManager{rdb: rdb}
}

func newToken() string {
	return uuid.NewString()
}

// Acquire tries to take the lock once. It never waits.
func (m *LockManager) Acquire(ctx context.Context, gameID string, ttl time.Duration) (LockResult, error) {
	token := newToken()
	ok, err := m.rdb.SetNX(ctx, LockKey(gameID), token, ttl).Result()
	if err != nil {
		return LockResult{}, fmt.Errorf("acquire lock %s: %w", gameID, err)
	}
	if !ok {
		return LockResult{}, nil
	}
	return LockResult{Acquired: true, Token: token}, nil
}

// AcquireOrEnqueue takes the lock, or queues action when the game is busy.
func (m *LockManager) AcquireOrEnqueue(ctx context.Context, gameID string, ttl time.Duration, action []byte) (LockResult, error) {
	token := newToken()
	res, err := acquireOrEnqueueScript.Run(ctx, m.rdb,
		[]string{LockKey(gameID), QueueKey(gameID)},
		token, ttl.Milliseconds(), action,
	).Int64()
	if err != nil {
		return LockResult{}, fmt.Errorf("acquire or enqueue %s: %w", gameID, err)
	}
	if res != 1 {
		return LockResult{}, nil
	}
	return LockResult{Acquired: true, Token: token}, nil
}

// Release deletes the lock only if token still owns it.
func (m *LockManager) Release(ctx context.Context, gameID, token string) (bool, error) {
	res, err := compareAndDeleteScript.Run(ctx, m.rdb, []string{LockKey(gameID)}, token).Int64()
	if err != nil {
		return false, fmt.Errorf("release lock %s: %w", gameID, err)
	}
	return res == 1, nil
}

// DrainAndReacquire atomically checks ownership and pops the next queued
// action under a fresh token. On an empty queue the lock is released.
func (m *LockManager) DrainAndReacquire(ctx context.Context, gameID, token string, lockTTL, gameTTL time.Duration) (DrainResult, error) {
	next := newToken()
	raw, err := drainAndReacquireScript.Run(ctx, m.rdb,
		[]string{LockKey(gameID), QueueKey(gameID), GameKey(gameID), TimerKey(gameID)},
		token, next, lockTTL.Milliseconds(), gameTTL.Milliseconds(), SessionPrefix,
	).Slice()
	if err != nil {
		return DrainResult{}, fmt.Errorf("drain %s: %w", gameID, err)
	}
	if len(raw) == 0 {
		return DrainResult{}, fmt.Errorf("drain %s: empty reply", gameID)
	}

	status, ok := raw[0].(int64)
	if !ok {
		return DrainResult{}, fmt.Errorf("drain %s: unexpected status %T", gameID, raw[0])
	}
	switch DrainStatus(status) {
	case DrainLockLost:
		return DrainResult{Status: DrainLockLost}, nil
	case DrainQueueEmpty:
		return DrainResult{Status: DrainQueueEmpty}, nil
	case DrainActionPopped:
	default:
		return DrainResult{}, fmt.Errorf("drain %s: unknown status %d", gameID, status)
	}

	if len(raw) != 6 {
		return DrainResult{}, fmt.Errorf("drain %s: malformed reply of %d items", gameID, len(raw))
	}
	return DrainResult{
		Status:   DrainActionPopped,
		NewToken: toString(raw[1]),
		Action:   []byte(toString(raw[2])),
		Snapshot: Snapshot{
			Timer:         toBytes(raw[3]),
			SessionFields: flatToMap(raw[4]),
			GameFields:    flatToMap(raw[5]),
		},
	}, nil
}

// Prefetch reads the game hash, active timer and session of socketID in one
// round trip.
func (m *LockManager) Prefetch(ctx context.Context, gameID, socketID string, gameTTL time.Duration) (Snapshot, error) {
	raw, err := prefetchScript.Run(ctx, m.rdb,
		[]string{GameKey(gameID), TimerKey(gameID), SessionKey(socketID)},
		gameTTL.Milliseconds(),
	).Slice()
	if err != nil {
		return Snapshot{}, fmt.Errorf("prefetch %s: %w", gameID, err)
	}
	if len(raw) != 3 {
		return Snapshot{}, fmt.Errorf("prefetch %s: malformed reply of %d items", gameID, len(raw))
	}
	return Snapshot{
		Timer:         toBytes(raw[0]),
		SessionFields: flatToMap(raw[1]),
		GameFields:    flatToMap(raw[2]),
	}, nil
}

// QueueLen reports how many actions wait for the game's lock.
func (m *LockManager) QueueLen(ctx context.Context, gameID string) (int64, error) {
	return m.rdb.LLen(ctx, QueueKey(gameID)).Result()
}

func toString(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	case nil:
		return ""
	}
	return fmt.Sprint(v)
}

func toBytes(v interface{}) []byte {
	s := toString(v)
	if s == "" {
		return nil
	}
	return []byte(s)
}

func flatToMap(v interface{}) map[string]string {
	items, _ := v.([]interface{})
	out := make(map[string]string, len(items)/2)
	for i := 0; i+1 < len(items); i += 2 {
		out[toString(items[i])] = toString(items[i+1])
	}
	return out
}
