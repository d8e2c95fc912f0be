package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dom/quiz-engine/internal/domain"
	"github.com/redis/go-redis/v9"
)

// TimerStore persists active and saved countdowns. An active running timer
// expires remaining+safetyMargin after being written; the expiry event is the
// TIMER_EXPIRED source. Paused timers carry no expiry.
type TimerStore struct {
	rdb          redis.UniversalClient
	safetyMargin time.Duration
	savedTTL     time.Duration
	now          func() time.Time
}

func NewTimerStore(rdb redis.UniversalClient, safetyMargin, savedTTL time.Duration) *TimerStore {
	return &TimerStore{
		rdb:          rdb,
		safetyMargin: safetyMargin,
		savedTTL:     savedTTL,
		now:          time.Now,
	}
}

// WithClock overrides the time source, for tests.
func (s *TimerStore) WithClock(now func() time.Time) *TimerStore {
	s.now = now
	return s
}

// ExpiryFor returns how long the active key for t lives, or 0 for no expiry.
func (s *TimerStore) ExpiryFor(t *domain.Timer) time.Duration {
	if !t.IsRunning() {
		return 0
	}
	ttl := t.Remaining(s.now()) + s.safetyMargin
	if ttl < time.Millisecond {
		ttl = time.Millisecond
	}
	return ttl
}

func (s *TimerStore) SetActive(ctx context.Context, gameID string, t *domain.Timer) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encode timer: %w", err)
	}
	if err := s.rdb.Set(ctx, TimerKey(gameID), data, s.ExpiryFor(t)).Err(); err != nil {
		return fmt.Errorf("set timer %s: %w", gameID, err)
	}
	return nil
}

// GetActive returns nil without error when no timer is set.
func (s *TimerStore) GetActive(ctx context.Context, gameID string) (*domain.Timer, error) {
	return s.get(ctx, TimerKey(gameID))
}

func (s *TimerStore) DeleteActive(ctx context.Context, gameID string) error {
	return s.rdb.Del(ctx, TimerKey(gameID)).Err()
}

// Save parks t under suffix until it is restored or SavedTTL elapses.
func (s *TimerStore) Save(ctx context.Context, gameID, suffix string, t *domain.Timer) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encode timer: %w", err)
	}
	if err := s.rdb.Set(ctx, SavedTimerKey(gameID, suffix), data, s.savedTTL).Err(); err != nil {
		return fmt.Errorf("save timer %s/%s: %w", gameID, suffix, err)
	}
	return nil
}

func (s *TimerStore) GetSaved(ctx context.Context, gameID, suffix string) (*domain.Timer, error) {
	return s.get(ctx, SavedTimerKey(gameID, suffix))
}

func (s *TimerStore) DeleteSaved(ctx context.Context, gameID, suffix string) error {
	return s.rdb.Del(ctx, SavedTimerKey(gameID, suffix)).Err()
}

func (s *TimerStore) get(ctx context.Context, key string) (*domain.Timer, error) {
	data, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get timer %s: %w", key, err)
	}
	return DecodeTimer(data)
}

// DecodeTimer parses a raw timer value. Empty input means no timer.
func DecodeTimer(raw []byte) (*domain.Timer, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var t domain.Timer
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("decode timer: %w", err)
	}
	return &t, nil
}
