package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/dom/quiz-engine/internal/domain"
	"github.com/dom/quiz-engine/internal/store"
	"github.com/dom/quiz-engine/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimerStore_SetActive(t *testing.T) {
	tr := testutil.NewTestRedis(t)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	timers := store.NewTimerStore(tr.Client, 500*time.Millisecond, time.Hour).
		WithClock(func() time.Time { return now })
	ctx := context.Background()

	running := domain.NewTimer(20*time.Second, now.Add(-5*time.Second))
	require.NoError(t, timers.SetActive(ctx, "g1", running))
	assert.Equal(t, 15*time.Second+500*time.Millisecond, tr.Server.TTL(store.TimerKey("g1")))

	got, err := timers.GetActive(ctx, "g1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, running.DurationMs, got.DurationMs)
	assert.True(t, got.IsRunning())

	paused := running.Clone()
	paused.Pause(now)
	require.NoError(t, timers.SetActive(ctx, "g1", paused))
	assert.Zero(t, tr.Server.TTL(store.TimerKey("g1")), "paused timers never expire")

	require.NoError(t, timers.DeleteActive(ctx, "g1"))
	got, err = timers.GetActive(ctx, "g1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestTimerStore_ExpiryFires(t *testing.T) {
	tr := testutil.NewTestRedis(t)
	now := time.Now()
	timers := store.NewTimerStore(tr.Client, 500*time.Millisecond, time.Hour).
		WithClock(func() time.Time { return now })
	ctx := context.Background()

	require.NoError(t, timers.SetActive(ctx, "g1", domain.NewTimer(5*time.Second, now)))

	tr.Server.FastForward(5 * time.Second)
	assert.True(t, tr.Server.Exists(store.TimerKey("g1")), "safety margin keeps the key alive")

	tr.Server.FastForward(501 * time.Millisecond)
	assert.False(t, tr.Server.Exists(store.TimerKey("g1")))
}

func TestTimerStore_Saved(t *testing.T) {
	tr := testutil.NewTestRedis(t)
	now := time.Now()
	timers := store.NewTimerStore(tr.Client, 500*time.Millisecond, time.Hour).
		WithClock(func() time.Time { return now })
	ctx := context.Background()

	showing := domain.NewTimer(30*time.Second, now.Add(-10*time.Second))
	showing.Pause(now)
	require.NoError(t, timers.Save(ctx, "g1", domain.SavedTimerShowing, showing))
	assert.Equal(t, time.Hour, tr.Server.TTL(store.SavedTimerKey("g1", domain.SavedTimerShowing)))

	got, err := timers.GetSaved(ctx, "g1", domain.SavedTimerShowing)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(10000), got.ElapsedMs)
	assert.False(t, got.IsRunning())

	active, err := timers.GetActive(ctx, "g1")
	require.NoError(t, err)
	assert.Nil(t, active, "saving does not touch the active key")

	require.NoError(t, timers.DeleteSaved(ctx, "g1", domain.SavedTimerShowing))
	got, err = timers.GetSaved(ctx, "g1", domain.SavedTimerShowing)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestParseActiveTimerKey(t *testing.T) {
	tests := []struct {
		key    string
		wantID string
		wantOK bool
	}{
		{key: "timer:abc", wantID: "abc", wantOK: true},
		{key: "timer:abc:showing", wantOK: false},
		{key: "timer:claim:abc", wantOK: false},
		{key: "timer:", wantOK: false},
		{key: "game:abc", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			id, ok := store.ParseActiveTimerKey(tt.key)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, id)
		})
	}
}
