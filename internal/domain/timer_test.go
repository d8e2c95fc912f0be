package domain_test

import (
	"testing"
	"time"

	"github.com/dom/quiz-engine/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

func TestTimer_Countdown(t *testing.T) {
	timer := domain.NewTimer(30*time.Second, t0)

	assert.True(t, timer.IsRunning())
	assert.Equal(t, 30*time.Second, timer.Remaining(t0))
	assert.Equal(t, 20*time.Second, timer.Remaining(t0.Add(10*time.Second)))
	assert.False(t, timer.IsExpired(t0.Add(29*time.Second)))
	assert.True(t, timer.IsExpired(t0.Add(30*time.Second)))
	assert.Equal(t, time.Duration(0), timer.Remaining(t0.Add(time.Minute)))
}

func TestTimer_PauseResumeConservesRemaining(t *testing.T) {
	timer := domain.NewTimer(30*time.Second, t0)

	timer.Pause(t0.Add(10 * time.Second))
	assert.False(t, timer.IsRunning())
	assert.Equal(t, int64(10000), timer.ElapsedMs)

	// Time passing while paused does not count.
	assert.Equal(t, 20*time.Second, timer.Remaining(t0.Add(5*time.Minute)))

	timer.Resume(t0.Add(5 * time.Minute))
	assert.Equal(t, 20*time.Second, timer.Remaining(t0.Add(5*time.Minute)))
	assert.Equal(t, 15*time.Second, timer.Remaining(t0.Add(5*time.Minute+5*time.Second)))
}

func TestTimer_PauseAndResumeAreIdempotent(t *testing.T) {
	timer := domain.NewTimer(time.Minute, t0)

	timer.Pause(t0.Add(time.Second))
	timer.Pause(t0.Add(20 * time.Second))
	assert.Equal(t, int64(1000), timer.ElapsedMs)

	timer.Resume(t0.Add(30 * time.Second))
	timer.Resume(t0.Add(40 * time.Second))
	require.NotNil(t, timer.ResumedAt)
	assert.Equal(t, t0.Add(30*time.Second), *timer.ResumedAt)
}

func TestTimer_ClockSkewNeverAddsTime(t *testing.T) {
	timer := domain.NewTimer(10*time.Second, t0)
	timer.Pause(t0.Add(-5 * time.Second))
	assert.Equal(t, int64(0), timer.ElapsedMs)
	assert.Equal(t, 10*time.Second, timer.Remaining(t0))
}

func TestTimer_CloneIsIndependent(t *testing.T) {
	timer := domain.NewTimer(30*time.Second, t0)
	clone := timer.Clone()

	clone.Pause(t0.Add(5 * time.Second))
	assert.True(t, timer.IsRunning())
	assert.False(t, clone.IsRunning())

	var nilTimer *domain.Timer
	assert.Nil(t, nilTimer.Clone())
}
