package domain

import "time"

// Timer is a pausable countdown. It is pure data; callers pass the clock in.
//
// ResumedAt is the reference point of the running segment. A nil ResumedAt
// means the timer is paused and ElapsedMs holds everything counted so far.
type Timer struct {
	DurationMs int64      `json:"durationMs"`
	ElapsedMs  int64      `json:"elapsedMs"`
	StartedAt  time.Time  `json:"startedAt"`
	ResumedAt  *time.Time `json:"resumedAt"`
}

// NewTimer starts a countdown of d at now.
func NewTimer(d time.Duration, now time.Time) *Timer {
	t := &Timer{}
	t.Start(d, now)
	return t
}

func (t *Timer) Start(d time.Duration, now time.Time) {
	t.DurationMs = d.Milliseconds()
	t.ElapsedMs = 0
	t.StartedAt = now
	resumed := now
	t.ResumedAt = &resumed
}

// IsRunning reports whether the countdown is currently ticking.
func (t *Timer) IsRunning() bool {
	return t.ResumedAt != nil
}

// Pause freezes the elapsed time. Pausing a paused timer is a no-op.
func (t *Timer) Pause(now time.Time) {
	if t.ResumedAt == nil {
		return
	}
	t.ElapsedMs += segmentMs(*t.ResumedAt, now)
	t.ResumedAt = nil
}

// Resume starts a new running segment from now, keeping ElapsedMs.
func (t *Timer) Resume(now time.Time) {
	if t.ResumedAt != nil {
		return
	}
	resumed := now
	t.ResumedAt = &resumed
}

func (t *Timer) Elapsed(now time.Time) time.Duration {
	ms := t.ElapsedMs
	if t.ResumedAt != nil {
		ms += segmentMs(*t.ResumedAt, now)
	}
	return time.Duration(ms) * time.Millisecond
}

func (t *Timer) Remaining(now time.Time) time.Duration {
	left := time.Duration(t.DurationMs)*time.Millisecond - t.Elapsed(now)
	if left < 0 {
		return 0
	}
	return left
}

func (t *Timer) IsExpired(now time.Time) bool {
	return t.Remaining(now) == 0
}

// Clone returns an independent copy.
func (t *Timer) Clone() *Timer {
	if t == nil {
		return nil
	}
	c := *t
	if t.ResumedAt != nil {
		r := *t.ResumedAt
		c.ResumedAt = &r
	}
	return &c
}

func segmentMs(from, to time.Time) int64 {
	ms := to.Sub(from).Milliseconds()
	if ms < 0 {
		return 0
	}
	return ms
}
