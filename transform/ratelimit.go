package transform

import (
	"sync"
	"time"

	"style-relay/domain"
)

// Tracker owns the single shared RateLimitState. Every gateway call checks
// it before going out and reports failures back into it, so two concurrent
// failures never produce a lost update; the last one wins for the
// description and reset time.
type Tracker struct {
	mu    sync.Mutex
	state domain.RateLimitState
	clock func() time.Time
}

func NewTracker() *Tracker {
	return NewTrackerWithClock(time.Now)
}

// NewTrackerWithClock injects the time source, for tests.
func NewTrackerWithClock(clock func() time.Time) *Tracker {
	return &Tracker{clock: clock}
}

// Exceeded reports whether the quota is currently exhausted. The reset is
// lazy: the first check after ResetAt has passed clears the flag, no
// background timer involved.
func (t *Tracker) Exceeded() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state.IsExceeded && t.state.ResetAt != nil && !t.clock().Before(*t.state.ResetAt) {
		t.state.IsExceeded = false
		t.state.LastError = ""
		t.state.ResetAt = nil
	}
	return t.state.IsExceeded
}

// MarkExceeded records a quota-exhausted signal from the provider.
// retryAfter is optional; without it the state stays exceeded until the
// provider starts answering again and Observe clears nothing (manual reset
// only happens through a later ResetAt).
func (t *Tracker) MarkExceeded(retryAfter *time.Duration, detail string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.state.IsExceeded = true
	t.state.LastError = detail
	if retryAfter != nil {
		resetAt := t.clock().Add(*retryAfter)
		t.state.ResetAt = &resetAt
	}
}

// Observe stores quota counters reported by the provider, when known.
func (t *Tracker) Observe(remaining, limit *int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if remaining != nil {
		t.state.Remaining = remaining
	}
	if limit != nil {
		t.state.Limit = limit
	}
}

// Snapshot returns a copy safe for observability and UI use.
func (t *Tracker) Snapshot() domain.RateLimitState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}
