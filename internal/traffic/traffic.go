// Package traffic keeps a sliding window of request outcomes for the health
// check and the rate-limit gauges.
package traffic

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Outcome classifies a finished request.
type Outcome int

const (
	// OutcomeSuccess is a request that produced a snapshot.
	OutcomeSuccess Outcome = iota
	// OutcomeDegraded is a request answered with at least one failed feed.
	OutcomeDegraded
	// OutcomeDenied is a request refused by the rate limiter.
	OutcomeDenied
)

// DefaultRetention bounds how long outcomes are kept.
const DefaultRetention = 5 * time.Minute

// Tracker maintains per-outcome timestamp windows. The zero value is not
// usable; construct with NewTracker.
type Tracker struct {
	mu        sync.Mutex
	clock     clockwork.Clock
	retention time.Duration
	times     map[Outcome][]time.Time
}

// NewTracker returns a Tracker that prunes outcomes older than retention.
func NewTracker(clock clockwork.Clock, retention time.Duration) *Tracker {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Tracker{
		clock:     clock,
		retention: retention,
		times:     make(map[Outcome][]time.Time),
	}
}

// Record appends one outcome at the current clock time.
func (t *Tracker) Record(o Outcome) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.clock.Now()
	t.times[o] = append(t.times[o], now)
	t.pruneLocked(now)
}

// RequestCount returns the number of outcomes of any kind within window.
func (t *Tracker) RequestCount(window time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := t.clock.Now().Add(-window)
	n := 0
	for _, times := range t.times {
		n += countSince(times, cutoff)
	}
	return n
}

// DenialCount returns the number of rate-limit denials within window.
func (t *Tracker) DenialCount(window time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return countSince(t.times[OutcomeDenied], t.clock.Now().Add(-window))
}

// DegradedRate returns (degraded, answered) within window. Denials are not
// answered requests and are excluded.
func (t *Tracker) DegradedRate(window time.Duration) (degraded, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := t.clock.Now().Add(-window)
	degraded = countSince(t.times[OutcomeDegraded], cutoff)
	return degraded, degraded + countSince(t.times[OutcomeSuccess], cutoff)
}

// Reset clears all recorded outcomes.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.times = make(map[Outcome][]time.Time)
}

func countSince(times []time.Time, cutoff time.Time) int {
	n := 0
	for _, ts := range times {
		if !ts.Before(cutoff) {
			n++
		}
	}
	return n
}

// pruneLocked drops entries older than the retention. Slices are appended
// in clock order, so the stale prefix is contiguous.
func (t *Tracker) pruneLocked(now time.Time) {
	cutoff := now.Add(-t.retention)
	for o, times := range t.times {
		i := 0
		for ; i < len(times) && times[i].Before(cutoff); i++ {
		}
		if i > 0 {
			t.times[o] = append(times[:0], times[i:]...)
		}
	}
}
