package traffic

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func TestRequestCount_Empty(t *testing.T) {
	tr := NewTracker(clockwork.NewFakeClock(), time.Minute)
	if n := tr.RequestCount(time.Minute); n != 0 {
		t.Errorf("RequestCount() = %d, want 0", n)
	}
}

// TestRequestCount_AllOutcomes verifies that every outcome kind counts as a request.
func TestRequestCount_AllOutcomes(t *testing.T) {
	tr := NewTracker(clockwork.NewFakeClock(), time.Minute)
	tr.Record(OutcomeSuccess)
	tr.Record(OutcomeDegraded)
	tr.Record(OutcomeDenied)
	tr.Record(OutcomeDenied)
	if n := tr.RequestCount(time.Minute); n != 4 {
		t.Errorf("RequestCount() = %d, want 4", n)
	}
	if n := tr.DenialCount(time.Minute); n != 2 {
		t.Errorf("DenialCount() = %d, want 2", n)
	}
}

func TestDegradedRate_ExcludesDenials(t *testing.T) {
	tr := NewTracker(clockwork.NewFakeClock(), time.Minute)
	tr.Record(OutcomeSuccess)
	tr.Record(OutcomeSuccess)
	tr.Record(OutcomeDegraded)
	tr.Record(OutcomeDenied)
	degraded, total := tr.DegradedRate(time.Minute)
	if degraded != 1 || total != 3 {
		t.Errorf("DegradedRate() = (%d, %d), want (1, 3)", degraded, total)
	}
}

// TestWindow_ExpiresOldOutcomes verifies that outcomes outside the window are not counted.
func TestWindow_ExpiresOldOutcomes(t *testing.T) {
	clock := clockwork.NewFakeClock()
	tr := NewTracker(clock, 5*time.Minute)
	tr.Record(OutcomeSuccess)
	clock.Advance(90 * time.Second)
	tr.Record(OutcomeDenied)

	if n := tr.RequestCount(time.Minute); n != 1 {
		t.Errorf("RequestCount(1m) = %d, want 1", n)
	}
	if n := tr.RequestCount(2 * time.Minute); n != 2 {
		t.Errorf("RequestCount(2m) = %d, want 2", n)
	}
}

func TestRetention_PrunesOnRecord(t *testing.T) {
	clock := clockwork.NewFakeClock()
	tr := NewTracker(clock, time.Minute)
	tr.Record(OutcomeSuccess)
	clock.Advance(2 * time.Minute)
	tr.Record(OutcomeSuccess)

	tr.mu.Lock()
	kept := len(tr.times[OutcomeSuccess])
	tr.mu.Unlock()
	if kept != 1 {
		t.Errorf("retained %d success timestamps, want 1", kept)
	}
}

func TestReset(t *testing.T) {
	tr := NewTracker(clockwork.NewFakeClock(), time.Minute)
	tr.Record(OutcomeDegraded)
	tr.Reset()
	if n := tr.RequestCount(time.Minute); n != 0 {
		t.Errorf("RequestCount() after Reset = %d, want 0", n)
	}
}
