package lifecycle

import "testing"

func TestCurrent_DefaultStarting(t *testing.T) {
	SetPhase(PhaseStarting)
	if got := Current(); got != PhaseStarting {
		t.Errorf("Current() = %v, want starting", got)
	}
	if IsShuttingDown() {
		t.Error("IsShuttingDown() = true while starting")
	}
}

func TestSetPhase_ShuttingDown(t *testing.T) {
	SetPhase(PhaseShuttingDown)
	defer SetPhase(PhaseStarting)
	if !IsShuttingDown() {
		t.Error("IsShuttingDown() = false after SetPhase(PhaseShuttingDown)")
	}
}

func TestPhase_String(t *testing.T) {
	tests := []struct {
		p    Phase
		want string
	}{
		{PhaseStarting, "starting"},
		{PhaseServing, "ok"},
		{PhaseShuttingDown, "shutting-down"},
		{Phase(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.p.String(); got != tt.want {
			t.Errorf("Phase(%d).String() = %q, want %q", tt.p, got, tt.want)
		}
	}
}
