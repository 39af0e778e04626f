// Package lifecycle holds the process phase reported by the health check.
package lifecycle

import "sync/atomic"

// Phase is the process lifecycle phase.
type Phase int32

const (
	// PhaseStarting is set until the listener is serving.
	PhaseStarting Phase = iota
	// PhaseServing is the normal running phase.
	PhaseServing
	// PhaseShuttingDown is set once SIGTERM/SIGINT is received.
	PhaseShuttingDown
)

func (p Phase) String() string {
	switch p {
	case PhaseStarting:
		return "starting"
	case PhaseServing:
		return "ok"
	case PhaseShuttingDown:
		return "shutting-down"
	default:
		return "unknown"
	}
}

var phase atomic.Int32

// SetPhase records the current phase.
func SetPhase(p Phase) {
	phase.Store(int32(p))
}

// Current returns the current phase.
func Current() Phase {
	return Phase(phase.Load())
}

// IsShuttingDown reports whether the process is draining. Health returns 503
// while true.
func IsShuttingDown() bool {
	return Current() == PhaseShuttingDown
}
