package http

import (
	"context"
	"sync"
)

// InFlightTracker counts requests being served so shutdown can wait for
// them after the listener is closed.
type InFlightTracker struct {
	mu   sync.Mutex
	n    int64
	idle chan struct{} // closed when n drops to zero; nil until someone waits
}

// Begin marks a request as started.
func (t *InFlightTracker) Begin() {
	t.mu.Lock()
	t.n++
	t.mu.Unlock()
}

// End marks a request as finished and wakes waiters when none remain.
func (t *InFlightTracker) End() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.n > 0 {
		t.n--
	}
	if t.n == 0 && t.idle != nil {
		close(t.idle)
		t.idle = nil
	}
}

func (t *InFlightTracker) Count() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.n
}

// Wait blocks until no request is in flight or ctx is done.
func (t *InFlightTracker) Wait(ctx context.Context) error {
	t.mu.Lock()
	if t.n == 0 {
		t.mu.Unlock()
		return nil
	}
	if t.idle == nil {
		t.idle = make(chan struct{})
	}
	idle := t.idle
	t.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
