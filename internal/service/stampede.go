package service

import "sync"

// stampedeTracker counts misses in progress per grid key. More than one
// concurrent miss for a key is a stampede; with coalescing enabled they share
// one assembly, without it each one calls upstream.
type stampedeTracker struct {
	mu     sync.Mutex
	active map[string]int
}

func newStampedeTracker() *stampedeTracker {
	return &stampedeTracker{active: make(map[string]int)}
}

// RecordMiss registers a miss for key and returns the number in progress,
// including this one. Pair with RecordDone.
func (st *stampedeTracker) RecordMiss(key string) int {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.active[key]++
	return st.active[key]
}

// RecordDone releases one miss for key.
func (st *stampedeTracker) RecordDone(key string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.active[key] <= 1 {
		delete(st.active, key)
		return
	}
	st.active[key]--
}

// InProgress returns the number of misses in progress for key.
func (st *stampedeTracker) InProgress(key string) int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.active[key]
}
