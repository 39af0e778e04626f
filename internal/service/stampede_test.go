package service

import (
	"sync"
	"testing"
)

// TestStampedeTracker_RecordMissRecordDone verifies that RecordMiss counts
// concurrent misses per key and that RecordDone releases them until the key is removed.
func TestStampedeTracker_RecordMissRecordDone(t *testing.T) {
	st := newStampedeTracker()
	key := "98:76"

	if got := st.RecordMiss(key); got != 1 {
		t.Errorf("RecordMiss first = %d, want 1", got)
	}
	if got := st.RecordMiss(key); got != 2 {
		t.Errorf("RecordMiss second = %d, want 2", got)
	}

	st.RecordDone(key)
	if got := st.InProgress(key); got != 1 {
		t.Errorf("after one done, InProgress = %d, want 1", got)
	}
	st.RecordDone(key)
	if got := st.InProgress(key); got != 0 {
		t.Errorf("after all done, InProgress = %d, want 0", got)
	}
	st.RecordDone(key)
	if got := st.RecordMiss(key); got != 1 {
		t.Errorf("extra RecordDone must not go negative, RecordMiss = %d, want 1", got)
	}
}

func TestStampedeTracker_IndependentKeys(t *testing.T) {
	st := newStampedeTracker()
	st.RecordMiss("98:76")
	if got := st.RecordMiss("60:127"); got != 1 {
		t.Errorf("RecordMiss other key = %d, want 1", got)
	}
}

func TestStampedeTracker_Concurrent(t *testing.T) {
	st := newStampedeTracker()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			st.RecordMiss("k")
			st.RecordDone("k")
		}()
	}
	wg.Wait()
	if got := st.InProgress("k"); got != 0 {
		t.Errorf("InProgress = %d, want 0", got)
	}
}
