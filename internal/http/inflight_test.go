package http

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInFlightTracker_Count(t *testing.T) {
	tracker := &InFlightTracker{}
	assert.Equal(t, int64(0), tracker.Count())

	tracker.Begin()
	tracker.Begin()
	assert.Equal(t, int64(2), tracker.Count())

	tracker.End()
	tracker.End()
	assert.Equal(t, int64(0), tracker.Count())

	// an unmatched End never goes negative
	tracker.End()
	assert.Equal(t, int64(0), tracker.Count())
}

func TestInFlightTracker_WaitIdleReturnsImmediately(t *testing.T) {
	tracker := &InFlightTracker{}
	require.NoError(t, tracker.Wait(context.Background()))
}

func TestInFlightTracker_WaitWakesAllWaiters(t *testing.T) {
	tracker := &InFlightTracker{}
	tracker.Begin()

	var wg sync.WaitGroup
	errs := make(chan error, 3)
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			errs <- tracker.Wait(ctx)
		}()
	}

	time.Sleep(10 * time.Millisecond)
	tracker.End()
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestInFlightTracker_WaitContextCanceled(t *testing.T) {
	tracker := &InFlightTracker{}
	tracker.Begin()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := tracker.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int64(1), tracker.Count())
}
