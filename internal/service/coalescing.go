package service

import (
	"context"

	"golang.org/x/sync/singleflight"

	"github.com/kjstillabower/weather-outfit-service/internal/models"
)

// requestCoalescer lets concurrent misses for the same grid share one
// assembly. Only in-flight work is shared; nothing is remembered after it
// completes.
type requestCoalescer struct {
	group singleflight.Group
}

func newRequestCoalescer() *requestCoalescer {
	return &requestCoalescer{}
}

type coalescedResult struct {
	snap models.Snapshot
	err  error
}

// Do runs fn once per key among concurrent callers. shared is true when the
// result was also delivered to another caller. fn runs detached from the
// leader's cancellation so that followers are not failed by it; request
// values such as the logger are kept.
func (rc *requestCoalescer) Do(ctx context.Context, key string, fn func(context.Context) (models.Snapshot, error)) (models.Snapshot, error, bool) {
	detached := context.WithoutCancel(ctx)
	v, _, shared := rc.group.Do(key, func() (interface{}, error) {
		snap, err := fn(detached)
		return coalescedResult{snap: snap, err: err}, nil
	})
	res := v.(coalescedResult)
	return res.snap, res.err, shared
}
