package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kjstillabower/weather-outfit-service/internal/models"
	"github.com/kjstillabower/weather-outfit-service/internal/observability"
)

// SnapshotRefresher is implemented by the service layer. Refresh assembles
// a snapshot for grid and stores it, reporting any failed feed.
type SnapshotRefresher interface {
	Refresh(ctx context.Context, grid models.GridCoordinate) (models.Snapshot, error)
}

// maxWarmConcurrency bounds concurrent grid fetches per run.
const maxWarmConcurrency = 4

// CacheWarmer prefetches snapshots for a fixed list of grids.
type CacheWarmer struct {
	refresher SnapshotRefresher
	logger    *zap.Logger
	scheduler *gocron.Scheduler
}

// NewCacheWarmer creates a CacheWarmer that uses the given refresher and logger.
func NewCacheWarmer(refresher SnapshotRefresher, logger *zap.Logger) *CacheWarmer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheWarmer{refresher: refresher, logger: logger}
}

// Warm refreshes every grid and returns the joined per-grid errors.
func (w *CacheWarmer) Warm(ctx context.Context, grids []models.GridCoordinate) error {
	start := time.Now()
	observability.CacheWarmingTotal.Inc()
	w.logger.Info("warming cache", zap.Int("grids", len(grids)))

	errs := make([]error, len(grids))
	var g errgroup.Group
	g.SetLimit(maxWarmConcurrency)
	for i, grid := range grids {
		i, grid := i, grid
		g.Go(func() error {
			if _, err := w.refresher.Refresh(ctx, grid); err != nil {
				errs[i] = fmt.Errorf("warm %s: %w", grid, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	err := errors.Join(errs...)
	duration := time.Since(start).Seconds()
	observability.CacheWarmingDurationSeconds.Observe(duration)
	w.logger.Info("cache warming complete",
		zap.Int("grids", len(grids)),
		zap.Bool("failed", err != nil),
		zap.Float64("duration_seconds", duration),
	)
	if err != nil {
		observability.CacheWarmingErrorsTotal.Inc()
		return err
	}
	return nil
}

// Start schedules Warm every interval, beginning immediately. Overlapping
// runs are skipped. Each run gets its own deadline of one interval.
func (w *CacheWarmer) Start(grids []models.GridCoordinate, interval time.Duration) error {
	if len(grids) == 0 {
		w.logger.Info("cache warming disabled: no grids configured")
		return nil
	}
	if interval <= 0 {
		return fmt.Errorf("cache warming interval must be positive, got %s", interval)
	}

	s := gocron.NewScheduler(time.UTC)
	_, err := s.Every(interval).SingletonMode().Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), interval)
		defer cancel()
		if err := w.Warm(ctx, grids); err != nil {
			w.logger.Warn("cache warm failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("schedule cache warming: %w", err)
	}
	s.StartAsync()
	w.scheduler = s
	return nil
}

// Stop cancels future runs. Safe to call when Start was never called.
func (w *CacheWarmer) Stop() {
	if w.scheduler != nil {
		w.scheduler.Stop()
	}
}
