package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/kjstillabower/weather-outfit-service/internal/cache"
	"github.com/kjstillabower/weather-outfit-service/internal/client"
	"github.com/kjstillabower/weather-outfit-service/internal/messages"
	"github.com/kjstillabower/weather-outfit-service/internal/models"
	"github.com/kjstillabower/weather-outfit-service/internal/observability"
)

// ErrEmptyData is reported when both the current-hour and the previous-hour
// observation calls return no records.
var ErrEmptyData = errors.New("no observation data")

// DefaultTTL is how long an assembled snapshot is served from cache.
const DefaultTTL = 3 * time.Minute

// Config configures a SnapshotService.
type Config struct {
	TTL      time.Duration
	Coalesce bool
}

// SnapshotService assembles per-grid weather snapshots behind a cache.
// Snapshot never fails; upstream failures degrade individual fields.
type SnapshotService struct {
	client    client.FeedClient
	cache     cache.Cache
	banks     *messages.Banks
	clock     clockwork.Clock
	logger    *zap.Logger
	ttl       time.Duration
	stampede  *stampedeTracker
	coalescer *requestCoalescer // nil when coalescing is disabled
}

// NewSnapshotService wires the service. A nil clock uses the wall clock, nil
// banks use the built-in message banks, and a nil logger is a no-op.
func NewSnapshotService(fc client.FeedClient, c cache.Cache, banks *messages.Banks, clock clockwork.Clock, logger *zap.Logger, cfg Config) *SnapshotService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if banks == nil {
		banks = messages.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	var coalescer *requestCoalescer
	if cfg.Coalesce {
		coalescer = newRequestCoalescer()
	}
	return &SnapshotService{
		client:    fc,
		cache:     c,
		banks:     banks,
		clock:     clock,
		logger:    logger,
		ttl:       cfg.TTL,
		stampede:  newStampedeTracker(),
		coalescer: coalescer,
	}
}

// TTL returns the cache TTL in use.
func (s *SnapshotService) TTL() time.Duration {
	return s.ttl
}

func (s *SnapshotService) loggerFor(ctx context.Context) *zap.Logger {
	return observability.LoggerOr(ctx, s.logger)
}

// Snapshot returns the snapshot for grid, from cache when an entry younger
// than the TTL exists (Cached=true), otherwise freshly assembled (Cached=false).
func (s *SnapshotService) Snapshot(ctx context.Context, grid models.GridCoordinate) models.Snapshot {
	start := time.Now()
	logger := s.loggerFor(ctx)
	key := grid.Key()

	if snap, ok := s.lookup(ctx, grid); ok {
		snap.Cached = true
		logger.Debug("snapshot served", zap.String("grid", key), zap.Bool("cached", true), zap.Duration("duration", time.Since(start)))
		return snap
	}

	concurrentMisses := s.stampede.RecordMiss(key)
	defer s.stampede.RecordDone(key)
	if concurrentMisses > 1 {
		observability.CacheStampedeDetectedTotal.WithLabelValues(observability.GridLabel(key)).Inc()
	}

	logger.Debug("cache miss, assembling", zap.String("grid", key))
	snap, _ := s.refresh(ctx, grid)
	snap.Cached = false
	logger.Debug("snapshot served", zap.String("grid", key), zap.Bool("cached", false), zap.Duration("duration", time.Since(start)))
	return snap
}

// Refresh assembles and stores a snapshot for grid without consulting the
// cache. The returned error joins the failures of both feeds; the snapshot
// is stored regardless.
func (s *SnapshotService) Refresh(ctx context.Context, grid models.GridCoordinate) (models.Snapshot, error) {
	return s.refresh(ctx, grid)
}

func (s *SnapshotService) refresh(ctx context.Context, grid models.GridCoordinate) (models.Snapshot, error) {
	if s.coalescer == nil {
		return s.assembleAndStore(ctx, grid)
	}
	snap, err, shared := s.coalescer.Do(ctx, grid.Key(), func(ctx context.Context) (models.Snapshot, error) {
		return s.assembleAndStore(ctx, grid)
	})
	if shared {
		observability.RequestCoalescingHitsTotal.Inc()
	}
	return snap, err
}

func (s *SnapshotService) assembleAndStore(ctx context.Context, grid models.GridCoordinate) (models.Snapshot, error) {
	snap, feedErr := s.assemble(ctx, grid)
	s.store(ctx, grid, snap)
	return snap, feedErr
}

func (s *SnapshotService) lookup(ctx context.Context, grid models.GridCoordinate) (models.Snapshot, bool) {
	getStart := time.Now()
	snap, ok, err := s.cache.Get(ctx, grid)
	getDuration := time.Since(getStart).Seconds()
	switch {
	case err != nil:
		observability.CacheErrorsTotal.WithLabelValues("get", categorizeCacheError(err)).Inc()
		observability.CacheOperationDurationSeconds.WithLabelValues("get", "error").Observe(getDuration)
		s.loggerFor(ctx).Warn("cache get failed", zap.String("grid", grid.Key()), zap.Error(err))
		return models.Snapshot{}, false
	case ok:
		observability.CacheOperationDurationSeconds.WithLabelValues("get", "success").Observe(getDuration)
		observability.CacheHitsTotal.WithLabelValues("snapshot").Inc()
		return snap, true
	default:
		observability.CacheOperationDurationSeconds.WithLabelValues("get", "success").Observe(getDuration)
		observability.CacheMissesTotal.WithLabelValues("snapshot").Inc()
		return models.Snapshot{}, false
	}
}

func (s *SnapshotService) store(ctx context.Context, grid models.GridCoordinate, snap models.Snapshot) {
	setStart := time.Now()
	if err := s.cache.Set(ctx, grid, snap, s.ttl); err != nil {
		observability.CacheErrorsTotal.WithLabelValues("set", categorizeCacheError(err)).Inc()
		observability.CacheOperationDurationSeconds.WithLabelValues("set", "error").Observe(time.Since(setStart).Seconds())
		s.loggerFor(ctx).Warn("cache set failed", zap.String("grid", grid.Key()), zap.Error(err))
		return
	}
	observability.CacheOperationDurationSeconds.WithLabelValues("set", "success").Observe(time.Since(setStart).Seconds())
}

// categorizeCacheError returns a stable label for cache error metrics (timeout, connection, unknown).
func categorizeCacheError(err error) string {
	if err == nil {
		return "unknown"
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return "timeout"
	}
	errStr := err.Error()
	if strings.Contains(errStr, "timeout") {
		return "timeout"
	}
	if strings.Contains(errStr, "connection") || strings.Contains(errStr, "network") {
		return "connection"
	}
	return "unknown"
}
