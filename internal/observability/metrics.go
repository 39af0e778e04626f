package observability

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry *prometheus.Registry

	// HTTP request rate. Watch for: sudden drops (service down) or spikes (traffic surge).
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTP request latency per request. Watch for: p95/p99 latency increases.
	HTTPRequestDuration *prometheus.HistogramVec

	// Concurrent requests in flight. Watch for: saturation.
	HTTPRequestsInFlight prometheus.Gauge

	// Upstream feed calls by feed (ncst, fcst) and status.
	UpstreamCallsTotal *prometheus.CounterVec

	// Upstream latency per call. Watch for: p99 near the configured api timeout.
	UpstreamDuration *prometheus.HistogramVec

	// Upstream failures by feed and error category (see client.CategorizeError).
	UpstreamErrorsTotal *prometheus.CounterVec

	// Nowcast previous-hour retries. A steady rate is normal just after the hour.
	ObservationFallbacksTotal prometheus.Counter

	// Snapshot cache hits and misses. Hit rate = hits/(hits+misses).
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	// Cache backend errors by operation and category.
	CacheErrorsTotal *prometheus.CounterVec

	// Cache backend latency by operation and result.
	CacheOperationDurationSeconds *prometheus.HistogramVec

	// Concurrent misses for the same grid. Watch for: sustained stampedes.
	CacheStampedeDetectedTotal *prometheus.CounterVec

	// Misses served by another in-flight assembly for the same grid.
	RequestCoalescingHitsTotal prometheus.Counter

	// Time to assemble a snapshot on a cache miss (both feeds + derivation).
	SnapshotAssemblyDuration prometheus.Histogram

	// Comfort band of every freshly assembled snapshot.
	ComfortBandTotal *prometheus.CounterVec

	// Per-grid query count (allow-list; others go to "other").
	WeatherQueriesByGridTotal *prometheus.CounterVec

	// Rate limit denials. Watch for: overload, capacity exceeded.
	RateLimitDeniedTotal prometheus.Counter

	// Circuit breaker state per component: 0 closed, 1 half-open, 2 open.
	CircuitBreakerState *prometheus.GaugeVec

	// Cache warming runs, failures and duration.
	CacheWarmingTotal           prometheus.Counter
	CacheWarmingErrorsTotal     prometheus.Counter
	CacheWarmingDurationSeconds prometheus.Histogram

	trackedGridsMu sync.RWMutex
	trackedGrids   map[string]struct{}

	trafficGaugesOnce sync.Once
)

func init() {
	registry = prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpRequestsTotal",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "statusCode"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "httpRequestDurationSeconds",
			Help:    "HTTP request latency in seconds (per request)",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "httpRequestsInFlight",
			Help: "Number of HTTP requests currently being served",
		},
	)
	UpstreamCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstreamCallsTotal",
			Help: "Total number of upstream feed calls",
		},
		[]string{"feed", "status"},
	)
	UpstreamDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstreamDurationSeconds",
			Help:    "Upstream feed latency in seconds (per call)",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"feed", "status"},
	)
	UpstreamErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstreamErrorsTotal",
			Help: "Upstream feed failures by error category",
		},
		[]string{"feed", "category"},
	)
	ObservationFallbacksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "observationFallbacksTotal",
			Help: "Nowcast calls retried against the previous hour",
		},
	)
	CacheHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cacheHitsTotal",
			Help: "Total number of snapshot cache hits",
		},
		[]string{"cacheType"},
	)
	CacheMissesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cacheMissesTotal",
			Help: "Total number of snapshot cache misses (absent or expired)",
		},
		[]string{"cacheType"},
	)
	CacheErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cacheErrorsTotal",
			Help: "Cache backend errors by operation and category",
		},
		[]string{"operation", "category"},
	)
	CacheOperationDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cacheOperationDurationSeconds",
			Help:    "Cache backend latency in seconds",
			Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5},
		},
		[]string{"operation", "result"},
	)
	CacheStampedeDetectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cacheStampedeDetectedTotal",
			Help: "Cache misses that overlapped another in-flight miss for the same grid",
		},
		[]string{"grid"},
	)
	RequestCoalescingHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "requestCoalescingHitsTotal",
			Help: "Cache misses that shared another request's snapshot assembly",
		},
	)
	SnapshotAssemblyDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "snapshotAssemblyDurationSeconds",
			Help:    "Snapshot assembly latency on cache miss",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10},
		},
	)
	ComfortBandTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "comfortBandTotal",
			Help: "Comfort band of freshly assembled snapshots",
		},
		[]string{"band"},
	)
	WeatherQueriesByGridTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherQueriesByGridTotal",
			Help: "Weather queries by grid (allow-list; others use grid=other)",
		},
		[]string{"grid"},
	)
	RateLimitDeniedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rateLimitDeniedTotal",
			Help: "Total number of requests denied by rate limiter (429)",
		},
	)
	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuitBreakerState",
			Help: "Circuit breaker state: 0 closed, 1 half-open, 2 open",
		},
		[]string{"component"},
	)
	CacheWarmingTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cacheWarmingTotal",
			Help: "Cache warming runs",
		},
	)
	CacheWarmingErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cacheWarmingErrorsTotal",
			Help: "Cache warming runs with at least one failed grid",
		},
	)
	CacheWarmingDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cacheWarmingDurationSeconds",
			Help:    "Cache warming run duration",
			Buckets: []float64{.5, 1, 2.5, 5, 10, 30},
		},
	)

	registry.MustRegister(
		HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight,
		UpstreamCallsTotal, UpstreamDuration, UpstreamErrorsTotal, ObservationFallbacksTotal,
		CacheHitsTotal, CacheMissesTotal, CacheErrorsTotal, CacheOperationDurationSeconds,
		CacheStampedeDetectedTotal, RequestCoalescingHitsTotal,
		SnapshotAssemblyDuration, ComfortBandTotal,
		WeatherQueriesByGridTotal,
		RateLimitDeniedTotal,
		CircuitBreakerState,
		CacheWarmingTotal, CacheWarmingErrorsTotal, CacheWarmingDurationSeconds,
	)
}

// WindowCounter reports counts over a sliding window. Implemented by traffic.Tracker.
type WindowCounter interface {
	RequestCount(window time.Duration) int
	DenialCount(window time.Duration) int
}

// RegisterTrafficGauges registers request and reject gauges over window.
// Only the first call registers.
func RegisterTrafficGauges(counter WindowCounter, window time.Duration) {
	trafficGaugesOnce.Do(func() {
		registry.MustRegister(
			prometheus.NewGaugeFunc(
				prometheus.GaugeOpts{
					Name: "rateLimitRequestsInWindow",
					Help: "Requests hitting rate-limited path in sliding window; load/capacity planning",
				},
				func() float64 { return float64(counter.RequestCount(window)) },
			),
			prometheus.NewGaugeFunc(
				prometheus.GaugeOpts{
					Name: "rateLimitRejectsInWindow",
					Help: "429 responses in sliding window; are we rejecting requests",
				},
				func() float64 { return float64(counter.DenialCount(window)) },
			),
		)
	})
}

// SetTrackedGrids sets the allow-list for grid metrics. Non-tracked grids increment "other".
func SetTrackedGrids(keys []string) {
	trackedGridsMu.Lock()
	defer trackedGridsMu.Unlock()
	trackedGrids = make(map[string]struct{}, len(keys))
	for _, k := range keys {
		trackedGrids[strings.TrimSpace(k)] = struct{}{}
	}
}

// GridLabel returns key if it is tracked, otherwise "other".
func GridLabel(key string) string {
	trackedGridsMu.RLock()
	_, ok := trackedGrids[key] // nil map read is safe in Go
	trackedGridsMu.RUnlock()
	if ok {
		return key
	}
	return "other"
}

// RecordWeatherQuery records a weather query for the grid key.
func RecordWeatherQuery(key string) {
	WeatherQueriesByGridTotal.WithLabelValues(GridLabel(key)).Inc()
}

// MetricsHandler returns an http.Handler that serves application and runtime metrics.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
