package http

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/weather-outfit-service/internal/lifecycle"
	"github.com/kjstillabower/weather-outfit-service/internal/models"
	"github.com/kjstillabower/weather-outfit-service/internal/observability"
	"github.com/kjstillabower/weather-outfit-service/internal/traffic"
	"github.com/kjstillabower/weather-outfit-service/internal/validation"
)

// SnapshotProvider returns the snapshot for a grid cell. Implemented by
// service.SnapshotService.
type SnapshotProvider interface {
	Snapshot(ctx context.Context, grid models.GridCoordinate) models.Snapshot
}

// HealthConfig holds the inputs of the health decision.
type HealthConfig struct {
	// KeyConfigured is false when no upstream service key is set.
	KeyConfigured    bool
	DegradedWindow   time.Duration
	DegradedErrorPct int
	// CachePing, when set, is called to check cache reachability. Used when backend is memcached.
	CachePing func() error
	// BreakerState, when set, reports the upstream circuit breaker state.
	BreakerState func() string
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	snapshots        SnapshotProvider
	defaultGrid      models.GridCoordinate
	tracker          *traffic.Tracker
	healthConfig     *HealthConfig
	logger           *zap.Logger
	healthStatusMu   sync.Mutex
	healthStatusPrev string
}

// NewHandler returns a new Handler. Requests without nx/ny use defaultGrid.
func NewHandler(
	snapshots SnapshotProvider,
	defaultGrid models.GridCoordinate,
	tracker *traffic.Tracker,
	healthConfig *HealthConfig,
	logger *zap.Logger,
) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		snapshots:    snapshots,
		defaultGrid:  defaultGrid,
		tracker:      tracker,
		healthConfig: healthConfig,
		logger:       logger,
	}
}

// GetWeather handles GET /api/weather?nx=&ny=. Upstream failures never fail
// the request; they show up as per-feed ok:false in raw.
func (h *Handler) GetWeather(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	grid, err := validation.ParseGrid(q.Get("nx"), q.Get("ny"), h.defaultGrid)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_GRID", err.Error())
		return
	}

	observability.RecordWeatherQuery(grid.Key())
	snap := h.snapshots.Snapshot(r.Context(), grid)

	if h.tracker != nil {
		if snap.Raw.Observation.OK && snap.Raw.Forecast.OK {
			h.tracker.Record(traffic.OutcomeSuccess)
		} else {
			h.tracker.Record(traffic.OutcomeDegraded)
		}
	}
	writeJSON(w, http.StatusOK, snap)
}

// healthResult holds the computed health status and metadata for logging.
type healthResult struct {
	status     string
	statusCode int
	reason     string
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	result := h.computeHealthStatus()

	h.healthStatusMu.Lock()
	prev := h.healthStatusPrev
	if prev != "" && prev != result.status {
		h.logger.Info("health status transition",
			zap.String("previous_status", prev),
			zap.String("current_status", result.status),
			zap.String("reason", result.reason))
	}
	h.healthStatusPrev = result.status
	h.healthStatusMu.Unlock()

	checks := make(map[string]string)
	switch {
	case h.healthConfig != nil && !h.healthConfig.KeyConfigured:
		checks["upstream"] = "unconfigured"
	case result.reason == "feed_error_rate":
		checks["upstream"] = "unhealthy"
	default:
		checks["upstream"] = "healthy"
	}
	if h.healthConfig != nil && h.healthConfig.CachePing != nil {
		if h.healthConfig.CachePing() == nil {
			checks["cache"] = "healthy"
		} else {
			checks["cache"] = "unhealthy"
		}
	}
	if h.healthConfig != nil && h.healthConfig.BreakerState != nil {
		checks["circuitBreaker"] = h.healthConfig.BreakerState()
	}
	resp := map[string]interface{}{
		"status":    result.status,
		"service":   "weather-outfit-service",
		"version":   "dev",
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if result.reason != "" {
		resp["reason"] = result.reason
	}
	writeJSON(w, result.statusCode, resp)
}

// computeHealthStatus evaluates, in priority order:
// shutting-down > starting > missing service key > feed error rate > healthy.
func (h *Handler) computeHealthStatus() healthResult {
	switch lifecycle.Current() {
	case lifecycle.PhaseShuttingDown:
		return healthResult{"shutting-down", http.StatusServiceUnavailable, "signal"}
	case lifecycle.PhaseStarting:
		return healthResult{"starting", http.StatusServiceUnavailable, "not_serving"}
	}
	if h.healthConfig == nil {
		return healthResult{"healthy", http.StatusOK, ""}
	}
	if !h.healthConfig.KeyConfigured {
		return healthResult{"degraded", http.StatusServiceUnavailable, "service_key_missing"}
	}
	if h.tracker != nil && h.healthConfig.DegradedWindow > 0 && h.healthConfig.DegradedErrorPct > 0 {
		degraded, total := h.tracker.DegradedRate(h.healthConfig.DegradedWindow)
		if total > 0 {
			pct := float64(degraded) * 100 / float64(total)
			if pct >= float64(h.healthConfig.DegradedErrorPct) {
				return healthResult{"degraded", http.StatusServiceUnavailable, "feed_error_rate"}
			}
		}
	}
	return healthResult{"healthy", http.StatusOK, ""}
}

// writeJSON writes a JSON response with the specified HTTP status code.
// Non-ASCII text (Korean tips) is written as UTF-8, not escaped.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

// writeError writes an error response in the standard error format with code, message,
// and requestId (correlation ID) if available in request context.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, map[string]interface{}{
		"ok": false,
		"error": map[string]string{
			"code":      code,
			"message":   message,
			"requestId": observability.CorrelationID(r.Context()),
		},
	})
}

// NotFound writes the standard error body for unknown routes.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, http.StatusNotFound, "NOT_FOUND", "no such route")
}

// MethodNotAllowed writes the standard error body for wrong methods.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
}
