package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/weather-outfit-service/internal/observability"
	"github.com/kjstillabower/weather-outfit-service/internal/traffic"
)

func TestMiddleware_CorrelationIDGenerated(t *testing.T) {
	h := NewHandler(&fakeSnapshots{}, defaultGrid, nil, nil, nil)
	w := httptest.NewRecorder()
	newTestRouter(h).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/weather", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, w.Header().Get("X-Correlation-ID"), 36)
}

func TestMiddleware_CorrelationIDPropagated(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	var gotID string
	router := mux.NewRouter()
	router.Use(CorrelationIDMiddleware(zap.New(core)))
	router.HandleFunc("/x", func(w http.ResponseWriter, r *http.Request) {
		gotID = observability.CorrelationID(r.Context())
		observability.LoggerFrom(r.Context()).Info("inside")
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Correlation-ID", "test-correlation-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "test-correlation-123", gotID)
	assert.Equal(t, "test-correlation-123", w.Header().Get("X-Correlation-ID"))
	entries := logs.FilterMessage("inside").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "test-correlation-123", entries[0].ContextMap()["correlation_id"])
}

func TestMiddleware_RateLimit(t *testing.T) {
	tracker := traffic.NewTracker(clockwork.NewFakeClock(), time.Minute)
	h := NewHandler(&fakeSnapshots{}, defaultGrid, tracker, nil, nil)
	router := NewRouter(RouterDeps{
		Handler: h,
		Limiter: rate.NewLimiter(rate.Every(time.Hour), 1),
		Tracker: tracker,
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/weather", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/weather", nil))
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "RATE_LIMITED")
	assert.Equal(t, 1, tracker.DenialCount(time.Minute))

	// health is outside /api and never limited
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.NotEqual(t, http.StatusTooManyRequests, w.Code)
}

func TestMiddleware_RateLimitDisabled(t *testing.T) {
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })
	RateLimitMiddleware(nil, nil)(next).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.True(t, called)
}

// TestRouter_NoLimiterNeverRejects verifies the default wiring (no limiter)
// always answers /api/weather with 200, however many requests arrive.
func TestRouter_NoLimiterNeverRejects(t *testing.T) {
	tracker := traffic.NewTracker(clockwork.NewFakeClock(), time.Minute)
	h := NewHandler(&fakeSnapshots{}, defaultGrid, tracker, nil, nil)
	router := NewRouter(RouterDeps{Handler: h, Tracker: tracker})

	for i := 0; i < 200; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/weather", nil))
		require.Equal(t, http.StatusOK, w.Code, "request %d", i)
	}
	assert.Zero(t, tracker.DenialCount(time.Minute))
}

func TestMiddleware_MetricsUseRouteTemplate(t *testing.T) {
	h := NewHandler(&fakeSnapshots{}, defaultGrid, nil, nil, nil)
	router := newTestRouter(h)
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/weather?nx=60&ny=127", nil))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.True(t, strings.Contains(body, `httpRequestsTotal{method="GET",route="/api/weather",statusCode="2xx"}`), "metrics output missing route label")
}

func TestMiddleware_InFlight(t *testing.T) {
	tracker := &InFlightTracker{}
	var during int64
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { during = tracker.Count() })
	InFlightMiddleware(tracker)(next).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, int64(1), during)
	assert.Equal(t, int64(0), tracker.Count())
}

func TestStatusCodeString(t *testing.T) {
	assert.Equal(t, "2xx", statusCodeString(200))
	assert.Equal(t, "4xx", statusCodeString(429))
	assert.Equal(t, "5xx", statusCodeString(503))
}

func TestGetRoute_Unmatched(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/whatever", nil)
	assert.Equal(t, "unmatched", getRoute(req.WithContext(context.Background())))
}
