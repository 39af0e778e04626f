package http

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/weather-outfit-service/internal/observability"
	"github.com/kjstillabower/weather-outfit-service/internal/traffic"
)

// RouterDeps are the collaborators of NewRouter.
type RouterDeps struct {
	Handler  *Handler
	Logger   *zap.Logger
	Limiter  *rate.Limiter // nil disables rate limiting
	Tracker  *traffic.Tracker
	InFlight *InFlightTracker
}

// NewRouter builds the route table: /health, /metrics and the rate-limited /api subtree.
func NewRouter(d RouterDeps) *mux.Router {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	inFlight := d.InFlight
	if inFlight == nil {
		inFlight = &InFlightTracker{}
	}

	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(NotFound)
	router.MethodNotAllowedHandler = http.HandlerFunc(MethodNotAllowed)
	router.Use(CorrelationIDMiddleware(logger))
	router.Use(MetricsMiddleware)
	router.Use(InFlightMiddleware(inFlight))
	router.HandleFunc("/health", d.Handler.GetHealth).Methods(http.MethodGet)
	router.Handle("/metrics", observability.MetricsHandler()).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.Use(RateLimitMiddleware(d.Limiter, d.Tracker))
	api.HandleFunc("/weather", d.Handler.GetWeather).Methods(http.MethodGet)
	return router
}
