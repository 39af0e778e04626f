package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/weather-outfit-service/internal/cache"
	"github.com/kjstillabower/weather-outfit-service/internal/circuitbreaker"
	"github.com/kjstillabower/weather-outfit-service/internal/client"
	"github.com/kjstillabower/weather-outfit-service/internal/config"
	httphandler "github.com/kjstillabower/weather-outfit-service/internal/http"
	"github.com/kjstillabower/weather-outfit-service/internal/lifecycle"
	"github.com/kjstillabower/weather-outfit-service/internal/messages"
	"github.com/kjstillabower/weather-outfit-service/internal/observability"
	"github.com/kjstillabower/weather-outfit-service/internal/service"
	"github.com/kjstillabower/weather-outfit-service/internal/traffic"
)

func main() {
	logger, err := observability.NewLogger(observability.LoggerOptions{
		Level: os.Getenv("LOG_LEVEL"),
		Env:   os.Getenv("ENV_NAME"),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}
	if !cfg.HasServiceKey() {
		logger.Warn("KMA service key not configured; feeds will report ok=false and /health is degraded")
	}

	kma := client.NewKMAClient(client.Config{
		ServiceKey:     cfg.ServiceKey,
		ObservationURL: cfg.ObservationURL,
		ForecastURL:    cfg.ForecastURL,
		Timeout:        cfg.APITimeout,
		Rows:           cfg.PageRows,
	})

	var breaker *circuitbreaker.CircuitBreaker
	if cfg.CircuitBreakerEnabled {
		breaker = circuitbreaker.New(circuitbreaker.Config{
			FailureThreshold: cfg.CircuitFailures,
			Timeout:          cfg.CircuitTimeout,
			Component:        "kma",
			OnStateChange: func(from, to circuitbreaker.State) {
				logger.Warn("circuit breaker state change", zap.String("from", from.String()), zap.String("to", to.String()))
				observability.CircuitBreakerState.WithLabelValues("kma").Set(float64(to))
			},
		})
		kma.SetCircuitBreaker(breaker)
		observability.CircuitBreakerState.WithLabelValues("kma").Set(0)
		logger.Info("circuit breaker enabled", zap.Int("failure_threshold", cfg.CircuitFailures), zap.Duration("timeout", cfg.CircuitTimeout))
	}

	var snapshotCache cache.Cache
	var memcacheCloser *cache.MemcachedCache
	switch cfg.CacheBackend {
	case "memcached":
		mc := cache.NewMemcachedCache(cfg.MemcachedAddrs, cfg.MemcachedTimeout, cfg.MemcachedMaxIdleConns, nil)
		memcacheCloser = mc
		snapshotCache = mc
		logger.Info("cache backend: memcached", zap.String("addrs", cfg.MemcachedAddrs))
	default:
		snapshotCache = cache.NewInMemoryCache(nil)
		logger.Info("cache backend: in_memory")
	}

	banks, err := messages.Load(cfg.MessagesFile)
	if err != nil {
		logger.Fatal("messages", zap.Error(err))
	}

	snapshots := service.NewSnapshotService(kma, snapshotCache, banks, nil, logger, service.Config{
		TTL:      cfg.CacheTTL,
		Coalesce: cfg.CoalesceEnabled,
	})

	tracker := traffic.NewTracker(nil, 0)
	observability.RegisterTrafficGauges(tracker, cfg.DegradedWindow)
	observability.SetTrackedGrids(cfg.TrackedGridKeys())

	healthConfig := &httphandler.HealthConfig{
		KeyConfigured:    cfg.HasServiceKey(),
		DegradedWindow:   cfg.DegradedWindow,
		DegradedErrorPct: cfg.DegradedErrorPct,
	}
	if memcacheCloser != nil {
		healthConfig.CachePing = memcacheCloser.Ping
	}
	if breaker != nil {
		healthConfig.BreakerState = func() string { return breaker.State().String() }
	}

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
		logger.Info("rate limiting enabled", zap.Int("rps", cfg.RateLimitRPS), zap.Int("burst", cfg.RateLimitBurst))
	}
	handler := httphandler.NewHandler(snapshots, cfg.DefaultGrid, tracker, healthConfig, logger)
	inFlight := &httphandler.InFlightTracker{}
	router := httphandler.NewRouter(httphandler.RouterDeps{
		Handler:  handler,
		Logger:   logger,
		Limiter:  limiter,
		Tracker:  tracker,
		InFlight: inFlight,
	})

	warmer := cache.NewCacheWarmer(snapshots, logger)
	if cfg.HasServiceKey() {
		if err := warmer.Start(cfg.TrackedGrids, cfg.WarmingInterval); err != nil {
			logger.Error("cache warming not started", zap.Error(err))
		}
	}

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 2*cfg.APITimeout + 5*time.Second,
	}

	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		logger.Fatal("listen", zap.Error(err))
	}
	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()
	lifecycle.SetPhase(lifecycle.PhaseServing)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	<-ctx.Done()
	stop()

	logger.Info("graceful shutdown triggered")
	lifecycle.SetPhase(lifecycle.PhaseShuttingDown)
	warmer.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	logger.Info("waiting for in-flight requests", zap.Int64("count", inFlight.Count()))
	waitCtx, waitCancel := context.WithTimeout(context.Background(), cfg.InFlightWait)
	defer waitCancel()
	if err := inFlight.Wait(waitCtx); err != nil {
		logger.Warn("in-flight requests not completed", zap.Error(err), zap.Int64("remaining", inFlight.Count()))
	}

	if memcacheCloser != nil {
		if err := memcacheCloser.Close(); err != nil {
			logger.Error("memcached close", zap.Error(err))
		}
	}
	logger.Info("shutdown complete")
	if err := observability.FlushTelemetry(context.Background(), logger); err != nil {
		fmt.Fprintf(os.Stderr, "telemetry flush: %v\n", err)
	}
}
