package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/user-weather-service/internal/cache"
	"github.com/kjstillabower/user-weather-service/internal/config"
	httphandler "github.com/kjstillabower/user-weather-service/internal/http"
	"github.com/kjstillabower/user-weather-service/internal/lifecycle"
	"github.com/kjstillabower/user-weather-service/internal/observability"
	"github.com/kjstillabower/user-weather-service/internal/service"
	"github.com/kjstillabower/user-weather-service/internal/store"
	"github.com/kjstillabower/user-weather-service/internal/weather"
)

const (
	warmTimeout           = 30 * time.Second
	inFlightCheckInterval = 50 * time.Millisecond
)

func main() {
	logger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	a, err := newApp(cfg, logger)
	if err != nil {
		logger.Fatal("startup", zap.Error(err))
	}

	if cfg.CacheWarm && len(cfg.TrackedZipCodes) > 0 {
		warmCtx, warmCancel := context.WithTimeout(context.Background(), warmTimeout)
		if err := cache.NewCacheWarmer(a.forecasts, logger).Warm(warmCtx, cfg.TrackedZipCodes); err != nil {
			logger.Warn("cache warming failed", zap.Error(err))
		}
		warmCancel()
	}

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      a.handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	<-ctx.Done()
	stop()

	logger.Info("graceful shutdown triggered")
	lifecycle.SetShuttingDown(true)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	logger.Info("waiting for in-flight requests", zap.Int64("count", a.handler.InFlight()))
	waitCtx, waitCancel := context.WithTimeout(context.Background(), cfg.InFlightTimeout)
	defer waitCancel()
	if err := a.handler.WaitIdle(waitCtx, inFlightCheckInterval); err != nil {
		logger.Warn("in-flight requests not completed", zap.Error(err), zap.Int64("remaining", a.handler.InFlight()))
	}

	a.close()
	logger.Info("shutdown complete")
	if err := observability.FlushTelemetry(logger); err != nil {
		fmt.Fprintf(os.Stderr, "telemetry flush: %v\n", err)
	}
}

// app is the wired service: the HTTP handler plus what must be closed on shutdown.
type app struct {
	handler   *httphandler.Router
	forecasts *service.WeatherService
	store     store.UserStore
	memcached *cache.MemcachedCache // nil for the in-memory backend
	logger    *zap.Logger
}

func newApp(cfg *config.Config, logger *zap.Logger) (*app, error) {
	userStore, err := store.NewSQLiteStore(cfg.DatabasePath, logger)
	if err != nil {
		return nil, fmt.Errorf("user store: %w", err)
	}
	logger.Info("user store opened", zap.String("path", cfg.DatabasePath))

	a := &app{store: userStore, logger: logger}

	var forecastCache cache.Cache
	switch cfg.CacheBackend {
	case "memcached":
		mc, err := cache.NewMemcachedCache(cfg.MemcachedAddrs, cfg.CacheTTL, cfg.MemcachedTimeout, cfg.MemcachedMaxIdleConns)
		if err != nil {
			_ = userStore.Close()
			return nil, fmt.Errorf("memcached cache: %w", err)
		}
		a.memcached = mc
		forecastCache = mc
		logger.Info("cache backend: memcached", zap.String("addrs", cfg.MemcachedAddrs), zap.Duration("ttl", cfg.CacheTTL))
	default:
		forecastCache = cache.NewInMemoryCache(cache.PolicyForTTL(cfg.CacheTTL))
		logger.Info("cache backend: in_memory", zap.Duration("ttl", cfg.CacheTTL))
	}

	// The API key and URL are reserved for a real provider; never log the key itself.
	logger.Info("weather provider: mock",
		zap.String("weather_api_url", cfg.WeatherAPIURL),
		zap.Bool("weather_api_key_set", cfg.WeatherAPIKey != "" && cfg.WeatherAPIKey != "demo"))

	a.forecasts = service.NewWeatherService(weather.NewMockProvider(nil, nil), forecastCache, cfg.CoalesceForecasts, logger)
	users := service.NewUserService(userStore, logger)

	healthConfig := &httphandler.HealthConfig{
		Evaluator: lifecycle.Evaluator{
			Window:               cfg.LifecycleWindow,
			DegradedErrorPct:     cfg.DegradedErrorPct,
			OverloadThresholdPct: cfg.OverloadThresholdPct,
		},
		StoragePing: userStore.Ping,
	}
	if a.memcached != nil {
		healthConfig.CachePing = a.memcached.Ping
	}

	observability.RegisterWindowGauges(cfg.LifecycleWindow)
	if len(cfg.TrackedZipCodes) > 0 {
		observability.SetTrackedZipCodes(cfg.TrackedZipCodes)
	}

	h := httphandler.NewHandler(users, a.forecasts, healthConfig, logger)
	a.handler = httphandler.NewRouter(h, logger, httphandler.RouterConfig{
		RequestTimeout: cfg.RequestTimeout,
		RateLimiter:    newLimiter(cfg, logger),
	})
	return a, nil
}

// newLimiter returns the /api token bucket, or nil when RateLimitRPS is 0.
func newLimiter(cfg *config.Config, logger *zap.Logger) *rate.Limiter {
	if cfg.RateLimitRPS <= 0 {
		logger.Info("rate limiting disabled")
		return nil
	}
	return rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
}

func (a *app) close() {
	if a.memcached != nil {
		if err := a.memcached.Close(); err != nil {
			a.logger.Error("memcached close", zap.Error(err))
		}
	}
	if err := a.store.Close(); err != nil {
		a.logger.Error("user store close", zap.Error(err))
	}
}
