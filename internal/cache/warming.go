package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kjstillabower/user-weather-service/internal/models"
	"github.com/kjstillabower/user-weather-service/internal/observability"
)

// maxWarmConcurrency bounds concurrent fetches during a warm.
const maxWarmConcurrency = 8

// ForecastFetcher is implemented by the service layer to fetch a forecast for a zip code.
// Used by CacheWarmer to avoid a circular dependency on the service package.
type ForecastFetcher interface {
	GetForecast(ctx context.Context, zipCode string) (models.Forecast, error)
}

// CacheWarmer warms the cache by prefetching forecasts for a list of zip codes.
type CacheWarmer struct {
	fetcher ForecastFetcher
	logger  *zap.Logger
}

// NewCacheWarmer creates a CacheWarmer that uses the given fetcher and logger.
func NewCacheWarmer(fetcher ForecastFetcher, logger *zap.Logger) *CacheWarmer {
	return &CacheWarmer{fetcher: fetcher, logger: logger}
}

// Warm fetches every zip code concurrently and populates the cache via the fetcher.
// All zip codes are attempted; failures are joined into the returned error.
func (w *CacheWarmer) Warm(ctx context.Context, zipCodes []string) error {
	start := time.Now()
	observability.CacheWarmingTotal.Inc()
	if w.logger != nil {
		w.logger.Info("warming cache", zap.Int("zip_codes", len(zipCodes)))
	}

	var (
		mu   sync.Mutex
		errs []error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxWarmConcurrency)
	for _, zip := range zipCodes {
		g.Go(func() error {
			if _, err := w.fetcher.GetForecast(gctx, zip); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("warm %s: %w", zip, err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	duration := time.Since(start).Seconds()
	observability.CacheWarmingDurationSeconds.Observe(duration)
	if w.logger != nil {
		w.logger.Info("cache warming complete", zap.Int("zip_codes", len(zipCodes)), zap.Int("errors", len(errs)), zap.Float64("duration_seconds", duration))
	}
	if len(errs) > 0 {
		observability.CacheWarmingErrorsTotal.Inc()
		return fmt.Errorf("cache warming: %w", errors.Join(errs...))
	}
	return nil
}
