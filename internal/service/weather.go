package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kjstillabower/user-weather-service/internal/cache"
	"github.com/kjstillabower/user-weather-service/internal/models"
	"github.com/kjstillabower/user-weather-service/internal/observability"
	"github.com/kjstillabower/user-weather-service/internal/validation"
	"github.com/kjstillabower/user-weather-service/internal/weather"
)

// WeatherService serves forecasts cache-aside: validate, look up by the raw
// zip code, generate on miss, store under the raw zip code.
type WeatherService struct {
	provider  weather.Provider
	cache     cache.Cache
	coalescer *forecastCoalescer // nil when coalescing is disabled
	logger    *zap.Logger
}

// NewWeatherService creates a WeatherService. coalesce enables single-flight
// generation per cache key. logger may be nil.
func NewWeatherService(provider weather.Provider, c cache.Cache, coalesce bool, logger *zap.Logger) *WeatherService {
	s := &WeatherService{
		provider: provider,
		cache:    c,
		logger:   logger,
	}
	if coalesce {
		s.coalescer = &forecastCoalescer{}
	}
	return s
}

// GetForecast returns the seven-day forecast for zipCode. Invalid zip codes
// fail with apperror.InvalidInput before the cache is consulted. The cache key
// is zipCode exactly as given; the forecast carries the trimmed zip code.
func (s *WeatherService) GetForecast(ctx context.Context, zipCode string) (models.Forecast, error) {
	logger := observability.LoggerFromContext(ctx, s.logger)

	trimmed, err := validation.ValidateZipCode(zipCode)
	if err != nil {
		logger.Warn("invalid zip code", zap.String("zip_code", zipCode), zap.Error(err))
		return models.Forecast{}, err
	}
	observability.RecordWeatherQuery(trimmed)

	cached, ok, err := s.cache.Get(ctx, zipCode)
	if err != nil {
		observability.CacheErrorsTotal.WithLabelValues("get").Inc()
		logger.Warn("cache get failed", zap.String("zip_code", zipCode), zap.Error(err))
	} else if ok {
		observability.CacheHitsTotal.Inc()
		logger.Debug("cache hit", zap.String("zip_code", zipCode))
		return cached, nil
	}
	observability.CacheMissesTotal.Inc()
	logger.Debug("cache miss, generating forecast", zap.String("zip_code", zipCode))

	generate := func(ctx context.Context) (models.Forecast, error) {
		f, err := s.provider.Forecast(ctx, trimmed)
		if err != nil {
			return models.Forecast{}, err
		}
		observability.ForecastGenerationsTotal.Inc()
		if setErr := s.cache.Set(ctx, zipCode, f); setErr != nil {
			observability.CacheErrorsTotal.WithLabelValues("set").Inc()
			logger.Warn("cache set failed", zap.String("zip_code", zipCode), zap.Error(setErr))
		}
		return f, nil
	}

	var f models.Forecast
	if s.coalescer != nil {
		var shared bool
		f, shared, err = s.coalescer.Do(ctx, zipCode, generate)
		if shared && err == nil {
			observability.ForecastCoalescedTotal.Inc()
		}
	} else {
		f, err = generate(ctx)
	}
	if err != nil {
		return models.Forecast{}, fmt.Errorf("forecast for %s: %w", trimmed, err)
	}
	logger.Info("forecast generated", zap.String("zip_code", trimmed), zap.String("location", f.Location))
	return f, nil
}

// GetCurrentWeather returns day 0 of the (possibly cached) seven-day forecast.
func (s *WeatherService) GetCurrentWeather(ctx context.Context, zipCode string) (models.DailyForecast, error) {
	f, err := s.GetForecast(ctx, zipCode)
	if err != nil {
		return models.DailyForecast{}, err
	}
	if len(f.Days) == 0 {
		return models.DailyForecast{}, errors.New("forecast has no days")
	}
	return f.Days[0], nil
}
