package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kjstillabower/user-weather-service/internal/apperror"
	"github.com/kjstillabower/user-weather-service/internal/cache"
	"github.com/kjstillabower/user-weather-service/internal/models"
	"github.com/kjstillabower/user-weather-service/internal/weather"
)

type countingProvider struct {
	inner weather.Provider
	calls atomic.Int32
	delay time.Duration
	err   error
}

func (p *countingProvider) Forecast(ctx context.Context, zipCode string) (models.Forecast, error) {
	p.calls.Add(1)
	if p.delay > 0 {
		time.Sleep(p.delay)
	}
	if p.err != nil {
		return models.Forecast{}, p.err
	}
	return p.inner.Forecast(ctx, zipCode)
}

type failingCache struct {
	getErr error
	setErr error
	sets   atomic.Int32
}

func (c *failingCache) Get(ctx context.Context, key string) (models.Forecast, bool, error) {
	return models.Forecast{}, false, c.getErr
}

func (c *failingCache) Set(ctx context.Context, key string, value models.Forecast) error {
	c.sets.Add(1)
	return c.setErr
}

func fixedNow() time.Time {
	return time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC)
}

func newTestWeatherService(coalesce bool) (*WeatherService, *countingProvider, *cache.InMemoryCache) {
	p := &countingProvider{inner: weather.NewMockProvider(nil, fixedNow)}
	c := cache.NewInMemoryCache(nil)
	return NewWeatherService(p, c, coalesce, nil), p, c
}

// TestWeatherService_GetForecast_GeneratesSevenDays verifies forecast shape,
// location lookup and day-by-day dates starting today.
func TestWeatherService_GetForecast_GeneratesSevenDays(t *testing.T) {
	svc, _, _ := newTestWeatherService(false)

	f, err := svc.GetForecast(context.Background(), "10001")
	if err != nil {
		t.Fatalf("GetForecast() error = %v", err)
	}
	if f.Location != "New York, NY" {
		t.Errorf("Location = %q, want New York, NY", f.Location)
	}
	if f.ZipCode != "10001" {
		t.Errorf("ZipCode = %q, want 10001", f.ZipCode)
	}
	if len(f.Days) != weather.ForecastDays {
		t.Fatalf("len(Days) = %d, want %d", len(f.Days), weather.ForecastDays)
	}
	for i, d := range f.Days {
		want := fixedNow().AddDate(0, 0, i).Format(models.DateLayout)
		if d.Date.String() != want {
			t.Errorf("day %d date = %s, want %s", i, d.Date, want)
		}
		if d.TemperatureLow >= d.TemperatureHigh {
			t.Errorf("day %d low %.2f >= high %.2f", i, d.TemperatureLow, d.TemperatureHigh)
		}
	}
}

// TestWeatherService_GetForecast_CachesByRawZip verifies a second call is
// served from the cache with an identical body and that the raw input is the key.
func TestWeatherService_GetForecast_CachesByRawZip(t *testing.T) {
	svc, p, c := newTestWeatherService(false)
	ctx := context.Background()

	first, err := svc.GetForecast(ctx, "90210")
	if err != nil {
		t.Fatalf("first GetForecast() error = %v", err)
	}
	second, err := svc.GetForecast(ctx, "90210")
	if err != nil {
		t.Fatalf("second GetForecast() error = %v", err)
	}
	if got := p.calls.Load(); got != 1 {
		t.Errorf("provider calls = %d, want 1", got)
	}
	if first.Days[0].TemperatureHigh != second.Days[0].TemperatureHigh {
		t.Errorf("cached forecast differs from the first response")
	}

	// Padded input is a distinct key even though it validates to the same zip.
	padded, err := svc.GetForecast(ctx, " 90210 ")
	if err != nil {
		t.Fatalf("padded GetForecast() error = %v", err)
	}
	if padded.ZipCode != "90210" {
		t.Errorf("padded ZipCode = %q, want 90210", padded.ZipCode)
	}
	if got := p.calls.Load(); got != 2 {
		t.Errorf("provider calls after padded input = %d, want 2", got)
	}
	if c.Len() != 2 {
		t.Errorf("cache entries = %d, want 2", c.Len())
	}
}

func TestWeatherService_GetForecast_ExtendedZipUsesPrefixLocation(t *testing.T) {
	svc, _, _ := newTestWeatherService(false)

	f, err := svc.GetForecast(context.Background(), "10001-1234")
	if err != nil {
		t.Fatalf("GetForecast() error = %v", err)
	}
	if f.Location != "New York, NY" {
		t.Errorf("Location = %q, want New York, NY", f.Location)
	}
	if f.ZipCode != "10001-1234" {
		t.Errorf("ZipCode = %q, want 10001-1234", f.ZipCode)
	}
}

func TestWeatherService_GetForecast_UnknownZip(t *testing.T) {
	svc, _, _ := newTestWeatherService(false)

	f, err := svc.GetForecast(context.Background(), "99999")
	if err != nil {
		t.Fatalf("GetForecast() error = %v", err)
	}
	if f.Location != weather.UnknownLocation {
		t.Errorf("Location = %q, want %q", f.Location, weather.UnknownLocation)
	}
}

// TestWeatherService_GetForecast_InvalidZip verifies invalid input is rejected
// before the cache or provider is touched.
func TestWeatherService_GetForecast_InvalidZip(t *testing.T) {
	tests := []struct {
		name    string
		zip     string
		wantMsg string
	}{
		{"empty", "", "Zip code cannot be null or empty"},
		{"blank", "   ", "Zip code cannot be null or empty"},
		{"too short", "1234", "Invalid zip code format. Expected format: 12345 or 12345-6789"},
		{"letters", "abcde", "Invalid zip code format. Expected format: 12345 or 12345-6789"},
		{"bad extension", "12345-12", "Invalid zip code format. Expected format: 12345 or 12345-6789"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, p, c := newTestWeatherService(false)
			_, err := svc.GetForecast(context.Background(), tt.zip)
			if !apperror.IsKind(err, apperror.InvalidInput) {
				t.Fatalf("GetForecast(%q) error = %v, want InvalidInput", tt.zip, err)
			}
			if err.Error() != tt.wantMsg {
				t.Errorf("message = %q, want %q", err.Error(), tt.wantMsg)
			}
			if p.calls.Load() != 0 || c.Len() != 0 {
				t.Errorf("provider or cache touched for invalid input")
			}
		})
	}
}

func TestWeatherService_GetCurrentWeather_IsDayZero(t *testing.T) {
	svc, _, _ := newTestWeatherService(false)
	ctx := context.Background()

	f, err := svc.GetForecast(ctx, "60601")
	if err != nil {
		t.Fatalf("GetForecast() error = %v", err)
	}
	cur, err := svc.GetCurrentWeather(ctx, "60601")
	if err != nil {
		t.Fatalf("GetCurrentWeather() error = %v", err)
	}
	if cur != f.Days[0] {
		t.Errorf("GetCurrentWeather() = %+v, want %+v", cur, f.Days[0])
	}
}

func TestWeatherService_GetCurrentWeather_InvalidZip(t *testing.T) {
	svc, _, _ := newTestWeatherService(false)
	if _, err := svc.GetCurrentWeather(context.Background(), "12"); !apperror.IsKind(err, apperror.InvalidInput) {
		t.Fatalf("GetCurrentWeather() error = %v, want InvalidInput", err)
	}
}

// TestWeatherService_CacheFailuresAreNotFatal verifies a failing cache only
// degrades to regenerating on every call.
func TestWeatherService_CacheFailuresAreNotFatal(t *testing.T) {
	p := &countingProvider{inner: weather.NewMockProvider(nil, fixedNow)}
	c := &failingCache{getErr: errors.New("memcache down"), setErr: errors.New("memcache down")}
	svc := NewWeatherService(p, c, false, nil)

	for i := 0; i < 2; i++ {
		if _, err := svc.GetForecast(context.Background(), "10001"); err != nil {
			t.Fatalf("GetForecast() error = %v, want nil", err)
		}
	}
	if got := p.calls.Load(); got != 2 {
		t.Errorf("provider calls = %d, want 2", got)
	}
	if got := c.sets.Load(); got != 2 {
		t.Errorf("cache sets = %d, want 2", got)
	}
}

func TestWeatherService_ProviderError(t *testing.T) {
	wantErr := errors.New("generator unavailable")
	p := &countingProvider{err: wantErr}
	c := cache.NewInMemoryCache(nil)
	svc := NewWeatherService(p, c, true, nil)

	_, err := svc.GetForecast(context.Background(), "10001")
	if !errors.Is(err, wantErr) {
		t.Fatalf("GetForecast() error = %v, want %v", err, wantErr)
	}
	if apperror.KindOf(err) != apperror.Unclassified {
		t.Errorf("KindOf = %v, want unclassified", apperror.KindOf(err))
	}
	if c.Len() != 0 {
		t.Errorf("failed generation was cached")
	}
}

// TestWeatherService_CoalescesConcurrentMisses verifies that concurrent
// misses for one zip generate once and every caller sees the same forecast.
func TestWeatherService_CoalescesConcurrentMisses(t *testing.T) {
	p := &countingProvider{inner: weather.NewMockProvider(nil, fixedNow), delay: 50 * time.Millisecond}
	svc := NewWeatherService(p, cache.NewInMemoryCache(nil), true, nil)

	const n = 8
	var wg sync.WaitGroup
	highs := make([]float64, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			f, err := svc.GetForecast(context.Background(), "33101")
			errs[idx] = err
			if err == nil {
				highs[idx] = f.Days[0].TemperatureHigh
			}
		}(i)
	}
	wg.Wait()

	for i := range errs {
		if errs[i] != nil {
			t.Fatalf("request %d error = %v", i, errs[i])
		}
		if highs[i] != highs[0] {
			t.Errorf("request %d saw a different forecast", i)
		}
	}
	if got := p.calls.Load(); got != 1 {
		t.Errorf("provider calls = %d, want 1", got)
	}
}
