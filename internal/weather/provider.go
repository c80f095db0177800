// Package weather produces forecasts. The only Provider today is MockProvider,
// which generates plausible random values; a real upstream would implement
// the same interface.
package weather

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/kjstillabower/user-weather-service/internal/models"
)

// ForecastDays is the number of days in every forecast.
const ForecastDays = 7

// UnknownLocation is returned for zip codes missing from the location table.
const UnknownLocation = "Unknown Location, USA"

// Descriptions is the fixed set of conditions a forecast day may carry.
var Descriptions = []string{
	"Sunny", "Partly Cloudy", "Cloudy", "Light Rain",
	"Heavy Rain", "Thunderstorms", "Snow",
}

var locations = map[string]string{
	"10001": "New York, NY",
	"90210": "Beverly Hills, CA",
	"60601": "Chicago, IL",
	"33101": "Miami, FL",
	"78701": "Austin, TX",
	"98101": "Seattle, WA",
	"02101": "Boston, MA",
}

// Provider returns a seven-day forecast for an already validated zip code.
type Provider interface {
	Forecast(ctx context.Context, zipCode string) (models.Forecast, error)
}

// Source is the randomness MockProvider draws from. *rand.Rand satisfies it.
type Source interface {
	Float64() float64
	IntN(n int) int
}

// globalSource uses math/rand/v2 top-level functions, which are safe for concurrent use.
type globalSource struct{}

func (globalSource) Float64() float64 { return rand.Float64() }
func (globalSource) IntN(n int) int   { return rand.IntN(n) }

// MockProvider generates random forecasts with fixed shape.
type MockProvider struct {
	mu  sync.Mutex // serializes draws from src, which may not be goroutine-safe
	src Source
	now func() time.Time
}

// NewMockProvider returns a MockProvider. nil src uses the global math/rand/v2
// generator; nil now uses time.Now.
func NewMockProvider(src Source, now func() time.Time) *MockProvider {
	if src == nil {
		src = globalSource{}
	}
	if now == nil {
		now = time.Now
	}
	return &MockProvider{src: src, now: now}
}

// Forecast implements Provider. Day i is dated today+i.
func (p *MockProvider) Forecast(ctx context.Context, zipCode string) (models.Forecast, error) {
	if err := ctx.Err(); err != nil {
		return models.Forecast{}, err
	}
	today := models.NewDate(p.now())

	p.mu.Lock()
	defer p.mu.Unlock()
	days := make([]models.DailyForecast, 0, ForecastDays)
	for i := 0; i < ForecastDays; i++ {
		high := 60 + p.src.Float64()*40
		days = append(days, models.DailyForecast{
			Date:            models.Date{Time: today.AddDate(0, 0, i)},
			Description:     Descriptions[p.src.IntN(len(Descriptions))],
			TemperatureHigh: high,
			TemperatureLow:  high - 10 - p.src.Float64()*15,
			Humidity:        30 + p.src.IntN(50),
			WindSpeed:       p.src.Float64() * 20,
		})
	}
	return models.Forecast{
		Location: LookupLocation(zipCode),
		ZipCode:  zipCode,
		Days:     days,
	}, nil
}

// LookupLocation resolves the first five characters of zipCode against the
// static table, case-sensitively.
func LookupLocation(zipCode string) string {
	prefix := zipCode
	if len(prefix) > 5 {
		prefix = prefix[:5]
	}
	if loc, ok := locations[prefix]; ok {
		return loc
	}
	return UnknownLocation
}
