package observability

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kjstillabower/user-weather-service/internal/traffic"
)

var (
	registry *prometheus.Registry

	// HTTP request rate. Watch for: sudden drops (service down) or spikes (traffic surge).
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTP request latency per request. Watch for: p95/p99 latency increases.
	HTTPRequestDuration *prometheus.HistogramVec

	// Concurrent requests in flight. Watch for: saturation.
	HTTPRequestsInFlight prometheus.Gauge

	// Error responses by mapped kind. Watch for: internal (unclassified) errors.
	ErrorResponsesTotal *prometheus.CounterVec

	// User operations by outcome. Watch for: conflict or storage error spikes.
	UserOperationsTotal *prometheus.CounterVec

	// Forecast cache hits. Hit rate = hits/(hits+misses).
	CacheHitsTotal prometheus.Counter

	// Forecast cache misses (each miss leads to a generation or a coalesced wait).
	CacheMissesTotal prometheus.Counter

	// Cache backend errors by operation. Watch for: memcached outages.
	CacheErrorsTotal *prometheus.CounterVec

	// Cache warming runs, failures and duration.
	CacheWarmingTotal           prometheus.Counter
	CacheWarmingErrorsTotal     prometheus.Counter
	CacheWarmingDurationSeconds prometheus.Histogram

	// Forecasts produced by the provider.
	ForecastGenerationsTotal prometheus.Counter

	// Misses that shared another caller's in-flight generation.
	ForecastCoalescedTotal prometheus.Counter

	// Per-zip query count (allow-list; others go to "other").
	WeatherQueriesByZipTotal *prometheus.CounterVec

	// Rate limit denials. Watch for: overload.
	RateLimitDeniedTotal prometheus.Counter

	trackedZipCodesMu sync.RWMutex
	trackedZipCodes   map[string]struct{}

	windowGaugesOnce sync.Once
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
	ErrorResponsesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "errorResponsesTotal",
			Help: "Error responses written by the error mapper, by kind and status",
		},
		[]string{"kind", "status"},
	)
	UserOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "userOperationsTotal",
			Help: "User service operations by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)
	CacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cacheHitsTotal",
			Help: "Total number of forecast cache hits",
		},
	)
	CacheMissesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cacheMissesTotal",
			Help: "Total number of forecast cache misses",
		},
	)
	CacheErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cacheErrorsTotal",
			Help: "Forecast cache backend errors by operation (get, set)",
		},
		[]string{"operation"},
	)
	CacheWarmingTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cacheWarmingTotal",
			Help: "Total number of cache warming runs",
		},
	)
	CacheWarmingErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cacheWarmingErrorsTotal",
			Help: "Cache warming runs with at least one failed zip code",
		},
	)
	CacheWarmingDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cacheWarmingDurationSeconds",
			Help:    "Cache warming duration in seconds",
			Buckets: []float64{.01, .05, .1, .5, 1, 5, 30},
		},
	)
	ForecastGenerationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "forecastGenerationsTotal",
			Help: "Total number of forecasts produced by the weather provider",
		},
	)
	ForecastCoalescedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "forecastCoalescedTotal",
			Help: "Cache misses served by another request's in-flight generation",
		},
	)
	WeatherQueriesByZipTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherQueriesByZipTotal",
			Help: "Weather queries by zip code (allow-list; others use zip=other)",
		},
		[]string{"zip"},
	)
	RateLimitDeniedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rateLimitDeniedTotal",
			Help: "Total number of requests denied by rate limiter (429)",
		},
	)

	registry.MustRegister(
		HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight,
		ErrorResponsesTotal, UserOperationsTotal,
		CacheHitsTotal, CacheMissesTotal, CacheErrorsTotal,
		CacheWarmingTotal, CacheWarmingErrorsTotal, CacheWarmingDurationSeconds,
		ForecastGenerationsTotal, ForecastCoalescedTotal,
		WeatherQueriesByZipTotal,
		RateLimitDeniedTotal,
	)
}

// RegisterWindowGauges registers sliding-window request and reject gauges.
// Call from main after config load with the lifecycle window.
func RegisterWindowGauges(window time.Duration) {
	windowGaugesOnce.Do(func() {
		registry.MustRegister(
			prometheus.NewGaugeFunc(
				prometheus.GaugeOpts{
					Name: "requestsInWindow",
					Help: "Requests in the lifecycle sliding window; load/capacity planning",
				},
				func() float64 { return float64(traffic.RequestCount(window)) },
			),
			prometheus.NewGaugeFunc(
				prometheus.GaugeOpts{
					Name: "rateLimitRejectsInWindow",
					Help: "429 responses in the lifecycle sliding window",
				},
				func() float64 { return float64(traffic.DenialCount(window)) },
			),
		)
	})
}

// SetTrackedZipCodes sets the allow-list for zip metrics. Non-tracked zip codes increment "other".
func SetTrackedZipCodes(zipCodes []string) {
	trackedZipCodesMu.Lock()
	defer trackedZipCodesMu.Unlock()
	trackedZipCodes = make(map[string]struct{}, len(zipCodes))
	for _, z := range zipCodes {
		trackedZipCodes[strings.TrimSpace(z)] = struct{}{}
	}
}

// RecordWeatherQuery records a weather query for the given (validated) zip code.
func RecordWeatherQuery(zipCode string) {
	trackedZipCodesMu.RLock()
	_, ok := trackedZipCodes[zipCode] // nil map read is safe in Go
	trackedZipCodesMu.RUnlock()
	if ok {
		WeatherQueriesByZipTotal.WithLabelValues(zipCode).Inc()
	} else {
		WeatherQueriesByZipTotal.WithLabelValues("other").Inc()
	}
}

// RecordUserOperation counts one user service call.
func RecordUserOperation(operation, outcome string) {
	UserOperationsTotal.WithLabelValues(operation, outcome).Inc()
}

// MetricsHandler returns an http.Handler that serves application and runtime metrics.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
