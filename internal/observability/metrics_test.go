package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

// TestMetrics_Usable verifies that all Prometheus metrics can be used without
// panic, ensuring label dimensions match usage across http, service, and cache packages.
func TestMetrics_Usable(t *testing.T) {
	HTTPRequestsTotal.WithLabelValues("GET", "/api/users/{id}", "2xx").Inc()
	HTTPRequestDuration.WithLabelValues("GET", "/api/weather/forecast/{zipCode}").Observe(0.01)
	ErrorResponsesTotal.WithLabelValues("not_found", "404").Inc()
	CacheHitsTotal.Inc()
	CacheMissesTotal.Inc()
	CacheErrorsTotal.WithLabelValues("get").Inc()
	ForecastGenerationsTotal.Inc()
	ForecastCoalescedTotal.Inc()
	RecordUserOperation("create", "success")
	RegisterWindowGauges(time.Minute)
	RegisterWindowGauges(time.Minute) // second call is a no-op
}

// TestSetTrackedZipCodes_and_RecordWeatherQuery verifies that tracked zip codes
// get their own label and unknown ones fall into "other".
func TestSetTrackedZipCodes_and_RecordWeatherQuery(t *testing.T) {
	SetTrackedZipCodes([]string{"10001", " 90210 "})
	defer SetTrackedZipCodes(nil)

	before := testutil.ToFloat64(WeatherQueriesByZipTotal.WithLabelValues("90210"))
	otherBefore := testutil.ToFloat64(WeatherQueriesByZipTotal.WithLabelValues("other"))
	RecordWeatherQuery("90210")
	RecordWeatherQuery("55555")

	if got := testutil.ToFloat64(WeatherQueriesByZipTotal.WithLabelValues("90210")); got != before+1 {
		t.Errorf("tracked zip counter = %v, want %v", got, before+1)
	}
	if got := testutil.ToFloat64(WeatherQueriesByZipTotal.WithLabelValues("other")); got != otherBefore+1 {
		t.Errorf("other counter = %v, want %v", got, otherBefore+1)
	}
}

// TestMetricsHandler_ServesPrometheusFormat verifies that MetricsHandler serves
// Prometheus text exposition format with correct HTTP status and metric output.
func TestMetricsHandler_ServesPrometheusFormat(t *testing.T) {
	HTTPRequestsTotal.WithLabelValues("GET", "/health", "2xx").Inc()
	handler := MetricsHandler()
	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("MetricsHandler status = %d, want 200", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "httpRequestsTotal") {
		t.Error("MetricsHandler response should contain metric output")
	}
}
