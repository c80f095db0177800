package http

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/user-weather-service/internal/cache"
	"github.com/kjstillabower/user-weather-service/internal/lifecycle"
	"github.com/kjstillabower/user-weather-service/internal/service"
	"github.com/kjstillabower/user-weather-service/internal/store"
	"github.com/kjstillabower/user-weather-service/internal/traffic"
	"github.com/kjstillabower/user-weather-service/internal/weather"
)

type testServer struct {
	handler *Router
	store   *store.SQLiteStore
	cache   *cache.InMemoryCache
}

// newTestServer builds the full router over an in-memory SQLite store and
// in-memory cache. limiter may be nil.
func newTestServer(t *testing.T, logger *zap.Logger, limiter *rate.Limiter) *testServer {
	t.Helper()
	if logger == nil {
		logger = zap.NewNop()
	}
	traffic.Reset()
	lifecycle.SetShuttingDown(false)

	st, err := store.NewSQLiteStore(":memory:", logger)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	c := cache.NewInMemoryCache(nil)
	users := service.NewUserService(st, logger)
	forecasts := service.NewWeatherService(weather.NewMockProvider(nil, nil), c, true, logger)
	health := &HealthConfig{
		Evaluator: lifecycle.Evaluator{
			Window:               time.Minute,
			DegradedErrorPct:     5,
			OverloadThresholdPct: 80,
		},
		StoragePing: st.Ping,
	}
	h := NewHandler(users, forecasts, health, logger)
	return &testServer{
		handler: NewRouter(h, logger, RouterConfig{RequestTimeout: 5 * time.Second, RateLimiter: limiter}),
		store:   st,
		cache:   c,
	}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		if err := json.NewEncoder(&buf).Encode(b); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}

func decodeJSON[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return v
}
