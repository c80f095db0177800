package http

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/user-weather-service/internal/apperror"
	"github.com/kjstillabower/user-weather-service/internal/observability"
)

// RouterConfig holds transport settings for NewRouter.
type RouterConfig struct {
	RequestTimeout time.Duration // 0 disables the /api deadline
	RateLimiter    *rate.Limiter // nil disables rate limiting
}

// Router is the fully wired service handler. It counts the requests its
// metrics middleware is currently serving so shutdown can drain them.
type Router struct {
	http.Handler
	inFlight atomic.Int64
}

// InFlight returns the number of requests currently being served.
func (rt *Router) InFlight() int64 {
	return rt.inFlight.Load()
}

// WaitIdle blocks until no request is in flight or ctx is done, re-checking
// every interval.
func (rt *Router) WaitIdle(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for rt.InFlight() != 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// NewRouter wires every route and middleware. The returned Router is ready
// for http.Server.
func NewRouter(h *Handler, logger *zap.Logger, cfg RouterConfig) *Router {
	rt := &Router{}
	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(routeNotFound)
	router.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)

	router.HandleFunc("/health", h.GetHealth).Methods(http.MethodGet)
	router.Handle("/metrics", observability.MetricsHandler()).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.Use(RateLimitMiddleware(cfg.RateLimiter))
	if cfg.RequestTimeout > 0 {
		api.Use(TimeoutMiddleware(cfg.RequestTimeout))
	}
	api.HandleFunc("/users", h.CreateUser).Methods(http.MethodPost)
	api.HandleFunc("/users", h.ListUsers).Methods(http.MethodGet)
	api.HandleFunc("/users/{id}", h.GetUser).Methods(http.MethodGet)
	api.HandleFunc("/users/{id}", h.UpdateUser).Methods(http.MethodPut)
	api.HandleFunc("/users/{id}", h.DeleteUser).Methods(http.MethodDelete)
	api.HandleFunc("/weather/forecast/{zip}", h.GetForecast).Methods(http.MethodGet)
	api.HandleFunc("/weather/current/{zip}", h.GetCurrentWeather).Methods(http.MethodGet)

	// Outer chain runs for unmatched routes too, so 404/405 get correlation
	// ids, metrics and the mapped error body.
	var handler http.Handler = router
	handler = RecoveryMiddleware(handler)
	handler = MetricsMiddleware(router, &rt.inFlight)(handler)
	handler = CorrelationIDMiddleware(logger)(handler)
	rt.Handler = handler
	return rt
}

func routeNotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, apperror.Newf(apperror.RouteNotFound, "No route for %s %s", r.Method, r.URL.Path))
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, apperror.Newf(apperror.MethodNotAllowed, "Method %s not allowed", r.Method))
}
