package http

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/user-weather-service/internal/lifecycle"
	"github.com/kjstillabower/user-weather-service/internal/traffic"
)

const healthCheckTimeout = 2 * time.Second

// HealthConfig holds the dependency checks and thresholds for the health handler.
type HealthConfig struct {
	Evaluator lifecycle.Evaluator
	// StoragePing checks the user store. Required.
	StoragePing func(ctx context.Context) error
	// CachePing, when set, checks cache reachability. Used when backend is memcached.
	CachePing func() error
}

type healthResponse struct {
	Status    lifecycle.Status  `json:"status"`
	Service   string            `json:"service"`
	Version   string            `json:"version"`
	Checks    map[string]string `json:"checks"`
	Timestamp string            `json:"timestamp"`
}

// GetHealth handles GET /health. 200 when healthy, 503 otherwise.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{}
	depsOK := true
	var window lifecycle.Window
	var evaluator lifecycle.Evaluator

	if h.healthConfig != nil {
		evaluator = h.healthConfig.Evaluator
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()
		if h.healthConfig.StoragePing != nil {
			if err := h.healthConfig.StoragePing(ctx); err != nil {
				depsOK = false
				checks["storage"] = "unhealthy"
				h.logger.Warn("storage health check failed", zap.Error(err))
			} else {
				checks["storage"] = "healthy"
			}
		}
		// Cache checks are informational and never change the overall status.
		if h.healthConfig.CachePing != nil {
			if err := h.healthConfig.CachePing(); err != nil {
				checks["cache"] = "unhealthy"
				h.logger.Warn("cache health check failed", zap.Error(err))
			} else {
				checks["cache"] = "healthy"
			}
		}
		if evaluator.Window > 0 {
			errs, _ := traffic.ErrorRate(evaluator.Window)
			window = lifecycle.Window{
				Requests: traffic.RequestCount(evaluator.Window),
				Denials:  traffic.DenialCount(evaluator.Window),
				Errors:   errs,
			}
		}
	}

	status := evaluator.Evaluate(depsOK, window)
	h.logTransition(status, window)

	code := http.StatusOK
	if !status.Serving() {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, healthResponse{
		Status:    status,
		Service:   "user-weather-service",
		Version:   "dev",
		Checks:    checks,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) logTransition(status lifecycle.Status, w lifecycle.Window) {
	h.healthStatusMu.Lock()
	defer h.healthStatusMu.Unlock()
	prev := h.healthStatusPrev
	if prev != "" && prev != string(status) {
		h.logger.Info("health status transition",
			zap.String("previous_status", prev),
			zap.String("current_status", string(status)),
			zap.Int("requests_in_window", w.Requests),
			zap.Int("denials_in_window", w.Denials),
			zap.Int("errors_in_window", w.Errors))
	}
	h.healthStatusPrev = string(status)
}
