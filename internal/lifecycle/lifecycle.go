// Package lifecycle tracks process state and derives the health status
// reported by /health.
package lifecycle

import (
	"sync/atomic"
	"time"
)

var shuttingDown atomic.Bool

// SetShuttingDown sets the shutdown flag. Call when SIGTERM/SIGINT received.
// Health handler returns 503 with status shutting-down while true.
func SetShuttingDown(v bool) {
	shuttingDown.Store(v)
}

// IsShuttingDown returns true if the process is draining and should not receive new traffic.
func IsShuttingDown() bool {
	return shuttingDown.Load()
}

// Status is the overall health state.
type Status string

const (
	StatusHealthy      Status = "healthy"
	StatusDegraded     Status = "degraded"
	StatusOverloaded   Status = "overloaded"
	StatusShuttingDown Status = "shutting-down"
)

// Serving reports whether the status should answer 200.
func (s Status) Serving() bool {
	return s == StatusHealthy
}

// Window is the traffic seen over the evaluation window.
type Window struct {
	Requests int // all outcomes, denials included
	Denials  int // 429 responses
	Errors   int // 5xx responses
}

// Evaluator turns dependency checks and window traffic into a Status.
type Evaluator struct {
	Window               time.Duration
	DegradedErrorPct     int
	OverloadThresholdPct int
}

// Evaluate applies, in order: shutting down, failed dependency, denial share
// of all requests at or above OverloadThresholdPct, 5xx share of answered
// (non-denied) requests at or above DegradedErrorPct. An empty window is healthy.
func (e Evaluator) Evaluate(dependenciesOK bool, w Window) Status {
	if IsShuttingDown() {
		return StatusShuttingDown
	}
	if !dependenciesOK {
		return StatusDegraded
	}
	if w.Requests == 0 {
		return StatusHealthy
	}
	if e.OverloadThresholdPct > 0 && w.Denials*100 >= e.OverloadThresholdPct*w.Requests {
		return StatusOverloaded
	}
	answered := w.Requests - w.Denials
	if e.DegradedErrorPct > 0 && answered > 0 && w.Errors*100 >= e.DegradedErrorPct*answered {
		return StatusDegraded
	}
	return StatusHealthy
}
