package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
)

func TestRouter_WaitIdleAfterRequests(t *testing.T) {
	s := newTestServer(t, nil, nil)
	s.do(t, http.MethodGet, "/api/users", nil)
	s.do(t, http.MethodGet, "/nope", nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.handler.WaitIdle(ctx, 5*time.Millisecond); err != nil {
		t.Errorf("WaitIdle() error = %v", err)
	}
	if got := s.handler.InFlight(); got != 0 {
		t.Errorf("InFlight() = %d, want 0", got)
	}
}

func TestRouter_WaitIdleReturnsAfterDrain(t *testing.T) {
	rt := &Router{}
	rt.inFlight.Add(1)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- rt.WaitIdle(ctx, 5*time.Millisecond) }()

	time.Sleep(10 * time.Millisecond)
	rt.inFlight.Add(-1)

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("WaitIdle() error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("WaitIdle did not return after count reached zero")
	}
}

func TestRouter_WaitIdleContextCanceled(t *testing.T) {
	rt := &Router{}
	rt.inFlight.Add(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := rt.WaitIdle(ctx, 5*time.Millisecond); err == nil {
		t.Error("WaitIdle() expected context error, got nil")
	}
}

func TestMetricsMiddleware_CountsActiveRequests(t *testing.T) {
	rt := &Router{}
	release := make(chan struct{})
	var entered sync.WaitGroup
	entered.Add(3)
	h := MetricsMiddleware(mux.NewRouter(), &rt.inFlight)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		entered.Done()
		<-release
	}))

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/users", nil))
		}()
	}
	entered.Wait()
	if got := rt.InFlight(); got != 3 {
		t.Errorf("InFlight() while blocked = %d, want 3", got)
	}
	close(release)
	wg.Wait()
	if got := rt.InFlight(); got != 0 {
		t.Errorf("InFlight() after release = %d, want 0", got)
	}
}
