package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kjstillabower/user-weather-service/internal/models"
)

func TestForecastCoalescer_Do_ConcurrentRequests(t *testing.T) {
	var c forecastCoalescer
	var calls atomic.Int32
	release := make(chan struct{})

	fn := func(ctx context.Context) (models.Forecast, error) {
		calls.Add(1)
		<-release
		return models.Forecast{Location: "New York, NY", ZipCode: "10001"}, nil
	}

	const n = 10
	var wg sync.WaitGroup
	var started sync.WaitGroup
	results := make([]models.Forecast, n)
	errs := make([]error, n)
	started.Add(n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			started.Done()
			results[idx], _, errs[idx] = c.Do(context.Background(), "10001", fn)
		}(i)
	}
	started.Wait()
	// Give every goroutine time to join the in-flight call.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for i := range results {
		if errs[i] != nil {
			t.Errorf("request %d error = %v, want nil", i, errs[i])
		}
		if results[i].Location != "New York, NY" {
			t.Errorf("request %d location = %q, want New York, NY", i, results[i].Location)
		}
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("fn call count = %d, want 1", got)
	}
}

func TestForecastCoalescer_Do_ErrorPropagation(t *testing.T) {
	var c forecastCoalescer
	wantErr := errors.New("generation failed")

	_, _, err := c.Do(context.Background(), "10001", func(ctx context.Context) (models.Forecast, error) {
		return models.Forecast{}, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("Do() error = %v, want %v", err, wantErr)
	}
}

func TestForecastCoalescer_Do_CallerCancellation(t *testing.T) {
	var c forecastCoalescer
	release := make(chan struct{})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, _, err := c.Do(ctx, "10001", func(ctx context.Context) (models.Forecast, error) {
		<-release
		return models.Forecast{}, nil
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Do() error = %v, want context.DeadlineExceeded", err)
	}
}

func TestForecastCoalescer_Do_DistinctKeysRunSeparately(t *testing.T) {
	var c forecastCoalescer
	var calls atomic.Int32
	fn := func(ctx context.Context) (models.Forecast, error) {
		calls.Add(1)
		return models.Forecast{}, nil
	}
	for _, key := range []string{"10001", "90210", "02101"} {
		if _, _, err := c.Do(context.Background(), key, fn); err != nil {
			t.Fatalf("Do(%q) error = %v", key, err)
		}
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("fn call count = %d, want 3", got)
	}
}
