package service

import (
	"context"

	"golang.org/x/sync/singleflight"

	"github.com/kjstillabower/user-weather-service/internal/models"
)

// forecastCoalescer collapses concurrent cache misses for the same key into one
// generation.
type forecastCoalescer struct {
	group singleflight.Group
}

// Do runs fn once per key among concurrent callers. shared reports whether the
// result was produced for another caller too. fn receives a context detached
// from the caller's cancellation since its result is shared; a caller whose
// ctx ends stops waiting without aborting the generation.
func (c *forecastCoalescer) Do(ctx context.Context, key string, fn func(ctx context.Context) (models.Forecast, error)) (f models.Forecast, shared bool, err error) {
	detached := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (interface{}, error) {
		return fn(detached)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return models.Forecast{}, res.Shared, res.Err
		}
		return res.Val.(models.Forecast), res.Shared, nil
	case <-ctx.Done():
		return models.Forecast{}, false, ctx.Err()
	}
}
