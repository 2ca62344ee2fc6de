package resilience

import (
	"context"
	"time"

	"github.com/JakeFAU/scrapper/internal/fetcher"
)

// Delay sleeps for d before every call to next.
func Delay(d time.Duration) Layer {
	return func(next FetchFunc) FetchFunc {
		if d <= 0 {
			return next
		}
		return func(ctx context.Context, uri string) (fetcher.Response, error) {
			if err := Pause(ctx, d); err != nil {
				return fetcher.Response{}, err
			}
			return next(ctx, uri)
		}
	}
}

// Pause blocks for d or until ctx is done.
func Pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
