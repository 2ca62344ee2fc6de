package resilience

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/JakeFAU/scrapper/internal/fetcher"
)

// Retry re-invokes next up to retries additional times with no backoff of its
// own; pacing comes from the Delay layer beneath it.
func Retry(retries int, logger *zap.Logger) Layer {
	if retries < 0 {
		retries = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next FetchFunc) FetchFunc {
		return func(ctx context.Context, uri string) (fetcher.Response, error) {
			for attempt := 0; ; attempt++ {
				resp, err := next(ctx, uri)
				if err == nil {
					return resp, nil
				}
				if attempt >= retries || !ShouldRetry(err) {
					return fetcher.Response{}, err
				}
				logger.Debug("retrying fetch",
					zap.String("url", uri),
					zap.Int("attempt", attempt+1),
					zap.Error(err),
				)
			}
		}
	}
}

// ShouldRetry decides whether a fetch error is transient.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return !fetcher.IsClientError(err)
}
