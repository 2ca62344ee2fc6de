package resilience

import (
	"context"

	"github.com/JakeFAU/scrapper/internal/fetcher"
	"github.com/JakeFAU/scrapper/internal/metrics"
)

// FetchFunc fetches a single URI.
type FetchFunc func(ctx context.Context, uri string) (fetcher.Response, error)

// Layer decorates a FetchFunc with one responsibility.
type Layer func(next FetchFunc) FetchFunc

// Chain wraps fetch with layers; the first layer ends up outermost.
func Chain(fetch FetchFunc, layers ...Layer) FetchFunc {
	for i := len(layers) - 1; i >= 0; i-- {
		fetch = layers[i](fetch)
	}
	return fetch
}

// Observed counts every raw attempt made through f.
func Observed(f fetcher.Fetcher) FetchFunc {
	return func(ctx context.Context, uri string) (fetcher.Response, error) {
		resp, err := f.Fetch(ctx, uri)
		metrics.ObserveFetchAttempt(err)
		return resp, err
	}
}
