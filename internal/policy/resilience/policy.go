package resilience

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/scrapper/internal/fetcher"
)

// Policy configures the three fetch layers.
type Policy struct {
	Retries  int
	Delay    time.Duration
	CacheTTL time.Duration
	// NoCache removes the cache layer entirely.
	NoCache bool
}

// Fetcher is a raw fetcher wrapped in cache, retry and delay layers.
type Fetcher struct {
	cache  *Cache
	cached FetchFunc
	fresh  FetchFunc
}

// New composes the policy around raw.
func New(ctx context.Context, raw fetcher.Fetcher, policy Policy, logger *zap.Logger) (*Fetcher, error) {
	if raw == nil {
		return nil, fmt.Errorf("raw fetcher is required")
	}
	fresh := Chain(Observed(raw), Retry(policy.Retries, logger), Delay(policy.Delay))
	f := &Fetcher{cached: fresh, fresh: fresh}
	if policy.NoCache {
		return f, nil
	}
	cache, err := NewCache(ctx, policy.CacheTTL, logger)
	if err != nil {
		return nil, err
	}
	f.cache = cache
	f.cached = cache.Layer()(fresh)
	return f, nil
}

// Fetch serves uri from the cache or through retry and delay.
func (f *Fetcher) Fetch(ctx context.Context, uri string) (fetcher.Response, error) {
	return f.cached(ctx, uri)
}

// Refetch skips the cache lookup but still refreshes the cached entry.
func (f *Fetcher) Refetch(ctx context.Context, uri string) (fetcher.Response, error) {
	if f.cache != nil {
		f.cache.Invalidate(uri)
	}
	return f.cached(ctx, uri)
}

// Close releases the cache.
func (f *Fetcher) Close() error {
	if f.cache == nil {
		return nil
	}
	return f.cache.Close()
}
