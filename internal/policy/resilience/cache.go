package resilience

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/allegro/bigcache/v3"
	"go.uber.org/zap"

	"github.com/JakeFAU/scrapper/internal/fetcher"
	"github.com/JakeFAU/scrapper/internal/metrics"
)

// DefaultCacheTTL is how long a fetched response is served from the cache.
const DefaultCacheTTL = 5 * time.Minute

// Cache keeps successful responses keyed by absolute URL for a fixed TTL.
type Cache struct {
	store  *bigcache.BigCache
	logger *zap.Logger
}

// NewCache builds a response cache with the given TTL.
func NewCache(ctx context.Context, ttl time.Duration, logger *zap.Logger) (*Cache, error) {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	// Default sizing preallocates hundreds of megabytes. Queues grow on demand.
	cfg := bigcache.DefaultConfig(ttl)
	cfg.Shards = 16
	cfg.MaxEntriesInWindow = 1024
	cfg.MaxEntrySize = 8 << 10
	cfg.HardMaxCacheSize = 256
	cfg.Verbose = false
	store, err := bigcache.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create response cache: %w", err)
	}
	return &Cache{store: store, logger: logger}, nil
}

// Layer returns the cache decorator.
func (c *Cache) Layer() Layer {
	return func(next FetchFunc) FetchFunc {
		return func(ctx context.Context, uri string) (fetcher.Response, error) {
			if resp, ok := c.get(uri); ok {
				metrics.ObserveCacheLookup(true)
				return resp, nil
			}
			metrics.ObserveCacheLookup(false)
			resp, err := next(ctx, uri)
			if err != nil {
				return fetcher.Response{}, err
			}
			c.set(uri, resp)
			return resp, nil
		}
	}
}

// Invalidate drops the cached response for uri, if any.
func (c *Cache) Invalidate(uri string) {
	if err := c.store.Delete(uri); err != nil && !errors.Is(err, bigcache.ErrEntryNotFound) {
		c.logger.Warn("response cache delete failed", zap.String("url", uri), zap.Error(err))
	}
}

// Close stops the cache's background cleanup.
func (c *Cache) Close() error {
	return c.store.Close()
}

func (c *Cache) get(uri string) (fetcher.Response, bool) {
	raw, err := c.store.Get(uri)
	if err != nil {
		return fetcher.Response{}, false
	}
	var resp fetcher.Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		c.logger.Warn("dropping undecodable cache entry", zap.String("url", uri), zap.Error(err))
		c.Invalidate(uri)
		return fetcher.Response{}, false
	}
	return resp, true
}

func (c *Cache) set(uri string, resp fetcher.Response) {
	raw, err := json.Marshal(resp)
	if err != nil {
		c.logger.Warn("response not cacheable", zap.String("url", uri), zap.Error(err))
		return
	}
	if err := c.store.Set(uri, raw); err != nil {
		c.logger.Warn("response cache write failed", zap.String("url", uri), zap.Error(err))
	}
}
