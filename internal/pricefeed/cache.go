package pricefeed

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

const fetchTimeout = 15 * time.Second

type Cache interface {
	Get(ctx context.Context, key string) (decimal.Decimal, bool, error)
	Set(ctx context.Context, key string, rate decimal.Decimal, ttl time.Duration) error
}

// CachedFeed serves rates from Cache for TTL and collapses concurrent misses
// for the same asset into a single upstream call. Failures are never cached.
type CachedFeed struct {
	Next   Feed
	Cache  Cache
	TTL    time.Duration
	Logger *slog.Logger

	group singleflight.Group
}

func (f *CachedFeed) Rate(ctx context.Context, asset string) (decimal.Decimal, error) {
	key := "pricefeed:rate:" + asset

	if rate, ok, err := f.Cache.Get(ctx, key); err != nil {
		f.logger().Warn("rate_cache_get_error", "asset", asset, "error", err)
	} else if ok {
		return rate, nil
	}

	// The shared fetch outlives any single caller; each caller waits on its own ctx.
	ch := f.group.DoChan(key, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fetchTimeout)
		defer cancel()

		rate, err := f.Next.Rate(fetchCtx, asset)
		if err != nil {
			return nil, err
		}
		if err := f.Cache.Set(fetchCtx, key, rate, f.TTL); err != nil {
			f.logger().Warn("rate_cache_set_error", "asset", asset, "error", err)
		}
		return rate, nil
	})

	select {
	case <-ctx.Done():
		return decimal.Zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return decimal.Zero, res.Err
		}
		return res.Val.(decimal.Decimal), nil
	}
}

func (f *CachedFeed) logger() *slog.Logger {
	if f.Logger != nil {
		return f.Logger
	}
	return slog.Default()
}

type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	rate    decimal.Decimal
	expires time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry), now: time.Now}
}

func (c *MemoryCache) Get(_ context.Context, key string) (decimal.Decimal, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return decimal.Zero, false, nil
	}
	if !c.now().Before(e.expires) {
		delete(c.entries, key)
		return decimal.Zero, false, nil
	}
	return e.rate, true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, rate decimal.Decimal, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = memoryEntry{rate: rate, expires: c.now().Add(ttl)}
	return nil
}
