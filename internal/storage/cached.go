package storage

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/treefix50/showtracker/internal/metrics"
	"github.com/treefix50/showtracker/internal/server"
)

const defaultCacheTTL = 5 * time.Minute

// CachedStore serves GetByID from an expiring LRU and keeps it coherent
// with every write that goes through it.
//
// A miss only fills the cache if no write started or finished between the
// backing read and the fill; gen counts invalidations.
type CachedStore struct {
	inner server.ShowStore
	cache *lru.LRU[int64, server.Show]

	mu  sync.Mutex
	gen uint64
}

func NewCachedStore(inner server.ShowStore, size int, ttl time.Duration) *CachedStore {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &CachedStore{
		inner: inner,
		cache: lru.NewLRU[int64, server.Show](size, nil, ttl),
	}
}

func (c *CachedStore) Create(ctx context.Context, in server.ShowInput) (server.Show, error) {
	return c.inner.Create(ctx, in)
}

func (c *CachedStore) List(ctx context.Context) ([]server.Show, error) {
	return c.inner.List(ctx)
}

func (c *CachedStore) GetByID(ctx context.Context, id int64) (server.Show, bool, error) {
	if show, ok := c.cache.Get(id); ok {
		metrics.CacheHitsTotal.Inc()
		return show, true, nil
	}
	metrics.CacheMissesTotal.Inc()

	c.mu.Lock()
	gen := c.gen
	c.mu.Unlock()

	show, ok, err := c.inner.GetByID(ctx, id)
	if err != nil || !ok {
		return show, ok, err
	}

	c.mu.Lock()
	if c.gen == gen {
		c.cache.Add(id, show)
	}
	c.mu.Unlock()
	return show, true, nil
}

func (c *CachedStore) GetByEpisodes(ctx context.Context, minEpisodes int) ([]server.Show, error) {
	return c.inner.GetByEpisodes(ctx, minEpisodes)
}

func (c *CachedStore) UpdateByID(ctx context.Context, id int64, patch server.ShowPatch) (server.Show, bool, error) {
	c.invalidate(id)
	defer c.invalidate(id)
	return c.inner.UpdateByID(ctx, id, patch)
}

func (c *CachedStore) DeleteByID(ctx context.Context, id int64) (bool, error) {
	c.invalidate(id)
	defer c.invalidate(id)
	return c.inner.DeleteByID(ctx, id)
}

// invalidate runs on both sides of a write: before it so a failed write
// leaves nothing stale, and after it so reads that overlapped the write
// neither keep nor add the old record.
func (c *CachedStore) invalidate(id int64) {
	c.mu.Lock()
	c.gen++
	c.cache.Remove(id)
	c.mu.Unlock()
}

func (c *CachedStore) Ping(ctx context.Context) error {
	return c.inner.Ping(ctx)
}

func (c *CachedStore) Close() error {
	c.cache.Purge()
	return c.inner.Close()
}

// Len reports the number of cached shows.
func (c *CachedStore) Len() int {
	return c.cache.Len()
}
