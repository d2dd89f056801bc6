package core

import (
	"fmt"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize bounds the number of memoized reports.
const DefaultCacheSize = 256

// CacheObserver is notified of memo lookups. Implementations must be safe
// for concurrent use.
type CacheObserver interface {
	CacheHit()
	CacheMiss()
}

// CacheStats is a point-in-time view of the report cache.
type CacheStats struct {
	Hits   uint64 `json:"hits"`
	Misses uint64 `json:"misses"`
	Len    int    `json:"len"`
}

// ReportCache is a bounded LRU of evaluated reports keyed by request hash.
type ReportCache struct {
	lru      *lru.Cache[RequestKey, *Report]
	hits     atomic.Uint64
	misses   atomic.Uint64
	observer CacheObserver
}

func NewReportCache(size int, observer CacheObserver) (*ReportCache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	c, err := lru.New[RequestKey, *Report](size)
	if err != nil {
		return nil, fmt.Errorf("create report cache: %w", err)
	}
	return &ReportCache{lru: c, observer: observer}, nil
}

func (c *ReportCache) Get(key RequestKey) (*Report, bool) {
	r, ok := c.lru.Get(key)
	if ok {
		c.hits.Add(1)
		if c.observer != nil {
			c.observer.CacheHit()
		}
	} else {
		c.misses.Add(1)
		if c.observer != nil {
			c.observer.CacheMiss()
		}
	}
	return r, ok
}

func (c *ReportCache) Add(key RequestKey, r *Report) {
	c.lru.Add(key, r)
}

func (c *ReportCache) Purge() {
	c.lru.Purge()
}

func (c *ReportCache) Stats() CacheStats {
	return CacheStats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Len:    c.lru.Len(),
	}
}
