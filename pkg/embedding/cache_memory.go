package embedding

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	defaultCacheSize = 1000
	defaultCacheTTL  = time.Hour
)

// MemoryCache is an in-process embedding cache backed by an LRU with a
// fixed TTL. Expiry is checked on read; a stale entry is evicted and reads
// as a miss.
type MemoryCache struct {
	entries *lru.Cache[string, *Entry]
	ttl     time.Duration
}

// NewMemoryCache creates an in-memory cache. size bounds the entry count
// (default 1000) and ttl bounds entry age (default 1h).
func NewMemoryCache(size int, ttl time.Duration) (*MemoryCache, error) {
	if size <= 0 {
		size = defaultCacheSize
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}

	entries, err := lru.New[string, *Entry](size)
	if err != nil {
		return nil, err
	}

	return &MemoryCache{
		entries: entries,
		ttl:     ttl,
	}, nil
}

// Get returns the entry for key if present and unexpired.
func (c *MemoryCache) Get(_ context.Context, key string) (*Entry, bool) {
	entry, ok := c.entries.Get(key)
	if !ok {
		return nil, false
	}
	if time.Since(entry.CreatedAt) >= c.ttl {
		c.entries.Remove(key)
		return nil, false
	}
	return entry, true
}

// Set stores an entry under key.
func (c *MemoryCache) Set(_ context.Context, key string, entry *Entry) {
	c.entries.Add(key, entry)
}

// Len returns the number of live entries, including any not yet evicted by
// the read-path expiry check.
func (c *MemoryCache) Len() int {
	return c.entries.Len()
}

// Close purges the cache.
func (c *MemoryCache) Close() error {
	c.entries.Purge()
	return nil
}
