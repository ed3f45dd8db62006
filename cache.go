package apiclient

import (
	"sync"
	"time"
)

// cacheEntry holds one memoized read response with the instant it was stored.
type cacheEntry struct {
	envelope *Envelope
	storedAt time.Time
}

// requestCache memoizes successful read responses for a bounded time. Expiry
// is lazy: a stale entry is reported as a miss and left in place until the
// next successful fetch overwrites it. The cache is advisory, so none of its
// methods can fail; anything ambiguous is treated as a miss.
type requestCache struct {
	mu    sync.RWMutex
	store map[string]*cacheEntry
	now   func() time.Time
}

func newRequestCache(now func() time.Time) *requestCache {
	if now == nil {
		now = time.Now
	}
	return &requestCache{
		store: make(map[string]*cacheEntry),
		now:   now,
	}
}

// lookup returns the cached envelope for key if it is younger than ttl.
// Stale entries are not evicted, only skipped.
func (rc *requestCache) lookup(key string, ttl time.Duration) (*Envelope, bool) {
	rc.mu.RLock()
	defer rc.mu.RUnlock()

	entry, ok := rc.store[key]
	if !ok || entry == nil || entry.envelope == nil {
		return nil, false
	}
	if rc.now().Sub(entry.storedAt) >= ttl {
		return nil, false
	}
	return entry.envelope, true
}

// save stores env under key, superseding any previous entry.
func (rc *requestCache) save(key string, env *Envelope) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	rc.store[key] = &cacheEntry{
		envelope: env,
		storedAt: rc.now(),
	}
}

// clear drops every entry. Used by tests and by callers that need a cold
// cache after mutating data out of band.
func (rc *requestCache) clear() {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	rc.store = make(map[string]*cacheEntry)
}

// size reports the number of entries, stale ones included.
func (rc *requestCache) size() int {
	rc.mu.RLock()
	defer rc.mu.RUnlock()

	return len(rc.store)
}

// cacheKey derives the request identity for memoization. The URL must be
// fully resolved (base, path and encoded query) so two reads hit the same
// entry only when every parameter matches.
func cacheKey(method, url string) string {
	return method + " " + url
}

// ClearCache empties the request cache. Mutating operations do not
// invalidate cached reads on their own; callers that need read-your-writes
// freshness inside the TTL window clear the cache explicitly.
func (c *Client) ClearCache() {
	if c.cache == nil {
		return
	}
	c.cache.clear()
	if c.metrics != nil {
		c.metrics.RecordCacheSize("default", 0)
	}
}

// CacheSize reports the number of cached read responses, stale ones included.
func (c *Client) CacheSize() int {
	if c.cache == nil {
		return 0
	}
	return c.cache.size()
}
