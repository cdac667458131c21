package promptengine

import (
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// cacheEntry pairs a compiled template with its TTL deadline.
type cacheEntry struct {
	tmpl      *CompiledTemplate
	expiresAt time.Time
}

// templateCache is a combined LRU+TTL cache of compiled templates, modeled
// on a hit-counting notification template cache: bounded by entry count via
// an LRU, and independently bounded by age via a background sweeper so a
// hot template that stops changing doesn't linger past its TTL.
//
// All access to lru goes through mu, not just for thread safety but so
// removingTTL reliably tags the eviction it was set for: the underlying
// lru.Cache invokes the same onEvict callback for a capacity-driven Add
// eviction and an explicit Remove, and mu is what keeps those two call
// sites from racing on the flag.
type templateCache struct {
	mu      sync.Mutex
	lru     *lru.Cache[string, *cacheEntry]
	ttl     time.Duration
	maxSize int

	removingTTL bool // guarded by mu

	hits         atomic.Int64
	misses       atomic.Int64
	lruEvictions atomic.Int64
	ttlEvictions atomic.Int64

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// newTemplateCache builds a cache holding at most size entries, each
// served for at most ttl after insertion; an expired entry is removed on
// its next lookup or by the sweeper within one sweepInterval. A zero or
// negative ttl disables TTL expiry (entries are bounded by size alone).
func newTemplateCache(size int, ttl time.Duration) (*templateCache, error) {
	c := &templateCache{ttl: ttl, maxSize: size, stopCh: make(chan struct{})}

	backing, err := lru.NewWithEvict[string, *cacheEntry](size, func(string, *cacheEntry) {
		if c.removingTTL {
			c.ttlEvictions.Add(1)
		} else {
			c.lruEvictions.Add(1)
		}
	})
	if err != nil {
		return nil, err
	}
	c.lru = backing

	if ttl > 0 {
		c.wg.Add(1)
		go c.sweep()
	}
	return c, nil
}

func (c *templateCache) get(key string) (*CompiledTemplate, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.lru.Get(key)
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	if c.ttl > 0 && time.Now().After(entry.expiresAt) {
		c.removeTTLLocked(key)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return entry.tmpl, true
}

func (c *templateCache) put(key string, tmpl *CompiledTemplate) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Add(key, &cacheEntry{tmpl: tmpl, expiresAt: time.Now().Add(c.ttl)})
}

// removeTTLLocked removes key, tagging the resulting onEvict call (if any)
// as a TTL eviction rather than an LRU one. Callers must hold mu.
func (c *templateCache) removeTTLLocked(key string) {
	c.removingTTL = true
	c.lru.Remove(key)
	c.removingTTL = false
}

// sweepInterval bounds how stale a TTL-expired entry can remain resident;
// it runs more frequently than the TTL itself so entries don't overstay by
// more than a fraction of their lifetime.
func (c *templateCache) sweepInterval() time.Duration {
	interval := c.ttl / 4
	if interval < time.Second {
		interval = time.Second
	}
	return interval
}

func (c *templateCache) sweep() {
	defer c.wg.Done()
	ticker := time.NewTicker(c.sweepInterval())
	defer ticker.Stop()
	for {
		select {
		case <-c.stopCh:
			return
		case now := <-ticker.C:
			c.mu.Lock()
			for _, key := range c.lru.Keys() {
				entry, ok := c.lru.Peek(key)
				if !ok {
					continue
				}
				if now.After(entry.expiresAt) {
					c.removeTTLLocked(key)
				}
			}
			c.mu.Unlock()
		}
	}
}

// close stops the background TTL sweeper. Idempotent.
func (c *templateCache) close() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
	})
	c.wg.Wait()
}

// CacheStats reports the cache's cumulative hit/miss/eviction counters and
// current hit rate. LRUEvictions counts capacity-driven evictions (the
// cache was full); TTLEvictions counts entries removed for being stale,
// whether found during a get() or by the background sweeper.
type CacheStats struct {
	Hits         int64
	Misses       int64
	LRUEvictions int64
	TTLEvictions int64
	Size         int
	MaxSize      int
	HitRate      float64
}

func (c *templateCache) stats() CacheStats {
	hits := c.hits.Load()
	misses := c.misses.Load()
	total := hits + misses
	var rate float64
	if total > 0 {
		rate = float64(hits) / float64(total)
	}

	c.mu.Lock()
	size := c.lru.Len()
	c.mu.Unlock()

	return CacheStats{
		Hits:         hits,
		Misses:       misses,
		LRUEvictions: c.lruEvictions.Load(),
		TTLEvictions: c.ttlEvictions.Load(),
		Size:         size,
		MaxSize:      c.maxSize,
		HitRate:      rate,
	}
}
