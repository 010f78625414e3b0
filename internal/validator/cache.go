package validator

import (
	"sync"
	"time"
)

// cache is a bounded, TTL-keyed store of recently-rejected txids, used to short-circuit duplicate
// validation work. The only entries are txids a live probe rejected; a successful probe is never
// cached because the mempool itself dedupes successes, and submissions are not recorded here.
//
// Replacement policy is a simple FIFO by insertion order: correctness doesn't depend on which
// entry gets evicted, a stale eviction just costs one extra node probe next time.
type cache struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	order    []string
	entries  map[string]time.Time
}

func newCache(capacity int, ttl time.Duration) *cache {
	return &cache{
		capacity: capacity,
		ttl:      ttl,
		entries:  make(map[string]time.Time),
	}
}

// lookup reports whether txid is present and still within its TTL as of now.
func (c *cache) lookup(txid string, now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	insertedAt, found := c.entries[txid]
	if !found {
		return false
	}

	return now.Sub(insertedAt) < c.ttl
}

// insert records txid as seen at now, evicting the oldest entry first if the cache is full.
func (c *cache) insert(txid string, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[txid]; exists {
		c.entries[txid] = now
		return
	}

	if c.capacity > 0 && len(c.entries) >= c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}

	c.entries[txid] = now
	c.order = append(c.order, txid)
}

func (c *cache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
