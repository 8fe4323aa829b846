package cache

import (
	"container/list"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Common cache errors
var (
	ErrCacheMiss = fmt.Errorf("cache miss")
)

// Cache is a capacity-bounded in-memory store with per-entry TTL and LRU
// eviction. TTL bounds staleness, capacity bounds memory; the two are
// independent. All operations are safe for concurrent use.
type Cache struct {
	mu         sync.Mutex
	entries    map[string]*list.Element
	order      *list.List // front = least recently used, back = most recently used
	capacity   int
	defaultTTL time.Duration
	clk        clock.Clock
	hits       uint64
	misses     uint64
}

// entry is the value stored behind each recency-list element
type entry struct {
	key       string
	value     any
	expiresAt time.Time
}

// Stats is a point-in-time snapshot of cache counters
type Stats struct {
	Hits     uint64  `json:"hits"`
	Misses   uint64  `json:"misses"`
	HitRate  float64 `json:"hit_rate"`
	Size     int     `json:"size"`
	Capacity int     `json:"capacity"`
}

// New creates a cache holding at most capacity entries. A capacity of zero
// disables caching entirely: every Set is a no-op and every Get misses.
func New(capacity int, defaultTTL time.Duration) *Cache {
	return newWithClock(capacity, defaultTTL, clock.New())
}

func newWithClock(capacity int, defaultTTL time.Duration, clk clock.Clock) *Cache {
	return &Cache{
		entries:    make(map[string]*list.Element),
		order:      list.New(),
		capacity:   capacity,
		defaultTTL: defaultTTL,
		clk:        clk,
	}
}

// Get retrieves a value by key. Unknown keys and entries past their expiry
// count as misses; expired entries are removed on detection. A hit moves
// the key to the most-recently-used position.
func (c *Cache) Get(key string) (any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, ErrCacheMiss
	}

	ent := el.Value.(*entry)
	if !c.clk.Now().Before(ent.expiresAt) {
		// Expired entries are treated as absent
		c.order.Remove(el)
		delete(c.entries, key)
		c.misses++
		return nil, ErrCacheMiss
	}

	c.hits++
	c.order.MoveToBack(el)
	return ent.value, nil
}

// Set stores a value with an optional TTL override (nil uses the default).
// At capacity, inserting a new key evicts the least-recently-used entry
// regardless of that entry's own expiry.
func (c *Cache) Set(key string, value any, ttl *time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capacity == 0 {
		return
	}

	entryTTL := c.defaultTTL
	if ttl != nil {
		entryTTL = *ttl
	}
	expiresAt := c.clk.Now().Add(entryTTL)

	if el, ok := c.entries[key]; ok {
		ent := el.Value.(*entry)
		ent.value = value
		ent.expiresAt = expiresAt
		c.order.MoveToBack(el)
		return
	}

	if c.order.Len() >= c.capacity {
		oldest := c.order.Front()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value.(*entry).key)
		}
	}

	c.entries[key] = c.order.PushBack(&entry{
		key:       key,
		value:     value,
		expiresAt: expiresAt,
	})
}

// Contains reports whether a live entry exists for key. Unlike Get it
// counts no hit or miss and does not touch recency order, so UI layers can
// probe cache state without skewing stats.
func (c *Cache) Contains(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return false
	}
	return c.clk.Now().Before(el.Value.(*entry).expiresAt)
}

// Delete removes a key, if present
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		c.order.Remove(el)
		delete(c.entries, key)
	}
}

// Clear removes all entries and resets counters
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*list.Element)
	c.order.Init()
	c.hits = 0
	c.misses = 0
}

// Len returns the current number of entries
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Stats returns a snapshot of hit/miss counters. Reading stats does not
// mutate them.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := Stats{
		Hits:     c.hits,
		Misses:   c.misses,
		Size:     c.order.Len(),
		Capacity: c.capacity,
	}
	if total := c.hits + c.misses; total > 0 {
		stats.HitRate = float64(c.hits) / float64(total)
	}
	return stats
}
