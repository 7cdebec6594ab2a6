// Package cache provides a thread-safe in-memory TTL cache with LRU
// eviction and an optional background sweep.
//
// Example usage:
//
//	c := cache.New[[]byte](5*time.Minute, 256)
//	c.Set("species/25", data)
//	data, ok := c.Get("species/25")
package cache

import (
	"sync"
	"time"
)

// entry is a cached value with its expiry and access bookkeeping.
type entry[V any] struct {
	value        V
	expiresAt    time.Time
	lastAccessed time.Time
}

// Cache is a TTL cache with a maximum entry count. When full, the least
// recently used entry is evicted. Expired entries are removed on read and
// by the background sweeper.
type Cache[V any] struct {
	mu         sync.RWMutex
	entries    map[string]*entry[V]
	ttl        time.Duration
	maxEntries int
	metrics    *Metrics

	sweepMu sync.Mutex
	stopCh  chan struct{}
}

// New creates a cache with the given TTL and maximum entry count.
func New[V any](ttl time.Duration, maxEntries int) *Cache[V] {
	return &Cache[V]{
		entries:    make(map[string]*entry[V]),
		ttl:        ttl,
		maxEntries: maxEntries,
	}
}

// SetMetrics attaches hit/miss counters. Optional.
func (c *Cache[V]) SetMetrics(m *Metrics) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metrics = m
}

// Set stores a value under key, replacing any existing entry. At capacity
// the least recently used entry is evicted first.
func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if len(c.entries) >= c.maxEntries {
		if _, exists := c.entries[key]; !exists {
			c.evictLRU()
		}
	}

	c.entries[key] = &entry[V]{
		value:        value,
		expiresAt:    now.Add(c.ttl),
		lastAccessed: now,
	}
	if c.metrics != nil {
		c.metrics.SetSize(len(c.entries))
	}
}

// Get retrieves the value for key. Returns false if absent or expired;
// expired entries are deleted on the spot.
func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V

	c.mu.RLock()
	e, exists := c.entries[key]
	metrics := c.metrics
	c.mu.RUnlock()

	if !exists {
		if metrics != nil {
			metrics.RecordMiss()
		}
		return zero, false
	}

	if time.Now().After(e.expiresAt) {
		c.deleteIfCurrent(key, e)
		if metrics != nil {
			metrics.RecordMiss()
		}
		return zero, false
	}

	c.mu.Lock()
	e.lastAccessed = time.Now()
	c.mu.Unlock()

	if metrics != nil {
		metrics.RecordHit()
	}
	return e.value, true
}

// deleteIfCurrent removes key only if the map still holds e. A Set
// racing the expiry check may have stored a fresh entry under the same
// key; that entry must survive.
func (c *Cache[V]) deleteIfCurrent(key string, e *entry[V]) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.entries[key]; ok && cur == e {
		delete(c.entries, key)
	}
	if c.metrics != nil {
		c.metrics.SetSize(len(c.entries))
	}
}

// Delete removes an entry. No-op if absent.
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	if c.metrics != nil {
		c.metrics.SetSize(len(c.entries))
	}
}

// Clear removes all entries.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry[V])
	if c.metrics != nil {
		c.metrics.SetSize(0)
	}
}

// Len returns the current entry count, including not-yet-swept expired
// entries.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// StartSweeper launches a goroutine that removes expired entries every
// interval. Calling it twice without StopSweeper is a no-op.
func (c *Cache[V]) StartSweeper(interval time.Duration) {
	c.sweepMu.Lock()
	defer c.sweepMu.Unlock()
	if c.stopCh != nil {
		return
	}
	c.stopCh = make(chan struct{})

	go func(stop chan struct{}) {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.sweep()
			case <-stop:
				return
			}
		}
	}(c.stopCh)
}

// StopSweeper stops the background sweep goroutine.
func (c *Cache[V]) StopSweeper() {
	c.sweepMu.Lock()
	defer c.sweepMu.Unlock()
	if c.stopCh == nil {
		return
	}
	close(c.stopCh)
	c.stopCh = nil
}

// sweep removes all expired entries.
func (c *Cache[V]) sweep() {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, key)
		}
	}
	if c.metrics != nil {
		c.metrics.SetSize(len(c.entries))
	}
}

// evictLRU removes the least recently used entry. Caller holds the write
// lock.
func (c *Cache[V]) evictLRU() {
	var oldestKey string
	var oldestTime time.Time

	first := true
	for key, e := range c.entries {
		if first || e.lastAccessed.Before(oldestTime) {
			oldestKey = key
			oldestTime = e.lastAccessed
			first = false
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}
