package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetAndGet(t *testing.T) {
	c := New[string](time.Minute, 10)

	c.Set("k", "v")
	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", got)

	_, ok = c.Get("absent")
	assert.False(t, ok)
}

func TestExpiryOnRead(t *testing.T) {
	c := New[int](10*time.Millisecond, 10)
	c.Set("k", 1)

	time.Sleep(20 * time.Millisecond)

	_, ok := c.Get("k")
	assert.False(t, ok, "expired entry must not be returned")
	assert.Equal(t, 0, c.Len(), "expired entry removed on read")
}

func TestLRUEviction(t *testing.T) {
	c := New[int](time.Minute, 3)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)

	// Touch a and c so b becomes least recently used.
	c.Get("a")
	c.Get("c")

	c.Set("d", 4)

	_, ok := c.Get("b")
	assert.False(t, ok, "LRU entry evicted")
	for _, k := range []string{"a", "c", "d"} {
		_, ok := c.Get(k)
		assert.True(t, ok, "entry %s retained", k)
	}
}

func TestSetReplacesWithoutEviction(t *testing.T) {
	c := New[int](time.Minute, 2)
	c.Set("a", 1)
	c.Set("b", 2)

	// Replacing an existing key at capacity must not evict anything.
	c.Set("a", 10)

	got, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 10, got)
	_, ok = c.Get("b")
	assert.True(t, ok)
}

func TestSweeper(t *testing.T) {
	c := New[int](10*time.Millisecond, 10)
	for i := 0; i < 5; i++ {
		c.Set(fmt.Sprintf("k%d", i), i)
	}
	c.StartSweeper(5 * time.Millisecond)
	defer c.StopSweeper()

	assert.Eventually(t, func() bool {
		return c.Len() == 0
	}, time.Second, 5*time.Millisecond, "sweeper removes expired entries")
}

func TestStopSweeperTwice(t *testing.T) {
	c := New[int](time.Minute, 10)
	c.StartSweeper(time.Millisecond)
	c.StartSweeper(time.Millisecond) // no-op
	c.StopSweeper()
	c.StopSweeper() // no-op
}

func TestDeleteAndClear(t *testing.T) {
	c := New[int](time.Minute, 10)
	c.Set("a", 1)
	c.Set("b", 2)

	c.Delete("a")
	_, ok := c.Get("a")
	assert.False(t, ok)

	c.Clear()
	assert.Equal(t, 0, c.Len())
}

func TestConcurrentAccess(t *testing.T) {
	c := New[int](time.Minute, 100)
	done := make(chan struct{})

	for g := 0; g < 8; g++ {
		go func(g int) {
			defer func() { done <- struct{}{} }()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("k%d", i%50)
				c.Set(key, i)
				c.Get(key)
			}
		}(g)
	}
	for g := 0; g < 8; g++ {
		<-done
	}
}

func TestExpiredDeleteKeepsReplacement(t *testing.T) {
	c := New[string](30*time.Millisecond, 4)
	c.Set("k", "old")
	time.Sleep(40 * time.Millisecond)

	// Capture the expired entry the way a reader inside Get would,
	// then replace it before the deferred delete lands.
	c.mu.RLock()
	stale := c.entries["k"]
	c.mu.RUnlock()
	require.NotNil(t, stale)
	require.True(t, time.Now().After(stale.expiresAt))

	c.Set("k", "fresh")
	c.deleteIfCurrent("k", stale)

	got, ok := c.Get("k")
	require.True(t, ok, "replacement entry must survive the stale delete")
	assert.Equal(t, "fresh", got)

	// Deleting with the current entry still works.
	c.mu.RLock()
	cur := c.entries["k"]
	c.mu.RUnlock()
	c.deleteIfCurrent("k", cur)
	_, ok = c.Get("k")
	assert.False(t, ok)
}
