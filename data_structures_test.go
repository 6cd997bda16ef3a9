package main

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(maxItems, maxBytes int64) (*MemoryCache, *Stats) {
	stats := NewStats()
	return newMemoryCache(stats, maxItems, maxBytes), stats
}

func TestLRUOrdering(t *testing.T) {
	lru := &LRU{}

	a := newCacheItem("a", []byte("1"), "0", 0)
	b := newCacheItem("b", []byte("2"), "0", 0)
	c := newCacheItem("c", []byte("3"), "0", 0)

	lru.add(a)
	lru.add(b)
	lru.add(c)

	assert.Same(t, c, lru.head)
	assert.Same(t, a, lru.tail)
	assert.Same(t, a, lru.least())

	// touching the tail makes it the head
	lru.reset(a)
	assert.Same(t, a, lru.head)
	assert.Same(t, b, lru.tail)

	lru.remove(b)
	assert.Same(t, c, lru.tail)
	assert.Nil(t, b.prev)
	assert.Nil(t, b.next)

	lru.remove(a)
	lru.remove(c)
	assert.Nil(t, lru.head)
	assert.Nil(t, lru.tail)
	assert.Nil(t, lru.least())
}

func TestLRUResetHead(t *testing.T) {
	lru := &LRU{}
	a := newCacheItem("a", []byte("1"), "0", 0)
	lru.add(a)

	lru.reset(a)
	assert.Same(t, a, lru.head)
	assert.Same(t, a, lru.tail)
}

func TestCacheItemExptime(t *testing.T) {
	now := intTime()

	relative := newCacheItem("k", []byte("v"), "0", 60)
	assert.InDelta(t, now+60, relative.exptime, 2)
	assert.False(t, relative.hasExpired())

	absolute := newCacheItem("k", []byte("v"), "0", now+timeCutoff+100)
	assert.Equal(t, now+timeCutoff+100, absolute.exptime)

	never := newCacheItem("k", []byte("v"), "0", 0)
	assert.Equal(t, int64(0), never.exptime)
	assert.False(t, never.hasExpired())

	expired := newCacheItem("k", []byte("v"), "0", now-100)
	assert.True(t, expired.hasExpired())
}

func TestCacheItemByteCount(t *testing.T) {
	item := newCacheItem("key", []byte("value"), "7", 0)
	assert.Equal(t, int64(3+5+1), item.byteCount())
}

func TestCasUniqueIdentity(t *testing.T) {
	a := newCacheItem("k", []byte("v"), "0", 0)
	b := newCacheItem("k", []byte("v"), "0", 0)

	assert.NotZero(t, a.casunique)
	assert.NotZero(t, b.casunique)
	assert.Equal(t, a.casunique, a.casunique)
	assert.NotEqual(t, a.casunique, b.casunique)
}

func TestMemoryCacheAccounting(t *testing.T) {
	mc, _ := newTestCache(100, 1<<20)

	for i := 0; i < 10; i++ {
		key := "key" + strconv.Itoa(i)
		mc.add(key, []byte("value"), "0", 0)
	}

	require.Equal(t, int64(10), mc.itemCount)
	assert.Equal(t, int64(10), int64(len(mc.table)))

	var total int64
	count := int64(0)
	for item := mc.lru.head; item != nil; item = item.next {
		total += item.byteCount()
		count++
	}
	assert.Equal(t, mc.itemCount, count)
	assert.Equal(t, mc.byteCount, total)

	item := mc.get("key3")
	require.NotNil(t, item)
	mc.delete(item)
	assert.Equal(t, int64(9), mc.itemCount)
	assert.Nil(t, mc.get("key3"))
}

func TestMemoryCacheItemEviction(t *testing.T) {
	mc, stats := newTestCache(2, 1<<20)

	for i := 1; i <= 5; i++ {
		n := strconv.Itoa(i)
		mc.add("key"+n, []byte("value"+n), "0", 0)
	}

	assert.Equal(t, int64(2), mc.itemCount)
	assert.Nil(t, mc.get("key1"))
	assert.Nil(t, mc.get("key2"))
	assert.Nil(t, mc.get("key3"))
	assert.NotNil(t, mc.get("key4"))
	assert.NotNil(t, mc.get("key5"))

	stats.mu.Lock()
	defer stats.mu.Unlock()
	assert.Equal(t, int64(3), stats.evictions)
}

func TestMemoryCacheByteEviction(t *testing.T) {
	// footprint of each item: 2 (key) + 5 (value) + 1 (flags) = 8
	mc, _ := newTestCache(100, 10)

	mc.add("k1", []byte("12345"), "0", 0)
	mc.add("k2", []byte("12345"), "0", 0)

	assert.Equal(t, int64(1), mc.itemCount)
	assert.Nil(t, mc.get("k1"))
	assert.NotNil(t, mc.get("k2"))
	assert.LessOrEqual(t, mc.byteCount, int64(10))
}

func TestMemoryCacheReplace(t *testing.T) {
	mc, _ := newTestCache(100, 1<<20)

	old := mc.add("k", []byte("old"), "1", 0)
	fresh := mc.replace(old, []byte("newer"), "2", 0)

	assert.Equal(t, int64(1), mc.itemCount)
	assert.Equal(t, []byte("newer"), fresh.value)
	assert.Equal(t, "2", fresh.flags)
	assert.NotEqual(t, old.casunique, fresh.casunique)
	assert.Same(t, fresh, mc.get("k"))
	assert.Equal(t, fresh.byteCount(), mc.byteCount)
}

func TestMemoryCacheLazyExpiration(t *testing.T) {
	mc, stats := newTestCache(100, 1<<20)

	mc.add("gone", []byte("v"), "0", intTime()-100)
	mc.add("here", []byte("v"), "0", 0)

	assert.Nil(t, mc.get("gone"))
	assert.NotNil(t, mc.get("here"))
	assert.Equal(t, int64(1), mc.itemCount)

	stats.mu.Lock()
	defer stats.mu.Unlock()
	assert.Equal(t, int64(1), stats.reclaimed)
}

func TestMemoryCacheFlush(t *testing.T) {
	mc, _ := newTestCache(100, 1<<20)

	mc.add("a", []byte("1"), "0", 0)
	mc.add("b", []byte("2"), "0", 0)

	mc.flush(0)

	assert.Nil(t, mc.get("a"))
	assert.Nil(t, mc.get("b"))
	assert.Equal(t, int64(0), mc.itemCount)

	mc.add("c", []byte("3"), "0", 0)
	mc.flush(1000)
	assert.NotNil(t, mc.get("c"))
}
