package main

import (
	"sync/atomic"
	"time"
)

// Store exptimes at or below this cutoff are relative offsets from now;
// larger values are already absolute epoch seconds.
const timeCutoff = 60 * 60 * 24 * 30

// casCounter hands out item identities. Monotonic and never zero.
var casCounter atomic.Uint64

func intTime() int64 {
	return time.Now().Unix()
}

// CacheItem is a single stored record and an LRU list member.
type CacheItem struct {
	key     string
	value   []byte
	flags   string
	exptime int64 // absolute epoch seconds, 0 = never expires

	casunique uint64

	prev, next *CacheItem
}

func newCacheItem(key string, value []byte, flags string, exptime int64) *CacheItem {
	return &CacheItem{
		key:       key,
		value:     value,
		flags:     flags,
		exptime:   prepExptime(exptime),
		casunique: casCounter.Add(1),
	}
}

// prepExptime normalizes a store exptime: (0, timeCutoff] is a relative
// offset rewritten to absolute, larger values are already absolute, and
// anything else means never expires.
func prepExptime(exptime int64) int64 {
	if exptime <= 0 {
		return 0
	}
	if exptime <= timeCutoff {
		return intTime() + exptime
	}
	return exptime
}

func (i *CacheItem) setExptime(exptime int64) {
	i.exptime = prepExptime(exptime)
}

func (i *CacheItem) hasExpired() bool {
	return i.exptime > 0 && i.exptime <= intTime()
}

// byteCount is the accounting footprint of the item.
func (i *CacheItem) byteCount() int64 {
	return int64(len(i.key) + len(i.value) + len(i.flags))
}

// LRU is an intrusive doubly-linked list of cache items.
// Head is most recently used, tail is the eviction victim.
type LRU struct {
	head *CacheItem
	tail *CacheItem
}

func (l *LRU) add(item *CacheItem) {
	item.next = l.head
	item.prev = nil

	if l.head != nil {
		l.head.prev = item
	}
	l.head = item

	if l.tail == nil {
		l.tail = item
	}
}

func (l *LRU) remove(item *CacheItem) {
	if l.head == item {
		l.head = item.next
	}
	if l.tail == item {
		l.tail = item.prev
	}

	if item.prev != nil {
		item.prev.next = item.next
	}
	if item.next != nil {
		item.next.prev = item.prev
	}

	// drop the sibling links so the item is garbage-eligible
	item.prev = nil
	item.next = nil
}

func (l *LRU) reset(item *CacheItem) {
	l.remove(item)
	l.add(item)
}

func (l *LRU) least() *CacheItem {
	return l.tail
}

// MemoryCache is the bounded key->item map paired with the LRU list.
// Not safe for concurrent use; the facade serializes access.
type MemoryCache struct {
	stats *Stats

	table map[string]*CacheItem
	lru   LRU

	byteCount int64
	maxBytes  int64

	itemCount int64
	maxItems  int64
}

func newMemoryCache(stats *Stats, maxItems, maxBytes int64) *MemoryCache {
	stats.setMaximums(maxItems, maxBytes)
	return &MemoryCache{
		stats:    stats,
		table:    make(map[string]*CacheItem),
		maxBytes: maxBytes,
		maxItems: maxItems,
	}
}

// evict frees least-recently-used items until the incoming value and item
// fit within the configured bounds. Only the new value's bytes are charged
// here; running totals use the full footprint.
func (m *MemoryCache) evict(addedBytes int64) {
	for m.byteCount+addedBytes > m.maxBytes && m.lru.least() != nil {
		m.delete(m.lru.least())
		m.stats.evict()
	}

	for m.itemCount+1 > m.maxItems && m.lru.least() != nil {
		m.delete(m.lru.least())
		m.stats.evict()
	}
}

func (m *MemoryCache) removeItem(item *CacheItem) {
	byteCount := item.byteCount()
	m.byteCount -= byteCount
	m.itemCount--
	m.lru.remove(item)
	m.stats.delItem(byteCount)
}

// get returns the live item for key, lazily reclaiming it when expired.
func (m *MemoryCache) get(key string) *CacheItem {
	item, ok := m.table[key]
	if !ok {
		return nil
	}
	if item.hasExpired() {
		m.delete(item)
		m.stats.expire()
		return nil
	}
	return item
}

func (m *MemoryCache) add(key string, value []byte, flags string, exptime int64) *CacheItem {
	m.evict(int64(len(value)))

	item := newCacheItem(key, value, flags, exptime)
	newBytes := item.byteCount()
	m.table[key] = item
	m.byteCount += newBytes
	m.itemCount++
	m.lru.add(item)
	m.stats.addItem(newBytes)

	return item
}

// replace swaps old for a fresh item under the same key. The fresh item gets
// a new casunique.
func (m *MemoryCache) replace(old *CacheItem, value []byte, flags string, exptime int64) *CacheItem {
	key := old.key
	m.delete(old)
	return m.add(key, value, flags, exptime)
}

func (m *MemoryCache) delete(item *CacheItem) {
	m.removeItem(item)
	delete(m.table, item.key)
}

// flush rewrites every stored exptime to now+delay. Items are not removed
// eagerly; they expire lazily on the next get.
func (m *MemoryCache) flush(delay int64) {
	exptime := intTime() + delay
	for _, item := range m.table {
		item.setExptime(exptime)
	}
}

func (m *MemoryCache) touch(item *CacheItem) {
	m.lru.reset(item)
}
