package main

import (
	"math"
	"strconv"
	"sync"
)

// Memcached layers the memcached semantic operations over MemoryCache.
// Each operation runs as one critical section, so commands from different
// connections never interleave mid-operation.
type Memcached struct {
	mu    sync.Mutex
	stats *Stats
	mc    *MemoryCache
}

// newMemcached builds the facade. maxItems/maxBytes of 0 mean unbounded.
func newMemcached(stats *Stats, maxItems, maxBytes int64) *Memcached {
	if maxItems <= 0 {
		maxItems = math.MaxInt64
	}
	if maxBytes <= 0 {
		maxBytes = math.MaxInt64
	}
	return &Memcached{
		stats: stats,
		mc:    newMemoryCache(stats, maxItems, maxBytes),
	}
}

// Set stores unconditionally. An existing item is replaced wholesale, so the
// stored item always carries a fresh casunique.
func (m *Memcached) Set(key, flags string, exptime int64, value []byte) storeResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	if item := m.mc.get(key); item != nil {
		m.mc.replace(item, value, flags, exptime)
	} else {
		m.mc.add(key, value, flags, exptime)
	}
	m.stats.set()
	return resStored
}

// Cas stores only when casunique still matches the live item. A miss stores
// the value anyway and reports NOT_FOUND.
func (m *Memcached) Cas(key, flags string, exptime int64, casunique uint64, value []byte) storeResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	item := m.mc.get(key)
	switch {
	case item == nil:
		m.mc.add(key, value, flags, exptime)
		m.stats.casMiss()
		return resNotFound
	case item.casunique == casunique:
		m.mc.replace(item, value, flags, exptime)
		m.stats.casHit()
		return resStored
	default:
		m.stats.casBadval()
		return resExists
	}
}

// Add stores only when the key is absent. Contention touches the existing
// item's LRU position.
func (m *Memcached) Add(key, flags string, exptime int64, value []byte) storeResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	if item := m.mc.get(key); item != nil {
		m.mc.touch(item)
		return resNotStored
	}
	m.mc.add(key, value, flags, exptime)
	return resStored
}

// Replace stores only when the key is present.
func (m *Memcached) Replace(key, flags string, exptime int64, value []byte) storeResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	if item := m.mc.get(key); item != nil {
		m.mc.replace(item, value, flags, exptime)
		return resStored
	}
	return resNotStored
}

// Prepend concatenates value before the existing one. Flags and exptime are
// taken from the command.
func (m *Memcached) Prepend(key, flags string, exptime int64, value []byte) storeResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	item := m.mc.get(key)
	if item == nil {
		return resNotStored
	}
	joined := make([]byte, 0, len(value)+len(item.value))
	joined = append(append(joined, value...), item.value...)
	m.mc.replace(item, joined, flags, exptime)
	return resStored
}

// Append concatenates value after the existing one.
func (m *Memcached) Append(key, flags string, exptime int64, value []byte) storeResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	item := m.mc.get(key)
	if item == nil {
		return resNotStored
	}
	joined := make([]byte, 0, len(item.value)+len(value))
	joined = append(append(joined, item.value...), value...)
	m.mc.replace(item, joined, flags, exptime)
	return resStored
}

// arith replaces the item's value with old+delta or old-delta. The original
// flags and exptime survive the replacement.
func (m *Memcached) arith(key string, delta uint64, negate bool, count func(bool)) (storeResult, string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item := m.mc.get(key)
	if item == nil {
		count(false)
		return resNotFound, ""
	}

	old, ok := parseNumericValue(item.value)
	if !ok {
		return resNotNumber, ""
	}

	var next int64
	if negate {
		next = old - int64(delta)
	} else {
		next = old + int64(delta)
	}
	value := strconv.FormatInt(next, 10)

	item = m.mc.replace(item, []byte(value), item.flags, item.exptime)
	count(true)
	return resStored, string(item.value)
}

func (m *Memcached) Increment(key string, delta uint64) (storeResult, string) {
	return m.arith(key, delta, false, m.stats.incr)
}

func (m *Memcached) Decrement(key string, delta uint64) (storeResult, string) {
	return m.arith(key, delta, true, m.stats.decr)
}

// parseNumericValue accepts only unsigned base-10 digit strings.
func parseNumericValue(value []byte) (int64, bool) {
	if len(value) == 0 {
		return 0, false
	}
	for _, c := range value {
		if c < '0' || c > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseInt(string(value), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Get returns the live items for the requested keys, silently omitting
// misses. One cmd_get is recorded per call; a hit means any key was found.
func (m *Memcached) Get(keys []string) []*CacheItem {
	m.mu.Lock()
	defer m.mu.Unlock()

	items := make([]*CacheItem, 0, len(keys))
	for _, key := range keys {
		if item := m.mc.get(key); item != nil {
			items = append(items, item)
		}
	}
	m.stats.get(len(items) > 0)
	return items
}

// Gets is Get; the handler adds the casunique field to each VALUE line.
func (m *Memcached) Gets(keys []string) []*CacheItem {
	return m.Get(keys)
}

func (m *Memcached) Delete(key string) storeResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	if item := m.mc.get(key); item != nil {
		m.mc.delete(item)
		m.stats.deleteOp(true)
		return resDeleted
	}
	m.stats.deleteOp(false)
	return resNotFound
}

func (m *Memcached) Flush(delay int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mc.flush(delay)
}

func (m *Memcached) StatsDump(sub string) []statPair {
	return m.stats.Dump(sub)
}
