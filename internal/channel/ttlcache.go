package channel

import (
	"sync"
	"time"
)

type ttlEntry[V any] struct {
	value   V
	expires time.Time
}

// TTLCache is a small map whose entries expire after a fixed duration. Expiry is
// checked on read; writes purge expired entries once the map passes a size limit.
// The limit doubles past the live size after each purge so a full map is not
// rescanned on every write.
type TTLCache[K comparable, V any] struct {
	mu       sync.Mutex
	ttl      time.Duration
	minLimit int
	limit    int
	entries  map[K]ttlEntry[V]
	now      func() time.Time
}

// defaultPruneLimit is the size at which a write first purges expired entries.
const defaultPruneLimit = 4096

// NewTTLCache creates a cache whose entries live for ttl.
func NewTTLCache[K comparable, V any](ttl time.Duration) *TTLCache[K, V] {
	return &TTLCache[K, V]{
		ttl:      ttl,
		minLimit: defaultPruneLimit,
		limit:    defaultPruneLimit,
		entries:  map[K]ttlEntry[V]{},
		now:      time.Now,
	}
}

// Get returns the live value for key.
func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	if !c.now().Before(entry.expires) {
		delete(c.entries, key)
		var zero V
		return zero, false
	}
	return entry.value, true
}

// Set stores value under key, replacing any previous entry.
func (c *TTLCache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	c.pruneLocked(now)
	c.entries[key] = ttlEntry[V]{value: value, expires: now.Add(c.ttl)}
}

// SeenOrAdd reports whether key is live; if it is not, key is stored with value.
func (c *TTLCache[K, V]) SeenOrAdd(key K, value V) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	if entry, ok := c.entries[key]; ok && now.Before(entry.expires) {
		return true
	}
	c.pruneLocked(now)
	c.entries[key] = ttlEntry[V]{value: value, expires: now.Add(c.ttl)}
	return false
}

func (c *TTLCache[K, V]) pruneLocked(now time.Time) {
	if len(c.entries) < c.limit {
		return
	}
	for key, entry := range c.entries {
		if !now.Before(entry.expires) {
			delete(c.entries, key)
		}
	}
	c.limit = max(c.minLimit, 2*len(c.entries))
}

// Delete removes key.
func (c *TTLCache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Len returns the number of stored entries, expired ones included.
func (c *TTLCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
