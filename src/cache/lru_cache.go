package cache

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// LRUCache is a thread-safe LRU cache whose entries expire after a TTL.
type LRUCache[V any] struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	now      func() time.Time
	items    map[string]*list.Element
	lru      *list.List
}

type entry[V any] struct {
	key       string
	value     V
	expiresAt time.Time
}

// NewLRUCache creates a cache holding at most capacity entries.
func NewLRUCache[V any](capacity int, ttl time.Duration) *LRUCache[V] {
	if capacity <= 0 {
		capacity = 1
	}
	return &LRUCache[V]{
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
		items:    make(map[string]*list.Element, capacity),
		lru:      list.New(),
	}
}

// Get returns the live value stored under key.
func (c *LRUCache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	elem, ok := c.items[key]
	if !ok {
		return zero, false
	}
	ent := elem.Value.(*entry[V])
	if c.now().After(ent.expiresAt) {
		c.lru.Remove(elem)
		delete(c.items, key)
		return zero, false
	}
	c.lru.MoveToFront(elem)
	return ent.value, true
}

// Set adds or replaces key, evicting the least recently used entry when full.
func (c *LRUCache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := c.now().Add(c.ttl)
	if elem, ok := c.items[key]; ok {
		c.lru.MoveToFront(elem)
		ent := elem.Value.(*entry[V])
		ent.value = value
		ent.expiresAt = expiresAt
		return
	}

	c.items[key] = c.lru.PushFront(&entry[V]{key: key, value: value, expiresAt: expiresAt})
	if c.lru.Len() > c.capacity {
		oldest := c.lru.Back()
		c.lru.Remove(oldest)
		delete(c.items, oldest.Value.(*entry[V]).key)
	}
}

func (c *LRUCache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// HashKey derives a fixed-size key from its parts.
func HashKey(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
