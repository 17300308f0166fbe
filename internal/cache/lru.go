// Package cache holds small in-process caches with TTL and size-based
// eviction.
package cache

import (
	"container/list"
	"sync"
	"time"
)

// LRU is a fixed-capacity cache whose entries also expire after a TTL.
type LRU[T any] struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	now      func() time.Time
	items    map[string]*list.Element
	order    *list.List
}

type entry[T any] struct {
	key       string
	value     T
	expiresAt time.Time
}

// NewLRU creates a cache holding at most capacity entries for ttl each. A
// capacity below one is treated as one.
func NewLRU[T any](capacity int, ttl time.Duration) *LRU[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &LRU[T]{
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
		items:    make(map[string]*list.Element),
		order:    list.New(),
	}
}

func (c *LRU[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	elem, ok := c.items[key]
	if !ok {
		return zero, false
	}
	e := elem.Value.(*entry[T])
	if c.now().After(e.expiresAt) {
		c.remove(elem)
		return zero, false
	}
	c.order.MoveToFront(elem)
	return e.value, true
}

// Add stores value under key unless a live entry already exists, and
// returns whichever value the cache now holds.
func (c *LRU[T]) Add(key string, value T) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if elem, ok := c.items[key]; ok {
		e := elem.Value.(*entry[T])
		if !now.After(e.expiresAt) {
			c.order.MoveToFront(elem)
			return e.value, false
		}
		c.remove(elem)
	}
	c.insert(key, value, now)
	return value, true
}

func (c *LRU[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.remove(elem)
	}
	c.insert(key, value, c.now())
}

func (c *LRU[T]) insert(key string, value T, now time.Time) {
	elem := c.order.PushFront(&entry[T]{key: key, value: value, expiresAt: now.Add(c.ttl)})
	c.items[key] = elem
	for c.order.Len() > c.capacity {
		c.remove(c.order.Back())
	}
}

func (c *LRU[T]) remove(elem *list.Element) {
	e := elem.Value.(*entry[T])
	delete(c.items, e.key)
	c.order.Remove(elem)
}

// CleanExpired drops expired entries and returns how many were removed.
func (c *LRU[T]) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	var expired []*list.Element
	for elem := c.order.Front(); elem != nil; elem = elem.Next() {
		if now.After(elem.Value.(*entry[T]).expiresAt) {
			expired = append(expired, elem)
		}
	}
	for _, elem := range expired {
		c.remove(elem)
	}
	return len(expired)
}

func (c *LRU[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
