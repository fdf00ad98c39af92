package pipeline

import (
	"sync"
	"time"
)

// RenderCache is a bounded LRU cache of rendered pages with TTL expiry.
type RenderCache struct {
	entries     map[string]*cacheEntry
	mutex       sync.RWMutex
	maxSize     int64
	currentSize int64
	ttl         time.Duration
	// LRU doubly-linked list with dummy head and tail
	head *cacheEntry
	tail *cacheEntry
}

type cacheEntry struct {
	key        string
	value      []byte
	createdAt  time.Time
	accessedAt time.Time
	size       int64
	prev       *cacheEntry
	next       *cacheEntry
}

// NewRenderCache creates a cache bounded to maxSize bytes whose entries
// expire after ttl.
func NewRenderCache(maxSize int64, ttl time.Duration) *RenderCache {
	c := &RenderCache{
		entries: make(map[string]*cacheEntry),
		maxSize: maxSize,
		ttl:     ttl,
		head:    &cacheEntry{},
		tail:    &cacheEntry{},
	}
	c.head.next = c.tail
	c.tail.prev = c.head
	return c
}

// Get returns the cached page for key and marks it recently used. Expired
// entries are removed on access.
func (c *RenderCache) Get(key string) ([]byte, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry, exists := c.entries[key]
	if !exists {
		return nil, false
	}

	if time.Since(entry.createdAt) > c.ttl {
		c.removeFromList(entry)
		delete(c.entries, key)
		c.currentSize -= entry.size
		return nil, false
	}

	c.moveToFront(entry)
	entry.accessedAt = time.Now()
	return entry.value, true
}

// Set stores a page, evicting least recently used entries as needed.
func (c *RenderCache) Set(key string, value []byte) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if existing, exists := c.entries[key]; exists {
		c.currentSize += int64(len(value)) - existing.size
		existing.value = value
		existing.size = int64(len(value))
		existing.createdAt = time.Now()
		existing.accessedAt = time.Now()
		c.moveToFront(existing)
		return
	}

	c.evictIfNeeded(int64(len(value)))

	entry := &cacheEntry{
		key:        key,
		value:      value,
		createdAt:  time.Now(),
		accessedAt: time.Now(),
		size:       int64(len(value)),
	}
	c.entries[key] = entry
	c.currentSize += entry.size
	c.addToFront(entry)
}

// Remove drops one entry if present.
func (c *RenderCache) Remove(key string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry, exists := c.entries[key]
	if !exists {
		return
	}
	c.removeFromList(entry)
	delete(c.entries, key)
	c.currentSize -= entry.size
}

// Clear drops everything.
func (c *RenderCache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries = make(map[string]*cacheEntry)
	c.currentSize = 0
	c.head.next = c.tail
	c.tail.prev = c.head
}

// Stats returns entry count, current byte size, and the size bound.
func (c *RenderCache) Stats() (int, int64, int64) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.entries), c.currentSize, c.maxSize
}

func (c *RenderCache) evictIfNeeded(newSize int64) {
	if c.currentSize+newSize <= c.maxSize {
		return
	}
	for c.currentSize+newSize > c.maxSize && c.tail.prev != c.head {
		lru := c.tail.prev
		c.removeFromList(lru)
		delete(c.entries, lru.key)
		c.currentSize -= lru.size
	}
}

func (c *RenderCache) addToFront(entry *cacheEntry) {
	entry.prev = c.head
	entry.next = c.head.next
	c.head.next.prev = entry
	c.head.next = entry
}

func (c *RenderCache) removeFromList(entry *cacheEntry) {
	entry.prev.next = entry.next
	entry.next.prev = entry.prev
}

func (c *RenderCache) moveToFront(entry *cacheEntry) {
	c.removeFromList(entry)
	c.addToFront(entry)
}
