package render

import (
	"sync"

	"github.com/couchcryptid/crime-map-service/internal/mapview"
	"github.com/couchcryptid/crime-map-service/internal/observability"
)

// Previewer composes a month without changing what is on screen.
type Previewer interface {
	Preview(month string) (mapview.SceneState, bool)
}

// Cache serves rendered per-month SVGs from an in-memory LRU.
type Cache struct {
	src     Previewer
	lru     *lruCache
	metrics *observability.Metrics
}

// NewCache wraps src with an LRU of at most maxEntries documents.
func NewCache(src Previewer, maxEntries int, metrics *observability.Metrics) *Cache {
	return &Cache{
		src:     src,
		lru:     newLRUCache(maxEntries),
		metrics: metrics,
	}
}

// Render returns the SVG for month. It reports false for months the source
// does not know.
func (c *Cache) Render(month string) ([]byte, bool) {
	if doc, ok := c.lru.get(month); ok {
		c.metrics.RenderCache.WithLabelValues("hit").Inc()
		return doc, true
	}
	st, ok := c.src.Preview(month)
	if !ok {
		return nil, false
	}
	c.metrics.RenderCache.WithLabelValues("miss").Inc()
	doc := Bytes(st)
	c.lru.put(month, doc)
	return doc, true
}

// Purge drops every cached document.
func (c *Cache) Purge() { c.lru.purge() }

// Len is the number of cached documents.
func (c *Cache) Len() int { return c.lru.len() }

// lruCache is a simple thread-safe LRU cache of rendered documents.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value []byte
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry)
	c.head, c.tail = nil, nil
}

func (c *lruCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
