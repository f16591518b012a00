// Package cache implements a small LRU cache of query fingerprints to
// result id lists, used by the search engine's read path.
package cache

import (
	"container/list"
	"sync"
)

// DefaultMaxEntries is the default cache capacity.
const DefaultMaxEntries = 256

type entry struct {
	key   string
	value []string
}

// LRU is a fixed-capacity least-recently-used cache mapping a query
// fingerprint to a ranked id list. It never holds entry objects, only
// ids, so callers always re-read current state through the authoritative
// map after a hit.
type LRU struct {
	mu       sync.Mutex
	max      int
	ll       *list.List
	elements map[string]*list.Element
}

// New returns an LRU with the given capacity. maxEntries <= 0 selects
// DefaultMaxEntries.
func New(maxEntries int) *LRU {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &LRU{
		max:      maxEntries,
		ll:       list.New(),
		elements: map[string]*list.Element{},
	}
}

// Get returns the cached id list for key, if present, promoting it to
// most-recently-used.
func (c *LRU) Get(key string) ([]string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.elements[key]
	if !ok {
		return nil, false
	}
	c.ll.MoveToFront(el)
	return el.Value.(*entry).value, true
}

// Put inserts or updates key's id list, evicting the least-recently-used
// entry if the cache is full.
func (c *LRU) Put(key string, ids []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.elements[key]; ok {
		el.Value.(*entry).value = ids
		c.ll.MoveToFront(el)
		return
	}
	el := c.ll.PushFront(&entry{key: key, value: ids})
	c.elements[key] = el
	if c.ll.Len() > c.max {
		oldest := c.ll.Back()
		if oldest != nil {
			c.ll.Remove(oldest)
			delete(c.elements, oldest.Value.(*entry).key)
		}
	}
}

// Clear invalidates the entire cache. Called on any mutation to the entry
// set (ingest, purge, forget, feedback).
func (c *LRU) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ll.Init()
	c.elements = map[string]*list.Element{}
}

// Len returns the current number of cached entries.
func (c *LRU) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}
