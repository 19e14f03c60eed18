package cache

import (
	"container/list"
	"sync"
	"time"
)

// localCache is the in-process tier: a bounded LRU keyed by query
// fingerprint, capped by both entry count and total payload bytes.
type localCache struct {
	mu       sync.Mutex
	entries  map[string]*list.Element
	order    *list.List
	maxItems int
	maxBytes int64
	curBytes int64
}

type localEntry struct {
	key     string
	payload []byte
	expires time.Time
}

func newLocalCache(maxItems int, maxBytes int64) *localCache {
	if maxItems < 1 {
		maxItems = 1
	}
	if maxBytes < 1 {
		maxBytes = 1
	}
	return &localCache{
		entries:  make(map[string]*list.Element),
		order:    list.New(),
		maxItems: maxItems,
		maxBytes: maxBytes,
	}
}

func (c *localCache) get(key string, now time.Time) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	elem, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	entry := elem.Value.(*localEntry)
	if now.After(entry.expires) {
		c.removeLocked(elem)
		return nil, false
	}
	c.order.MoveToFront(elem)
	return entry.payload, true
}

func (c *localCache) set(key string, payload []byte, expires time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.entries[key]; ok {
		c.removeLocked(elem)
	}
	entry := &localEntry{key: key, payload: payload, expires: expires}
	elem := c.order.PushFront(entry)
	c.entries[key] = elem
	c.curBytes += int64(len(payload))

	for (len(c.entries) > c.maxItems || c.curBytes > c.maxBytes) && c.order.Len() > 1 {
		c.removeLocked(c.order.Back())
	}
}

func (c *localCache) removeLocked(elem *list.Element) {
	entry := elem.Value.(*localEntry)
	c.order.Remove(elem)
	delete(c.entries, entry.key)
	c.curBytes -= int64(len(entry.payload))
}

func (c *localCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
