package pager

import "container/list"

// cache holds resident pages in least-recently-used order.
// A capacity of zero means unbounded: pages stay resident until Close.
type cache struct {
	capacity int
	entries  map[PageID]*list.Element
	order    *list.List // front is most recently used

	hits      uint64
	misses    uint64
	evictions uint64
}

type cacheEntry struct {
	id   PageID
	page Page
}

func newCache(capacity int) *cache {
	return &cache{
		capacity: capacity,
		entries:  make(map[PageID]*list.Element),
		order:    list.New(),
	}
}

// get returns a resident page and marks it most recently used.
func (c *cache) get(id PageID) (Page, bool) {
	el, ok := c.entries[id]
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	c.order.MoveToFront(el)
	return el.Value.(*cacheEntry).page, true
}

// peek returns a resident page without touching recency or counters.
func (c *cache) peek(id PageID) (Page, bool) {
	el, ok := c.entries[id]
	if !ok {
		return nil, false
	}
	return el.Value.(*cacheEntry).page, true
}

func (c *cache) put(id PageID, page Page) {
	if el, ok := c.entries[id]; ok {
		el.Value.(*cacheEntry).page = page
		c.order.MoveToFront(el)
		return
	}
	c.entries[id] = c.order.PushFront(&cacheEntry{id: id, page: page})
}

// full reports whether adding one more page would exceed the capacity.
func (c *cache) full() bool {
	return c.capacity > 0 && c.order.Len() >= c.capacity
}

// oldest returns the least recently used entry, or nil when empty.
func (c *cache) oldest() *cacheEntry {
	el := c.order.Back()
	if el == nil {
		return nil
	}
	return el.Value.(*cacheEntry)
}

func (c *cache) remove(id PageID) {
	if el, ok := c.entries[id]; ok {
		c.order.Remove(el)
		delete(c.entries, id)
	}
}

func (c *cache) len() int {
	return c.order.Len()
}

func (c *cache) clear() {
	c.entries = make(map[PageID]*list.Element)
	c.order.Init()
}
