package reedfrost

import (
	"container/list"
	"math"
	"sync"
)

// DefaultMaxEntries bounds a cache created without WithMaxEntries. An entry is
// one stored probability, so the bound is roughly 8 bytes of payload each.
const DefaultMaxEntries = 8_000_000

// probabilityKey encodes p for cache lookups. Keys compare bit patterns, so
// two probabilities that print alike but differ in the last ulp miss each
// other. Negative zero is folded onto zero.
func probabilityKey(p float64) uint64 {
	if p == 0 {
		return 0
	}
	return math.Float64bits(p)
}

// stateKey identifies pmf(sInf | s, i) within one probability's table
type stateKey struct {
	sInf, s, i uint
}

// rowKey identifies the transition row T(., s, i) within one probability's table
type rowKey struct {
	s, i uint
}

// table holds everything computed for one value of p
type table struct {
	key  uint64
	pmf  map[stateKey]float64
	rows map[rowKey][]float64
	size int
	elem *list.Element
}

func newTable(key uint64) *table {
	return &table{
		key:  key,
		pmf:  make(map[stateKey]float64),
		rows: make(map[rowKey][]float64),
	}
}

// Cache memoizes final-size probabilities and transition rows, grouped by p.
// Tables are evicted least recently used first once the total number of
// stored probabilities exceeds the bound. A Cache may be shared by several
// engines; engines compute against private scratch space and merge here when
// a call completes, so the lock is never held across a computation.
type Cache struct {
	mu         sync.RWMutex
	tables     map[uint64]*table
	lru        *list.List
	entries    int
	maxEntries int
	hits       uint64
	misses     uint64
	evictions  uint64
}

// CacheStats reports cache occupancy and effectiveness
type CacheStats struct {
	PMFEntries        int    `json:"pmf_entries"`
	TransitionEntries int    `json:"transition_entries"`
	Probabilities     int    `json:"probabilities"`
	MaxEntries        int    `json:"max_entries"`
	Hits              uint64 `json:"hits"`
	Misses            uint64 `json:"misses"`
	Evictions         uint64 `json:"evictions"`
}

// CacheOption configures a Cache
type CacheOption func(*Cache)

// WithMaxEntries sets the bound on stored probabilities. Values below one
// keep the default.
func WithMaxEntries(n int) CacheOption {
	return func(c *Cache) {
		if n > 0 {
			c.maxEntries = n
		}
	}
}

// NewCache creates an empty cache
func NewCache(opts ...CacheOption) *Cache {
	c := &Cache{
		tables:     make(map[uint64]*table),
		lru:        list.New(),
		maxEntries: DefaultMaxEntries,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Stats returns a snapshot of the cache counters
func (c *Cache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := CacheStats{
		Probabilities: len(c.tables),
		MaxEntries:    c.maxEntries,
		Hits:          c.hits,
		Misses:        c.misses,
		Evictions:     c.evictions,
	}
	for _, t := range c.tables {
		stats.PMFEntries += len(t.pmf)
		stats.TransitionEntries += t.size - len(t.pmf)
	}
	return stats
}

// Reset drops every entry and zeroes the counters
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tables = make(map[uint64]*table)
	c.lru.Init()
	c.entries = 0
	c.hits, c.misses, c.evictions = 0, 0, 0
}

func (c *Cache) lookupPMF(p uint64, k stateKey) (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.tables[p]
	if !ok {
		return 0, false
	}
	v, ok := t.pmf[k]
	return v, ok
}

func (c *Cache) lookupRow(p uint64, k rowKey) ([]float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.tables[p]
	if !ok {
		return nil, false
	}
	row, ok := t.rows[k]
	return row, ok
}

// merge folds a finished computation into the cache, marks its table as most
// recently used and evicts until the bound holds again. A computation larger
// than the bound is counted but not stored.
func (c *Cache) merge(scratch *table, hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.hits += hits
	c.misses += misses

	t, ok := c.tables[scratch.key]
	if ok {
		c.lru.MoveToFront(t.elem)
	}
	if scratch.size == 0 || scratch.size > c.maxEntries {
		return
	}
	if !ok {
		t = newTable(scratch.key)
		t.elem = c.lru.PushFront(t)
		c.tables[scratch.key] = t
	}

	for k, v := range scratch.pmf {
		if _, ok := t.pmf[k]; !ok {
			t.pmf[k] = v
			t.size++
			c.entries++
		}
	}
	for k, row := range scratch.rows {
		if _, ok := t.rows[k]; !ok {
			t.rows[k] = row
			t.size += len(row)
			c.entries += len(row)
		}
	}

	for c.entries > c.maxEntries {
		tail := c.lru.Back()
		if tail == nil {
			break
		}
		c.evict(tail.Value.(*table))
	}
}

// evict requires c.mu to be held
func (c *Cache) evict(t *table) {
	c.lru.Remove(t.elem)
	delete(c.tables, t.key)
	c.entries -= t.size
	c.evictions++
}
