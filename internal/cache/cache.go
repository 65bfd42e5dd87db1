// Package cache holds the bounded, insertion-ordered result store.
package cache

import (
	"container/list"
	"errors"
	"fmt"
	"sort"
	"sync"

	"token-radar/internal/domain"
)

var (
	// ErrNotFound is returned when an address is not in the cache.
	ErrNotFound = errors.New("not found")

	// ErrInvalidCapacity is returned by New for a capacity below 1.
	ErrInvalidCapacity = errors.New("invalid capacity")
)

// FIFO is an in-memory map of address to AnalyzedToken with a fixed capacity.
// When full, the oldest inserted entry is evicted. Replacing an existing key
// keeps its original position.
type FIFO struct {
	mu       sync.RWMutex
	capacity int
	order    *list.List               // front = oldest; values are addresses
	data     map[string]*list.Element // keyed by address
	tokens   map[string]domain.AnalyzedToken
}

// New creates a cache holding at most capacity entries.
func New(capacity int) (*FIFO, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCapacity, capacity)
	}
	return &FIFO{
		capacity: capacity,
		order:    list.New(),
		data:     make(map[string]*list.Element, capacity),
		tokens:   make(map[string]domain.AnalyzedToken, capacity),
	}, nil
}

// Put inserts or replaces a token. If a new key pushes the size over capacity,
// the oldest entry is removed and its address returned with evicted=true.
func (c *FIFO) Put(t domain.AnalyzedToken) (evictedAddress string, evicted bool) {
	stored := t.Clone()

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.data[t.Address]; exists {
		c.tokens[t.Address] = stored
		return "", false
	}

	if c.order.Len() >= c.capacity {
		oldest := c.order.Front()
		addr := oldest.Value.(string)
		c.order.Remove(oldest)
		delete(c.data, addr)
		delete(c.tokens, addr)
		evictedAddress, evicted = addr, true
	}

	c.data[t.Address] = c.order.PushBack(t.Address)
	c.tokens[t.Address] = stored
	return evictedAddress, evicted
}

// Get returns a copy of the token for address. Returns ErrNotFound if absent.
func (c *FIFO) Get(address string) (domain.AnalyzedToken, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	t, ok := c.tokens[address]
	if !ok {
		return domain.AnalyzedToken{}, ErrNotFound
	}
	return t.Clone(), nil
}

// List returns a snapshot of all entries sorted by score descending.
// Equal scores keep insertion order.
func (c *FIFO) List() []domain.AnalyzedToken {
	c.mu.RLock()
	result := make([]domain.AnalyzedToken, 0, c.order.Len())
	for e := c.order.Front(); e != nil; e = e.Next() {
		result = append(result, c.tokens[e.Value.(string)].Clone())
	}
	c.mu.RUnlock()

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Score > result[j].Score
	})
	return result
}

// Len returns the number of entries.
func (c *FIFO) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.order.Len()
}

// Capacity returns the configured capacity.
func (c *FIFO) Capacity() int {
	return c.capacity
}
