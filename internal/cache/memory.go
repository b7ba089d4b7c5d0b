package cache

import (
	"context"
	"sync"
)

// MemoryStore keeps entries in a map for the lifetime of the process.
// Entries never expire.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items: make(map[string][]byte),
	}
}

// Exists reports whether key has an entry.
func (c *MemoryStore) Exists(_ context.Context, key string) (bool, error) {
	c.mu.RLock()
	_, ok := c.items[key]
	c.mu.RUnlock()
	return ok, nil
}

//get retrieves value from store

func (c *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.RLock()
	value, ok := c.items[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}

	out := make([]byte, len(value))
	copy(out, value)
	return out, true, nil
}

// Set stores value under key, replacing any previous entry.
func (c *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	// Copy to decouple from caller's buffer
	valueCopy := make([]byte, len(value))
	copy(valueCopy, value)

	c.mu.Lock()
	c.items[key] = valueCopy
	c.mu.Unlock()

	return nil
}

// Len returns the number of items currently in the store.
func (c *MemoryStore) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Clear removes all items from store. Useful for tests or manual resets.
func (c *MemoryStore) Clear() {
	c.mu.Lock()
	c.items = make(map[string][]byte)
	c.mu.Unlock()
}
