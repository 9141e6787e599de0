package cache

import (
	gocache "github.com/patrickmn/go-cache"
)

// Memory is a typed in-process map that lives for one run
type Memory[V any] struct {
	cache *gocache.Cache
}

// NewMemory creates an empty memo whose entries never expire
func NewMemory[V any]() *Memory[V] {
	return &Memory[V]{
		cache: gocache.New(gocache.NoExpiration, 0),
	}
}

// Get retrieves a value from the memo
func (m *Memory[V]) Get(key string) (V, bool) {
	if val, found := m.cache.Get(key); found {
		return val.(V), true
	}
	var zero V
	return zero, false
}

// Add stores a value only if key is free. It reports whether it did.
func (m *Memory[V]) Add(key string, value V) bool {
	return m.cache.Add(key, value, gocache.NoExpiration) == nil
}

// Len returns the number of stored entries
func (m *Memory[V]) Len() int {
	return m.cache.ItemCount()
}
