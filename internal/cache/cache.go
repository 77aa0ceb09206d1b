// Package cache provides a process-local key-value cache with introspection.
package cache

import (
	"reflect"
	"sort"
	"sync"
)

// Cache stores opaque values under namespaced string keys.
type Cache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
	Delete(key string) bool
	Clear()
	Keys() []string
	Info() Info
}

// Info describes cache occupancy. ApproxBytes sums shallow sizes of keys and values and is not exact.
type Info struct {
	NumEntries  int   `json:"num_entries"`
	ApproxBytes int64 `json:"approximate_size_bytes"`
	Hits        int64 `json:"hits"`
	Misses      int64 `json:"misses"`
}

// Sizer lets cached values report their own approximate footprint.
type Sizer interface {
	ApproxSize() int64
}

// MemoryCache is an unbounded in-memory Cache. Entries live until Delete or Clear.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]any
	hits    int64
	misses  int64
}

// NewMemoryCache creates an empty cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]any)}
}

// Get returns the value for key if present.
func (c *MemoryCache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return v, ok
}

// Set stores value under key, replacing any previous value.
func (c *MemoryCache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
}

// Delete removes key and reports whether it was present.
func (c *MemoryCache) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	delete(c.entries, key)
	return ok
}

// Clear removes all entries. Hit and miss counters are kept.
func (c *MemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]any)
}

// Keys returns all keys in sorted order.
func (c *MemoryCache) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Info returns entry count, approximate size and hit/miss counters.
func (c *MemoryCache) Info() Info {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var size int64
	for k, v := range c.entries {
		size += int64(len(k)) + approxSize(v)
	}
	return Info{
		NumEntries:  len(c.entries),
		ApproxBytes: size,
		Hits:        c.hits,
		Misses:      c.misses,
	}
}

// approxSize is a shallow estimate: the value's own size plus the backing array of
// slices and strings. Pointed-to structures are not followed unless they implement Sizer.
func approxSize(v any) int64 {
	if v == nil {
		return 0
	}
	if s, ok := v.(Sizer); ok {
		return s.ApproxSize()
	}
	rv := reflect.ValueOf(v)
	size := int64(rv.Type().Size())
	switch rv.Kind() {
	case reflect.Slice:
		size += int64(rv.Len()) * int64(rv.Type().Elem().Size())
	case reflect.String:
		size += int64(rv.Len())
	case reflect.Map:
		size += int64(rv.Len()) * int64(rv.Type().Key().Size()+rv.Type().Elem().Size())
	case reflect.Pointer:
		if !rv.IsNil() {
			size += int64(rv.Elem().Type().Size())
		}
	}
	return size
}
