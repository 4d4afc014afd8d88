package container

import (
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Lifetime controls how many instances of a registration the container
// creates.
type Lifetime int

const (
	// Transient builds a fresh instance on every resolution.
	Transient Lifetime = iota

	// Singleton builds one instance per container, on first resolution, and
	// reuses it afterwards.
	Singleton
)

// String returns the human-readable name of the lifetime.
func (l Lifetime) String() string {
	switch l {
	case Transient:
		return "transient"
	case Singleton:
		return "singleton"
	default:
		return "unknown"
	}
}

// InstanceCache stores realised singleton instances. Concurrent first
// requests for the same key share one call to the creating thunk, so every
// key is materialised at most once. Failed creations are not stored.
type InstanceCache struct {
	mu        sync.RWMutex
	instances map[Key]any
	group     singleflight.Group
}

// NewInstanceCache returns an empty cache.
func NewInstanceCache() *InstanceCache {
	return &InstanceCache{instances: make(map[Key]any)}
}

// Get returns the cached instance for key.
func (c *InstanceCache) Get(key Key) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	inst, ok := c.instances[key]
	return inst, ok
}

// Put stores instance under key, replacing any previous value.
func (c *InstanceCache) Put(key Key, instance any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.instances[key] = instance
}

// Forget drops the instance stored under key.
func (c *InstanceCache) Forget(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.instances, key)
}

// Len returns the number of cached instances.
func (c *InstanceCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.instances)
}

// GetOrCreate returns the instance cached under key, calling create to
// build and store it when absent. The boolean reports whether the value
// came from the cache (or from another goroutine's in-flight creation)
// rather than from this caller's thunk.
func (c *InstanceCache) GetOrCreate(key Key, create func() (any, error)) (any, bool, error) {
	if inst, ok := c.Get(key); ok {
		return inst, true, nil
	}

	created := false
	inst, err, _ := c.group.Do(flightKey(key), func() (any, error) {
		// A previous flight may have finished between Get and Do.
		if inst, ok := c.Get(key); ok {
			return inst, nil
		}
		inst, err := create()
		if err != nil {
			return nil, err
		}
		created = true
		c.Put(key, inst)
		return inst, nil
	})
	if err != nil {
		return nil, false, err
	}
	return inst, !created, nil
}

// flightKey distinguishes keys whose types print the same but live in
// different packages.
func flightKey(key Key) string {
	return fmt.Sprintf("%p/%s", key.Type, key.Name)
}
