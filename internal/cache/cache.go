// Package cache holds report payloads in memory for a short time so the
// dashboard does not hit the database on every refresh.
package cache

import (
	"errors"
	"sync"
	"time"
)

// ErrCacheMiss is returned by Lookup when a key is absent or too old
var ErrCacheMiss = errors.New("cache miss")

// Clock tells the cache what time it is.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time { return time.Now() }

// entry is a stored payload and the time it was stored
type entry struct {
	payload  any
	storedAt time.Time
}

// Cache maps keys to payloads. It does not know about TTLs: every reader
// passes the maximum age it is willing to accept.
//
// Entries are never evicted; a stale entry is simply overwritten by the next
// Set for the same key.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	clock   Clock
}

// New creates an empty cache. A nil clock means the system clock.
func New(clock Clock) *Cache {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Cache{
		entries: make(map[string]entry),
		clock:   clock,
	}
}

// Get returns the payload stored under key if it is at most ttl old.
func (c *Cache) Get(key string, ttl time.Duration) (any, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if c.clock.Now().Sub(e.storedAt) > ttl {
		return nil, false
	}
	return e.payload, true
}

// Lookup is Get with an error instead of a bool.
func (c *Cache) Lookup(key string, ttl time.Duration) (any, error) {
	v, ok := c.Get(key, ttl)
	if !ok {
		return nil, ErrCacheMiss
	}
	return v, nil
}

// Set stores payload under key, stamped with the current time
func (c *Cache) Set(key string, payload any) {
	now := c.clock.Now()

	c.mu.Lock()
	c.entries[key] = entry{payload: payload, storedAt: now}
	c.mu.Unlock()
}

// Len reports how many keys have been stored, stale ones included.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
