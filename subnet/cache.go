// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package subnet

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultCacheTTL is how long node keys are trusted before they are refetched
const DefaultCacheTTL = 5 * time.Minute

type cacheEntry struct {
	keys    *NodeKeys
	expires time.Time
}

// Cache maps canister ids to the node keys of their subnet. Entries expire a
// fixed time after they are stored. Entries are replaced whole and never
// modified in place, so readers never see a partial entry
type Cache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	ttl     time.Duration
	clock   func() time.Time
	logger  *slog.Logger
}

// CacheOptionFunc is a type that represents functions that modify the Cache config
type CacheOptionFunc func(*Cache)

// WithTTL specifies the lifetime of cache entries
func WithTTL(ttl time.Duration) CacheOptionFunc {
	return func(c *Cache) {
		c.ttl = ttl
	}
}

// WithClock specifies the time source used for expiry
func WithClock(clock func() time.Time) CacheOptionFunc {
	return func(c *Cache) {
		c.clock = clock
	}
}

// WithLogger specifies the logger for cache events
func WithLogger(logger *slog.Logger) CacheOptionFunc {
	return func(c *Cache) {
		c.logger = logger
	}
}

// NewCache returns an empty cache
func NewCache(opts ...CacheOptionFunc) *Cache {
	c := &Cache{
		entries: make(map[string]cacheEntry),
		ttl:     DefaultCacheTTL,
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Get returns the live entry for a canister. Expired entries are removed
func (c *Cache) Get(canisterId string) (*NodeKeys, bool) {
	c.mu.RLock()
	entry, ok := c.entries[canisterId]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if !c.clock().Before(entry.expires) {
		c.mu.Lock()
		// Only remove the entry we saw, not one stored concurrently
		if cur, ok := c.entries[canisterId]; ok && cur.expires.Equal(entry.expires) {
			delete(c.entries, canisterId)
		}
		c.mu.Unlock()
		c.logger.Debug(
			"node key cache entry expired",
			"canister_id", canisterId,
		)
		return nil, false
	}
	return entry.keys, true
}

// Set stores the node keys for a canister, replacing any existing entry
func (c *Cache) Set(canisterId string, keys *NodeKeys) {
	c.mu.Lock()
	c.entries[canisterId] = cacheEntry{
		keys:    keys,
		expires: c.clock().Add(c.ttl),
	}
	c.mu.Unlock()
	c.logger.Debug(
		"node key cache entry stored",
		"canister_id", canisterId,
		"subnet_id", keys.SubnetId,
		"nodes", len(keys.NodeKeys),
	)
}

// Delete evicts the entry for a canister
func (c *Cache) Delete(canisterId string) {
	c.mu.Lock()
	_, ok := c.entries[canisterId]
	delete(c.entries, canisterId)
	c.mu.Unlock()
	if ok {
		c.logger.Debug(
			"node key cache entry evicted",
			"canister_id", canisterId,
		)
	}
}

// Len returns the number of stored entries, including any that have expired but not yet been removed
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// GetOrFetch returns the cached entry, or calls fetch and stores its result.
// Concurrent misses may each call fetch; the last result stored wins
func (c *Cache) GetOrFetch(
	ctx context.Context,
	canisterId string,
	fetch func(context.Context) (*NodeKeys, error),
) (*NodeKeys, error) {
	if keys, ok := c.Get(canisterId); ok {
		return keys, nil
	}
	keys, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	// Nothing is stored for a cancelled caller
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.Set(canisterId, keys)
	return keys, nil
}
