// Copyright 2026 The Clubly Authors
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

package tenant

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// DirectoryEntry is one cached domain→tenant mapping.
type DirectoryEntry struct {
	TenantID   string
	TenantName string
}

// DirectoryCache is an in-memory TTL cache of domain→tenant mappings.
// Entries expire a fixed TTL after insertion, not after last access, so a
// stale mapping can never be kept alive by traffic. Confirmed-absent
// hostnames are not cached: newly registered domains must become visible
// as soon as the store has them.
//
// The cache is a disposable projection of store state; Invalidate with no
// arguments drops everything and the next resolution rebuilds it.
type DirectoryCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	ttl     time.Duration
	clock   clock.Clock
}

type cacheEntry struct {
	value     DirectoryEntry
	expiresAt time.Time
}

// NewDirectoryCache creates a cache with the given entry TTL.
func NewDirectoryCache(ttl time.Duration, clk clock.Clock) *DirectoryCache {
	if clk == nil {
		clk = clock.New()
	}
	return &DirectoryCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		clock:   clk,
	}
}

// Lookup returns the cached entry for a hostname. A miss (or an expired
// entry) is not an error; it means fall through to the store.
func (c *DirectoryCache) Lookup(hostname string) (DirectoryEntry, bool) {
	c.mu.RLock()
	entry, ok := c.entries[hostname]
	c.mu.RUnlock()

	if !ok {
		return DirectoryEntry{}, false
	}
	if c.clock.Now().After(entry.expiresAt) {
		// Expired entries are dropped lazily on read.
		c.mu.Lock()
		if cur, still := c.entries[hostname]; still && cur.expiresAt.Equal(entry.expiresAt) {
			delete(c.entries, hostname)
		}
		c.mu.Unlock()
		return DirectoryEntry{}, false
	}
	return entry.value, true
}

// Put stores a mapping, expiring TTL from now.
func (c *DirectoryCache) Put(hostname string, entry DirectoryEntry) {
	c.mu.Lock()
	c.entries[hostname] = cacheEntry{
		value:     entry,
		expiresAt: c.clock.Now().Add(c.ttl),
	}
	c.mu.Unlock()
}

// Invalidate removes the given hostnames from the cache. With no
// arguments it clears the whole cache.
func (c *DirectoryCache) Invalidate(hostnames ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(hostnames) == 0 {
		c.entries = make(map[string]cacheEntry)
		return
	}
	for _, h := range hostnames {
		delete(c.entries, h)
	}
}

// Len returns the number of entries currently held, expired or not.
func (c *DirectoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
