// Copyright 2025 Poiesic Systems
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


package search

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/poiesic/corpora/core"
)

const (
	// DefaultCacheEntries bounds the cache by entry count.
	DefaultCacheEntries = 1024

	// DefaultCacheTTL is how long a cached page stays valid when no
	// document mutation invalidates it first.
	DefaultCacheTTL = 5 * time.Minute
)

// Cache stores ranked result pages keyed by normalized query, filters,
// and page. A generation counter is folded into every key; bumping it
// on document mutation orphans all prior entries at once, and TTL
// expiry reclaims them.
type Cache struct {
	cache      *ristretto.Cache[uint64, *core.RankedResults]
	ttl        time.Duration
	generation atomic.Uint64
}

// NewCache creates a result cache holding at most maxEntries pages,
// each valid for ttl. Zero values fall back to the defaults.
func NewCache(maxEntries int64, ttl time.Duration) (*Cache, error) {
	if maxEntries <= 0 {
		maxEntries = DefaultCacheEntries
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}

	// Every entry costs 1, so MaxCost is an entry count.
	inner, err := ristretto.NewCache(&ristretto.Config[uint64, *core.RankedResults]{
		NumCounters:        maxEntries * 10,
		MaxCost:            maxEntries,
		BufferItems:        64,
		Metrics:            true,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("creating result cache: %w", err)
	}

	return &Cache{cache: inner, ttl: ttl}, nil
}

// key derives the cache key for a query. The generation counter is part
// of the keyed material, so stale generations can never collide with
// live ones. Every variable-length field is length-prefixed so field
// contents can never alias a neighboring field.
func (c *Cache) key(query string, filters core.SearchFilters, page, pageSize int) uint64 {
	var buf bytes.Buffer

	writeField := func(s string) {
		fmt.Fprintf(&buf, "%d:%s", len(s), s)
	}

	fmt.Fprintf(&buf, "%d:", c.generation.Load())
	writeField(strings.ToLower(strings.TrimSpace(query)))

	// Canonical filter encoding: tags sorted case-insensitively so
	// equivalent filter sets share a key.
	tags := make([]string, len(filters.Tags))
	for i, tag := range filters.Tags {
		tags[i] = strings.ToLower(tag)
	}
	sort.Strings(tags)
	fmt.Fprintf(&buf, "%d:", len(tags))
	for _, tag := range tags {
		writeField(tag)
	}
	writeField(filters.Author)
	writeField(filters.Language)

	types := make([]string, len(filters.Types))
	for i, dt := range filters.Types {
		types[i] = string(dt)
	}
	sort.Strings(types)
	fmt.Fprintf(&buf, "%d:", len(types))
	for _, dt := range types {
		writeField(dt)
	}
	fmt.Fprintf(&buf, "%d:%d:%d:%d",
		filters.After.UnixNano(), filters.Before.UnixNano(), page, pageSize)

	return core.CacheKey(buf.Bytes())
}

// Get returns the cached page for the query, if present and current.
func (c *Cache) Get(query string, filters core.SearchFilters, page, pageSize int) (*core.RankedResults, bool) {
	return c.cache.Get(c.key(query, filters, page, pageSize))
}

// Put stores a page. Waits for the write to become visible so a
// back-to-back Get observes it.
func (c *Cache) Put(query string, filters core.SearchFilters, page, pageSize int, results *core.RankedResults) {
	c.cache.SetWithTTL(c.key(query, filters, page, pageSize), results, 1, c.ttl)
	c.cache.Wait()
}

// Invalidate orphans every cached page. Called after any document
// mutation that could change search results.
func (c *Cache) Invalidate() {
	c.generation.Add(1)
}

// Metrics returns the cumulative hit and miss counts.
func (c *Cache) Metrics() (hits, misses uint64) {
	return c.cache.Metrics.Hits(), c.cache.Metrics.Misses()
}

// Close releases the cache's resources.
func (c *Cache) Close() {
	c.cache.Close()
}
