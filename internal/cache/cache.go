// Copyright (c) 2025 Thomas Phan
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cache provides exact-match response caching for the proxy.
// Identical (message, model) submissions replay the stored completion
// instead of calling the upstream API again.
package cache

import (
	"sync"
	"time"
)

// =============================================================================
// RESPONSE CACHE
// =============================================================================

// ResponseCache stores completed responses keyed by the exact message
// text and resolved model ID. Entries are evicted least-recently-used
// once maxEntries is reached.
type ResponseCache struct {
	mu          sync.RWMutex
	cache       map[string]*Entry
	maxEntries  int
	accessOrder []string // For LRU eviction

	// Statistics
	hits   int
	misses int
}

// Entry represents one cached completion.
type Entry struct {
	Body         string
	InputTokens  int
	OutputTokens int
	CostUSD      float64
	CachedAt     time.Time
	AccessedAt   time.Time
}

// Stats holds cache statistics.
type Stats struct {
	Hits       int
	Misses     int
	EntryCount int
	HitRate    float64
}

// New creates a response cache.
// maxEntries: maximum number of cached responses (default: 1024)
func New(maxEntries int) *ResponseCache {
	if maxEntries <= 0 {
		maxEntries = 1024
	}
	return &ResponseCache{
		cache:       make(map[string]*Entry),
		maxEntries:  maxEntries,
		accessOrder: make([]string, 0, maxEntries),
	}
}

// key builds the lookup key. The message text participates verbatim;
// a one-character difference is a different entry.
func key(message, modelID string) string {
	return modelID + "\x00" + message
}

// Get retrieves a cached response for the exact (message, model) pair.
// Returns the entry and whether it was a cache hit.
func (rc *ResponseCache) Get(message, modelID string) (*Entry, bool) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	k := key(message, modelID)
	entry, ok := rc.cache[k]
	if !ok {
		rc.misses++
		return nil, false
	}

	entry.AccessedAt = time.Now()
	rc.updateAccessOrderLocked(k)
	rc.hits++

	return entry, true
}

// Put stores a completed response.
func (rc *ResponseCache) Put(message, modelID, body string, inputTokens, outputTokens int, costUSD float64) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	k := key(message, modelID)

	for len(rc.cache) >= rc.maxEntries {
		if _, exists := rc.cache[k]; exists {
			break // Updating in place, no growth
		}
		if len(rc.accessOrder) == 0 {
			break
		}
		oldest := rc.accessOrder[0]
		rc.removeEntryLocked(oldest)
	}

	now := time.Now()
	rc.cache[k] = &Entry{
		Body:         body,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		CostUSD:      costUSD,
		CachedAt:     now,
		AccessedAt:   now,
	}
	rc.updateAccessOrderLocked(k)
}

// Clear removes all entries. Statistics are kept.
func (rc *ResponseCache) Clear() {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	rc.cache = make(map[string]*Entry)
	rc.accessOrder = make([]string, 0, rc.maxEntries)
}

// Stats returns cache statistics.
func (rc *ResponseCache) Stats() Stats {
	rc.mu.RLock()
	defer rc.mu.RUnlock()

	hitRate := 0.0
	total := rc.hits + rc.misses
	if total > 0 {
		hitRate = float64(rc.hits) / float64(total)
	}

	return Stats{
		Hits:       rc.hits,
		Misses:     rc.misses,
		EntryCount: len(rc.cache),
		HitRate:    hitRate,
	}
}

// removeEntryLocked removes an entry (must hold lock).
func (rc *ResponseCache) removeEntryLocked(k string) {
	if _, ok := rc.cache[k]; !ok {
		return
	}
	delete(rc.cache, k)

	for i, p := range rc.accessOrder {
		if p == k {
			rc.accessOrder = append(rc.accessOrder[:i], rc.accessOrder[i+1:]...)
			break
		}
	}
}

// updateAccessOrderLocked updates LRU order (must hold lock).
func (rc *ResponseCache) updateAccessOrderLocked(k string) {
	for i, p := range rc.accessOrder {
		if p == k {
			rc.accessOrder = append(rc.accessOrder[:i], rc.accessOrder[i+1:]...)
			break
		}
	}
	rc.accessOrder = append(rc.accessOrder, k)
}
