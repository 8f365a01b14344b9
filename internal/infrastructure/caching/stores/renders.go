// Package stores provides concrete cache store implementations
package stores

import (
	"sync"
	"time"

	"github.com/AtRiskMedia/diagram-go/internal/infrastructure/caching/types"
)

// RendersStore implements render output caching with TTL expiry.
type RendersStore struct {
	chunks    map[string]*types.RenderChunk
	ttl       time.Duration
	mu        sync.RWMutex
	hits      int64
	misses    int64
	evictions int64
}

// NewRendersStore creates a new render cache store with the given TTL.
func NewRendersStore(ttl time.Duration) *RendersStore {
	return &RendersStore{
		chunks: make(map[string]*types.RenderChunk),
		ttl:    ttl,
	}
}

// Get retrieves cached markup; expired entries count as misses.
func (rs *RendersStore) Get(key string) (string, bool) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	chunk, exists := rs.chunks[key]
	if !exists {
		rs.misses++
		return "", false
	}

	if time.Since(chunk.LastUpdated) > rs.ttl {
		delete(rs.chunks, key)
		rs.evictions++
		rs.misses++
		return "", false
	}

	chunk.Hits++
	rs.hits++
	return chunk.SVG, true
}

// Set stores markup under key, refreshing its TTL.
func (rs *RendersStore) Set(key, svg string) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	rs.chunks[key] = &types.RenderChunk{
		Key:         key,
		SVG:         svg,
		LastUpdated: time.Now(),
	}
}

// Invalidate removes one entry.
func (rs *RendersStore) Invalidate(key string) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	delete(rs.chunks, key)
}

// Purge removes all entries.
func (rs *RendersStore) Purge() {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.chunks = make(map[string]*types.RenderChunk)
}

// Cleanup removes expired entries; called periodically by the cleanup worker.
func (rs *RendersStore) Cleanup() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	for key, chunk := range rs.chunks {
		if time.Since(chunk.LastUpdated) > rs.ttl {
			delete(rs.chunks, key)
			rs.evictions++
		}
	}
}

// Stats summarizes current cache usage.
func (rs *RendersStore) Stats() types.CacheStats {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	var size int64
	for _, chunk := range rs.chunks {
		size += int64(len(chunk.SVG))
	}

	return types.CacheStats{
		Entries:   len(rs.chunks),
		Hits:      rs.hits,
		Misses:    rs.misses,
		Evictions: rs.evictions,
		SizeBytes: size,
	}
}
