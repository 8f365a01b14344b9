// Package manager provides the cache manager facade over the concrete stores.
package manager

import (
	"context"
	"time"

	"github.com/AtRiskMedia/diagram-go/internal/infrastructure/caching/interfaces"
	"github.com/AtRiskMedia/diagram-go/internal/infrastructure/caching/stores"
	"github.com/AtRiskMedia/diagram-go/internal/infrastructure/caching/types"
	"github.com/AtRiskMedia/diagram-go/internal/infrastructure/observability/logging"
)

// Manager owns the cache stores and runs the periodic cleanup loop.
type Manager struct {
	renders *stores.RendersStore
	logger  *logging.ChanneledLogger
}

// compile-time contract check
var _ interfaces.RenderCache = (*Manager)(nil)

// NewManager creates a cache manager with a render store using the given TTL.
func NewManager(renderTTL time.Duration, logger *logging.ChanneledLogger) *Manager {
	return &Manager{
		renders: stores.NewRendersStore(renderTTL),
		logger:  logger,
	}
}

// Get retrieves cached markup for a render key.
func (m *Manager) Get(key string) (string, bool) {
	start := time.Now()
	svg, hit := m.renders.Get(key)
	m.logger.LogCacheOperation("get", key, hit, time.Since(start))
	return svg, hit
}

// Set stores markup for a render key.
func (m *Manager) Set(key, svg string) {
	m.renders.Set(key, svg)
}

// Invalidate removes one cached render.
func (m *Manager) Invalidate(key string) {
	m.renders.Invalidate(key)
}

// Purge empties the render cache.
func (m *Manager) Purge() {
	m.renders.Purge()
	m.logger.Cache().Info("Render cache purged")
}

// Cleanup removes expired entries.
func (m *Manager) Cleanup() {
	m.renders.Cleanup()
}

// Stats summarizes cache usage.
func (m *Manager) Stats() types.CacheStats {
	return m.renders.Stats()
}

// StartCleanupWorker runs Cleanup on the given interval until ctx is done.
func (m *Manager) StartCleanupWorker(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.logger.Cache().Info("Cache cleanup worker started", "interval", interval)
	for {
		select {
		case <-ctx.Done():
			m.logger.Cache().Info("Cache cleanup worker stopped")
			return
		case <-ticker.C:
			start := time.Now()
			before := m.renders.Stats().Entries
			m.Cleanup()
			after := m.renders.Stats().Entries
			if before != after {
				m.logger.Cache().Debug("Cache cleanup pass completed",
					"removed", before-after, "remaining", after, "duration", time.Since(start))
			}
		}
	}
}
