// Package interfaces defines cache operation contracts for rendered markup.
package interfaces

import "github.com/AtRiskMedia/diagram-go/internal/infrastructure/caching/types"

// RenderCache defines operations for cached render outputs.
type RenderCache interface {
	Get(key string) (string, bool)
	Set(key, svg string)
	Invalidate(key string)
	Purge()
	Cleanup()
	Stats() types.CacheStats
}
