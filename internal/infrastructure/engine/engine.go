// Package engine provides acquisition and client plumbing for the external
// diagram rendering engine. The engine itself is an opaque black box: this
// package only knows how to find one (or fetch one) and how to talk to it.
package engine

import (
	"context"

	"github.com/AtRiskMedia/diagram-go/internal/domain/entities/diagram"
)

// Engine is the contract every rendering engine client satisfies.
// Configure accepts idempotent options and may be called once per widget
// instance; Render submits one attempt and returns the serialized markup.
type Engine interface {
	Configure(ctx context.Context, opts diagram.EngineOptions) error
	Render(ctx context.Context, req diagram.RenderRequest) (string, error)
}

// Acquisition strategies, in the order the loader tries them.
const (
	StrategyMemoized = "memoized" // handle already acquired in this process
	StrategyAdopted  = "adopted"  // host environment exposed a ready engine
	StrategyFetched  = "fetched"  // engine bundle fetched from the remote source
)

// Handle is the process-wide shared reference to the loaded engine.
// Once non-nil it is never replaced and lives for the process lifetime.
type Handle struct {
	Engine   Engine
	Strategy string
}
