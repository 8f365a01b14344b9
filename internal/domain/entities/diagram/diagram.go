package diagram

import (
	"strings"
	"time"
)

// ErrorKind classifies a lifecycle failure for the presentation layer.
type ErrorKind string

const (
	ErrEngineUnavailable ErrorKind = "engine_unavailable"  // No acquisition strategy produced a usable engine
	ErrEngineFetchFailed ErrorKind = "engine_fetch_failed" // The remote engine bundle fetch errored
	ErrEngineInitFailed  ErrorKind = "engine_init_failed"  // Engine acquired but configuration raised
	ErrRenderFailed      ErrorKind = "render_failed"       // A specific render attempt raised or returned no usable output
)

// ErrorRecord captures a lifecycle failure with enough context for a
// diagnostic view. For render failures, Input holds the exact diagram text
// that caused the failure.
type ErrorRecord struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	Input   string    `json:"input,omitempty"`
}

// RenderRequest is one render attempt submitted to the engine. The ID must
// be unique within the process; a collision would corrupt the engine's
// internal bookkeeping.
type RenderRequest struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// RenderOutput is the serialized markup produced by one successful attempt.
type RenderOutput struct {
	SVG        string    `json:"svg"`
	RequestID  string    `json:"requestId"`
	RenderedAt time.Time `json:"renderedAt"`
}

// Snapshot is the read-only view of a widget instance published to the
// presentation layer on every transition.
type Snapshot struct {
	WidgetID string       `json:"widgetId"`
	Phase    Phase        `json:"phase"`
	Output   string       `json:"output,omitempty"`
	Error    *ErrorRecord `json:"error,omitempty"`
}

// IsBlank reports whether a diagram input is empty after trimming
// whitespace. Blank input never triggers a render cycle.
func IsBlank(input string) bool {
	return strings.TrimSpace(input) == ""
}
