// Package diagram provides domain entities for diagram widget lifecycle state.
// It defines the phase machine vocabulary, render attempt types, and the
// error records surfaced to the presentation layer.
package diagram

// Phase represents the current lifecycle phase of a widget instance.
// Exactly one phase is current at any time per instance.
type Phase string

const (
	PhaseUninitialized Phase = "uninitialized" // Widget created, not yet mounted
	PhaseInitializing  Phase = "initializing"  // Engine acquisition and configuration in progress
	PhaseReady         Phase = "ready"         // Engine configured, waiting for renderable input
	PhaseRendering     Phase = "rendering"     // A render attempt is in flight
	PhaseRendered      Phase = "rendered"      // Latest render attempt succeeded
	PhaseFailed        Phase = "failed"        // Latest attempt (init or render) failed
)

// String returns the phase name.
func (p Phase) String() string {
	return string(p)
}

// IsTerminal reports whether the phase permits no further render cycles.
// Failures during initialization (loader or configuration) are terminal
// until remount; render failures are retried on the next distinct input.
func (p Phase) IsTerminal(errKind ErrorKind) bool {
	return p == PhaseFailed && errKind != ErrRenderFailed
}
