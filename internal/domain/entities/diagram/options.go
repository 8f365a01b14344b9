package diagram

import "errors"

// EngineOptions are the idempotent configuration options applied to the
// engine exactly once per widget instance.
type EngineOptions struct {
	Theme         string `json:"theme"`
	FontFamily    string `json:"fontFamily"`
	SecurityLevel string `json:"securityLevel"` // restricts unsafe embedded markup
	LogLevel      int    `json:"logLevel"`
}

// Acquisition sentinels. The engine loader wraps these so the lifecycle
// controller can classify failures without knowing acquisition internals.
var (
	// ErrEngineUnavailableSentinel means no acquisition strategy produced a
	// usable engine: headless context, or the expected symbol never
	// appeared after a completed fetch.
	ErrEngineUnavailableSentinel = errors.New("engine unavailable")

	// ErrEngineFetchFailedSentinel means the remote engine bundle fetch
	// itself errored (network failure or malformed resource).
	ErrEngineFetchFailedSentinel = errors.New("engine fetch failed")
)

// ClassifyAcquisitionError maps an acquisition error to its ErrorKind.
func ClassifyAcquisitionError(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrEngineFetchFailedSentinel):
		return ErrEngineFetchFailed
	default:
		return ErrEngineUnavailable
	}
}
