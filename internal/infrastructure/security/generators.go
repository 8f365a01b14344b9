// Package security provides secure random generation utilities
package security

import (
	"fmt"

	"github.com/oklog/ulid/v2"
)

// GenerateULID generates a new ULID string.
func GenerateULID() string {
	return ulid.Make().String()
}

// GenerateRenderID generates a process-unique identifier for one render
// attempt. ULIDs embed a millisecond timestamp plus 80 bits of randomness,
// so collisions inside the engine's internal bookkeeping are not possible.
func GenerateRenderID() string {
	return fmt.Sprintf("dgrm-%s", ulid.Make().String())
}
