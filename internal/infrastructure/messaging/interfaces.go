// Package messaging defines interfaces for real-time communication.
package messaging

import "github.com/AtRiskMedia/diagram-go/internal/domain/entities/diagram"

// Broadcaster manages per-widget client connections and pushes lifecycle
// snapshots to them on every transition.
type Broadcaster interface {
	AddClient(widgetID string) chan string
	RemoveClient(ch chan string, widgetID string)
	ConnectionCount(widgetID string) int
	PublishTransition(snap diagram.Snapshot)
	CloseWidget(widgetID string)
}
