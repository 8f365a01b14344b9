// Package messaging provides the concrete implementation of the SSE broadcaster.
package messaging

import (
	"encoding/json"
	"sync"

	"github.com/AtRiskMedia/diagram-go/internal/domain/entities/diagram"
	"github.com/AtRiskMedia/diagram-go/internal/infrastructure/observability/logging"
)

// SSEBroadcaster manages widget-scoped SSE and websocket connections.
// Every lifecycle transition of a widget is pushed to that widget's clients.
type SSEBroadcaster struct {
	widgetClients map[string][]chan string // widgetId -> []channels
	mu            sync.Mutex
	logger        *logging.ChanneledLogger
}

var (
	globalBroadcaster *SSEBroadcaster
	once              sync.Once
)

// NewSSEBroadcaster creates the singleton SSEBroadcaster instance.
func NewSSEBroadcaster(logger *logging.ChanneledLogger) *SSEBroadcaster {
	once.Do(func() {
		globalBroadcaster = &SSEBroadcaster{
			widgetClients: make(map[string][]chan string),
			logger:        logger,
		}
	})
	return globalBroadcaster
}

// AddClient registers a new client listening for one widget's transitions.
func (b *SSEBroadcaster) AddClient(widgetID string) chan string {
	ch := make(chan string, 10)

	b.mu.Lock()
	defer b.mu.Unlock()

	b.widgetClients[widgetID] = append(b.widgetClients[widgetID], ch)

	b.logger.SSE().Debug("Stream client registered", "widgetId", widgetID)
	return ch
}

// RemoveClient removes a client from a widget's connection list.
func (b *SSEBroadcaster) RemoveClient(ch chan string, widgetID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	clients, exists := b.widgetClients[widgetID]
	if !exists {
		return
	}

	newClients := make([]chan string, 0, len(clients))
	for _, client := range clients {
		if client != ch {
			newClients = append(newClients, client)
		}
	}

	if len(newClients) == 0 {
		delete(b.widgetClients, widgetID)
	} else {
		b.widgetClients[widgetID] = newClients
	}
	b.logger.SSE().Debug("Stream client unregistered", "widgetId", widgetID)
}

// ConnectionCount returns the number of clients watching a widget.
func (b *SSEBroadcaster) ConnectionCount(widgetID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.widgetClients[widgetID])
}

// PublishTransition pushes a lifecycle snapshot to the widget's clients.
// Slow clients are skipped rather than blocking the transition.
func (b *SSEBroadcaster) PublishTransition(snap diagram.Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.SSE().Error("Panic recovered in PublishTransition", "error", r, "widgetId", snap.WidgetID)
		}
	}()

	payload, err := json.Marshal(snap)
	if err != nil {
		b.logger.SSE().Error("Failed to marshal snapshot", "error", err.Error(), "widgetId", snap.WidgetID)
		return
	}
	message := string(payload)

	b.mu.Lock()
	clients := append([]chan string(nil), b.widgetClients[snap.WidgetID]...)
	b.mu.Unlock()

	for _, client := range clients {
		select {
		case client <- message:
		default:
		}
	}

	b.logger.SSE().Debug("Transition broadcast",
		"widgetId", snap.WidgetID, "phase", string(snap.Phase), "clients", len(clients))
}

// CloseWidget drops and closes all connections for an unmounted widget.
func (b *SSEBroadcaster) CloseWidget(widgetID string) {
	b.mu.Lock()
	clients := b.widgetClients[widgetID]
	delete(b.widgetClients, widgetID)
	b.mu.Unlock()

	for _, client := range clients {
		close(client)
	}
	if len(clients) > 0 {
		b.logger.SSE().Debug("Widget stream closed", "widgetId", widgetID, "clients", len(clients))
	}
}
