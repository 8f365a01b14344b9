package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/AtRiskMedia/diagram-go/internal/application/services"
	"github.com/AtRiskMedia/diagram-go/internal/infrastructure/messaging"
	"github.com/AtRiskMedia/diagram-go/internal/infrastructure/observability/logging"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// StreamHandlers serves live lifecycle transitions to host pages over SSE
// and websocket.
type StreamHandlers struct {
	widgetService *services.WidgetService
	broadcaster   messaging.Broadcaster
	logger        *logging.ChanneledLogger
	upgrader      websocket.Upgrader
}

// NewStreamHandlers creates stream handlers with injected dependencies
func NewStreamHandlers(widgetService *services.WidgetService, broadcaster messaging.Broadcaster, logger *logging.ChanneledLogger) *StreamHandlers {
	return &StreamHandlers{
		widgetService: widgetService,
		broadcaster:   broadcaster,
		logger:        logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Origin filtering is handled by the CORS middleware.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// GetStream handles GET /api/v1/widgets/:id/stream - SSE phase transitions
func (h *StreamHandlers) GetStream(c *gin.Context) {
	widgetID := c.Param("id")
	ctrl, ok := h.widgetService.Get(widgetID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "widget not found"})
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	ch := h.broadcaster.AddClient(widgetID)
	defer h.broadcaster.RemoveClient(ch, widgetID)

	// The client starts from the current state, then receives transitions.
	if initial, err := json.Marshal(ctrl.Snapshot()); err == nil {
		fmt.Fprintf(c.Writer, "data: %s\n\n", initial)
		c.Writer.Flush()
	}

	c.Stream(func(w io.Writer) bool {
		select {
		case message, open := <-ch:
			if !open {
				return false
			}
			fmt.Fprintf(w, "data: %s\n\n", message)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

// GetWS handles GET /api/v1/widgets/:id/ws - websocket phase transitions
func (h *StreamHandlers) GetWS(c *gin.Context) {
	widgetID := c.Param("id")
	ctrl, ok := h.widgetService.Get(widgetID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "widget not found"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.SSE().Error("Websocket upgrade failed", "error", err.Error(), "widgetId", widgetID)
		return
	}
	defer conn.Close()

	ch := h.broadcaster.AddClient(widgetID)
	defer h.broadcaster.RemoveClient(ch, widgetID)

	if initial, err := json.Marshal(ctrl.Snapshot()); err == nil {
		if err := conn.WriteMessage(websocket.TextMessage, initial); err != nil {
			return
		}
	}

	// Reader goroutine: the host page never sends payloads, but reading is
	// required to observe close frames.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case message, open := <-ch:
			if !open {
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "widget unmounted"))
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, []byte(message)); err != nil {
				return
			}
		case <-done:
			return
		case <-c.Request.Context().Done():
			return
		}
	}
}
