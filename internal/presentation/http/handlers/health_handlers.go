package handlers

import (
	"net/http"
	"time"

	"github.com/AtRiskMedia/diagram-go/internal/application/services"
	"github.com/AtRiskMedia/diagram-go/internal/infrastructure/engine"
	"github.com/gin-gonic/gin"
)

// HealthHandlers serves the liveness endpoint
type HealthHandlers struct {
	widgetService *services.WidgetService
	loader        *engine.Loader
	startedAt     time.Time
}

// NewHealthHandlers creates health handlers
func NewHealthHandlers(widgetService *services.WidgetService, loader *engine.Loader) *HealthHandlers {
	return &HealthHandlers{
		widgetService: widgetService,
		loader:        loader,
		startedAt:     time.Now(),
	}
}

// GetHealth handles GET /health
func (h *HealthHandlers) GetHealth(c *gin.Context) {
	status := h.loader.Status()
	c.JSON(http.StatusOK, gin.H{
		"status":         "ok",
		"uptime":         time.Since(h.startedAt).String(),
		"liveWidgets":    h.widgetService.Count(),
		"engineAcquired": status.Acquired,
	})
}
