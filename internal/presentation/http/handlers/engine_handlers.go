package handlers

import (
	"net/http"

	"github.com/AtRiskMedia/diagram-go/internal/infrastructure/engine"
	"github.com/gin-gonic/gin"
)

// EngineHandlers exposes the loader state
type EngineHandlers struct {
	loader *engine.Loader
}

// NewEngineHandlers creates engine handlers
func NewEngineHandlers(loader *engine.Loader) *EngineHandlers {
	return &EngineHandlers{loader: loader}
}

// GetEngineStatus handles GET /api/v1/engine/status
func (h *EngineHandlers) GetEngineStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.loader.Status())
}
