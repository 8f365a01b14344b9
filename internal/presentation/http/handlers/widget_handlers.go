// Package handlers provides HTTP handlers for the presentation layer.
package handlers

import (
	"errors"
	"net/http"

	"github.com/AtRiskMedia/diagram-go/internal/application/services"
	"github.com/AtRiskMedia/diagram-go/internal/domain/entities/diagram"
	"github.com/AtRiskMedia/diagram-go/internal/domain/lifecycle"
	"github.com/AtRiskMedia/diagram-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/diagram-go/internal/infrastructure/observability/performance"
	"github.com/gin-gonic/gin"
)

// WidgetHandlers handles widget lifecycle HTTP operations
type WidgetHandlers struct {
	widgetService *services.WidgetService
	logger        *logging.ChanneledLogger
	perfTracker   *performance.Tracker
}

// NewWidgetHandlers creates widget handlers with injected dependencies
func NewWidgetHandlers(widgetService *services.WidgetService, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *WidgetHandlers {
	return &WidgetHandlers{
		widgetService: widgetService,
		logger:        logger,
		perfTracker:   perfTracker,
	}
}

// PostWidget handles POST /api/v1/widgets - creates and mounts a widget
func (h *WidgetHandlers) PostWidget(c *gin.Context) {
	marker := h.perfTracker.StartOperation("http:widget:create", "")
	defer marker.Complete()

	var params services.CreateWidgetParams
	if err := c.ShouldBindJSON(&params); err != nil {
		marker.SetError(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "diagram is required", "details": err.Error()})
		return
	}

	ctrl, err := h.widgetService.Create(params)
	if err != nil {
		marker.SetError(err)
		if errors.Is(err, services.ErrCapacityReached) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	marker.SetSuccess(true)
	snap := ctrl.Snapshot()
	c.JSON(http.StatusCreated, gin.H{
		"widgetId": ctrl.ID(),
		"classes":  ctrl.Classes(),
		"snapshot": snap,
	})
}

// GetWidget handles GET /api/v1/widgets/:id - returns the current snapshot
func (h *WidgetHandlers) GetWidget(c *gin.Context) {
	ctrl, ok := h.widgetService.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "widget not found"})
		return
	}
	c.JSON(http.StatusOK, ctrl.Snapshot())
}

// PutWidgetDiagram handles PUT /api/v1/widgets/:id/diagram - input change
func (h *WidgetHandlers) PutWidgetDiagram(c *gin.Context) {
	var req struct {
		Diagram string `json:"diagram"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	err := h.widgetService.SetDiagram(c.Param("id"), req.Diagram)
	switch {
	case errors.Is(err, services.ErrWidgetNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "widget not found"})
		return
	case errors.Is(err, lifecycle.ErrUnmounted):
		c.JSON(http.StatusGone, gin.H{"error": "widget is unmounted"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ctrl, _ := h.widgetService.Get(c.Param("id"))
	c.JSON(http.StatusOK, ctrl.Snapshot())
}

// DeleteWidget handles DELETE /api/v1/widgets/:id - unmount
func (h *WidgetHandlers) DeleteWidget(c *gin.Context) {
	if err := h.widgetService.Unmount(c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "widget not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

// GetWidgetSVG handles GET /api/v1/widgets/:id/svg - raw markup when Rendered
func (h *WidgetHandlers) GetWidgetSVG(c *gin.Context) {
	ctrl, ok := h.widgetService.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "widget not found"})
		return
	}

	snap := ctrl.Snapshot()
	if snap.Phase != diagram.PhaseRendered || snap.Output == "" {
		c.JSON(http.StatusConflict, gin.H{
			"error": "widget has no rendered output",
			"phase": snap.Phase,
		})
		return
	}

	c.Header("Cache-Control", "no-cache")
	c.Data(http.StatusOK, "image/svg+xml; charset=utf-8", []byte(snap.Output))
}
