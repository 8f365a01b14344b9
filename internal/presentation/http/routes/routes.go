// Package routes provides HTTP route configuration for the presentation layer.
package routes

import (
	"github.com/AtRiskMedia/diagram-go/internal/application/container"
	"github.com/AtRiskMedia/diagram-go/internal/presentation/http/handlers"
	"github.com/AtRiskMedia/diagram-go/internal/presentation/http/middleware"
	"github.com/gin-gonic/gin"
)

// SetupRoutes configures all HTTP routes and middleware with dependency injection.
func SetupRoutes(container *container.Container) *gin.Engine {
	r := gin.Default()

	r.Use(middleware.CORSMiddleware())

	// Initialize handlers
	widgetHandlers := handlers.NewWidgetHandlers(container.WidgetService, container.Logger, container.PerfTracker)
	streamHandlers := handlers.NewStreamHandlers(container.WidgetService, container.Broadcaster, container.Logger)
	engineHandlers := handlers.NewEngineHandlers(container.Loader)
	healthHandlers := handlers.NewHealthHandlers(container.WidgetService, container.Loader)
	sysopHandlers := handlers.NewSysOpHandlers(container)

	r.GET("/health", healthHandlers.GetHealth)

	// Sysop API endpoints
	sysopAPI := r.Group("/api/sysop")
	{
		sysopAPI.GET("/auth", sysopHandlers.AuthCheck)
		sysopAPI.POST("/login", sysopHandlers.Login)

		// Sysop authenticated endpoints
		sysopAPI.Use(sysopHandlers.SysOpAuthMiddleware())
		{
			sysopAPI.GET("/widgets", sysopHandlers.GetWidgets)
			sysopAPI.GET("/history", sysopHandlers.GetHistory)
			sysopAPI.GET("/cache/stats", sysopHandlers.GetCacheStats)
			sysopAPI.POST("/cache/purge", sysopHandlers.PurgeCache)
			sysopAPI.GET("/db/status", sysopHandlers.GetDBStatus)
			sysopAPI.POST("/db/test", sysopHandlers.TestDBConnection)
			sysopAPI.GET("/performance", sysopHandlers.GetPerfStats)
			sysopAPI.GET("/logs/levels", sysopHandlers.GetLogLevels)
			sysopAPI.POST("/logs/levels", sysopHandlers.SetLogLevel)
		}
	}

	// Log streaming is a special case and can remain at top level
	r.GET("/sysop-logs/stream", sysopHandlers.StreamLogs)

	// Widget lifecycle API
	api := r.Group("/api/v1")
	{
		api.GET("/engine/status", engineHandlers.GetEngineStatus)

		widgets := api.Group("/widgets")
		{
			widgets.POST("", widgetHandlers.PostWidget)
			widgets.GET("/:id", widgetHandlers.GetWidget)
			widgets.PUT("/:id/diagram", widgetHandlers.PutWidgetDiagram)
			widgets.DELETE("/:id", widgetHandlers.DeleteWidget)
			widgets.GET("/:id/svg", widgetHandlers.GetWidgetSVG)
			widgets.GET("/:id/stream", streamHandlers.GetStream)
			widgets.GET("/:id/ws", streamHandlers.GetWS)
		}
	}

	return r
}
