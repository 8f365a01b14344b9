package handlers

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/AtRiskMedia/diagram-go/internal/application/container"
	"github.com/AtRiskMedia/diagram-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/diagram-go/internal/infrastructure/persistence/database"
	"github.com/AtRiskMedia/diagram-go/pkg/config"
	"github.com/gin-gonic/gin"
)

// SysOpHandlers handles sysop dashboard authentication and data streaming
type SysOpHandlers struct {
	container *container.Container
}

// NewSysOpHandlers creates new sysop handlers
func NewSysOpHandlers(container *container.Container) *SysOpHandlers {
	return &SysOpHandlers{
		container: container,
	}
}

// AuthCheck checks whether SYSOP_PASSWORD is set and validates the session
func (h *SysOpHandlers) AuthCheck(c *gin.Context) {
	response := map[string]any{
		"passwordRequired": config.SysOpPassword != "",
		"authenticated":    false,
	}
	if config.SysOpPassword == "" {
		response["message"] = "Set SYSOP_PASSWORD to protect the sysop surface"
	}

	auth := c.GetHeader("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		if err := h.container.AuthService.ValidateSysOpToken(auth[7:]); err == nil {
			response["authenticated"] = true
		}
	}

	c.JSON(http.StatusOK, response)
}

// Login handles sysop authentication
func (h *SysOpHandlers) Login(c *gin.Context) {
	var request struct {
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if config.SysOpPassword == "" {
		c.JSON(http.StatusOK, gin.H{"success": true, "token": "no-auth-required"})
		return
	}

	token, err := h.container.AuthService.AuthenticateSysOp(request.Password)
	if err != nil {
		h.container.Logger.Auth().Warn("Sysop login rejected", "error", err.Error())
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid password"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "token": token})
}

// SysOpAuthMiddleware protects sysop-specific endpoints.
func (h *SysOpHandlers) SysOpAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if config.SysOpPassword == "" {
			c.Next() // No password set, allow access
			return
		}

		authHeader := c.GetHeader("Authorization")
		token := ""
		if strings.HasPrefix(authHeader, "Bearer ") {
			token = authHeader[7:]
		}

		if err := h.container.AuthService.ValidateSysOpToken(token); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetWidgets returns snapshots of all live widget instances
func (h *SysOpHandlers) GetWidgets(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"count":   h.container.WidgetService.Count(),
		"widgets": h.container.WidgetService.List(),
	})
}

// GetHistory returns recent settled render attempts
func (h *SysOpHandlers) GetHistory(c *gin.Context) {
	if h.container.HistoryRepo == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "render history is not available"})
		return
	}

	limit := 50
	if l, err := strconv.Atoi(c.DefaultQuery("limit", "50")); err == nil && l > 0 && l <= 500 {
		limit = l
	}

	entries, err := h.container.HistoryRepo.Recent(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load render history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// GetCacheStats returns render cache usage
func (h *SysOpHandlers) GetCacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.container.CacheManager.Stats())
}

// PurgeCache empties the render cache
func (h *SysOpHandlers) PurgeCache(c *gin.Context) {
	h.container.CacheManager.Purge()
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GetDBStatus reports whether the render history database is reachable
func (h *SysOpHandlers) GetDBStatus(c *gin.Context) {
	if h.container.DB == nil {
		c.JSON(http.StatusOK, gin.H{"connected": false})
		return
	}

	if err := h.container.DB.Ping(); err != nil {
		c.JSON(http.StatusOK, gin.H{"connected": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"connected": true,
		"driver":    config.DBDriver,
		"turso":     config.TursoDatabaseURL != "",
	})
}

// TestDBConnection validates Turso credentials before they are committed to
// the environment
func (h *SysOpHandlers) TestDBConnection(c *gin.Context) {
	var req struct {
		DatabaseURL string `json:"databaseUrl" binding:"required"`
		AuthToken   string `json:"authToken"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: databaseUrl is required"})
		return
	}

	if err := database.TestTursoConnection(req.DatabaseURL, req.AuthToken); err != nil {
		h.container.Logger.Database().Warn("Turso connection test failed", "error", err.Error())
		c.JSON(http.StatusOK, gin.H{"success": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GetPerfStats returns aggregate operation statistics
func (h *SysOpHandlers) GetPerfStats(c *gin.Context) {
	prefix := c.DefaultQuery("operation", "")
	c.JSON(http.StatusOK, h.container.PerfTracker.GetStats(prefix))
}

// StreamLogs handles the SSE connection for live log streaming.
func (h *SysOpHandlers) StreamLogs(c *gin.Context) {
	broadcaster := logging.GetBroadcaster()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	channelFilter := c.DefaultQuery("channel", "all")
	levelFilter := c.DefaultQuery("level", "INFO")
	var logLevel slog.Level
	switch levelFilter {
	case "DEBUG":
		logLevel = slog.LevelDebug
	case "INFO":
		logLevel = slog.LevelInfo
	case "WARN":
		logLevel = slog.LevelWarn
	case "ERROR":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	filters := logging.AppliedFilters{
		Channel: logging.Channel(channelFilter),
		Level:   logLevel,
	}

	client := broadcaster.NewClient(filters)
	broadcaster.RegisterClient(client)
	defer broadcaster.UnregisterClient(client)

	fmt.Fprintf(c.Writer, ": connection established\n\n")
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case message, ok := <-client.Channel:
			if !ok {
				return false
			}
			fmt.Fprintf(w, "data: %s\n\n", message)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

// GetLogLevels handles GET /api/sysop/logs/levels
func (h *SysOpHandlers) GetLogLevels(c *gin.Context) {
	logger := h.container.Logger
	levels := make(map[string]string)
	for _, channel := range logging.AllChannels() {
		levels[string(channel)] = logger.GetChannelLevel(channel).String()
	}
	c.JSON(http.StatusOK, levels)
}

// SetLogLevel handles POST /api/sysop/logs/levels
func (h *SysOpHandlers) SetLogLevel(c *gin.Context) {
	var req struct {
		Channel string `json:"channel" binding:"required"`
		Level   string `json:"level" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	var level slog.Level
	switch req.Level {
	case "DEBUG":
		level = slog.LevelDebug
	case "INFO":
		level = slog.LevelInfo
	case "WARN":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid log level specified"})
		return
	}

	if err := h.container.Logger.SetChannelLevel(logging.Channel(req.Channel), level); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to set log level", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": fmt.Sprintf("Log level for channel '%s' set to '%s'", req.Channel, req.Level)})
}
