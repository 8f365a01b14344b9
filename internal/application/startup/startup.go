// Package startup prepares the application server
package startup

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AtRiskMedia/diagram-go/internal/application/container"
	"github.com/AtRiskMedia/diagram-go/internal/infrastructure/caching/manager"
	"github.com/AtRiskMedia/diagram-go/internal/infrastructure/email"
	"github.com/AtRiskMedia/diagram-go/internal/infrastructure/engine"
	"github.com/AtRiskMedia/diagram-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/diagram-go/internal/infrastructure/persistence/database"
	"github.com/AtRiskMedia/diagram-go/internal/infrastructure/persistence/history"
	"github.com/AtRiskMedia/diagram-go/internal/presentation/http/server"
	"github.com/AtRiskMedia/diagram-go/pkg/config"
	"github.com/gin-gonic/gin"
)

// Initialize performs the complete startup sequence
func Initialize() error {
	setupLogging()

	start := time.Now().UTC()

	ctx, cancelBackgroundTasks := context.WithCancel(context.Background())
	defer cancelBackgroundTasks()

	log.Println("\033[32m" + `
   █▀▄ █ ▄▀█ █▀▀ █▀█ ▄▀█ █▄ ▄█ ▄▄ █▀▀ █▀█
   █▄▀ █ █▀█ █▄█ █▀▄ █▀█ █ ▀ █    █▄█ █▄█
` + "\033[97m" + `
  made by At Risk Media
` + "\033[0m")

	// Step 1: Channeled logging
	logger, err := logging.NewChanneledLogger(logging.DefaultLoggerConfig())
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	logger.Startup().Info("Channeled logging initialized")

	// Step 2: Database (optional: history and warming degrade without it)
	var db *database.DB
	var historyRepo *history.Repository

	db, err = database.Connect(logger)
	if err != nil {
		logger.Startup().Warn("Database unavailable, render history disabled", "error", err.Error())
		db = nil
	} else {
		historyRepo, err = history.NewRepository(db, logger)
		if err != nil {
			logger.Startup().Warn("Render history unavailable", "error", err.Error())
			historyRepo = nil
		}
	}

	// Step 3: Engine loader
	loader := buildLoader(logger)
	logger.Startup().Info("Engine loader initialized",
		"symbol", config.EngineSymbol, "offline", config.OfflineMode)

	// Step 4: Render cache
	cacheManager := manager.NewManager(config.RenderCacheTTL, logger)
	logger.Startup().Info("Render cache initialized", "ttl", config.RenderCacheTTL)

	// Step 5: Email alerting (optional)
	emailService, emailErr := email.NewService()
	if emailErr != nil {
		logger.Startup().Info("Email alerting disabled", "reason", emailErr.Error())
		emailService = nil
	}

	// Step 6: Dependency injection container
	appContainer := container.NewContainer(ctx, loader, cacheManager, db, historyRepo, emailService, logger)
	logger.Startup().Info("Dependency injection container created with singleton services")

	// Step 7: Render cache warming
	startWarmTime := time.Now()
	if err := appContainer.WarmingService.WarmFromHistory(ctx); err != nil {
		logger.Startup().Error("Render cache warming failed",
			"error", err.Error(), "duration", time.Since(startWarmTime))
	}

	// Step 8: Background workers
	go cacheManager.StartCleanupWorker(ctx, config.CleanupInterval)
	go appContainer.WidgetService.StartEvictionWorker(ctx)
	logger.Startup().Info("Background workers started")

	// Step 9: HTTP server
	httpServer := server.New(config.Port, appContainer)
	logger.Startup().Info("HTTP server initialized", "port", config.Port)

	// Step 10: Graceful shutdown
	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.System().Info("Starting HTTP server", "address", ":"+config.Port)
		if err := httpServer.Start(); err != nil {
			logger.System().Error("HTTP server failed", "error", err.Error())
		}
	}()

	logger.Startup().Info("Application startup complete",
		"totalDuration", time.Since(start), "port", config.Port)

	<-gracefulShutdown
	logger.Shutdown().Info("Shutdown signal received, starting graceful shutdown...")

	shutdownStart := time.Now()
	cancelBackgroundTasks()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger.Shutdown().Info("Stopping HTTP server...")
	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Shutdown().Error("Error during server shutdown", "error", err.Error())
	} else {
		logger.Shutdown().Info("HTTP server stopped successfully")
	}

	if db != nil {
		logger.Shutdown().Info("Closing database...")
		if err := db.Close(); err != nil {
			logger.Shutdown().Error("Error closing database", "error", err.Error())
		}
	}

	logger.Shutdown().Info("Application shutdown complete",
		"totalUptime", time.Since(start),
		"shutdownDuration", time.Since(shutdownStart))

	return nil
}

// buildLoader assembles the host environment, the optional pre-provisioned
// engine, and the remote installer according to configuration.
func buildLoader(logger *logging.ChanneledLogger) *engine.Loader {
	if config.OfflineMode {
		// Headless: no host environment and no remote source.
		return engine.NewLoader(nil, config.EngineSymbol, nil, logger)
	}

	env := engine.NewHostEnv()

	if config.EngineEndpoint != "" {
		env.Install(config.EngineSymbol,
			engine.NewEndpointEngine(config.EngineEndpoint, config.RenderTimeout))
		logger.Startup().Info("Pre-provisioned engine installed",
			"symbol", config.EngineSymbol, "endpoint", config.EngineEndpoint)
	}

	installer := engine.NewRemoteInstaller(
		config.EngineManifestURL, config.EngineSymbol, config.EngineFetchTimeout, logger)

	return engine.NewLoader(env, config.EngineSymbol, installer, logger)
}

// setupLogging configures application logging
func setupLogging() {
	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	log.SetFlags(log.LstdFlags | log.Lshortfile)
}
