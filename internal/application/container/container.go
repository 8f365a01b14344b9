// Package container provides dependency injection for all singleton services
package container

import (
	"context"

	"github.com/AtRiskMedia/diagram-go/internal/application/services"
	"github.com/AtRiskMedia/diagram-go/internal/infrastructure/caching/manager"
	"github.com/AtRiskMedia/diagram-go/internal/infrastructure/email"
	"github.com/AtRiskMedia/diagram-go/internal/infrastructure/engine"
	"github.com/AtRiskMedia/diagram-go/internal/infrastructure/messaging"
	"github.com/AtRiskMedia/diagram-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/diagram-go/internal/infrastructure/observability/performance"
	"github.com/AtRiskMedia/diagram-go/internal/infrastructure/persistence/database"
	"github.com/AtRiskMedia/diagram-go/internal/infrastructure/persistence/history"
)

// Container holds all singleton services and infrastructure dependencies
type Container struct {
	// Application services
	WidgetService  *services.WidgetService
	WarmingService *services.WarmingService
	AuthService    *services.AuthService
	AlertService   *services.AlertService

	// Infrastructure dependencies
	Loader       *engine.Loader
	CacheManager *manager.Manager
	Broadcaster  *messaging.SSEBroadcaster
	HistoryRepo  *history.Repository
	DB           *database.DB
	Logger       *logging.ChanneledLogger
	PerfTracker  *performance.Tracker
}

// NewContainer creates and wires all singleton services. historyRepo and
// emailService may be nil when persistence or alerting is not configured.
func NewContainer(
	baseCtx context.Context,
	loader *engine.Loader,
	cacheManager *manager.Manager,
	db *database.DB,
	historyRepo *history.Repository,
	emailService email.Service,
	logger *logging.ChanneledLogger,
) *Container {
	perfTracker := performance.NewTracker()
	broadcaster := messaging.NewSSEBroadcaster(logger)
	alertService := services.NewAlertService(emailService, logger)

	return &Container{
		WidgetService: services.NewWidgetService(
			baseCtx, loader, cacheManager, broadcaster, historyRepo, alertService, logger, perfTracker),
		WarmingService: services.NewWarmingService(loader, cacheManager, historyRepo, logger),
		AuthService:    services.NewAuthService(),
		AlertService:   alertService,

		Loader:       loader,
		CacheManager: cacheManager,
		Broadcaster:  broadcaster,
		HistoryRepo:  historyRepo,
		DB:           db,
		Logger:       logger,
		PerfTracker:  perfTracker,
	}
}
