// Package services provides application-level orchestration services
package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/AtRiskMedia/diagram-go/internal/domain/entities/diagram"
	"github.com/AtRiskMedia/diagram-go/internal/domain/lifecycle"
	"github.com/AtRiskMedia/diagram-go/internal/infrastructure/caching/interfaces"
	"github.com/AtRiskMedia/diagram-go/internal/infrastructure/engine"
	"github.com/AtRiskMedia/diagram-go/internal/infrastructure/messaging"
	"github.com/AtRiskMedia/diagram-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/diagram-go/internal/infrastructure/observability/performance"
	"github.com/AtRiskMedia/diagram-go/internal/infrastructure/persistence/history"
	"github.com/AtRiskMedia/diagram-go/internal/infrastructure/security"
	"github.com/AtRiskMedia/diagram-go/pkg/config"
)

// ErrWidgetNotFound is returned for operations on unknown widget ids.
var ErrWidgetNotFound = fmt.Errorf("widget not found")

// ErrCapacityReached is returned when the registry is full.
var ErrCapacityReached = fmt.Errorf("widget capacity reached")

// CreateWidgetParams are the inbound construction parameters for a widget.
type CreateWidgetParams struct {
	Diagram string `json:"diagram" binding:"required"`
	Debug   bool   `json:"debug"`
	Classes string `json:"classes"`
}

// WidgetService owns the registry of live widget lifecycle controllers and
// wires each controller to the shared engine loader, render cache,
// transition broadcaster, and render history.
type WidgetService struct {
	mu      sync.RWMutex
	widgets map[string]*lifecycle.Controller

	baseCtx     context.Context
	loader      *engine.Loader
	cache       interfaces.RenderCache
	broadcaster messaging.Broadcaster
	historyRepo *history.Repository
	alerts      *AlertService
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
}

// NewWidgetService creates a new widget service. baseCtx must outlive the
// service; it bounds all engine calls issued by controllers.
func NewWidgetService(
	baseCtx context.Context,
	loader *engine.Loader,
	cache interfaces.RenderCache,
	broadcaster messaging.Broadcaster,
	historyRepo *history.Repository,
	alerts *AlertService,
	logger *logging.ChanneledLogger,
	perfTracker *performance.Tracker,
) *WidgetService {
	return &WidgetService{
		widgets:     make(map[string]*lifecycle.Controller),
		baseCtx:     baseCtx,
		loader:      loader,
		cache:       cache,
		broadcaster: broadcaster,
		historyRepo: historyRepo,
		alerts:      alerts,
		logger:      logger,
		perfTracker: perfTracker,
	}
}

// Create registers and mounts a new widget instance.
func (s *WidgetService) Create(params CreateWidgetParams) (*lifecycle.Controller, error) {
	s.mu.Lock()
	if len(s.widgets) >= config.MaxWidgets {
		s.mu.Unlock()
		return nil, ErrCapacityReached
	}
	s.mu.Unlock()

	marker := s.perfTracker.StartOperation("widget:create", "")
	defer marker.Complete()

	engineOpts := diagram.EngineOptions{
		Theme:         config.EngineTheme,
		FontFamily:    config.EngineFontFamily,
		SecurityLevel: config.EngineSecurityLevel,
		LogLevel:      config.EngineLogLevel,
	}
	if params.Debug {
		engineOpts.LogLevel = 1
	}

	opts := lifecycle.Options{
		Diagram: params.Diagram,
		Debug:   params.Debug,
		Classes: params.Classes,
		Engine:  engineOpts,
	}

	deps := lifecycle.Deps{
		Acquirer: s.acquirer(),
		Sink:     s.broadcaster,
		NewID:    security.GenerateRenderID,
	}
	if s.cache != nil {
		deps.Cache = s.cache
	}
	if s.historyRepo != nil {
		deps.Recorder = s.historyRepo
	}

	id := security.GenerateULID()
	ctrl := lifecycle.New(id, opts, deps)

	s.mu.Lock()
	s.widgets[id] = ctrl
	count := len(s.widgets)
	s.mu.Unlock()

	ctrl.Mount(s.baseCtx)
	marker.SetSuccess(true)

	s.logger.WithWidget(logging.ChannelRender, id).Info("Widget mounted",
		"debug", params.Debug, "liveWidgets", count)
	return ctrl, nil
}

// acquirer adapts the shared loader for controllers and routes acquisition
// failures into the alert service.
func (s *WidgetService) acquirer() lifecycle.Acquirer {
	return lifecycle.AcquirerFunc(func(ctx context.Context) (lifecycle.Engine, error) {
		eng, err := s.loader.AcquireEngine(ctx)
		if err != nil {
			if s.alerts != nil {
				s.alerts.NotifyEngineFailure(diagram.ClassifyAcquisitionError(err), err)
			}
			return nil, err
		}
		return eng, nil
	})
}

// Get returns a live controller by id.
func (s *WidgetService) Get(id string) (*lifecycle.Controller, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ctrl, ok := s.widgets[id]
	return ctrl, ok
}

// SetDiagram supplies a new diagram input to a widget.
func (s *WidgetService) SetDiagram(id, text string) error {
	ctrl, ok := s.Get(id)
	if !ok {
		return ErrWidgetNotFound
	}

	marker := s.perfTracker.StartOperation("widget:set_diagram", id)
	defer marker.Complete()

	if err := ctrl.SetInput(s.baseCtx, text); err != nil {
		marker.SetError(err)
		return err
	}
	marker.SetSuccess(true)
	return nil
}

// Unmount unmounts a widget and removes it from the registry. Any in-flight
// render result will be discarded by the controller.
func (s *WidgetService) Unmount(id string) error {
	s.mu.Lock()
	ctrl, ok := s.widgets[id]
	if ok {
		delete(s.widgets, id)
	}
	s.mu.Unlock()

	if !ok {
		return ErrWidgetNotFound
	}

	ctrl.Unmount()
	s.broadcaster.CloseWidget(id)
	s.logger.WithWidget(logging.ChannelRender, id).Info("Widget unmounted")
	return nil
}

// List returns snapshots of all live widgets.
func (s *WidgetService) List() []diagram.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snaps := make([]diagram.Snapshot, 0, len(s.widgets))
	for _, ctrl := range s.widgets {
		snaps = append(snaps, ctrl.Snapshot())
	}
	return snaps
}

// Count returns the number of live widgets.
func (s *WidgetService) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.widgets)
}

// StartEvictionWorker unmounts widgets idle longer than the configured TTL.
func (s *WidgetService) StartEvictionWorker(ctx context.Context) {
	ticker := time.NewTicker(config.CleanupInterval)
	defer ticker.Stop()

	s.logger.System().Info("Widget eviction worker started",
		"interval", config.CleanupInterval, "idleTTL", config.WidgetIdleTTL)

	for {
		select {
		case <-ctx.Done():
			s.logger.System().Info("Widget eviction worker stopped")
			return
		case <-ticker.C:
			s.evictIdle()
		}
	}
}

func (s *WidgetService) evictIdle() {
	cutoff := time.Now().Add(-config.WidgetIdleTTL)

	s.mu.RLock()
	var stale []string
	for id, ctrl := range s.widgets {
		if ctrl.LastActive().Before(cutoff) {
			stale = append(stale, id)
		}
	}
	s.mu.RUnlock()

	for _, id := range stale {
		if err := s.Unmount(id); err == nil {
			s.logger.System().Debug("Idle widget evicted", "widgetId", id)
		}
	}
}
