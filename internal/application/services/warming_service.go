package services

import (
	"context"
	"strings"
	"time"

	"github.com/AtRiskMedia/diagram-go/internal/domain/entities/diagram"
	"github.com/AtRiskMedia/diagram-go/internal/domain/lifecycle"
	"github.com/AtRiskMedia/diagram-go/internal/infrastructure/caching/interfaces"
	"github.com/AtRiskMedia/diagram-go/internal/infrastructure/engine"
	"github.com/AtRiskMedia/diagram-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/diagram-go/internal/infrastructure/persistence/history"
	"github.com/AtRiskMedia/diagram-go/internal/infrastructure/security"
	"github.com/AtRiskMedia/diagram-go/pkg/config"
)

// WarmingService pre-populates the render cache at startup by re-rendering
// the most recently seen distinct diagrams from render history.
type WarmingService struct {
	loader      *engine.Loader
	cache       interfaces.RenderCache
	historyRepo *history.Repository
	logger      *logging.ChanneledLogger
}

// NewWarmingService creates a new warming service.
func NewWarmingService(
	loader *engine.Loader,
	cache interfaces.RenderCache,
	historyRepo *history.Repository,
	logger *logging.ChanneledLogger,
) *WarmingService {
	return &WarmingService{
		loader:      loader,
		cache:       cache,
		historyRepo: historyRepo,
		logger:      logger,
	}
}

// WarmFromHistory renders recent distinct diagrams into the cache. Warming
// is best-effort: acquisition or render failures are logged and skipped so
// startup always proceeds.
func (s *WarmingService) WarmFromHistory(ctx context.Context) error {
	logger := s.logger.WithOperation(logging.ChannelStartup, "cache-warming")

	if !config.WarmingEnabled || s.historyRepo == nil {
		logger.Info("Render cache warming skipped")
		return nil
	}

	start := time.Now()
	inputs, err := s.historyRepo.RecentDistinctInputs(config.WarmingLimit)
	if err != nil {
		return err
	}
	if len(inputs) == 0 {
		logger.Info("No render history to warm from")
		return nil
	}

	eng, err := s.loader.AcquireEngine(ctx)
	if err != nil {
		logger.Warn("Warming skipped: engine not acquirable", "error", err.Error())
		return nil
	}

	opts := diagram.EngineOptions{
		Theme:         config.EngineTheme,
		FontFamily:    config.EngineFontFamily,
		SecurityLevel: config.EngineSecurityLevel,
		LogLevel:      config.EngineLogLevel,
	}
	if err := eng.Configure(ctx, opts); err != nil {
		logger.Warn("Warming skipped: engine configuration failed", "error", err.Error())
		return nil
	}

	var warmed, skipped int
	for _, input := range inputs {
		key := lifecycle.CacheKey(opts, input)
		if _, hit := s.cache.Get(key); hit {
			skipped++
			continue
		}

		req := diagram.RenderRequest{ID: security.GenerateRenderID(), Text: input}
		svg, err := eng.Render(ctx, req)
		if err != nil || strings.TrimSpace(svg) == "" {
			skipped++
			continue
		}

		s.cache.Set(key, svg)
		warmed++
	}

	logger.Info("Render cache warming completed",
		"warmed", warmed, "skipped", skipped, "duration", time.Since(start))
	return nil
}
