package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/AtRiskMedia/diagram-go/internal/domain/entities/diagram"
	"github.com/AtRiskMedia/diagram-go/internal/infrastructure/observability/logging"
)

// Installer fetches the engine implementation from the remote source and
// installs it into the host environment under the expected symbol. A
// returned error means the fetch itself failed; a nil return with no symbol
// installed means the fetch completed but the resource did not expose the
// engine.
type Installer interface {
	Install(ctx context.Context, env *HostEnv) error
}

// acquisition is one in-flight acquisition attempt. Concurrent callers
// before the first acquisition completes attach to the same attempt instead
// of starting their own.
type acquisition struct {
	done   chan struct{}
	handle *Handle
	err    error
}

// Loader resolves the single shared engine handle, memoized process-wide.
// Strategies are tried in order: memoized handle, adopt a host-provided
// engine, fetch the remote bundle. A headless context (nil host
// environment) fails immediately without fetching.
type Loader struct {
	mu       sync.Mutex
	handle   *Handle // write-once; never replaced after being set
	inflight *acquisition
	lastErr  error

	env       *HostEnv
	symbol    string
	installer Installer
	logger    *logging.ChanneledLogger
}

// Status is the loader state exposed to the sysop surface.
type Status struct {
	Acquired  bool   `json:"acquired"`
	Strategy  string `json:"strategy,omitempty"`
	InFlight  bool   `json:"inFlight"`
	LastError string `json:"lastError,omitempty"`
}

// NewLoader creates an engine loader. env may be nil for headless contexts;
// installer may be nil when remote fetch is not configured.
func NewLoader(env *HostEnv, symbol string, installer Installer, logger *logging.ChanneledLogger) *Loader {
	return &Loader{
		env:       env,
		symbol:    symbol,
		installer: installer,
		logger:    logger,
	}
}

// Acquire returns the shared engine handle, producing it on first call.
// Concurrent callers collapse into a single in-flight attempt; the fetch
// side effect happens at most once per process. A failed attempt is not
// memoized, so a later caller may retry.
func (l *Loader) Acquire(ctx context.Context) (*Handle, error) {
	l.mu.Lock()

	if l.handle != nil {
		h := l.handle
		l.mu.Unlock()
		return h, nil
	}

	if a := l.inflight; a != nil {
		l.mu.Unlock()
		select {
		case <-a.done:
			return a.handle, a.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	a := &acquisition{done: make(chan struct{})}
	l.inflight = a
	l.mu.Unlock()

	start := time.Now()
	handle, err := l.runStrategies(ctx)

	l.mu.Lock()
	if err == nil && l.handle == nil {
		l.handle = handle
	}
	l.lastErr = err
	l.inflight = nil
	l.mu.Unlock()

	a.handle, a.err = handle, err
	close(a.done)

	if err != nil {
		l.logger.Engine().Error("Engine acquisition failed",
			"error", err.Error(), "duration", time.Since(start))
		return nil, err
	}

	l.logger.Engine().Info("Engine acquired",
		"strategy", handle.Strategy, "symbol", l.symbol, "duration", time.Since(start))
	return handle, nil
}

// runStrategies tries the ordered acquisition strategies; first success wins.
func (l *Loader) runStrategies(ctx context.Context) (*Handle, error) {
	// Headless context: no host environment, no fetch.
	if l.env == nil {
		return nil, fmt.Errorf("%w: headless context has no host environment",
			diagram.ErrEngineUnavailableSentinel)
	}

	// Host environment already exposes a ready engine.
	if eng, ok := l.env.Lookup(l.symbol); ok {
		return &Handle{Engine: eng, Strategy: StrategyAdopted}, nil
	}

	if l.installer == nil {
		return nil, fmt.Errorf("%w: no remote source configured",
			diagram.ErrEngineUnavailableSentinel)
	}

	l.logger.Engine().Info("Engine not present in host environment, fetching remote bundle", "symbol", l.symbol)
	if err := l.installer.Install(ctx, l.env); err != nil {
		return nil, fmt.Errorf("%w: %v", diagram.ErrEngineFetchFailedSentinel, err)
	}

	// The fetch completed; verify the expected symbol appeared.
	eng, ok := l.env.Lookup(l.symbol)
	if !ok {
		return nil, fmt.Errorf("%w: symbol %q missing after fetch",
			diagram.ErrEngineUnavailableSentinel, l.symbol)
	}

	return &Handle{Engine: eng, Strategy: StrategyFetched}, nil
}

// AcquireEngine is a convenience wrapper returning the engine itself.
func (l *Loader) AcquireEngine(ctx context.Context) (Engine, error) {
	h, err := l.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return h.Engine, nil
}

// Status reports the current loader state.
func (l *Loader) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()

	s := Status{InFlight: l.inflight != nil}
	if l.handle != nil {
		s.Acquired = true
		s.Strategy = l.handle.Strategy
	}
	if l.lastErr != nil && l.handle == nil {
		s.LastError = l.lastErr.Error()
	}
	return s
}
