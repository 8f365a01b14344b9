package engine

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/AtRiskMedia/diagram-go/internal/domain/entities/diagram"
	"github.com/AtRiskMedia/diagram-go/internal/infrastructure/observability/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSymbol = "mermaid"

type stubEngine struct{ name string }

func (s *stubEngine) Configure(ctx context.Context, opts diagram.EngineOptions) error { return nil }
func (s *stubEngine) Render(ctx context.Context, req diagram.RenderRequest) (string, error) {
	return "<svg/>", nil
}

// fakeInstaller counts install calls and either installs an engine, installs
// nothing, or fails outright.
type fakeInstaller struct {
	mu       sync.Mutex
	calls    int
	delay    time.Duration
	err      error
	noSymbol bool
}

func (f *fakeInstaller) Install(ctx context.Context, env *HostEnv) error {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return f.err
	}
	if !f.noSymbol {
		env.Install(testSymbol, &stubEngine{name: "fetched"})
	}
	return nil
}

func (f *fakeInstaller) installCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func quietLogger(t *testing.T) *logging.ChanneledLogger {
	t.Helper()
	cfg := logging.DefaultLoggerConfig()
	cfg.OutputToConsole = false
	logger, err := logging.NewChanneledLogger(cfg)
	require.NoError(t, err)
	return logger
}

func TestAdoptsHostProvidedEngine(t *testing.T) {
	env := NewHostEnv()
	adopted := &stubEngine{name: "adopted"}
	env.Install(testSymbol, adopted)
	installer := &fakeInstaller{}

	loader := NewLoader(env, testSymbol, installer, quietLogger(t))
	handle, err := loader.Acquire(context.Background())

	require.NoError(t, err)
	assert.Equal(t, StrategyAdopted, handle.Strategy)
	assert.Same(t, adopted, handle.Engine.(*stubEngine))
	assert.Equal(t, 0, installer.installCalls(), "fetch must not run when the host provides an engine")
}

func TestFetchInstallsAndMemoizes(t *testing.T) {
	installer := &fakeInstaller{}
	loader := NewLoader(NewHostEnv(), testSymbol, installer, quietLogger(t))
	ctx := context.Background()

	first, err := loader.Acquire(ctx)
	require.NoError(t, err)
	assert.Equal(t, StrategyFetched, first.Strategy)

	second, err := loader.Acquire(ctx)
	require.NoError(t, err)
	assert.Same(t, first, second, "the handle is write-once")
	assert.Equal(t, 1, installer.installCalls(), "the fetch side effect happens at most once")

	status := loader.Status()
	assert.True(t, status.Acquired)
	assert.Equal(t, StrategyFetched, status.Strategy)
	assert.Empty(t, status.LastError)
}

func TestConcurrentAcquireCollapses(t *testing.T) {
	installer := &fakeInstaller{delay: 20 * time.Millisecond}
	loader := NewLoader(NewHostEnv(), testSymbol, installer, quietLogger(t))

	const callers = 16
	handles := make([]*Handle, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			handles[i], errs[i] = loader.Acquire(context.Background())
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Same(t, handles[0], handles[i])
	}
	assert.Equal(t, 1, installer.installCalls())
}

func TestHeadlessFailsImmediatelyWithoutFetch(t *testing.T) {
	installer := &fakeInstaller{}
	loader := NewLoader(nil, testSymbol, installer, quietLogger(t))

	_, err := loader.Acquire(context.Background())
	require.Error(t, err)
	assert.Equal(t, diagram.ErrEngineUnavailable, diagram.ClassifyAcquisitionError(err))
	assert.Equal(t, 0, installer.installCalls())
}

func TestNoInstallerMeansUnavailable(t *testing.T) {
	loader := NewLoader(NewHostEnv(), testSymbol, nil, quietLogger(t))

	_, err := loader.Acquire(context.Background())
	require.Error(t, err)
	assert.Equal(t, diagram.ErrEngineUnavailable, diagram.ClassifyAcquisitionError(err))
}

func TestFetchErrorIsFetchFailedAndNotMemoized(t *testing.T) {
	installer := &fakeInstaller{err: fmt.Errorf("connection refused")}
	loader := NewLoader(NewHostEnv(), testSymbol, installer, quietLogger(t))
	ctx := context.Background()

	_, err := loader.Acquire(ctx)
	require.Error(t, err)
	assert.Equal(t, diagram.ErrEngineFetchFailed, diagram.ClassifyAcquisitionError(err))

	status := loader.Status()
	assert.False(t, status.Acquired)
	assert.Contains(t, status.LastError, "connection refused")

	// Failure is not memoized: a later attempt may succeed.
	installer.err = nil
	handle, err := loader.Acquire(ctx)
	require.NoError(t, err)
	assert.Equal(t, StrategyFetched, handle.Strategy)
}

func TestSymbolMissingAfterFetchIsUnavailable(t *testing.T) {
	installer := &fakeInstaller{noSymbol: true}
	loader := NewLoader(NewHostEnv(), testSymbol, installer, quietLogger(t))

	_, err := loader.Acquire(context.Background())
	require.Error(t, err)
	assert.Equal(t, diagram.ErrEngineUnavailable, diagram.ClassifyAcquisitionError(err))
	assert.Contains(t, err.Error(), "missing after fetch")
}

func TestHostEnvFirstInstallWins(t *testing.T) {
	env := NewHostEnv()
	first := &stubEngine{name: "first"}
	env.Install(testSymbol, first)
	env.Install(testSymbol, &stubEngine{name: "second"})

	eng, ok := env.Lookup(testSymbol)
	require.True(t, ok)
	assert.Same(t, first, eng.(*stubEngine))
}
