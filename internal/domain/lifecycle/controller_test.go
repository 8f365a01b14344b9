package lifecycle

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/AtRiskMedia/diagram-go/internal/domain/entities/diagram"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEngine records configuration and render calls. Render can be gated to
// hold attempts in flight.
type fakeEngine struct {
	mu             sync.Mutex
	configureCalls int
	configureErr   error
	renderErr      error
	renderEmpty    bool
	rendered       []string
	gate           chan struct{} // when non-nil, Render blocks until closed
}

func (f *fakeEngine) Configure(ctx context.Context, opts diagram.EngineOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.configureCalls++
	return f.configureErr
}

func (f *fakeEngine) Render(ctx context.Context, req diagram.RenderRequest) (string, error) {
	f.mu.Lock()
	gate := f.gate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.rendered = append(f.rendered, req.Text)
	if f.renderErr != nil {
		return "", f.renderErr
	}
	if f.renderEmpty {
		return "", nil
	}
	return "<svg>" + req.Text + "</svg>", nil
}

func (f *fakeEngine) renderedInputs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.rendered...)
}

type fakeCache struct {
	mu      sync.Mutex
	entries map[string]string
	sets    int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]string)}
}

func (f *fakeCache) Get(key string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	svg, ok := f.entries[key]
	return svg, ok
}

func (f *fakeCache) Set(key, svg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[key] = svg
	f.sets++
}

type fakeSink struct {
	mu    sync.Mutex
	snaps []diagram.Snapshot
}

func (f *fakeSink) PublishTransition(snap diagram.Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snaps = append(f.snaps, snap)
}

func (f *fakeSink) phases() []diagram.Phase {
	f.mu.Lock()
	defer f.mu.Unlock()
	phases := make([]diagram.Phase, 0, len(f.snaps))
	for _, s := range f.snaps {
		phases = append(phases, s.Phase)
	}
	return phases
}

func staticAcquirer(eng Engine, err error) Acquirer {
	return AcquirerFunc(func(ctx context.Context) (Engine, error) {
		return eng, err
	})
}

func sequentialIDs() func() string {
	var mu sync.Mutex
	var n int
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("attempt-%03d", n)
	}
}

func newTestController(t *testing.T, input string, eng Engine, acqErr error, extra func(*Deps)) *Controller {
	t.Helper()
	deps := Deps{
		Acquirer: staticAcquirer(eng, acqErr),
		NewID:    sequentialIDs(),
	}
	if extra != nil {
		extra(&deps)
	}
	return New("widget-1", Options{Diagram: input}, deps)
}

func waitForPhase(t *testing.T, c *Controller, want diagram.Phase) diagram.Snapshot {
	t.Helper()
	var snap diagram.Snapshot
	require.Eventually(t, func() bool {
		snap = c.Snapshot()
		return snap.Phase == want
	}, 2*time.Second, 5*time.Millisecond, "never reached phase %s (last: %s)", want, snap.Phase)
	return snap
}

func TestMountRendersInitialInput(t *testing.T) {
	eng := &fakeEngine{}
	sink := &fakeSink{}
	c := newTestController(t, "graph TD; A-->B", eng, nil, func(d *Deps) { d.Sink = sink })

	assert.Equal(t, diagram.PhaseUninitialized, c.Snapshot().Phase)

	c.Mount(context.Background())
	snap := waitForPhase(t, c, diagram.PhaseRendered)

	assert.Equal(t, "<svg>graph TD; A-->B</svg>", snap.Output)
	assert.Nil(t, snap.Error)
	assert.Equal(t, 1, eng.configureCalls)
	assert.Equal(t, []string{"graph TD; A-->B"}, eng.renderedInputs())

	phases := sink.phases()
	assert.Equal(t, diagram.PhaseInitializing, phases[0])
	assert.Contains(t, phases, diagram.PhaseReady)
	assert.Contains(t, phases, diagram.PhaseRendering)
	assert.Equal(t, diagram.PhaseRendered, phases[len(phases)-1])
}

func TestMountWithBlankInputStaysReady(t *testing.T) {
	eng := &fakeEngine{}
	c := newTestController(t, "   ", eng, nil, nil)

	c.Mount(context.Background())
	waitForPhase(t, c, diagram.PhaseReady)

	assert.Empty(t, eng.renderedInputs())
}

func TestMountIsIdempotent(t *testing.T) {
	eng := &fakeEngine{}
	c := newTestController(t, "graph TD; A", eng, nil, nil)

	ctx := context.Background()
	c.Mount(ctx)
	c.Mount(ctx)
	waitForPhase(t, c, diagram.PhaseRendered)

	assert.Equal(t, 1, eng.configureCalls)
}

func TestAcquisitionFailureIsTerminal(t *testing.T) {
	acqErr := fmt.Errorf("%w: headless context has no host environment", diagram.ErrEngineUnavailableSentinel)
	eng := &fakeEngine{}
	c := newTestController(t, "graph TD; A", eng, acqErr, nil)

	c.Mount(context.Background())
	snap := waitForPhase(t, c, diagram.PhaseFailed)

	require.NotNil(t, snap.Error)
	assert.Equal(t, diagram.ErrEngineUnavailable, snap.Error.Kind)

	// Input changes after a terminal initialization failure are ignored.
	require.NoError(t, c.SetInput(context.Background(), "graph TD; B"))
	assert.Equal(t, diagram.PhaseFailed, c.Snapshot().Phase)
	assert.Empty(t, eng.renderedInputs())
}

func TestConfigureFailureIsEngineInitFailed(t *testing.T) {
	eng := &fakeEngine{configureErr: fmt.Errorf("bad security level")}
	c := newTestController(t, "graph TD; A", eng, nil, nil)

	c.Mount(context.Background())
	snap := waitForPhase(t, c, diagram.PhaseFailed)

	require.NotNil(t, snap.Error)
	assert.Equal(t, diagram.ErrEngineInitFailed, snap.Error.Kind)
	assert.Empty(t, eng.renderedInputs())
}

func TestBlankAndDuplicateInputsAreNoOps(t *testing.T) {
	eng := &fakeEngine{}
	c := newTestController(t, "graph TD; A", eng, nil, nil)
	ctx := context.Background()

	c.Mount(ctx)
	waitForPhase(t, c, diagram.PhaseRendered)

	require.NoError(t, c.SetInput(ctx, "   \n"))
	require.NoError(t, c.SetInput(ctx, "  graph TD; A  "))
	assert.Equal(t, diagram.PhaseRendered, c.Snapshot().Phase)
	assert.Equal(t, []string{"graph TD; A"}, eng.renderedInputs())
}

func TestRenderFailureCarriesInputAndIsRecoverable(t *testing.T) {
	eng := &fakeEngine{renderErr: fmt.Errorf("parse error at line 2")}
	c := newTestController(t, "graph TD; A", eng, nil, nil)
	ctx := context.Background()

	c.Mount(ctx)
	snap := waitForPhase(t, c, diagram.PhaseFailed)

	require.NotNil(t, snap.Error)
	assert.Equal(t, diagram.ErrRenderFailed, snap.Error.Kind)
	assert.Equal(t, "graph TD; A", snap.Error.Input)
	assert.Contains(t, snap.Error.Message, "parse error")

	// A render failure is not terminal: a corrected input renders.
	eng.mu.Lock()
	eng.renderErr = nil
	eng.mu.Unlock()

	require.NoError(t, c.SetInput(ctx, "graph TD; B"))
	snap = waitForPhase(t, c, diagram.PhaseRendered)
	assert.Equal(t, "<svg>graph TD; B</svg>", snap.Output)
	assert.Nil(t, snap.Error)
}

func TestEmptyOutputIsRenderFailure(t *testing.T) {
	eng := &fakeEngine{renderEmpty: true}
	c := newTestController(t, "graph TD; A", eng, nil, nil)

	c.Mount(context.Background())
	snap := waitForPhase(t, c, diagram.PhaseFailed)

	require.NotNil(t, snap.Error)
	assert.Equal(t, diagram.ErrRenderFailed, snap.Error.Kind)
}

func TestLatestWinsQueueSupersedesIntermediates(t *testing.T) {
	gate := make(chan struct{})
	eng := &fakeEngine{gate: gate}
	c := newTestController(t, "input-A", eng, nil, nil)
	ctx := context.Background()

	c.Mount(ctx)
	waitForPhase(t, c, diagram.PhaseRendering)

	// While input-A is in flight, B and C arrive; B must be superseded.
	require.NoError(t, c.SetInput(ctx, "input-B"))
	require.NoError(t, c.SetInput(ctx, "input-C"))

	eng.mu.Lock()
	eng.gate = nil
	eng.mu.Unlock()
	close(gate)

	var snap diagram.Snapshot
	require.Eventually(t, func() bool {
		snap = c.Snapshot()
		return snap.Phase == diagram.PhaseRendered && strings.Contains(snap.Output, "input-C")
	}, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, []string{"input-A", "input-C"}, eng.renderedInputs())
}

func TestStaleResultIsNeverApplied(t *testing.T) {
	gate := make(chan struct{})
	eng := &fakeEngine{gate: gate}
	c := newTestController(t, "input-A", eng, nil, nil)
	ctx := context.Background()

	c.Mount(ctx)
	waitForPhase(t, c, diagram.PhaseRendering)

	require.NoError(t, c.SetInput(ctx, "input-B"))
	close(gate)

	snap := waitForPhase(t, c, diagram.PhaseRendered)
	assert.Equal(t, "<svg>input-B</svg>", snap.Output)

	// The settled state reflects the newest input, not the first one.
	assert.Equal(t, diagram.PhaseRendered, c.Snapshot().Phase)
	assert.Equal(t, "<svg>input-B</svg>", c.Snapshot().Output)
}

func TestUnmountDiscardsInFlightResult(t *testing.T) {
	gate := make(chan struct{})
	eng := &fakeEngine{gate: gate}
	sink := &fakeSink{}
	c := newTestController(t, "input-A", eng, nil, func(d *Deps) { d.Sink = sink })
	ctx := context.Background()

	c.Mount(ctx)
	waitForPhase(t, c, diagram.PhaseRendering)

	c.Unmount()
	close(gate)

	// The result settles but is never applied: no Rendered transition, no
	// output, and further input is rejected.
	time.Sleep(50 * time.Millisecond)
	assert.True(t, c.Unmounted())
	assert.Empty(t, c.Snapshot().Output)
	assert.NotContains(t, sink.phases(), diagram.PhaseRendered)
	assert.ErrorIs(t, c.SetInput(ctx, "input-B"), ErrUnmounted)
}

func TestCacheHitSkipsEngine(t *testing.T) {
	eng := &fakeEngine{}
	cache := newFakeCache()
	opts := Options{Diagram: "graph TD; A"}
	cache.Set(CacheKey(opts.Engine, opts.Diagram), "<svg>cached</svg>")

	c := New("widget-1", opts, Deps{
		Acquirer: staticAcquirer(eng, nil),
		Cache:    cache,
		NewID:    sequentialIDs(),
	})

	c.Mount(context.Background())
	snap := waitForPhase(t, c, diagram.PhaseRendered)

	assert.Equal(t, "<svg>cached</svg>", snap.Output)
	assert.Empty(t, eng.renderedInputs())
}

func TestDebugBypassesCache(t *testing.T) {
	eng := &fakeEngine{}
	cache := newFakeCache()
	opts := Options{Diagram: "graph TD; A", Debug: true}
	cache.Set(CacheKey(opts.Engine, opts.Diagram), "<svg>cached</svg>")

	c := New("widget-1", opts, Deps{
		Acquirer: staticAcquirer(eng, nil),
		Cache:    cache,
		NewID:    sequentialIDs(),
	})

	c.Mount(context.Background())
	snap := waitForPhase(t, c, diagram.PhaseRendered)

	assert.Equal(t, "<svg>graph TD; A</svg>", snap.Output)
	assert.Equal(t, []string{"graph TD; A"}, eng.renderedInputs())
	// Debug renders are not written back either.
	assert.Equal(t, 1, cache.sets)
}

func TestSuccessfulRenderPopulatesCache(t *testing.T) {
	eng := &fakeEngine{}
	cache := newFakeCache()
	c := newTestController(t, "graph TD; A", eng, nil, func(d *Deps) { d.Cache = cache })

	c.Mount(context.Background())
	waitForPhase(t, c, diagram.PhaseRendered)

	svg, ok := cache.Get(CacheKey(diagram.EngineOptions{}, "graph TD; A"))
	assert.True(t, ok)
	assert.Equal(t, "<svg>graph TD; A</svg>", svg)
}

func TestAttemptsAreRecorded(t *testing.T) {
	var mu sync.Mutex
	var records []AttemptRecord
	recorder := recorderFunc(func(rec AttemptRecord) {
		mu.Lock()
		defer mu.Unlock()
		records = append(records, rec)
	})

	eng := &fakeEngine{}
	c := newTestController(t, "graph TD; A", eng, nil, func(d *Deps) { d.Recorder = recorder })

	c.Mount(context.Background())
	waitForPhase(t, c, diagram.PhaseRendered)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(records) == 1
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "widget-1", records[0].WidgetID)
	assert.Equal(t, "graph TD; A", records[0].Input)
	assert.Equal(t, diagram.PhaseRendered, records[0].Outcome)
	assert.NotEmpty(t, records[0].RequestID)
}

type recorderFunc func(rec AttemptRecord)

func (f recorderFunc) RecordAttempt(rec AttemptRecord) { f(rec) }
