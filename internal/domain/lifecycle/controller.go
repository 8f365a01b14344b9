// Package lifecycle implements the asynchronous lifecycle controller for
// diagram widget instances: discovery of the shared rendering engine,
// one-time configuration, and serialized re-rendering on input change.
//
// Transitions are driven by two independent triggers, mount and input
// change. Render attempts for one instance are never issued concurrently;
// while an attempt is in flight, at most the newest pending input is queued
// and started after the in-flight attempt settles (latest-wins).
package lifecycle

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/AtRiskMedia/diagram-go/internal/domain/entities/diagram"
)

// Engine is the slice of the rendering engine contract the controller needs.
type Engine interface {
	Configure(ctx context.Context, opts diagram.EngineOptions) error
	Render(ctx context.Context, req diagram.RenderRequest) (string, error)
}

// Acquirer resolves the process-wide shared engine handle.
type Acquirer interface {
	Acquire(ctx context.Context) (Engine, error)
}

// AcquirerFunc adapts a function to the Acquirer interface.
type AcquirerFunc func(ctx context.Context) (Engine, error)

// Acquire calls the wrapped function.
func (f AcquirerFunc) Acquire(ctx context.Context) (Engine, error) { return f(ctx) }

// RenderCache caches serialized markup keyed by input and engine options.
type RenderCache interface {
	Get(key string) (string, bool)
	Set(key, svg string)
}

// TransitionSink receives the read-only snapshot on every phase transition.
type TransitionSink interface {
	PublishTransition(snap diagram.Snapshot)
}

// AttemptRecord describes one settled render attempt.
type AttemptRecord struct {
	WidgetID  string
	RequestID string
	Input     string
	Outcome   diagram.Phase // PhaseRendered or PhaseFailed
	ErrorKind diagram.ErrorKind
	Message   string
	Duration  time.Duration
	CacheHit  bool
	At        time.Time
}

// AttemptRecorder persists settled render attempts.
type AttemptRecorder interface {
	RecordAttempt(rec AttemptRecord)
}

// Options are the widget construction parameters supplied by the caller.
type Options struct {
	Diagram string                // required diagram-description text
	Debug   bool                  // verbose diagnostics, bypasses the render cache
	Classes string                // presentation styling hook, passed through unchanged
	Engine  diagram.EngineOptions // applied to the engine exactly once per instance
}

// Deps are the collaborators injected into a controller.
type Deps struct {
	Acquirer Acquirer
	Cache    RenderCache     // optional
	Sink     TransitionSink  // optional
	Recorder AttemptRecorder // optional
	NewID    func() string   // render attempt id generator; required
	Now      func() time.Time
}

// ErrUnmounted is returned by operations on an unmounted controller.
var ErrUnmounted = fmt.Errorf("widget instance is unmounted")

// Controller drives one widget instance through its lifecycle phases.
// All state is owned exclusively by the instance and mutated only under mu.
type Controller struct {
	mu sync.Mutex

	id      string
	opts    Options
	deps    Deps
	created time.Time

	phase         diagram.Phase
	engine        Engine
	input         string // current desired input
	lastSubmitted string // last input submitted to the engine
	output        *diagram.RenderOutput
	errRec        *diagram.ErrorRecord

	rendering  bool    // a render attempt is in flight
	queued     *string // newest input received while rendering; supersedes intermediates
	attemptID  string  // id of the in-flight attempt, for staleness checks
	unmounted  bool    // discard any result resolving after this is set
	lastActive time.Time
}

// New creates an unmounted controller for one widget instance.
func New(id string, opts Options, deps Deps) *Controller {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	now := deps.Now()
	return &Controller{
		id:         id,
		opts:       opts,
		deps:       deps,
		created:    now,
		lastActive: now,
		phase:      diagram.PhaseUninitialized,
		input:      opts.Diagram,
	}
}

// ID returns the widget instance identifier.
func (c *Controller) ID() string { return c.id }

// Classes returns the presentation styling hook, unchanged.
func (c *Controller) Classes() string { return c.opts.Classes }

// LastActive reports the last time the instance was interacted with.
func (c *Controller) LastActive() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActive
}

// Snapshot returns the read-only view published to the presentation layer.
func (c *Controller) Snapshot() diagram.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() diagram.Snapshot {
	snap := diagram.Snapshot{
		WidgetID: c.id,
		Phase:    c.phase,
		Error:    c.errRec,
	}
	if c.output != nil {
		snap.Output = c.output.SVG
	}
	return snap
}

// Mount transitions Uninitialized -> Initializing immediately and starts
// engine acquisition plus one-time configuration in the background. The
// supplied context must outlive the instance; it bounds all engine calls.
func (c *Controller) Mount(ctx context.Context) {
	c.mu.Lock()
	if c.unmounted || c.phase != diagram.PhaseUninitialized {
		c.mu.Unlock()
		return
	}
	c.phase = diagram.PhaseInitializing
	c.touchLocked()
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.publish(snap)
	go c.initialize(ctx)
}

// initialize acquires the shared engine and configures it exactly once for
// this instance. Loader or configuration failure is terminal until remount.
func (c *Controller) initialize(ctx context.Context) {
	eng, err := c.deps.Acquirer.Acquire(ctx)
	if err != nil {
		c.failInit(diagram.ClassifyAcquisitionError(err), err)
		return
	}

	if err := eng.Configure(ctx, c.opts.Engine); err != nil {
		c.failInit(diagram.ErrEngineInitFailed, err)
		return
	}

	c.mu.Lock()
	if c.unmounted {
		c.mu.Unlock()
		return
	}
	c.engine = eng
	c.phase = diagram.PhaseReady
	snap := c.snapshotLocked()

	// First entry to Ready with a non-blank input starts the first render.
	var started bool
	if !diagram.IsBlank(c.input) {
		c.startRenderLocked(ctx, c.input)
		started = true
	}
	var renderSnap diagram.Snapshot
	if started {
		renderSnap = c.snapshotLocked()
	}
	c.mu.Unlock()

	c.publish(snap)
	if started {
		c.publish(renderSnap)
	}
}

// failInit records a terminal initialization failure.
func (c *Controller) failInit(kind diagram.ErrorKind, err error) {
	c.mu.Lock()
	if c.unmounted {
		c.mu.Unlock()
		return
	}
	c.phase = diagram.PhaseFailed
	c.errRec = &diagram.ErrorRecord{Kind: kind, Message: err.Error()}
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.publish(snap)
}

// SetInput supplies a new diagram-description text. Blank input is a no-op;
// input identical (after trimming) to the last submitted one is a no-op.
// While a render is in flight the newest input is queued, superseding any
// intermediate ones.
func (c *Controller) SetInput(ctx context.Context, text string) error {
	c.mu.Lock()

	if c.unmounted {
		c.mu.Unlock()
		return ErrUnmounted
	}

	c.input = text
	c.touchLocked()

	switch c.phase {
	case diagram.PhaseUninitialized, diagram.PhaseInitializing:
		// Picked up on first entry to Ready.
		c.mu.Unlock()
		return nil
	case diagram.PhaseFailed:
		if c.errRec != nil && c.errRec.Kind != diagram.ErrRenderFailed {
			// Initialization failures are terminal until remount.
			c.mu.Unlock()
			return nil
		}
	}

	if diagram.IsBlank(text) {
		c.mu.Unlock()
		return nil
	}
	if strings.TrimSpace(text) == strings.TrimSpace(c.lastSubmitted) {
		c.mu.Unlock()
		return nil
	}

	if c.rendering {
		queued := text
		c.queued = &queued
		c.mu.Unlock()
		return nil
	}

	c.startRenderLocked(ctx, text)
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.publish(snap)
	return nil
}

// startRenderLocked begins a new render attempt. Caller holds mu and has
// verified no attempt is in flight.
func (c *Controller) startRenderLocked(ctx context.Context, text string) {
	attemptID := c.deps.NewID()
	c.attemptID = attemptID
	c.rendering = true
	c.phase = diagram.PhaseRendering
	c.errRec = nil

	go c.runRender(ctx, attemptID, text)
}

// runRender executes one render attempt outside the lock and settles it.
func (c *Controller) runRender(ctx context.Context, attemptID, text string) {
	start := c.deps.Now()

	var (
		svg      string
		err      error
		cacheHit bool
	)

	cacheKey := c.cacheKey(text)
	if c.deps.Cache != nil && !c.opts.Debug {
		if cached, ok := c.deps.Cache.Get(cacheKey); ok {
			svg, cacheHit = cached, true
		}
	}

	if !cacheHit {
		// The engine receives the input verbatim; no preprocessing beyond
		// what its own security posture performs.
		req := diagram.RenderRequest{ID: attemptID, Text: text}
		svg, err = c.engine.Render(ctx, req)
	}

	// An empty serialized output is treated as a failed attempt.
	if err == nil && strings.TrimSpace(svg) == "" {
		err = fmt.Errorf("engine returned no usable output")
	}

	c.settleRender(attemptID, text, svg, err, cacheHit, c.deps.Now().Sub(start), ctx)
}

// settleRender applies the result of a settled attempt, discarding stale or
// post-unmount results, then starts the queued input if one is waiting.
func (c *Controller) settleRender(attemptID, text, svg string, renderErr error, cacheHit bool, duration time.Duration, ctx context.Context) {
	c.mu.Lock()

	// Results arriving after unmount are never applied.
	if c.unmounted {
		c.mu.Unlock()
		return
	}

	// A result from a superseded attempt is never applied over a newer one.
	if attemptID != c.attemptID {
		c.mu.Unlock()
		return
	}

	c.rendering = false
	c.lastSubmitted = text

	var rec AttemptRecord
	if renderErr != nil {
		c.phase = diagram.PhaseFailed
		c.errRec = &diagram.ErrorRecord{
			Kind:    diagram.ErrRenderFailed,
			Message: renderErr.Error(),
			Input:   text,
		}
		c.output = nil
		rec = AttemptRecord{
			WidgetID: c.id, RequestID: attemptID, Input: text,
			Outcome: diagram.PhaseFailed, ErrorKind: diagram.ErrRenderFailed,
			Message: renderErr.Error(), Duration: duration, At: c.deps.Now(),
		}
	} else {
		c.phase = diagram.PhaseRendered
		c.errRec = nil
		c.output = &diagram.RenderOutput{
			SVG:        svg,
			RequestID:  attemptID,
			RenderedAt: c.deps.Now(),
		}
		if c.deps.Cache != nil && !cacheHit && !c.opts.Debug {
			c.deps.Cache.Set(c.cacheKey(text), svg)
		}
		rec = AttemptRecord{
			WidgetID: c.id, RequestID: attemptID, Input: text,
			Outcome: diagram.PhaseRendered, Duration: duration,
			CacheHit: cacheHit, At: c.deps.Now(),
		}
	}

	snap := c.snapshotLocked()

	// Latest-wins: start the queued input only after this attempt settled.
	var queuedSnap *diagram.Snapshot
	if q := c.queued; q != nil {
		c.queued = nil
		if !diagram.IsBlank(*q) && strings.TrimSpace(*q) != strings.TrimSpace(c.lastSubmitted) {
			c.startRenderLocked(ctx, *q)
			qs := c.snapshotLocked()
			queuedSnap = &qs
		}
	}
	c.mu.Unlock()

	if c.deps.Recorder != nil {
		c.deps.Recorder.RecordAttempt(rec)
	}
	c.publish(snap)
	if queuedSnap != nil {
		c.publish(*queuedSnap)
	}
}

// Unmount discards the relevance of any in-flight work. A result arriving
// after unmount is dropped, never applied.
func (c *Controller) Unmount() {
	c.mu.Lock()
	c.unmounted = true
	c.queued = nil
	c.mu.Unlock()
}

// Unmounted reports whether the instance has been unmounted.
func (c *Controller) Unmounted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.unmounted
}

func (c *Controller) publish(snap diagram.Snapshot) {
	if c.deps.Sink != nil {
		c.deps.Sink.PublishTransition(snap)
	}
}

func (c *Controller) touchLocked() {
	c.lastActive = c.deps.Now()
}

func (c *Controller) cacheKey(text string) string {
	return CacheKey(c.opts.Engine, text)
}

// CacheKey derives the render cache key from the input and the engine
// options that shape the output.
func CacheKey(opts diagram.EngineOptions, text string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%s", opts.Theme, opts.FontFamily, opts.SecurityLevel, text)
	return hex.EncodeToString(h.Sum(nil))
}
