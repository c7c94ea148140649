// Package engine implements the per-surface mirroring state machine:
// resolve the surface, set up the mirror image once, then drive captures
// either manually or on a timer until teardown.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hazyhaar/canvasmirror/idgen"
	"github.com/hazyhaar/canvasmirror/mirror/internal/dom"
	"github.com/hazyhaar/canvasmirror/snapshot"
)

// State of an activation. Transitions are linear and terminal:
// uninitialized → resolving → active(manual|periodic) → torn down.
type State int32

const (
	StateUninitialized State = iota
	StateResolving
	StateActiveManual
	StateActivePeriodic
	StateTornDown
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateResolving:
		return "resolving"
	case StateActiveManual:
		return "active_manual"
	case StateActivePeriodic:
		return "active_periodic"
	case StateTornDown:
		return "torn_down"
	}
	return "unknown"
}

// Mode is the capture-trigger mode, derived exactly once per activation from
// the configured interval. The two modes are mutually exclusive: in periodic
// mode the external trigger is inert, in manual mode no timer is armed.
type Mode string

const (
	ModeManual   Mode = "manual"
	ModePeriodic Mode = "periodic"
)

// Config is the engine's normalised, per-activation configuration. It is
// copied at construction and never mutated afterwards.
type Config struct {
	ActivationID string
	Ref          dom.SurfaceRef

	SurfaceClasses []string
	SurfaceAttrs   map[string]string
	SurfaceStyle   string
	ImageClasses   []string
	ImageStyle     string

	Format   snapshot.Format
	Quality  float64
	Interval time.Duration // 0 = manual mode

	ResolveEvery       time.Duration
	ResolveMaxAttempts int // 0 = unbounded

	Logger *slog.Logger
	NewID  idgen.Generator
	Emit   func(context.Context, snapshot.Snapshot)
}

// Engine runs one activation. Create with New, start with Start, tear down
// with Stop. An engine never leaves StateTornDown; activate a fresh one to
// resume mirroring.
type Engine struct {
	cfg    Config
	doc    dom.Document
	logger *slog.Logger
	mode   Mode

	state atomic.Int32

	mu      sync.Mutex
	surface dom.Surface
	image   dom.Image
	latest  *snapshot.Snapshot

	captures atomic.Uint64

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates an engine for one surface. The mode is fixed here, from the
// interval, and never changes for the activation's lifetime.
func New(doc dom.Document, cfg Config) *Engine {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.ResolveEvery <= 0 {
		cfg.ResolveEvery = 100 * time.Millisecond
	}
	if cfg.NewID == nil {
		cfg.NewID = idgen.Prefixed("cap_", idgen.Default)
	}

	mode := ModeManual
	if cfg.Interval > 0 {
		mode = ModePeriodic
	}

	return &Engine{
		cfg:    cfg,
		doc:    doc,
		logger: cfg.Logger,
		mode:   mode,
		done:   make(chan struct{}),
	}
}

// Mode returns the capture-trigger mode.
func (e *Engine) Mode() Mode { return e.mode }

// State returns the current lifecycle state.
func (e *Engine) State() State { return State(e.state.Load()) }

// Captures returns how many captures completed (not abandoned).
func (e *Engine) Captures() uint64 { return e.captures.Load() }

// Latest returns the most recent completed capture, or nil.
func (e *Engine) Latest() *snapshot.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.latest
}

// Done is closed once the engine has fully torn down.
func (e *Engine) Done() <-chan struct{} { return e.done }

// Start begins resolution. It returns immediately; resolution, setup, and
// capture scheduling run on the engine's own goroutine.
func (e *Engine) Start(ctx context.Context) {
	if !e.state.CompareAndSwap(int32(StateUninitialized), int32(StateResolving)) {
		return
	}
	e.ctx, e.cancel = context.WithCancel(ctx)
	go e.run()
}

// Stop tears the activation down: the pending resolution retry and any
// periodic timer are cancelled, and no further document mutation happens.
// A capture already queued at a frame boundary re-validates in-page and
// abandons itself. Stop is idempotent and safe from any goroutine.
func (e *Engine) Stop() {
	prev := State(e.state.Swap(int32(StateTornDown)))
	if prev == StateTornDown {
		return
	}
	if e.cancel != nil {
		e.cancel()
	}
	if prev == StateUninitialized {
		// run() never started; close done ourselves.
		close(e.done)
	}
}

// Trigger requests one capture. In manual mode each call queues exactly one
// frame-deferred capture; rapid calls are deliberately not coalesced. In any
// other state, including periodic mode, Trigger is a no-op.
func (e *Engine) Trigger() {
	if e.State() != StateActiveManual {
		return
	}
	go e.capture()
}

func (e *Engine) run() {
	defer close(e.done)

	surface, err := e.resolve()
	if err != nil {
		e.logger.Info("engine: resolution ended before success",
			"activation", e.cfg.ActivationID, "reason", err)
		e.state.Store(int32(StateTornDown))
		return
	}

	image, err := e.setup(surface)
	if err != nil {
		e.logger.Error("engine: mirror setup failed",
			"activation", e.cfg.ActivationID, "error", err)
		e.state.Store(int32(StateTornDown))
		return
	}

	e.mu.Lock()
	e.surface = surface
	e.image = image
	e.mu.Unlock()

	// Arm the scheduler. The transition is guarded so a Stop that raced the
	// setup wins and the trigger path stays dead.
	next := StateActiveManual
	if e.mode == ModePeriodic {
		next = StateActivePeriodic
	}
	if !e.state.CompareAndSwap(int32(StateResolving), int32(next)) {
		return
	}

	e.logger.Info("engine: mirror active",
		"activation", e.cfg.ActivationID,
		"surface", surface.Describe(),
		"mode", string(e.mode))

	if e.mode == ModeManual {
		<-e.ctx.Done()
		return
	}

	ticker := time.NewTicker(e.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-e.ctx.Done():
			return
		case <-ticker.C:
			e.capture()
		}
	}
}

// capture performs one fire-and-forget capture: frame-deferred read,
// in-page liveness re-check, encode, assign. Failures degrade to inaction.
func (e *Engine) capture() {
	s := e.State()
	if s != StateActiveManual && s != StateActivePeriodic {
		return
	}

	e.mu.Lock()
	surface := e.surface
	e.mu.Unlock()
	if surface == nil {
		return
	}

	dataURL, err := surface.Capture(e.ctx, e.cfg.ActivationID, e.cfg.Format, e.cfg.Quality)
	if err != nil {
		if e.ctx.Err() == nil {
			e.logger.Warn("engine: capture failed",
				"activation", e.cfg.ActivationID, "error", err)
		}
		return
	}
	if dataURL == "" {
		// Surface or mirror image left the document; abandoned silently.
		e.logger.Debug("engine: capture abandoned, stale handles",
			"activation", e.cfg.ActivationID)
		return
	}

	snap := snapshot.Snapshot{
		ID:           e.cfg.NewID(),
		ActivationID: e.cfg.ActivationID,
		PageURL:      e.doc.URL(),
		Surface:      surface.Describe(),
		Format:       e.cfg.Format,
		DataURL:      dataURL,
		Timestamp:    time.Now().UnixMilli(),
	}

	e.mu.Lock()
	e.latest = &snap
	e.mu.Unlock()
	e.captures.Add(1)

	if e.cfg.Emit != nil {
		e.cfg.Emit(e.ctx, snap)
	}
}
