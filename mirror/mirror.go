// Package mirror keeps a live copy of a canvas element's pixel content in a
// sibling image element, so screen and session recorders that cannot read
// canvas backing stores see an equivalent artifact.
//
// mirror copies, it does not interpret. Each completed capture is also
// emitted to sinks (stdout, webhook, archive, callback) as a snapshot
// record for consumers like the viewer to process.
package mirror

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-rod/rod"

	"github.com/hazyhaar/canvasmirror/idgen"
	"github.com/hazyhaar/canvasmirror/mirror/internal/browser"
	"github.com/hazyhaar/canvasmirror/mirror/internal/dom"
	"github.com/hazyhaar/canvasmirror/mirror/internal/engine"
	"github.com/hazyhaar/canvasmirror/mirror/internal/sink"
	"github.com/hazyhaar/canvasmirror/snapshot"
)

// Engine is the top-level orchestrator. It manages the browser, the
// per-surface activations, and the sinks. Create one per daemon.
type Engine struct {
	cfg    *Config
	mgr    *browser.Manager
	sinkR  *sink.Router
	logger *slog.Logger
	newID  idgen.Generator

	mu   sync.Mutex
	acts map[string]*Activation
}

// New creates an Engine from configuration. cfg may be nil when every
// activation will be made programmatically via MirrorPage.
func New(cfg *Config, logger *slog.Logger, sinks ...Sink) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	var bcfg browser.Config
	if cfg != nil {
		bcfg = browser.Config{
			RemoteURL: cfg.Browser.Remote,
			Stealth:   cfg.Browser.Stealth,
		}
	}
	bcfg.Logger = logger

	return &Engine{
		cfg:    cfg,
		mgr:    browser.NewManager(bcfg),
		sinkR:  sink.NewRouter(logger, sinks...),
		logger: logger,
		newID:  idgen.Prefixed("act_", idgen.Default),
		acts:   make(map[string]*Activation),
	}
}

// Start launches the browser and activates every configured mirror.
func (e *Engine) Start(ctx context.Context) error {
	if e.cfg == nil || len(e.cfg.Mirrors) == 0 {
		return nil
	}
	if _, err := e.mgr.Start(ctx); err != nil {
		return fmt.Errorf("mirror: start browser: %w", err)
	}

	for _, m := range e.cfg.Mirrors {
		if _, err := e.Mirror(ctx, FromFileMirror(m)); err != nil {
			e.logger.Error("mirror: failed to activate",
				"id", m.ID, "url", m.URL, "error", err)
		}
	}
	return nil
}

// Mirror opens a tab for cfg.URL and activates mirroring on it. The tab's
// lifetime is bound to the activation: Deactivate closes it.
func (e *Engine) Mirror(ctx context.Context, cfg MirrorConfig) (*Activation, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("mirror: config needs a page url (use MirrorPage for an existing page)")
	}
	if _, err := e.mgr.Start(ctx); err != nil {
		return nil, fmt.Errorf("mirror: start browser: %w", err)
	}

	id := cfg.ID
	if id == "" {
		id = e.newID()
	}
	tab, err := e.mgr.OpenTab(ctx, cfg.URL, id)
	if err != nil {
		return nil, fmt.Errorf("mirror: open tab: %w", err)
	}

	act, err := e.activate(ctx, dom.NewRodDocument(tab.Page), cfg, id, tab)
	if err != nil {
		tab.Close()
		return nil, err
	}
	return act, nil
}

// MirrorPage activates mirroring on a page the caller already owns. The
// page stays open after Deactivate.
func (e *Engine) MirrorPage(ctx context.Context, page *rod.Page, cfg MirrorConfig) (*Activation, error) {
	id := cfg.ID
	if id == "" {
		id = e.newID()
	}
	return e.activate(ctx, dom.NewRodDocument(page), cfg, id, nil)
}

func (e *Engine) activate(ctx context.Context, doc dom.Document, cfg MirrorConfig, id string, tab *browser.Tab) (*Activation, error) {
	if cfg.Surface == nil {
		return nil, fmt.Errorf("mirror: surface reference is required")
	}
	if cfg.Format != "" && !cfg.Format.Valid() {
		return nil, fmt.Errorf("mirror: unsupported format %q", cfg.Format)
	}

	ecfg := cfg.normalize(id)
	ecfg.Logger = e.logger
	ecfg.Emit = func(ctx context.Context, snap snapshot.Snapshot) {
		// Router logs per-sink failures; capture flow never blocks on them.
		e.sinkR.Send(ctx, snap)
	}

	eng := engine.New(doc, ecfg)
	act := &Activation{id: id, cfg: cfg, eng: eng, tab: tab}
	eng.Start(ctx)

	e.mu.Lock()
	e.acts[id] = act
	e.mu.Unlock()

	e.logger.Info("mirror: activation started",
		"id", id, "surface", cfg.Surface.String(), "mode", string(eng.Mode()))
	return act, nil
}

// Get returns the activation with the given ID.
func (e *Engine) Get(id string) (*Activation, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	a, ok := e.acts[id]
	return a, ok
}

// Activations returns all current activations, including torn-down ones
// that have not been removed yet.
func (e *Engine) Activations() []*Activation {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*Activation, 0, len(e.acts))
	for _, a := range e.acts {
		out = append(out, a)
	}
	return out
}

// Deactivate tears down one activation and forgets it.
func (e *Engine) Deactivate(id string) bool {
	e.mu.Lock()
	a, ok := e.acts[id]
	delete(e.acts, id)
	e.mu.Unlock()
	if !ok {
		return false
	}
	a.Deactivate()
	e.logger.Info("mirror: activation stopped", "id", id)
	return true
}

// Stop tears down all activations, the sinks, and the browser.
func (e *Engine) Stop() {
	e.mu.Lock()
	acts := e.acts
	e.acts = make(map[string]*Activation)
	e.mu.Unlock()

	for id, a := range acts {
		a.Deactivate()
		e.logger.Info("mirror: activation stopped", "id", id)
	}
	e.sinkR.Close()
	e.mgr.Close()
}

// Activate is the embedding entrypoint: one activation on a caller-owned
// page, default logger, no sinks. The returned activation's TriggerFunc is
// the zero-argument trigger of the manual mode contract.
func Activate(ctx context.Context, page *rod.Page, cfg MirrorConfig) (*Activation, error) {
	e := New(nil, nil)
	return e.MirrorPage(ctx, page, cfg)
}
