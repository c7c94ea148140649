package mirror

import (
	"github.com/hazyhaar/canvasmirror/mirror/internal/browser"
	"github.com/hazyhaar/canvasmirror/mirror/internal/engine"
	"github.com/hazyhaar/canvasmirror/snapshot"
)

// Mode is the capture-trigger mode of an activation, fixed at activation
// time: manual (caller-driven) or periodic (timer-driven).
type Mode = engine.Mode

const (
	ModeManual   = engine.ModeManual
	ModePeriodic = engine.ModePeriodic
)

// Activation is one running mirror: one surface, one mirror image, one
// capture mode. It is torn down with Deactivate and never resumes; activate
// again for a fresh one.
type Activation struct {
	id  string
	cfg MirrorConfig
	eng *engine.Engine
	tab *browser.Tab // owned tab in daemon mode, nil when embedding
}

// ID returns the activation identifier.
func (a *Activation) ID() string { return a.id }

// Mode returns the capture-trigger mode.
func (a *Activation) Mode() Mode { return a.eng.Mode() }

// State describes the lifecycle state for status surfaces.
func (a *Activation) State() string { return a.eng.State().String() }

// Trigger requests one capture. In manual mode every call queues exactly
// one frame-deferred capture; calls are deliberately not coalesced, so N
// rapid calls mean N reads. In periodic mode, or before setup has finished,
// Trigger is a no-op.
func (a *Activation) Trigger() { a.eng.Trigger() }

// TriggerFunc returns the external trigger: a live capture trigger in
// manual mode, an inert function in periodic mode.
func (a *Activation) TriggerFunc() func() {
	if a.Mode() == ModePeriodic {
		return func() {}
	}
	return a.eng.Trigger
}

// Latest returns the most recent completed capture, or nil.
func (a *Activation) Latest() *snapshot.Snapshot { return a.eng.Latest() }

// Captures returns how many captures completed.
func (a *Activation) Captures() uint64 { return a.eng.Captures() }

// Done is closed once the activation has fully torn down.
func (a *Activation) Done() <-chan struct{} { return a.eng.Done() }

// Export writes the latest capture to path (see snapshot.ExportFile).
func (a *Activation) Export(path string) (string, error) {
	latest := a.Latest()
	if latest == nil {
		return "", ErrNoCapture
	}
	return latest.ExportFile(path)
}

// Deactivate cancels any pending resolution retry and periodic timer, and
// closes the owned tab if this activation opened one. Idempotent.
func (a *Activation) Deactivate() {
	a.eng.Stop()
	if a.tab != nil {
		a.tab.Close()
	}
}
