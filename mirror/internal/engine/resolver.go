package engine

import (
	"errors"
	"time"

	"github.com/hazyhaar/canvasmirror/mirror/internal/dom"
)

// ErrResolveExhausted is returned when a bounded resolve policy runs out of
// attempts. With the default unbounded policy it is never produced.
var ErrResolveExhausted = errors.New("engine: resolve attempts exhausted")

// resolveDiagEvery is how many failed attempts pass between progress logs,
// so an unbounded retry against a surface that never appears stays visible.
const resolveDiagEvery = 50

// resolve attempts to obtain a valid surface handle, retrying on a fixed
// delay until the reference resolves to a connected drawable element, the
// context is cancelled, or a bounded policy is exhausted. "Not found yet"
// is not an error: it is a retry.
func (e *Engine) resolve() (dom.Surface, error) {
	attempts := 0
	for {
		s, found := e.resolveOnce()
		if found {
			return s, nil
		}

		attempts++
		if attempts%resolveDiagEvery == 0 {
			e.logger.Warn("engine: surface still unresolved",
				"activation", e.cfg.ActivationID,
				"ref", e.cfg.Ref.String(),
				"attempts", attempts)
		}
		if e.cfg.ResolveMaxAttempts > 0 && attempts >= e.cfg.ResolveMaxAttempts {
			return nil, ErrResolveExhausted
		}

		select {
		case <-e.ctx.Done():
			return nil, e.ctx.Err()
		case <-time.After(e.cfg.ResolveEvery):
		}
	}
}

// resolveOnce performs a single resolution attempt. Lookup errors and
// non-drawable matches count as "not found yet"; the caller retries.
func (e *Engine) resolveOnce() (dom.Surface, bool) {
	s, err := e.cfg.Ref.Resolve(e.ctx, e.doc)
	if err != nil {
		e.logger.Debug("engine: resolve attempt failed",
			"activation", e.cfg.ActivationID, "error", err)
		return nil, false
	}
	if s == nil {
		return nil, false
	}

	ok, err := s.Drawable(e.ctx)
	if err != nil || !ok {
		return nil, false
	}
	ok, err = s.Connected(e.ctx)
	if err != nil || !ok {
		return nil, false
	}
	return s, true
}
