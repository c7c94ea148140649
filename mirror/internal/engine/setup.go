package engine

import (
	"fmt"
	"sort"

	"github.com/hazyhaar/canvasmirror/mirror/internal/dom"
)

// setup performs the one-time mirror installation after resolution: surface
// attributes and classes, positioning styles, and the mirror image inserted
// immediately after the surface. It runs exactly once per activation, gated
// by the resolving → active transition.
func (e *Engine) setup(surface dom.Surface) (dom.Image, error) {
	// Attributes in deterministic order, overwriting existing values.
	names := make([]string, 0, len(e.cfg.SurfaceAttrs))
	for name := range e.cfg.SurfaceAttrs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := surface.SetAttribute(e.ctx, name, e.cfg.SurfaceAttrs[name]); err != nil {
			return nil, fmt.Errorf("surface attribute: %w", err)
		}
	}

	if err := surface.AddClasses(e.ctx, e.cfg.SurfaceClasses); err != nil {
		return nil, fmt.Errorf("surface classes: %w", err)
	}
	if err := surface.SetStyle(e.ctx, e.cfg.SurfaceStyle); err != nil {
		return nil, fmt.Errorf("surface style: %w", err)
	}

	image, err := surface.InsertMirror(e.ctx, dom.MirrorSpec{
		ID:      e.cfg.ActivationID,
		Classes: e.cfg.ImageClasses,
		Style:   e.cfg.ImageStyle,
	})
	if err != nil {
		return nil, fmt.Errorf("insert mirror: %w", err)
	}
	return image, nil
}
