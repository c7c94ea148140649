package dom

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"

	"github.com/hazyhaar/canvasmirror/snapshot"
)

// RodDocument implements Document over a go-rod page.
type RodDocument struct {
	page *rod.Page
}

// NewRodDocument wraps a live page. The page's lifetime is the caller's
// concern; closing it invalidates every handle issued from here.
func NewRodDocument(page *rod.Page) *RodDocument {
	return &RodDocument{page: page}
}

// Page exposes the underlying rod page for callers that need it (tab close).
func (d *RodDocument) Page() *rod.Page { return d.page }

func (d *RodDocument) URL() string {
	info, err := d.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

func (d *RodDocument) QuerySurface(ctx context.Context, selector string) (Surface, error) {
	has, el, err := d.page.Context(ctx).Has(selector)
	if err != nil {
		return nil, fmt.Errorf("dom: query %q: %w", selector, err)
	}
	if !has {
		return nil, nil
	}
	return &RodSurface{doc: d, el: el, desc: selector}, nil
}

// FromElement wraps an element handle the embedder already holds, for the
// direct reference form.
func (d *RodDocument) FromElement(el *rod.Element) Surface {
	return &RodSurface{doc: d, el: el, desc: "element"}
}

// RodSurface implements Surface over a rod element handle.
type RodSurface struct {
	doc  *RodDocument
	el   *rod.Element
	desc string
}

func (s *RodSurface) Describe() string { return s.desc }

func (s *RodSurface) Drawable(ctx context.Context) (bool, error) {
	res, err := s.el.Context(ctx).Eval(`() => this.tagName === 'CANVAS'`)
	if err != nil {
		return false, fmt.Errorf("dom: drawable check: %w", err)
	}
	return res.Value.Bool(), nil
}

func (s *RodSurface) Connected(ctx context.Context) (bool, error) {
	res, err := s.el.Context(ctx).Eval(`() => this.isConnected`)
	if err != nil {
		return false, fmt.Errorf("dom: connected check: %w", err)
	}
	return res.Value.Bool(), nil
}

func (s *RodSurface) SetAttribute(ctx context.Context, name, value string) error {
	_, err := s.el.Context(ctx).Eval(`(n, v) => this.setAttribute(n, v)`, name, value)
	if err != nil {
		return fmt.Errorf("dom: set attribute %q: %w", name, err)
	}
	return nil
}

func (s *RodSurface) AddClasses(ctx context.Context, tokens []string) error {
	if len(tokens) == 0 {
		return nil
	}
	_, err := s.el.Context(ctx).Eval(`(tokens) => this.classList.add(...tokens)`, tokens)
	if err != nil {
		return fmt.Errorf("dom: add classes: %w", err)
	}
	return nil
}

func (s *RodSurface) SetStyle(ctx context.Context, css string) error {
	if css == "" {
		return nil
	}
	_, err := s.el.Context(ctx).Eval(`(css) => { this.style.cssText += ';' + css }`, css)
	if err != nil {
		return fmt.Errorf("dom: set style: %w", err)
	}
	return nil
}

func (s *RodSurface) InsertMirror(ctx context.Context, spec MirrorSpec) (Image, error) {
	_, err := s.el.Context(ctx).Eval(`(id, classes, css) => {
		const img = document.createElement('img');
		img.setAttribute('data-canvas-mirror', id);
		if (classes.length > 0) img.classList.add(...classes);
		if (css) img.style.cssText = css;
		this.insertAdjacentElement('afterend', img);
	}`, spec.ID, spec.Classes, spec.Style)
	if err != nil {
		return nil, fmt.Errorf("dom: insert mirror: %w", err)
	}

	sel := fmt.Sprintf(`img[data-canvas-mirror=%q]`, spec.ID)
	has, el, err := s.doc.page.Context(ctx).Has(sel)
	if err != nil {
		return nil, fmt.Errorf("dom: locate inserted mirror: %w", err)
	}
	if !has {
		return nil, fmt.Errorf("dom: inserted mirror %q not found", spec.ID)
	}
	return &RodImage{el: el}, nil
}

// Capture runs entirely in-page: the rAF deferral, the liveness re-check,
// the toDataURL read, and the src assignment happen inside one evaluated
// promise, so a teardown between frames can never act on stale handles.
func (s *RodSurface) Capture(ctx context.Context, mirrorID string, format snapshot.Format, quality float64) (string, error) {
	res, err := s.el.Context(ctx).Eval(`(id, type, quality) => new Promise(resolve => {
		requestAnimationFrame(() => {
			const img = document.querySelector('img[data-canvas-mirror="' + id + '"]');
			if (!this.isConnected || !img || !img.isConnected) { resolve(''); return }
			const url = this.toDataURL(type, quality);
			img.src = url;
			resolve(url);
		});
	})`, mirrorID, string(format), quality)
	if err != nil {
		return "", fmt.Errorf("dom: capture: %w", err)
	}
	return res.Value.Str(), nil
}

// RodImage implements Image over a rod element handle.
type RodImage struct {
	el *rod.Element
}

func (i *RodImage) Connected(ctx context.Context) (bool, error) {
	res, err := i.el.Context(ctx).Eval(`() => this.isConnected`)
	if err != nil {
		return false, fmt.Errorf("dom: image connected check: %w", err)
	}
	return res.Value.Bool(), nil
}

func (i *RodImage) Source(ctx context.Context) (string, error) {
	res, err := i.el.Context(ctx).Eval(`() => this.src || ''`)
	if err != nil {
		return "", fmt.Errorf("dom: image source: %w", err)
	}
	return res.Value.Str(), nil
}
