// Package dom is the minimal document surface the mirror engine drives.
// The engine never touches go-rod directly; it speaks these interfaces so
// the scheduling and lifecycle logic is testable without a browser.
package dom

import (
	"context"

	"github.com/hazyhaar/canvasmirror/snapshot"
)

// Document is one page. QuerySurface performs a single, non-waiting lookup;
// retry policy belongs to the caller.
type Document interface {
	// QuerySurface returns the element matching the CSS selector, or
	// (nil, nil) when no such element exists yet.
	QuerySurface(ctx context.Context, selector string) (Surface, error)

	// URL of the page, for capture records.
	URL() string
}

// Surface is a handle to a drawable element already present in the document.
// The handle is weak: the owning document may remove or replace the element
// at any time, so validity is re-checked before every use.
type Surface interface {
	// Drawable reports whether the element can encode its pixel content
	// (i.e. it is a canvas).
	Drawable(ctx context.Context) (bool, error)

	// Connected reports whether the element is still attached to the
	// document.
	Connected(ctx context.Context) (bool, error)

	// SetAttribute sets one attribute, overwriting any existing value.
	SetAttribute(ctx context.Context, name, value string) error

	// AddClasses appends class tokens to the element's class list.
	AddClasses(ctx context.Context, tokens []string) error

	// SetStyle appends CSS declarations to the element's inline style.
	SetStyle(ctx context.Context, css string) error

	// InsertMirror creates the mirror image element described by spec and
	// inserts it into the document immediately after this surface.
	InsertMirror(ctx context.Context, spec MirrorSpec) (Image, error)

	// Capture defers to the next frame boundary, re-validates that both
	// this surface and the mirror image identified by mirrorID are still in
	// the document, encodes the surface's pixel content at the given format
	// and quality, and assigns the result to the image's source. It returns
	// the data URL, or "" when the capture was abandoned because either
	// element was gone. The whole continuation is atomic with respect to
	// the page: no Go-side state is read after the frame boundary.
	Capture(ctx context.Context, mirrorID string, format snapshot.Format, quality float64) (string, error)

	// Describe returns a short human identifier for capture records.
	Describe() string
}

// Image is the engine's handle to the mirror image it created.
type Image interface {
	Connected(ctx context.Context) (bool, error)

	// Source returns the image's current src value.
	Source(ctx context.Context) (string, error)
}

// MirrorSpec describes the mirror image to create.
type MirrorSpec struct {
	ID      string // unique per activation; written as a data attribute
	Classes []string
	Style   string
}
