package dom

import (
	"context"
	"sync/atomic"
)

// SurfaceRef is a reference to a surface in one of three forms: a CSS
// selector queried against the document, an indirect Ref container whose
// target is filled in later by the embedder, or a direct Surface handle.
// Resolve performs a single attempt; (nil, nil) means "not available yet".
type SurfaceRef interface {
	Resolve(ctx context.Context, doc Document) (Surface, error)
	String() string
}

// Selector resolves by querying the document for a CSS selector match.
type Selector string

func (s Selector) Resolve(ctx context.Context, doc Document) (Surface, error) {
	return doc.QuerySurface(ctx, string(s))
}

func (s Selector) String() string { return string(s) }

// Ref is an indirect surface container: a holder expected to receive the
// element at some later point. Resolution reads its current target on every
// attempt, so a target set after activation is picked up by the retry loop.
type Ref struct {
	target atomic.Pointer[refTarget]
}

type refTarget struct{ s Surface }

// Set stores the referred surface. Safe to call from any goroutine, before
// or after activation.
func (r *Ref) Set(s Surface) {
	r.target.Store(&refTarget{s: s})
}

// Target returns the current referred surface, or nil.
func (r *Ref) Target() Surface {
	t := r.target.Load()
	if t == nil {
		return nil
	}
	return t.s
}

func (r *Ref) Resolve(ctx context.Context, doc Document) (Surface, error) {
	return r.Target(), nil
}

func (r *Ref) String() string { return "ref" }

// Direct wraps an already-held surface handle as a SurfaceRef.
func Direct(s Surface) SurfaceRef { return direct{s: s} }

type direct struct{ s Surface }

func (d direct) Resolve(ctx context.Context, doc Document) (Surface, error) {
	return d.s, nil
}

func (d direct) String() string { return d.s.Describe() }
