package sink

import (
	"context"

	"github.com/hazyhaar/canvasmirror/snapshot"
)

// CaptureFunc is called for each capture (in-process, zero serialisation).
type CaptureFunc func(ctx context.Context, snap snapshot.Snapshot) error

// Callback delivers captures via a Go function call. This is the in-process
// path: when the consumer lives in the same binary, records arrive as
// function arguments with no serialisation overhead.
type Callback struct {
	onCapture CaptureFunc
}

// NewCallback creates a Callback sink. A nil handler makes it a no-op.
func NewCallback(onCapture CaptureFunc) *Callback {
	return &Callback{onCapture: onCapture}
}

func (c *Callback) Send(ctx context.Context, snap snapshot.Snapshot) error {
	if c.onCapture != nil {
		return c.onCapture(ctx, snap)
	}
	return nil
}

func (c *Callback) Close() error { return nil }
