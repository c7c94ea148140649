package sink

import (
	"context"
	"log/slog"

	"github.com/hazyhaar/canvasmirror/snapshot"
)

// Router fans out captures to all configured sinks. One sink error does not
// block the others; errors are logged and the first encountered is returned.
type Router struct {
	sinks  []Sink
	logger *slog.Logger
}

// NewRouter creates a fan-out router delivering to all sinks.
func NewRouter(logger *slog.Logger, sinks ...Sink) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{sinks: sinks, logger: logger}
}

func (r *Router) Send(ctx context.Context, snap snapshot.Snapshot) error {
	var firstErr error
	for _, s := range r.sinks {
		if err := s.Send(ctx, snap); err != nil {
			r.logger.Warn("sink: send capture failed", "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (r *Router) Close() error {
	var firstErr error
	for _, s := range r.sinks {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
