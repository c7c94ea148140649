// Package sink defines output backends for mirror captures. Every completed
// capture is delivered to the configured sinks as a snapshot record.
package sink

import (
	"context"

	"github.com/hazyhaar/canvasmirror/snapshot"
)

// Sink is the output interface. Implementations deliver captures to
// different backends (stdout, webhook, SQLite archive, in-process callback).
type Sink interface {
	Send(ctx context.Context, snap snapshot.Snapshot) error
	Close() error
}

type envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}
