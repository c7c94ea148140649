package mirror

import (
	"io"
	"log/slog"

	"github.com/hazyhaar/canvasmirror/mirror/internal/sink"
)

// Sink is the output interface for capture records.
type Sink = sink.Sink

// CaptureFunc is called for each capture by a callback sink.
type CaptureFunc = sink.CaptureFunc

// NewStdoutSink creates a stdout JSON-lines sink.
func NewStdoutSink(w io.Writer) Sink {
	return sink.NewStdout(w)
}

// NewWebhookSink creates a webhook POST sink with retry.
func NewWebhookSink(url string, logger *slog.Logger) Sink {
	if logger == nil {
		return sink.NewWebhook(url)
	}
	return sink.NewWebhook(url, sink.WithWebhookLogger(logger))
}

// NewCallbackSink creates an in-process callback sink, no serialisation.
func NewCallbackSink(onCapture CaptureFunc) Sink {
	return sink.NewCallback(onCapture)
}
