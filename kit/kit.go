// Package kit holds the small transport glue shared by canvasmirror's MCP
// tool surfaces.
package kit

import (
	"context"
)

// Endpoint is a transport-agnostic operation: typed request in, typed
// response out. Tool registrations wrap Endpoints with decode functions.
type Endpoint func(ctx context.Context, req any) (any, error)

// ObjectSchema builds a JSON Schema object with type "object".
func ObjectSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}
