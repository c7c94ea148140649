package mirror

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/canvasmirror/kit"
	"github.com/hazyhaar/canvasmirror/snapshot"
)

// RegisterMCP registers the mirror tools on an MCP server.
func (e *Engine) RegisterMCP(srv *mcp.Server) {
	e.registerActivateTool(srv)
	e.registerTriggerTool(srv)
	e.registerExportTool(srv)
	e.registerStatusTool(srv)
	e.registerDeactivateTool(srv)
}

// activationStatus is the JSON shape shared by status-bearing tool
// responses.
type activationStatus struct {
	ID       string `json:"id"`
	State    string `json:"state"`
	Mode     string `json:"mode"`
	Captures uint64 `json:"captures"`
	LastAt   int64  `json:"last_capture_at,omitempty"`
}

func statusOf(a *Activation) activationStatus {
	st := activationStatus{
		ID:       a.ID(),
		State:    a.State(),
		Mode:     string(a.Mode()),
		Captures: a.Captures(),
	}
	if latest := a.Latest(); latest != nil {
		st.LastAt = latest.Timestamp
	}
	return st
}

// --- activate ---

type activateRequest struct {
	ID         string  `json:"id,omitempty"`
	URL        string  `json:"url"`
	Surface    string  `json:"surface"`
	Format     string  `json:"format,omitempty"`
	Quality    float64 `json:"quality,omitempty"`
	IntervalMS int     `json:"interval_ms,omitempty"`
}

func (e *Engine) registerActivateTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "mirror_activate",
		Description: "Open a page and start mirroring a canvas into a sibling image element.",
		InputSchema: kit.ObjectSchema(map[string]any{
			"id":          map[string]any{"type": "string", "description": "Activation ID (generated when omitted)"},
			"url":         map[string]any{"type": "string", "description": "Page URL to open"},
			"surface":     map[string]any{"type": "string", "description": "CSS selector of the canvas"},
			"format":      map[string]any{"type": "string", "enum": []any{"image/jpeg", "image/png", "image/webp"}, "description": "Encoding MIME type (default image/jpeg)"},
			"quality":     map[string]any{"type": "number", "description": "Encoding quality in [0,1]; ignored for image/png"},
			"interval_ms": map[string]any{"type": "integer", "description": "Periodic capture interval; 0 or omitted = manual mode"},
		}, []string{"url", "surface"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*activateRequest)
		act, err := e.Mirror(ctx, MirrorConfig{
			ID:       r.ID,
			URL:      r.URL,
			Surface:  BySelector(r.Surface),
			Format:   snapshot.Format(r.Format),
			Quality:  r.Quality,
			Interval: time.Duration(r.IntervalMS) * time.Millisecond,
		})
		if err != nil {
			return nil, err
		}
		return statusOf(act), nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, func(req *mcp.CallToolRequest) (any, error) {
		var r activateRequest
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &r, nil
	})
}

// --- trigger ---

type idRequest struct {
	ID string `json:"id"`
}

func decodeID(req *mcp.CallToolRequest) (any, error) {
	var r idRequest
	if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func idSchema() map[string]any {
	return kit.ObjectSchema(map[string]any{
		"id": map[string]any{"type": "string", "description": "Activation ID"},
	}, []string{"id"})
}

func (e *Engine) registerTriggerTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "mirror_trigger",
		Description: "Request one capture on a manual-mode activation. Inert in periodic mode.",
		InputSchema: idSchema(),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*idRequest)
		act, ok := e.Get(r.ID)
		if !ok {
			return nil, fmt.Errorf("no activation %q", r.ID)
		}
		act.Trigger()
		return map[string]any{
			"id":    r.ID,
			"mode":  string(act.Mode()),
			"inert": act.Mode() == ModePeriodic,
		}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeID)
}

// --- export ---

type exportRequest struct {
	ID   string `json:"id"`
	Path string `json:"path"`
}

func (e *Engine) registerExportTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "mirror_export",
		Description: "Write the latest capture of an activation to an image file on disk.",
		InputSchema: kit.ObjectSchema(map[string]any{
			"id":   map[string]any{"type": "string", "description": "Activation ID"},
			"path": map[string]any{"type": "string", "description": "Destination file path; extension derived from the format when missing"},
		}, []string{"id", "path"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*exportRequest)
		act, ok := e.Get(r.ID)
		if !ok {
			return nil, fmt.Errorf("no activation %q", r.ID)
		}
		path, err := act.Export(r.Path)
		if err != nil {
			return nil, err
		}
		return map[string]string{"path": path}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, func(req *mcp.CallToolRequest) (any, error) {
		var r exportRequest
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &r, nil
	})
}

// --- status ---

func (e *Engine) registerStatusTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "mirror_status",
		Description: "List activations with their state, mode, and capture counts.",
		InputSchema: kit.ObjectSchema(map[string]any{
			"id": map[string]any{"type": "string", "description": "Limit to one activation"},
		}, nil),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*idRequest)
		if r.ID != "" {
			act, ok := e.Get(r.ID)
			if !ok {
				return nil, fmt.Errorf("no activation %q", r.ID)
			}
			return statusOf(act), nil
		}
		acts := e.Activations()
		out := make([]activationStatus, 0, len(acts))
		for _, a := range acts {
			out = append(out, statusOf(a))
		}
		return out, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeID)
}

// --- deactivate ---

func (e *Engine) registerDeactivateTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "mirror_deactivate",
		Description: "Tear down an activation: cancel retries and timers, close its tab.",
		InputSchema: idSchema(),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*idRequest)
		if !e.Deactivate(r.ID) {
			return nil, fmt.Errorf("no activation %q", r.ID)
		}
		return map[string]string{"id": r.ID, "state": "torn_down"}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeID)
}
