// Package viewer is the HTTP read surface for running mirrors: activation
// status as JSON and the latest capture as raw image bytes, plus a trigger
// endpoint for manual-mode activations.
package viewer

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/canvasmirror/mirror"
	"github.com/hazyhaar/canvasmirror/snapshot"
)

// Activation is the subset of a mirror activation the viewer serves.
type Activation interface {
	ID() string
	State() string
	Mode() mirror.Mode
	Trigger()
	Captures() uint64
	Latest() *snapshot.Snapshot
}

// Source provides the activations to serve.
type Source interface {
	Get(id string) (Activation, bool)
	List() []Activation
}

// ForEngine adapts a mirror Engine into a Source.
func ForEngine(e *mirror.Engine) Source { return engineSource{e: e} }

type engineSource struct{ e *mirror.Engine }

func (s engineSource) Get(id string) (Activation, bool) {
	a, ok := s.e.Get(id)
	if !ok {
		return nil, false
	}
	return a, true
}

func (s engineSource) List() []Activation {
	acts := s.e.Activations()
	out := make([]Activation, len(acts))
	for i, a := range acts {
		out[i] = a
	}
	return out
}

// Viewer serves the HTTP surface. Mount its Router on any address.
type Viewer struct {
	src    Source
	logger *slog.Logger
}

// New creates a Viewer over the given source.
func New(src Source, logger *slog.Logger) *Viewer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Viewer{src: src, logger: logger}
}

type status struct {
	ID       string `json:"id"`
	State    string `json:"state"`
	Mode     string `json:"mode"`
	Captures uint64 `json:"captures"`
	LastAt   int64  `json:"last_capture_at,omitempty"`
}

func statusOf(a Activation) status {
	st := status{
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

// Router builds the chi router.
func (v *Viewer) Router() chi.Router {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/mirrors", func(w http.ResponseWriter, _ *http.Request) {
		acts := v.src.List()
		out := make([]status, 0, len(acts))
		for _, a := range acts {
			out = append(out, statusOf(a))
		}
		writeJSON(w, http.StatusOK, out)
	})

	r.Route("/mirrors/{id}", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, req *http.Request) {
			a, ok := v.src.Get(chi.URLParam(req, "id"))
			if !ok {
				writeJSON(w, http.StatusNotFound, map[string]string{"error": "no such mirror"})
				return
			}
			writeJSON(w, http.StatusOK, statusOf(a))
		})

		r.Get("/image", func(w http.ResponseWriter, req *http.Request) {
			a, ok := v.src.Get(chi.URLParam(req, "id"))
			if !ok {
				writeJSON(w, http.StatusNotFound, map[string]string{"error": "no such mirror"})
				return
			}
			latest := a.Latest()
			if latest == nil {
				writeJSON(w, http.StatusNotFound, map[string]string{"error": "no capture yet"})
				return
			}
			format, raw, err := snapshot.ParseDataURL(latest.DataURL)
			if err != nil {
				v.logger.Error("viewer: bad data url", "mirror", a.ID(), "error", err)
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "capture unreadable"})
				return
			}
			w.Header().Set("Content-Type", string(format))
			w.WriteHeader(http.StatusOK)
			w.Write(raw)
		})

		r.Post("/trigger", func(w http.ResponseWriter, req *http.Request) {
			a, ok := v.src.Get(chi.URLParam(req, "id"))
			if !ok {
				writeJSON(w, http.StatusNotFound, map[string]string{"error": "no such mirror"})
				return
			}
			if a.Mode() == mirror.ModePeriodic {
				writeJSON(w, http.StatusConflict, map[string]string{"error": "periodic mode: external trigger is inert"})
				return
			}
			a.Trigger()
			writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
		})
	})

	return r
}

// Serve runs the viewer until the server stops.
func (v *Viewer) Serve(addr string) error {
	v.logger.Info("viewer: listening", "addr", addr)
	return http.ListenAndServe(addr, v.Router())
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}
