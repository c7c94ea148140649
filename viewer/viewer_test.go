package viewer

import (
	"bytes"
	"encoding/json"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hazyhaar/canvasmirror/mirror"
	"github.com/hazyhaar/canvasmirror/snapshot"
)

type stubActivation struct {
	id       string
	state    string
	mode     mirror.Mode
	latest   *snapshot.Snapshot
	triggers int
}

func (s *stubActivation) ID() string                 { return s.id }
func (s *stubActivation) State() string              { return s.state }
func (s *stubActivation) Mode() mirror.Mode          { return s.mode }
func (s *stubActivation) Trigger()                   { s.triggers++ }
func (s *stubActivation) Captures() uint64           { return uint64(s.triggers) }
func (s *stubActivation) Latest() *snapshot.Snapshot { return s.latest }

type stubSource map[string]*stubActivation

func (s stubSource) Get(id string) (Activation, bool) {
	a, ok := s[id]
	if !ok {
		return nil, false
	}
	return a, true
}

func (s stubSource) List() []Activation {
	out := make([]Activation, 0, len(s))
	for _, a := range s {
		out = append(out, a)
	}
	return out
}

func pngSnapshot(t *testing.T) *snapshot.Snapshot {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, 2, 2))); err != nil {
		t.Fatal(err)
	}
	return &snapshot.Snapshot{
		ID:        "cap_1",
		Format:    snapshot.FormatPNG,
		DataURL:   snapshot.EncodeDataURL(snapshot.FormatPNG, buf.Bytes()),
		Timestamp: 1708700000000,
	}
}

func newServer(t *testing.T, src Source) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(New(src, nil).Router())
	t.Cleanup(srv.Close)
	return srv
}

func TestHealthz(t *testing.T) {
	srv := newServer(t, stubSource{})
	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: got %d", resp.StatusCode)
	}
}

func TestMirrorStatus(t *testing.T) {
	src := stubSource{
		"m1": {id: "m1", state: "active_manual", mode: mirror.ModeManual, latest: pngSnapshot(t)},
	}
	srv := newServer(t, src)

	resp, err := http.Get(srv.URL + "/mirrors/m1")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var st struct {
		ID     string `json:"id"`
		State  string `json:"state"`
		Mode   string `json:"mode"`
		LastAt int64  `json:"last_capture_at"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatal(err)
	}
	if st.ID != "m1" || st.Mode != "manual" || st.LastAt != 1708700000000 {
		t.Errorf("status: %+v", st)
	}
}

func TestMirrorImage(t *testing.T) {
	snap := pngSnapshot(t)
	src := stubSource{"m1": {id: "m1", mode: mirror.ModeManual, latest: snap}}
	srv := newServer(t, src)

	resp, err := http.Get(srv.URL + "/mirrors/m1/image")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("content type: got %q", ct)
	}
	if _, err := png.Decode(resp.Body); err != nil {
		t.Errorf("body is not a png: %v", err)
	}
}

func TestMirrorImage_NoCaptureYet(t *testing.T) {
	src := stubSource{"m1": {id: "m1", mode: mirror.ModeManual}}
	srv := newServer(t, src)

	resp, err := http.Get(srv.URL + "/mirrors/m1/image")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status: got %d, want 404", resp.StatusCode)
	}
}

func TestTrigger_ManualQueues(t *testing.T) {
	act := &stubActivation{id: "m1", mode: mirror.ModeManual}
	srv := newServer(t, stubSource{"m1": act})

	resp, err := http.Post(srv.URL+"/mirrors/m1/trigger", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status: got %d, want 202", resp.StatusCode)
	}
	if act.triggers != 1 {
		t.Errorf("triggers: got %d, want 1", act.triggers)
	}
}

func TestTrigger_PeriodicConflicts(t *testing.T) {
	act := &stubActivation{id: "m1", mode: mirror.ModePeriodic}
	srv := newServer(t, stubSource{"m1": act})

	resp, err := http.Post(srv.URL+"/mirrors/m1/trigger", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status: got %d, want 409", resp.StatusCode)
	}
	if act.triggers != 0 {
		t.Errorf("triggers: got %d, want 0", act.triggers)
	}
}

func TestUnknownMirror(t *testing.T) {
	srv := newServer(t, stubSource{})
	for _, path := range []string{"/mirrors/nope", "/mirrors/nope/image"} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("%s: got %d, want 404", path, resp.StatusCode)
		}
	}
}
