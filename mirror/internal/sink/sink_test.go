package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hazyhaar/canvasmirror/snapshot"
)

func testSnap() snapshot.Snapshot {
	return snapshot.Snapshot{
		ID:           "cap_1",
		ActivationID: "act_1",
		Surface:      "#c",
		Format:       snapshot.FormatPNG,
		DataURL:      "data:image/png;base64,AAAA",
		Timestamp:    1708700000000,
	}
}

func TestStdout_JSONLines(t *testing.T) {
	var buf bytes.Buffer
	s := NewStdout(&buf)

	if err := s.Send(context.Background(), testSnap()); err != nil {
		t.Fatal(err)
	}

	var env struct {
		Type string            `json:"type"`
		Data snapshot.Snapshot `json:"data"`
	}
	if err := json.Unmarshal(buf.Bytes(), &env); err != nil {
		t.Fatal(err)
	}
	if env.Type != "capture" {
		t.Errorf("type: got %q", env.Type)
	}
	if env.Data.ID != "cap_1" || env.Data.DataURL != "data:image/png;base64,AAAA" {
		t.Errorf("data: %+v", env.Data)
	}
}

func TestRouter_FanOutAndErrorIsolation(t *testing.T) {
	var delivered []string
	good := NewCallback(func(_ context.Context, snap snapshot.Snapshot) error {
		delivered = append(delivered, snap.ID)
		return nil
	})
	bad := NewCallback(func(_ context.Context, _ snapshot.Snapshot) error {
		return errors.New("boom")
	})

	r := NewRouter(nil, bad, good)
	err := r.Send(context.Background(), testSnap())
	if err == nil {
		t.Error("expected first error to propagate")
	}
	if len(delivered) != 1 || delivered[0] != "cap_1" {
		t.Errorf("good sink not reached: %v", delivered)
	}
}

func TestCallback_NilHandler(t *testing.T) {
	c := NewCallback(nil)
	if err := c.Send(context.Background(), testSnap()); err != nil {
		t.Fatal(err)
	}
}
