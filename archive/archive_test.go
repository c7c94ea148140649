package archive

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/canvasmirror/snapshot"
)

func openTest(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "captures.db"), opts...)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func snapN(act string, n int) snapshot.Snapshot {
	return snapshot.Snapshot{
		ID:           fmt.Sprintf("cap_%04d", n),
		ActivationID: act,
		PageURL:      "https://example.com/draw",
		Surface:      "#mycanvas",
		Format:       snapshot.FormatJPEG,
		DataURL:      fmt.Sprintf("data:image/jpeg;base64,AAA%d", n),
		Timestamp:    int64(1708700000000 + n),
	}
}

func TestSendAndLatest(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		if err := s.Send(ctx, snapN("act_1", i)); err != nil {
			t.Fatal(err)
		}
	}

	latest, err := s.Latest(ctx, "act_1")
	if err != nil {
		t.Fatal(err)
	}
	if latest == nil || latest.ID != "cap_0003" {
		t.Fatalf("latest: got %+v", latest)
	}
	if latest.Format != snapshot.FormatJPEG || latest.Surface != "#mycanvas" {
		t.Errorf("fields: %+v", latest)
	}
}

func TestLatest_Empty(t *testing.T) {
	s := openTest(t)
	latest, err := s.Latest(context.Background(), "act_missing")
	if err != nil {
		t.Fatal(err)
	}
	if latest != nil {
		t.Fatalf("expected nil, got %+v", latest)
	}
}

func TestList_NewestFirstAndIsolatedByActivation(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		if err := s.Send(ctx, snapN("act_1", i)); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.Send(ctx, snapN("act_2", 99)); err != nil {
		t.Fatal(err)
	}

	list, err := s.List(ctx, "act_1", 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 3 {
		t.Fatalf("list: got %d entries", len(list))
	}
	if list[0].ID != "cap_0005" || list[2].ID != "cap_0003" {
		t.Errorf("order: got %s .. %s", list[0].ID, list[2].ID)
	}
	for _, snap := range list {
		if snap.ActivationID != "act_1" {
			t.Errorf("leaked activation: %s", snap.ActivationID)
		}
	}
}

func TestKeep_PrunesHistory(t *testing.T) {
	s := openTest(t, WithKeep(2))
	ctx := context.Background()

	for i := 1; i <= 6; i++ {
		if err := s.Send(ctx, snapN("act_1", i)); err != nil {
			t.Fatal(err)
		}
	}

	n, err := s.Count(ctx, "act_1")
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("count after prune: got %d, want 2", n)
	}
	latest, err := s.Latest(ctx, "act_1")
	if err != nil {
		t.Fatal(err)
	}
	if latest.ID != "cap_0006" {
		t.Errorf("latest survived prune: got %s", latest.ID)
	}
}
