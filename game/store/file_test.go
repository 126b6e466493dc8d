package store

import (
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/voltplay/driveworld/game/engine"
)

func testSnapshot() *engine.Snapshot {
	ts := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	return &engine.Snapshot{
		Version: engine.SnapshotVersion,
		Rows:    1,
		Cols:    2,
		Grid: []*engine.Plot{
			{ID: "0-0", Row: 0, Col: 0, Owner: "pk1", Charger: &engine.Charger{RatePerSec: 5, Staked: 100, Owner: "pk1"}},
			{ID: "0-1", Row: 0, Col: 1},
		},
		User: &engine.Identity{Pubkey: "pk1", Label: "Ada"},
		Balances: map[string]*engine.Balance{
			"pk1": {Points: 350, Earned: 20, Spent: 170},
			"pk2": {Points: 500},
		},
		Sessions: map[string]*engine.Session{
			"0-0": {Driver: "pk2", StartTs: ts, RatePerSec: 5},
		},
		Events: []engine.Event{
			{ID: "ev2", Ts: ts.Add(time.Second), Kind: engine.EventSession, Text: "pk2 started charging on 0-0"},
			{ID: "ev1", Ts: ts, Kind: engine.EventSystem, Text: "Welcome Ada."},
		},
	}
}

func TestFileStore_RoundTrip(t *testing.T) {
	for _, name := range []string{"world.json", "world.json.zst"} {
		t.Run(name, func(t *testing.T) {
			fs, err := NewFileStore(filepath.Join(t.TempDir(), name))
			if err != nil {
				t.Fatalf("NewFileStore failed: %v", err)
			}

			want := testSnapshot()
			if err := fs.Save(want); err != nil {
				t.Fatalf("Save failed: %v", err)
			}
			got, err := fs.Load()
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if !reflect.DeepEqual(want, got) {
				t.Errorf("Round trip mismatch:\nwant %+v\ngot  %+v", want, got)
			}
		})
	}
}

func TestFileStore_LoadMissing(t *testing.T) {
	fs, err := NewFileStore(filepath.Join(t.TempDir(), "world.json"))
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}

	if fs.Exists() {
		t.Error("Exists should be false before any save")
	}
	if _, err := fs.Load(); !errors.Is(err, ErrNoSnapshot) {
		t.Errorf("Expected ErrNoSnapshot, got %v", err)
	}
}

func TestFileStore_ExistsAndDelete(t *testing.T) {
	fs, err := NewFileStore(filepath.Join(t.TempDir(), "world.json"))
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}

	if err := fs.Save(testSnapshot()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if !fs.Exists() {
		t.Error("Exists should be true after save")
	}

	if err := fs.Delete(); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if fs.Exists() {
		t.Error("Exists should be false after delete")
	}
	// Deleting again is fine.
	if err := fs.Delete(); err != nil {
		t.Errorf("Repeat delete failed: %v", err)
	}
}

func TestFileStore_SaveOverwrites(t *testing.T) {
	fs, err := NewFileStore(filepath.Join(t.TempDir(), "world.json"))
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}

	first := testSnapshot()
	if err := fs.Save(first); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	second := testSnapshot()
	second.Balances["pk1"].Points = 999
	if err := fs.Save(second); err != nil {
		t.Fatalf("Second save failed: %v", err)
	}

	got, err := fs.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got.Balances["pk1"].Points != 999 {
		t.Errorf("Load returned stale snapshot: %+v", got.Balances["pk1"])
	}
}

func TestFileStore_NilSnapshot(t *testing.T) {
	fs, err := NewFileStore(filepath.Join(t.TempDir(), "world.json"))
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	if err := fs.Save(nil); err == nil {
		t.Error("Expected error saving nil snapshot")
	}
}

func TestFileStore_CreatesParentDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deep", "nested", "world.json")
	fs, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	if err := fs.Save(testSnapshot()); err != nil {
		t.Errorf("Save into nested dir failed: %v", err)
	}
}
