package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/voltplay/driveworld/game/engine"
	"github.com/voltplay/driveworld/game/store"
)

func sampleSnapshot() *engine.Snapshot {
	grid := make([]*engine.Plot, 0, 4)
	for r := 0; r < 2; r++ {
		for c := 0; c < 2; c++ {
			grid = append(grid, &engine.Plot{
				ID:  fmt.Sprintf("%d-%d", r, c),
				Row: r,
				Col: c,
			})
		}
	}
	grid[0].Owner = "alice-pubkey"
	grid[0].Charger = &engine.Charger{RatePerSec: 2, Staked: 100, Owner: "alice-pubkey"}
	grid[1].Owner = "bob-pubkey"

	return &engine.Snapshot{
		Version: engine.SnapshotVersion,
		Grid:    grid,
		Rows:    2,
		Cols:    2,
		User:    &engine.Identity{Pubkey: "alice-pubkey", Label: "Alice"},
		Balances: map[string]*engine.Balance{
			"alice-pubkey": {Points: 350, Earned: 0, Spent: 150},
			"bob-pubkey":   {Points: 4, Earned: 0, Spent: 496},
		},
		Sessions: map[string]*engine.Session{
			"0-0": {Driver: "bob-pubkey", StartTs: time.Now(), RatePerSec: 2},
		},
		Events: []engine.Event{
			{ID: "ev-1", Ts: time.Now(), Kind: engine.EventSession, Text: "Charging session started on 0-0"},
		},
	}
}

func TestAnalyzeSnapshot(t *testing.T) {
	var out strings.Builder
	analyzeSnapshot(&out, sampleSnapshot())
	report := out.String()

	for _, want := range []string{
		"Grid: 2 x 2 (4 plots)",
		"Owned plots: 2 (50%)",
		"Chargers deployed: 1 (100 POINTS staked)",
		"Active identity: Alice (alice-pubkey)",
		"Points in circulation: 354",
		"1. alice-pubkey: 350 POINTS",
		"Active sessions: 1",
		"driver bob-pubkey has 4 POINTS at 2/s",
		"Latest: [session] Charging session started on 0-0",
	} {
		if !strings.Contains(report, want) {
			t.Errorf("report missing %q\nreport:\n%s", want, report)
		}
	}
}

func TestAnalyzeSnapshot_FundedSessions(t *testing.T) {
	snap := sampleSnapshot()
	snap.Balances["bob-pubkey"].Points = 200

	var out strings.Builder
	analyzeSnapshot(&out, snap)

	if !strings.Contains(out.String(), "All session drivers are funded") {
		t.Errorf("expected funded-sessions line, got:\n%s", out.String())
	}
}

func TestLoadSnapshot_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "world.json")
	st, err := store.NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	if err := st.Save(sampleSnapshot()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	snap, err := loadSnapshot("file", path)
	if err != nil {
		t.Fatalf("loadSnapshot failed: %v", err)
	}
	if len(snap.Grid) != 4 {
		t.Errorf("expected 4 plots, got %d", len(snap.Grid))
	}
}

func TestLoadSnapshot_UnknownBackend(t *testing.T) {
	if _, err := loadSnapshot("redis", "world.json"); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestSecondsLeft(t *testing.T) {
	if got := secondsLeft(10, 2); got != 5 {
		t.Errorf("expected 5 seconds, got %d", got)
	}
	if got := secondsLeft(10, 0); got != 0 {
		t.Errorf("expected 0 seconds for zero rate, got %d", got)
	}
}
