package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/voltplay/driveworld/game/engine"
)

func writePreset(t *testing.T, dir, filename, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, filename), []byte(content), 0644); err != nil {
		t.Fatalf("failed to write preset %s: %v", filename, err)
	}
}

func TestLoadConfig_JSON(t *testing.T) {
	dir := t.TempDir()
	writePreset(t, dir, "city.json", `{
		"name": "City Grid",
		"description": "A dense urban world",
		"rows": 10,
		"cols": 10,
		"mint_price": 80,
		"deploy_stake": 150,
		"default_rate_per_sec": 3,
		"seed_points": 600,
		"event_cap": 200
	}`)

	m := NewManager(dir)
	cfg, err := m.LoadConfig("city")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Name != "City Grid" {
		t.Errorf("expected name 'City Grid', got %q", cfg.Name)
	}
	if cfg.Rows != 10 || cfg.Cols != 10 {
		t.Errorf("expected 10x10 grid, got %dx%d", cfg.Rows, cfg.Cols)
	}
	if cfg.MintPrice != 80 {
		t.Errorf("expected mint price 80, got %d", cfg.MintPrice)
	}
}

func TestLoadConfig_YAML(t *testing.T) {
	dir := t.TempDir()
	writePreset(t, dir, "coastal.yaml", `
name: Coastal Run
description: Long thin world along the shore
rows: 4
cols: 20
mint_price: 40
deploy_stake: 90
default_rate_per_sec: 2
seed_points: 450
event_cap: 150
`)

	m := NewManager(dir)
	cfg, err := m.LoadConfig("coastal")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Name != "Coastal Run" {
		t.Errorf("expected name 'Coastal Run', got %q", cfg.Name)
	}
	if cfg.Rows != 4 || cfg.Cols != 20 {
		t.Errorf("expected 4x20 grid, got %dx%d", cfg.Rows, cfg.Cols)
	}
	if cfg.EventCap != 150 {
		t.Errorf("expected event cap 150, got %d", cfg.EventCap)
	}
}

func TestLoadConfig_NotFound(t *testing.T) {
	m := NewManager(t.TempDir())
	if _, err := m.LoadConfig("nope"); !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("expected ErrConfigNotFound, got %v", err)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	dir := t.TempDir()
	writePreset(t, dir, "broken.json", `{
		"name": "Broken",
		"rows": 0,
		"cols": 5,
		"mint_price": 50,
		"deploy_stake": 100,
		"default_rate_per_sec": 2,
		"seed_points": 500
	}`)

	m := NewManager(dir)
	if _, err := m.LoadConfig("broken"); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestLoadConfig_Cached(t *testing.T) {
	dir := t.TempDir()
	writePreset(t, dir, "city.json", validPresetJSON(t, "City"))

	m := NewManager(dir)
	first, err := m.LoadConfig("city")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	// Removing the file should not matter once the preset is cached.
	if err := os.Remove(filepath.Join(dir, "city.json")); err != nil {
		t.Fatalf("failed to remove preset: %v", err)
	}
	second, err := m.LoadConfig("city")
	if err != nil {
		t.Fatalf("cached LoadConfig failed: %v", err)
	}
	if first != second {
		t.Error("expected cached pointer to be returned")
	}

	m.RefreshCache()
	if _, err := m.LoadConfig("city"); !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("expected ErrConfigNotFound after refresh, got %v", err)
	}
}

func TestGetDefault_BuiltIn(t *testing.T) {
	m := NewManager(t.TempDir())
	cfg := m.GetDefault()
	if cfg == nil {
		t.Fatal("expected a built-in default config")
	}
	stock := engine.DefaultWorldConfig()
	if cfg.Rows != stock.Rows || cfg.Cols != stock.Cols {
		t.Errorf("expected stock %dx%d world, got %dx%d", stock.Rows, stock.Cols, cfg.Rows, cfg.Cols)
	}
}

func TestGetDefault_FromPreset(t *testing.T) {
	dir := t.TempDir()
	writePreset(t, dir, "default.json", validPresetJSON(t, "House Default"))

	m := NewManager(dir)
	cfg := m.GetDefault()
	if cfg.Name != "House Default" {
		t.Errorf("expected preset default, got %q", cfg.Name)
	}
}

func TestSetDefault(t *testing.T) {
	dir := t.TempDir()
	writePreset(t, dir, "city.json", validPresetJSON(t, "City"))

	m := NewManager(dir)
	if err := m.SetDefault("city"); err != nil {
		t.Fatalf("SetDefault failed: %v", err)
	}
	if m.GetDefault().Name != "City" {
		t.Errorf("expected default 'City', got %q", m.GetDefault().Name)
	}

	if err := m.SetDefault("missing"); !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("expected ErrConfigNotFound, got %v", err)
	}
}

func TestListConfigs(t *testing.T) {
	dir := t.TempDir()
	writePreset(t, dir, "city.json", validPresetJSON(t, "City"))
	writePreset(t, dir, "coastal.yaml", `
name: Coastal
rows: 4
cols: 20
mint_price: 40
deploy_stake: 90
default_rate_per_sec: 2
seed_points: 450
`)
	writePreset(t, dir, "notes.txt", "not a preset")
	writePreset(t, dir, "broken.json", `{"rows": -1}`)

	m := NewManager(dir)
	infos, err := m.ListConfigs()
	if err != nil {
		t.Fatalf("ListConfigs failed: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("expected 2 presets, got %d", len(infos))
	}
	if infos[0].ConfigID != "city" || infos[1].ConfigID != "coastal" {
		t.Errorf("unexpected ordering: %q, %q", infos[0].ConfigID, infos[1].ConfigID)
	}
	if infos[1].Rows != 4 || infos[1].Cols != 20 {
		t.Errorf("expected 4x20 for coastal, got %dx%d", infos[1].Rows, infos[1].Cols)
	}
}

func TestListConfigs_MissingDir(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "does-not-exist"))
	infos, err := m.ListConfigs()
	if err != nil {
		t.Fatalf("ListConfigs failed: %v", err)
	}
	if len(infos) != 0 {
		t.Errorf("expected no presets, got %d", len(infos))
	}
}

func TestSaveConfig(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "presets")
	m := NewManager(dir)

	cfg := engine.DefaultWorldConfig()
	cfg.Name = "Custom"
	if err := m.SaveConfig("custom", cfg); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "custom.json"))
	if err != nil {
		t.Fatalf("failed to read saved preset: %v", err)
	}
	var roundTrip engine.WorldConfig
	if err := json.Unmarshal(data, &roundTrip); err != nil {
		t.Fatalf("saved preset is not valid JSON: %v", err)
	}
	if roundTrip.Name != "Custom" {
		t.Errorf("expected name 'Custom', got %q", roundTrip.Name)
	}

	loaded, err := m.LoadConfig("custom")
	if err != nil {
		t.Fatalf("LoadConfig after save failed: %v", err)
	}
	if loaded.Name != "Custom" {
		t.Errorf("expected cached 'Custom', got %q", loaded.Name)
	}
}

func TestSaveConfig_Invalid(t *testing.T) {
	m := NewManager(t.TempDir())
	bad := engine.DefaultWorldConfig()
	bad.Rows = 0
	if err := m.SaveConfig("bad", bad); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func validPresetJSON(t *testing.T, name string) string {
	t.Helper()
	cfg := engine.DefaultWorldConfig()
	cfg.Name = name
	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("failed to marshal preset: %v", err)
	}
	return string(data)
}
