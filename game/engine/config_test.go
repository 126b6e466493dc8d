package engine

import "testing"

func TestDefaultWorldConfig(t *testing.T) {
	cfg := DefaultWorldConfig()
	if err := ValidateWorldConfig(cfg); err != nil {
		t.Fatalf("Default config should validate: %v", err)
	}
	if cfg.Rows != 8 || cfg.Cols != 12 {
		t.Errorf("Expected 8x12 grid, got %dx%d", cfg.Rows, cfg.Cols)
	}
	if cfg.MintPrice != 50 || cfg.DeployStake != 100 || cfg.SeedPoints != 500 {
		t.Errorf("Unexpected default economy: %+v", cfg)
	}
	if cfg.DefaultRatePerSec != 2 {
		t.Errorf("Expected default rate 2, got %d", cfg.DefaultRatePerSec)
	}
}

func TestValidateWorldConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*WorldConfig)
		wantErr bool
	}{
		{"valid", func(c *WorldConfig) {}, false},
		{"missing name", func(c *WorldConfig) { c.Name = "" }, true},
		{"zero rows", func(c *WorldConfig) { c.Rows = 0 }, true},
		{"rows too large", func(c *WorldConfig) { c.Rows = MaxGridDim + 1 }, true},
		{"zero cols", func(c *WorldConfig) { c.Cols = 0 }, true},
		{"negative mint price", func(c *WorldConfig) { c.MintPrice = -1 }, true},
		{"zero mint price", func(c *WorldConfig) { c.MintPrice = 0 }, true},
		{"zero stake", func(c *WorldConfig) { c.DeployStake = 0 }, true},
		{"zero default rate", func(c *WorldConfig) { c.DefaultRatePerSec = 0 }, true},
		{"rate above cap", func(c *WorldConfig) { c.DefaultRatePerSec = MaxRatePerSec + 1 }, true},
		{"negative seed", func(c *WorldConfig) { c.SeedPoints = -1 }, true},
		{"zero seed is fine", func(c *WorldConfig) { c.SeedPoints = 0 }, false},
		{"negative event cap", func(c *WorldConfig) { c.EventCap = -1 }, true},
		{"zero event cap uses default", func(c *WorldConfig) { c.EventCap = 0 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := createTestConfig()
			tt.mutate(cfg)
			err := ValidateWorldConfig(cfg)
			if tt.wantErr && err == nil {
				t.Error("Expected validation error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Unexpected validation error: %v", err)
			}
		})
	}

	if err := ValidateWorldConfig(nil); err == nil {
		t.Error("Expected error for nil config")
	}
}

func TestEventCapFallback(t *testing.T) {
	cfg := createTestConfig()
	cfg.EventCap = 0
	if got := cfg.eventCap(); got != DefaultEventCap {
		t.Errorf("eventCap() = %d, want %d", got, DefaultEventCap)
	}
	cfg.EventCap = 50
	if got := cfg.eventCap(); got != 50 {
		t.Errorf("eventCap() = %d, want 50", got)
	}
}
