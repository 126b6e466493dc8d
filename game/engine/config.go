package engine

import "fmt"

// WorldConfig defines the fixed rules of one world: grid dimensions and the
// point economy. Loaded from JSON or YAML preset files by game/config.
type WorldConfig struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Rows        int    `json:"rows" yaml:"rows"`
	Cols        int    `json:"cols" yaml:"cols"`

	// Economy. All values are whole points.
	MintPrice         int `json:"mint_price" yaml:"mint_price"`
	DeployStake       int `json:"deploy_stake" yaml:"deploy_stake"`
	DefaultRatePerSec int `json:"default_rate_per_sec" yaml:"default_rate_per_sec"`
	SeedPoints        int `json:"seed_points" yaml:"seed_points"`

	// EventCap bounds the event log. Zero means the default of 200.
	EventCap int `json:"event_cap,omitempty" yaml:"event_cap,omitempty"`
}

// DefaultEventCap bounds the world event log when a config does not set one.
const DefaultEventCap = 200

// DefaultWorldConfig returns the stock 8x12 world with the standard economy:
// land mints for 50 points, chargers stake 100, new identities are seeded
// with 500 points.
func DefaultWorldConfig() *WorldConfig {
	return &WorldConfig{
		Name:              "Default World",
		Description:       "Stock 8x12 grid with the standard point economy",
		Rows:              8,
		Cols:              12,
		MintPrice:         50,
		DeployStake:       100,
		DefaultRatePerSec: 2,
		SeedPoints:        500,
		EventCap:          DefaultEventCap,
	}
}

// ValidateWorldConfig checks a configuration for structural problems.
func ValidateWorldConfig(cfg *WorldConfig) error {
	if cfg == nil {
		return fmt.Errorf("config cannot be nil")
	}
	if cfg.Name == "" {
		return fmt.Errorf("config name is required")
	}
	if cfg.Rows < MinGridDim || cfg.Rows > MaxGridDim {
		return fmt.Errorf("rows must be between %d and %d, got %d", MinGridDim, MaxGridDim, cfg.Rows)
	}
	if cfg.Cols < MinGridDim || cfg.Cols > MaxGridDim {
		return fmt.Errorf("cols must be between %d and %d, got %d", MinGridDim, MaxGridDim, cfg.Cols)
	}
	if cfg.MintPrice <= 0 {
		return fmt.Errorf("mint_price must be positive, got %d", cfg.MintPrice)
	}
	if cfg.DeployStake <= 0 {
		return fmt.Errorf("deploy_stake must be positive, got %d", cfg.DeployStake)
	}
	if cfg.DefaultRatePerSec <= 0 || cfg.DefaultRatePerSec > MaxRatePerSec {
		return fmt.Errorf("default_rate_per_sec must be between 1 and %d, got %d", MaxRatePerSec, cfg.DefaultRatePerSec)
	}
	if cfg.SeedPoints < 0 {
		return fmt.Errorf("seed_points cannot be negative, got %d", cfg.SeedPoints)
	}
	if cfg.EventCap < 0 {
		return fmt.Errorf("event_cap cannot be negative, got %d", cfg.EventCap)
	}
	return nil
}

// eventCap returns the effective event log bound for this config.
func (c *WorldConfig) eventCap() int {
	if c.EventCap > 0 {
		return c.EventCap
	}
	return DefaultEventCap
}
