package service

import (
	"errors"

	"github.com/voltplay/driveworld/game/engine"
)

var (
	// ErrNoCatalog is returned by catalog-backed operations when the
	// server was started without a charge point feed.
	ErrNoCatalog = errors.New("no charge point catalog loaded")

	// ErrChargePointNotFound is returned when a catalog code does not
	// resolve to a known charge point.
	ErrChargePointNotFound = errors.New("charge point not found")

	// ErrInvalidIdentity is returned when an identity request carries an
	// empty public key.
	ErrInvalidIdentity = errors.New("identity requires a public key")
)

// WorldView is the full read model of the world returned to transports.
type WorldView struct {
	Name           string                    `json:"name"`
	Rows           int                       `json:"rows"`
	Cols           int                       `json:"cols"`
	Grid           []engine.Plot             `json:"grid"`
	User           *engine.Identity          `json:"user,omitempty"`
	Balances       map[string]engine.Balance `json:"balances"`
	Sessions       map[string]engine.Session `json:"sessions"`
	Links          map[string]engine.Link    `json:"links"`
	ActiveSessions int                       `json:"active_sessions"`
	Events         []engine.Event            `json:"events"`
}

// SpawnResult describes a virtual charger spawned from a catalog entry.
type SpawnResult struct {
	Code       string  `json:"code"`
	PlotID     string  `json:"plot_id"`
	RatePerSec int     `json:"rate_per_sec"`
	PowerKW    float64 `json:"power_kw"`
}
