package engine

import "time"

// EventKind classifies entries in the world event log.
type EventKind string

const (
	EventSystem  EventKind = "system"
	EventLand    EventKind = "land"
	EventCharger EventKind = "charger"
	EventSession EventKind = "session"
	EventSettle  EventKind = "settle"
	EventOracle  EventKind = "oracle"
	EventError   EventKind = "error"

	// Validation constants
	MinGridDim    = 1
	MaxGridDim    = 64
	MaxRatePerSec = 1000
)

// Identity is the acting user as supplied by the caller. The engine treats
// the pubkey as an opaque string and never validates its format.
type Identity struct {
	Pubkey string `json:"pubkey"`
	Label  string `json:"label"`
}

// Charger is an owned fixture on a plot. Immutable once deployed.
type Charger struct {
	RatePerSec int    `json:"rate_per_sec"`
	Staked     int    `json:"staked"` // points locked at deploy time, not returnable
	Owner      string `json:"owner"`  // plot owner at deploy time
}

// Plot is a single cell in the world grid. Row and Col are fixed at world
// creation; Owner and Charger are each set at most once and never cleared.
type Plot struct {
	ID      string   `json:"id"`
	Row     int      `json:"row"`
	Col     int      `json:"col"`
	Owner   string   `json:"owner,omitempty"`
	Charger *Charger `json:"charger,omitempty"`
}

// Owned reports whether the plot has been minted.
func (p *Plot) Owned() bool {
	return p.Owner != ""
}

// Balance tracks the spendable points of one identity together with
// lifetime audit counters. Earned and Spent only ever grow.
type Balance struct {
	Points int `json:"points"`
	Earned int `json:"earned"`
	Spent  int `json:"spent"`
}

// Session is an active charging relationship between a driver and a
// charger-equipped plot, keyed by plot id. RatePerSec is snapshotted from
// the charger at start time.
type Session struct {
	Driver     string    `json:"driver"`
	StartTs    time.Time `json:"start_ts"`
	RatePerSec int       `json:"rate_per_sec"`
}

// Event is one entry in the bounded, newest-first world event log.
type Event struct {
	ID   string    `json:"id"`
	Ts   time.Time `json:"ts"`
	Kind EventKind `json:"kind"`
	Text string    `json:"text"`
}

// Link ties an external charge-point code to a plot. It only exists so the
// UI can render the connection; it carries no economic weight beyond the
// nominal power rating used as a rate hint.
type Link struct {
	PlotID  string  `json:"plot_id"`
	PowerKW float64 `json:"power_kw"`
}

// OwnerStanding is one leaderboard row: an identity ranked by lifetime
// earnings, with the number of plots it owns.
type OwnerStanding struct {
	Pubkey string `json:"pubkey"`
	Earned int    `json:"earned"`
	Plots  int    `json:"plots"`
}
