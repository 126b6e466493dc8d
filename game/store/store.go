// Package store provides persistence backends for world snapshots.
//
// Two backends are available: a JSON file (optionally zstd-compressed) and
// a SQLite database. Both implement Store, which extends the engine's
// Persister with load and lifecycle operations. The engine writes through
// Save after every successful mutation; Load runs once at startup to
// restore the previous world.
package store

import (
	"errors"

	"github.com/voltplay/driveworld/game/engine"
)

// ErrNoSnapshot is returned by Load when no world has been persisted yet.
// Callers treat it as "start fresh", not as a failure.
var ErrNoSnapshot = errors.New("no snapshot found")

// Store persists and restores world snapshots. The Save method satisfies
// engine.Persister.
type Store interface {
	Save(snap *engine.Snapshot) error
	Load() (*engine.Snapshot, error)
	Exists() bool
	Delete() error
}
