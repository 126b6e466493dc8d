package engine

import "fmt"

// SnapshotVersion tags the current persisted snapshot schema.
const SnapshotVersion = 1

// Snapshot is the durable record of one world. It carries exactly the state
// needed to resume: the grid, dimensions, active user, ledger, session
// table, and event log. The charge-point link table is deliberately not
// part of the contract; links are re-established by the catalog layer.
type Snapshot struct {
	Version  int                 `json:"version"`
	Grid     []*Plot             `json:"grid"`
	Rows     int                 `json:"rows"`
	Cols     int                 `json:"cols"`
	User     *Identity           `json:"user,omitempty"`
	Balances map[string]*Balance `json:"balances"`
	Sessions map[string]*Session `json:"sessions"`
	Events   []Event             `json:"events"`
}

// Snapshot returns a deep copy of the current world state suitable for
// serialization.
func (e *Engine) Snapshot() *Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Engine) snapshotLocked() *Snapshot {
	snap := &Snapshot{
		Version:  SnapshotVersion,
		Grid:     make([]*Plot, len(e.grid)),
		Rows:     e.cfg.Rows,
		Cols:     e.cfg.Cols,
		Balances: make(map[string]*Balance, len(e.balances)),
		Sessions: make(map[string]*Session, len(e.sessions)),
		Events:   make([]Event, len(e.events)),
	}
	for i, p := range e.grid {
		cp := *p
		if p.Charger != nil {
			ch := *p.Charger
			cp.Charger = &ch
		}
		snap.Grid[i] = &cp
	}
	if e.user != nil {
		u := *e.user
		snap.User = &u
	}
	for pk, bal := range e.balances {
		b := *bal
		snap.Balances[pk] = &b
	}
	for id, s := range e.sessions {
		cp := *s
		snap.Sessions[id] = &cp
	}
	copy(snap.Events, e.events)
	return snap
}

// Restore replaces the engine's world state with the snapshot's. Snapshots
// written before versioning (version 0) are accepted; anything newer than
// the current schema is rejected.
func (e *Engine) Restore(snap *Snapshot) error {
	if snap == nil {
		return fmt.Errorf("snapshot cannot be nil")
	}
	if snap.Version > SnapshotVersion {
		return fmt.Errorf("snapshot version %d is newer than supported version %d", snap.Version, SnapshotVersion)
	}
	if snap.Rows <= 0 || snap.Cols <= 0 || len(snap.Grid) != snap.Rows*snap.Cols {
		return fmt.Errorf("snapshot grid is inconsistent: %d plots for %dx%d", len(snap.Grid), snap.Rows, snap.Cols)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.cfg.Rows = snap.Rows
	e.cfg.Cols = snap.Cols

	e.grid = make([]*Plot, len(snap.Grid))
	e.plotIndex = make(map[string]int, len(snap.Grid))
	for i, p := range snap.Grid {
		cp := *p
		if p.Charger != nil {
			ch := *p.Charger
			cp.Charger = &ch
		}
		e.grid[i] = &cp
		e.plotIndex[cp.ID] = i
	}

	if snap.User != nil {
		u := *snap.User
		e.user = &u
	} else {
		e.user = nil
	}

	e.balances = make(map[string]*Balance, len(snap.Balances))
	for pk, bal := range snap.Balances {
		b := *bal
		e.balances[pk] = &b
	}

	e.sessions = make(map[string]*Session, len(snap.Sessions))
	for id, s := range snap.Sessions {
		cp := *s
		e.sessions[id] = &cp
	}

	e.events = make([]Event, len(snap.Events))
	copy(e.events, snap.Events)
	return nil
}
