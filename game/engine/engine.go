package engine

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// DefaultLinkPowerKW is assumed when a charge-point link carries no power rating.
const DefaultLinkPowerKW = 3

// Persister receives a world snapshot after every successful mutation and
// after every settlement tick that changed state. Implementations live in
// game/store.
type Persister interface {
	Save(*Snapshot) error
}

// Engine owns the canonical world state: the plot grid, the balance ledger,
// the active session table, the charge-point link table, and the event log.
// All mutations go through its methods; a single mutex makes every operation
// (including one full tick pass) indivisible with respect to the others.
type Engine struct {
	mu    sync.Mutex
	cfg   *WorldConfig
	clock Clock
	store Persister

	grid      []*Plot
	plotIndex map[string]int
	user      *Identity
	balances  map[string]*Balance
	sessions  map[string]*Session
	links     map[string]Link
	events    []Event

	// Wall-clock time of the last settle heartbeat.
	lastSettle time.Time
}

// NewEngine creates an engine with a freshly initialized grid and no
// persistence. The config is validated first; nil means the default world.
func NewEngine(cfg *WorldConfig) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultWorldConfig()
	}
	if err := ValidateWorldConfig(cfg); err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:      cfg,
		clock:    SystemClock{},
		balances: make(map[string]*Balance),
		sessions: make(map[string]*Session),
		links:    make(map[string]Link),
	}
	e.initGrid(cfg.Rows, cfg.Cols)
	return e, nil
}

// NewEngineWithPersistence creates an engine that writes a snapshot through
// the given persister after every successful mutation.
func NewEngineWithPersistence(cfg *WorldConfig, store Persister) (*Engine, error) {
	e, err := NewEngine(cfg)
	if err != nil {
		return nil, err
	}
	e.store = store
	return e, nil
}

// SetClock replaces the engine's time source. Used by tests to drive
// settlement deterministically.
func (e *Engine) SetClock(clock Clock) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.clock = clock
}

// initGrid creates one unowned plot per cell of an R x C grid. Plot ids are
// stable "row-col" keys.
func (e *Engine) initGrid(rows, cols int) {
	e.grid = make([]*Plot, 0, rows*cols)
	e.plotIndex = make(map[string]int, rows*cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			id := fmt.Sprintf("%d-%d", r, c)
			e.plotIndex[id] = len(e.grid)
			e.grid = append(e.grid, &Plot{ID: id, Row: r, Col: c})
		}
	}
}

// EnsureIdentity makes the given identity the active user and seeds its
// balance exactly once. Calling it again with the same pubkey is a no-op
// apart from refreshing the display label.
func (e *Engine) EnsureIdentity(id Identity) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.user = &id
	if _, ok := e.balances[id.Pubkey]; !ok {
		e.balances[id.Pubkey] = &Balance{Points: e.cfg.SeedPoints}
		e.pushEventLocked(EventSystem,
			fmt.Sprintf("Welcome %s. You received %d POINTS to get started.", id.Label, e.cfg.SeedPoints))
	}
	e.persistLocked()
}

// MintLand assigns the plot to the active user and debits the mint price.
func (e *Engine) MintLand(plotID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.user == nil {
		return e.failLocked(ErrUnauthenticated)
	}
	idx, ok := e.plotIndex[plotID]
	if !ok {
		return e.failLocked(fmt.Errorf("mint %s: %w", plotID, ErrPlotNotFound))
	}
	plot := e.grid[idx]
	if plot.Owned() {
		return e.failLocked(ErrAlreadyOwned)
	}
	price := e.cfg.MintPrice
	if e.pointsOf(e.user.Pubkey) < price {
		return e.failLocked(ErrInsufficientFunds)
	}

	plot.Owner = e.user.Pubkey
	bal := e.balanceLocked(e.user.Pubkey)
	bal.Points -= price
	bal.Spent += price

	e.pushEventLocked(EventLand, fmt.Sprintf("%s minted land %s for %d POINTS", e.user.Label, plotID, price))
	e.persistLocked()
	return nil
}

// DeployCharger attaches a charger to a plot the active user owns and debits
// the stake. A non-positive rate falls back to the configured default; the
// caller is responsible for clamping rates derived from external power data.
func (e *Engine) DeployCharger(plotID string, ratePerSec int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if ratePerSec <= 0 {
		ratePerSec = e.cfg.DefaultRatePerSec
	}
	if e.user == nil {
		return e.failLocked(ErrUnauthenticated)
	}
	idx, ok := e.plotIndex[plotID]
	if !ok {
		return e.failLocked(fmt.Errorf("deploy on %s: %w", plotID, ErrPlotNotFound))
	}
	plot := e.grid[idx]
	if plot.Owner != e.user.Pubkey {
		return e.failLocked(ErrNotOwner)
	}
	if plot.Charger != nil {
		return e.failLocked(ErrAlreadyDeployed)
	}
	stake := e.cfg.DeployStake
	if e.pointsOf(e.user.Pubkey) < stake {
		return e.failLocked(ErrInsufficientFunds)
	}

	plot.Charger = &Charger{RatePerSec: ratePerSec, Staked: stake, Owner: e.user.Pubkey}
	bal := e.balanceLocked(e.user.Pubkey)
	bal.Points -= stake
	bal.Spent += stake

	e.pushEventLocked(EventCharger,
		fmt.Sprintf("%s deployed a charger on %s (rate %d/s)", e.user.Label, plotID, ratePerSec))
	e.persistLocked()
	return nil
}

// LinkChargePoint upserts a mapping from an external charge-point code to a
// plot. There is no validation of the plot id and no economic effect.
func (e *Engine) LinkChargePoint(code, plotID string, powerKW float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if powerKW <= 0 {
		powerKW = DefaultLinkPowerKW
	}
	e.links[code] = Link{PlotID: plotID, PowerKW: powerKW}
	e.persistLocked()
}

// StartSession begins a charging session for the active user on a
// charger-equipped plot. The charger's rate is snapshotted into the session,
// and the driver must be able to afford at least one tick.
func (e *Engine) StartSession(plotID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.user == nil {
		return e.failLocked(ErrUnauthenticated)
	}
	idx, ok := e.plotIndex[plotID]
	if !ok {
		return e.failLocked(fmt.Errorf("start session on %s: %w", plotID, ErrPlotNotFound))
	}
	plot := e.grid[idx]
	if plot.Charger == nil {
		return e.failLocked(ErrNoCharger)
	}
	if _, active := e.sessions[plotID]; active {
		return e.failLocked(ErrSessionActive)
	}
	rate := plot.Charger.RatePerSec
	if e.pointsOf(e.user.Pubkey) < rate {
		return e.failLocked(ErrInsufficientFunds)
	}

	e.sessions[plotID] = &Session{Driver: e.user.Pubkey, StartTs: e.clock.Now(), RatePerSec: rate}
	e.pushEventLocked(EventSession, fmt.Sprintf("%s started charging on %s", e.user.Label, plotID))
	e.persistLocked()
	return nil
}

// StopSession removes the session on a plot if one is active. Stopping a
// plot with no session is a silent no-op: no error, no event.
func (e *Engine) StopSession(plotID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stopLocked(plotID) {
		e.persistLocked()
	}
}

// stopLocked removes a session and emits the session event. It reports
// whether a session was actually removed.
func (e *Engine) stopLocked(plotID string) bool {
	if _, ok := e.sessions[plotID]; !ok {
		return false
	}
	delete(e.sessions, plotID)
	e.pushEventLocked(EventSession, fmt.Sprintf("Session on %s stopped", plotID))
	return true
}

// failLocked records a rejected mutation in the event log and returns the
// error unchanged. Failed operations never persist a snapshot.
func (e *Engine) failLocked(err error) error {
	e.pushEventLocked(EventError, err.Error())
	return err
}

// pointsOf reads a balance without materializing one for unseen identities.
func (e *Engine) pointsOf(pubkey string) int {
	if bal, ok := e.balances[pubkey]; ok {
		return bal.Points
	}
	return 0
}

// balanceLocked returns the balance for an identity, creating a zeroed one
// on first reference.
func (e *Engine) balanceLocked(pubkey string) *Balance {
	bal, ok := e.balances[pubkey]
	if !ok {
		bal = &Balance{}
		e.balances[pubkey] = bal
	}
	return bal
}

// persistLocked writes a snapshot through the configured persister. Save
// failures are logged, not surfaced: the in-memory world stays the source
// of truth and the next successful save catches up.
func (e *Engine) persistLocked() {
	if e.store == nil {
		return
	}
	if err := e.store.Save(e.snapshotLocked()); err != nil {
		slog.Warn("world snapshot save failed", "error", err)
	}
}

// Config returns the engine's world configuration.
func (e *Engine) Config() *WorldConfig {
	return e.cfg
}

// Rows returns the grid height.
func (e *Engine) Rows() int { return e.cfg.Rows }

// Cols returns the grid width.
func (e *Engine) Cols() int { return e.cfg.Cols }

// User returns a copy of the active identity, or nil before onboarding.
func (e *Engine) User() *Identity {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.user == nil {
		return nil
	}
	u := *e.user
	return &u
}

// Grid returns a deep copy of every plot in row-major order.
func (e *Engine) Grid() []Plot {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]Plot, len(e.grid))
	for i, p := range e.grid {
		out[i] = *p
		if p.Charger != nil {
			ch := *p.Charger
			out[i].Charger = &ch
		}
	}
	return out
}

// PlotByID returns a copy of a single plot.
func (e *Engine) PlotByID(plotID string) (Plot, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	idx, ok := e.plotIndex[plotID]
	if !ok {
		return Plot{}, false
	}
	p := *e.grid[idx]
	if p.Charger != nil {
		ch := *p.Charger
		p.Charger = &ch
	}
	return p, true
}

// UnownedPlots returns the ids of all unminted plots in row-major order.
func (e *Engine) UnownedPlots() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	var out []string
	for _, p := range e.grid {
		if !p.Owned() {
			out = append(out, p.ID)
		}
	}
	return out
}

// Balances returns a copy of the full balance ledger.
func (e *Engine) Balances() map[string]Balance {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make(map[string]Balance, len(e.balances))
	for pk, bal := range e.balances {
		out[pk] = *bal
	}
	return out
}

// BalanceOf returns the balance for one identity; unseen identities read as
// all zeroes.
func (e *Engine) BalanceOf(pubkey string) Balance {
	e.mu.Lock()
	defer e.mu.Unlock()

	if bal, ok := e.balances[pubkey]; ok {
		return *bal
	}
	return Balance{}
}

// Sessions returns a copy of the active session table keyed by plot id.
func (e *Engine) Sessions() map[string]Session {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make(map[string]Session, len(e.sessions))
	for id, s := range e.sessions {
		out[id] = *s
	}
	return out
}

// ActiveSessions returns the number of sessions currently running.
func (e *Engine) ActiveSessions() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.sessions)
}

// Links returns a copy of the charge-point link table keyed by external code.
func (e *Engine) Links() map[string]Link {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make(map[string]Link, len(e.links))
	for code, l := range e.links {
		out[code] = l
	}
	return out
}

// sortedSessionIDs returns active plot ids in lexical order so a tick pass
// visits sessions deterministically.
func (e *Engine) sortedSessionIDs() []string {
	ids := make([]string, 0, len(e.sessions))
	for id := range e.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
