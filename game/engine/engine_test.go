package engine

import (
	"errors"
	"testing"
	"time"
)

// fakeClock is a manually advanced time source for deterministic tests.
type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

// memStore records snapshots in memory for persistence assertions.
type memStore struct {
	saves int
	last  *Snapshot
}

func (m *memStore) Save(snap *Snapshot) error {
	m.saves++
	m.last = snap
	return nil
}

func createTestConfig() *WorldConfig {
	return &WorldConfig{
		Name:              "Engine Test World",
		Description:       "World used by engine unit tests",
		Rows:              4,
		Cols:              6,
		MintPrice:         50,
		DeployStake:       100,
		DefaultRatePerSec: 2,
		SeedPoints:        500,
		EventCap:          200,
	}
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	eng, err := NewEngine(createTestConfig())
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	eng.SetClock(newFakeClock())
	return eng
}

func onboard(t *testing.T, eng *Engine, pubkey, label string) {
	t.Helper()
	eng.EnsureIdentity(Identity{Pubkey: pubkey, Label: label})
}

func TestNewEngine(t *testing.T) {
	eng := newTestEngine(t)

	grid := eng.Grid()
	if len(grid) != 4*6 {
		t.Fatalf("Expected %d plots, got %d", 4*6, len(grid))
	}
	if grid[0].ID != "0-0" || grid[len(grid)-1].ID != "3-5" {
		t.Errorf("Unexpected plot ids: first %q, last %q", grid[0].ID, grid[len(grid)-1].ID)
	}
	for _, p := range grid {
		if p.Owned() || p.Charger != nil {
			t.Fatalf("Plot %s should start unowned and unequipped", p.ID)
		}
	}
	if eng.User() != nil {
		t.Error("Expected no active identity on a fresh world")
	}
	if eng.ActiveSessions() != 0 {
		t.Error("Expected no sessions on a fresh world")
	}
}

func TestNewEngine_NilConfigUsesDefault(t *testing.T) {
	eng, err := NewEngine(nil)
	if err != nil {
		t.Fatalf("Failed to create engine with nil config: %v", err)
	}
	if eng.Rows() != 8 || eng.Cols() != 12 {
		t.Errorf("Expected default 8x12 grid, got %dx%d", eng.Rows(), eng.Cols())
	}
}

func TestNewEngine_InvalidConfig(t *testing.T) {
	cfg := createTestConfig()
	cfg.Rows = 0
	if _, err := NewEngine(cfg); err == nil {
		t.Error("Expected error for invalid config")
	}
}

func TestEnsureIdentity_SeedsOnce(t *testing.T) {
	eng := newTestEngine(t)

	onboard(t, eng, "pk1", "Ada")
	bal := eng.BalanceOf("pk1")
	if bal.Points != 500 || bal.Earned != 0 || bal.Spent != 0 {
		t.Fatalf("Expected seeded balance {500 0 0}, got %+v", bal)
	}

	events := eng.RecentEvents(0)
	if len(events) != 1 || events[0].Kind != EventSystem {
		t.Fatalf("Expected one system welcome event, got %v", events)
	}

	// Second onboarding of the same identity must not reseed.
	onboard(t, eng, "pk1", "Ada Prime")
	if got := eng.BalanceOf("pk1").Points; got != 500 {
		t.Errorf("Expected points to stay 500 after repeat onboarding, got %d", got)
	}
	if n := len(eng.RecentEvents(0)); n != 1 {
		t.Errorf("Expected no extra event on repeat onboarding, got %d events", n)
	}
	if u := eng.User(); u == nil || u.Label != "Ada Prime" {
		t.Errorf("Expected label refresh on repeat onboarding, got %+v", u)
	}
}

func TestMintLand(t *testing.T) {
	eng := newTestEngine(t)
	onboard(t, eng, "pk1", "Ada")

	if err := eng.MintLand("0-0"); err != nil {
		t.Fatalf("MintLand failed: %v", err)
	}

	plot, ok := eng.PlotByID("0-0")
	if !ok || plot.Owner != "pk1" {
		t.Fatalf("Expected plot 0-0 owned by pk1, got %+v", plot)
	}
	bal := eng.BalanceOf("pk1")
	if bal.Points != 450 || bal.Spent != 50 {
		t.Errorf("Expected balance {450 spent 50}, got %+v", bal)
	}
	events := eng.RecentEvents(1)
	if len(events) != 1 || events[0].Kind != EventLand {
		t.Errorf("Expected newest event to be a land event, got %v", events)
	}
}

func TestMintLand_Failures(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(*Engine)
		plotID  string
		wantErr error
	}{
		{
			name:    "unauthenticated",
			setup:   func(e *Engine) {},
			plotID:  "0-0",
			wantErr: ErrUnauthenticated,
		},
		{
			name: "plot not found",
			setup: func(e *Engine) {
				e.EnsureIdentity(Identity{Pubkey: "pk1", Label: "Ada"})
			},
			plotID:  "99-99",
			wantErr: ErrPlotNotFound,
		},
		{
			name: "already owned",
			setup: func(e *Engine) {
				e.EnsureIdentity(Identity{Pubkey: "pk1", Label: "Ada"})
				if err := e.MintLand("0-0"); err != nil {
					panic(err)
				}
			},
			plotID:  "0-0",
			wantErr: ErrAlreadyOwned,
		},
		{
			name: "insufficient funds",
			setup: func(e *Engine) {
				e.EnsureIdentity(Identity{Pubkey: "poor", Label: "Poor"})
				// Burn the seed down below the mint price.
				for _, id := range []string{"0-0", "0-1", "0-2", "0-3", "0-4", "0-5", "1-0", "1-1", "1-2", "1-3"} {
					if err := e.MintLand(id); err != nil {
						panic(err)
					}
				}
			},
			plotID:  "1-4",
			wantErr: ErrInsufficientFunds,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng := newTestEngine(t)
			tt.setup(eng)

			before := eng.BalanceOf("pk1")
			err := eng.MintLand(tt.plotID)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Expected %v, got %v", tt.wantErr, err)
			}
			if after := eng.BalanceOf("pk1"); after != before {
				t.Errorf("Balance changed on failed mint: %+v -> %+v", before, after)
			}

			events := eng.RecentEvents(1)
			if len(events) == 0 || events[0].Kind != EventError {
				t.Errorf("Expected an error event after failed mint, got %v", events)
			}
		})
	}
}

func TestDeployCharger(t *testing.T) {
	eng := newTestEngine(t)
	onboard(t, eng, "pk1", "Ada")
	if err := eng.MintLand("0-0"); err != nil {
		t.Fatalf("MintLand failed: %v", err)
	}

	if err := eng.DeployCharger("0-0", 5); err != nil {
		t.Fatalf("DeployCharger failed: %v", err)
	}

	plot, _ := eng.PlotByID("0-0")
	if plot.Charger == nil {
		t.Fatal("Expected a charger on plot 0-0")
	}
	if plot.Charger.RatePerSec != 5 || plot.Charger.Staked != 100 || plot.Charger.Owner != "pk1" {
		t.Errorf("Unexpected charger: %+v", plot.Charger)
	}
	bal := eng.BalanceOf("pk1")
	if bal.Points != 350 || bal.Spent != 150 {
		t.Errorf("Expected balance {350 spent 150}, got %+v", bal)
	}
}

func TestDeployCharger_DefaultRate(t *testing.T) {
	eng := newTestEngine(t)
	onboard(t, eng, "pk1", "Ada")
	if err := eng.MintLand("0-0"); err != nil {
		t.Fatalf("MintLand failed: %v", err)
	}

	if err := eng.DeployCharger("0-0", 0); err != nil {
		t.Fatalf("DeployCharger failed: %v", err)
	}
	plot, _ := eng.PlotByID("0-0")
	if plot.Charger.RatePerSec != 2 {
		t.Errorf("Expected default rate 2, got %d", plot.Charger.RatePerSec)
	}
}

func TestDeployCharger_Failures(t *testing.T) {
	eng := newTestEngine(t)
	onboard(t, eng, "pk1", "Ada")
	if err := eng.MintLand("0-0"); err != nil {
		t.Fatalf("MintLand failed: %v", err)
	}

	if err := eng.DeployCharger("99-99", 2); !errors.Is(err, ErrPlotNotFound) {
		t.Errorf("Expected ErrPlotNotFound, got %v", err)
	}
	if err := eng.DeployCharger("0-1", 2); !errors.Is(err, ErrNotOwner) {
		t.Errorf("Expected ErrNotOwner on unowned plot, got %v", err)
	}

	// Second identity does not own 0-0.
	onboard(t, eng, "pk2", "Bob")
	if err := eng.DeployCharger("0-0", 2); !errors.Is(err, ErrNotOwner) {
		t.Errorf("Expected ErrNotOwner for foreign plot, got %v", err)
	}

	onboard(t, eng, "pk1", "Ada")
	if err := eng.DeployCharger("0-0", 2); err != nil {
		t.Fatalf("DeployCharger failed: %v", err)
	}
	if err := eng.DeployCharger("0-0", 2); !errors.Is(err, ErrAlreadyDeployed) {
		t.Errorf("Expected ErrAlreadyDeployed, got %v", err)
	}
}

func TestStartStopSession(t *testing.T) {
	eng := newTestEngine(t)
	onboard(t, eng, "pk1", "Ada")
	if err := eng.MintLand("0-0"); err != nil {
		t.Fatalf("MintLand failed: %v", err)
	}
	if err := eng.DeployCharger("0-0", 5); err != nil {
		t.Fatalf("DeployCharger failed: %v", err)
	}

	if err := eng.StartSession("0-0"); err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
	sessions := eng.Sessions()
	s, ok := sessions["0-0"]
	if !ok {
		t.Fatal("Expected a session on 0-0")
	}
	if s.Driver != "pk1" || s.RatePerSec != 5 {
		t.Errorf("Unexpected session: %+v", s)
	}

	if err := eng.StartSession("0-0"); !errors.Is(err, ErrSessionActive) {
		t.Errorf("Expected ErrSessionActive, got %v", err)
	}

	eng.StopSession("0-0")
	if eng.ActiveSessions() != 0 {
		t.Error("Expected session to be removed")
	}
	events := eng.RecentEvents(1)
	if events[0].Kind != EventSession {
		t.Errorf("Expected session stop event, got %v", events[0])
	}
}

func TestStartSession_Failures(t *testing.T) {
	eng := newTestEngine(t)

	if err := eng.StartSession("0-0"); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("Expected ErrUnauthenticated, got %v", err)
	}

	onboard(t, eng, "pk1", "Ada")
	if err := eng.StartSession("99-99"); !errors.Is(err, ErrPlotNotFound) {
		t.Errorf("Expected ErrPlotNotFound, got %v", err)
	}
	if err := eng.StartSession("0-0"); !errors.Is(err, ErrNoCharger) {
		t.Errorf("Expected ErrNoCharger, got %v", err)
	}
}

func TestStopSession_Idempotent(t *testing.T) {
	eng := newTestEngine(t)
	onboard(t, eng, "pk1", "Ada")

	before := len(eng.RecentEvents(0))
	eng.StopSession("0-0") // no session active anywhere
	if after := len(eng.RecentEvents(0)); after != before {
		t.Errorf("Stop on absent session emitted %d events", after-before)
	}
}

func TestLinkChargePoint(t *testing.T) {
	eng := newTestEngine(t)

	eng.LinkChargePoint("CP-001", "0-0", 22)
	links := eng.Links()
	if l, ok := links["CP-001"]; !ok || l.PlotID != "0-0" || l.PowerKW != 22 {
		t.Fatalf("Unexpected link table: %v", links)
	}

	// Upsert replaces, default power applies when the hint is missing.
	eng.LinkChargePoint("CP-001", "1-1", 0)
	if l := eng.Links()["CP-001"]; l.PlotID != "1-1" || l.PowerKW != DefaultLinkPowerKW {
		t.Errorf("Expected upserted link to 1-1 with default power, got %+v", l)
	}
}

func TestOwnerAndChargerSetOnce(t *testing.T) {
	eng := newTestEngine(t)
	onboard(t, eng, "pk1", "Ada")
	if err := eng.MintLand("0-0"); err != nil {
		t.Fatalf("MintLand failed: %v", err)
	}

	onboard(t, eng, "pk2", "Bob")
	if err := eng.MintLand("0-0"); !errors.Is(err, ErrAlreadyOwned) {
		t.Fatalf("Expected ErrAlreadyOwned, got %v", err)
	}
	if plot, _ := eng.PlotByID("0-0"); plot.Owner != "pk1" {
		t.Errorf("Owner changed after rejected mint: %q", plot.Owner)
	}
}

func TestMutationsPersistSnapshots(t *testing.T) {
	store := &memStore{}
	eng, err := NewEngineWithPersistence(createTestConfig(), store)
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	eng.SetClock(newFakeClock())

	onboard(t, eng, "pk1", "Ada")
	if store.saves != 1 {
		t.Fatalf("Expected 1 save after onboarding, got %d", store.saves)
	}

	if err := eng.MintLand("0-0"); err != nil {
		t.Fatalf("MintLand failed: %v", err)
	}
	if store.saves != 2 {
		t.Fatalf("Expected 2 saves after mint, got %d", store.saves)
	}
	if store.last == nil || store.last.Version != SnapshotVersion {
		t.Fatalf("Expected versioned snapshot, got %+v", store.last)
	}
	if store.last.Grid[0].Owner != "pk1" {
		t.Error("Persisted snapshot does not reflect the mint")
	}

	// Failed mutations must not persist.
	if err := eng.MintLand("0-0"); !errors.Is(err, ErrAlreadyOwned) {
		t.Fatalf("Expected ErrAlreadyOwned, got %v", err)
	}
	if store.saves != 2 {
		t.Errorf("Failed mutation persisted a snapshot: %d saves", store.saves)
	}
}
