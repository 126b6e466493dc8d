package service

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"

	"github.com/voltplay/driveworld/game/catalog"
	"github.com/voltplay/driveworld/game/engine"
)

// worldViewEvents is how many recent events a WorldView carries.
const worldViewEvents = 20

// worldServiceImpl implements the WorldService interface
type worldServiceImpl struct {
	engine  *engine.Engine
	catalog *catalog.Catalog
	hub     Broadcaster
	logger  *slog.Logger

	// Serializes multi-step operations such as spawn, which issue
	// several engine mutations that must land as a unit.
	mu sync.Mutex
}

// NewWorldService creates a new world service instance. catalog and hub
// may be nil when the server runs without a feed or without streaming.
func NewWorldService(eng *engine.Engine, cat *catalog.Catalog, hub Broadcaster) WorldService {
	return &worldServiceImpl{
		engine:  eng,
		catalog: cat,
		hub:     hub,
		logger:  slog.Default().With("component", "world_service"),
	}
}

// EnsureIdentity registers the active identity, seeding its balance on
// first contact.
func (s *worldServiceImpl) EnsureIdentity(ctx context.Context, pubkey, label string) (*engine.Identity, error) {
	if pubkey == "" {
		return nil, ErrInvalidIdentity
	}

	s.engine.EnsureIdentity(engine.Identity{Pubkey: pubkey, Label: label})
	s.broadcastActivity()

	user := s.engine.User()
	return user, nil
}

// MintLand purchases an unowned plot for the active identity.
func (s *worldServiceImpl) MintLand(ctx context.Context, plotID string) (*engine.Plot, error) {
	if err := s.engine.MintLand(plotID); err != nil {
		return nil, err
	}
	s.broadcastActivity()

	plot, _ := s.engine.PlotByID(plotID)
	return &plot, nil
}

// DeployCharger stakes a charger on a plot owned by the active identity.
func (s *worldServiceImpl) DeployCharger(ctx context.Context, plotID string, ratePerSec int) (*engine.Plot, error) {
	if err := s.engine.DeployCharger(plotID, ratePerSec); err != nil {
		return nil, err
	}
	s.broadcastActivity()

	plot, _ := s.engine.PlotByID(plotID)
	return &plot, nil
}

// StartSession begins charging the active identity on a plot's charger.
func (s *worldServiceImpl) StartSession(ctx context.Context, plotID string) error {
	if err := s.engine.StartSession(plotID); err != nil {
		return err
	}
	s.broadcastActivity()
	return nil
}

// StopSession ends the charging session on a plot. Stopping a plot with
// no active session is a no-op.
func (s *worldServiceImpl) StopSession(ctx context.Context, plotID string) error {
	s.engine.StopSession(plotID)
	s.broadcastActivity()
	return nil
}

// LinkChargePoint records an external charge point reference for a plot.
func (s *worldServiceImpl) LinkChargePoint(ctx context.Context, code, plotID string, powerKW float64) error {
	if _, ok := s.engine.PlotByID(plotID); !ok {
		return engine.ErrPlotNotFound
	}
	if s.catalog != nil {
		if _, ok := s.catalog.ByCode(code); !ok {
			return ErrChargePointNotFound
		}
	}

	s.engine.LinkChargePoint(code, plotID, powerKW)
	return nil
}

// SpawnFromChargePoint mints a random free plot, deploys a charger whose
// rate derives from the charge point's connector power, and links the
// two. The whole sequence succeeds or nothing changes.
func (s *worldServiceImpl) SpawnFromChargePoint(ctx context.Context, code string) (*SpawnResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.catalog == nil {
		return nil, ErrNoCatalog
	}
	cp, ok := s.catalog.ByCode(code)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrChargePointNotFound, code)
	}

	user := s.engine.User()
	if user == nil {
		return nil, engine.ErrUnauthenticated
	}

	free := s.engine.UnownedPlots()
	if len(free) == 0 {
		return nil, engine.ErrNoFreePlot
	}
	plotID := free[rand.Intn(len(free))]

	cfg := s.engine.Config()
	if s.engine.BalanceOf(user.Pubkey).Points < cfg.MintPrice+cfg.DeployStake {
		return nil, engine.ErrInsufficientFunds
	}

	rate := catalog.SuggestRate(cp.PowerKW())
	if err := s.engine.MintLand(plotID); err != nil {
		return nil, err
	}
	if err := s.engine.DeployCharger(plotID, rate); err != nil {
		return nil, err
	}
	s.engine.LinkChargePoint(code, plotID, cp.PowerKW())
	s.engine.PushEvent(engine.EventOracle,
		fmt.Sprintf("Spawned virtual charger from %s on plot %s @ %d/s", cp.Code, plotID, rate))
	s.broadcastActivity()

	s.logger.Info("spawned virtual charger",
		"code", cp.Code, "plot", plotID, "rate_per_sec", rate)

	return &SpawnResult{
		Code:       cp.Code,
		PlotID:     plotID,
		RatePerSec: rate,
		PowerKW:    cp.PowerKW(),
	}, nil
}

// Tick advances settlement by one second for all active sessions.
func (s *worldServiceImpl) Tick(ctx context.Context) error {
	active := s.engine.ActiveSessions()
	s.engine.Tick()
	if active > 0 {
		s.broadcastWorld()
	}
	return nil
}

// SettleHeartbeat emits the periodic settle event when enough wall-clock
// time has passed.
func (s *worldServiceImpl) SettleHeartbeat(ctx context.Context) error {
	before := s.newestEventID()
	s.engine.SettleHeartbeat()
	if s.newestEventID() != before {
		s.broadcastActivity()
	}
	return nil
}

// WorldInfo returns the full read model of the world.
func (s *worldServiceImpl) WorldInfo(ctx context.Context) (*WorldView, error) {
	return &WorldView{
		Name:           s.engine.Config().Name,
		Rows:           s.engine.Rows(),
		Cols:           s.engine.Cols(),
		Grid:           s.engine.Grid(),
		User:           s.engine.User(),
		Balances:       s.engine.Balances(),
		Sessions:       s.engine.Sessions(),
		Links:          s.engine.Links(),
		ActiveSessions: s.engine.ActiveSessions(),
		Events:         s.engine.RecentEvents(worldViewEvents),
	}, nil
}

// RecentEvents returns up to limit events, newest first.
func (s *worldServiceImpl) RecentEvents(ctx context.Context, limit int) ([]engine.Event, error) {
	return s.engine.RecentEvents(limit), nil
}

// Balances returns every known balance keyed by pubkey.
func (s *worldServiceImpl) Balances(ctx context.Context) (map[string]engine.Balance, error) {
	return s.engine.Balances(), nil
}

// BalanceOf returns the balance for one pubkey, zero-valued if unknown.
func (s *worldServiceImpl) BalanceOf(ctx context.Context, pubkey string) (engine.Balance, error) {
	return s.engine.BalanceOf(pubkey), nil
}

// Leaderboard ranks identities by lifetime earnings.
func (s *worldServiceImpl) Leaderboard(ctx context.Context, n int) ([]engine.OwnerStanding, error) {
	return s.engine.Leaderboard(n), nil
}

// Catalog returns every charge point in the loaded feed.
func (s *worldServiceImpl) Catalog(ctx context.Context) ([]catalog.ChargePoint, error) {
	if s.catalog == nil {
		return nil, ErrNoCatalog
	}
	return s.catalog.ChargePoints, nil
}

// CatalogStats summarizes the loaded feed.
func (s *worldServiceImpl) CatalogStats(ctx context.Context) (catalog.Stats, error) {
	if s.catalog == nil {
		return catalog.Stats{}, ErrNoCatalog
	}
	return s.catalog.Stats(), nil
}

// broadcastActivity pushes the newest event and the refreshed world to
// connected clients.
func (s *worldServiceImpl) broadcastActivity() {
	if s.hub == nil {
		return
	}
	if evs := s.engine.RecentEvents(1); len(evs) == 1 {
		s.hub.BroadcastEvent("event", evs[0])
	}
	s.broadcastWorld()
}

// broadcastWorld pushes the current world read model to connected clients.
func (s *worldServiceImpl) broadcastWorld() {
	if s.hub == nil {
		return
	}
	view, _ := s.WorldInfo(context.Background())
	s.hub.BroadcastEvent("world_update", view)
}

func (s *worldServiceImpl) newestEventID() string {
	if evs := s.engine.RecentEvents(1); len(evs) == 1 {
		return evs[0].ID
	}
	return ""
}
