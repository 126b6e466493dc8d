package service

import (
	"context"

	"github.com/voltplay/driveworld/game/catalog"
	"github.com/voltplay/driveworld/game/engine"
)

// WorldService defines all world-related operations exposed to transports.
type WorldService interface {
	// Identity
	EnsureIdentity(ctx context.Context, pubkey, label string) (*engine.Identity, error)

	// Mutations
	MintLand(ctx context.Context, plotID string) (*engine.Plot, error)
	DeployCharger(ctx context.Context, plotID string, ratePerSec int) (*engine.Plot, error)
	StartSession(ctx context.Context, plotID string) error
	StopSession(ctx context.Context, plotID string) error
	LinkChargePoint(ctx context.Context, code, plotID string, powerKW float64) error
	SpawnFromChargePoint(ctx context.Context, code string) (*SpawnResult, error)

	// Settlement
	Tick(ctx context.Context) error
	SettleHeartbeat(ctx context.Context) error

	// Reads
	WorldInfo(ctx context.Context) (*WorldView, error)
	RecentEvents(ctx context.Context, limit int) ([]engine.Event, error)
	Balances(ctx context.Context) (map[string]engine.Balance, error)
	BalanceOf(ctx context.Context, pubkey string) (engine.Balance, error)
	Leaderboard(ctx context.Context, n int) ([]engine.OwnerStanding, error)

	// Catalog
	Catalog(ctx context.Context) ([]catalog.ChargePoint, error)
	CatalogStats(ctx context.Context) (catalog.Stats, error)
}

// Broadcaster pushes world activity to connected clients. The websocket
// hub satisfies this; transports that do not stream may pass nil.
type Broadcaster interface {
	BroadcastEvent(event string, data interface{})
}
