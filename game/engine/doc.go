// Package engine implements the DriveWorld settlement engine.
//
// The engine package owns the canonical world state and its mutations:
//   - A fixed R x C grid of plots that can be minted and equipped with chargers
//   - A points ledger per identity with lifetime earned/spent audit counters
//   - An active charging-session table keyed by plot id
//   - A bounded, newest-first event log
//   - Per-second settlement of all active sessions
//
// Core Types:
//
// Engine is the single source of truth; every mutation goes through one of
// its methods and runs to completion under an internal mutex, so a
// settlement pass and a user mutation can never interleave. WorldConfig
// defines the grid size and point economy. Snapshot is the durable record
// written through a Persister after each successful mutation.
//
// Settlement:
//
// Tick debits each active session's driver by the session rate, credits the
// charger owner 70% of it rounded up, and returns the driver a 30% reward
// rounded down. The two credits can sum to more than the debit; that
// inflation is part of the game design. A driver that cannot cover the next
// debit has its session stopped rather than going negative.
//
// Usage:
//
//	eng, err := engine.NewEngineWithPersistence(engine.DefaultWorldConfig(), store)
//	if err != nil {
//		log.Fatal(err)
//	}
//	eng.EnsureIdentity(engine.Identity{Pubkey: "pk1", Label: "Ada"})
//	if err := eng.MintLand("0-0"); err != nil {
//		log.Println(err)
//	}
//
//	ticker := engine.NewTicker(eng)
//	ticker.Start()
package engine
