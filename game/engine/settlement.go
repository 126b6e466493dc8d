package engine

import (
	"fmt"
	"log/slog"
	"time"
)

// settleInterval is the minimum wall-clock gap between settle heartbeats.
const settleInterval = 2 * time.Second

// ownerCredit is the charger owner's share of one debit: 70% rounded up.
func ownerCredit(rate int) int {
	return (rate*7 + 9) / 10
}

// driverReward is the driver's kickback per debit: 30% rounded down.
// Together with ownerCredit it can exceed the debit; the economy is
// intentionally mildly inflationary, so the rounding must stay asymmetric.
func driverReward(rate int) int {
	return rate * 3 / 10
}

// Tick applies one settlement pass to every active session: debit the
// driver by the session rate, credit the charger owner 70% rounded up, and
// credit the driver a 30% reward rounded down. A driver that cannot afford
// the next debit has its session stopped instead of going negative. The
// whole pass runs under the engine lock, so no other mutation can observe a
// half-settled world.
func (e *Engine) Tick() {
	e.mu.Lock()
	defer e.mu.Unlock()

	changed := false
	for _, plotID := range e.sortedSessionIDs() {
		s := e.sessions[plotID]

		idx, ok := e.plotIndex[plotID]
		if !ok {
			continue // defensive: session on a plot that no longer exists
		}
		charger := e.grid[idx].Charger
		if charger == nil {
			continue
		}

		if e.pointsOf(s.Driver) < s.RatePerSec {
			// Funds depleted: auto-stop instead of a negative balance.
			e.stopLocked(plotID)
			changed = true
			continue
		}

		driver := e.balanceLocked(s.Driver)
		driver.Points -= s.RatePerSec
		driver.Spent += s.RatePerSec

		owner := e.balanceLocked(charger.Owner)
		credit := ownerCredit(s.RatePerSec)
		owner.Points += credit
		owner.Earned += credit

		reward := driverReward(s.RatePerSec)
		driver.Points += reward
		driver.Earned += reward
		changed = true
	}

	if changed {
		e.persistLocked()
	}
}

// SettleHeartbeat emits one observational settle event summarizing the
// active session count. It fires at most once per settleInterval of
// wall-clock time and never touches balances.
func (e *Engine) SettleHeartbeat() {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now()
	if now.Sub(e.lastSettle) < settleInterval {
		return
	}
	if active := len(e.sessions); active > 0 {
		e.pushEventLocked(EventSettle, fmt.Sprintf("Batch settled %d active session(s)", active))
		slog.Debug("settle heartbeat", "active_sessions", active)
	}
	e.lastSettle = now
}
