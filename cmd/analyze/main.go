// Command analyze prints quick, human-readable heuristics about a persisted
// world snapshot. It summarizes grid occupancy, charger deployment, the
// points ledger, active sessions, and highlights sessions whose driver is
// about to run dry.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/voltplay/driveworld/game/engine"
	"github.com/voltplay/driveworld/game/store"
)

func main() {
	var (
		path    = flag.String("store", "data/world.json", "Snapshot path (.zst supported for the file backend)")
		backend = flag.String("backend", "file", "Snapshot backend: file or sqlite")
	)
	flag.Parse()

	snap, err := loadSnapshot(*backend, *path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("=== World snapshot: %s (%s) ===\n", *path, *backend)
	analyzeSnapshot(os.Stdout, snap)
}

func loadSnapshot(backend, path string) (*engine.Snapshot, error) {
	var (
		st  store.Store
		err error
	)
	switch backend {
	case "file":
		st, err = store.NewFileStore(path)
	case "sqlite":
		st, err = store.OpenSQLite(path)
	default:
		return nil, fmt.Errorf("unknown backend %q (want file or sqlite)", backend)
	}
	if err != nil {
		return nil, err
	}
	return st.Load()
}

func analyzeSnapshot(w io.Writer, snap *engine.Snapshot) {
	owned := 0
	chargers := 0
	staked := 0
	for _, p := range snap.Grid {
		if p.Owned() {
			owned++
		}
		if p.Charger != nil {
			chargers++
			staked += p.Charger.Staked
		}
	}

	fmt.Fprintf(w, "Grid: %d x %d (%d plots)\n", snap.Rows, snap.Cols, len(snap.Grid))
	fmt.Fprintf(w, "Owned plots: %d (%.0f%%)\n", owned, percent(owned, len(snap.Grid)))
	fmt.Fprintf(w, "Chargers deployed: %d (%d POINTS staked)\n", chargers, staked)
	if snap.User != nil {
		fmt.Fprintf(w, "Active identity: %s (%s)\n", snap.User.Label, snap.User.Pubkey)
	}

	circulating := 0
	earned := 0
	for _, bal := range snap.Balances {
		circulating += bal.Points
		earned += bal.Earned
	}
	fmt.Fprintf(w, "Identities in ledger: %d\n", len(snap.Balances))
	fmt.Fprintf(w, "Points in circulation: %d (lifetime earned: %d)\n", circulating, earned)

	// Top balances, largest first.
	type holding struct {
		pubkey string
		points int
	}
	holdings := make([]holding, 0, len(snap.Balances))
	for pk, bal := range snap.Balances {
		holdings = append(holdings, holding{pk, bal.Points})
	}
	sort.Slice(holdings, func(i, j int) bool {
		if holdings[i].points != holdings[j].points {
			return holdings[i].points > holdings[j].points
		}
		return holdings[i].pubkey < holdings[j].pubkey
	})
	for i, h := range holdings {
		if i >= 5 {
			fmt.Fprintf(w, "   ... and %d more\n", len(holdings)-5)
			break
		}
		fmt.Fprintf(w, "   %d. %s: %d POINTS\n", i+1, h.pubkey, h.points)
	}

	fmt.Fprintf(w, "Active sessions: %d\n", len(snap.Sessions))

	// A session whose driver holds fewer points than a few seconds of its
	// rate will auto-stop almost immediately after resume.
	lowFuel := 0
	plotIDs := make([]string, 0, len(snap.Sessions))
	for id := range snap.Sessions {
		plotIDs = append(plotIDs, id)
	}
	sort.Strings(plotIDs)
	for _, id := range plotIDs {
		s := snap.Sessions[id]
		points := 0
		if bal, ok := snap.Balances[s.Driver]; ok {
			points = bal.Points
		}
		if points < s.RatePerSec*5 {
			lowFuel++
			fmt.Fprintf(w, "⚠️  Session on %s: driver %s has %d POINTS at %d/s (seconds left: %d)\n",
				id, s.Driver, points, s.RatePerSec, secondsLeft(points, s.RatePerSec))
		}
	}
	if len(snap.Sessions) > 0 && lowFuel == 0 {
		fmt.Fprintf(w, "✅ All session drivers are funded for at least 5 more seconds\n")
	}

	fmt.Fprintf(w, "Event log: %d entries\n", len(snap.Events))
	if len(snap.Events) > 0 {
		fmt.Fprintf(w, "   Latest: [%s] %s\n", snap.Events[0].Kind, snap.Events[0].Text)
	}
}

func percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}

func secondsLeft(points, rate int) int {
	if rate <= 0 {
		return 0
	}
	return points / rate
}
