package main

import "sort"

// ActionKind names the moves the strategy can make in one round.
type ActionKind string

const (
	ActionMint         ActionKind = "mint"
	ActionDeploy       ActionKind = "deploy"
	ActionStartSession ActionKind = "start-session"
	ActionWait         ActionKind = "wait"
)

// Action is one decision: what to do and on which plot.
type Action struct {
	Kind   ActionKind
	PlotID string
}

func (a Action) String() string {
	if a.PlotID == "" {
		return string(a.Kind)
	}
	return string(a.Kind) + " " + a.PlotID
}

// Economy constants the strategy assumes. They mirror the default world;
// the strategy stays safe on custom worlds because every action is
// re-validated server-side.
const (
	mintPrice   = 50
	deployStake = 100
)

// ExpansionStrategy plays a simple land-grab game: deploy a charger on
// every plot it owns, keep one session running so settlement keeps moving
// points, and otherwise mint the next free plot whenever the balance covers
// a full mint-and-deploy cycle plus a session reserve.
type ExpansionStrategy struct {
	pubkey string
	rate   int
}

func NewExpansionStrategy(pubkey string, rate int) *ExpansionStrategy {
	return &ExpansionStrategy{pubkey: pubkey, rate: rate}
}

// NextAction inspects the world and picks one move. Priority order:
// deploy on owned bare plots first (staked chargers are what earn), then
// keep a session alive, then expand.
func (s *ExpansionStrategy) NextAction(view *WorldView) Action {
	points := view.Balances[s.pubkey].Points

	// 1. An owned plot without a charger is idle capital.
	if points >= deployStake {
		if id := s.firstOwnedBare(view); id != "" {
			return Action{Kind: ActionDeploy, PlotID: id}
		}
	}

	// 2. No session running: start one on our best charger so the
	// settlement loop has something to move. Keep a reserve so the
	// session survives more than a couple of ticks.
	if view.ActiveSessions == 0 && points >= s.rate*10 {
		if id := s.firstOwnedCharger(view); id != "" {
			return Action{Kind: ActionStartSession, PlotID: id}
		}
	}

	// 3. Expand while a full mint+deploy cycle is affordable.
	if points >= mintPrice+deployStake+s.rate*10 {
		if id := s.firstUnowned(view); id != "" {
			return Action{Kind: ActionMint, PlotID: id}
		}
	}

	return Action{Kind: ActionWait}
}

func (s *ExpansionStrategy) firstOwnedBare(view *WorldView) string {
	return s.firstPlot(view, func(p Plot) bool {
		return p.Owner == s.pubkey && p.Charger == nil
	})
}

func (s *ExpansionStrategy) firstOwnedCharger(view *WorldView) string {
	return s.firstPlot(view, func(p Plot) bool {
		if p.Owner != s.pubkey || p.Charger == nil {
			return false
		}
		_, busy := view.Sessions[p.ID]
		return !busy
	})
}

func (s *ExpansionStrategy) firstUnowned(view *WorldView) string {
	return s.firstPlot(view, func(p Plot) bool {
		return p.Owner == ""
	})
}

// firstPlot scans plots in row-major order so expansion grows from the
// top-left corner instead of jumping around the grid.
func (s *ExpansionStrategy) firstPlot(view *WorldView, keep func(Plot) bool) string {
	plots := make([]Plot, 0, len(view.Grid))
	for _, p := range view.Grid {
		if keep(p) {
			plots = append(plots, p)
		}
	}
	if len(plots) == 0 {
		return ""
	}
	sort.Slice(plots, func(i, j int) bool {
		if plots[i].Row != plots[j].Row {
			return plots[i].Row < plots[j].Row
		}
		return plots[i].Col < plots[j].Col
	})
	return plots[0].ID
}

func (s *ExpansionStrategy) ownedPlots(view *WorldView) int {
	n := 0
	for _, p := range view.Grid {
		if p.Owner == s.pubkey {
			n++
		}
	}
	return n
}

func (s *ExpansionStrategy) ownedChargers(view *WorldView) int {
	n := 0
	for _, p := range view.Grid {
		if p.Owner == s.pubkey && p.Charger != nil {
			n++
		}
	}
	return n
}
