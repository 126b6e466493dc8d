package engine

import "sort"

// Leaderboard returns the top n identities ranked by lifetime earnings,
// each annotated with its owned-plot count. Ties break on pubkey so the
// ordering is stable.
func (e *Engine) Leaderboard(n int) []OwnerStanding {
	e.mu.Lock()
	defer e.mu.Unlock()

	plotsByOwner := make(map[string]int)
	for _, p := range e.grid {
		if p.Owned() {
			plotsByOwner[p.Owner]++
		}
	}

	standings := make([]OwnerStanding, 0, len(e.balances))
	for pk, bal := range e.balances {
		standings = append(standings, OwnerStanding{
			Pubkey: pk,
			Earned: bal.Earned,
			Plots:  plotsByOwner[pk],
		})
	}
	sort.Slice(standings, func(i, j int) bool {
		if standings[i].Earned != standings[j].Earned {
			return standings[i].Earned > standings[j].Earned
		}
		return standings[i].Pubkey < standings[j].Pubkey
	})

	if n > 0 && n < len(standings) {
		standings = standings[:n]
	}
	return standings
}
