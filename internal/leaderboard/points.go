// Package leaderboard folds podium votes and reward activity into the brand
// and user point rollups, and emits one-time closing summaries when a time
// bucket rolls over.
package leaderboard

import "math/big"

const (
	// Flat points a voter earns per podium vote, all-time ledger only.
	voterPoints = 3

	// Bonus points per power level when a reward is claimed.
	claimBonusPerLevel = 3
)

// SplitStake divides a vote's stake across the podium tiers as 60/30/10,
// flooring each share. The truncation remainder is not redistributed; the
// three shares may sum to slightly less than the stake.
func SplitStake(cost *big.Int) (gold, silver, bronze *big.Int) {
	return share(cost, 60), share(cost, 30), share(cost, 10)
}

func share(cost *big.Int, pct int64) *big.Int {
	s := new(big.Int).Mul(cost, big.NewInt(pct))
	return s.Div(s, big.NewInt(100))
}
