package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Granularity identifies one leaderboard time bucket size.
type Granularity string

const (
	GranularityDay     Granularity = "day"
	GranularityWeek    Granularity = "week"
	GranularityMonth   Granularity = "month"
	GranularityAllTime Granularity = "alltime"
)

// BucketedGranularities are the granularities with real time buckets; the
// all-time rollup uses a single bucket of 0.
var BucketedGranularities = []Granularity{
	GranularityDay,
	GranularityWeek,
	GranularityMonth,
}

// Tier is one podium position.
type Tier int

const (
	TierGold Tier = iota
	TierSilver
	TierBronze
)

func (t Tier) String() string {
	switch t {
	case TierGold:
		return "gold"
	case TierSilver:
		return "silver"
	case TierBronze:
		return "bronze"
	default:
		return "unknown"
	}
}

// BrandScore is one row of the brand point rollup, keyed by
// (brandID, granularity, bucket). Rank is a nullable placeholder populated
// by an external batch job, never by the indexer.
type BrandScore struct {
	BrandID     int64
	Granularity Granularity
	Bucket      uint64 // bucket start timestamp; 0 for all-time
	Points      *big.Int
	GoldCount   int
	SilverCount int
	BronzeCount int
	Rank        *int
}

// UserScore is the all-time-only point ledger for one voter address. There is
// no time-bucketed user leaderboard.
type UserScore struct {
	Address common.Address
	Points  int64
	Rank    *int
}

// PeriodSummary is the closing summary for one finished bucket: the top
// brands of that bucket ordered by points descending.
type PeriodSummary struct {
	Granularity Granularity
	Bucket      uint64
	Top         []BrandScore
}
