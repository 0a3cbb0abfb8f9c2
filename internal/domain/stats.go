package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// UserStats holds cumulative per-address counters, split between activity as
// a creator and activity as a bidder. FirstActivityAt is set once when the
// row is created; LastActivityAt advances with every merged delta.
type UserStats struct {
	Address common.Address
	Fid     uint64

	// As creator.
	TotalAuctionsCreated int
	TotalCreatorEarnings *big.Int
	SuccessfulAuctions   int

	// As bidder.
	TotalBidsPlaced int
	TotalAmountBid  *big.Int
	AuctionsWon     int
	TotalAmountWon  *big.Int
	AuctionsLost    int

	FirstActivityAt uint64
	LastActivityAt  uint64
}

// UserStatsDelta is a set of additive increments merged onto a UserStats row.
// Nil big.Int fields mean no change.
type UserStatsDelta struct {
	AuctionsCreated    int
	CreatorEarnings    *big.Int
	SuccessfulAuctions int
	BidsPlaced         int
	AmountBid          *big.Int
	AuctionsWon        int
	AmountWon          *big.Int
	AuctionsLost       int
}

// DailyStats holds additive per-UTC-day counters. The duration/median/highest
// fields exist in the schema but are never populated by the indexer; they are
// reserved for an external batch job.
type DailyStats struct {
	Date      string // YYYY-MM-DD
	Timestamp uint64 // start-of-day epoch seconds

	AuctionsStarted   int
	AuctionsSettled   int
	AuctionsCancelled int

	TotalBids      int
	TotalVolume    *big.Int
	UniqueBidders  int
	UniqueCreators int

	ProtocolFees *big.Int

	AverageAuctionDuration *uint64
	MedianBidAmount        *big.Int
	HighestBid             *big.Int
}

// DailyStatsDelta is a set of additive increments merged onto a DailyStats
// row. Nil big.Int fields mean no change.
type DailyStatsDelta struct {
	AuctionsStarted   int
	AuctionsSettled   int
	AuctionsCancelled int
	TotalBids         int
	TotalVolume       *big.Int
	UniqueBidders     int
	UniqueCreators    int
	ProtocolFees      *big.Int
}
