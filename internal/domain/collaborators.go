package domain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// OnchainAuction is the supplementary contract read performed when an auction
// starts: the immutable parameters plus the live highest-bid fields used to
// seed the derived row.
type OnchainAuction struct {
	Params           AuctionParams
	HighestBidder    common.Address
	HighestBidderFid uint64
	HighestBid       *big.Int
}

// AuctionParamsReader reads auction state directly from the contract.
type AuctionParamsReader interface {
	ReadAuction(ctx context.Context, castHash common.Hash) (*OnchainAuction, error)
}

// BackendSink delivers indexed records to the coordination backend. All calls
// are fire-and-forget from the caller's point of view: errors are logged and
// swallowed, never retried, and never block or revert the state mutation
// they follow.
type BackendSink interface {
	SubmitVote(ctx context.Context, v *Vote) error
	SubmitBrand(ctx context.Context, b *Brand) error
	SubmitRewardClaim(ctx context.Context, c *RewardClaim) error
	SubmitUserLevel(ctx context.Context, p *PowerLevelUp) error
}

// SummarySink receives the closing summary of a finished leaderboard bucket.
type SummarySink interface {
	EmitPeriodSummary(ctx context.Context, s *PeriodSummary) error
}

// SocialNotifier publishes social posts about auction activity. Callers gate
// these behind a freshness check so historical backfill stays silent.
type SocialNotifier interface {
	AnnounceBid(ctx context.Context, a *Auction, bidderFid uint64) error
	AnnounceCollected(ctx context.Context, a *Auction, winnerFid uint64) error
}

// LeaderboardCache caches top-N leaderboard reads for the query API.
type LeaderboardCache interface {
	GetTopBrands(ctx context.Context, g Granularity, bucket uint64) ([]BrandScore, error)
	SetTopBrands(ctx context.Context, g Granularity, bucket uint64, scores []BrandScore) error
	Invalidate(ctx context.Context, g Granularity, bucket uint64) error
}

// EventBroadcaster pushes applied events to live subscribers (the websocket
// hub). Implementations must never block the indexing worker.
type EventBroadcaster interface {
	Broadcast(kind string, payload any)
}
