package domain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ListOpts provides pagination for list queries.
type ListOpts struct {
	Limit  int
	Offset int
}

// AuctionStore persists auction lifecycle state.
type AuctionStore interface {
	Insert(ctx context.Context, a *Auction) error
	Get(ctx context.Context, castHash common.Hash) (*Auction, error)
	// Update merges the mutable fields of a onto the stored row.
	Update(ctx context.Context, a *Auction) error
	ListRecent(ctx context.Context, state *AuctionState, opts ListOpts) ([]*Auction, error)
	ListByCreator(ctx context.Context, creator common.Address, opts ListOpts) ([]*Auction, error)
	ListByCreatorFid(ctx context.Context, fid uint64, opts ListOpts) ([]*Auction, error)
	ListParticipated(ctx context.Context, bidder common.Address, opts ListOpts) ([]*Auction, error)
}

// BidStore persists the append-only bid ledger. Insert must reject duplicate
// ids silently so replayed events are no-ops.
type BidStore interface {
	Insert(ctx context.Context, b *Bid) error
	ListByAuction(ctx context.Context, castHash common.Hash) ([]*Bid, error)
	// FindRefundable returns the most recent not-yet-refunded bid matching
	// (castHash, bidder, amount), or ErrNotFound.
	FindRefundable(ctx context.Context, castHash common.Hash, bidder common.Address, amount *big.Int) (*Bid, error)
	MarkRefunded(ctx context.Context, id string, refundedAt uint64) error
}

// ExtensionStore persists the append-only extension ledger.
type ExtensionStore interface {
	Insert(ctx context.Context, e *AuctionExtension) error
	CountByAuction(ctx context.Context, castHash common.Hash) (int, error)
	ListByAuction(ctx context.Context, castHash common.Hash) ([]*AuctionExtension, error)
}

// UserStatsStore persists per-address cumulative counters. Apply merges the
// delta additively; FirstActivityAt is set only on row creation and
// LastActivityAt always advances to ts.
type UserStatsStore interface {
	Apply(ctx context.Context, addr common.Address, fid uint64, delta UserStatsDelta, ts uint64) error
	Get(ctx context.Context, addr common.Address) (*UserStats, error)
}

// DailyStatsStore persists per-UTC-day additive counters.
type DailyStatsStore interface {
	Apply(ctx context.Context, date string, dayStart uint64, delta DailyStatsDelta) error
	Get(ctx context.Context, date string) (*DailyStats, error)
	ListRecent(ctx context.Context, days int) ([]*DailyStats, error)
}

// CollectibleStore persists settlement mirrors and the bot-collector
// aggregate.
type CollectibleStore interface {
	InsertCollectible(ctx context.Context, c *CastCollectible) error
	InsertSettled(ctx context.Context, s *SettledRecord) error
	ListByWinner(ctx context.Context, winner common.Address, excludeBot bool, opts ListOpts) ([]*CastCollectible, error)
	// ApplyCollector additively merges one settlement into the per-winner
	// bot-collector aggregate.
	ApplyCollector(ctx context.Context, winner common.Address, winnerFid uint64, amount *big.Int, ts uint64) error
	ListCollectors(ctx context.Context, opts ListOpts) ([]*BotCollector, error)
}

// BrandStore persists brand registry rows.
type BrandStore interface {
	Insert(ctx context.Context, b *Brand) error
	InsertBatch(ctx context.Context, brands []*Brand) error
	Get(ctx context.Context, id int64) (*Brand, error)
	// UpdateMetadata merges metadata hash, fid and wallet onto the row.
	UpdateMetadata(ctx context.Context, id int64, metadataHash string, fid uint64, wallet common.Address, blockNum uint64, txHash common.Hash) error
}

// VoteStore persists the append-only vote ledger.
type VoteStore interface {
	Insert(ctx context.Context, v *Vote) error
	Get(ctx context.Context, id string) (*Vote, error)
}

// UserStore persists per-fid voting state.
type UserStore interface {
	Get(ctx context.Context, fid uint64) (*User, error)
	// RecordVote increments totalVotes and sets lastVoteDay, creating the
	// row if needed.
	RecordVote(ctx context.Context, fid uint64, day uint64, blockNum uint64, txHash common.Hash) error
	// SetPowerLevel sets the power level, creating the row if needed.
	SetPowerLevel(ctx context.Context, fid uint64, level int, blockNum uint64, txHash common.Hash) error
}

// ActivityStore persists the remaining append-only ledgers: wallet
// authorizations, reward claims, brand reward withdrawals and power level-up
// records. All inserts are keyed txHash-logIndex and tolerate replays.
type ActivityStore interface {
	InsertWalletAuthorization(ctx context.Context, a *WalletAuthorization) error
	InsertRewardClaim(ctx context.Context, c *RewardClaim) error
	InsertWithdrawal(ctx context.Context, w *BrandRewardWithdrawal) error
	InsertPowerLevelUp(ctx context.Context, p *PowerLevelUp) error
}

// LeaderboardStore persists brand and user point rollups.
type LeaderboardStore interface {
	// AddBrandPoints additively merges points and one tier occurrence into
	// the (brandID, granularity, bucket) rollup row.
	AddBrandPoints(ctx context.Context, brandID int64, g Granularity, bucket uint64, points *big.Int, tier Tier) error
	// AddUserPoints additively merges points into the all-time user row.
	AddUserPoints(ctx context.Context, addr common.Address, points int64) error
	// TopBrands returns up to n rollup rows for (g, bucket) ordered by
	// points descending, brand id ascending.
	TopBrands(ctx context.Context, g Granularity, bucket uint64, n int) ([]BrandScore, error)
	GetUserScore(ctx context.Context, addr common.Address) (*UserScore, error)
}

// CheckpointStore persists the period-tracking state that must survive
// restarts: the last-seen bucket per granularity and the set of
// (granularity, bucket) pairs whose closing summary was already emitted.
type CheckpointStore interface {
	LastSeenBucket(ctx context.Context, g Granularity) (uint64, bool, error)
	SetLastSeenBucket(ctx context.Context, g Granularity, bucket uint64) error
	WasEmitted(ctx context.Context, g Granularity, bucket uint64) (bool, error)
	MarkEmitted(ctx context.Context, g Granularity, bucket uint64) error
}
