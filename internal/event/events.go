// Package event defines the strongly typed events consumed by the indexing
// worker and the decoder that produces them from raw contract logs. All
// dynamic log-argument access happens here, at the boundary; downstream
// components only ever see these structs.
package event

import (
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
)

// Kind discriminates decoded event payloads.
type Kind int32

const (
	KindUnknown Kind = iota
	KindAuctionStarted
	KindBidPlaced
	KindBidRefunded
	KindAuctionExtended
	KindAuctionSettled
	KindAuctionCancelled
	KindPodiumCreated
	KindBrandCreated
	KindBrandsCreated
	KindWalletAuthorized
	KindRewardClaimed
	KindBrandRewardWithdrawn
	KindPowerLevelUp
	KindBrandUpdated
)

func (k Kind) String() string {
	switch k {
	case KindAuctionStarted:
		return "AuctionStarted"
	case KindBidPlaced:
		return "BidPlaced"
	case KindBidRefunded:
		return "BidRefunded"
	case KindAuctionExtended:
		return "AuctionExtended"
	case KindAuctionSettled:
		return "AuctionSettled"
	case KindAuctionCancelled:
		return "AuctionCancelled"
	case KindPodiumCreated:
		return "PodiumCreated"
	case KindBrandCreated:
		return "BrandCreated"
	case KindBrandsCreated:
		return "BrandsCreated"
	case KindWalletAuthorized:
		return "WalletAuthorized"
	case KindRewardClaimed:
		return "RewardClaimed"
	case KindBrandRewardWithdrawn:
		return "BrandRewardWithdrawn"
	case KindPowerLevelUp:
		return "PowerLevelUp"
	case KindBrandUpdated:
		return "BrandUpdated"
	default:
		return "Unknown"
	}
}

// Meta carries the chain coordinates shared by every decoded event. Events
// are delivered in non-decreasing (BlockNumber, LogIndex) order.
type Meta struct {
	BlockNumber uint64
	LogIndex    uint
	TxHash      common.Hash
	Timestamp   uint64 // block timestamp, epoch seconds
}

// Ref returns the meta itself; embedding Meta gives every event the
// Event interface's Ref method.
func (m Meta) Ref() Meta { return m }

// DedupKey is the stable composite identifier used to reject duplicate
// insertion of append-only rows under at-least-once delivery.
func (m Meta) DedupKey() string {
	return m.TxHash.Hex() + "-" + strconv.FormatUint(uint64(m.LogIndex), 10)
}

// Event is implemented by every decoded payload.
type Event interface {
	Kind() Kind
	Ref() Meta
}

// AuctionStarted opens a new auction for a cast.
type AuctionStarted struct {
	Meta
	CastHash   common.Hash
	Creator    common.Address
	CreatorFid uint64
	EndTime    uint64
	Authorizer common.Address
}

func (*AuctionStarted) Kind() Kind { return KindAuctionStarted }

// BidPlaced records a new highest bid on an active auction.
type BidPlaced struct {
	Meta
	CastHash   common.Hash
	Bidder     common.Address
	BidderFid  uint64
	Amount     *big.Int
	Authorizer common.Address
}

func (*BidPlaced) Kind() Kind { return KindBidPlaced }

// BidRefunded records an outbid bidder being refunded.
type BidRefunded struct {
	Meta
	CastHash common.Hash
	To       common.Address
	Amount   *big.Int
}

func (*BidRefunded) Kind() Kind { return KindBidRefunded }

// AuctionExtended pushes an auction's end time out after a late bid.
type AuctionExtended struct {
	Meta
	CastHash   common.Hash
	NewEndTime uint64
}

func (*AuctionExtended) Kind() Kind { return KindAuctionExtended }

// AuctionSettled closes an auction with a winner and final amount.
type AuctionSettled struct {
	Meta
	CastHash  common.Hash
	Winner    common.Address
	WinnerFid uint64
	Amount    *big.Int
}

func (*AuctionSettled) Kind() Kind { return KindAuctionSettled }

// AuctionCancelled voids an auction; any refund happens on-chain.
type AuctionCancelled struct {
	Meta
	CastHash          common.Hash
	RefundedBidder    common.Address
	RefundedBidderFid uint64
	Authorizer        common.Address
}

func (*AuctionCancelled) Kind() Kind { return KindAuctionCancelled }

// PodiumCreated is one stake-weighted vote ranking exactly three brands.
type PodiumCreated struct {
	Meta
	Voter    common.Address
	Fid      uint64
	Day      uint64
	BrandIDs [3]int64 // [gold, silver, bronze]
	Cost     *big.Int
}

func (*PodiumCreated) Kind() Kind { return KindPodiumCreated }

// BrandCreated registers a single brand.
type BrandCreated struct {
	Meta
	BrandID       int64
	Handle        string
	Fid           uint64
	WalletAddress common.Address
	CreatedAt     uint64
}

func (*BrandCreated) Kind() Kind { return KindBrandCreated }

// BrandsCreated registers a batch of brands in one transaction.
type BrandsCreated struct {
	Meta
	BrandIDs        []int64
	Handles         []string
	Fids            []uint64
	WalletAddresses []common.Address
	CreatedAt       uint64
}

func (*BrandsCreated) Kind() Kind { return KindBrandsCreated }

// WalletAuthorized links a wallet to a fid.
type WalletAuthorized struct {
	Meta
	Fid    uint64
	Wallet common.Address
}

func (*WalletAuthorized) Kind() Kind { return KindWalletAuthorized }

// RewardClaimed records a user claiming accrued rewards.
type RewardClaimed struct {
	Meta
	Recipient common.Address
	Fid       uint64
	Amount    *big.Int
	Day       uint64
	CastRef   string
	Caller    common.Address
}

func (*RewardClaimed) Kind() Kind { return KindRewardClaimed }

// BrandRewardWithdrawn records a brand withdrawing accrued rewards.
type BrandRewardWithdrawn struct {
	Meta
	BrandID int64
	Fid     uint64
	Amount  *big.Int
}

func (*BrandRewardWithdrawn) Kind() Kind { return KindBrandRewardWithdrawn }

// PowerLevelUp records a user's new power level.
type PowerLevelUp struct {
	Meta
	Fid      uint64
	NewLevel int
	Wallet   common.Address
}

func (*PowerLevelUp) Kind() Kind { return KindPowerLevelUp }

// BrandUpdated rewrites a brand's metadata, fid and wallet.
type BrandUpdated struct {
	Meta
	BrandID          int64
	NewMetadataHash  string
	NewFid           uint64
	NewWalletAddress common.Address
}

func (*BrandUpdated) Kind() Kind { return KindBrandUpdated }
