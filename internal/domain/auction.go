package domain

import (
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
)

// AuctionState represents the lifecycle state of a cast auction.
type AuctionState int

const (
	AuctionStateNone AuctionState = iota
	AuctionStateActive
	AuctionStateEnded
	AuctionStateSettled
	AuctionStateCancelled
	AuctionStateRecovered
)

// Terminal reports whether the state admits no further transitions.
func (s AuctionState) Terminal() bool {
	return s == AuctionStateSettled || s == AuctionStateCancelled
}

func (s AuctionState) String() string {
	switch s {
	case AuctionStateNone:
		return "none"
	case AuctionStateActive:
		return "active"
	case AuctionStateEnded:
		return "ended"
	case AuctionStateSettled:
		return "settled"
	case AuctionStateCancelled:
		return "cancelled"
	case AuctionStateRecovered:
		return "recovered"
	default:
		return "unknown"
	}
}

// AuctionParams are the immutable on-chain parameters read when an auction
// starts. They never change for the lifetime of the auction.
type AuctionParams struct {
	MinBid             *big.Int
	MinBidIncrementBps int
	ProtocolFeeBps     int
	Duration           int
	Extension          int
	ExtensionThreshold int
}

// Auction is the derived state of one cast auction, keyed by the cast hash.
// Created on the start event, mutated by every subsequent event referencing
// it, never deleted.
type Auction struct {
	CastHash common.Hash
	Creator  common.Address

	CreatorFid uint64
	State      AuctionState

	Params AuctionParams

	StartTime uint64
	EndTime   uint64
	LastBidAt uint64

	HighestBidder    common.Address
	HighestBidderFid uint64
	HighestBid       *big.Int
	TotalBids        int

	// Settlement fields, nil/zero until the auction settles.
	SettledAt      uint64
	TreasuryAmount *big.Int
	CreatorAmount  *big.Int

	StartBlockNumber uint64
	StartTxHash      common.Hash
}

// Bid is an append-only ledger entry for one placed bid. Immutable except for
// the refund flag and timestamp.
type Bid struct {
	ID         string // castHash-bidIndex, or castHash-refunded-ts for detached refunds
	CastHash   common.Hash
	Bidder     common.Address
	BidderFid  uint64
	Amount     *big.Int
	BidIndex   int
	Timestamp  uint64
	BlockNum   uint64
	TxHash     common.Hash
	Authorizer common.Address

	WasRefunded bool
	RefundedAt  uint64
}

// BidID builds the canonical bid ledger key.
func BidID(castHash common.Hash, index int) string {
	return castHash.Hex() + "-" + strconv.Itoa(index)
}

// AuctionExtension is an append-only record of one end-time extension.
type AuctionExtension struct {
	ID          string // castHash-extensionIndex
	CastHash    common.Hash
	OldEndTime  uint64
	NewEndTime  uint64
	Index       int
	TriggeredBy common.Address
	Timestamp   uint64
	BlockNum    uint64
	TxHash      common.Hash
}

// ExtensionID builds the canonical extension ledger key.
func ExtensionID(castHash common.Hash, index int) string {
	return castHash.Hex() + "-" + strconv.Itoa(index)
}

// CastCollectible mirrors a settled auction for collection queries.
type CastCollectible struct {
	CastHash    common.Hash
	Creator     common.Address
	CreatorFid  uint64
	Winner      common.Address
	WinnerFid   uint64
	FinalAmount *big.Int
	IsFromBot   bool
	SettledAt   uint64
	BlockNum    uint64
	TxHash      common.Hash
}

// SettledRecord is the flat settlement row kept alongside the collectible
// mirror for backward compatibility with older consumers.
type SettledRecord struct {
	CastHash  common.Hash
	Winner    common.Address
	WinnerFid uint64
	Amount    *big.Int
	BlockNum  uint64
	Timestamp uint64
	TxHash    common.Hash
}

// BotCollector aggregates, per winner address, settlements of auctions whose
// creator is the designated bot identity.
type BotCollector struct {
	Winner           common.Address
	WinnerFid        uint64
	TotalCollected   int
	TotalAmountSpent *big.Int
	FirstCollectedAt uint64
	LastCollectedAt  uint64
}
