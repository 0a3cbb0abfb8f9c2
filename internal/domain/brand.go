package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Brand is one registered brand in the voting season.
type Brand struct {
	ID            int64
	Fid           uint64
	WalletAddress common.Address
	Handle        string
	MetadataHash  string

	TotalAwarded *big.Int
	Available    *big.Int

	CreatedAt uint64
	BlockNum  uint64
	TxHash    common.Hash
}

// Vote is one podium vote ranking exactly three brands [gold, silver,
// bronze] with an integer stake. Keyed by transaction hash.
type Vote struct {
	ID       string // transaction hash
	Voter    common.Address
	Fid      uint64
	Day      uint64 // day number: floor(epochSeconds / 86400)
	BrandIDs [3]int64
	Cost     *big.Int

	BlockNum  uint64
	TxHash    common.Hash
	Timestamp uint64
}

// User tracks per-fid voting state: power level and vote counters.
type User struct {
	Fid         uint64
	PowerLevel  int
	TotalVotes  int
	LastVoteDay uint64
	BlockNum    uint64
	TxHash      common.Hash
}

// WalletAuthorization records one wallet being authorized for a fid.
// Keyed by txHash-logIndex.
type WalletAuthorization struct {
	ID        string
	Fid       uint64
	Wallet    common.Address
	BlockNum  uint64
	TxHash    common.Hash
	Timestamp uint64
}

// RewardClaim records one reward claim. Keyed by txHash-logIndex.
type RewardClaim struct {
	ID        string
	Recipient common.Address
	Fid       uint64
	Amount    *big.Int
	Day       uint64
	CastRef   string
	Caller    common.Address
	BlockNum  uint64
	TxHash    common.Hash
	Timestamp uint64
}

// BrandRewardWithdrawal records a brand withdrawing accrued rewards.
// Keyed by txHash-logIndex.
type BrandRewardWithdrawal struct {
	ID        string
	BrandID   int64
	Fid       uint64
	Amount    *big.Int
	BlockNum  uint64
	TxHash    common.Hash
	Timestamp uint64
}

// PowerLevelUp records a user's power level change. Keyed by txHash-logIndex.
type PowerLevelUp struct {
	ID        string
	Fid       uint64
	NewLevel  int
	Wallet    common.Address
	BlockNum  uint64
	TxHash    common.Hash
	Timestamp uint64
}
