// Package chain reads auction state directly from the contract. The start
// event only carries the cast hash, creator and end time; the remaining
// parameters live in the contract's auctions mapping and are fetched once per
// auction when it opens.
package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/brndhq/brndindexer/internal/domain"
)

// auctionsABI is the single getter this package needs: the public auctions
// mapping keyed by cast hash.
const auctionsABI = `[{
	"type": "function",
	"name": "auctions",
	"stateMutability": "view",
	"inputs": [{"name": "castHash", "type": "bytes32"}],
	"outputs": [
		{"name": "creator", "type": "address"},
		{"name": "creatorFid", "type": "uint256"},
		{"name": "highestBidder", "type": "address"},
		{"name": "highestBidderFid", "type": "uint256"},
		{"name": "highestBid", "type": "uint256"},
		{"name": "startTime", "type": "uint256"},
		{"name": "endTime", "type": "uint256"},
		{"name": "lastBidAt", "type": "uint256"},
		{"name": "state", "type": "uint8"},
		{"name": "params", "type": "tuple", "components": [
			{"name": "minBid", "type": "uint256"},
			{"name": "minBidIncrementBps", "type": "uint256"},
			{"name": "protocolFeeBps", "type": "uint256"},
			{"name": "duration", "type": "uint256"},
			{"name": "extension", "type": "uint256"},
			{"name": "extensionThreshold", "type": "uint256"}
		]}
	]
}]`

// ContractCaller is the slice of the eth client this package uses.
// *ethclient.Client satisfies it.
type ContractCaller interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Reader implements domain.AuctionParamsReader against a JSON-RPC endpoint.
type Reader struct {
	caller   ContractCaller
	contract common.Address
	abi      abi.ABI
}

// NewReader wraps an existing caller.
func NewReader(caller ContractCaller, contract common.Address) (*Reader, error) {
	parsed, err := abi.JSON(strings.NewReader(auctionsABI))
	if err != nil {
		return nil, fmt.Errorf("chain: parse abi: %w", err)
	}
	return &Reader{caller: caller, contract: contract, abi: parsed}, nil
}

type auctionParamsResult struct {
	MinBid             *big.Int
	MinBidIncrementBps *big.Int
	ProtocolFeeBps     *big.Int
	Duration           *big.Int
	Extension          *big.Int
	ExtensionThreshold *big.Int
}

type auctionResult struct {
	Creator          common.Address
	CreatorFid       *big.Int
	HighestBidder    common.Address
	HighestBidderFid *big.Int
	HighestBid       *big.Int
	StartTime        *big.Int
	EndTime          *big.Int
	LastBidAt        *big.Int
	State            uint8
	Params           auctionParamsResult
}

// ReadAuction fetches the live auction row for one cast hash at the latest
// block.
func (r *Reader) ReadAuction(ctx context.Context, castHash common.Hash) (*domain.OnchainAuction, error) {
	input, err := r.abi.Pack("auctions", [32]byte(castHash))
	if err != nil {
		return nil, fmt.Errorf("chain: pack auctions call: %w", err)
	}

	out, err := r.caller.CallContract(ctx, ethereum.CallMsg{
		To:   &r.contract,
		Data: input,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("chain: read auction %s: %w", castHash, err)
	}

	var res auctionResult
	if err := r.abi.UnpackIntoInterface(&res, "auctions", out); err != nil {
		return nil, fmt.Errorf("chain: unpack auction %s: %w", castHash, err)
	}

	return &domain.OnchainAuction{
		Params: domain.AuctionParams{
			MinBid:             res.Params.MinBid,
			MinBidIncrementBps: int(res.Params.MinBidIncrementBps.Int64()),
			ProtocolFeeBps:     int(res.Params.ProtocolFeeBps.Int64()),
			Duration:           int(res.Params.Duration.Int64()),
			Extension:          int(res.Params.Extension.Int64()),
			ExtensionThreshold: int(res.Params.ExtensionThreshold.Int64()),
		},
		HighestBidder:    res.HighestBidder,
		HighestBidderFid: res.HighestBidderFid.Uint64(),
		HighestBid:       res.HighestBid,
	}, nil
}

// Compile-time interface check.
var _ domain.AuctionParamsReader = (*Reader)(nil)
