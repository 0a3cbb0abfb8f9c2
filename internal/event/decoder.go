package event

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"golang.org/x/crypto/sha3"
)

// ErrUnknownEvent is returned for logs whose topic0 matches none of the
// contract events the indexer handles. Callers skip those logs.
var ErrUnknownEvent = errors.New("event: unknown topic")

// Event signatures for the auction and brand contracts.
const (
	sigAuctionStarted       = "AuctionStarted(bytes32,address,uint256,uint256,address)"
	sigBidPlaced            = "BidPlaced(bytes32,address,uint256,uint256,address)"
	sigBidRefunded          = "BidRefunded(bytes32,address,uint256)"
	sigAuctionExtended      = "AuctionExtended(bytes32,uint256)"
	sigAuctionSettled       = "AuctionSettled(bytes32,address,uint256,uint256)"
	sigAuctionCancelled     = "AuctionCancelled(bytes32,address,uint256,address)"
	sigPodiumCreated        = "PodiumCreated(address,uint256,uint256,uint256[3],uint256)"
	sigBrandCreated         = "BrandCreated(uint256,string,uint256,address,uint256)"
	sigBrandsCreated        = "BrandsCreated(uint256[],string[],uint256[],address[],uint256)"
	sigWalletAuthorized     = "WalletAuthorized(uint256,address)"
	sigRewardClaimed        = "RewardClaimed(address,uint256,uint256,uint256,string,address)"
	sigBrandRewardWithdrawn = "BrandRewardWithdrawn(uint256,uint256,uint256)"
	sigPowerLevelUp         = "PowerLevelUp(uint256,uint256,address)"
	sigBrandUpdated         = "BrandUpdated(uint256,string,uint256,address)"
)

type decodeFunc func(lg types.Log, m Meta) (Event, error)

// Decoder turns raw contract logs into typed events by topic0.
type Decoder struct {
	byTopic map[common.Hash]decodeFunc
}

// NewDecoder builds the decoder with all handled event signatures
// registered.
func NewDecoder() *Decoder {
	d := &Decoder{byTopic: make(map[common.Hash]decodeFunc)}
	d.register(sigAuctionStarted, decodeAuctionStarted)
	d.register(sigBidPlaced, decodeBidPlaced)
	d.register(sigBidRefunded, decodeBidRefunded)
	d.register(sigAuctionExtended, decodeAuctionExtended)
	d.register(sigAuctionSettled, decodeAuctionSettled)
	d.register(sigAuctionCancelled, decodeAuctionCancelled)
	d.register(sigPodiumCreated, decodePodiumCreated)
	d.register(sigBrandCreated, decodeBrandCreated)
	d.register(sigBrandsCreated, decodeBrandsCreated)
	d.register(sigWalletAuthorized, decodeWalletAuthorized)
	d.register(sigRewardClaimed, decodeRewardClaimed)
	d.register(sigBrandRewardWithdrawn, decodeBrandRewardWithdrawn)
	d.register(sigPowerLevelUp, decodePowerLevelUp)
	d.register(sigBrandUpdated, decodeBrandUpdated)
	return d
}

func (d *Decoder) register(sig string, fn decodeFunc) {
	d.byTopic[SigTopic(sig)] = fn
}

// Decode translates one log into a typed event. blockTime is the timestamp of
// the enclosing block in epoch seconds; logs carry no timestamp of their own.
func (d *Decoder) Decode(lg types.Log, blockTime uint64) (Event, error) {
	if len(lg.Topics) == 0 {
		return nil, ErrUnknownEvent
	}
	fn, ok := d.byTopic[lg.Topics[0]]
	if !ok {
		return nil, ErrUnknownEvent
	}
	m := Meta{
		BlockNumber: lg.BlockNumber,
		LogIndex:    lg.Index,
		TxHash:      lg.TxHash,
		Timestamp:   blockTime,
	}
	return fn(lg, m)
}

// SigTopic hashes a canonical event signature into its topic0 value.
func SigTopic(sig string) common.Hash {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(sig))
	var out common.Hash
	h.Sum(out[:0])
	return out
}

func mustType(s string) abi.Type {
	t, err := abi.NewType(s, "", nil)
	if err != nil {
		panic(fmt.Sprintf("event: bad abi type %q: %v", s, err))
	}
	return t
}

func dataArgs(typs ...string) abi.Arguments {
	args := make(abi.Arguments, len(typs))
	for i, s := range typs {
		args[i] = abi.Argument{Type: mustType(s)}
	}
	return args
}

func needTopics(lg types.Log, n int, name string) error {
	if len(lg.Topics) < n {
		return fmt.Errorf("event: %s: want %d topics, got %d", name, n, len(lg.Topics))
	}
	return nil
}

func unpackData(lg types.Log, name string, typs ...string) ([]any, error) {
	vals, err := dataArgs(typs...).Unpack(lg.Data)
	if err != nil {
		return nil, fmt.Errorf("event: %s: unpack data: %w", name, err)
	}
	return vals, nil
}

func topicAddr(h common.Hash) common.Address {
	return common.BytesToAddress(h.Bytes())
}

func topicBig(h common.Hash) *big.Int {
	return new(big.Int).SetBytes(h.Bytes())
}

// AuctionStarted(bytes32 indexed castHash, address indexed creator,
// uint256 creatorFid, uint256 endTime, address authorizer)
func decodeAuctionStarted(lg types.Log, m Meta) (Event, error) {
	if err := needTopics(lg, 3, "AuctionStarted"); err != nil {
		return nil, err
	}
	vals, err := unpackData(lg, "AuctionStarted", "uint256", "uint256", "address")
	if err != nil {
		return nil, err
	}
	return &AuctionStarted{
		Meta:       m,
		CastHash:   lg.Topics[1],
		Creator:    topicAddr(lg.Topics[2]),
		CreatorFid: vals[0].(*big.Int).Uint64(),
		EndTime:    vals[1].(*big.Int).Uint64(),
		Authorizer: vals[2].(common.Address),
	}, nil
}

// BidPlaced(bytes32 indexed castHash, address indexed bidder,
// uint256 bidderFid, uint256 amount, address authorizer)
func decodeBidPlaced(lg types.Log, m Meta) (Event, error) {
	if err := needTopics(lg, 3, "BidPlaced"); err != nil {
		return nil, err
	}
	vals, err := unpackData(lg, "BidPlaced", "uint256", "uint256", "address")
	if err != nil {
		return nil, err
	}
	return &BidPlaced{
		Meta:       m,
		CastHash:   lg.Topics[1],
		Bidder:     topicAddr(lg.Topics[2]),
		BidderFid:  vals[0].(*big.Int).Uint64(),
		Amount:     vals[1].(*big.Int),
		Authorizer: vals[2].(common.Address),
	}, nil
}

// BidRefunded(bytes32 indexed castHash, address indexed to, uint256 amount)
func decodeBidRefunded(lg types.Log, m Meta) (Event, error) {
	if err := needTopics(lg, 3, "BidRefunded"); err != nil {
		return nil, err
	}
	vals, err := unpackData(lg, "BidRefunded", "uint256")
	if err != nil {
		return nil, err
	}
	return &BidRefunded{
		Meta:     m,
		CastHash: lg.Topics[1],
		To:       topicAddr(lg.Topics[2]),
		Amount:   vals[0].(*big.Int),
	}, nil
}

// AuctionExtended(bytes32 indexed castHash, uint256 newEndTime)
func decodeAuctionExtended(lg types.Log, m Meta) (Event, error) {
	if err := needTopics(lg, 2, "AuctionExtended"); err != nil {
		return nil, err
	}
	vals, err := unpackData(lg, "AuctionExtended", "uint256")
	if err != nil {
		return nil, err
	}
	return &AuctionExtended{
		Meta:       m,
		CastHash:   lg.Topics[1],
		NewEndTime: vals[0].(*big.Int).Uint64(),
	}, nil
}

// AuctionSettled(bytes32 indexed castHash, address indexed winner,
// uint256 winnerFid, uint256 amount)
func decodeAuctionSettled(lg types.Log, m Meta) (Event, error) {
	if err := needTopics(lg, 3, "AuctionSettled"); err != nil {
		return nil, err
	}
	vals, err := unpackData(lg, "AuctionSettled", "uint256", "uint256")
	if err != nil {
		return nil, err
	}
	return &AuctionSettled{
		Meta:      m,
		CastHash:  lg.Topics[1],
		Winner:    topicAddr(lg.Topics[2]),
		WinnerFid: vals[0].(*big.Int).Uint64(),
		Amount:    vals[1].(*big.Int),
	}, nil
}

// AuctionCancelled(bytes32 indexed castHash, address refundedBidder,
// uint256 refundedBidderFid, address authorizer)
func decodeAuctionCancelled(lg types.Log, m Meta) (Event, error) {
	if err := needTopics(lg, 2, "AuctionCancelled"); err != nil {
		return nil, err
	}
	vals, err := unpackData(lg, "AuctionCancelled", "address", "uint256", "address")
	if err != nil {
		return nil, err
	}
	return &AuctionCancelled{
		Meta:              m,
		CastHash:          lg.Topics[1],
		RefundedBidder:    vals[0].(common.Address),
		RefundedBidderFid: vals[1].(*big.Int).Uint64(),
		Authorizer:        vals[2].(common.Address),
	}, nil
}

// PodiumCreated(address indexed voter, uint256 fid, uint256 day,
// uint256[3] brandIds, uint256 cost)
func decodePodiumCreated(lg types.Log, m Meta) (Event, error) {
	if err := needTopics(lg, 2, "PodiumCreated"); err != nil {
		return nil, err
	}
	vals, err := unpackData(lg, "PodiumCreated", "uint256", "uint256", "uint256[3]", "uint256")
	if err != nil {
		return nil, err
	}
	raw := vals[2].([3]*big.Int)
	var ids [3]int64
	for i, v := range raw {
		ids[i] = v.Int64()
	}
	return &PodiumCreated{
		Meta:     m,
		Voter:    topicAddr(lg.Topics[1]),
		Fid:      vals[0].(*big.Int).Uint64(),
		Day:      vals[1].(*big.Int).Uint64(),
		BrandIDs: ids,
		Cost:     vals[3].(*big.Int),
	}, nil
}

// BrandCreated(uint256 indexed brandId, string handle, uint256 fid,
// address walletAddress, uint256 createdAt)
func decodeBrandCreated(lg types.Log, m Meta) (Event, error) {
	if err := needTopics(lg, 2, "BrandCreated"); err != nil {
		return nil, err
	}
	vals, err := unpackData(lg, "BrandCreated", "string", "uint256", "address", "uint256")
	if err != nil {
		return nil, err
	}
	return &BrandCreated{
		Meta:          m,
		BrandID:       topicBig(lg.Topics[1]).Int64(),
		Handle:        vals[0].(string),
		Fid:           vals[1].(*big.Int).Uint64(),
		WalletAddress: vals[2].(common.Address),
		CreatedAt:     vals[3].(*big.Int).Uint64(),
	}, nil
}

// BrandsCreated(uint256[] brandIds, string[] handles, uint256[] fids,
// address[] walletAddresses, uint256 createdAt)
func decodeBrandsCreated(lg types.Log, m Meta) (Event, error) {
	vals, err := unpackData(lg, "BrandsCreated", "uint256[]", "string[]", "uint256[]", "address[]", "uint256")
	if err != nil {
		return nil, err
	}
	rawIDs := vals[0].([]*big.Int)
	rawFids := vals[2].([]*big.Int)
	handles := vals[1].([]string)
	wallets := vals[3].([]common.Address)
	if len(rawIDs) != len(handles) || len(rawIDs) != len(rawFids) || len(rawIDs) != len(wallets) {
		return nil, fmt.Errorf("event: BrandsCreated: ragged arrays (%d ids, %d handles, %d fids, %d wallets)",
			len(rawIDs), len(handles), len(rawFids), len(wallets))
	}
	ids := make([]int64, len(rawIDs))
	fids := make([]uint64, len(rawFids))
	for i := range rawIDs {
		ids[i] = rawIDs[i].Int64()
		fids[i] = rawFids[i].Uint64()
	}
	return &BrandsCreated{
		Meta:            m,
		BrandIDs:        ids,
		Handles:         handles,
		Fids:            fids,
		WalletAddresses: wallets,
		CreatedAt:       vals[4].(*big.Int).Uint64(),
	}, nil
}

// WalletAuthorized(uint256 indexed fid, address wallet)
func decodeWalletAuthorized(lg types.Log, m Meta) (Event, error) {
	if err := needTopics(lg, 2, "WalletAuthorized"); err != nil {
		return nil, err
	}
	vals, err := unpackData(lg, "WalletAuthorized", "address")
	if err != nil {
		return nil, err
	}
	return &WalletAuthorized{
		Meta:   m,
		Fid:    topicBig(lg.Topics[1]).Uint64(),
		Wallet: vals[0].(common.Address),
	}, nil
}

// RewardClaimed(address indexed recipient, uint256 fid, uint256 amount,
// uint256 day, string castRef, address caller)
func decodeRewardClaimed(lg types.Log, m Meta) (Event, error) {
	if err := needTopics(lg, 2, "RewardClaimed"); err != nil {
		return nil, err
	}
	vals, err := unpackData(lg, "RewardClaimed", "uint256", "uint256", "uint256", "string", "address")
	if err != nil {
		return nil, err
	}
	return &RewardClaimed{
		Meta:      m,
		Recipient: topicAddr(lg.Topics[1]),
		Fid:       vals[0].(*big.Int).Uint64(),
		Amount:    vals[1].(*big.Int),
		Day:       vals[2].(*big.Int).Uint64(),
		CastRef:   vals[3].(string),
		Caller:    vals[4].(common.Address),
	}, nil
}

// BrandRewardWithdrawn(uint256 indexed brandId, uint256 fid, uint256 amount)
func decodeBrandRewardWithdrawn(lg types.Log, m Meta) (Event, error) {
	if err := needTopics(lg, 2, "BrandRewardWithdrawn"); err != nil {
		return nil, err
	}
	vals, err := unpackData(lg, "BrandRewardWithdrawn", "uint256", "uint256")
	if err != nil {
		return nil, err
	}
	return &BrandRewardWithdrawn{
		Meta:    m,
		BrandID: topicBig(lg.Topics[1]).Int64(),
		Fid:     vals[0].(*big.Int).Uint64(),
		Amount:  vals[1].(*big.Int),
	}, nil
}

// PowerLevelUp(uint256 indexed fid, uint256 newLevel, address wallet)
func decodePowerLevelUp(lg types.Log, m Meta) (Event, error) {
	if err := needTopics(lg, 2, "PowerLevelUp"); err != nil {
		return nil, err
	}
	vals, err := unpackData(lg, "PowerLevelUp", "uint256", "address")
	if err != nil {
		return nil, err
	}
	return &PowerLevelUp{
		Meta:     m,
		Fid:      topicBig(lg.Topics[1]).Uint64(),
		NewLevel: int(vals[0].(*big.Int).Int64()),
		Wallet:   vals[1].(common.Address),
	}, nil
}

// BrandUpdated(uint256 indexed brandId, string newMetadataHash,
// uint256 newFid, address newWalletAddress)
func decodeBrandUpdated(lg types.Log, m Meta) (Event, error) {
	if err := needTopics(lg, 2, "BrandUpdated"); err != nil {
		return nil, err
	}
	vals, err := unpackData(lg, "BrandUpdated", "string", "uint256", "address")
	if err != nil {
		return nil, err
	}
	return &BrandUpdated{
		Meta:             m,
		BrandID:          topicBig(lg.Topics[1]).Int64(),
		NewMetadataHash:  vals[0].(string),
		NewFid:           vals[1].(*big.Int).Uint64(),
		NewWalletAddress: vals[2].(common.Address),
	}, nil
}
