package event

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

var (
	testCast   = common.HexToHash("0x52f1a4f3a1b1e5d8c0ffee0123456789abcdef0123456789abcdef0123456789")
	testBidder = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testAuth   = common.HexToAddress("0x2222222222222222222222222222222222222222")
	testTx     = common.HexToHash("0xaaaa000000000000000000000000000000000000000000000000000000000001")
)

func mustPack(t *testing.T, data []byte, err error) []byte {
	t.Helper()
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	return data
}

func TestDecodeBidPlaced(t *testing.T) {
	d := NewDecoder()
	packed, packErr := dataArgs("uint256", "uint256", "address").Pack(
		big.NewInt(4087), big.NewInt(250), testAuth,
	)
	data := mustPack(t, packed, packErr)
	lg := types.Log{
		Topics:      []common.Hash{SigTopic(sigBidPlaced), testCast, common.BytesToHash(testBidder.Bytes())},
		Data:        data,
		BlockNumber: 1200,
		Index:       3,
		TxHash:      testTx,
	}

	ev, err := d.Decode(lg, 1700000000)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	bp, ok := ev.(*BidPlaced)
	if !ok {
		t.Fatalf("got %T, want *BidPlaced", ev)
	}
	if bp.CastHash != testCast {
		t.Errorf("cast hash = %s", bp.CastHash)
	}
	if bp.Bidder != testBidder {
		t.Errorf("bidder = %s", bp.Bidder)
	}
	if bp.BidderFid != 4087 {
		t.Errorf("bidder fid = %d, want 4087", bp.BidderFid)
	}
	if bp.Amount.Cmp(big.NewInt(250)) != 0 {
		t.Errorf("amount = %s, want 250", bp.Amount)
	}
	if bp.Authorizer != testAuth {
		t.Errorf("authorizer = %s", bp.Authorizer)
	}
	if bp.BlockNumber != 1200 || bp.LogIndex != 3 || bp.Timestamp != 1700000000 {
		t.Errorf("meta = %+v", bp.Meta)
	}
	if got := bp.DedupKey(); got != testTx.Hex()+"-3" {
		t.Errorf("dedup key = %s", got)
	}
}

func TestDecodePodiumCreated(t *testing.T) {
	d := NewDecoder()
	ids := [3]*big.Int{big.NewInt(7), big.NewInt(3), big.NewInt(9)}
	packed, packErr := dataArgs("uint256", "uint256", "uint256[3]", "uint256").Pack(
		big.NewInt(999), big.NewInt(20551), ids, big.NewInt(100),
	)
	data := mustPack(t, packed, packErr)
	lg := types.Log{
		Topics: []common.Hash{SigTopic(sigPodiumCreated), common.BytesToHash(testBidder.Bytes())},
		Data:   data,
		TxHash: testTx,
	}

	ev, err := d.Decode(lg, 1775000000)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	pc, ok := ev.(*PodiumCreated)
	if !ok {
		t.Fatalf("got %T, want *PodiumCreated", ev)
	}
	if pc.Voter != testBidder {
		t.Errorf("voter = %s", pc.Voter)
	}
	if pc.Fid != 999 || pc.Day != 20551 {
		t.Errorf("fid/day = %d/%d", pc.Fid, pc.Day)
	}
	if pc.BrandIDs != [3]int64{7, 3, 9} {
		t.Errorf("brand ids = %v", pc.BrandIDs)
	}
	if pc.Cost.Cmp(big.NewInt(100)) != 0 {
		t.Errorf("cost = %s", pc.Cost)
	}
}

func TestDecodeBrandsCreated(t *testing.T) {
	d := NewDecoder()
	packed, packErr := dataArgs("uint256[]", "string[]", "uint256[]", "address[]", "uint256").Pack(
		[]*big.Int{big.NewInt(1), big.NewInt(2)},
		[]string{"alpha", "beta"},
		[]*big.Int{big.NewInt(10), big.NewInt(20)},
		[]common.Address{testBidder, testAuth},
		big.NewInt(1775000000),
	)
	data := mustPack(t, packed, packErr)
	lg := types.Log{
		Topics: []common.Hash{SigTopic(sigBrandsCreated)},
		Data:   data,
		TxHash: testTx,
	}

	ev, err := d.Decode(lg, 1775000000)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	bc, ok := ev.(*BrandsCreated)
	if !ok {
		t.Fatalf("got %T, want *BrandsCreated", ev)
	}
	if len(bc.BrandIDs) != 2 || bc.BrandIDs[1] != 2 {
		t.Errorf("brand ids = %v", bc.BrandIDs)
	}
	if bc.Handles[0] != "alpha" || bc.Handles[1] != "beta" {
		t.Errorf("handles = %v", bc.Handles)
	}
	if bc.Fids[0] != 10 || bc.Fids[1] != 20 {
		t.Errorf("fids = %v", bc.Fids)
	}
	if bc.WalletAddresses[1] != testAuth {
		t.Errorf("wallets = %v", bc.WalletAddresses)
	}
}

func TestDecodeAuctionSettled(t *testing.T) {
	d := NewDecoder()
	packed, packErr := dataArgs("uint256", "uint256").Pack(
		big.NewInt(4087), big.NewInt(200),
	)
	data := mustPack(t, packed, packErr)
	lg := types.Log{
		Topics: []common.Hash{SigTopic(sigAuctionSettled), testCast, common.BytesToHash(testBidder.Bytes())},
		Data:   data,
		TxHash: testTx,
	}

	ev, err := d.Decode(lg, 1700005000)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	as, ok := ev.(*AuctionSettled)
	if !ok {
		t.Fatalf("got %T, want *AuctionSettled", ev)
	}
	if as.Winner != testBidder || as.WinnerFid != 4087 {
		t.Errorf("winner = %s fid %d", as.Winner, as.WinnerFid)
	}
	if as.Amount.Cmp(big.NewInt(200)) != 0 {
		t.Errorf("amount = %s", as.Amount)
	}
}

func TestDecodeUnknownTopic(t *testing.T) {
	d := NewDecoder()
	lg := types.Log{Topics: []common.Hash{common.HexToHash("0xdead")}}
	if _, err := d.Decode(lg, 0); !errors.Is(err, ErrUnknownEvent) {
		t.Fatalf("err = %v, want ErrUnknownEvent", err)
	}
	if _, err := d.Decode(types.Log{}, 0); !errors.Is(err, ErrUnknownEvent) {
		t.Fatalf("empty topics err = %v, want ErrUnknownEvent", err)
	}
}

func TestDecodeTruncatedData(t *testing.T) {
	d := NewDecoder()
	lg := types.Log{
		Topics: []common.Hash{SigTopic(sigBidPlaced), testCast, common.BytesToHash(testBidder.Bytes())},
		Data:   []byte{0x01, 0x02},
		TxHash: testTx,
	}
	if _, err := d.Decode(lg, 0); err == nil {
		t.Fatal("want error for truncated data")
	}
}
