package chain

import (
	"context"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

type stubCaller struct {
	lastCall ethereum.CallMsg
	ret      []byte
	err      error
}

func (c *stubCaller) CallContract(_ context.Context, call ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	c.lastCall = call
	return c.ret, c.err
}

func TestReadAuction(t *testing.T) {
	parsed, err := abi.JSON(strings.NewReader(auctionsABI))
	if err != nil {
		t.Fatalf("parse abi: %v", err)
	}

	creator := common.HexToAddress("0x1111111111111111111111111111111111111111")
	bidder := common.HexToAddress("0x2222222222222222222222222222222222222222")

	ret, err := parsed.Methods["auctions"].Outputs.Pack(
		creator, big.NewInt(900), bidder, big.NewInt(901), big.NewInt(5000),
		big.NewInt(1000), big.NewInt(2000), big.NewInt(1500), uint8(1),
		auctionParamsResult{
			MinBid:             big.NewInt(100),
			MinBidIncrementBps: big.NewInt(1000),
			ProtocolFeeBps:     big.NewInt(500),
			Duration:           big.NewInt(86400),
			Extension:          big.NewInt(300),
			ExtensionThreshold: big.NewInt(600),
		},
	)
	if err != nil {
		t.Fatalf("pack outputs: %v", err)
	}

	contract := common.HexToAddress("0xFC52e33F48Dd3fcd5EE428c160722efda645D74A")
	caller := &stubCaller{ret: ret}
	r, err := NewReader(caller, contract)
	if err != nil {
		t.Fatalf("new reader: %v", err)
	}

	castHash := common.HexToHash("0xabc1")
	got, err := r.ReadAuction(context.Background(), castHash)
	if err != nil {
		t.Fatalf("read auction: %v", err)
	}

	if caller.lastCall.To == nil || *caller.lastCall.To != contract {
		t.Fatalf("call sent to %v, want %s", caller.lastCall.To, contract)
	}
	if got.HighestBidder != bidder {
		t.Errorf("highest bidder = %s, want %s", got.HighestBidder, bidder)
	}
	if got.HighestBidderFid != 901 {
		t.Errorf("highest bidder fid = %d, want 901", got.HighestBidderFid)
	}
	if got.HighestBid.Cmp(big.NewInt(5000)) != 0 {
		t.Errorf("highest bid = %s, want 5000", got.HighestBid)
	}
	if got.Params.MinBid.Cmp(big.NewInt(100)) != 0 {
		t.Errorf("min bid = %s, want 100", got.Params.MinBid)
	}
	if got.Params.ProtocolFeeBps != 500 {
		t.Errorf("protocol fee bps = %d, want 500", got.Params.ProtocolFeeBps)
	}
	if got.Params.Duration != 86400 {
		t.Errorf("duration = %d, want 86400", got.Params.Duration)
	}
}
