package chain

import (
	"context"
	"log/slog"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/brndhq/brndindexer/internal/event"
)

type stubFilterer struct {
	head    uint64
	logs    []types.Log
	times   map[uint64]uint64
	queries []ethereum.FilterQuery
}

func (s *stubFilterer) BlockNumber(context.Context) (uint64, error) {
	return s.head, nil
}

func (s *stubFilterer) HeaderByNumber(_ context.Context, number *big.Int) (*types.Header, error) {
	return &types.Header{Time: s.times[number.Uint64()]}, nil
}

func (s *stubFilterer) FilterLogs(_ context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	s.queries = append(s.queries, q)
	var out []types.Log
	for _, lg := range s.logs {
		if lg.BlockNumber >= q.FromBlock.Uint64() && lg.BlockNumber <= q.ToBlock.Uint64() {
			out = append(out, lg)
		}
	}
	return out, nil
}

func extendedLog(block uint64, castHash common.Hash, newEnd int64) types.Log {
	return types.Log{
		Topics:      []common.Hash{event.SigTopic("AuctionExtended(bytes32,uint256)"), castHash},
		Data:        common.LeftPadBytes(big.NewInt(newEnd).Bytes(), 32),
		BlockNumber: block,
		TxHash:      common.HexToHash("0xbbbb000000000000000000000000000000000000000000000000000000000002"),
	}
}

func TestLogSourceDecodesInOrder(t *testing.T) {
	cast := common.HexToHash("0x52f1a4f3a1b1e5d8c0ffee0123456789abcdef0123456789abcdef0123456789")
	contract := common.HexToAddress("0x3333333333333333333333333333333333333333")

	stub := &stubFilterer{
		head: 12,
		logs: []types.Log{
			extendedLog(10, cast, 1700000500),
			{ // unknown topic, must be skipped
				Topics:      []common.Hash{common.HexToHash("0xdead")},
				BlockNumber: 10,
			},
			extendedLog(11, cast, 1700000900),
		},
		times: map[uint64]uint64{10: 1700000000, 11: 1700000100},
	}

	src := NewLogSource(stub, event.NewDecoder(), LogSourceConfig{
		Contract:   contract,
		StartBlock: 10,
	}, slog.Default())

	ctx := context.Background()

	first, err := src.Next(ctx)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	ext, ok := first.(*event.AuctionExtended)
	if !ok {
		t.Fatalf("got %T, want *event.AuctionExtended", first)
	}
	if ext.NewEndTime != 1700000500 {
		t.Errorf("new end time = %d", ext.NewEndTime)
	}
	if ext.Timestamp != 1700000000 {
		t.Errorf("timestamp = %d, want block 10's header time", ext.Timestamp)
	}

	second, err := src.Next(ctx)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if second.Ref().BlockNumber != 11 {
		t.Errorf("second event block = %d, want 11", second.Ref().BlockNumber)
	}

	if len(stub.queries) != 1 {
		t.Fatalf("filter calls = %d, want 1", len(stub.queries))
	}
	q := stub.queries[0]
	if q.FromBlock.Uint64() != 10 || q.ToBlock.Uint64() != 12 {
		t.Errorf("scanned %d-%d, want 10-12", q.FromBlock.Uint64(), q.ToBlock.Uint64())
	}
	if len(q.Addresses) != 1 || q.Addresses[0] != contract {
		t.Errorf("addresses = %v", q.Addresses)
	}
}

func TestLogSourceTailsFromHeadWithoutStartBlock(t *testing.T) {
	stub := &stubFilterer{head: 500, times: map[uint64]uint64{}}

	src := NewLogSource(stub, event.NewDecoder(), LogSourceConfig{
		Contract:     common.HexToAddress("0x3333333333333333333333333333333333333333"),
		PollInterval: time.Millisecond,
	}, slog.Default())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := src.Next(ctx); err != context.DeadlineExceeded {
		t.Fatalf("next err = %v, want deadline exceeded", err)
	}
	if len(stub.queries) == 0 {
		t.Fatal("expected at least one filter call")
	}
	if got := stub.queries[0].FromBlock.Uint64(); got != 500 {
		t.Errorf("first scan from block %d, want head 500", got)
	}
}
