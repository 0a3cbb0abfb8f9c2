package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/brndhq/brndindexer/internal/event"
)

type countingApplier struct {
	kinds []event.Kind
	fail  error
}

func (c *countingApplier) Apply(_ context.Context, ev event.Event) error {
	c.kinds = append(c.kinds, ev.Kind())
	return c.fail
}

type sliceSource struct {
	events []event.Event
}

func (s *sliceSource) Next(context.Context) (event.Event, error) {
	if len(s.events) == 0 {
		return nil, io.EOF
	}
	ev := s.events[0]
	s.events = s.events[1:]
	return ev, nil
}

type recordingBroadcaster struct {
	kinds []string
}

func (r *recordingBroadcaster) Broadcast(kind string, _ any) {
	r.kinds = append(r.kinds, kind)
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDispatchRouting(t *testing.T) {
	auctions := &countingApplier{}
	brands := &countingApplier{}
	bc := &recordingBroadcaster{}
	d := NewDispatcher(auctions, brands, bc, discard())

	src := &sliceSource{events: []event.Event{
		&event.AuctionStarted{},
		&event.BidPlaced{},
		&event.PodiumCreated{},
		&event.AuctionSettled{},
		&event.PowerLevelUp{},
	}}
	if err := d.Run(context.Background(), src); err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(auctions.kinds) != 3 {
		t.Errorf("auction applier saw %d events, want 3", len(auctions.kinds))
	}
	if len(brands.kinds) != 2 {
		t.Errorf("brand applier saw %d events, want 2", len(brands.kinds))
	}
	if len(bc.kinds) != 5 {
		t.Errorf("broadcasts = %d, want 5", len(bc.kinds))
	}
	if bc.kinds[0] != "AuctionStarted" {
		t.Errorf("broadcast kind = %s", bc.kinds[0])
	}
}

func TestRunContinuesPastHandlerError(t *testing.T) {
	auctions := &countingApplier{fail: errors.New("boom")}
	brands := &countingApplier{}
	d := NewDispatcher(auctions, brands, nil, discard())

	src := &sliceSource{events: []event.Event{
		&event.BidPlaced{},
		&event.PodiumCreated{},
	}}
	if err := d.Run(context.Background(), src); err != nil {
		t.Fatalf("run should swallow handler errors, got %v", err)
	}
	if len(brands.kinds) != 1 {
		t.Errorf("stream did not continue past the failed event")
	}
}

func TestReplaySourceSkipsUnknownTopics(t *testing.T) {
	// One unknown-topic record followed by a cancelled-auction record with
	// an indexed cast hash and packed data.
	cancelTopic := event.SigTopic("AuctionCancelled(bytes32,address,uint256,address)")
	cast := common.HexToHash("0x0000000000000000000000000000000000000000000000000000000000000042")
	data := make([]byte, 96) // address + uint256 + address, all zero

	lines := `{"log":{"address":"0x0000000000000000000000000000000000000001","topics":["0x1111111111111111111111111111111111111111111111111111111111111111"],"data":"0x","blockNumber":"0x1","transactionHash":"0x2222222222222222222222222222222222222222222222222222222222222222","transactionIndex":"0x0","blockHash":"0x3333333333333333333333333333333333333333333333333333333333333333","logIndex":"0x0","removed":false},"timestamp":100}
{"log":{"address":"0x0000000000000000000000000000000000000001","topics":["` + cancelTopic.Hex() + `","` + cast.Hex() + `"],"data":"0x` + common.Bytes2Hex(data) + `","blockNumber":"0x2","transactionHash":"0x2222222222222222222222222222222222222222222222222222222222222222","transactionIndex":"0x0","blockHash":"0x3333333333333333333333333333333333333333333333333333333333333333","logIndex":"0x1","removed":false},"timestamp":200}
`
	src := NewReplaySource(strings.NewReader(lines), event.NewDecoder(), discard())

	ev, err := src.Next(context.Background())
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	ac, ok := ev.(*event.AuctionCancelled)
	if !ok {
		t.Fatalf("got %T, want *AuctionCancelled", ev)
	}
	if ac.CastHash != cast || ac.Timestamp != 200 || ac.BlockNumber != 2 {
		t.Errorf("decoded = %+v", ac)
	}

	if _, err := src.Next(context.Background()); !errors.Is(err, io.EOF) {
		t.Fatalf("err = %v, want io.EOF", err)
	}
}
