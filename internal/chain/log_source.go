package chain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/brndhq/brndindexer/internal/event"
)

const (
	defaultPollInterval = 2 * time.Second
	defaultBatchBlocks  = 500
)

// LogFilterer is the slice of the eth client the log source uses.
// *ethclient.Client satisfies it.
type LogFilterer interface {
	BlockNumber(ctx context.Context) (uint64, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
}

// LogSourceConfig controls where and how fast the source reads.
type LogSourceConfig struct {
	Contract common.Address

	// StartBlock is the first block to scan. Zero means start at the
	// current head (live tail only).
	StartBlock uint64

	// PollInterval is how long to wait when caught up with the head.
	PollInterval time.Duration

	// BatchBlocks caps the block span of a single eth_getLogs call.
	BatchBlocks uint64
}

// LogSource polls eth_getLogs for the auction contract and yields decoded
// events in (block, log index) order. It never returns io.EOF; it blocks on
// the poll interval until cancelled.
type LogSource struct {
	client  LogFilterer
	decoder *event.Decoder
	cfg     LogSourceConfig
	log     *slog.Logger

	next uint64 // next block to scan; 0 until the first poll
	buf  []event.Event
}

// NewLogSource builds a source over an already-dialed client.
func NewLogSource(client LogFilterer, decoder *event.Decoder, cfg LogSourceConfig, log *slog.Logger) *LogSource {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.BatchBlocks == 0 {
		cfg.BatchBlocks = defaultBatchBlocks
	}
	return &LogSource{
		client:  client,
		decoder: decoder,
		cfg:     cfg,
		log:     log.With(slog.String("component", "chain_source")),
	}
}

// Next returns the next decoded event, filling the internal buffer from the
// chain as needed.
func (s *LogSource) Next(ctx context.Context) (event.Event, error) {
	for {
		if len(s.buf) > 0 {
			ev := s.buf[0]
			s.buf = s.buf[1:]
			return ev, nil
		}
		if err := s.fill(ctx); err != nil {
			return nil, err
		}
	}
}

// fill scans the next block range and buffers its decoded events. When caught
// up with the head it sleeps one poll interval.
func (s *LogSource) fill(ctx context.Context) error {
	head, err := s.client.BlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("chain: block number: %w", err)
	}

	if s.next == 0 {
		if s.cfg.StartBlock > 0 {
			s.next = s.cfg.StartBlock
		} else {
			s.next = head
		}
		s.log.InfoContext(ctx, "chain source starting",
			slog.Uint64("from_block", s.next),
			slog.Uint64("head", head),
		)
	}

	if head < s.next {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.cfg.PollInterval):
			return nil
		}
	}

	from := s.next
	to := head
	if span := to - from; span >= s.cfg.BatchBlocks {
		to = from + s.cfg.BatchBlocks - 1
	}

	logs, err := s.client.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: []common.Address{s.cfg.Contract},
	})
	if err != nil {
		return fmt.Errorf("chain: filter logs %d-%d: %w", from, to, err)
	}

	// Block timestamps are fetched once per block within the batch; logs
	// arrive ordered so a single-entry cache is enough in practice, but a
	// map keeps it correct regardless.
	times := make(map[uint64]uint64)
	for _, lg := range logs {
		ts, ok := times[lg.BlockNumber]
		if !ok {
			hdr, err := s.client.HeaderByNumber(ctx, new(big.Int).SetUint64(lg.BlockNumber))
			if err != nil {
				return fmt.Errorf("chain: header %d: %w", lg.BlockNumber, err)
			}
			ts = hdr.Time
			times[lg.BlockNumber] = ts
		}

		ev, err := s.decoder.Decode(lg, ts)
		if err != nil {
			if errors.Is(err, event.ErrUnknownEvent) {
				continue
			}
			s.log.WarnContext(ctx, "undecodable log skipped",
				slog.Uint64("block", lg.BlockNumber),
				slog.String("tx", lg.TxHash.Hex()),
				slog.String("error", err.Error()),
			)
			continue
		}
		s.buf = append(s.buf, ev)
	}

	s.next = to + 1
	return nil
}
