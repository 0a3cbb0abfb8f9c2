package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/ethereum/go-ethereum/core/types"

	"github.com/brndhq/brndindexer/internal/event"
)

// replayRecord is one line of a replay file: the raw contract log plus the
// timestamp of its block, which the log itself does not carry.
type replayRecord struct {
	Log       types.Log `json:"log"`
	Timestamp uint64    `json:"timestamp"`
}

// ReplaySource reads newline-delimited JSON records of raw logs and decodes
// them into typed events. Logs for unhandled topics are skipped.
type ReplaySource struct {
	dec     *json.Decoder
	decoder *event.Decoder
	log     *slog.Logger
}

func NewReplaySource(r io.Reader, decoder *event.Decoder, log *slog.Logger) *ReplaySource {
	return &ReplaySource{
		dec:     json.NewDecoder(r),
		decoder: decoder,
		log:     log.With("component", "replay"),
	}
}

// Next returns the next decodable event, or io.EOF when the file is drained.
func (s *ReplaySource) Next(ctx context.Context) (event.Event, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var rec replayRecord
		if err := s.dec.Decode(&rec); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("pipeline: decode replay record: %w", err)
		}

		ev, err := s.decoder.Decode(rec.Log, rec.Timestamp)
		if errors.Is(err, event.ErrUnknownEvent) {
			continue
		}
		if err != nil {
			s.log.Warn("undecodable log, skipping",
				"block", rec.Log.BlockNumber,
				"log_index", rec.Log.Index,
				"error", err)
			continue
		}
		return ev, nil
	}
}
