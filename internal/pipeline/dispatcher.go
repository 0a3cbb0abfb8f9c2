// Package pipeline drives the indexing worker: it pulls decoded events from a
// source one at a time, in chain order, and routes each to the auction
// reducer or the leaderboard aggregator.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/brndhq/brndindexer/internal/domain"
	"github.com/brndhq/brndindexer/internal/event"
)

// Applier is implemented by the reducer and the leaderboard aggregator.
type Applier interface {
	Apply(ctx context.Context, ev event.Event) error
}

// Source yields events in non-decreasing (block, log index) order. It returns
// io.EOF when drained.
type Source interface {
	Next(ctx context.Context) (event.Event, error)
}

// Dispatcher routes events by kind. Broadcast is optional.
type Dispatcher struct {
	auctions  Applier
	brands    Applier
	broadcast domain.EventBroadcaster
	log       *slog.Logger
}

func NewDispatcher(auctions, brands Applier, broadcast domain.EventBroadcaster, log *slog.Logger) *Dispatcher {
	return &Dispatcher{
		auctions:  auctions,
		brands:    brands,
		broadcast: broadcast,
		log:       log.With("component", "dispatcher"),
	}
}

// Dispatch applies one event. A handler error is returned to the caller; the
// run loop decides whether to continue.
func (d *Dispatcher) Dispatch(ctx context.Context, ev event.Event) error {
	var err error
	switch ev.Kind() {
	case event.KindAuctionStarted, event.KindBidPlaced, event.KindBidRefunded,
		event.KindAuctionExtended, event.KindAuctionSettled, event.KindAuctionCancelled:
		err = d.auctions.Apply(ctx, ev)
	case event.KindPodiumCreated, event.KindBrandCreated, event.KindBrandsCreated,
		event.KindBrandUpdated, event.KindWalletAuthorized, event.KindRewardClaimed,
		event.KindBrandRewardWithdrawn, event.KindPowerLevelUp:
		err = d.brands.Apply(ctx, ev)
	default:
		return fmt.Errorf("pipeline: no handler for event %s", ev.Kind())
	}
	if err != nil {
		return err
	}

	if d.broadcast != nil {
		d.broadcast.Broadcast(ev.Kind().String(), ev)
	}
	return nil
}

// Run drains the source. A handler error is logged and the stream continues;
// the single-worker in-order contract means skipping a poisoned event is
// preferable to wedging the whole pipeline behind it.
func (d *Dispatcher) Run(ctx context.Context, src Source) error {
	var n uint64
	for {
		ev, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			d.log.Info("event source drained", "events", n)
			return nil
		}
		if err != nil {
			return fmt.Errorf("pipeline: next event: %w", err)
		}

		if err := d.Dispatch(ctx, ev); err != nil {
			m := ev.Ref()
			d.log.Error("event apply failed, skipping",
				"event", ev.Kind().String(),
				"block", m.BlockNumber,
				"log_index", m.LogIndex,
				"error", err)
		}
		n++

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
}
