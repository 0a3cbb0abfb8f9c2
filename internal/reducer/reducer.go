// Package reducer folds auction lifecycle events into derived auction state.
// It is driven by a single worker, one event at a time in chain order, so no
// two mutations of the same auction can race. Delivery is at-least-once:
// append inserts are deduplicated by natural keys in the store and merges are
// additive, so a replayed span is tolerated.
package reducer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/brndhq/brndindexer/internal/domain"
	"github.com/brndhq/brndindexer/internal/event"
	"github.com/brndhq/brndindexer/internal/stats"
)

const (
	// Farcaster identities whose casts trigger social announcements. The
	// bot fid additionally feeds the collector aggregate.
	botFid   uint64 = 1341847
	brandFid uint64 = 1108951

	// Announcements only fire for events this close to wall-clock time, so
	// historical backfill stays silent.
	socialWindow = 5 * time.Minute

	feeDenominator = 10000
)

// Deps collects the reducer's collaborators. Social may be nil to disable
// announcements entirely.
type Deps struct {
	Auctions     domain.AuctionStore
	Bids         domain.BidStore
	Extensions   domain.ExtensionStore
	Collectibles domain.CollectibleStore
	Stats        *stats.Aggregator
	Chain        domain.AuctionParamsReader
	Social       domain.SocialNotifier

	// Now is the wall clock for the social freshness gate; defaults to
	// time.Now.
	Now func() time.Time
}

// Reducer applies auction lifecycle events.
type Reducer struct {
	d   Deps
	log *slog.Logger
}

func New(d Deps, log *slog.Logger) *Reducer {
	if d.Now == nil {
		d.Now = time.Now
	}
	return &Reducer{d: d, log: log.With("component", "reducer")}
}

// Apply dispatches one auction event to its handler.
func (r *Reducer) Apply(ctx context.Context, ev event.Event) error {
	switch e := ev.(type) {
	case *event.AuctionStarted:
		return r.applyStarted(ctx, e)
	case *event.BidPlaced:
		return r.applyBidPlaced(ctx, e)
	case *event.BidRefunded:
		return r.applyBidRefunded(ctx, e)
	case *event.AuctionExtended:
		return r.applyExtended(ctx, e)
	case *event.AuctionSettled:
		return r.applySettled(ctx, e)
	case *event.AuctionCancelled:
		return r.applyCancelled(ctx, e)
	default:
		return fmt.Errorf("reducer: unhandled event %s", ev.Kind())
	}
}

// socialFid reports whether the creator identity gets announcements.
func socialFid(fid uint64) bool {
	return fid == botFid || fid == brandFid
}

// fresh reports whether ts is within the social window of wall-clock time.
func (r *Reducer) fresh(ts uint64) bool {
	age := r.d.Now().Sub(time.Unix(int64(ts), 0))
	return age <= socialWindow
}

// getAuction implements the ignore-if-absent policy: a mutation event for an
// auction that was never indexed is logged and skipped, never an error.
func (r *Reducer) getAuction(ctx context.Context, kind event.Kind, castHash common.Hash) (*domain.Auction, error) {
	a, err := r.d.Auctions.Get(ctx, castHash)
	if errors.Is(err, domain.ErrNotFound) {
		r.log.Warn("event for unknown auction, skipping",
			"event", kind.String(), "cast_hash", castHash.Hex())
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reducer: get auction: %w", err)
	}
	return a, nil
}

func (r *Reducer) applyStarted(ctx context.Context, ev *event.AuctionStarted) error {
	// The start event carries no parameters; seed them, and the opening
	// bid fields, from the contract itself.
	oc, err := r.d.Chain.ReadAuction(ctx, ev.CastHash)
	if err != nil {
		return fmt.Errorf("reducer: read auction %s: %w", ev.CastHash, err)
	}

	a := &domain.Auction{
		CastHash:         ev.CastHash,
		Creator:          ev.Creator,
		CreatorFid:       ev.CreatorFid,
		State:            domain.AuctionStateActive,
		Params:           oc.Params,
		StartTime:        ev.Timestamp,
		EndTime:          ev.EndTime,
		LastBidAt:        ev.Timestamp,
		HighestBidder:    oc.HighestBidder,
		HighestBidderFid: oc.HighestBidderFid,
		HighestBid:       oc.HighestBid,
		TotalBids:        1, // starting an auction places the opening bid
		StartBlockNumber: ev.BlockNumber,
		StartTxHash:      ev.TxHash,
	}
	if err := r.d.Auctions.Insert(ctx, a); err != nil {
		return fmt.Errorf("reducer: insert auction: %w", err)
	}
	return r.d.Stats.RecordAuctionStarted(ctx, ev.Creator, ev.CreatorFid, ev.Timestamp)
}

func (r *Reducer) applyBidPlaced(ctx context.Context, ev *event.BidPlaced) error {
	a, err := r.getAuction(ctx, ev.Kind(), ev.CastHash)
	if err != nil || a == nil {
		return err
	}
	if a.State.Terminal() {
		r.log.Warn("bid on terminal auction, skipping",
			"cast_hash", ev.CastHash, "state", a.State.String())
		return nil
	}

	idx := a.TotalBids
	b := &domain.Bid{
		ID:         domain.BidID(ev.CastHash, idx),
		CastHash:   ev.CastHash,
		Bidder:     ev.Bidder,
		BidderFid:  ev.BidderFid,
		Amount:     ev.Amount,
		BidIndex:   idx,
		Timestamp:  ev.Timestamp,
		BlockNum:   ev.BlockNumber,
		TxHash:     ev.TxHash,
		Authorizer: ev.Authorizer,
	}
	if err := r.d.Bids.Insert(ctx, b); err != nil {
		return fmt.Errorf("reducer: insert bid: %w", err)
	}

	a.HighestBidder = ev.Bidder
	a.HighestBidderFid = ev.BidderFid
	a.HighestBid = ev.Amount
	a.LastBidAt = ev.Timestamp
	a.TotalBids++
	if err := r.d.Auctions.Update(ctx, a); err != nil {
		return fmt.Errorf("reducer: update auction: %w", err)
	}

	if err := r.d.Stats.RecordBid(ctx, ev.Bidder, ev.BidderFid, ev.Amount, ev.Timestamp); err != nil {
		return err
	}

	if r.d.Social != nil && socialFid(a.CreatorFid) && r.fresh(ev.Timestamp) {
		if err := r.d.Social.AnnounceBid(ctx, a, ev.BidderFid); err != nil {
			r.log.Warn("bid announcement failed", "cast_hash", ev.CastHash, "error", err)
		}
	}
	return nil
}

func (r *Reducer) applyBidRefunded(ctx context.Context, ev *event.BidRefunded) error {
	a, err := r.getAuction(ctx, ev.Kind(), ev.CastHash)
	if err != nil || a == nil {
		return err
	}

	b, err := r.d.Bids.FindRefundable(ctx, ev.CastHash, ev.To, ev.Amount)
	switch {
	case err == nil:
		if err := r.d.Bids.MarkRefunded(ctx, b.ID, ev.Timestamp); err != nil {
			return fmt.Errorf("reducer: mark refunded: %w", err)
		}
		return nil
	case errors.Is(err, domain.ErrNotFound):
		// No matching bid, usually a refund for a bid placed before the
		// indexing window. Keep a detached ledger row so the refund is
		// still visible.
		r.log.Warn("refund without matching bid, recording detached",
			"cast_hash", ev.CastHash, "to", ev.To)
		detached := &domain.Bid{
			ID:          ev.CastHash.Hex() + "-refunded-" + strconv.FormatUint(ev.Timestamp, 10),
			CastHash:    ev.CastHash,
			Bidder:      ev.To,
			Amount:      ev.Amount,
			BidIndex:    -1,
			Timestamp:   ev.Timestamp,
			BlockNum:    ev.BlockNumber,
			TxHash:      ev.TxHash,
			WasRefunded: true,
			RefundedAt:  ev.Timestamp,
		}
		if err := r.d.Bids.Insert(ctx, detached); err != nil {
			return fmt.Errorf("reducer: insert detached refund: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("reducer: find refundable bid: %w", err)
	}
}

func (r *Reducer) applyExtended(ctx context.Context, ev *event.AuctionExtended) error {
	a, err := r.getAuction(ctx, ev.Kind(), ev.CastHash)
	if err != nil || a == nil {
		return err
	}

	// The extension's sequence index is the count of extensions already
	// recorded for this auction.
	n, err := r.d.Extensions.CountByAuction(ctx, ev.CastHash)
	if err != nil {
		return fmt.Errorf("reducer: count extensions: %w", err)
	}
	ext := &domain.AuctionExtension{
		ID:          domain.ExtensionID(ev.CastHash, n),
		CastHash:    ev.CastHash,
		OldEndTime:  a.EndTime,
		NewEndTime:  ev.NewEndTime,
		Index:       n,
		TriggeredBy: a.HighestBidder,
		Timestamp:   ev.Timestamp,
		BlockNum:    ev.BlockNumber,
		TxHash:      ev.TxHash,
	}
	if err := r.d.Extensions.Insert(ctx, ext); err != nil {
		return fmt.Errorf("reducer: insert extension: %w", err)
	}

	a.EndTime = ev.NewEndTime
	if err := r.d.Auctions.Update(ctx, a); err != nil {
		return fmt.Errorf("reducer: update auction: %w", err)
	}
	return nil
}

func (r *Reducer) applySettled(ctx context.Context, ev *event.AuctionSettled) error {
	a, err := r.getAuction(ctx, ev.Kind(), ev.CastHash)
	if err != nil || a == nil {
		return err
	}

	// treasury + creator always sum to the settlement amount exactly; the
	// floor happens only on the treasury side.
	treasury := new(big.Int).Mul(ev.Amount, big.NewInt(int64(a.Params.ProtocolFeeBps)))
	treasury.Div(treasury, big.NewInt(feeDenominator))
	creator := new(big.Int).Sub(ev.Amount, treasury)

	a.State = domain.AuctionStateSettled
	a.SettledAt = ev.Timestamp
	a.TreasuryAmount = treasury
	a.CreatorAmount = creator
	if err := r.d.Auctions.Update(ctx, a); err != nil {
		return fmt.Errorf("reducer: update auction: %w", err)
	}

	if r.d.Social != nil && socialFid(a.CreatorFid) && r.fresh(ev.Timestamp) {
		if err := r.d.Social.AnnounceCollected(ctx, a, ev.WinnerFid); err != nil {
			r.log.Warn("collect announcement failed", "cast_hash", ev.CastHash, "error", err)
		}
	}

	c := &domain.CastCollectible{
		CastHash:    ev.CastHash,
		Creator:     a.Creator,
		CreatorFid:  a.CreatorFid,
		Winner:      ev.Winner,
		WinnerFid:   ev.WinnerFid,
		FinalAmount: ev.Amount,
		IsFromBot:   socialFid(a.CreatorFid),
		SettledAt:   ev.Timestamp,
		BlockNum:    ev.BlockNumber,
		TxHash:      ev.TxHash,
	}
	if err := r.d.Collectibles.InsertCollectible(ctx, c); err != nil {
		return fmt.Errorf("reducer: insert collectible: %w", err)
	}
	s := &domain.SettledRecord{
		CastHash:  ev.CastHash,
		Winner:    ev.Winner,
		WinnerFid: ev.WinnerFid,
		Amount:    ev.Amount,
		BlockNum:  ev.BlockNumber,
		Timestamp: ev.Timestamp,
		TxHash:    ev.TxHash,
	}
	if err := r.d.Collectibles.InsertSettled(ctx, s); err != nil {
		return fmt.Errorf("reducer: insert settled record: %w", err)
	}

	if err := r.d.Stats.RecordSettlement(ctx, a, ev.Winner, ev.WinnerFid, ev.Amount, ev.Timestamp); err != nil {
		return err
	}

	// Only the bot identity proper feeds the collector aggregate.
	if a.CreatorFid == botFid {
		err := r.d.Collectibles.ApplyCollector(ctx, ev.Winner, ev.WinnerFid, ev.Amount, ev.Timestamp)
		if err != nil {
			return fmt.Errorf("reducer: apply collector: %w", err)
		}
	}
	return nil
}

func (r *Reducer) applyCancelled(ctx context.Context, ev *event.AuctionCancelled) error {
	a, err := r.getAuction(ctx, ev.Kind(), ev.CastHash)
	if err != nil || a == nil {
		return err
	}

	a.State = domain.AuctionStateCancelled
	if err := r.d.Auctions.Update(ctx, a); err != nil {
		return fmt.Errorf("reducer: update auction: %w", err)
	}
	return r.d.Stats.RecordCancellation(ctx, ev.Timestamp)
}
