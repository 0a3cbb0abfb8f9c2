// Package stats folds auction activity into the per-user and per-day
// counter rollups. All merges are additive so replaying a span of events
// cannot overwrite counters with stale snapshots, though replays do count
// twice; exact-once accounting is the job of the delivery layer upstream.
package stats

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/brndhq/brndindexer/internal/domain"
	"github.com/brndhq/brndindexer/internal/period"
)

// Aggregator applies stat deltas derived from auction lifecycle events.
type Aggregator struct {
	users domain.UserStatsStore
	daily domain.DailyStatsStore
}

func New(users domain.UserStatsStore, daily domain.DailyStatsStore) *Aggregator {
	return &Aggregator{users: users, daily: daily}
}

func (a *Aggregator) applyDaily(ctx context.Context, ts uint64, delta domain.DailyStatsDelta) error {
	if err := a.daily.Apply(ctx, period.DayKey(ts), period.DayBucket(ts), delta); err != nil {
		return fmt.Errorf("stats: apply daily: %w", err)
	}
	return nil
}

// RecordAuctionStarted counts a new auction for its creator and day.
func (a *Aggregator) RecordAuctionStarted(ctx context.Context, creator common.Address, creatorFid uint64, ts uint64) error {
	err := a.users.Apply(ctx, creator, creatorFid, domain.UserStatsDelta{AuctionsCreated: 1}, ts)
	if err != nil {
		return fmt.Errorf("stats: apply creator: %w", err)
	}
	return a.applyDaily(ctx, ts, domain.DailyStatsDelta{
		AuctionsStarted: 1,
		UniqueCreators:  1,
	})
}

// RecordBid counts one placed bid for the bidder and day.
func (a *Aggregator) RecordBid(ctx context.Context, bidder common.Address, bidderFid uint64, amount *big.Int, ts uint64) error {
	err := a.users.Apply(ctx, bidder, bidderFid, domain.UserStatsDelta{
		BidsPlaced: 1,
		AmountBid:  amount,
	}, ts)
	if err != nil {
		return fmt.Errorf("stats: apply bidder: %w", err)
	}
	return a.applyDaily(ctx, ts, domain.DailyStatsDelta{
		TotalBids:     1,
		TotalVolume:   amount,
		UniqueBidders: 1,
	})
}

// RecordSettlement counts a settled auction for the winner, the creator and
// the day. The auction must already carry its settlement split.
func (a *Aggregator) RecordSettlement(ctx context.Context, au *domain.Auction, winner common.Address, winnerFid uint64, amount *big.Int, ts uint64) error {
	err := a.users.Apply(ctx, winner, winnerFid, domain.UserStatsDelta{
		AuctionsWon: 1,
		AmountWon:   amount,
	}, ts)
	if err != nil {
		return fmt.Errorf("stats: apply winner: %w", err)
	}
	err = a.users.Apply(ctx, au.Creator, au.CreatorFid, domain.UserStatsDelta{
		SuccessfulAuctions: 1,
		CreatorEarnings:    au.CreatorAmount,
	}, ts)
	if err != nil {
		return fmt.Errorf("stats: apply creator: %w", err)
	}
	return a.applyDaily(ctx, ts, domain.DailyStatsDelta{
		AuctionsSettled: 1,
		ProtocolFees:    au.TreasuryAmount,
	})
}

// RecordCancellation counts a cancelled auction for the day.
func (a *Aggregator) RecordCancellation(ctx context.Context, ts uint64) error {
	return a.applyDaily(ctx, ts, domain.DailyStatsDelta{AuctionsCancelled: 1})
}
