package postgres

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/brndhq/brndindexer/internal/domain"
)

func bigOrZero(x *big.Int) string {
	if x == nil {
		return "0"
	}
	return x.String()
}

// UserStatsStore implements domain.UserStatsStore. All counter merges happen
// in SQL so a delta can never overwrite a row with a stale snapshot.
type UserStatsStore struct {
	pool *pgxpool.Pool
}

func NewUserStatsStore(pool *pgxpool.Pool) *UserStatsStore {
	return &UserStatsStore{pool: pool}
}

func (s *UserStatsStore) Apply(ctx context.Context, addr common.Address, fid uint64, d domain.UserStatsDelta, ts uint64) error {
	const query = `
		INSERT INTO user_stats (
			address, fid,
			total_auctions_created, total_creator_earnings, successful_auctions,
			total_bids_placed, total_amount_bid,
			auctions_won, total_amount_won, auctions_lost,
			first_activity_at, last_activity_at
		) VALUES (
			$1, $2,
			$3, $4::numeric, $5,
			$6, $7::numeric,
			$8, $9::numeric, $10,
			$11, $11
		)
		ON CONFLICT (address) DO UPDATE SET
			fid                    = CASE WHEN user_stats.fid = 0 THEN EXCLUDED.fid ELSE user_stats.fid END,
			total_auctions_created = user_stats.total_auctions_created + EXCLUDED.total_auctions_created,
			total_creator_earnings = user_stats.total_creator_earnings + EXCLUDED.total_creator_earnings,
			successful_auctions    = user_stats.successful_auctions + EXCLUDED.successful_auctions,
			total_bids_placed      = user_stats.total_bids_placed + EXCLUDED.total_bids_placed,
			total_amount_bid       = user_stats.total_amount_bid + EXCLUDED.total_amount_bid,
			auctions_won           = user_stats.auctions_won + EXCLUDED.auctions_won,
			total_amount_won       = user_stats.total_amount_won + EXCLUDED.total_amount_won,
			auctions_lost          = user_stats.auctions_lost + EXCLUDED.auctions_lost,
			last_activity_at       = EXCLUDED.last_activity_at`

	_, err := s.pool.Exec(ctx, query,
		addrArg(addr), fid,
		d.AuctionsCreated, bigOrZero(d.CreatorEarnings), d.SuccessfulAuctions,
		d.BidsPlaced, bigOrZero(d.AmountBid),
		d.AuctionsWon, bigOrZero(d.AmountWon), d.AuctionsLost,
		ts,
	)
	if err != nil {
		return fmt.Errorf("postgres: apply user stats %s: %w", addr, err)
	}
	return nil
}

func (s *UserStatsStore) Get(ctx context.Context, addr common.Address) (*domain.UserStats, error) {
	const query = `
		SELECT address, fid,
		       total_auctions_created, total_creator_earnings::text, successful_auctions,
		       total_bids_placed, total_amount_bid::text,
		       auctions_won, total_amount_won::text, auctions_lost,
		       first_activity_at, last_activity_at
		FROM user_stats WHERE address = $1`

	var (
		u                            domain.UserStats
		addrRaw                      string
		earnings, amountBid, amountWon string
	)
	err := s.pool.QueryRow(ctx, query, addrArg(addr)).Scan(
		&addrRaw, &u.Fid,
		&u.TotalAuctionsCreated, &earnings, &u.SuccessfulAuctions,
		&u.TotalBidsPlaced, &amountBid,
		&u.AuctionsWon, &amountWon, &u.AuctionsLost,
		&u.FirstActivityAt, &u.LastActivityAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("postgres: get user stats %s: %w", addr, err)
	}

	u.Address = common.HexToAddress(addrRaw)
	if u.TotalCreatorEarnings, err = parseBig(earnings); err != nil {
		return nil, err
	}
	if u.TotalAmountBid, err = parseBig(amountBid); err != nil {
		return nil, err
	}
	if u.TotalAmountWon, err = parseBig(amountWon); err != nil {
		return nil, err
	}
	return &u, nil
}

// DailyStatsStore implements domain.DailyStatsStore.
type DailyStatsStore struct {
	pool *pgxpool.Pool
}

func NewDailyStatsStore(pool *pgxpool.Pool) *DailyStatsStore {
	return &DailyStatsStore{pool: pool}
}

func (s *DailyStatsStore) Apply(ctx context.Context, date string, dayStart uint64, d domain.DailyStatsDelta) error {
	const query = `
		INSERT INTO daily_stats (
			date, day_start,
			auctions_started, auctions_settled, auctions_cancelled,
			total_bids, total_volume, unique_bidders, unique_creators, protocol_fees
		) VALUES (
			$1, $2,
			$3, $4, $5,
			$6, $7::numeric, $8, $9, $10::numeric
		)
		ON CONFLICT (date) DO UPDATE SET
			auctions_started   = daily_stats.auctions_started + EXCLUDED.auctions_started,
			auctions_settled   = daily_stats.auctions_settled + EXCLUDED.auctions_settled,
			auctions_cancelled = daily_stats.auctions_cancelled + EXCLUDED.auctions_cancelled,
			total_bids         = daily_stats.total_bids + EXCLUDED.total_bids,
			total_volume       = daily_stats.total_volume + EXCLUDED.total_volume,
			unique_bidders     = daily_stats.unique_bidders + EXCLUDED.unique_bidders,
			unique_creators    = daily_stats.unique_creators + EXCLUDED.unique_creators,
			protocol_fees      = daily_stats.protocol_fees + EXCLUDED.protocol_fees`

	_, err := s.pool.Exec(ctx, query,
		date, dayStart,
		d.AuctionsStarted, d.AuctionsSettled, d.AuctionsCancelled,
		d.TotalBids, bigOrZero(d.TotalVolume), d.UniqueBidders, d.UniqueCreators, bigOrZero(d.ProtocolFees),
	)
	if err != nil {
		return fmt.Errorf("postgres: apply daily stats %s: %w", date, err)
	}
	return nil
}

const dailyCols = `date, day_start,
	auctions_started, auctions_settled, auctions_cancelled,
	total_bids, total_volume::text, unique_bidders, unique_creators, protocol_fees::text,
	average_auction_duration, median_bid_amount::text, highest_bid::text`

func scanDaily(row pgx.Row) (*domain.DailyStats, error) {
	var (
		ds               domain.DailyStats
		volume, fees     string
		avgDur           *int64
		median, highest  *string
	)
	err := row.Scan(
		&ds.Date, &ds.Timestamp,
		&ds.AuctionsStarted, &ds.AuctionsSettled, &ds.AuctionsCancelled,
		&ds.TotalBids, &volume, &ds.UniqueBidders, &ds.UniqueCreators, &fees,
		&avgDur, &median, &highest,
	)
	if err != nil {
		return nil, err
	}
	if avgDur != nil {
		v := uint64(*avgDur)
		ds.AverageAuctionDuration = &v
	}
	if ds.TotalVolume, err = parseBig(volume); err != nil {
		return nil, err
	}
	if ds.ProtocolFees, err = parseBig(fees); err != nil {
		return nil, err
	}
	if ds.MedianBidAmount, err = parseBigPtr(median); err != nil {
		return nil, err
	}
	if ds.HighestBid, err = parseBigPtr(highest); err != nil {
		return nil, err
	}
	return &ds, nil
}

func (s *DailyStatsStore) Get(ctx context.Context, date string) (*domain.DailyStats, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+dailyCols+` FROM daily_stats WHERE date = $1`, date)
	ds, err := scanDaily(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("postgres: get daily stats %s: %w", date, err)
	}
	return ds, nil
}

func (s *DailyStatsStore) ListRecent(ctx context.Context, days int) ([]*domain.DailyStats, error) {
	if days <= 0 {
		days = 30
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+dailyCols+` FROM daily_stats ORDER BY date DESC LIMIT $1`, days)
	if err != nil {
		return nil, fmt.Errorf("postgres: list daily stats: %w", err)
	}
	defer rows.Close()

	var out []*domain.DailyStats
	for rows.Next() {
		ds, err := scanDaily(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: list daily stats: scan: %w", err)
		}
		out = append(out, ds)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list daily stats: %w", err)
	}
	return out, nil
}
