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

// LeaderboardStore implements domain.LeaderboardStore.
type LeaderboardStore struct {
	pool *pgxpool.Pool
}

func NewLeaderboardStore(pool *pgxpool.Pool) *LeaderboardStore {
	return &LeaderboardStore{pool: pool}
}

func (s *LeaderboardStore) AddBrandPoints(ctx context.Context, brandID int64, g domain.Granularity, bucket uint64, points *big.Int, tier domain.Tier) error {
	gold, silver, bronze := 0, 0, 0
	switch tier {
	case domain.TierGold:
		gold = 1
	case domain.TierSilver:
		silver = 1
	case domain.TierBronze:
		bronze = 1
	}

	const query = `
		INSERT INTO brand_leaderboard (
			brand_id, granularity, bucket, points, gold_count, silver_count, bronze_count
		) VALUES ($1, $2, $3, $4::numeric, $5, $6, $7)
		ON CONFLICT (brand_id, granularity, bucket) DO UPDATE SET
			points       = brand_leaderboard.points + EXCLUDED.points,
			gold_count   = brand_leaderboard.gold_count + EXCLUDED.gold_count,
			silver_count = brand_leaderboard.silver_count + EXCLUDED.silver_count,
			bronze_count = brand_leaderboard.bronze_count + EXCLUDED.bronze_count`

	_, err := s.pool.Exec(ctx, query,
		brandID, string(g), bucket, bigOrZero(points), gold, silver, bronze)
	if err != nil {
		return fmt.Errorf("postgres: add brand points %d %s/%d: %w", brandID, g, bucket, err)
	}
	return nil
}

func (s *LeaderboardStore) AddUserPoints(ctx context.Context, addr common.Address, points int64) error {
	const query = `
		INSERT INTO user_leaderboard (address, points) VALUES ($1, $2)
		ON CONFLICT (address) DO UPDATE SET
			points = user_leaderboard.points + EXCLUDED.points`

	if _, err := s.pool.Exec(ctx, query, addrArg(addr), points); err != nil {
		return fmt.Errorf("postgres: add user points %s: %w", addr, err)
	}
	return nil
}

func (s *LeaderboardStore) TopBrands(ctx context.Context, g domain.Granularity, bucket uint64, n int) ([]domain.BrandScore, error) {
	if n <= 0 {
		n = 10
	}
	rows, err := s.pool.Query(ctx,
		`SELECT brand_id, points::text, gold_count, silver_count, bronze_count, rank
		 FROM brand_leaderboard
		 WHERE granularity = $1 AND bucket = $2
		 ORDER BY points DESC, brand_id ASC
		 LIMIT $3`,
		string(g), bucket, n)
	if err != nil {
		return nil, fmt.Errorf("postgres: top brands %s/%d: %w", g, bucket, err)
	}
	defer rows.Close()

	var out []domain.BrandScore
	for rows.Next() {
		var (
			sc     domain.BrandScore
			points string
		)
		err := rows.Scan(&sc.BrandID, &points, &sc.GoldCount, &sc.SilverCount, &sc.BronzeCount, &sc.Rank)
		if err != nil {
			return nil, fmt.Errorf("postgres: top brands %s/%d: scan: %w", g, bucket, err)
		}
		sc.Granularity = g
		sc.Bucket = bucket
		if sc.Points, err = parseBig(points); err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: top brands %s/%d: %w", g, bucket, err)
	}
	return out, nil
}

func (s *LeaderboardStore) GetUserScore(ctx context.Context, addr common.Address) (*domain.UserScore, error) {
	var sc domain.UserScore
	err := s.pool.QueryRow(ctx,
		`SELECT points, rank FROM user_leaderboard WHERE address = $1`,
		addrArg(addr)).Scan(&sc.Points, &sc.Rank)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("postgres: get user score %s: %w", addr, err)
	}
	sc.Address = addr
	return &sc, nil
}

// CheckpointStore implements domain.CheckpointStore. Both tables must survive
// restarts: last-seen buckets drive boundary detection, emitted markers
// guarantee each period summary goes out at most once.
type CheckpointStore struct {
	pool *pgxpool.Pool
}

func NewCheckpointStore(pool *pgxpool.Pool) *CheckpointStore {
	return &CheckpointStore{pool: pool}
}

func (s *CheckpointStore) LastSeenBucket(ctx context.Context, g domain.Granularity) (uint64, bool, error) {
	var bucket int64
	err := s.pool.QueryRow(ctx,
		`SELECT last_seen_bucket FROM indexer_checkpoints WHERE granularity = $1`,
		string(g)).Scan(&bucket)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("postgres: last seen bucket %s: %w", g, err)
	}
	return uint64(bucket), true, nil
}

func (s *CheckpointStore) SetLastSeenBucket(ctx context.Context, g domain.Granularity, bucket uint64) error {
	const query = `
		INSERT INTO indexer_checkpoints (granularity, last_seen_bucket)
		VALUES ($1, $2)
		ON CONFLICT (granularity) DO UPDATE SET
			last_seen_bucket = EXCLUDED.last_seen_bucket`

	if _, err := s.pool.Exec(ctx, query, string(g), bucket); err != nil {
		return fmt.Errorf("postgres: set last seen bucket %s: %w", g, err)
	}
	return nil
}

func (s *CheckpointStore) WasEmitted(ctx context.Context, g domain.Granularity, bucket uint64) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM emitted_periods WHERE granularity = $1 AND bucket = $2)`,
		string(g), bucket).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("postgres: check emitted %s/%d: %w", g, bucket, err)
	}
	return exists, nil
}

func (s *CheckpointStore) MarkEmitted(ctx context.Context, g domain.Granularity, bucket uint64) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO emitted_periods (granularity, bucket) VALUES ($1, $2)
		 ON CONFLICT (granularity, bucket) DO NOTHING`,
		string(g), bucket)
	if err != nil {
		return fmt.Errorf("postgres: mark emitted %s/%d: %w", g, bucket, err)
	}
	return nil
}
