package postgres

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/brndhq/brndindexer/internal/domain"
)

// CollectibleStore implements domain.CollectibleStore.
type CollectibleStore struct {
	pool *pgxpool.Pool
}

func NewCollectibleStore(pool *pgxpool.Pool) *CollectibleStore {
	return &CollectibleStore{pool: pool}
}

func (s *CollectibleStore) InsertCollectible(ctx context.Context, c *domain.CastCollectible) error {
	const query = `
		INSERT INTO cast_collectibles (
			cast_hash, creator, creator_fid, winner, winner_fid,
			final_amount, is_from_bot, settled_at, block_number, tx_hash
		) VALUES ($1, $2, $3, $4, $5, $6::numeric, $7, $8, $9, $10)
		ON CONFLICT (cast_hash) DO NOTHING`

	_, err := s.pool.Exec(ctx, query,
		c.CastHash.Hex(), addrArg(c.Creator), c.CreatorFid, addrArg(c.Winner), c.WinnerFid,
		bigArg(c.FinalAmount), c.IsFromBot, c.SettledAt, c.BlockNum, c.TxHash.Hex(),
	)
	if err != nil {
		return fmt.Errorf("postgres: insert collectible %s: %w", c.CastHash, err)
	}
	return nil
}

func (s *CollectibleStore) InsertSettled(ctx context.Context, r *domain.SettledRecord) error {
	const query = `
		INSERT INTO auction_settled (
			cast_hash, winner, winner_fid, amount, block_number, ts, tx_hash
		) VALUES ($1, $2, $3, $4::numeric, $5, $6, $7)
		ON CONFLICT (cast_hash) DO NOTHING`

	_, err := s.pool.Exec(ctx, query,
		r.CastHash.Hex(), addrArg(r.Winner), r.WinnerFid, bigArg(r.Amount),
		r.BlockNum, r.Timestamp, r.TxHash.Hex(),
	)
	if err != nil {
		return fmt.Errorf("postgres: insert settled record %s: %w", r.CastHash, err)
	}
	return nil
}

func (s *CollectibleStore) ListByWinner(ctx context.Context, winner common.Address, excludeBot bool, opts domain.ListOpts) ([]*domain.CastCollectible, error) {
	opts = clampList(opts)
	query := `
		SELECT cast_hash, creator, creator_fid, winner, winner_fid,
		       final_amount::text, is_from_bot, settled_at, block_number, tx_hash
		FROM cast_collectibles WHERE winner = $1`
	if excludeBot {
		query += ` AND NOT is_from_bot`
	}
	query += ` ORDER BY settled_at DESC LIMIT $2 OFFSET $3`

	rows, err := s.pool.Query(ctx, query, addrArg(winner), opts.Limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("postgres: list collectibles %s: %w", winner, err)
	}
	defer rows.Close()

	var out []*domain.CastCollectible
	for rows.Next() {
		var (
			c                                 domain.CastCollectible
			castRaw, creator, winRaw, txRaw   string
			amount                            string
		)
		err := rows.Scan(&castRaw, &creator, &c.CreatorFid, &winRaw, &c.WinnerFid,
			&amount, &c.IsFromBot, &c.SettledAt, &c.BlockNum, &txRaw)
		if err != nil {
			return nil, fmt.Errorf("postgres: list collectibles %s: scan: %w", winner, err)
		}
		c.CastHash = common.HexToHash(castRaw)
		c.Creator = common.HexToAddress(creator)
		c.Winner = common.HexToAddress(winRaw)
		c.TxHash = common.HexToHash(txRaw)
		if c.FinalAmount, err = parseBig(amount); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list collectibles %s: %w", winner, err)
	}
	return out, nil
}

func (s *CollectibleStore) ApplyCollector(ctx context.Context, winner common.Address, winnerFid uint64, amount *big.Int, ts uint64) error {
	const query = `
		INSERT INTO bot_collectors (
			winner, winner_fid, total_collected, total_amount_spent,
			first_collected_at, last_collected_at
		) VALUES ($1, $2, 1, $3::numeric, $4, $4)
		ON CONFLICT (winner) DO UPDATE SET
			total_collected    = bot_collectors.total_collected + 1,
			total_amount_spent = bot_collectors.total_amount_spent + EXCLUDED.total_amount_spent,
			last_collected_at  = EXCLUDED.last_collected_at`

	_, err := s.pool.Exec(ctx, query, addrArg(winner), winnerFid, bigArg(amount), ts)
	if err != nil {
		return fmt.Errorf("postgres: apply collector %s: %w", winner, err)
	}
	return nil
}

func (s *CollectibleStore) ListCollectors(ctx context.Context, opts domain.ListOpts) ([]*domain.BotCollector, error) {
	opts = clampList(opts)
	rows, err := s.pool.Query(ctx,
		`SELECT winner, winner_fid, total_collected, total_amount_spent::text,
		        first_collected_at, last_collected_at
		 FROM bot_collectors
		 ORDER BY total_collected DESC, total_amount_spent DESC
		 LIMIT $1 OFFSET $2`,
		opts.Limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("postgres: list collectors: %w", err)
	}
	defer rows.Close()

	var out []*domain.BotCollector
	for rows.Next() {
		var (
			c              domain.BotCollector
			winRaw, spent  string
		)
		err := rows.Scan(&winRaw, &c.WinnerFid, &c.TotalCollected, &spent,
			&c.FirstCollectedAt, &c.LastCollectedAt)
		if err != nil {
			return nil, fmt.Errorf("postgres: list collectors: scan: %w", err)
		}
		c.Winner = common.HexToAddress(winRaw)
		if c.TotalAmountSpent, err = parseBig(spent); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list collectors: %w", err)
	}
	return out, nil
}
