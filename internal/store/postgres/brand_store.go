package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/brndhq/brndindexer/internal/domain"
)

// BrandStore implements domain.BrandStore.
type BrandStore struct {
	pool *pgxpool.Pool
}

func NewBrandStore(pool *pgxpool.Pool) *BrandStore {
	return &BrandStore{pool: pool}
}

const insertBrandQuery = `
	INSERT INTO brands (
		id, fid, wallet_address, handle, metadata_hash,
		total_awarded, available, created_at, block_number, tx_hash
	) VALUES ($1, $2, $3, $4, $5, $6::numeric, $7::numeric, $8, $9, $10)
	ON CONFLICT (id) DO NOTHING`

func (s *BrandStore) Insert(ctx context.Context, b *domain.Brand) error {
	_, err := s.pool.Exec(ctx, insertBrandQuery,
		b.ID, b.Fid, addrArg(b.WalletAddress), b.Handle, b.MetadataHash,
		bigOrZero(b.TotalAwarded), bigOrZero(b.Available), b.CreatedAt, b.BlockNum, b.TxHash.Hex(),
	)
	if err != nil {
		return fmt.Errorf("postgres: insert brand %d: %w", b.ID, err)
	}
	return nil
}

func (s *BrandStore) InsertBatch(ctx context.Context, brands []*domain.Brand) error {
	if len(brands) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, b := range brands {
		batch.Queue(insertBrandQuery,
			b.ID, b.Fid, addrArg(b.WalletAddress), b.Handle, b.MetadataHash,
			bigOrZero(b.TotalAwarded), bigOrZero(b.Available), b.CreatedAt, b.BlockNum, b.TxHash.Hex(),
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := range brands {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: insert brand batch item %d: %w", i, err)
		}
	}
	return nil
}

func (s *BrandStore) Get(ctx context.Context, id int64) (*domain.Brand, error) {
	const query = `
		SELECT id, fid, wallet_address, handle, metadata_hash,
		       total_awarded::text, available::text, created_at, block_number, tx_hash
		FROM brands WHERE id = $1`

	var (
		b                        domain.Brand
		wallet, txRaw            string
		totalAwarded, available  string
	)
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&b.ID, &b.Fid, &wallet, &b.Handle, &b.MetadataHash,
		&totalAwarded, &available, &b.CreatedAt, &b.BlockNum, &txRaw,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("postgres: get brand %d: %w", id, err)
	}

	b.WalletAddress = common.HexToAddress(wallet)
	b.TxHash = common.HexToHash(txRaw)
	if b.TotalAwarded, err = parseBig(totalAwarded); err != nil {
		return nil, err
	}
	if b.Available, err = parseBig(available); err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *BrandStore) UpdateMetadata(ctx context.Context, id int64, metadataHash string, fid uint64, wallet common.Address, blockNum uint64, txHash common.Hash) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE brands SET
			metadata_hash  = $2,
			fid            = $3,
			wallet_address = $4,
			block_number   = $5,
			tx_hash        = $6
		 WHERE id = $1`,
		id, metadataHash, fid, addrArg(wallet), blockNum, txHash.Hex())
	if err != nil {
		return fmt.Errorf("postgres: update brand %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// VoteStore implements domain.VoteStore.
type VoteStore struct {
	pool *pgxpool.Pool
}

func NewVoteStore(pool *pgxpool.Pool) *VoteStore {
	return &VoteStore{pool: pool}
}

func (s *VoteStore) Insert(ctx context.Context, v *domain.Vote) error {
	const query = `
		INSERT INTO votes (
			id, voter, fid, day,
			gold_brand_id, silver_brand_id, bronze_brand_id,
			cost, block_number, tx_hash, ts
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8::numeric, $9, $10, $11)
		ON CONFLICT (id) DO NOTHING`

	_, err := s.pool.Exec(ctx, query,
		v.ID, addrArg(v.Voter), v.Fid, v.Day,
		v.BrandIDs[0], v.BrandIDs[1], v.BrandIDs[2],
		bigArg(v.Cost), v.BlockNum, v.TxHash.Hex(), v.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert vote %s: %w", v.ID, err)
	}
	return nil
}

func (s *VoteStore) Get(ctx context.Context, id string) (*domain.Vote, error) {
	const query = `
		SELECT id, voter, fid, day,
		       gold_brand_id, silver_brand_id, bronze_brand_id,
		       cost::text, block_number, tx_hash, ts
		FROM votes WHERE id = $1`

	var (
		v                  domain.Vote
		voter, txRaw, cost string
	)
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&v.ID, &voter, &v.Fid, &v.Day,
		&v.BrandIDs[0], &v.BrandIDs[1], &v.BrandIDs[2],
		&cost, &v.BlockNum, &txRaw, &v.Timestamp,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("postgres: get vote %s: %w", id, err)
	}

	v.Voter = common.HexToAddress(voter)
	v.TxHash = common.HexToHash(txRaw)
	if v.Cost, err = parseBig(cost); err != nil {
		return nil, err
	}
	return &v, nil
}

// UserStore implements domain.UserStore.
type UserStore struct {
	pool *pgxpool.Pool
}

func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

func (s *UserStore) Get(ctx context.Context, fid uint64) (*domain.User, error) {
	var (
		u     domain.User
		txRaw string
	)
	err := s.pool.QueryRow(ctx,
		`SELECT fid, power_level, total_votes, last_vote_day, block_number, tx_hash
		 FROM users WHERE fid = $1`, fid).Scan(
		&u.Fid, &u.PowerLevel, &u.TotalVotes, &u.LastVoteDay, &u.BlockNum, &txRaw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("postgres: get user %d: %w", fid, err)
	}
	u.TxHash = common.HexToHash(txRaw)
	return &u, nil
}

func (s *UserStore) RecordVote(ctx context.Context, fid uint64, day uint64, blockNum uint64, txHash common.Hash) error {
	const query = `
		INSERT INTO users (fid, power_level, total_votes, last_vote_day, block_number, tx_hash)
		VALUES ($1, 0, 1, $2, $3, $4)
		ON CONFLICT (fid) DO UPDATE SET
			total_votes   = users.total_votes + 1,
			last_vote_day = EXCLUDED.last_vote_day,
			block_number  = EXCLUDED.block_number,
			tx_hash       = EXCLUDED.tx_hash`

	if _, err := s.pool.Exec(ctx, query, fid, day, blockNum, txHash.Hex()); err != nil {
		return fmt.Errorf("postgres: record vote for user %d: %w", fid, err)
	}
	return nil
}

func (s *UserStore) SetPowerLevel(ctx context.Context, fid uint64, level int, blockNum uint64, txHash common.Hash) error {
	const query = `
		INSERT INTO users (fid, power_level, total_votes, last_vote_day, block_number, tx_hash)
		VALUES ($1, $2, 0, 0, $3, $4)
		ON CONFLICT (fid) DO UPDATE SET
			power_level  = EXCLUDED.power_level,
			block_number = EXCLUDED.block_number,
			tx_hash      = EXCLUDED.tx_hash`

	if _, err := s.pool.Exec(ctx, query, fid, level, blockNum, txHash.Hex()); err != nil {
		return fmt.Errorf("postgres: set power level for user %d: %w", fid, err)
	}
	return nil
}

// ActivityStore implements domain.ActivityStore: the append-only ledgers that
// have no derived state of their own.
type ActivityStore struct {
	pool *pgxpool.Pool
}

func NewActivityStore(pool *pgxpool.Pool) *ActivityStore {
	return &ActivityStore{pool: pool}
}

func (s *ActivityStore) InsertWalletAuthorization(ctx context.Context, a *domain.WalletAuthorization) error {
	const query = `
		INSERT INTO wallet_authorizations (id, fid, wallet, block_number, tx_hash, ts)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING`

	_, err := s.pool.Exec(ctx, query,
		a.ID, a.Fid, addrArg(a.Wallet), a.BlockNum, a.TxHash.Hex(), a.Timestamp)
	if err != nil {
		return fmt.Errorf("postgres: insert wallet authorization %s: %w", a.ID, err)
	}
	return nil
}

func (s *ActivityStore) InsertRewardClaim(ctx context.Context, c *domain.RewardClaim) error {
	const query = `
		INSERT INTO reward_claims (
			id, recipient, fid, amount, day, cast_ref, caller, block_number, tx_hash, ts
		) VALUES ($1, $2, $3, $4::numeric, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING`

	_, err := s.pool.Exec(ctx, query,
		c.ID, addrArg(c.Recipient), c.Fid, bigArg(c.Amount), c.Day, c.CastRef,
		addrArg(c.Caller), c.BlockNum, c.TxHash.Hex(), c.Timestamp)
	if err != nil {
		return fmt.Errorf("postgres: insert reward claim %s: %w", c.ID, err)
	}
	return nil
}

func (s *ActivityStore) InsertWithdrawal(ctx context.Context, w *domain.BrandRewardWithdrawal) error {
	const query = `
		INSERT INTO brand_reward_withdrawals (id, brand_id, fid, amount, block_number, tx_hash, ts)
		VALUES ($1, $2, $3, $4::numeric, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING`

	_, err := s.pool.Exec(ctx, query,
		w.ID, w.BrandID, w.Fid, bigArg(w.Amount), w.BlockNum, w.TxHash.Hex(), w.Timestamp)
	if err != nil {
		return fmt.Errorf("postgres: insert withdrawal %s: %w", w.ID, err)
	}
	return nil
}

func (s *ActivityStore) InsertPowerLevelUp(ctx context.Context, p *domain.PowerLevelUp) error {
	const query = `
		INSERT INTO power_level_ups (id, fid, new_level, wallet, block_number, tx_hash, ts)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING`

	_, err := s.pool.Exec(ctx, query,
		p.ID, p.Fid, p.NewLevel, addrArg(p.Wallet), p.BlockNum, p.TxHash.Hex(), p.Timestamp)
	if err != nil {
		return fmt.Errorf("postgres: insert power level-up %s: %w", p.ID, err)
	}
	return nil
}
