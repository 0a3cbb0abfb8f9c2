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

const defaultListLimit = 50

func clampList(opts domain.ListOpts) domain.ListOpts {
	if opts.Limit <= 0 {
		opts.Limit = defaultListLimit
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}
	return opts
}

// AuctionStore implements domain.AuctionStore.
type AuctionStore struct {
	pool *pgxpool.Pool
}

func NewAuctionStore(pool *pgxpool.Pool) *AuctionStore {
	return &AuctionStore{pool: pool}
}

const auctionCols = `cast_hash, creator, creator_fid, state,
	min_bid::text, min_bid_increment_bps, protocol_fee_bps, duration,
	extension, extension_threshold,
	start_time, end_time, last_bid_at,
	highest_bidder, highest_bidder_fid, highest_bid::text, total_bids,
	settled_at, treasury_amount::text, creator_amount::text,
	start_block_number, start_tx_hash`

func scanAuction(row pgx.Row) (*domain.Auction, error) {
	var (
		a                                 domain.Auction
		castHash, creator, bidder, txRaw  string
		state                             int16
		minBid, highestBid                string
		settledAt                         *int64
		treasury, creatorAmt              *string
	)
	err := row.Scan(
		&castHash, &creator, &a.CreatorFid, &state,
		&minBid, &a.Params.MinBidIncrementBps, &a.Params.ProtocolFeeBps, &a.Params.Duration,
		&a.Params.Extension, &a.Params.ExtensionThreshold,
		&a.StartTime, &a.EndTime, &a.LastBidAt,
		&bidder, &a.HighestBidderFid, &highestBid, &a.TotalBids,
		&settledAt, &treasury, &creatorAmt,
		&a.StartBlockNumber, &txRaw,
	)
	if err != nil {
		return nil, err
	}

	a.CastHash = common.HexToHash(castHash)
	a.Creator = common.HexToAddress(creator)
	a.State = domain.AuctionState(state)
	a.HighestBidder = common.HexToAddress(bidder)
	a.StartTxHash = common.HexToHash(txRaw)
	if settledAt != nil {
		a.SettledAt = uint64(*settledAt)
	}
	if a.Params.MinBid, err = parseBig(minBid); err != nil {
		return nil, err
	}
	if a.HighestBid, err = parseBig(highestBid); err != nil {
		return nil, err
	}
	if a.TreasuryAmount, err = parseBigPtr(treasury); err != nil {
		return nil, err
	}
	if a.CreatorAmount, err = parseBigPtr(creatorAmt); err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *AuctionStore) Insert(ctx context.Context, a *domain.Auction) error {
	const query = `
		INSERT INTO auctions (
			cast_hash, creator, creator_fid, state,
			min_bid, min_bid_increment_bps, protocol_fee_bps, duration,
			extension, extension_threshold,
			start_time, end_time, last_bid_at,
			highest_bidder, highest_bidder_fid, highest_bid, total_bids,
			start_block_number, start_tx_hash
		) VALUES (
			$1, $2, $3, $4,
			$5::numeric, $6, $7, $8,
			$9, $10,
			$11, $12, $13,
			$14, $15, $16::numeric, $17,
			$18, $19
		)
		ON CONFLICT (cast_hash) DO NOTHING`

	_, err := s.pool.Exec(ctx, query,
		a.CastHash.Hex(), addrArg(a.Creator), a.CreatorFid, int16(a.State),
		bigArg(a.Params.MinBid), a.Params.MinBidIncrementBps, a.Params.ProtocolFeeBps, a.Params.Duration,
		a.Params.Extension, a.Params.ExtensionThreshold,
		a.StartTime, a.EndTime, a.LastBidAt,
		addrArg(a.HighestBidder), a.HighestBidderFid, bigArg(a.HighestBid), a.TotalBids,
		a.StartBlockNumber, a.StartTxHash.Hex(),
	)
	if err != nil {
		return fmt.Errorf("postgres: insert auction %s: %w", a.CastHash, err)
	}
	return nil
}

func (s *AuctionStore) Get(ctx context.Context, castHash common.Hash) (*domain.Auction, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+auctionCols+` FROM auctions WHERE cast_hash = $1`, castHash.Hex())
	a, err := scanAuction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("postgres: get auction %s: %w", castHash, err)
	}
	return a, nil
}

func (s *AuctionStore) Update(ctx context.Context, a *domain.Auction) error {
	const query = `
		UPDATE auctions SET
			state              = $2,
			end_time           = $3,
			last_bid_at        = $4,
			highest_bidder     = $5,
			highest_bidder_fid = $6,
			highest_bid        = $7::numeric,
			total_bids         = $8,
			settled_at         = $9,
			treasury_amount    = $10::numeric,
			creator_amount     = $11::numeric
		WHERE cast_hash = $1`

	var settledAt any
	if a.SettledAt != 0 {
		settledAt = int64(a.SettledAt)
	}
	tag, err := s.pool.Exec(ctx, query,
		a.CastHash.Hex(), int16(a.State),
		a.EndTime, a.LastBidAt,
		addrArg(a.HighestBidder), a.HighestBidderFid, bigArg(a.HighestBid), a.TotalBids,
		settledAt, bigArg(a.TreasuryAmount), bigArg(a.CreatorAmount),
	)
	if err != nil {
		return fmt.Errorf("postgres: update auction %s: %w", a.CastHash, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *AuctionStore) listAuctions(ctx context.Context, what, query string, args ...any) ([]*domain.Auction, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: %s: %w", what, err)
	}
	defer rows.Close()

	var out []*domain.Auction
	for rows.Next() {
		a, err := scanAuction(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: %s: scan: %w", what, err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: %s: %w", what, err)
	}
	return out, nil
}

func (s *AuctionStore) ListRecent(ctx context.Context, state *domain.AuctionState, opts domain.ListOpts) ([]*domain.Auction, error) {
	opts = clampList(opts)
	if state != nil {
		return s.listAuctions(ctx, "list recent auctions",
			`SELECT `+auctionCols+` FROM auctions WHERE state = $1
			 ORDER BY start_time DESC LIMIT $2 OFFSET $3`,
			int16(*state), opts.Limit, opts.Offset)
	}
	return s.listAuctions(ctx, "list recent auctions",
		`SELECT `+auctionCols+` FROM auctions
		 ORDER BY start_time DESC LIMIT $1 OFFSET $2`,
		opts.Limit, opts.Offset)
}

func (s *AuctionStore) ListByCreator(ctx context.Context, creator common.Address, opts domain.ListOpts) ([]*domain.Auction, error) {
	opts = clampList(opts)
	return s.listAuctions(ctx, "list auctions by creator",
		`SELECT `+auctionCols+` FROM auctions WHERE creator = $1
		 ORDER BY start_time DESC LIMIT $2 OFFSET $3`,
		addrArg(creator), opts.Limit, opts.Offset)
}

func (s *AuctionStore) ListByCreatorFid(ctx context.Context, fid uint64, opts domain.ListOpts) ([]*domain.Auction, error) {
	opts = clampList(opts)
	return s.listAuctions(ctx, "list auctions by creator fid",
		`SELECT `+auctionCols+` FROM auctions WHERE creator_fid = $1
		 ORDER BY start_time DESC LIMIT $2 OFFSET $3`,
		fid, opts.Limit, opts.Offset)
}

func (s *AuctionStore) ListParticipated(ctx context.Context, bidder common.Address, opts domain.ListOpts) ([]*domain.Auction, error) {
	opts = clampList(opts)
	return s.listAuctions(ctx, "list participated auctions",
		`SELECT `+auctionCols+` FROM auctions a
		 WHERE EXISTS (SELECT 1 FROM bids b WHERE b.cast_hash = a.cast_hash AND b.bidder = $1)
		 ORDER BY a.start_time DESC LIMIT $2 OFFSET $3`,
		addrArg(bidder), opts.Limit, opts.Offset)
}

// BidStore implements domain.BidStore.
type BidStore struct {
	pool *pgxpool.Pool
}

func NewBidStore(pool *pgxpool.Pool) *BidStore {
	return &BidStore{pool: pool}
}

const bidCols = `id, cast_hash, bidder, bidder_fid, amount::text, bid_index,
	ts, block_number, tx_hash, authorizer, was_refunded, refunded_at`

func scanBid(row pgx.Row) (*domain.Bid, error) {
	var (
		b                                      domain.Bid
		castHash, bidder, txRaw, auth, amount  string
		refundedAt                             *int64
	)
	err := row.Scan(
		&b.ID, &castHash, &bidder, &b.BidderFid, &amount, &b.BidIndex,
		&b.Timestamp, &b.BlockNum, &txRaw, &auth, &b.WasRefunded, &refundedAt,
	)
	if err != nil {
		return nil, err
	}
	b.CastHash = common.HexToHash(castHash)
	b.Bidder = common.HexToAddress(bidder)
	b.TxHash = common.HexToHash(txRaw)
	b.Authorizer = common.HexToAddress(auth)
	if refundedAt != nil {
		b.RefundedAt = uint64(*refundedAt)
	}
	if b.Amount, err = parseBig(amount); err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *BidStore) Insert(ctx context.Context, b *domain.Bid) error {
	const query = `
		INSERT INTO bids (
			id, cast_hash, bidder, bidder_fid, amount, bid_index,
			ts, block_number, tx_hash, authorizer, was_refunded, refunded_at
		) VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO NOTHING`

	var refundedAt any
	if b.RefundedAt != 0 {
		refundedAt = int64(b.RefundedAt)
	}
	_, err := s.pool.Exec(ctx, query,
		b.ID, b.CastHash.Hex(), addrArg(b.Bidder), b.BidderFid, bigArg(b.Amount), b.BidIndex,
		b.Timestamp, b.BlockNum, b.TxHash.Hex(), addrArg(b.Authorizer), b.WasRefunded, refundedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert bid %s: %w", b.ID, err)
	}
	return nil
}

func (s *BidStore) ListByAuction(ctx context.Context, castHash common.Hash) ([]*domain.Bid, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+bidCols+` FROM bids WHERE cast_hash = $1 ORDER BY bid_index ASC, ts ASC`,
		castHash.Hex())
	if err != nil {
		return nil, fmt.Errorf("postgres: list bids %s: %w", castHash, err)
	}
	defer rows.Close()

	var out []*domain.Bid
	for rows.Next() {
		b, err := scanBid(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: list bids %s: scan: %w", castHash, err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list bids %s: %w", castHash, err)
	}
	return out, nil
}

func (s *BidStore) FindRefundable(ctx context.Context, castHash common.Hash, bidder common.Address, amount *big.Int) (*domain.Bid, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+bidCols+` FROM bids
		 WHERE cast_hash = $1 AND bidder = $2 AND amount = $3::numeric AND NOT was_refunded
		 ORDER BY bid_index DESC, ts DESC
		 LIMIT 1`,
		castHash.Hex(), addrArg(bidder), bigArg(amount))
	b, err := scanBid(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("postgres: find refundable bid %s: %w", castHash, err)
	}
	return b, nil
}

func (s *BidStore) MarkRefunded(ctx context.Context, id string, refundedAt uint64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE bids SET was_refunded = TRUE, refunded_at = $2 WHERE id = $1`,
		id, int64(refundedAt))
	if err != nil {
		return fmt.Errorf("postgres: mark bid refunded %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ExtensionStore implements domain.ExtensionStore.
type ExtensionStore struct {
	pool *pgxpool.Pool
}

func NewExtensionStore(pool *pgxpool.Pool) *ExtensionStore {
	return &ExtensionStore{pool: pool}
}

func (s *ExtensionStore) Insert(ctx context.Context, e *domain.AuctionExtension) error {
	const query = `
		INSERT INTO auction_extensions (
			id, cast_hash, old_end_time, new_end_time, ext_index,
			triggered_by, ts, block_number, tx_hash
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING`

	_, err := s.pool.Exec(ctx, query,
		e.ID, e.CastHash.Hex(), e.OldEndTime, e.NewEndTime, e.Index,
		addrArg(e.TriggeredBy), e.Timestamp, e.BlockNum, e.TxHash.Hex(),
	)
	if err != nil {
		return fmt.Errorf("postgres: insert extension %s: %w", e.ID, err)
	}
	return nil
}

func (s *ExtensionStore) CountByAuction(ctx context.Context, castHash common.Hash) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM auction_extensions WHERE cast_hash = $1`, castHash.Hex()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("postgres: count extensions %s: %w", castHash, err)
	}
	return n, nil
}

func (s *ExtensionStore) ListByAuction(ctx context.Context, castHash common.Hash) ([]*domain.AuctionExtension, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, cast_hash, old_end_time, new_end_time, ext_index,
		        triggered_by, ts, block_number, tx_hash
		 FROM auction_extensions WHERE cast_hash = $1 ORDER BY ext_index ASC`,
		castHash.Hex())
	if err != nil {
		return nil, fmt.Errorf("postgres: list extensions %s: %w", castHash, err)
	}
	defer rows.Close()

	var out []*domain.AuctionExtension
	for rows.Next() {
		var (
			e                    domain.AuctionExtension
			castRaw, trig, txRaw string
		)
		err := rows.Scan(&e.ID, &castRaw, &e.OldEndTime, &e.NewEndTime, &e.Index,
			&trig, &e.Timestamp, &e.BlockNum, &txRaw)
		if err != nil {
			return nil, fmt.Errorf("postgres: list extensions %s: scan: %w", castHash, err)
		}
		e.CastHash = common.HexToHash(castRaw)
		e.TriggeredBy = common.HexToAddress(trig)
		e.TxHash = common.HexToHash(txRaw)
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list extensions %s: %w", castHash, err)
	}
	return out, nil
}
