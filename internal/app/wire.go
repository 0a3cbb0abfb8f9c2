package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	s3blob "github.com/brndhq/brndindexer/internal/blob/s3"
	"github.com/brndhq/brndindexer/internal/cache/redis"
	"github.com/brndhq/brndindexer/internal/chain"
	"github.com/brndhq/brndindexer/internal/config"
	"github.com/brndhq/brndindexer/internal/domain"
	"github.com/brndhq/brndindexer/internal/notify"
	"github.com/brndhq/brndindexer/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency the application modes
// need. It is constructed by Wire and torn down by the returned cleanup
// function.
type Dependencies struct {
	// Stores
	Auctions     domain.AuctionStore
	Bids         domain.BidStore
	Extensions   domain.ExtensionStore
	Collectibles domain.CollectibleStore
	UserStats    domain.UserStatsStore
	DailyStats   domain.DailyStatsStore
	Brands       domain.BrandStore
	Votes        domain.VoteStore
	Users        domain.UserStore
	Activity     domain.ActivityStore
	Board        domain.LeaderboardStore
	Checkpoints  domain.CheckpointStore

	// Caches
	BoardCache domain.LeaderboardCache

	// Chain access
	EthClient *ethclient.Client
	Chain     domain.AuctionParamsReader

	// Outbound
	Backend  *notify.BackendClient
	Social   domain.SocialNotifier
	Archiver domain.SummarySink
}

// needsChain returns true for modes that read from the contract. Replay is
// included: auction parameters are fetched from the auctions mapping even when
// the logs come from a file.
func needsChain(mode string) bool {
	switch mode {
	case "index", "replay", "full":
		return true
	default:
		return false
	}
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- PostgreSQL (every mode persists or reads indexed state) ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Postgres.DSN,
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		Database: cfg.Postgres.Database,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		SSLMode:  cfg.Postgres.SSLMode,
		MaxConns: cfg.Postgres.PoolMaxConns,
		MinConns: cfg.Postgres.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Postgres.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	pool := pgClient.Pool()
	deps.Auctions = postgres.NewAuctionStore(pool)
	deps.Bids = postgres.NewBidStore(pool)
	deps.Extensions = postgres.NewExtensionStore(pool)
	deps.Collectibles = postgres.NewCollectibleStore(pool)
	deps.UserStats = postgres.NewUserStatsStore(pool)
	deps.DailyStats = postgres.NewDailyStatsStore(pool)
	deps.Brands = postgres.NewBrandStore(pool)
	deps.Votes = postgres.NewVoteStore(pool)
	deps.Users = postgres.NewUserStore(pool)
	deps.Activity = postgres.NewActivityStore(pool)
	deps.Board = postgres.NewLeaderboardStore(pool)
	deps.Checkpoints = postgres.NewCheckpointStore(pool)

	// --- Redis (optional leaderboard cache) ---
	if cfg.Redis.Addr != "" {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.BoardCache = redis.NewLeaderboardCache(redisClient)
	}

	// --- S3 summary archive (optional) ---
	if cfg.S3.Bucket != "" {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}

		deps.Archiver = s3blob.NewSummaryArchiver(s3Client)
	}

	// --- Chain (contract reads for indexing modes) ---
	if needsChain(cfg.Mode) && cfg.Chain.RPCURL != "" {
		ethClient, err := ethclient.DialContext(ctx, cfg.Chain.RPCURL)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: eth dial: %w", err)
		}
		closers = append(closers, ethClient.Close)
		deps.EthClient = ethClient

		reader, err := chain.NewReader(ethClient, common.HexToAddress(cfg.Chain.AuctionContract))
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: chain reader: %w", err)
		}
		deps.Chain = reader
	}

	// --- Outbound sinks (enabled by credentials) ---
	if cfg.Backend.APIKey != "" {
		deps.Backend = notify.NewBackendClient(cfg.Backend.BaseURL, cfg.Backend.APIKey, cfg.Backend.Source)
	} else {
		logger.InfoContext(ctx, "backend forwarding disabled, no api key configured")
	}
	if cfg.Social.NeynarAPIKey != "" && cfg.Social.BotSignerUUID != "" {
		deps.Social = notify.NewFarcasterNotifier(cfg.Social.NeynarAPIKey, cfg.Social.BotSignerUUID)
	} else {
		logger.InfoContext(ctx, "social announcements disabled, no signer configured")
	}

	return deps, cleanup, nil
}
