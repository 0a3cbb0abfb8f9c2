// Package redis caches leaderboard reads for the query API. It is the only
// Redis consumer in the indexer, so the connection wrapper lives here too.
package redis

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/brndhq/brndindexer/internal/domain"
)

const leaderboardTTL = 30 * time.Second

// ClientConfig holds connection parameters for the leaderboard cache.
type ClientConfig struct {
	Addr       string
	Password   string
	DB         int
	PoolSize   int
	MaxRetries int
	TLSEnabled bool
}

// Client owns the Redis connection backing the leaderboard cache.
type Client struct {
	rdb *redis.Client
}

// New connects and pings the configured Redis instance. A cache that cannot be
// reached at startup is a deployment error, not something to limp past.
func New(ctx context.Context, cfg ClientConfig) (*Client, error) {
	opts := &redis.Options{
		Addr:       cfg.Addr,
		Password:   cfg.Password,
		DB:         cfg.DB,
		PoolSize:   cfg.PoolSize,
		MaxRetries: cfg.MaxRetries,
	}
	if cfg.TLSEnabled {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", cfg.Addr, err)
	}
	return &Client{rdb: rdb}, nil
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// LeaderboardCache implements domain.LeaderboardCache using a single JSON
// string per (granularity, bucket) pair. The TTL is short: the cache only
// exists to absorb read bursts on the query API, the indexer invalidates it
// on every write anyway.
//
// Key schema:
//
//	leaderboard:{granularity}:{bucket} - JSON array of cached scores
type LeaderboardCache struct {
	rdb *redis.Client
}

// NewLeaderboardCache creates a LeaderboardCache backed by the given Client.
func NewLeaderboardCache(c *Client) *LeaderboardCache {
	return &LeaderboardCache{rdb: c.rdb}
}

func leaderboardKey(g domain.Granularity, bucket uint64) string {
	return "leaderboard:" + string(g) + ":" + strconv.FormatUint(bucket, 10)
}

// cachedScore is the wire form of a BrandScore. Points travel as a decimal
// string so values beyond int64 survive the round trip.
type cachedScore struct {
	BrandID     int64  `json:"brandId"`
	Points      string `json:"points"`
	GoldCount   int    `json:"goldCount"`
	SilverCount int    `json:"silverCount"`
	BronzeCount int    `json:"bronzeCount"`
	Rank        *int   `json:"rank,omitempty"`
}

func (lc *LeaderboardCache) SetTopBrands(ctx context.Context, g domain.Granularity, bucket uint64, scores []domain.BrandScore) error {
	entries := make([]cachedScore, 0, len(scores))
	for _, sc := range scores {
		points := "0"
		if sc.Points != nil {
			points = sc.Points.String()
		}
		entries = append(entries, cachedScore{
			BrandID:     sc.BrandID,
			Points:      points,
			GoldCount:   sc.GoldCount,
			SilverCount: sc.SilverCount,
			BronzeCount: sc.BronzeCount,
			Rank:        sc.Rank,
		})
	}

	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("redis: marshal leaderboard %s/%d: %w", g, bucket, err)
	}

	if err := lc.rdb.Set(ctx, leaderboardKey(g, bucket), data, leaderboardTTL).Err(); err != nil {
		return fmt.Errorf("redis: set leaderboard %s/%d: %w", g, bucket, err)
	}
	return nil
}

// GetTopBrands returns the cached scores for one bucket.
// It returns domain.ErrNotFound when the key does not exist.
func (lc *LeaderboardCache) GetTopBrands(ctx context.Context, g domain.Granularity, bucket uint64) ([]domain.BrandScore, error) {
	data, err := lc.rdb.Get(ctx, leaderboardKey(g, bucket)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("redis: get leaderboard %s/%d: %w", g, bucket, err)
	}

	var entries []cachedScore
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("redis: unmarshal leaderboard %s/%d: %w", g, bucket, err)
	}

	out := make([]domain.BrandScore, 0, len(entries))
	for _, e := range entries {
		points, ok := new(big.Int).SetString(e.Points, 10)
		if !ok {
			return nil, fmt.Errorf("redis: leaderboard %s/%d: bad points %q", g, bucket, e.Points)
		}
		out = append(out, domain.BrandScore{
			BrandID:     e.BrandID,
			Granularity: g,
			Bucket:      bucket,
			Points:      points,
			GoldCount:   e.GoldCount,
			SilverCount: e.SilverCount,
			BronzeCount: e.BronzeCount,
			Rank:        e.Rank,
		})
	}
	return out, nil
}

// Invalidate removes one bucket's cached scores.
func (lc *LeaderboardCache) Invalidate(ctx context.Context, g domain.Granularity, bucket uint64) error {
	if err := lc.rdb.Del(ctx, leaderboardKey(g, bucket)).Err(); err != nil {
		return fmt.Errorf("redis: invalidate leaderboard %s/%d: %w", g, bucket, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.LeaderboardCache = (*LeaderboardCache)(nil)
