package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies BRNDIDX_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known BRNDIDX_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "BRNDIDX_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "BRNDIDX_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "BRNDIDX_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "BRNDIDX_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "BRNDIDX_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "BRNDIDX_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "BRNDIDX_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "BRNDIDX_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "BRNDIDX_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "BRNDIDX_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "BRNDIDX_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "BRNDIDX_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "BRNDIDX_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "BRNDIDX_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "BRNDIDX_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "BRNDIDX_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "BRNDIDX_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "BRNDIDX_S3_REGION")
	setStr(&cfg.S3.Bucket, "BRNDIDX_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "BRNDIDX_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "BRNDIDX_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "BRNDIDX_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "BRNDIDX_S3_FORCE_PATH_STYLE")

	// ── Chain ──
	setStr(&cfg.Chain.RPCURL, "BRNDIDX_CHAIN_RPC_URL")
	setStr(&cfg.Chain.AuctionContract, "BRNDIDX_CHAIN_AUCTION_CONTRACT")
	setUint(&cfg.Chain.StartBlock, "BRNDIDX_CHAIN_START_BLOCK")

	// ── Backend ──
	setStr(&cfg.Backend.BaseURL, "BRNDIDX_BACKEND_BASE_URL")
	setStr(&cfg.Backend.APIKey, "BRNDIDX_BACKEND_API_KEY")
	setStr(&cfg.Backend.Source, "BRNDIDX_BACKEND_SOURCE")

	// ── Social ──
	setStr(&cfg.Social.NeynarAPIKey, "BRNDIDX_SOCIAL_NEYNAR_API_KEY")
	setStr(&cfg.Social.BotSignerUUID, "BRNDIDX_SOCIAL_BOT_SIGNER_UUID")

	// ── Replay ──
	setStr(&cfg.Replay.Path, "BRNDIDX_REPLAY_PATH")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "BRNDIDX_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "BRNDIDX_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "BRNDIDX_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "BRNDIDX_SERVER_API_KEY")

	// ── Top-level ──
	setStr(&cfg.Mode, "BRNDIDX_MODE")
	setStr(&cfg.LogLevel, "BRNDIDX_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setUint(dst *uint64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
