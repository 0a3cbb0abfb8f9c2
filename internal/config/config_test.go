package config

import (
	"strings"
	"testing"
)

func TestValidateDefaults(t *testing.T) {
	cfg := Defaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "turbo"
	cfg.Chain.AuctionContract = "not-an-address"
	cfg.Postgres.PoolMinConns = 20 // exceeds max of 10

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"unknown mode", "not a valid address", "pool_min_conns"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error missing %q: %v", want, err)
		}
	}
}

func TestValidateReplayNeedsPath(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "replay"
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "replay: path") {
		t.Fatalf("expected replay path error, got %v", err)
	}

	cfg.Replay.Path = "/tmp/dump.ndjson"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("replay with path should validate: %v", err)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("BRNDIDX_POSTGRES_PORT", "6000")
	t.Setenv("BRNDIDX_REDIS_ADDR", "cache.internal:6380")
	t.Setenv("BRNDIDX_CHAIN_START_BLOCK", "123456")
	t.Setenv("BRNDIDX_SERVER_CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("BRNDIDX_POSTGRES_RUN_MIGRATIONS", "false")

	cfg := Defaults()
	applyEnvOverrides(&cfg)

	if cfg.Postgres.Port != 6000 {
		t.Errorf("postgres port = %d", cfg.Postgres.Port)
	}
	if cfg.Redis.Addr != "cache.internal:6380" {
		t.Errorf("redis addr = %s", cfg.Redis.Addr)
	}
	if cfg.Chain.StartBlock != 123456 {
		t.Errorf("start block = %d", cfg.Chain.StartBlock)
	}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[1] != "https://b.example" {
		t.Errorf("cors origins = %v", cfg.Server.CORSOrigins)
	}
	if cfg.Postgres.RunMigrations {
		t.Error("run_migrations override not applied")
	}
}
