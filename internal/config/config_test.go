package config

import (
	"os"
	"testing"
	"time"
)

func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadDefaults(t *testing.T) {
	unsetEnv(t, "APP_HOST", "APP_PORT", "POSTGRES_DSN", "POSTGRES_MAX_RETRIES", "POSTGRES_RUN_MIGRATIONS",
		"HTTP_REQUEST_TIMEOUT_SECONDS", "VOTE_GUARD_TTL_SECONDS", "TIMEZONE")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.App.Addr() != "0.0.0.0:8080" {
		t.Fatalf("unexpected addr %s", cfg.App.Addr())
	}
	if cfg.Postgres.MaxRetries != 3 || !cfg.Postgres.RunMigrations {
		t.Fatalf("unexpected postgres defaults %+v", cfg.Postgres)
	}
	if cfg.App.RequestTimeout() != 30*time.Second {
		t.Fatalf("unexpected timeout %s", cfg.App.RequestTimeout())
	}
	if cfg.Voting.GuardTTL() != 5*time.Second {
		t.Fatalf("unexpected guard ttl %s", cfg.Voting.GuardTTL())
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("POSTGRES_MAX_RETRIES", "7")
	t.Setenv("TIMEZONE", "Europe/Moscow")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.App.Port != "9090" || cfg.Postgres.MaxRetries != 7 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	loc, err := cfg.App.Location()
	if err != nil || loc.String() != "Europe/Moscow" {
		t.Fatalf("unexpected location %v %v", loc, err)
	}
}

func TestLoadRejectsUnknownTimezone(t *testing.T) {
	t.Setenv("TIMEZONE", "Mars/Olympus")
	if _, err := Load(); err == nil {
		t.Fatal("expected timezone error")
	}
}
