package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("MEDCLAIM_AUTH_SECRET", "s3cret")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":8080" || cfg.GRPCAddr != "" || cfg.PGDSN != "" {
		t.Fatalf("unexpected addresses: %+v", cfg)
	}
	if cfg.TokenTTL != 8*time.Hour || !cfg.SeedDemo || cfg.PayoutInterval != 0 || cfg.PayoutSettle != 24*time.Hour {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Currency != "INR" || cfg.DefaultInsurer != "HealthGuard Insurance" {
		t.Fatalf("unexpected claim defaults: %+v", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("MEDCLAIM_AUTH_SECRET", "s3cret")
	t.Setenv("MEDCLAIM_HTTP_ADDR", ":9090")
	t.Setenv("MEDCLAIM_GRPC_ADDR", ":9091")
	t.Setenv("MEDCLAIM_SEED_DEMO", "false")
	t.Setenv("MEDCLAIM_PAYOUT_INTERVAL", "30s")
	t.Setenv("MEDCLAIM_RATE_BURST", "5")
	t.Setenv("MEDCLAIM_CURRENCY", "usd")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":9090" || cfg.GRPCAddr != ":9091" || cfg.SeedDemo || cfg.PayoutInterval != 30*time.Second || cfg.RateBurst != 5 || cfg.Currency != "USD" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
}

func TestLoadCollectsErrors(t *testing.T) {
	t.Setenv("MEDCLAIM_AUTH_SECRET", "")
	t.Setenv("MEDCLAIM_TOKEN_TTL", "forever")
	t.Setenv("MEDCLAIM_RATE_PER_SEC", "-1")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	for _, want := range []string{"MEDCLAIM_AUTH_SECRET", "MEDCLAIM_TOKEN_TTL", "rate limit"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("error %q does not mention %s", msg, want)
		}
	}
}
