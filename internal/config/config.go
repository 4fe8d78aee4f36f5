package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the process configuration read from MEDCLAIM_* variables.
type Config struct {
	HTTPAddr       string
	GRPCAddr       string
	PGDSN          string
	AuthSecret     string
	TokenTTL       time.Duration
	SeedDemo       bool
	PayoutInterval time.Duration
	PayoutSettle   time.Duration
	DefaultInsurer string
	Currency       string
	RateBurst      int
	RatePerSec     int
}

// Load reads the environment and applies defaults. It fails when a value is
// present but malformed, or when the auth secret is missing.
func Load() (Config, error) {
	var errs []error
	cfg := Config{
		HTTPAddr:       get("MEDCLAIM_HTTP_ADDR", ":8080"),
		GRPCAddr:       get("MEDCLAIM_GRPC_ADDR", ""),
		PGDSN:          get("MEDCLAIM_PG_DSN", ""),
		AuthSecret:     get("MEDCLAIM_AUTH_SECRET", ""),
		DefaultInsurer: get("MEDCLAIM_DEFAULT_INSURER", "HealthGuard Insurance"),
		Currency:       strings.ToUpper(get("MEDCLAIM_CURRENCY", "INR")),
	}
	cfg.TokenTTL = duration("MEDCLAIM_TOKEN_TTL", 8*time.Hour, &errs)
	cfg.SeedDemo = boolean("MEDCLAIM_SEED_DEMO", true, &errs)
	cfg.PayoutInterval = duration("MEDCLAIM_PAYOUT_INTERVAL", 0, &errs)
	cfg.PayoutSettle = duration("MEDCLAIM_PAYOUT_SETTLE", 24*time.Hour, &errs)
	cfg.RateBurst = integer("MEDCLAIM_RATE_BURST", 50, &errs)
	cfg.RatePerSec = integer("MEDCLAIM_RATE_PER_SEC", 20, &errs)

	if cfg.AuthSecret == "" {
		errs = append(errs, errors.New("MEDCLAIM_AUTH_SECRET is required"))
	}
	if cfg.TokenTTL <= 0 {
		errs = append(errs, errors.New("MEDCLAIM_TOKEN_TTL must be positive"))
	}
	if cfg.RateBurst <= 0 || cfg.RatePerSec <= 0 {
		errs = append(errs, errors.New("rate limit values must be positive"))
	}
	if len(cfg.Currency) != 3 {
		errs = append(errs, fmt.Errorf("MEDCLAIM_CURRENCY %q is not a 3-letter code", cfg.Currency))
	}
	if err := errors.Join(errs...); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// MustLoad is Load for main packages.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

func get(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func duration(key string, def time.Duration, errs *[]error) time.Duration {
	raw := get(key, "")
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return d
}

func boolean(key string, def bool, errs *[]error) bool {
	raw := get(key, "")
	if raw == "" {
		return def
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return b
}

func integer(key string, def int, errs *[]error) int {
	raw := get(key, "")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return n
}
