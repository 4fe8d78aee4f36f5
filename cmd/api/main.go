package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"medclaim.org/internal/audit"
	"medclaim.org/internal/auth"
	"medclaim.org/internal/claims"
	"medclaim.org/internal/config"
	"medclaim.org/internal/httpapi"
	"medclaim.org/internal/migrate"
	"medclaim.org/internal/obs"
	"medclaim.org/internal/payout"
	"medclaim.org/internal/store/pg"
	"medclaim.org/internal/stream"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	cfg, err := config.Load()
	if err != nil {
		fatal("load config", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, probe, err := openStore(ctx, cfg)
	if err != nil {
		fatal("open store", err)
	}
	defer store.Close()

	if cfg.SeedDemo {
		n, err := claims.Seed(ctx, store, cfg.DefaultInsurer)
		if err != nil {
			fatal("seed demo claims", err)
		}
		if n > 0 {
			obs.Info("seeded demo claims", map[string]any{"count": n})
		}
	}

	events := stream.New()
	engine := claims.NewEngine(store,
		claims.WithDefaultInsurer(cfg.DefaultInsurer),
		claims.WithCurrency(cfg.Currency),
		claims.WithListener(audit.ClaimListener),
		claims.WithListener(obs.ClaimListener),
		claims.WithListener(events.Listener()),
	)

	dir, err := auth.NewDirectory(auth.DemoCredentials, 0)
	if err != nil {
		fatal("build directory", err)
	}

	api := httpapi.New(probe, version, engine, dir, events,
		httpapi.WithTokenTTL(cfg.TokenTTL),
		httpapi.WithRateLimit(cfg.RateBurst, cfg.RatePerSec),
	)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		// No write timeout: /v1/claims/stream holds the response open.
		IdleTimeout: 60 * time.Second,
	}

	stopPayouts := payout.New(engine, cfg.PayoutInterval, cfg.PayoutSettle).Start(ctx)
	defer stopPayouts()

	var grpcSrv *httpapi.GRPCServer
	if cfg.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			fatal("listen grpc", err)
		}
		grpcSrv = httpapi.NewGRPCServer(probe, version)
		grpcSrv.Watch(ctx, 10*time.Second)
		go func() {
			if err := grpcSrv.Serve(lis); err != nil {
				obs.Error("grpc serve", err, nil)
			}
		}()
		obs.Info("grpc listening", map[string]any{"addr": cfg.GRPCAddr})
	}

	go func() {
		obs.Info("starting medclaim-api", map[string]any{"version": version, "addr": srv.Addr, "postgres": cfg.PGDSN != ""})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal("listen", err)
		}
	}()

	<-ctx.Done()
	obs.Info("shutting down", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		obs.Error("http shutdown", err, nil)
	}
	if grpcSrv != nil {
		grpcSrv.Stop()
	}
	obs.Info("stopped", nil)
}

type readiness interface {
	Check(ctx context.Context) error
}

// openStore picks Postgres when a DSN is configured and applies pending
// migrations, otherwise falls back to the in-memory store.
func openStore(ctx context.Context, cfg config.Config) (claims.Store, readiness, error) {
	if cfg.PGDSN == "" {
		return claims.NewInMemory(), httpapi.ReadyProbe{}, nil
	}
	pgStore, err := pg.Open(cfg.PGDSN)
	if err != nil {
		return nil, nil, err
	}
	migrateCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	applied, err := migrate.NewManager(pgStore.DB(), nil).Up(migrateCtx)
	if err != nil {
		_ = pgStore.Close()
		return nil, nil, err
	}
	if len(applied) > 0 {
		obs.Info("applied migrations", map[string]any{"migrations": applied})
	}
	return pgStore, pgStore, nil
}

func fatal(msg string, err error) {
	obs.Error(msg, err, nil)
	os.Exit(1)
}
