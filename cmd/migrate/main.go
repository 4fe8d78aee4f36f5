package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"medclaim.org/internal/claims"
	"medclaim.org/internal/migrate"
	"medclaim.org/internal/store/pg"
)

func main() {
	log.SetFlags(0)
	var (
		dsn     = flag.String("dsn", os.Getenv("MEDCLAIM_PG_DSN"), "PostgreSQL DSN")
		dir     = flag.String("migrations", "", "Directory of SQL migrations (default: embedded)")
		insurer = flag.String("insurer", "HealthGuard Insurance", "Insurer name for seeded claims")
	)
	flag.Parse()

	if *dsn == "" {
		log.Fatal("missing DSN: provide via -dsn or MEDCLAIM_PG_DSN")
	}
	if len(flag.Args()) == 0 {
		log.Fatal("usage: migrate [up|down|seed|status]")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := pg.Open(*dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer store.Close()

	files := migrate.Embedded()
	if *dir != "" {
		files = os.DirFS(*dir)
	}
	mgr := migrate.NewManager(store.DB(), files)

	switch flag.Arg(0) {
	case "up":
		var applied []string
		applied, err = mgr.Up(ctx)
		for _, name := range applied {
			fmt.Println("applied", name)
		}
	case "down":
		var name string
		name, err = mgr.Down(ctx)
		if errors.Is(err, migrate.ErrNothingApplied) {
			fmt.Println("nothing to roll back")
			return
		}
		if err == nil {
			fmt.Println("rolled back", name)
		}
	case "seed":
		var n int
		n, err = claims.Seed(ctx, store, *insurer)
		if err == nil {
			fmt.Printf("seeded %d claims\n", n)
		}
	case "status":
		var history []string
		history, err = mgr.Status(ctx)
		if err == nil {
			for _, item := range history {
				fmt.Println(item)
			}
		}
	default:
		log.Fatalf("unknown command %q", flag.Arg(0))
	}
	if err != nil {
		log.Fatalf("migrate %s: %v", flag.Arg(0), err)
	}
}
