package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"trading-academy/internal/config"
	"trading-academy/internal/infra/api"
	"trading-academy/internal/infra/db/fixtures"
	pg "trading-academy/internal/infra/db/postgres"
)

// seed loads the demo catalog into Postgres and prints a bearer token for
// each demo user.
func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, false)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	res, err := fixtures.Seed(ctx, fixtures.Repos{
		Users:     pg.NewPostgresUserRepo(pool),
		Resources: pg.NewResourceRepo(pool),
		Signals:   pg.NewSignalRepo(pool),
	})
	if err != nil {
		log.Fatalf("seed: %v", err)
	}
	fmt.Printf("seeded %d resources and %d signals\n", res.Resources, res.Signals)

	auth := api.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.TTL)
	for _, u := range res.Users {
		tok, err := auth.Issue(u.ID, u.Email, u.Role)
		if err != nil {
			log.Fatalf("issue token for %s: %v", u.ID, err)
		}
		fmt.Printf("  - %-10s %-24s %s\n", u.Role, u.Email, tok)
	}
}
