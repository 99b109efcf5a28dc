// Package main provides a CLI tool for seeding the database with demo data
// and printing a development access token.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"novaerp/internal/app"
	"novaerp/internal/config"
	appctx "novaerp/internal/core/context"
	"novaerp/internal/domain/auth"
	"novaerp/internal/seed"
	"novaerp/pkg/logger"
)

func main() {
	opts := seed.DefaultOptions()
	flag.IntVar(&opts.ProductCount, "products", opts.ProductCount, "number of demo products")
	flag.IntVar(&opts.OpeningStock, "stock", opts.OpeningStock, "opening stock per product (0 skips supplies)")
	tokenOnly := flag.Bool("token-only", false, "only print a development token")
	tokenTTL := flag.Duration("token-ttl", 24*time.Hour, "lifetime of the printed token")
	flag.Parse()

	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalw("invalid configuration", "error", err)
	}

	ctx := context.Background()

	if !*tokenOnly {
		if cfg.StorageDriver != config.DriverPostgres {
			log.Fatal("seeding needs STORAGE_DRIVER=postgres; the memory server seeds itself")
		}

		storage, err := app.OpenStorage(ctx, cfg)
		if err != nil {
			log.Fatalw("failed to open storage", "error", err)
		}
		defer storage.Close()

		res, err := seed.Run(ctx, app.NewServices(storage), opts)
		if err != nil {
			log.Fatalw("failed to seed demo data", "error", err)
		}
		log.Infow("seeding completed successfully",
			"warehouses", res.Warehouses,
			"customers", res.Customers,
			"products", res.Products,
		)
	}

	jwtConfig := auth.DefaultJWTConfig(cfg.JWTSecret)
	jwtConfig.Issuer = cfg.JWTIssuer
	jwtConfig.AccessTokenTTL = *tokenTTL

	token, expiresAt, err := auth.NewJWTService(jwtConfig).IssueToken(appctx.UserContext{
		UserID:  getEnv("SEED_USER_ID", "admin"),
		Email:   "admin@novaerp.com",
		IsAdmin: true,
	})
	if err != nil {
		log.Fatalw("failed to issue token", "error", err)
	}

	fmt.Printf("Authorization: Bearer %s\n", token)
	fmt.Printf("expires at %s\n", expiresAt.Format(time.RFC3339))
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
