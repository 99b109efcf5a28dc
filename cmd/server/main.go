// Package main is the entry point for the NovaERP API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"novaerp/internal/app"
	"novaerp/internal/config"
	"novaerp/internal/domain/auth"
	v1 "novaerp/internal/infrastructure/http/v1"
	"novaerp/internal/infrastructure/observability"
	"novaerp/internal/seed"
	"novaerp/pkg/logger"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Development: cfg.IsDevelopment(),
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)

	ctx := context.Background()
	log.Infow("starting novaerp server", "version", version, "storage", cfg.StorageDriver)

	// --- Tracing ---
	_, shutdownTracing, err := observability.SetupTracing(ctx, observability.TracingConfig{
		ServiceName:    cfg.ServiceName,
		ServiceVersion: version,
		Environment:    cfg.Env,
		Endpoint:       cfg.OTLPEndpoint,
		Insecure:       cfg.IsDevelopment(),
	})
	if err != nil {
		log.Fatalw("failed to set up tracing", "error", err)
	}

	// --- Storage and services ---
	storage, err := app.OpenStorage(ctx, cfg)
	if err != nil {
		log.Fatalw("failed to open storage", "error", err)
	}
	defer storage.Close()

	services := app.NewServices(storage)

	// The memory store starts empty on every boot.
	if storage.Driver == config.DriverMemory && getEnv("SEED_DEMO_DATA", "true") == "true" {
		if _, err := seed.Run(ctx, services, seed.DefaultOptions()); err != nil {
			log.Fatalw("failed to seed memory store", "error", err)
		}
	}

	// --- JWT Service ---
	jwtConfig := auth.DefaultJWTConfig(cfg.JWTSecret)
	jwtConfig.Issuer = cfg.JWTIssuer
	jwtService := auth.NewJWTService(jwtConfig)

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Logger:             log,
		JWTValidator:       jwtService,
		Store:              storage.Pinger,
		StorageDriver:      storage.Driver,
		Version:            version,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		Idempotency:        storage.Idempotency,
		Products:           services.Products,
		Warehouses:         services.Warehouses,
		Customers:          services.Customers,
		Stock:              services.Stock,
		Sales:              services.Sales,
	})

	// --- HTTP Server ---
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      v1.Handler(router),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Warnw("tracer shutdown failed", "error", err)
	}

	log.Info("server stopped")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
