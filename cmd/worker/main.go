// Package main is the entry point for the NovaERP outbox worker.
// It relays committed sale and stock events from sys_outbox to Kafka.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"novaerp/internal/config"
	"novaerp/internal/core/idempotency"
	"novaerp/internal/infrastructure/messaging"
	"novaerp/internal/infrastructure/observability"
	"novaerp/internal/infrastructure/storage/postgres"
	"novaerp/pkg/logger"
)

const cleanupInterval = time.Hour

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
	log = log.WithComponent("worker")

	if cfg.StorageDriver != config.DriverPostgres {
		log.Fatalw("the outbox worker needs the postgres driver", "storage", cfg.StorageDriver)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, shutdownTracing, err := observability.SetupTracing(ctx, observability.TracingConfig{
		ServiceName: cfg.ServiceName + "-worker",
		Environment: cfg.Env,
		Endpoint:    cfg.OTLPEndpoint,
		Insecure:    cfg.IsDevelopment(),
	})
	if err != nil {
		log.Fatalw("failed to set up tracing", "error", err)
	}

	poolCfg := postgres.DefaultPoolConfig(cfg.DatabaseURL)
	poolCfg.MaxConns = int32(cfg.DBMaxConns)
	poolCfg.MinConns = 1
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	publisher := messaging.NewKafkaPublisher(messaging.KafkaConfig{
		Brokers: cfg.KafkaBrokers,
		Topic:   cfg.KafkaTopic,
	})
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Warnw("kafka writer close failed", "error", err)
		}
	}()

	relay := postgres.NewOutboxRelay(pool, cfg.OutboxBatchSize, publisher)
	keys := postgres.NewIdempotencyStore(postgres.NewTxManager(pool, postgres.DefaultTxOptions()), idempotency.DefaultTTL)

	log.Infow("starting outbox relay",
		"brokers", cfg.KafkaBrokers,
		"topic", cfg.KafkaTopic,
		"interval", cfg.OutboxPollInterval,
		"batch_size", cfg.OutboxBatchSize,
	)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := relay.Run(ctx, cfg.OutboxPollInterval); err != nil && !errors.Is(err, context.Canceled) {
			log.Errorw("outbox relay stopped", "error", err)
		}
	}()
	go func() {
		defer wg.Done()
		runCleanup(ctx, log, pool, keys)
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker...")
	cancel()
	wg.Wait()

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Warnw("tracer shutdown failed", "error", err)
	}

	log.Info("worker stopped")
}

// runCleanup drops expired idempotency keys once an hour.
func runCleanup(ctx context.Context, log *logger.Logger, pool *postgres.Pool, keys *postgres.IdempotencyStore) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pool.LogStats(ctx)
			n, err := keys.CleanupExpired(ctx)
			if err != nil {
				log.Errorw("idempotency cleanup failed", "error", err)
				continue
			}
			if n > 0 {
				log.Infow("expired idempotency keys removed", "count", n)
			}
		}
	}
}
