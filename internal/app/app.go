// Package app assembles stores and services for the commands.
package app

import (
	"context"
	"fmt"

	"novaerp/internal/config"
	"novaerp/internal/core/event"
	"novaerp/internal/core/idempotency"
	"novaerp/internal/core/tx"
	"novaerp/internal/domain/catalogs/customer"
	"novaerp/internal/domain/catalogs/product"
	"novaerp/internal/domain/catalogs/warehouse"
	"novaerp/internal/domain/documents/sale"
	"novaerp/internal/domain/registers/stock"
	"novaerp/internal/infrastructure/storage/memory"
	"novaerp/internal/infrastructure/storage/postgres"
	"novaerp/internal/infrastructure/storage/postgres/catalog_repo"
	"novaerp/internal/infrastructure/storage/postgres/document_repo"
	"novaerp/internal/infrastructure/storage/postgres/register_repo"
	"novaerp/internal/infrastructure/storage/postgres/schema"
)

// Storage is one backing store seen through the domain contracts.
type Storage struct {
	Driver string

	TxManager   tx.Manager
	Products    product.Repository
	Warehouses  warehouse.Repository
	Customers   customer.Repository
	Stock       stock.Repository
	Sales       sale.Repository
	Publisher   event.Publisher
	Idempotency idempotency.Store

	// Pinger backs the readiness check
	Pinger interface {
		Ping(ctx context.Context) error
	}

	// Pool is nil for the memory driver
	Pool *postgres.Pool

	close func()
}

// Close releases connections.
func (s *Storage) Close() {
	if s.close != nil {
		s.close()
	}
}

// OpenStorage connects the configured driver. For postgres the schema is
// applied before the storage is returned.
func OpenStorage(ctx context.Context, cfg *config.Config) (*Storage, error) {
	switch cfg.StorageDriver {
	case config.DriverMemory:
		return newMemoryStorage(cfg), nil
	case config.DriverPostgres:
		return openPostgresStorage(ctx, cfg)
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
}

func newMemoryStorage(cfg *config.Config) *Storage {
	store := memory.New(memory.WithTxTimeout(cfg.TxTimeout))
	return &Storage{
		Driver:      config.DriverMemory,
		TxManager:   store,
		Products:    store.Products(),
		Warehouses:  store.Warehouses(),
		Customers:   store.Customers(),
		Stock:       store.Stock(),
		Sales:       store.Sales(),
		Publisher:   store.Outbox(),
		Idempotency: store.Idempotency(),
		Pinger:      store,
	}
}

func openPostgresStorage(ctx context.Context, cfg *config.Config) (*Storage, error) {
	poolCfg := postgres.DefaultPoolConfig(cfg.DatabaseURL)
	poolCfg.MaxConns = int32(cfg.DBMaxConns)
	poolCfg.MinConns = int32(cfg.DBMinConns)

	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := schema.Migrate(ctx, pool.Pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	txOpts := postgres.DefaultTxOptions()
	txOpts.Timeout = cfg.TxTimeout
	txOpts.StatementTimeout = cfg.TxStatementTimeout
	txOpts.LockTimeout = cfg.TxLockTimeout
	txm := postgres.NewTxManager(pool, txOpts)

	return &Storage{
		Driver:      config.DriverPostgres,
		TxManager:   txm,
		Products:    catalog_repo.NewProductRepo(txm),
		Warehouses:  catalog_repo.NewWarehouseRepo(txm),
		Customers:   catalog_repo.NewCustomerRepo(txm),
		Stock:       register_repo.NewStockRepo(txm),
		Sales:       document_repo.NewSaleRepo(txm),
		Publisher:   postgres.NewOutboxPublisher(txm),
		Idempotency: postgres.NewIdempotencyStore(txm, idempotency.DefaultTTL),
		Pinger:      pool,
		Pool:        pool,
		close:       pool.Close,
	}, nil
}

// Services are the domain services over one Storage.
type Services struct {
	Products   *product.Service
	Warehouses *warehouse.Service
	Customers  *customer.Service
	Stock      *stock.Service
	Sales      *sale.Service
}

// NewServices wires the domain services.
func NewServices(s *Storage) *Services {
	stockSvc := stock.NewService(stock.Config{
		TxManager:  s.TxManager,
		Repo:       s.Stock,
		Products:   s.Products,
		Warehouses: s.Warehouses,
		Publisher:  s.Publisher,
	})

	return &Services{
		Products:   product.NewService(s.Products, s.TxManager),
		Warehouses: warehouse.NewService(s.Warehouses, s.TxManager),
		Customers:  customer.NewService(s.Customers, s.TxManager),
		Stock:      stockSvc,
		Sales: sale.NewService(sale.Config{
			TxManager:  s.TxManager,
			Sales:      s.Sales,
			Products:   s.Products,
			Warehouses: s.Warehouses,
			Customers:  s.Customers,
			Stock:      stockSvc,
			Publisher:  s.Publisher,
		}),
	}
}
