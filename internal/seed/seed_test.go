package seed_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"novaerp/internal/app"
	"novaerp/internal/config"
	"novaerp/internal/domain"
	"novaerp/internal/domain/registers/stock"
	"novaerp/internal/seed"
)

func memoryServices(t *testing.T) *app.Services {
	t.Helper()
	storage, err := app.OpenStorage(context.Background(), &config.Config{StorageDriver: config.DriverMemory})
	require.NoError(t, err)
	t.Cleanup(storage.Close)
	return app.NewServices(storage)
}

func TestRun_SeedsOnce(t *testing.T) {
	ctx := context.Background()
	svc := memoryServices(t)

	res, err := seed.Run(ctx, svc, seed.Options{ProductCount: 3, OpeningStock: 7, MinStockLevel: 5})
	require.NoError(t, err)
	assert.Equal(t, seed.Result{Warehouses: 2, Customers: 3, Products: 3, Supplies: 3}, res)

	products, err := svc.Products.List(ctx, domain.DefaultListFilter())
	require.NoError(t, err)
	require.Len(t, products.Items, 3)
	for _, p := range products.Items {
		assert.Equal(t, 7, p.StockQuantity)

		rec, err := svc.Stock.Reconcile(ctx, p.ID)
		require.NoError(t, err)
		assert.True(t, rec.InSync)
	}

	history, err := svc.Stock.History(ctx, stock.MovementFilter{Type: ptrType(stock.MovementIn)})
	require.NoError(t, err)
	assert.Len(t, history, 3)

	again, err := seed.Run(ctx, svc, seed.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, seed.Result{}, again)
}

func ptrType(t stock.MovementType) *stock.MovementType { return &t }
