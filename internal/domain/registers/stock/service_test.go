package stock_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"novaerp/internal/core/apperror"
	"novaerp/internal/core/event"
	"novaerp/internal/core/id"
	"novaerp/internal/core/types"
	"novaerp/internal/domain/catalogs/product"
	"novaerp/internal/domain/catalogs/warehouse"
	"novaerp/internal/domain/registers/stock"
	"novaerp/internal/infrastructure/storage/memory"
)

type fixture struct {
	store     *memory.Store
	svc       *stock.Service
	warehouse *warehouse.Warehouse
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	wh := warehouse.NewWarehouse("Main")
	require.NoError(t, store.Warehouses().Create(context.Background(), wh))

	return &fixture{
		store: store,
		svc: stock.NewService(stock.Config{
			TxManager:  store,
			Repo:       store.Stock(),
			Products:   store.Products(),
			Warehouses: store.Warehouses(),
			Publisher:  store.Outbox(),
		}),
		warehouse: wh,
	}
}

func (f *fixture) product(t *testing.T, cost string) *product.Product {
	t.Helper()
	p := product.NewProduct("Laptop", "LAP-"+id.New().String()[:8], types.MustMoney("999"), types.MustMoney(cost))
	require.NoError(t, f.store.Products().Create(context.Background(), p))
	return p
}

func (f *fixture) move(t *testing.T, p *product.Product, typ stock.MovementType, qty int, cost string) (*stock.StockMovement, error) {
	t.Helper()
	return f.svc.ProcessMovement(context.Background(), stock.MovementCommand{
		ProductID:   p.ID,
		WarehouseID: f.warehouse.ID,
		Type:        typ,
		Quantity:    qty,
		Cost:        types.MustMoney(cost),
		UserID:      "user-1",
	})
}

func (f *fixture) stockOf(t *testing.T, p *product.Product) *product.Product {
	t.Helper()
	got, err := f.store.Products().GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	return got
}

func TestProcessMovement_InUpdatesStockAndCost(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "50")

	m, err := f.move(t, p, stock.MovementIn, 10, "60")
	require.NoError(t, err)

	assert.Equal(t, stock.MovementIn, m.Type)
	assert.Equal(t, 10, m.Quantity)
	assert.Equal(t, f.warehouse.ID, m.WarehouseID)
	assert.Equal(t, "user-1", m.CreatedBy)
	assert.True(t, types.MustMoney("60").Equal(m.CostAtTime))

	got := f.stockOf(t, p)
	assert.Equal(t, 10, got.StockQuantity)
	assert.True(t, types.MustMoney("60").Equal(got.Cost))
	assert.Equal(t, 2, got.Version)
}

func TestProcessMovement_OutOverStockLeavesNoTrace(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "50")
	_, err := f.move(t, p, stock.MovementIn, 3, "0")
	require.NoError(t, err)

	_, err = f.move(t, p, stock.MovementOut, 5, "0")

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, apperror.CodeInsufficientStock, appErr.Code)
	assert.Equal(t, 3, appErr.Details["available"])
	assert.Equal(t, 5, appErr.Details["requested"])

	assert.Equal(t, 3, f.stockOf(t, p).StockQuantity)
	history, err := f.svc.History(context.Background(), stock.MovementFilter{ProductID: &p.ID})
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestProcessMovement_AdjustSetsAbsoluteBalance(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "50")
	_, err := f.move(t, p, stock.MovementIn, 10, "0")
	require.NoError(t, err)

	m, err := f.move(t, p, stock.MovementAdjust, 3, "0")
	require.NoError(t, err)

	assert.Equal(t, 3, m.Quantity)
	assert.Equal(t, 3, f.stockOf(t, p).StockQuantity)

	rec, err := f.svc.Reconcile(context.Background(), p.ID)
	require.NoError(t, err)
	assert.True(t, rec.InSync)
	assert.Equal(t, 3, rec.LedgerQuantity)
	assert.Equal(t, 2, rec.MovementCount)
}

func TestProcessMovement_UnknownProductAndWarehouse(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.ProcessMovement(context.Background(), stock.MovementCommand{
		ProductID:   id.New(),
		WarehouseID: f.warehouse.ID,
		Type:        stock.MovementIn,
		Quantity:    1,
		UserID:      "user-1",
	})
	assert.True(t, apperror.IsNotFound(err), "got %v", err)

	p := f.product(t, "1")
	_, err = f.svc.ProcessMovement(context.Background(), stock.MovementCommand{
		ProductID:   p.ID,
		WarehouseID: id.New(),
		Type:        stock.MovementIn,
		Quantity:    1,
		UserID:      "user-1",
	})
	assert.True(t, apperror.IsNotFound(err), "got %v", err)
	assert.Equal(t, 0, f.stockOf(t, p).StockQuantity)
}

func TestProcessMovement_PublishesStockMoved(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "50")

	m, err := f.move(t, p, stock.MovementIn, 4, "0")
	require.NoError(t, err)

	events := f.store.Events()
	require.Len(t, events, 1)
	assert.Equal(t, event.TypeStockMoved, events[0].EventType)
	assert.Equal(t, p.ID, events[0].AggregateID)
	payload, ok := events[0].Payload.(stock.MovedPayload)
	require.True(t, ok)
	assert.Equal(t, m.ID, payload.MovementID)
	assert.Equal(t, 4, payload.BalanceAfter)
}

func TestProcessMovement_CancelledContextLeavesNoTrace(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "50")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.svc.ProcessMovement(ctx, stock.MovementCommand{
		ProductID:   p.ID,
		WarehouseID: f.warehouse.ID,
		Type:        stock.MovementIn,
		Quantity:    1,
		UserID:      "user-1",
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, f.stockOf(t, p).StockQuantity)
}

func TestSupply_UsesFirstActiveWarehouse(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "50")

	m, err := f.svc.Supply(context.Background(), stock.SupplyCommand{
		ProductID: p.ID,
		Quantity:  7,
		CostPrice: types.MustMoney("45.50"),
		UserID:    "user-1",
	})
	require.NoError(t, err)

	assert.Equal(t, f.warehouse.ID, m.WarehouseID)
	assert.Equal(t, "Supply", m.Note)
	got := f.stockOf(t, p)
	assert.Equal(t, 7, got.StockQuantity)
	assert.True(t, types.MustMoney("45.50").Equal(got.Cost))
}

func TestSupply_NoActiveWarehouse(t *testing.T) {
	store := memory.New()
	svc := stock.NewService(stock.Config{
		TxManager:  store,
		Repo:       store.Stock(),
		Products:   store.Products(),
		Warehouses: store.Warehouses(),
	})
	p := product.NewProduct("Pen", "PEN", types.MustMoney("1"), types.MustMoney("1"))
	require.NoError(t, store.Products().Create(context.Background(), p))

	_, err := svc.Supply(context.Background(), stock.SupplyCommand{ProductID: p.ID, Quantity: 1, UserID: "u"})

	assert.True(t, apperror.HasCode(err, apperror.CodeNoActiveWarehouse), "got %v", err)
}

func TestHistory_NewestFirstWithFilters(t *testing.T) {
	clock := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	store := memory.New()
	wh := warehouse.NewWarehouse("Main")
	require.NoError(t, store.Warehouses().Create(context.Background(), wh))
	svc := stock.NewService(stock.Config{
		TxManager:  store,
		Repo:       store.Stock(),
		Products:   store.Products(),
		Warehouses: store.Warehouses(),
		Now: func() time.Time {
			clock = clock.Add(time.Minute)
			return clock
		},
	})
	f := &fixture{store: store, svc: svc, warehouse: wh}
	p := f.product(t, "1")
	other := f.product(t, "1")

	_, err := f.move(t, p, stock.MovementIn, 5, "0")
	require.NoError(t, err)
	_, err = f.move(t, other, stock.MovementIn, 5, "0")
	require.NoError(t, err)
	_, err = f.move(t, p, stock.MovementOut, 2, "0")
	require.NoError(t, err)

	history, err := svc.History(context.Background(), stock.MovementFilter{ProductID: &p.ID})
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, stock.MovementOut, history[0].Type)
	assert.Equal(t, stock.MovementIn, history[1].Type)

	out := stock.MovementOut
	history, err = svc.History(context.Background(), stock.MovementFilter{Type: &out})
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestCheckAvailability(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "1")
	_, err := f.move(t, p, stock.MovementIn, 5, "0")
	require.NoError(t, err)

	ok, err := f.svc.CheckAvailability(context.Background(), p.ID, 5)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.svc.CheckAvailability(context.Background(), p.ID, 6)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = f.svc.CheckAvailability(context.Background(), id.New(), 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestConcurrentOuts_NeverOverdraw(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "1")
	_, err := f.move(t, p, stock.MovementIn, 5, "0")
	require.NoError(t, err)

	const workers = 8
	errs := make(chan error, workers)
	for range workers {
		go func() {
			_, err := f.move(t, p, stock.MovementOut, 1, "0")
			errs <- err
		}()
	}

	succeeded := 0
	for range workers {
		if err := <-errs; err == nil {
			succeeded++
		} else {
			assert.True(t, apperror.HasCode(err, apperror.CodeInsufficientStock), "got %v", err)
		}
	}

	assert.Equal(t, 5, succeeded)
	assert.Equal(t, 0, f.stockOf(t, p).StockQuantity)

	rec, err := f.svc.Reconcile(context.Background(), p.ID)
	require.NoError(t, err)
	assert.True(t, rec.InSync)
}

func TestReconcile(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "1")
	_, err := f.move(t, p, stock.MovementIn, 10, "0")
	require.NoError(t, err)
	_, err = f.move(t, p, stock.MovementOut, 4, "0")
	require.NoError(t, err)

	rec, err := f.svc.Reconcile(context.Background(), p.ID)
	require.NoError(t, err)
	assert.True(t, rec.InSync)
	assert.Equal(t, 6, rec.LedgerQuantity)
	assert.Equal(t, 2, rec.MovementCount)

	// Write the cached balance behind the ledger's back.
	ctx := context.Background()
	require.NoError(t, f.store.RunInTransaction(ctx, func(ctx context.Context) error {
		drifted, err := f.store.Products().GetForUpdate(ctx, p.ID)
		if err != nil {
			return err
		}
		drifted.StockQuantity = 99
		return f.store.Products().Update(ctx, drifted)
	}))

	rec, err = f.svc.Reconcile(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, rec.InSync)
	assert.Equal(t, 99, rec.CachedQuantity)
	assert.Equal(t, 6, rec.LedgerQuantity)

	_, err = f.svc.Reconcile(ctx, id.New())
	assert.True(t, apperror.IsNotFound(err))
}
