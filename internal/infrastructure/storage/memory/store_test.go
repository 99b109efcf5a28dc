package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"novaerp/internal/core/apperror"
	"novaerp/internal/core/event"
	"novaerp/internal/core/id"
	"novaerp/internal/core/types"
	"novaerp/internal/domain"
	"novaerp/internal/domain/catalogs/product"
	"novaerp/internal/domain/catalogs/warehouse"
	"novaerp/internal/domain/registers/stock"
)

func seedProduct(t *testing.T, s *Store, name string, stock int) *product.Product {
	t.Helper()
	p := product.NewProduct(name, "SKU-"+name, types.MustMoney("10"), types.MustMoney("4"))
	p.StockQuantity = stock
	require.NoError(t, s.Products().Create(context.Background(), p))
	return p
}

func TestRunInTransaction_RollbackDiscardsWrites(t *testing.T) {
	s := New()
	ctx := context.Background()
	p := seedProduct(t, s, "Pen", 5)
	boom := errors.New("boom")

	err := s.RunInTransaction(ctx, func(ctx context.Context) error {
		locked, err := s.Products().GetForUpdate(ctx, p.ID)
		require.NoError(t, err)
		locked.StockQuantity = 1
		require.NoError(t, s.Products().Update(ctx, locked))
		require.NoError(t, s.Outbox().Publish(ctx, event.Event{EventType: event.TypeStockMoved}))

		// Writes are visible inside the transaction.
		inTx, err := s.Products().GetByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, inTx.StockQuantity)
		return boom
	})

	require.ErrorIs(t, err, boom)
	got, err := s.Products().GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.StockQuantity)
	assert.Equal(t, 1, got.Version)
	assert.Empty(t, s.Events())
}

func TestRunInTransaction_CommitBumpsVersion(t *testing.T) {
	s := New()
	ctx := context.Background()
	p := seedProduct(t, s, "Pen", 5)

	err := s.RunInTransaction(ctx, func(ctx context.Context) error {
		locked, err := s.Products().GetForUpdate(ctx, p.ID)
		if err != nil {
			return err
		}
		locked.StockQuantity = 2
		if err := s.Products().Update(ctx, locked); err != nil {
			return err
		}
		assert.Equal(t, 2, locked.Version)
		return nil
	})

	require.NoError(t, err)
	got, err := s.Products().GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.StockQuantity)
	assert.Equal(t, 2, got.Version)
}

func TestRunInTransaction_PanicRollsBack(t *testing.T) {
	s := New()
	ctx := context.Background()
	p := seedProduct(t, s, "Pen", 5)

	assert.Panics(t, func() {
		_ = s.RunInTransaction(ctx, func(ctx context.Context) error {
			locked, _ := s.Products().GetForUpdate(ctx, p.ID)
			locked.StockQuantity = 0
			_ = s.Products().Update(ctx, locked)
			panic("boom")
		})
	})

	got, err := s.Products().GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.StockQuantity)

	// The row lock was released.
	err = s.RunInTransaction(ctx, func(ctx context.Context) error {
		_, err := s.Products().GetForUpdate(ctx, p.ID)
		return err
	})
	require.NoError(t, err)
}

func TestUpdate_StaleVersionIsConcurrentModification(t *testing.T) {
	s := New()
	ctx := context.Background()
	p := seedProduct(t, s, "Pen", 5)

	first, err := s.Products().GetByID(ctx, p.ID)
	require.NoError(t, err)
	second, err := s.Products().GetByID(ctx, p.ID)
	require.NoError(t, err)

	first.StockQuantity = 4
	require.NoError(t, s.Products().Update(ctx, first))

	second.StockQuantity = 3
	err = s.Products().Update(ctx, second)
	assert.True(t, apperror.IsConcurrentModification(err), "got %v", err)
}

func TestCommit_DetectsConflictingCommit(t *testing.T) {
	s := New()
	ctx := context.Background()
	p := seedProduct(t, s, "Pen", 5)

	err := s.RunInTransaction(ctx, func(ctx context.Context) error {
		mine, err := s.Products().GetByID(ctx, p.ID)
		require.NoError(t, err)
		mine.StockQuantity = 1
		require.NoError(t, s.Products().Update(ctx, mine))

		// Another writer commits the same row before we do.
		other, err := s.Products().GetByID(context.Background(), p.ID)
		require.NoError(t, err)
		other.StockQuantity = 2
		require.NoError(t, s.Products().Update(context.Background(), other))
		return nil
	})

	assert.True(t, apperror.IsConcurrentModification(err), "got %v", err)
	got, _ := s.Products().GetByID(ctx, p.ID)
	assert.Equal(t, 2, got.StockQuantity)
}

func TestGetForUpdate_RequiresTransaction(t *testing.T) {
	s := New()
	p := seedProduct(t, s, "Pen", 5)

	_, err := s.Products().GetForUpdate(context.Background(), p.ID)
	require.Error(t, err)
}

func TestGetForUpdate_WaitCancelled(t *testing.T) {
	s := New()
	p := seedProduct(t, s, "Pen", 5)

	holding := make(chan struct{})
	done := make(chan struct{})
	go func() {
		_ = s.RunInTransaction(context.Background(), func(ctx context.Context) error {
			_, err := s.Products().GetForUpdate(ctx, p.ID)
			close(holding)
			<-done
			return err
		})
	}()
	<-holding
	defer close(done)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := s.RunInTransaction(ctx, func(ctx context.Context) error {
		_, err := s.Products().GetForUpdate(ctx, p.ID)
		return err
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGetForUpdate_TimeoutIsTransient(t *testing.T) {
	s := New(WithTxTimeout(30 * time.Millisecond))
	p := seedProduct(t, s, "Pen", 5)

	holding := make(chan struct{})
	done := make(chan struct{})
	go func() {
		_ = s.RunInTransaction(context.Background(), func(ctx context.Context) error {
			_, err := s.Products().GetForUpdate(ctx, p.ID)
			close(holding)
			<-done
			return err
		})
	}()
	<-holding
	defer close(done)

	err := s.RunInTransaction(context.Background(), func(ctx context.Context) error {
		_, err := s.Products().GetForUpdate(ctx, p.ID)
		return err
	})
	assert.True(t, apperror.IsTransient(err), "got %v", err)
	assert.True(t, apperror.HasCode(err, apperror.CodeTimeout))
}

func TestRunInTransaction_CancelledBeforeStart(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := s.RunInTransaction(ctx, func(context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestWarehouseListActive_CreationOrder(t *testing.T) {
	s := New()
	ctx := context.Background()

	closed := warehouse.NewWarehouse("Closed")
	closed.IsActive = false
	main := warehouse.NewWarehouse("Main")
	backup := warehouse.NewWarehouse("Backup")
	for _, w := range []*warehouse.Warehouse{closed, main, backup} {
		require.NoError(t, s.Warehouses().Create(ctx, w))
	}

	active, err := s.Warehouses().ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, main.ID, active[0].ID)
	assert.Equal(t, backup.ID, active[1].ID)
}

func TestCatalogList_FilterAndPaginate(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedProduct(t, s, "Cable", 1)
	seedProduct(t, s, "Adapter", 1)
	inactive := seedProduct(t, s, "Battery", 1)
	inactive.IsActive = false
	require.NoError(t, s.Products().Update(ctx, inactive))

	res, err := s.Products().List(ctx, domain.ListFilter{ActiveOnly: true, OrderBy: "name", Limit: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 2, res.TotalCount)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "Adapter", res.Items[0].Name)

	res, err = s.Products().List(ctx, domain.ListFilter{Search: "sku-cab"})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "Cable", res.Items[0].Name)
}

func TestCatalogList_NegativeOffsetStartsAtZero(t *testing.T) {
	s := New()
	seedProduct(t, s, "Cable", 1)
	seedProduct(t, s, "Adapter", 1)

	res, err := s.Products().List(context.Background(), domain.ListFilter{OrderBy: "name", Offset: -1})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Offset)
	require.Len(t, res.Items, 2)
	assert.Equal(t, "Adapter", res.Items[0].Name)
}

func recordMovement(t *testing.T, s *Store, productID id.ID) {
	t.Helper()
	require.NoError(t, s.RunInTransaction(context.Background(), func(ctx context.Context) error {
		return s.Stock().CreateMovements(ctx, []stock.StockMovement{{ID: id.New(), ProductID: productID}})
	}))
}

func TestDelete_StagedUntilCommit(t *testing.T) {
	s := New()
	ctx := context.Background()
	p := seedProduct(t, s, "Cable", 0)
	seedProduct(t, s, "Adapter", 0)

	err := s.RunInTransaction(ctx, func(ctx context.Context) error {
		require.NoError(t, s.Products().Delete(ctx, p.ID))

		_, err := s.Products().GetByID(ctx, p.ID)
		assert.True(t, apperror.IsNotFound(err))

		_, err = s.Products().GetByID(context.Background(), p.ID)
		assert.NoError(t, err, "other transactions still see the row")
		return nil
	})
	require.NoError(t, err)

	_, err = s.Products().GetByID(ctx, p.ID)
	assert.True(t, apperror.IsNotFound(err))
	res, err := s.Products().List(ctx, domain.ListFilter{})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "Adapter", res.Items[0].Name)
}

func TestDelete_InsertedInSameTransaction(t *testing.T) {
	s := New()
	ctx := context.Background()

	err := s.RunInTransaction(ctx, func(ctx context.Context) error {
		p := product.NewProduct("Cable", "SKU-Cable", types.MustMoney("10"), types.MustMoney("4"))
		require.NoError(t, s.Products().Create(ctx, p))
		return s.Products().Delete(ctx, p.ID)
	})
	require.NoError(t, err)

	res, err := s.Products().List(ctx, domain.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, res.Items)
}

func TestDelete_ReferencedProductInUse(t *testing.T) {
	s := New()
	ctx := context.Background()
	p := seedProduct(t, s, "Cable", 0)
	recordMovement(t, s, p.ID)

	err := s.Products().Delete(ctx, p.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeInUse), "got %v", err)
}

func TestDelete_ReferenceCommittedMeanwhile(t *testing.T) {
	s := New()
	ctx := context.Background()
	p := seedProduct(t, s, "Cable", 0)

	err := s.RunInTransaction(ctx, func(txCtx context.Context) error {
		require.NoError(t, s.Products().Delete(txCtx, p.ID))
		// a separate transaction records stock against the product first
		recordMovement(t, s, p.ID)
		return nil
	})
	assert.True(t, apperror.HasCode(err, apperror.CodeInUse), "got %v", err)

	_, err = s.Products().GetByID(ctx, p.ID)
	assert.NoError(t, err)
}

func TestIdempotencyStore(t *testing.T) {
	s := New()
	ctx := context.Background()
	store := s.Idempotency()

	replay, err := store.AcquireKey(ctx, "k1", "u1", "POST /sales", "h1")
	require.NoError(t, err)
	assert.Nil(t, replay)

	_, err = store.AcquireKey(ctx, "k1", "u1", "POST /sales", "h1")
	assert.True(t, apperror.HasCode(err, apperror.CodeIdempotency), "in-flight key: %v", err)

	_, err = store.AcquireKey(ctx, "k1", "u1", "POST /sales", "other")
	assert.True(t, apperror.HasCode(err, apperror.CodeIdempotency), "mismatch: %v", err)

	require.NoError(t, store.CompleteKey(ctx, "k1", 201, "", map[string]string{"ok": "yes"}))

	replay, err = store.AcquireKey(ctx, "k1", "u1", "POST /sales", "h1")
	require.NoError(t, err)
	require.NotNil(t, replay)
	assert.Equal(t, 201, replay.StatusCode)
	assert.Equal(t, "application/json", replay.ContentType)
	assert.JSONEq(t, `{"ok":"yes"}`, string(replay.Body))
}

func TestIdempotencyStore_ReclaimsStalePending(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	store := s.Idempotency()

	_, err := store.AcquireKey(ctx, "k1", "u1", "op", "h")
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	replay, err := store.AcquireKey(ctx, "k1", "u1", "op", "h")
	require.NoError(t, err)
	assert.Nil(t, replay)
}
