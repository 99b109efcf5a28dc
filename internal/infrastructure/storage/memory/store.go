// Package memory provides an in-process implementation of every repository
// and of tx.Manager. Writes are staged per transaction and applied together
// on commit; GetForUpdate takes a per-product lock held until the
// transaction ends, mirroring SELECT ... FOR UPDATE.
package memory

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"novaerp/internal/core/apperror"
	"novaerp/internal/core/event"
	"novaerp/internal/core/id"
	"novaerp/internal/core/tx"
	"novaerp/internal/domain/catalogs/customer"
	"novaerp/internal/domain/catalogs/product"
	"novaerp/internal/domain/catalogs/warehouse"
	"novaerp/internal/domain/documents/sale"
	"novaerp/internal/domain/registers/stock"
	"novaerp/pkg/logger"
)

var _ tx.Manager = (*Store)(nil)

// Store holds committed state.
type Store struct {
	mu sync.RWMutex

	products   *catalogTable[*product.Product]
	warehouses *catalogTable[*warehouse.Warehouse]
	customers  *catalogTable[*customer.Customer]

	sales      map[id.ID]*sale.Sale
	saleOrder  []id.ID
	movements  []stock.StockMovement
	events     []event.Event
	idempotent map[string]*idempotencyRecord

	rowLocks *lockTable

	txTimeout time.Duration
	now       func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithTxTimeout bounds every top-level transaction.
func WithTxTimeout(d time.Duration) Option {
	return func(s *Store) { s.txTimeout = d }
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		products: newCatalogTable("product", func(p *product.Product) *product.Product {
			c := *p
			return &c
		}, func(t *txState) *stage[*product.Product] { return t.products }),
		warehouses: newCatalogTable("warehouse", func(w *warehouse.Warehouse) *warehouse.Warehouse {
			c := *w
			return &c
		}, func(t *txState) *stage[*warehouse.Warehouse] { return t.warehouses }),
		customers: newCatalogTable("customer", func(c *customer.Customer) *customer.Customer {
			cp := *c
			return &cp
		}, func(t *txState) *stage[*customer.Customer] { return t.customers }),
		sales:      make(map[id.ID]*sale.Sale),
		idempotent: make(map[string]*idempotencyRecord),
		rowLocks:   newLockTable(),
		now:        func() time.Time { return time.Now().UTC() },
	}
	s.products.referenced = s.productReferenced
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// productReferenced reports whether a sale line or stock movement, committed
// or staged by t, points at the product. Caller holds s.mu.
func (s *Store) productReferenced(t *txState, productID id.ID) bool {
	movements := s.movements
	sales := slices.Collect(maps.Values(s.sales))
	if t != nil {
		movements = append(slices.Clip(movements), t.movements...)
		sales = append(sales, t.sales...)
	}
	for _, m := range movements {
		if m.ProductID == productID {
			return true
		}
	}
	for _, sl := range sales {
		for _, item := range sl.Items {
			if item.ProductID == productID {
				return true
			}
		}
	}
	return false
}

// Ping implements the readiness check.
func (s *Store) Ping(context.Context) error { return nil }

// txKey is the context key for active transaction.
type txKey struct{}

// txState is the write set of one transaction. It is owned by a single
// goroutine and needs no locking of its own.
type txState struct {
	products   *stage[*product.Product]
	warehouses *stage[*warehouse.Warehouse]
	customers  *stage[*customer.Customer]

	sales     []*sale.Sale
	movements []stock.StockMovement
	events    []event.Event

	locks map[id.ID]struct{}
}

func newTxState() *txState {
	return &txState{
		products:   newStage[*product.Product](),
		warehouses: newStage[*warehouse.Warehouse](),
		customers:  newStage[*customer.Customer](),
		locks:      make(map[id.ID]struct{}),
	}
}

func txFrom(ctx context.Context) *txState {
	if t, ok := ctx.Value(txKey{}).(*txState); ok {
		return t
	}
	return nil
}

// RunInTransaction implements tx.Manager.
func (s *Store) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFrom(ctx) != nil {
		return fn(ctx)
	}

	if s.txTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.txTimeout)
		defer cancel()
	}
	if err := ctx.Err(); err != nil {
		return translateError(err)
	}

	t := newTxState()
	defer s.releaseLocks(t)

	defer func() {
		if p := recover(); p != nil {
			logger.Error(ctx, "transaction panicked, rolled back", "panic", p)
			panic(p)
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, t)); err != nil {
		return translateError(err)
	}

	// Last chance to honour cancellation; commit itself is not interruptible.
	if err := ctx.Err(); err != nil {
		return translateError(err)
	}

	return s.commit(t)
}

// write runs fn in the caller's transaction or in a new one.
func (s *Store) write(ctx context.Context, fn func(t *txState) error) error {
	if t := txFrom(ctx); t != nil {
		return fn(t)
	}
	return s.RunInTransaction(ctx, func(ctx context.Context) error {
		return fn(txFrom(ctx))
	})
}

func (s *Store) commit(t *txState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.products.check(t); err != nil {
		return err
	}
	if err := s.warehouses.check(t); err != nil {
		return err
	}
	if err := s.customers.check(t); err != nil {
		return err
	}
	for _, sl := range t.sales {
		if _, exists := s.sales[sl.ID]; exists {
			return apperror.NewDuplicate("sale", "id", sl.ID.String())
		}
	}

	s.products.apply(t)
	s.warehouses.apply(t)
	s.customers.apply(t)
	for _, sl := range t.sales {
		s.sales[sl.ID] = sl
		s.saleOrder = append(s.saleOrder, sl.ID)
	}
	s.movements = append(s.movements, t.movements...)
	s.events = append(s.events, t.events...)
	return nil
}

func (s *Store) releaseLocks(t *txState) {
	for key := range t.locks {
		s.rowLocks.release(key)
	}
}

// lock takes the row lock on key for the rest of the transaction.
func (s *Store) lock(ctx context.Context, t *txState, key id.ID) error {
	if _, held := t.locks[key]; held {
		return nil
	}
	if err := s.rowLocks.acquire(ctx, key); err != nil {
		return fmt.Errorf("lock row %s: %w", key, err)
	}
	t.locks[key] = struct{}{}
	return nil
}

func translateError(err error) error {
	if err == nil || apperror.IsAppError(err) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperror.NewTimeout("transaction").WithCause(err)
	}
	return err
}

// Events returns every committed outbox event in commit order.
func (s *Store) Events() []event.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]event.Event, len(s.events))
	copy(out, s.events)
	return out
}

// lockTable implements cancellable exclusive locks keyed by row id.
type lockTable struct {
	mu   sync.Mutex
	held map[id.ID]chan struct{}
}

func newLockTable() *lockTable {
	return &lockTable{held: make(map[id.ID]chan struct{})}
}

func (l *lockTable) acquire(ctx context.Context, key id.ID) error {
	for {
		l.mu.Lock()
		released, busy := l.held[key]
		if !busy {
			l.held[key] = make(chan struct{})
			l.mu.Unlock()
			return nil
		}
		l.mu.Unlock()

		select {
		case <-released:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (l *lockTable) release(key id.ID) {
	l.mu.Lock()
	released, ok := l.held[key]
	delete(l.held, key)
	l.mu.Unlock()
	if ok {
		close(released)
	}
}
