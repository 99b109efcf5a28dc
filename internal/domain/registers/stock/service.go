package stock

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"novaerp/internal/core/apperror"
	"novaerp/internal/core/event"
	"novaerp/internal/core/id"
	"novaerp/internal/core/tx"
	"novaerp/internal/domain/catalogs/product"
	"novaerp/internal/domain/catalogs/warehouse"
	"novaerp/pkg/logger"
)

var tracer = otel.Tracer("novaerp/stock")

// Service processes stock movements and answers ledger queries.
type Service struct {
	txManager  tx.Manager
	repo       Repository
	products   product.Repository
	warehouses warehouse.Repository
	publisher  event.Publisher
	now        func() time.Time
}

// Config wires the service dependencies.
type Config struct {
	TxManager  tx.Manager
	Repo       Repository
	Products   product.Repository
	Warehouses warehouse.Repository
	Publisher  event.Publisher

	// Now overrides the clock (tests)
	Now func() time.Time
}

// NewService creates a new stock service.
func NewService(cfg Config) *Service {
	s := &Service{
		txManager:  cfg.TxManager,
		repo:       cfg.Repo,
		products:   cfg.Products,
		warehouses: cfg.Warehouses,
		publisher:  cfg.Publisher,
		now:        cfg.Now,
	}
	if s.publisher == nil {
		s.publisher = event.Discard{}
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	return s
}

// ProcessMovement applies a single In, Out or Adjust movement and appends it
// to the ledger in one transaction.
func (s *Service) ProcessMovement(ctx context.Context, cmd MovementCommand) (*StockMovement, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	warehouseID := cmd.WarehouseID
	return s.process(ctx, cmd.ProductID, &warehouseID, Entry{
		Type:     cmd.Type,
		Quantity: cmd.Quantity,
		Cost:     cmd.Cost,
		Note:     cmd.Note,
		UserID:   cmd.UserID,
	})
}

// Supply records goods received at cost. Without a warehouse the first
// active one is used.
func (s *Service) Supply(ctx context.Context, cmd SupplyCommand) (*StockMovement, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	note := cmd.Note
	if note == "" {
		note = "Supply"
	}
	return s.process(ctx, cmd.ProductID, cmd.WarehouseID, Entry{
		Type:     MovementIn,
		Quantity: cmd.Quantity,
		Cost:     cmd.CostPrice,
		Note:     note,
		UserID:   cmd.UserID,
	})
}

func (s *Service) process(ctx context.Context, productID id.ID, warehouseID *id.ID, entry Entry) (*StockMovement, error) {
	ctx, span := tracer.Start(ctx, "stock.ProcessMovement",
		trace.WithAttributes(
			attribute.String("product.id", productID.String()),
			attribute.String("movement.type", string(entry.Type)),
			attribute.Int("movement.quantity", entry.Quantity),
		))
	defer span.End()

	var movement *StockMovement
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		p, err := s.products.GetForUpdate(ctx, productID)
		if err != nil {
			return wrapNotFound(err, "product", productID)
		}

		wh, err := warehouse.Resolve(ctx, s.warehouses, warehouseID)
		if err != nil {
			return err
		}
		entry.WarehouseID = wh.ID

		m, err := s.Post(ctx, p, entry)
		if err != nil {
			return err
		}
		if err := s.Record(ctx, []*StockMovement{m}, map[id.ID]int{p.ID: p.StockQuantity}); err != nil {
			return err
		}
		movement = m
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Warn(ctx, "stock movement rolled back",
			"product_id", productID,
			"type", entry.Type,
			"quantity", entry.Quantity,
			"error", err,
		)
		return nil, err
	}

	logger.Info(ctx, "stock movement processed",
		"movement_id", movement.ID,
		"product_id", movement.ProductID,
		"warehouse_id", movement.WarehouseID,
		"type", movement.Type,
		"quantity", movement.Quantity,
	)
	return movement, nil
}

// Post applies entry to a product the caller has locked with GetForUpdate,
// persists the new balance and returns the ledger row to record.
// Must be called inside a transaction.
func (s *Service) Post(ctx context.Context, p *product.Product, entry Entry) (*StockMovement, error) {
	cost, err := Apply(p, entry.Type, entry.Quantity, entry.Cost)
	if err != nil {
		return nil, err
	}

	p.Touch()
	if err := s.products.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("update product balance: %w", err)
	}

	return &StockMovement{
		ID:          id.New(),
		ProductID:   p.ID,
		WarehouseID: entry.WarehouseID,
		Type:        entry.Type,
		Quantity:    entry.Quantity,
		CostAtTime:  cost,
		Note:        entry.Note,
		CreatedBy:   entry.UserID,
		CreatedAt:   s.now(),
		ReferenceID: entry.ReferenceID,
	}, nil
}

// Record appends posted movements to the ledger and writes one stock.moved
// event per movement. balances holds each product's balance after posting.
func (s *Service) Record(ctx context.Context, movements []*StockMovement, balances map[id.ID]int) error {
	if len(movements) == 0 {
		return nil
	}

	rows := make([]StockMovement, len(movements))
	events := make([]event.Event, len(movements))
	for i, m := range movements {
		rows[i] = *m
		events[i] = event.Event{
			AggregateType: event.AggregateProduct,
			AggregateID:   m.ProductID,
			EventType:     event.TypeStockMoved,
			Payload: MovedPayload{
				MovementID:   m.ID,
				ProductID:    m.ProductID,
				WarehouseID:  m.WarehouseID,
				Type:         m.Type,
				Quantity:     m.Quantity,
				CostAtTime:   m.CostAtTime,
				BalanceAfter: balances[m.ProductID],
				ReferenceID:  m.ReferenceID,
				OccurredAt:   m.CreatedAt,
			},
		}
	}

	if err := s.repo.CreateMovements(ctx, rows); err != nil {
		return fmt.Errorf("create movements: %w", err)
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		return fmt.Errorf("publish stock events: %w", err)
	}
	return nil
}

// History returns ledger rows matching filter, newest first.
func (s *Service) History(ctx context.Context, filter MovementFilter) ([]StockMovement, error) {
	if filter.Limit <= 0 {
		filter.Limit = 100
	}
	return s.repo.GetMovementHistory(ctx, filter)
}

// CheckAvailability reports whether qty units of an active product are in
// stock. Unknown products are reported as unavailable.
func (s *Service) CheckAvailability(ctx context.Context, productID id.ID, qty int) (bool, error) {
	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return p.IsActive && p.StockQuantity >= qty, nil
}

// Reconcile replays a product's ledger and compares it with the cached balance.
func (s *Service) Reconcile(ctx context.Context, productID id.ID) (Reconciliation, error) {
	var rec Reconciliation
	err := s.readOnly(ctx, func(ctx context.Context) error {
		p, err := s.products.GetByID(ctx, productID)
		if err != nil {
			return wrapNotFound(err, "product", productID)
		}
		movements, err := s.repo.GetMovementsByProduct(ctx, productID)
		if err != nil {
			return fmt.Errorf("load ledger: %w", err)
		}

		ledger := Replay(movements)
		rec = Reconciliation{
			ProductID:      productID,
			CachedQuantity: p.StockQuantity,
			LedgerQuantity: ledger,
			MovementCount:  len(movements),
			InSync:         ledger == p.StockQuantity,
		}
		return nil
	})
	if err != nil {
		return Reconciliation{}, err
	}

	if !rec.InSync {
		logger.Warn(ctx, "stock balance drifted from ledger",
			"product_id", productID,
			"cached", rec.CachedQuantity,
			"ledger", rec.LedgerQuantity,
		)
	}
	return rec, nil
}

// readOnly uses a read-only transaction when the store offers one.
func (s *Service) readOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	if ro, ok := s.txManager.(tx.ReadOnlyManager); ok {
		return ro.ReadOnly(ctx, fn)
	}
	return s.txManager.RunInTransaction(ctx, fn)
}

func wrapNotFound(err error, entity string, entityID id.ID) error {
	if apperror.IsNotFound(err) {
		return apperror.NewNotFound(entity, entityID.String())
	}
	return fmt.Errorf("get %s: %w", entity, err)
}
