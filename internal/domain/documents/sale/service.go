package sale

import (
	"context"
	"fmt"
	"slices"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"novaerp/internal/core/apperror"
	"novaerp/internal/core/entity"
	"novaerp/internal/core/event"
	"novaerp/internal/core/id"
	"novaerp/internal/core/tx"
	"novaerp/internal/core/types"
	"novaerp/internal/domain"
	"novaerp/internal/domain/catalogs/customer"
	"novaerp/internal/domain/catalogs/product"
	"novaerp/internal/domain/catalogs/warehouse"
	"novaerp/internal/domain/registers/stock"
	"novaerp/pkg/logger"
)

var tracer = otel.Tracer("novaerp/sale")

// Service runs checkouts and serves the sales journal.
type Service struct {
	txManager  tx.Manager
	sales      Repository
	products   product.Repository
	warehouses warehouse.Repository
	customers  customer.Repository
	stock      *stock.Service
	publisher  event.Publisher
	now        func() time.Time
}

// Config wires the service dependencies.
type Config struct {
	TxManager  tx.Manager
	Sales      Repository
	Products   product.Repository
	Warehouses warehouse.Repository
	Customers  customer.Repository
	Stock      *stock.Service
	Publisher  event.Publisher

	// Now overrides the clock (tests)
	Now func() time.Time
}

// NewService creates a new sale service.
func NewService(cfg Config) *Service {
	s := &Service{
		txManager:  cfg.TxManager,
		sales:      cfg.Sales,
		products:   cfg.Products,
		warehouses: cfg.Warehouses,
		customers:  cfg.Customers,
		stock:      cfg.Stock,
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

// ProcessSale validates stock for every line, then records the sale, debits
// each product and appends one Out movement per line, all in a single
// transaction. Any failure leaves no trace. The returned receipt is read
// back from the store after commit.
func (s *Service) ProcessSale(ctx context.Context, cmd ProcessCommand) (*Receipt, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "sale.ProcessSale",
		trace.WithAttributes(
			attribute.String("customer.id", cmd.CustomerID.String()),
			attribute.Int("sale.lines", len(cmd.Items)),
		))
	defer span.End()

	var (
		saleID       id.ID
		customerName string
		productNames map[id.ID]string
	)

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		cust, err := s.customers.GetByID(ctx, cmd.CustomerID)
		if err != nil {
			return wrapNotFound(err, "customer", cmd.CustomerID)
		}

		wh, err := warehouse.Resolve(ctx, s.warehouses, cmd.WarehouseID)
		if err != nil {
			return err
		}

		locked, err := s.lockAndValidate(ctx, cmd.Items)
		if err != nil {
			return err
		}

		sale := s.newSale(cmd)
		movements := make([]*stock.StockMovement, 0, len(cmd.Items))
		names := make(map[id.ID]string, len(locked))

		for i, line := range cmd.Items {
			p := locked[line.ProductID]

			item := Item{
				ID:             id.New(),
				SaleID:         sale.ID,
				LineNo:         i + 1,
				ProductID:      p.ID,
				Quantity:       line.Quantity,
				UnitPrice:      line.UnitPrice,
				DiscountAmount: line.DiscountAmount,
				CostAtTime:     p.Cost,
			}
			item.CalculateTotal()

			m, err := s.stock.Post(ctx, p, stock.Entry{
				WarehouseID: wh.ID,
				Type:        stock.MovementOut,
				Quantity:    line.Quantity,
				Cost:        types.Zero(),
				Note:        "Sale " + sale.Number,
				UserID:      cmd.UserID,
				ReferenceID: &sale.ID,
			})
			if err != nil {
				if appErr, ok := apperror.AsAppError(err); ok && appErr.Code == apperror.CodeInsufficientStock {
					appErr.WithDetail("lineNo", item.LineNo)
				}
				return err
			}

			sale.Items = append(sale.Items, item)
			movements = append(movements, m)
			names[p.ID] = p.Name
		}

		sale.Recalculate()

		if err := s.sales.Create(ctx, sale); err != nil {
			return fmt.Errorf("create sale: %w", err)
		}

		balances := make(map[id.ID]int, len(locked))
		for pid, p := range locked {
			balances[pid] = p.StockQuantity
		}
		if err := s.stock.Record(ctx, movements, balances); err != nil {
			return err
		}

		if err := s.publisher.Publish(ctx, event.Event{
			AggregateType: event.AggregateSale,
			AggregateID:   sale.ID,
			EventType:     event.TypeSaleCompleted,
			Payload: CompletedPayload{
				SaleID:      sale.ID,
				SaleNumber:  sale.Number,
				CustomerID:  sale.CustomerID,
				UserID:      sale.UserID,
				ItemCount:   len(sale.Items),
				FinalAmount: sale.FinalAmount,
				SaleDate:    sale.SaleDate,
			},
		}); err != nil {
			return fmt.Errorf("publish sale event: %w", err)
		}

		saleID = sale.ID
		customerName = cust.Name
		productNames = names
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Warn(ctx, "sale rolled back", "customer_id", cmd.CustomerID, "error", err)
		return nil, err
	}

	// The sale is committed; a caller cancelling now must still get its receipt.
	persisted, err := s.sales.GetByID(context.WithoutCancel(ctx), saleID)
	if err != nil {
		return nil, fmt.Errorf("reload sale %s: %w", saleID, err)
	}

	logger.Info(ctx, "sale processed",
		"sale_id", persisted.ID,
		"sale_number", persisted.Number,
		"lines", len(persisted.Items),
		"final_amount", persisted.FinalAmount.String(),
	)
	span.SetAttributes(attribute.String("sale.number", persisted.Number))

	return NewReceipt(persisted, customerName, productNames), nil
}

// lockAndValidate locks every product on the sale in ascending id order, then
// checks the lines in caller order. Requested quantities of repeated products
// are accumulated so that two lines cannot jointly overdraw a balance.
// Nothing is mutated here.
func (s *Service) lockAndValidate(ctx context.Context, lines []LineCommand) (map[id.ID]*product.Product, error) {
	productIDs := make([]id.ID, 0, len(lines))
	for _, line := range lines {
		if !slices.Contains(productIDs, line.ProductID) {
			productIDs = append(productIDs, line.ProductID)
		}
	}
	slices.SortFunc(productIDs, id.Compare)

	locked := make(map[id.ID]*product.Product, len(productIDs))
	for _, pid := range productIDs {
		p, err := s.products.GetForUpdate(ctx, pid)
		if err != nil {
			if apperror.IsNotFound(err) {
				continue
			}
			return nil, fmt.Errorf("lock product %s: %w", pid, err)
		}
		locked[pid] = p
	}

	remaining := make(map[id.ID]int, len(locked))
	for i, line := range lines {
		lineNo := i + 1
		p, ok := locked[line.ProductID]
		if !ok {
			return nil, apperror.NewNotFound("product", line.ProductID.String()).WithDetail("lineNo", lineNo)
		}
		if !p.IsActive {
			return nil, apperror.NewProductInactive(p.ID.String(), p.Name).WithDetail("lineNo", lineNo)
		}

		available, seen := remaining[p.ID]
		if !seen {
			available = p.StockQuantity
		}
		if available < line.Quantity {
			return nil, apperror.NewInsufficientStock(p.ID.String(), p.Name, available, line.Quantity).
				WithDetail("lineNo", lineNo)
		}
		remaining[p.ID] = available - line.Quantity
	}

	return locked, nil
}

func (s *Service) newSale(cmd ProcessCommand) *Sale {
	now := s.now()
	base := entity.NewBaseEntity()
	base.CreatedAt, base.UpdatedAt = now, now

	sale := &Sale{
		BaseEntity:     base,
		Number:         NewNumber(now),
		SaleDate:       now,
		Status:         StatusCompleted,
		DiscountAmount: cmd.DiscountAmount,
		CustomerID:     cmd.CustomerID,
		UserID:         cmd.UserID,
		Items:          make([]Item, 0, len(cmd.Items)),
	}
	if cmd.Notes != "" {
		notes := cmd.Notes
		sale.Notes = &notes
	}
	return sale
}

// GetByID loads a sale with its items.
func (s *Service) GetByID(ctx context.Context, saleID id.ID) (*Sale, error) {
	sale, err := s.sales.GetByID(ctx, saleID)
	if err != nil {
		return nil, wrapNotFound(err, "sale", saleID)
	}
	return sale, nil
}

// List returns the sales journal, newest first.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Sale], error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	return s.sales.List(ctx, filter)
}

// Receipt rebuilds the receipt of an existing sale.
func (s *Service) Receipt(ctx context.Context, saleID id.ID) (*Receipt, error) {
	sale, err := s.GetByID(ctx, saleID)
	if err != nil {
		return nil, err
	}

	customerName := ""
	if cust, err := s.customers.GetByID(ctx, sale.CustomerID); err == nil {
		customerName = cust.Name
	} else if !apperror.IsNotFound(err) {
		return nil, fmt.Errorf("get customer: %w", err)
	}

	names := make(map[id.ID]string, len(sale.Items))
	for _, item := range sale.Items {
		if _, ok := names[item.ProductID]; ok {
			continue
		}
		p, err := s.products.GetByID(ctx, item.ProductID)
		if err != nil {
			if apperror.IsNotFound(err) {
				continue
			}
			return nil, fmt.Errorf("get product: %w", err)
		}
		names[p.ID] = p.Name
	}

	return NewReceipt(sale, customerName, names), nil
}

func wrapNotFound(err error, entity string, entityID id.ID) error {
	if apperror.IsNotFound(err) {
		return apperror.NewNotFound(entity, entityID.String())
	}
	return fmt.Errorf("get %s: %w", entity, err)
}
