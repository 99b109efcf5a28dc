package memory

import (
	"context"
	"errors"
	"slices"

	"novaerp/internal/core/apperror"
	"novaerp/internal/core/event"
	"novaerp/internal/core/id"
	"novaerp/internal/domain"
	"novaerp/internal/domain/documents/sale"
	"novaerp/internal/domain/registers/stock"
)

var (
	_ sale.Repository  = (*SaleRepo)(nil)
	_ stock.Repository = (*StockRepo)(nil)
	_ event.Publisher  = (*Publisher)(nil)
)

func cloneSale(s *sale.Sale) *sale.Sale {
	c := *s
	c.Items = slices.Clone(s.Items)
	return &c
}

// SaleRepo implements sale.Repository.
type SaleRepo struct {
	store *Store
}

// Sales returns the sale repository.
func (s *Store) Sales() *SaleRepo { return &SaleRepo{store: s} }

func (r *SaleRepo) Create(ctx context.Context, s *sale.Sale) error {
	return r.store.write(ctx, func(t *txState) error {
		t.sales = append(t.sales, cloneSale(s))
		return nil
	})
}

func (r *SaleRepo) GetByID(ctx context.Context, saleID id.ID) (*sale.Sale, error) {
	if t := txFrom(ctx); t != nil {
		for _, s := range t.sales {
			if s.ID == saleID {
				return cloneSale(s), nil
			}
		}
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	s, ok := r.store.sales[saleID]
	if !ok {
		return nil, apperror.NewNotFound("sale", saleID.String())
	}
	return cloneSale(s), nil
}

func (r *SaleRepo) List(ctx context.Context, filter sale.ListFilter) (domain.ListResult[*sale.Sale], error) {
	r.store.mu.RLock()
	matched := make([]*sale.Sale, 0, len(r.store.saleOrder))
	for _, saleID := range r.store.saleOrder {
		s := r.store.sales[saleID]
		switch {
		case filter.CustomerID != nil && s.CustomerID != *filter.CustomerID:
			continue
		case filter.UserID != "" && s.UserID != filter.UserID:
			continue
		case filter.FromDate != nil && s.SaleDate.Before(*filter.FromDate):
			continue
		case filter.ToDate != nil && s.SaleDate.After(*filter.ToDate):
			continue
		}
		header := cloneSale(s)
		header.Items = nil
		matched = append(matched, header)
	}
	r.store.mu.RUnlock()

	// Newest first; ties keep reverse commit order.
	slices.Reverse(matched)
	slices.SortStableFunc(matched, func(a, b *sale.Sale) int { return b.SaleDate.Compare(a.SaleDate) })

	return paginate(matched, filter.Limit, filter.Offset), nil
}

// StockRepo implements stock.Repository.
type StockRepo struct {
	store *Store
}

// Stock returns the stock ledger repository.
func (s *Store) Stock() *StockRepo { return &StockRepo{store: s} }

func (r *StockRepo) CreateMovements(ctx context.Context, movements []stock.StockMovement) error {
	t := txFrom(ctx)
	if t == nil {
		return apperror.NewInternal(errors.New("CreateMovements called outside a transaction"))
	}
	t.movements = append(t.movements, movements...)
	return nil
}

func (r *StockRepo) GetMovementHistory(ctx context.Context, filter stock.MovementFilter) ([]stock.StockMovement, error) {
	all := r.visible(txFrom(ctx))

	out := make([]stock.StockMovement, 0)
	for i := len(all) - 1; i >= 0; i-- {
		m := all[i]
		switch {
		case filter.ProductID != nil && m.ProductID != *filter.ProductID:
			continue
		case filter.WarehouseID != nil && m.WarehouseID != *filter.WarehouseID:
			continue
		case filter.Type != nil && m.Type != *filter.Type:
			continue
		case filter.FromDate != nil && m.CreatedAt.Before(*filter.FromDate):
			continue
		case filter.ToDate != nil && m.CreatedAt.After(*filter.ToDate):
			continue
		}
		out = append(out, m)
	}

	return paginate(out, filter.Limit, filter.Offset).Items, nil
}

func (r *StockRepo) GetMovementsByProduct(ctx context.Context, productID id.ID) ([]stock.StockMovement, error) {
	var out []stock.StockMovement
	for _, m := range r.visible(txFrom(ctx)) {
		if m.ProductID == productID {
			out = append(out, m)
		}
	}
	return out, nil
}

// visible returns committed movements followed by t's own, in creation order.
func (r *StockRepo) visible(t *txState) []stock.StockMovement {
	r.store.mu.RLock()
	all := slices.Clone(r.store.movements)
	r.store.mu.RUnlock()
	if t != nil {
		all = append(all, t.movements...)
	}
	return all
}

// Publisher implements event.Publisher by staging events in the transaction.
type Publisher struct{}

// Outbox returns the transactional event publisher.
func (s *Store) Outbox() Publisher { return Publisher{} }

// Publish implements event.Publisher.
func (Publisher) Publish(ctx context.Context, events ...event.Event) error {
	t := txFrom(ctx)
	if t == nil {
		return apperror.NewInternal(errors.New("publish called outside a transaction"))
	}
	t.events = append(t.events, events...)
	return nil
}
