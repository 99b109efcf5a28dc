package memory

import (
	"context"
	"errors"
	"strings"

	"novaerp/internal/core/apperror"
	"novaerp/internal/core/id"
	"novaerp/internal/domain/catalogs/customer"
	"novaerp/internal/domain/catalogs/product"
	"novaerp/internal/domain/catalogs/warehouse"
)

var (
	_ product.Repository   = (*ProductRepo)(nil)
	_ warehouse.Repository = (*WarehouseRepo)(nil)
	_ customer.Repository  = (*CustomerRepo)(nil)
)

// ProductRepo implements product.Repository.
type ProductRepo struct {
	catalogRepo[*product.Product]
}

// Products returns the product repository.
func (s *Store) Products() *ProductRepo {
	return &ProductRepo{catalogRepo[*product.Product]{
		store:  s,
		table:  s.products,
		name:   func(p *product.Product) string { return p.Name },
		active: func(p *product.Product) bool { return p.IsActive },
		search: func(p *product.Product, q string) bool { return strings.Contains(strings.ToLower(p.SKU), q) },
	}}
}

// GetForUpdate locks the product until the surrounding transaction ends.
func (r *ProductRepo) GetForUpdate(ctx context.Context, productID id.ID) (*product.Product, error) {
	t := txFrom(ctx)
	if t == nil {
		return nil, apperror.NewInternal(errors.New("GetForUpdate called outside a transaction"))
	}

	r.store.mu.RLock()
	_, exists := r.table.get(t, productID)
	r.store.mu.RUnlock()
	if !exists {
		return nil, apperror.NewNotFound("product", productID.String())
	}

	if err := r.store.lock(ctx, t, productID); err != nil {
		return nil, err
	}

	// Re-read: the previous holder may have committed a new balance.
	return r.GetByID(ctx, productID)
}

// WarehouseRepo implements warehouse.Repository.
type WarehouseRepo struct {
	catalogRepo[*warehouse.Warehouse]
}

// Warehouses returns the warehouse repository.
func (s *Store) Warehouses() *WarehouseRepo {
	return &WarehouseRepo{catalogRepo[*warehouse.Warehouse]{
		store:  s,
		table:  s.warehouses,
		name:   func(w *warehouse.Warehouse) string { return w.Name },
		active: func(w *warehouse.Warehouse) bool { return w.IsActive },
	}}
}

// ListActive returns active warehouses in creation order.
func (r *WarehouseRepo) ListActive(ctx context.Context) ([]*warehouse.Warehouse, error) {
	r.store.mu.RLock()
	rows := r.table.all(txFrom(ctx))
	r.store.mu.RUnlock()

	active := make([]*warehouse.Warehouse, 0, len(rows))
	for _, w := range rows {
		if w.IsActive {
			active = append(active, w)
		}
	}
	return active, nil
}

// CustomerRepo implements customer.Repository.
type CustomerRepo struct {
	catalogRepo[*customer.Customer]
}

// Customers returns the customer repository.
func (s *Store) Customers() *CustomerRepo {
	return &CustomerRepo{catalogRepo[*customer.Customer]{
		store:  s,
		table:  s.customers,
		name:   func(c *customer.Customer) string { return c.Name },
		active: func(c *customer.Customer) bool { return c.IsActive },
		search: func(c *customer.Customer, q string) bool {
			return c.Email != nil && strings.Contains(strings.ToLower(*c.Email), q)
		},
	}}
}
