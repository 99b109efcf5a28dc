package warehouse

import (
	"context"

	"novaerp/internal/domain"
)

// Repository defines the interface for Warehouse persistence.
type Repository interface {
	domain.CatalogRepository[*Warehouse]

	// ListActive returns active warehouses in creation order.
	ListActive(ctx context.Context) ([]*Warehouse, error)
}
