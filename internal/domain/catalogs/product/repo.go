package product

import (
	"context"

	"novaerp/internal/core/id"
	"novaerp/internal/domain"
)

// Repository defines the interface for Product persistence.
type Repository interface {
	domain.CatalogRepository[*Product]

	// GetForUpdate retrieves the product and holds a row lock on it until the
	// surrounding transaction ends. Must be called inside a transaction.
	GetForUpdate(ctx context.Context, id id.ID) (*Product, error)

	// Delete removes a product no sale or stock movement refers to.
	// A referenced product yields apperror.CodeInUse.
	Delete(ctx context.Context, id id.ID) error
}
