// Package domain provides core business logic interfaces and types.
package domain

import (
	"context"

	"novaerp/internal/core/entity"
	"novaerp/internal/core/id"
)

// --- Filter & Pagination ---

// ListFilter contains common filtering options for catalog list operations.
type ListFilter struct {
	// Search matches name (and SKU/email where the catalog has one)
	Search string

	// IDs filters by specific IDs
	IDs []id.ID

	// ActiveOnly hides inactive records when true
	ActiveOnly bool

	// OrderBy specifies sorting (e.g., "name", "-created_at")
	OrderBy string

	// Pagination
	Limit  int
	Offset int
}

// DefaultListFilter returns sensible defaults.
func DefaultListFilter() ListFilter {
	return ListFilter{
		Limit:   50,
		OrderBy: "name",
	}
}

// ListResult contains paginated results.
type ListResult[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}

// --- Repository Interfaces ---

// CatalogRepository defines CRUD operations for catalog entities.
type CatalogRepository[T entity.Validatable] interface {
	// Create inserts a new entity
	Create(ctx context.Context, entity T) error

	// GetByID retrieves entity by ID
	GetByID(ctx context.Context, id id.ID) (T, error)

	// Update modifies existing entity (with optimistic locking).
	// On success the entity's Version is advanced to the stored value.
	Update(ctx context.Context, entity T) error

	// List retrieves entities with filtering and pagination
	List(ctx context.Context, filter ListFilter) (ListResult[T], error)
}
