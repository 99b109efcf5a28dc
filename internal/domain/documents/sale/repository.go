package sale

import (
	"context"
	"time"

	"novaerp/internal/core/id"
	"novaerp/internal/domain"
)

// Repository defines the interface for Sale persistence.
type Repository interface {
	// Create inserts the sale header and all its items as one unit.
	Create(ctx context.Context, s *Sale) error

	// GetByID loads a sale with its items ordered by line number.
	GetByID(ctx context.Context, id id.ID) (*Sale, error)

	// List returns sale headers (without items), newest first.
	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Sale], error)
}

// ListFilter for filtering the sales journal.
type ListFilter struct {
	CustomerID *id.ID
	UserID     string
	FromDate   *time.Time
	ToDate     *time.Time
	Limit      int
	Offset     int
}
