package stock

import (
	"context"

	"novaerp/internal/core/id"
)

// Repository defines operations for the stock ledger.
// There is deliberately no update or delete: the ledger is append-only.
type Repository interface {
	// CreateMovements batch inserts movements. Must be called inside a transaction.
	CreateMovements(ctx context.Context, movements []StockMovement) error

	// GetMovementHistory returns movements matching filter, newest first.
	GetMovementHistory(ctx context.Context, filter MovementFilter) ([]StockMovement, error)

	// GetMovementsByProduct returns every movement of a product in creation order.
	GetMovementsByProduct(ctx context.Context, productID id.ID) ([]StockMovement, error)
}
