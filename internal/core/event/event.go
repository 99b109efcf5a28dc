// Package event defines domain events written to the transactional outbox.
package event

import (
	"context"

	"novaerp/internal/core/id"
)

// Aggregate and event type names carried on the outbox and on the broker.
const (
	AggregateSale    = "Sale"
	AggregateProduct = "Product"

	TypeSaleCompleted = "sale.completed"
	TypeStockMoved    = "stock.moved"
)

// Event is a fact recorded in the same transaction as the change it describes.
type Event struct {
	AggregateType string
	AggregateID   id.ID
	EventType     string
	Payload       any
}

// Publisher writes events inside the caller's transaction.
// Implementations must fail when no transaction is present in ctx.
type Publisher interface {
	Publish(ctx context.Context, events ...Event) error
}

// Discard is a Publisher that drops every event.
type Discard struct{}

// Publish implements Publisher.
func (Discard) Publish(context.Context, ...Event) error { return nil }
