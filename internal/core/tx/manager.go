// Package tx provides transaction management abstractions.
// Domain services depend on Manager; the pgx and in-memory stores implement it.
package tx

import (
	"context"
)

// Manager defines the contract for a unit of work.
//
// RunInTransaction executes fn within a transaction:
//   - fn returning an error (or panicking) rolls back every write made through ctx;
//   - fn returning nil commits atomically;
//   - nested calls reuse the transaction already carried by ctx.
//
// Cancellation of ctx is honoured until commit starts. Commit itself runs
// to completion so a cancelled caller never observes a half-applied sale.
type Manager interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// ReadOnlyManager extends Manager with read-only transaction support.
type ReadOnlyManager interface {
	Manager

	// ReadOnly executes fn in a read-only transaction.
	ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error
}
