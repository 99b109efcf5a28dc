// Package stock provides the stock-movement ledger and the single code path
// through which product balances change.
package stock

import (
	"time"

	"novaerp/internal/core/apperror"
	"novaerp/internal/core/id"
	"novaerp/internal/core/types"
)

// MovementType defines how a movement affects the balance.
type MovementType string

const (
	// MovementIn adds quantity (receipt from a supplier, return)
	MovementIn MovementType = "in"
	// MovementOut subtracts quantity (sale, write-off)
	MovementOut MovementType = "out"
	// MovementAdjust sets the balance to an absolute value (stock-take)
	MovementAdjust MovementType = "adjust"
)

// ParseMovementType validates a movement type coming from outside.
func ParseMovementType(s string) (MovementType, error) {
	switch t := MovementType(s); t {
	case MovementIn, MovementOut, MovementAdjust:
		return t, nil
	}
	return "", apperror.NewValidation("invalid movement type").
		WithDetail("field", "type").
		WithDetail("value", s)
}

// StockMovement is an immutable ledger row. Rows are only ever appended.
//
// Quantity is a non-negative magnitude for In and Out. For Adjust it is the
// absolute balance the product was set to, so replaying the ledger in
// creation order reproduces Product.StockQuantity.
type StockMovement struct {
	ID          id.ID        `db:"id" json:"id"`
	ProductID   id.ID        `db:"product_id" json:"productId"`
	WarehouseID id.ID        `db:"warehouse_id" json:"warehouseId"`
	Type        MovementType `db:"movement_type" json:"type"`
	Quantity    int          `db:"quantity" json:"quantity"`
	CostAtTime  types.Money  `db:"cost_at_time" json:"costAtTime"`
	Note        string       `db:"note" json:"note,omitempty"`
	CreatedBy   string       `db:"created_by" json:"createdBy"`
	CreatedAt   time.Time    `db:"created_at" json:"createdAt"`

	// ReferenceID links the movement to the sale that produced it
	ReferenceID *id.ID `db:"reference_id" json:"referenceId,omitempty"`
}

// Entry describes a balance change to post against a locked product.
type Entry struct {
	WarehouseID id.ID
	Type        MovementType
	Quantity    int
	Cost        types.Money
	Note        string
	UserID      string
	ReferenceID *id.ID
}

// MovementCommand is the input of a direct stock movement.
type MovementCommand struct {
	ProductID   id.ID
	WarehouseID id.ID
	Type        MovementType
	Quantity    int
	Cost        types.Money
	Note        string
	UserID      string
}

// Validate checks the command shape before any store access.
func (c MovementCommand) Validate() error {
	if id.IsNil(c.ProductID) {
		return apperror.NewValidation("product is required").WithDetail("field", "productId")
	}
	if id.IsNil(c.WarehouseID) {
		return apperror.NewValidation("warehouse is required").WithDetail("field", "warehouseId")
	}
	if _, err := ParseMovementType(string(c.Type)); err != nil {
		return err
	}
	return validateQuantityAndCost(c.Type, c.Quantity, c.Cost, c.UserID)
}

// SupplyCommand records goods received from a supplier.
// WarehouseID nil means the first active warehouse.
type SupplyCommand struct {
	ProductID   id.ID
	WarehouseID *id.ID
	Quantity    int
	CostPrice   types.Money
	Note        string
	UserID      string
}

// Validate checks the command shape before any store access.
func (c SupplyCommand) Validate() error {
	if id.IsNil(c.ProductID) {
		return apperror.NewValidation("product is required").WithDetail("field", "productId")
	}
	return validateQuantityAndCost(MovementIn, c.Quantity, c.CostPrice, c.UserID)
}

func validateQuantityAndCost(t MovementType, qty int, cost types.Money, userID string) error {
	if t == MovementAdjust {
		if qty < 0 {
			return apperror.NewValidation("adjusted quantity cannot be negative").WithDetail("field", "quantity")
		}
	} else if qty <= 0 {
		return apperror.NewValidation("quantity must be greater than 0").WithDetail("field", "quantity")
	}
	if cost.IsNegative() {
		return apperror.NewValidation("cost cannot be negative").WithDetail("field", "cost")
	}
	if userID == "" {
		return apperror.NewValidation("user is required").WithDetail("field", "userId")
	}
	return nil
}

// MovementFilter for filtering movement history.
type MovementFilter struct {
	ProductID   *id.ID
	WarehouseID *id.ID
	Type        *MovementType
	FromDate    *time.Time
	ToDate      *time.Time
	Limit       int
	Offset      int
}

// Reconciliation compares the cached balance against a ledger replay.
type Reconciliation struct {
	ProductID      id.ID `json:"productId"`
	CachedQuantity int   `json:"cachedQuantity"`
	LedgerQuantity int   `json:"ledgerQuantity"`
	MovementCount  int   `json:"movementCount"`
	InSync         bool  `json:"inSync"`
}

// MovedPayload is the body of a stock.moved event.
type MovedPayload struct {
	MovementID   id.ID        `json:"movementId"`
	ProductID    id.ID        `json:"productId"`
	WarehouseID  id.ID        `json:"warehouseId"`
	Type         MovementType `json:"type"`
	Quantity     int          `json:"quantity"`
	CostAtTime   types.Money  `json:"costAtTime"`
	BalanceAfter int          `json:"balanceAfter"`
	ReferenceID  *id.ID       `json:"referenceId,omitempty"`
	OccurredAt   time.Time    `json:"occurredAt"`
}
