package stock

import (
	"novaerp/internal/core/apperror"
	"novaerp/internal/core/types"
	"novaerp/internal/domain/catalogs/product"
)

// Apply is the only place a product balance is changed.
//
//   - In adds qty; a positive cost becomes the product's cost.
//   - Out subtracts qty and fails with InsufficientStock if qty exceeds the balance.
//   - Adjust sets the balance to qty.
//
// It returns the unit cost to record on the movement: cost when positive,
// otherwise the product's cost before the change. On error p is unchanged.
func Apply(p *product.Product, t MovementType, qty int, cost types.Money) (types.Money, error) {
	if qty < 0 {
		return types.Zero(), apperror.NewValidation("quantity cannot be negative").WithDetail("field", "quantity")
	}

	resolved := p.Cost
	if cost.IsPositive() {
		resolved = cost
	}

	switch t {
	case MovementIn:
		p.StockQuantity += qty
		if cost.IsPositive() {
			p.Cost = cost
		}
	case MovementOut:
		if qty > p.StockQuantity {
			return types.Zero(), apperror.NewInsufficientStock(p.ID.String(), p.Name, p.StockQuantity, qty)
		}
		p.StockQuantity -= qty
	case MovementAdjust:
		p.StockQuantity = qty
	default:
		return types.Zero(), apperror.NewValidation("invalid movement type").
			WithDetail("field", "type").
			WithDetail("value", string(t))
	}

	return resolved, nil
}

// Replay folds movements in creation order into a balance starting at zero.
func Replay(movements []StockMovement) int {
	balance := 0
	for _, m := range movements {
		switch m.Type {
		case MovementIn:
			balance += m.Quantity
		case MovementOut:
			balance -= m.Quantity
		case MovementAdjust:
			balance = m.Quantity
		}
	}
	return balance
}
