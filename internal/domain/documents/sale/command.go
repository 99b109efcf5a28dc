package sale

import (
	"fmt"

	"novaerp/internal/core/apperror"
	"novaerp/internal/core/id"
	"novaerp/internal/core/types"
)

// ProcessCommand is a checkout request.
type ProcessCommand struct {
	CustomerID id.ID

	// WarehouseID nil means the first active warehouse
	WarehouseID *id.ID

	DiscountAmount types.Money
	Notes          string
	Items          []LineCommand

	// UserID is the authenticated operator
	UserID string
}

// LineCommand is one requested sale line.
type LineCommand struct {
	ProductID      id.ID
	Quantity       int
	UnitPrice      types.Money
	DiscountAmount types.Money
}

// Validate checks the request shape before any store access.
func (c ProcessCommand) Validate() error {
	if id.IsNil(c.CustomerID) {
		return apperror.NewValidation("customer is required").WithDetail("field", "customerId")
	}
	if len(c.Items) == 0 {
		return apperror.NewValidation("sale must contain at least one item").WithDetail("field", "items")
	}
	if c.DiscountAmount.IsNegative() {
		return apperror.NewValidation("discount amount cannot be negative").WithDetail("field", "discountAmount")
	}
	if c.UserID == "" {
		return apperror.NewValidation("user is required").WithDetail("field", "userId")
	}

	for i, line := range c.Items {
		lineNo := i + 1
		field := func(name string) string { return fmt.Sprintf("items[%d].%s", i, name) }

		switch {
		case id.IsNil(line.ProductID):
			return apperror.NewValidation("product is required").
				WithDetail("field", field("productId")).WithDetail("lineNo", lineNo)
		case line.Quantity <= 0:
			return apperror.NewValidation("quantity must be greater than 0").
				WithDetail("field", field("quantity")).WithDetail("lineNo", lineNo)
		case !line.UnitPrice.IsPositive():
			return apperror.NewValidation("unit price must be greater than 0").
				WithDetail("field", field("unitPrice")).WithDetail("lineNo", lineNo)
		case line.DiscountAmount.IsNegative():
			return apperror.NewValidation("discount amount cannot be negative").
				WithDetail("field", field("discountAmount")).WithDetail("lineNo", lineNo)
		}
	}
	return nil
}
