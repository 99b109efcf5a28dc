// Package sale provides the Sale document and the checkout orchestrator.
package sale

import (
	"context"
	"time"

	"novaerp/internal/core/apperror"
	"novaerp/internal/core/entity"
	"novaerp/internal/core/id"
	"novaerp/internal/core/types"
)

// Status is the lifecycle state of a sale.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Sale is a completed checkout. It is created together with its items and
// never edited afterwards.
type Sale struct {
	entity.BaseEntity

	Number   string    `db:"sale_number" json:"saleNumber"`
	SaleDate time.Time `db:"sale_date" json:"saleDate"`
	Status   Status    `db:"status" json:"status"`

	// TotalAmount is the sum of line totals
	TotalAmount types.Money `db:"total_amount" json:"totalAmount"`

	// DiscountAmount is the sale-level discount
	DiscountAmount types.Money `db:"discount_amount" json:"discountAmount"`

	// FinalAmount = TotalAmount - DiscountAmount
	FinalAmount types.Money `db:"final_amount" json:"finalAmount"`

	CustomerID id.ID   `db:"customer_id" json:"customerId"`
	UserID     string  `db:"user_id" json:"userId"`
	Notes      *string `db:"notes" json:"notes,omitempty"`

	Items []Item `db:"-" json:"items"`
}

// Item is an immutable sale line.
type Item struct {
	ID        id.ID `db:"id" json:"id"`
	SaleID    id.ID `db:"sale_id" json:"saleId"`
	LineNo    int   `db:"line_no" json:"lineNo"`
	ProductID id.ID `db:"product_id" json:"productId"`
	Quantity  int   `db:"quantity" json:"quantity"`

	UnitPrice      types.Money `db:"unit_price" json:"unitPrice"`
	DiscountAmount types.Money `db:"discount_amount" json:"discountAmount"`
	LineTotal      types.Money `db:"line_total" json:"lineTotal"`

	// CostAtTime is the product cost frozen when the sale was made
	CostAtTime types.Money `db:"cost_at_time" json:"costAtTime"`
}

// CalculateTotal sets LineTotal = UnitPrice * Quantity - DiscountAmount.
func (i *Item) CalculateTotal() {
	i.LineTotal = types.Times(i.UnitPrice, i.Quantity).Sub(i.DiscountAmount)
}

// Recalculate derives the header totals from the items.
// Caller-supplied totals are never trusted.
func (s *Sale) Recalculate() {
	total := types.Zero()
	for i := range s.Items {
		s.Items[i].CalculateTotal()
		total = total.Add(s.Items[i].LineTotal)
	}
	s.TotalAmount = total
	s.FinalAmount = total.Sub(s.DiscountAmount)
}

// Validate implements entity.Validatable interface.
func (s *Sale) Validate(ctx context.Context) error {
	if len(s.Items) == 0 {
		return apperror.NewValidation("sale must contain at least one item").WithDetail("field", "items")
	}
	if id.IsNil(s.CustomerID) {
		return apperror.NewValidation("customer is required").WithDetail("field", "customerId")
	}
	for _, item := range s.Items {
		if item.Quantity <= 0 {
			return apperror.NewValidation("quantity must be greater than 0").
				WithDetail("field", "quantity").
				WithDetail("lineNo", item.LineNo)
		}
	}
	return nil
}

// CompletedPayload is the body of a sale.completed event.
type CompletedPayload struct {
	SaleID      id.ID       `json:"saleId"`
	SaleNumber  string      `json:"saleNumber"`
	CustomerID  id.ID       `json:"customerId"`
	UserID      string      `json:"userId"`
	ItemCount   int         `json:"itemCount"`
	FinalAmount types.Money `json:"finalAmount"`
	SaleDate    time.Time   `json:"saleDate"`
}
