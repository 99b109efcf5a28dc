// Package product provides the Product catalog.
// StockQuantity is a cached running balance of the stock ledger and is
// changed only through the stock register's Apply.
package product

import (
	"context"
	"strings"

	"novaerp/internal/core/apperror"
	"novaerp/internal/core/entity"
	"novaerp/internal/core/types"
)

// Product is a sellable item with a global stock balance.
type Product struct {
	entity.BaseEntity

	Name        string  `db:"name" json:"name"`
	SKU         string  `db:"sku" json:"sku"`
	Description *string `db:"description" json:"description,omitempty"`

	// Price is the default unit sale price
	Price types.Money `db:"price" json:"price"`

	// Cost is the latest inbound unit cost
	Cost types.Money `db:"cost" json:"cost"`

	// StockQuantity is never persisted negative
	StockQuantity int `db:"stock_quantity" json:"stockQuantity"`

	// MinStockLevel is the reorder threshold
	MinStockLevel int `db:"min_stock_level" json:"minStockLevel"`

	IsActive bool `db:"is_active" json:"isActive"`
}

// NewProduct creates an active Product with zero stock.
func NewProduct(name, sku string, price, cost types.Money) *Product {
	return &Product{
		BaseEntity: entity.NewBaseEntity(),
		Name:       name,
		SKU:        sku,
		Price:      price,
		Cost:       cost,
		IsActive:   true,
	}
}

// Validate implements entity.Validatable interface.
func (p *Product) Validate(ctx context.Context) error {
	if strings.TrimSpace(p.Name) == "" {
		return apperror.NewValidation("name is required").WithDetail("field", "name")
	}
	if strings.TrimSpace(p.SKU) == "" {
		return apperror.NewValidation("sku is required").WithDetail("field", "sku")
	}
	if p.Price.IsNegative() {
		return apperror.NewValidation("price cannot be negative").WithDetail("field", "price")
	}
	if p.Cost.IsNegative() {
		return apperror.NewValidation("cost cannot be negative").WithDetail("field", "cost")
	}
	if p.StockQuantity < 0 {
		return apperror.NewValidation("stock quantity cannot be negative").WithDetail("field", "stockQuantity")
	}
	if p.MinStockLevel < 0 {
		return apperror.NewValidation("minimum stock level cannot be negative").WithDetail("field", "minStockLevel")
	}
	return nil
}

// IsLowStock reports whether the balance has reached the reorder threshold.
func (p *Product) IsLowStock() bool {
	return p.StockQuantity <= p.MinStockLevel
}
