// Package warehouse provides the Warehouse catalog.
// A warehouse is recorded on every stock movement but does not partition
// stock: product balances are global.
package warehouse

import (
	"context"
	"strings"

	"novaerp/internal/core/apperror"
	"novaerp/internal/core/entity"
)

// Warehouse represents a storage location for goods.
type Warehouse struct {
	entity.BaseEntity

	Name string `db:"name" json:"name"`

	// Address is the physical address
	Address *string `db:"address" json:"address,omitempty"`

	// IsActive indicates if warehouse is operational
	IsActive bool `db:"is_active" json:"isActive"`
}

// NewWarehouse creates an active Warehouse.
func NewWarehouse(name string) *Warehouse {
	return &Warehouse{
		BaseEntity: entity.NewBaseEntity(),
		Name:       name,
		IsActive:   true,
	}
}

// Validate implements entity.Validatable interface.
func (w *Warehouse) Validate(ctx context.Context) error {
	if strings.TrimSpace(w.Name) == "" {
		return apperror.NewValidation("name is required").WithDetail("field", "name")
	}
	return nil
}
