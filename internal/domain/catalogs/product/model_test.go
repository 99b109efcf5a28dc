package product

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"novaerp/internal/core/apperror"
	"novaerp/internal/core/types"
)

func TestProduct_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *Product)
		field  string
	}{
		{"valid", func(p *Product) {}, ""},
		{"missing name", func(p *Product) { p.Name = " " }, "name"},
		{"missing sku", func(p *Product) { p.SKU = "" }, "sku"},
		{"negative price", func(p *Product) { p.Price = types.MustMoney("-1") }, "price"},
		{"negative cost", func(p *Product) { p.Cost = types.MustMoney("-0.01") }, "cost"},
		{"negative stock", func(p *Product) { p.StockQuantity = -1 }, "stockQuantity"},
		{"negative threshold", func(p *Product) { p.MinStockLevel = -5 }, "minStockLevel"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewProduct("Laptop", "LAP-001", types.MustMoney("999.99"), types.MustMoney("700"))
			tt.mutate(p)

			err := p.Validate(context.Background())
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			appErr, ok := apperror.AsAppError(err)
			if assert.True(t, ok) {
				assert.Equal(t, apperror.CodeValidation, appErr.Code)
				assert.Equal(t, tt.field, appErr.Details["field"])
			}
		})
	}
}

func TestProduct_IsLowStock(t *testing.T) {
	p := NewProduct("Mouse", "MOU-001", types.MustMoney("25"), types.MustMoney("10"))
	p.MinStockLevel = 5

	p.StockQuantity = 6
	assert.False(t, p.IsLowStock())
	p.StockQuantity = 5
	assert.True(t, p.IsLowStock())
}
