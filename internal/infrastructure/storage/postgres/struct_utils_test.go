package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"novaerp/internal/core/entity"
	"novaerp/internal/core/types"
	"novaerp/internal/domain/catalogs/product"
)

type ledgerRow struct {
	ID       int    `db:"id"`
	Note     string `db:"note"`
	internal string
	Skipped  string `db:"-"`
}

func TestExtractDBColumns_EmbeddedBaseEntity(t *testing.T) {
	cols := ExtractDBColumns[product.Product]()

	assert.Equal(t, []string{
		"id", "version", "created_at", "updated_at",
		"name", "sku", "description", "price", "cost",
		"stock_quantity", "min_stock_level", "is_active",
	}, cols)
}

func TestExtractDBColumns_SkipsUntaggedFields(t *testing.T) {
	assert.Equal(t, []string{"id", "note"}, ExtractDBColumns[ledgerRow]())
}

func TestStructToMap(t *testing.T) {
	p := &product.Product{
		BaseEntity:    entity.NewBaseEntity(),
		Name:          "Laptop",
		SKU:           "LAP-1",
		Price:         types.MustMoney("999.90"),
		StockQuantity: 7,
		IsActive:      true,
	}
	p.Version = 5

	m := StructToMap(p)

	assert.Equal(t, p.ID, m["id"])
	assert.Equal(t, 5, m["version"])
	assert.Equal(t, "Laptop", m["name"])
	assert.Equal(t, 7, m["stock_quantity"])
	assert.Equal(t, true, m["is_active"])
	assert.True(t, types.MustMoney("999.90").Equal(m["price"].(types.Money)))
	assert.NotContains(t, m, "Items")

	// Second call hits the metadata cache and must agree.
	assert.Equal(t, m, StructToMap(p))
}
