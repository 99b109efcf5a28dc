package register_repo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"novaerp/internal/core/id"
	"novaerp/internal/domain/registers/stock"
)

func TestHistoryQuery(t *testing.T) {
	repo := NewStockRepo(nil)
	productID := id.New()
	out := stock.MovementOut

	sql, args, err := repo.historyQuery(stock.MovementFilter{
		ProductID: &productID,
		Type:      &out,
		Limit:     25,
		Offset:    50,
	}).ToSql()
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT id, product_id, warehouse_id, movement_type, quantity, cost_at_time, note, created_by, created_at, reference_id "+
			"FROM stock_movements WHERE product_id = $1 AND movement_type = $2 ORDER BY seq DESC LIMIT 25 OFFSET 50",
		sql)
	assert.Equal(t, []any{productID, "out"}, args)
}

func TestHistoryQuery_NoFilter(t *testing.T) {
	repo := NewStockRepo(nil)

	sql, args, err := repo.historyQuery(stock.MovementFilter{}).ToSql()
	require.NoError(t, err)

	assert.Contains(t, sql, "FROM stock_movements ORDER BY seq DESC")
	assert.NotContains(t, sql, "WHERE")
	assert.Empty(t, args)
}
