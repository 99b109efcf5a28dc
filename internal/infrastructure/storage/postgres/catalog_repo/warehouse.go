package catalog_repo

import (
	"context"

	"github.com/Masterminds/squirrel"

	"novaerp/internal/domain/catalogs/warehouse"
	"novaerp/internal/infrastructure/storage/postgres"
)

const warehouseTable = "warehouses"

var _ warehouse.Repository = (*WarehouseRepo)(nil)

// WarehouseRepo implements warehouse.Repository.
type WarehouseRepo struct {
	*BaseCatalogRepo[*warehouse.Warehouse]
}

// NewWarehouseRepo creates a new warehouse repository.
func NewWarehouseRepo(txManager *postgres.TxManager) *WarehouseRepo {
	return &WarehouseRepo{
		BaseCatalogRepo: NewBaseCatalogRepo(BaseConfig[*warehouse.Warehouse]{
			TxManager:  txManager,
			TableName:  warehouseTable,
			EntityName: "warehouse",
			SelectCols: postgres.ExtractDBColumns[warehouse.Warehouse](),
			NewFn:      func() *warehouse.Warehouse { return &warehouse.Warehouse{} },
		}),
	}
}

// ListActive returns active warehouses in creation order.
func (r *WarehouseRepo) ListActive(ctx context.Context) ([]*warehouse.Warehouse, error) {
	return r.FindAll(ctx, r.activeQuery())
}

func (r *WarehouseRepo) activeQuery() squirrel.SelectBuilder {
	return r.baseSelect().
		Where(squirrel.Eq{"is_active": true}).
		OrderBy("created_at ASC", "id ASC")
}
