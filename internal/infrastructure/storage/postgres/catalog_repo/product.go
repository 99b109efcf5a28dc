package catalog_repo

import (
	"novaerp/internal/domain/catalogs/product"
	"novaerp/internal/infrastructure/storage/postgres"
)

const productTable = "products"

var _ product.Repository = (*ProductRepo)(nil)

// ProductRepo implements product.Repository.
// GetForUpdate comes from the base repo and issues SELECT ... FOR UPDATE.
type ProductRepo struct {
	*BaseCatalogRepo[*product.Product]
}

// NewProductRepo creates a new product repository.
func NewProductRepo(txManager *postgres.TxManager) *ProductRepo {
	return &ProductRepo{
		BaseCatalogRepo: NewBaseCatalogRepo(BaseConfig[*product.Product]{
			TxManager:  txManager,
			TableName:  productTable,
			EntityName: "product",
			SelectCols: postgres.ExtractDBColumns[product.Product](),
			SearchCols: []string{"name", "sku"},
			NewFn:      func() *product.Product { return &product.Product{} },
		}),
	}
}
