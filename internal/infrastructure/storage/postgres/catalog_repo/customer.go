package catalog_repo

import (
	"novaerp/internal/domain/catalogs/customer"
	"novaerp/internal/infrastructure/storage/postgres"
)

const customerTable = "customers"

var _ customer.Repository = (*CustomerRepo)(nil)

// CustomerRepo implements customer.Repository.
type CustomerRepo struct {
	*BaseCatalogRepo[*customer.Customer]
}

// NewCustomerRepo creates a new customer repository.
func NewCustomerRepo(txManager *postgres.TxManager) *CustomerRepo {
	return &CustomerRepo{
		BaseCatalogRepo: NewBaseCatalogRepo(BaseConfig[*customer.Customer]{
			TxManager:  txManager,
			TableName:  customerTable,
			EntityName: "customer",
			SelectCols: postgres.ExtractDBColumns[customer.Customer](),
			SearchCols: []string{"name", "email"},
			NewFn:      func() *customer.Customer { return &customer.Customer{} },
		}),
	}
}
