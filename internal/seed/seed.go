// Package seed loads demo reference data: warehouses, customers and a
// product range with opening stock brought in through the ledger.
package seed

import (
	"context"
	"fmt"

	"novaerp/internal/app"
	"novaerp/internal/core/types"
	"novaerp/internal/domain"
	"novaerp/internal/domain/catalogs/customer"
	"novaerp/internal/domain/catalogs/product"
	"novaerp/internal/domain/catalogs/warehouse"
	"novaerp/internal/domain/registers/stock"
	"novaerp/pkg/logger"
)

// UserID is recorded on the opening supply movements.
const UserID = "seed"

// Result counts what Run created.
type Result struct {
	Warehouses int
	Customers  int
	Products   int
	Supplies   int
}

// Options tunes the demo data.
type Options struct {
	ProductCount  int
	OpeningStock  int
	MinStockLevel int
}

// DefaultOptions mirrors the stock demo catalog.
func DefaultOptions() Options {
	return Options{ProductCount: 10, OpeningStock: 50, MinStockLevel: 5}
}

// Run inserts each group only when its catalog is empty, so it can run
// against an already seeded store.
func Run(ctx context.Context, svc *app.Services, opts Options) (Result, error) {
	var res Result

	if empty, err := isEmpty(ctx, svc.Warehouses.List); err != nil {
		return res, err
	} else if empty {
		for _, w := range []struct{ name, address string }{
			{"Main Warehouse", "Baku, Center"},
			{"Baku Mall Branch", "Baku Mall, 3rd Floor"},
		} {
			wh := warehouse.NewWarehouse(w.name)
			wh.Address = ptr(w.address)
			if err := svc.Warehouses.Create(ctx, wh); err != nil {
				return res, fmt.Errorf("seed warehouse %q: %w", w.name, err)
			}
			res.Warehouses++
		}
	}

	if empty, err := isEmpty(ctx, svc.Customers.List); err != nil {
		return res, err
	} else if empty {
		for _, c := range []struct{ name, phone, email, address string }{
			{"Walk-in Customer", "000-000-0000", "guest@nova.com", ""},
			{"Corporate Client Ltd", "012-111-2222", "corp@client.com", "Business City"},
			{"Loyal Customer", "050-555-4433", "loyal@gmail.com", ""},
		} {
			cust := customer.NewCustomer(c.name)
			cust.Phone = ptr(c.phone)
			cust.Email = ptr(c.email)
			if c.address != "" {
				cust.Address = ptr(c.address)
			}
			if err := svc.Customers.Create(ctx, cust); err != nil {
				return res, fmt.Errorf("seed customer %q: %w", c.name, err)
			}
			res.Customers++
		}
	}

	if empty, err := isEmpty(ctx, svc.Products.List); err != nil {
		return res, err
	} else if empty {
		for i := 1; i <= opts.ProductCount; i++ {
			p := product.NewProduct(
				fmt.Sprintf("Product %d", i),
				fmt.Sprintf("SKU-%d", 1000+i),
				types.NewMoneyFromInt(int64(100*i)),
				types.NewMoneyFromInt(int64(80*i)),
			)
			p.MinStockLevel = opts.MinStockLevel
			p.Description = ptr(fmt.Sprintf("Description for Product %d", i))
			if err := svc.Products.Create(ctx, p); err != nil {
				return res, fmt.Errorf("seed product %q: %w", p.Name, err)
			}
			res.Products++

			if opts.OpeningStock <= 0 {
				continue
			}
			if _, err := svc.Stock.Supply(ctx, stock.SupplyCommand{
				ProductID: p.ID,
				Quantity:  opts.OpeningStock,
				CostPrice: p.Cost,
				Note:      "opening stock",
				UserID:    UserID,
			}); err != nil {
				return res, fmt.Errorf("seed stock for %q: %w", p.Name, err)
			}
			res.Supplies++
		}
	}

	logger.Info(ctx, "seed complete",
		"warehouses", res.Warehouses,
		"customers", res.Customers,
		"products", res.Products,
		"supplies", res.Supplies,
	)
	return res, nil
}

func isEmpty[T any](ctx context.Context, list func(context.Context, domain.ListFilter) (domain.ListResult[T], error)) (bool, error) {
	filter := domain.DefaultListFilter()
	filter.Limit = 1
	res, err := list(ctx, filter)
	if err != nil {
		return false, fmt.Errorf("check seeded data: %w", err)
	}
	return res.TotalCount == 0, nil
}

func ptr(s string) *string { return &s }
