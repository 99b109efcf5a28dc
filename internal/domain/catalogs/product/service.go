package product

import (
	"context"
	"fmt"

	"novaerp/internal/core/apperror"
	"novaerp/internal/core/id"
	"novaerp/internal/core/tx"
	"novaerp/internal/core/types"
	"novaerp/internal/domain"
)

// Service provides business logic for the Product catalog.
type Service struct {
	*domain.CatalogService[*Product]

	repo      Repository
	txManager tx.Manager
}

// NewService creates a new Product service.
func NewService(repo Repository, txManager tx.Manager) *Service {
	return &Service{
		CatalogService: domain.NewCatalogService(domain.CatalogServiceConfig[*Product]{
			Repo:       repo,
			TxManager:  txManager,
			EntityName: "product",
		}),
		repo:      repo,
		txManager: txManager,
	}
}

// Create registers a new product. Opening stock must be recorded through a
// stock movement so the ledger stays the source of the balance.
func (s *Service) Create(ctx context.Context, p *Product) error {
	if p.StockQuantity != 0 {
		return apperror.NewValidation("opening stock must be recorded as a stock movement").
			WithDetail("field", "stockQuantity")
	}
	return s.CatalogService.Create(ctx, p)
}

// UpdateCommand replaces the descriptive fields of a product.
type UpdateCommand struct {
	ID      id.ID
	Version int

	Name          string
	SKU           string
	Description   *string
	Price         types.Money
	Cost          types.Money
	MinStockLevel int
	IsActive      bool

	// StockQuantity, when set, must equal the current balance
	StockQuantity *int
}

// Update rewrites a product's catalog fields. The balance is owned by the
// stock ledger, so a command that would change it is rejected.
func (s *Service) Update(ctx context.Context, cmd UpdateCommand) (*Product, error) {
	var updated *Product
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		current, err := s.lock(ctx, cmd.ID)
		if err != nil {
			return err
		}
		if current.Version != cmd.Version {
			return apperror.NewConcurrentModification("product", cmd.ID.String())
		}
		if cmd.StockQuantity != nil && *cmd.StockQuantity != current.StockQuantity {
			return apperror.NewValidation("stock quantity changes only through stock movements").
				WithDetail("field", "stockQuantity")
		}

		current.Name = cmd.Name
		current.SKU = cmd.SKU
		current.Description = cmd.Description
		current.Price = cmd.Price
		current.Cost = cmd.Cost
		current.MinStockLevel = cmd.MinStockLevel
		current.IsActive = cmd.IsActive

		if err := s.CatalogService.Update(ctx, current); err != nil {
			return err
		}
		updated = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes a product that has never been stocked or sold.
func (s *Service) Delete(ctx context.Context, productID id.ID) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.lock(ctx, productID); err != nil {
			return err
		}
		if err := s.repo.Delete(ctx, productID); err != nil {
			return fmt.Errorf("delete product: %w", err)
		}
		return nil
	})
}

func (s *Service) lock(ctx context.Context, productID id.ID) (*Product, error) {
	p, err := s.repo.GetForUpdate(ctx, productID)
	if apperror.IsNotFound(err) {
		return nil, apperror.NewNotFound("product", productID.String())
	}
	return p, err
}
