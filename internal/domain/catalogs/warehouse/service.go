package warehouse

import (
	"context"
	"fmt"

	"novaerp/internal/core/apperror"
	"novaerp/internal/core/id"
	"novaerp/internal/core/tx"
	"novaerp/internal/domain"
)

// Service provides business logic for the Warehouse catalog.
type Service struct {
	*domain.CatalogService[*Warehouse]
	repo Repository
}

// NewService creates a new Warehouse service.
func NewService(repo Repository, txManager tx.Manager) *Service {
	return &Service{
		CatalogService: domain.NewCatalogService(domain.CatalogServiceConfig[*Warehouse]{
			Repo:       repo,
			TxManager:  txManager,
			EntityName: "warehouse",
		}),
		repo: repo,
	}
}

// ListActive returns operational warehouses.
func (s *Service) ListActive(ctx context.Context) ([]*Warehouse, error) {
	return s.repo.ListActive(ctx)
}

// Resolve returns the requested warehouse, or the first active one when
// requested is nil. A missing requested warehouse is NotFound; no active
// warehouse at all is NoActiveWarehouse.
func Resolve(ctx context.Context, repo Repository, requested *id.ID) (*Warehouse, error) {
	if requested != nil && !id.IsNil(*requested) {
		wh, err := repo.GetByID(ctx, *requested)
		if err != nil {
			if apperror.IsNotFound(err) {
				return nil, apperror.NewNotFound("warehouse", requested.String())
			}
			return nil, fmt.Errorf("get warehouse: %w", err)
		}
		return wh, nil
	}

	active, err := repo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active warehouses: %w", err)
	}
	if len(active) == 0 {
		return nil, apperror.NewNoActiveWarehouse()
	}
	return active[0], nil
}
