// Package customer provides the Customer catalog.
package customer

import (
	"context"
	"regexp"
	"strings"

	"novaerp/internal/core/apperror"
	"novaerp/internal/core/entity"
	"novaerp/internal/core/tx"
	"novaerp/internal/domain"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Customer is the buyer recorded on a sale.
type Customer struct {
	entity.BaseEntity

	Name    string  `db:"name" json:"name"`
	Email   *string `db:"email" json:"email,omitempty"`
	Phone   *string `db:"phone" json:"phone,omitempty"`
	Address *string `db:"address" json:"address,omitempty"`

	IsActive bool `db:"is_active" json:"isActive"`
}

// NewCustomer creates an active Customer.
func NewCustomer(name string) *Customer {
	return &Customer{
		BaseEntity: entity.NewBaseEntity(),
		Name:       name,
		IsActive:   true,
	}
}

// Validate implements entity.Validatable interface.
func (c *Customer) Validate(ctx context.Context) error {
	if strings.TrimSpace(c.Name) == "" {
		return apperror.NewValidation("name is required").WithDetail("field", "name")
	}
	if c.Email != nil && *c.Email != "" && !emailPattern.MatchString(*c.Email) {
		return apperror.NewValidation("invalid email format").
			WithDetail("field", "email").
			WithDetail("value", *c.Email)
	}
	return nil
}

// Repository defines the interface for Customer persistence.
type Repository interface {
	domain.CatalogRepository[*Customer]
}

// Service provides business logic for the Customer catalog.
type Service struct {
	*domain.CatalogService[*Customer]
}

// NewService creates a new Customer service.
func NewService(repo Repository, txManager tx.Manager) *Service {
	return &Service{
		CatalogService: domain.NewCatalogService(domain.CatalogServiceConfig[*Customer]{
			Repo:       repo,
			TxManager:  txManager,
			EntityName: "customer",
		}),
	}
}
