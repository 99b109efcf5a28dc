package dto

import (
	"novaerp/internal/core/id"
	"novaerp/internal/core/types"
	"novaerp/internal/domain/catalogs/customer"
	"novaerp/internal/domain/catalogs/product"
	"novaerp/internal/domain/catalogs/warehouse"
)

// --- Products ---

// CreateProductRequest is the request body for creating a product.
// StockQuantity is accepted only so a non-zero opening balance can be rejected;
// stock is received through POST /stock/supply.
type CreateProductRequest struct {
	Name          string      `json:"name" binding:"required"`
	SKU           string      `json:"sku" binding:"required"`
	Description   *string     `json:"description"`
	Price         types.Money `json:"price"`
	Cost          types.Money `json:"cost"`
	StockQuantity int         `json:"stockQuantity"`
	MinStockLevel int         `json:"minStockLevel"`
	IsActive      *bool       `json:"isActive"`
}

// ToEntity converts DTO to domain entity.
func (r CreateProductRequest) ToEntity() *product.Product {
	p := product.NewProduct(r.Name, r.SKU, r.Price, r.Cost)
	p.Description = r.Description
	p.StockQuantity = r.StockQuantity
	p.MinStockLevel = r.MinStockLevel
	if r.IsActive != nil {
		p.IsActive = *r.IsActive
	}
	return p
}

// UpdateProductRequest is the request body for PUT /products/:id.
// StockQuantity may be echoed back but must match the current balance.
type UpdateProductRequest struct {
	Version       int         `json:"version" binding:"required,min=1"`
	Name          string      `json:"name" binding:"required"`
	SKU           string      `json:"sku" binding:"required"`
	Description   *string     `json:"description"`
	Price         types.Money `json:"price"`
	Cost          types.Money `json:"cost"`
	StockQuantity *int        `json:"stockQuantity"`
	MinStockLevel int         `json:"minStockLevel"`
	IsActive      *bool       `json:"isActive"`
}

// ToCommand converts DTO to the update command for productID.
func (r UpdateProductRequest) ToCommand(productID id.ID) product.UpdateCommand {
	cmd := product.UpdateCommand{
		ID:            productID,
		Version:       r.Version,
		Name:          r.Name,
		SKU:           r.SKU,
		Description:   r.Description,
		Price:         r.Price,
		Cost:          r.Cost,
		StockQuantity: r.StockQuantity,
		MinStockLevel: r.MinStockLevel,
		IsActive:      true,
	}
	if r.IsActive != nil {
		cmd.IsActive = *r.IsActive
	}
	return cmd
}

// ProductResponse is the response body for a product.
type ProductResponse struct {
	BaseResponse
	Name          string      `json:"name"`
	SKU           string      `json:"sku"`
	Description   *string     `json:"description,omitempty"`
	Price         types.Money `json:"price"`
	Cost          types.Money `json:"cost"`
	StockQuantity int         `json:"stockQuantity"`
	MinStockLevel int         `json:"minStockLevel"`
	IsLowStock    bool        `json:"isLowStock"`
	IsActive      bool        `json:"isActive"`
}

// FromProduct creates response DTO from domain entity.
func FromProduct(p *product.Product) ProductResponse {
	return ProductResponse{
		BaseResponse: BaseResponse{
			ID:        p.ID.String(),
			Version:   p.Version,
			CreatedAt: p.CreatedAt,
			UpdatedAt: p.UpdatedAt,
		},
		Name:          p.Name,
		SKU:           p.SKU,
		Description:   p.Description,
		Price:         p.Price,
		Cost:          p.Cost,
		StockQuantity: p.StockQuantity,
		MinStockLevel: p.MinStockLevel,
		IsLowStock:    p.IsLowStock(),
		IsActive:      p.IsActive,
	}
}

// --- Warehouses ---

// CreateWarehouseRequest is the request body for creating a warehouse.
type CreateWarehouseRequest struct {
	Name     string  `json:"name" binding:"required"`
	Address  *string `json:"address"`
	IsActive *bool   `json:"isActive"`
}

// ToEntity converts DTO to domain entity.
func (r CreateWarehouseRequest) ToEntity() *warehouse.Warehouse {
	wh := warehouse.NewWarehouse(r.Name)
	wh.Address = r.Address
	if r.IsActive != nil {
		wh.IsActive = *r.IsActive
	}
	return wh
}

// WarehouseResponse is the response body for a warehouse.
type WarehouseResponse struct {
	BaseResponse
	Name     string  `json:"name"`
	Address  *string `json:"address,omitempty"`
	IsActive bool    `json:"isActive"`
}

// FromWarehouse creates response DTO from domain entity.
func FromWarehouse(wh *warehouse.Warehouse) WarehouseResponse {
	return WarehouseResponse{
		BaseResponse: BaseResponse{
			ID:        wh.ID.String(),
			Version:   wh.Version,
			CreatedAt: wh.CreatedAt,
			UpdatedAt: wh.UpdatedAt,
		},
		Name:     wh.Name,
		Address:  wh.Address,
		IsActive: wh.IsActive,
	}
}

// --- Customers ---

// CreateCustomerRequest is the request body for creating a customer.
type CreateCustomerRequest struct {
	Name    string  `json:"name" binding:"required"`
	Email   *string `json:"email"`
	Phone   *string `json:"phone"`
	Address *string `json:"address"`
}

// ToEntity converts DTO to domain entity.
func (r CreateCustomerRequest) ToEntity() *customer.Customer {
	c := customer.NewCustomer(r.Name)
	c.Email = r.Email
	c.Phone = r.Phone
	c.Address = r.Address
	return c
}

// CustomerResponse is the response body for a customer.
type CustomerResponse struct {
	BaseResponse
	Name     string  `json:"name"`
	Email    *string `json:"email,omitempty"`
	Phone    *string `json:"phone,omitempty"`
	Address  *string `json:"address,omitempty"`
	IsActive bool    `json:"isActive"`
}

// FromCustomer creates response DTO from domain entity.
func FromCustomer(c *customer.Customer) CustomerResponse {
	return CustomerResponse{
		BaseResponse: BaseResponse{
			ID:        c.ID.String(),
			Version:   c.Version,
			CreatedAt: c.CreatedAt,
			UpdatedAt: c.UpdatedAt,
		},
		Name:     c.Name,
		Email:    c.Email,
		Phone:    c.Phone,
		Address:  c.Address,
		IsActive: c.IsActive,
	}
}
