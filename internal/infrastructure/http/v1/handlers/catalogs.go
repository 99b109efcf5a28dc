package handlers

import (
	"github.com/gin-gonic/gin"

	"novaerp/internal/domain/catalogs/customer"
	"novaerp/internal/domain/catalogs/product"
	"novaerp/internal/domain/catalogs/warehouse"
	"novaerp/internal/infrastructure/http/v1/dto"
)

// WarehouseHandler serves the warehouse catalog.
type WarehouseHandler struct {
	*CatalogHandler[*warehouse.Warehouse, dto.CreateWarehouseRequest]
	service *warehouse.Service
}

// NewWarehouseHandler creates a new warehouse handler.
func NewWarehouseHandler(base *BaseHandler, service *warehouse.Service) *WarehouseHandler {
	return &WarehouseHandler{
		CatalogHandler: NewCatalogHandler(base, CatalogHandlerConfig[*warehouse.Warehouse, dto.CreateWarehouseRequest]{
			Service:      service,
			MapCreateDTO: func(req dto.CreateWarehouseRequest) *warehouse.Warehouse { return req.ToEntity() },
			MapToDTO:     func(wh *warehouse.Warehouse) any { return dto.FromWarehouse(wh) },
		}),
		service: service,
	}
}

// ListActive handles GET /warehouses/active
func (h *WarehouseHandler) ListActive(c *gin.Context) {
	items, err := h.service.ListActive(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}

	resp := make([]dto.WarehouseResponse, len(items))
	for i, wh := range items {
		resp[i] = dto.FromWarehouse(wh)
	}
	h.OK(c, gin.H{"items": resp})
}

// ProductHandler serves the product catalog.
type ProductHandler struct {
	*CatalogHandler[*product.Product, dto.CreateProductRequest]
	service *product.Service
}

// NewProductHandler creates a new product handler.
func NewProductHandler(base *BaseHandler, service *product.Service) *ProductHandler {
	return &ProductHandler{
		CatalogHandler: NewCatalogHandler(base, CatalogHandlerConfig[*product.Product, dto.CreateProductRequest]{
			Service:      service,
			MapCreateDTO: func(req dto.CreateProductRequest) *product.Product { return req.ToEntity() },
			MapToDTO:     func(p *product.Product) any { return dto.FromProduct(p) },
		}),
		service: service,
	}
}

// Update handles PUT /products/:id
func (h *ProductHandler) Update(c *gin.Context) {
	productID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateProductRequest
	if !h.BindJSON(c, &req) {
		return
	}

	p, err := h.service.Update(c.Request.Context(), req.ToCommand(productID))
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromProduct(p))
}

// Delete handles DELETE /products/:id
func (h *ProductHandler) Delete(c *gin.Context) {
	productID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), productID); err != nil {
		h.Error(c, err)
		return
	}

	h.NoContent(c)
}

// CustomerHandler serves the customer catalog.
type CustomerHandler = CatalogHandler[*customer.Customer, dto.CreateCustomerRequest]

// NewCustomerHandler creates a new customer handler.
func NewCustomerHandler(base *BaseHandler, service *customer.Service) *CustomerHandler {
	return NewCatalogHandler(base, CatalogHandlerConfig[*customer.Customer, dto.CreateCustomerRequest]{
		Service:      service,
		MapCreateDTO: func(req dto.CreateCustomerRequest) *customer.Customer { return req.ToEntity() },
		MapToDTO:     func(c *customer.Customer) any { return dto.FromCustomer(c) },
	})
}
