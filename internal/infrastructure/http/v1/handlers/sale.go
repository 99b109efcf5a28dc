package handlers

import (
	"github.com/gin-gonic/gin"

	"novaerp/internal/domain/documents/sale"
	"novaerp/internal/infrastructure/http/v1/dto"
)

// SaleHandler handles HTTP requests for sales.
type SaleHandler struct {
	*BaseHandler
	service *sale.Service
}

// NewSaleHandler creates a new sale handler.
func NewSaleHandler(base *BaseHandler, service *sale.Service) *SaleHandler {
	return &SaleHandler{
		BaseHandler: base,
		service:     service,
	}
}

// Create handles POST /sales and returns the receipt.
func (h *SaleHandler) Create(c *gin.Context) {
	var req dto.CreateSaleRequest
	if !h.BindJSON(c, &req) {
		return
	}

	cmd, err := req.ToCommand(h.GetUserID(c))
	if err != nil {
		h.Error(c, err)
		return
	}

	receipt, err := h.service.ProcessSale(c.Request.Context(), cmd)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, receipt)
}

// List handles GET /sales
func (h *SaleHandler) List(c *gin.Context) {
	filter := sale.ListFilter{UserID: c.Query("userId")}

	var ok bool
	if filter.Limit, filter.Offset, ok = h.ParsePageQuery(c, 50); !ok {
		return
	}
	if filter.CustomerID, ok = h.ParseIDQuery(c, "customerId"); !ok {
		return
	}
	if filter.FromDate, ok = h.ParseTimeQuery(c, "from"); !ok {
		return
	}
	if filter.ToDate, ok = h.ParseTimeQuery(c, "to"); !ok {
		return
	}

	result, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]dto.SaleResponse, len(result.Items))
	for i, s := range result.Items {
		items[i] = dto.FromSale(s)
	}
	h.OK(c, dto.ListResponse{
		Items:      items,
		TotalCount: result.TotalCount,
		Limit:      result.Limit,
		Offset:     result.Offset,
	})
}

// Get handles GET /sales/:id
func (h *SaleHandler) Get(c *gin.Context) {
	saleID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	s, err := h.service.GetByID(c.Request.Context(), saleID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromSale(s))
}

// Receipt handles GET /sales/:id/receipt
func (h *SaleHandler) Receipt(c *gin.Context) {
	saleID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	receipt, err := h.service.Receipt(c.Request.Context(), saleID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, receipt)
}
