package handlers

import (
	"github.com/gin-gonic/gin"

	"novaerp/internal/core/apperror"
	"novaerp/internal/domain/registers/stock"
	"novaerp/internal/infrastructure/http/v1/dto"
)

// StockHandler handles HTTP requests for the stock ledger.
type StockHandler struct {
	*BaseHandler
	service *stock.Service
}

// NewStockHandler creates a new stock handler.
func NewStockHandler(base *BaseHandler, service *stock.Service) *StockHandler {
	return &StockHandler{
		BaseHandler: base,
		service:     service,
	}
}

// CreateMovement handles POST /stock/movements
func (h *StockHandler) CreateMovement(c *gin.Context) {
	var req dto.StockMovementRequest
	if !h.BindJSON(c, &req) {
		return
	}

	cmd, err := req.ToCommand(h.GetUserID(c))
	if err != nil {
		h.Error(c, err)
		return
	}

	movement, err := h.service.ProcessMovement(c.Request.Context(), cmd)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, dto.FromStockMovement(*movement))
}

// Supply handles POST /stock/supply
func (h *StockHandler) Supply(c *gin.Context) {
	var req dto.SupplyRequest
	if !h.BindJSON(c, &req) {
		return
	}

	cmd, err := req.ToCommand(h.GetUserID(c))
	if err != nil {
		h.Error(c, err)
		return
	}

	movement, err := h.service.Supply(c.Request.Context(), cmd)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, dto.FromStockMovement(*movement))
}

// GetMovements handles GET /stock/movements
func (h *StockHandler) GetMovements(c *gin.Context) {
	var (
		filter stock.MovementFilter
		ok     bool
	)
	if filter.Limit, filter.Offset, ok = h.ParsePageQuery(c, 100); !ok {
		return
	}
	if filter.ProductID, ok = h.ParseIDQuery(c, "productId"); !ok {
		return
	}
	if filter.WarehouseID, ok = h.ParseIDQuery(c, "warehouseId"); !ok {
		return
	}
	if filter.FromDate, ok = h.ParseTimeQuery(c, "from"); !ok {
		return
	}
	if filter.ToDate, ok = h.ParseTimeQuery(c, "to"); !ok {
		return
	}
	if raw := c.Query("type"); raw != "" {
		movementType, err := stock.ParseMovementType(raw)
		if err != nil {
			h.Error(c, err)
			return
		}
		filter.Type = &movementType
	}

	movements, err := h.service.History(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	resp := dto.StockMovementListResponse{
		Items:  make([]dto.StockMovementResponse, len(movements)),
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}
	for i, m := range movements {
		resp.Items[i] = dto.FromStockMovement(m)
	}
	h.OK(c, resp)
}

// GetAvailability handles GET /stock/availability/:productId?quantity=
func (h *StockHandler) GetAvailability(c *gin.Context) {
	productID, ok := h.ParseIDParam(c, "productId")
	if !ok {
		return
	}

	quantity := h.ParseIntQuery(c, "quantity", 1)
	if quantity <= 0 {
		h.Error(c, apperror.NewValidation("quantity must be greater than 0").WithDetail("field", "quantity"))
		return
	}

	available, err := h.service.CheckAvailability(c.Request.Context(), productID, quantity)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.AvailabilityResponse{
		ProductID: productID.String(),
		Quantity:  quantity,
		Available: available,
	})
}

// Reconcile handles GET /stock/reconcile/:productId
func (h *StockHandler) Reconcile(c *gin.Context) {
	productID, ok := h.ParseIDParam(c, "productId")
	if !ok {
		return
	}

	rec, err := h.service.Reconcile(c.Request.Context(), productID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, rec)
}
