package dto

import (
	"time"

	"novaerp/internal/core/types"
	"novaerp/internal/domain/registers/stock"
)

// StockMovementRequest is the request body for a direct stock movement.
type StockMovementRequest struct {
	ProductID   string      `json:"productId" binding:"required"`
	WarehouseID string      `json:"warehouseId" binding:"required"`
	Type        string      `json:"type" binding:"required"`
	Quantity    int         `json:"quantity"`
	Cost        types.Money `json:"cost"`
	Note        string      `json:"note"`
}

// ToCommand converts the request into a domain command for userID.
func (r StockMovementRequest) ToCommand(userID string) (stock.MovementCommand, error) {
	productID, err := parseID("productId", r.ProductID)
	if err != nil {
		return stock.MovementCommand{}, err
	}
	warehouseID, err := parseID("warehouseId", r.WarehouseID)
	if err != nil {
		return stock.MovementCommand{}, err
	}
	movementType, err := stock.ParseMovementType(r.Type)
	if err != nil {
		return stock.MovementCommand{}, err
	}
	return stock.MovementCommand{
		ProductID:   productID,
		WarehouseID: warehouseID,
		Type:        movementType,
		Quantity:    r.Quantity,
		Cost:        r.Cost,
		Note:        r.Note,
		UserID:      userID,
	}, nil
}

// SupplyRequest is the request body for receiving goods.
type SupplyRequest struct {
	ProductID   string      `json:"productId" binding:"required"`
	WarehouseID *string     `json:"warehouseId"`
	Quantity    int         `json:"quantity"`
	CostPrice   types.Money `json:"costPrice"`
	Note        string      `json:"note"`
}

// ToCommand converts the request into a domain command for userID.
func (r SupplyRequest) ToCommand(userID string) (stock.SupplyCommand, error) {
	productID, err := parseID("productId", r.ProductID)
	if err != nil {
		return stock.SupplyCommand{}, err
	}
	warehouseID, err := parseOptionalID("warehouseId", r.WarehouseID)
	if err != nil {
		return stock.SupplyCommand{}, err
	}
	return stock.SupplyCommand{
		ProductID:   productID,
		WarehouseID: warehouseID,
		Quantity:    r.Quantity,
		CostPrice:   r.CostPrice,
		Note:        r.Note,
		UserID:      userID,
	}, nil
}

// StockMovementResponse represents stock movement in API responses.
type StockMovementResponse struct {
	ID          string      `json:"id"`
	ProductID   string      `json:"productId"`
	WarehouseID string      `json:"warehouseId"`
	Type        string      `json:"type"`
	Quantity    int         `json:"quantity"`
	CostAtTime  types.Money `json:"costAtTime"`
	Note        string      `json:"note,omitempty"`
	CreatedBy   string      `json:"createdBy"`
	CreatedAt   time.Time   `json:"createdAt"`
	ReferenceID *string     `json:"referenceId,omitempty"`
}

// FromStockMovement converts entity to response DTO.
func FromStockMovement(m stock.StockMovement) StockMovementResponse {
	resp := StockMovementResponse{
		ID:          m.ID.String(),
		ProductID:   m.ProductID.String(),
		WarehouseID: m.WarehouseID.String(),
		Type:        string(m.Type),
		Quantity:    m.Quantity,
		CostAtTime:  m.CostAtTime,
		Note:        m.Note,
		CreatedBy:   m.CreatedBy,
		CreatedAt:   m.CreatedAt,
	}
	if m.ReferenceID != nil {
		ref := m.ReferenceID.String()
		resp.ReferenceID = &ref
	}
	return resp
}

// StockMovementListResponse represents a list of stock movements.
type StockMovementListResponse struct {
	Items  []StockMovementResponse `json:"items"`
	Limit  int                     `json:"limit"`
	Offset int                     `json:"offset"`
}

// AvailabilityResponse answers whether a quantity can be sold now.
type AvailabilityResponse struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	Available bool   `json:"available"`
}
