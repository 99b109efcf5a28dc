package dto

import (
	"fmt"
	"time"

	"novaerp/internal/core/types"
	"novaerp/internal/domain/documents/sale"
)

// CreateSaleRequest is the request body for POST /sales.
// Line and header validation happens in the domain command.
type CreateSaleRequest struct {
	CustomerID     string            `json:"customerId"`
	WarehouseID    *string           `json:"warehouseId"`
	DiscountAmount types.Money       `json:"discountAmount"`
	Notes          string            `json:"notes"`
	Items          []SaleItemRequest `json:"items"`
}

// SaleItemRequest is one requested sale line.
type SaleItemRequest struct {
	ProductID      string      `json:"productId"`
	Quantity       int         `json:"quantity"`
	UnitPrice      types.Money `json:"unitPrice"`
	DiscountAmount types.Money `json:"discountAmount"`
}

// ToCommand converts the request into a domain command for userID.
func (r CreateSaleRequest) ToCommand(userID string) (sale.ProcessCommand, error) {
	customerID, err := parseID("customerId", r.CustomerID)
	if err != nil {
		return sale.ProcessCommand{}, err
	}
	warehouseID, err := parseOptionalID("warehouseId", r.WarehouseID)
	if err != nil {
		return sale.ProcessCommand{}, err
	}

	cmd := sale.ProcessCommand{
		CustomerID:     customerID,
		WarehouseID:    warehouseID,
		DiscountAmount: r.DiscountAmount,
		Notes:          r.Notes,
		Items:          make([]sale.LineCommand, len(r.Items)),
		UserID:         userID,
	}
	for i, item := range r.Items {
		productID, err := parseID(fmt.Sprintf("items[%d].productId", i), item.ProductID)
		if err != nil {
			return sale.ProcessCommand{}, err
		}
		cmd.Items[i] = sale.LineCommand{
			ProductID:      productID,
			Quantity:       item.Quantity,
			UnitPrice:      item.UnitPrice,
			DiscountAmount: item.DiscountAmount,
		}
	}
	return cmd, nil
}

// SaleResponse represents a sale in API responses.
type SaleResponse struct {
	BaseResponse
	SaleNumber     string             `json:"saleNumber"`
	SaleDate       time.Time          `json:"saleDate"`
	Status         string             `json:"status"`
	TotalAmount    types.Money        `json:"totalAmount"`
	DiscountAmount types.Money        `json:"discountAmount"`
	FinalAmount    types.Money        `json:"finalAmount"`
	CustomerID     string             `json:"customerId"`
	UserID         string             `json:"userId"`
	Notes          *string            `json:"notes,omitempty"`
	Items          []SaleItemResponse `json:"items,omitempty"`
}

// SaleItemResponse represents a sale line in API responses.
type SaleItemResponse struct {
	ID             string      `json:"id"`
	LineNo         int         `json:"lineNo"`
	ProductID      string      `json:"productId"`
	Quantity       int         `json:"quantity"`
	UnitPrice      types.Money `json:"unitPrice"`
	DiscountAmount types.Money `json:"discountAmount"`
	LineTotal      types.Money `json:"lineTotal"`
	CostAtTime     types.Money `json:"costAtTime"`
}

// FromSale converts entity to response DTO. Items are omitted for list rows.
func FromSale(s *sale.Sale) SaleResponse {
	resp := SaleResponse{
		BaseResponse: BaseResponse{
			ID:        s.ID.String(),
			Version:   s.Version,
			CreatedAt: s.CreatedAt,
			UpdatedAt: s.UpdatedAt,
		},
		SaleNumber:     s.Number,
		SaleDate:       s.SaleDate,
		Status:         string(s.Status),
		TotalAmount:    s.TotalAmount,
		DiscountAmount: s.DiscountAmount,
		FinalAmount:    s.FinalAmount,
		CustomerID:     s.CustomerID.String(),
		UserID:         s.UserID,
		Notes:          s.Notes,
	}
	for _, item := range s.Items {
		resp.Items = append(resp.Items, SaleItemResponse{
			ID:             item.ID.String(),
			LineNo:         item.LineNo,
			ProductID:      item.ProductID.String(),
			Quantity:       item.Quantity,
			UnitPrice:      item.UnitPrice,
			DiscountAmount: item.DiscountAmount,
			LineTotal:      item.LineTotal,
			CostAtTime:     item.CostAtTime,
		})
	}
	return resp
}
