package sale

import (
	"time"

	"novaerp/internal/core/id"
	"novaerp/internal/core/types"
)

// Receipt is the customer-facing summary of a persisted sale.
type Receipt struct {
	SaleID         id.ID         `json:"saleId"`
	SaleNumber     string        `json:"saleNumber"`
	SaleDate       time.Time     `json:"saleDate"`
	CustomerName   string        `json:"customerName"`
	SubTotal       types.Money   `json:"subTotal"`
	DiscountAmount types.Money   `json:"discountAmount"`
	FinalAmount    types.Money   `json:"finalAmount"`
	Items          []ReceiptLine `json:"items"`
	Notes          string        `json:"notes,omitempty"`
}

// ReceiptLine is one printed receipt line.
type ReceiptLine struct {
	LineNo         int         `json:"lineNo"`
	ProductID      id.ID       `json:"productId"`
	ProductName    string      `json:"productName"`
	Quantity       int         `json:"quantity"`
	UnitPrice      types.Money `json:"unitPrice"`
	DiscountAmount types.Money `json:"discountAmount"`
	LineTotal      types.Money `json:"lineTotal"`
}

// NewReceipt maps a persisted sale. productNames may miss entries; the line
// then prints without a name.
func NewReceipt(s *Sale, customerName string, productNames map[id.ID]string) *Receipt {
	r := &Receipt{
		SaleID:         s.ID,
		SaleNumber:     s.Number,
		SaleDate:       s.SaleDate,
		CustomerName:   customerName,
		SubTotal:       s.TotalAmount,
		DiscountAmount: s.DiscountAmount,
		FinalAmount:    s.FinalAmount,
		Items:          make([]ReceiptLine, len(s.Items)),
	}
	if s.Notes != nil {
		r.Notes = *s.Notes
	}
	for i, item := range s.Items {
		r.Items[i] = ReceiptLine{
			LineNo:         item.LineNo,
			ProductID:      item.ProductID,
			ProductName:    productNames[item.ProductID],
			Quantity:       item.Quantity,
			UnitPrice:      item.UnitPrice,
			DiscountAmount: item.DiscountAmount,
			LineTotal:      item.LineTotal,
		}
	}
	return r
}
