package orders

import (
	"github.com/google/uuid"

	"github.com/stocktide/stocktide/internal/orderflow"
)

// CreateSalesOrderRequest opens a draft order. Customer and lines are both
// optional at this stage; submission requires them.
type CreateSalesOrderRequest struct {
	CustomerID *uuid.UUID           `json:"customer_id,omitempty"`
	Notes      *string              `json:"notes,omitempty"`
	Lines      []CreateOrderLineReq `json:"lines,omitempty" validate:"dive"`
}

// CreateOrderLineReq adds one item to an order.
type CreateOrderLineReq struct {
	ItemID          uuid.UUID `json:"item_id" validate:"required"`
	Quantity        float64   `json:"quantity" validate:"required,gt=0"`
	UnitPrice       *float64  `json:"unit_price,omitempty" validate:"omitempty,gte=0"`
	DiscountPercent float64   `json:"discount_percent" validate:"gte=0,lte=100"`
	TaxRate         float64   `json:"tax_rate" validate:"gte=0,lte=100"`
}

// UpdateSalesOrderRequest edits header fields while the order is editable.
type UpdateSalesOrderRequest struct {
	CustomerID *uuid.UUID `json:"customer_id,omitempty"`
	Notes      *string    `json:"notes,omitempty"`
}

// UpdateOrderLineReq edits pricing or quantity on one line.
type UpdateOrderLineReq struct {
	Quantity        *float64 `json:"quantity,omitempty" validate:"omitempty,gt=0"`
	UnitPrice       *float64 `json:"unit_price,omitempty" validate:"omitempty,gte=0"`
	DiscountPercent *float64 `json:"discount_percent,omitempty" validate:"omitempty,gte=0,lte=100"`
	TaxRate         *float64 `json:"tax_rate,omitempty" validate:"omitempty,gte=0,lte=100"`
}

// UpdateStatusRequest asks for a status transition. Reason is required when
// cancelling.
type UpdateStatusRequest struct {
	Status orderflow.SalesOrderStatus `json:"status" validate:"required"`
	Reason *string                    `json:"reason,omitempty" validate:"omitempty,max=500"`
}

// ListSalesOrdersRequest filters the order listing.
type ListSalesOrdersRequest struct {
	CustomerID *uuid.UUID
	Status     orderflow.SalesOrderStatus
	Search     string
	Page       int
	PerPage    int
}
