package delivery

import (
	"github.com/google/uuid"

	"github.com/stocktide/stocktide/internal/orderflow"
)

// CreateDeliveryOrderRequest opens a shipment for a sales order. When Lines
// is empty the shipment covers everything picked but not yet shipped.
type CreateDeliveryOrderRequest struct {
	SalesOrderID    uuid.UUID               `json:"sales_order_id" validate:"required"`
	Carrier         *string                 `json:"carrier,omitempty" validate:"omitempty,max=120"`
	TrackingNumber  *string                 `json:"tracking_number,omitempty" validate:"omitempty,max=120"`
	ShippingAddress *string                 `json:"shipping_address,omitempty" validate:"omitempty,max=500"`
	Notes           *string                 `json:"notes,omitempty" validate:"omitempty,max=2000"`
	Lines           []CreateDeliveryLineReq `json:"lines,omitempty" validate:"omitempty,dive"`
}

// CreateDeliveryLineReq picks one order line and a quantity to ship.
type CreateDeliveryLineReq struct {
	SalesOrderLineID uuid.UUID `json:"sales_order_line_id" validate:"required"`
	Quantity         float64   `json:"quantity" validate:"required,gt=0"`
}

// UpdateDeliveryOrderRequest edits header fields while the order is editable.
type UpdateDeliveryOrderRequest struct {
	Carrier         *string `json:"carrier,omitempty" validate:"omitempty,max=120"`
	TrackingNumber  *string `json:"tracking_number,omitempty" validate:"omitempty,max=120"`
	ShippingAddress *string `json:"shipping_address,omitempty" validate:"omitempty,max=500"`
	Notes           *string `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

// UpdateStatusRequest asks for a lifecycle transition. Reason is required
// when moving to failed.
type UpdateStatusRequest struct {
	Status orderflow.DeliveryOrderStatus `json:"status" validate:"required,oneof=draft ready dispatched in_transit delivered partial failed returned cancelled"`
	Reason *string                       `json:"reason,omitempty" validate:"omitempty,max=500"`
}

// RecordDeliveryRequest confirms a received quantity on one line.
type RecordDeliveryRequest struct {
	Quantity float64 `json:"quantity" validate:"gte=0"`
}

// ListDeliveryOrdersRequest filters the listing.
type ListDeliveryOrdersRequest struct {
	SalesOrderID *uuid.UUID
	Status       string
	Page         int
	PerPage      int
}
