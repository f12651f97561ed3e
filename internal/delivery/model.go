package delivery

import (
	"time"

	"github.com/google/uuid"

	"github.com/stocktide/stocktide/internal/orderflow"
)

// DeliveryOrder is one physical shipment against a sales order.
type DeliveryOrder struct {
	ID              uuid.UUID                     `json:"id"`
	TenantID        uuid.UUID                     `json:"tenant_id"`
	DisplayID       string                        `json:"display_id"`
	SalesOrderID    uuid.UUID                     `json:"sales_order_id"`
	Status          orderflow.DeliveryOrderStatus `json:"status"`
	Carrier         *string                       `json:"carrier,omitempty"`
	TrackingNumber  *string                       `json:"tracking_number,omitempty"`
	ShippingAddress *string                       `json:"shipping_address,omitempty"`
	Notes           *string                       `json:"notes,omitempty"`
	DispatchedBy    *uuid.UUID                    `json:"dispatched_by,omitempty"`
	DispatchedAt    *time.Time                    `json:"dispatched_at,omitempty"`
	DeliveredAt     *time.Time                    `json:"delivered_at,omitempty"`
	FailureReason   *string                       `json:"failure_reason,omitempty"`
	CreatedBy       uuid.UUID                     `json:"created_by"`
	CreatedAt       time.Time                     `json:"created_at"`
	UpdatedAt       time.Time                     `json:"updated_at"`
	Lines           []DeliveryLine                `json:"lines,omitempty"`
}

// Editable reports whether header fields may still change.
func (d *DeliveryOrder) Editable() bool {
	return d.Status == orderflow.DOStatusDraft || d.Status == orderflow.DOStatusReady
}

// DeliveryLine ships part of one sales order line. QuantityDelivered is the
// confirmed receipt so far; AppliedDelivered is the portion already propagated
// to the sales order, so revisits between partial and delivered only push
// increments.
type DeliveryLine struct {
	ID                uuid.UUID  `json:"id"`
	DeliveryOrderID   uuid.UUID  `json:"delivery_order_id"`
	TenantID          uuid.UUID  `json:"tenant_id"`
	SalesOrderLineID  uuid.UUID  `json:"sales_order_line_id"`
	ItemID            uuid.UUID  `json:"item_id"`
	ItemName          string     `json:"item_name"`
	Quantity          float64    `json:"quantity"`
	QuantityDelivered float64    `json:"quantity_delivered"`
	AppliedDelivered  float64    `json:"-"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}
