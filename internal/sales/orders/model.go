// Package orders manages sales orders, the head of the order-to-cash chain.
// Status changes run through the orderflow transition table; line quantity
// counters obey the ordered ≥ allocated ≥ picked ≥ shipped ≥ delivered ≥
// invoiced pipeline.
package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/stocktide/stocktide/internal/orderflow"
)

// SalesOrder is a customer order.
type SalesOrder struct {
	ID                 uuid.UUID                  `json:"id"`
	TenantID           uuid.UUID                  `json:"tenant_id"`
	DisplayID          string                     `json:"display_id"`
	CustomerID         *uuid.UUID                 `json:"customer_id,omitempty"`
	Status             orderflow.SalesOrderStatus `json:"status"`
	PickListID         *uuid.UUID                 `json:"pick_list_id,omitempty"`
	Subtotal           float64                    `json:"subtotal"`
	DiscountAmount     float64                    `json:"discount_amount"`
	TaxAmount          float64                    `json:"tax_amount"`
	Total              float64                    `json:"total"`
	Notes              *string                    `json:"notes,omitempty"`
	SubmittedBy        *uuid.UUID                 `json:"submitted_by,omitempty"`
	SubmittedAt        *time.Time                 `json:"submitted_at,omitempty"`
	ConfirmedBy        *uuid.UUID                 `json:"confirmed_by,omitempty"`
	ConfirmedAt        *time.Time                 `json:"confirmed_at,omitempty"`
	CancelledBy        *uuid.UUID                 `json:"cancelled_by,omitempty"`
	CancelledAt        *time.Time                 `json:"cancelled_at,omitempty"`
	CancellationReason *string                    `json:"cancellation_reason,omitempty"`
	CreatedBy          uuid.UUID                  `json:"created_by"`
	CreatedAt          time.Time                  `json:"created_at"`
	UpdatedAt          time.Time                  `json:"updated_at"`
	Lines              []SalesOrderLine           `json:"lines,omitempty"`
}

// Editable reports whether header and lines may still be mutated.
func (o SalesOrder) Editable() bool {
	return o.Status == orderflow.SOStatusDraft || o.Status == orderflow.SOStatusSubmitted
}

// SalesOrderLine is one ordered item with its pipeline counters. ItemName and
// ItemSKU are snapshots taken at creation time.
type SalesOrderLine struct {
	ID                uuid.UUID `json:"id"`
	SalesOrderID      uuid.UUID `json:"sales_order_id"`
	TenantID          uuid.UUID `json:"tenant_id"`
	ItemID            uuid.UUID `json:"item_id"`
	ItemName          string    `json:"item_name"`
	ItemSKU           *string   `json:"item_sku,omitempty"`
	Quantity          float64   `json:"quantity"`
	QuantityAllocated float64   `json:"quantity_allocated"`
	QuantityPicked    float64   `json:"quantity_picked"`
	QuantityShipped   float64   `json:"quantity_shipped"`
	QuantityDelivered float64   `json:"quantity_delivered"`
	QuantityInvoiced  float64   `json:"quantity_invoiced"`
	UnitPrice         float64   `json:"unit_price"`
	DiscountPercent   float64   `json:"discount_percent"`
	TaxRate           float64   `json:"tax_rate"`
	Subtotal          float64   `json:"subtotal"`
	DiscountAmount    float64   `json:"discount_amount"`
	TaxAmount         float64   `json:"tax_amount"`
	LineTotal         float64   `json:"line_total"`
	Position          int       `json:"position"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Pipeline exposes the six counters for conservation checks.
func (l SalesOrderLine) Pipeline() orderflow.QuantityPipeline {
	return orderflow.QuantityPipeline{
		Ordered:   l.Quantity,
		Allocated: l.QuantityAllocated,
		Picked:    l.QuantityPicked,
		Shipped:   l.QuantityShipped,
		Delivered: l.QuantityDelivered,
		Invoiced:  l.QuantityInvoiced,
	}
}

// applyAmounts copies the computed breakdown onto the line.
func (l *SalesOrderLine) applyAmounts(a orderflow.LineAmounts) {
	l.Subtotal = a.Subtotal
	l.DiscountAmount = a.DiscountAmount
	l.TaxAmount = a.TaxAmount
	l.LineTotal = a.LineTotal
}
