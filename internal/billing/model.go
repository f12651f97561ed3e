package billing

import (
	"time"

	"github.com/google/uuid"

	"github.com/stocktide/stocktide/internal/orderflow"
)

// Invoice is a standard invoice or a credit note; credit notes carry a
// negative total and point at the invoice they credit.
type Invoice struct {
	ID                uuid.UUID               `json:"id"`
	TenantID          uuid.UUID               `json:"tenant_id"`
	DisplayID         string                  `json:"display_id"`
	Type              orderflow.InvoiceType   `json:"type"`
	Status            orderflow.InvoiceStatus `json:"status"`
	SalesOrderID      *uuid.UUID              `json:"sales_order_id,omitempty"`
	CustomerID        *uuid.UUID              `json:"customer_id,omitempty"`
	CustomerName      *string                 `json:"customer_name,omitempty"`
	OriginalInvoiceID *uuid.UUID              `json:"original_invoice_id,omitempty"`
	IssueDate         time.Time               `json:"issue_date"`
	DueDate           *time.Time              `json:"due_date,omitempty"`
	Subtotal          float64                 `json:"subtotal"`
	DiscountAmount    float64                 `json:"discount_amount"`
	TaxAmount         float64                 `json:"tax_amount"`
	Total             float64                 `json:"total"`
	AmountPaid        float64                 `json:"amount_paid"`
	BalanceDue        float64                 `json:"balance_due"`
	Notes             *string                 `json:"notes,omitempty"`
	SentAt            *time.Time              `json:"sent_at,omitempty"`
	PaidAt            *time.Time              `json:"paid_at,omitempty"`
	VoidedAt          *time.Time              `json:"voided_at,omitempty"`
	CreatedBy         uuid.UUID               `json:"created_by"`
	CreatedAt         time.Time               `json:"created_at"`
	UpdatedAt         time.Time               `json:"updated_at"`
	Lines             []InvoiceLine           `json:"lines,omitempty"`
}

// LedgerState snapshots the payment-relevant fields.
func (i *Invoice) LedgerState() orderflow.LedgerState {
	return orderflow.LedgerState{
		Type:       i.Type,
		Status:     i.Status,
		Total:      i.Total,
		AmountPaid: i.AmountPaid,
		BalanceDue: i.BalanceDue,
	}
}

// Active reports whether the invoice still counts against its sales order.
func (i *Invoice) Active() bool {
	return i.Status != orderflow.InvoiceStatusCancelled && i.Status != orderflow.InvoiceStatusVoid
}

// InvoiceLine is an immutable snapshot; edits to items or order lines after
// invoicing never reach issued documents.
type InvoiceLine struct {
	ID               uuid.UUID  `json:"id"`
	InvoiceID        uuid.UUID  `json:"invoice_id"`
	TenantID         uuid.UUID  `json:"tenant_id"`
	SalesOrderLineID *uuid.UUID `json:"sales_order_line_id,omitempty"`
	ItemID           *uuid.UUID `json:"item_id,omitempty"`
	Description      string     `json:"description"`
	Quantity         float64    `json:"quantity"`
	UnitPrice        float64    `json:"unit_price"`
	DiscountPercent  float64    `json:"discount_percent"`
	TaxRate          float64    `json:"tax_rate"`
	Subtotal         float64    `json:"subtotal"`
	DiscountAmount   float64    `json:"discount_amount"`
	TaxAmount        float64    `json:"tax_amount"`
	LineTotal        float64    `json:"line_total"`
	Position         int        `json:"position"`
	CreatedAt        time.Time  `json:"created_at"`
}

// Payment is one recorded receipt against an invoice.
type Payment struct {
	ID             uuid.UUID               `json:"id"`
	TenantID       uuid.UUID               `json:"tenant_id"`
	InvoiceID      uuid.UUID               `json:"invoice_id"`
	Amount         float64                 `json:"amount"`
	Method         orderflow.PaymentMethod `json:"method"`
	Reference      *string                 `json:"reference,omitempty"`
	Notes          *string                 `json:"notes,omitempty"`
	PaidAt         time.Time               `json:"paid_at"`
	IdempotencyKey *string                 `json:"-"`
	RecordedBy     uuid.UUID               `json:"recorded_by"`
	CreatedAt      time.Time               `json:"created_at"`
}
