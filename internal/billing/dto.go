package billing

import (
	"time"

	"github.com/google/uuid"

	"github.com/stocktide/stocktide/internal/orderflow"
)

// CreateInvoiceRequest opens a manual draft invoice.
type CreateInvoiceRequest struct {
	CustomerID *uuid.UUID             `json:"customer_id,omitempty"`
	IssueDate  *time.Time             `json:"issue_date,omitempty"`
	DueDate    *time.Time             `json:"due_date,omitempty"`
	Notes      *string                `json:"notes,omitempty" validate:"omitempty,max=2000"`
	Lines      []CreateInvoiceLineReq `json:"lines" validate:"required,min=1,dive"`
}

// CreateInvoiceLineReq describes one billed line. ItemID is optional; free
// text lines only need a description.
type CreateInvoiceLineReq struct {
	ItemID          *uuid.UUID `json:"item_id,omitempty"`
	Description     string     `json:"description" validate:"required,max=500"`
	Quantity        float64    `json:"quantity" validate:"required,gt=0"`
	UnitPrice       float64    `json:"unit_price" validate:"gte=0"`
	DiscountPercent float64    `json:"discount_percent" validate:"gte=0,lte=100"`
	TaxRate         float64    `json:"tax_rate" validate:"gte=0,lte=100"`
}

// CreateFromOrderRequest bills the delivered-but-uninvoiced remainder of a
// sales order.
type CreateFromOrderRequest struct {
	SalesOrderID uuid.UUID  `json:"sales_order_id" validate:"required"`
	DueDate      *time.Time `json:"due_date,omitempty"`
	Notes        *string    `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

// UpdateStatusRequest asks for an invoice lifecycle transition.
type UpdateStatusRequest struct {
	Status orderflow.InvoiceStatus `json:"status" validate:"required,oneof=draft pending sent partial paid overdue cancelled void"`
}

// RecordPaymentRequest records a receipt. IdempotencyKey makes retries safe.
type RecordPaymentRequest struct {
	Amount         float64                 `json:"amount" validate:"required,gt=0"`
	Method         orderflow.PaymentMethod `json:"method" validate:"required,oneof=cash bank_transfer card check other"`
	Reference      *string                 `json:"reference,omitempty" validate:"omitempty,max=200"`
	Notes          *string                 `json:"notes,omitempty" validate:"omitempty,max=2000"`
	PaidAt         *time.Time              `json:"paid_at,omitempty"`
	IdempotencyKey *string                 `json:"idempotency_key,omitempty" validate:"omitempty,max=200"`
}

// CreateCreditNoteRequest issues a credit note against an invoice. A zero
// Amount credits the full remaining balance.
type CreateCreditNoteRequest struct {
	Amount float64 `json:"amount" validate:"gte=0"`
	Reason *string `json:"reason,omitempty" validate:"omitempty,max=500"`
}

// ListInvoicesRequest filters the listing.
type ListInvoicesRequest struct {
	Type         string
	Status       string
	CustomerID   *uuid.UUID
	SalesOrderID *uuid.UUID
	Search       string
	Page         int
	PerPage      int
}
