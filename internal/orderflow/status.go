// Package orderflow implements the order-to-cash document rules: status
// transition tables for sales orders, delivery orders and invoices, line and
// document totals arithmetic, quantity pipeline conservation, and the invoice
// payment/credit ledger. Everything here is pure: no I/O, no shared state,
// safe to call from any number of goroutines.
package orderflow

// SalesOrderStatus is the lifecycle state of a sales order.
type SalesOrderStatus string

const (
	SOStatusDraft          SalesOrderStatus = "draft"
	SOStatusSubmitted      SalesOrderStatus = "submitted"
	SOStatusConfirmed      SalesOrderStatus = "confirmed"
	SOStatusPicking        SalesOrderStatus = "picking"
	SOStatusPicked         SalesOrderStatus = "picked"
	SOStatusPartialShipped SalesOrderStatus = "partial_shipped"
	SOStatusShipped        SalesOrderStatus = "shipped"
	SOStatusDelivered      SalesOrderStatus = "delivered"
	SOStatusCompleted      SalesOrderStatus = "completed"
	SOStatusCancelled      SalesOrderStatus = "cancelled"
)

// IsValid reports whether s is a known sales order status.
func (s SalesOrderStatus) IsValid() bool {
	_, ok := soTransitions[s]
	return ok
}

// DeliveryOrderStatus is the lifecycle state of a delivery order.
type DeliveryOrderStatus string

const (
	DOStatusDraft      DeliveryOrderStatus = "draft"
	DOStatusReady      DeliveryOrderStatus = "ready"
	DOStatusDispatched DeliveryOrderStatus = "dispatched"
	DOStatusInTransit  DeliveryOrderStatus = "in_transit"
	DOStatusDelivered  DeliveryOrderStatus = "delivered"
	DOStatusPartial    DeliveryOrderStatus = "partial"
	DOStatusFailed     DeliveryOrderStatus = "failed"
	DOStatusReturned   DeliveryOrderStatus = "returned"
	DOStatusCancelled  DeliveryOrderStatus = "cancelled"
)

// IsValid reports whether s is a known delivery order status.
func (s DeliveryOrderStatus) IsValid() bool {
	_, ok := doTransitions[s]
	return ok
}

// InvoiceStatus is the lifecycle state of an invoice or credit note.
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "draft"
	InvoiceStatusPending   InvoiceStatus = "pending"
	InvoiceStatusSent      InvoiceStatus = "sent"
	InvoiceStatusPartial   InvoiceStatus = "partial"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusOverdue   InvoiceStatus = "overdue"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
	InvoiceStatusVoid      InvoiceStatus = "void"
)

// IsValid reports whether s is a known invoice status.
func (s InvoiceStatus) IsValid() bool {
	_, ok := invoiceTransitions[s]
	return ok
}

// InvoiceType distinguishes standard invoices from credit notes.
type InvoiceType string

const (
	InvoiceTypeStandard   InvoiceType = "invoice"
	InvoiceTypeCreditNote InvoiceType = "credit_note"
)

// PaymentMethod enumerates accepted payment methods.
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "cash"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodCard         PaymentMethod = "card"
	PaymentMethodCheck        PaymentMethod = "check"
	PaymentMethodOther        PaymentMethod = "other"
)

// IsValid reports whether m is a known payment method.
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodBankTransfer, PaymentMethodCard, PaymentMethodCheck, PaymentMethodOther:
		return true
	default:
		return false
	}
}
