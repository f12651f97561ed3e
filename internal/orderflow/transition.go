package orderflow

// Transition tables are data, not code: a new edge is a reviewable one-line
// diff. Cancellation edges are reversible up to physical fulfilment — a sales
// order cannot cancel once picked, a delivery order cannot reopen once
// returned.

var soTransitions = map[SalesOrderStatus][]SalesOrderStatus{
	SOStatusDraft:          {SOStatusSubmitted, SOStatusCancelled},
	SOStatusSubmitted:      {SOStatusConfirmed, SOStatusDraft, SOStatusCancelled},
	SOStatusConfirmed:      {SOStatusPicking, SOStatusCancelled},
	SOStatusPicking:        {SOStatusPicked, SOStatusCancelled},
	SOStatusPicked:         {SOStatusPartialShipped, SOStatusShipped},
	SOStatusPartialShipped: {SOStatusShipped, SOStatusCancelled},
	SOStatusShipped:        {SOStatusDelivered},
	SOStatusDelivered:      {SOStatusCompleted},
	SOStatusCompleted:      {},
	SOStatusCancelled:      {SOStatusDraft},
}

var doTransitions = map[DeliveryOrderStatus][]DeliveryOrderStatus{
	DOStatusDraft:      {DOStatusReady, DOStatusCancelled},
	DOStatusReady:      {DOStatusDispatched, DOStatusDraft, DOStatusCancelled},
	DOStatusDispatched: {DOStatusInTransit, DOStatusDelivered, DOStatusFailed},
	DOStatusInTransit:  {DOStatusDelivered, DOStatusFailed, DOStatusPartial},
	DOStatusDelivered:  {DOStatusPartial},
	DOStatusPartial:    {DOStatusDelivered},
	DOStatusFailed:     {DOStatusReady, DOStatusReturned, DOStatusCancelled},
	DOStatusReturned:   {DOStatusCancelled},
	DOStatusCancelled:  {DOStatusDraft},
}

var invoiceTransitions = map[InvoiceStatus][]InvoiceStatus{
	InvoiceStatusDraft:     {InvoiceStatusPending, InvoiceStatusCancelled},
	InvoiceStatusPending:   {InvoiceStatusSent, InvoiceStatusDraft, InvoiceStatusCancelled},
	InvoiceStatusSent:      {InvoiceStatusPartial, InvoiceStatusPaid, InvoiceStatusOverdue, InvoiceStatusVoid},
	InvoiceStatusPartial:   {InvoiceStatusPaid, InvoiceStatusOverdue, InvoiceStatusVoid},
	InvoiceStatusPaid:      {},
	InvoiceStatusOverdue:   {InvoiceStatusPartial, InvoiceStatusPaid, InvoiceStatusVoid},
	InvoiceStatusCancelled: {InvoiceStatusDraft},
	InvoiceStatusVoid:      {},
}

// ValidSOTransition reports whether a sales order may move from current to
// next. Same-status is always allowed (idempotent re-save). Unknown statuses
// are never valid.
func ValidSOTransition(current, next SalesOrderStatus) bool {
	if current == next {
		return current.IsValid()
	}
	for _, s := range soTransitions[current] {
		if s == next {
			return true
		}
	}
	return false
}

// ValidDOTransition reports whether a delivery order may move from current to next.
func ValidDOTransition(current, next DeliveryOrderStatus) bool {
	if current == next {
		return current.IsValid()
	}
	for _, s := range doTransitions[current] {
		if s == next {
			return true
		}
	}
	return false
}

// ValidInvoiceTransition reports whether an invoice may move from current to next.
func ValidInvoiceTransition(current, next InvoiceStatus) bool {
	if current == next {
		return current.IsValid()
	}
	for _, s := range invoiceTransitions[current] {
		if s == next {
			return true
		}
	}
	return false
}

// NextSOStatuses returns the legal successor statuses for a sales order.
// The returned slice is a copy.
func NextSOStatuses(current SalesOrderStatus) []SalesOrderStatus {
	return append([]SalesOrderStatus(nil), soTransitions[current]...)
}

// NextDOStatuses returns the legal successor statuses for a delivery order.
func NextDOStatuses(current DeliveryOrderStatus) []DeliveryOrderStatus {
	return append([]DeliveryOrderStatus(nil), doTransitions[current]...)
}

// NextInvoiceStatuses returns the legal successor statuses for an invoice.
func NextInvoiceStatuses(current InvoiceStatus) []InvoiceStatus {
	return append([]InvoiceStatus(nil), invoiceTransitions[current]...)
}
