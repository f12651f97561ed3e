package orderflow

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSameStatusAlwaysValid(t *testing.T) {
	for status := range soTransitions {
		require.True(t, ValidSOTransition(status, status), "sales order %s", status)
	}
	for status := range doTransitions {
		require.True(t, ValidDOTransition(status, status), "delivery order %s", status)
	}
	for status := range invoiceTransitions {
		require.True(t, ValidInvoiceTransition(status, status), "invoice %s", status)
	}
}

func TestUnknownStatusNeverValid(t *testing.T) {
	require.False(t, ValidSOTransition("bogus", "bogus"))
	require.False(t, ValidSOTransition(SOStatusDraft, "bogus"))
	require.False(t, ValidDOTransition("bogus", DOStatusReady))
	require.False(t, ValidInvoiceTransition(InvoiceStatusSent, "bogus"))
}

func TestSalesOrderNoSkipAhead(t *testing.T) {
	require.False(t, ValidSOTransition(SOStatusDraft, SOStatusPicked))
	require.False(t, ValidSOTransition(SOStatusDraft, SOStatusConfirmed))
	require.False(t, ValidSOTransition(SOStatusSubmitted, SOStatusPicking))
	require.False(t, ValidSOTransition(SOStatusConfirmed, SOStatusShipped))
}

func TestSalesOrderHappyPath(t *testing.T) {
	path := []SalesOrderStatus{
		SOStatusDraft, SOStatusSubmitted, SOStatusConfirmed, SOStatusPicking,
		SOStatusPicked, SOStatusShipped, SOStatusDelivered, SOStatusCompleted,
	}
	for i := 1; i < len(path); i++ {
		require.True(t, ValidSOTransition(path[i-1], path[i]), "%s -> %s", path[i-1], path[i])
	}
	require.Empty(t, NextSOStatuses(SOStatusCompleted))
	require.True(t, ValidSOTransition(SOStatusCompleted, SOStatusCompleted))
}

func TestSalesOrderCancellation(t *testing.T) {
	// Cancellation is allowed through picking, reversible back to draft,
	// and impossible once goods are physically picked.
	require.True(t, ValidSOTransition(SOStatusDraft, SOStatusCancelled))
	require.True(t, ValidSOTransition(SOStatusSubmitted, SOStatusCancelled))
	require.True(t, ValidSOTransition(SOStatusConfirmed, SOStatusCancelled))
	require.True(t, ValidSOTransition(SOStatusPicking, SOStatusCancelled))
	require.True(t, ValidSOTransition(SOStatusCancelled, SOStatusDraft))

	require.False(t, ValidSOTransition(SOStatusPicked, SOStatusCancelled))
	require.False(t, ValidSOTransition(SOStatusShipped, SOStatusCancelled))
	require.False(t, ValidSOTransition(SOStatusDelivered, SOStatusCancelled))
}

func TestDeliveryOrderPartialRevisitable(t *testing.T) {
	require.True(t, ValidDOTransition(DOStatusDelivered, DOStatusPartial))
	require.True(t, ValidDOTransition(DOStatusPartial, DOStatusDelivered))
}

func TestDeliveryOrderTerminalStates(t *testing.T) {
	require.Equal(t, []DeliveryOrderStatus{DOStatusCancelled}, NextDOStatuses(DOStatusReturned))
	require.False(t, ValidDOTransition(DOStatusReturned, DOStatusReady))
	require.False(t, ValidDOTransition(DOStatusReturned, DOStatusDraft))
	// Cancelled is soft-terminal: it may reopen to draft only.
	require.Equal(t, []DeliveryOrderStatus{DOStatusDraft}, NextDOStatuses(DOStatusCancelled))
}

func TestDeliveryOrderFailureRecovery(t *testing.T) {
	require.True(t, ValidDOTransition(DOStatusDispatched, DOStatusFailed))
	require.True(t, ValidDOTransition(DOStatusInTransit, DOStatusFailed))
	require.True(t, ValidDOTransition(DOStatusFailed, DOStatusReady))
	require.True(t, ValidDOTransition(DOStatusFailed, DOStatusReturned))
	require.False(t, ValidDOTransition(DOStatusFailed, DOStatusDelivered))
}

func TestInvoiceTerminalAbsorption(t *testing.T) {
	others := []InvoiceStatus{
		InvoiceStatusDraft, InvoiceStatusPending, InvoiceStatusSent,
		InvoiceStatusPartial, InvoiceStatusOverdue, InvoiceStatusCancelled,
	}
	for _, next := range others {
		require.False(t, ValidInvoiceTransition(InvoiceStatusPaid, next), "paid -> %s", next)
		require.False(t, ValidInvoiceTransition(InvoiceStatusVoid, next), "void -> %s", next)
	}
	require.True(t, ValidInvoiceTransition(InvoiceStatusPaid, InvoiceStatusPaid))
	require.True(t, ValidInvoiceTransition(InvoiceStatusVoid, InvoiceStatusVoid))
}

func TestInvoiceOverdueRecovery(t *testing.T) {
	require.True(t, ValidInvoiceTransition(InvoiceStatusSent, InvoiceStatusOverdue))
	require.True(t, ValidInvoiceTransition(InvoiceStatusOverdue, InvoiceStatusPartial))
	require.True(t, ValidInvoiceTransition(InvoiceStatusOverdue, InvoiceStatusPaid))
	require.True(t, ValidInvoiceTransition(InvoiceStatusOverdue, InvoiceStatusVoid))
	require.False(t, ValidInvoiceTransition(InvoiceStatusOverdue, InvoiceStatusSent))
}

func TestNextStatusesReturnsCopy(t *testing.T) {
	next := NextSOStatuses(SOStatusDraft)
	require.Equal(t, []SalesOrderStatus{SOStatusSubmitted, SOStatusCancelled}, next)
	next[0] = SOStatusCompleted
	require.Equal(t, []SalesOrderStatus{SOStatusSubmitted, SOStatusCancelled}, NextSOStatuses(SOStatusDraft))
}
