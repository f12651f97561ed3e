package orderflow

import "errors"

// Business rule violations are returned, never panicked. Callers translate a
// rejected verdict into a user-visible message; panics are reserved for
// programmer errors.
var (
	// ErrInvalidTransition indicates a status change not present in the
	// transition table for the document's current status.
	ErrInvalidTransition = errors.New("orderflow: invalid status transition")
	// ErrQuantityConservation indicates a counter update that would exceed
	// its upstream cap in the ordered→invoiced pipeline.
	ErrQuantityConservation = errors.New("orderflow: quantity exceeds upstream stage")
	// ErrInsufficientBalance indicates a payment or credit beyond balance due.
	ErrInsufficientBalance = errors.New("orderflow: amount exceeds balance due")
	// ErrPaymentNotAllowed indicates the invoice status does not accept payments.
	ErrPaymentNotAllowed = errors.New("orderflow: invoice status does not allow payment")
	// ErrInvalidCreditNoteSource indicates an illegal credit note creation or
	// application (credit of a credit note, re-application, bad total sign).
	ErrInvalidCreditNoteSource = errors.New("orderflow: invalid credit note source")
)
