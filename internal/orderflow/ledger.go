package orderflow

import "fmt"

// LedgerState is the payment-relevant snapshot of an invoice.
type LedgerState struct {
	Type       InvoiceType
	Status     InvoiceStatus
	Total      float64
	AmountPaid float64
	BalanceDue float64
}

// LedgerResult carries the derived values after a payment or credit
// application. DerivedStatus is a suggestion: the caller validates it
// through ValidInvoiceTransition using the invoice's current status before
// persisting.
type LedgerResult struct {
	AmountPaid    float64
	BalanceDue    float64
	DerivedStatus InvoiceStatus
}

// payableStatuses are the invoice states that accept payments.
func payable(s InvoiceStatus) bool {
	return s == InvoiceStatusSent || s == InvoiceStatusPartial || s == InvoiceStatusOverdue
}

// ApplyPayment computes the ledger after recording a payment of amount
// against inv. The balance invariant amount_paid + balance_due == total is
// preserved by construction.
func ApplyPayment(inv LedgerState, amount float64) (LedgerResult, error) {
	if amount <= 0 {
		return LedgerResult{}, fmt.Errorf("%w: payment must be positive", ErrInsufficientBalance)
	}
	if !payable(inv.Status) {
		return LedgerResult{}, fmt.Errorf("%w: status %q", ErrPaymentNotAllowed, inv.Status)
	}
	if amount > inv.BalanceDue {
		return LedgerResult{}, fmt.Errorf("%w: payment %v over balance %v", ErrInsufficientBalance, amount, inv.BalanceDue)
	}
	paid := inv.AmountPaid + amount
	balance := inv.Total - paid
	status := InvoiceStatusPartial
	if balance <= 0 {
		status = InvoiceStatusPaid
	}
	return LedgerResult{AmountPaid: paid, BalanceDue: balance, DerivedStatus: status}, nil
}

// CreditNoteApplication is the outcome of applying a credit note: the
// original invoice's new ledger values and the credit note's own settlement.
type CreditNoteApplication struct {
	Original   LedgerResult
	CreditNote LedgerResult
}

// CanCreateCreditNote reports whether a credit note may be issued against a
// source invoice. Crediting a credit note is not allowed.
func CanCreateCreditNote(source InvoiceType) bool {
	return source != InvoiceTypeCreditNote
}

// ApplyCreditNote applies note against original. The application is modelled
// as a payment of |note.Total| on the original invoice; the note itself
// settles to paid with a zero balance. A note is only applicable while its
// own status is still draft or pending, its type is credit_note, and its
// total is strictly negative.
func ApplyCreditNote(original, note LedgerState) (CreditNoteApplication, error) {
	if note.Type != InvoiceTypeCreditNote {
		return CreditNoteApplication{}, fmt.Errorf("%w: document is not a credit note", ErrInvalidCreditNoteSource)
	}
	if original.Type == InvoiceTypeCreditNote {
		return CreditNoteApplication{}, fmt.Errorf("%w: cannot apply against a credit note", ErrInvalidCreditNoteSource)
	}
	if note.Total >= 0 {
		return CreditNoteApplication{}, fmt.Errorf("%w: credit note total must be negative", ErrInvalidCreditNoteSource)
	}
	if note.Status != InvoiceStatusDraft && note.Status != InvoiceStatusPending {
		return CreditNoteApplication{}, fmt.Errorf("%w: credit note already applied (status %q)", ErrInvalidCreditNoteSource, note.Status)
	}

	credit := -note.Total
	if !payable(original.Status) {
		return CreditNoteApplication{}, fmt.Errorf("%w: status %q", ErrPaymentNotAllowed, original.Status)
	}
	if credit > original.BalanceDue {
		return CreditNoteApplication{}, fmt.Errorf("%w: credit %v over balance %v", ErrInsufficientBalance, credit, original.BalanceDue)
	}

	paid := original.AmountPaid + credit
	balance := original.Total - paid
	status := InvoiceStatusPartial
	if balance <= 0 {
		status = InvoiceStatusPaid
	}
	return CreditNoteApplication{
		Original: LedgerResult{AmountPaid: paid, BalanceDue: balance, DerivedStatus: status},
		CreditNote: LedgerResult{
			AmountPaid:    credit,
			BalanceDue:    0,
			DerivedStatus: InvoiceStatusPaid,
		},
	}, nil
}
