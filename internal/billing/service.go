package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/stocktide/stocktide/internal/customers"
	"github.com/stocktide/stocktide/internal/orderflow"
	"github.com/stocktide/stocktide/internal/sales/orders"
	"github.com/stocktide/stocktide/internal/shared"
)

// defaultPaymentTerm is applied when a due date is not given.
const defaultPaymentTerm = 30 * 24 * time.Hour

// OrderPort is the slice of the sales order service billing talks to.
type OrderPort interface {
	Get(ctx context.Context, tc shared.TenantContext, id uuid.UUID) (*orders.SalesOrder, error)
	MarkInvoiced(ctx context.Context, tc shared.TenantContext, orderID uuid.UUID, invoiced map[uuid.UUID]float64) error
}

// CustomerPort resolves customers for header snapshots.
type CustomerPort interface {
	Get(ctx context.Context, tc shared.TenantContext, id uuid.UUID) (*customers.Customer, error)
}

// ActivityPort abstracts the activity log.
type ActivityPort interface {
	Record(ctx context.Context, log shared.ActivityLog) error
}

// Service coordinates invoices, credit notes and payments.
type Service struct {
	repo      Repository
	orders    OrderPort
	customers CustomerPort
	seq       shared.Sequence
	activity  ActivityPort
	now       func() time.Time
}

// NewService builds Service.
func NewService(repo Repository, orderPort OrderPort, customerPort CustomerPort, seq shared.Sequence, activity ActivityPort) *Service {
	return &Service{
		repo:      repo,
		orders:    orderPort,
		customers: customerPort,
		seq:       seq,
		activity:  activity,
		now:       time.Now,
	}
}

// Create opens a manual draft invoice from free-form lines.
func (s *Service) Create(ctx context.Context, tc shared.TenantContext, req CreateInvoiceRequest) (*Invoice, error) {
	inv := Invoice{
		ID:        uuid.New(),
		TenantID:  tc.TenantID,
		Type:      orderflow.InvoiceTypeStandard,
		Status:    orderflow.InvoiceStatusDraft,
		IssueDate: s.now(),
		DueDate:   req.DueDate,
		Notes:     req.Notes,
		CreatedBy: tc.ActorID,
	}
	if req.IssueDate != nil {
		inv.IssueDate = *req.IssueDate
	}
	if inv.DueDate == nil {
		due := inv.IssueDate.Add(defaultPaymentTerm)
		inv.DueDate = &due
	}
	if req.CustomerID != nil {
		cust, err := s.customers.Get(ctx, tc, *req.CustomerID)
		if err != nil {
			return nil, fmt.Errorf("verify customer: %w", err)
		}
		inv.CustomerID = &cust.ID
		inv.CustomerName = &cust.Name
	}

	var lines []InvoiceLine
	var inputs []orderflow.LineInput
	for i, lr := range req.Lines {
		amounts := orderflow.LineTotals(lr.Quantity, lr.UnitPrice, lr.DiscountPercent, lr.TaxRate)
		lines = append(lines, InvoiceLine{
			ID:              uuid.New(),
			InvoiceID:       inv.ID,
			TenantID:        tc.TenantID,
			ItemID:          lr.ItemID,
			Description:     lr.Description,
			Quantity:        lr.Quantity,
			UnitPrice:       lr.UnitPrice,
			DiscountPercent: lr.DiscountPercent,
			TaxRate:         lr.TaxRate,
			Subtotal:        amounts.Subtotal,
			DiscountAmount:  amounts.DiscountAmount,
			TaxAmount:       amounts.TaxAmount,
			LineTotal:       amounts.LineTotal,
			Position:        i,
		})
		inputs = append(inputs, orderflow.LineInput{
			Quantity:        lr.Quantity,
			UnitPrice:       lr.UnitPrice,
			DiscountPercent: lr.DiscountPercent,
			TaxRate:         lr.TaxRate,
		})
	}
	applyDocumentAmounts(&inv, orderflow.DocumentTotals(inputs))

	if err := s.persistNew(ctx, inv, lines); err != nil {
		return nil, err
	}
	s.logActivity(ctx, tc, "create", inv.ID, inv.DisplayID, nil)
	return s.repo.GetInvoice(ctx, tc.TenantID, inv.ID)
}

// CreateFromOrder bills everything delivered on the order that has not been
// invoiced yet. One active standard invoice per order.
func (s *Service) CreateFromOrder(ctx context.Context, tc shared.TenantContext, req CreateFromOrderRequest) (*Invoice, error) {
	order, err := s.orders.Get(ctx, tc, req.SalesOrderID)
	if err != nil {
		return nil, fmt.Errorf("verify sales order: %w", err)
	}
	if !invoiceable(order.Status) {
		return nil, fmt.Errorf("%w: sales order %s is %s, invoicing requires a shipped order",
			shared.ErrInvalidArgument, order.DisplayID, order.Status)
	}
	if order.CustomerID == nil {
		return nil, fmt.Errorf("%w: sales order %s has no customer", shared.ErrInvalidArgument, order.DisplayID)
	}
	active, err := s.repo.HasActiveInvoice(ctx, tc.TenantID, order.ID)
	if err != nil {
		return nil, err
	}
	if active {
		return nil, fmt.Errorf("%w: sales order %s already has an active invoice",
			shared.ErrIdempotencyConflict, order.DisplayID)
	}
	cust, err := s.customers.Get(ctx, tc, *order.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("verify customer: %w", err)
	}

	inv := Invoice{
		ID:           uuid.New(),
		TenantID:     tc.TenantID,
		Type:         orderflow.InvoiceTypeStandard,
		Status:       orderflow.InvoiceStatusDraft,
		SalesOrderID: &order.ID,
		CustomerID:   &cust.ID,
		CustomerName: &cust.Name,
		IssueDate:    s.now(),
		DueDate:      req.DueDate,
		Notes:        req.Notes,
		CreatedBy:    tc.ActorID,
	}
	if inv.DueDate == nil {
		due := inv.IssueDate.Add(defaultPaymentTerm)
		inv.DueDate = &due
	}

	var lines []InvoiceLine
	var inputs []orderflow.LineInput
	invoiced := make(map[uuid.UUID]float64)
	for _, ol := range order.Lines {
		billable := ol.QuantityDelivered - ol.QuantityInvoiced
		if billable <= 0 {
			continue
		}
		amounts := orderflow.LineTotals(billable, ol.UnitPrice, ol.DiscountPercent, ol.TaxRate)
		lineID := ol.ID
		itemID := ol.ItemID
		lines = append(lines, InvoiceLine{
			ID:               uuid.New(),
			InvoiceID:        inv.ID,
			TenantID:         tc.TenantID,
			SalesOrderLineID: &lineID,
			ItemID:           &itemID,
			Description:      ol.ItemName,
			Quantity:         billable,
			UnitPrice:        ol.UnitPrice,
			DiscountPercent:  ol.DiscountPercent,
			TaxRate:          ol.TaxRate,
			Subtotal:         amounts.Subtotal,
			DiscountAmount:   amounts.DiscountAmount,
			TaxAmount:        amounts.TaxAmount,
			LineTotal:        amounts.LineTotal,
			Position:         len(lines),
		})
		inputs = append(inputs, orderflow.LineInput{
			Quantity:        billable,
			UnitPrice:       ol.UnitPrice,
			DiscountPercent: ol.DiscountPercent,
			TaxRate:         ol.TaxRate,
		})
		invoiced[ol.ID] = ol.QuantityInvoiced + billable
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: nothing delivered and unbilled on %s", shared.ErrInvalidArgument, order.DisplayID)
	}
	applyDocumentAmounts(&inv, orderflow.DocumentTotals(inputs))

	if err := s.persistNew(ctx, inv, lines); err != nil {
		return nil, err
	}
	if err := s.orders.MarkInvoiced(ctx, tc, order.ID, invoiced); err != nil {
		return nil, fmt.Errorf("mark order invoiced: %w", err)
	}
	s.logActivity(ctx, tc, "create", inv.ID, inv.DisplayID, map[string]any{"sales_order": order.DisplayID})
	return s.repo.GetInvoice(ctx, tc.TenantID, inv.ID)
}

func invoiceable(status orderflow.SalesOrderStatus) bool {
	switch status {
	case orderflow.SOStatusPartialShipped, orderflow.SOStatusShipped,
		orderflow.SOStatusDelivered, orderflow.SOStatusCompleted:
		return true
	}
	return false
}

func applyDocumentAmounts(inv *Invoice, amounts orderflow.DocumentAmounts) {
	inv.Subtotal = amounts.Subtotal
	inv.DiscountAmount = amounts.TotalDiscount
	inv.TaxAmount = amounts.TotalTax
	inv.Total = amounts.Total
	inv.BalanceDue = amounts.Total - inv.AmountPaid
}

func (s *Service) persistNew(ctx context.Context, inv Invoice, lines []InvoiceLine) error {
	displayID, err := s.seq.Next(ctx, inv.TenantID, sequenceKey(inv.Type))
	if err != nil {
		return fmt.Errorf("allocate display id: %w", err)
	}
	inv.DisplayID = displayID
	return s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if err := repo.CreateInvoice(ctx, inv); err != nil {
			return fmt.Errorf("create invoice: %w", err)
		}
		for _, ln := range lines {
			if err := repo.InsertLine(ctx, ln); err != nil {
				return fmt.Errorf("insert line: %w", err)
			}
		}
		return nil
	})
}

func sequenceKey(t orderflow.InvoiceType) string {
	if t == orderflow.InvoiceTypeCreditNote {
		return "credit_note"
	}
	return "invoice"
}

// Get loads one invoice with its lines.
func (s *Service) Get(ctx context.Context, tc shared.TenantContext, id uuid.UUID) (*Invoice, error) {
	return s.repo.GetInvoice(ctx, tc.TenantID, id)
}

// List returns a filtered page.
func (s *Service) List(ctx context.Context, tc shared.TenantContext, req ListInvoicesRequest) ([]Invoice, int, error) {
	return s.repo.ListInvoices(ctx, tc.TenantID, req)
}

// Payments returns the receipts recorded against an invoice.
func (s *Service) Payments(ctx context.Context, tc shared.TenantContext, invoiceID uuid.UUID) ([]Payment, error) {
	if _, err := s.repo.GetInvoice(ctx, tc.TenantID, invoiceID); err != nil {
		return nil, err
	}
	return s.repo.ListPayments(ctx, tc.TenantID, invoiceID)
}

// Delete removes a draft invoice.
func (s *Service) Delete(ctx context.Context, tc shared.TenantContext, id uuid.UUID) error {
	inv, err := s.repo.GetInvoice(ctx, tc.TenantID, id)
	if err != nil {
		return err
	}
	if inv.Status != orderflow.InvoiceStatusDraft {
		return fmt.Errorf("%w: only draft invoices can be deleted", shared.ErrInvalidArgument)
	}
	if err := s.repo.DeleteInvoice(ctx, tc.TenantID, id); err != nil {
		return err
	}
	s.logActivity(ctx, tc, "delete", inv.ID, inv.DisplayID, nil)
	return nil
}

// UpdateStatus moves the invoice through its lifecycle.
func (s *Service) UpdateStatus(ctx context.Context, tc shared.TenantContext, id uuid.UUID, req UpdateStatusRequest) (*Invoice, error) {
	inv, err := s.repo.GetInvoice(ctx, tc.TenantID, id)
	if err != nil {
		return nil, err
	}
	next := req.Status
	if !orderflow.ValidInvoiceTransition(inv.Status, next) {
		return nil, fmt.Errorf("%w: invoice %s → %s", orderflow.ErrInvalidTransition, inv.Status, next)
	}
	if next == inv.Status {
		return inv, nil
	}

	now := s.now()
	previous := inv.Status
	inv.Status = next
	switch next {
	case orderflow.InvoiceStatusSent:
		inv.SentAt = &now
	case orderflow.InvoiceStatusPaid:
		// Manual settlement outside the ledger is not allowed.
		if inv.BalanceDue > 0 {
			inv.Status = previous
			return nil, fmt.Errorf("%w: balance %v outstanding, record a payment instead",
				shared.ErrInvalidArgument, inv.BalanceDue)
		}
		inv.PaidAt = &now
	case orderflow.InvoiceStatusVoid:
		inv.VoidedAt = &now
	}

	if err := s.repo.UpdateInvoiceHeader(ctx, *inv); err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}
	s.logActivity(ctx, tc, "update_status", inv.ID, inv.DisplayID, map[string]any{
		"from": string(previous), "to": string(next),
	})
	return s.repo.GetInvoice(ctx, tc.TenantID, id)
}

// RecordPayment applies a receipt to an invoice. A repeated idempotency key
// returns the original payment without touching the ledger again.
func (s *Service) RecordPayment(ctx context.Context, tc shared.TenantContext, invoiceID uuid.UUID, req RecordPaymentRequest) (*Payment, error) {
	if req.IdempotencyKey != nil {
		existing, err := s.repo.GetPaymentByKey(ctx, tc.TenantID, *req.IdempotencyKey)
		switch {
		case err == nil:
			if existing.InvoiceID != invoiceID || existing.Amount != req.Amount {
				return nil, fmt.Errorf("%w: key %q used for a different payment",
					shared.ErrIdempotencyConflict, *req.IdempotencyKey)
			}
			return existing, nil
		case !errors.Is(err, shared.ErrNotFound):
			return nil, err
		}
	}

	inv, err := s.repo.GetInvoice(ctx, tc.TenantID, invoiceID)
	if err != nil {
		return nil, err
	}
	result, err := orderflow.ApplyPayment(inv.LedgerState(), req.Amount)
	if err != nil {
		return nil, err
	}
	if !orderflow.ValidInvoiceTransition(inv.Status, result.DerivedStatus) {
		return nil, fmt.Errorf("%w: invoice %s → %s", orderflow.ErrInvalidTransition, inv.Status, result.DerivedStatus)
	}

	now := s.now()
	payment := Payment{
		ID:             uuid.New(),
		TenantID:       tc.TenantID,
		InvoiceID:      invoiceID,
		Amount:         req.Amount,
		Method:         req.Method,
		Reference:      req.Reference,
		Notes:          req.Notes,
		PaidAt:         now,
		IdempotencyKey: req.IdempotencyKey,
		RecordedBy:     tc.ActorID,
	}
	if req.PaidAt != nil {
		payment.PaidAt = *req.PaidAt
	}

	inv.AmountPaid = result.AmountPaid
	inv.BalanceDue = result.BalanceDue
	inv.Status = result.DerivedStatus
	if result.DerivedStatus == orderflow.InvoiceStatusPaid {
		inv.PaidAt = &now
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if err := repo.InsertPayment(ctx, payment); err != nil {
			return fmt.Errorf("insert payment: %w", err)
		}
		if err := repo.UpdateInvoiceHeader(ctx, *inv); err != nil {
			return fmt.Errorf("update invoice: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logActivity(ctx, tc, "record_payment", inv.ID, inv.DisplayID, map[string]any{
		"amount": req.Amount, "method": string(req.Method),
	})
	return &payment, nil
}

// CreateCreditNote issues and immediately applies a credit note against an
// invoice. A zero amount credits the full remaining balance.
func (s *Service) CreateCreditNote(ctx context.Context, tc shared.TenantContext, invoiceID uuid.UUID, req CreateCreditNoteRequest) (*Invoice, error) {
	original, err := s.repo.GetInvoice(ctx, tc.TenantID, invoiceID)
	if err != nil {
		return nil, err
	}
	if !orderflow.CanCreateCreditNote(original.Type) {
		return nil, fmt.Errorf("%w: %s is a credit note", orderflow.ErrInvalidCreditNoteSource, original.DisplayID)
	}

	amount := req.Amount
	if amount == 0 {
		amount = original.BalanceDue
	}

	note := Invoice{
		ID:                uuid.New(),
		TenantID:          tc.TenantID,
		Type:              orderflow.InvoiceTypeCreditNote,
		Status:            orderflow.InvoiceStatusDraft,
		SalesOrderID:      original.SalesOrderID,
		CustomerID:        original.CustomerID,
		CustomerName:      original.CustomerName,
		OriginalInvoiceID: &original.ID,
		IssueDate:         s.now(),
		Notes:             req.Reason,
		Total:             -amount,
		BalanceDue:        -amount,
		CreatedBy:         tc.ActorID,
	}

	application, err := orderflow.ApplyCreditNote(original.LedgerState(), note.LedgerState())
	if err != nil {
		return nil, err
	}
	if !orderflow.ValidInvoiceTransition(original.Status, application.Original.DerivedStatus) {
		return nil, fmt.Errorf("%w: invoice %s → %s",
			orderflow.ErrInvalidTransition, original.Status, application.Original.DerivedStatus)
	}

	now := s.now()
	note.AmountPaid = application.CreditNote.AmountPaid
	note.BalanceDue = application.CreditNote.BalanceDue
	note.Status = application.CreditNote.DerivedStatus
	note.PaidAt = &now

	original.AmountPaid = application.Original.AmountPaid
	original.BalanceDue = application.Original.BalanceDue
	original.Status = application.Original.DerivedStatus
	if original.Status == orderflow.InvoiceStatusPaid {
		original.PaidAt = &now
	}

	displayID, err := s.seq.Next(ctx, tc.TenantID, "credit_note")
	if err != nil {
		return nil, fmt.Errorf("allocate display id: %w", err)
	}
	note.DisplayID = displayID

	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if err := repo.CreateInvoice(ctx, note); err != nil {
			return fmt.Errorf("create credit note: %w", err)
		}
		if err := repo.UpdateInvoiceHeader(ctx, *original); err != nil {
			return fmt.Errorf("update original invoice: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logActivity(ctx, tc, "create_credit_note", note.ID, note.DisplayID, map[string]any{
		"original": original.DisplayID, "amount": amount,
	})
	return s.repo.GetInvoice(ctx, tc.TenantID, note.ID)
}

// MarkOverdue flips past-due sent and partial invoices to overdue. The worker
// calls it across tenants.
func (s *Service) MarkOverdue(ctx context.Context, asOf time.Time) (int, error) {
	candidates, err := s.repo.ListOverdueCandidates(ctx, asOf)
	if err != nil {
		return 0, err
	}
	flipped := 0
	for i := range candidates {
		inv := candidates[i]
		if !orderflow.ValidInvoiceTransition(inv.Status, orderflow.InvoiceStatusOverdue) {
			continue
		}
		inv.Status = orderflow.InvoiceStatusOverdue
		if err := s.repo.UpdateInvoiceHeader(ctx, inv); err != nil {
			return flipped, fmt.Errorf("mark %s overdue: %w", inv.DisplayID, err)
		}
		flipped++
	}
	return flipped, nil
}

func (s *Service) logActivity(ctx context.Context, tc shared.TenantContext, action string, id uuid.UUID, name string, changes map[string]any) {
	if s.activity == nil {
		return
	}
	_ = s.activity.Record(ctx, shared.ActivityLog{
		TenantID:   tc.TenantID,
		ActorID:    tc.ActorID,
		ActorName:  tc.ActorName,
		ActionType: action,
		EntityType: "invoice",
		EntityID:   id,
		EntityName: name,
		Changes:    changes,
		At:         time.Now(),
	})
}
