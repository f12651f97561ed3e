package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stocktide/stocktide/internal/platform/db"
	"github.com/stocktide/stocktide/internal/shared"
)

// Repository is the billing persistence port.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error

	GetInvoice(ctx context.Context, tenantID, id uuid.UUID) (*Invoice, error)
	ListInvoices(ctx context.Context, tenantID uuid.UUID, req ListInvoicesRequest) ([]Invoice, int, error)
	CreateInvoice(ctx context.Context, inv Invoice) error
	UpdateInvoiceHeader(ctx context.Context, inv Invoice) error
	DeleteInvoice(ctx context.Context, tenantID, id uuid.UUID) error
	HasActiveInvoice(ctx context.Context, tenantID, salesOrderID uuid.UUID) (bool, error)

	InsertLine(ctx context.Context, line InvoiceLine) error
	ListLines(ctx context.Context, tenantID, invoiceID uuid.UUID) ([]InvoiceLine, error)

	InsertPayment(ctx context.Context, p Payment) error
	ListPayments(ctx context.Context, tenantID, invoiceID uuid.UUID) ([]Payment, error)
	GetPaymentByKey(ctx context.Context, tenantID uuid.UUID, key string) (*Payment, error)

	// ListOverdueCandidates runs cross-tenant; only the worker uses it.
	ListOverdueCandidates(ctx context.Context, asOf time.Time) ([]Invoice, error)
}

type dbtx interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

type repository struct {
	db   dbtx
	pool *pgxpool.Pool
}

// NewRepository constructs the pgx-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool})
	})
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

const invoiceColumns = `id, tenant_id, display_id, type, status, sales_order_id, customer_id,
	customer_name, original_invoice_id, issue_date, due_date, subtotal, discount_amount,
	tax_amount, total, amount_paid, balance_due, notes, sent_at, paid_at, voided_at,
	created_by, created_at, updated_at`

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.TenantID, &inv.DisplayID, &inv.Type, &inv.Status,
		&inv.SalesOrderID, &inv.CustomerID, &inv.CustomerName, &inv.OriginalInvoiceID,
		&inv.IssueDate, &inv.DueDate, &inv.Subtotal, &inv.DiscountAmount, &inv.TaxAmount,
		&inv.Total, &inv.AmountPaid, &inv.BalanceDue, &inv.Notes,
		&inv.SentAt, &inv.PaidAt, &inv.VoidedAt,
		&inv.CreatedBy, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &inv, nil
}

func (r *repository) GetInvoice(ctx context.Context, tenantID, id uuid.UUID) (*Invoice, error) {
	query := fmt.Sprintf(`SELECT %s FROM invoices WHERE tenant_id = $1 AND id = $2`, invoiceColumns)
	inv, err := scanInvoice(r.db.QueryRow(ctx, query, tenantID, id))
	if err != nil {
		return nil, err
	}
	inv.Lines, err = r.ListLines(ctx, tenantID, id)
	if err != nil {
		return nil, fmt.Errorf("load lines: %w", err)
	}
	return inv, nil
}

func (r *repository) ListInvoices(ctx context.Context, tenantID uuid.UUID, req ListInvoicesRequest) ([]Invoice, int, error) {
	conds := []string{"tenant_id = $1"}
	args := []any{tenantID}
	if req.Type != "" {
		args = append(args, req.Type)
		conds = append(conds, fmt.Sprintf("type = $%d", len(args)))
	}
	if req.Status != "" {
		args = append(args, req.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if req.CustomerID != nil {
		args = append(args, *req.CustomerID)
		conds = append(conds, fmt.Sprintf("customer_id = $%d", len(args)))
	}
	if req.SalesOrderID != nil {
		args = append(args, *req.SalesOrderID)
		conds = append(conds, fmt.Sprintf("sales_order_id = $%d", len(args)))
	}
	if req.Search != "" {
		args = append(args, "%"+req.Search+"%")
		conds = append(conds, fmt.Sprintf("(display_id ILIKE $%d OR customer_name ILIKE $%d)", len(args), len(args)))
	}
	where := strings.Join(conds, " AND ")

	var total int
	if err := r.db.QueryRow(ctx,
		fmt.Sprintf(`SELECT COUNT(*) FROM invoices WHERE %s`, where), args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page := shared.NewPagination(req.Page, req.PerPage, total)
	args = append(args, page.PerPage, page.Offset())
	query := fmt.Sprintf(`SELECT %s FROM invoices WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		invoiceColumns, where, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *inv)
	}
	return out, total, rows.Err()
}

func (r *repository) CreateInvoice(ctx context.Context, inv Invoice) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO invoices (id, tenant_id, display_id, type, status, sales_order_id, customer_id,
			customer_name, original_invoice_id, issue_date, due_date, subtotal, discount_amount,
			tax_amount, total, amount_paid, balance_due, notes, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, NOW(), NOW())`,
		inv.ID, inv.TenantID, inv.DisplayID, inv.Type, inv.Status, inv.SalesOrderID, inv.CustomerID,
		inv.CustomerName, inv.OriginalInvoiceID, inv.IssueDate, inv.DueDate, inv.Subtotal,
		inv.DiscountAmount, inv.TaxAmount, inv.Total, inv.AmountPaid, inv.BalanceDue,
		inv.Notes, inv.CreatedBy)
	if isUniqueViolation(err) {
		return shared.ErrIdempotencyConflict
	}
	return err
}

func (r *repository) UpdateInvoiceHeader(ctx context.Context, inv Invoice) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE invoices SET status = $3, due_date = $4, amount_paid = $5, balance_due = $6,
			notes = $7, sent_at = $8, paid_at = $9, voided_at = $10, updated_at = NOW()
		WHERE tenant_id = $1 AND id = $2`,
		inv.TenantID, inv.ID, inv.Status, inv.DueDate, inv.AmountPaid, inv.BalanceDue,
		inv.Notes, inv.SentAt, inv.PaidAt, inv.VoidedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) DeleteInvoice(ctx context.Context, tenantID, id uuid.UUID) error {
	if _, err := r.db.Exec(ctx,
		`DELETE FROM invoice_lines WHERE tenant_id = $1 AND invoice_id = $2`, tenantID, id); err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx,
		`DELETE FROM invoices WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) HasActiveInvoice(ctx context.Context, tenantID, salesOrderID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM invoices
			WHERE tenant_id = $1 AND sales_order_id = $2 AND type = 'invoice'
				AND status NOT IN ('cancelled', 'void')
		)`, tenantID, salesOrderID).Scan(&exists)
	return exists, err
}

const lineColumns = `id, invoice_id, tenant_id, sales_order_line_id, item_id, description,
	quantity, unit_price, discount_percent, tax_rate, subtotal, discount_amount, tax_amount,
	line_total, position, created_at`

func (r *repository) ListLines(ctx context.Context, tenantID, invoiceID uuid.UUID) ([]InvoiceLine, error) {
	query := fmt.Sprintf(`SELECT %s FROM invoice_lines
		WHERE tenant_id = $1 AND invoice_id = $2 ORDER BY position`, lineColumns)
	rows, err := r.db.Query(ctx, query, tenantID, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []InvoiceLine
	for rows.Next() {
		var ln InvoiceLine
		err := rows.Scan(&ln.ID, &ln.InvoiceID, &ln.TenantID, &ln.SalesOrderLineID, &ln.ItemID,
			&ln.Description, &ln.Quantity, &ln.UnitPrice, &ln.DiscountPercent, &ln.TaxRate,
			&ln.Subtotal, &ln.DiscountAmount, &ln.TaxAmount, &ln.LineTotal,
			&ln.Position, &ln.CreatedAt)
		if err != nil {
			return nil, err
		}
		out = append(out, ln)
	}
	return out, rows.Err()
}

func (r *repository) InsertLine(ctx context.Context, ln InvoiceLine) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO invoice_lines (id, invoice_id, tenant_id, sales_order_line_id, item_id,
			description, quantity, unit_price, discount_percent, tax_rate, subtotal,
			discount_amount, tax_amount, line_total, position, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NOW())`,
		ln.ID, ln.InvoiceID, ln.TenantID, ln.SalesOrderLineID, ln.ItemID,
		ln.Description, ln.Quantity, ln.UnitPrice, ln.DiscountPercent, ln.TaxRate,
		ln.Subtotal, ln.DiscountAmount, ln.TaxAmount, ln.LineTotal, ln.Position)
	return err
}

const paymentColumns = `id, tenant_id, invoice_id, amount, method, reference, notes, paid_at,
	idempotency_key, recorded_by, created_at`

func (r *repository) InsertPayment(ctx context.Context, p Payment) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO payments (id, tenant_id, invoice_id, amount, method, reference, notes,
			paid_at, idempotency_key, recorded_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())`,
		p.ID, p.TenantID, p.InvoiceID, p.Amount, p.Method, p.Reference, p.Notes,
		p.PaidAt, p.IdempotencyKey, p.RecordedBy)
	if isUniqueViolation(err) {
		return shared.ErrIdempotencyConflict
	}
	return err
}

func scanPayment(row pgx.Row) (*Payment, error) {
	var p Payment
	err := row.Scan(&p.ID, &p.TenantID, &p.InvoiceID, &p.Amount, &p.Method, &p.Reference,
		&p.Notes, &p.PaidAt, &p.IdempotencyKey, &p.RecordedBy, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *repository) ListPayments(ctx context.Context, tenantID, invoiceID uuid.UUID) ([]Payment, error) {
	query := fmt.Sprintf(`SELECT %s FROM payments
		WHERE tenant_id = $1 AND invoice_id = $2 ORDER BY paid_at`, paymentColumns)
	rows, err := r.db.Query(ctx, query, tenantID, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *repository) GetPaymentByKey(ctx context.Context, tenantID uuid.UUID, key string) (*Payment, error) {
	query := fmt.Sprintf(`SELECT %s FROM payments
		WHERE tenant_id = $1 AND idempotency_key = $2`, paymentColumns)
	return scanPayment(r.db.QueryRow(ctx, query, tenantID, key))
}

func (r *repository) ListOverdueCandidates(ctx context.Context, asOf time.Time) ([]Invoice, error) {
	query := fmt.Sprintf(`SELECT %s FROM invoices
		WHERE type = 'invoice' AND status IN ('sent', 'partial') AND due_date < $1
		ORDER BY due_date`, invoiceColumns)
	rows, err := r.db.Query(ctx, query, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *inv)
	}
	return out, rows.Err()
}
