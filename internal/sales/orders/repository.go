package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stocktide/stocktide/internal/platform/db"
	"github.com/stocktide/stocktide/internal/shared"
)

// Repository is the sales order persistence port.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error

	Get(ctx context.Context, tenantID, id uuid.UUID) (*SalesOrder, error)
	List(ctx context.Context, tenantID uuid.UUID, req ListSalesOrdersRequest) ([]SalesOrder, int, error)
	Create(ctx context.Context, order SalesOrder) error
	UpdateHeader(ctx context.Context, order SalesOrder) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error

	ListLines(ctx context.Context, tenantID, orderID uuid.UUID) ([]SalesOrderLine, error)
	InsertLine(ctx context.Context, line SalesOrderLine) error
	UpdateLine(ctx context.Context, line SalesOrderLine) error
	DeleteLine(ctx context.Context, tenantID, orderID, lineID uuid.UUID) error
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

const orderColumns = `id, tenant_id, display_id, customer_id, status, pick_list_id,
	subtotal, discount_amount, tax_amount, total, notes,
	submitted_by, submitted_at, confirmed_by, confirmed_at,
	cancelled_by, cancelled_at, cancellation_reason,
	created_by, created_at, updated_at`

func scanOrder(row pgx.Row) (*SalesOrder, error) {
	var o SalesOrder
	err := row.Scan(&o.ID, &o.TenantID, &o.DisplayID, &o.CustomerID, &o.Status, &o.PickListID,
		&o.Subtotal, &o.DiscountAmount, &o.TaxAmount, &o.Total, &o.Notes,
		&o.SubmittedBy, &o.SubmittedAt, &o.ConfirmedBy, &o.ConfirmedAt,
		&o.CancelledBy, &o.CancelledAt, &o.CancellationReason,
		&o.CreatedBy, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

func (r *repository) Get(ctx context.Context, tenantID, id uuid.UUID) (*SalesOrder, error) {
	query := fmt.Sprintf(`SELECT %s FROM sales_orders WHERE tenant_id = $1 AND id = $2`, orderColumns)
	order, err := scanOrder(r.db.QueryRow(ctx, query, tenantID, id))
	if err != nil {
		return nil, err
	}
	order.Lines, err = r.ListLines(ctx, tenantID, id)
	if err != nil {
		return nil, fmt.Errorf("load lines: %w", err)
	}
	return order, nil
}

func (r *repository) List(ctx context.Context, tenantID uuid.UUID, req ListSalesOrdersRequest) ([]SalesOrder, int, error) {
	conds := []string{"tenant_id = $1"}
	args := []any{tenantID}
	if req.CustomerID != nil {
		args = append(args, *req.CustomerID)
		conds = append(conds, fmt.Sprintf("customer_id = $%d", len(args)))
	}
	if req.Status != "" {
		args = append(args, req.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if req.Search != "" {
		args = append(args, "%"+req.Search+"%")
		conds = append(conds, fmt.Sprintf("display_id ILIKE $%d", len(args)))
	}
	where := strings.Join(conds, " AND ")

	var total int
	if err := r.db.QueryRow(ctx,
		fmt.Sprintf(`SELECT COUNT(*) FROM sales_orders WHERE %s`, where), args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page := shared.NewPagination(req.Page, req.PerPage, total)
	args = append(args, page.PerPage, page.Offset())
	query := fmt.Sprintf(`SELECT %s FROM sales_orders WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		orderColumns, where, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []SalesOrder
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *o)
	}
	return out, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, o SalesOrder) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO sales_orders (id, tenant_id, display_id, customer_id, status, pick_list_id,
			subtotal, discount_amount, tax_amount, total, notes, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW())`,
		o.ID, o.TenantID, o.DisplayID, o.CustomerID, o.Status, o.PickListID,
		o.Subtotal, o.DiscountAmount, o.TaxAmount, o.Total, o.Notes, o.CreatedBy)
	if isUniqueViolation(err) {
		return fmt.Errorf("display id %s: %w", o.DisplayID, shared.ErrIdempotencyConflict)
	}
	return err
}

func (r *repository) UpdateHeader(ctx context.Context, o SalesOrder) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE sales_orders SET
			customer_id = $3, status = $4, pick_list_id = $5,
			subtotal = $6, discount_amount = $7, tax_amount = $8, total = $9, notes = $10,
			submitted_by = $11, submitted_at = $12, confirmed_by = $13, confirmed_at = $14,
			cancelled_by = $15, cancelled_at = $16, cancellation_reason = $17,
			updated_at = NOW()
		WHERE tenant_id = $1 AND id = $2`,
		o.TenantID, o.ID, o.CustomerID, o.Status, o.PickListID,
		o.Subtotal, o.DiscountAmount, o.TaxAmount, o.Total, o.Notes,
		o.SubmittedBy, o.SubmittedAt, o.ConfirmedBy, o.ConfirmedAt,
		o.CancelledBy, o.CancelledAt, o.CancellationReason)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	if _, err := r.db.Exec(ctx,
		`DELETE FROM sales_order_lines WHERE tenant_id = $1 AND sales_order_id = $2`, tenantID, id); err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx,
		`DELETE FROM sales_orders WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

const lineColumns = `id, sales_order_id, tenant_id, item_id, item_name, item_sku,
	quantity, quantity_allocated, quantity_picked, quantity_shipped, quantity_delivered, quantity_invoiced,
	unit_price, discount_percent, tax_rate, subtotal, discount_amount, tax_amount, line_total,
	position, created_at, updated_at`

func scanLine(row pgx.Row) (*SalesOrderLine, error) {
	var l SalesOrderLine
	err := row.Scan(&l.ID, &l.SalesOrderID, &l.TenantID, &l.ItemID, &l.ItemName, &l.ItemSKU,
		&l.Quantity, &l.QuantityAllocated, &l.QuantityPicked, &l.QuantityShipped,
		&l.QuantityDelivered, &l.QuantityInvoiced,
		&l.UnitPrice, &l.DiscountPercent, &l.TaxRate,
		&l.Subtotal, &l.DiscountAmount, &l.TaxAmount, &l.LineTotal,
		&l.Position, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &l, nil
}

func (r *repository) ListLines(ctx context.Context, tenantID, orderID uuid.UUID) ([]SalesOrderLine, error) {
	query := fmt.Sprintf(`SELECT %s FROM sales_order_lines
		WHERE tenant_id = $1 AND sales_order_id = $2 ORDER BY position, created_at`, lineColumns)
	rows, err := r.db.Query(ctx, query, tenantID, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SalesOrderLine
	for rows.Next() {
		l, err := scanLine(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}

func (r *repository) InsertLine(ctx context.Context, l SalesOrderLine) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO sales_order_lines (id, sales_order_id, tenant_id, item_id, item_name, item_sku,
			quantity, quantity_allocated, quantity_picked, quantity_shipped, quantity_delivered, quantity_invoiced,
			unit_price, discount_percent, tax_rate, subtotal, discount_amount, tax_amount, line_total,
			position, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, NOW(), NOW())`,
		l.ID, l.SalesOrderID, l.TenantID, l.ItemID, l.ItemName, l.ItemSKU,
		l.Quantity, l.QuantityAllocated, l.QuantityPicked, l.QuantityShipped,
		l.QuantityDelivered, l.QuantityInvoiced,
		l.UnitPrice, l.DiscountPercent, l.TaxRate,
		l.Subtotal, l.DiscountAmount, l.TaxAmount, l.LineTotal, l.Position)
	return err
}

func (r *repository) UpdateLine(ctx context.Context, l SalesOrderLine) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE sales_order_lines SET
			quantity = $4, quantity_allocated = $5, quantity_picked = $6,
			quantity_shipped = $7, quantity_delivered = $8, quantity_invoiced = $9,
			unit_price = $10, discount_percent = $11, tax_rate = $12,
			subtotal = $13, discount_amount = $14, tax_amount = $15, line_total = $16,
			updated_at = NOW()
		WHERE tenant_id = $1 AND sales_order_id = $2 AND id = $3`,
		l.TenantID, l.SalesOrderID, l.ID,
		l.Quantity, l.QuantityAllocated, l.QuantityPicked,
		l.QuantityShipped, l.QuantityDelivered, l.QuantityInvoiced,
		l.UnitPrice, l.DiscountPercent, l.TaxRate,
		l.Subtotal, l.DiscountAmount, l.TaxAmount, l.LineTotal)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) DeleteLine(ctx context.Context, tenantID, orderID, lineID uuid.UUID) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM sales_order_lines WHERE tenant_id = $1 AND sales_order_id = $2 AND id = $3`,
		tenantID, orderID, lineID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
