package delivery

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

// Repository is the delivery order persistence port.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error

	Get(ctx context.Context, tenantID, id uuid.UUID) (*DeliveryOrder, error)
	List(ctx context.Context, tenantID uuid.UUID, req ListDeliveryOrdersRequest) ([]DeliveryOrder, int, error)
	Create(ctx context.Context, do DeliveryOrder) error
	UpdateHeader(ctx context.Context, do DeliveryOrder) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error

	InsertLine(ctx context.Context, line DeliveryLine) error
	UpdateLine(ctx context.Context, line DeliveryLine) error
	ListLines(ctx context.Context, tenantID, deliveryOrderID uuid.UUID) ([]DeliveryLine, error)
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

const deliveryColumns = `id, tenant_id, display_id, sales_order_id, status, carrier,
	tracking_number, shipping_address, notes, dispatched_by, dispatched_at, delivered_at,
	failure_reason, created_by, created_at, updated_at`

func scanDeliveryOrder(row pgx.Row) (*DeliveryOrder, error) {
	var do DeliveryOrder
	err := row.Scan(&do.ID, &do.TenantID, &do.DisplayID, &do.SalesOrderID, &do.Status,
		&do.Carrier, &do.TrackingNumber, &do.ShippingAddress, &do.Notes,
		&do.DispatchedBy, &do.DispatchedAt, &do.DeliveredAt, &do.FailureReason,
		&do.CreatedBy, &do.CreatedAt, &do.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &do, nil
}

func (r *repository) Get(ctx context.Context, tenantID, id uuid.UUID) (*DeliveryOrder, error) {
	query := fmt.Sprintf(`SELECT %s FROM delivery_orders WHERE tenant_id = $1 AND id = $2`, deliveryColumns)
	do, err := scanDeliveryOrder(r.db.QueryRow(ctx, query, tenantID, id))
	if err != nil {
		return nil, err
	}
	do.Lines, err = r.ListLines(ctx, tenantID, id)
	if err != nil {
		return nil, fmt.Errorf("load lines: %w", err)
	}
	return do, nil
}

func (r *repository) List(ctx context.Context, tenantID uuid.UUID, req ListDeliveryOrdersRequest) ([]DeliveryOrder, int, error) {
	conds := []string{"tenant_id = $1"}
	args := []any{tenantID}
	if req.SalesOrderID != nil {
		args = append(args, *req.SalesOrderID)
		conds = append(conds, fmt.Sprintf("sales_order_id = $%d", len(args)))
	}
	if req.Status != "" {
		args = append(args, req.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	where := strings.Join(conds, " AND ")

	var total int
	if err := r.db.QueryRow(ctx,
		fmt.Sprintf(`SELECT COUNT(*) FROM delivery_orders WHERE %s`, where), args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page := shared.NewPagination(req.Page, req.PerPage, total)
	args = append(args, page.PerPage, page.Offset())
	query := fmt.Sprintf(`SELECT %s FROM delivery_orders WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		deliveryColumns, where, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []DeliveryOrder
	for rows.Next() {
		do, err := scanDeliveryOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *do)
	}
	return out, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, do DeliveryOrder) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO delivery_orders (id, tenant_id, display_id, sales_order_id, status, carrier,
			tracking_number, shipping_address, notes, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())`,
		do.ID, do.TenantID, do.DisplayID, do.SalesOrderID, do.Status, do.Carrier,
		do.TrackingNumber, do.ShippingAddress, do.Notes, do.CreatedBy)
	return err
}

func (r *repository) UpdateHeader(ctx context.Context, do DeliveryOrder) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE delivery_orders SET status = $3, carrier = $4, tracking_number = $5,
			shipping_address = $6, notes = $7, dispatched_by = $8, dispatched_at = $9,
			delivered_at = $10, failure_reason = $11, updated_at = NOW()
		WHERE tenant_id = $1 AND id = $2`,
		do.TenantID, do.ID, do.Status, do.Carrier, do.TrackingNumber,
		do.ShippingAddress, do.Notes, do.DispatchedBy, do.DispatchedAt,
		do.DeliveredAt, do.FailureReason)
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
		`DELETE FROM delivery_lines WHERE tenant_id = $1 AND delivery_order_id = $2`, tenantID, id); err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx,
		`DELETE FROM delivery_orders WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

const lineColumns = `id, delivery_order_id, tenant_id, sales_order_line_id, item_id, item_name,
	quantity, quantity_delivered, applied_delivered, created_at, updated_at`

func (r *repository) ListLines(ctx context.Context, tenantID, deliveryOrderID uuid.UUID) ([]DeliveryLine, error) {
	query := fmt.Sprintf(`SELECT %s FROM delivery_lines
		WHERE tenant_id = $1 AND delivery_order_id = $2 ORDER BY created_at`, lineColumns)
	rows, err := r.db.Query(ctx, query, tenantID, deliveryOrderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DeliveryLine
	for rows.Next() {
		var ln DeliveryLine
		err := rows.Scan(&ln.ID, &ln.DeliveryOrderID, &ln.TenantID, &ln.SalesOrderLineID,
			&ln.ItemID, &ln.ItemName, &ln.Quantity, &ln.QuantityDelivered,
			&ln.AppliedDelivered, &ln.CreatedAt, &ln.UpdatedAt)
		if err != nil {
			return nil, err
		}
		out = append(out, ln)
	}
	return out, rows.Err()
}

func (r *repository) InsertLine(ctx context.Context, ln DeliveryLine) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO delivery_lines (id, delivery_order_id, tenant_id, sales_order_line_id, item_id,
			item_name, quantity, quantity_delivered, applied_delivered, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())`,
		ln.ID, ln.DeliveryOrderID, ln.TenantID, ln.SalesOrderLineID, ln.ItemID,
		ln.ItemName, ln.Quantity, ln.QuantityDelivered, ln.AppliedDelivered)
	return err
}

func (r *repository) UpdateLine(ctx context.Context, ln DeliveryLine) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE delivery_lines SET quantity_delivered = $3, applied_delivered = $4, updated_at = NOW()
		WHERE tenant_id = $1 AND id = $2`,
		ln.TenantID, ln.ID, ln.QuantityDelivered, ln.AppliedDelivered)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
