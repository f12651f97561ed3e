package picklists

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

// Repository is the pick list persistence port.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error

	Get(ctx context.Context, tenantID, id uuid.UUID) (*PickList, error)
	List(ctx context.Context, tenantID uuid.UUID, req ListPickListsRequest) ([]PickList, int, error)
	Create(ctx context.Context, pl PickList) error
	UpdateHeader(ctx context.Context, pl PickList) error

	InsertItem(ctx context.Context, item PickListItem) error
	UpdateItem(ctx context.Context, item PickListItem) error
	ListItems(ctx context.Context, tenantID, pickListID uuid.UUID) ([]PickListItem, error)
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

const pickListColumns = `id, tenant_id, display_id, sales_order_id, status, notes,
	started_by, started_at, completed_by, completed_at, created_by, created_at, updated_at`

func scanPickList(row pgx.Row) (*PickList, error) {
	var pl PickList
	err := row.Scan(&pl.ID, &pl.TenantID, &pl.DisplayID, &pl.SalesOrderID, &pl.Status, &pl.Notes,
		&pl.StartedBy, &pl.StartedAt, &pl.CompletedBy, &pl.CompletedAt,
		&pl.CreatedBy, &pl.CreatedAt, &pl.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &pl, nil
}

func (r *repository) Get(ctx context.Context, tenantID, id uuid.UUID) (*PickList, error) {
	query := fmt.Sprintf(`SELECT %s FROM pick_lists WHERE tenant_id = $1 AND id = $2`, pickListColumns)
	pl, err := scanPickList(r.db.QueryRow(ctx, query, tenantID, id))
	if err != nil {
		return nil, err
	}
	pl.Items, err = r.ListItems(ctx, tenantID, id)
	if err != nil {
		return nil, fmt.Errorf("load items: %w", err)
	}
	return pl, nil
}

func (r *repository) List(ctx context.Context, tenantID uuid.UUID, req ListPickListsRequest) ([]PickList, int, error) {
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
		fmt.Sprintf(`SELECT COUNT(*) FROM pick_lists WHERE %s`, where), args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page := shared.NewPagination(req.Page, req.PerPage, total)
	args = append(args, page.PerPage, page.Offset())
	query := fmt.Sprintf(`SELECT %s FROM pick_lists WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		pickListColumns, where, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []PickList
	for rows.Next() {
		pl, err := scanPickList(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *pl)
	}
	return out, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, pl PickList) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO pick_lists (id, tenant_id, display_id, sales_order_id, status, notes,
			created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())`,
		pl.ID, pl.TenantID, pl.DisplayID, pl.SalesOrderID, pl.Status, pl.Notes, pl.CreatedBy)
	return err
}

func (r *repository) UpdateHeader(ctx context.Context, pl PickList) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE pick_lists SET status = $3, notes = $4,
			started_by = $5, started_at = $6, completed_by = $7, completed_at = $8,
			updated_at = NOW()
		WHERE tenant_id = $1 AND id = $2`,
		pl.TenantID, pl.ID, pl.Status, pl.Notes,
		pl.StartedBy, pl.StartedAt, pl.CompletedBy, pl.CompletedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

const itemColumns = `id, pick_list_id, tenant_id, sales_order_line_id, item_id, item_name,
	quantity_requested, quantity_picked, picked_by, picked_at, created_at, updated_at`

func (r *repository) ListItems(ctx context.Context, tenantID, pickListID uuid.UUID) ([]PickListItem, error) {
	query := fmt.Sprintf(`SELECT %s FROM pick_list_items
		WHERE tenant_id = $1 AND pick_list_id = $2 ORDER BY created_at`, itemColumns)
	rows, err := r.db.Query(ctx, query, tenantID, pickListID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PickListItem
	for rows.Next() {
		var it PickListItem
		err := rows.Scan(&it.ID, &it.PickListID, &it.TenantID, &it.SalesOrderLineID,
			&it.ItemID, &it.ItemName, &it.QuantityRequested, &it.QuantityPicked,
			&it.PickedBy, &it.PickedAt, &it.CreatedAt, &it.UpdatedAt)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *repository) InsertItem(ctx context.Context, it PickListItem) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO pick_list_items (id, pick_list_id, tenant_id, sales_order_line_id, item_id,
			item_name, quantity_requested, quantity_picked, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())`,
		it.ID, it.PickListID, it.TenantID, it.SalesOrderLineID, it.ItemID,
		it.ItemName, it.QuantityRequested, it.QuantityPicked)
	return err
}

func (r *repository) UpdateItem(ctx context.Context, it PickListItem) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE pick_list_items SET quantity_picked = $3, picked_by = $4, picked_at = $5, updated_at = NOW()
		WHERE tenant_id = $1 AND id = $2`,
		it.TenantID, it.ID, it.QuantityPicked, it.PickedBy, it.PickedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
