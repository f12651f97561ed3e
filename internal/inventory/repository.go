package inventory

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

// Repository is the inventory persistence port.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error

	GetItem(ctx context.Context, tenantID, id uuid.UUID) (*Item, error)
	ListItems(ctx context.Context, tenantID uuid.UUID, req ListItemsRequest) ([]Item, int, error)
	ListLowStockItems(ctx context.Context, tenantID uuid.UUID) ([]Item, error)
	CreateItem(ctx context.Context, item Item) error
	UpdateItem(ctx context.Context, item Item) error
	DeleteItem(ctx context.Context, tenantID, id uuid.UUID) error

	GetFolder(ctx context.Context, tenantID, id uuid.UUID) (*Folder, error)
	ListFolders(ctx context.Context, tenantID uuid.UUID) ([]Folder, error)
	CreateFolder(ctx context.Context, folder Folder) error
	UpdateFolder(ctx context.Context, folder Folder) error
	DeleteFolder(ctx context.Context, tenantID, id uuid.UUID) error
	ReparentChildren(ctx context.Context, tenantID, folderID uuid.UUID, newParent *uuid.UUID) error
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

const itemColumns = `id, tenant_id, folder_id, name, sku, quantity, min_quantity,
	price, cost_price, unit, status, tags, notes, created_by, created_at, updated_at`

func scanItem(row pgx.Row) (*Item, error) {
	var it Item
	err := row.Scan(&it.ID, &it.TenantID, &it.FolderID, &it.Name, &it.SKU, &it.Quantity,
		&it.MinQuantity, &it.Price, &it.CostPrice, &it.Unit, &it.Status, &it.Tags,
		&it.Notes, &it.CreatedBy, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &it, nil
}

func (r *repository) GetItem(ctx context.Context, tenantID, id uuid.UUID) (*Item, error) {
	query := fmt.Sprintf(`SELECT %s FROM items WHERE tenant_id = $1 AND id = $2`, itemColumns)
	return scanItem(r.db.QueryRow(ctx, query, tenantID, id))
}

func (r *repository) ListItems(ctx context.Context, tenantID uuid.UUID, req ListItemsRequest) ([]Item, int, error) {
	conditions := []string{"tenant_id = $1"}
	args := []any{tenantID}
	if req.FolderID != nil {
		args = append(args, *req.FolderID)
		conditions = append(conditions, fmt.Sprintf("folder_id = $%d", len(args)))
	}
	if req.Search != "" {
		args = append(args, "%"+req.Search+"%")
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR sku ILIKE $%d)", len(args), len(args)))
	}
	if req.Status != "" {
		args = append(args, req.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	where := strings.Join(conditions, " AND ")

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM items WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	p := shared.NewPagination(req.Page, req.PerPage, total)
	args = append(args, p.PerPage, p.Offset())
	query := fmt.Sprintf(`SELECT %s FROM items WHERE %s ORDER BY name LIMIT $%d OFFSET $%d`,
		itemColumns, where, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items, err := collectItems(rows)
	return items, total, err
}

func (r *repository) ListLowStockItems(ctx context.Context, tenantID uuid.UUID) ([]Item, error) {
	query := fmt.Sprintf(`SELECT %s FROM items WHERE tenant_id = $1 AND quantity <= min_quantity ORDER BY name`, itemColumns)
	rows, err := r.db.Query(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectItems(rows)
}

func collectItems(rows pgx.Rows) ([]Item, error) {
	var out []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.TenantID, &it.FolderID, &it.Name, &it.SKU, &it.Quantity,
			&it.MinQuantity, &it.Price, &it.CostPrice, &it.Unit, &it.Status, &it.Tags,
			&it.Notes, &it.CreatedBy, &it.CreatedAt, &it.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *repository) CreateItem(ctx context.Context, item Item) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO items (id, tenant_id, folder_id, name, sku, quantity, min_quantity,
			price, cost_price, unit, status, tags, notes, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $15)`,
		item.ID, item.TenantID, item.FolderID, item.Name, item.SKU, item.Quantity,
		item.MinQuantity, item.Price, item.CostPrice, item.Unit, item.Status,
		item.Tags, item.Notes, item.CreatedBy, item.CreatedAt)
	return err
}

func (r *repository) UpdateItem(ctx context.Context, item Item) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE items SET folder_id=$3, name=$4, sku=$5, quantity=$6, min_quantity=$7,
			price=$8, cost_price=$9, unit=$10, status=$11, tags=$12, notes=$13, updated_at=NOW()
		WHERE tenant_id=$1 AND id=$2`,
		item.TenantID, item.ID, item.FolderID, item.Name, item.SKU, item.Quantity,
		item.MinQuantity, item.Price, item.CostPrice, item.Unit, item.Status, item.Tags, item.Notes)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) DeleteItem(ctx context.Context, tenantID, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM items WHERE tenant_id=$1 AND id=$2`, tenantID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) GetFolder(ctx context.Context, tenantID, id uuid.UUID) (*Folder, error) {
	var f Folder
	err := r.db.QueryRow(ctx, `
		SELECT id, tenant_id, parent_id, name, color, created_by, created_at, updated_at
		FROM folders WHERE tenant_id = $1 AND id = $2`, tenantID, id).
		Scan(&f.ID, &f.TenantID, &f.ParentID, &f.Name, &f.Color, &f.CreatedBy, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &f, nil
}

func (r *repository) ListFolders(ctx context.Context, tenantID uuid.UUID) ([]Folder, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, tenant_id, parent_id, name, color, created_by, created_at, updated_at
		FROM folders WHERE tenant_id = $1 ORDER BY name`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Folder
	for rows.Next() {
		var f Folder
		if err := rows.Scan(&f.ID, &f.TenantID, &f.ParentID, &f.Name, &f.Color, &f.CreatedBy, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (r *repository) CreateFolder(ctx context.Context, folder Folder) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO folders (id, tenant_id, parent_id, name, color, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`,
		folder.ID, folder.TenantID, folder.ParentID, folder.Name, folder.Color, folder.CreatedBy, folder.CreatedAt)
	return err
}

func (r *repository) UpdateFolder(ctx context.Context, folder Folder) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE folders SET parent_id=$3, name=$4, color=$5, updated_at=NOW()
		WHERE tenant_id=$1 AND id=$2`,
		folder.TenantID, folder.ID, folder.ParentID, folder.Name, folder.Color)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) DeleteFolder(ctx context.Context, tenantID, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM folders WHERE tenant_id=$1 AND id=$2`, tenantID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) ReparentChildren(ctx context.Context, tenantID, folderID uuid.UUID, newParent *uuid.UUID) error {
	if _, err := r.db.Exec(ctx,
		`UPDATE folders SET parent_id=$3, updated_at=NOW() WHERE tenant_id=$1 AND parent_id=$2`,
		tenantID, folderID, newParent); err != nil {
		return err
	}
	_, err := r.db.Exec(ctx,
		`UPDATE items SET folder_id=$3, updated_at=NOW() WHERE tenant_id=$1 AND folder_id=$2`,
		tenantID, folderID, newParent)
	return err
}
