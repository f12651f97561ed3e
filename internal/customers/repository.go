package customers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stocktide/stocktide/internal/shared"
)

// Repository is the customer persistence port.
type Repository interface {
	Get(ctx context.Context, tenantID, id uuid.UUID) (*Customer, error)
	List(ctx context.Context, tenantID uuid.UUID, req ListCustomersRequest) ([]Customer, int, error)
	Create(ctx context.Context, c Customer) error
	Update(ctx context.Context, c Customer) error
	Archive(ctx context.Context, tenantID, id uuid.UUID) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the pgx-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const customerColumns = `id, tenant_id, name, customer_code, email, phone,
	billing_address, billing_city, shipping_address, shipping_city,
	created_at, updated_at, archived_at`

func scanCustomer(row pgx.Row) (*Customer, error) {
	var c Customer
	err := row.Scan(&c.ID, &c.TenantID, &c.Name, &c.CustomerCode, &c.Email, &c.Phone,
		&c.BillingAddress, &c.BillingCity, &c.ShippingAddress, &c.ShippingCity,
		&c.CreatedAt, &c.UpdatedAt, &c.ArchivedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *repository) Get(ctx context.Context, tenantID, id uuid.UUID) (*Customer, error) {
	query := fmt.Sprintf(`SELECT %s FROM customers WHERE tenant_id = $1 AND id = $2`, customerColumns)
	return scanCustomer(r.pool.QueryRow(ctx, query, tenantID, id))
}

func (r *repository) List(ctx context.Context, tenantID uuid.UUID, req ListCustomersRequest) ([]Customer, int, error) {
	conditions := []string{"tenant_id = $1", "archived_at IS NULL"}
	args := []any{tenantID}
	if req.Search != "" {
		args = append(args, "%"+req.Search+"%")
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR customer_code ILIKE $%d)", len(args), len(args)))
	}
	where := strings.Join(conditions, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM customers WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	p := shared.NewPagination(req.Page, req.PerPage, total)
	args = append(args, p.PerPage, p.Offset())
	query := fmt.Sprintf(`SELECT %s FROM customers WHERE %s ORDER BY name LIMIT $%d OFFSET $%d`,
		customerColumns, where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Customer
	for rows.Next() {
		var c Customer
		if err := rows.Scan(&c.ID, &c.TenantID, &c.Name, &c.CustomerCode, &c.Email, &c.Phone,
			&c.BillingAddress, &c.BillingCity, &c.ShippingAddress, &c.ShippingCity,
			&c.CreatedAt, &c.UpdatedAt, &c.ArchivedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, c Customer) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO customers (id, tenant_id, name, customer_code, email, phone,
			billing_address, billing_city, shipping_address, shipping_city, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)`,
		c.ID, c.TenantID, c.Name, c.CustomerCode, c.Email, c.Phone,
		c.BillingAddress, c.BillingCity, c.ShippingAddress, c.ShippingCity, c.CreatedAt)
	return err
}

func (r *repository) Update(ctx context.Context, c Customer) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE customers SET name=$3, customer_code=$4, email=$5, phone=$6,
			billing_address=$7, billing_city=$8, shipping_address=$9, shipping_city=$10, updated_at=NOW()
		WHERE tenant_id=$1 AND id=$2`,
		c.TenantID, c.ID, c.Name, c.CustomerCode, c.Email, c.Phone,
		c.BillingAddress, c.BillingCity, c.ShippingAddress, c.ShippingCity)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) Archive(ctx context.Context, tenantID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE customers SET archived_at = NOW() WHERE tenant_id=$1 AND id=$2 AND archived_at IS NULL`,
		tenantID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
