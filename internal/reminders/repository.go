package reminders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"time"

	"github.com/stocktide/stocktide/internal/shared"
)

// Candidate pairs an active reminder with the current stock snapshot of the
// item it watches. The worker evaluates candidates, not bare reminders.
type Candidate struct {
	Reminder     Reminder
	ItemName     string
	ItemQuantity float64
	ItemUnit     string
}

// Repository is the reminders persistence port.
type Repository interface {
	Get(ctx context.Context, tenantID, id uuid.UUID) (*Reminder, error)
	List(ctx context.Context, tenantID uuid.UUID, req ListRemindersRequest) ([]Reminder, error)
	Create(ctx context.Context, r Reminder) error
	Update(ctx context.Context, r Reminder) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error

	// Worker-side scans run across tenants.
	ListDueScheduled(ctx context.Context, now time.Time) ([]Candidate, error)
	ListActiveByType(ctx context.Context, t ReminderType) ([]Candidate, error)
	MarkTriggered(ctx context.Context, id uuid.UUID, at time.Time, next *time.Time, status ReminderStatus) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the pgx-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const reminderColumns = `id, tenant_id, item_id, reminder_type, status, title, message,
	threshold, comparison_operator, days_before_expiry, scheduled_at, recurrence,
	recurrence_end_date, notify_in_app, notify_email, notify_user_ids,
	last_triggered_at, next_trigger_at, trigger_count, created_by, created_at, updated_at`

func scanReminder(row pgx.Row) (*Reminder, error) {
	var rem Reminder
	err := row.Scan(&rem.ID, &rem.TenantID, &rem.ItemID, &rem.Type, &rem.Status,
		&rem.Title, &rem.Message, &rem.Threshold, &rem.ComparisonOperator,
		&rem.DaysBeforeExpiry, &rem.ScheduledAt, &rem.Recurrence, &rem.RecurrenceEndDate,
		&rem.NotifyInApp, &rem.NotifyEmail, &rem.NotifyUserIDs,
		&rem.LastTriggeredAt, &rem.NextTriggerAt, &rem.TriggerCount,
		&rem.CreatedBy, &rem.CreatedAt, &rem.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &rem, nil
}

func (r *repository) Get(ctx context.Context, tenantID, id uuid.UUID) (*Reminder, error) {
	query := fmt.Sprintf(`SELECT %s FROM item_reminders WHERE tenant_id = $1 AND id = $2`, reminderColumns)
	return scanReminder(r.pool.QueryRow(ctx, query, tenantID, id))
}

func (r *repository) List(ctx context.Context, tenantID uuid.UUID, req ListRemindersRequest) ([]Reminder, error) {
	conds := []string{"tenant_id = $1"}
	args := []any{tenantID}
	if req.ItemID != nil {
		args = append(args, *req.ItemID)
		conds = append(conds, fmt.Sprintf("item_id = $%d", len(args)))
	}
	if req.Type != "" {
		args = append(args, req.Type)
		conds = append(conds, fmt.Sprintf("reminder_type = $%d", len(args)))
	}
	if req.Status != "" {
		args = append(args, req.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	query := fmt.Sprintf(`SELECT %s FROM item_reminders WHERE %s ORDER BY created_at DESC`,
		reminderColumns, strings.Join(conds, " AND "))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Reminder
	for rows.Next() {
		rem, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rem)
	}
	return out, rows.Err()
}

func (r *repository) Create(ctx context.Context, rem Reminder) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO item_reminders (id, tenant_id, item_id, reminder_type, status, title, message,
			threshold, comparison_operator, days_before_expiry, scheduled_at, recurrence,
			recurrence_end_date, notify_in_app, notify_email, notify_user_ids,
			next_trigger_at, trigger_count, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, NOW(), NOW())`,
		rem.ID, rem.TenantID, rem.ItemID, rem.Type, rem.Status, rem.Title, rem.Message,
		rem.Threshold, nullIfEmpty(string(rem.ComparisonOperator)), rem.DaysBeforeExpiry,
		rem.ScheduledAt, rem.Recurrence, rem.RecurrenceEndDate,
		rem.NotifyInApp, rem.NotifyEmail, rem.NotifyUserIDs,
		rem.NextTriggerAt, rem.TriggerCount, rem.CreatedBy)
	return err
}

func (r *repository) Update(ctx context.Context, rem Reminder) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE item_reminders SET
			title = $3, message = $4, threshold = $5, comparison_operator = $6,
			days_before_expiry = $7, scheduled_at = $8, recurrence = $9,
			recurrence_end_date = $10, notify_in_app = $11, notify_email = $12,
			notify_user_ids = $13, status = $14, next_trigger_at = $15, updated_at = NOW()
		WHERE tenant_id = $1 AND id = $2`,
		rem.TenantID, rem.ID, rem.Title, rem.Message, rem.Threshold,
		nullIfEmpty(string(rem.ComparisonOperator)), rem.DaysBeforeExpiry,
		rem.ScheduledAt, rem.Recurrence, rem.RecurrenceEndDate,
		rem.NotifyInApp, rem.NotifyEmail, rem.NotifyUserIDs, rem.Status, rem.NextTriggerAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM item_reminders WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

const candidateQuery = `SELECT r.id, r.tenant_id, r.item_id, r.reminder_type, r.status, r.title, r.message,
	r.threshold, r.comparison_operator, r.days_before_expiry, r.scheduled_at, r.recurrence,
	r.recurrence_end_date, r.notify_in_app, r.notify_email, r.notify_user_ids,
	r.last_triggered_at, r.next_trigger_at, r.trigger_count, r.created_by, r.created_at, r.updated_at,
	i.name, i.quantity, i.unit
	FROM item_reminders r
	JOIN items i ON i.id = r.item_id AND i.tenant_id = r.tenant_id`

func (r *repository) scanCandidates(rows pgx.Rows) ([]Candidate, error) {
	defer rows.Close()
	var out []Candidate
	for rows.Next() {
		var c Candidate
		rem := &c.Reminder
		err := rows.Scan(&rem.ID, &rem.TenantID, &rem.ItemID, &rem.Type, &rem.Status,
			&rem.Title, &rem.Message, &rem.Threshold, &rem.ComparisonOperator,
			&rem.DaysBeforeExpiry, &rem.ScheduledAt, &rem.Recurrence, &rem.RecurrenceEndDate,
			&rem.NotifyInApp, &rem.NotifyEmail, &rem.NotifyUserIDs,
			&rem.LastTriggeredAt, &rem.NextTriggerAt, &rem.TriggerCount,
			&rem.CreatedBy, &rem.CreatedAt, &rem.UpdatedAt,
			&c.ItemName, &c.ItemQuantity, &c.ItemUnit)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *repository) ListDueScheduled(ctx context.Context, now time.Time) ([]Candidate, error) {
	rows, err := r.pool.Query(ctx, candidateQuery+`
		WHERE r.status = 'active' AND r.reminder_type = 'restock'
		AND r.next_trigger_at IS NOT NULL AND r.next_trigger_at <= $1`, now)
	if err != nil {
		return nil, err
	}
	return r.scanCandidates(rows)
}

func (r *repository) ListActiveByType(ctx context.Context, t ReminderType) ([]Candidate, error) {
	rows, err := r.pool.Query(ctx, candidateQuery+`
		WHERE r.status = 'active' AND r.reminder_type = $1`, t)
	if err != nil {
		return nil, err
	}
	return r.scanCandidates(rows)
}

func (r *repository) MarkTriggered(ctx context.Context, id uuid.UUID, at time.Time, next *time.Time, status ReminderStatus) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE item_reminders SET last_triggered_at = $2, next_trigger_at = $3,
			status = $4, trigger_count = trigger_count + 1, updated_at = NOW()
		WHERE id = $1`, id, at, next, status)
	return err
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
