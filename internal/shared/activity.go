package shared

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ActivityLog records a user-visible change on a document: status changes,
// line edits, payments. The changes map carries from/to values.
type ActivityLog struct {
	TenantID   uuid.UUID
	ActorID    uuid.UUID
	ActorName  string
	ActionType string
	EntityType string
	EntityID   uuid.UUID
	EntityName string
	Changes    map[string]any
	At         time.Time
}

// ActivityLogger writes records into activity_logs.
type ActivityLogger struct {
	pool *pgxpool.Pool
}

// NewActivityLogger returns a new ActivityLogger.
func NewActivityLogger(pool *pgxpool.Pool) *ActivityLogger {
	return &ActivityLogger{pool: pool}
}

// Record persists the log entry. Logging failures are the caller's to
// tolerate; document writes must not roll back over a missing audit row.
func (l *ActivityLogger) Record(ctx context.Context, log ActivityLog) error {
	if l == nil {
		return errors.New("activity logger not initialised")
	}
	if log.ActionType == "" || log.EntityType == "" || log.EntityID == uuid.Nil {
		return errors.New("activity log requires action/entity/entity_id")
	}
	changesJSON, err := json.Marshal(log.Changes)
	if err != nil {
		return err
	}
	_, err = l.pool.Exec(ctx, `
		INSERT INTO activity_logs (tenant_id, user_id, user_name, action_type, entity_type, entity_id, entity_name, changes, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, COALESCE($9, NOW()))`,
		log.TenantID, log.ActorID, log.ActorName, log.ActionType, log.EntityType, log.EntityID, log.EntityName, changesJSON, log.At)
	return err
}
