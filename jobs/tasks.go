// Package jobs holds the asynq task definitions and handlers the worker
// binary runs: the reminder scan, notification delivery, the overdue invoice
// sweep and idempotency key retention.
package jobs

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the queue all Stocktide jobs run on.
	QueueDefault = "default"

	// TaskReminderScan evaluates due reminders.
	TaskReminderScan = "reminder:scan"
	// TaskNotifySend delivers one notification.
	TaskNotifySend = "notify:send"
	// TaskInvoiceOverdue flips past-due invoices to overdue.
	TaskInvoiceOverdue = "invoice:overdue"
	// TaskIdempotencyCleanup sweeps expired idempotency keys.
	TaskIdempotencyCleanup = "idempotency:cleanup"
)

// ScanPayload carries the evaluation time for recurring sweeps.
type ScanPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewReminderScanTask builds the cron-registered reminder scan task.
func NewReminderScanTask() (*asynq.Task, error) {
	body, err := json.Marshal(ScanPayload{ScheduledFor: time.Now()})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReminderScan, body, asynq.Queue(QueueDefault)), nil
}

// NewInvoiceOverdueTask builds the cron-registered overdue sweep task.
func NewInvoiceOverdueTask() (*asynq.Task, error) {
	body, err := json.Marshal(ScanPayload{ScheduledFor: time.Now()})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskInvoiceOverdue, body, asynq.Queue(QueueDefault)), nil
}

// NewIdempotencyCleanupTask builds the cron-registered retention sweep task.
func NewIdempotencyCleanupTask() (*asynq.Task, error) {
	body, err := json.Marshal(ScanPayload{ScheduledFor: time.Now()})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, body, asynq.Queue(QueueDefault)), nil
}

// NotificationPayload is the wire form of a reminder notification.
type NotificationPayload struct {
	TenantID uuid.UUID   `json:"tenant_id"`
	UserIDs  []uuid.UUID `json:"user_ids"`
	Kind     string      `json:"kind"`
	Title    string      `json:"title"`
	Body     string      `json:"body"`
	ItemID   uuid.UUID   `json:"item_id"`
	InApp    bool        `json:"in_app"`
	Email    bool        `json:"email"`
}

// NewNotificationTask builds a notify:send task.
func NewNotificationTask(payload NotificationPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskNotifySend, body, asynq.Queue(QueueDefault)), nil
}
