// Package reminders manages item reminders: stock-threshold alerts, lot
// expiry warnings, and scheduled restock nudges. Evaluation runs in the
// background worker; this package owns the records and the trigger rules.
package reminders

import (
	"time"

	"github.com/google/uuid"
)

// ReminderType selects what a reminder watches.
type ReminderType string

const (
	TypeLowStock ReminderType = "low_stock"
	TypeExpiry   ReminderType = "expiry"
	TypeRestock  ReminderType = "restock"
)

func (t ReminderType) IsValid() bool {
	switch t {
	case TypeLowStock, TypeExpiry, TypeRestock:
		return true
	}
	return false
}

// ReminderStatus is the lifecycle of a reminder record.
type ReminderStatus string

const (
	StatusActive    ReminderStatus = "active"
	StatusPaused    ReminderStatus = "paused"
	StatusTriggered ReminderStatus = "triggered"
	StatusExpired   ReminderStatus = "expired"
)

// Recurrence controls how a restock reminder reschedules after firing.
type Recurrence string

const (
	RecurrenceOnce    Recurrence = "once"
	RecurrenceDaily   Recurrence = "daily"
	RecurrenceWeekly  Recurrence = "weekly"
	RecurrenceMonthly Recurrence = "monthly"
)

func (r Recurrence) IsValid() bool {
	switch r {
	case RecurrenceOnce, RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly:
		return true
	}
	return false
}

// Next returns the following trigger time after the given one, or zero time
// for one-shot reminders.
func (r Recurrence) Next(after time.Time) time.Time {
	switch r {
	case RecurrenceDaily:
		return after.AddDate(0, 0, 1)
	case RecurrenceWeekly:
		return after.AddDate(0, 0, 7)
	case RecurrenceMonthly:
		return after.AddDate(0, 1, 0)
	default:
		return time.Time{}
	}
}

// ComparisonOperator compares a stock quantity against the threshold.
type ComparisonOperator string

const (
	OpLTE ComparisonOperator = "lte"
	OpLT  ComparisonOperator = "lt"
	OpGT  ComparisonOperator = "gt"
	OpGTE ComparisonOperator = "gte"
	OpEQ  ComparisonOperator = "eq"
)

func (op ComparisonOperator) IsValid() bool {
	switch op {
	case OpLTE, OpLT, OpGT, OpGTE, OpEQ:
		return true
	}
	return false
}

// Holds reports whether quantity satisfies the operator against threshold.
// Unknown operators never hold.
func (op ComparisonOperator) Holds(quantity, threshold float64) bool {
	switch op {
	case OpLTE:
		return quantity <= threshold
	case OpLT:
		return quantity < threshold
	case OpGT:
		return quantity > threshold
	case OpGTE:
		return quantity >= threshold
	case OpEQ:
		return quantity == threshold
	}
	return false
}

// Reminder is a stored reminder on an inventory item.
type Reminder struct {
	ID                 uuid.UUID          `json:"id"`
	TenantID           uuid.UUID          `json:"tenant_id"`
	ItemID             uuid.UUID          `json:"item_id"`
	Type               ReminderType       `json:"reminder_type"`
	Status             ReminderStatus     `json:"status"`
	Title              *string            `json:"title,omitempty"`
	Message            *string            `json:"message,omitempty"`
	Threshold          *float64           `json:"threshold,omitempty"`
	ComparisonOperator ComparisonOperator `json:"comparison_operator,omitempty"`
	DaysBeforeExpiry   *int               `json:"days_before_expiry,omitempty"`
	ScheduledAt        *time.Time         `json:"scheduled_at,omitempty"`
	Recurrence         Recurrence         `json:"recurrence"`
	RecurrenceEndDate  *time.Time         `json:"recurrence_end_date,omitempty"`
	NotifyInApp        bool               `json:"notify_in_app"`
	NotifyEmail        bool               `json:"notify_email"`
	NotifyUserIDs      []uuid.UUID        `json:"notify_user_ids,omitempty"`
	LastTriggeredAt    *time.Time         `json:"last_triggered_at,omitempty"`
	NextTriggerAt      *time.Time         `json:"next_trigger_at,omitempty"`
	TriggerCount       int                `json:"trigger_count"`
	CreatedBy          uuid.UUID          `json:"created_by"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// Recipients returns the user ids to notify, defaulting to the creator.
func (r Reminder) Recipients() []uuid.UUID {
	if len(r.NotifyUserIDs) > 0 {
		return r.NotifyUserIDs
	}
	if r.CreatedBy != uuid.Nil {
		return []uuid.UUID{r.CreatedBy}
	}
	return nil
}
