package reminders

import (
	"time"

	"github.com/google/uuid"
)

// CreateReminderRequest is the payload for registering a reminder.
type CreateReminderRequest struct {
	ItemID             uuid.UUID          `json:"item_id" validate:"required"`
	Type               ReminderType       `json:"reminder_type" validate:"required,oneof=low_stock expiry restock"`
	Title              *string            `json:"title,omitempty" validate:"omitempty,max=255"`
	Message            *string            `json:"message,omitempty" validate:"omitempty,max=1000"`
	Threshold          *float64           `json:"threshold,omitempty" validate:"omitempty,gte=0"`
	ComparisonOperator ComparisonOperator `json:"comparison_operator,omitempty" validate:"omitempty,oneof=lte lt gt gte eq"`
	DaysBeforeExpiry   *int               `json:"days_before_expiry,omitempty" validate:"omitempty,gte=0,lte=365"`
	ScheduledAt        *time.Time         `json:"scheduled_at,omitempty"`
	Recurrence         Recurrence         `json:"recurrence,omitempty" validate:"omitempty,oneof=once daily weekly monthly"`
	RecurrenceEndDate  *time.Time         `json:"recurrence_end_date,omitempty"`
	NotifyInApp        *bool              `json:"notify_in_app,omitempty"`
	NotifyEmail        *bool              `json:"notify_email,omitempty"`
	NotifyUserIDs      []uuid.UUID        `json:"notify_user_ids,omitempty" validate:"max=50"`
}

// UpdateReminderRequest is the partial-update payload.
type UpdateReminderRequest struct {
	Title              *string             `json:"title,omitempty" validate:"omitempty,max=255"`
	Message            *string             `json:"message,omitempty" validate:"omitempty,max=1000"`
	Threshold          *float64            `json:"threshold,omitempty" validate:"omitempty,gte=0"`
	ComparisonOperator *ComparisonOperator `json:"comparison_operator,omitempty" validate:"omitempty,oneof=lte lt gt gte eq"`
	DaysBeforeExpiry   *int                `json:"days_before_expiry,omitempty" validate:"omitempty,gte=0,lte=365"`
	ScheduledAt        *time.Time          `json:"scheduled_at,omitempty"`
	Recurrence         *Recurrence         `json:"recurrence,omitempty" validate:"omitempty,oneof=once daily weekly monthly"`
	RecurrenceEndDate  *time.Time          `json:"recurrence_end_date,omitempty"`
	NotifyInApp        *bool               `json:"notify_in_app,omitempty"`
	NotifyEmail        *bool               `json:"notify_email,omitempty"`
	NotifyUserIDs      []uuid.UUID         `json:"notify_user_ids,omitempty" validate:"max=50"`
	Status             *ReminderStatus     `json:"status,omitempty" validate:"omitempty,oneof=active paused"`
}

// ListRemindersRequest filters the reminder listing.
type ListRemindersRequest struct {
	ItemID *uuid.UUID
	Type   ReminderType
	Status ReminderStatus
}
