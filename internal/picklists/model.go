// Package picklists manages the picking stage between a confirmed sales
// order and its shipment. Completing a pick list feeds picked quantities back
// into the sales order lines.
package picklists

import (
	"time"

	"github.com/google/uuid"
)

// Status is the pick list lifecycle state.
type Status string

const (
	StatusDraft      Status = "draft"
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

var transitions = map[Status][]Status{
	StatusDraft:      {StatusPending, StatusCancelled},
	StatusPending:    {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusCancelled},
	StatusCompleted:  {},
	StatusCancelled:  {},
}

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	_, ok := transitions[s]
	return ok
}

// CanTransition reports whether s may move to next. Same-status is always
// allowed for known statuses.
func (s Status) CanTransition(next Status) bool {
	if s == next {
		return s.IsValid()
	}
	for _, candidate := range transitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// PickList stages the physical picking of one sales order.
type PickList struct {
	ID           uuid.UUID      `json:"id"`
	TenantID     uuid.UUID      `json:"tenant_id"`
	DisplayID    string         `json:"display_id"`
	SalesOrderID uuid.UUID      `json:"sales_order_id"`
	Status       Status         `json:"status"`
	Notes        *string        `json:"notes,omitempty"`
	StartedBy    *uuid.UUID     `json:"started_by,omitempty"`
	StartedAt    *time.Time     `json:"started_at,omitempty"`
	CompletedBy  *uuid.UUID     `json:"completed_by,omitempty"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
	CreatedBy    uuid.UUID      `json:"created_by"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	Items        []PickListItem `json:"items,omitempty"`
}

// PickListItem is one line to pick, mirroring a sales order line.
type PickListItem struct {
	ID                uuid.UUID  `json:"id"`
	PickListID        uuid.UUID  `json:"pick_list_id"`
	TenantID          uuid.UUID  `json:"tenant_id"`
	SalesOrderLineID  uuid.UUID  `json:"sales_order_line_id"`
	ItemID            uuid.UUID  `json:"item_id"`
	ItemName          string     `json:"item_name"`
	QuantityRequested float64    `json:"quantity_requested"`
	QuantityPicked    float64    `json:"quantity_picked"`
	PickedBy          *uuid.UUID `json:"picked_by,omitempty"`
	PickedAt          *time.Time `json:"picked_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}
