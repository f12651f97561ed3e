package picklists

import "github.com/google/uuid"

// PickItemRequest records a picked quantity on one pick list item.
type PickItemRequest struct {
	Quantity float64 `json:"quantity" validate:"required,gte=0"`
}

// UpdateStatusRequest asks for a status transition.
type UpdateStatusRequest struct {
	Status Status `json:"status" validate:"required,oneof=draft pending in_progress completed cancelled"`
}

// ListPickListsRequest filters the listing.
type ListPickListsRequest struct {
	SalesOrderID *uuid.UUID
	Status       Status
	Page         int
	PerPage      int
}
