package inventory

import "github.com/google/uuid"

// CreateItemRequest is the payload for creating an item.
type CreateItemRequest struct {
	Name        string     `json:"name" validate:"required,min=1,max=255"`
	SKU         *string    `json:"sku,omitempty" validate:"omitempty,max=64"`
	FolderID    *uuid.UUID `json:"folder_id,omitempty"`
	Quantity    float64    `json:"quantity" validate:"gte=0"`
	MinQuantity float64    `json:"min_quantity" validate:"gte=0"`
	Price       float64    `json:"price" validate:"gte=0"`
	CostPrice   *float64   `json:"cost_price,omitempty" validate:"omitempty,gte=0"`
	Unit        string     `json:"unit" validate:"required,max=32"`
	Tags        []string   `json:"tags,omitempty" validate:"max=20,dive,max=64"`
	Notes       *string    `json:"notes,omitempty"`
}

// UpdateItemRequest is the partial-update payload for an item.
type UpdateItemRequest struct {
	Name        *string  `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	SKU         *string  `json:"sku,omitempty" validate:"omitempty,max=64"`
	MinQuantity *float64 `json:"min_quantity,omitempty" validate:"omitempty,gte=0"`
	Price       *float64 `json:"price,omitempty" validate:"omitempty,gte=0"`
	CostPrice   *float64 `json:"cost_price,omitempty" validate:"omitempty,gte=0"`
	Unit        *string  `json:"unit,omitempty" validate:"omitempty,max=32"`
	Notes       *string  `json:"notes,omitempty"`
}

// AdjustQuantityRequest changes the stocked quantity by a signed delta.
type AdjustQuantityRequest struct {
	Delta  float64 `json:"delta" validate:"required"`
	Reason string  `json:"reason,omitempty" validate:"max=255"`
}

// SetTagsRequest replaces the item's tag list.
type SetTagsRequest struct {
	Tags []string `json:"tags" validate:"max=20,dive,max=64"`
}

// MoveItemRequest relocates an item to a folder (nil means root).
type MoveItemRequest struct {
	FolderID *uuid.UUID `json:"folder_id"`
}

// ListItemsRequest filters the item listing.
type ListItemsRequest struct {
	FolderID *uuid.UUID
	Search   string
	Status   ItemStatus
	Page     int
	PerPage  int
}

// CreateFolderRequest is the payload for creating a folder.
type CreateFolderRequest struct {
	Name     string     `json:"name" validate:"required,min=1,max=255"`
	ParentID *uuid.UUID `json:"parent_id,omitempty"`
	Color    *string    `json:"color,omitempty" validate:"omitempty,hexcolor"`
}

// UpdateFolderRequest renames or recolours a folder.
type UpdateFolderRequest struct {
	Name     *string    `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Color    *string    `json:"color,omitempty" validate:"omitempty,hexcolor"`
	ParentID *uuid.UUID `json:"parent_id,omitempty"`
}
