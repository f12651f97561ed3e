// Package inventory manages tenant inventory items and the folder tree they
// are organised in.
package inventory

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ItemStatus reflects stock availability of an item.
type ItemStatus string

const (
	ItemStatusInStock    ItemStatus = "in_stock"
	ItemStatusLowStock   ItemStatus = "low_stock"
	ItemStatusOutOfStock ItemStatus = "out_of_stock"
)

// Item is a stocked product.
type Item struct {
	ID          uuid.UUID  `json:"id"`
	TenantID    uuid.UUID  `json:"tenant_id"`
	FolderID    *uuid.UUID `json:"folder_id,omitempty"`
	Name        string     `json:"name"`
	SKU         *string    `json:"sku,omitempty"`
	Quantity    float64    `json:"quantity"`
	MinQuantity float64    `json:"min_quantity"`
	Price       float64    `json:"price"`
	CostPrice   *float64   `json:"cost_price,omitempty"`
	Unit        string     `json:"unit"`
	Status      ItemStatus `json:"status"`
	Tags        []string   `json:"tags,omitempty"`
	Notes       *string    `json:"notes,omitempty"`
	CreatedBy   uuid.UUID  `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// DerivedStatus computes the stock status from quantity and threshold.
func (i Item) DerivedStatus() ItemStatus {
	switch {
	case i.Quantity <= 0:
		return ItemStatusOutOfStock
	case i.Quantity <= i.MinQuantity:
		return ItemStatusLowStock
	default:
		return ItemStatusInStock
	}
}

// Folder groups items; folders nest.
type Folder struct {
	ID        uuid.UUID  `json:"id"`
	TenantID  uuid.UUID  `json:"tenant_id"`
	ParentID  *uuid.UUID `json:"parent_id,omitempty"`
	Name      string     `json:"name"`
	Color     *string    `json:"color,omitempty"`
	CreatedBy uuid.UUID  `json:"created_by"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Domain errors.
var (
	// ErrNegativeStock triggered when an adjustment would drop quantity below zero.
	ErrNegativeStock = errors.New("inventory: negative stock not allowed")
	// ErrFolderCycle triggered when a folder move would create a cycle.
	ErrFolderCycle = errors.New("inventory: folder cannot be its own ancestor")
)
