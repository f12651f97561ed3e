// Package customers holds the customer registry that sales and billing
// documents reference.
package customers

import (
	"time"

	"github.com/google/uuid"
)

// Customer is a buyer within a tenant.
type Customer struct {
	ID               uuid.UUID  `json:"id"`
	TenantID         uuid.UUID  `json:"tenant_id"`
	Name             string     `json:"name"`
	CustomerCode     *string    `json:"customer_code,omitempty"`
	Email            *string    `json:"email,omitempty"`
	Phone            *string    `json:"phone,omitempty"`
	BillingAddress   *string    `json:"billing_address,omitempty"`
	BillingCity      *string    `json:"billing_city,omitempty"`
	ShippingAddress  *string    `json:"shipping_address,omitempty"`
	ShippingCity     *string    `json:"shipping_city,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	ArchivedAt       *time.Time `json:"archived_at,omitempty"`
}
