package customers

// CreateCustomerRequest is the payload for creating a customer.
type CreateCustomerRequest struct {
	Name            string  `json:"name" validate:"required,min=1,max=255"`
	CustomerCode    *string `json:"customer_code,omitempty" validate:"omitempty,max=64"`
	Email           *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone           *string `json:"phone,omitempty" validate:"omitempty,max=32"`
	BillingAddress  *string `json:"billing_address,omitempty"`
	BillingCity     *string `json:"billing_city,omitempty"`
	ShippingAddress *string `json:"shipping_address,omitempty"`
	ShippingCity    *string `json:"shipping_city,omitempty"`
}

// UpdateCustomerRequest is the partial-update payload.
type UpdateCustomerRequest struct {
	Name            *string `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	CustomerCode    *string `json:"customer_code,omitempty" validate:"omitempty,max=64"`
	Email           *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone           *string `json:"phone,omitempty" validate:"omitempty,max=32"`
	BillingAddress  *string `json:"billing_address,omitempty"`
	BillingCity     *string `json:"billing_city,omitempty"`
	ShippingAddress *string `json:"shipping_address,omitempty"`
	ShippingCity    *string `json:"shipping_city,omitempty"`
}

// ListCustomersRequest filters the customer listing.
type ListCustomersRequest struct {
	Search  string
	Page    int
	PerPage int
}
