package customers

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/stocktide/stocktide/internal/shared"
)

// Service handles customer operations.
type Service struct {
	repo Repository
}

// NewService builds a Service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create registers a new customer.
func (s *Service) Create(ctx context.Context, tc shared.TenantContext, req CreateCustomerRequest) (*Customer, error) {
	c := Customer{
		ID:              uuid.New(),
		TenantID:        tc.TenantID,
		Name:            req.Name,
		CustomerCode:    req.CustomerCode,
		Email:           req.Email,
		Phone:           req.Phone,
		BillingAddress:  req.BillingAddress,
		BillingCity:     req.BillingCity,
		ShippingAddress: req.ShippingAddress,
		ShippingCity:    req.ShippingCity,
		CreatedAt:       time.Now(),
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create customer: %w", err)
	}
	return s.repo.Get(ctx, tc.TenantID, c.ID)
}

// Update applies a partial update.
func (s *Service) Update(ctx context.Context, tc shared.TenantContext, id uuid.UUID, req UpdateCustomerRequest) (*Customer, error) {
	existing, err := s.repo.Get(ctx, tc.TenantID, id)
	if err != nil {
		return nil, fmt.Errorf("get customer: %w", err)
	}
	if req.Name != nil {
		existing.Name = *req.Name
	}
	if req.CustomerCode != nil {
		existing.CustomerCode = req.CustomerCode
	}
	if req.Email != nil {
		existing.Email = req.Email
	}
	if req.Phone != nil {
		existing.Phone = req.Phone
	}
	if req.BillingAddress != nil {
		existing.BillingAddress = req.BillingAddress
	}
	if req.BillingCity != nil {
		existing.BillingCity = req.BillingCity
	}
	if req.ShippingAddress != nil {
		existing.ShippingAddress = req.ShippingAddress
	}
	if req.ShippingCity != nil {
		existing.ShippingCity = req.ShippingCity
	}
	if err := s.repo.Update(ctx, *existing); err != nil {
		return nil, fmt.Errorf("update customer: %w", err)
	}
	return s.repo.Get(ctx, tc.TenantID, id)
}

// Get loads one customer.
func (s *Service) Get(ctx context.Context, tc shared.TenantContext, id uuid.UUID) (*Customer, error) {
	return s.repo.Get(ctx, tc.TenantID, id)
}

// List returns a filtered customer page.
func (s *Service) List(ctx context.Context, tc shared.TenantContext, req ListCustomersRequest) ([]Customer, int, error) {
	return s.repo.List(ctx, tc.TenantID, req)
}

// Archive soft-deletes a customer; documents referencing it stay intact.
func (s *Service) Archive(ctx context.Context, tc shared.TenantContext, id uuid.UUID) error {
	return s.repo.Archive(ctx, tc.TenantID, id)
}
