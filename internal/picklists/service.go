package picklists

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/stocktide/stocktide/internal/orderflow"
	"github.com/stocktide/stocktide/internal/sales/orders"
	"github.com/stocktide/stocktide/internal/shared"
)

// OrderPort is the slice of the sales order service picking feeds back into.
type OrderPort interface {
	ApplyPickedQuantities(ctx context.Context, tc shared.TenantContext, orderID uuid.UUID, picked map[uuid.UUID]float64) (*orders.SalesOrder, error)
}

// ActivityPort abstracts the activity log.
type ActivityPort interface {
	Record(ctx context.Context, log shared.ActivityLog) error
}

// Service coordinates pick list operations.
type Service struct {
	repo     Repository
	orders   OrderPort
	seq      shared.Sequence
	activity ActivityPort
}

// NewService builds Service.
func NewService(repo Repository, orderPort OrderPort, seq shared.Sequence, activity ActivityPort) *Service {
	return &Service{repo: repo, orders: orderPort, seq: seq, activity: activity}
}

// CreateForOrder opens a pick list for a sales order moving into picking.
// Requested quantities copy the order's allocations. Satisfies the sales
// order service's PickListCreator port.
func (s *Service) CreateForOrder(ctx context.Context, tc shared.TenantContext, order *orders.SalesOrder) (uuid.UUID, error) {
	if order.TenantID != tc.TenantID {
		return uuid.Nil, shared.ErrTenantMismatch
	}

	displayID, err := s.seq.Next(ctx, tc.TenantID, "pick_list")
	if err != nil {
		return uuid.Nil, fmt.Errorf("allocate display id: %w", err)
	}

	pl := PickList{
		ID:           uuid.New(),
		TenantID:     tc.TenantID,
		DisplayID:    displayID,
		SalesOrderID: order.ID,
		Status:       StatusPending,
		CreatedBy:    tc.ActorID,
	}
	items := make([]PickListItem, 0, len(order.Lines))
	for _, line := range order.Lines {
		requested := line.QuantityAllocated
		if requested == 0 {
			requested = line.Quantity
		}
		items = append(items, PickListItem{
			ID:                uuid.New(),
			PickListID:        pl.ID,
			TenantID:          tc.TenantID,
			SalesOrderLineID:  line.ID,
			ItemID:            line.ItemID,
			ItemName:          line.ItemName,
			QuantityRequested: requested,
		})
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if err := repo.Create(ctx, pl); err != nil {
			return fmt.Errorf("create pick list: %w", err)
		}
		for _, item := range items {
			if err := repo.InsertItem(ctx, item); err != nil {
				return fmt.Errorf("insert item: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	s.logActivity(ctx, tc, "create", pl.ID, pl.DisplayID, nil)
	return pl.ID, nil
}

// Get loads one pick list with its items.
func (s *Service) Get(ctx context.Context, tc shared.TenantContext, id uuid.UUID) (*PickList, error) {
	return s.repo.Get(ctx, tc.TenantID, id)
}

// List returns a filtered page.
func (s *Service) List(ctx context.Context, tc shared.TenantContext, req ListPickListsRequest) ([]PickList, int, error) {
	return s.repo.List(ctx, tc.TenantID, req)
}

// PickItem records a picked quantity against one item. Only valid while the
// pick list is in progress; the quantity cannot exceed the request.
func (s *Service) PickItem(ctx context.Context, tc shared.TenantContext, pickListID, itemID uuid.UUID, req PickItemRequest) (*PickList, error) {
	pl, err := s.repo.Get(ctx, tc.TenantID, pickListID)
	if err != nil {
		return nil, err
	}
	if pl.Status != StatusInProgress {
		return nil, fmt.Errorf("%w: pick list %s is %s, picking requires in_progress",
			shared.ErrInvalidArgument, pl.DisplayID, pl.Status)
	}

	var target *PickListItem
	for i := range pl.Items {
		if pl.Items[i].ID == itemID {
			target = &pl.Items[i]
			break
		}
	}
	if target == nil {
		return nil, fmt.Errorf("pick list item %s: %w", itemID, shared.ErrNotFound)
	}
	if req.Quantity > target.QuantityRequested {
		return nil, fmt.Errorf("%w: picked %v exceeds requested %v",
			orderflow.ErrQuantityConservation, req.Quantity, target.QuantityRequested)
	}

	now := time.Now()
	target.QuantityPicked = req.Quantity
	target.PickedBy = &tc.ActorID
	target.PickedAt = &now
	if err := s.repo.UpdateItem(ctx, *target); err != nil {
		return nil, fmt.Errorf("update item: %w", err)
	}
	return s.repo.Get(ctx, tc.TenantID, pickListID)
}

// UpdateStatus moves the pick list through its lifecycle. Completion feeds
// the picked quantities back into the sales order.
func (s *Service) UpdateStatus(ctx context.Context, tc shared.TenantContext, id uuid.UUID, req UpdateStatusRequest) (*PickList, error) {
	pl, err := s.repo.Get(ctx, tc.TenantID, id)
	if err != nil {
		return nil, err
	}
	next := req.Status
	if !pl.Status.CanTransition(next) {
		return nil, fmt.Errorf("%w: pick list %s → %s", orderflow.ErrInvalidTransition, pl.Status, next)
	}
	if next == pl.Status {
		return pl, nil
	}

	now := time.Now()
	previous := pl.Status
	pl.Status = next
	switch next {
	case StatusInProgress:
		pl.StartedBy = &tc.ActorID
		pl.StartedAt = &now
	case StatusCompleted:
		pl.CompletedBy = &tc.ActorID
		pl.CompletedAt = &now
	}

	if err := s.repo.UpdateHeader(ctx, *pl); err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}

	if next == StatusCompleted {
		picked := make(map[uuid.UUID]float64, len(pl.Items))
		for _, item := range pl.Items {
			picked[item.SalesOrderLineID] = item.QuantityPicked
		}
		if _, err := s.orders.ApplyPickedQuantities(ctx, tc, pl.SalesOrderID, picked); err != nil {
			return nil, fmt.Errorf("propagate picked quantities: %w", err)
		}
	}

	s.logActivity(ctx, tc, "update_status", pl.ID, pl.DisplayID, map[string]any{
		"from": string(previous), "to": string(next),
	})
	return s.repo.Get(ctx, tc.TenantID, id)
}

func (s *Service) logActivity(ctx context.Context, tc shared.TenantContext, action string, id uuid.UUID, name string, changes map[string]any) {
	if s.activity == nil {
		return
	}
	_ = s.activity.Record(ctx, shared.ActivityLog{
		TenantID:   tc.TenantID,
		ActorID:    tc.ActorID,
		ActorName:  tc.ActorName,
		ActionType: action,
		EntityType: "pick_list",
		EntityID:   id,
		EntityName: name,
		Changes:    changes,
		At:         time.Now(),
	})
}
