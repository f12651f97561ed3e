package delivery

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/stocktide/stocktide/internal/orderflow"
	"github.com/stocktide/stocktide/internal/sales/orders"
	"github.com/stocktide/stocktide/internal/shared"
)

// OrderPort is the slice of the sales order service shipping feeds into.
type OrderPort interface {
	Get(ctx context.Context, tc shared.TenantContext, id uuid.UUID) (*orders.SalesOrder, error)
	ApplyShipmentDeltas(ctx context.Context, tc shared.TenantContext, orderID uuid.UUID, deltas map[uuid.UUID]orders.ShipmentDelta) (*orders.SalesOrder, error)
}

// ActivityPort abstracts the activity log.
type ActivityPort interface {
	Record(ctx context.Context, log shared.ActivityLog) error
}

// Service coordinates delivery order operations.
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

// Create opens a draft shipment against a sales order. The order must have
// finished picking; an empty line list ships everything picked but not yet
// shipped.
func (s *Service) Create(ctx context.Context, tc shared.TenantContext, req CreateDeliveryOrderRequest) (*DeliveryOrder, error) {
	order, err := s.orders.Get(ctx, tc, req.SalesOrderID)
	if err != nil {
		return nil, fmt.Errorf("verify sales order: %w", err)
	}
	if !shippable(order.Status) {
		return nil, fmt.Errorf("%w: sales order %s is %s, shipping requires picked or partial_shipped",
			shared.ErrInvalidArgument, order.DisplayID, order.Status)
	}

	remaining := make(map[uuid.UUID]float64, len(order.Lines))
	byLine := make(map[uuid.UUID]orders.SalesOrderLine, len(order.Lines))
	for _, line := range order.Lines {
		remaining[line.ID] = line.QuantityPicked - line.QuantityShipped
		byLine[line.ID] = line
	}

	displayID, err := s.seq.Next(ctx, tc.TenantID, "delivery_order")
	if err != nil {
		return nil, fmt.Errorf("allocate display id: %w", err)
	}

	do := DeliveryOrder{
		ID:              uuid.New(),
		TenantID:        tc.TenantID,
		DisplayID:       displayID,
		SalesOrderID:    order.ID,
		Status:          orderflow.DOStatusDraft,
		Carrier:         req.Carrier,
		TrackingNumber:  req.TrackingNumber,
		ShippingAddress: req.ShippingAddress,
		Notes:           req.Notes,
		CreatedBy:       tc.ActorID,
	}

	var lines []DeliveryLine
	if len(req.Lines) == 0 {
		for _, line := range order.Lines {
			if remaining[line.ID] <= 0 {
				continue
			}
			lines = append(lines, newLine(do, line, remaining[line.ID]))
		}
	} else {
		for _, lr := range req.Lines {
			line, ok := byLine[lr.SalesOrderLineID]
			if !ok {
				return nil, fmt.Errorf("sales order line %s: %w", lr.SalesOrderLineID, shared.ErrNotFound)
			}
			if lr.Quantity > remaining[line.ID] {
				return nil, fmt.Errorf("%w: line %s has %v left to ship, requested %v",
					orderflow.ErrQuantityConservation, line.ItemName, remaining[line.ID], lr.Quantity)
			}
			lines = append(lines, newLine(do, line, lr.Quantity))
		}
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: nothing left to ship on %s", shared.ErrInvalidArgument, order.DisplayID)
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if err := repo.Create(ctx, do); err != nil {
			return fmt.Errorf("create delivery order: %w", err)
		}
		for _, ln := range lines {
			if err := repo.InsertLine(ctx, ln); err != nil {
				return fmt.Errorf("insert line: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logActivity(ctx, tc, "create", do.ID, do.DisplayID, nil)
	return s.repo.Get(ctx, tc.TenantID, do.ID)
}

func newLine(do DeliveryOrder, line orders.SalesOrderLine, quantity float64) DeliveryLine {
	return DeliveryLine{
		ID:               uuid.New(),
		DeliveryOrderID:  do.ID,
		TenantID:         do.TenantID,
		SalesOrderLineID: line.ID,
		ItemID:           line.ItemID,
		ItemName:         line.ItemName,
		Quantity:         quantity,
	}
}

func shippable(status orderflow.SalesOrderStatus) bool {
	return status == orderflow.SOStatusPicked || status == orderflow.SOStatusPartialShipped
}

// Get loads one delivery order with its lines.
func (s *Service) Get(ctx context.Context, tc shared.TenantContext, id uuid.UUID) (*DeliveryOrder, error) {
	return s.repo.Get(ctx, tc.TenantID, id)
}

// List returns a filtered page.
func (s *Service) List(ctx context.Context, tc shared.TenantContext, req ListDeliveryOrdersRequest) ([]DeliveryOrder, int, error) {
	return s.repo.List(ctx, tc.TenantID, req)
}

// Update edits header fields while the order is still editable.
func (s *Service) Update(ctx context.Context, tc shared.TenantContext, id uuid.UUID, req UpdateDeliveryOrderRequest) (*DeliveryOrder, error) {
	do, err := s.repo.Get(ctx, tc.TenantID, id)
	if err != nil {
		return nil, err
	}
	if !do.Editable() {
		return nil, fmt.Errorf("%w: delivery order %s is %s", shared.ErrInvalidArgument, do.DisplayID, do.Status)
	}
	if req.Carrier != nil {
		do.Carrier = req.Carrier
	}
	if req.TrackingNumber != nil {
		do.TrackingNumber = req.TrackingNumber
	}
	if req.ShippingAddress != nil {
		do.ShippingAddress = req.ShippingAddress
	}
	if req.Notes != nil {
		do.Notes = req.Notes
	}
	if err := s.repo.UpdateHeader(ctx, *do); err != nil {
		return nil, fmt.Errorf("update header: %w", err)
	}
	s.logActivity(ctx, tc, "update", do.ID, do.DisplayID, nil)
	return s.repo.Get(ctx, tc.TenantID, id)
}

// Delete removes a draft delivery order.
func (s *Service) Delete(ctx context.Context, tc shared.TenantContext, id uuid.UUID) error {
	do, err := s.repo.Get(ctx, tc.TenantID, id)
	if err != nil {
		return err
	}
	if do.Status != orderflow.DOStatusDraft {
		return fmt.Errorf("%w: only draft delivery orders can be deleted", shared.ErrInvalidArgument)
	}
	if err := s.repo.Delete(ctx, tc.TenantID, id); err != nil {
		return err
	}
	s.logActivity(ctx, tc, "delete", do.ID, do.DisplayID, nil)
	return nil
}

// RecordDelivered confirms the received quantity on one line. Only meaningful
// once the shipment is moving.
func (s *Service) RecordDelivered(ctx context.Context, tc shared.TenantContext, id, lineID uuid.UUID, req RecordDeliveryRequest) (*DeliveryOrder, error) {
	do, err := s.repo.Get(ctx, tc.TenantID, id)
	if err != nil {
		return nil, err
	}
	switch do.Status {
	case orderflow.DOStatusDispatched, orderflow.DOStatusInTransit, orderflow.DOStatusPartial:
	default:
		return nil, fmt.Errorf("%w: delivery order %s is %s, receipts require a dispatched shipment",
			shared.ErrInvalidArgument, do.DisplayID, do.Status)
	}

	var target *DeliveryLine
	for i := range do.Lines {
		if do.Lines[i].ID == lineID {
			target = &do.Lines[i]
			break
		}
	}
	if target == nil {
		return nil, fmt.Errorf("delivery line %s: %w", lineID, shared.ErrNotFound)
	}
	if req.Quantity > target.Quantity {
		return nil, fmt.Errorf("%w: delivered %v exceeds shipped %v",
			orderflow.ErrQuantityConservation, req.Quantity, target.Quantity)
	}
	if req.Quantity < target.AppliedDelivered {
		return nil, fmt.Errorf("%w: %v already confirmed on the sales order",
			shared.ErrInvalidArgument, target.AppliedDelivered)
	}
	target.QuantityDelivered = req.Quantity
	if err := s.repo.UpdateLine(ctx, *target); err != nil {
		return nil, fmt.Errorf("update line: %w", err)
	}
	return s.repo.Get(ctx, tc.TenantID, id)
}

// UpdateStatus moves the shipment through its lifecycle. Dispatch pushes
// shipped quantities onto the sales order; delivered and partial push
// confirmed receipts.
func (s *Service) UpdateStatus(ctx context.Context, tc shared.TenantContext, id uuid.UUID, req UpdateStatusRequest) (*DeliveryOrder, error) {
	do, err := s.repo.Get(ctx, tc.TenantID, id)
	if err != nil {
		return nil, err
	}
	next := req.Status
	if !orderflow.ValidDOTransition(do.Status, next) {
		return nil, fmt.Errorf("%w: delivery order %s → %s", orderflow.ErrInvalidTransition, do.Status, next)
	}
	if next == do.Status {
		return do, nil
	}

	now := time.Now()
	previous := do.Status
	do.Status = next

	var deltas map[uuid.UUID]orders.ShipmentDelta
	switch next {
	case orderflow.DOStatusDispatched:
		do.DispatchedBy = &tc.ActorID
		do.DispatchedAt = &now
		deltas = make(map[uuid.UUID]orders.ShipmentDelta, len(do.Lines))
		for _, ln := range do.Lines {
			deltas[ln.SalesOrderLineID] = orders.ShipmentDelta{Shipped: ln.Quantity}
		}
	case orderflow.DOStatusDelivered:
		// Unrecorded lines default to a full receipt. An explicit short
		// receipt means the run is partial, not delivered.
		for i := range do.Lines {
			ln := &do.Lines[i]
			if ln.QuantityDelivered == 0 && ln.AppliedDelivered == 0 {
				ln.QuantityDelivered = ln.Quantity
			}
			if ln.QuantityDelivered < ln.Quantity {
				return nil, fmt.Errorf("%w: line %s received %v of %v, use partial",
					shared.ErrInvalidArgument, ln.ItemName, ln.QuantityDelivered, ln.Quantity)
			}
		}
		do.DeliveredAt = &now
		deltas = s.receiptDeltas(do)
	case orderflow.DOStatusPartial:
		short := false
		for _, ln := range do.Lines {
			if ln.QuantityDelivered < ln.Quantity {
				short = true
				break
			}
		}
		if !short {
			return nil, fmt.Errorf("%w: every line fully received, use delivered", shared.ErrInvalidArgument)
		}
		deltas = s.receiptDeltas(do)
	case orderflow.DOStatusFailed:
		if req.Reason == nil || *req.Reason == "" {
			return nil, fmt.Errorf("%w: failing a delivery requires a reason", shared.ErrInvalidArgument)
		}
		do.FailureReason = req.Reason
	case orderflow.DOStatusDraft:
		// Reopening clears the failure record.
		do.FailureReason = nil
	}

	// Propagate first so a rejected shipment leaves the delivery order
	// untouched.
	if len(deltas) > 0 {
		if _, err := s.orders.ApplyShipmentDeltas(ctx, tc, do.SalesOrderID, deltas); err != nil {
			return nil, fmt.Errorf("propagate shipment: %w", err)
		}
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if err := repo.UpdateHeader(ctx, *do); err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		for _, ln := range do.Lines {
			if err := repo.UpdateLine(ctx, ln); err != nil {
				return fmt.Errorf("update line: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logActivity(ctx, tc, "update_status", do.ID, do.DisplayID, map[string]any{
		"from": string(previous), "to": string(next),
	})
	return s.repo.Get(ctx, tc.TenantID, id)
}

// receiptDeltas turns recorded receipts into increments, marking them applied
// so a later partial→delivered top-up only pushes the difference.
func (s *Service) receiptDeltas(do *DeliveryOrder) map[uuid.UUID]orders.ShipmentDelta {
	deltas := make(map[uuid.UUID]orders.ShipmentDelta)
	for i := range do.Lines {
		ln := &do.Lines[i]
		inc := ln.QuantityDelivered - ln.AppliedDelivered
		if inc <= 0 {
			continue
		}
		deltas[ln.SalesOrderLineID] = orders.ShipmentDelta{Delivered: inc}
		ln.AppliedDelivered = ln.QuantityDelivered
	}
	return deltas
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
		EntityType: "delivery_order",
		EntityID:   id,
		EntityName: name,
		Changes:    changes,
		At:         time.Now(),
	})
}
