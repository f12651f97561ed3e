package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/stocktide/stocktide/internal/customers"
	"github.com/stocktide/stocktide/internal/inventory"
	"github.com/stocktide/stocktide/internal/orderflow"
	"github.com/stocktide/stocktide/internal/shared"
)

// CustomerPort is the slice of the customer registry the orders need.
type CustomerPort interface {
	Get(ctx context.Context, tc shared.TenantContext, id uuid.UUID) (*customers.Customer, error)
}

// ItemPort resolves items for line snapshots.
type ItemPort interface {
	GetItem(ctx context.Context, tc shared.TenantContext, id uuid.UUID) (*inventory.Item, error)
}

// PickListCreator opens a pick list when an order moves to picking. The
// picklists service plugs in here after construction.
type PickListCreator interface {
	CreateForOrder(ctx context.Context, tc shared.TenantContext, order *SalesOrder) (uuid.UUID, error)
}

// ActivityPort abstracts the activity log.
type ActivityPort interface {
	Record(ctx context.Context, log shared.ActivityLog) error
}

// ShipmentDelta carries per-line counter increments from a delivery.
type ShipmentDelta struct {
	Shipped   float64
	Delivered float64
}

// Service coordinates sales order operations.
type Service struct {
	repo      Repository
	customers CustomerPort
	items     ItemPort
	seq       shared.Sequence
	activity  ActivityPort
	picklists PickListCreator
}

// NewService builds Service. The pick list creator is attached separately to
// break the construction cycle between orders and picklists.
func NewService(repo Repository, customerPort CustomerPort, itemPort ItemPort, seq shared.Sequence, activity ActivityPort) *Service {
	return &Service{repo: repo, customers: customerPort, items: itemPort, seq: seq, activity: activity}
}

// SetPickListCreator attaches the pick list factory.
func (s *Service) SetPickListCreator(p PickListCreator) {
	s.picklists = p
}

// Create opens a draft order, optionally with initial lines.
func (s *Service) Create(ctx context.Context, tc shared.TenantContext, req CreateSalesOrderRequest) (*SalesOrder, error) {
	if req.CustomerID != nil {
		if _, err := s.customers.Get(ctx, tc, *req.CustomerID); err != nil {
			return nil, fmt.Errorf("verify customer: %w", err)
		}
	}

	displayID, err := s.seq.Next(ctx, tc.TenantID, "sales_order")
	if err != nil {
		return nil, fmt.Errorf("allocate display id: %w", err)
	}

	order := SalesOrder{
		ID:         uuid.New(),
		TenantID:   tc.TenantID,
		DisplayID:  displayID,
		CustomerID: req.CustomerID,
		Status:     orderflow.SOStatusDraft,
		Notes:      req.Notes,
		CreatedBy:  tc.ActorID,
	}

	lines := make([]SalesOrderLine, 0, len(req.Lines))
	for i, lineReq := range req.Lines {
		line, err := s.buildLine(ctx, tc, order.ID, lineReq, i+1)
		if err != nil {
			return nil, err
		}
		lines = append(lines, *line)
	}
	applyDocumentTotals(&order, lines)

	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if err := repo.Create(ctx, order); err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		for _, line := range lines {
			if err := repo.InsertLine(ctx, line); err != nil {
				return fmt.Errorf("insert line: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logActivity(ctx, tc, "create", order.ID, order.DisplayID, nil)
	return s.repo.Get(ctx, tc.TenantID, order.ID)
}

// Get loads one order with its lines.
func (s *Service) Get(ctx context.Context, tc shared.TenantContext, id uuid.UUID) (*SalesOrder, error) {
	return s.repo.Get(ctx, tc.TenantID, id)
}

// List returns a filtered page of orders.
func (s *Service) List(ctx context.Context, tc shared.TenantContext, req ListSalesOrdersRequest) ([]SalesOrder, int, error) {
	return s.repo.List(ctx, tc.TenantID, req)
}

// Update edits header fields while the order is still editable.
func (s *Service) Update(ctx context.Context, tc shared.TenantContext, id uuid.UUID, req UpdateSalesOrderRequest) (*SalesOrder, error) {
	order, err := s.repo.Get(ctx, tc.TenantID, id)
	if err != nil {
		return nil, err
	}
	if !order.Editable() {
		return nil, fmt.Errorf("%w: order %s is %s, editable only in draft or submitted",
			shared.ErrInvalidArgument, order.DisplayID, order.Status)
	}
	if req.CustomerID != nil {
		if _, err := s.customers.Get(ctx, tc, *req.CustomerID); err != nil {
			return nil, fmt.Errorf("verify customer: %w", err)
		}
		order.CustomerID = req.CustomerID
	}
	if req.Notes != nil {
		order.Notes = req.Notes
	}
	if err := s.repo.UpdateHeader(ctx, *order); err != nil {
		return nil, fmt.Errorf("update order: %w", err)
	}
	s.logActivity(ctx, tc, "update", order.ID, order.DisplayID, nil)
	return s.repo.Get(ctx, tc.TenantID, id)
}

// Delete removes a draft order.
func (s *Service) Delete(ctx context.Context, tc shared.TenantContext, id uuid.UUID) error {
	order, err := s.repo.Get(ctx, tc.TenantID, id)
	if err != nil {
		return err
	}
	if order.Status != orderflow.SOStatusDraft {
		return fmt.Errorf("%w: only draft orders can be deleted, %s is %s",
			shared.ErrInvalidArgument, order.DisplayID, order.Status)
	}
	if err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		return repo.Delete(ctx, tc.TenantID, id)
	}); err != nil {
		return err
	}
	s.logActivity(ctx, tc, "delete", order.ID, order.DisplayID, nil)
	return nil
}

// UpdateStatus requests a transition. Every change is gated by the transition
// table; type-specific business checks and audit stamps apply on top.
func (s *Service) UpdateStatus(ctx context.Context, tc shared.TenantContext, id uuid.UUID, req UpdateStatusRequest) (*SalesOrder, error) {
	order, err := s.repo.Get(ctx, tc.TenantID, id)
	if err != nil {
		return nil, err
	}
	next := req.Status
	if !orderflow.ValidSOTransition(order.Status, next) {
		return nil, fmt.Errorf("%w: sales order %s → %s", orderflow.ErrInvalidTransition, order.Status, next)
	}
	if next == order.Status {
		return order, nil
	}

	now := time.Now()
	previous := order.Status
	order.Status = next

	switch next {
	case orderflow.SOStatusSubmitted:
		if order.CustomerID == nil {
			return nil, fmt.Errorf("%w: cannot submit without a customer", shared.ErrInvalidArgument)
		}
		if len(order.Lines) == 0 {
			return nil, fmt.Errorf("%w: cannot submit without lines", shared.ErrInvalidArgument)
		}
		order.SubmittedBy = &tc.ActorID
		order.SubmittedAt = &now
	case orderflow.SOStatusConfirmed:
		order.ConfirmedBy = &tc.ActorID
		order.ConfirmedAt = &now
		// Confirmation reserves the full ordered quantity.
		for i := range order.Lines {
			order.Lines[i].QuantityAllocated = order.Lines[i].Quantity
		}
	case orderflow.SOStatusPicking:
		if s.picklists != nil && order.PickListID == nil {
			plID, err := s.picklists.CreateForOrder(ctx, tc, order)
			if err != nil {
				return nil, fmt.Errorf("create pick list: %w", err)
			}
			order.PickListID = &plID
		}
	case orderflow.SOStatusCancelled:
		if req.Reason == nil || *req.Reason == "" {
			return nil, fmt.Errorf("%w: cancellation requires a reason", shared.ErrInvalidArgument)
		}
		order.CancelledBy = &tc.ActorID
		order.CancelledAt = &now
		order.CancellationReason = req.Reason
	case orderflow.SOStatusDraft:
		// Reopening clears the cancellation record.
		order.CancelledBy = nil
		order.CancelledAt = nil
		order.CancellationReason = nil
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if err := repo.UpdateHeader(ctx, *order); err != nil {
			return err
		}
		if next == orderflow.SOStatusConfirmed {
			for _, line := range order.Lines {
				if err := repo.UpdateLine(ctx, line); err != nil {
					return fmt.Errorf("allocate line: %w", err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}

	s.logActivity(ctx, tc, "update_status", order.ID, order.DisplayID, map[string]any{
		"from": string(previous), "to": string(next),
	})
	return s.repo.Get(ctx, tc.TenantID, id)
}

// AddLine appends a line to an editable order and recomputes totals.
func (s *Service) AddLine(ctx context.Context, tc shared.TenantContext, orderID uuid.UUID, req CreateOrderLineReq) (*SalesOrder, error) {
	order, err := s.repo.Get(ctx, tc.TenantID, orderID)
	if err != nil {
		return nil, err
	}
	if !order.Editable() {
		return nil, fmt.Errorf("%w: lines can only change in draft or submitted", shared.ErrInvalidArgument)
	}
	line, err := s.buildLine(ctx, tc, orderID, req, len(order.Lines)+1)
	if err != nil {
		return nil, err
	}
	order.Lines = append(order.Lines, *line)
	applyDocumentTotals(order, order.Lines)

	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if err := repo.InsertLine(ctx, *line); err != nil {
			return fmt.Errorf("insert line: %w", err)
		}
		return repo.UpdateHeader(ctx, *order)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, tc.TenantID, orderID)
}

// UpdateLine edits quantity or pricing on one line and recomputes totals.
func (s *Service) UpdateLine(ctx context.Context, tc shared.TenantContext, orderID, lineID uuid.UUID, req UpdateOrderLineReq) (*SalesOrder, error) {
	order, err := s.repo.Get(ctx, tc.TenantID, orderID)
	if err != nil {
		return nil, err
	}
	if !order.Editable() {
		return nil, fmt.Errorf("%w: lines can only change in draft or submitted", shared.ErrInvalidArgument)
	}

	var target *SalesOrderLine
	for i := range order.Lines {
		if order.Lines[i].ID == lineID {
			target = &order.Lines[i]
			break
		}
	}
	if target == nil {
		return nil, fmt.Errorf("line %s: %w", lineID, shared.ErrNotFound)
	}

	if req.Quantity != nil {
		target.Quantity = *req.Quantity
	}
	if req.UnitPrice != nil {
		target.UnitPrice = *req.UnitPrice
	}
	if req.DiscountPercent != nil {
		target.DiscountPercent = *req.DiscountPercent
	}
	if req.TaxRate != nil {
		target.TaxRate = *req.TaxRate
	}
	if err := target.Pipeline().Validate(); err != nil {
		return nil, err
	}
	target.applyAmounts(orderflow.LineTotals(target.Quantity, target.UnitPrice, target.DiscountPercent, target.TaxRate))
	applyDocumentTotals(order, order.Lines)

	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if err := repo.UpdateLine(ctx, *target); err != nil {
			return fmt.Errorf("update line: %w", err)
		}
		return repo.UpdateHeader(ctx, *order)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, tc.TenantID, orderID)
}

// RemoveLine deletes a line and recomputes totals.
func (s *Service) RemoveLine(ctx context.Context, tc shared.TenantContext, orderID, lineID uuid.UUID) (*SalesOrder, error) {
	order, err := s.repo.Get(ctx, tc.TenantID, orderID)
	if err != nil {
		return nil, err
	}
	if !order.Editable() {
		return nil, fmt.Errorf("%w: lines can only change in draft or submitted", shared.ErrInvalidArgument)
	}

	remaining := order.Lines[:0]
	found := false
	for _, line := range order.Lines {
		if line.ID == lineID {
			found = true
			continue
		}
		remaining = append(remaining, line)
	}
	if !found {
		return nil, fmt.Errorf("line %s: %w", lineID, shared.ErrNotFound)
	}
	order.Lines = remaining
	applyDocumentTotals(order, order.Lines)

	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if err := repo.DeleteLine(ctx, tc.TenantID, orderID, lineID); err != nil {
			return err
		}
		return repo.UpdateHeader(ctx, *order)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, tc.TenantID, orderID)
}

// ApplyPickedQuantities records completed picking against the order's lines
// and advances the order to picked when the transition table allows it.
// Proposed values are absolute, per line, and capped by the allocation.
func (s *Service) ApplyPickedQuantities(ctx context.Context, tc shared.TenantContext, orderID uuid.UUID, picked map[uuid.UUID]float64) (*SalesOrder, error) {
	order, err := s.repo.Get(ctx, tc.TenantID, orderID)
	if err != nil {
		return nil, err
	}

	for i := range order.Lines {
		line := &order.Lines[i]
		proposed, ok := picked[line.ID]
		if !ok {
			continue
		}
		if !orderflow.QuantityAdvanceValid(line.QuantityPicked, proposed, line.QuantityAllocated) {
			return nil, fmt.Errorf("%w: quantity_picked %v exceeds allocated %v on line %s",
				orderflow.ErrQuantityConservation, proposed, line.QuantityAllocated, line.ID)
		}
		line.QuantityPicked = proposed
		if err := line.Pipeline().Validate(); err != nil {
			return nil, err
		}
	}

	if order.Status == orderflow.SOStatusPicking && orderflow.ValidSOTransition(order.Status, orderflow.SOStatusPicked) {
		order.Status = orderflow.SOStatusPicked
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		for _, line := range order.Lines {
			if _, ok := picked[line.ID]; !ok {
				continue
			}
			if err := repo.UpdateLine(ctx, line); err != nil {
				return fmt.Errorf("update line: %w", err)
			}
		}
		return repo.UpdateHeader(ctx, *order)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, tc.TenantID, orderID)
}

// ApplyShipmentDeltas records shipped/delivered increments from a delivery
// order, validates each against its upstream cap, and applies the shipping
// roll-up suggestion when the transition table permits it.
func (s *Service) ApplyShipmentDeltas(ctx context.Context, tc shared.TenantContext, orderID uuid.UUID, deltas map[uuid.UUID]ShipmentDelta) (*SalesOrder, error) {
	order, err := s.repo.Get(ctx, tc.TenantID, orderID)
	if err != nil {
		return nil, err
	}

	for i := range order.Lines {
		line := &order.Lines[i]
		delta, ok := deltas[line.ID]
		if !ok {
			continue
		}
		if delta.Shipped != 0 {
			proposed := line.QuantityShipped + delta.Shipped
			if !orderflow.QuantityAdvanceValid(line.QuantityShipped, proposed, line.QuantityPicked) {
				return nil, fmt.Errorf("%w: quantity_shipped %v exceeds picked %v on line %s",
					orderflow.ErrQuantityConservation, proposed, line.QuantityPicked, line.ID)
			}
			line.QuantityShipped = proposed
		}
		if delta.Delivered != 0 {
			proposed := line.QuantityDelivered + delta.Delivered
			if !orderflow.QuantityAdvanceValid(line.QuantityDelivered, proposed, line.QuantityShipped) {
				return nil, fmt.Errorf("%w: quantity_delivered %v exceeds shipped %v on line %s",
					orderflow.ErrQuantityConservation, proposed, line.QuantityShipped, line.ID)
			}
			line.QuantityDelivered = proposed
		}
		if err := line.Pipeline().Validate(); err != nil {
			return nil, err
		}
	}

	rollup := make([]orderflow.ShippingLine, len(order.Lines))
	for i, line := range order.Lines {
		rollup[i] = orderflow.ShippingLine{Ordered: line.Quantity, Shipped: line.QuantityShipped}
	}
	if suggested := orderflow.ShippingRollup(order.Status, rollup); suggested != order.Status {
		if orderflow.ValidSOTransition(order.Status, suggested) {
			order.Status = suggested
		}
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		for _, line := range order.Lines {
			if _, ok := deltas[line.ID]; !ok {
				continue
			}
			if err := repo.UpdateLine(ctx, line); err != nil {
				return fmt.Errorf("update line: %w", err)
			}
		}
		return repo.UpdateHeader(ctx, *order)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, tc.TenantID, orderID)
}

// MarkInvoiced advances quantity_invoiced on the given lines. Proposed values
// are absolute and capped by quantity_delivered per the conservation chain.
func (s *Service) MarkInvoiced(ctx context.Context, tc shared.TenantContext, orderID uuid.UUID, invoiced map[uuid.UUID]float64) error {
	order, err := s.repo.Get(ctx, tc.TenantID, orderID)
	if err != nil {
		return err
	}
	for i := range order.Lines {
		line := &order.Lines[i]
		proposed, ok := invoiced[line.ID]
		if !ok {
			continue
		}
		if !orderflow.QuantityAdvanceValid(line.QuantityInvoiced, proposed, line.QuantityDelivered) {
			return fmt.Errorf("%w: quantity_invoiced %v exceeds delivered %v on line %s",
				orderflow.ErrQuantityConservation, proposed, line.QuantityDelivered, line.ID)
		}
		line.QuantityInvoiced = proposed
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		for _, line := range order.Lines {
			if _, ok := invoiced[line.ID]; !ok {
				continue
			}
			if err := repo.UpdateLine(ctx, line); err != nil {
				return fmt.Errorf("update line: %w", err)
			}
		}
		return nil
	})
}

func (s *Service) buildLine(ctx context.Context, tc shared.TenantContext, orderID uuid.UUID, req CreateOrderLineReq, position int) (*SalesOrderLine, error) {
	item, err := s.items.GetItem(ctx, tc, req.ItemID)
	if err != nil {
		return nil, fmt.Errorf("verify item: %w", err)
	}
	unitPrice := item.Price
	if req.UnitPrice != nil {
		unitPrice = *req.UnitPrice
	}
	line := SalesOrderLine{
		ID:              uuid.New(),
		SalesOrderID:    orderID,
		TenantID:        tc.TenantID,
		ItemID:          item.ID,
		ItemName:        item.Name,
		ItemSKU:         item.SKU,
		Quantity:        req.Quantity,
		UnitPrice:       unitPrice,
		DiscountPercent: req.DiscountPercent,
		TaxRate:         req.TaxRate,
		Position:        position,
	}
	line.applyAmounts(orderflow.LineTotals(line.Quantity, line.UnitPrice, line.DiscountPercent, line.TaxRate))
	return &line, nil
}

func applyDocumentTotals(order *SalesOrder, lines []SalesOrderLine) {
	inputs := make([]orderflow.LineInput, len(lines))
	for i, line := range lines {
		inputs[i] = orderflow.LineInput{
			Quantity:        line.Quantity,
			UnitPrice:       line.UnitPrice,
			DiscountPercent: line.DiscountPercent,
			TaxRate:         line.TaxRate,
		}
	}
	totals := orderflow.DocumentTotals(inputs)
	order.Subtotal = totals.Subtotal
	order.DiscountAmount = totals.TotalDiscount
	order.TaxAmount = totals.TotalTax
	order.Total = totals.Total
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
		EntityType: "sales_order",
		EntityID:   id,
		EntityName: name,
		Changes:    changes,
		At:         time.Now(),
	})
}
