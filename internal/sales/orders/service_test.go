package orders

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/stocktide/stocktide/internal/customers"
	"github.com/stocktide/stocktide/internal/inventory"
	"github.com/stocktide/stocktide/internal/orderflow"
	"github.com/stocktide/stocktide/internal/shared"
)

type memoryRepo struct {
	orders map[uuid.UUID]SalesOrder
	lines  map[uuid.UUID][]SalesOrderLine
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{orders: map[uuid.UUID]SalesOrder{}, lines: map[uuid.UUID][]SalesOrderLine{}}
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return fn(ctx, m)
}

func (m *memoryRepo) Get(ctx context.Context, tenantID, id uuid.UUID) (*SalesOrder, error) {
	o, ok := m.orders[id]
	if !ok || o.TenantID != tenantID {
		return nil, shared.ErrNotFound
	}
	cp := o
	cp.Lines = append([]SalesOrderLine(nil), m.lines[id]...)
	return &cp, nil
}

func (m *memoryRepo) List(_ context.Context, tenantID uuid.UUID, req ListSalesOrdersRequest) ([]SalesOrder, int, error) {
	var out []SalesOrder
	for _, o := range m.orders {
		if o.TenantID != tenantID {
			continue
		}
		if req.Status != "" && o.Status != req.Status {
			continue
		}
		out = append(out, o)
	}
	return out, len(out), nil
}

func (m *memoryRepo) Create(_ context.Context, o SalesOrder) error {
	m.orders[o.ID] = o
	return nil
}

func (m *memoryRepo) UpdateHeader(_ context.Context, o SalesOrder) error {
	if _, ok := m.orders[o.ID]; !ok {
		return shared.ErrNotFound
	}
	o.Lines = nil
	m.orders[o.ID] = o
	return nil
}

func (m *memoryRepo) Delete(_ context.Context, tenantID, id uuid.UUID) error {
	o, ok := m.orders[id]
	if !ok || o.TenantID != tenantID {
		return shared.ErrNotFound
	}
	delete(m.orders, id)
	delete(m.lines, id)
	return nil
}

func (m *memoryRepo) ListLines(_ context.Context, _, orderID uuid.UUID) ([]SalesOrderLine, error) {
	return append([]SalesOrderLine(nil), m.lines[orderID]...), nil
}

func (m *memoryRepo) InsertLine(_ context.Context, l SalesOrderLine) error {
	m.lines[l.SalesOrderID] = append(m.lines[l.SalesOrderID], l)
	return nil
}

func (m *memoryRepo) UpdateLine(_ context.Context, l SalesOrderLine) error {
	lines := m.lines[l.SalesOrderID]
	for i := range lines {
		if lines[i].ID == l.ID {
			lines[i] = l
			return nil
		}
	}
	return shared.ErrNotFound
}

func (m *memoryRepo) DeleteLine(_ context.Context, _, orderID, lineID uuid.UUID) error {
	lines := m.lines[orderID]
	for i := range lines {
		if lines[i].ID == lineID {
			m.lines[orderID] = append(lines[:i], lines[i+1:]...)
			return nil
		}
	}
	return shared.ErrNotFound
}

type stubCustomers struct{ known map[uuid.UUID]bool }

func (s stubCustomers) Get(_ context.Context, _ shared.TenantContext, id uuid.UUID) (*customers.Customer, error) {
	if !s.known[id] {
		return nil, shared.ErrNotFound
	}
	return &customers.Customer{ID: id}, nil
}

type stubItems struct{ items map[uuid.UUID]inventory.Item }

func (s stubItems) GetItem(_ context.Context, _ shared.TenantContext, id uuid.UUID) (*inventory.Item, error) {
	item, ok := s.items[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &item, nil
}

type stubPickLists struct {
	created []uuid.UUID
	fail    bool
}

func (s *stubPickLists) CreateForOrder(_ context.Context, _ shared.TenantContext, order *SalesOrder) (uuid.UUID, error) {
	if s.fail {
		return uuid.Nil, fmt.Errorf("pick list backend down")
	}
	id := uuid.New()
	s.created = append(s.created, id)
	return id, nil
}

type fixture struct {
	svc       *Service
	repo      *memoryRepo
	tc        shared.TenantContext
	customer  uuid.UUID
	widget    inventory.Item
	gadget    inventory.Item
	picklists *stubPickLists
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	tc := shared.TenantContext{TenantID: uuid.New(), ActorID: uuid.New(), ActorName: "Test User"}
	customerID := uuid.New()
	sku := "W-1"
	widget := inventory.Item{ID: uuid.New(), TenantID: tc.TenantID, Name: "Widget", SKU: &sku, Price: 100, Unit: "pcs"}
	gadget := inventory.Item{ID: uuid.New(), TenantID: tc.TenantID, Name: "Gadget", Price: 200, Unit: "pcs"}

	repo := newMemoryRepo()
	pl := &stubPickLists{}
	svc := NewService(repo,
		stubCustomers{known: map[uuid.UUID]bool{customerID: true}},
		stubItems{items: map[uuid.UUID]inventory.Item{widget.ID: widget, gadget.ID: gadget}},
		shared.NewMemSequence(), nil)
	svc.SetPickListCreator(pl)
	return &fixture{svc: svc, repo: repo, tc: tc, customer: customerID, widget: widget, gadget: gadget, picklists: pl}
}

func (f *fixture) createOrder(t *testing.T) *SalesOrder {
	t.Helper()
	order, err := f.svc.Create(context.Background(), f.tc, CreateSalesOrderRequest{
		CustomerID: &f.customer,
		Lines: []CreateOrderLineReq{
			{ItemID: f.widget.ID, Quantity: 5, DiscountPercent: 10, TaxRate: 8},
			{ItemID: f.gadget.ID, Quantity: 3},
		},
	})
	require.NoError(t, err)
	return order
}

func (f *fixture) transitionTo(t *testing.T, id uuid.UUID, statuses ...orderflow.SalesOrderStatus) *SalesOrder {
	t.Helper()
	var order *SalesOrder
	var err error
	for _, st := range statuses {
		order, err = f.svc.UpdateStatus(context.Background(), f.tc, id, UpdateStatusRequest{Status: st})
		require.NoError(t, err, "transition to %s", st)
	}
	return order
}

func TestCreateComputesTotals(t *testing.T) {
	f := newFixture(t)
	order := f.createOrder(t)

	// Widget: 5*100=500, discount 50, tax on 450 at 8% = 36, line total 486.
	// Gadget: 3*200=600, no discount/tax.
	require.Equal(t, 1100.0, order.Subtotal)
	require.Equal(t, 50.0, order.DiscountAmount)
	require.Equal(t, 36.0, order.TaxAmount)
	require.Equal(t, 1086.0, order.Total)
	require.Equal(t, orderflow.SOStatusDraft, order.Status)
	require.Equal(t, "SO-000001", order.DisplayID)
	require.Len(t, order.Lines, 2)
	require.Equal(t, "Widget", order.Lines[0].ItemName)
	require.Equal(t, 486.0, order.Lines[0].LineTotal)
}

func TestSubmitRequiresCustomerAndLines(t *testing.T) {
	f := newFixture(t)

	empty, err := f.svc.Create(context.Background(), f.tc, CreateSalesOrderRequest{})
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(context.Background(), f.tc, empty.ID,
		UpdateStatusRequest{Status: orderflow.SOStatusSubmitted})
	require.ErrorIs(t, err, shared.ErrInvalidArgument)

	_, err = f.svc.Update(context.Background(), f.tc, empty.ID, UpdateSalesOrderRequest{CustomerID: &f.customer})
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(context.Background(), f.tc, empty.ID,
		UpdateStatusRequest{Status: orderflow.SOStatusSubmitted})
	require.ErrorIs(t, err, shared.ErrInvalidArgument)

	_, err = f.svc.AddLine(context.Background(), f.tc, empty.ID, CreateOrderLineReq{ItemID: f.widget.ID, Quantity: 1})
	require.NoError(t, err)
	order, err := f.svc.UpdateStatus(context.Background(), f.tc, empty.ID,
		UpdateStatusRequest{Status: orderflow.SOStatusSubmitted})
	require.NoError(t, err)
	require.Equal(t, orderflow.SOStatusSubmitted, order.Status)
	require.NotNil(t, order.SubmittedBy)
	require.Equal(t, f.tc.ActorID, *order.SubmittedBy)
	require.NotNil(t, order.SubmittedAt)
}

func TestStatusSkipAheadRejected(t *testing.T) {
	f := newFixture(t)
	order := f.createOrder(t)

	_, err := f.svc.UpdateStatus(context.Background(), f.tc, order.ID,
		UpdateStatusRequest{Status: orderflow.SOStatusPicked})
	require.ErrorIs(t, err, orderflow.ErrInvalidTransition)
}

func TestConfirmAllocatesLines(t *testing.T) {
	f := newFixture(t)
	order := f.createOrder(t)

	confirmed := f.transitionTo(t, order.ID, orderflow.SOStatusSubmitted, orderflow.SOStatusConfirmed)
	require.Equal(t, orderflow.SOStatusConfirmed, confirmed.Status)
	require.NotNil(t, confirmed.ConfirmedBy)
	for _, line := range confirmed.Lines {
		require.Equal(t, line.Quantity, line.QuantityAllocated)
	}
}

func TestPickingCreatesPickList(t *testing.T) {
	f := newFixture(t)
	order := f.createOrder(t)

	picking := f.transitionTo(t, order.ID,
		orderflow.SOStatusSubmitted, orderflow.SOStatusConfirmed, orderflow.SOStatusPicking)
	require.NotNil(t, picking.PickListID)
	require.Len(t, f.picklists.created, 1)
	require.Equal(t, f.picklists.created[0], *picking.PickListID)
}

func TestCancelRequiresReasonAndStamps(t *testing.T) {
	f := newFixture(t)
	order := f.createOrder(t)

	_, err := f.svc.UpdateStatus(context.Background(), f.tc, order.ID,
		UpdateStatusRequest{Status: orderflow.SOStatusCancelled})
	require.ErrorIs(t, err, shared.ErrInvalidArgument)

	reason := "customer withdrew"
	cancelled, err := f.svc.UpdateStatus(context.Background(), f.tc, order.ID,
		UpdateStatusRequest{Status: orderflow.SOStatusCancelled, Reason: &reason})
	require.NoError(t, err)
	require.Equal(t, orderflow.SOStatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledBy)
	require.Equal(t, reason, *cancelled.CancellationReason)

	// Cancellation is reversible back to draft, clearing the record.
	reopened := f.transitionTo(t, order.ID, orderflow.SOStatusDraft)
	require.Nil(t, reopened.CancelledBy)
	require.Nil(t, reopened.CancellationReason)
}

func TestDeleteOnlyDraft(t *testing.T) {
	f := newFixture(t)
	order := f.createOrder(t)
	f.transitionTo(t, order.ID, orderflow.SOStatusSubmitted)

	err := f.svc.Delete(context.Background(), f.tc, order.ID)
	require.ErrorIs(t, err, shared.ErrInvalidArgument)

	f.transitionTo(t, order.ID, orderflow.SOStatusDraft)
	require.NoError(t, f.svc.Delete(context.Background(), f.tc, order.ID))
	_, err = f.svc.Get(context.Background(), f.tc, order.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestLineEditsRecomputeTotals(t *testing.T) {
	f := newFixture(t)
	order := f.createOrder(t)

	qty := 10.0
	updated, err := f.svc.UpdateLine(context.Background(), f.tc, order.ID, order.Lines[1].ID,
		UpdateOrderLineReq{Quantity: &qty})
	require.NoError(t, err)
	// Widget unchanged (486), gadget now 10*200=2000.
	require.Equal(t, 2500.0, updated.Subtotal)
	require.Equal(t, 2486.0, updated.Total)

	removed, err := f.svc.RemoveLine(context.Background(), f.tc, order.ID, order.Lines[1].ID)
	require.NoError(t, err)
	require.Len(t, removed.Lines, 1)
	require.Equal(t, 486.0, removed.Total)
}

func TestLineEditsLockedAfterConfirm(t *testing.T) {
	f := newFixture(t)
	order := f.createOrder(t)
	f.transitionTo(t, order.ID, orderflow.SOStatusSubmitted, orderflow.SOStatusConfirmed)

	_, err := f.svc.AddLine(context.Background(), f.tc, order.ID, CreateOrderLineReq{ItemID: f.widget.ID, Quantity: 1})
	require.ErrorIs(t, err, shared.ErrInvalidArgument)
}

func TestApplyPickedQuantitiesCapAndTransition(t *testing.T) {
	f := newFixture(t)
	order := f.createOrder(t)
	picking := f.transitionTo(t, order.ID,
		orderflow.SOStatusSubmitted, orderflow.SOStatusConfirmed, orderflow.SOStatusPicking)

	// Picking beyond the allocation is rejected.
	_, err := f.svc.ApplyPickedQuantities(context.Background(), f.tc, order.ID,
		map[uuid.UUID]float64{picking.Lines[0].ID: picking.Lines[0].QuantityAllocated + 1})
	require.ErrorIs(t, err, orderflow.ErrQuantityConservation)

	picked := map[uuid.UUID]float64{}
	for _, line := range picking.Lines {
		picked[line.ID] = line.QuantityAllocated
	}
	after, err := f.svc.ApplyPickedQuantities(context.Background(), f.tc, order.ID, picked)
	require.NoError(t, err)
	require.Equal(t, orderflow.SOStatusPicked, after.Status)
	for _, line := range after.Lines {
		require.Equal(t, line.QuantityAllocated, line.QuantityPicked)
	}
}

func TestApplyShipmentDeltasRollup(t *testing.T) {
	f := newFixture(t)
	order := f.createOrder(t)
	picking := f.transitionTo(t, order.ID,
		orderflow.SOStatusSubmitted, orderflow.SOStatusConfirmed, orderflow.SOStatusPicking)

	picked := map[uuid.UUID]float64{}
	for _, line := range picking.Lines {
		picked[line.ID] = line.QuantityAllocated
	}
	state, err := f.svc.ApplyPickedQuantities(context.Background(), f.tc, order.ID, picked)
	require.NoError(t, err)

	// Ship only the first line: roll-up suggests partial_shipped.
	partial, err := f.svc.ApplyShipmentDeltas(context.Background(), f.tc, order.ID,
		map[uuid.UUID]ShipmentDelta{state.Lines[0].ID: {Shipped: state.Lines[0].Quantity}})
	require.NoError(t, err)
	require.Equal(t, orderflow.SOStatusPartialShipped, partial.Status)

	// Ship the rest: everything shipped, roll-up suggests shipped.
	full, err := f.svc.ApplyShipmentDeltas(context.Background(), f.tc, order.ID,
		map[uuid.UUID]ShipmentDelta{state.Lines[1].ID: {Shipped: state.Lines[1].Quantity}})
	require.NoError(t, err)
	require.Equal(t, orderflow.SOStatusShipped, full.Status)

	// Shipping more than picked is rejected.
	_, err = f.svc.ApplyShipmentDeltas(context.Background(), f.tc, order.ID,
		map[uuid.UUID]ShipmentDelta{state.Lines[0].ID: {Shipped: 1}})
	require.ErrorIs(t, err, orderflow.ErrQuantityConservation)
}

func TestMarkInvoicedCappedByDelivered(t *testing.T) {
	f := newFixture(t)
	order := f.createOrder(t)
	picking := f.transitionTo(t, order.ID,
		orderflow.SOStatusSubmitted, orderflow.SOStatusConfirmed, orderflow.SOStatusPicking)

	picked := map[uuid.UUID]float64{}
	for _, line := range picking.Lines {
		picked[line.ID] = line.QuantityAllocated
	}
	state, err := f.svc.ApplyPickedQuantities(context.Background(), f.tc, order.ID, picked)
	require.NoError(t, err)

	deltas := map[uuid.UUID]ShipmentDelta{}
	for _, line := range state.Lines {
		deltas[line.ID] = ShipmentDelta{Shipped: line.Quantity, Delivered: line.Quantity}
	}
	state, err = f.svc.ApplyShipmentDeltas(context.Background(), f.tc, order.ID, deltas)
	require.NoError(t, err)

	err = f.svc.MarkInvoiced(context.Background(), f.tc, order.ID,
		map[uuid.UUID]float64{state.Lines[0].ID: state.Lines[0].Quantity + 1})
	require.ErrorIs(t, err, orderflow.ErrQuantityConservation)

	err = f.svc.MarkInvoiced(context.Background(), f.tc, order.ID,
		map[uuid.UUID]float64{state.Lines[0].ID: state.Lines[0].Quantity})
	require.NoError(t, err)

	got, err := f.svc.Get(context.Background(), f.tc, order.ID)
	require.NoError(t, err)
	require.Equal(t, got.Lines[0].Quantity, got.Lines[0].QuantityInvoiced)
}
