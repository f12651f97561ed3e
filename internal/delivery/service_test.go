package delivery

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/stocktide/stocktide/internal/orderflow"
	"github.com/stocktide/stocktide/internal/sales/orders"
	"github.com/stocktide/stocktide/internal/shared"
)

type memoryRepo struct {
	orders map[uuid.UUID]DeliveryOrder
	lines  map[uuid.UUID][]DeliveryLine
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		orders: make(map[uuid.UUID]DeliveryOrder),
		lines:  make(map[uuid.UUID][]DeliveryLine),
	}
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return fn(ctx, m)
}

func (m *memoryRepo) Get(ctx context.Context, tenantID, id uuid.UUID) (*DeliveryOrder, error) {
	do, ok := m.orders[id]
	if !ok || do.TenantID != tenantID {
		return nil, shared.ErrNotFound
	}
	lines, _ := m.ListLines(ctx, tenantID, id)
	do.Lines = lines
	return &do, nil
}

func (m *memoryRepo) List(ctx context.Context, tenantID uuid.UUID, req ListDeliveryOrdersRequest) ([]DeliveryOrder, int, error) {
	var out []DeliveryOrder
	for _, do := range m.orders {
		if do.TenantID != tenantID {
			continue
		}
		if req.Status != "" && string(do.Status) != req.Status {
			continue
		}
		if req.SalesOrderID != nil && do.SalesOrderID != *req.SalesOrderID {
			continue
		}
		out = append(out, do)
	}
	return out, len(out), nil
}

func (m *memoryRepo) Create(ctx context.Context, do DeliveryOrder) error {
	m.orders[do.ID] = do
	return nil
}

func (m *memoryRepo) UpdateHeader(ctx context.Context, do DeliveryOrder) error {
	do.Lines = nil
	m.orders[do.ID] = do
	return nil
}

func (m *memoryRepo) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	delete(m.orders, id)
	delete(m.lines, id)
	return nil
}

func (m *memoryRepo) InsertLine(ctx context.Context, ln DeliveryLine) error {
	m.lines[ln.DeliveryOrderID] = append(m.lines[ln.DeliveryOrderID], ln)
	return nil
}

func (m *memoryRepo) UpdateLine(ctx context.Context, ln DeliveryLine) error {
	lines := m.lines[ln.DeliveryOrderID]
	for i := range lines {
		if lines[i].ID == ln.ID {
			lines[i] = ln
			return nil
		}
	}
	return shared.ErrNotFound
}

func (m *memoryRepo) ListLines(ctx context.Context, tenantID, deliveryOrderID uuid.UUID) ([]DeliveryLine, error) {
	var out []DeliveryLine
	for _, ln := range m.lines[deliveryOrderID] {
		if ln.TenantID == tenantID {
			out = append(out, ln)
		}
	}
	return out, nil
}

type stubOrders struct {
	order   *orders.SalesOrder
	applied []map[uuid.UUID]orders.ShipmentDelta
}

func (s *stubOrders) Get(ctx context.Context, tc shared.TenantContext, id uuid.UUID) (*orders.SalesOrder, error) {
	if s.order == nil || s.order.ID != id {
		return nil, shared.ErrNotFound
	}
	return s.order, nil
}

func (s *stubOrders) ApplyShipmentDeltas(ctx context.Context, tc shared.TenantContext, orderID uuid.UUID, deltas map[uuid.UUID]orders.ShipmentDelta) (*orders.SalesOrder, error) {
	s.applied = append(s.applied, deltas)
	for i := range s.order.Lines {
		ln := &s.order.Lines[i]
		if d, ok := deltas[ln.ID]; ok {
			ln.QuantityShipped += d.Shipped
			ln.QuantityDelivered += d.Delivered
		}
	}
	return s.order, nil
}

func (s *stubOrders) lastApplied() map[uuid.UUID]orders.ShipmentDelta {
	if len(s.applied) == 0 {
		return nil
	}
	return s.applied[len(s.applied)-1]
}

func fixture(t *testing.T) (*Service, *stubOrders, shared.TenantContext, *orders.SalesOrder) {
	t.Helper()
	tc := shared.TenantContext{TenantID: uuid.New(), ActorID: uuid.New(), ActorName: "dispatcher"}
	so := &orders.SalesOrder{
		ID:        uuid.New(),
		TenantID:  tc.TenantID,
		DisplayID: "SO-000001",
		Status:    orderflow.SOStatusPicked,
		Lines: []orders.SalesOrderLine{
			{ID: uuid.New(), ItemID: uuid.New(), ItemName: "Widget", Quantity: 5, QuantityAllocated: 5, QuantityPicked: 5},
			{ID: uuid.New(), ItemID: uuid.New(), ItemName: "Gadget", Quantity: 2, QuantityAllocated: 2, QuantityPicked: 2, QuantityShipped: 2},
		},
	}
	orderPort := &stubOrders{order: so}
	svc := NewService(newMemoryRepo(), orderPort, shared.NewMemSequence(), nil)
	return svc, orderPort, tc, so
}

func createDO(t *testing.T, svc *Service, tc shared.TenantContext, so *orders.SalesOrder) *DeliveryOrder {
	t.Helper()
	do, err := svc.Create(context.Background(), tc, CreateDeliveryOrderRequest{SalesOrderID: so.ID})
	require.NoError(t, err)
	return do
}

func transitionTo(t *testing.T, svc *Service, tc shared.TenantContext, id uuid.UUID, statuses ...orderflow.DeliveryOrderStatus) *DeliveryOrder {
	t.Helper()
	var do *DeliveryOrder
	var err error
	for _, st := range statuses {
		do, err = svc.UpdateStatus(context.Background(), tc, id, UpdateStatusRequest{Status: st})
		require.NoError(t, err)
	}
	return do
}

func TestCreateDefaultsToUnshipped(t *testing.T) {
	svc, _, tc, so := fixture(t)

	do := createDO(t, svc, tc, so)
	require.Equal(t, "DO-000001", do.DisplayID)
	require.Equal(t, orderflow.DOStatusDraft, do.Status)
	require.Len(t, do.Lines, 1)
	require.Equal(t, "Widget", do.Lines[0].ItemName)
	require.Equal(t, 5.0, do.Lines[0].Quantity)
	require.Equal(t, so.Lines[0].ID, do.Lines[0].SalesOrderLineID)
}

func TestCreateRequiresShippableOrder(t *testing.T) {
	svc, _, tc, so := fixture(t)
	so.Status = orderflow.SOStatusDraft

	_, err := svc.Create(context.Background(), tc, CreateDeliveryOrderRequest{SalesOrderID: so.ID})
	require.ErrorIs(t, err, shared.ErrInvalidArgument)
}

func TestCreateExplicitLineCappedByRemaining(t *testing.T) {
	svc, _, tc, so := fixture(t)

	_, err := svc.Create(context.Background(), tc, CreateDeliveryOrderRequest{
		SalesOrderID: so.ID,
		Lines:        []CreateDeliveryLineReq{{SalesOrderLineID: so.Lines[0].ID, Quantity: 6}},
	})
	require.ErrorIs(t, err, orderflow.ErrQuantityConservation)

	_, err = svc.Create(context.Background(), tc, CreateDeliveryOrderRequest{
		SalesOrderID: so.ID,
		Lines:        []CreateDeliveryLineReq{{SalesOrderLineID: so.Lines[1].ID, Quantity: 1}},
	})
	require.ErrorIs(t, err, orderflow.ErrQuantityConservation)
}

func TestCreateRejectsFullyShippedOrder(t *testing.T) {
	svc, _, tc, so := fixture(t)
	so.Lines[0].QuantityShipped = 5
	so.Status = orderflow.SOStatusPartialShipped

	_, err := svc.Create(context.Background(), tc, CreateDeliveryOrderRequest{SalesOrderID: so.ID})
	require.ErrorIs(t, err, shared.ErrInvalidArgument)
}

func TestDispatchPushesShippedQuantities(t *testing.T) {
	svc, orderPort, tc, so := fixture(t)
	do := createDO(t, svc, tc, so)

	got := transitionTo(t, svc, tc, do.ID, orderflow.DOStatusReady, orderflow.DOStatusDispatched)
	require.Equal(t, orderflow.DOStatusDispatched, got.Status)
	require.NotNil(t, got.DispatchedBy)
	require.Equal(t, tc.ActorID, *got.DispatchedBy)
	require.NotNil(t, got.DispatchedAt)

	deltas := orderPort.lastApplied()
	require.Equal(t, 5.0, deltas[so.Lines[0].ID].Shipped)
	require.Equal(t, 7.0, so.Lines[0].QuantityShipped+so.Lines[1].QuantityShipped)
}

func TestStatusSkipAheadRejected(t *testing.T) {
	svc, _, tc, so := fixture(t)
	do := createDO(t, svc, tc, so)

	_, err := svc.UpdateStatus(context.Background(), tc, do.ID, UpdateStatusRequest{Status: orderflow.DOStatusDelivered})
	require.ErrorIs(t, err, orderflow.ErrInvalidTransition)
}

func TestDeliveredDefaultsToFullReceipt(t *testing.T) {
	svc, orderPort, tc, so := fixture(t)
	do := createDO(t, svc, tc, so)

	got := transitionTo(t, svc, tc, do.ID,
		orderflow.DOStatusReady, orderflow.DOStatusDispatched, orderflow.DOStatusDelivered)
	require.Equal(t, orderflow.DOStatusDelivered, got.Status)
	require.NotNil(t, got.DeliveredAt)
	require.Equal(t, 5.0, got.Lines[0].QuantityDelivered)

	deltas := orderPort.lastApplied()
	require.Equal(t, 5.0, deltas[so.Lines[0].ID].Delivered)
	require.Equal(t, 5.0, so.Lines[0].QuantityDelivered)
}

func TestShortReceiptGoesPartialThenDelivered(t *testing.T) {
	svc, orderPort, tc, so := fixture(t)
	do := createDO(t, svc, tc, so)
	transitionTo(t, svc, tc, do.ID, orderflow.DOStatusReady, orderflow.DOStatusDispatched)

	_, err := svc.RecordDelivered(context.Background(), tc, do.ID, do.Lines[0].ID, RecordDeliveryRequest{Quantity: 3})
	require.NoError(t, err)

	_, err = svc.UpdateStatus(context.Background(), tc, do.ID, UpdateStatusRequest{Status: orderflow.DOStatusInTransit})
	require.NoError(t, err)
	_, err = svc.UpdateStatus(context.Background(), tc, do.ID, UpdateStatusRequest{Status: orderflow.DOStatusDelivered})
	require.ErrorIs(t, err, shared.ErrInvalidArgument)

	got, err := svc.UpdateStatus(context.Background(), tc, do.ID, UpdateStatusRequest{Status: orderflow.DOStatusPartial})
	require.NoError(t, err)
	require.Equal(t, orderflow.DOStatusPartial, got.Status)
	require.Equal(t, 3.0, orderPort.lastApplied()[so.Lines[0].ID].Delivered)

	// Top up the receipt; only the difference propagates.
	_, err = svc.RecordDelivered(context.Background(), tc, do.ID, do.Lines[0].ID, RecordDeliveryRequest{Quantity: 5})
	require.NoError(t, err)
	got = transitionTo(t, svc, tc, do.ID, orderflow.DOStatusDelivered)
	require.Equal(t, orderflow.DOStatusDelivered, got.Status)
	require.Equal(t, 2.0, orderPort.lastApplied()[so.Lines[0].ID].Delivered)
	require.Equal(t, 5.0, so.Lines[0].QuantityDelivered)
}

func TestRecordDeliveredCappedByShipped(t *testing.T) {
	svc, _, tc, so := fixture(t)
	do := createDO(t, svc, tc, so)
	transitionTo(t, svc, tc, do.ID, orderflow.DOStatusReady, orderflow.DOStatusDispatched)

	_, err := svc.RecordDelivered(context.Background(), tc, do.ID, do.Lines[0].ID, RecordDeliveryRequest{Quantity: 6})
	require.ErrorIs(t, err, orderflow.ErrQuantityConservation)
}

func TestRecordDeliveredRequiresMovingShipment(t *testing.T) {
	svc, _, tc, so := fixture(t)
	do := createDO(t, svc, tc, so)

	_, err := svc.RecordDelivered(context.Background(), tc, do.ID, do.Lines[0].ID, RecordDeliveryRequest{Quantity: 1})
	require.ErrorIs(t, err, shared.ErrInvalidArgument)
}

func TestFailedRequiresReason(t *testing.T) {
	svc, _, tc, so := fixture(t)
	do := createDO(t, svc, tc, so)
	transitionTo(t, svc, tc, do.ID, orderflow.DOStatusReady, orderflow.DOStatusDispatched)

	_, err := svc.UpdateStatus(context.Background(), tc, do.ID, UpdateStatusRequest{Status: orderflow.DOStatusFailed})
	require.ErrorIs(t, err, shared.ErrInvalidArgument)

	reason := "address unreachable"
	got, err := svc.UpdateStatus(context.Background(), tc, do.ID,
		UpdateStatusRequest{Status: orderflow.DOStatusFailed, Reason: &reason})
	require.NoError(t, err)
	require.NotNil(t, got.FailureReason)
	require.Equal(t, reason, *got.FailureReason)
}

func TestReopenClearsFailure(t *testing.T) {
	svc, _, tc, so := fixture(t)
	do := createDO(t, svc, tc, so)
	reason := "truck broke down"
	transitionTo(t, svc, tc, do.ID, orderflow.DOStatusReady, orderflow.DOStatusDispatched)
	_, err := svc.UpdateStatus(context.Background(), tc, do.ID,
		UpdateStatusRequest{Status: orderflow.DOStatusFailed, Reason: &reason})
	require.NoError(t, err)

	got := transitionTo(t, svc, tc, do.ID, orderflow.DOStatusCancelled, orderflow.DOStatusDraft)
	require.Equal(t, orderflow.DOStatusDraft, got.Status)
	require.Nil(t, got.FailureReason)
}

func TestDeleteOnlyDraft(t *testing.T) {
	svc, _, tc, so := fixture(t)
	do := createDO(t, svc, tc, so)

	transitionTo(t, svc, tc, do.ID, orderflow.DOStatusReady)
	err := svc.Delete(context.Background(), tc, do.ID)
	require.ErrorIs(t, err, shared.ErrInvalidArgument)

	transitionTo(t, svc, tc, do.ID, orderflow.DOStatusDraft)
	require.NoError(t, svc.Delete(context.Background(), tc, do.ID))
	_, err = svc.Get(context.Background(), tc, do.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestUpdateHeaderOnlyWhileEditable(t *testing.T) {
	svc, _, tc, so := fixture(t)
	do := createDO(t, svc, tc, so)

	carrier := "ACME Freight"
	got, err := svc.Update(context.Background(), tc, do.ID, UpdateDeliveryOrderRequest{Carrier: &carrier})
	require.NoError(t, err)
	require.Equal(t, carrier, *got.Carrier)

	transitionTo(t, svc, tc, do.ID, orderflow.DOStatusReady, orderflow.DOStatusDispatched)
	_, err = svc.Update(context.Background(), tc, do.ID, UpdateDeliveryOrderRequest{Carrier: &carrier})
	require.ErrorIs(t, err, shared.ErrInvalidArgument)
}
