package picklists

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
	lists map[uuid.UUID]PickList
	items map[uuid.UUID][]PickListItem
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		lists: make(map[uuid.UUID]PickList),
		items: make(map[uuid.UUID][]PickListItem),
	}
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return fn(ctx, m)
}

func (m *memoryRepo) Get(ctx context.Context, tenantID, id uuid.UUID) (*PickList, error) {
	pl, ok := m.lists[id]
	if !ok || pl.TenantID != tenantID {
		return nil, shared.ErrNotFound
	}
	items, _ := m.ListItems(ctx, tenantID, id)
	pl.Items = items
	return &pl, nil
}

func (m *memoryRepo) List(ctx context.Context, tenantID uuid.UUID, req ListPickListsRequest) ([]PickList, int, error) {
	var out []PickList
	for _, pl := range m.lists {
		if pl.TenantID != tenantID {
			continue
		}
		if req.Status != "" && pl.Status != req.Status {
			continue
		}
		if req.SalesOrderID != nil && pl.SalesOrderID != *req.SalesOrderID {
			continue
		}
		out = append(out, pl)
	}
	return out, len(out), nil
}

func (m *memoryRepo) Create(ctx context.Context, pl PickList) error {
	m.lists[pl.ID] = pl
	return nil
}

func (m *memoryRepo) UpdateHeader(ctx context.Context, pl PickList) error {
	pl.Items = nil
	m.lists[pl.ID] = pl
	return nil
}

func (m *memoryRepo) InsertItem(ctx context.Context, item PickListItem) error {
	m.items[item.PickListID] = append(m.items[item.PickListID], item)
	return nil
}

func (m *memoryRepo) UpdateItem(ctx context.Context, item PickListItem) error {
	items := m.items[item.PickListID]
	for i := range items {
		if items[i].ID == item.ID {
			items[i] = item
			return nil
		}
	}
	return shared.ErrNotFound
}

func (m *memoryRepo) ListItems(ctx context.Context, tenantID, pickListID uuid.UUID) ([]PickListItem, error) {
	var out []PickListItem
	for _, it := range m.items[pickListID] {
		if it.TenantID == tenantID {
			out = append(out, it)
		}
	}
	return out, nil
}

type stubOrders struct {
	applied map[uuid.UUID]float64
	orderID uuid.UUID
	err     error
}

func (s *stubOrders) ApplyPickedQuantities(ctx context.Context, tc shared.TenantContext, orderID uuid.UUID, picked map[uuid.UUID]float64) (*orders.SalesOrder, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.orderID = orderID
	s.applied = picked
	return &orders.SalesOrder{ID: orderID}, nil
}

func fixture(t *testing.T) (*Service, *memoryRepo, *stubOrders, shared.TenantContext, *orders.SalesOrder) {
	t.Helper()
	repo := newMemoryRepo()
	orderPort := &stubOrders{}
	svc := NewService(repo, orderPort, shared.NewMemSequence(), nil)
	tc := shared.TenantContext{TenantID: uuid.New(), ActorID: uuid.New(), ActorName: "picker"}
	order := &orders.SalesOrder{
		ID:       uuid.New(),
		TenantID: tc.TenantID,
		Lines: []orders.SalesOrderLine{
			{ID: uuid.New(), ItemID: uuid.New(), ItemName: "Widget", Quantity: 5, QuantityAllocated: 5},
			{ID: uuid.New(), ItemID: uuid.New(), ItemName: "Gadget", Quantity: 3, QuantityAllocated: 3},
		},
	}
	return svc, repo, orderPort, tc, order
}

func createList(t *testing.T, svc *Service, tc shared.TenantContext, order *orders.SalesOrder) *PickList {
	t.Helper()
	id, err := svc.CreateForOrder(context.Background(), tc, order)
	require.NoError(t, err)
	pl, err := svc.Get(context.Background(), tc, id)
	require.NoError(t, err)
	return pl
}

func TestCreateForOrderCopiesAllocations(t *testing.T) {
	svc, _, _, tc, order := fixture(t)

	pl := createList(t, svc, tc, order)
	require.Equal(t, "PL-000001", pl.DisplayID)
	require.Equal(t, StatusPending, pl.Status)
	require.Equal(t, order.ID, pl.SalesOrderID)
	require.Len(t, pl.Items, 2)
	require.Equal(t, 5.0, pl.Items[0].QuantityRequested)
	require.Equal(t, "Widget", pl.Items[0].ItemName)
	require.Equal(t, order.Lines[0].ID, pl.Items[0].SalesOrderLineID)
	require.Zero(t, pl.Items[0].QuantityPicked)
}

func TestCreateForOrderRejectsForeignTenant(t *testing.T) {
	svc, _, _, tc, order := fixture(t)
	order.TenantID = uuid.New()

	_, err := svc.CreateForOrder(context.Background(), tc, order)
	require.ErrorIs(t, err, shared.ErrTenantMismatch)
}

func TestPickItemRequiresInProgress(t *testing.T) {
	svc, _, _, tc, order := fixture(t)
	pl := createList(t, svc, tc, order)

	_, err := svc.PickItem(context.Background(), tc, pl.ID, pl.Items[0].ID, PickItemRequest{Quantity: 2})
	require.ErrorIs(t, err, shared.ErrInvalidArgument)
}

func TestPickItemCappedByRequested(t *testing.T) {
	svc, _, _, tc, order := fixture(t)
	pl := createList(t, svc, tc, order)

	_, err := svc.UpdateStatus(context.Background(), tc, pl.ID, UpdateStatusRequest{Status: StatusInProgress})
	require.NoError(t, err)

	_, err = svc.PickItem(context.Background(), tc, pl.ID, pl.Items[0].ID, PickItemRequest{Quantity: 6})
	require.ErrorIs(t, err, orderflow.ErrQuantityConservation)

	got, err := svc.PickItem(context.Background(), tc, pl.ID, pl.Items[0].ID, PickItemRequest{Quantity: 4})
	require.NoError(t, err)
	require.Equal(t, 4.0, got.Items[0].QuantityPicked)
	require.NotNil(t, got.Items[0].PickedBy)
	require.Equal(t, tc.ActorID, *got.Items[0].PickedBy)
	require.NotNil(t, got.Items[0].PickedAt)
}

func TestUpdateStatusStampsLifecycle(t *testing.T) {
	svc, _, _, tc, order := fixture(t)
	pl := createList(t, svc, tc, order)

	got, err := svc.UpdateStatus(context.Background(), tc, pl.ID, UpdateStatusRequest{Status: StatusInProgress})
	require.NoError(t, err)
	require.Equal(t, StatusInProgress, got.Status)
	require.NotNil(t, got.StartedBy)
	require.NotNil(t, got.StartedAt)

	got, err = svc.UpdateStatus(context.Background(), tc, pl.ID, UpdateStatusRequest{Status: StatusCompleted})
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, got.Status)
	require.NotNil(t, got.CompletedBy)
	require.NotNil(t, got.CompletedAt)
}

func TestUpdateStatusRejectsSkip(t *testing.T) {
	svc, _, _, tc, order := fixture(t)
	pl := createList(t, svc, tc, order)

	_, err := svc.UpdateStatus(context.Background(), tc, pl.ID, UpdateStatusRequest{Status: StatusCompleted})
	require.ErrorIs(t, err, orderflow.ErrInvalidTransition)
}

func TestCompletionFeedsPickedQuantities(t *testing.T) {
	svc, _, orderPort, tc, order := fixture(t)
	pl := createList(t, svc, tc, order)

	_, err := svc.UpdateStatus(context.Background(), tc, pl.ID, UpdateStatusRequest{Status: StatusInProgress})
	require.NoError(t, err)
	_, err = svc.PickItem(context.Background(), tc, pl.ID, pl.Items[0].ID, PickItemRequest{Quantity: 5})
	require.NoError(t, err)
	_, err = svc.PickItem(context.Background(), tc, pl.ID, pl.Items[1].ID, PickItemRequest{Quantity: 2})
	require.NoError(t, err)

	_, err = svc.UpdateStatus(context.Background(), tc, pl.ID, UpdateStatusRequest{Status: StatusCompleted})
	require.NoError(t, err)

	require.Equal(t, order.ID, orderPort.orderID)
	require.Equal(t, 5.0, orderPort.applied[order.Lines[0].ID])
	require.Equal(t, 2.0, orderPort.applied[order.Lines[1].ID])
}

func TestCancelledListIsTerminal(t *testing.T) {
	svc, _, _, tc, order := fixture(t)
	pl := createList(t, svc, tc, order)

	_, err := svc.UpdateStatus(context.Background(), tc, pl.ID, UpdateStatusRequest{Status: StatusCancelled})
	require.NoError(t, err)

	_, err = svc.UpdateStatus(context.Background(), tc, pl.ID, UpdateStatusRequest{Status: StatusInProgress})
	require.ErrorIs(t, err, orderflow.ErrInvalidTransition)
}
