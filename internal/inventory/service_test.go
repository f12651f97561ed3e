package inventory

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/stocktide/stocktide/internal/shared"
)

type memoryRepo struct {
	items   map[uuid.UUID]Item
	folders map[uuid.UUID]Folder
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{items: map[uuid.UUID]Item{}, folders: map[uuid.UUID]Folder{}}
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return fn(ctx, m)
}

func (m *memoryRepo) GetItem(_ context.Context, tenantID, id uuid.UUID) (*Item, error) {
	it, ok := m.items[id]
	if !ok || it.TenantID != tenantID {
		return nil, shared.ErrNotFound
	}
	cp := it
	return &cp, nil
}

func (m *memoryRepo) ListItems(_ context.Context, tenantID uuid.UUID, req ListItemsRequest) ([]Item, int, error) {
	var out []Item
	for _, it := range m.items {
		if it.TenantID != tenantID {
			continue
		}
		if req.Status != "" && it.Status != req.Status {
			continue
		}
		if req.Search != "" && !strings.Contains(strings.ToLower(it.Name), strings.ToLower(req.Search)) {
			continue
		}
		out = append(out, it)
	}
	return out, len(out), nil
}

func (m *memoryRepo) ListLowStockItems(_ context.Context, tenantID uuid.UUID) ([]Item, error) {
	var out []Item
	for _, it := range m.items {
		if it.TenantID == tenantID && it.Quantity <= it.MinQuantity {
			out = append(out, it)
		}
	}
	return out, nil
}

func (m *memoryRepo) CreateItem(_ context.Context, item Item) error {
	m.items[item.ID] = item
	return nil
}

func (m *memoryRepo) UpdateItem(_ context.Context, item Item) error {
	if _, ok := m.items[item.ID]; !ok {
		return shared.ErrNotFound
	}
	m.items[item.ID] = item
	return nil
}

func (m *memoryRepo) DeleteItem(_ context.Context, tenantID, id uuid.UUID) error {
	it, ok := m.items[id]
	if !ok || it.TenantID != tenantID {
		return shared.ErrNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *memoryRepo) GetFolder(_ context.Context, tenantID, id uuid.UUID) (*Folder, error) {
	f, ok := m.folders[id]
	if !ok || f.TenantID != tenantID {
		return nil, shared.ErrNotFound
	}
	cp := f
	return &cp, nil
}

func (m *memoryRepo) ListFolders(_ context.Context, tenantID uuid.UUID) ([]Folder, error) {
	var out []Folder
	for _, f := range m.folders {
		if f.TenantID == tenantID {
			out = append(out, f)
		}
	}
	return out, nil
}

func (m *memoryRepo) CreateFolder(_ context.Context, folder Folder) error {
	m.folders[folder.ID] = folder
	return nil
}

func (m *memoryRepo) UpdateFolder(_ context.Context, folder Folder) error {
	if _, ok := m.folders[folder.ID]; !ok {
		return shared.ErrNotFound
	}
	m.folders[folder.ID] = folder
	return nil
}

func (m *memoryRepo) DeleteFolder(_ context.Context, tenantID, id uuid.UUID) error {
	f, ok := m.folders[id]
	if !ok || f.TenantID != tenantID {
		return shared.ErrNotFound
	}
	delete(m.folders, id)
	return nil
}

func (m *memoryRepo) ReparentChildren(_ context.Context, tenantID, folderID uuid.UUID, newParent *uuid.UUID) error {
	for id, f := range m.folders {
		if f.TenantID == tenantID && f.ParentID != nil && *f.ParentID == folderID {
			f.ParentID = newParent
			m.folders[id] = f
		}
	}
	for id, it := range m.items {
		if it.TenantID == tenantID && it.FolderID != nil && *it.FolderID == folderID {
			it.FolderID = newParent
			m.items[id] = it
		}
	}
	return nil
}

func testTenant() shared.TenantContext {
	return shared.TenantContext{TenantID: uuid.New(), ActorID: uuid.New(), ActorName: "Test User"}
}

func TestCreateItemDerivesStatus(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, ServiceConfig{})
	tc := testTenant()

	item, err := svc.CreateItem(context.Background(), tc, CreateItemRequest{
		Name: "Widget", Quantity: 3, MinQuantity: 5, Price: 10, Unit: "pcs",
	})
	require.NoError(t, err)
	require.Equal(t, ItemStatusLowStock, item.Status)

	empty, err := svc.CreateItem(context.Background(), tc, CreateItemRequest{
		Name: "Gadget", Quantity: 0, MinQuantity: 1, Price: 2, Unit: "pcs",
	})
	require.NoError(t, err)
	require.Equal(t, ItemStatusOutOfStock, empty.Status)
}

func TestAdjustQuantityRejectsNegativeStock(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, ServiceConfig{})
	tc := testTenant()

	item, err := svc.CreateItem(context.Background(), tc, CreateItemRequest{
		Name: "Widget", Quantity: 4, MinQuantity: 2, Price: 10, Unit: "pcs",
	})
	require.NoError(t, err)

	_, err = svc.AdjustQuantity(context.Background(), tc, item.ID, AdjustQuantityRequest{Delta: -5})
	require.ErrorIs(t, err, ErrNegativeStock)

	got, err := svc.GetItem(context.Background(), tc, item.ID)
	require.NoError(t, err)
	require.Equal(t, 4.0, got.Quantity)
}

func TestAdjustQuantityAllowsNegativeWhenConfigured(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, ServiceConfig{AllowNegativeStock: true})
	tc := testTenant()

	item, err := svc.CreateItem(context.Background(), tc, CreateItemRequest{
		Name: "Widget", Quantity: 1, MinQuantity: 0, Price: 10, Unit: "pcs",
	})
	require.NoError(t, err)

	got, err := svc.AdjustQuantity(context.Background(), tc, item.ID, AdjustQuantityRequest{Delta: -3, Reason: "shrinkage"})
	require.NoError(t, err)
	require.Equal(t, -2.0, got.Quantity)
	require.Equal(t, ItemStatusOutOfStock, got.Status)
}

func TestAdjustQuantityRecomputesStatus(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, ServiceConfig{})
	tc := testTenant()

	item, err := svc.CreateItem(context.Background(), tc, CreateItemRequest{
		Name: "Widget", Quantity: 10, MinQuantity: 5, Price: 10, Unit: "pcs",
	})
	require.NoError(t, err)
	require.Equal(t, ItemStatusInStock, item.Status)

	got, err := svc.AdjustQuantity(context.Background(), tc, item.ID, AdjustQuantityRequest{Delta: -6})
	require.NoError(t, err)
	require.Equal(t, ItemStatusLowStock, got.Status)
}

func TestDuplicateItemZeroesQuantity(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, ServiceConfig{})
	tc := testTenant()

	item, err := svc.CreateItem(context.Background(), tc, CreateItemRequest{
		Name: "Widget", Quantity: 9, MinQuantity: 1, Price: 10, Unit: "pcs",
	})
	require.NoError(t, err)

	dup, err := svc.DuplicateItem(context.Background(), tc, item.ID)
	require.NoError(t, err)
	require.NotEqual(t, item.ID, dup.ID)
	require.Equal(t, "Widget (copy)", dup.Name)
	require.Equal(t, 0.0, dup.Quantity)
	require.Equal(t, ItemStatusOutOfStock, dup.Status)
}

func TestTenantIsolation(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, ServiceConfig{})
	alpha := testTenant()
	beta := testTenant()

	item, err := svc.CreateItem(context.Background(), alpha, CreateItemRequest{
		Name: "Widget", Quantity: 1, MinQuantity: 0, Price: 10, Unit: "pcs",
	})
	require.NoError(t, err)

	_, err = svc.GetItem(context.Background(), beta, item.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)

	err = svc.DeleteItem(context.Background(), beta, item.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestUpdateFolderRejectsCycle(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, ServiceConfig{})
	tc := testTenant()

	root, err := svc.CreateFolder(context.Background(), tc, CreateFolderRequest{Name: "Warehouse"})
	require.NoError(t, err)
	child, err := svc.CreateFolder(context.Background(), tc, CreateFolderRequest{Name: "Shelf A", ParentID: &root.ID})
	require.NoError(t, err)

	_, err = svc.UpdateFolder(context.Background(), tc, root.ID, UpdateFolderRequest{ParentID: &child.ID})
	require.ErrorIs(t, err, ErrFolderCycle)

	_, err = svc.UpdateFolder(context.Background(), tc, root.ID, UpdateFolderRequest{ParentID: &root.ID})
	require.ErrorIs(t, err, ErrFolderCycle)
}

func TestDeleteFolderReparentsChildren(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, ServiceConfig{})
	tc := testTenant()

	root, err := svc.CreateFolder(context.Background(), tc, CreateFolderRequest{Name: "Warehouse"})
	require.NoError(t, err)
	mid, err := svc.CreateFolder(context.Background(), tc, CreateFolderRequest{Name: "Aisle", ParentID: &root.ID})
	require.NoError(t, err)
	leaf, err := svc.CreateFolder(context.Background(), tc, CreateFolderRequest{Name: "Shelf", ParentID: &mid.ID})
	require.NoError(t, err)

	item, err := svc.CreateItem(context.Background(), tc, CreateItemRequest{
		Name: "Widget", Quantity: 1, MinQuantity: 0, Price: 1, Unit: "pcs", FolderID: &mid.ID,
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteFolder(context.Background(), tc, mid.ID))

	gotLeaf, err := svc.repo.GetFolder(context.Background(), tc.TenantID, leaf.ID)
	require.NoError(t, err)
	require.NotNil(t, gotLeaf.ParentID)
	require.Equal(t, root.ID, *gotLeaf.ParentID)

	gotItem, err := svc.GetItem(context.Background(), tc, item.ID)
	require.NoError(t, err)
	require.NotNil(t, gotItem.FolderID)
	require.Equal(t, root.ID, *gotItem.FolderID)
}
