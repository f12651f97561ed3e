package reminders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/stocktide/stocktide/internal/inventory"
	"github.com/stocktide/stocktide/internal/shared"
)

type memoryRepo struct {
	reminders map[uuid.UUID]Reminder
	stock     map[uuid.UUID]inventory.Item
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{reminders: map[uuid.UUID]Reminder{}, stock: map[uuid.UUID]inventory.Item{}}
}

func (m *memoryRepo) Get(_ context.Context, tenantID, id uuid.UUID) (*Reminder, error) {
	rem, ok := m.reminders[id]
	if !ok || rem.TenantID != tenantID {
		return nil, shared.ErrNotFound
	}
	cp := rem
	return &cp, nil
}

func (m *memoryRepo) List(_ context.Context, tenantID uuid.UUID, req ListRemindersRequest) ([]Reminder, error) {
	var out []Reminder
	for _, rem := range m.reminders {
		if rem.TenantID != tenantID {
			continue
		}
		if req.Type != "" && rem.Type != req.Type {
			continue
		}
		if req.Status != "" && rem.Status != req.Status {
			continue
		}
		out = append(out, rem)
	}
	return out, nil
}

func (m *memoryRepo) Create(_ context.Context, r Reminder) error {
	m.reminders[r.ID] = r
	return nil
}

func (m *memoryRepo) Update(_ context.Context, r Reminder) error {
	if _, ok := m.reminders[r.ID]; !ok {
		return shared.ErrNotFound
	}
	m.reminders[r.ID] = r
	return nil
}

func (m *memoryRepo) Delete(_ context.Context, tenantID, id uuid.UUID) error {
	rem, ok := m.reminders[id]
	if !ok || rem.TenantID != tenantID {
		return shared.ErrNotFound
	}
	delete(m.reminders, id)
	return nil
}

func (m *memoryRepo) candidate(rem Reminder) Candidate {
	item := m.stock[rem.ItemID]
	return Candidate{Reminder: rem, ItemName: item.Name, ItemQuantity: item.Quantity, ItemUnit: item.Unit}
}

func (m *memoryRepo) ListDueScheduled(_ context.Context, now time.Time) ([]Candidate, error) {
	var out []Candidate
	for _, rem := range m.reminders {
		if rem.Status == StatusActive && rem.Type == TypeRestock &&
			rem.NextTriggerAt != nil && !rem.NextTriggerAt.After(now) {
			out = append(out, m.candidate(rem))
		}
	}
	return out, nil
}

func (m *memoryRepo) ListActiveByType(_ context.Context, t ReminderType) ([]Candidate, error) {
	var out []Candidate
	for _, rem := range m.reminders {
		if rem.Status == StatusActive && rem.Type == t {
			out = append(out, m.candidate(rem))
		}
	}
	return out, nil
}

func (m *memoryRepo) MarkTriggered(_ context.Context, id uuid.UUID, at time.Time, next *time.Time, status ReminderStatus) error {
	rem, ok := m.reminders[id]
	if !ok {
		return shared.ErrNotFound
	}
	triggered := at
	rem.LastTriggeredAt = &triggered
	rem.NextTriggerAt = next
	rem.Status = status
	rem.TriggerCount++
	m.reminders[id] = rem
	return nil
}

type stubItems struct{ stock map[uuid.UUID]inventory.Item }

func (s stubItems) GetItem(_ context.Context, tc shared.TenantContext, id uuid.UUID) (*inventory.Item, error) {
	item, ok := s.stock[id]
	if !ok || item.TenantID != tc.TenantID {
		return nil, shared.ErrNotFound
	}
	return &item, nil
}

func testTenant() shared.TenantContext {
	return shared.TenantContext{TenantID: uuid.New(), ActorID: uuid.New(), ActorName: "Test User"}
}

func seedItem(repo *memoryRepo, tc shared.TenantContext, name string, qty float64) inventory.Item {
	item := inventory.Item{ID: uuid.New(), TenantID: tc.TenantID, Name: name, Quantity: qty, Unit: "pcs"}
	repo.stock[item.ID] = item
	return item
}

func newTestService(repo *memoryRepo) *Service {
	return NewService(repo, stubItems{stock: repo.stock})
}

func TestCreateLowStockRequiresThreshold(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	tc := testTenant()
	item := seedItem(repo, tc, "Widget", 10)

	_, err := svc.Create(context.Background(), tc, CreateReminderRequest{
		ItemID: item.ID, Type: TypeLowStock,
	})
	require.ErrorIs(t, err, shared.ErrInvalidArgument)

	threshold := 5.0
	rem, err := svc.Create(context.Background(), tc, CreateReminderRequest{
		ItemID: item.ID, Type: TypeLowStock, Threshold: &threshold,
	})
	require.NoError(t, err)
	require.Equal(t, OpLTE, rem.ComparisonOperator)
	require.Equal(t, StatusActive, rem.Status)
}

func TestCreateRestockSetsNextTrigger(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	tc := testTenant()
	item := seedItem(repo, tc, "Widget", 10)

	at := time.Now().Add(48 * time.Hour)
	rem, err := svc.Create(context.Background(), tc, CreateReminderRequest{
		ItemID: item.ID, Type: TypeRestock, ScheduledAt: &at, Recurrence: RecurrenceWeekly,
	})
	require.NoError(t, err)
	require.NotNil(t, rem.NextTriggerAt)
	require.True(t, rem.NextTriggerAt.Equal(at))
}

func TestScanDueFiresScheduledRestock(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	tc := testTenant()
	item := seedItem(repo, tc, "Widget", 3)

	past := time.Now().Add(-time.Hour)
	rem, err := svc.Create(context.Background(), tc, CreateReminderRequest{
		ItemID: item.ID, Type: TypeRestock, ScheduledAt: &past, Recurrence: RecurrenceDaily,
	})
	require.NoError(t, err)

	now := time.Now()
	notes, err := svc.ScanDue(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	require.Equal(t, "reminder_restock", notes[0].Kind)
	require.Contains(t, notes[0].Title, "Widget")
	require.Equal(t, []uuid.UUID{tc.ActorID}, notes[0].UserIDs)

	got, err := svc.Get(context.Background(), tc, rem.ID)
	require.NoError(t, err)
	require.Equal(t, StatusActive, got.Status)
	require.NotNil(t, got.NextTriggerAt)
	require.WithinDuration(t, now.AddDate(0, 0, 1), *got.NextTriggerAt, time.Second)
}

func TestScanDueRetiresOneShotRestock(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	tc := testTenant()
	item := seedItem(repo, tc, "Widget", 3)

	past := time.Now().Add(-time.Hour)
	rem, err := svc.Create(context.Background(), tc, CreateReminderRequest{
		ItemID: item.ID, Type: TypeRestock, ScheduledAt: &past,
	})
	require.NoError(t, err)

	notes, err := svc.ScanDue(context.Background(), time.Now())
	require.NoError(t, err)
	require.Len(t, notes, 1)

	got, err := svc.Get(context.Background(), tc, rem.ID)
	require.NoError(t, err)
	require.Equal(t, StatusTriggered, got.Status)
	require.Nil(t, got.NextTriggerAt)

	// Nothing left to fire.
	notes, err = svc.ScanDue(context.Background(), time.Now())
	require.NoError(t, err)
	require.Empty(t, notes)
}

func TestScanDueLowStockComparison(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	tc := testTenant()
	item := seedItem(repo, tc, "Widget", 8)

	threshold := 5.0
	_, err := svc.Create(context.Background(), tc, CreateReminderRequest{
		ItemID: item.ID, Type: TypeLowStock, Threshold: &threshold,
	})
	require.NoError(t, err)

	// 8 > 5: condition does not hold.
	notes, err := svc.ScanDue(context.Background(), time.Now())
	require.NoError(t, err)
	require.Empty(t, notes)

	stocked := repo.stock[item.ID]
	stocked.Quantity = 4
	repo.stock[item.ID] = stocked

	notes, err = svc.ScanDue(context.Background(), time.Now())
	require.NoError(t, err)
	require.Len(t, notes, 1)
	require.Equal(t, "reminder_low_stock", notes[0].Kind)

	// Guard window suppresses an immediate re-fire.
	notes, err = svc.ScanDue(context.Background(), time.Now())
	require.NoError(t, err)
	require.Empty(t, notes)

	// After the guard expires it fires again while stock stays low.
	notes, err = svc.ScanDue(context.Background(), time.Now().Add(25*time.Hour))
	require.NoError(t, err)
	require.Len(t, notes, 1)
}

func TestScanDueExpiryWarningAndExpiration(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	tc := testTenant()
	item := seedItem(repo, tc, "Serum", 2)

	expiresAt := time.Now().AddDate(0, 0, 5)
	days := 7
	rem, err := svc.Create(context.Background(), tc, CreateReminderRequest{
		ItemID: item.ID, Type: TypeExpiry, ScheduledAt: &expiresAt, DaysBeforeExpiry: &days,
	})
	require.NoError(t, err)

	// Inside the warning window (5 days out, warn at 7).
	notes, err := svc.ScanDue(context.Background(), time.Now())
	require.NoError(t, err)
	require.Len(t, notes, 1)
	require.Equal(t, "reminder_expiry", notes[0].Kind)
	require.Contains(t, notes[0].Body, "Serum")

	// Past the expiry date the reminder retires without firing.
	notes, err = svc.ScanDue(context.Background(), expiresAt.Add(48*time.Hour))
	require.NoError(t, err)
	require.Empty(t, notes)

	got, err := svc.Get(context.Background(), tc, rem.ID)
	require.NoError(t, err)
	require.Equal(t, StatusExpired, got.Status)
}

func TestUpdatePauseStopsEvaluation(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	tc := testTenant()
	item := seedItem(repo, tc, "Widget", 1)

	threshold := 5.0
	rem, err := svc.Create(context.Background(), tc, CreateReminderRequest{
		ItemID: item.ID, Type: TypeLowStock, Threshold: &threshold,
	})
	require.NoError(t, err)

	paused := StatusPaused
	_, err = svc.Update(context.Background(), tc, rem.ID, UpdateReminderRequest{Status: &paused})
	require.NoError(t, err)

	notes, err := svc.ScanDue(context.Background(), time.Now())
	require.NoError(t, err)
	require.Empty(t, notes)
}
