package reminders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/stocktide/stocktide/internal/inventory"
	"github.com/stocktide/stocktide/internal/shared"
)

// retriggerGuard stops a condition-based reminder from firing more than once
// per day while the condition keeps holding.
const retriggerGuard = 24 * time.Hour

// ItemPort is the slice of the inventory service the reminders need.
type ItemPort interface {
	GetItem(ctx context.Context, tc shared.TenantContext, id uuid.UUID) (*inventory.Item, error)
}

// Notification is an evaluated reminder ready to be delivered.
type Notification struct {
	TenantID uuid.UUID   `json:"tenant_id"`
	UserIDs  []uuid.UUID `json:"user_ids"`
	Kind     string      `json:"kind"`
	Title    string      `json:"title"`
	Body     string      `json:"body"`
	ItemID   uuid.UUID   `json:"item_id"`
	InApp    bool        `json:"in_app"`
	Email    bool        `json:"email"`
}

// Service owns reminder CRUD and the due-reminder evaluation the worker runs.
type Service struct {
	repo    Repository
	items   ItemPort
	printer *message.Printer
	now     func() time.Time
}

// NewService builds Service.
func NewService(repo Repository, items ItemPort) *Service {
	return &Service{
		repo:    repo,
		items:   items,
		printer: message.NewPrinter(language.English),
		now:     time.Now,
	}
}

// Create registers a reminder after validating the type-specific fields.
func (s *Service) Create(ctx context.Context, tc shared.TenantContext, req CreateReminderRequest) (*Reminder, error) {
	if s.items != nil {
		if _, err := s.items.GetItem(ctx, tc, req.ItemID); err != nil {
			return nil, fmt.Errorf("verify item: %w", err)
		}
	}

	rem := Reminder{
		ID:                uuid.New(),
		TenantID:          tc.TenantID,
		ItemID:            req.ItemID,
		Type:              req.Type,
		Status:            StatusActive,
		Title:             req.Title,
		Message:           req.Message,
		Threshold:         req.Threshold,
		DaysBeforeExpiry:  req.DaysBeforeExpiry,
		ScheduledAt:       req.ScheduledAt,
		Recurrence:        req.Recurrence,
		RecurrenceEndDate: req.RecurrenceEndDate,
		NotifyInApp:       true,
		NotifyUserIDs:     req.NotifyUserIDs,
		CreatedBy:         tc.ActorID,
		CreatedAt:         s.now(),
	}
	if req.NotifyInApp != nil {
		rem.NotifyInApp = *req.NotifyInApp
	}
	if req.NotifyEmail != nil {
		rem.NotifyEmail = *req.NotifyEmail
	}
	if rem.Recurrence == "" {
		rem.Recurrence = RecurrenceOnce
	}

	switch rem.Type {
	case TypeLowStock:
		if rem.Threshold == nil {
			return nil, fmt.Errorf("%w: low_stock reminder requires a threshold", shared.ErrInvalidArgument)
		}
		rem.ComparisonOperator = req.ComparisonOperator
		if rem.ComparisonOperator == "" {
			rem.ComparisonOperator = OpLTE
		}
	case TypeRestock:
		if rem.ScheduledAt == nil {
			return nil, fmt.Errorf("%w: restock reminder requires scheduled_at", shared.ErrInvalidArgument)
		}
		rem.NextTriggerAt = rem.ScheduledAt
	case TypeExpiry:
		if rem.ScheduledAt == nil {
			return nil, fmt.Errorf("%w: expiry reminder requires the expiry date in scheduled_at", shared.ErrInvalidArgument)
		}
		if rem.DaysBeforeExpiry == nil {
			week := 7
			rem.DaysBeforeExpiry = &week
		}
		warn := rem.ScheduledAt.AddDate(0, 0, -*rem.DaysBeforeExpiry)
		rem.NextTriggerAt = &warn
	default:
		return nil, fmt.Errorf("%w: unknown reminder type %q", shared.ErrInvalidArgument, rem.Type)
	}

	if err := s.repo.Create(ctx, rem); err != nil {
		return nil, fmt.Errorf("create reminder: %w", err)
	}
	return s.repo.Get(ctx, tc.TenantID, rem.ID)
}

// Update applies a partial update. Status can only be flipped between active
// and paused here; triggered/expired are worker outcomes.
func (s *Service) Update(ctx context.Context, tc shared.TenantContext, id uuid.UUID, req UpdateReminderRequest) (*Reminder, error) {
	rem, err := s.repo.Get(ctx, tc.TenantID, id)
	if err != nil {
		return nil, err
	}
	if req.Title != nil {
		rem.Title = req.Title
	}
	if req.Message != nil {
		rem.Message = req.Message
	}
	if req.Threshold != nil {
		rem.Threshold = req.Threshold
	}
	if req.ComparisonOperator != nil {
		rem.ComparisonOperator = *req.ComparisonOperator
	}
	if req.DaysBeforeExpiry != nil {
		rem.DaysBeforeExpiry = req.DaysBeforeExpiry
	}
	if req.ScheduledAt != nil {
		rem.ScheduledAt = req.ScheduledAt
		switch rem.Type {
		case TypeRestock:
			rem.NextTriggerAt = req.ScheduledAt
		case TypeExpiry:
			days := 7
			if rem.DaysBeforeExpiry != nil {
				days = *rem.DaysBeforeExpiry
			}
			warn := req.ScheduledAt.AddDate(0, 0, -days)
			rem.NextTriggerAt = &warn
		}
	}
	if req.Recurrence != nil {
		rem.Recurrence = *req.Recurrence
	}
	if req.RecurrenceEndDate != nil {
		rem.RecurrenceEndDate = req.RecurrenceEndDate
	}
	if req.NotifyInApp != nil {
		rem.NotifyInApp = *req.NotifyInApp
	}
	if req.NotifyEmail != nil {
		rem.NotifyEmail = *req.NotifyEmail
	}
	if req.NotifyUserIDs != nil {
		rem.NotifyUserIDs = req.NotifyUserIDs
	}
	if req.Status != nil {
		rem.Status = *req.Status
	}
	if err := s.repo.Update(ctx, *rem); err != nil {
		return nil, fmt.Errorf("update reminder: %w", err)
	}
	return s.repo.Get(ctx, tc.TenantID, id)
}

// Get loads one reminder.
func (s *Service) Get(ctx context.Context, tc shared.TenantContext, id uuid.UUID) (*Reminder, error) {
	return s.repo.Get(ctx, tc.TenantID, id)
}

// List returns the tenant's reminders, optionally filtered.
func (s *Service) List(ctx context.Context, tc shared.TenantContext, req ListRemindersRequest) ([]Reminder, error) {
	return s.repo.List(ctx, tc.TenantID, req)
}

// Delete removes a reminder.
func (s *Service) Delete(ctx context.Context, tc shared.TenantContext, id uuid.UUID) error {
	return s.repo.Delete(ctx, tc.TenantID, id)
}

// ScanDue evaluates all active reminders at the given instant and returns the
// notifications to deliver. Fired reminders are advanced or retired in place.
func (s *Service) ScanDue(ctx context.Context, now time.Time) ([]Notification, error) {
	var out []Notification

	scheduled, err := s.repo.ListDueScheduled(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("list due scheduled: %w", err)
	}
	for _, c := range scheduled {
		out = append(out, s.buildNotification(c, "reminder_restock",
			s.printer.Sprintf("Restock Reminder: %s", c.ItemName),
			s.printer.Sprintf("Time to restock %s (current stock %v %s)", c.ItemName, c.ItemQuantity, c.ItemUnit)))
		if err := s.advanceSchedule(ctx, c.Reminder, now); err != nil {
			return out, err
		}
	}

	lowStock, err := s.repo.ListActiveByType(ctx, TypeLowStock)
	if err != nil {
		return nil, fmt.Errorf("list low-stock reminders: %w", err)
	}
	for _, c := range lowStock {
		rem := c.Reminder
		if rem.Threshold == nil || !rem.ComparisonOperator.Holds(c.ItemQuantity, *rem.Threshold) {
			continue
		}
		if recentlyTriggered(rem, now) {
			continue
		}
		out = append(out, s.buildNotification(c, "reminder_low_stock",
			s.printer.Sprintf("Low Stock Alert: %s", c.ItemName),
			s.printer.Sprintf("%s is down to %v %s (threshold %v)", c.ItemName, c.ItemQuantity, c.ItemUnit, *rem.Threshold)))
		// Stays active so it can fire again after the guard window.
		if err := s.repo.MarkTriggered(ctx, rem.ID, now, nil, StatusActive); err != nil {
			return out, fmt.Errorf("mark triggered: %w", err)
		}
	}

	expiry, err := s.repo.ListActiveByType(ctx, TypeExpiry)
	if err != nil {
		return nil, fmt.Errorf("list expiry reminders: %w", err)
	}
	for _, c := range expiry {
		rem := c.Reminder
		if rem.NextTriggerAt == nil || now.Before(*rem.NextTriggerAt) {
			continue
		}
		if recentlyTriggered(rem, now) {
			continue
		}
		if rem.ScheduledAt != nil && now.After(*rem.ScheduledAt) {
			// Past the expiry date itself, nothing left to warn about.
			if err := s.repo.MarkTriggered(ctx, rem.ID, now, nil, StatusExpired); err != nil {
				return out, fmt.Errorf("mark expired: %w", err)
			}
			continue
		}
		days := 0
		if rem.ScheduledAt != nil {
			days = int(rem.ScheduledAt.Sub(now).Hours()/24) + 1
		}
		out = append(out, s.buildNotification(c, "reminder_expiry",
			s.printer.Sprintf("Expiry Alert: %s", c.ItemName),
			s.printer.Sprintf("%s expires in %d day(s)", c.ItemName, days)))
		// Keep the trigger window open so the reminder can retire once the
		// expiry date itself passes.
		if err := s.repo.MarkTriggered(ctx, rem.ID, now, rem.NextTriggerAt, StatusActive); err != nil {
			return out, fmt.Errorf("mark triggered: %w", err)
		}
	}

	return out, nil
}

func (s *Service) advanceSchedule(ctx context.Context, rem Reminder, now time.Time) error {
	next := rem.Recurrence.Next(now)
	status := StatusActive
	var nextPtr *time.Time
	switch {
	case next.IsZero():
		status = StatusTriggered
	case rem.RecurrenceEndDate != nil && next.After(*rem.RecurrenceEndDate):
		status = StatusTriggered
	default:
		nextPtr = &next
	}
	if err := s.repo.MarkTriggered(ctx, rem.ID, now, nextPtr, status); err != nil {
		return fmt.Errorf("advance schedule: %w", err)
	}
	return nil
}

func (s *Service) buildNotification(c Candidate, kind, defaultTitle, defaultBody string) Notification {
	rem := c.Reminder
	title := defaultTitle
	if rem.Title != nil && *rem.Title != "" {
		title = *rem.Title
	}
	body := defaultBody
	if rem.Message != nil && *rem.Message != "" {
		body = *rem.Message
	}
	return Notification{
		TenantID: rem.TenantID,
		UserIDs:  rem.Recipients(),
		Kind:     kind,
		Title:    title,
		Body:     body,
		ItemID:   rem.ItemID,
		InApp:    rem.NotifyInApp,
		Email:    rem.NotifyEmail,
	}
}

func recentlyTriggered(rem Reminder, now time.Time) bool {
	return rem.LastTriggeredAt != nil && now.Sub(*rem.LastTriggeredAt) < retriggerGuard
}
