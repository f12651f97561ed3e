package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/stocktide/stocktide/internal/jobs"
	"github.com/stocktide/stocktide/internal/reminders"
)

// ReminderScanner is the slice of the reminder service the worker needs.
type ReminderScanner interface {
	ScanDue(ctx context.Context, now time.Time) ([]reminders.Notification, error)
}

// OverdueMarker flips past-due invoices.
type OverdueMarker interface {
	MarkOverdue(ctx context.Context, asOf time.Time) (int, error)
}

// KeySweeper removes expired idempotency keys.
type KeySweeper interface {
	Cleanup(ctx context.Context, olderThan time.Duration) error
}

// NotificationSink delivers a notification. The in-app/log sink is the
// default; SMTP delivery plugs in behind the same interface.
type NotificationSink interface {
	Deliver(ctx context.Context, payload NotificationPayload) error
}

// LogSink writes notifications to the log. Email delivery is a stub until an
// SMTP sink is configured.
type LogSink struct {
	Logger *slog.Logger
}

func (s LogSink) Deliver(_ context.Context, p NotificationPayload) error {
	s.Logger.Info("notification",
		slog.String("kind", p.Kind),
		slog.String("tenant", p.TenantID.String()),
		slog.String("title", p.Title),
		slog.String("body", p.Body),
		slog.Int("recipients", len(p.UserIDs)),
		slog.Bool("email", p.Email),
	)
	return nil
}

// NewReminderScanHandler evaluates due reminders and enqueues one
// notify:send task per result.
func NewReminderScanHandler(scanner ReminderScanner, client *Client, metrics *jobmetrics.Metrics, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		tracker := metrics.Track("reminder_scan")
		notifications, err := scanner.ScanDue(ctx, time.Now())
		if err != nil {
			logger.Error("reminder scan", slog.Any("error", err))
			return tracker.End(err)
		}
		for _, n := range notifications {
			payload := NotificationPayload{
				TenantID: n.TenantID,
				UserIDs:  n.UserIDs,
				Kind:     n.Kind,
				Title:    n.Title,
				Body:     n.Body,
				ItemID:   n.ItemID,
				InApp:    n.InApp,
				Email:    n.Email,
			}
			if _, err := client.EnqueueNotification(ctx, payload); err != nil {
				logger.Error("enqueue notification", slog.Any("error", err))
				return tracker.End(err)
			}
		}
		logger.Info("reminder scan done", slog.Int("notifications", len(notifications)))
		return tracker.End(nil)
	}
}

// NewNotifySendHandler delivers a queued notification through the sink.
func NewNotifySendHandler(sink NotificationSink, metrics *jobmetrics.Metrics, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		tracker := metrics.Track("notify_send")
		var payload NotificationPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			logger.Error("decode notification", slog.Any("error", err))
			tracker.End(err)
			return asynq.SkipRetry
		}
		return tracker.End(sink.Deliver(ctx, payload))
	}
}

// NewInvoiceOverdueHandler runs the past-due sweep.
func NewInvoiceOverdueHandler(marker OverdueMarker, metrics *jobmetrics.Metrics, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		tracker := metrics.Track("invoice_overdue")
		flipped, err := marker.MarkOverdue(ctx, time.Now())
		if err != nil {
			logger.Error("overdue sweep", slog.Any("error", err))
			return tracker.End(err)
		}
		logger.Info("overdue sweep done", slog.Int("flipped", flipped))
		return tracker.End(nil)
	}
}

// idempotencyRetention is how long processed keys are kept before the sweep
// removes them.
const idempotencyRetention = 30 * 24 * time.Hour

// NewIdempotencyCleanupHandler runs the key retention sweep.
func NewIdempotencyCleanupHandler(sweeper KeySweeper, metrics *jobmetrics.Metrics, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		tracker := metrics.Track("idempotency_cleanup")
		if err := sweeper.Cleanup(ctx, idempotencyRetention); err != nil {
			logger.Error("idempotency cleanup", slog.Any("error", err))
			return tracker.End(err)
		}
		return tracker.End(nil)
	}
}
