package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/stocktide/stocktide/internal/app"
	"github.com/stocktide/stocktide/internal/billing"
	"github.com/stocktide/stocktide/internal/customers"
	"github.com/stocktide/stocktide/internal/inventory"
	jobmetrics "github.com/stocktide/stocktide/internal/jobs"
	"github.com/stocktide/stocktide/internal/platform/db"
	"github.com/stocktide/stocktide/internal/reminders"
	"github.com/stocktide/stocktide/internal/sales/orders"
	"github.com/stocktide/stocktide/internal/shared"
	"github.com/stocktide/stocktide/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	activityLogger := shared.NewActivityLogger(pool)
	sequence := shared.NewPGSequence(pool)
	idempotencyStore := shared.NewIdempotencyStore(pool)

	customersService := customers.NewService(customers.NewRepository(pool))
	inventoryService := inventory.NewService(inventory.NewRepository(pool), activityLogger, inventory.ServiceConfig{})
	remindersService := reminders.NewService(reminders.NewRepository(pool), inventoryService)
	ordersService := orders.NewService(orders.NewRepository(pool), customersService, inventoryService, sequence, activityLogger)
	billingService := billing.NewService(billing.NewRepository(pool), ordersService, customersService, sequence, activityLogger)

	client, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	metrics := jobmetrics.NewMetrics(nil)
	sink := &jobs.LogSink{Logger: logger}

	scanTask, err := jobs.NewReminderScanTask()
	if err != nil {
		logger.Error("build reminder scan task", slog.Any("error", err))
		os.Exit(1)
	}
	overdueTask, err := jobs.NewInvoiceOverdueTask()
	if err != nil {
		logger.Error("build overdue task", slog.Any("error", err))
		os.Exit(1)
	}
	cleanupTask, err := jobs.NewIdempotencyCleanupTask()
	if err != nil {
		logger.Error("build cleanup task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskReminderScan, Handler: jobs.NewReminderScanHandler(remindersService, client, metrics, logger)},
			{Type: jobs.TaskNotifySend, Handler: jobs.NewNotifySendHandler(sink, metrics, logger)},
			{Type: jobs.TaskInvoiceOverdue, Handler: jobs.NewInvoiceOverdueHandler(billingService, metrics, logger)},
			{Type: jobs.TaskIdempotencyCleanup, Handler: jobs.NewIdempotencyCleanupHandler(idempotencyStore, metrics, logger)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.ReminderScanCron, Task: scanTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: cfg.InvoiceOverdueCron, Task: overdueTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: cfg.IdempotencyCleanupCron, Task: cleanupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
