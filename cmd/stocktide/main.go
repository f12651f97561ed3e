package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/stocktide/stocktide/internal/app"
	"github.com/stocktide/stocktide/internal/billing"
	"github.com/stocktide/stocktide/internal/customers"
	"github.com/stocktide/stocktide/internal/delivery"
	"github.com/stocktide/stocktide/internal/inventory"
	"github.com/stocktide/stocktide/internal/observability"
	"github.com/stocktide/stocktide/internal/picklists"
	"github.com/stocktide/stocktide/internal/platform/cache"
	"github.com/stocktide/stocktide/internal/platform/db"
	"github.com/stocktide/stocktide/internal/reminders"
	"github.com/stocktide/stocktide/internal/sales/orders"
	"github.com/stocktide/stocktide/internal/shared"
	"github.com/stocktide/stocktide/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	keyStore := shared.NewAPIKeyStore(pool)
	keyResolver := shared.NewCachedKeyResolver(keyStore, redisClient, cfg.APIKeyCacheTTL, logger)

	activityLogger := shared.NewActivityLogger(pool)
	sequence := shared.NewPGSequence(pool)

	customersRepo := customers.NewRepository(pool)
	customersService := customers.NewService(customersRepo)
	customersHandler := customers.NewHandler(logger, customersService)

	inventoryRepo := inventory.NewRepository(pool)
	inventoryService := inventory.NewService(inventoryRepo, activityLogger, inventory.ServiceConfig{})
	inventoryHandler := inventory.NewHandler(logger, inventoryService)

	remindersRepo := reminders.NewRepository(pool)
	remindersService := reminders.NewService(remindersRepo, inventoryService)
	remindersHandler := reminders.NewHandler(logger, remindersService)

	ordersRepo := orders.NewRepository(pool)
	ordersService := orders.NewService(ordersRepo, customersService, inventoryService, sequence, activityLogger)
	ordersHandler := orders.NewHandler(logger, ordersService)

	pickListsRepo := picklists.NewRepository(pool)
	pickListsService := picklists.NewService(pickListsRepo, ordersService, sequence, activityLogger)
	pickListsHandler := picklists.NewHandler(logger, pickListsService)
	ordersService.SetPickListCreator(pickListsService)

	deliveryRepo := delivery.NewRepository(pool)
	deliveryService := delivery.NewService(deliveryRepo, ordersService, sequence, activityLogger)
	deliveryHandler := delivery.NewHandler(logger, deliveryService)

	billingRepo := billing.NewRepository(pool)
	billingService := billing.NewService(billingRepo, ordersService, customersService, sequence, activityLogger)
	billingHandler := billing.NewHandler(logger, billingService)

	metrics := observability.NewMetrics()

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:      logger,
		Config:      cfg,
		KeyResolver: keyResolver,

		InventoryHandler: inventoryHandler,
		CustomersHandler: customersHandler,
		RemindersHandler: remindersHandler,
		OrdersHandler:    ordersHandler,
		PickListsHandler: pickListsHandler,
		DeliveryHandler:  deliveryHandler,
		BillingHandler:   billingHandler,
		JobsHandler:      jobsHandler,

		Metrics: metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
