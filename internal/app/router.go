package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/stocktide/stocktide/internal/billing"
	"github.com/stocktide/stocktide/internal/customers"
	"github.com/stocktide/stocktide/internal/delivery"
	"github.com/stocktide/stocktide/internal/inventory"
	"github.com/stocktide/stocktide/internal/observability"
	"github.com/stocktide/stocktide/internal/picklists"
	"github.com/stocktide/stocktide/internal/reminders"
	"github.com/stocktide/stocktide/internal/sales/orders"
	"github.com/stocktide/stocktide/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger      *slog.Logger
	Config      *Config
	KeyResolver KeyResolver

	InventoryHandler *inventory.Handler
	CustomersHandler *customers.Handler
	RemindersHandler *reminders.Handler
	OrdersHandler    *orders.Handler
	PickListsHandler *picklists.Handler
	DeliveryHandler  *delivery.Handler
	BillingHandler   *billing.Handler
	JobsHandler      *jobs.Handler

	Metrics *observability.Metrics
}

// NewRouter constructs the chi router. Everything under /api/v1 requires a
// tenant API key.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}
	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	if params.JobsHandler != nil {
		r.Route("/jobs", params.JobsHandler.MountRoutes)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(APIKeyAuth(params.KeyResolver, params.Logger))

		params.InventoryHandler.MountRoutes(r)
		params.CustomersHandler.MountRoutes(r)
		params.RemindersHandler.MountRoutes(r)
		params.OrdersHandler.MountRoutes(r)
		params.PickListsHandler.MountRoutes(r)
		params.DeliveryHandler.MountRoutes(r)
		params.BillingHandler.MountRoutes(r)
	})

	return r
}
