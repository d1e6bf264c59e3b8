package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/feedmill/feedmill/internal/auth"
	"github.com/feedmill/feedmill/internal/backup"
	"github.com/feedmill/feedmill/internal/customers"
	"github.com/feedmill/feedmill/internal/expenses"
	"github.com/feedmill/feedmill/internal/feeds"
	"github.com/feedmill/feedmill/internal/invoices"
	"github.com/feedmill/feedmill/internal/observability"
	"github.com/feedmill/feedmill/internal/platform/httpx"
	"github.com/feedmill/feedmill/internal/purchases"
	"github.com/feedmill/feedmill/internal/reports"
	"github.com/feedmill/feedmill/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger          *slog.Logger
	Config          *Config
	AuthHandler     *auth.Handler
	FeedHandler     *feeds.Handler
	CustomerHandler *customers.Handler
	PurchaseHandler *purchases.Handler
	InvoiceHandler  *invoices.Handler
	ExpenseHandler  *expenses.Handler
	ReportHandler   *reports.Handler
	BackupHandler   *backup.Handler
	JobHandler      *jobs.Handler
	Metrics         *observability.Metrics
}

// NewRouter constructs the chi.Router serving /api.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}
	if !InTestMode() {
		r.Use(chimw.Logger)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Error(w, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.Error(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Route("/api", func(api chi.Router) {
		api.Route("/auth", func(r chi.Router) {
			params.AuthHandler.MountRoutes(r)
			r.With(params.AuthHandler.RequireBearer).Get("/me", params.AuthHandler.Me)
		})

		api.Group(func(r chi.Router) {
			r.Use(params.AuthHandler.RequireBearer)

			r.Route("/feeds", params.FeedHandler.MountRoutes)
			r.Route("/customers", func(r chi.Router) {
				params.CustomerHandler.MountRoutes(r)
				r.Get("/{id}/debt", params.InvoiceHandler.CustomerDebt)
			})
			r.Route("/purchases", params.PurchaseHandler.MountRoutes)
			r.Route("/invoices", params.InvoiceHandler.MountRoutes)
			r.Post("/payments", params.InvoiceHandler.RecordPayment)
			r.Get("/debts", params.InvoiceHandler.Debts)
			r.Route("/expenses", params.ExpenseHandler.MountRoutes)
			r.Route("/reports", params.ReportHandler.MountRoutes)
			r.Get("/dashboard/summary", params.ReportHandler.Dashboard)
			r.Get("/dashboard/charts", params.ReportHandler.Charts)
			r.Route("/admin", func(r chi.Router) {
				params.BackupHandler.MountRoutes(r)
				if params.JobHandler != nil {
					r.Route("/jobs", params.JobHandler.MountRoutes)
				}
			})
		})
	})

	return r
}
