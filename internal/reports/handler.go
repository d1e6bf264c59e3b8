package reports

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/feedmill/feedmill/internal/platform/httpx"
	"github.com/feedmill/feedmill/internal/shared"
)

// Handler serves reports and the dashboard summary.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers /reports routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/sales", h.sales)
	r.Get("/inventory", h.inventory)
	r.Get("/debts", h.debts)
}

func (h *Handler) sales(w http.ResponseWriter, r *http.Request) {
	var filter SalesFilter
	for key, dst := range map[string]*time.Time{"start": &filter.Start, "end": &filter.End} {
		if raw := r.URL.Query().Get(key); raw != "" {
			t, err := time.Parse(dateLayout, raw)
			if err != nil {
				httpx.RespondError(w, shared.Invalid(key+" must be YYYY-MM-DD"))
				return
			}
			*dst = t
		}
	}
	report, err := h.service.Sales(r.Context(), filter)
	h.respond(w, "sales report", report, err)
}

func (h *Handler) inventory(w http.ResponseWriter, r *http.Request) {
	threshold := decimal.Zero
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		v, err := decimal.NewFromString(raw)
		if err != nil {
			httpx.RespondError(w, shared.Invalid("threshold must be a number"))
			return
		}
		threshold = v
	}
	report, err := h.service.Inventory(r.Context(), threshold)
	h.respond(w, "inventory report", report, err)
}

func (h *Handler) debts(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Debts(r.Context())
	h.respond(w, "debts report", report, err)
}

// Dashboard serves GET /dashboard/summary.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Dashboard(r.Context())
	h.respond(w, "dashboard summary", summary, err)
}

// Charts serves GET /dashboard/charts?months=N.
func (h *Handler) Charts(w http.ResponseWriter, r *http.Request) {
	months := 0
	if raw := r.URL.Query().Get("months"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			httpx.RespondError(w, shared.Invalid("months must be a whole number"))
			return
		}
		months = v
	}
	charts, err := h.service.Charts(r.Context(), months)
	h.respond(w, "dashboard charts", charts, err)
}

func (h *Handler) respond(w http.ResponseWriter, op string, data any, err error) {
	if err != nil {
		if httpx.StatusFor(err) == http.StatusInternalServerError {
			h.logger.Error(op, slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, data)
}
