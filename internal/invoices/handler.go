package invoices

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/feedmill/feedmill/internal/platform/httpx"
	"github.com/feedmill/feedmill/internal/shared"
)

const dateLayout = "2006-01-02"

// Handler exposes invoices, payments and debts.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers the /invoices routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Show)
	r.Put("/{id}", h.Update)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page := shared.PageFromRequest(r)
	filter, err := parseListFilter(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	filter.Limit = page.Limit
	filter.Offset = page.Offset()
	items, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.fail(w, "list invoices", err)
		return
	}
	if items == nil {
		items = []Summary{}
	}
	httpx.OK(w, ListResponse{Invoices: items, Pagination: shared.NewPagination(page.Page, page.Limit, total)})
}

func parseListFilter(r *http.Request) (ListFilter, error) {
	q := r.URL.Query()
	var f ListFilter
	if raw := q.Get("customer"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return f, shared.Invalid("invalid customer")
		}
		f.CustomerID = &id
	}
	if raw := q.Get("from"); raw != "" {
		t, err := time.Parse(dateLayout, raw)
		if err != nil {
			return f, shared.Invalid("from must be YYYY-MM-DD")
		}
		f.From = &t
	}
	if raw := q.Get("to"); raw != "" {
		t, err := time.Parse(dateLayout, raw)
		if err != nil {
			return f, shared.Invalid("to must be YYYY-MM-DD")
		}
		end := t.AddDate(0, 0, 1)
		f.To = &end
	}
	f.OpenOnly = q.Get("open") == "true"
	return f, nil
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	inv, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, "get invoice", err)
		return
	}
	httpx.OK(w, inv)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := httpx.Bind(r, h.validator, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	inv, err := h.service.Create(r.Context(), req, r.Header.Get(shared.IdempotencyHeader))
	if err != nil {
		h.fail(w, "create invoice", err)
		return
	}
	h.logger.Info("invoice created", slog.Int64("id", inv.ID), slog.String("total", inv.TotalAmount.String()),
		slog.String("currency", string(inv.Currency)))
	httpx.Created(w, inv)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req UpdateRequest
	if err := httpx.Bind(r, h.validator, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	inv, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		h.fail(w, "update invoice", err)
		return
	}
	httpx.OK(w, inv)
}

// RecordPayment serves POST /payments.
func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	var req PaymentRequest
	if err := httpx.Bind(r, h.validator, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	res, err := h.service.RecordPayment(r.Context(), req, r.Header.Get(shared.IdempotencyHeader))
	if err != nil {
		h.fail(w, "record payment", err)
		return
	}
	httpx.Created(w, res)
}

// Debts serves GET /debts.
func (h *Handler) Debts(w http.ResponseWriter, r *http.Request) {
	debts, err := h.service.Debts(r.Context())
	if err != nil {
		h.fail(w, "list debts", err)
		return
	}
	httpx.OK(w, debts)
}

// CustomerDebt serves GET /customers/{id}/debt.
func (h *Handler) CustomerDebt(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	detail, err := h.service.CustomerDebt(r.Context(), id)
	if err != nil {
		h.fail(w, "customer debt", err)
		return
	}
	httpx.OK(w, detail)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if httpx.StatusFor(err) == http.StatusInternalServerError {
		h.logger.Error(op+" failed", slog.Any("error", err))
	} else {
		h.logger.Debug(op+" rejected", slog.String("reason", err.Error()))
	}
	httpx.RespondError(w, err)
}
