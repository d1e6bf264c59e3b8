package customers

import (
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/feedmill/feedmill/internal/platform/httpx"
	"github.com/feedmill/feedmill/internal/shared"
)

type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page := shared.PageFromRequest(r)
	customers, total, err := h.service.List(r.Context(), ListFilter{
		Search: r.URL.Query().Get("search"),
		Limit:  page.Limit,
		Offset: page.Offset(),
	})
	if err != nil {
		h.logger.Error("list customers failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if customers == nil {
		customers = []Customer{}
	}
	httpx.OK(w, ListResponse{Customers: customers, Pagination: shared.NewPagination(page.Page, page.Limit, total)})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	customer, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondFailure(w, "get customer failed", err)
		return
	}
	httpx.OK(w, customer)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateCustomerRequest
	if err := httpx.Bind(r, h.validator, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	customer, err := h.service.Create(r.Context(), req)
	if err != nil {
		h.respondFailure(w, "create customer failed", err)
		return
	}
	httpx.Created(w, customer)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req UpdateCustomerRequest
	if err := httpx.Bind(r, h.validator, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	customer, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		h.respondFailure(w, "update customer failed", err)
		return
	}
	httpx.OK(w, customer)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.respondFailure(w, "delete customer failed", err)
		return
	}
	httpx.OK(w, map[string]int64{"id": id})
}

func (h *Handler) respondFailure(w http.ResponseWriter, msg string, err error) {
	if httpx.StatusFor(err) >= http.StatusInternalServerError {
		h.logger.Error(msg, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
