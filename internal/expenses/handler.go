package expenses

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
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

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.remove)
}

type listResponse struct {
	Expenses   []Expense         `json:"expenses"`
	Pagination shared.Pagination `json:"pagination"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page := shared.PageFromRequest(r)
	q := r.URL.Query()
	filter := ListFilter{Type: Type(q.Get("type")), Limit: page.Limit, Offset: page.Offset()}
	for key, dst := range map[string]**time.Time{"from": &filter.From, "to": &filter.To} {
		if raw := q.Get(key); raw != "" {
			t, err := time.Parse(dateLayout, raw)
			if err != nil {
				httpx.RespondError(w, shared.Invalid(key+" must be YYYY-MM-DD"))
				return
			}
			*dst = &t
		}
	}
	items, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.fail(w, "list expenses", err)
		return
	}
	if items == nil {
		items = []Expense{}
	}
	httpx.OK(w, listResponse{Expenses: items, Pagination: shared.NewPagination(page.Page, page.Limit, total)})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := httpx.Bind(r, h.validator, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	e, err := h.service.Create(r.Context(), in)
	if err != nil {
		h.fail(w, "create expense", err)
		return
	}
	httpx.Created(w, e)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in Input
	if err := httpx.Bind(r, h.validator, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	e, err := h.service.Update(r.Context(), id, in)
	if err != nil {
		h.fail(w, "update expense", err)
		return
	}
	httpx.OK(w, e)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.fail(w, "delete expense", err)
		return
	}
	httpx.OK(w, map[string]int64{"id": id})
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if httpx.StatusFor(err) == http.StatusInternalServerError {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
