package purchases

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/feedmill/feedmill/internal/platform/httpx"
	"github.com/feedmill/feedmill/internal/shared"
)

// Handler serves purchase endpoints.
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

// MountRoutes registers purchase routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/stats", h.stats)
}

type listResponse struct {
	Purchases  []Purchase        `json:"purchases"`
	Pagination shared.Pagination `json:"pagination"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page := shared.PageFromRequest(r)
	filter := ListFilter{Limit: page.Limit, Offset: page.Offset()}
	if raw := r.URL.Query().Get("feed"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.RespondError(w, shared.Invalid("invalid feed"))
			return
		}
		filter.FeedID = &id
	}
	items, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("list purchases", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if items == nil {
		items = []Purchase{}
	}
	httpx.OK(w, listResponse{Purchases: items, Pagination: shared.NewPagination(page.Page, page.Limit, total)})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := httpx.Bind(r, h.validator, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, err := h.service.Create(r.Context(), req)
	if err != nil {
		if httpx.StatusFor(err) == http.StatusInternalServerError {
			h.logger.Error("create purchase", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.Created(w, p)
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		h.logger.Error("purchase stats", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, stats)
}
