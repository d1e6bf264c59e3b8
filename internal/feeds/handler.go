package feeds

import (
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/feedmill/feedmill/internal/platform/httpx"
	"github.com/feedmill/feedmill/internal/shared"
)

// Handler exposes the feed catalogue over JSON.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page := shared.PageFromRequest(r)
	feeds, total, err := h.service.List(r.Context(), ListFilter{
		Search: r.URL.Query().Get("search"),
		Limit:  page.Limit,
		Offset: page.Offset(),
	})
	if err != nil {
		h.fail(w, "list feeds", err)
		return
	}
	if feeds == nil {
		feeds = []Feed{}
	}
	httpx.OK(w, ListResponse{Feeds: feeds, Pagination: shared.NewPagination(page.Page, page.Limit, total)})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	feed, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, "get feed", err)
		return
	}
	httpx.OK(w, feed)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateFeedRequest
	if err := httpx.Bind(r, h.validator, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	feed, err := h.service.Create(r.Context(), req)
	if err != nil {
		h.fail(w, "create feed", err)
		return
	}
	httpx.Created(w, feed)
}

func (h *Handler) rename(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req RenameFeedRequest
	if err := httpx.Bind(r, h.validator, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	feed, err := h.service.Rename(r.Context(), id, req.Name)
	if err != nil {
		h.fail(w, "rename feed", err)
		return
	}
	httpx.OK(w, feed)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.fail(w, "delete feed", err)
		return
	}
	httpx.OK(w, map[string]int64{"id": id})
}

func (h *Handler) prices(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	prices, err := h.service.Prices(r.Context(), id)
	if err != nil {
		h.fail(w, "get prices", err)
		return
	}
	httpx.OK(w, prices)
}

func (h *Handler) replacePrices(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req ReplacePricesRequest
	if err := httpx.Bind(r, h.validator, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	prices, err := h.service.ReplacePrices(r.Context(), id, req.toPrices())
	if err != nil {
		h.fail(w, "replace prices", err)
		return
	}
	httpx.OK(w, prices)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if httpx.StatusFor(err) == http.StatusInternalServerError {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
