package backup

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/feedmill/feedmill/internal/platform/httpx"
	"github.com/feedmill/feedmill/internal/shared"
)

// Enqueuer schedules an out-of-band snapshot.
type Enqueuer interface {
	EnqueueBackupSnapshot(ctx context.Context) (string, error)
}

type Handler struct {
	logger   *slog.Logger
	service  *Service
	enqueuer Enqueuer
}

// NewHandler builds the admin handler. enqueuer may be nil when no worker is configured.
func NewHandler(logger *slog.Logger, service *Service, enqueuer Enqueuer) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, enqueuer: enqueuer}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/backup", h.download)
	r.Post("/restore", h.restore)
	r.Post("/backup/schedule", h.schedule)
}

func (h *Handler) download(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.Export(r.Context())
	if err != nil {
		h.fail(w, "export backup", err)
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="`+FileName(snap.CreatedAt)+`"`)
	httpx.JSON(w, http.StatusOK, snap)
}

type restoreResponse struct {
	Version   int `json:"version"`
	Feeds     int `json:"feeds"`
	Customers int `json:"customers"`
	Invoices  int `json:"invoices"`
	Payments  int `json:"payments"`
	Expenses  int `json:"expenses"`
}

func (h *Handler) restore(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRestoreBytes)
	file, _, err := r.FormFile("file")
	if err != nil {
		httpx.RespondError(w, shared.Invalid("file is required"))
		return
	}
	defer file.Close()

	snap, err := h.service.Restore(r.Context(), file)
	if err != nil {
		h.fail(w, "restore backup", err)
		return
	}
	h.logger.Info("backup restored", slog.Int("invoices", len(snap.Invoices)), slog.Int("feeds", len(snap.Feeds)))
	httpx.OK(w, restoreResponse{
		Version:   snap.Version,
		Feeds:     len(snap.Feeds),
		Customers: len(snap.Customers),
		Invoices:  len(snap.Invoices),
		Payments:  len(snap.Payments),
		Expenses:  len(snap.Expenses),
	})
}

func (h *Handler) schedule(w http.ResponseWriter, r *http.Request) {
	if h.enqueuer == nil {
		httpx.Error(w, http.StatusServiceUnavailable, "background worker is not configured")
		return
	}
	id, err := h.enqueuer.EnqueueBackupSnapshot(r.Context())
	if err != nil {
		h.fail(w, "enqueue backup", err)
		return
	}
	httpx.JSON(w, http.StatusAccepted, httpx.Envelope{Success: true, Data: map[string]string{"task_id": id}})
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if httpx.StatusFor(err) == http.StatusInternalServerError {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
