package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/feedmill/feedmill/internal/platform/httpx"
	"github.com/feedmill/feedmill/internal/shared"
)

// Handler wires HTTP endpoints for authentication flows.
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

// MountRoutes registers the public auth routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/login", h.login)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := httpx.Bind(r, h.validator, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	res, err := h.service.Login(r.Context(), req)
	if err != nil {
		if httpx.StatusFor(err) == http.StatusInternalServerError {
			h.logger.Error("login", slog.Any("error", err))
		} else {
			h.logger.Info("login rejected", slog.String("username", req.Username))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, res)
}

// Me handles GET /auth/me behind RequireBearer.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.Me(r.Context())
	if err != nil {
		if httpx.StatusFor(err) == http.StatusInternalServerError {
			h.logger.Error("load current user", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, user)
}

// RequireBearer rejects requests without a valid Authorization bearer token
// and stores the principal in the request context.
func (h *Handler) RequireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			httpx.Error(w, http.StatusUnauthorized, "authentication required")
			return
		}
		principal, err := h.service.ParseToken(strings.TrimSpace(raw))
		if err != nil {
			httpx.Error(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		next.ServeHTTP(w, r.WithContext(shared.ContextWithPrincipal(r.Context(), principal)))
	})
}
