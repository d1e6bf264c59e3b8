package feeds

import "github.com/go-chi/chi/v5"

// MountRoutes registers feed routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.show)
	r.Put("/{id}/rename", h.rename)
	r.Delete("/{id}", h.remove)
	r.Get("/{id}/prices", h.prices)
	r.Put("/{id}/prices", h.replacePrices)
}
