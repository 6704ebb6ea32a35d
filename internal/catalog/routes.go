package catalog

import "github.com/go-chi/chi/v5"

// MountRoutes registers catalog routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/books", h.create)
	r.Get("/books/search", h.search)
	r.Get("/books/{id}", h.show)
	r.Put("/books/{id}", h.update)
	r.Put("/books/{id}/location", h.updateLocation)
	r.Post("/books/{id}/status", h.changeStatus)
}
