// internal/app/features/projects/routes.go
package projects

import "github.com/go-chi/chi/v5"

// Routes mounts the project endpoints (typically under "/api/projects").
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ServeList)
	r.Post("/", h.HandleCreate)

	r.Get("/{id}", h.ServeProject)
	r.Put("/{id}", h.HandleUpdate)
	r.Delete("/{id}", h.HandleDelete)

	r.Get("/{id}/workgroups", h.ServeWorkgroups)
	r.Post("/{id}/workgroups", h.HandleAttachWorkgroup)
	r.Post("/{id}/workgroups_bulk", h.HandleBulk)

	return r
}
