// internal/app/features/workgroups/routes.go
package workgroups

import "github.com/go-chi/chi/v5"

// Routes mounts the workgroup endpoints (typically under "/api/workgroups").
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ServeList)
	r.Post("/", h.HandleCreate)

	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.ServeWorkgroup)
		r.Put("/", h.HandleUpdate)
		r.Delete("/", h.HandleDelete)

		r.Get("/users", h.ServeUsers)
		r.Post("/users", h.HandleAddUser)
		r.Delete("/users", h.HandleRemoveUser)

		r.Get("/groups", h.ServeGroups)
		r.Post("/groups", h.HandleAddGroup)

		r.Get("/peer_reviews", h.ServePeerReviews)
		r.Get("/workgroup_reviews", h.ServeWorkgroupReviews)
		r.Get("/submissions", h.ServeSubmissions)

		r.Post("/grades", h.HandleGrade)
	})

	return r
}
