// internal/app/features/reviews/routes.go
package reviews

import "github.com/go-chi/chi/v5"

// WorkgroupRoutes mounts /api/workgroup_reviews.
func WorkgroupRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeWorkgroupReviews)
	r.Post("/", h.HandleCreateWorkgroupReview)
	r.Get("/{id}", h.ServeWorkgroupReview)
	r.Put("/{id}", h.HandleUpdateWorkgroupReview)
	r.Delete("/{id}", h.HandleDeleteWorkgroupReview)
	return r
}

// SubmissionRoutes mounts /api/submission_reviews.
func SubmissionRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeSubmissionReviews)
	r.Post("/", h.HandleCreateSubmissionReview)
	r.Get("/{id}", h.ServeSubmissionReview)
	r.Put("/{id}", h.HandleUpdateSubmissionReview)
	r.Delete("/{id}", h.HandleDeleteSubmissionReview)
	return r
}

// PeerRoutes mounts /api/peer_reviews.
func PeerRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServePeerReviews)
	r.Post("/", h.HandleCreatePeerReview)
	r.Get("/{id}", h.ServePeerReview)
	r.Put("/{id}", h.HandleUpdatePeerReview)
	r.Delete("/{id}", h.HandleDeletePeerReview)
	return r
}
