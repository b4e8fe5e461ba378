// internal/app/features/workgroups/related.go
package workgroups

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/groupwork/internal/app/features/errors"
	reviewstore "github.com/dalemusser/groupwork/internal/app/store/reviews"
	submissionstore "github.com/dalemusser/groupwork/internal/app/store/submissions"
	"github.com/dalemusser/groupwork/internal/app/system/timeouts"
	"github.com/dalemusser/groupwork/internal/domain/models"
)

// reviewFilter scopes review listings to the workgroup and, when given,
// to ?content_id.
func reviewFilter(r *http.Request, workgroupID int64) reviewstore.Filter {
	f := reviewstore.Filter{WorkgroupID: workgroupID}
	if v, ok := r.URL.Query()["content_id"]; ok && len(v) > 0 {
		c := v[0]
		f.ContentID = &c
	}
	return f
}

// ServePeerReviews handles GET /api/workgroups/{id}/peer_reviews[?content_id=..].
func (h *Handler) ServePeerReviews(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	wg, err := h.loadWorkgroup(ctx, r)
	if err != nil {
		h.ErrLog.Respond(w, r, "list peer reviews", err)
		return
	}
	list, err := reviewstore.NewPeerStore(h.DB).List(ctx, reviewFilter(r, wg.ID))
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list peer reviews failed", err, "A database error occurred.")
		return
	}
	if list == nil {
		list = []models.PeerReview{}
	}
	uierrors.WriteJSON(w, http.StatusOK, list)
}

// ServeWorkgroupReviews handles GET /api/workgroups/{id}/workgroup_reviews[?content_id=..].
func (h *Handler) ServeWorkgroupReviews(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	wg, err := h.loadWorkgroup(ctx, r)
	if err != nil {
		h.ErrLog.Respond(w, r, "list workgroup reviews", err)
		return
	}
	list, err := reviewstore.NewWorkgroupStore(h.DB).List(ctx, reviewFilter(r, wg.ID))
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list workgroup reviews failed", err, "A database error occurred.")
		return
	}
	if list == nil {
		list = []models.WorkgroupReview{}
	}
	uierrors.WriteJSON(w, http.StatusOK, list)
}

// ServeSubmissions handles GET /api/workgroups/{id}/submissions. S3
// documents are returned as presigned links.
func (h *Handler) ServeSubmissions(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	wg, err := h.loadWorkgroup(ctx, r)
	if err != nil {
		h.ErrLog.Respond(w, r, "list workgroup submissions", err)
		return
	}
	list, err := submissionstore.New(h.DB).ListByWorkgroup(ctx, wg.ID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list workgroup submissions failed", err, "A database error occurred.")
		return
	}
	if list == nil {
		list = []models.Submission{}
	}
	uierrors.WriteJSON(w, http.StatusOK, h.Links.LinkAll(ctx, list))
}
