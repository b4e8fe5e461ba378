// internal/app/features/reviews/workgroup.go
package reviews

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/groupwork/internal/app/features/errors"
	reviewstore "github.com/dalemusser/groupwork/internal/app/store/reviews"
	"github.com/dalemusser/groupwork/internal/app/system/inputval"
	"github.com/dalemusser/groupwork/internal/app/system/timeouts"
	"github.com/dalemusser/groupwork/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type workgroupReviewInput struct {
	Workgroup int64 `json:"workgroup" validate:"required"`
	answerInput
}

func (h *Handler) decodeWorkgroupReview(ctx context.Context, r *http.Request) (models.WorkgroupReview, error) {
	var in workgroupReviewInput
	if err := uierrors.DecodeJSON(r, &in); err != nil {
		return models.WorkgroupReview{}, err
	}
	if err := inputval.Struct(in); err != nil {
		return models.WorkgroupReview{}, err
	}
	in.normalize()
	if err := h.requireWorkgroup(ctx, in.Workgroup); err != nil {
		return models.WorkgroupReview{}, err
	}
	return models.WorkgroupReview{
		WorkgroupID: in.Workgroup,
		Reviewer:    in.Reviewer,
		Question:    in.Question,
		Answer:      in.Answer,
		ContentID:   in.ContentID,
	}, nil
}

// ServeWorkgroupReviews handles GET /api/workgroup_reviews[?content_id=..].
func (h *Handler) ServeWorkgroupReviews(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, err := h.workgroup.List(ctx, reviewstore.Filter{ContentID: contentFilter(r)})
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list workgroup reviews failed", err, "A database error occurred.")
		return
	}
	if list == nil {
		list = []models.WorkgroupReview{}
	}
	uierrors.WriteJSON(w, http.StatusOK, list)
}

// ServeWorkgroupReview handles GET /api/workgroup_reviews/{id}.
func (h *Handler) ServeWorkgroupReview(w http.ResponseWriter, r *http.Request) {
	id, err := uierrors.URLID(r, "id", "Workgroup review")
	if err != nil {
		h.ErrLog.Respond(w, r, "load workgroup review", err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	rv, err := h.workgroup.GetByID(ctx, id)
	if err != nil {
		h.respondStoreErr(w, r, "load workgroup review", "Workgroup review", id, err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, rv)
}

// HandleCreateWorkgroupReview handles POST /api/workgroup_reviews.
func (h *Handler) HandleCreateWorkgroupReview(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	rv, err := h.decodeWorkgroupReview(ctx, r)
	if err != nil {
		h.ErrLog.Respond(w, r, "create workgroup review", err)
		return
	}
	rv, err = h.workgroup.Create(ctx, rv)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "create workgroup review failed", err, "Unable to save review.")
		return
	}
	h.Log.Debug("workgroup review created", zap.Int64("review_id", rv.ID), zap.Int64("workgroup_id", rv.WorkgroupID))
	uierrors.WriteJSON(w, http.StatusCreated, rv)
}

// HandleUpdateWorkgroupReview handles PUT /api/workgroup_reviews/{id}.
func (h *Handler) HandleUpdateWorkgroupReview(w http.ResponseWriter, r *http.Request) {
	id, err := uierrors.URLID(r, "id", "Workgroup review")
	if err != nil {
		h.ErrLog.Respond(w, r, "update workgroup review", err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	rv, err := h.decodeWorkgroupReview(ctx, r)
	if err != nil {
		h.ErrLog.Respond(w, r, "update workgroup review", err)
		return
	}
	rv, err = h.workgroup.Update(ctx, id, rv)
	if err != nil {
		h.respondStoreErr(w, r, "update workgroup review", "Workgroup review", id, err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, rv)
}

// HandleDeleteWorkgroupReview handles DELETE /api/workgroup_reviews/{id}.
func (h *Handler) HandleDeleteWorkgroupReview(w http.ResponseWriter, r *http.Request) {
	id, err := uierrors.URLID(r, "id", "Workgroup review")
	if err != nil {
		h.ErrLog.Respond(w, r, "delete workgroup review", err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	n, err := h.workgroup.Delete(ctx, id)
	if err != nil {
		h.respondStoreErr(w, r, "delete workgroup review", "Workgroup review", id, err)
		return
	}
	if n == 0 {
		h.respondStoreErr(w, r, "delete workgroup review", "Workgroup review", id, mongo.ErrNoDocuments)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
