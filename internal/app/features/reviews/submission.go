// internal/app/features/reviews/submission.go
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

type submissionReviewInput struct {
	Submission int64 `json:"submission" validate:"required"`
	answerInput
}

func (h *Handler) decodeSubmissionReview(ctx context.Context, r *http.Request) (models.SubmissionReview, error) {
	var in submissionReviewInput
	if err := uierrors.DecodeJSON(r, &in); err != nil {
		return models.SubmissionReview{}, err
	}
	if err := inputval.Struct(in); err != nil {
		return models.SubmissionReview{}, err
	}
	in.normalize()
	if err := h.requireSubmission(ctx, in.Submission); err != nil {
		return models.SubmissionReview{}, err
	}
	return models.SubmissionReview{
		SubmissionID: in.Submission,
		Reviewer:     in.Reviewer,
		Question:     in.Question,
		Answer:       in.Answer,
		ContentID:    in.ContentID,
	}, nil
}

// ServeSubmissionReviews handles GET /api/submission_reviews[?content_id=..].
func (h *Handler) ServeSubmissionReviews(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, err := h.submission.List(ctx, reviewstore.Filter{ContentID: contentFilter(r)})
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list submission reviews failed", err, "A database error occurred.")
		return
	}
	if list == nil {
		list = []models.SubmissionReview{}
	}
	uierrors.WriteJSON(w, http.StatusOK, list)
}

// ServeSubmissionReview handles GET /api/submission_reviews/{id}.
func (h *Handler) ServeSubmissionReview(w http.ResponseWriter, r *http.Request) {
	id, err := uierrors.URLID(r, "id", "Submission review")
	if err != nil {
		h.ErrLog.Respond(w, r, "load submission review", err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	rv, err := h.submission.GetByID(ctx, id)
	if err != nil {
		h.respondStoreErr(w, r, "load submission review", "Submission review", id, err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, rv)
}

// HandleCreateSubmissionReview handles POST /api/submission_reviews.
func (h *Handler) HandleCreateSubmissionReview(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	rv, err := h.decodeSubmissionReview(ctx, r)
	if err != nil {
		h.ErrLog.Respond(w, r, "create submission review", err)
		return
	}
	rv, err = h.submission.Create(ctx, rv)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "create submission review failed", err, "Unable to save review.")
		return
	}
	h.Log.Debug("submission review created", zap.Int64("review_id", rv.ID), zap.Int64("submission_id", rv.SubmissionID))
	uierrors.WriteJSON(w, http.StatusCreated, rv)
}

// HandleUpdateSubmissionReview handles PUT /api/submission_reviews/{id}.
func (h *Handler) HandleUpdateSubmissionReview(w http.ResponseWriter, r *http.Request) {
	id, err := uierrors.URLID(r, "id", "Submission review")
	if err != nil {
		h.ErrLog.Respond(w, r, "update submission review", err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	rv, err := h.decodeSubmissionReview(ctx, r)
	if err != nil {
		h.ErrLog.Respond(w, r, "update submission review", err)
		return
	}
	rv, err = h.submission.Update(ctx, id, rv)
	if err != nil {
		h.respondStoreErr(w, r, "update submission review", "Submission review", id, err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, rv)
}

// HandleDeleteSubmissionReview handles DELETE /api/submission_reviews/{id}.
func (h *Handler) HandleDeleteSubmissionReview(w http.ResponseWriter, r *http.Request) {
	id, err := uierrors.URLID(r, "id", "Submission review")
	if err != nil {
		h.ErrLog.Respond(w, r, "delete submission review", err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	n, err := h.submission.Delete(ctx, id)
	if err != nil {
		h.respondStoreErr(w, r, "delete submission review", "Submission review", id, err)
		return
	}
	if n == 0 {
		h.respondStoreErr(w, r, "delete submission review", "Submission review", id, mongo.ErrNoDocuments)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
