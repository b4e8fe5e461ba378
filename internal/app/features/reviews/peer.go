// internal/app/features/reviews/peer.go
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

type peerReviewInput struct {
	Workgroup int64 `json:"workgroup" validate:"required"`
	User      int64 `json:"user" validate:"required"`
	answerInput
}

func (h *Handler) decodePeerReview(ctx context.Context, r *http.Request) (models.PeerReview, error) {
	var in peerReviewInput
	if err := uierrors.DecodeJSON(r, &in); err != nil {
		return models.PeerReview{}, err
	}
	if err := inputval.Struct(in); err != nil {
		return models.PeerReview{}, err
	}
	in.normalize()
	if err := h.requireWorkgroup(ctx, in.Workgroup); err != nil {
		return models.PeerReview{}, err
	}
	if err := h.requireUser(ctx, in.User); err != nil {
		return models.PeerReview{}, err
	}
	return models.PeerReview{
		WorkgroupID: in.Workgroup,
		UserID:      in.User,
		Reviewer:    in.Reviewer,
		Question:    in.Question,
		Answer:      in.Answer,
		ContentID:   in.ContentID,
	}, nil
}

// ServePeerReviews handles GET /api/peer_reviews[?content_id=..].
func (h *Handler) ServePeerReviews(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, err := h.peer.List(ctx, reviewstore.Filter{ContentID: contentFilter(r)})
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list peer reviews failed", err, "A database error occurred.")
		return
	}
	if list == nil {
		list = []models.PeerReview{}
	}
	uierrors.WriteJSON(w, http.StatusOK, list)
}

// ServePeerReview handles GET /api/peer_reviews/{id}.
func (h *Handler) ServePeerReview(w http.ResponseWriter, r *http.Request) {
	id, err := uierrors.URLID(r, "id", "Peer review")
	if err != nil {
		h.ErrLog.Respond(w, r, "load peer review", err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	rv, err := h.peer.GetByID(ctx, id)
	if err != nil {
		h.respondStoreErr(w, r, "load peer review", "Peer review", id, err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, rv)
}

// HandleCreatePeerReview handles POST /api/peer_reviews.
func (h *Handler) HandleCreatePeerReview(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	rv, err := h.decodePeerReview(ctx, r)
	if err != nil {
		h.ErrLog.Respond(w, r, "create peer review", err)
		return
	}
	rv, err = h.peer.Create(ctx, rv)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "create peer review failed", err, "Unable to save review.")
		return
	}
	h.Log.Debug("peer review created", zap.Int64("review_id", rv.ID), zap.Int64("workgroup_id", rv.WorkgroupID), zap.Int64("user_id", rv.UserID))
	uierrors.WriteJSON(w, http.StatusCreated, rv)
}

// HandleUpdatePeerReview handles PUT /api/peer_reviews/{id}.
func (h *Handler) HandleUpdatePeerReview(w http.ResponseWriter, r *http.Request) {
	id, err := uierrors.URLID(r, "id", "Peer review")
	if err != nil {
		h.ErrLog.Respond(w, r, "update peer review", err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	rv, err := h.decodePeerReview(ctx, r)
	if err != nil {
		h.ErrLog.Respond(w, r, "update peer review", err)
		return
	}
	rv, err = h.peer.Update(ctx, id, rv)
	if err != nil {
		h.respondStoreErr(w, r, "update peer review", "Peer review", id, err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, rv)
}

// HandleDeletePeerReview handles DELETE /api/peer_reviews/{id}.
func (h *Handler) HandleDeletePeerReview(w http.ResponseWriter, r *http.Request) {
	id, err := uierrors.URLID(r, "id", "Peer review")
	if err != nil {
		h.ErrLog.Respond(w, r, "delete peer review", err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	n, err := h.peer.Delete(ctx, id)
	if err != nil {
		h.respondStoreErr(w, r, "delete peer review", "Peer review", id, err)
		return
	}
	if n == 0 {
		h.respondStoreErr(w, r, "delete peer review", "Peer review", id, mongo.ErrNoDocuments)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
