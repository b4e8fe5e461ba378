// internal/app/features/workgroups/groups.go
package workgroups

import (
	"context"
	"errors"
	"net/http"

	uierrors "github.com/dalemusser/groupwork/internal/app/features/errors"
	groupstore "github.com/dalemusser/groupwork/internal/app/store/groups"
	workgroupstore "github.com/dalemusser/groupwork/internal/app/store/workgroups"
	"github.com/dalemusser/groupwork/internal/app/system/apperr"
	"github.com/dalemusser/groupwork/internal/app/system/inputval"
	"github.com/dalemusser/groupwork/internal/app/system/timeouts"
	"github.com/dalemusser/groupwork/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
)

// loadWorkgroup resolves the {id} URL parameter.
func (h *Handler) loadWorkgroup(ctx context.Context, r *http.Request) (models.Workgroup, error) {
	id, err := uierrors.URLID(r, "id", "Workgroup")
	if err != nil {
		return models.Workgroup{}, err
	}
	wg, err := workgroupstore.New(h.DB).GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Workgroup{}, apperr.NotFound("Workgroup %d does not exist", id)
	}
	return wg, err
}

// ServeGroups handles GET /api/workgroups/{id}/groups.
func (h *Handler) ServeGroups(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	wg, err := h.loadWorkgroup(ctx, r)
	if err != nil {
		h.ErrLog.Respond(w, r, "list workgroup groups", err)
		return
	}
	groups, err := groupstore.New(h.DB).GetByIDs(ctx, wg.GroupIDs)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list workgroup groups failed", err, "A database error occurred.")
		return
	}
	if groups == nil {
		groups = []models.Group{}
	}
	uierrors.WriteJSON(w, http.StatusOK, groups)
}

type groupInput struct {
	ID int64 `json:"id" validate:"required"`
}

// HandleAddGroup handles POST /api/workgroups/{id}/groups {"id": group}.
func (h *Handler) HandleAddGroup(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	wg, err := h.loadWorkgroup(ctx, r)
	if err != nil {
		h.ErrLog.Respond(w, r, "add workgroup group", err)
		return
	}
	var in groupInput
	if err := uierrors.DecodeJSON(r, &in); err != nil {
		h.ErrLog.Respond(w, r, "add workgroup group", err)
		return
	}
	if err := inputval.Struct(in); err != nil {
		h.ErrLog.Respond(w, r, "add workgroup group", err)
		return
	}

	if _, err := groupstore.New(h.DB).GetByID(ctx, in.ID); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			h.ErrLog.Respond(w, r, "add workgroup group", apperr.Validation("Group %d does not exist", in.ID))
			return
		}
		h.ErrLog.LogServerError(w, r, "load group failed", err, "A database error occurred.")
		return
	}
	if err := workgroupstore.New(h.DB).AddGroup(ctx, wg.ID, in.ID); err != nil {
		h.ErrLog.LogServerError(w, r, "add workgroup group failed", err, "Unable to add group.")
		return
	}
	uierrors.WriteJSON(w, http.StatusCreated, struct{}{})
}
