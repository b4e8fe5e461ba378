// internal/app/features/workgroups/workgroups.go
package workgroups

import (
	"context"
	"errors"
	"net/http"
	"strings"

	uierrors "github.com/dalemusser/groupwork/internal/app/features/errors"
	"github.com/dalemusser/groupwork/internal/app/store/queries/workgroupqueries"
	"github.com/dalemusser/groupwork/internal/app/system/apperr"
	"github.com/dalemusser/groupwork/internal/app/system/inputval"
	"github.com/dalemusser/groupwork/internal/app/system/timeouts"
	"github.com/dalemusser/groupwork/internal/app/workflow/membership"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// ServeList handles GET /api/workgroups.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, err := workgroupqueries.List(ctx, h.DB)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list workgroups failed", err, "A database error occurred.")
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, list)
}

// ServeWorkgroup handles GET /api/workgroups/{id}.
func (h *Handler) ServeWorkgroup(w http.ResponseWriter, r *http.Request) {
	id, err := uierrors.URLID(r, "id", "Workgroup")
	if err != nil {
		h.ErrLog.Respond(w, r, "load workgroup", err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()
	h.writeView(ctx, w, r, http.StatusOK, id)
}

func (h *Handler) writeView(ctx context.Context, w http.ResponseWriter, r *http.Request, status int, id int64) {
	v, err := workgroupqueries.Get(ctx, h.DB, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		h.ErrLog.Respond(w, r, "load workgroup", apperr.NotFound("Workgroup %d does not exist", id))
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load workgroup failed", err, "A database error occurred.")
		return
	}
	uierrors.WriteJSON(w, status, v)
}

type createInput struct {
	Project        int64  `json:"project" validate:"required"`
	Name           string `json:"name" validate:"max=255"`
	AssignmentType string `json:"assignment_type" validate:"assignment_type"`
}

// HandleCreate handles POST /api/workgroups. The workgroup's cohort is
// created with it.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in createInput
	if err := uierrors.DecodeJSON(r, &in); err != nil {
		h.ErrLog.Respond(w, r, "create workgroup", err)
		return
	}
	in.Name = strings.TrimSpace(in.Name)
	if err := inputval.Struct(in); err != nil {
		h.ErrLog.Respond(w, r, "create workgroup", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	wg, err := h.Members.CreateWorkgroup(ctx, in.Project, in.Name, in.AssignmentType)
	if err != nil {
		h.ErrLog.Respond(w, r, "create workgroup failed", err)
		return
	}
	h.Log.Info("workgroup created", zap.Int64("workgroup_id", wg.ID), zap.Int64("project_id", wg.ProjectID))
	h.writeView(ctx, w, r, http.StatusCreated, wg.ID)
}

type updateInput struct {
	Name    *string `json:"name" validate:"omitempty,max=255"`
	Project *int64  `json:"project"`
}

// HandleUpdate handles PUT /api/workgroups/{id}: rename and/or move to
// another project of the same course.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := uierrors.URLID(r, "id", "Workgroup")
	if err != nil {
		h.ErrLog.Respond(w, r, "update workgroup", err)
		return
	}
	var in updateInput
	if err := uierrors.DecodeJSON(r, &in); err != nil {
		h.ErrLog.Respond(w, r, "update workgroup", err)
		return
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		in.Name = &name
	}
	if err := inputval.Struct(in); err != nil {
		h.ErrLog.Respond(w, r, "update workgroup", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	wg, err := h.Members.UpdateWorkgroup(ctx, id, membership.WorkgroupChanges{Name: in.Name, ProjectID: in.Project})
	if err != nil {
		h.ErrLog.Respond(w, r, "update workgroup failed", err)
		return
	}
	h.writeView(ctx, w, r, http.StatusOK, wg.ID)
}

// HandleDelete handles DELETE /api/workgroups/{id}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := uierrors.URLID(r, "id", "Workgroup")
	if err != nil {
		h.ErrLog.Respond(w, r, "delete workgroup", err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	if _, err := h.Cascade.DeleteWorkgroup(ctx, id); err != nil {
		h.ErrLog.Respond(w, r, "delete workgroup failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
