// internal/app/features/projects/workgroups.go
package projects

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/groupwork/internal/app/features/errors"
	"github.com/dalemusser/groupwork/internal/app/store/queries/workgroupqueries"
	"github.com/dalemusser/groupwork/internal/app/system/inputval"
	"github.com/dalemusser/groupwork/internal/app/system/timeouts"
	"github.com/dalemusser/groupwork/internal/app/workflow/provision"
	"go.uber.org/zap"
)

// ServeWorkgroups handles GET /api/projects/{id}/workgroups. With the
// details flag each workgroup carries its members and submissions.
func (h *Handler) ServeWorkgroups(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	p, err := h.loadProject(ctx, r)
	if err != nil {
		h.ErrLog.Respond(w, r, "list project workgroups", err)
		return
	}

	if _, details := r.URL.Query()["details"]; !details {
		list, err := workgroupqueries.Summaries(ctx, h.DB, p.ID)
		if err != nil {
			h.ErrLog.LogServerError(w, r, "list workgroups failed", err, "A database error occurred.")
			return
		}
		uierrors.WriteJSON(w, http.StatusOK, list)
		return
	}

	list, err := workgroupqueries.Details(ctx, h.DB, p.ID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list workgroup details failed", err, "A database error occurred.")
		return
	}
	for i := range list {
		list[i].Submissions = h.Links.LinkAll(ctx, list[i].Submissions)
	}
	uierrors.WriteJSON(w, http.StatusOK, list)
}

type idInput struct {
	ID int64 `json:"id" validate:"required"`
}

// HandleAttachWorkgroup handles POST /api/projects/{id}/workgroups {"id": n}.
func (h *Handler) HandleAttachWorkgroup(w http.ResponseWriter, r *http.Request) {
	projectID, err := uierrors.URLID(r, "id", "Project")
	if err != nil {
		h.ErrLog.Respond(w, r, "attach workgroup", err)
		return
	}
	var in idInput
	if err := uierrors.DecodeJSON(r, &in); err != nil {
		h.ErrLog.Respond(w, r, "attach workgroup", err)
		return
	}
	if err := inputval.Struct(in); err != nil {
		h.ErrLog.Respond(w, r, "attach workgroup", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if _, err := h.Members.AttachWorkgroup(ctx, projectID, in.ID); err != nil {
		h.ErrLog.Respond(w, r, "attach workgroup failed", err)
		return
	}
	uierrors.WriteJSON(w, http.StatusCreated, struct{}{})
}

type bulkInput struct {
	Groups provision.Roster `json:"groups"`
}


// HandleBulk handles POST /api/projects/{id}/workgroups_bulk, replacing
// the project's workgroups with the posted roster.
func (h *Handler) HandleBulk(w http.ResponseWriter, r *http.Request) {
	projectID, err := uierrors.URLID(r, "id", "Project")
	if err != nil {
		h.ErrLog.Respond(w, r, "provision roster", err)
		return
	}
	var in bulkInput
	if err := uierrors.DecodeJSON(r, &in); err != nil {
		h.ErrLog.Respond(w, r, "provision roster", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Batch())
	defer cancel()

	rep, err := h.Provision.Provision(ctx, projectID, in.Groups)
	if err != nil {
		h.ErrLog.Respond(w, r, "provision roster failed", err)
		return
	}

	h.Log.Debug("roster provisioned via api",
		zap.Int64("project_id", projectID),
		zap.String("run_id", rep.RunID),
		zap.Int("workgroups", len(rep.Workgroups)),
		zap.Int("created", len(rep.Created)),
		zap.Int("deleted", len(rep.Deleted)))
	uierrors.WriteJSON(w, http.StatusCreated, struct{}{})
}
