// internal/app/features/projects/edit.go
package projects

import (
	"context"
	"errors"
	"net/http"
	"strings"

	uierrors "github.com/dalemusser/groupwork/internal/app/features/errors"
	organizationstore "github.com/dalemusser/groupwork/internal/app/store/organizations"
	projectstore "github.com/dalemusser/groupwork/internal/app/store/projects"
	workgroupstore "github.com/dalemusser/groupwork/internal/app/store/workgroups"
	"github.com/dalemusser/groupwork/internal/app/system/apperr"
	"github.com/dalemusser/groupwork/internal/app/system/inputval"
	"github.com/dalemusser/groupwork/internal/app/system/timeouts"
	"github.com/dalemusser/groupwork/internal/app/system/txn"
	"github.com/dalemusser/groupwork/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// projectInput is the body of POST and PUT /api/projects.
type projectInput struct {
	CourseID     string  `json:"course_id" validate:"required,notblank"`
	ContentID    string  `json:"content_id" validate:"required,notblank"`
	Organization *int64  `json:"organization"`
	Workgroups   []int64 `json:"workgroups"`
}

func duplicateProject() error {
	return apperr.Conflict("A project with this course_id, content_id and organization already exists")
}

// check validates the body and returns the workgroups it lists.
func (h *Handler) check(ctx context.Context, in *projectInput) ([]models.Workgroup, error) {
	in.CourseID = strings.TrimSpace(in.CourseID)
	in.ContentID = strings.TrimSpace(in.ContentID)
	if err := inputval.Struct(in); err != nil {
		return nil, err
	}
	if in.Organization != nil {
		ok, err := organizationstore.New(h.DB).Exists(ctx, *in.Organization)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, apperr.Validation("Organization %d does not exist", *in.Organization).
				WithField("organization", []string{"Invalid pk - object does not exist."})
		}
	}
	if len(in.Workgroups) == 0 {
		return nil, nil
	}
	wgs, err := workgroupstore.New(h.DB).GetByIDs(ctx, in.Workgroups)
	if err != nil {
		return nil, err
	}
	found := make(map[int64]models.Workgroup, len(wgs))
	for _, wg := range wgs {
		found[wg.ID] = wg
	}
	for _, id := range in.Workgroups {
		wg, ok := found[id]
		if !ok {
			return nil, apperr.Validation("Workgroup %d does not exist", id)
		}
		if wg.CourseID != in.CourseID {
			return nil, apperr.Validation("Workgroup %d belongs to another course", id)
		}
	}
	return wgs, nil
}

// attach moves the listed workgroups under p, skipping those already there.
// Each move records an undo step returning the workgroup to its old project.
func (h *Handler) attach(ctx context.Context, p models.Project, wgs []models.Workgroup, undo *txn.Undo) error {
	for _, wg := range wgs {
		if wg.ProjectID == p.ID {
			continue
		}
		if _, err := h.Members.AttachWorkgroup(ctx, p.ID, wg.ID); err != nil {
			return err
		}
		from := wg.ProjectID
		id := wg.ID
		undo.Push("return workgroup to its project", func(ctx context.Context) error {
			_, err := h.Members.AttachWorkgroup(ctx, from, id)
			return err
		})
	}
	return nil
}

// HandleCreate handles POST /api/projects.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in projectInput
	if err := uierrors.DecodeJSON(r, &in); err != nil {
		h.ErrLog.Respond(w, r, "create project", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	wgs, err := h.check(ctx, &in)
	if err != nil {
		h.ErrLog.Respond(w, r, "create project", err)
		return
	}

	p, err := projectstore.New(h.DB).Create(ctx, models.Project{
		CourseID:       in.CourseID,
		ContentID:      in.ContentID,
		OrganizationID: in.Organization,
	})
	if errors.Is(err, projectstore.ErrDuplicateProject) {
		h.ErrLog.Respond(w, r, "create project", duplicateProject())
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "create project failed", err, "Unable to create project.")
		return
	}

	// Every attach runs its own transaction, so a failure part way through
	// is undone here: moved workgroups go back, then the project is removed.
	undo := &txn.Undo{}
	undo.Push("delete project", func(ctx context.Context) error {
		_, err := projectstore.New(h.DB).Delete(ctx, p.ID)
		return err
	})
	if err := h.attach(ctx, p, wgs, undo); err != nil {
		undo.Rollback(ctx, h.Log)
		h.ErrLog.Respond(w, r, "attach workgroups to new project", err)
		return
	}
	h.AuditLog.ProjectCreated(ctx, p)
	h.Log.Info("project created", zap.Int64("project_id", p.ID), zap.String("course_id", p.CourseID))
	h.writeProject(ctx, w, r, http.StatusCreated, p)
}

// HandleUpdate handles PUT /api/projects/{id}. A project's course cannot
// change while it has workgroups, since memberships and cohorts are
// scoped to the course.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	cur, err := h.loadProject(ctx, r)
	if err != nil {
		h.ErrLog.Respond(w, r, "update project", err)
		return
	}

	var in projectInput
	if err := uierrors.DecodeJSON(r, &in); err != nil {
		h.ErrLog.Respond(w, r, "update project", err)
		return
	}
	wgs, err := h.check(ctx, &in)
	if err != nil {
		h.ErrLog.Respond(w, r, "update project", err)
		return
	}

	if in.CourseID != cur.CourseID {
		attached, err := workgroupstore.New(h.DB).ListByProject(ctx, cur.ID)
		if err != nil {
			h.ErrLog.LogServerError(w, r, "list project workgroups failed", err, "A database error occurred.")
			return
		}
		if len(attached) > 0 {
			h.ErrLog.Respond(w, r, "update project",
				apperr.Validation("course_id cannot change while the project has workgroups"))
			return
		}
	}

	p, err := projectstore.New(h.DB).Update(ctx, cur.ID, models.Project{
		CourseID:       in.CourseID,
		ContentID:      in.ContentID,
		OrganizationID: in.Organization,
	})
	switch {
	case errors.Is(err, projectstore.ErrDuplicateProject):
		h.ErrLog.Respond(w, r, "update project", duplicateProject())
		return
	case errors.Is(err, mongo.ErrNoDocuments):
		h.ErrLog.Respond(w, r, "update project", apperr.NotFound("Project %d does not exist", cur.ID))
		return
	case err != nil:
		h.ErrLog.LogServerError(w, r, "update project failed", err, "Unable to update project.")
		return
	}
	h.AuditLog.ProjectUpdated(ctx, p)

	undo := &txn.Undo{}
	if err := h.attach(ctx, p, wgs, undo); err != nil {
		undo.Rollback(ctx, h.Log)
		h.ErrLog.Respond(w, r, "attach workgroups to project", err)
		return
	}
	h.writeProject(ctx, w, r, http.StatusOK, p)
}

// HandleDelete handles DELETE /api/projects/{id}, removing the project's
// workgroups and everything under them.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := uierrors.URLID(r, "id", "Project")
	if err != nil {
		h.ErrLog.Respond(w, r, "delete project", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	if _, err := h.Cascade.DeleteProject(ctx, id); err != nil {
		h.ErrLog.Respond(w, r, "delete project failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
