// internal/app/features/projects/list.go
package projects

import (
	"context"
	"errors"
	"net/http"
	"strings"

	uierrors "github.com/dalemusser/groupwork/internal/app/features/errors"
	projectstore "github.com/dalemusser/groupwork/internal/app/store/projects"
	"github.com/dalemusser/groupwork/internal/app/store/queries/workgroupqueries"
	"github.com/dalemusser/groupwork/internal/app/system/apperr"
	"github.com/dalemusser/groupwork/internal/app/system/timeouts"
	"github.com/dalemusser/groupwork/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
)

// ServeList handles GET /api/projects[?course_id=..&content_id=..].
// The two filters go together.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	courseID := strings.TrimSpace(r.URL.Query().Get("course_id"))
	contentID := strings.TrimSpace(r.URL.Query().Get("content_id"))
	if (courseID == "") != (contentID == "") {
		h.ErrLog.Respond(w, r, "list projects", apperr.Validation("Both course_id and content_id should be present for filtering"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, err := projectstore.New(h.DB).List(ctx, projectstore.Filter{CourseID: courseID, ContentID: contentID})
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list projects failed", err, "A database error occurred.")
		return
	}
	views, err := workgroupqueries.Projects(ctx, h.DB, list)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load project workgroups failed", err, "A database error occurred.")
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, views)
}

// ServeProject handles GET /api/projects/{id}.
func (h *Handler) ServeProject(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	p, err := h.loadProject(ctx, r)
	if err != nil {
		h.ErrLog.Respond(w, r, "load project failed", err)
		return
	}
	h.writeProject(ctx, w, r, http.StatusOK, p)
}

func (h *Handler) loadProject(ctx context.Context, r *http.Request) (models.Project, error) {
	id, err := uierrors.URLID(r, "id", "Project")
	if err != nil {
		return models.Project{}, err
	}
	p, err := projectstore.New(h.DB).GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Project{}, apperr.NotFound("Project %d does not exist", id)
	}
	return p, err
}

func (h *Handler) writeProject(ctx context.Context, w http.ResponseWriter, r *http.Request, status int, p models.Project) {
	views, err := workgroupqueries.Projects(ctx, h.DB, []models.Project{p})
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load project workgroups failed", err, "A database error occurred.")
		return
	}
	uierrors.WriteJSON(w, status, views[0])
}
