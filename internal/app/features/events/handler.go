// internal/app/features/events/handler.go
package events

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/groupwork/internal/app/features/errors"
	"github.com/dalemusser/groupwork/internal/app/system/inputval"
	"github.com/dalemusser/groupwork/internal/app/system/timeouts"
	"github.com/dalemusser/groupwork/internal/app/workflow/courseevents"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler receives platform lifecycle events at /api/events.
type Handler struct {
	Log       *zap.Logger
	ErrLog    *uierrors.ErrorLogger
	Processor *courseevents.Processor
}

func NewHandler(p *courseevents.Processor, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{Log: logger, ErrLog: errLog, Processor: p}
}

// Routes mounts the event endpoints (typically under "/api/events").
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/course_deleted", h.HandleCourseDeleted)
	r.Post("/organization_deleted", h.HandleOrganizationDeleted)
	return r
}

type courseDeletedInput struct {
	CourseID string `json:"course_id"`
}

// HandleCourseDeleted removes every project of the course with all of its
// workgroups, reviews, submissions and cohorts.
func (h *Handler) HandleCourseDeleted(w http.ResponseWriter, r *http.Request) {
	var in courseDeletedInput
	if err := uierrors.DecodeJSON(r, &in); err != nil {
		h.ErrLog.Respond(w, r, "course deleted event", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Batch())
	defer cancel()

	sum, err := h.Processor.CourseDeleted(ctx, in.CourseID)
	if err != nil {
		h.ErrLog.Respond(w, r, "course deleted event failed", err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, sum)
}

type organizationDeletedInput struct {
	OrganizationID int64 `json:"organization_id" validate:"required"`
}

type organizationDeletedResponse struct {
	Projects []int64 `json:"projects"`
}

// HandleOrganizationDeleted clears the organization from its projects.
func (h *Handler) HandleOrganizationDeleted(w http.ResponseWriter, r *http.Request) {
	var in organizationDeletedInput
	if err := uierrors.DecodeJSON(r, &in); err != nil {
		h.ErrLog.Respond(w, r, "organization deleted event", err)
		return
	}
	if err := inputval.Struct(in); err != nil {
		h.ErrLog.Respond(w, r, "organization deleted event", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	ids, err := h.Processor.OrganizationDeleted(ctx, in.OrganizationID)
	if err != nil {
		h.ErrLog.Respond(w, r, "organization deleted event failed", err)
		return
	}
	if ids == nil {
		ids = []int64{}
	}
	uierrors.WriteJSON(w, http.StatusOK, organizationDeletedResponse{Projects: ids})
}
