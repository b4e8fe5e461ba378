// internal/app/features/workgroups/grades.go
package workgroups

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/groupwork/internal/app/features/errors"
	"github.com/dalemusser/groupwork/internal/app/system/timeouts"
	"github.com/dalemusser/groupwork/internal/app/workflow/grades"
)

type gradeInput struct {
	CourseID  string  `json:"course_id"`
	ContentID string  `json:"content_id"`
	Grade     float64 `json:"grade"`
	MaxGrade  float64 `json:"max_grade"`
}

type scoreOutput struct {
	UserID   int64   `json:"user"`
	Earned   float64 `json:"grade"`
	Possible float64 `json:"max_grade"`
}

// HandleGrade handles POST /api/workgroups/{id}/grades, publishing the
// grade for every member.
func (h *Handler) HandleGrade(w http.ResponseWriter, r *http.Request) {
	id, err := uierrors.URLID(r, "id", "Workgroup")
	if err != nil {
		h.ErrLog.Respond(w, r, "grade workgroup", err)
		return
	}
	var in gradeInput
	if err := uierrors.DecodeJSON(r, &in); err != nil {
		h.ErrLog.Respond(w, r, "grade workgroup", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	scores, err := h.Grades.Submit(ctx, id, grades.Grade{
		CourseID:  in.CourseID,
		ContentID: in.ContentID,
		Grade:     in.Grade,
		MaxGrade:  in.MaxGrade,
	})
	if err != nil {
		h.ErrLog.Respond(w, r, "grade workgroup failed", err)
		return
	}
	out := make([]scoreOutput, 0, len(scores))
	for _, s := range scores {
		out = append(out, scoreOutput{UserID: s.UserID, Earned: s.Earned, Possible: s.Possible})
	}
	uierrors.WriteJSON(w, http.StatusCreated, out)
}
