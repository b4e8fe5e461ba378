// internal/app/features/workgroups/users.go
package workgroups

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/groupwork/internal/app/features/errors"
	"github.com/dalemusser/groupwork/internal/app/system/inputval"
	"github.com/dalemusser/groupwork/internal/app/system/timeouts"
	"github.com/dalemusser/groupwork/internal/domain/models"
)

type memberInput struct {
	ID             int64  `json:"id" validate:"required"`
	AssignmentType string `json:"assignment_type"`
}

// ServeUsers handles GET /api/workgroups/{id}/users.
func (h *Handler) ServeUsers(w http.ResponseWriter, r *http.Request) {
	id, err := uierrors.URLID(r, "id", "Workgroup")
	if err != nil {
		h.ErrLog.Respond(w, r, "list workgroup users", err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	users, err := h.Members.Members(ctx, id)
	if err != nil {
		h.ErrLog.Respond(w, r, "list workgroup users failed", err)
		return
	}
	if users == nil {
		users = []models.User{}
	}
	uierrors.WriteJSON(w, http.StatusOK, users)
}

func (h *Handler) decodeMember(w http.ResponseWriter, r *http.Request, op string) (int64, memberInput, bool) {
	id, err := uierrors.URLID(r, "id", "Workgroup")
	if err != nil {
		h.ErrLog.Respond(w, r, op, err)
		return 0, memberInput{}, false
	}
	var in memberInput
	if err := uierrors.DecodeJSON(r, &in); err != nil {
		h.ErrLog.Respond(w, r, op, err)
		return 0, memberInput{}, false
	}
	if err := inputval.Struct(in); err != nil {
		h.ErrLog.Respond(w, r, op, err)
		return 0, memberInput{}, false
	}
	return id, in, true
}

// HandleAddUser handles POST /api/workgroups/{id}/users
// {"id": user, "assignment_type": "random"|"manual"}.
func (h *Handler) HandleAddUser(w http.ResponseWriter, r *http.Request) {
	id, in, ok := h.decodeMember(w, r, "add workgroup user")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if _, err := h.Members.AddMember(ctx, id, in.ID, in.AssignmentType); err != nil {
		h.ErrLog.Respond(w, r, "add workgroup user failed", err)
		return
	}
	uierrors.WriteJSON(w, http.StatusCreated, struct{}{})
}

// HandleRemoveUser handles DELETE /api/workgroups/{id}/users {"id": user}.
func (h *Handler) HandleRemoveUser(w http.ResponseWriter, r *http.Request) {
	id, in, ok := h.decodeMember(w, r, "remove workgroup user")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	if _, err := h.Members.RemoveMember(ctx, id, in.ID); err != nil {
		h.ErrLog.Respond(w, r, "remove workgroup user failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
