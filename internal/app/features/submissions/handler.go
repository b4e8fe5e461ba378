// internal/app/features/submissions/handler.go
package submissions

import (
	"context"
	"errors"
	"net/http"
	"strings"

	uierrors "github.com/dalemusser/groupwork/internal/app/features/errors"
	submissionstore "github.com/dalemusser/groupwork/internal/app/store/submissions"
	userstore "github.com/dalemusser/groupwork/internal/app/store/users"
	workgroupstore "github.com/dalemusser/groupwork/internal/app/store/workgroups"
	"github.com/dalemusser/groupwork/internal/app/system/apperr"
	"github.com/dalemusser/groupwork/internal/app/system/docstore"
	"github.com/dalemusser/groupwork/internal/app/system/inputval"
	"github.com/dalemusser/groupwork/internal/app/system/timeouts"
	"github.com/dalemusser/groupwork/internal/app/workflow/cascade"
	"github.com/dalemusser/groupwork/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves /api/submissions.
type Handler struct {
	DB      *mongo.Database
	Log     *zap.Logger
	ErrLog  *uierrors.ErrorLogger
	Cascade *cascade.Engine
	Links   docstore.Linker
}

func NewHandler(db *mongo.Database, engine *cascade.Engine, links docstore.Linker, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{DB: db, Log: logger, ErrLog: errLog, Cascade: engine, Links: links}
}

// Routes mounts the submission endpoints (typically under "/api/submissions").
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeList)
	r.Post("/", h.HandleCreate)
	r.Get("/{id}", h.ServeSubmission)
	r.Put("/{id}", h.HandleUpdate)
	r.Delete("/{id}", h.HandleDelete)
	return r
}

type submissionInput struct {
	Workgroup        int64  `json:"workgroup" validate:"required"`
	User             int64  `json:"user" validate:"required"`
	DocumentID       string `json:"document_id" validate:"required,notblank,max=255"`
	DocumentURL      string `json:"document_url" validate:"required,notblank,max=2048"`
	DocumentMimeType string `json:"document_mime_type" validate:"required,notblank,max=255"`
	DocumentFilename string `json:"document_filename" validate:"max=255"`
}

func (in submissionInput) model() models.Submission {
	return models.Submission{
		WorkgroupID:      in.Workgroup,
		UserID:           in.User,
		DocumentID:       strings.TrimSpace(in.DocumentID),
		DocumentURL:      strings.TrimSpace(in.DocumentURL),
		DocumentMimeType: strings.TrimSpace(in.DocumentMimeType),
		DocumentFilename: strings.TrimSpace(in.DocumentFilename),
	}
}

// check validates the body and the workgroup and user it references.
func (h *Handler) check(ctx context.Context, r *http.Request) (submissionInput, error) {
	var in submissionInput
	if err := uierrors.DecodeJSON(r, &in); err != nil {
		return in, err
	}
	if err := inputval.Struct(in); err != nil {
		return in, err
	}
	ok, err := workgroupstore.New(h.DB).Exists(ctx, in.Workgroup)
	if err != nil {
		return in, err
	}
	if !ok {
		return in, apperr.Validation("Workgroup %d does not exist", in.Workgroup).
			WithField("workgroup", []string{"Invalid pk - object does not exist."})
	}
	ok, err = userstore.New(h.DB).Exists(ctx, in.User)
	if err != nil {
		return in, err
	}
	if !ok {
		return in, apperr.Validation("User %d does not exist", in.User).
			WithField("user", []string{"Invalid pk - object does not exist."})
	}
	return in, nil
}

// ServeList handles GET /api/submissions.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, err := submissionstore.New(h.DB).List(ctx)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list submissions failed", err, "A database error occurred.")
		return
	}
	if list == nil {
		list = []models.Submission{}
	}
	uierrors.WriteJSON(w, http.StatusOK, h.Links.LinkAll(ctx, list))
}

// ServeSubmission handles GET /api/submissions/{id}.
func (h *Handler) ServeSubmission(w http.ResponseWriter, r *http.Request) {
	id, err := uierrors.URLID(r, "id", "Submission")
	if err != nil {
		h.ErrLog.Respond(w, r, "load submission", err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	s, err := submissionstore.New(h.DB).GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		h.ErrLog.Respond(w, r, "load submission", apperr.NotFound("Submission %d does not exist", id))
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load submission failed", err, "A database error occurred.")
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, h.Links.Link(ctx, s))
}

// HandleCreate handles POST /api/submissions.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	in, err := h.check(ctx, r)
	if err != nil {
		h.ErrLog.Respond(w, r, "create submission", err)
		return
	}
	s, err := submissionstore.New(h.DB).Create(ctx, in.model())
	if err != nil {
		h.ErrLog.LogServerError(w, r, "create submission failed", err, "Unable to create submission.")
		return
	}
	h.Log.Info("submission created",
		zap.Int64("submission_id", s.ID),
		zap.Int64("workgroup_id", s.WorkgroupID),
		zap.Int64("user_id", s.UserID))
	uierrors.WriteJSON(w, http.StatusCreated, s)
}

// HandleUpdate handles PUT /api/submissions/{id}.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := uierrors.URLID(r, "id", "Submission")
	if err != nil {
		h.ErrLog.Respond(w, r, "update submission", err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	in, err := h.check(ctx, r)
	if err != nil {
		h.ErrLog.Respond(w, r, "update submission", err)
		return
	}
	s, err := submissionstore.New(h.DB).Update(ctx, id, in.model())
	if errors.Is(err, mongo.ErrNoDocuments) {
		h.ErrLog.Respond(w, r, "update submission", apperr.NotFound("Submission %d does not exist", id))
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "update submission failed", err, "Unable to update submission.")
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, s)
}

// HandleDelete handles DELETE /api/submissions/{id}. The submission's
// reviews go with it and its document is removed after commit.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := uierrors.URLID(r, "id", "Submission")
	if err != nil {
		h.ErrLog.Respond(w, r, "delete submission", err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if _, err := h.Cascade.DeleteSubmission(ctx, id); err != nil {
		h.ErrLog.Respond(w, r, "delete submission failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
