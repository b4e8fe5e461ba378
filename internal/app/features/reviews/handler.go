// internal/app/features/reviews/handler.go
package reviews

import (
	"context"
	"errors"
	"net/http"
	"strings"

	uierrors "github.com/dalemusser/groupwork/internal/app/features/errors"
	reviewstore "github.com/dalemusser/groupwork/internal/app/store/reviews"
	submissionstore "github.com/dalemusser/groupwork/internal/app/store/submissions"
	userstore "github.com/dalemusser/groupwork/internal/app/store/users"
	workgroupstore "github.com/dalemusser/groupwork/internal/app/store/workgroups"
	"github.com/dalemusser/groupwork/internal/app/system/apperr"
	"github.com/dalemusser/groupwork/internal/app/system/htmlsanitize"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the three review collections:
// /api/workgroup_reviews, /api/submission_reviews and /api/peer_reviews.
type Handler struct {
	DB     *mongo.Database
	Log    *zap.Logger
	ErrLog *uierrors.ErrorLogger

	workgroup  *reviewstore.WorkgroupStore
	submission *reviewstore.SubmissionStore
	peer       *reviewstore.PeerStore
}

func NewHandler(db *mongo.Database, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:         db,
		Log:        logger,
		ErrLog:     errLog,
		workgroup:  reviewstore.NewWorkgroupStore(db),
		submission: reviewstore.NewSubmissionStore(db),
		peer:       reviewstore.NewPeerStore(db),
	}
}

// answerInput holds the fields shared by every review kind.
type answerInput struct {
	Reviewer  string  `json:"reviewer" validate:"required,notblank,max=255"`
	Question  string  `json:"question" validate:"required,notblank,max=1024"`
	Answer    string  `json:"answer"`
	ContentID *string `json:"content_id" validate:"omitempty,max=255"`
}

// normalize trims identifiers and sanitizes the answer for storage.
func (a *answerInput) normalize() {
	a.Reviewer = strings.TrimSpace(a.Reviewer)
	a.Question = strings.TrimSpace(a.Question)
	a.Answer = htmlsanitize.Answer(a.Answer)
	if a.ContentID != nil {
		c := strings.TrimSpace(*a.ContentID)
		if c == "" {
			a.ContentID = nil
		} else {
			a.ContentID = &c
		}
	}
}

// contentFilter reads the optional ?content_id filter.
func contentFilter(r *http.Request) *string {
	if v, ok := r.URL.Query()["content_id"]; ok && len(v) > 0 {
		c := v[0]
		return &c
	}
	return nil
}

func missing(field, entity string, id int64) error {
	return apperr.Validation("%s %d does not exist", entity, id).
		WithField(field, []string{"Invalid pk - object does not exist."})
}

func (h *Handler) requireWorkgroup(ctx context.Context, id int64) error {
	ok, err := workgroupstore.New(h.DB).Exists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return missing("workgroup", "Workgroup", id)
	}
	return nil
}

func (h *Handler) requireUser(ctx context.Context, id int64) error {
	ok, err := userstore.New(h.DB).Exists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return missing("user", "User", id)
	}
	return nil
}

func (h *Handler) requireSubmission(ctx context.Context, id int64) error {
	_, err := submissionstore.New(h.DB).GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return missing("submission", "Submission", id)
	}
	return err
}

// respondStoreErr maps a store error on a single review to a response.
func (h *Handler) respondStoreErr(w http.ResponseWriter, r *http.Request, op, entity string, id int64, err error) {
	if errors.Is(err, mongo.ErrNoDocuments) {
		h.ErrLog.Respond(w, r, op, apperr.NotFound("%s %d does not exist", entity, id))
		return
	}
	h.ErrLog.LogServerError(w, r, op+" failed", err, "A database error occurred.")
}
