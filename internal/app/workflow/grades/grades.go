// internal/app/workflow/grades/grades.go
package grades

import (
	"context"
	"errors"
	"fmt"
	"strings"

	membershipstore "github.com/dalemusser/groupwork/internal/app/store/memberships"
	workgroupstore "github.com/dalemusser/groupwork/internal/app/store/workgroups"
	"github.com/dalemusser/groupwork/internal/app/system/apperr"
	"github.com/dalemusser/groupwork/internal/app/system/auditlog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Score is one member's published grade for a piece of course content.
type Score struct {
	CourseID    string
	ContentID   string
	UserID      int64
	WorkgroupID int64
	Earned      float64
	Possible    float64
}

// Publisher delivers scores to the gradebook.
type Publisher interface {
	Publish(ctx context.Context, s Score) error
}

// AuditPublisher records scores as audit events.
type AuditPublisher struct {
	Audit *auditlog.Logger
}

func (p AuditPublisher) Publish(ctx context.Context, s Score) error {
	p.Audit.ScorePublished(ctx, s.CourseID, s.ContentID, s.UserID, s.WorkgroupID, s.Earned, s.Possible)
	return nil
}

// Grade is a workgroup grade as submitted.
type Grade struct {
	CourseID  string
	ContentID string
	Grade     float64
	MaxGrade  float64
}

// Grader applies a workgroup grade to each member.
type Grader struct {
	log         *zap.Logger
	pub         Publisher
	workgroups  *workgroupstore.Store
	memberships *membershipstore.Store
}

func New(db *mongo.Database, pub Publisher, log *zap.Logger) *Grader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Grader{
		log:         log,
		pub:         pub,
		workgroups:  workgroupstore.New(db),
		memberships: membershipstore.New(db),
	}
}

// Submit publishes g for every member of workgroupID. A grade above
// MaxGrade raises MaxGrade to match. Returns the published scores.
func (g *Grader) Submit(ctx context.Context, workgroupID int64, in Grade) ([]Score, error) {
	in.CourseID = strings.TrimSpace(in.CourseID)
	in.ContentID = strings.TrimSpace(in.ContentID)
	if in.CourseID == "" {
		return nil, apperr.Validation("course_id field is required.").
			WithField("course_id", []string{"This field is required."})
	}
	if in.ContentID == "" {
		return nil, apperr.Validation("content_id field is required.").
			WithField("content_id", []string{"This field is required."})
	}
	if in.Grade > in.MaxGrade {
		in.MaxGrade = in.Grade
	}

	if _, err := g.workgroups.GetByID(ctx, workgroupID); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("Workgroup %d does not exist", workgroupID)
		}
		return nil, fmt.Errorf("load workgroup: %w", err)
	}
	members, err := g.memberships.ListUserIDs(ctx, workgroupID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}

	scores := make([]Score, 0, len(members))
	for _, uid := range members {
		s := Score{
			CourseID:    in.CourseID,
			ContentID:   in.ContentID,
			UserID:      uid,
			WorkgroupID: workgroupID,
			Earned:      in.Grade,
			Possible:    in.MaxGrade,
		}
		if err := g.pub.Publish(ctx, s); err != nil {
			return scores, apperr.External(err, "publish score for user %d", uid)
		}
		scores = append(scores, s)
	}
	g.log.Info("workgroup graded",
		zap.Int64("workgroup_id", workgroupID),
		zap.String("content_id", in.ContentID),
		zap.Int("members", len(scores)))
	return scores, nil
}
