// internal/app/workflow/courseevents/courseevents.go
//
// Package courseevents reacts to platform lifecycle events: a deleted
// course takes all of its group-work data with it, and a deleted
// organization is unlinked from its projects.
package courseevents

import (
	"context"
	"errors"
	"fmt"
	"strings"

	membershipstore "github.com/dalemusser/groupwork/internal/app/store/memberships"
	projectstore "github.com/dalemusser/groupwork/internal/app/store/projects"
	reviewstore "github.com/dalemusser/groupwork/internal/app/store/reviews"
	submissionstore "github.com/dalemusser/groupwork/internal/app/store/submissions"
	workgroupstore "github.com/dalemusser/groupwork/internal/app/store/workgroups"
	"github.com/dalemusser/groupwork/internal/app/system/apperr"
	"github.com/dalemusser/groupwork/internal/app/system/auditlog"
	"github.com/dalemusser/groupwork/internal/app/system/cohortsync"
	"github.com/dalemusser/groupwork/internal/app/system/txn"
	"github.com/dalemusser/groupwork/internal/app/workflow/cascade"
	"github.com/dalemusser/groupwork/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Summary counts what a course deletion removed.
type Summary struct {
	Projects          int `json:"projects"`
	Workgroups        int `json:"workgroups"`
	Memberships       int `json:"memberships"`
	Submissions       int `json:"submissions"`
	SubmissionReviews int `json:"submission_reviews"`
	WorkgroupReviews  int `json:"workgroup_reviews"`
	PeerReviews       int `json:"peer_reviews"`
	Cohorts           int `json:"cohorts"`
}

// Processor handles course and organization events.
type Processor struct {
	db      *mongo.Database
	log     *zap.Logger
	cohorts cohortsync.BulkGateway
	cascade *cascade.Engine
	audit   *auditlog.Logger

	projects    *projectstore.Store
	workgroups  *workgroupstore.Store
	memberships *membershipstore.Store
	submissions *submissionstore.Store
	subReviews  *reviewstore.SubmissionStore
	wgReviews   *reviewstore.WorkgroupStore
	peerReviews *reviewstore.PeerStore
}

// New builds a Processor. engine cleans up stored documents after commit.
func New(db *mongo.Database, cohorts cohortsync.BulkGateway, engine *cascade.Engine, audit *auditlog.Logger, log *zap.Logger) *Processor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Processor{
		db:          db,
		log:         log,
		cohorts:     cohorts,
		cascade:     engine,
		audit:       audit,
		projects:    projectstore.New(db),
		workgroups:  workgroupstore.New(db),
		memberships: membershipstore.New(db),
		submissions: submissionstore.New(db),
		subReviews:  reviewstore.NewSubmissionStore(db),
		wgReviews:   reviewstore.NewWorkgroupStore(db),
		peerReviews: reviewstore.NewPeerStore(db),
	}
}

// CourseDeleted removes every project of courseID, deepest first:
// submission reviews, submissions, peer and workgroup reviews,
// memberships, workgroups with their cohorts, then projects. Stored
// documents are deleted after commit. A course with no projects is a no-op.
func (p *Processor) CourseDeleted(ctx context.Context, courseID string) (Summary, error) {
	courseID = strings.TrimSpace(courseID)
	if courseID == "" {
		return Summary{}, apperr.Validation("course_id field is required.")
	}

	projects, err := p.projects.List(ctx, projectstore.Filter{CourseID: courseID})
	if err != nil {
		return Summary{}, fmt.Errorf("list projects: %w", err)
	}
	wgs, err := p.courseWorkgroups(ctx, courseID, projects)
	if err != nil {
		return Summary{}, err
	}
	if len(projects) == 0 && len(wgs) == 0 {
		return Summary{}, nil
	}

	var (
		sum  Summary
		docs []string
		gone []models.Cohort
	)
	err = txn.RunCompensated(ctx, p.db, p.log, func(ctx context.Context, undo *txn.Undo) error {
		sum, docs, gone = Summary{}, nil, nil
		var err error
		docs, err = p.deleteContent(ctx, undo, wgs, &sum)
		if err != nil {
			return err
		}
		gone, err = p.deleteCohorts(ctx, undo, courseID, wgs)
		if err != nil {
			return err
		}
		sum.Cohorts = len(gone)

		for _, pr := range projects {
			if _, err := p.projects.Delete(ctx, pr.ID); err != nil {
				return fmt.Errorf("delete project %d: %w", pr.ID, err)
			}
		}
		undo.Push("restore projects", func(ctx context.Context) error {
			return p.projects.Restore(ctx, projects...)
		})
		sum.Projects = len(projects)
		return nil
	})
	if err != nil {
		return Summary{}, err
	}

	if p.cascade != nil {
		p.cascade.CleanupDocuments(ctx, docs)
	}
	for _, c := range gone {
		p.audit.CohortDeleted(ctx, c)
	}
	p.audit.CourseDeleted(ctx, courseID, sum.Projects, sum.Workgroups)
	p.log.Info("course group work deleted",
		zap.String("course_id", courseID),
		zap.Int("projects", sum.Projects),
		zap.Int("workgroups", sum.Workgroups),
		zap.Int("submissions", sum.Submissions))
	return sum, nil
}

// courseWorkgroups returns the workgroups in the course and those attached
// to the course's projects.
func (p *Processor) courseWorkgroups(ctx context.Context, courseID string, projects []models.Project) ([]models.Workgroup, error) {
	byCourse, err := p.workgroups.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("list workgroups: %w", err)
	}
	ids := make([]int64, 0, len(projects))
	for _, pr := range projects {
		ids = append(ids, pr.ID)
	}
	byProject, err := p.workgroups.ListByProjects(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list workgroups: %w", err)
	}
	seen := map[int64]bool{}
	var out []models.Workgroup
	for _, l := range [][]models.Workgroup{byCourse, byProject} {
		for _, w := range l {
			if !seen[w.ID] {
				seen[w.ID] = true
				out = append(out, w)
			}
		}
	}
	return out, nil
}

func (p *Processor) deleteContent(ctx context.Context, undo *txn.Undo, wgs []models.Workgroup, sum *Summary) ([]string, error) {
	if len(wgs) == 0 {
		return nil, nil
	}
	wgIDs := make([]int64, 0, len(wgs))
	for _, w := range wgs {
		wgIDs = append(wgIDs, w.ID)
	}

	subs, err := p.submissions.ListByWorkgroups(ctx, wgIDs)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	subIDs := make([]int64, 0, len(subs))
	var docs []string
	for _, s := range subs {
		subIDs = append(subIDs, s.ID)
		if s.HasDocument() {
			docs = append(docs, s.DocumentPath())
		}
	}

	subReviews, err := p.subReviews.ListBySubmissions(ctx, subIDs)
	if err != nil {
		return nil, fmt.Errorf("list submission reviews: %w", err)
	}
	if _, err := p.subReviews.DeleteBySubmissions(ctx, subIDs); err != nil {
		return nil, fmt.Errorf("delete submission reviews: %w", err)
	}
	undo.Push("restore submission reviews", func(ctx context.Context) error {
		return p.subReviews.Restore(ctx, subReviews)
	})
	sum.SubmissionReviews = len(subReviews)

	if _, err := p.submissions.DeleteMany(ctx, subIDs); err != nil {
		return nil, fmt.Errorf("delete submissions: %w", err)
	}
	undo.Push("restore submissions", func(ctx context.Context) error {
		return p.submissions.Restore(ctx, subs)
	})
	sum.Submissions = len(subs)

	peers, err := p.peerReviews.ListByWorkgroups(ctx, wgIDs)
	if err != nil {
		return nil, fmt.Errorf("list peer reviews: %w", err)
	}
	if _, err := p.peerReviews.DeleteByWorkgroups(ctx, wgIDs); err != nil {
		return nil, fmt.Errorf("delete peer reviews: %w", err)
	}
	undo.Push("restore peer reviews", func(ctx context.Context) error {
		return p.peerReviews.Restore(ctx, peers)
	})
	sum.PeerReviews = len(peers)

	wgRevs, err := p.wgReviews.ListByWorkgroups(ctx, wgIDs)
	if err != nil {
		return nil, fmt.Errorf("list workgroup reviews: %w", err)
	}
	if _, err := p.wgReviews.DeleteByWorkgroups(ctx, wgIDs); err != nil {
		return nil, fmt.Errorf("delete workgroup reviews: %w", err)
	}
	undo.Push("restore workgroup reviews", func(ctx context.Context) error {
		return p.wgReviews.Restore(ctx, wgRevs)
	})
	sum.WorkgroupReviews = len(wgRevs)

	members, err := p.memberships.ListByWorkgroups(ctx, wgIDs)
	if err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}
	if _, err := p.memberships.DeleteByWorkgroups(ctx, wgIDs); err != nil {
		return nil, fmt.Errorf("delete memberships: %w", err)
	}
	undo.Push("restore memberships", func(ctx context.Context) error {
		return p.memberships.InsertMany(ctx, members)
	})
	sum.Memberships = len(members)

	if _, err := p.workgroups.DeleteMany(ctx, wgIDs); err != nil {
		return nil, fmt.Errorf("delete workgroups: %w", err)
	}
	undo.Push("restore workgroups", func(ctx context.Context) error {
		return p.workgroups.InsertMany(ctx, wgs)
	})
	sum.Workgroups = len(wgs)
	return docs, nil
}

// deleteCohorts removes the cohorts of wgs. Workgroups without a cohort
// are logged and skipped.
func (p *Processor) deleteCohorts(ctx context.Context, undo *txn.Undo, courseID string, wgs []models.Workgroup) ([]models.Cohort, error) {
	if len(wgs) == 0 {
		return nil, nil
	}
	names := make([]string, 0, len(wgs))
	for _, w := range wgs {
		names = append(names, w.CohortName())
	}
	found, err := p.cohorts.FindByNames(ctx, courseID, names)
	if err != nil {
		return nil, apperr.External(err, "find cohorts")
	}
	cohorts := make([]models.Cohort, 0, len(found))
	members := make(map[int64][]int64, len(found))
	for _, n := range names {
		c, ok := found[n]
		if !ok {
			p.log.Warn("workgroup cohort not found on course deletion",
				zap.String("course_id", courseID), zap.String("cohort", n))
			continue
		}
		ms, err := p.cohorts.Members(ctx, c)
		if err != nil {
			return nil, apperr.External(err, "list cohort members")
		}
		cohorts = append(cohorts, c)
		members[c.ID] = ms
	}
	if len(cohorts) == 0 {
		return nil, nil
	}
	if err := p.cohorts.DeleteMany(ctx, cohorts); err != nil {
		return nil, apperr.External(err, "delete cohorts")
	}
	undo.Push("restore cohorts", func(ctx context.Context) error {
		for _, c := range cohorts {
			if err := p.cohorts.Restore(ctx, c, members[c.ID]); err != nil {
				return err
			}
		}
		return nil
	})
	return cohorts, nil
}

// OrganizationDeleted unlinks orgID from its projects and returns their ids.
func (p *Processor) OrganizationDeleted(ctx context.Context, orgID int64) ([]int64, error) {
	if orgID <= 0 {
		return nil, apperr.Validation("organization_id field is required.")
	}
	ids, err := p.projects.ClearOrganization(ctx, orgID)
	if errors.Is(err, projectstore.ErrDuplicateProject) {
		return nil, apperr.Conflict("Unlinking organization %d would duplicate an existing project", orgID)
	}
	if err != nil {
		return nil, fmt.Errorf("clear organization: %w", err)
	}
	p.audit.OrganizationDeleted(ctx, orgID, len(ids))
	return ids, nil
}
