// internal/app/workflow/cascade/cascade.go
//
// Package cascade removes workgroup content when members leave and deletes
// workgroups, projects and submissions together with everything that
// depends on them.
//
// The *In methods run inside a caller's transaction and record a
// compensating action for every write. Nothing outside the database is
// touched until Finish runs after commit.
package cascade

import (
	"context"
	"errors"
	"fmt"

	membershipstore "github.com/dalemusser/groupwork/internal/app/store/memberships"
	projectstore "github.com/dalemusser/groupwork/internal/app/store/projects"
	reviewstore "github.com/dalemusser/groupwork/internal/app/store/reviews"
	submissionstore "github.com/dalemusser/groupwork/internal/app/store/submissions"
	workgroupstore "github.com/dalemusser/groupwork/internal/app/store/workgroups"
	"github.com/dalemusser/groupwork/internal/app/system/apperr"
	"github.com/dalemusser/groupwork/internal/app/system/auditlog"
	"github.com/dalemusser/groupwork/internal/app/system/cohortsync"
	"github.com/dalemusser/groupwork/internal/app/system/docstore"
	"github.com/dalemusser/groupwork/internal/app/system/txn"
	"github.com/dalemusser/groupwork/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/storage"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Reasons recorded on workgroup_deleted audit events.
const (
	ReasonDeleted        = "deleted"
	ReasonEmpty          = "last_member_removed"
	ReasonProjectDeleted = "project_deleted"
	ReasonCourseDeleted  = "course_deleted"
)

// Reassignment records a submission handed to another member.
type Reassignment struct {
	Workgroup    models.Workgroup
	SubmissionID int64
	From         int64
	To           int64
}

// Result describes what a cascade changed. Documents lists storage paths
// to delete once the transaction has committed.
type Result struct {
	Reason      string
	Reassigned  []Reassignment
	Submissions []DeletedSubmission
	Workgroups  []models.Workgroup
	Cohorts     []models.Cohort
	Projects    []models.Project
	Documents   []string
}

// DeletedSubmission pairs a deleted submission with its course.
type DeletedSubmission struct {
	CourseID   string
	Submission models.Submission
}

func (r *Result) merge(o Result) {
	r.Reassigned = append(r.Reassigned, o.Reassigned...)
	r.Submissions = append(r.Submissions, o.Submissions...)
	r.Workgroups = append(r.Workgroups, o.Workgroups...)
	r.Cohorts = append(r.Cohorts, o.Cohorts...)
	r.Projects = append(r.Projects, o.Projects...)
	r.Documents = append(r.Documents, o.Documents...)
}

// Engine runs cascades against the workgroup collections and the cohort
// gateway.
type Engine struct {
	db      *mongo.Database
	log     *zap.Logger
	cohorts cohortsync.Gateway
	docs    storage.Store
	audit   *auditlog.Logger

	projects    *projectstore.Store
	workgroups  *workgroupstore.Store
	memberships *membershipstore.Store
	submissions *submissionstore.Store
	subReviews  *reviewstore.SubmissionStore
	wgReviews   *reviewstore.WorkgroupStore
	peerReviews *reviewstore.PeerStore
}

// New builds an Engine. docs and audit may be nil.
func New(db *mongo.Database, cohorts cohortsync.Gateway, docs storage.Store, audit *auditlog.Logger, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		db:          db,
		log:         log,
		cohorts:     cohorts,
		docs:        docs,
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

// AfterMemberRemovedIn handles the submissions of userID once their
// membership row in w is gone. Submissions go to the remaining member with
// the lowest user id; with nobody left they are deleted, and so is the
// workgroup.
func (e *Engine) AfterMemberRemovedIn(ctx context.Context, undo *txn.Undo, w models.Workgroup, userID int64) (Result, error) {
	res := Result{Reason: ReasonEmpty}

	remaining, err := e.memberships.ListUserIDs(ctx, w.ID)
	if err != nil {
		return res, fmt.Errorf("list remaining members: %w", err)
	}
	owned, err := e.submissions.ListByWorkgroupUser(ctx, w.ID, userID)
	if err != nil {
		return res, fmt.Errorf("list submissions: %w", err)
	}

	if len(owned) > 0 {
		if len(remaining) > 0 {
			to := remaining[0]
			ids := submissionIDs(owned)
			if _, err := e.submissions.Reassign(ctx, ids, to); err != nil {
				return res, fmt.Errorf("reassign submissions: %w", err)
			}
			undo.Push("reassign submissions back", func(ctx context.Context) error {
				_, err := e.submissions.Reassign(ctx, ids, userID)
				return err
			})
			for _, s := range owned {
				res.Reassigned = append(res.Reassigned, Reassignment{Workgroup: w, SubmissionID: s.ID, From: userID, To: to})
			}
		} else {
			r, err := e.deleteSubmissions(ctx, undo, w.CourseID, owned)
			if err != nil {
				return res, err
			}
			res.merge(r)
		}
	}

	if len(remaining) == 0 {
		r, err := e.DeleteWorkgroupIn(ctx, undo, w)
		if err != nil {
			return res, err
		}
		res.merge(r)
	}
	return res, nil
}

// deleteSubmissions removes subs and their reviews.
func (e *Engine) deleteSubmissions(ctx context.Context, undo *txn.Undo, courseID string, subs []models.Submission) (Result, error) {
	var res Result
	if len(subs) == 0 {
		return res, nil
	}
	ids := submissionIDs(subs)

	reviews, err := e.subReviews.ListBySubmissions(ctx, ids)
	if err != nil {
		return res, fmt.Errorf("list submission reviews: %w", err)
	}
	if len(reviews) > 0 {
		if _, err := e.subReviews.DeleteBySubmissions(ctx, ids); err != nil {
			return res, fmt.Errorf("delete submission reviews: %w", err)
		}
		undo.Push("restore submission reviews", func(ctx context.Context) error {
			return e.subReviews.Restore(ctx, reviews)
		})
	}

	if _, err := e.submissions.DeleteMany(ctx, ids); err != nil {
		return res, fmt.Errorf("delete submissions: %w", err)
	}
	undo.Push("restore submissions", func(ctx context.Context) error {
		return e.submissions.Restore(ctx, subs)
	})

	for _, s := range subs {
		res.Submissions = append(res.Submissions, DeletedSubmission{CourseID: courseID, Submission: s})
		if s.HasDocument() {
			res.Documents = append(res.Documents, s.DocumentPath())
		}
	}
	return res, nil
}

// DeleteWorkgroupIn deletes w with its memberships, submissions, reviews
// and cohort. A missing cohort is logged and ignored.
func (e *Engine) DeleteWorkgroupIn(ctx context.Context, undo *txn.Undo, w models.Workgroup) (Result, error) {
	var res Result

	subs, err := e.submissions.ListByWorkgroup(ctx, w.ID)
	if err != nil {
		return res, fmt.Errorf("list submissions: %w", err)
	}
	r, err := e.deleteSubmissions(ctx, undo, w.CourseID, subs)
	if err != nil {
		return res, err
	}
	res.merge(r)

	wgIDs := []int64{w.ID}

	peers, err := e.peerReviews.ListByWorkgroups(ctx, wgIDs)
	if err != nil {
		return res, fmt.Errorf("list peer reviews: %w", err)
	}
	if len(peers) > 0 {
		if _, err := e.peerReviews.DeleteByWorkgroups(ctx, wgIDs); err != nil {
			return res, fmt.Errorf("delete peer reviews: %w", err)
		}
		undo.Push("restore peer reviews", func(ctx context.Context) error {
			return e.peerReviews.Restore(ctx, peers)
		})
	}

	wgRevs, err := e.wgReviews.ListByWorkgroups(ctx, wgIDs)
	if err != nil {
		return res, fmt.Errorf("list workgroup reviews: %w", err)
	}
	if len(wgRevs) > 0 {
		if _, err := e.wgReviews.DeleteByWorkgroups(ctx, wgIDs); err != nil {
			return res, fmt.Errorf("delete workgroup reviews: %w", err)
		}
		undo.Push("restore workgroup reviews", func(ctx context.Context) error {
			return e.wgReviews.Restore(ctx, wgRevs)
		})
	}

	members, err := e.memberships.ListByWorkgroup(ctx, w.ID)
	if err != nil {
		return res, fmt.Errorf("list memberships: %w", err)
	}
	if len(members) > 0 {
		if _, err := e.memberships.DeleteByWorkgroups(ctx, wgIDs); err != nil {
			return res, fmt.Errorf("delete memberships: %w", err)
		}
		undo.Push("restore memberships", func(ctx context.Context) error {
			return e.memberships.InsertMany(ctx, members)
		})
	}

	if _, err := e.workgroups.Delete(ctx, w.ID); err != nil {
		return res, fmt.Errorf("delete workgroup: %w", err)
	}
	undo.Push("restore workgroup", func(ctx context.Context) error {
		return e.workgroups.InsertMany(ctx, []models.Workgroup{w})
	})
	res.Workgroups = append(res.Workgroups, w)

	c, deleted, err := e.deleteCohort(ctx, undo, w)
	if err != nil {
		return res, err
	}
	if deleted {
		res.Cohorts = append(res.Cohorts, c)
	}
	return res, nil
}

func (e *Engine) deleteCohort(ctx context.Context, undo *txn.Undo, w models.Workgroup) (models.Cohort, bool, error) {
	name := w.CohortName()
	c, err := e.cohorts.Find(ctx, w.CourseID, name)
	if errors.Is(err, cohortsync.ErrNotFound) {
		e.log.Warn("workgroup cohort not found",
			zap.Int64("workgroup_id", w.ID),
			zap.String("course_id", w.CourseID),
			zap.String("cohort", name))
		return models.Cohort{}, false, nil
	}
	if err != nil {
		return models.Cohort{}, false, apperr.External(err, "find cohort %q", name)
	}

	members, err := e.cohorts.Members(ctx, c)
	if err != nil {
		return models.Cohort{}, false, apperr.External(err, "list cohort members")
	}
	if err := e.cohorts.Delete(ctx, c); err != nil {
		return models.Cohort{}, false, apperr.External(err, "delete cohort %q", name)
	}
	undo.Push("restore cohort", func(ctx context.Context) error {
		return e.cohorts.Restore(ctx, c, members)
	})
	return c, true, nil
}

// DeleteProjectIn deletes every workgroup of p, then p.
func (e *Engine) DeleteProjectIn(ctx context.Context, undo *txn.Undo, p models.Project) (Result, error) {
	var res Result
	wgs, err := e.workgroups.ListByProject(ctx, p.ID)
	if err != nil {
		return res, fmt.Errorf("list workgroups: %w", err)
	}
	for _, w := range wgs {
		r, err := e.DeleteWorkgroupIn(ctx, undo, w)
		if err != nil {
			return res, err
		}
		res.merge(r)
	}
	if _, err := e.projects.Delete(ctx, p.ID); err != nil {
		return res, fmt.Errorf("delete project: %w", err)
	}
	undo.Push("restore project", func(ctx context.Context) error {
		return e.projects.Restore(ctx, p)
	})
	res.Projects = append(res.Projects, p)
	return res, nil
}

// DeleteWorkgroup deletes workgroup id and everything that depends on it.
func (e *Engine) DeleteWorkgroup(ctx context.Context, id int64) (Result, error) {
	w, err := e.workgroups.GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Result{}, apperr.NotFound("Workgroup %d does not exist", id)
	}
	if err != nil {
		return Result{}, fmt.Errorf("load workgroup: %w", err)
	}

	var res Result
	err = txn.RunCompensated(ctx, e.db, e.log, func(ctx context.Context, undo *txn.Undo) error {
		r, err := e.DeleteWorkgroupIn(ctx, undo, w)
		res = r
		return err
	})
	if err != nil {
		return Result{}, err
	}
	res.Reason = ReasonDeleted
	e.Finish(ctx, res)
	return res, nil
}

// DeleteProject deletes project id with all of its workgroups.
func (e *Engine) DeleteProject(ctx context.Context, id int64) (Result, error) {
	p, err := e.projects.GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Result{}, apperr.NotFound("Project %d does not exist", id)
	}
	if err != nil {
		return Result{}, fmt.Errorf("load project: %w", err)
	}

	var res Result
	err = txn.RunCompensated(ctx, e.db, e.log, func(ctx context.Context, undo *txn.Undo) error {
		r, err := e.DeleteProjectIn(ctx, undo, p)
		res = r
		return err
	})
	if err != nil {
		return Result{}, err
	}
	res.Reason = ReasonProjectDeleted
	e.Finish(ctx, res)
	return res, nil
}

// DeleteSubmission deletes submission id and its reviews.
func (e *Engine) DeleteSubmission(ctx context.Context, id int64) (Result, error) {
	s, err := e.submissions.GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Result{}, apperr.NotFound("Submission %d does not exist", id)
	}
	if err != nil {
		return Result{}, fmt.Errorf("load submission: %w", err)
	}
	courseID := ""
	if w, err := e.workgroups.GetByID(ctx, s.WorkgroupID); err == nil {
		courseID = w.CourseID
	}

	var res Result
	err = txn.RunCompensated(ctx, e.db, e.log, func(ctx context.Context, undo *txn.Undo) error {
		r, err := e.deleteSubmissions(ctx, undo, courseID, []models.Submission{s})
		res = r
		return err
	})
	if err != nil {
		return Result{}, err
	}
	e.Finish(ctx, res)
	return res, nil
}

// Finish deletes stored documents and records audit events for a
// committed cascade. Failures are logged only.
func (e *Engine) Finish(ctx context.Context, res Result) {
	e.CleanupDocuments(ctx, res.Documents)

	for _, ra := range res.Reassigned {
		e.audit.SubmissionReassigned(ctx, ra.Workgroup, ra.SubmissionID, ra.From, ra.To)
	}
	for _, ds := range res.Submissions {
		e.audit.SubmissionDeleted(ctx, ds.CourseID, ds.Submission)
	}
	for _, w := range res.Workgroups {
		e.audit.WorkgroupDeleted(ctx, w, res.Reason)
	}
	for _, c := range res.Cohorts {
		e.audit.CohortDeleted(ctx, c)
	}
	if res.Reason == ReasonProjectDeleted {
		for _, p := range res.Projects {
			e.audit.ProjectDeleted(ctx, p, countInProject(res.Workgroups, p.ID))
		}
	}
}

// CleanupDocuments deletes each stored document once, logging failures.
func (e *Engine) CleanupDocuments(ctx context.Context, paths []string) {
	if e.docs == nil {
		return
	}
	seen := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		if err := docstore.Remove(ctx, e.docs, p); err != nil {
			e.log.Warn("document delete failed", zap.String("path", p), zap.Error(err))
		}
	}
}

func submissionIDs(subs []models.Submission) []int64 {
	ids := make([]int64, 0, len(subs))
	for _, s := range subs {
		ids = append(ids, s.ID)
	}
	return ids
}

func countInProject(ws []models.Workgroup, projectID int64) int {
	n := 0
	for _, w := range ws {
		if w.ProjectID == projectID {
			n++
		}
	}
	return n
}
