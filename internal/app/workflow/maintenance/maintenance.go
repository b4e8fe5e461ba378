// internal/app/workflow/maintenance/maintenance.go
//
// Package maintenance holds operator tasks that repair cohort data and
// sweep unwanted submissions. They run from groupworkctl.
package maintenance

import (
	"context"
	"fmt"
	"strings"

	cohortstore "github.com/dalemusser/groupwork/internal/app/store/cohorts"
	submissionstore "github.com/dalemusser/groupwork/internal/app/store/submissions"
	workgroupstore "github.com/dalemusser/groupwork/internal/app/store/workgroups"
	"github.com/dalemusser/groupwork/internal/app/system/apperr"
	"github.com/dalemusser/groupwork/internal/app/system/auditlog"
	"github.com/dalemusser/groupwork/internal/app/workflow/cascade"
	"github.com/dalemusser/groupwork/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Actor is recorded on audit events written by maintenance tasks.
const Actor = "groupworkctl"

// Tasks runs maintenance operations against one database.
type Tasks struct {
	log         *zap.Logger
	audit       *auditlog.Logger
	cascade     *cascade.Engine
	cohorts     *cohortstore.Store
	workgroups  *workgroupstore.Store
	submissions *submissionstore.Store
}

func New(db *mongo.Database, engine *cascade.Engine, audit *auditlog.Logger, log *zap.Logger) *Tasks {
	if log == nil {
		log = zap.NewNop()
	}
	return &Tasks{
		log:         log,
		audit:       audit,
		cascade:     engine,
		cohorts:     cohortstore.New(db),
		workgroups:  workgroupstore.New(db),
		submissions: submissionstore.New(db),
	}
}

func checkCourses(courses []string) error {
	if len(courses) == 0 {
		return apperr.Validation("at least one course is required")
	}
	for _, c := range courses {
		if strings.TrimSpace(c) == "" {
			return apperr.Validation("course ids must not be blank")
		}
	}
	return nil
}

// PurgeCohorts deletes cohorts in courses that mirror no existing
// workgroup. The default cohort is kept. Returns the deleted cohorts.
func (t *Tasks) PurgeCohorts(ctx context.Context, courses []string) ([]models.Cohort, error) {
	if err := checkCourses(courses); err != nil {
		return nil, err
	}
	var purged []models.Cohort
	for _, course := range courses {
		wgs, err := t.workgroups.ListByCourse(ctx, course)
		if err != nil {
			return purged, fmt.Errorf("list workgroups in %s: %w", course, err)
		}
		keep := map[string]bool{models.DefaultCohortName: true}
		for _, w := range wgs {
			keep[w.CohortName()] = true
		}

		all, err := t.cohorts.ListByCourse(ctx, course)
		if err != nil {
			return purged, fmt.Errorf("list cohorts in %s: %w", course, err)
		}
		var stale []models.Cohort
		for _, c := range all {
			if !keep[c.Name] && !c.IsDefault {
				stale = append(stale, c)
			}
		}
		if err := t.cohorts.DeleteMany(ctx, stale); err != nil {
			return purged, fmt.Errorf("delete cohorts in %s: %w", course, err)
		}
		for _, c := range stale {
			t.audit.CohortDeleted(ctx, c)
		}
		purged = append(purged, stale...)
		t.log.Info("purged stale cohorts", zap.String("course_id", course), zap.Int("count", len(stale)))
	}
	return purged, nil
}

// FixCohorts recreates missing cohort user rows from cohort memberships
// in courses, skipping the default cohort. Returns how many rows were created.
func (t *Tasks) FixCohorts(ctx context.Context, courses []string) (int, error) {
	if err := checkCourses(courses); err != nil {
		return 0, err
	}
	fixed := 0
	for _, course := range courses {
		all, err := t.cohorts.ListByCourse(ctx, course)
		if err != nil {
			return fixed, fmt.Errorf("list cohorts in %s: %w", course, err)
		}
		eligible := make(map[int64]bool, len(all))
		for _, c := range all {
			if c.Name != models.DefaultCohortName {
				eligible[c.ID] = true
			}
		}

		rows, err := t.cohorts.MembershipsByCourse(ctx, course)
		if err != nil {
			return fixed, fmt.Errorf("list cohort memberships in %s: %w", course, err)
		}
		n := 0
		for _, m := range rows {
			if !eligible[m.CohortID] {
				continue
			}
			created, err := t.cohorts.EnsureGroupUser(ctx, m.CohortID, m.UserID)
			if err != nil {
				return fixed, fmt.Errorf("fix cohort %d user %d: %w", m.CohortID, m.UserID, err)
			}
			if created {
				n++
			}
		}
		fixed += n
		t.log.Info("fixed cohort members", zap.String("course_id", course), zap.Int("count", n))
	}
	return fixed, nil
}

// RemoveUploads deletes every submission whose document is named filename,
// with its reviews and stored document. With dryRun set it only reports
// the matches.
func (t *Tasks) RemoveUploads(ctx context.Context, filename string, dryRun bool) ([]models.Submission, error) {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return nil, apperr.Validation("filename is required")
	}
	subs, err := t.submissions.ListByFilename(ctx, filename)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	if dryRun || len(subs) == 0 {
		return subs, nil
	}
	for i, s := range subs {
		if _, err := t.cascade.DeleteSubmission(ctx, s.ID); err != nil {
			t.audit.UploadsRemoved(ctx, filename, i, Actor)
			return subs[:i], fmt.Errorf("delete submission %d: %w", s.ID, err)
		}
	}
	t.audit.UploadsRemoved(ctx, filename, len(subs), Actor)
	t.log.Info("removed uploads", zap.String("filename", filename), zap.Int("count", len(subs)))
	return subs, nil
}
