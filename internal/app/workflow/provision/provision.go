// internal/app/workflow/provision/provision.go
//
// Package provision replaces a project's workgroups with a roster of named
// groups of e-mail addresses in one set-based pass.
package provision

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	enrollmentstore "github.com/dalemusser/groupwork/internal/app/store/enrollments"
	membershipstore "github.com/dalemusser/groupwork/internal/app/store/memberships"
	projectstore "github.com/dalemusser/groupwork/internal/app/store/projects"
	reviewstore "github.com/dalemusser/groupwork/internal/app/store/reviews"
	seqstore "github.com/dalemusser/groupwork/internal/app/store/sequences"
	submissionstore "github.com/dalemusser/groupwork/internal/app/store/submissions"
	workgroupstore "github.com/dalemusser/groupwork/internal/app/store/workgroups"
	"github.com/dalemusser/groupwork/internal/app/system/apperr"
	"github.com/dalemusser/groupwork/internal/app/system/auditlog"
	"github.com/dalemusser/groupwork/internal/app/system/cohortsync"
	"github.com/dalemusser/groupwork/internal/domain/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Roster maps workgroup names to member e-mail addresses.
type Roster map[string][]string

// Field names of itemized roster errors.
const (
	FieldExistingSubmissions = "existing_submissions"
	FieldNotEnrolled         = "not_enrolled_users"
	FieldEmptyGroups         = "not_existing_groups"
	FieldDuplicateUsers      = "duplicate_users"
	FieldGroups              = "groups"
)

// Reason recorded on workgroup_deleted events for groups dropped from a roster.
const ReasonRosterReplaced = "roster_replaced"

// CohortChange records the cohort a user was placed in.
type CohortChange struct {
	UserID   int64
	Cohort   models.Cohort
	Previous *models.Cohort
}

// Report describes a completed provisioning run.
type Report struct {
	RunID      string
	Project    models.Project
	Workgroups []models.Workgroup
	Created    []models.Workgroup
	Deleted    []models.Workgroup
	Cohorts    []models.Cohort
	Changes    []CohortChange
}

// Provisioner applies rosters.
type Provisioner struct {
	db      *mongo.Database
	log     *zap.Logger
	cohorts cohortsync.BulkGateway
	audit   *auditlog.Logger

	// DefaultAssignment is the assignment type of cohorts it creates.
	DefaultAssignment string

	seq         *seqstore.Store
	projects    *projectstore.Store
	workgroups  *workgroupstore.Store
	memberships *membershipstore.Store
	submissions *submissionstore.Store
	enrollments *enrollmentstore.Store
	wgReviews   *reviewstore.WorkgroupStore
	peerReviews *reviewstore.PeerStore
}

// New builds a Provisioner. audit may be nil.
func New(db *mongo.Database, cohorts cohortsync.BulkGateway, audit *auditlog.Logger, log *zap.Logger) *Provisioner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Provisioner{
		db:                db,
		log:               log,
		cohorts:           cohorts,
		audit:             audit,
		DefaultAssignment: models.AssignmentRandom,
		seq:               seqstore.New(db),
		projects:          projectstore.New(db),
		workgroups:        workgroupstore.New(db),
		memberships:       membershipstore.New(db),
		submissions:       submissionstore.New(db),
		enrollments:       enrollmentstore.New(db),
		wgReviews:         reviewstore.NewWorkgroupStore(db),
		peerReviews:       reviewstore.NewPeerStore(db),
	}
}

// plan is a validated roster resolved to user ids.
type plan struct {
	project  models.Project
	existing []models.Workgroup
	names    []string
	members  map[string][]int64
	userIDs  []int64
}

// Provision validates roster against projectID and, if it is acceptable,
// replaces the project's workgroups with it. Every validation problem is
// reported in a single error.
func (p *Provisioner) Provision(ctx context.Context, projectID int64, roster Roster) (Report, error) {
	pl, err := p.validate(ctx, projectID, roster)
	if err != nil {
		return Report{}, err
	}

	rep := Report{RunID: uuid.NewString(), Project: pl.project}
	if err := p.apply(ctx, pl, &rep); err != nil {
		return Report{}, err
	}

	p.audit.RosterProvisioned(ctx, pl.project, rep.RunID, len(rep.Workgroups), len(pl.userIDs))
	for _, w := range rep.Deleted {
		p.audit.WorkgroupDeleted(ctx, w, ReasonRosterReplaced)
	}
	for _, w := range rep.Created {
		p.audit.WorkgroupCreated(ctx, w)
	}
	wgByCohort := make(map[string]int64, len(rep.Workgroups))
	for _, w := range rep.Workgroups {
		wgByCohort[w.CohortName()] = w.ID
	}
	for _, c := range rep.Cohorts {
		p.audit.CohortCreated(ctx, c, wgByCohort[c.Name])
	}
	for _, ch := range rep.Changes {
		p.audit.CohortUserAddRequested(ctx, ch.UserID, ch.Cohort, ch.Previous, rep.RunID)
	}
	p.log.Info("roster provisioned",
		zap.Int64("project_id", pl.project.ID),
		zap.String("run_id", rep.RunID),
		zap.Int("workgroups", len(rep.Workgroups)),
		zap.Int("users", len(pl.userIDs)))
	return rep, nil
}

func (p *Provisioner) validate(ctx context.Context, projectID int64, roster Roster) (plan, error) {
	project, err := p.projects.GetByID(ctx, projectID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return plan{}, apperr.NotFound("Project %d does not exist", projectID)
	}
	if err != nil {
		return plan{}, fmt.Errorf("load project: %w", err)
	}
	// An empty roster would drop every workgroup of the project.
	if len(roster) == 0 {
		return plan{}, apperr.Validation("A roster must name at least one workgroup").
			WithField(FieldGroups, []string{"This field is required."})
	}
	existing, err := p.workgroups.ListByProject(ctx, projectID)
	if err != nil {
		return plan{}, fmt.Errorf("list workgroups: %w", err)
	}

	fields := map[string][]string{}

	wgIDs := make([]int64, 0, len(existing))
	nameByID := make(map[int64]string, len(existing))
	for _, w := range existing {
		wgIDs = append(wgIDs, w.ID)
		nameByID[w.ID] = w.Name
	}
	withSubs, err := p.submissions.WorkgroupIDsWithSubmissions(ctx, wgIDs)
	if err != nil {
		return plan{}, fmt.Errorf("check submissions: %w", err)
	}
	for _, id := range withSubs {
		fields[FieldExistingSubmissions] = append(fields[FieldExistingSubmissions], nameByID[id])
	}

	names := make([]string, 0, len(roster))
	for name := range roster {
		names = append(names, name)
	}
	sort.Strings(names)

	emailsByGroup := make(map[string][]string, len(roster))
	groupOf := map[string]string{}
	dups := map[string]bool{}
	var allEmails []string
	for _, name := range names {
		seen := map[string]bool{}
		for _, raw := range roster[name] {
			e := models.NormalizeEmail(raw)
			if e == "" || seen[e] {
				continue
			}
			seen[e] = true
			if g, ok := groupOf[e]; ok && g != name {
				dups[e] = true
				continue
			}
			groupOf[e] = name
			emailsByGroup[name] = append(emailsByGroup[name], e)
			allEmails = append(allEmails, e)
		}
		if len(emailsByGroup[name]) == 0 && !hasAny(roster[name], dups) {
			fields[FieldEmptyGroups] = append(fields[FieldEmptyGroups], name)
		}
	}
	for e := range dups {
		fields[FieldDuplicateUsers] = append(fields[FieldDuplicateUsers], e)
	}

	enrolled, err := p.enrollments.ActiveByEmails(ctx, project.CourseID, allEmails)
	if err != nil {
		return plan{}, fmt.Errorf("check enrollments: %w", err)
	}
	for _, e := range allEmails {
		if _, ok := enrolled[e]; !ok {
			fields[FieldNotEnrolled] = append(fields[FieldNotEnrolled], e)
		}
	}

	if len(fields) > 0 {
		var out *apperr.Error
		if _, ok := fields[FieldExistingSubmissions]; ok {
			out = apperr.Conflict("Cannot replace workgroups of project %d: %s", projectID, summarize(fields))
		} else {
			out = apperr.Validation("Invalid roster for project %d: %s", projectID, summarize(fields))
		}
		for k, v := range fields {
			out.WithField(k, v)
		}
		return plan{}, out
	}

	pl := plan{project: project, existing: existing, names: names, members: map[string][]int64{}}
	for _, name := range names {
		ids := make([]int64, 0, len(emailsByGroup[name]))
		for _, e := range emailsByGroup[name] {
			ids = append(ids, enrolled[e])
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		pl.members[name] = ids
		pl.userIDs = append(pl.userIDs, ids...)
	}
	sort.Slice(pl.userIDs, func(i, j int) bool { return pl.userIDs[i] < pl.userIDs[j] })
	return pl, nil
}

// hasAny reports whether any of emails was flagged as a duplicate, so a
// group emptied only by duplicates is not also reported as empty.
func hasAny(emails []string, dups map[string]bool) bool {
	for _, e := range emails {
		if dups[models.NormalizeEmail(e)] {
			return true
		}
	}
	return false
}

func summarize(fields map[string][]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return strings.Join(keys, ", ")
}
