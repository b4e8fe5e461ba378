// internal/app/workflow/membership/membership.go
//
// Package membership adds and removes workgroup members and keeps each
// workgroup's discussion cohort in step with its member set.
package membership

import (
	"context"
	"errors"
	"fmt"

	membershipstore "github.com/dalemusser/groupwork/internal/app/store/memberships"
	projectstore "github.com/dalemusser/groupwork/internal/app/store/projects"
	userstore "github.com/dalemusser/groupwork/internal/app/store/users"
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

// Manager runs membership changes. Cohort gateway failures abort the
// change; a missing cohort on removal is only logged.
type Manager struct {
	db      *mongo.Database
	log     *zap.Logger
	cohorts cohortsync.Gateway
	cascade *cascade.Engine
	audit   *auditlog.Logger

	// DefaultAssignment applies when a request names no assignment type.
	DefaultAssignment string

	workgroups  *workgroupstore.Store
	memberships *membershipstore.Store
	users       *userstore.Store
	projects    *projectstore.Store
}

// New builds a Manager. audit may be nil.
func New(db *mongo.Database, cohorts cohortsync.Gateway, engine *cascade.Engine, audit *auditlog.Logger, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		db:                db,
		log:               log,
		cohorts:           cohorts,
		cascade:           engine,
		audit:             audit,
		DefaultAssignment: models.AssignmentRandom,
		workgroups:        workgroupstore.New(db),
		memberships:       membershipstore.New(db),
		users:             userstore.New(db),
		projects:          projectstore.New(db),
	}
}

func (m *Manager) assignmentType(s string) (string, error) {
	at, err := cohortsync.ParseAssignmentType(s, m.DefaultAssignment)
	if err != nil {
		return "", apperr.Validation("Invalid assignment type %q: must be random or manual", s).
			WithField("assignment_type", []string{err.Error()})
	}
	return at, nil
}

func (m *Manager) loadWorkgroup(ctx context.Context, id int64) (models.Workgroup, error) {
	w, err := m.workgroups.GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Workgroup{}, apperr.NotFound("Workgroup %d does not exist", id)
	}
	if err != nil {
		return models.Workgroup{}, fmt.Errorf("load workgroup: %w", err)
	}
	return w, nil
}

func alreadyAssigned(userID int64) error {
	return apperr.Conflict("User %d already assigned to a project for this course", userID)
}

// AddMember puts userID in workgroupID. The workgroup's cohort is created
// on first use with assignmentType and filled with every current member,
// lowest user id first.
func (m *Manager) AddMember(ctx context.Context, workgroupID, userID int64, assignmentType string) (models.WorkgroupUser, error) {
	at, err := m.assignmentType(assignmentType)
	if err != nil {
		return models.WorkgroupUser{}, err
	}
	w, err := m.loadWorkgroup(ctx, workgroupID)
	if err != nil {
		return models.WorkgroupUser{}, err
	}
	ok, err := m.users.Exists(ctx, userID)
	if err != nil {
		return models.WorkgroupUser{}, fmt.Errorf("check user: %w", err)
	}
	if !ok {
		return models.WorkgroupUser{}, apperr.Validation("User %d does not exist", userID)
	}
	assigned, err := m.memberships.ExistsInCourse(ctx, w.CourseID, userID)
	if err != nil {
		return models.WorkgroupUser{}, fmt.Errorf("check course membership: %w", err)
	}
	if assigned {
		return models.WorkgroupUser{}, alreadyAssigned(userID)
	}

	var (
		row     models.WorkgroupUser
		created *models.Cohort
	)
	err = txn.RunCompensated(ctx, m.db, m.log, func(ctx context.Context, undo *txn.Undo) error {
		created = nil
		r, err := m.memberships.Add(ctx, w, userID)
		if errors.Is(err, membershipstore.ErrAlreadyAssigned) {
			return alreadyAssigned(userID)
		}
		if err != nil {
			return fmt.Errorf("insert membership: %w", err)
		}
		row = r
		undo.Push("remove membership", func(ctx context.Context) error {
			_, err := m.memberships.Remove(ctx, w.ID, userID)
			return err
		})

		c, err := m.cohorts.Find(ctx, w.CourseID, w.CohortName())
		switch {
		case errors.Is(err, cohortsync.ErrNotFound):
			c, err = m.createCohort(ctx, undo, w, at)
			if err != nil {
				return err
			}
			created = &c
			return nil
		case err != nil:
			return apperr.External(err, "find cohort")
		}
		return m.joinCohort(ctx, undo, c, []int64{userID})
	})
	if err != nil {
		return models.WorkgroupUser{}, err
	}

	if created != nil {
		m.audit.CohortCreated(ctx, *created, w.ID)
	}
	m.audit.MemberAddedToWorkgroup(ctx, w, userID)
	return row, nil
}

// createCohort creates w's cohort and places every current member in it.
func (m *Manager) createCohort(ctx context.Context, undo *txn.Undo, w models.Workgroup, at string) (models.Cohort, error) {
	c, err := m.cohorts.Create(ctx, w.CourseID, w.CohortName(), at)
	if err != nil {
		return models.Cohort{}, apperr.External(err, "create cohort")
	}
	undo.Push("delete cohort", func(ctx context.Context) error {
		return m.cohorts.Delete(ctx, c)
	})

	members, err := m.memberships.ListUserIDs(ctx, w.ID)
	if err != nil {
		return models.Cohort{}, fmt.Errorf("list members: %w", err)
	}
	if err := m.joinCohort(ctx, undo, c, members); err != nil {
		return models.Cohort{}, err
	}
	return c, nil
}

// joinCohort adds userIDs to c in order. Undo puts each user back in the
// cohort they left, or takes them out of c.
func (m *Manager) joinCohort(ctx context.Context, undo *txn.Undo, c models.Cohort, userIDs []int64) error {
	if len(userIDs) == 0 {
		return nil
	}
	prev, err := m.cohorts.CurrentMemberships(ctx, c.CourseID, userIDs)
	if err != nil {
		return apperr.External(err, "read cohort memberships")
	}
	for _, uid := range userIDs {
		if err := m.cohorts.AddMember(ctx, c, uid); err != nil {
			return apperr.External(err, "add user %d to cohort", uid)
		}
		p, had := prev[uid]
		undo.Push("restore cohort membership", func(ctx context.Context) error {
			if had && p.ID != c.ID {
				return m.cohorts.AddMember(ctx, p, uid)
			}
			if !had {
				return m.cohorts.RemoveMember(ctx, c, uid)
			}
			return nil
		})
	}
	return nil
}

// RemoveMember takes userID out of workgroupID and its cohort, then runs
// the submission cascade. Documents of deleted submissions are removed
// after commit.
func (m *Manager) RemoveMember(ctx context.Context, workgroupID, userID int64) (cascade.Result, error) {
	w, err := m.loadWorkgroup(ctx, workgroupID)
	if err != nil {
		return cascade.Result{}, err
	}
	row, err := m.memberships.Get(ctx, w.ID, userID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return cascade.Result{}, apperr.NotFound("User %d is not a member of workgroup %d", userID, w.ID)
	}
	if err != nil {
		return cascade.Result{}, fmt.Errorf("load membership: %w", err)
	}

	var res cascade.Result
	err = txn.RunCompensated(ctx, m.db, m.log, func(ctx context.Context, undo *txn.Undo) error {
		if _, err := m.memberships.Remove(ctx, w.ID, userID); err != nil {
			return fmt.Errorf("delete membership: %w", err)
		}
		undo.Push("restore membership", func(ctx context.Context) error {
			return m.memberships.InsertMany(ctx, []models.WorkgroupUser{row})
		})

		c, err := m.cohorts.Find(ctx, w.CourseID, w.CohortName())
		switch {
		case errors.Is(err, cohortsync.ErrNotFound):
			m.log.Warn("workgroup cohort not found on member removal",
				zap.Int64("workgroup_id", w.ID),
				zap.Int64("user_id", userID),
				zap.String("cohort", w.CohortName()))
		case err != nil:
			return apperr.External(err, "find cohort")
		default:
			if err := m.cohorts.RemoveMember(ctx, c, userID); err != nil {
				return apperr.External(err, "remove user %d from cohort", userID)
			}
			undo.Push("restore cohort membership", func(ctx context.Context) error {
				return m.cohorts.AddMember(ctx, c, userID)
			})
		}

		r, err := m.cascade.AfterMemberRemovedIn(ctx, undo, w, userID)
		res = r
		return err
	})
	if err != nil {
		return cascade.Result{}, err
	}

	m.audit.MemberRemovedFromWorkgroup(ctx, w, userID)
	m.cascade.Finish(ctx, res)
	return res, nil
}

// Members lists the users of workgroupID, lowest id first.
func (m *Manager) Members(ctx context.Context, workgroupID int64) ([]models.User, error) {
	if _, err := m.loadWorkgroup(ctx, workgroupID); err != nil {
		return nil, err
	}
	ids, err := m.memberships.ListUserIDs(ctx, workgroupID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	users, err := m.users.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	return users, nil
}
