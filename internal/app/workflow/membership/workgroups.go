// internal/app/workflow/membership/workgroups.go
package membership

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dalemusser/groupwork/internal/app/system/apperr"
	"github.com/dalemusser/groupwork/internal/app/system/cohortsync"
	"github.com/dalemusser/groupwork/internal/app/system/txn"
	"github.com/dalemusser/groupwork/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// CreateWorkgroup creates a workgroup under projectID together with its
// empty cohort.
func (m *Manager) CreateWorkgroup(ctx context.Context, projectID int64, name, assignmentType string) (models.Workgroup, error) {
	at, err := m.assignmentType(assignmentType)
	if err != nil {
		return models.Workgroup{}, err
	}
	p, err := m.projects.GetByID(ctx, projectID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Workgroup{}, apperr.Validation("Project %d does not exist", projectID)
	}
	if err != nil {
		return models.Workgroup{}, fmt.Errorf("load project: %w", err)
	}

	var (
		w models.Workgroup
		c models.Cohort
	)
	err = txn.RunCompensated(ctx, m.db, m.log, func(ctx context.Context, undo *txn.Undo) error {
		created, err := m.workgroups.Create(ctx, models.Workgroup{
			Name:      name,
			ProjectID: p.ID,
			CourseID:  p.CourseID,
		})
		if err != nil {
			return fmt.Errorf("insert workgroup: %w", err)
		}
		w = created
		undo.Push("delete workgroup", func(ctx context.Context) error {
			_, err := m.workgroups.Delete(ctx, w.ID)
			return err
		})

		c, err = m.cohorts.Create(ctx, w.CourseID, w.CohortName(), at)
		if err != nil {
			return apperr.External(err, "create cohort")
		}
		undo.Push("delete cohort", func(ctx context.Context) error {
			return m.cohorts.Delete(ctx, c)
		})
		return nil
	})
	if err != nil {
		return models.Workgroup{}, err
	}

	m.audit.WorkgroupCreated(ctx, w)
	m.audit.CohortCreated(ctx, c, w.ID)
	return w, nil
}

// WorkgroupChanges lists the fields an update sets. Nil fields are kept.
type WorkgroupChanges struct {
	Name      *string
	ProjectID *int64
}

// UpdateWorkgroup renames and/or moves a workgroup. Its cohort is renamed
// in the same transaction so it stays findable by name. Moving to a
// project of another course is rejected.
func (m *Manager) UpdateWorkgroup(ctx context.Context, id int64, ch WorkgroupChanges) (models.Workgroup, error) {
	w, err := m.loadWorkgroup(ctx, id)
	if err != nil {
		return models.Workgroup{}, err
	}
	return m.update(ctx, w, ch)
}

// AttachWorkgroup moves workgroupID under projectID.
func (m *Manager) AttachWorkgroup(ctx context.Context, projectID, workgroupID int64) (models.Workgroup, error) {
	if _, err := m.projects.GetByID(ctx, projectID); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Workgroup{}, apperr.NotFound("Project %d does not exist", projectID)
		}
		return models.Workgroup{}, fmt.Errorf("load project: %w", err)
	}
	w, err := m.workgroups.GetByID(ctx, workgroupID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Workgroup{}, apperr.Validation("Workgroup %d does not exist", workgroupID)
	}
	if err != nil {
		return models.Workgroup{}, fmt.Errorf("load workgroup: %w", err)
	}
	return m.update(ctx, w, WorkgroupChanges{ProjectID: &projectID})
}

func (m *Manager) update(ctx context.Context, w models.Workgroup, ch WorkgroupChanges) (models.Workgroup, error) {
	next := w
	var changed []string
	if ch.Name != nil && *ch.Name != w.Name {
		next.Name = *ch.Name
		changed = append(changed, "name")
	}

	var oldProject, newProject models.Project
	if ch.ProjectID != nil && *ch.ProjectID != w.ProjectID {
		p, err := m.projects.GetByID(ctx, *ch.ProjectID)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Workgroup{}, apperr.Validation("Project %d does not exist", *ch.ProjectID)
		}
		if err != nil {
			return models.Workgroup{}, fmt.Errorf("load project: %w", err)
		}
		if p.CourseID != w.CourseID {
			return models.Workgroup{}, apperr.Validation("Project %d belongs to a different course than workgroup %d", p.ID, w.ID)
		}
		newProject = p
		oldProject = models.Project{ID: w.ProjectID, CourseID: w.CourseID}
		next.ProjectID = p.ID
		changed = append(changed, "project")
	}
	if len(changed) == 0 {
		return w, nil
	}

	err := txn.RunCompensated(ctx, m.db, m.log, func(ctx context.Context, undo *txn.Undo) error {
		if next.Name != w.Name {
			if err := m.workgroups.Rename(ctx, w.ID, next.Name); err != nil {
				return fmt.Errorf("rename workgroup: %w", err)
			}
			undo.Push("restore workgroup name", func(ctx context.Context) error {
				return m.workgroups.Rename(ctx, w.ID, w.Name)
			})
		}
		if next.ProjectID != w.ProjectID {
			if err := m.workgroups.Move(ctx, w.ID, newProject); err != nil {
				return fmt.Errorf("move workgroup: %w", err)
			}
			undo.Push("restore workgroup project", func(ctx context.Context) error {
				return m.workgroups.Move(ctx, w.ID, oldProject)
			})
			if err := m.memberships.Reproject(ctx, w.ID, newProject); err != nil {
				return fmt.Errorf("move memberships: %w", err)
			}
			undo.Push("restore membership project", func(ctx context.Context) error {
				return m.memberships.Reproject(ctx, w.ID, oldProject)
			})
		}

		c, err := m.cohorts.Find(ctx, w.CourseID, w.CohortName())
		switch {
		case errors.Is(err, cohortsync.ErrNotFound):
			m.log.Warn("workgroup cohort not found on update",
				zap.Int64("workgroup_id", w.ID),
				zap.String("cohort", w.CohortName()))
			return nil
		case err != nil:
			return apperr.External(err, "find cohort")
		}
		if err := m.cohorts.Rename(ctx, c, next.CohortName()); err != nil {
			return apperr.External(err, "rename cohort")
		}
		undo.Push("restore cohort name", func(ctx context.Context) error {
			return m.cohorts.Rename(ctx, c, c.Name)
		})
		return nil
	})
	if err != nil {
		return models.Workgroup{}, err
	}

	updated, err := m.workgroups.GetByID(ctx, w.ID)
	if err != nil {
		return models.Workgroup{}, fmt.Errorf("reload workgroup: %w", err)
	}
	m.audit.WorkgroupUpdated(ctx, updated, strings.Join(changed, ","))
	return updated, nil
}
