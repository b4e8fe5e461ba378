// Package cohortsync describes the platform cohort service that workgroup
// membership is mirrored into.
//
// Every workgroup owns one cohort named Workgroup.CohortName() in the
// workgroup's course; the cohort's member set equals the workgroup's member
// set. The Mongo implementation lives in store/cohorts.
package cohortsync

import (
	"context"
	"errors"
	"strings"

	"github.com/dalemusser/groupwork/internal/domain/models"
)

// ErrNotFound is returned by Find when no cohort has the name.
var ErrNotFound = errors.New("cohort not found")

// ErrBadAssignmentType is returned for assignment types other than random/manual.
var ErrBadAssignmentType = errors.New(`assignment type must be "random" or "manual"`)

// Gateway is the per-row cohort API used by single-membership workflows.
type Gateway interface {
	Find(ctx context.Context, courseID, name string) (models.Cohort, error)
	Create(ctx context.Context, courseID, name, assignmentType string) (models.Cohort, error)
	Rename(ctx context.Context, c models.Cohort, name string) error
	// Delete removes the cohort with its memberships and user rows.
	Delete(ctx context.Context, c models.Cohort) error
	// Restore reinserts a deleted cohort under its original id with members.
	Restore(ctx context.Context, c models.Cohort, members []int64) error
	// AddMember places userID in c, moving them out of any other cohort in the course.
	AddMember(ctx context.Context, c models.Cohort, userID int64) error
	RemoveMember(ctx context.Context, c models.Cohort, userID int64) error
	// Members lists the cohort's user ids in ascending order.
	Members(ctx context.Context, c models.Cohort) ([]int64, error)
	// CurrentMemberships maps each user to the cohort they belong to in the course.
	CurrentMemberships(ctx context.Context, courseID string, userIDs []int64) (map[int64]models.Cohort, error)
}

// BulkGateway adds the set-based operations roster provisioning and
// course cleanup use. They write rows directly and never trigger per-row
// side effects.
type BulkGateway interface {
	Gateway
	FindByNames(ctx context.Context, courseID string, names []string) (map[string]models.Cohort, error)
	CreateMany(ctx context.Context, courseID string, names []string, assignmentType string) (map[string]models.Cohort, error)
	DeleteMany(ctx context.Context, cohorts []models.Cohort) error
	ListByCourse(ctx context.Context, courseID string) ([]models.Cohort, error)
	// RemoveMemberships drops the course cohort membership and user rows of userIDs.
	RemoveMemberships(ctx context.Context, courseID string, userIDs []int64) error
	// AddMemberships writes membership and user rows for each user -> cohort pair.
	AddMemberships(ctx context.Context, courseID string, assignments map[int64]models.Cohort) error
}

// ParseAssignmentType validates an assignment type; empty selects def.
func ParseAssignmentType(s, def string) (string, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "" {
		v = def
	}
	switch v {
	case models.AssignmentRandom, models.AssignmentManual:
		return v, nil
	}
	return "", ErrBadAssignmentType
}
