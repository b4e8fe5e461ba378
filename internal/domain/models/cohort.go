// internal/domain/models/cohort.go
package models

import "time"

// Cohort assignment types, as stored by the platform.
const (
	AssignmentRandom = "random"
	AssignmentManual = "manual"
)

// CohortGroupType is the group_type of course user groups that are cohorts.
const CohortGroupType = "cohort"

// DefaultCohortName is the platform's catch-all cohort, never purged.
const DefaultCohortName = "Default Group"

// Cohort is a platform course user group of type "cohort".
type Cohort struct {
	ID             int64     `bson:"_id" json:"id"`
	CourseID       string    `bson:"course_id" json:"course_id"`
	Name           string    `bson:"name" json:"name"`
	GroupType      string    `bson:"group_type" json:"group_type"`
	AssignmentType string    `bson:"assignment_type" json:"assignment_type"`
	IsDefault      bool      `bson:"is_default,omitempty" json:"is_default,omitempty"`
	CreatedAt      time.Time `bson:"created_at" json:"created"`
}

// CohortMembership records which cohort a user belongs to in a course.
// A user belongs to at most one cohort per course.
type CohortMembership struct {
	CourseID  string    `bson:"course_id" json:"course_id"`
	UserID    int64     `bson:"user_id" json:"user_id"`
	CohortID  int64     `bson:"cohort_id" json:"cohort_id"`
	CreatedAt time.Time `bson:"created_at" json:"created"`
}

// CohortGroupUser is the platform's user row on a course user group.
type CohortGroupUser struct {
	CohortID int64 `bson:"cohort_id" json:"cohort_id"`
	UserID   int64 `bson:"user_id" json:"user_id"`
}
