// internal/domain/models/workgroup.go
package models

import (
	"fmt"
	"time"
)

// Workgroup is a named set of users working together on a project.
// CourseID is copied from the project so memberships can be checked per course.
type Workgroup struct {
	ID        int64     `bson:"_id" json:"id"`
	Name      string    `bson:"name" json:"name"`
	ProjectID int64     `bson:"project_id" json:"project"`
	CourseID  string    `bson:"course_id" json:"course_id"`
	GroupIDs  []int64   `bson:"group_ids,omitempty" json:"-"`
	CreatedAt time.Time `bson:"created_at" json:"created"`
	UpdatedAt time.Time `bson:"updated_at" json:"modified"`
}

// CohortName is the name of the discussion cohort mirroring this workgroup.
func (w Workgroup) CohortName() string {
	return CohortNameFor(w.ProjectID, w.ID, w.Name)
}

// CohortNameFor builds a workgroup cohort name from its parts.
func CohortNameFor(projectID, workgroupID int64, name string) string {
	return fmt.Sprintf("Group Project %d Workgroup %d (%s)", projectID, workgroupID, name)
}

// WorkgroupUser is the membership row joining a user to a workgroup.
// Exactly one document per (course_id, user_id): a user belongs to at most
// one workgroup per course.
type WorkgroupUser struct {
	ID          int64     `bson:"_id" json:"id"`
	WorkgroupID int64     `bson:"workgroup_id" json:"workgroup"`
	ProjectID   int64     `bson:"project_id" json:"project"`
	CourseID    string    `bson:"course_id" json:"course_id"`
	UserID      int64     `bson:"user_id" json:"user"`
	CreatedAt   time.Time `bson:"created_at" json:"created"`
}
