// internal/domain/models/enrollment.go
package models

import "time"

// Enrollment records a user's enrollment in a course.
// Only active enrollments count for roster provisioning.
type Enrollment struct {
	ID        int64     `bson:"_id" json:"id"`
	CourseID  string    `bson:"course_id" json:"course_id"`
	UserID    int64     `bson:"user_id" json:"user_id"`
	IsActive  bool      `bson:"is_active" json:"is_active"`
	Mode      string    `bson:"mode,omitempty" json:"mode,omitempty"`
	CreatedAt time.Time `bson:"created_at" json:"created"`
}
