// internal/domain/models/project.go
package models

import "time"

// Project binds a course content unit (optionally scoped to an organization)
// to the workgroups working on it.
//
// (course_id, content_id, organization_id) is unique; a null organization
// is stored explicitly and counts as a value.
type Project struct {
	ID             int64     `bson:"_id" json:"id"`
	CourseID       string    `bson:"course_id" json:"course_id"`
	ContentID      string    `bson:"content_id" json:"content_id"`
	OrganizationID *int64    `bson:"organization_id" json:"organization"`
	CreatedAt      time.Time `bson:"created_at" json:"created"`
	UpdatedAt      time.Time `bson:"updated_at" json:"modified"`
}
