// internal/domain/models/organization.go
package models

import "time"

// Organization is a platform organization a project may be scoped to.
// Organizations are owned by the platform; projects only reference them.
type Organization struct {
	ID          int64     `bson:"_id" json:"id"`
	Name        string    `bson:"name" json:"name"`
	NameCI      string    `bson:"name_ci" json:"-"` // ← always stored
	DisplayName string    `bson:"display_name" json:"display_name"`
	CreatedAt   time.Time `bson:"created_at" json:"created"`
	UpdatedAt   time.Time `bson:"updated_at" json:"modified"`
}
