// internal/domain/models/group.go
package models

import "time"

// Group is an auxiliary platform group that can be linked to a workgroup
// (for example a discussion or content group).
type Group struct {
	ID        int64     `bson:"_id" json:"id"`
	Name      string    `bson:"name" json:"name"`
	Type      string    `bson:"type,omitempty" json:"type,omitempty"`
	CreatedAt time.Time `bson:"created_at" json:"created"`
}
