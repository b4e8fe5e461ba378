// internal/domain/models/user.go
package models

import (
	"strings"
	"time"
)

// User is a platform account (students, staff).
//
// NOTE:
//   - Workgroup membership is not embedded on User.
//     Use the workgroup_users collection to discover a user's workgroups.
//   - EmailCI is the normalized email used for roster matching.
type User struct {
	ID        int64  `bson:"_id" json:"id"`
	Username  string `bson:"username" json:"username"`
	Email     string `bson:"email" json:"email"`
	EmailCI   string `bson:"email_ci" json:"-"`
	FirstName string `bson:"first_name" json:"first_name"`
	LastName  string `bson:"last_name" json:"last_name"`
	IsActive  bool   `bson:"is_active" json:"is_active"`

	// Organizations the user belongs to.
	OrganizationIDs []int64 `bson:"organization_ids,omitempty" json:"-"`

	CreatedAt time.Time `bson:"created_at" json:"created"`
	UpdatedAt time.Time `bson:"updated_at" json:"modified"`
}

// NormalizeEmail is the form emails are stored and compared in.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
