// internal/domain/models/review.go
package models

import "time"

// WorkgroupReview is a reviewer's answer to a question about a workgroup.
type WorkgroupReview struct {
	ID          int64     `bson:"_id" json:"id"`
	WorkgroupID int64     `bson:"workgroup_id" json:"workgroup"`
	Reviewer    string    `bson:"reviewer" json:"reviewer"`
	Question    string    `bson:"question" json:"question"`
	Answer      string    `bson:"answer" json:"answer"`
	ContentID   *string   `bson:"content_id,omitempty" json:"content_id"`
	CreatedAt   time.Time `bson:"created_at" json:"created"`
	UpdatedAt   time.Time `bson:"updated_at" json:"modified"`
}

// SubmissionReview is a reviewer's answer to a question about a submission.
type SubmissionReview struct {
	ID           int64     `bson:"_id" json:"id"`
	SubmissionID int64     `bson:"submission_id" json:"submission"`
	Reviewer     string    `bson:"reviewer" json:"reviewer"`
	Question     string    `bson:"question" json:"question"`
	Answer       string    `bson:"answer" json:"answer"`
	ContentID    *string   `bson:"content_id,omitempty" json:"content_id"`
	CreatedAt    time.Time `bson:"created_at" json:"created"`
	UpdatedAt    time.Time `bson:"updated_at" json:"modified"`
}

// PeerReview is a reviewer's answer to a question about one workgroup member.
type PeerReview struct {
	ID          int64     `bson:"_id" json:"id"`
	WorkgroupID int64     `bson:"workgroup_id" json:"workgroup"`
	UserID      int64     `bson:"user_id" json:"user"`
	Reviewer    string    `bson:"reviewer" json:"reviewer"`
	Question    string    `bson:"question" json:"question"`
	Answer      string    `bson:"answer" json:"answer"`
	ContentID   *string   `bson:"content_id,omitempty" json:"content_id"`
	CreatedAt   time.Time `bson:"created_at" json:"created"`
	UpdatedAt   time.Time `bson:"updated_at" json:"modified"`
}
