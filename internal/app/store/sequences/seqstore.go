// internal/app/store/sequences/seqstore.go
package seqstore

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Sequence names, one per collection with integer ids.
const (
	Projects          = "projects"
	Workgroups        = "workgroups"
	WorkgroupUsers    = "workgroup_users"
	Submissions       = "workgroup_submissions"
	WorkgroupReviews  = "workgroup_reviews"
	SubmissionReviews = "workgroup_submission_reviews"
	PeerReviews       = "workgroup_peer_reviews"
	Cohorts           = "course_user_groups"
	Users             = "users"
	Groups            = "groups"
	Organizations     = "organizations"
	Enrollments       = "course_enrollments"
)

var errBadCount = errors.New("sequence block size must be positive")

// Store allocates integer identifiers from the sequences collection.
// Each document is {_id: <name>, value: <last allocated id>}.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("sequences")}
}

// Next allocates one identifier from the named sequence.
func (s *Store) Next(ctx context.Context, name string) (int64, error) {
	return s.NextN(ctx, name, 1)
}

// NextN reserves n consecutive identifiers and returns the first one.
// Identifiers are never reused; ids reserved by a failed write leave gaps.
func (s *Store) NextN(ctx context.Context, name string, n int) (int64, error) {
	if n <= 0 {
		return 0, errBadCount
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var doc struct {
		Value int64 `bson:"value"`
	}
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"value": int64(n)}},
		opts,
	).Decode(&doc)
	if err != nil {
		return 0, err
	}
	return doc.Value - int64(n) + 1, nil
}

// Block allocates n identifiers and returns them in ascending order.
func (s *Store) Block(ctx context.Context, name string, n int) ([]int64, error) {
	if n == 0 {
		return nil, nil
	}
	first, err := s.NextN(ctx, name, n)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, n)
	for i := range ids {
		ids[i] = first + int64(i)
	}
	return ids, nil
}

// Current returns the last allocated identifier (0 if none).
func (s *Store) Current(ctx context.Context, name string) (int64, error) {
	var doc struct {
		Value int64 `bson:"value"`
	}
	err := s.c.FindOne(ctx, bson.M{"_id": name}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return doc.Value, nil
}
