// internal/app/store/memberships/membershipstore.go
package membershipstore

import (
	"context"
	"errors"
	"time"

	seqstore "github.com/dalemusser/groupwork/internal/app/store/sequences"
	"github.com/dalemusser/groupwork/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store manages workgroup_users. The unique (course_id, user_id) index
// guarantees a user belongs to at most one workgroup per course.
type Store struct {
	c   *mongo.Collection
	seq *seqstore.Store
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("workgroup_users"), seq: seqstore.New(db)}
}

// ErrAlreadyAssigned is returned when the user already has a workgroup in the course.
var ErrAlreadyAssigned = errors.New("user is already assigned to a workgroup in this course")

// Add inserts a membership for the user in w.
func (s *Store) Add(ctx context.Context, w models.Workgroup, userID int64) (models.WorkgroupUser, error) {
	id, err := s.seq.Next(ctx, seqstore.WorkgroupUsers)
	if err != nil {
		return models.WorkgroupUser{}, err
	}
	m := models.WorkgroupUser{
		ID:          id,
		WorkgroupID: w.ID,
		ProjectID:   w.ProjectID,
		CourseID:    w.CourseID,
		UserID:      userID,
		CreatedAt:   time.Now().UTC(),
	}
	if _, err := s.c.InsertOne(ctx, m); err != nil {
		if wafflemongo.IsDup(err) {
			return models.WorkgroupUser{}, ErrAlreadyAssigned
		}
		return models.WorkgroupUser{}, err
	}
	return m, nil
}

// InsertMany inserts memberships as given; ids must already be set.
// Any duplicate maps to ErrAlreadyAssigned.
func (s *Store) InsertMany(ctx context.Context, rows []models.WorkgroupUser) error {
	if len(rows) == 0 {
		return nil
	}
	docs := make([]interface{}, 0, len(rows))
	for _, m := range rows {
		docs = append(docs, m)
	}
	_, err := s.c.InsertMany(ctx, docs)
	if err != nil {
		var bulkErr mongo.BulkWriteException
		if errors.As(err, &bulkErr) {
			for _, we := range bulkErr.WriteErrors {
				if we.Code == 11000 {
					return ErrAlreadyAssigned
				}
			}
		}
		if wafflemongo.IsDup(err) {
			return ErrAlreadyAssigned
		}
		return err
	}
	return nil
}

// Get returns the membership of userID in workgroupID.
func (s *Store) Get(ctx context.Context, workgroupID, userID int64) (models.WorkgroupUser, error) {
	var m models.WorkgroupUser
	err := s.c.FindOne(ctx, bson.M{"workgroup_id": workgroupID, "user_id": userID}).Decode(&m)
	if err != nil {
		return models.WorkgroupUser{}, err
	}
	return m, nil
}

// Remove deletes the membership of userID in workgroupID.
// Returns the number of documents deleted (0 or 1).
func (s *Store) Remove(ctx context.Context, workgroupID, userID int64) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"workgroup_id": workgroupID, "user_id": userID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// ExistsInCourse reports whether userID belongs to any workgroup in courseID.
func (s *Store) ExistsInCourse(ctx context.Context, courseID string, userID int64) (bool, error) {
	err := s.c.FindOne(ctx, bson.M{"course_id": courseID, "user_id": userID}).Err()
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListUserIDs returns the member ids of workgroupID, lowest first.
func (s *Store) ListUserIDs(ctx context.Context, workgroupID int64) ([]int64, error) {
	rows, err := s.ListByWorkgroup(ctx, workgroupID)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(rows))
	for _, m := range rows {
		ids = append(ids, m.UserID)
	}
	return ids, nil
}

// ListByWorkgroup returns the memberships of workgroupID ordered by user id.
func (s *Store) ListByWorkgroup(ctx context.Context, workgroupID int64) ([]models.WorkgroupUser, error) {
	return s.find(ctx, bson.M{"workgroup_id": workgroupID})
}

// ListByWorkgroups returns the memberships of the listed workgroups ordered by user id.
func (s *Store) ListByWorkgroups(ctx context.Context, workgroupIDs []int64) ([]models.WorkgroupUser, error) {
	if len(workgroupIDs) == 0 {
		return nil, nil
	}
	return s.find(ctx, bson.M{"workgroup_id": bson.M{"$in": workgroupIDs}})
}

// ListByUsersInCourse returns the memberships the listed users hold in courseID.
func (s *Store) ListByUsersInCourse(ctx context.Context, courseID string, userIDs []int64) ([]models.WorkgroupUser, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	return s.find(ctx, bson.M{"course_id": courseID, "user_id": bson.M{"$in": userIDs}})
}

func (s *Store) find(ctx context.Context, filter bson.M) ([]models.WorkgroupUser, error) {
	cur, err := s.c.Find(ctx, filter, options.Find().SetSort(bson.D{
		{Key: "user_id", Value: 1},
		{Key: "_id", Value: 1},
	}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.WorkgroupUser
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteByWorkgroups removes all memberships of the listed workgroups.
// Returns the number of documents deleted.
func (s *Store) DeleteByWorkgroups(ctx context.Context, workgroupIDs []int64) (int64, error) {
	if len(workgroupIDs) == 0 {
		return 0, nil
	}
	res, err := s.c.DeleteMany(ctx, bson.M{"workgroup_id": bson.M{"$in": workgroupIDs}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteByIDs removes memberships by id.
func (s *Store) DeleteByIDs(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := s.c.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// Reproject updates the denormalized project and course on a workgroup's memberships.
func (s *Store) Reproject(ctx context.Context, workgroupID int64, p models.Project) error {
	_, err := s.c.UpdateMany(ctx, bson.M{"workgroup_id": workgroupID}, bson.M{"$set": bson.M{
		"project_id": p.ID,
		"course_id":  p.CourseID,
	}})
	if err != nil && wafflemongo.IsDup(err) {
		return ErrAlreadyAssigned
	}
	return err
}
