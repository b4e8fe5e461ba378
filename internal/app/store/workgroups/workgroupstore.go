// internal/app/store/workgroups/workgroupstore.go
package workgroupstore

import (
	"context"
	"time"

	seqstore "github.com/dalemusser/groupwork/internal/app/store/sequences"
	"github.com/dalemusser/groupwork/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c   *mongo.Collection
	seq *seqstore.Store
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("workgroups"), seq: seqstore.New(db)}
}

// Create inserts w. An id is allocated unless w already carries one.
func (s *Store) Create(ctx context.Context, w models.Workgroup) (models.Workgroup, error) {
	if w.ID == 0 {
		id, err := s.seq.Next(ctx, seqstore.Workgroups)
		if err != nil {
			return models.Workgroup{}, err
		}
		w.ID = id
	}
	now := time.Now().UTC()
	w.CreatedAt = now
	w.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, w); err != nil {
		return models.Workgroup{}, err
	}
	return w, nil
}

// InsertMany inserts workgroups as given. Ids must already be set.
func (s *Store) InsertMany(ctx context.Context, ws []models.Workgroup) error {
	if len(ws) == 0 {
		return nil
	}
	docs := make([]interface{}, 0, len(ws))
	for _, w := range ws {
		docs = append(docs, w)
	}
	_, err := s.c.InsertMany(ctx, docs)
	return err
}

func (s *Store) GetByID(ctx context.Context, id int64) (models.Workgroup, error) {
	var w models.Workgroup
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&w); err != nil {
		return models.Workgroup{}, err
	}
	return w, nil
}

// List returns every workgroup ordered by id.
func (s *Store) List(ctx context.Context) ([]models.Workgroup, error) {
	return s.find(ctx, bson.M{})
}

// ListByProject returns the project's workgroups ordered by id.
func (s *Store) ListByProject(ctx context.Context, projectID int64) ([]models.Workgroup, error) {
	return s.find(ctx, bson.M{"project_id": projectID})
}

// ListByProjects returns the workgroups of the listed projects ordered by id.
func (s *Store) ListByProjects(ctx context.Context, projectIDs []int64) ([]models.Workgroup, error) {
	if len(projectIDs) == 0 {
		return nil, nil
	}
	return s.find(ctx, bson.M{"project_id": bson.M{"$in": projectIDs}})
}

// ListByCourse returns every workgroup in courseID ordered by id.
func (s *Store) ListByCourse(ctx context.Context, courseID string) ([]models.Workgroup, error) {
	return s.find(ctx, bson.M{"course_id": courseID})
}

// GetByIDs loads multiple workgroups ordered by id.
func (s *Store) GetByIDs(ctx context.Context, ids []int64) ([]models.Workgroup, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return s.find(ctx, bson.M{"_id": bson.M{"$in": ids}})
}

func (s *Store) find(ctx context.Context, filter bson.M) ([]models.Workgroup, error) {
	cur, err := s.c.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Workgroup
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Rename sets the workgroup's name and refreshes UpdatedAt.
func (s *Store) Rename(ctx context.Context, id int64, name string) error {
	_, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"name":       name,
		"updated_at": time.Now().UTC(),
	}})
	return err
}

// Move attaches the workgroup to another project.
func (s *Store) Move(ctx context.Context, id int64, p models.Project) error {
	_, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"project_id": p.ID,
		"course_id":  p.CourseID,
		"updated_at": time.Now().UTC(),
	}})
	return err
}

// AddGroup links an auxiliary group. Adding a linked group is a no-op.
func (s *Store) AddGroup(ctx context.Context, id, groupID int64) error {
	_, err := s.c.UpdateByID(ctx, id, bson.M{
		"$addToSet": bson.M{"group_ids": groupID},
		"$set":      bson.M{"updated_at": time.Now().UTC()},
	})
	return err
}

// RemoveGroup unlinks an auxiliary group.
func (s *Store) RemoveGroup(ctx context.Context, id, groupID int64) error {
	_, err := s.c.UpdateByID(ctx, id, bson.M{"$pull": bson.M{"group_ids": groupID}})
	return err
}

// Delete removes a workgroup by ID. Returns the number of documents deleted (0 or 1).
func (s *Store) Delete(ctx context.Context, id int64) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteMany removes the listed workgroups.
func (s *Store) DeleteMany(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := s.c.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// Exists reports whether workgroup id exists.
func (s *Store) Exists(ctx context.Context, id int64) (bool, error) {
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Err()
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
