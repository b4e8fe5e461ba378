// internal/app/store/projects/projectstore.go
package projectstore

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

type Store struct {
	c   *mongo.Collection
	seq *seqstore.Store
}

var ErrDuplicateProject = errors.New("a project for this course, content and organization already exists")

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("projects"), seq: seqstore.New(db)}
}

// Create inserts p with a new id and fresh timestamps.
func (s *Store) Create(ctx context.Context, p models.Project) (models.Project, error) {
	id, err := s.seq.Next(ctx, seqstore.Projects)
	if err != nil {
		return models.Project{}, err
	}
	now := time.Now().UTC()
	p.ID = id
	p.CreatedAt = now
	p.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, p); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Project{}, ErrDuplicateProject
		}
		return models.Project{}, err
	}
	return p, nil
}

// Restore reinserts previously deleted projects as they were.
func (s *Store) Restore(ctx context.Context, projects ...models.Project) error {
	if len(projects) == 0 {
		return nil
	}
	docs := make([]interface{}, 0, len(projects))
	for _, p := range projects {
		docs = append(docs, p)
	}
	_, err := s.c.InsertMany(ctx, docs)
	return err
}

func (s *Store) GetByID(ctx context.Context, id int64) (models.Project, error) {
	var p models.Project
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		return models.Project{}, err
	}
	return p, nil
}

// Filter narrows List. Empty fields match everything.
type Filter struct {
	CourseID  string
	ContentID string
}

// List returns projects matching f ordered by id.
func (s *Store) List(ctx context.Context, f Filter) ([]models.Project, error) {
	filter := bson.M{}
	if f.CourseID != "" {
		filter["course_id"] = f.CourseID
	}
	if f.ContentID != "" {
		filter["content_id"] = f.ContentID
	}
	cur, err := s.c.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Project
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Update replaces the mutable fields of project id and refreshes UpdatedAt.
func (s *Store) Update(ctx context.Context, id int64, p models.Project) (models.Project, error) {
	set := bson.M{
		"course_id":       p.CourseID,
		"content_id":      p.ContentID,
		"organization_id": p.OrganizationID,
		"updated_at":      time.Now().UTC(),
	}
	var out models.Project
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&out)
	if err != nil {
		if wafflemongo.IsDup(err) {
			return models.Project{}, ErrDuplicateProject
		}
		return models.Project{}, err
	}
	return out, nil
}

// Delete removes a project by ID. Returns the number of documents deleted (0 or 1).
func (s *Store) Delete(ctx context.Context, id int64) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// ClearOrganization unsets the organization of every project scoped to orgID
// and returns the affected project ids.
func (s *Store) ClearOrganization(ctx context.Context, orgID int64) ([]int64, error) {
	ids, err := s.idsWhere(ctx, bson.M{"organization_id": orgID})
	if err != nil || len(ids) == 0 {
		return ids, err
	}
	_, err = s.c.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": ids}},
		bson.M{"$set": bson.M{"organization_id": nil, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		if wafflemongo.IsDup(err) {
			return nil, ErrDuplicateProject
		}
		return nil, err
	}
	return ids, nil
}

// SetOrganization scopes the listed projects to orgID.
func (s *Store) SetOrganization(ctx context.Context, ids []int64, orgID *int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.c.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": ids}},
		bson.M{"$set": bson.M{"organization_id": orgID}},
	)
	return err
}

func (s *Store) idsWhere(ctx context.Context, filter bson.M) ([]int64, error) {
	cur, err := s.c.Find(ctx, filter, options.Find().
		SetProjection(bson.M{"_id": 1}).
		SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var rows []struct {
		ID int64 `bson:"_id"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	return ids, nil
}
