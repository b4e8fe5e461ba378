// internal/app/store/submissions/submissionstore.go
package submissionstore

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
	return &Store{c: db.Collection("workgroup_submissions"), seq: seqstore.New(db)}
}

// Create inserts sub with a new id and fresh timestamps.
func (s *Store) Create(ctx context.Context, sub models.Submission) (models.Submission, error) {
	id, err := s.seq.Next(ctx, seqstore.Submissions)
	if err != nil {
		return models.Submission{}, err
	}
	now := time.Now().UTC()
	sub.ID = id
	sub.CreatedAt = now
	sub.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, sub); err != nil {
		return models.Submission{}, err
	}
	return sub, nil
}

// Restore reinserts previously deleted submissions as they were.
func (s *Store) Restore(ctx context.Context, subs []models.Submission) error {
	if len(subs) == 0 {
		return nil
	}
	docs := make([]interface{}, 0, len(subs))
	for _, sub := range subs {
		docs = append(docs, sub)
	}
	_, err := s.c.InsertMany(ctx, docs)
	return err
}

func (s *Store) GetByID(ctx context.Context, id int64) (models.Submission, error) {
	var sub models.Submission
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&sub); err != nil {
		return models.Submission{}, err
	}
	return sub, nil
}

// List returns every submission ordered by id.
func (s *Store) List(ctx context.Context) ([]models.Submission, error) {
	return s.find(ctx, bson.M{})
}

// ListByWorkgroup returns the workgroup's submissions ordered by id.
func (s *Store) ListByWorkgroup(ctx context.Context, workgroupID int64) ([]models.Submission, error) {
	return s.find(ctx, bson.M{"workgroup_id": workgroupID})
}

// ListByWorkgroups returns the submissions of the listed workgroups ordered by id.
func (s *Store) ListByWorkgroups(ctx context.Context, workgroupIDs []int64) ([]models.Submission, error) {
	if len(workgroupIDs) == 0 {
		return nil, nil
	}
	return s.find(ctx, bson.M{"workgroup_id": bson.M{"$in": workgroupIDs}})
}

// ListByWorkgroupUser returns the submissions userID owns in workgroupID.
func (s *Store) ListByWorkgroupUser(ctx context.Context, workgroupID, userID int64) ([]models.Submission, error) {
	return s.find(ctx, bson.M{"workgroup_id": workgroupID, "user_id": userID})
}

// ListByFilename returns every submission with the given document filename.
func (s *Store) ListByFilename(ctx context.Context, filename string) ([]models.Submission, error) {
	return s.find(ctx, bson.M{"document_filename": filename})
}

func (s *Store) find(ctx context.Context, filter bson.M) ([]models.Submission, error) {
	cur, err := s.c.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Submission
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// WorkgroupIDsWithSubmissions returns the subset of workgroupIDs that have
// at least one submission.
func (s *Store) WorkgroupIDsWithSubmissions(ctx context.Context, workgroupIDs []int64) ([]int64, error) {
	if len(workgroupIDs) == 0 {
		return nil, nil
	}
	cur, err := s.c.Aggregate(ctx, []bson.M{
		{"$match": bson.M{"workgroup_id": bson.M{"$in": workgroupIDs}}},
		{"$group": bson.M{"_id": "$workgroup_id"}},
		{"$sort": bson.M{"_id": 1}},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var ids []int64
	for cur.Next(ctx) {
		var row struct {
			ID int64 `bson:"_id"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		ids = append(ids, row.ID)
	}
	return ids, cur.Err()
}

// Update replaces the document fields of a submission and refreshes UpdatedAt.
func (s *Store) Update(ctx context.Context, id int64, sub models.Submission) (models.Submission, error) {
	set := bson.M{
		"workgroup_id":       sub.WorkgroupID,
		"user_id":            sub.UserID,
		"document_id":        sub.DocumentID,
		"document_url":       sub.DocumentURL,
		"document_mime_type": sub.DocumentMimeType,
		"document_filename":  sub.DocumentFilename,
		"updated_at":         time.Now().UTC(),
	}
	var out models.Submission
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&out)
	if err != nil {
		return models.Submission{}, err
	}
	return out, nil
}

// Reassign transfers ownership of the listed submissions to userID.
func (s *Store) Reassign(ctx context.Context, ids []int64, userID int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := s.c.UpdateMany(ctx, bson.M{"_id": bson.M{"$in": ids}}, bson.M{"$set": bson.M{
		"user_id":    userID,
		"updated_at": time.Now().UTC(),
	}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// Delete removes a submission by ID. Returns the number of documents deleted (0 or 1).
func (s *Store) Delete(ctx context.Context, id int64) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteMany removes the listed submissions.
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
