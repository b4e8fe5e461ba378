// internal/app/store/reviews/reviewstore.go
//
// Package reviewstore persists the three review kinds: workgroup reviews,
// submission reviews and peer reviews. Each lives in its own collection and
// is removed along with its parent workgroup or submission.
package reviewstore

import (
	"context"
	"time"

	seqstore "github.com/dalemusser/groupwork/internal/app/store/sequences"
	"github.com/dalemusser/groupwork/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Filter narrows List calls. Zero values match everything.
type Filter struct {
	WorkgroupID  int64
	SubmissionID int64
	UserID       int64
	// ContentID, when non-nil, restricts to reviews scoped to that content unit.
	ContentID *string
}

func (f Filter) bson() bson.M {
	m := bson.M{}
	if f.WorkgroupID != 0 {
		m["workgroup_id"] = f.WorkgroupID
	}
	if f.SubmissionID != 0 {
		m["submission_id"] = f.SubmissionID
	}
	if f.UserID != 0 {
		m["user_id"] = f.UserID
	}
	if f.ContentID != nil {
		m["content_id"] = *f.ContentID
	}
	return m
}

var byID = options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})

func deleteIn(ctx context.Context, c *mongo.Collection, field string, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := c.DeleteMany(ctx, bson.M{field: bson.M{"$in": ids}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func deleteOne(ctx context.Context, c *mongo.Collection, id int64) (int64, error) {
	res, err := c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func insertAll[T any](ctx context.Context, c *mongo.Collection, rows []T) error {
	if len(rows) == 0 {
		return nil
	}
	docs := make([]interface{}, 0, len(rows))
	for _, r := range rows {
		docs = append(docs, r)
	}
	_, err := c.InsertMany(ctx, docs)
	return err
}

func findAll[T any](ctx context.Context, c *mongo.Collection, filter bson.M) ([]T, error) {
	cur, err := c.Find(ctx, filter, byID)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []T
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func answerSet(reviewer, question, answer string, contentID *string) bson.M {
	return bson.M{
		"reviewer":   reviewer,
		"question":   question,
		"answer":     answer,
		"content_id": contentID,
		"updated_at": time.Now().UTC(),
	}
}

/* ---------- workgroup reviews ---------- */

// WorkgroupStore manages workgroup_reviews.
type WorkgroupStore struct {
	c   *mongo.Collection
	seq *seqstore.Store
}

func NewWorkgroupStore(db *mongo.Database) *WorkgroupStore {
	return &WorkgroupStore{c: db.Collection("workgroup_reviews"), seq: seqstore.New(db)}
}

func (s *WorkgroupStore) Create(ctx context.Context, r models.WorkgroupReview) (models.WorkgroupReview, error) {
	id, err := s.seq.Next(ctx, seqstore.WorkgroupReviews)
	if err != nil {
		return models.WorkgroupReview{}, err
	}
	now := time.Now().UTC()
	r.ID, r.CreatedAt, r.UpdatedAt = id, now, now
	if _, err := s.c.InsertOne(ctx, r); err != nil {
		return models.WorkgroupReview{}, err
	}
	return r, nil
}

func (s *WorkgroupStore) GetByID(ctx context.Context, id int64) (models.WorkgroupReview, error) {
	var r models.WorkgroupReview
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&r); err != nil {
		return models.WorkgroupReview{}, err
	}
	return r, nil
}

func (s *WorkgroupStore) List(ctx context.Context, f Filter) ([]models.WorkgroupReview, error) {
	return findAll[models.WorkgroupReview](ctx, s.c, f.bson())
}

// ListByWorkgroups returns the reviews of the listed workgroups.
func (s *WorkgroupStore) ListByWorkgroups(ctx context.Context, workgroupIDs []int64) ([]models.WorkgroupReview, error) {
	if len(workgroupIDs) == 0 {
		return nil, nil
	}
	return findAll[models.WorkgroupReview](ctx, s.c, bson.M{"workgroup_id": bson.M{"$in": workgroupIDs}})
}

// Update replaces the review fields and the workgroup it belongs to.
func (s *WorkgroupStore) Update(ctx context.Context, id int64, r models.WorkgroupReview) (models.WorkgroupReview, error) {
	set := answerSet(r.Reviewer, r.Question, r.Answer, r.ContentID)
	set["workgroup_id"] = r.WorkgroupID
	var out models.WorkgroupReview
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&out)
	if err != nil {
		return models.WorkgroupReview{}, err
	}
	return out, nil
}

// Delete removes a review by ID. Returns the number of documents deleted (0 or 1).
func (s *WorkgroupStore) Delete(ctx context.Context, id int64) (int64, error) {
	return deleteOne(ctx, s.c, id)
}

func (s *WorkgroupStore) DeleteByWorkgroups(ctx context.Context, workgroupIDs []int64) (int64, error) {
	return deleteIn(ctx, s.c, "workgroup_id", workgroupIDs)
}

// Restore reinserts previously deleted reviews as they were.
func (s *WorkgroupStore) Restore(ctx context.Context, rows []models.WorkgroupReview) error {
	return insertAll(ctx, s.c, rows)
}

/* ---------- submission reviews ---------- */

// SubmissionStore manages workgroup_submission_reviews.
type SubmissionStore struct {
	c   *mongo.Collection
	seq *seqstore.Store
}

func NewSubmissionStore(db *mongo.Database) *SubmissionStore {
	return &SubmissionStore{c: db.Collection("workgroup_submission_reviews"), seq: seqstore.New(db)}
}

func (s *SubmissionStore) Create(ctx context.Context, r models.SubmissionReview) (models.SubmissionReview, error) {
	id, err := s.seq.Next(ctx, seqstore.SubmissionReviews)
	if err != nil {
		return models.SubmissionReview{}, err
	}
	now := time.Now().UTC()
	r.ID, r.CreatedAt, r.UpdatedAt = id, now, now
	if _, err := s.c.InsertOne(ctx, r); err != nil {
		return models.SubmissionReview{}, err
	}
	return r, nil
}

func (s *SubmissionStore) GetByID(ctx context.Context, id int64) (models.SubmissionReview, error) {
	var r models.SubmissionReview
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&r); err != nil {
		return models.SubmissionReview{}, err
	}
	return r, nil
}

func (s *SubmissionStore) List(ctx context.Context, f Filter) ([]models.SubmissionReview, error) {
	return findAll[models.SubmissionReview](ctx, s.c, f.bson())
}

// ListBySubmissions returns the reviews of the listed submissions.
func (s *SubmissionStore) ListBySubmissions(ctx context.Context, submissionIDs []int64) ([]models.SubmissionReview, error) {
	if len(submissionIDs) == 0 {
		return nil, nil
	}
	return findAll[models.SubmissionReview](ctx, s.c, bson.M{"submission_id": bson.M{"$in": submissionIDs}})
}

// Update replaces the review fields and the submission it belongs to.
func (s *SubmissionStore) Update(ctx context.Context, id int64, r models.SubmissionReview) (models.SubmissionReview, error) {
	set := answerSet(r.Reviewer, r.Question, r.Answer, r.ContentID)
	set["submission_id"] = r.SubmissionID
	var out models.SubmissionReview
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&out)
	if err != nil {
		return models.SubmissionReview{}, err
	}
	return out, nil
}

func (s *SubmissionStore) Delete(ctx context.Context, id int64) (int64, error) {
	return deleteOne(ctx, s.c, id)
}

func (s *SubmissionStore) DeleteBySubmissions(ctx context.Context, submissionIDs []int64) (int64, error) {
	return deleteIn(ctx, s.c, "submission_id", submissionIDs)
}

func (s *SubmissionStore) Restore(ctx context.Context, rows []models.SubmissionReview) error {
	return insertAll(ctx, s.c, rows)
}

/* ---------- peer reviews ---------- */

// PeerStore manages workgroup_peer_reviews.
type PeerStore struct {
	c   *mongo.Collection
	seq *seqstore.Store
}

func NewPeerStore(db *mongo.Database) *PeerStore {
	return &PeerStore{c: db.Collection("workgroup_peer_reviews"), seq: seqstore.New(db)}
}

func (s *PeerStore) Create(ctx context.Context, r models.PeerReview) (models.PeerReview, error) {
	id, err := s.seq.Next(ctx, seqstore.PeerReviews)
	if err != nil {
		return models.PeerReview{}, err
	}
	now := time.Now().UTC()
	r.ID, r.CreatedAt, r.UpdatedAt = id, now, now
	if _, err := s.c.InsertOne(ctx, r); err != nil {
		return models.PeerReview{}, err
	}
	return r, nil
}

func (s *PeerStore) GetByID(ctx context.Context, id int64) (models.PeerReview, error) {
	var r models.PeerReview
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&r); err != nil {
		return models.PeerReview{}, err
	}
	return r, nil
}

func (s *PeerStore) List(ctx context.Context, f Filter) ([]models.PeerReview, error) {
	return findAll[models.PeerReview](ctx, s.c, f.bson())
}

func (s *PeerStore) ListByWorkgroups(ctx context.Context, workgroupIDs []int64) ([]models.PeerReview, error) {
	if len(workgroupIDs) == 0 {
		return nil, nil
	}
	return findAll[models.PeerReview](ctx, s.c, bson.M{"workgroup_id": bson.M{"$in": workgroupIDs}})
}

// Update replaces the review fields, the workgroup and the reviewed user.
func (s *PeerStore) Update(ctx context.Context, id int64, r models.PeerReview) (models.PeerReview, error) {
	set := answerSet(r.Reviewer, r.Question, r.Answer, r.ContentID)
	set["workgroup_id"] = r.WorkgroupID
	set["user_id"] = r.UserID
	var out models.PeerReview
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&out)
	if err != nil {
		return models.PeerReview{}, err
	}
	return out, nil
}

func (s *PeerStore) Delete(ctx context.Context, id int64) (int64, error) {
	return deleteOne(ctx, s.c, id)
}

func (s *PeerStore) DeleteByWorkgroups(ctx context.Context, workgroupIDs []int64) (int64, error) {
	return deleteIn(ctx, s.c, "workgroup_id", workgroupIDs)
}

func (s *PeerStore) Restore(ctx context.Context, rows []models.PeerReview) error {
	return insertAll(ctx, s.c, rows)
}
