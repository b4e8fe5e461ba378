// internal/app/store/cohorts/cohortstore.go
package cohortstore

import (
	"context"
	"errors"
	"time"

	seqstore "github.com/dalemusser/groupwork/internal/app/store/sequences"
	"github.com/dalemusser/groupwork/internal/app/system/cohortsync"
	"github.com/dalemusser/groupwork/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrDuplicateCohort is returned when a cohort name is taken in the course.
var ErrDuplicateCohort = errors.New("a cohort with this name already exists in the course")

// Store is the Mongo implementation of cohortsync.BulkGateway over the
// platform's course_user_groups, cohort_memberships and
// course_user_group_users collections.
type Store struct {
	cohorts    *mongo.Collection
	members    *mongo.Collection
	groupUsers *mongo.Collection
	seq        *seqstore.Store
}

var _ cohortsync.BulkGateway = (*Store)(nil)

func New(db *mongo.Database) *Store {
	return &Store{
		cohorts:    db.Collection("course_user_groups"),
		members:    db.Collection("cohort_memberships"),
		groupUsers: db.Collection("course_user_group_users"),
		seq:        seqstore.New(db),
	}
}

// Find returns the cohort named name in courseID, or cohortsync.ErrNotFound.
func (s *Store) Find(ctx context.Context, courseID, name string) (models.Cohort, error) {
	var c models.Cohort
	err := s.cohorts.FindOne(ctx, bson.M{
		"course_id":  courseID,
		"name":       name,
		"group_type": models.CohortGroupType,
	}).Decode(&c)
	if err == mongo.ErrNoDocuments {
		return models.Cohort{}, cohortsync.ErrNotFound
	}
	if err != nil {
		return models.Cohort{}, err
	}
	return c, nil
}

// Create inserts a new cohort.
func (s *Store) Create(ctx context.Context, courseID, name, assignmentType string) (models.Cohort, error) {
	id, err := s.seq.Next(ctx, seqstore.Cohorts)
	if err != nil {
		return models.Cohort{}, err
	}
	c := models.Cohort{
		ID:             id,
		CourseID:       courseID,
		Name:           name,
		GroupType:      models.CohortGroupType,
		AssignmentType: assignmentType,
		CreatedAt:      time.Now().UTC(),
	}
	if _, err := s.cohorts.InsertOne(ctx, c); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Cohort{}, ErrDuplicateCohort
		}
		return models.Cohort{}, err
	}
	return c, nil
}

// Restore reinserts c as it was and places members back in it.
func (s *Store) Restore(ctx context.Context, c models.Cohort, members []int64) error {
	if _, err := s.cohorts.InsertOne(ctx, c); err != nil {
		if wafflemongo.IsDup(err) {
			return ErrDuplicateCohort
		}
		return err
	}
	for _, uid := range members {
		if err := s.AddMember(ctx, c, uid); err != nil {
			return err
		}
	}
	return nil
}

// Rename changes the cohort's name.
func (s *Store) Rename(ctx context.Context, c models.Cohort, name string) error {
	_, err := s.cohorts.UpdateByID(ctx, c.ID, bson.M{"$set": bson.M{"name": name}})
	if err != nil && wafflemongo.IsDup(err) {
		return ErrDuplicateCohort
	}
	return err
}

// Delete removes the cohort, its memberships and its user rows.
func (s *Store) Delete(ctx context.Context, c models.Cohort) error {
	return s.DeleteMany(ctx, []models.Cohort{c})
}

// DeleteMany removes the cohorts, their memberships and their user rows.
func (s *Store) DeleteMany(ctx context.Context, cohorts []models.Cohort) error {
	if len(cohorts) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(cohorts))
	for _, c := range cohorts {
		ids = append(ids, c.ID)
	}
	if _, err := s.members.DeleteMany(ctx, bson.M{"cohort_id": bson.M{"$in": ids}}); err != nil {
		return err
	}
	if _, err := s.groupUsers.DeleteMany(ctx, bson.M{"cohort_id": bson.M{"$in": ids}}); err != nil {
		return err
	}
	_, err := s.cohorts.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	return err
}

// AddMember places userID in c. A user belongs to one cohort per course,
// so any previous cohort membership in the course is replaced.
func (s *Store) AddMember(ctx context.Context, c models.Cohort, userID int64) error {
	var prev models.CohortMembership
	err := s.members.FindOne(ctx, bson.M{"course_id": c.CourseID, "user_id": userID}).Decode(&prev)
	switch {
	case err == mongo.ErrNoDocuments:
	case err != nil:
		return err
	case prev.CohortID != c.ID:
		if _, err := s.groupUsers.DeleteOne(ctx, bson.M{"cohort_id": prev.CohortID, "user_id": userID}); err != nil {
			return err
		}
	}

	_, err = s.members.UpdateOne(ctx,
		bson.M{"course_id": c.CourseID, "user_id": userID},
		bson.M{
			"$set":         bson.M{"cohort_id": c.ID},
			"$setOnInsert": bson.M{"created_at": time.Now().UTC()},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return err
	}

	_, err = s.groupUsers.UpdateOne(ctx,
		bson.M{"cohort_id": c.ID, "user_id": userID},
		bson.M{"$setOnInsert": bson.M{"cohort_id": c.ID, "user_id": userID}},
		options.Update().SetUpsert(true),
	)
	return err
}

// RemoveMember drops userID from c. Removing a non-member is a no-op.
func (s *Store) RemoveMember(ctx context.Context, c models.Cohort, userID int64) error {
	if _, err := s.members.DeleteOne(ctx, bson.M{"course_id": c.CourseID, "user_id": userID, "cohort_id": c.ID}); err != nil {
		return err
	}
	_, err := s.groupUsers.DeleteOne(ctx, bson.M{"cohort_id": c.ID, "user_id": userID})
	return err
}

// Members lists the user ids in c, ascending.
func (s *Store) Members(ctx context.Context, c models.Cohort) ([]int64, error) {
	cur, err := s.groupUsers.Find(ctx, bson.M{"cohort_id": c.ID},
		options.Find().SetSort(bson.D{{Key: "user_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var rows []models.CohortGroupUser
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.UserID)
	}
	return ids, nil
}

// FindByNames returns the cohorts in courseID whose names are listed, keyed by name.
func (s *Store) FindByNames(ctx context.Context, courseID string, names []string) (map[string]models.Cohort, error) {
	out := make(map[string]models.Cohort, len(names))
	if len(names) == 0 {
		return out, nil
	}
	cur, err := s.cohorts.Find(ctx, bson.M{
		"course_id":  courseID,
		"name":       bson.M{"$in": names},
		"group_type": models.CohortGroupType,
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var list []models.Cohort
	if err := cur.All(ctx, &list); err != nil {
		return nil, err
	}
	for _, c := range list {
		out[c.Name] = c
	}
	return out, nil
}

// CreateMany inserts one cohort per name, keyed by name in the result.
func (s *Store) CreateMany(ctx context.Context, courseID string, names []string, assignmentType string) (map[string]models.Cohort, error) {
	out := make(map[string]models.Cohort, len(names))
	if len(names) == 0 {
		return out, nil
	}
	ids, err := s.seq.Block(ctx, seqstore.Cohorts, len(names))
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	docs := make([]interface{}, 0, len(names))
	for i, name := range names {
		c := models.Cohort{
			ID:             ids[i],
			CourseID:       courseID,
			Name:           name,
			GroupType:      models.CohortGroupType,
			AssignmentType: assignmentType,
			CreatedAt:      now,
		}
		out[name] = c
		docs = append(docs, c)
	}
	if _, err := s.cohorts.InsertMany(ctx, docs); err != nil {
		if wafflemongo.IsDup(err) {
			return nil, ErrDuplicateCohort
		}
		return nil, err
	}
	return out, nil
}

// ListByCourse returns every cohort in courseID ordered by id.
func (s *Store) ListByCourse(ctx context.Context, courseID string) ([]models.Cohort, error) {
	cur, err := s.cohorts.Find(ctx,
		bson.M{"course_id": courseID, "group_type": models.CohortGroupType},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var list []models.Cohort
	if err := cur.All(ctx, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// CurrentMemberships maps each listed user to their cohort in courseID.
// Users without a cohort are absent from the result.
func (s *Store) CurrentMemberships(ctx context.Context, courseID string, userIDs []int64) (map[int64]models.Cohort, error) {
	out := make(map[int64]models.Cohort, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}

	cur, err := s.members.Find(ctx, bson.M{"course_id": courseID, "user_id": bson.M{"$in": userIDs}})
	if err != nil {
		return nil, err
	}
	var rows []models.CohortMembership
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return out, nil
	}

	cohortIDs := make([]int64, 0, len(rows))
	seen := map[int64]bool{}
	for _, r := range rows {
		if !seen[r.CohortID] {
			seen[r.CohortID] = true
			cohortIDs = append(cohortIDs, r.CohortID)
		}
	}
	cur2, err := s.cohorts.Find(ctx, bson.M{"_id": bson.M{"$in": cohortIDs}})
	if err != nil {
		return nil, err
	}
	var cohorts []models.Cohort
	if err := cur2.All(ctx, &cohorts); err != nil {
		return nil, err
	}
	byID := make(map[int64]models.Cohort, len(cohorts))
	for _, c := range cohorts {
		byID[c.ID] = c
	}

	for _, r := range rows {
		if c, ok := byID[r.CohortID]; ok {
			out[r.UserID] = c
		}
	}
	return out, nil
}

// RemoveMemberships deletes the cohort memberships of userIDs in courseID
// and their user rows on the course's cohorts.
func (s *Store) RemoveMemberships(ctx context.Context, courseID string, userIDs []int64) error {
	if len(userIDs) == 0 {
		return nil
	}
	current, err := s.CurrentMemberships(ctx, courseID, userIDs)
	if err != nil {
		return err
	}
	if len(current) > 0 {
		or := make(bson.A, 0, len(current))
		for uid, c := range current {
			or = append(or, bson.M{"cohort_id": c.ID, "user_id": uid})
		}
		if _, err := s.groupUsers.DeleteMany(ctx, bson.M{"$or": or}); err != nil {
			return err
		}
	}
	_, err = s.members.DeleteMany(ctx, bson.M{"course_id": courseID, "user_id": bson.M{"$in": userIDs}})
	return err
}

// AddMemberships inserts membership and user rows for each pair.
// Callers remove existing memberships of these users first.
func (s *Store) AddMemberships(ctx context.Context, courseID string, assignments map[int64]models.Cohort) error {
	if len(assignments) == 0 {
		return nil
	}
	now := time.Now().UTC()
	memberDocs := make([]interface{}, 0, len(assignments))
	userDocs := make([]interface{}, 0, len(assignments))
	for uid, c := range assignments {
		memberDocs = append(memberDocs, models.CohortMembership{
			CourseID:  courseID,
			UserID:    uid,
			CohortID:  c.ID,
			CreatedAt: now,
		})
		userDocs = append(userDocs, models.CohortGroupUser{CohortID: c.ID, UserID: uid})
	}
	if _, err := s.members.InsertMany(ctx, memberDocs); err != nil {
		return err
	}
	_, err := s.groupUsers.InsertMany(ctx, userDocs)
	return err
}

// MembershipsByCourse returns every cohort membership row in courseID.
func (s *Store) MembershipsByCourse(ctx context.Context, courseID string) ([]models.CohortMembership, error) {
	cur, err := s.members.Find(ctx, bson.M{"course_id": courseID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var rows []models.CohortMembership
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// EnsureGroupUser inserts the user row for (cohortID, userID) if missing.
// Reports whether a row was created.
func (s *Store) EnsureGroupUser(ctx context.Context, cohortID, userID int64) (bool, error) {
	res, err := s.groupUsers.UpdateOne(ctx,
		bson.M{"cohort_id": cohortID, "user_id": userID},
		bson.M{"$setOnInsert": bson.M{"cohort_id": cohortID, "user_id": userID}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return false, err
	}
	return res.UpsertedCount > 0, nil
}
