// internal/app/store/enrollments/enrollmentstore.go
package enrollmentstore

import (
	"context"

	"github.com/dalemusser/groupwork/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Store answers enrollment questions against the platform's course_enrollments.
type Store struct {
	users *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{
		users: db.Collection("users"),
	}
}

// ActiveByEmails maps each email with an active enrollment in courseID to
// its user id. Emails are matched case-insensitively and returned normalized;
// emails without an active enrollment are absent from the result.
func (s *Store) ActiveByEmails(ctx context.Context, courseID string, emails []string) (map[string]int64, error) {
	out := make(map[string]int64, len(emails))
	if len(emails) == 0 {
		return out, nil
	}
	norm := make([]string, 0, len(emails))
	for _, e := range emails {
		norm = append(norm, models.NormalizeEmail(e))
	}

	cur, err := s.users.Aggregate(ctx, []bson.M{
		{"$match": bson.M{"email_ci": bson.M{"$in": norm}}},
		{"$lookup": bson.M{
			"from": "course_enrollments",
			"let":  bson.M{"uid": "$_id"},
			"pipeline": []bson.M{
				{"$match": bson.M{
					"course_id": courseID,
					"is_active": true,
					"$expr":     bson.M{"$eq": []string{"$user_id", "$$uid"}},
				}},
				{"$limit": 1},
			},
			"as": "enrollment",
		}},
		{"$match": bson.M{"enrollment.0": bson.M{"$exists": true}}},
		{"$project": bson.M{"_id": 1, "email_ci": 1}},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var row struct {
			ID      int64  `bson:"_id"`
			EmailCI string `bson:"email_ci"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out[row.EmailCI] = row.ID
	}
	return out, cur.Err()
}
