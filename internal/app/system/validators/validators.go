// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"strings"

	"github.com/dalemusser/groupwork/internal/domain/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// EnsureAll creates collections (if missing) and tries to attach JSON-Schema
// validators. Collections must exist before multi-document transactions
// write to them on older servers. On servers that don't support
// collMod/validators (e.g. some DocumentDB versions), we log and skip gracefully.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	// helper: ensure collection exists (with truthful logging) and then validator (if provided)
	ensure := func(coll string, schema bson.M) {
		if _, err := ensureCollection(ctx, db, coll); err != nil {
			problems = append(problems, coll+": "+err.Error())
			return
		}
		if schema == nil {
			return
		}
		if err := setValidator(ctx, db, coll, schema); err != nil {
			if isNoSuchCommand(err) || isNotImplemented(err) {
				zap.L().Info("validator skipped (unsupported)", zap.String("collection", coll))
				return
			}
			problems = append(problems, coll+": "+err.Error())
		}
	}

	// Collections this service owns
	ensure("projects", projectsSchema())
	ensure("workgroups", workgroupsSchema())
	ensure("workgroup_users", workgroupUsersSchema())
	ensure("workgroup_submissions", submissionsSchema())
	ensure("workgroup_reviews", reviewSchema("workgroup_id"))
	ensure("workgroup_submission_reviews", reviewSchema("submission_id"))
	ensure("workgroup_peer_reviews", reviewSchema("workgroup_id", "user_id"))

	// Platform collections read or kept in sync by this service
	ensure("users", nil)
	ensure("groups", nil)
	ensure("organizations", nil)
	ensure("course_enrollments", nil)
	ensure("course_user_groups", cohortsSchema())
	ensure("cohort_memberships", nil)
	ensure("course_user_group_users", nil)

	// Bookkeeping
	ensure("sequences", nil)
	ensure("audit_events", nil)

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* ---------------------- collection helpers & logging ---------------------- */

// collectionExists returns true when <name> already exists.
// Uses ListCollectionNames to avoid "created collection" log when it didn't.
func collectionExists(ctx context.Context, db *mongo.Database, name string) (bool, error) {
	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return false, err
	}
	for _, n := range names {
		if n == name {
			return true, nil
		}
	}
	return false, nil
}

// ensureCollection idempotently makes sure <name> exists.
// Returns created==true only if we actually created it.
func ensureCollection(ctx context.Context, db *mongo.Database, name string) (created bool, err error) {
	exists, listErr := collectionExists(ctx, db, name)
	if listErr == nil && exists {
		zap.L().Info("collection exists", zap.String("collection", name))
		return false, nil
	}
	// If listing failed, fall back to create-and-handle-race.
	if err := db.CreateCollection(ctx, name); err != nil {
		// NamespaceExists / already exists is fine (race or prior run).
		if isNamespaceExistsErr(err) {
			zap.L().Info("collection exists", zap.String("collection", name))
			return false, nil
		}
		zap.L().Warn("createCollection failed", zap.String("collection", name), zap.Error(err))
		return false, err
	}
	zap.L().Info("created collection", zap.String("collection", name))
	return true, nil
}

/* ------------------------------ validators ------------------------------- */

func setValidator(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	var out bson.M
	if err := db.RunCommand(ctx, cmd).Decode(&out); err != nil {
		return err
	}
	zap.L().Info("validator ensured", zap.String("collection", name))
	return nil
}

/* ------------------------- error helpers ------------------------- */

func isNamespaceExistsErr(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 48 || strings.Contains(strings.ToLower(ce.Message), "already exists")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "already exists") || strings.Contains(s, "namespace exists")
}

func isNoSuchCommand(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 59 || strings.Contains(strings.ToLower(ce.Message), "no such command")) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "no such command")
}

func isNotImplemented(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 115 ||
		strings.Contains(strings.ToLower(ce.Message), "not implemented") ||
		strings.Contains(strings.ToLower(ce.Message), "not supported")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "not implemented") || strings.Contains(s, "not supported")
}

/* ------------------------- JSON-Schema docs ---------------------- */

var intType = bson.A{"int", "long"}

func projectsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"course_id", "content_id"},
			"properties": bson.M{
				"course_id":       bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"},
				"content_id":      bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"},
				"organization_id": bson.M{"bsonType": bson.A{"int", "long", "null"}},
			},
		},
	}
}

func workgroupsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"project_id", "course_id"},
			"properties": bson.M{
				"name":       bson.M{"bsonType": "string", "maxLength": 255},
				"project_id": bson.M{"bsonType": intType},
				"course_id":  bson.M{"bsonType": "string", "minLength": 1},
			},
		},
	}
}

func workgroupUsersSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"workgroup_id", "user_id", "course_id"},
			"properties": bson.M{
				"workgroup_id": bson.M{"bsonType": intType},
				"project_id":   bson.M{"bsonType": intType},
				"user_id":      bson.M{"bsonType": intType},
				"course_id":    bson.M{"bsonType": "string", "minLength": 1},
				"created_at":   bson.M{"bsonType": "date"},
			},
		},
	}
}

func submissionsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"workgroup_id", "user_id", "document_id", "document_url", "document_mime_type"},
			"properties": bson.M{
				"workgroup_id":       bson.M{"bsonType": intType},
				"user_id":            bson.M{"bsonType": intType},
				"document_id":        bson.M{"bsonType": "string", "maxLength": 255},
				"document_url":       bson.M{"bsonType": "string", "maxLength": 2048},
				"document_mime_type": bson.M{"bsonType": "string", "maxLength": 255},
			},
		},
	}
}

// reviewSchema covers the three review collections; refs are the integer
// reference fields specific to each kind.
func reviewSchema(refs ...string) bson.M {
	required := bson.A{"reviewer", "question"}
	props := bson.M{
		"reviewer":   bson.M{"bsonType": "string", "maxLength": 255},
		"question":   bson.M{"bsonType": "string", "maxLength": 1024},
		"answer":     bson.M{"bsonType": "string"},
		"content_id": bson.M{"bsonType": bson.A{"string", "null"}},
	}
	for _, r := range refs {
		required = append(required, r)
		props[r] = bson.M{"bsonType": intType}
	}
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType":   "object",
			"required":   required,
			"properties": props,
		},
	}
}

func cohortsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"course_id", "name", "group_type"},
			"properties": bson.M{
				"course_id":       bson.M{"bsonType": "string", "minLength": 1},
				"name":            bson.M{"bsonType": "string", "minLength": 1},
				"group_type":      bson.M{"bsonType": "string"},
				"assignment_type": bson.M{"enum": bson.A{models.AssignmentRandom, models.AssignmentManual}},
			},
		},
	}
}
