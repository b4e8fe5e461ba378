package indexes_test

import (
	"context"
	"testing"

	"github.com/dalemusser/groupwork/internal/app/system/indexes"
	"github.com/dalemusser/groupwork/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func indexNames(ctx context.Context, t *testing.T, db *mongo.Database, coll string) map[string]bool {
	t.Helper()

	cur, err := db.Collection(coll).Indexes().List(ctx)
	if err != nil {
		t.Fatalf("List indexes failed: %v", err)
	}
	defer cur.Close(ctx)

	names := make(map[string]bool)
	for cur.Next(ctx) {
		var idx bson.M
		if err := cur.Decode(&idx); err != nil {
			continue
		}
		if name, ok := idx["name"].(string); ok {
			names[name] = true
		}
	}
	return names
}

func TestEnsureAll_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	// SetupTestDB already ran EnsureAll; run it twice more.
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("First EnsureAll failed: %v", err)
	}
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("Second EnsureAll failed: %v", err)
	}
}

func TestEnsureAll_CreatesNamedIndexes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	tests := []struct {
		coll    string
		indexes []string
	}{
		{"projects", []string{"uniq_projects_course_content_org", "idx_projects_org"}},
		{"workgroups", []string{"idx_workgroups_project_name", "idx_workgroups_course"}},
		{"workgroup_users", []string{"uniq_wgu_course_user", "uniq_wgu_workgroup_user"}},
		{"workgroup_submissions", []string{"idx_subs_workgroup_user", "idx_subs_filename"}},
		{"course_user_groups", []string{"uniq_cohorts_course_name"}},
		{"cohort_memberships", []string{"uniq_cm_course_user", "idx_cm_cohort_user"}},
		{"course_user_group_users", []string{"uniq_cgu_cohort_user", "idx_cgu_user"}},
	}

	for _, tt := range tests {
		t.Run(tt.coll, func(t *testing.T) {
			names := indexNames(ctx, t, db, tt.coll)
			for _, name := range tt.indexes {
				if !names[name] {
					t.Errorf("expected index %q to exist on %s", name, tt.coll)
				}
			}
		})
	}
}

func TestWorkgroupUsers_OneWorkgroupPerCourse(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	c := db.Collection("workgroup_users")
	if _, err := c.InsertOne(ctx, bson.M{"_id": int64(1), "workgroup_id": int64(1), "user_id": int64(7), "course_id": "c1"}); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}
	// Same user, different workgroup, same course
	_, err := c.InsertOne(ctx, bson.M{"_id": int64(2), "workgroup_id": int64(2), "user_id": int64(7), "course_id": "c1"})
	if !mongo.IsDuplicateKeyError(err) {
		t.Fatalf("expected duplicate key error, got %v", err)
	}
	// Same user, other course is fine
	if _, err := c.InsertOne(ctx, bson.M{"_id": int64(3), "workgroup_id": int64(3), "user_id": int64(7), "course_id": "c2"}); err != nil {
		t.Fatalf("insert in other course failed: %v", err)
	}
}
