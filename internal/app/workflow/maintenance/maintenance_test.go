package maintenance_test

import (
	"errors"
	"testing"

	cohortstore "github.com/dalemusser/groupwork/internal/app/store/cohorts"
	"github.com/dalemusser/groupwork/internal/app/system/apperr"
	"github.com/dalemusser/groupwork/internal/app/workflow/cascade"
	"github.com/dalemusser/groupwork/internal/app/workflow/maintenance"
	"github.com/dalemusser/groupwork/internal/domain/models"
	"github.com/dalemusser/groupwork/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func newTasks(db *mongo.Database, docs *testutil.RecordingDocStore) *maintenance.Tasks {
	engine := cascade.New(db, cohortstore.New(db), docs, nil, zap.NewNop())
	return maintenance.New(db, engine, nil, zap.NewNop())
}

func TestPurgeCohorts(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)
	tasks := newTasks(db, testutil.NewRecordingDocStore())

	p := fx.CreateProject(ctx, "course-1", "unit-1")
	w := fx.CreateWorkgroup(ctx, p, "Alpha")
	u := fx.CreateUser(ctx, "amy", "amy@example.com")
	live := fx.CreateWorkgroupCohort(ctx, w, u.ID)
	def := fx.CreateCohort(ctx, "course-1", models.DefaultCohortName, models.AssignmentRandom)
	stale := fx.CreateCohort(ctx, "course-1", models.CohortNameFor(p.ID, 999, "Gone"), models.AssignmentRandom, u.ID)
	elsewhere := fx.CreateCohort(ctx, "course-2", "Orphan", models.AssignmentRandom)

	purged, err := tasks.PurgeCohorts(ctx, []string{"course-1"})
	if err != nil {
		t.Fatalf("PurgeCohorts failed: %v", err)
	}
	if len(purged) != 1 || purged[0].ID != stale.ID {
		t.Fatalf("purged = %+v, want only cohort %d", purged, stale.ID)
	}
	for _, id := range []int64{live.ID, def.ID, elsewhere.ID} {
		n, _ := db.Collection("course_user_groups").CountDocuments(ctx, bson.M{"_id": id})
		if n != 1 {
			t.Errorf("cohort %d was deleted", id)
		}
	}
	n, _ := db.Collection("cohort_memberships").CountDocuments(ctx, bson.M{"cohort_id": stale.ID})
	if n != 0 {
		t.Errorf("%d memberships of purged cohort remain", n)
	}
}

func TestPurgeCohorts_RequiresCourses(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	tasks := newTasks(db, testutil.NewRecordingDocStore())

	for _, courses := range [][]string{nil, {"course-1", " "}} {
		if _, err := tasks.PurgeCohorts(ctx, courses); !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("PurgeCohorts(%q): got %v, want ErrValidation", courses, err)
		}
	}
}

func TestFixCohorts(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)
	tasks := newTasks(db, testutil.NewRecordingDocStore())

	a := fx.CreateUser(ctx, "amy", "amy@example.com")
	b := fx.CreateUser(ctx, "bob", "bob@example.com")
	c := fx.CreateCohort(ctx, "course-1", "Cohort A", models.AssignmentManual, a.ID, b.ID)
	def := fx.CreateCohort(ctx, "course-1", models.DefaultCohortName, models.AssignmentRandom)
	if _, err := db.Collection("cohort_memberships").InsertOne(ctx, models.CohortMembership{
		CourseID: "course-1", UserID: 77, CohortID: def.ID,
	}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := db.Collection("course_user_group_users").DeleteOne(ctx, bson.M{"cohort_id": c.ID, "user_id": b.ID}); err != nil {
		t.Fatalf("delete: %v", err)
	}

	fixed, err := tasks.FixCohorts(ctx, []string{"course-1"})
	if err != nil {
		t.Fatalf("FixCohorts failed: %v", err)
	}
	if fixed != 1 {
		t.Errorf("fixed = %d, want 1", fixed)
	}
	n, _ := db.Collection("course_user_group_users").CountDocuments(ctx, bson.M{"cohort_id": c.ID})
	if n != 2 {
		t.Errorf("cohort user rows = %d, want 2", n)
	}
	n, _ = db.Collection("course_user_group_users").CountDocuments(ctx, bson.M{"cohort_id": def.ID})
	if n != 0 {
		t.Errorf("default cohort user rows = %d, want 0", n)
	}

	again, err := tasks.FixCohorts(ctx, []string{"course-1"})
	if err != nil || again != 0 {
		t.Errorf("second run = %d, %v; want 0, nil", again, err)
	}
}

func TestRemoveUploads(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)
	docs := testutil.NewRecordingDocStore()
	tasks := newTasks(db, docs)

	p := fx.CreateProject(ctx, "course-1", "unit-1")
	w := fx.CreateWorkgroup(ctx, p, "Alpha")
	u := fx.CreateUser(ctx, "amy", "amy@example.com")
	fx.AddMember(ctx, w, u.ID)
	bad1 := fx.CreateSubmission(ctx, w, u.ID, "image.png")
	bad2 := fx.CreateSubmission(ctx, w, u.ID, "image.png")
	good := fx.CreateSubmission(ctx, w, u.ID, "essay.pdf")
	fx.CreateSubmissionReview(ctx, bad1, "staff")

	dry, err := tasks.RemoveUploads(ctx, "image.png", true)
	if err != nil {
		t.Fatalf("dry run failed: %v", err)
	}
	if len(dry) != 2 {
		t.Errorf("dry run matched %d, want 2", len(dry))
	}
	n, _ := db.Collection("workgroup_submissions").CountDocuments(ctx, bson.M{})
	if n != 3 {
		t.Fatalf("dry run deleted submissions: %d remain", n)
	}

	removed, err := tasks.RemoveUploads(ctx, "image.png", false)
	if err != nil {
		t.Fatalf("RemoveUploads failed: %v", err)
	}
	if len(removed) != 2 {
		t.Errorf("removed %d, want 2", len(removed))
	}
	for _, id := range []int64{bad1.ID, bad2.ID} {
		n, _ := db.Collection("workgroup_submissions").CountDocuments(ctx, bson.M{"_id": id})
		if n != 0 {
			t.Errorf("submission %d remains", id)
		}
	}
	n, _ = db.Collection("workgroup_submissions").CountDocuments(ctx, bson.M{"_id": good.ID})
	if n != 1 {
		t.Error("unrelated submission deleted")
	}
	n, _ = db.Collection("workgroup_submission_reviews").CountDocuments(ctx, bson.M{"submission_id": bad1.ID})
	if n != 0 {
		t.Error("review of removed submission remains")
	}
	if got := docs.Deleted(); len(got) != 2 {
		t.Errorf("documents deleted = %v, want 2", got)
	}
}
