package cascade_test

import (
	"context"
	"errors"
	"testing"

	cohortstore "github.com/dalemusser/groupwork/internal/app/store/cohorts"
	membershipstore "github.com/dalemusser/groupwork/internal/app/store/memberships"
	"github.com/dalemusser/groupwork/internal/app/system/apperr"
	"github.com/dalemusser/groupwork/internal/app/system/txn"
	"github.com/dalemusser/groupwork/internal/app/workflow/cascade"
	"github.com/dalemusser/groupwork/internal/domain/models"
	"github.com/dalemusser/groupwork/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

var errAbort = errors.New("abort")

func count(t *testing.T, ctx context.Context, db *mongo.Database, coll string, filter bson.M) int64 {
	t.Helper()
	n, err := db.Collection(coll).CountDocuments(ctx, filter)
	if err != nil {
		t.Fatalf("count %s: %v", coll, err)
	}
	return n
}

func newEngine(db *mongo.Database, docs *testutil.RecordingDocStore) *cascade.Engine {
	return cascade.New(db, cohortstore.New(db), docs, nil, zap.NewNop())
}

// removeMember drops the membership row and runs the cascade in one transaction.
func removeMember(t *testing.T, ctx context.Context, db *mongo.Database, e *cascade.Engine, w models.Workgroup, userID int64) cascade.Result {
	t.Helper()
	ms := membershipstore.New(db)
	var res cascade.Result
	err := txn.RunCompensated(ctx, db, zap.NewNop(), func(ctx context.Context, undo *txn.Undo) error {
		if _, err := ms.Remove(ctx, w.ID, userID); err != nil {
			return err
		}
		r, err := e.AfterMemberRemovedIn(ctx, undo, w, userID)
		res = r
		return err
	})
	if err != nil {
		t.Fatalf("remove member: %v", err)
	}
	e.Finish(ctx, res)
	return res
}

func TestAfterMemberRemoved_ReassignsToLowestRemainingUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)
	docs := testutil.NewRecordingDocStore()
	e := newEngine(db, docs)

	p := fx.CreateProject(ctx, "course-1", "unit-1")
	w := fx.CreateWorkgroup(ctx, p, "Alpha")
	leaving := fx.CreateUser(ctx, "leaving", "leaving@example.com")
	low := fx.CreateUser(ctx, "low", "low@example.com")
	high := fx.CreateUser(ctx, "high", "high@example.com")
	fx.AddMember(ctx, w, leaving.ID)
	fx.AddMember(ctx, w, high.ID)
	fx.AddMember(ctx, w, low.ID)
	fx.CreateWorkgroupCohort(ctx, w, leaving.ID, low.ID, high.ID)
	s1 := fx.CreateSubmission(ctx, w, leaving.ID, "a.pdf")
	s2 := fx.CreateSubmission(ctx, w, leaving.ID, "b.pdf")
	other := fx.CreateSubmission(ctx, w, high.ID, "c.pdf")

	res := removeMember(t, ctx, db, e, w, leaving.ID)

	if len(res.Reassigned) != 2 {
		t.Fatalf("reassigned %d submissions, want 2", len(res.Reassigned))
	}
	for _, id := range []int64{s1.ID, s2.ID} {
		if n := count(t, ctx, db, "workgroup_submissions", bson.M{"_id": id, "user_id": low.ID}); n != 1 {
			t.Errorf("submission %d not reassigned to user %d", id, low.ID)
		}
	}
	if n := count(t, ctx, db, "workgroup_submissions", bson.M{"_id": other.ID, "user_id": high.ID}); n != 1 {
		t.Error("unrelated submission changed owner")
	}
	if len(res.Workgroups) != 0 {
		t.Errorf("workgroup deleted while members remain")
	}
	if got := docs.Deleted(); len(got) != 0 {
		t.Errorf("documents deleted = %v, want none", got)
	}
}

func TestAfterMemberRemoved_LastMemberDeletesEverything(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)
	docs := testutil.NewRecordingDocStore()
	e := newEngine(db, docs)

	p := fx.CreateProject(ctx, "course-1", "unit-1")
	w := fx.CreateWorkgroup(ctx, p, "Alpha")
	u := fx.CreateUser(ctx, "solo", "solo@example.com")
	fx.AddMember(ctx, w, u.ID)
	fx.CreateWorkgroupCohort(ctx, w, u.ID)
	s := fx.CreateSubmission(ctx, w, u.ID, "report.pdf")
	fx.CreateSubmissionReview(ctx, s, "staff")
	fx.CreateWorkgroupReview(ctx, w, "staff")
	fx.CreatePeerReview(ctx, w, u.ID, "peer")

	res := removeMember(t, ctx, db, e, w, u.ID)

	checks := []struct {
		coll   string
		filter bson.M
	}{
		{"workgroups", bson.M{"_id": w.ID}},
		{"workgroup_submissions", bson.M{"workgroup_id": w.ID}},
		{"workgroup_submission_reviews", bson.M{"submission_id": s.ID}},
		{"workgroup_reviews", bson.M{"workgroup_id": w.ID}},
		{"workgroup_peer_reviews", bson.M{"workgroup_id": w.ID}},
		{"course_user_groups", bson.M{"name": w.CohortName()}},
		{"cohort_memberships", bson.M{"user_id": u.ID}},
	}
	for _, c := range checks {
		if n := count(t, ctx, db, c.coll, c.filter); n != 0 {
			t.Errorf("%s: %d documents remain", c.coll, n)
		}
	}

	if len(res.Workgroups) != 1 || len(res.Cohorts) != 1 {
		t.Errorf("result workgroups=%d cohorts=%d, want 1 and 1", len(res.Workgroups), len(res.Cohorts))
	}
	got := docs.Deleted()
	if len(got) != 1 || got[0] != s.DocumentPath() {
		t.Errorf("documents deleted = %v, want [%s]", got, s.DocumentPath())
	}
}

func TestDeleteWorkgroup_MissingCohortIsIgnored(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)
	e := newEngine(db, testutil.NewRecordingDocStore())

	p := fx.CreateProject(ctx, "course-1", "unit-1")
	w := fx.CreateWorkgroup(ctx, p, "Alpha")
	u := fx.CreateUser(ctx, "amy", "amy@example.com")
	fx.AddMember(ctx, w, u.ID)

	res, err := e.DeleteWorkgroup(ctx, w.ID)
	if err != nil {
		t.Fatalf("DeleteWorkgroup failed: %v", err)
	}
	if len(res.Cohorts) != 0 {
		t.Errorf("cohorts deleted = %d, want 0", len(res.Cohorts))
	}
	if n := count(t, ctx, db, "workgroup_users", bson.M{"workgroup_id": w.ID}); n != 0 {
		t.Errorf("%d memberships remain", n)
	}

	_, err = e.DeleteWorkgroup(ctx, w.ID)
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second delete: got %v, want ErrNotFound", err)
	}
}

func TestDeleteProject(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)
	docs := testutil.NewRecordingDocStore()
	e := newEngine(db, docs)

	p := fx.CreateProject(ctx, "course-1", "unit-1")
	keep := fx.CreateProject(ctx, "course-1", "unit-2")
	a := fx.CreateWorkgroup(ctx, p, "A")
	b := fx.CreateWorkgroup(ctx, p, "B")
	k := fx.CreateWorkgroup(ctx, keep, "K")
	u := fx.CreateUser(ctx, "amy", "amy@example.com")
	fx.AddMember(ctx, a, u.ID)
	fx.CreateWorkgroupCohort(ctx, a, u.ID)
	fx.CreateWorkgroupCohort(ctx, b)
	fx.CreateSubmission(ctx, a, u.ID, "a.pdf")

	res, err := e.DeleteProject(ctx, p.ID)
	if err != nil {
		t.Fatalf("DeleteProject failed: %v", err)
	}
	if len(res.Workgroups) != 2 || len(res.Cohorts) != 2 || len(res.Projects) != 1 {
		t.Errorf("result = %d workgroups, %d cohorts, %d projects", len(res.Workgroups), len(res.Cohorts), len(res.Projects))
	}
	if n := count(t, ctx, db, "projects", bson.M{"_id": p.ID}); n != 0 {
		t.Error("project still present")
	}
	if n := count(t, ctx, db, "workgroups", bson.M{"project_id": p.ID}); n != 0 {
		t.Errorf("%d workgroups remain", n)
	}
	if n := count(t, ctx, db, "workgroups", bson.M{"_id": k.ID}); n != 1 {
		t.Error("workgroup of another project deleted")
	}
	if len(docs.Deleted()) != 1 {
		t.Errorf("documents deleted = %v, want 1", docs.Deleted())
	}

	if _, err := e.DeleteProject(ctx, p.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestDeleteSubmission(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)
	docs := testutil.NewRecordingDocStore()
	e := newEngine(db, docs)

	p := fx.CreateProject(ctx, "course-1", "unit-1")
	w := fx.CreateWorkgroup(ctx, p, "A")
	u := fx.CreateUser(ctx, "amy", "amy@example.com")
	s := fx.CreateSubmission(ctx, w, u.ID, "a.pdf")
	fx.CreateSubmissionReview(ctx, s, "staff")

	if _, err := e.DeleteSubmission(ctx, s.ID); err != nil {
		t.Fatalf("DeleteSubmission failed: %v", err)
	}
	if n := count(t, ctx, db, "workgroup_submission_reviews", bson.M{"submission_id": s.ID}); n != 0 {
		t.Errorf("%d reviews remain", n)
	}
	if got := docs.Deleted(); len(got) != 1 || got[0] != s.DocumentPath() {
		t.Errorf("documents deleted = %v", got)
	}
	if _, err := e.DeleteSubmission(ctx, s.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestDeleteWorkgroupIn_RolledBackOnFailure(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)
	docs := testutil.NewRecordingDocStore()
	e := newEngine(db, docs)

	p := fx.CreateProject(ctx, "course-1", "unit-1")
	w := fx.CreateWorkgroup(ctx, p, "Alpha")
	u := fx.CreateUser(ctx, "amy", "amy@example.com")
	fx.AddMember(ctx, w, u.ID)
	fx.CreateWorkgroupCohort(ctx, w, u.ID)
	s := fx.CreateSubmission(ctx, w, u.ID, "a.pdf")
	fx.CreateSubmissionReview(ctx, s, "staff")

	err := txn.RunCompensated(ctx, db, zap.NewNop(), func(ctx context.Context, undo *txn.Undo) error {
		if _, err := e.DeleteWorkgroupIn(ctx, undo, w); err != nil {
			return err
		}
		return errAbort
	})
	if !errors.Is(err, errAbort) {
		t.Fatalf("got %v, want errAbort", err)
	}

	checks := []struct {
		coll   string
		filter bson.M
	}{
		{"workgroups", bson.M{"_id": w.ID}},
		{"workgroup_users", bson.M{"workgroup_id": w.ID, "user_id": u.ID}},
		{"workgroup_submissions", bson.M{"_id": s.ID}},
		{"workgroup_submission_reviews", bson.M{"submission_id": s.ID}},
		{"course_user_groups", bson.M{"name": w.CohortName()}},
		{"cohort_memberships", bson.M{"user_id": u.ID}},
	}
	for _, c := range checks {
		if n := count(t, ctx, db, c.coll, c.filter); n != 1 {
			t.Errorf("%s: got %d documents after rollback, want 1", c.coll, n)
		}
	}
	if len(docs.Deleted()) != 0 {
		t.Errorf("documents deleted before commit: %v", docs.Deleted())
	}
}

func TestAfterMemberRemoved_UndoKeepsCohortID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)
	e := newEngine(db, testutil.NewRecordingDocStore())
	cohorts := cohortstore.New(db)
	ms := membershipstore.New(db)

	p := fx.CreateProject(ctx, "course-1", "unit-1")
	w := fx.CreateWorkgroup(ctx, p, "Alpha")
	u := fx.CreateUser(ctx, "amy", "amy@example.com")
	fx.AddMember(ctx, w, u.ID)
	c := fx.CreateWorkgroupCohort(ctx, w, u.ID)

	// The steps of a member removal, replayed without a transaction.
	undo := &txn.Undo{}
	row, err := ms.Get(ctx, w.ID, u.ID)
	if err != nil {
		t.Fatalf("load membership: %v", err)
	}
	if _, err := ms.Remove(ctx, w.ID, u.ID); err != nil {
		t.Fatalf("remove membership: %v", err)
	}
	undo.Push("restore membership", func(ctx context.Context) error {
		return ms.InsertMany(ctx, []models.WorkgroupUser{row})
	})
	if err := cohorts.RemoveMember(ctx, c, u.ID); err != nil {
		t.Fatalf("remove cohort member: %v", err)
	}
	undo.Push("restore cohort membership", func(ctx context.Context) error {
		return cohorts.AddMember(ctx, c, u.ID)
	})
	res, err := e.AfterMemberRemovedIn(ctx, undo, w, u.ID)
	if err != nil {
		t.Fatalf("cascade: %v", err)
	}
	if len(res.Cohorts) != 1 {
		t.Fatalf("cascade deleted %d cohorts, want 1", len(res.Cohorts))
	}

	undo.Rollback(ctx, zap.NewNop())

	got, err := cohorts.Find(ctx, w.CourseID, w.CohortName())
	if err != nil {
		t.Fatalf("find cohort after rollback: %v", err)
	}
	if got.ID != c.ID {
		t.Errorf("cohort id after rollback = %d, want %d", got.ID, c.ID)
	}
	if n := count(t, ctx, db, "course_user_groups", bson.M{"name": w.CohortName()}); n != 1 {
		t.Errorf("cohorts named %q = %d, want 1", w.CohortName(), n)
	}
	var cm models.CohortMembership
	if err := db.Collection("cohort_memberships").FindOne(ctx, bson.M{"user_id": u.ID}).Decode(&cm); err != nil {
		t.Fatalf("load cohort membership: %v", err)
	}
	if cm.CohortID != c.ID {
		t.Errorf("cohort membership points at %d, want %d", cm.CohortID, c.ID)
	}
	if n := count(t, ctx, db, "course_user_group_users", bson.M{"cohort_id": c.ID, "user_id": u.ID}); n != 1 {
		t.Errorf("cohort user rows = %d, want 1", n)
	}
	if n := count(t, ctx, db, "workgroup_users", bson.M{"workgroup_id": w.ID, "user_id": u.ID}); n != 1 {
		t.Errorf("workgroup membership rows = %d, want 1", n)
	}
}

func TestCleanupDocuments(t *testing.T) {
	docs := testutil.NewRecordingDocStore()
	docs.FailOn("group_work/1/a/x.pdf")
	client, err := mongo.Connect(context.Background(), options.Client().ApplyURI("mongodb://127.0.0.1:1"))
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	e := cascade.New(client.Database("unused"), nil, docs, nil, zap.NewNop())

	e.CleanupDocuments(context.Background(), []string{
		"group_work/1/a/x.pdf",
		"group_work/1/b/y.pdf",
		"group_work/1/b/y.pdf",
	})

	got := docs.Deleted()
	if len(got) != 2 || got[0] != "group_work/1/a/x.pdf" || got[1] != "group_work/1/b/y.pdf" {
		t.Errorf("deleted = %v, want each path once in order", got)
	}
}
