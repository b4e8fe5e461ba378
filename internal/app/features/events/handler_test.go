package events_test

import (
	"net/http"
	"testing"

	uierrors "github.com/dalemusser/groupwork/internal/app/features/errors"
	"github.com/dalemusser/groupwork/internal/app/features/events"
	cohortstore "github.com/dalemusser/groupwork/internal/app/store/cohorts"
	"github.com/dalemusser/groupwork/internal/app/workflow/cascade"
	"github.com/dalemusser/groupwork/internal/app/workflow/courseevents"
	"github.com/dalemusser/groupwork/internal/testutil"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func newRouter(db *mongo.Database) chi.Router {
	logger := zap.NewNop()
	cohorts := cohortstore.New(db)
	engine := cascade.New(db, cohorts, testutil.NewRecordingDocStore(), nil, logger)
	proc := courseevents.New(db, cohorts, engine, nil, logger)
	return events.Routes(events.NewHandler(proc, uierrors.NewErrorLogger(logger), logger))
}

func TestCourseDeleted(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)
	r := newRouter(db)

	p := fx.CreateProject(ctx, "course-1", "unit-1")
	keep := fx.CreateProject(ctx, "course-2", "unit-1")
	w := fx.CreateWorkgroup(ctx, p, "Alpha")
	u := fx.CreateUser(ctx, "amy", "amy@example.com")
	fx.AddMember(ctx, w, u.ID)
	fx.CreateWorkgroupCohort(ctx, w, u.ID)

	rec := testutil.Serve(r, testutil.JSONRequest(t, "POST", "/course_deleted", map[string]any{"course_id": "course-1"}))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var sum courseevents.Summary
	testutil.DecodeJSON(t, rec, &sum)
	if sum.Projects != 1 || sum.Workgroups != 1 || sum.Memberships != 1 || sum.Cohorts != 1 {
		t.Errorf("summary = %+v", sum)
	}
	n, _ := db.Collection("projects").CountDocuments(ctx, bson.M{})
	if n != 1 {
		t.Errorf("projects left = %d, want 1 (%d)", n, keep.ID)
	}

	rec = testutil.Serve(r, testutil.JSONRequest(t, "POST", "/course_deleted", map[string]any{}))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing course_id status = %d, want 400", rec.Code)
	}
}

func TestOrganizationDeleted(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)
	r := newRouter(db)

	org := fx.CreateOrganization(ctx, "District")
	p := fx.CreateProject(ctx, "course-1", "unit-1")
	if _, err := db.Collection("projects").UpdateOne(ctx, bson.M{"_id": p.ID}, bson.M{"$set": bson.M{"organization_id": org.ID}}); err != nil {
		t.Fatalf("link organization: %v", err)
	}

	rec := testutil.Serve(r, testutil.JSONRequest(t, "POST", "/organization_deleted", map[string]any{"organization_id": org.ID}))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var out struct {
		Projects []int64 `json:"projects"`
	}
	testutil.DecodeJSON(t, rec, &out)
	if len(out.Projects) != 1 || out.Projects[0] != p.ID {
		t.Errorf("projects = %v, want [%d]", out.Projects, p.ID)
	}

	rec = testutil.Serve(r, testutil.JSONRequest(t, "POST", "/organization_deleted", map[string]any{}))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing organization_id status = %d, want 400", rec.Code)
	}
}
