package projects_test

import (
	"fmt"
	"net/http"
	"testing"

	uierrors "github.com/dalemusser/groupwork/internal/app/features/errors"
	"github.com/dalemusser/groupwork/internal/app/features/projects"
	cohortstore "github.com/dalemusser/groupwork/internal/app/store/cohorts"
	"github.com/dalemusser/groupwork/internal/app/system/docstore"
	"github.com/dalemusser/groupwork/internal/app/workflow/cascade"
	"github.com/dalemusser/groupwork/internal/app/workflow/membership"
	"github.com/dalemusser/groupwork/internal/app/workflow/provision"
	"github.com/dalemusser/groupwork/internal/domain/models"
	"github.com/dalemusser/groupwork/internal/testutil"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func newRouter(db *mongo.Database) chi.Router {
	logger := zap.NewNop()
	cohorts := cohortstore.New(db)
	docs := testutil.NewRecordingDocStore()
	engine := cascade.New(db, cohorts, docs, nil, logger)
	members := membership.New(db, cohorts, engine, nil, logger)
	prov := provision.New(db, cohorts, nil, logger)
	h := projects.NewHandler(db, members, engine, prov, docstore.Linker{Store: docs}, uierrors.NewErrorLogger(logger), nil, logger)
	return projects.Routes(h)
}

type projectJSON struct {
	ID           int64   `json:"id"`
	CourseID     string  `json:"course_id"`
	ContentID    string  `json:"content_id"`
	Organization *int64  `json:"organization"`
	Workgroups   []int64 `json:"workgroups"`
}

func TestList_RequiresBothFilters(t *testing.T) {
	db := testutil.SetupTestDB(t)
	r := newRouter(db)

	rec := testutil.Serve(r, testutil.JSONRequest(t, "GET", "/?course_id=course-1", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var body map[string]any
	testutil.DecodeJSON(t, rec, &body)
	if body["detail"] != "Both course_id and content_id should be present for filtering" {
		t.Errorf("detail = %v", body["detail"])
	}
}

func TestList_Filters(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)
	r := newRouter(db)

	p := fx.CreateProject(ctx, "course-1", "unit-1")
	fx.CreateProject(ctx, "course-1", "unit-2")
	w := fx.CreateWorkgroup(ctx, p, "Alpha")

	rec := testutil.Serve(r, testutil.JSONRequest(t, "GET", "/", nil))
	var all []projectJSON
	testutil.DecodeJSON(t, rec, &all)
	if rec.Code != http.StatusOK || len(all) != 2 {
		t.Fatalf("status %d, %d projects; want 200, 2", rec.Code, len(all))
	}

	rec = testutil.Serve(r, testutil.JSONRequest(t, "GET", "/?course_id=course-1&content_id=unit-1", nil))
	var one []projectJSON
	testutil.DecodeJSON(t, rec, &one)
	if len(one) != 1 || one[0].ID != p.ID {
		t.Fatalf("filtered = %+v", one)
	}
	if len(one[0].Workgroups) != 1 || one[0].Workgroups[0] != w.ID {
		t.Errorf("workgroups = %v, want [%d]", one[0].Workgroups, w.ID)
	}
}

func TestCreate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)
	r := newRouter(db)

	org := fx.CreateOrganization(ctx, "District")
	body := map[string]any{"course_id": "course-1", "content_id": "unit-1", "organization": org.ID}

	rec := testutil.Serve(r, testutil.JSONRequest(t, "POST", "/", body))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	var got projectJSON
	testutil.DecodeJSON(t, rec, &got)
	if got.ID == 0 || got.CourseID != "course-1" || got.Organization == nil || *got.Organization != org.ID {
		t.Errorf("created = %+v", got)
	}

	rec = testutil.Serve(r, testutil.JSONRequest(t, "POST", "/", body))
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate status = %d, want 409", rec.Code)
	}
}

func TestCreate_Validation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	r := newRouter(db)

	tests := []struct {
		name   string
		body   map[string]any
		detail string
	}{
		{"missing course", map[string]any{"content_id": "unit-1"}, "course_id field is required."},
		{"missing content", map[string]any{"course_id": "course-1"}, "content_id field is required."},
		{"unknown organization", map[string]any{"course_id": "c", "content_id": "u", "organization": 404}, "Organization 404 does not exist"},
		{"unknown workgroup", map[string]any{"course_id": "c", "content_id": "u", "workgroups": []int64{77}}, "Workgroup 77 does not exist"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := testutil.Serve(r, testutil.JSONRequest(t, "POST", "/", tt.body))
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			var body map[string]any
			testutil.DecodeJSON(t, rec, &body)
			if body["detail"] != tt.detail {
				t.Errorf("detail = %v, want %q", body["detail"], tt.detail)
			}
		})
	}
}

func TestCreate_FailedAttachLeavesNoProject(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)
	r := newRouter(db)

	old := fx.CreateProject(ctx, "course-1", "unit-1")
	a := fx.CreateWorkgroup(ctx, old, "A")
	fx.CreateWorkgroupCohort(ctx, a)
	b := fx.CreateWorkgroup(ctx, old, "B")
	fx.CreateWorkgroupCohort(ctx, b)
	// The next project id is old.ID+1. Taking the cohort name b would be
	// renamed to makes moving b fail.
	fx.CreateCohort(ctx, "course-1", models.CohortNameFor(old.ID+1, b.ID, b.Name), models.AssignmentRandom)

	rec := testutil.Serve(r, testutil.JSONRequest(t, "POST", "/", map[string]any{
		"course_id":  "course-1",
		"content_id": "unit-2",
		"workgroups": []int64{a.ID, b.ID},
	}))
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502: %s", rec.Code, rec.Body.String())
	}

	if n, _ := db.Collection("projects").CountDocuments(ctx, bson.M{"content_id": "unit-2"}); n != 0 {
		t.Errorf("projects for unit-2 = %d, want 0", n)
	}
	for _, wg := range []models.Workgroup{a, b} {
		var got models.Workgroup
		if err := db.Collection("workgroups").FindOne(ctx, bson.M{"_id": wg.ID}).Decode(&got); err != nil {
			t.Fatalf("load workgroup %d: %v", wg.ID, err)
		}
		if got.ProjectID != old.ID {
			t.Errorf("workgroup %d project = %d, want %d", wg.ID, got.ProjectID, old.ID)
		}
		if n, _ := db.Collection("course_user_groups").CountDocuments(ctx, bson.M{"name": wg.CohortName()}); n != 1 {
			t.Errorf("cohort %q count = %d, want 1", wg.CohortName(), n)
		}
	}
}

func TestGet_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	r := newRouter(db)

	for _, target := range []string{"/999", "/abc"} {
		rec := testutil.Serve(r, testutil.JSONRequest(t, "GET", target, nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("GET %s status = %d, want 404", target, rec.Code)
		}
	}
}

func TestUpdate_CourseLockedByWorkgroups(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)
	r := newRouter(db)

	p := fx.CreateProject(ctx, "course-1", "unit-1")
	fx.CreateWorkgroup(ctx, p, "Alpha")
	target := fmt.Sprintf("/%d", p.ID)

	rec := testutil.Serve(r, testutil.JSONRequest(t, "PUT", target, map[string]any{"course_id": "course-2", "content_id": "unit-1"}))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("course change status = %d, want 400", rec.Code)
	}

	rec = testutil.Serve(r, testutil.JSONRequest(t, "PUT", target, map[string]any{"course_id": "course-1", "content_id": "unit-9"}))
	if rec.Code != http.StatusOK {
		t.Fatalf("content change status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var got projectJSON
	testutil.DecodeJSON(t, rec, &got)
	if got.ContentID != "unit-9" {
		t.Errorf("content_id = %q", got.ContentID)
	}
}

func TestDelete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)
	r := newRouter(db)

	p := fx.CreateProject(ctx, "course-1", "unit-1")
	w := fx.CreateWorkgroup(ctx, p, "Alpha")
	target := fmt.Sprintf("/%d", p.ID)

	rec := testutil.Serve(r, testutil.JSONRequest(t, "DELETE", target, nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	n, _ := db.Collection("workgroups").CountDocuments(ctx, bson.M{"_id": w.ID})
	if n != 0 {
		t.Error("workgroup survived project deletion")
	}

	rec = testutil.Serve(r, testutil.JSONRequest(t, "DELETE", target, nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rec.Code)
	}
}

func TestWorkgroups_SummaryAndDetails(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)
	r := newRouter(db)

	p := fx.CreateProject(ctx, "course-1", "unit-1")
	w := fx.CreateWorkgroup(ctx, p, "Alpha")
	u := fx.CreateUser(ctx, "amy", "amy@example.com")
	fx.AddMember(ctx, w, u.ID)
	fx.CreateSubmission(ctx, w, u.ID, "a.pdf")

	rec := testutil.Serve(r, testutil.JSONRequest(t, "GET", fmt.Sprintf("/%d/workgroups", p.ID), nil))
	var summary []map[string]any
	testutil.DecodeJSON(t, rec, &summary)
	if len(summary) != 1 || summary[0]["name"] != "Alpha" {
		t.Fatalf("summary = %v", summary)
	}
	if _, ok := summary[0]["users"]; ok {
		t.Error("summary projection includes users")
	}

	rec = testutil.Serve(r, testutil.JSONRequest(t, "GET", fmt.Sprintf("/%d/workgroups?details", p.ID), nil))
	var detailed []struct {
		Users []struct {
			Username string `json:"username"`
		} `json:"users"`
		Submissions []struct {
			DocumentFilename string `json:"document_filename"`
		} `json:"submissions"`
	}
	testutil.DecodeJSON(t, rec, &detailed)
	if len(detailed) != 1 || len(detailed[0].Users) != 1 || detailed[0].Users[0].Username != "amy" {
		t.Fatalf("details = %+v", detailed)
	}
	if len(detailed[0].Submissions) != 1 || detailed[0].Submissions[0].DocumentFilename != "a.pdf" {
		t.Errorf("submissions = %+v", detailed[0].Submissions)
	}
}

func TestAttachWorkgroup(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)
	r := newRouter(db)

	from := fx.CreateProject(ctx, "course-1", "unit-1")
	to := fx.CreateProject(ctx, "course-1", "unit-2")
	w := fx.CreateWorkgroup(ctx, from, "Alpha")

	rec := testutil.Serve(r, testutil.JSONRequest(t, "POST", fmt.Sprintf("/%d/workgroups", to.ID), map[string]any{"id": w.ID}))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	n, _ := db.Collection("workgroups").CountDocuments(ctx, bson.M{"_id": w.ID, "project_id": to.ID})
	if n != 1 {
		t.Error("workgroup not moved")
	}

	rec = testutil.Serve(r, testutil.JSONRequest(t, "POST", fmt.Sprintf("/%d/workgroups", to.ID), map[string]any{"id": 4040}))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown workgroup status = %d, want 400", rec.Code)
	}
}

func TestBulk(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)
	r := newRouter(db)

	p := fx.CreateProject(ctx, "course-1", "unit-1")
	fx.CreateEnrolledUser(ctx, "course-1", "amy")
	fx.CreateEnrolledUser(ctx, "course-1", "bob")
	target := fmt.Sprintf("/%d/workgroups_bulk", p.ID)

	rec := testutil.Serve(r, testutil.JSONRequest(t, "POST", target, map[string]any{
		"groups": map[string][]string{"A": {"amy@example.com"}, "B": {"nobody@example.com"}},
	}))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var bad struct {
		NotEnrolled []string `json:"not_enrolled_users"`
	}
	testutil.DecodeJSON(t, rec, &bad)
	if len(bad.NotEnrolled) != 1 || bad.NotEnrolled[0] != "nobody@example.com" {
		t.Errorf("not_enrolled_users = %v", bad.NotEnrolled)
	}

	rec = testutil.Serve(r, testutil.JSONRequest(t, "POST", target, map[string]any{
		"groups": map[string][]string{"A": {"amy@example.com"}, "B": {"bob@example.com"}},
	}))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	var body map[string]any
	testutil.DecodeJSON(t, rec, &body)
	if len(body) != 0 {
		t.Errorf("response body = %v, want {}", body)
	}
	if n, _ := db.Collection("workgroups").CountDocuments(ctx, bson.M{"project_id": p.ID}); n != 2 {
		t.Errorf("workgroups = %d, want 2", n)
	}
	n, _ := db.Collection("workgroup_users").CountDocuments(ctx, bson.M{"course_id": "course-1"})
	if n != 2 {
		t.Errorf("memberships = %d, want 2", n)
	}

	rec = testutil.Serve(r, testutil.JSONRequest(t, "POST", "/9999/workgroups_bulk", map[string]any{"groups": map[string][]string{}}))
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown project status = %d, want 404", rec.Code)
	}
}
