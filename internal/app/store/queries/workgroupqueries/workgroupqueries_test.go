package workgroupqueries_test

import (
	"errors"
	"testing"

	"github.com/dalemusser/groupwork/internal/app/store/queries/workgroupqueries"
	"github.com/dalemusser/groupwork/internal/domain/models"
	"github.com/dalemusser/groupwork/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestSummaries(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)

	p := fx.CreateProject(ctx, "course-1", "unit-1")
	other := fx.CreateProject(ctx, "course-1", "unit-2")
	a := fx.CreateWorkgroup(ctx, p, "Alpha")
	b := fx.CreateWorkgroup(ctx, p, "Beta")
	fx.CreateWorkgroup(ctx, other, "Gamma")

	got, err := workgroupqueries.Summaries(ctx, db, p.ID)
	if err != nil {
		t.Fatalf("Summaries failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d summaries, want 2", len(got))
	}
	if got[0].ID != a.ID || got[1].ID != b.ID {
		t.Errorf("ids = [%d %d], want [%d %d]", got[0].ID, got[1].ID, a.ID, b.ID)
	}
	if got[0].Name != "Alpha" || got[0].ProjectID != p.ID {
		t.Errorf("summary = %+v", got[0])
	}

	empty, err := workgroupqueries.Summaries(ctx, db, 999)
	if err != nil {
		t.Fatalf("Summaries failed: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Errorf("got %v, want empty non-nil slice", empty)
	}
}

func TestDetails(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)

	org := fx.CreateOrganization(ctx, "North High")
	p := fx.CreateProject(ctx, "course-1", "unit-1")
	w := fx.CreateWorkgroup(ctx, p, "Alpha")
	empty := fx.CreateWorkgroup(ctx, p, "Beta")

	u2 := fx.CreateUser(ctx, "zed", "zed@example.com")
	u1 := fx.CreateUser(ctx, "amy", "amy@example.com")
	if _, err := db.Collection("users").UpdateOne(ctx, bson.M{"_id": u1.ID},
		bson.M{"$set": bson.M{"organization_ids": []int64{org.ID}}}); err != nil {
		t.Fatalf("set organizations: %v", err)
	}
	fx.AddMember(ctx, w, u2.ID)
	fx.AddMember(ctx, w, u1.ID)
	s := fx.CreateSubmission(ctx, w, u1.ID, "report.pdf")

	got, err := workgroupqueries.Details(ctx, db, p.ID)
	if err != nil {
		t.Fatalf("Details failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d workgroups, want 2", len(got))
	}

	d := got[0]
	if d.ID != w.ID {
		t.Fatalf("first workgroup = %d, want %d", d.ID, w.ID)
	}
	if len(d.Users) != 2 || d.Users[0].ID != u2.ID || d.Users[1].ID != u1.ID {
		t.Fatalf("users = %+v, want ordered by id", d.Users)
	}
	amy := d.Users[1]
	if len(amy.Organizations) != 1 || amy.Organizations[0].ID != org.ID || amy.Organizations[0].DisplayName != org.DisplayName {
		t.Errorf("organizations = %+v", amy.Organizations)
	}
	if len(d.Users[0].Organizations) != 0 {
		t.Errorf("zed organizations = %+v, want none", d.Users[0].Organizations)
	}
	if len(d.Submissions) != 1 || d.Submissions[0].ID != s.ID {
		t.Errorf("submissions = %+v", d.Submissions)
	}

	if got[1].ID != empty.ID || len(got[1].Users) != 0 || len(got[1].Submissions) != 0 {
		t.Errorf("empty workgroup = %+v", got[1])
	}
}

func TestGet(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)

	p := fx.CreateProject(ctx, "course-1", "unit-1")
	w := fx.CreateWorkgroup(ctx, p, "Alpha")
	g := fx.CreateGroup(ctx, "Discussion")
	if _, err := db.Collection("workgroups").UpdateOne(ctx, bson.M{"_id": w.ID},
		bson.M{"$set": bson.M{"group_ids": []int64{g.ID}}}); err != nil {
		t.Fatalf("attach group: %v", err)
	}
	u := fx.CreateUser(ctx, "amy", "amy@example.com")
	fx.AddMember(ctx, w, u.ID)
	s := fx.CreateSubmission(ctx, w, u.ID, "report.pdf")
	wr := fx.CreateWorkgroupReview(ctx, w, "staff")
	pr := fx.CreatePeerReview(ctx, w, u.ID, "peer")

	v, err := workgroupqueries.Get(ctx, db, w.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if v.Name != "Alpha" || v.ProjectID != p.ID {
		t.Errorf("view = %+v", v.Summary)
	}
	if len(v.Groups) != 1 || v.Groups[0].ID != g.ID || v.Groups[0].Name != "Discussion" {
		t.Errorf("groups = %+v", v.Groups)
	}
	if len(v.Users) != 1 || v.Users[0].Username != "amy" {
		t.Errorf("users = %+v", v.Users)
	}
	if len(v.Submissions) != 1 || v.Submissions[0] != s.ID {
		t.Errorf("submissions = %v", v.Submissions)
	}
	if len(v.WorkgroupReviews) != 1 || v.WorkgroupReviews[0] != wr.ID {
		t.Errorf("workgroup_reviews = %v", v.WorkgroupReviews)
	}
	if len(v.PeerReviews) != 1 || v.PeerReviews[0] != pr.ID {
		t.Errorf("peer_reviews = %v", v.PeerReviews)
	}

	if _, err := workgroupqueries.Get(ctx, db, 999); !errors.Is(err, mongo.ErrNoDocuments) {
		t.Errorf("got %v, want ErrNoDocuments", err)
	}
}

func TestList(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)

	empty, err := workgroupqueries.List(ctx, db)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Errorf("empty list = %v, want non-nil empty slice", empty)
	}

	p := fx.CreateProject(ctx, "course-1", "unit-1")
	a := fx.CreateWorkgroup(ctx, p, "Alpha")
	b := fx.CreateWorkgroup(ctx, p, "Beta")
	u := fx.CreateUser(ctx, "amy", "amy@example.com")
	fx.AddMember(ctx, b, u.ID)

	vs, err := workgroupqueries.List(ctx, db)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(vs) != 2 || vs[0].ID != a.ID || vs[1].ID != b.ID {
		t.Fatalf("list = %+v", vs)
	}
	if len(vs[0].Users) != 0 || len(vs[1].Users) != 1 {
		t.Errorf("users = %d, %d; want 0, 1", len(vs[0].Users), len(vs[1].Users))
	}
}

func TestProjects(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)

	p1 := fx.CreateProject(ctx, "course-1", "unit-1")
	p2 := fx.CreateProject(ctx, "course-1", "unit-2")
	a := fx.CreateWorkgroup(ctx, p1, "A")
	b := fx.CreateWorkgroup(ctx, p1, "B")

	got, err := workgroupqueries.Projects(ctx, db, []models.Project{p1, p2})
	if err != nil {
		t.Fatalf("Projects failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d, want 2", len(got))
	}
	if len(got[0].Workgroups) != 2 || got[0].Workgroups[0] != a.ID || got[0].Workgroups[1] != b.ID {
		t.Errorf("p1 workgroups = %v", got[0].Workgroups)
	}
	if got[1].Workgroups == nil || len(got[1].Workgroups) != 0 {
		t.Errorf("p2 workgroups = %v, want empty", got[1].Workgroups)
	}
}
