package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	seqstore "github.com/dalemusser/groupwork/internal/app/store/sequences"
	"github.com/dalemusser/groupwork/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/mongo"
)

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db  *mongo.Database
	seq *seqstore.Store
	t   *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, seq: seqstore.New(db), t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

func (f *Fixtures) nextID(ctx context.Context, name string) int64 {
	f.t.Helper()
	id, err := f.seq.Next(ctx, name)
	if err != nil {
		f.t.Fatalf("allocate %s id: %v", name, err)
	}
	return id
}

func (f *Fixtures) insert(ctx context.Context, coll string, doc any) {
	f.t.Helper()
	if _, err := f.db.Collection(coll).InsertOne(ctx, doc); err != nil {
		f.t.Fatalf("failed to create test %s: %v", coll, err)
	}
}

// CreateOrganization creates a test organization with the given name.
func (f *Fixtures) CreateOrganization(ctx context.Context, name string) models.Organization {
	f.t.Helper()

	now := time.Now().UTC()
	org := models.Organization{
		ID:          f.nextID(ctx, seqstore.Organizations),
		Name:        name,
		NameCI:      text.Fold(name),
		DisplayName: name,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	f.insert(ctx, "organizations", org)
	return org
}

// CreateUser creates an active test user.
func (f *Fixtures) CreateUser(ctx context.Context, username, email string) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	u := models.User{
		ID:        f.nextID(ctx, seqstore.Users),
		Username:  username,
		Email:     email,
		EmailCI:   models.NormalizeEmail(email),
		FirstName: username,
		LastName:  "Tester",
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.insert(ctx, "users", u)
	return u
}

// CreateEnrolledUser creates a user with an active enrollment in courseID.
func (f *Fixtures) CreateEnrolledUser(ctx context.Context, courseID, username string) models.User {
	f.t.Helper()
	u := f.CreateUser(ctx, username, username+"@example.com")
	f.Enroll(ctx, courseID, u.ID, true)
	return u
}

// Enroll records an enrollment of userID in courseID.
func (f *Fixtures) Enroll(ctx context.Context, courseID string, userID int64, active bool) models.Enrollment {
	f.t.Helper()

	e := models.Enrollment{
		ID:        f.nextID(ctx, seqstore.Enrollments),
		CourseID:  courseID,
		UserID:    userID,
		IsActive:  active,
		Mode:      "honor",
		CreatedAt: time.Now().UTC(),
	}
	f.insert(ctx, "course_enrollments", e)
	return e
}

// CreateGroup creates an auxiliary platform group.
func (f *Fixtures) CreateGroup(ctx context.Context, name string) models.Group {
	f.t.Helper()

	g := models.Group{
		ID:        f.nextID(ctx, seqstore.Groups),
		Name:      name,
		Type:      "series",
		CreatedAt: time.Now().UTC(),
	}
	f.insert(ctx, "groups", g)
	return g
}

// CreateProject creates a project without an organization.
func (f *Fixtures) CreateProject(ctx context.Context, courseID, contentID string) models.Project {
	f.t.Helper()

	now := time.Now().UTC()
	p := models.Project{
		ID:        f.nextID(ctx, seqstore.Projects),
		CourseID:  courseID,
		ContentID: contentID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.insert(ctx, "projects", p)
	return p
}

// CreateWorkgroup creates a workgroup in project without a cohort.
func (f *Fixtures) CreateWorkgroup(ctx context.Context, p models.Project, name string) models.Workgroup {
	f.t.Helper()

	now := time.Now().UTC()
	w := models.Workgroup{
		ID:        f.nextID(ctx, seqstore.Workgroups),
		Name:      name,
		ProjectID: p.ID,
		CourseID:  p.CourseID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.insert(ctx, "workgroups", w)
	return w
}

// AddMember inserts a membership row directly, bypassing cohort sync.
func (f *Fixtures) AddMember(ctx context.Context, w models.Workgroup, userID int64) models.WorkgroupUser {
	f.t.Helper()

	m := models.WorkgroupUser{
		ID:          f.nextID(ctx, seqstore.WorkgroupUsers),
		WorkgroupID: w.ID,
		ProjectID:   w.ProjectID,
		CourseID:    w.CourseID,
		UserID:      userID,
		CreatedAt:   time.Now().UTC(),
	}
	f.insert(ctx, "workgroup_users", m)
	return m
}

// CreateCohort creates a cohort in courseID and places userIDs in it.
func (f *Fixtures) CreateCohort(ctx context.Context, courseID, name, assignment string, userIDs ...int64) models.Cohort {
	f.t.Helper()

	now := time.Now().UTC()
	c := models.Cohort{
		ID:             f.nextID(ctx, seqstore.Cohorts),
		CourseID:       courseID,
		Name:           name,
		GroupType:      models.CohortGroupType,
		AssignmentType: assignment,
		CreatedAt:      now,
	}
	f.insert(ctx, "course_user_groups", c)
	for _, uid := range userIDs {
		f.insert(ctx, "cohort_memberships", models.CohortMembership{
			CourseID: courseID, UserID: uid, CohortID: c.ID, CreatedAt: now,
		})
		f.insert(ctx, "course_user_group_users", models.CohortGroupUser{CohortID: c.ID, UserID: uid})
	}
	return c
}

// CreateWorkgroupCohort creates the cohort mirroring w with the given members.
func (f *Fixtures) CreateWorkgroupCohort(ctx context.Context, w models.Workgroup, userIDs ...int64) models.Cohort {
	f.t.Helper()
	return f.CreateCohort(ctx, w.CourseID, w.CohortName(), models.AssignmentRandom, userIDs...)
}

// CreateSubmission creates a submission by userID in w.
func (f *Fixtures) CreateSubmission(ctx context.Context, w models.Workgroup, userID int64, filename string) models.Submission {
	f.t.Helper()

	now := time.Now().UTC()
	id := f.nextID(ctx, seqstore.Submissions)
	s := models.Submission{
		ID:               id,
		WorkgroupID:      w.ID,
		UserID:           userID,
		DocumentID:       fmt.Sprintf("doc-%d", id),
		DocumentURL:      fmt.Sprintf("/media/group_work/%d/abc%d/%s", w.ID, id, filename),
		DocumentMimeType: "application/pdf",
		DocumentFilename: filename,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	f.insert(ctx, "workgroup_submissions", s)
	return s
}

// CreateSubmissionReview creates a review of submission s.
func (f *Fixtures) CreateSubmissionReview(ctx context.Context, s models.Submission, reviewer string) models.SubmissionReview {
	f.t.Helper()

	now := time.Now().UTC()
	r := models.SubmissionReview{
		ID:           f.nextID(ctx, seqstore.SubmissionReviews),
		SubmissionID: s.ID,
		Reviewer:     reviewer,
		Question:     "Quality?",
		Answer:       "Good",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	f.insert(ctx, "workgroup_submission_reviews", r)
	return r
}

// CreateWorkgroupReview creates a review of workgroup w.
func (f *Fixtures) CreateWorkgroupReview(ctx context.Context, w models.Workgroup, reviewer string) models.WorkgroupReview {
	f.t.Helper()

	now := time.Now().UTC()
	r := models.WorkgroupReview{
		ID:          f.nextID(ctx, seqstore.WorkgroupReviews),
		WorkgroupID: w.ID,
		Reviewer:    reviewer,
		Question:    "Collaboration?",
		Answer:      "Strong",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	f.insert(ctx, "workgroup_reviews", r)
	return r
}

// CreatePeerReview creates a review of userID within workgroup w.
func (f *Fixtures) CreatePeerReview(ctx context.Context, w models.Workgroup, userID int64, reviewer string) models.PeerReview {
	f.t.Helper()

	now := time.Now().UTC()
	r := models.PeerReview{
		ID:          f.nextID(ctx, seqstore.PeerReviews),
		WorkgroupID: w.ID,
		UserID:      userID,
		Reviewer:    reviewer,
		Question:    "Contribution?",
		Answer:      "High",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	f.insert(ctx, "workgroup_peer_reviews", r)
	return r
}
