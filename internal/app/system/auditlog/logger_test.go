package auditlog_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/groupwork/internal/app/store/audit"
	"github.com/dalemusser/groupwork/internal/app/system/auditlog"
	"github.com/dalemusser/groupwork/internal/domain/models"
	"github.com/dalemusser/groupwork/internal/testutil"
	"go.uber.org/zap"
)

func TestLogger_NilLogger(t *testing.T) {
	// nil logger should be a no-op (not panic)
	var logger *auditlog.Logger
	ctx, cancel := testutil.TestContext()
	defer cancel()

	logger.Log(ctx, audit.Event{EventType: "test"})
	logger.MemberAddedToWorkgroup(ctx, models.Workgroup{ID: 1}, 2)
	logger.CohortUserAddRequested(ctx, 2, models.Cohort{ID: 3}, nil, "run")
}

func TestLogger_Log_Config(t *testing.T) {
	tests := []struct {
		setting string
		wantDB  int
	}{
		{"off", 0},
		{"log", 0},
		{"db", 1},
		{"all", 1},
	}
	for _, tt := range tests {
		t.Run(tt.setting, func(t *testing.T) {
			db := testutil.SetupTestDB(t)
			store := audit.New(db)
			ctx, cancel := testutil.TestContext()
			defer cancel()

			userID := int64(11)
			logger := auditlog.New(store, zap.NewNop(), auditlog.Config{
				Admin:  tt.setting,
				Cohort: tt.setting,
			})
			logger.MemberAddedToWorkgroup(ctx, models.Workgroup{ID: 5, ProjectID: 1, CourseID: "c1"}, userID)

			events, err := store.GetByUser(ctx, userID, 10)
			if err != nil {
				t.Fatalf("GetByUser failed: %v", err)
			}
			if len(events) != tt.wantDB {
				t.Errorf("got %d stored events, want %d", len(events), tt.wantDB)
			}
		})
	}
}

func TestLogger_CategoryFilteredByConfig(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	logger := auditlog.New(store, zap.NewNop(), auditlog.Config{
		Admin:  "off",
		Cohort: "db",
		Grades: "db",
	})

	c := models.Cohort{ID: 9, CourseID: "c1", Name: "Group Project 1 Workgroup 2 (A)"}
	logger.WorkgroupCreated(ctx, models.Workgroup{ID: 2, ProjectID: 1, CourseID: "c1", Name: "A"})
	logger.CohortCreated(ctx, c, 2)
	logger.ScorePublished(ctx, "c1", "unit", 4, 2, 80, 100)

	tests := []struct {
		category string
		want     int64
	}{
		{audit.CategoryAdmin, 0},
		{audit.CategoryCohort, 1},
		{audit.CategoryGrades, 1},
	}
	for _, tt := range tests {
		n, err := store.CountByFilter(ctx, audit.QueryFilter{Category: tt.category})
		if err != nil {
			t.Fatalf("CountByFilter failed: %v", err)
		}
		if n != tt.want {
			t.Errorf("%s: got %d, want %d", tt.category, n, tt.want)
		}
	}
}

func TestLogger_CohortUserAddRequested(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	logger := auditlog.New(store, zap.NewNop(), auditlog.Config{Cohort: "db"})

	prev := models.Cohort{ID: 1, CourseID: "c1", Name: "Default Group"}
	next := models.Cohort{ID: 2, CourseID: "c1", Name: "Group Project 1 Workgroup 3 (B)"}
	logger.CohortUserAddRequested(ctx, 7, next, &prev, "run-1")
	logger.CohortUserAddRequested(ctx, 8, next, nil, "run-1")

	events, err := store.GetByUser(ctx, 7, 10)
	if err != nil || len(events) != 1 {
		t.Fatalf("GetByUser(7): got %d events, %v", len(events), err)
	}
	d := events[0].Details
	if d["previous_cohort_name"] != "Default Group" || d["cohort_name"] != next.Name || d["run_id"] != "run-1" {
		t.Errorf("details: got %v", d)
	}

	events, _ = store.GetByUser(ctx, 8, 10)
	if len(events) != 1 {
		t.Fatalf("GetByUser(8): got %d events", len(events))
	}
	if _, ok := events[0].Details["previous_cohort_id"]; ok {
		t.Errorf("expected no previous cohort, got %v", events[0].Details)
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"x-forwarded-for wins", map[string]string{"X-Forwarded-For": "203.0.113.195, 10.0.0.1", "X-Real-IP": "192.168.1.1"}, "127.0.0.1:12345", "203.0.113.195"},
		{"x-real-ip", map[string]string{"X-Real-IP": "192.168.1.100"}, "127.0.0.1:12345", "192.168.1.100"},
		{"remote addr port stripped", nil, "10.0.0.5:12345", "10.0.0.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := testutil.SetupTestDB(t)
			store := audit.New(db)
			ctx, cancel := testutil.TestContext()
			defer cancel()

			logger := auditlog.New(store, zap.NewNop(), auditlog.Config{Admin: "db"})

			req := httptest.NewRequest("POST", "/", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			req.RemoteAddr = tt.remote

			h := auditlog.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				logger.MemberRemovedFromWorkgroup(r.Context(), models.Workgroup{ID: 1, CourseID: "c1"}, 3)
			}))
			h.ServeHTTP(httptest.NewRecorder(), req)

			events, _ := store.GetByUser(ctx, 3, 10)
			if len(events) != 1 {
				t.Fatalf("expected 1 event, got %d", len(events))
			}
			if events[0].IP != tt.want {
				t.Errorf("IP: got %q, want %q", events[0].IP, tt.want)
			}
		})
	}
}
