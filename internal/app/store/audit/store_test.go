package audit_test

import (
	"testing"
	"time"

	"github.com/dalemusser/groupwork/internal/app/store/audit"
	"github.com/dalemusser/groupwork/internal/testutil"
)

func TestStore_Log(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	userID := int64(42)
	event := audit.Event{
		CourseID:  "c1",
		Category:  audit.CategoryAdmin,
		EventType: audit.EventMemberAddedToWorkgroup,
		UserID:    &userID,
		IP:        "192.168.1.1",
		UserAgent: "TestBrowser/1.0",
		Success:   true,
	}

	if err := store.Log(ctx, event); err != nil {
		t.Fatalf("Log failed: %v", err)
	}

	events, err := store.GetByUser(ctx, userID, 10)
	if err != nil {
		t.Fatalf("GetByUser failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].ID.IsZero() {
		t.Error("expected ID to be auto-generated")
	}
	if events[0].Timestamp.IsZero() {
		t.Error("expected Timestamp to be set")
	}
}

func TestStore_Log_WithDetails(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	event := audit.Event{
		CourseID:  "c1",
		Category:  audit.CategoryCohort,
		EventType: audit.EventCohortUserAddRequested,
		Success:   true,
		Details: map[string]string{
			"cohort_name":          "Group Project 1 Workgroup 2 (A)",
			"previous_cohort_name": "Default Group",
		},
	}
	if err := store.Log(ctx, event); err != nil {
		t.Fatalf("Log failed: %v", err)
	}

	events, err := store.GetByCourse(ctx, "c1", 10)
	if err != nil {
		t.Fatalf("GetByCourse failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if got := events[0].Details["previous_cohort_name"]; got != "Default Group" {
		t.Errorf("previous_cohort_name: got %q, want %q", got, "Default Group")
	}
}

func TestStore_GetByUser_Limit(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	userID := int64(7)
	for i := 0; i < 5; i++ {
		if err := store.Log(ctx, audit.Event{
			Category:  audit.CategoryAdmin,
			EventType: audit.EventMemberAddedToWorkgroup,
			UserID:    &userID,
			Success:   true,
		}); err != nil {
			t.Fatalf("Log failed: %v", err)
		}
	}

	events, err := store.GetByUser(ctx, userID, 3)
	if err != nil {
		t.Fatalf("GetByUser failed: %v", err)
	}
	if len(events) != 3 {
		t.Errorf("expected 3 events, got %d", len(events))
	}
}

func TestStore_GetRecent_Empty(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	events, err := store.GetRecent(ctx, 10)
	if err != nil {
		t.Fatalf("GetRecent failed: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("expected 0 events, got %d", len(events))
	}
}

func TestStore_Query_Filters(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	org := int64(3)
	seed := []audit.Event{
		{CourseID: "c1", Category: audit.CategoryAdmin, EventType: audit.EventWorkgroupCreated, Success: true},
		{CourseID: "c1", Category: audit.CategoryCohort, EventType: audit.EventCohortCreated, Success: true},
		{CourseID: "c2", Category: audit.CategoryAdmin, EventType: audit.EventWorkgroupDeleted, Success: true},
		{OrganizationID: &org, Category: audit.CategoryAdmin, EventType: audit.EventOrganizationDeleted, Success: true},
		{CourseID: "c1", Category: audit.CategoryGrades, EventType: audit.EventScorePublished, Success: true},
	}
	for _, e := range seed {
		if err := store.Log(ctx, e); err != nil {
			t.Fatalf("Log failed: %v", err)
		}
	}

	tests := []struct {
		name   string
		filter audit.QueryFilter
		want   int
	}{
		{"all", audit.QueryFilter{}, 5},
		{"by course", audit.QueryFilter{CourseID: "c1"}, 3},
		{"by category", audit.QueryFilter{Category: audit.CategoryAdmin}, 3},
		{"by event type", audit.QueryFilter{EventType: audit.EventCohortCreated}, 1},
		{"by organization", audit.QueryFilter{OrganizationID: &org}, 1},
		{"course and category", audit.QueryFilter{CourseID: "c1", Category: audit.CategoryAdmin}, 1},
		{"with offset", audit.QueryFilter{Offset: 4}, 1},
	}
	for _, tt := range tests {
		events, err := store.Query(ctx, tt.filter)
		if err != nil {
			t.Fatalf("%s: Query failed: %v", tt.name, err)
		}
		if len(events) != tt.want {
			t.Errorf("%s: got %d events, want %d", tt.name, len(events), tt.want)
		}
	}
}

func TestStore_Query_ByTimeRange(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	now := time.Now().UTC()
	old := now.Add(-48 * time.Hour)
	for _, ts := range []time.Time{old, now} {
		if err := store.Log(ctx, audit.Event{
			Timestamp: ts,
			Category:  audit.CategoryAdmin,
			EventType: audit.EventProjectCreated,
			Success:   true,
		}); err != nil {
			t.Fatalf("Log failed: %v", err)
		}
	}

	start := now.Add(-time.Hour)
	events, err := store.Query(ctx, audit.QueryFilter{StartTime: &start})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(events) != 1 {
		t.Errorf("expected 1 recent event, got %d", len(events))
	}

	end := now.Add(-24 * time.Hour)
	events, err = store.Query(ctx, audit.QueryFilter{EndTime: &end})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(events) != 1 {
		t.Errorf("expected 1 old event, got %d", len(events))
	}
}

func TestStore_CountByFilter(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	for i := 0; i < 3; i++ {
		if err := store.Log(ctx, audit.Event{
			CourseID:  "c1",
			Category:  audit.CategoryCohort,
			EventType: audit.EventCohortUserAddRequested,
			Success:   true,
		}); err != nil {
			t.Fatalf("Log failed: %v", err)
		}
	}

	count, err := store.CountByFilter(ctx, audit.QueryFilter{Category: audit.CategoryCohort})
	if err != nil {
		t.Fatalf("CountByFilter failed: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3, got %d", count)
	}

	count, err = store.CountByFilter(ctx, audit.QueryFilter{CourseID: "none"})
	if err != nil {
		t.Fatalf("CountByFilter failed: %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0, got %d", count)
	}
}

func TestStore_Log_FailedEvent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := store.Log(ctx, audit.Event{
		Category:      audit.CategoryGrades,
		EventType:     audit.EventScorePublished,
		Success:       false,
		FailureReason: "workgroup has no members",
	}); err != nil {
		t.Fatalf("Log failed: %v", err)
	}

	events, err := store.GetRecent(ctx, 10)
	if err != nil {
		t.Fatalf("GetRecent failed: %v", err)
	}
	if len(events) != 1 || events[0].Success || events[0].FailureReason == "" {
		t.Errorf("got %+v", events)
	}
}
