// internal/app/store/audit/store.go
package audit

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Event categories
const (
	CategoryAdmin  = "admin"
	CategoryCohort = "cohort"
	CategoryGrades = "grades"
)

// Admin event types
const (
	EventProjectCreated             = "project_created"
	EventProjectUpdated             = "project_updated"
	EventProjectDeleted             = "project_deleted"
	EventWorkgroupCreated           = "workgroup_created"
	EventWorkgroupUpdated           = "workgroup_updated"
	EventWorkgroupDeleted           = "workgroup_deleted"
	EventMemberAddedToWorkgroup     = "member_added_to_workgroup"
	EventMemberRemovedFromWorkgroup = "member_removed_from_workgroup"
	EventSubmissionReassigned       = "submission_reassigned"
	EventSubmissionDeleted          = "submission_deleted"
	EventRosterProvisioned          = "roster_provisioned"
	EventCourseDeleted              = "course_deleted"
	EventOrganizationDeleted        = "organization_deleted"
	EventUploadsRemoved             = "uploads_removed"
)

// Cohort event types
const (
	EventCohortCreated          = "cohort_created"
	EventCohortDeleted          = "cohort_deleted"
	EventCohortUserAddRequested = "cohort_user_add_requested"
)

// Grade event types
const (
	EventScorePublished = "score_published"
)

// Event represents an audit event.
type Event struct {
	ID             primitive.ObjectID `bson:"_id,omitempty"`
	Timestamp      time.Time          `bson:"timestamp"`
	CourseID       string             `bson:"course_id,omitempty"`
	OrganizationID *int64             `bson:"organization_id,omitempty"`

	// Event classification
	Category  string `bson:"category"`
	EventType string `bson:"event_type"`

	// Who
	UserID *int64 `bson:"user_id,omitempty"` // affected user
	Actor  string `bson:"actor,omitempty"`   // service or operator that performed the action

	// Context
	IP        string `bson:"ip,omitempty"`
	UserAgent string `bson:"user_agent,omitempty"`

	// Outcome
	Success       bool   `bson:"success"`
	FailureReason string `bson:"failure_reason,omitempty"`

	// Additional details (varies by event type)
	Details map[string]string `bson:"details,omitempty"`
}

// QueryFilter defines filters for querying audit events.
type QueryFilter struct {
	CourseID       string
	OrganizationID *int64
	UserID         *int64
	Category       string
	EventType      string
	StartTime      *time.Time
	EndTime        *time.Time
	Limit          int64
	Offset         int64
}

func (f QueryFilter) bson() bson.M {
	query := bson.M{}
	if f.CourseID != "" {
		query["course_id"] = f.CourseID
	}
	if f.OrganizationID != nil {
		query["organization_id"] = *f.OrganizationID
	}
	if f.UserID != nil {
		query["user_id"] = *f.UserID
	}
	if f.Category != "" {
		query["category"] = f.Category
	}
	if f.EventType != "" {
		query["event_type"] = f.EventType
	}

	// Time range
	if f.StartTime != nil || f.EndTime != nil {
		timeQuery := bson.M{}
		if f.StartTime != nil {
			timeQuery["$gte"] = *f.StartTime
		}
		if f.EndTime != nil {
			timeQuery["$lte"] = *f.EndTime
		}
		query["timestamp"] = timeQuery
	}
	return query
}

// Store manages audit event records.
type Store struct {
	c *mongo.Collection
}

// New creates a new audit Store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("audit_events")}
}

// Log records an audit event.
func (s *Store) Log(ctx context.Context, event Event) error {
	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_, err := s.c.InsertOne(ctx, event)
	return err
}

// Query retrieves audit events matching the given filter, newest first.
func (s *Store) Query(ctx context.Context, filter QueryFilter) ([]Event, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(limit).
		SetSkip(filter.Offset)

	cursor, err := s.c.Find(ctx, filter.bson(), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var events []Event
	if err := cursor.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// CountByFilter returns the count of events matching the filter.
func (s *Store) CountByFilter(ctx context.Context, filter QueryFilter) (int64, error) {
	return s.c.CountDocuments(ctx, filter.bson())
}

// GetByUser retrieves recent audit events for a specific user.
func (s *Store) GetByUser(ctx context.Context, userID int64, limit int64) ([]Event, error) {
	return s.Query(ctx, QueryFilter{
		UserID: &userID,
		Limit:  limit,
	})
}

// GetByCourse retrieves recent audit events for a course.
func (s *Store) GetByCourse(ctx context.Context, courseID string, limit int64) ([]Event, error) {
	return s.Query(ctx, QueryFilter{
		CourseID: courseID,
		Limit:    limit,
	})
}

// GetRecent retrieves the most recent audit events.
func (s *Store) GetRecent(ctx context.Context, limit int64) ([]Event, error) {
	return s.Query(ctx, QueryFilter{
		Limit: limit,
	})
}
