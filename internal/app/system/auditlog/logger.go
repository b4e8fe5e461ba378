// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/dalemusser/groupwork/internal/app/store/audit"
	"github.com/dalemusser/groupwork/internal/domain/models"
	"go.uber.org/zap"
)

// Config holds audit logging configuration.
// Each value is one of "all" (MongoDB + zap), "db" (MongoDB only),
// "log" (zap only) or "off" (disabled).
type Config struct {
	// Admin controls project, workgroup, membership and cascade events.
	Admin string
	// Cohort controls cohort creation, deletion and membership requests.
	Cohort string
	// Grades controls published workgroup scores.
	Grades string
}

// Logger provides convenience methods for logging audit events.
// It logs to both MongoDB (via audit.Store) and structured logs (via zap).
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

type requestInfoKey struct{}

type requestInfo struct {
	ip        string
	userAgent string
}

// WithRequest attaches the caller's address and user agent to ctx so events
// logged further down the call chain carry them.
func WithRequest(ctx context.Context, r *http.Request) context.Context {
	return context.WithValue(ctx, requestInfoKey{}, requestInfo{
		ip:        getClientIP(r),
		userAgent: r.UserAgent(),
	})
}

// Middleware applies WithRequest to every request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(WithRequest(r.Context(), r)))
	})
}

// getClientIP extracts the client IP from the request.
func getClientIP(r *http.Request) string {
	// Check X-Forwarded-For header first (for reverse proxies)
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	// Check X-Real-IP header
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	// Fall back to RemoteAddr
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// logToZap logs the event to zap with consistent structure.
func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
	}

	if event.CourseID != "" {
		fields = append(fields, zap.String("course_id", event.CourseID))
	}
	if event.UserID != nil {
		fields = append(fields, zap.Int64("user_id", *event.UserID))
	}
	if event.OrganizationID != nil {
		fields = append(fields, zap.Int64("organization_id", *event.OrganizationID))
	}
	if event.IP != "" {
		fields = append(fields, zap.String("ip", event.IP))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an audit event based on configuration.
// If the logger is nil, this is a no-op (allows tests to use nil audit logger).
// Logging destination is controlled by config: "all", "db", "log", or "off".
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	var setting string
	switch event.Category {
	case audit.CategoryAdmin:
		setting = l.config.Admin
	case audit.CategoryCohort:
		setting = l.config.Cohort
	case audit.CategoryGrades:
		setting = l.config.Grades
	default:
		setting = "all"
	}
	if setting == "off" {
		return
	}

	if info, ok := ctx.Value(requestInfoKey{}).(requestInfo); ok {
		if event.IP == "" {
			event.IP = info.ip
		}
		if event.UserAgent == "" {
			event.UserAgent = info.userAgent
		}
	}

	if setting == "all" || setting == "log" {
		l.logToZap(event)
	}

	if setting == "all" || setting == "db" {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

// --- Project Events ---

// ProjectCreated logs a new project.
func (l *Logger) ProjectCreated(ctx context.Context, p models.Project) {
	l.project(ctx, audit.EventProjectCreated, p)
}

// ProjectUpdated logs a project update.
func (l *Logger) ProjectUpdated(ctx context.Context, p models.Project) {
	l.project(ctx, audit.EventProjectUpdated, p)
}

// ProjectDeleted logs a project deletion and how many workgroups went with it.
func (l *Logger) ProjectDeleted(ctx context.Context, p models.Project, workgroups int) {
	l.Log(ctx, audit.Event{
		Category:       audit.CategoryAdmin,
		EventType:      audit.EventProjectDeleted,
		CourseID:       p.CourseID,
		OrganizationID: p.OrganizationID,
		Success:        true,
		Details: map[string]string{
			"project_id": i64(p.ID),
			"content_id": p.ContentID,
			"workgroups": strconv.Itoa(workgroups),
		},
	})
}

func (l *Logger) project(ctx context.Context, eventType string, p models.Project) {
	l.Log(ctx, audit.Event{
		Category:       audit.CategoryAdmin,
		EventType:      eventType,
		CourseID:       p.CourseID,
		OrganizationID: p.OrganizationID,
		Success:        true,
		Details: map[string]string{
			"project_id": i64(p.ID),
			"content_id": p.ContentID,
		},
	})
}

// --- Workgroup Events ---

// WorkgroupCreated logs a new workgroup.
func (l *Logger) WorkgroupCreated(ctx context.Context, w models.Workgroup) {
	l.workgroup(ctx, audit.EventWorkgroupCreated, w, nil)
}

// WorkgroupUpdated logs a workgroup rename or move.
func (l *Logger) WorkgroupUpdated(ctx context.Context, w models.Workgroup, fieldsChanged string) {
	l.workgroup(ctx, audit.EventWorkgroupUpdated, w, map[string]string{"fields_changed": fieldsChanged})
}

// WorkgroupDeleted logs a workgroup deletion. reason tells explicit deletes
// ("api") apart from cascades ("empty", "project", "course", "roster").
func (l *Logger) WorkgroupDeleted(ctx context.Context, w models.Workgroup, reason string) {
	l.workgroup(ctx, audit.EventWorkgroupDeleted, w, map[string]string{"reason": reason})
}

func (l *Logger) workgroup(ctx context.Context, eventType string, w models.Workgroup, extra map[string]string) {
	details := map[string]string{
		"workgroup_id":   i64(w.ID),
		"workgroup_name": w.Name,
		"project_id":     i64(w.ProjectID),
	}
	for k, v := range extra {
		details[k] = v
	}
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: eventType,
		CourseID:  w.CourseID,
		Success:   true,
		Details:   details,
	})
}

// MemberAddedToWorkgroup logs a user joining a workgroup.
func (l *Logger) MemberAddedToWorkgroup(ctx context.Context, w models.Workgroup, userID int64) {
	l.member(ctx, audit.EventMemberAddedToWorkgroup, w, userID)
}

// MemberRemovedFromWorkgroup logs a user leaving a workgroup.
func (l *Logger) MemberRemovedFromWorkgroup(ctx context.Context, w models.Workgroup, userID int64) {
	l.member(ctx, audit.EventMemberRemovedFromWorkgroup, w, userID)
}

func (l *Logger) member(ctx context.Context, eventType string, w models.Workgroup, userID int64) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: eventType,
		CourseID:  w.CourseID,
		UserID:    &userID,
		Success:   true,
		Details: map[string]string{
			"workgroup_id": i64(w.ID),
			"project_id":   i64(w.ProjectID),
		},
	})
}

// SubmissionReassigned logs a submission handed to another member.
func (l *Logger) SubmissionReassigned(ctx context.Context, w models.Workgroup, submissionID, fromUserID, toUserID int64) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventSubmissionReassigned,
		CourseID:  w.CourseID,
		UserID:    &toUserID,
		Success:   true,
		Details: map[string]string{
			"workgroup_id":  i64(w.ID),
			"submission_id": i64(submissionID),
			"from_user_id":  i64(fromUserID),
		},
	})
}

// SubmissionDeleted logs a submission removed by a cascade or the API.
func (l *Logger) SubmissionDeleted(ctx context.Context, courseID string, s models.Submission) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventSubmissionDeleted,
		CourseID:  courseID,
		UserID:    &s.UserID,
		Success:   true,
		Details: map[string]string{
			"workgroup_id":  i64(s.WorkgroupID),
			"submission_id": i64(s.ID),
			"document_path": s.DocumentPath(),
		},
	})
}

// RosterProvisioned logs a completed bulk roster replacement.
func (l *Logger) RosterProvisioned(ctx context.Context, p models.Project, runID string, workgroups, users int) {
	l.Log(ctx, audit.Event{
		Category:       audit.CategoryAdmin,
		EventType:      audit.EventRosterProvisioned,
		CourseID:       p.CourseID,
		OrganizationID: p.OrganizationID,
		Success:        true,
		Details: map[string]string{
			"project_id": i64(p.ID),
			"run_id":     runID,
			"workgroups": strconv.Itoa(workgroups),
			"users":      strconv.Itoa(users),
		},
	})
}

// CourseDeleted logs the cleanup that follows a course deletion.
func (l *Logger) CourseDeleted(ctx context.Context, courseID string, projects, workgroups int) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventCourseDeleted,
		CourseID:  courseID,
		Success:   true,
		Details: map[string]string{
			"projects":   strconv.Itoa(projects),
			"workgroups": strconv.Itoa(workgroups),
		},
	})
}

// OrganizationDeleted logs projects detached from a deleted organization.
func (l *Logger) OrganizationDeleted(ctx context.Context, orgID int64, projects int) {
	l.Log(ctx, audit.Event{
		Category:       audit.CategoryAdmin,
		EventType:      audit.EventOrganizationDeleted,
		OrganizationID: &orgID,
		Success:        true,
		Details: map[string]string{
			"projects": strconv.Itoa(projects),
		},
	})
}

// UploadsRemoved logs a maintenance sweep of submissions by filename.
func (l *Logger) UploadsRemoved(ctx context.Context, filename string, count int, actor string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventUploadsRemoved,
		Actor:     actor,
		Success:   true,
		Details: map[string]string{
			"filename": filename,
			"count":    strconv.Itoa(count),
		},
	})
}

// --- Cohort Events ---

// CohortCreated logs a cohort created for a workgroup.
func (l *Logger) CohortCreated(ctx context.Context, c models.Cohort, workgroupID int64) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryCohort,
		EventType: audit.EventCohortCreated,
		CourseID:  c.CourseID,
		Success:   true,
		Details: map[string]string{
			"cohort_id":       i64(c.ID),
			"cohort_name":     c.Name,
			"assignment_type": c.AssignmentType,
			"workgroup_id":    i64(workgroupID),
		},
	})
}

// CohortDeleted logs a removed cohort.
func (l *Logger) CohortDeleted(ctx context.Context, c models.Cohort) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryCohort,
		EventType: audit.EventCohortDeleted,
		CourseID:  c.CourseID,
		Success:   true,
		Details: map[string]string{
			"cohort_id":   i64(c.ID),
			"cohort_name": c.Name,
		},
	})
}

// CohortUserAddRequested logs a user placed in a cohort during bulk
// provisioning, with the cohort they were in before (if any).
func (l *Logger) CohortUserAddRequested(ctx context.Context, userID int64, c models.Cohort, previous *models.Cohort, runID string) {
	details := map[string]string{
		"cohort_id":   i64(c.ID),
		"cohort_name": c.Name,
		"run_id":      runID,
	}
	if previous != nil {
		details["previous_cohort_id"] = i64(previous.ID)
		details["previous_cohort_name"] = previous.Name
	}
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryCohort,
		EventType: audit.EventCohortUserAddRequested,
		CourseID:  c.CourseID,
		UserID:    &userID,
		Success:   true,
		Details:   details,
	})
}

// --- Grade Events ---

// ScorePublished logs a workgroup grade recorded for one member.
func (l *Logger) ScorePublished(ctx context.Context, courseID, contentID string, userID, workgroupID int64, grade, maxGrade float64) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryGrades,
		EventType: audit.EventScorePublished,
		CourseID:  courseID,
		UserID:    &userID,
		Success:   true,
		Details: map[string]string{
			"content_id":   contentID,
			"workgroup_id": i64(workgroupID),
			"grade":        strconv.FormatFloat(grade, 'f', -1, 64),
			"max_grade":    strconv.FormatFloat(maxGrade, 'f', -1, 64),
		},
	})
}

// --- Helper functions ---

func i64(v int64) string {
	return strconv.FormatInt(v, 10)
}
