package bootstrap

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/groupwork/internal/testutil"
	"go.uber.org/zap"
)

func validConfig() AppConfig {
	return AppConfig{
		MongoURI:              "mongodb://localhost:27017",
		MongoDatabase:         "groupwork",
		StorageType:           "local",
		StorageLocalPath:      "./media",
		DocumentURLTTL:        14 * 24 * time.Hour,
		DefaultAssignmentType: "random",
		AuditLogAdmin:         "all",
		AuditLogCohort:        "all",
		AuditLogGrades:        "log",
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*AppConfig)
		wantErr string
	}{
		{"valid", func(*AppConfig) {}, ""},
		{"bad uri", func(c *AppConfig) { c.MongoURI = "http://nope" }, "invalid MongoDB URI"},
		{"no database", func(c *AppConfig) { c.MongoDatabase = " " }, "mongo_database"},
		{"unknown storage", func(c *AppConfig) { c.StorageType = "ftp" }, "storage_type"},
		{"s3 without bucket", func(c *AppConfig) { c.StorageType = "s3"; c.StorageS3Region = "us-east-1" }, "storage_s3_bucket"},
		{"s3 complete", func(c *AppConfig) {
			c.StorageType, c.StorageS3Region, c.StorageS3Bucket = "s3", "us-east-1", "docs"
		}, ""},
		{"zero ttl", func(c *AppConfig) { c.DocumentURLTTL = 0 }, "document_url_ttl"},
		{"bad assignment", func(c *AppConfig) { c.DefaultAssignmentType = "lottery" }, "default_assignment_type"},
		{"bad audit mode", func(c *AppConfig) { c.AuditLogCohort = "verbose" }, "audit log"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := ValidateConfig(nil, cfg, zap.NewNop())
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" https://a.example.com, ,https://b.example.com ")
	if len(got) != 2 || got[0] != "https://a.example.com" || got[1] != "https://b.example.com" {
		t.Errorf("splitList = %q", got)
	}
	if splitList("") != nil {
		t.Error("empty list should be nil")
	}
}

func TestAPIRoutes_Mounted(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := validConfig()
	cfg.AuditLogAdmin, cfg.AuditLogCohort, cfg.AuditLogGrades = "off", "off", "off"
	h := apiRoutes(db, testutil.NewRecordingDocStore(), cfg, zap.NewNop())

	for _, path := range []string{
		"/projects", "/workgroups", "/submissions",
		"/workgroup_reviews", "/submission_reviews", "/peer_reviews",
	} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, rec.Code)
		}
		if strings.TrimSpace(rec.Body.String()) != "[]" {
			t.Errorf("GET %s body = %q, want []", path, rec.Body.String())
		}
	}
}

func TestCORS(t *testing.T) {
	mw := corsMiddleware([]string{"https://lms.example.com"})
	h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodOptions, "/api/projects", nil)
	req.Header.Set("Origin", "https://lms.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://lms.example.com" {
		t.Errorf("Allow-Origin = %q", got)
	}
}
