// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). They represent *app-level*
// configuration, not WAFFLE core configuration.
//
// WAFFLE's CoreConfig handles framework-level settings like:
//   - HTTP/HTTPS ports and TLS configuration
//   - Logging level and format
//   - Request body size limits
//
// AppConfig carries what is specific to the group-work service: the
// MongoDB connection, where submission documents live, cohort defaults
// and audit settings.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Submission document storage
	StorageType      string // "local" or "s3"
	StorageLocalPath string // Root of the local media directory
	StorageS3Region  string
	StorageS3Bucket  string
	StorageS3Prefix  string

	// DocumentURLTTL is the lifetime of presigned S3 document links.
	DocumentURLTTL time.Duration

	// DefaultAssignmentType is used for cohorts created without an explicit type.
	DefaultAssignmentType string

	// Audit logging: "all" (db+log), "db", "log" or "off"
	AuditLogAdmin  string
	AuditLogCohort string
	AuditLogGrades string

	// CORSAllowedOrigins lists origins allowed to call the API. Empty disables CORS.
	CORSAllowedOrigins []string
}
