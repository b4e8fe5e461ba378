// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"strings"

	"github.com/dalemusser/groupwork/internal/app/system/cohortsync"
	"github.com/dalemusser/groupwork/internal/app/system/docstore"
	"github.com/dalemusser/groupwork/internal/app/system/timeouts"
	"github.com/dalemusser/groupwork/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// EnvPrefix prefixes every app environment variable (GROUPWORK_MONGO_URI, ...).
const EnvPrefix = "GROUPWORK"

// appConfigKeys defines the configuration keys for the group-work service.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, storage_type, etc.
//   - Environment variables: GROUPWORK_MONGO_URI, GROUPWORK_STORAGE_TYPE, etc.
//   - Command-line flags: --mongo_uri, --storage_type, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "groupwork", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},

	// Submission document storage
	{Name: "storage_type", Default: "local", Desc: "Document storage backend: 'local' or 's3'"},
	{Name: "storage_local_path", Default: "./media", Desc: "Local media root for submission documents"},
	{Name: "storage_s3_region", Default: "", Desc: "AWS region for S3"},
	{Name: "storage_s3_bucket", Default: "", Desc: "S3 bucket name"},
	{Name: "storage_s3_prefix", Default: "", Desc: "S3 key prefix"},
	{Name: "document_url_ttl", Default: "336h", Desc: "Lifetime of presigned document links (e.g., 336h)"},

	// Cohorts
	{Name: "default_assignment_type", Default: models.AssignmentRandom, Desc: "Assignment type of new cohorts: 'random' or 'manual'"},

	// Audit logging settings
	{Name: "audit_log_admin", Default: "all", Desc: "Project/workgroup event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_cohort", Default: "all", Desc: "Cohort event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_grades", Default: "log", Desc: "Published score logging: 'all' (db+log), 'db', 'log', or 'off'"},

	// CORS
	{Name: "cors_allowed_origins", Default: "", Desc: "Comma-separated origins allowed to call the API"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, GROUPWORK_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, EnvPrefix, appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		StorageType:      strings.ToLower(strings.TrimSpace(appValues.String("storage_type"))),
		StorageLocalPath: appValues.String("storage_local_path"),
		StorageS3Region:  appValues.String("storage_s3_region"),
		StorageS3Bucket:  appValues.String("storage_s3_bucket"),
		StorageS3Prefix:  appValues.String("storage_s3_prefix"),
		DocumentURLTTL:   appValues.Duration("document_url_ttl", docstore.DefaultLinkTTL),

		DefaultAssignmentType: appValues.String("default_assignment_type"),

		AuditLogAdmin:  appValues.String("audit_log_admin"),
		AuditLogCohort: appValues.String("audit_log_cohort"),
		AuditLogGrades: appValues.String("audit_log_grades"),

		CORSAllowedOrigins: splitList(appValues.String("cors_allowed_origins")),
	}

	// Per-operation timeouts are tuned with GROUPWORK_TIMEOUT_* variables.
	if n := timeouts.ConfigureFromEnv(EnvPrefix + "_"); n > 0 {
		logger.Info("timeouts overridden from environment", zap.Int("count", n), zap.Any("timeouts", timeouts.Current()))
	}

	return coreCfg, appCfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ValidateConfig performs app-specific config validation.
//
// The MongoDB URI format, the storage backend and the default assignment
// type are checked here so misconfiguration aborts startup before any
// connection is attempted.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	if strings.TrimSpace(appCfg.MongoDatabase) == "" {
		return fmt.Errorf("mongo_database must be set")
	}

	switch appCfg.StorageType {
	case docstore.TypeLocal, "":
		if strings.TrimSpace(appCfg.StorageLocalPath) == "" {
			return fmt.Errorf("storage_type local requires storage_local_path")
		}
	case docstore.TypeS3:
		if appCfg.StorageS3Bucket == "" || appCfg.StorageS3Region == "" {
			return fmt.Errorf("storage_type s3 requires storage_s3_region and storage_s3_bucket")
		}
	default:
		return fmt.Errorf("storage_type must be 'local' or 's3', got %q", appCfg.StorageType)
	}

	if appCfg.DocumentURLTTL <= 0 {
		return fmt.Errorf("document_url_ttl must be positive, got %s", appCfg.DocumentURLTTL)
	}

	if _, err := cohortsync.ParseAssignmentType(appCfg.DefaultAssignmentType, ""); err != nil {
		return fmt.Errorf("default_assignment_type: %w", err)
	}

	for _, v := range []string{appCfg.AuditLogAdmin, appCfg.AuditLogCohort, appCfg.AuditLogGrades} {
		switch v {
		case "all", "db", "log", "off":
		default:
			return fmt.Errorf("audit log setting must be all, db, log or off, got %q", v)
		}
	}
	return nil
}
