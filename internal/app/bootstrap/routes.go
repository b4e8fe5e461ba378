// internal/app/bootstrap/routes.go
package bootstrap

import (
	"context"
	"net/http"

	errorsfeature "github.com/dalemusser/groupwork/internal/app/features/errors"
	eventsfeature "github.com/dalemusser/groupwork/internal/app/features/events"
	healthfeature "github.com/dalemusser/groupwork/internal/app/features/health"
	projectsfeature "github.com/dalemusser/groupwork/internal/app/features/projects"
	reviewsfeature "github.com/dalemusser/groupwork/internal/app/features/reviews"
	submissionsfeature "github.com/dalemusser/groupwork/internal/app/features/submissions"
	workgroupsfeature "github.com/dalemusser/groupwork/internal/app/features/workgroups"
	"github.com/dalemusser/groupwork/internal/app/store/audit"
	cohortstore "github.com/dalemusser/groupwork/internal/app/store/cohorts"
	"github.com/dalemusser/groupwork/internal/app/system/auditlog"
	"github.com/dalemusser/groupwork/internal/app/system/docstore"
	"github.com/dalemusser/groupwork/internal/app/system/timeouts"
	"github.com/dalemusser/groupwork/internal/app/workflow/cascade"
	"github.com/dalemusser/groupwork/internal/app/workflow/courseevents"
	"github.com/dalemusser/groupwork/internal/app/workflow/grades"
	"github.com/dalemusser/groupwork/internal/app/workflow/membership"
	"github.com/dalemusser/groupwork/internal/app/workflow/provision"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/pantry/fileserver"
	"github.com/dalemusser/waffle/pantry/storage"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed. It builds the document store, the
// workflows (cascade, membership, provisioning, course events, grades) and
// mounts the JSON API under /api.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeouts.Medium())
	defer cancel()

	docs, err := docstore.New(ctx, docstore.Config{
		Type:      appCfg.StorageType,
		LocalPath: appCfg.StorageLocalPath,
		S3Region:  appCfg.StorageS3Region,
		S3Bucket:  appCfg.StorageS3Bucket,
		S3Prefix:  appCfg.StorageS3Prefix,
	})
	if err != nil {
		logger.Error("document store init failed", zap.Error(err))
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(appCfg.CORSAllowedOrigins) > 0 {
		r.Use(corsMiddleware(appCfg.CORSAllowedOrigins))
	}

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.GroupworkMongoClient, appCfg.StorageType, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	// Locally stored submission documents are served under /media/.
	if appCfg.StorageType != docstore.TypeS3 {
		r.Handle(docstore.MediaPrefix+"/*", fileserver.Handler(docstore.MediaPrefix, appCfg.StorageLocalPath))
	}

	r.Mount("/api", apiRoutes(deps.GroupworkMongoDatabase, docs, appCfg, logger))
	return r, nil
}

// apiRoutes wires the workflows and mounts every feature router.
func apiRoutes(db *mongo.Database, docs storage.Store, appCfg AppConfig, logger *zap.Logger) chi.Router {
	auditLog := auditlog.New(audit.New(db), logger, auditlog.Config{
		Admin:  appCfg.AuditLogAdmin,
		Cohort: appCfg.AuditLogCohort,
		Grades: appCfg.AuditLogGrades,
	})
	errLog := errorsfeature.NewErrorLogger(logger)
	links := docstore.Linker{Store: docs, TTL: appCfg.DocumentURLTTL, Log: logger}

	cohorts := cohortstore.New(db)
	engine := cascade.New(db, cohorts, docs, auditLog, logger)

	members := membership.New(db, cohorts, engine, auditLog, logger)
	prov := provision.New(db, cohorts, auditLog, logger)
	if appCfg.DefaultAssignmentType != "" {
		members.DefaultAssignment = appCfg.DefaultAssignmentType
		prov.DefaultAssignment = appCfg.DefaultAssignmentType
	}
	events := courseevents.New(db, cohorts, engine, auditLog, logger)
	grader := grades.New(db, grades.AuditPublisher{Audit: auditLog}, logger)

	r := chi.NewRouter()
	r.Use(auditlog.Middleware)

	projectsHandler := projectsfeature.NewHandler(db, members, engine, prov, links, errLog, auditLog, logger)
	r.Mount("/projects", projectsfeature.Routes(projectsHandler))

	workgroupsHandler := workgroupsfeature.NewHandler(db, members, engine, grader, links, errLog, auditLog, logger)
	r.Mount("/workgroups", workgroupsfeature.Routes(workgroupsHandler))

	submissionsHandler := submissionsfeature.NewHandler(db, engine, links, errLog, logger)
	r.Mount("/submissions", submissionsfeature.Routes(submissionsHandler))

	reviewsHandler := reviewsfeature.NewHandler(db, errLog, logger)
	r.Mount("/workgroup_reviews", reviewsfeature.WorkgroupRoutes(reviewsHandler))
	r.Mount("/submission_reviews", reviewsfeature.SubmissionRoutes(reviewsHandler))
	r.Mount("/peer_reviews", reviewsfeature.PeerRoutes(reviewsHandler))

	eventsHandler := eventsfeature.NewHandler(events, errLog, logger)
	r.Mount("/events", eventsfeature.Routes(eventsHandler))

	return r
}

// corsMiddleware allows the listed origins to call the API. A lone "*"
// allows any origin without credentials.
func corsMiddleware(origins []string) func(http.Handler) http.Handler {
	opts := cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if len(origins) == 1 && origins[0] == "*" {
		opts.AllowCredentials = false
	}
	return cors.Handler(opts)
}
