// internal/app/features/workgroups/handler.go
package workgroups

import (
	uierrors "github.com/dalemusser/groupwork/internal/app/features/errors"
	"github.com/dalemusser/groupwork/internal/app/system/auditlog"
	"github.com/dalemusser/groupwork/internal/app/system/docstore"
	"github.com/dalemusser/groupwork/internal/app/workflow/cascade"
	"github.com/dalemusser/groupwork/internal/app/workflow/grades"
	"github.com/dalemusser/groupwork/internal/app/workflow/membership"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves /api/workgroups and the workgroup sub-resources.
type Handler struct {
	DB       *mongo.Database
	Log      *zap.Logger
	ErrLog   *uierrors.ErrorLogger
	AuditLog *auditlog.Logger
	Members  *membership.Manager
	Cascade  *cascade.Engine
	Grades   *grades.Grader
	Links    docstore.Linker
}

// NewHandler constructs a workgroups Handler.
func NewHandler(db *mongo.Database, members *membership.Manager, engine *cascade.Engine, grader *grades.Grader, links docstore.Linker, errLog *uierrors.ErrorLogger, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:       db,
		Log:      logger,
		ErrLog:   errLog,
		AuditLog: audit,
		Members:  members,
		Cascade:  engine,
		Grades:   grader,
		Links:    links,
	}
}
