// internal/app/features/projects/handler.go
package projects

import (
	uierrors "github.com/dalemusser/groupwork/internal/app/features/errors"
	"github.com/dalemusser/groupwork/internal/app/system/auditlog"
	"github.com/dalemusser/groupwork/internal/app/system/docstore"
	"github.com/dalemusser/groupwork/internal/app/workflow/cascade"
	"github.com/dalemusser/groupwork/internal/app/workflow/membership"
	"github.com/dalemusser/groupwork/internal/app/workflow/provision"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves /api/projects: project CRUD, the project's workgroups
// and roster provisioning.
//
// It is constructed once at startup in bootstrap.
type Handler struct {
	DB        *mongo.Database
	Log       *zap.Logger
	ErrLog    *uierrors.ErrorLogger
	AuditLog  *auditlog.Logger
	Members   *membership.Manager
	Cascade   *cascade.Engine
	Provision *provision.Provisioner
	Links     docstore.Linker
}

// NewHandler constructs a projects Handler.
func NewHandler(db *mongo.Database, members *membership.Manager, engine *cascade.Engine, prov *provision.Provisioner, links docstore.Linker, errLog *uierrors.ErrorLogger, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:        db,
		Log:       logger,
		ErrLog:    errLog,
		AuditLog:  audit,
		Members:   members,
		Cascade:   engine,
		Provision: prov,
		Links:     links,
	}
}
