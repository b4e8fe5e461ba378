// internal/app/bootstrap/hooks.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/waffle/app"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// DBDeps holds the MongoDB handles shared by every request handler.
type DBDeps struct {
	GroupworkMongoClient   *mongo.Client
	GroupworkMongoDatabase *mongo.Database
}

// Hooks wires the group-work service into WAFFLE's lifecycle:
// config, connect, schema, startup checks, router, shutdown.
var Hooks = app.Hooks[AppConfig, DBDeps]{
	Name:           "groupwork",
	LoadConfig:     LoadConfig,
	ValidateConfig: ValidateConfig,
	ConnectDB:      ConnectDB,
	EnsureSchema:   EnsureSchema,
	Startup:        Startup,
	BuildHandler:   BuildHandler,
	Shutdown:       Shutdown,
}

// Shutdown disconnects the MongoDB client once in-flight requests drain.
func Shutdown(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if deps.GroupworkMongoClient == nil {
		return nil
	}
	if err := deps.GroupworkMongoClient.Disconnect(ctx); err != nil {
		logger.Error("MongoDB disconnect failed", zap.Error(err))
		return err
	}
	logger.Info("MongoDB client disconnected", zap.String("database", appCfg.MongoDatabase))
	return nil
}
