// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/groupwork/internal/app/system/timeouts"
	"github.com/dalemusser/groupwork/internal/app/system/txn"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Startup runs after the schema is in place and before the handler is
// built. It reports whether mutating workflows will get real transactions
// or the compensating fallback.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Ping())
	defer cancel()

	mode, err := txn.Mode(ctx, deps.GroupworkMongoClient)
	if err != nil {
		logger.Warn("could not determine transaction support", zap.Error(err))
		return nil
	}
	if mode == txn.ModeCompensated {
		logger.Warn("MongoDB deployment has no transaction support; workflows use compensating rollback")
	} else {
		logger.Info("MongoDB transactions available", zap.String("mode", mode))
	}
	return nil
}
