package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/rmjobsites-storefront/pkg/config"
	"github.com/angelmondragon/rmjobsites-storefront/pkg/db"
	"github.com/angelmondragon/rmjobsites-storefront/pkg/logger"
)

// MaybeRun applies the embedded migrations when auto-migrate is enabled for a SQL store.
func MaybeRun(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.Storage.AutoMigrate || client == nil {
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	meta := map[string]any{"env": cfg.App.Env, "dialect": client.Dialect()}
	ctx = logg.WithFields(ctx, meta)
	logg.Info(ctx, "running Goose migrations (auto-run)")

	if err := Run(ctx, sqlDB, client.Dialect(), "", "up"); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}

	logg.Info(ctx, "Goose migrations completed")
	return nil
}
