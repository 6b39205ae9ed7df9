package database

import (
	"context"
	"fmt"
	"log/slog"

	"warden/internal/config"
	"warden/internal/middleware"

	"gorm.io/gorm"
)

// ApplySchema brings the schema up to date. Postgres runs the versioned SQL
// migrations; SQLite (local mode and tests) uses AutoMigrate over PersistentModels.
func ApplySchema(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	if db.Dialector.Name() == "sqlite" {
		middleware.Logger.InfoContext(ctx, "Running GORM AutoMigrate", slog.String("env", cfg.Env))
		if err := db.WithContext(ctx).AutoMigrate(PersistentModels()...); err != nil {
			return fmt.Errorf("auto-migrate: %w", err)
		}
		return nil
	}

	if err := RunMigrations(ctx, db); err != nil {
		return fmt.Errorf("run sql migrations: %w", err)
	}
	return nil
}
