// Package bootstrap wires the process-level runtime shared by the commands.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"warden/internal/cache"
	"warden/internal/config"
	"warden/internal/database"
	"warden/internal/middleware"
	"warden/internal/models"
	"warden/internal/observability"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// ApplySchema runs migrations (or AutoMigrate on SQLite) before returning.
	ApplySchema bool
	// Tracing installs the OpenTelemetry provider from config.
	Tracing bool
}

// Runtime is the set of long-lived clients a command needs.
type Runtime struct {
	DB    *gorm.DB
	Redis *redis.Client

	shutdownTracing func(context.Context) error
}

// InitRuntime connects to the database and Redis. Redis is optional and is nil
// when unreachable.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*Runtime, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	if opts.ApplySchema {
		if err := database.ApplySchema(ctx, db, cfg); err != nil {
			return nil, err
		}
	}

	rt := &Runtime{DB: db, Redis: cache.InitRedis(cfg.RedisURL)}

	if opts.Tracing {
		shutdown, err := observability.InitTracing(observability.TracingConfig{
			ServiceName:  "warden-api",
			Environment:  cfg.Env,
			Enabled:      cfg.TracingEnabled,
			Exporter:     cfg.TracingExporter,
			OTLPEndpoint: cfg.TracingEndpoint,
			SamplerRatio: cfg.TracingSampleRatio,
		})
		if err != nil {
			return nil, fmt.Errorf("init tracing: %w", err)
		}
		rt.shutdownTracing = shutdown
	}

	if err := EnsureDevSuperadmin(ctx, cfg, db); err != nil {
		return nil, fmt.Errorf("failed to bootstrap development superadmin: %w", err)
	}
	return rt, nil
}

// Close flushes traces. The database and Redis clients are owned by the server.
func (r *Runtime) Close(ctx context.Context) error {
	if r.shutdownTracing == nil {
		return nil
	}
	return r.shutdownTracing(ctx)
}

// EnsureDevSuperadmin promotes (or creates) the DEV_SUPERADMIN_EMAIL account in
// development so a fresh database has someone who can run moderation actions.
func EnsureDevSuperadmin(ctx context.Context, cfg *config.Config, db *gorm.DB) error {
	if cfg == nil || db == nil {
		return nil
	}
	email := strings.ToLower(strings.TrimSpace(cfg.DevSuperadminEmail))
	if email == "" || !strings.EqualFold(cfg.Env, "development") {
		return nil
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		res := tx.Where("email = ?", email).Limit(1).Find(&user)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			user = models.User{
				FirstName: "Dev",
				LastName:  "Superadmin",
				Email:     email,
				UserType:  models.RoleSuperadmin,
				Status:    models.UserStatusActive,
			}
			return tx.Create(&user).Error
		}
		return tx.Model(&models.User{}).Where("id = ?", user.ID).Updates(map[string]any{
			"user_type": models.RoleSuperadmin,
			"status":    models.UserStatusActive,
			"is_banned": false,
		}).Error
	})
	if err != nil {
		return err
	}

	middleware.Logger.InfoContext(ctx, "development superadmin ensured", slog.String("email", email))
	return nil
}
