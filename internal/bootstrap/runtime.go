// Package bootstrap assembles the process-wide dependencies shared by the
// server and the maintenance commands.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"folio/internal/cache"
	"folio/internal/config"
	"folio/internal/database"
	"folio/internal/discussions"
	"folio/internal/middleware"
	"folio/internal/models"
	"folio/internal/repository"
	"folio/internal/storage"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SkipSchema opens the database without applying migrations.
	SkipSchema bool
}

// Runtime holds the connections and static data a process needs.
type Runtime struct {
	DB      *gorm.DB
	Redis   *redis.Client
	Catalog *discussions.Catalog
	Blobs   *storage.LocalStore
}

// InitRuntime configures logging, connects to the database and Redis, and
// loads the discussion catalog and media store.
func InitRuntime(cfg *config.Config, opts Options) (*Runtime, error) {
	slog.SetDefault(middleware.InitLogger(cfg.Env, cfg.LogLevel))

	var (
		db  *gorm.DB
		err error
	)
	if opts.SkipSchema {
		db, err = database.Open(cfg)
	} else {
		db, err = database.Connect(cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	// Redis is optional; a nil client disables caching, locks and fan-out
	cache.InitRedis(cfg.RedisURL)

	catalog, err := discussions.Load(cfg.DiscussionsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load discussions: %w", err)
	}

	blobs, err := storage.NewLocalStore(cfg.MediaRoot, cfg.MediaMaxUploadMB)
	if err != nil {
		return nil, err
	}

	if err := ensureDevAdmin(context.Background(), cfg, repository.NewUserRepository(db)); err != nil {
		return nil, fmt.Errorf("failed to bootstrap development admin: %w", err)
	}

	return &Runtime{DB: db, Redis: cache.GetClient(), Catalog: catalog, Blobs: blobs}, nil
}

// ensureDevAdmin provisions DEV_ADMIN_USER_ID as an admin in development so
// a locally issued token can moderate before the identity provider exists.
func ensureDevAdmin(ctx context.Context, cfg *config.Config, users repository.UserRepository) error {
	if cfg == nil || cfg.DevAdminUserID == 0 {
		return nil
	}
	if !strings.EqualFold(cfg.Env, "development") {
		slog.Warn("DEV_ADMIN_USER_ID ignored outside development", "env", cfg.Env)
		return nil
	}

	admin := &models.User{
		ID:       cfg.DevAdminUserID,
		Username: "folio-admin",
		Role:     models.RoleAdmin,
	}
	if err := users.Ensure(ctx, admin); err != nil {
		return err
	}
	slog.Info("development admin ensured", "user_id", admin.ID, "username", admin.Username)
	return nil
}

// Close releases the runtime's connections.
func (r *Runtime) Close() {
	cache.Close()
	if r == nil || r.DB == nil {
		return
	}
	if sqlDB, err := r.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
