// Command migrate runs schema operations for the backend.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strconv"
	"strings"

	"folio/internal/config"
	"folio/internal/database"
	"folio/internal/middleware"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func usage() error {
	return fmt.Errorf("usage: go run ./cmd/migrate/main.go <up|auto|status|down> [version]")
}

func run() error {
	flag.Parse()
	if flag.NArg() < 1 {
		return usage()
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	slogger := middleware.InitLogger(cfg.Env, cfg.LogLevel)
	db, err := database.Open(cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}()

	ctx := context.Background()
	cmd := strings.ToLower(strings.TrimSpace(flag.Arg(0)))
	switch cmd {
	case "up":
		set, err := database.EmbeddedMigrations()
		if err != nil {
			return err
		}
		applied, err := database.NewMigrator(db, set).Up(ctx)
		if err != nil {
			return fmt.Errorf("sql migrations failed: %w", err)
		}
		slogger.Info("sql migrations applied", "applied_now", applied, "known", len(set))
	case "auto":
		cfg.DBSchemaMode = database.SchemaModeAuto
		if err := database.ApplySchema(ctx, db, cfg); err != nil {
			return fmt.Errorf("auto schema apply failed: %w", err)
		}
		slogger.Info("automigrations applied", "driver", cfg.DBDriver)
	case "status":
		status, err := database.GetSchemaStatus(ctx, db, cfg)
		if err != nil {
			return fmt.Errorf("schema status failed: %w", err)
		}
		slogger.Info("schema status",
			"mode", status.Mode,
			"env", cfg.Env,
			"run_sql", status.Steps.SQL,
			"run_auto", status.Steps.Auto,
			"applied", len(status.Applied),
			"pending", len(status.Pending),
			"drifted", len(status.Drifted))
		for _, m := range status.Pending {
			slogger.Info("pending migration", "migration", m.String())
		}
		for _, m := range status.Drifted {
			slogger.Warn("applied migration changed on disk", "migration", m.String())
		}
	case "down":
		if flag.NArg() < 2 {
			return fmt.Errorf("usage: go run ./cmd/migrate/main.go down <version>")
		}
		version, err := strconv.Atoi(flag.Arg(1))
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", flag.Arg(1), err)
		}
		set, err := database.EmbeddedMigrations()
		if err != nil {
			return err
		}
		if err := database.NewMigrator(db, set).Down(ctx, version); err != nil {
			return fmt.Errorf("rollback failed: %w", err)
		}
		slogger.Info("rolled back migration", "version", version)
	default:
		return usage()
	}

	return nil
}
