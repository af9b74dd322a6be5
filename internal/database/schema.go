package database

import (
	"context"
	"fmt"

	"folio/internal/config"
	"folio/internal/middleware"

	"gorm.io/gorm"
)

const (
	SchemaModeHybrid = "hybrid"
	SchemaModeSQL    = "sql"
	SchemaModeAuto   = "auto"
)

// schemaSteps says which of the two schema sources a startup runs.
type schemaSteps struct {
	SQL  bool
	Auto bool
}

// resolveSchemaSteps applies DB_SCHEMA_MODE. SQLite (tests, local runs) is
// always model-driven since the embedded SQL is PostgreSQL. Production never
// auto-migrates in hybrid mode, and only with an explicit override in auto mode.
func resolveSchemaSteps(cfg *config.Config) (schemaSteps, error) {
	mode := cfg.DBSchemaMode
	if mode == "" {
		mode = SchemaModeHybrid
	}

	if cfg.DBDriver == DriverSQLite {
		if mode == SchemaModeSQL {
			return schemaSteps{}, fmt.Errorf("DB_SCHEMA_MODE=sql needs postgres")
		}
		if mode != SchemaModeAuto && mode != SchemaModeHybrid {
			return schemaSteps{}, fmt.Errorf("unsupported DB_SCHEMA_MODE %q", mode)
		}
		return schemaSteps{Auto: true}, nil
	}

	production := cfg.IsProduction()
	switch mode {
	case SchemaModeSQL:
		return schemaSteps{SQL: true}, nil
	case SchemaModeHybrid:
		return schemaSteps{SQL: true, Auto: !production}, nil
	case SchemaModeAuto:
		if production && !cfg.DBAutoMigrateAllowDestructive {
			return schemaSteps{}, fmt.Errorf("DB_SCHEMA_MODE=auto in production needs DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE=true")
		}
		return schemaSteps{Auto: true}, nil
	}
	return schemaSteps{}, fmt.Errorf("unsupported DB_SCHEMA_MODE %q", mode)
}

// ApplySchema brings the database up to date: embedded SQL first, then GORM
// AutoMigrate over PersistentModels when the mode allows it.
func ApplySchema(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	steps, err := resolveSchemaSteps(cfg)
	if err != nil {
		return err
	}

	if steps.SQL {
		set, err := EmbeddedMigrations()
		if err != nil {
			return err
		}
		applied, err := NewMigrator(db, set).Up(ctx)
		if err != nil {
			return fmt.Errorf("sql migrations: %w", err)
		}
		middleware.Logger.InfoContext(ctx, "sql schema current", "applied_now", applied, "known", len(set))
	}

	if steps.Auto {
		middleware.Logger.InfoContext(ctx, "auto-migrating models", "driver", cfg.DBDriver, "models", len(PersistentModels()))
		if err := db.WithContext(ctx).AutoMigrate(PersistentModels()...); err != nil {
			return fmt.Errorf("auto-migrate: %w", err)
		}
	}
	return nil
}

// SchemaStatus is what `cmd/migrate status` prints.
type SchemaStatus struct {
	Mode    string
	Steps   schemaSteps
	Applied []MigrationLog
	Pending []Migration
	Drifted []Migration
}

func GetSchemaStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) (*SchemaStatus, error) {
	steps, err := resolveSchemaSteps(cfg)
	if err != nil {
		return nil, err
	}
	status := &SchemaStatus{Mode: cfg.DBSchemaMode, Steps: steps}
	if !steps.SQL {
		return status, nil
	}

	set, err := EmbeddedMigrations()
	if err != nil {
		return nil, err
	}
	plan, err := NewMigrator(db, set).Plan(ctx)
	if err != nil {
		return nil, err
	}
	status.Applied, status.Pending, status.Drifted = plan.Applied, plan.Pending, plan.Drifted
	return status, nil
}
