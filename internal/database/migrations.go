package database

import (
	"context"
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"folio/internal/middleware"

	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Migration is one numbered pair of SQL scripts under migrations/.
// Checksum fingerprints the up script so edits to applied files are caught.
type Migration struct {
	Version  int
	Name     string
	Up       string
	Down     string
	Checksum string
}

func (m Migration) String() string {
	return fmt.Sprintf("%06d_%s", m.Version, m.Name)
}

// MigrationLog is a row of migration_logs.
type MigrationLog struct {
	Version    int       `gorm:"primaryKey;autoIncrement:false"`
	Name       string    `gorm:"size:255;not null"`
	Checksum   string    `gorm:"size:64;not null;default:''"`
	DurationMS int64     `gorm:"not null;default:0"`
	AppliedAt  time.Time `gorm:"autoCreateTime;index"`
}

func (MigrationLog) TableName() string {
	return "migration_logs"
}

var (
	embeddedOnce sync.Once
	embedded     []Migration
	embeddedErr  error
)

// EmbeddedMigrations returns the migrations compiled into the binary, oldest first.
func EmbeddedMigrations() ([]Migration, error) {
	embeddedOnce.Do(func() {
		embedded, embeddedErr = LoadMigrations(migrationFS, "migrations")
	})
	return embedded, embeddedErr
}

// LoadMigrations reads NNNNNN_name.up.sql / .down.sql pairs from dir. Every up
// script needs a matching down script and versions must be unique.
func LoadMigrations(fsys fs.FS, dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}

	seen := make(map[int]string)
	var out []Migration
	for _, entry := range entries {
		base, ok := strings.CutSuffix(entry.Name(), ".up.sql")
		if entry.IsDir() || !ok {
			continue
		}
		rawVersion, name, ok := strings.Cut(base, "_")
		version, err := strconv.Atoi(rawVersion)
		if !ok || err != nil || version <= 0 || name == "" {
			return nil, fmt.Errorf("migration %q: want NNNNNN_name.up.sql", entry.Name())
		}
		if prev, dup := seen[version]; dup {
			return nil, fmt.Errorf("migration version %d used by %s and %s", version, prev, base)
		}
		seen[version] = base

		up, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		down, err := fs.ReadFile(fsys, path.Join(dir, base+".down.sql"))
		if err != nil {
			return nil, fmt.Errorf("migration %s has no down script: %w", base, err)
		}

		sum := sha256.Sum256(up)
		out = append(out, Migration{
			Version:  version,
			Name:     name,
			Up:       string(up),
			Down:     string(down),
			Checksum: hex.EncodeToString(sum[:]),
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// Migrator applies and reverts a fixed migration set, recording each step in
// migration_logs inside the same transaction as its SQL.
type Migrator struct {
	db  *gorm.DB
	set []Migration
}

func NewMigrator(db *gorm.DB, set []Migration) *Migrator {
	return &Migrator{db: db, set: set}
}

// Plan compares migration_logs with the set. Drifted lists applied versions
// whose up script changed since they ran.
type Plan struct {
	Applied []MigrationLog
	Pending []Migration
	Drifted []Migration
}

func (m *Migrator) Plan(ctx context.Context) (*Plan, error) {
	db := m.db.WithContext(ctx)
	plan := &Plan{}
	if db.Migrator().HasTable(&MigrationLog{}) {
		if err := db.Order("version ASC").Find(&plan.Applied).Error; err != nil {
			return nil, fmt.Errorf("read migration_logs: %w", err)
		}
	}

	known := make(map[int]Migration, len(m.set))
	for _, mig := range m.set {
		known[mig.Version] = mig
	}
	applied := make(map[int]bool, len(plan.Applied))
	var unknown []string
	for _, row := range plan.Applied {
		applied[row.Version] = true
		mig, ok := known[row.Version]
		switch {
		case !ok:
			unknown = append(unknown, fmt.Sprintf("%06d_%s", row.Version, row.Name))
		case row.Checksum != "" && row.Checksum != mig.Checksum:
			plan.Drifted = append(plan.Drifted, mig)
		}
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("migration_logs has versions this build does not know: %s", strings.Join(unknown, ", "))
	}

	for _, mig := range m.set {
		if !applied[mig.Version] {
			plan.Pending = append(plan.Pending, mig)
		}
	}
	return plan, nil
}

// Up applies every pending migration in order. It refuses to run while any
// applied script has drifted.
func (m *Migrator) Up(ctx context.Context) (int, error) {
	if err := m.db.WithContext(ctx).AutoMigrate(&MigrationLog{}); err != nil {
		return 0, fmt.Errorf("ensure migration_logs: %w", err)
	}
	plan, err := m.Plan(ctx)
	if err != nil {
		return 0, err
	}
	if len(plan.Drifted) > 0 {
		return 0, fmt.Errorf("applied migration %s was edited; add a new migration instead", plan.Drifted[0])
	}

	for _, mig := range plan.Pending {
		started := time.Now()
		err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Exec(mig.Up).Error; err != nil {
				return err
			}
			return tx.Create(&MigrationLog{
				Version:    mig.Version,
				Name:       mig.Name,
				Checksum:   mig.Checksum,
				DurationMS: time.Since(started).Milliseconds(),
			}).Error
		})
		if err != nil {
			return 0, fmt.Errorf("apply %s: %w", mig, err)
		}
		middleware.Logger.InfoContext(ctx, "migration applied",
			"migration", mig.String(), "duration", time.Since(started))
	}
	return len(plan.Pending), nil
}

// Down reverts one applied version and drops its log row.
func (m *Migrator) Down(ctx context.Context, version int) error {
	var target *Migration
	for i := range m.set {
		if m.set[i].Version == version {
			target = &m.set[i]
		}
	}
	if target == nil {
		return fmt.Errorf("migration version %d not found", version)
	}

	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("version = ?", version).Delete(&MigrationLog{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("migration %s has not been applied", target)
		}
		return tx.Exec(target.Down).Error
	})
	if err != nil {
		return fmt.Errorf("revert %s: %w", target, err)
	}
	middleware.Logger.InfoContext(ctx, "migration reverted", "migration", target.String())
	return nil
}
