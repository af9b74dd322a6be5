package repository

import (
	"testing"

	"folio/internal/database"
	"folio/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupMockDB returns a postgres-dialect gorm handle over sqlmock, for
// asserting the exact SQL a repository emits.
func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	return gormDB, mock
}

// setupSQLiteDB returns a migrated in-memory database. A single connection
// keeps every statement on the same in-memory instance.
func setupSQLiteDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:?_foreign_keys=on"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(database.PersistentModels()...))
	return db
}

func createUser(t *testing.T, db *gorm.DB, id uint, role string) *models.User {
	u := &models.User{ID: id, Username: "reader" + string(rune('a'+id)), Role: role}
	require.NoError(t, db.Create(u).Error)
	return u
}

func createEssay(t *testing.T, db *gorm.DB, userID uint, slug string) *models.Essay {
	e := &models.Essay{UserID: userID, Title: "On " + slug, Slug: slug, Content: "Body of " + slug}
	e.SetStatus(models.StatusPublished)
	require.NoError(t, db.Omit("User").Create(e).Error)
	return e
}
