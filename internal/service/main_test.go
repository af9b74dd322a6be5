package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"folio/internal/database"
	"folio/internal/models"
	"folio/internal/notifications"
	"folio/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

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

func seedUser(t *testing.T, db *gorm.DB, id uint, username, role string) {
	require.NoError(t, db.Create(&models.User{ID: id, Username: username, Role: role}).Error)
}

// newAudience gates engagement with repositories over db and the users table's roles.
func newAudience(db *gorm.DB) *Audience {
	return NewAudience(
		repository.NewEssayRepository(db),
		repository.NewReviewRepository(db),
		repository.NewCommentRepository(db),
		repository.NewUserRepository(db).IsAdmin,
	)
}

// adminIDs returns an AdminChecker that treats exactly ids as admins.
func adminIDs(ids ...uint) AdminChecker {
	return func(_ context.Context, userID uint) (bool, error) {
		for _, id := range ids {
			if id == userID {
				return true, nil
			}
		}
		return false, nil
	}
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code, appErr.Message)
}

func assertValidationError(t *testing.T, err error) {
	t.Helper()
	assertCode(t, err, models.CodeValidation)
}

// eventRecorder captures published events.
type eventRecorder struct {
	mu        sync.Mutex
	broadcast []notifications.Event
	user      map[uint][]notifications.Event
}

func (r *eventRecorder) PublishBroadcast(_ context.Context, ev notifications.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.broadcast = append(r.broadcast, ev)
	return nil
}

func (r *eventRecorder) PublishUser(_ context.Context, userID uint, ev notifications.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.user == nil {
		r.user = map[uint][]notifications.Event{}
	}
	r.user[userID] = append(r.user[userID], ev)
	return nil
}

func (r *eventRecorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.broadcast))
	for _, ev := range r.broadcast {
		out = append(out, ev.Type)
	}
	return out
}

// blobStoreStub records deleted URLs. owners maps uploaded URLs to their uploader.
type blobStoreStub struct {
	owners    map[string]uint
	deleted   []string
	deleteErr error
}

func (b *blobStoreStub) Put(_ context.Context, _ uint, _ string, _ []byte) (string, error) {
	return "/media/stub.webp", nil
}

func (b *blobStoreStub) Delete(_ context.Context, url string) error {
	if b.deleteErr != nil {
		return b.deleteErr
	}
	b.deleted = append(b.deleted, url)
	return nil
}

func (b *blobStoreStub) Owns(_ context.Context, url string, owner uint) (bool, error) {
	uploader, ok := b.owners[url]
	return ok && uploader == owner, nil
}
