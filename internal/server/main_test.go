package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"folio/internal/config"
	"folio/internal/database"
	"folio/internal/discussions"
	"folio/internal/identity"
	"folio/internal/models"
	"folio/internal/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const reviewBody = "A patient, generous review that easily clears the fifty character minimum."

func testConfig(flags string) *config.Config {
	return &config.Config{
		Port:             "0",
		Env:              "test",
		AllowedOrigins:   "http://localhost:5173",
		FeatureFlags:     flags,
		JWTSecret:        "test-secret-that-is-at-least-32-characters",
		JWTIssuer:        "folio-identity",
		JWTAudience:      "folio-web",
		MediaMaxUploadMB: 2,
		CommentMaxDepth:  5,
		StoreTimeoutMS:   2000,
	}
}

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

func testCatalog(t *testing.T) *discussions.Catalog {
	msgs := make([]discussions.Message, 6)
	for i := range msgs {
		msgs[i] = discussions.Message{Speaker: "Host", Text: fmt.Sprintf("Point %d", i)}
	}
	catalog, err := discussions.New([]discussions.Discussion{
		{ID: "chapter-one", Title: "Opening chapter", Chapter: 1, Messages: msgs},
	})
	require.NoError(t, err)
	return catalog
}

// testEnv is a fully wired server over in-memory SQLite.
type testEnv struct {
	srv *Server
	app *fiber.App
	db  *gorm.DB
}

func newTestEnv(t *testing.T, rdb *redis.Client, flags string) *testEnv {
	t.Setenv("APP_ENV", "test")

	db := setupSQLiteDB(t)
	blobs, err := storage.NewLocalStore(t.TempDir(), 2)
	require.NoError(t, err)

	srv, err := NewServerWithDeps(testConfig(flags), db, rdb, testCatalog(t), blobs)
	require.NoError(t, err)
	return &testEnv{srv: srv, app: srv.App(), db: db}
}

// token issues a bearer token the way the identity provider would.
func (e *testEnv) token(t *testing.T, userID uint, role string) string {
	tok, err := e.srv.resolver.Issue(identity.Identity{
		UserID:   userID,
		Username: fmt.Sprintf("user%d", userID),
		Role:     role,
	}, time.Hour)
	require.NoError(t, err)
	return tok
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

// createEssay posts an essay as userID and returns it.
func (e *testEnv) createEssay(t *testing.T, tok string) models.Essay {
	resp := e.do(t, http.MethodPost, "/api/essays", tok, fiber.Map{
		"title":   "Lanterns on the Water",
		"content": "The second chapter turns on a single **lantern**.",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	return decode[models.Essay](t, resp)
}
