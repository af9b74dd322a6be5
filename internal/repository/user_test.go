package repository

import (
	"context"
	"regexp"
	"testing"

	"folio/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestUserRepository_GetByID(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	const query = `SELECT * FROM "users" WHERE "users"."id" = $1 AND "users"."deleted_at" IS NULL ORDER BY "users"."id" LIMIT $2`

	tests := []struct {
		name         string
		userID       uint
		mockBehavior func()
		wantUsername string
		wantCode     string
	}{
		{
			name:   "Success",
			userID: 1,
			mockBehavior: func() {
				rows := sqlmock.NewRows([]string{"id", "username", "role"}).
					AddRow(1, "marginalia", models.RoleReader)
				mock.ExpectQuery(regexp.QuoteMeta(query)).
					WithArgs(1, 1).
					WillReturnRows(rows)
			},
			wantUsername: "marginalia",
		},
		{
			name:   "Not Found",
			userID: 99,
			mockBehavior: func() {
				mock.ExpectQuery(regexp.QuoteMeta(query)).
					WithArgs(99, 1).
					WillReturnError(gorm.ErrRecordNotFound)
			},
			wantCode: models.CodeNotFound,
		},
		{
			name:   "Connection lost",
			userID: 5,
			mockBehavior: func() {
				mock.ExpectQuery(regexp.QuoteMeta(query)).
					WithArgs(5, 1).
					WillReturnError(context.DeadlineExceeded)
			},
			wantCode: models.CodeTransient,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockBehavior()
			user, err := repo.GetByID(ctx, tt.userID)

			if tt.wantCode != "" {
				assert.True(t, models.HasCode(err, tt.wantCode), "got %v", err)
			} else if assert.NoError(t, err) {
				assert.Equal(t, tt.wantUsername, user.Username)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepository_Ensure(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Ensure(ctx, &models.User{ID: 10, Username: "quill"}))

	// Second call with a new display name leaves the stored row alone.
	require.NoError(t, repo.Ensure(ctx, &models.User{ID: 10, Username: "quill", DisplayName: "Changed"}))

	u, err := repo.GetByID(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, "quill", u.Username)
	assert.Equal(t, models.RoleReader, u.Role)
	assert.Empty(t, u.DisplayName)

	// An asserted role is written through.
	require.NoError(t, repo.Ensure(ctx, &models.User{ID: 10, Username: "quill", Role: models.RoleAdmin}))
	isAdmin, err := repo.IsAdmin(ctx, 10)
	require.NoError(t, err)
	assert.True(t, isAdmin)

	// Username collision falls back to the id-derived handle.
	other := &models.User{ID: 11, Username: "quill"}
	require.NoError(t, repo.Ensure(ctx, other))
	assert.Equal(t, "reader-11", other.Username)

	isAdmin, err = repo.IsAdmin(ctx, 404)
	require.NoError(t, err)
	assert.False(t, isAdmin)
}
