package repository

import (
	"context"
	"testing"

	"folio/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestCommentRepository_ReplyCounts_SingleQuery(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewCommentRepository(db)

	rows := sqlmock.NewRows([]string{"parent_id", "count"}).
		AddRow(4, 2).
		AddRow(9, 1)
	mock.ExpectQuery(`SELECT parent_id, COUNT\(\*\) AS count FROM "comments" WHERE .+ GROUP BY "parent_id"`).
		WithArgs(models.ParentComment, 4, 9, 12, true).
		WillReturnRows(rows)

	counts, err := repo.ReplyCounts(context.Background(), []uint{4, 9, 12})
	require.NoError(t, err)
	assert.Equal(t, map[uint]int64{4: 2, 9: 1}, counts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommentRepository_ReplyCounts_Empty(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewCommentRepository(db)

	counts, err := repo.ReplyCounts(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, counts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func seedChain(t *testing.T, db *gorm.DB, essayID uint, length int) []*models.Comment {
	chain := make([]*models.Comment, 0, length)
	parentType, parentID := models.ParentEssay, essayID
	for i := 0; i < length; i++ {
		c := &models.Comment{UserID: 1, ParentType: parentType, ParentID: parentID, Content: "level", IsApproved: true}
		require.NoError(t, db.Omit("User").Create(c).Error)
		chain = append(chain, c)
		parentType, parentID = models.ParentComment, c.ID
	}
	return chain
}

func TestCommentRepository_Depth(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()

	createUser(t, db, 1, models.RoleReader)
	essay := createEssay(t, db, 1, "depth")
	chain := seedChain(t, db, essay.ID, 5)

	for want, c := range chain {
		got, err := repo.Depth(ctx, c.ID, 10)
		require.NoError(t, err)
		assert.Equal(t, want, got, "comment %d", c.ID)
	}

	// The walk stops at the limit.
	got, err := repo.Depth(ctx, chain[4].ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, got)

	_, err = repo.Depth(ctx, 9999, 10)
	assert.True(t, models.HasCode(err, models.CodeNotFound))

	// Deleting an ancestor keeps the descendants at their level.
	require.NoError(t, repo.Delete(ctx, chain[1].ID))
	got, err = repo.Depth(ctx, chain[3].ID, 10)
	require.NoError(t, err)
	assert.Equal(t, 3, got)
}

func TestCommentRepository_Root(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()

	createUser(t, db, 1, models.RoleReader)
	essay := createEssay(t, db, 1, "root")
	chain := seedChain(t, db, essay.ID, 4)

	for _, c := range chain {
		pt, id, err := repo.Root(ctx, c.ID, 10)
		require.NoError(t, err)
		assert.Equal(t, models.ParentEssay, pt)
		assert.Equal(t, essay.ID, id)
	}

	// A removed ancestor does not cut the thread off from its essay.
	require.NoError(t, repo.Delete(ctx, chain[0].ID))
	pt, id, err := repo.Root(ctx, chain[3].ID, 10)
	require.NoError(t, err)
	assert.Equal(t, models.ParentEssay, pt)
	assert.Equal(t, essay.ID, id)

	_, _, err = repo.Root(ctx, 9999, 10)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}

func TestCommentRepository_ListByParent(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()

	createUser(t, db, 1, models.RoleReader)
	essay := createEssay(t, db, 1, "threads")

	first := &models.Comment{UserID: 1, ParentType: models.ParentEssay, ParentID: essay.ID, Content: "first", IsApproved: true}
	hidden := &models.Comment{UserID: 1, ParentType: models.ParentEssay, ParentID: essay.ID, Content: "queued", IsApproved: false}
	second := &models.Comment{UserID: 1, ParentType: models.ParentEssay, ParentID: essay.ID, Content: "second", IsApproved: true}
	for _, c := range []*models.Comment{first, hidden, second} {
		require.NoError(t, repo.Create(ctx, c))
	}
	reply := &models.Comment{UserID: 1, ParentType: models.ParentComment, ParentID: first.ID, Content: "reply", IsApproved: true}
	require.NoError(t, repo.Create(ctx, reply))

	comments, err := repo.ListByParent(ctx, models.ParentEssay, essay.ID, 50, 0)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "first", comments[0].Content)
	assert.Equal(t, "second", comments[1].Content)
	assert.Equal(t, uint(1), comments[0].User.ID)

	var stored models.Comment
	require.NoError(t, db.First(&stored, hidden.ID).Error)
	assert.False(t, stored.IsApproved)

	counts, err := repo.ReplyCounts(ctx, []uint{first.ID, second.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[first.ID])
	assert.Zero(t, counts[second.ID])
}

func TestCommentRepository_UpdateAndDeleteMissing(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()

	assert.True(t, models.HasCode(repo.UpdateContent(ctx, 42, "edited"), models.CodeNotFound))
	assert.True(t, models.HasCode(repo.Delete(ctx, 42), models.CodeNotFound))
}
