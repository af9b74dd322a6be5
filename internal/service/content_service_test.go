package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"folio/internal/models"
	"folio/internal/notifications"
	"folio/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const reviewBody = "A patient, generous review that easily clears the fifty character minimum."

type contentFixture struct {
	svc    *ContentService
	essays repository.EssayRepository
	blobs  *blobStoreStub
	events *eventRecorder
}

func newContentFixture(t *testing.T) *contentFixture {
	db := setupSQLiteDB(t)
	seedUser(t, db, 1, "author", models.RoleReader)
	seedUser(t, db, 2, "stranger", models.RoleReader)
	seedUser(t, db, 9, "moderator", models.RoleAdmin)

	users := repository.NewUserRepository(db)
	essays := repository.NewEssayRepository(db)
	blobs := &blobStoreStub{owners: map[string]uint{
		"/media/cover.webp":     1,
		"/media/new-cover.webp": 1,
		"/media/theirs.webp":    2,
	}}
	events := &eventRecorder{}
	svc := NewContentService(essays, repository.NewReviewRepository(db), blobs, users.IsAdmin, events)
	return &contentFixture{svc: svc, essays: essays, blobs: blobs, events: events}
}

func (f *contentFixture) essay(t *testing.T, authorID uint) *models.Essay {
	item, err := f.svc.Create(context.Background(), models.KindEssay, CreateContentInput{
		AuthorID:      authorID,
		Title:         "Lanterns on the Water",
		Content:       "The second chapter turns on a single **lantern**.",
		CoverImageURL: "/media/cover.webp",
	})
	require.NoError(t, err)
	return item.Essay
}

func (f *contentFixture) review(t *testing.T, authorID uint) *models.Review {
	item, err := f.svc.Create(context.Background(), models.KindReview, CreateContentInput{
		AuthorID: authorID,
		Rating:   4,
		Title:    "Worth the wait",
		Content:  reviewBody,
	})
	require.NoError(t, err)
	return item.Review
}

func TestContentService_Create_Validation(t *testing.T) {
	t.Parallel()

	svc := NewContentService(nil, nil, nil, nil, nil)
	ctx := context.Background()

	tests := []struct {
		name string
		kind models.ContentKind
		in   CreateContentInput
		code string
	}{
		{"anonymous", models.KindEssay, CreateContentInput{Title: "t", Content: "c"}, models.CodeAuthRequired},
		{"unknown kind", models.ContentKind("poem"), CreateContentInput{AuthorID: 1}, models.CodeValidation},
		{"essay without title", models.KindEssay, CreateContentInput{AuthorID: 1, Title: "  ", Content: "body"}, models.CodeValidation},
		{"essay without content", models.KindEssay, CreateContentInput{AuthorID: 1, Title: "t"}, models.CodeValidation},
		{"essay title too long", models.KindEssay, CreateContentInput{AuthorID: 1, Title: strings.Repeat("t", 301), Content: "c"}, models.CodeValidation},
		{"essay content too long", models.KindEssay, CreateContentInput{AuthorID: 1, Title: "t", Content: strings.Repeat("c", 100001)}, models.CodeValidation},
		{"essay external cover", models.KindEssay, CreateContentInput{AuthorID: 1, Title: "t", Content: "c", CoverImageURL: "https://elsewhere/x.png"}, models.CodeValidation},
		{"review rating low", models.KindReview, CreateContentInput{AuthorID: 1, Rating: 0, Content: reviewBody}, models.CodeValidation},
		{"review rating high", models.KindReview, CreateContentInput{AuthorID: 1, Rating: 6, Content: reviewBody}, models.CodeValidation},
		{"review too short", models.KindReview, CreateContentInput{AuthorID: 1, Rating: 3, Content: "Too short."}, models.CodeValidation},
		{"review title too long", models.KindReview, CreateContentInput{AuthorID: 1, Rating: 3, Title: strings.Repeat("x", 201), Content: reviewBody}, models.CodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := svc.Create(ctx, tt.kind, tt.in)
			assertCode(t, err, tt.code)
		})
	}
}

func TestContentService_Create_InitialStates(t *testing.T) {
	f := newContentFixture(t)

	essay := f.essay(t, 1)
	assert.Equal(t, models.StatusPublished, essay.Status)
	assert.True(t, essay.IsPublished)
	assert.True(t, essay.IsApproved)
	assert.True(t, strings.HasPrefix(essay.Slug, "lanterns-on-the-water-"), essay.Slug)
	assert.NotEmpty(t, essay.Excerpt)
	assert.Equal(t, "author", essay.User.Username)

	review := f.review(t, 1)
	assert.Equal(t, models.ModerationPending, review.ModerationStatus)
	assert.False(t, review.IsApproved)

	// Two essays with the same title still get distinct slugs.
	second := f.essay(t, 1)
	assert.NotEqual(t, essay.Slug, second.Slug)
}

func TestContentService_Get_Visibility(t *testing.T) {
	f := newContentFixture(t)
	ctx := context.Background()

	review := f.review(t, 1)

	_, err := f.svc.Get(ctx, models.KindReview, review.ID, 0)
	assertCode(t, err, models.CodeNotFound)
	_, err = f.svc.Get(ctx, models.KindReview, review.ID, 2)
	assertCode(t, err, models.CodeNotFound)

	own, err := f.svc.Get(ctx, models.KindReview, review.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, review.ID, own.ID())

	_, err = f.svc.Get(ctx, models.KindReview, review.ID, 9)
	require.NoError(t, err)

	essay := f.essay(t, 1)
	first, err := f.svc.Get(ctx, models.KindEssay, essay.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.Essay.ViewCount)
	assert.Contains(t, first.Essay.ContentHTML, "<strong>lantern</strong>")

	second, err := f.svc.Get(ctx, models.KindEssay, essay.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.Essay.ViewCount)
}

func TestContentService_Moderate(t *testing.T) {
	f := newContentFixture(t)
	ctx := context.Background()

	review := f.review(t, 1)

	_, err := f.svc.Moderate(ctx, models.KindReview, review.ID, models.ActionApprove, 0, "")
	assertCode(t, err, models.CodeAuthRequired)
	_, err = f.svc.Moderate(ctx, models.KindReview, review.ID, models.ActionApprove, 2, "")
	assertCode(t, err, models.CodeForbidden)
	_, err = f.svc.Moderate(ctx, models.KindReview, review.ID, models.ActionUnpublish, 9, "")
	assertValidationError(t, err)

	approved, err := f.svc.Moderate(ctx, models.KindReview, review.ID, models.ActionApprove, 9, "Lovely")
	require.NoError(t, err)
	assert.True(t, approved.Review.IsApproved)
	assert.Equal(t, models.ModerationApproved, approved.Review.ModerationStatus)
	assert.Equal(t, "Lovely", approved.Review.ModerationNotes)

	listed, err := f.svc.List(ctx, models.KindReview, 10, 0)
	require.NoError(t, err)
	require.Len(t, listed, 1)

	rejected, err := f.svc.Moderate(ctx, models.KindReview, review.ID, models.ActionReject, 9, "Spoilers")
	require.NoError(t, err)
	assert.False(t, rejected.Review.IsApproved)
	assert.Equal(t, models.ModerationRejected, rejected.Review.ModerationStatus)

	require.Len(t, f.events.user[1], 2)
	assert.Equal(t, notifications.EventContentModerated, f.events.user[1][0].Type)
}

func TestContentService_Moderate_EssayLifecycle(t *testing.T) {
	f := newContentFixture(t)
	ctx := context.Background()

	essay := f.essay(t, 1)

	steps := []struct {
		action        models.ModerationAction
		wantStatus    models.ContentStatus
		wantPublished bool
		wantApproved  bool
		wantErr       bool
	}{
		{models.ActionUnpublish, models.StatusUnpublished, false, true, false},
		{models.ActionApprove, models.StatusPublished, true, true, false},
		{models.ActionReject, models.StatusRejected, false, false, false},
		{models.ActionUnpublish, models.StatusRejected, false, false, true},
		{models.ActionApprove, models.StatusPublished, true, true, false},
	}

	for _, step := range steps {
		item, err := f.svc.Moderate(ctx, models.KindEssay, essay.ID, step.action, 9, "")
		if step.wantErr {
			assertValidationError(t, err)
			item, err = f.svc.Get(ctx, models.KindEssay, essay.ID, 9)
		}
		require.NoError(t, err)
		assert.Equal(t, step.wantStatus, item.Essay.Status, step.action)
		assert.Equal(t, step.wantPublished, item.Essay.IsPublished, step.action)
		assert.Equal(t, step.wantApproved, item.Essay.IsApproved, step.action)
	}
}

func TestContentService_Update(t *testing.T) {
	f := newContentFixture(t)
	ctx := context.Background()

	essay := f.essay(t, 1)
	title := "Lanterns, Revisited"

	_, err := f.svc.Update(ctx, models.KindEssay, essay.ID, UpdateContentInput{RequesterID: 2, Title: &title})
	assertCode(t, err, models.CodeForbidden)

	// Admins moderate; they do not edit.
	_, err = f.svc.Update(ctx, models.KindEssay, essay.ID, UpdateContentInput{RequesterID: 9, Title: &title})
	assertCode(t, err, models.CodeForbidden)

	// An owner edit brings a rejected essay back to published.
	_, err = f.svc.Moderate(ctx, models.KindEssay, essay.ID, models.ActionReject, 9, "")
	require.NoError(t, err)

	cover := "/media/new-cover.webp"
	updated, err := f.svc.Update(ctx, models.KindEssay, essay.ID, UpdateContentInput{RequesterID: 1, Title: &title, CoverImageURL: &cover})
	require.NoError(t, err)
	assert.Equal(t, title, updated.Essay.Title)
	assert.Equal(t, models.StatusPublished, updated.Essay.Status)
	assert.True(t, updated.Essay.IsPublished)
	assert.True(t, updated.Essay.IsApproved)
	assert.Equal(t, []string{"/media/cover.webp"}, f.blobs.deleted)

	review := f.review(t, 1)
	rating := 9
	_, err = f.svc.Update(ctx, models.KindReview, review.ID, UpdateContentInput{RequesterID: 1, Rating: &rating})
	assertValidationError(t, err)

	rating = 2
	changed, err := f.svc.Update(ctx, models.KindReview, review.ID, UpdateContentInput{RequesterID: 1, Rating: &rating})
	require.NoError(t, err)
	assert.Equal(t, 2, changed.Review.Rating)
	assert.Equal(t, models.ModerationPending, changed.Review.ModerationStatus)

	_, err = f.svc.Update(ctx, models.KindReview, 404, UpdateContentInput{RequesterID: 1, Rating: &rating})
	assertCode(t, err, models.CodeNotFound)
}

func TestContentService_Delete(t *testing.T) {
	f := newContentFixture(t)
	ctx := context.Background()

	essay := f.essay(t, 1)
	assertCode(t, f.svc.Delete(ctx, models.KindEssay, essay.ID, 2), models.CodeForbidden)
	assertCode(t, f.svc.Delete(ctx, models.KindEssay, essay.ID, 0), models.CodeAuthRequired)

	require.NoError(t, f.svc.Delete(ctx, models.KindEssay, essay.ID, 1))
	assert.Equal(t, []string{"/media/cover.webp"}, f.blobs.deleted)
	_, err := f.svc.Get(ctx, models.KindEssay, essay.ID, 1)
	assertCode(t, err, models.CodeNotFound)

	review := f.review(t, 1)
	require.NoError(t, f.svc.Delete(ctx, models.KindReview, review.ID, 9))
	assertCode(t, f.svc.Delete(ctx, models.KindReview, review.ID, 9), models.CodeNotFound)
}

func TestContentService_Delete_BlobFailureKeepsRow(t *testing.T) {
	f := newContentFixture(t)
	ctx := context.Background()

	essay := f.essay(t, 1)
	f.blobs.deleteErr = errors.New("disk unavailable")

	assertCode(t, f.svc.Delete(ctx, models.KindEssay, essay.ID, 1), models.CodeTransient)

	_, err := f.essays.GetByID(ctx, essay.ID)
	assert.NoError(t, err)
}

func TestContentService_CoverOwnership(t *testing.T) {
	f := newContentFixture(t)
	ctx := context.Background()

	essay := f.essay(t, 1)

	// Someone else's upload cannot be borrowed, on create or on update.
	_, err := f.svc.Create(ctx, models.KindEssay, CreateContentInput{
		AuthorID: 2, Title: "Borrowed", Content: "Body", CoverImageURL: "/media/cover.webp",
	})
	assertValidationError(t, err)

	theirs, err := f.svc.Create(ctx, models.KindEssay, CreateContentInput{
		AuthorID: 2, Title: "Their own", Content: "Body", CoverImageURL: "/media/theirs.webp",
	})
	require.NoError(t, err)
	borrowed := "/media/cover.webp"
	_, err = f.svc.Update(ctx, models.KindEssay, theirs.Essay.ID, UpdateContentInput{RequesterID: 2, CoverImageURL: &borrowed})
	assertValidationError(t, err)

	// Unknown blobs under the media prefix are refused too.
	_, err = f.svc.Create(ctx, models.KindEssay, CreateContentInput{
		AuthorID: 1, Title: "Ghost", Content: "Body", CoverImageURL: "/media/ghost.webp",
	})
	assertValidationError(t, err)

	require.NoError(t, f.svc.Delete(ctx, models.KindEssay, theirs.Essay.ID, 2))
	assert.Equal(t, []string{"/media/theirs.webp"}, f.blobs.deleted)

	_, err = f.essays.GetByID(ctx, essay.ID)
	require.NoError(t, err)
}

func TestContentService_SharedCoverSurvivesDelete(t *testing.T) {
	f := newContentFixture(t)
	ctx := context.Background()

	first := f.essay(t, 1)
	second := f.essay(t, 1)

	require.NoError(t, f.svc.Delete(ctx, models.KindEssay, first.ID, 1))
	assert.Empty(t, f.blobs.deleted, "the other essay still shows the cover")

	// Replacing the cover on the last essay using it releases the blob.
	cover := "/media/new-cover.webp"
	_, err := f.svc.Update(ctx, models.KindEssay, second.ID, UpdateContentInput{RequesterID: 1, CoverImageURL: &cover})
	require.NoError(t, err)
	assert.Equal(t, []string{"/media/cover.webp"}, f.blobs.deleted)
}

func TestContentService_ListModerationQueue(t *testing.T) {
	f := newContentFixture(t)
	ctx := context.Background()

	f.review(t, 1)
	f.review(t, 2)

	_, err := f.svc.ListModerationQueue(ctx, 1, 10, 0)
	assertCode(t, err, models.CodeForbidden)

	queue, err := f.svc.ListModerationQueue(ctx, 9, 10, 0)
	require.NoError(t, err)
	assert.Len(t, queue, 2)
}

func TestContentService_ListByAuthor(t *testing.T) {
	f := newContentFixture(t)
	ctx := context.Background()

	visible := f.essay(t, 1)
	hidden := f.essay(t, 1)
	_, err := f.svc.Moderate(ctx, models.KindEssay, hidden.ID, models.ActionUnpublish, 9, "")
	require.NoError(t, err)

	public, err := f.svc.ListByAuthor(ctx, 1, 2, 20, 0)
	require.NoError(t, err)
	require.Len(t, public, 1)
	assert.Equal(t, visible.ID, public[0].ID)

	own, err := f.svc.ListByAuthor(ctx, 1, 1, 20, 0)
	require.NoError(t, err)
	assert.Len(t, own, 2)
}
