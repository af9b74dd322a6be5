package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"folio/internal/models"
	"folio/internal/notifications"
	"folio/internal/observability"
	"folio/internal/repository"
	"folio/internal/storage"
	"folio/internal/textutil"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

const (
	maxEssayTitleLen   = 300
	maxEssayContentLen = 100000
	maxExcerptLen      = 500
	autoExcerptLen     = 280
	maxSlugBaseLen     = 80

	minReviewContentLen = 50
	maxReviewContentLen = 20000
	maxReviewTitleLen   = 200

	maxModerationNotesLen = 2000
)

// ContentService runs essays and reviews through their moderation lifecycle.
type ContentService struct {
	essays  repository.EssayRepository
	reviews repository.ReviewRepository
	blobs   storage.BlobStore
	isAdmin AdminChecker
	events  EventPublisher
}

// CreateContentInput carries the author's fields. Rating applies to reviews,
// Excerpt and CoverImageURL to essays.
type CreateContentInput struct {
	AuthorID      uint
	Title         string
	Content       string
	Excerpt       string
	CoverImageURL string
	Rating        int
}

// UpdateContentInput is a partial update; nil fields are left alone.
type UpdateContentInput struct {
	RequesterID   uint
	Title         *string
	Content       *string
	Excerpt       *string
	CoverImageURL *string
	Rating        *int
}

func NewContentService(
	essays repository.EssayRepository,
	reviews repository.ReviewRepository,
	blobs storage.BlobStore,
	isAdmin AdminChecker,
	events EventPublisher,
) *ContentService {
	return &ContentService{
		essays:  essays,
		reviews: reviews,
		blobs:   blobs,
		isAdmin: isAdmin,
		events:  events,
	}
}

func invalidKind() error {
	return models.NewValidationError("Content kind must be essay or review")
}

// Create stores a new item in its kind's initial state: essays publish
// immediately, reviews wait in the moderation queue.
func (s *ContentService) Create(ctx context.Context, kind models.ContentKind, in CreateContentInput) (item *models.ContentItem, err error) {
	span, ctx := observability.StartContentSpan(ctx, "ContentService.Create", kind, 0, in.AuthorID)
	defer func() { span.Finish(err) }()

	if in.AuthorID == 0 {
		return nil, models.NewAuthError("Sign in to publish")
	}

	switch kind {
	case models.KindEssay:
		return s.createEssay(ctx, in)
	case models.KindReview:
		return s.createReview(ctx, in)
	}
	return nil, invalidKind()
}

func (s *ContentService) createEssay(ctx context.Context, in CreateContentInput) (*models.ContentItem, error) {
	title := strings.TrimSpace(in.Title)
	content := strings.TrimSpace(in.Content)
	excerpt := strings.TrimSpace(in.Excerpt)
	if err := validateEssayFields(title, content, excerpt); err != nil {
		return nil, err
	}
	if err := s.checkCover(ctx, in.CoverImageURL, in.AuthorID); err != nil {
		return nil, err
	}
	if excerpt == "" {
		excerpt = textutil.Excerpt(content, autoExcerptLen)
	}

	essay := &models.Essay{
		UserID:        in.AuthorID,
		Title:         title,
		Slug:          newSlug(title),
		Excerpt:       excerpt,
		Content:       content,
		CoverImageURL: in.CoverImageURL,
	}
	essay.SetStatus(models.InitialStatus(models.KindEssay))

	if err := s.essays.Create(ctx, essay); err != nil {
		return nil, err
	}
	created, err := s.essays.GetByID(ctx, essay.ID)
	if err != nil {
		return nil, err
	}
	return models.EssayItem(created), nil
}

func (s *ContentService) createReview(ctx context.Context, in CreateContentInput) (*models.ContentItem, error) {
	review := &models.Review{
		UserID:  in.AuthorID,
		Rating:  in.Rating,
		Title:   strings.TrimSpace(in.Title),
		Content: strings.TrimSpace(in.Content),
	}
	if err := validateReview(review); err != nil {
		return nil, err
	}
	review.SetStatus(models.InitialStatus(models.KindReview))

	if err := s.reviews.Create(ctx, review); err != nil {
		return nil, err
	}
	created, err := s.reviews.GetByID(ctx, review.ID)
	if err != nil {
		return nil, err
	}
	return models.ReviewItem(created), nil
}

func validateEssayFields(title, content, excerpt string) error {
	if title == "" {
		return models.NewValidationError("Title is required")
	}
	if textutil.Length(title) > maxEssayTitleLen {
		return models.NewValidationError(fmt.Sprintf("Title too long (max %d characters)", maxEssayTitleLen))
	}
	if content == "" {
		return models.NewValidationError("Content is required")
	}
	if textutil.Length(content) > maxEssayContentLen {
		return models.NewValidationError(fmt.Sprintf("Content too long (max %d characters)", maxEssayContentLen))
	}
	if textutil.Length(excerpt) > maxExcerptLen {
		return models.NewValidationError(fmt.Sprintf("Excerpt too long (max %d characters)", maxExcerptLen))
	}
	return nil
}

func validateReview(r *models.Review) error {
	if r.Rating < 1 || r.Rating > 5 {
		return models.NewValidationError("Rating must be between 1 and 5")
	}
	if textutil.Length(r.Title) > maxReviewTitleLen {
		return models.NewValidationError(fmt.Sprintf("Title too long (max %d characters)", maxReviewTitleLen))
	}
	n := textutil.Length(r.Content)
	if n < minReviewContentLen {
		return models.NewValidationError(fmt.Sprintf("Review must be at least %d characters", minReviewContentLen))
	}
	if n > maxReviewContentLen {
		return models.NewValidationError(fmt.Sprintf("Review too long (max %d characters)", maxReviewContentLen))
	}
	return nil
}

// checkCover accepts no cover or a blob the author uploaded themselves.
func (s *ContentService) checkCover(ctx context.Context, url string, authorID uint) error {
	if url == "" {
		return nil
	}
	if !strings.HasPrefix(url, storage.URLPrefix) || s.blobs == nil {
		return models.NewValidationError("Cover image must be uploaded first")
	}
	owned, err := s.blobs.Owns(ctx, url, authorID)
	if err != nil {
		return err
	}
	if !owned {
		return models.NewValidationError("Cover image must be one of your uploads")
	}
	return nil
}

func newSlug(title string) string {
	base := textutil.Slugify(title, maxSlugBaseLen)
	if base == "" {
		base = "essay"
	}
	return base + "-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

func (s *ContentService) load(ctx context.Context, kind models.ContentKind, id uint) (*models.ContentItem, error) {
	switch kind {
	case models.KindEssay:
		essay, err := s.essays.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return models.EssayItem(essay), nil
	case models.KindReview:
		review, err := s.reviews.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return models.ReviewItem(review), nil
	}
	return nil, invalidKind()
}

// Get returns one item. Items the public cannot see are reported as missing
// unless the viewer owns them or is an admin. Public essay reads count a view.
func (s *ContentService) Get(ctx context.Context, kind models.ContentKind, id, viewerID uint) (*models.ContentItem, error) {
	item, err := s.load(ctx, kind, id)
	if err != nil {
		return nil, err
	}

	if !item.Status().Visible() {
		if viewerID == 0 {
			return nil, models.NewNotFoundError(titleFor(kind), id)
		}
		if err := ownerOrAdmin(ctx, s.isAdmin, item.OwnerID(), viewerID, ""); err != nil {
			if models.HasCode(err, models.CodeForbidden) {
				return nil, models.NewNotFoundError(titleFor(kind), id)
			}
			return nil, err
		}
	} else if item.Essay != nil {
		views, err := s.essays.IncrementViews(ctx, id)
		if err != nil {
			return nil, err
		}
		item.Essay.ViewCount = views
	}

	if item.Essay != nil {
		item.Essay.ContentHTML = textutil.RenderMarkdown(item.Essay.Content)
	}
	return item, nil
}

// List returns publicly visible items, newest first.
func (s *ContentService) List(ctx context.Context, kind models.ContentKind, limit, offset int) ([]*models.ContentItem, error) {
	limit, offset = normalizePage(limit, offset, defaultPageSize)

	switch kind {
	case models.KindEssay:
		essays, err := s.essays.List(ctx, limit, offset)
		if err != nil {
			return nil, err
		}
		items := make([]*models.ContentItem, 0, len(essays))
		for _, e := range essays {
			items = append(items, models.EssayItem(e))
		}
		return items, nil
	case models.KindReview:
		reviews, err := s.reviews.ListApproved(ctx, limit, offset)
		if err != nil {
			return nil, err
		}
		items := make([]*models.ContentItem, 0, len(reviews))
		for _, r := range reviews {
			items = append(items, models.ReviewItem(r))
		}
		return items, nil
	}
	return nil, invalidKind()
}

// ListByAuthor returns every essay of one author. Drafts and moderated essays
// are included only when the viewer is the author or an admin.
func (s *ContentService) ListByAuthor(ctx context.Context, authorID, viewerID uint, limit, offset int) ([]*models.Essay, error) {
	limit, offset = normalizePage(limit, offset, defaultPageSize)
	essays, err := s.essays.ListByUser(ctx, authorID, limit, offset)
	if err != nil {
		return nil, err
	}

	privileged := viewerID != 0 && viewerID == authorID
	if !privileged {
		if privileged, err = checkAdmin(ctx, s.isAdmin, viewerID); err != nil {
			return nil, err
		}
	}
	if privileged {
		return essays, nil
	}

	visible := essays[:0]
	for _, e := range essays {
		if e.Status.Visible() {
			visible = append(visible, e)
		}
	}
	return visible, nil
}

// ListModerationQueue returns pending reviews, oldest first.
func (s *ContentService) ListModerationQueue(ctx context.Context, requesterID uint, limit, offset int) ([]*models.Review, error) {
	if err := requireAdmin(ctx, s.isAdmin, requesterID); err != nil {
		return nil, err
	}
	limit, offset = normalizePage(limit, offset, defaultPageSize)
	return s.reviews.ListPending(ctx, limit, offset)
}

// Update applies the owner's edits. Edited essays stay published; reviews
// keep their moderation state.
func (s *ContentService) Update(ctx context.Context, kind models.ContentKind, id uint, in UpdateContentInput) (*models.ContentItem, error) {
	if in.RequesterID == 0 {
		return nil, models.NewAuthError("Sign in to edit")
	}

	item, err := s.load(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if item.OwnerID() != in.RequesterID {
		return nil, models.NewPermissionError(fmt.Sprintf("You can only edit your own %ss", kind))
	}

	if item.Essay != nil {
		return s.updateEssay(ctx, item.Essay, in)
	}
	return s.updateReview(ctx, item.Review, in)
}

func (s *ContentService) updateEssay(ctx context.Context, essay *models.Essay, in UpdateContentInput) (*models.ContentItem, error) {
	previousCover := essay.CoverImageURL

	if in.Title != nil {
		essay.Title = strings.TrimSpace(*in.Title)
	}
	if in.Content != nil {
		essay.Content = strings.TrimSpace(*in.Content)
		if in.Excerpt == nil {
			essay.Excerpt = textutil.Excerpt(essay.Content, autoExcerptLen)
		}
	}
	if in.Excerpt != nil {
		essay.Excerpt = strings.TrimSpace(*in.Excerpt)
	}
	if in.CoverImageURL != nil && *in.CoverImageURL != previousCover {
		if err := s.checkCover(ctx, *in.CoverImageURL, essay.UserID); err != nil {
			return nil, err
		}
		essay.CoverImageURL = *in.CoverImageURL
	}
	if err := validateEssayFields(essay.Title, essay.Content, essay.Excerpt); err != nil {
		return nil, err
	}

	essay.SetStatus(models.StatusPublished)
	if err := s.essays.Update(ctx, essay); err != nil {
		return nil, err
	}

	if previousCover != "" && previousCover != essay.CoverImageURL {
		if err := s.releaseCover(ctx, essay.ID, previousCover); err != nil {
			slog.WarnContext(ctx, "failed to delete replaced cover", "url", previousCover, "error", err)
		}
	}

	updated, err := s.essays.GetByID(ctx, essay.ID)
	if err != nil {
		return nil, err
	}
	return models.EssayItem(updated), nil
}

func (s *ContentService) updateReview(ctx context.Context, review *models.Review, in UpdateContentInput) (*models.ContentItem, error) {
	if in.Rating != nil {
		review.Rating = *in.Rating
	}
	if in.Title != nil {
		review.Title = strings.TrimSpace(*in.Title)
	}
	if in.Content != nil {
		review.Content = strings.TrimSpace(*in.Content)
	}
	if err := validateReview(review); err != nil {
		return nil, err
	}

	if err := s.reviews.Update(ctx, review); err != nil {
		return nil, err
	}
	updated, err := s.reviews.GetByID(ctx, review.ID)
	if err != nil {
		return nil, err
	}
	return models.ReviewItem(updated), nil
}

// Moderate applies an admin action. Notes are kept on reviews only.
func (s *ContentService) Moderate(
	ctx context.Context,
	kind models.ContentKind,
	id uint,
	action models.ModerationAction,
	requesterID uint,
	notes string,
) (item *models.ContentItem, err error) {
	span, ctx := observability.StartContentSpan(ctx, "ContentService.Moderate", kind, id, requesterID)
	span.AddAttributes(attribute.String("moderation.action", string(action)))
	defer func() { span.Finish(err) }()

	if err := requireAdmin(ctx, s.isAdmin, requesterID); err != nil {
		return nil, err
	}
	notes = strings.TrimSpace(notes)
	if textutil.Length(notes) > maxModerationNotesLen {
		return nil, models.NewValidationError(fmt.Sprintf("Notes too long (max %d characters)", maxModerationNotesLen))
	}

	item, err = s.load(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	next, err := item.Status().Transition(kind, action)
	if err != nil {
		return nil, err
	}

	switch kind {
	case models.KindEssay:
		err = s.essays.UpdateStatus(ctx, id, next)
	case models.KindReview:
		err = s.reviews.UpdateModeration(ctx, id, next, notes)
	}
	if err != nil {
		return nil, err
	}

	observability.ModerationTransitions.WithLabelValues(string(kind), string(action), string(next)).Inc()
	slog.InfoContext(ctx, "content moderated",
		"kind", kind, "id", id, "action", action, "status", next, "moderator_id", requesterID)
	publishUser(ctx, s.events, item.OwnerID(), notifications.Event{
		Type: notifications.EventContentModerated,
		Payload: map[string]any{
			"kind":   kind,
			"id":     id,
			"status": next,
		},
	})

	return s.load(ctx, kind, id)
}

// Delete removes an item for its owner or an admin. An essay's cover blob is
// removed before the row.
func (s *ContentService) Delete(ctx context.Context, kind models.ContentKind, id, requesterID uint) (err error) {
	span, ctx := observability.StartContentSpan(ctx, "ContentService.Delete", kind, id, requesterID)
	defer func() { span.Finish(err) }()

	if requesterID == 0 {
		return models.NewAuthError("Sign in to delete")
	}
	item, err := s.load(ctx, kind, id)
	if err != nil {
		return err
	}
	if err := ownerOrAdmin(ctx, s.isAdmin, item.OwnerID(), requesterID, fmt.Sprintf("You can only delete your own %ss", kind)); err != nil {
		return err
	}

	if item.Essay != nil {
		if err := s.releaseCover(ctx, id, item.Essay.CoverImageURL); err != nil {
			return err
		}
		return s.essays.Delete(ctx, id)
	}
	return s.reviews.Delete(ctx, id)
}

// releaseCover deletes the cover blob of essayID unless another essay still
// shows it.
func (s *ContentService) releaseCover(ctx context.Context, essayID uint, url string) error {
	if url == "" || s.blobs == nil {
		return nil
	}
	others, err := s.essays.CountByCover(ctx, url, essayID)
	if err != nil {
		return err
	}
	if others > 0 {
		slog.DebugContext(ctx, "cover still in use, keeping blob", "url", url, "essay_id", essayID, "users", others)
		return nil
	}
	if err := s.blobs.Delete(ctx, url); err != nil {
		return models.NewTransientError(err)
	}
	return nil
}

func titleFor(kind models.ContentKind) string {
	if kind == models.KindReview {
		return "Review"
	}
	return "Essay"
}
