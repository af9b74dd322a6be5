package repository

import (
	"context"

	"folio/internal/cache"
	"folio/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReviewRepository defines persistence operations for reviews.
type ReviewRepository interface {
	Create(ctx context.Context, review *models.Review) error
	GetByID(ctx context.Context, id uint) (*models.Review, error)
	ListApproved(ctx context.Context, limit, offset int) ([]*models.Review, error)
	ListPending(ctx context.Context, limit, offset int) ([]*models.Review, error)
	Update(ctx context.Context, review *models.Review) error
	UpdateModeration(ctx context.Context, id uint, status models.ContentStatus, notes string) error
	Delete(ctx context.Context, id uint) error
}

type reviewRepository struct {
	db *gorm.DB
}

// NewReviewRepository creates a new review repository
func NewReviewRepository(db *gorm.DB) ReviewRepository {
	return &reviewRepository{db: db}
}

func (r *reviewRepository) Create(ctx context.Context, review *models.Review) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(review).Error; err != nil {
		return classify(err, "Review", review.ID)
	}
	return nil
}

func (r *reviewRepository) GetByID(ctx context.Context, id uint) (*models.Review, error) {
	var review models.Review
	err := cache.Aside(ctx, cache.ReviewKey(id), &review, cache.ReviewTTL, func() error {
		return classify(r.db.WithContext(ctx).Preload("User").First(&review, id).Error, "Review", id)
	})
	if err != nil {
		return nil, err
	}
	return &review, nil
}

func (r *reviewRepository) ListApproved(ctx context.Context, limit, offset int) ([]*models.Review, error) {
	return r.listByModeration(ctx, models.ModerationApproved, "created_at DESC", limit, offset)
}

// ListPending returns the moderation queue, oldest first.
func (r *reviewRepository) ListPending(ctx context.Context, limit, offset int) ([]*models.Review, error) {
	return r.listByModeration(ctx, models.ModerationPending, "created_at ASC", limit, offset)
}

func (r *reviewRepository) listByModeration(ctx context.Context, moderation, order string, limit, offset int) ([]*models.Review, error) {
	var reviews []*models.Review
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("moderation_status = ?", moderation).
		Order(order).
		Limit(limit).
		Offset(offset).
		Find(&reviews).Error
	if err != nil {
		return nil, classify(err, "Review", nil)
	}
	return reviews, nil
}

func (r *reviewRepository) Update(ctx context.Context, review *models.Review) error {
	err := r.db.WithContext(ctx).
		Model(review).
		Select("rating", "title", "content", "updated_at").
		Updates(review).Error
	if err != nil {
		return classify(err, "Review", review.ID)
	}
	cache.InvalidateReview(ctx, review.ID)
	return nil
}

// UpdateModeration writes the moderation projection of status and the notes.
func (r *reviewRepository) UpdateModeration(ctx context.Context, id uint, status models.ContentStatus, notes string) error {
	_, approved := status.Flags()
	result := r.db.WithContext(ctx).
		Model(&models.Review{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"moderation_status": status.ModerationStatus(),
			"is_approved":       approved,
			"moderation_notes":  notes,
		})
	if result.Error != nil {
		return classify(result.Error, "Review", id)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("Review", id)
	}
	cache.InvalidateReview(ctx, id)
	return nil
}

func (r *reviewRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Review{}, id)
	if result.Error != nil {
		return classify(result.Error, "Review", id)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("Review", id)
	}
	cache.InvalidateReview(ctx, id)
	return nil
}
