package repository

import (
	"context"

	"folio/internal/cache"
	"folio/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EssayRepository defines persistence operations for essays.
type EssayRepository interface {
	Create(ctx context.Context, essay *models.Essay) error
	GetByID(ctx context.Context, id uint) (*models.Essay, error)
	List(ctx context.Context, limit, offset int) ([]*models.Essay, error)
	ListByUser(ctx context.Context, userID uint, limit, offset int) ([]*models.Essay, error)
	Update(ctx context.Context, essay *models.Essay) error
	UpdateStatus(ctx context.Context, id uint, status models.ContentStatus) error
	IncrementViews(ctx context.Context, id uint) (int64, error)
	CountByCover(ctx context.Context, url string, excludeID uint) (int64, error)
	Delete(ctx context.Context, id uint) error
}

type essayRepository struct {
	db *gorm.DB
}

// NewEssayRepository creates a new essay repository
func NewEssayRepository(db *gorm.DB) EssayRepository {
	return &essayRepository{db: db}
}

func (r *essayRepository) Create(ctx context.Context, essay *models.Essay) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(essay).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewValidationError("An essay with this slug already exists")
		}
		return classify(err, "Essay", essay.ID)
	}
	return nil
}

func (r *essayRepository) GetByID(ctx context.Context, id uint) (*models.Essay, error) {
	var essay models.Essay
	err := cache.Aside(ctx, cache.EssayKey(id), &essay, cache.EssayTTL, func() error {
		return classify(r.db.WithContext(ctx).Preload("User").First(&essay, id).Error, "Essay", id)
	})
	if err != nil {
		return nil, err
	}
	return &essay, nil
}

// List returns published essays, newest first.
func (r *essayRepository) List(ctx context.Context, limit, offset int) ([]*models.Essay, error) {
	var essays []*models.Essay
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("status = ?", models.StatusPublished).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&essays).Error
	if err != nil {
		return nil, classify(err, "Essay", nil)
	}
	return essays, nil
}

// ListByUser returns every essay of one author regardless of status.
func (r *essayRepository) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]*models.Essay, error) {
	var essays []*models.Essay
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&essays).Error
	if err != nil {
		return nil, classify(err, "Essay", nil)
	}
	return essays, nil
}

func (r *essayRepository) Update(ctx context.Context, essay *models.Essay) error {
	err := r.db.WithContext(ctx).
		Model(essay).
		Select("title", "excerpt", "content", "cover_image_url", "status", "is_published", "is_approved", "updated_at").
		Updates(essay).Error
	if err != nil {
		return classify(err, "Essay", essay.ID)
	}
	cache.InvalidateEssay(ctx, essay.ID)
	return nil
}

// UpdateStatus writes the status and its boolean projections in one statement.
func (r *essayRepository) UpdateStatus(ctx context.Context, id uint, status models.ContentStatus) error {
	published, approved := status.Flags()
	result := r.db.WithContext(ctx).
		Model(&models.Essay{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":       status,
			"is_published": published,
			"is_approved":  approved,
		})
	if result.Error != nil {
		return classify(result.Error, "Essay", id)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("Essay", id)
	}
	cache.InvalidateEssay(ctx, id)
	return nil
}

// IncrementViews bumps view_count atomically and returns the new value.
func (r *essayRepository) IncrementViews(ctx context.Context, id uint) (int64, error) {
	var essay models.Essay
	result := r.db.WithContext(ctx).
		Model(&essay).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "view_count"}}}).
		Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + ?", 1))
	if result.Error != nil {
		return 0, classify(result.Error, "Essay", id)
	}
	if result.RowsAffected == 0 {
		return 0, models.NewNotFoundError("Essay", id)
	}
	return essay.ViewCount, nil
}

// CountByCover counts live essays other than excludeID that use url as their cover.
func (r *essayRepository) CountByCover(ctx context.Context, url string, excludeID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Essay{}).
		Where("cover_image_url = ? AND id <> ?", url, excludeID).
		Count(&count).Error
	if err != nil {
		return 0, classify(err, "Essay", nil)
	}
	return count, nil
}

func (r *essayRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Essay{}, id)
	if result.Error != nil {
		return classify(result.Error, "Essay", id)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("Essay", id)
	}
	cache.InvalidateEssay(ctx, id)
	return nil
}
