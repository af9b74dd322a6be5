package repository

import (
	"context"
	"time"

	"folio/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProgressRepository defines persistence operations for reading progress.
type ProgressRepository interface {
	Get(ctx context.Context, userID uint) (*models.ReadingProgress, error)
	Upsert(ctx context.Context, progress *models.ReadingProgress) error
}

type progressRepository struct {
	db *gorm.DB
}

// NewProgressRepository creates a new ProgressRepository
func NewProgressRepository(db *gorm.DB) ProgressRepository {
	return &progressRepository{db: db}
}

func (r *progressRepository) Get(ctx context.Context, userID uint) (*models.ReadingProgress, error) {
	var p models.ReadingProgress
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Take(&p).Error; err != nil {
		return nil, classify(err, "Reading progress", userID)
	}
	return &p, nil
}

func (r *progressRepository) Upsert(ctx context.Context, progress *models.ReadingProgress) error {
	progress.UpdatedAt = time.Now().UTC()
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "current_chapter", "notes", "updated_at"}),
	}).Create(progress).Error
	return classify(err, "Reading progress", progress.UserID)
}
