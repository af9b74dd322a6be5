package repository

import (
	"context"
	"errors"
	"time"

	"folio/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SelectionRepository defines persistence operations for discussion selections.
type SelectionRepository interface {
	Get(ctx context.Context, userID uint, discussionID string) ([]int, error)
	Modify(ctx context.Context, userID uint, discussionID string, fn func(current []int) []int) ([]int, error)
}

type selectionRepository struct {
	db *gorm.DB
}

// NewSelectionRepository creates a new SelectionRepository
func NewSelectionRepository(db *gorm.DB) SelectionRepository {
	return &selectionRepository{db: db}
}

// Get returns the stored indices, or an empty set when the user has none.
func (r *selectionRepository) Get(ctx context.Context, userID uint, discussionID string) ([]int, error) {
	var sel models.DiscussionSelection
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND discussion_id = ?", userID, discussionID).
		Take(&sel).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return []int{}, nil
	}
	if err != nil {
		return nil, classify(err, "Selection", discussionID)
	}
	if sel.MessageIndices == nil {
		return []int{}, nil
	}
	return sel.MessageIndices, nil
}

// Modify runs fn against the current set under a row lock and stores its
// result. The row is created empty first so there is always something to lock.
func (r *selectionRepository) Modify(ctx context.Context, userID uint, discussionID string, fn func(current []int) []int) ([]int, error) {
	var next []int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seed := models.DiscussionSelection{
			UserID:         userID,
			DiscussionID:   discussionID,
			MessageIndices: []int{},
			UpdatedAt:      time.Now().UTC(),
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "discussion_id"}},
			DoNothing: true,
		}).Create(&seed).Error; err != nil {
			return err
		}

		var sel models.DiscussionSelection
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND discussion_id = ?", userID, discussionID).
			Take(&sel).Error; err != nil {
			return err
		}

		next = fn(sel.MessageIndices)
		sel.MessageIndices = next
		sel.UpdatedAt = time.Now().UTC()
		return tx.Model(&sel).Select("message_indices", "updated_at").Updates(&sel).Error
	})
	if err != nil {
		return nil, classify(err, "Selection", discussionID)
	}
	return next, nil
}
