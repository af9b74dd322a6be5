package repository

import (
	"context"
	"errors"
	"time"

	"folio/internal/cache"
	"folio/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// VoteRepository defines persistence operations for review helpfulness votes.
type VoteRepository interface {
	Upsert(ctx context.Context, reviewID, userID uint, voteType string) (helpful int64, err error)
	Summary(ctx context.Context, reviewID, userID uint) (*models.VoteSummary, error)
}

type voteRepository struct {
	db *gorm.DB
}

// NewVoteRepository creates a new VoteRepository
func NewVoteRepository(db *gorm.DB) VoteRepository {
	return &voteRepository{db: db}
}

// Upsert records the user's vote, replacing any earlier one, and rewrites
// the review's helpful_count from the vote rows.
func (r *voteRepository) Upsert(ctx context.Context, reviewID, userID uint, voteType string) (int64, error) {
	var helpful int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		vote := models.ReviewVote{
			UserID:    userID,
			ReviewID:  reviewID,
			VoteType:  voteType,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "review_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"vote_type", "updated_at"}),
		}).Create(&vote).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.ReviewVote{}).
			Where("review_id = ? AND vote_type = ?", reviewID, models.VoteHelpful).
			Count(&helpful).Error; err != nil {
			return err
		}

		return tx.Model(&models.Review{}).
			Where("id = ?", reviewID).
			UpdateColumn("helpful_count", helpful).Error
	})
	if err != nil {
		return 0, classify(err, "Review", reviewID)
	}
	cache.InvalidateReview(ctx, reviewID)
	return helpful, nil
}

type voteTally struct {
	VoteType string
	Count    int64
}

func (r *voteRepository) Summary(ctx context.Context, reviewID, userID uint) (*models.VoteSummary, error) {
	var tallies []voteTally
	if err := r.db.WithContext(ctx).
		Model(&models.ReviewVote{}).
		Select("vote_type, COUNT(*) AS count").
		Where("review_id = ?", reviewID).
		Group("vote_type").
		Scan(&tallies).Error; err != nil {
		return nil, classify(err, "Review", reviewID)
	}

	summary := &models.VoteSummary{ReviewID: reviewID}
	for _, t := range tallies {
		switch t.VoteType {
		case models.VoteHelpful:
			summary.Helpful = t.Count
		case models.VoteNotHelpful:
			summary.NotHelpful = t.Count
		}
	}

	if userID != 0 {
		var vote models.ReviewVote
		err := r.db.WithContext(ctx).
			Where("review_id = ? AND user_id = ?", reviewID, userID).
			Take(&vote).Error
		switch {
		case err == nil:
			summary.UserVote = vote.VoteType
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return nil, classify(err, "Review", reviewID)
		}
	}
	return summary, nil
}
