package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"folio/internal/cache"
	"folio/internal/models"

	"gorm.io/gorm"
)

// ErrToggleRace is returned when a concurrent toggle inserted the same like
// between our delete and insert. The caller should retry.
var ErrToggleRace = errors.New("like toggle raced with a concurrent toggle")

// LikeRepository defines persistence operations for likes on essays and comments.
type LikeRepository interface {
	Toggle(ctx context.Context, kind models.LikeKind, targetID, userID uint) (liked bool, count int64, err error)
	IsLiked(ctx context.Context, kind models.LikeKind, targetID, userID uint) (bool, error)
	Count(ctx context.Context, kind models.LikeKind, targetID uint) (int64, error)
}

type likeTable struct {
	table    string
	column   string
	target   string
	resource string
}

var likeTables = map[models.LikeKind]likeTable{
	models.LikeEssay:   {table: "essay_likes", column: "essay_id", target: "essays", resource: "Essay"},
	models.LikeComment: {table: "comment_likes", column: "comment_id", target: "comments", resource: "Comment"},
}

type likeRepository struct {
	db *gorm.DB
}

// NewLikeRepository creates a new LikeRepository
func NewLikeRepository(db *gorm.DB) LikeRepository {
	return &likeRepository{db: db}
}

func tableFor(kind models.LikeKind) (likeTable, error) {
	t, ok := likeTables[kind]
	if !ok {
		return likeTable{}, models.NewValidationError("Unsupported like target")
	}
	return t, nil
}

// Toggle flips the like in one transaction: delete first, insert only if
// nothing was deleted. The denormalised like_count is rewritten from COUNT(*)
// before commit.
func (r *likeRepository) Toggle(ctx context.Context, kind models.LikeKind, targetID, userID uint) (bool, int64, error) {
	t, err := tableFor(kind)
	if err != nil {
		return false, 0, err
	}

	var liked bool
	var count int64
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		del := tx.Exec(
			fmt.Sprintf("DELETE FROM %s WHERE user_id = ? AND %s = ?", t.table, t.column),
			userID, targetID,
		)
		if del.Error != nil {
			return del.Error
		}

		if del.RowsAffected == 0 {
			ins := tx.Exec(
				fmt.Sprintf("INSERT INTO %s (user_id, %s, created_at) VALUES (?, ?, ?) ON CONFLICT (user_id, %s) DO NOTHING",
					t.table, t.column, t.column),
				userID, targetID, time.Now().UTC(),
			)
			if ins.Error != nil {
				return ins.Error
			}
			if ins.RowsAffected == 0 {
				return ErrToggleRace
			}
			liked = true
		}

		if err := tx.Raw(
			fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s = ?", t.table, t.column),
			targetID,
		).Scan(&count).Error; err != nil {
			return err
		}

		return tx.Exec(
			fmt.Sprintf("UPDATE %s SET like_count = ? WHERE id = ?", t.target),
			count, targetID,
		).Error
	})
	if err != nil {
		if errors.Is(err, ErrToggleRace) {
			return false, 0, err
		}
		return false, 0, classify(err, t.resource, targetID)
	}

	if kind == models.LikeEssay {
		cache.InvalidateEssay(ctx, targetID)
	}
	return liked, count, nil
}

func (r *likeRepository) IsLiked(ctx context.Context, kind models.LikeKind, targetID, userID uint) (bool, error) {
	t, err := tableFor(kind)
	if err != nil {
		return false, err
	}
	var count int64
	if err := r.db.WithContext(ctx).
		Table(t.table).
		Where("user_id = ? AND "+t.column+" = ?", userID, targetID).
		Count(&count).Error; err != nil {
		return false, classify(err, t.resource, targetID)
	}
	return count > 0, nil
}

func (r *likeRepository) Count(ctx context.Context, kind models.LikeKind, targetID uint) (int64, error) {
	t, err := tableFor(kind)
	if err != nil {
		return 0, err
	}
	var count int64
	if err := r.db.WithContext(ctx).
		Table(t.table).
		Where(t.column+" = ?", targetID).
		Count(&count).Error; err != nil {
		return 0, classify(err, t.resource, targetID)
	}
	return count, nil
}
