package repository

import (
	"context"
	"database/sql"

	"folio/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CommentRepository defines interface for comment operations
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id uint) (*models.Comment, error)
	Depth(ctx context.Context, id uint, limit int) (int, error)
	Root(ctx context.Context, id uint, limit int) (models.ParentType, uint, error)
	ListByParent(ctx context.Context, parentType models.ParentType, parentID uint, limit, offset int) ([]*models.Comment, error)
	ReplyCounts(ctx context.Context, ids []uint) (map[uint]int64, error)
	UpdateContent(ctx context.Context, id uint, content string) error
	Delete(ctx context.Context, id uint) error
}

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new CommentRepository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(comment).Error; err != nil {
		return classify(err, "Comment", comment.ID)
	}
	return nil
}

func (r *commentRepository) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).Preload("User").First(&comment, id).Error; err != nil {
		return nil, classify(err, "Comment", id)
	}
	return &comment, nil
}

// commentChain walks parent links upward from one comment. Raw SQL ignores
// soft deletes, so removed ancestors stay in the chain.
const commentChain = `
WITH RECURSIVE chain (id, parent_type, parent_id, depth) AS (
	SELECT id, parent_type, parent_id, 0 FROM comments WHERE id = ?
	UNION ALL
	SELECT c.id, c.parent_type, c.parent_id, chain.depth + 1
	FROM comments c
	JOIN chain ON chain.parent_type = 'comment' AND c.id = chain.parent_id
	WHERE chain.depth < ?
)
`

const (
	depthQuery = commentChain + `SELECT MAX(depth) FROM chain`
	rootQuery  = commentChain + `SELECT parent_type, parent_id FROM chain ORDER BY depth DESC LIMIT 1`
)

// Depth returns how many comment ancestors id has, walking at most limit
// links. Soft-deleted ancestors still count so replies keep their level.
func (r *commentRepository) Depth(ctx context.Context, id uint, limit int) (int, error) {
	var depth sql.NullInt64
	if err := r.db.WithContext(ctx).Raw(depthQuery, id, limit).Scan(&depth).Error; err != nil {
		return 0, classify(err, "Comment", id)
	}
	if !depth.Valid {
		return 0, models.NewNotFoundError("Comment", id)
	}
	return int(depth.Int64), nil
}

// Root returns the essay or review a thread hangs off. When the chain is
// longer than limit the topmost visited link is returned as is.
func (r *commentRepository) Root(ctx context.Context, id uint, limit int) (models.ParentType, uint, error) {
	var row struct {
		ParentType string
		ParentID   uint
	}
	result := r.db.WithContext(ctx).Raw(rootQuery, id, limit).Scan(&row)
	if result.Error != nil {
		return "", 0, classify(result.Error, "Comment", id)
	}
	if result.RowsAffected == 0 || row.ParentType == "" {
		return "", 0, models.NewNotFoundError("Comment", id)
	}
	return models.ParentType(row.ParentType), row.ParentID, nil
}

// ListByParent returns approved comments directly under one parent, oldest first.
func (r *commentRepository) ListByParent(ctx context.Context, parentType models.ParentType, parentID uint, limit, offset int) ([]*models.Comment, error) {
	var comments []*models.Comment
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("parent_type = ? AND parent_id = ? AND is_approved = ?", parentType, parentID, true).
		Order("created_at ASC, id ASC").
		Limit(limit).
		Offset(offset).
		Find(&comments).Error
	if err != nil {
		return nil, classify(err, "Comment", nil)
	}
	return comments, nil
}

type replyCount struct {
	ParentID uint
	Count    int64
}

// ReplyCounts returns approved reply counts for ids with a single grouped query.
func (r *commentRepository) ReplyCounts(ctx context.Context, ids []uint) (map[uint]int64, error) {
	counts := make(map[uint]int64, len(ids))
	if len(ids) == 0 {
		return counts, nil
	}

	var rows []replyCount
	err := r.db.WithContext(ctx).
		Model(&models.Comment{}).
		Select("parent_id, COUNT(*) AS count").
		Where("parent_type = ? AND parent_id IN ? AND is_approved = ?", models.ParentComment, ids, true).
		Group("parent_id").
		Scan(&rows).Error
	if err != nil {
		return nil, classify(err, "Comment", nil)
	}
	for _, row := range rows {
		counts[row.ParentID] = row.Count
	}
	return counts, nil
}

func (r *commentRepository) UpdateContent(ctx context.Context, id uint, content string) error {
	result := r.db.WithContext(ctx).Model(&models.Comment{}).Where("id = ?", id).Update("content", content)
	if result.Error != nil {
		return classify(result.Error, "Comment", id)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("Comment", id)
	}
	return nil
}

func (r *commentRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Comment{}, id)
	if result.Error != nil {
		return classify(result.Error, "Comment", id)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("Comment", id)
	}
	return nil
}
