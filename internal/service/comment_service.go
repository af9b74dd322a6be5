package service

import (
	"context"
	"fmt"
	"strings"

	"folio/internal/featureflags"
	"folio/internal/models"
	"folio/internal/notifications"
	"folio/internal/repository"
	"folio/internal/textutil"
)

const (
	// DefaultMaxReplyDepth bounds the nesting of comment threads. A top-level
	// comment has depth 0.
	DefaultMaxReplyDepth = 5

	minCommentLen = 3
	maxCommentLen = 10000

	defaultCommentPage = 50
)

type CommentService struct {
	comments repository.CommentRepository
	audience *Audience
	isAdmin  AdminChecker
	events   EventPublisher
	flags    *featureflags.Manager
	maxDepth int
}

type PostCommentInput struct {
	AuthorID   uint
	ParentType models.ParentType
	ParentID   uint
	Content    string
}

func NewCommentService(
	comments repository.CommentRepository,
	audience *Audience,
	isAdmin AdminChecker,
	events EventPublisher,
	flags *featureflags.Manager,
	maxDepth int,
) *CommentService {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxReplyDepth
	}
	return &CommentService{
		comments: comments,
		audience: audience,
		isAdmin:  isAdmin,
		events:   events,
		flags:    flags,
		maxDepth: maxDepth,
	}
}

// MaxDepth is the number of nesting levels a thread may have.
func (s *CommentService) MaxDepth() int {
	return s.maxDepth
}

// cleanContent trims and strips markup, failing when too little text remains.
func cleanContent(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if textutil.Length(trimmed) < minCommentLen {
		return "", models.NewValidationError(fmt.Sprintf("Comment must be at least %d characters", minCommentLen))
	}
	if textutil.Length(trimmed) > maxCommentLen {
		return "", models.NewValidationError(fmt.Sprintf("Comment too long (max %d characters)", maxCommentLen))
	}
	clean := textutil.StripTags(trimmed)
	if textutil.Length(clean) < minCommentLen {
		return "", models.NewValidationError(fmt.Sprintf("Comment must be at least %d characters", minCommentLen))
	}
	return clean, nil
}

// childDepth returns the depth a comment attached to the given parent has.
func (s *CommentService) childDepth(ctx context.Context, parentType models.ParentType, parentID uint) (int, error) {
	if parentType != models.ParentComment {
		return 0, nil
	}
	parentDepth, err := s.comments.Depth(ctx, parentID, s.maxDepth)
	if err != nil {
		return 0, err
	}
	return parentDepth + 1, nil
}

// Post attaches a comment to an essay, review or comment. Replies that
// would exceed the depth cap are refused.
func (s *CommentService) Post(ctx context.Context, in PostCommentInput) (*models.Comment, error) {
	if in.AuthorID == 0 {
		return nil, models.NewAuthError("Sign in to comment")
	}
	content, err := cleanContent(in.Content)
	if err != nil {
		return nil, err
	}

	if err := s.audience.Check(ctx, in.ParentType, in.ParentID, in.AuthorID); err != nil {
		return nil, err
	}

	depth, err := s.childDepth(ctx, in.ParentType, in.ParentID)
	if err != nil {
		return nil, err
	}
	if depth >= s.maxDepth {
		return nil, models.NewDepthExceededError(s.maxDepth)
	}

	comment := &models.Comment{
		UserID:     in.AuthorID,
		ParentType: in.ParentType,
		ParentID:   in.ParentID,
		Content:    content,
		IsApproved: !s.flags.EnabledGlobally(featureflags.CommentModeration),
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}

	created, err := s.comments.GetByID(ctx, comment.ID)
	if err != nil {
		return nil, err
	}
	created.Depth = depth
	created.CanReply = depth+1 < s.maxDepth

	if created.IsApproved {
		publishBroadcast(ctx, s.events, notifications.Event{
			Type: notifications.EventCommentCreated,
			Payload: map[string]any{
				"parent_type": created.ParentType,
				"parent_id":   created.ParentID,
				"comment_id":  created.ID,
			},
		})
	}
	return created, nil
}

// List returns approved comments directly under a parent, oldest first, with
// reply counts filled in. Parents hidden from viewerID answer not found.
func (s *CommentService) List(
	ctx context.Context,
	parentType models.ParentType,
	parentID, viewerID uint,
	limit, offset int,
) ([]*models.Comment, error) {
	if err := s.audience.Check(ctx, parentType, parentID, viewerID); err != nil {
		return nil, err
	}

	depth, err := s.childDepth(ctx, parentType, parentID)
	if err != nil {
		return nil, err
	}

	limit, offset = normalizePage(limit, offset, defaultCommentPage)
	comments, err := s.comments.ListByParent(ctx, parentType, parentID, limit, offset)
	if err != nil {
		return nil, err
	}
	if len(comments) == 0 {
		return comments, nil
	}

	ids := make([]uint, len(comments))
	for i, c := range comments {
		ids[i] = c.ID
	}
	counts, err := s.comments.ReplyCounts(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, c := range comments {
		c.ReplyCount = counts[c.ID]
		c.Depth = depth
		c.CanReply = depth+1 < s.maxDepth
	}
	return comments, nil
}

// Update lets the author edit their comment.
func (s *CommentService) Update(ctx context.Context, id uint, content string, requesterID uint) (*models.Comment, error) {
	if requesterID == 0 {
		return nil, models.NewAuthError("Sign in to edit comments")
	}
	comment, err := s.comments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if comment.UserID != requesterID {
		return nil, models.NewPermissionError("You can only edit your own comments")
	}

	clean, err := cleanContent(content)
	if err != nil {
		return nil, err
	}
	if err := s.comments.UpdateContent(ctx, id, clean); err != nil {
		return nil, err
	}
	return s.comments.GetByID(ctx, id)
}

// Delete removes a comment for its author or an admin. Replies stay in place.
func (s *CommentService) Delete(ctx context.Context, id, requesterID uint) (*models.Comment, error) {
	if requesterID == 0 {
		return nil, models.NewAuthError("Sign in to delete comments")
	}
	comment, err := s.comments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := ownerOrAdmin(ctx, s.isAdmin, comment.UserID, requesterID, "You can only delete your own comments"); err != nil {
		return nil, err
	}
	if err := s.comments.Delete(ctx, id); err != nil {
		return nil, err
	}
	return comment, nil
}
