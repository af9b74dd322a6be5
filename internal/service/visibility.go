package service

import (
	"context"

	"folio/internal/models"
	"folio/internal/repository"
)

// maxThreadWalk bounds the upward walk from a comment to its essay or review.
const maxThreadWalk = 64

// Audience decides whether a viewer may see, and therefore engage with, an
// essay, review or comment. Hidden targets are reported as missing unless the
// viewer owns them or is an admin.
type Audience struct {
	essays   repository.EssayRepository
	reviews  repository.ReviewRepository
	comments repository.CommentRepository
	isAdmin  AdminChecker
}

func NewAudience(
	essays repository.EssayRepository,
	reviews repository.ReviewRepository,
	comments repository.CommentRepository,
	isAdmin AdminChecker,
) *Audience {
	return &Audience{essays: essays, reviews: reviews, comments: comments, isAdmin: isAdmin}
}

// Check returns nil when viewerID (0 for anonymous) may see the target.
// A comment is visible when it is approved and its thread's essay or review
// is visible.
func (a *Audience) Check(ctx context.Context, target models.ParentType, id, viewerID uint) error {
	switch target {
	case models.ParentEssay, models.ParentReview:
		return a.checkContent(ctx, target, id, viewerID)
	case models.ParentComment:
		comment, err := a.comments.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if !comment.IsApproved {
			if err := a.revealHidden(ctx, comment.UserID, viewerID, "Comment", id); err != nil {
				return err
			}
		}
		rootType, rootID, err := a.comments.Root(ctx, id, maxThreadWalk)
		if err != nil {
			return err
		}
		if rootType == models.ParentComment {
			return nil
		}
		return a.checkContent(ctx, rootType, rootID, viewerID)
	}
	return models.NewValidationError("Comments can only be posted on essays, reviews or comments")
}

func (a *Audience) checkContent(ctx context.Context, kind models.ParentType, id, viewerID uint) error {
	if kind == models.ParentReview {
		review, err := a.reviews.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if review.Status().Visible() {
			return nil
		}
		return a.revealHidden(ctx, review.UserID, viewerID, "Review", id)
	}

	essay, err := a.essays.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if essay.Status.Visible() {
		return nil
	}
	return a.revealHidden(ctx, essay.UserID, viewerID, "Essay", id)
}

// revealHidden lets owners and admins through and hides the item from everyone else.
func (a *Audience) revealHidden(ctx context.Context, ownerID, viewerID uint, resource string, id uint) error {
	if viewerID == 0 {
		return models.NewNotFoundError(resource, id)
	}
	if err := ownerOrAdmin(ctx, a.isAdmin, ownerID, viewerID, ""); err != nil {
		if models.HasCode(err, models.CodeForbidden) {
			return models.NewNotFoundError(resource, id)
		}
		return err
	}
	return nil
}
