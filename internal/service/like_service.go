package service

import (
	"context"
	"errors"
	"log/slog"

	"folio/internal/models"
	"folio/internal/notifications"
	"folio/internal/observability"
	"folio/internal/repository"
)

// maxToggleAttempts bounds the retries when a concurrent toggle wins the insert.
const maxToggleAttempts = 3

// LikeResult is the caller's like state and the target's total after an operation.
type LikeResult struct {
	Liked bool  `json:"liked"`
	Count int64 `json:"count"`
}

type LikeService struct {
	likes    repository.LikeRepository
	audience *Audience
	events   EventPublisher
}

func NewLikeService(likes repository.LikeRepository, audience *Audience, events EventPublisher) *LikeService {
	return &LikeService{likes: likes, audience: audience, events: events}
}

// ensureTarget fails with not found unless viewerID may see the target.
func (s *LikeService) ensureTarget(ctx context.Context, kind models.LikeKind, targetID, viewerID uint) error {
	switch kind {
	case models.LikeEssay:
		return s.audience.Check(ctx, models.ParentEssay, targetID, viewerID)
	case models.LikeComment:
		return s.audience.Check(ctx, models.ParentComment, targetID, viewerID)
	}
	return models.NewValidationError("Only essays and comments can be liked")
}

// Toggle flips the user's like on the target and returns the new state.
func (s *LikeService) Toggle(ctx context.Context, kind models.LikeKind, targetID, userID uint) (LikeResult, error) {
	if userID == 0 {
		return LikeResult{}, models.NewAuthError("Sign in to like")
	}
	if err := s.ensureTarget(ctx, kind, targetID, userID); err != nil {
		return LikeResult{}, err
	}

	for attempt := 1; attempt <= maxToggleAttempts; attempt++ {
		liked, count, err := s.likes.Toggle(ctx, kind, targetID, userID)
		if errors.Is(err, repository.ErrToggleRace) {
			observability.LikeToggleRetries.WithLabelValues(string(kind)).Inc()
			slog.DebugContext(ctx, "like toggle raced, retrying", "kind", kind, "target_id", targetID, "attempt", attempt)
			continue
		}
		if err != nil {
			return LikeResult{}, err
		}

		result := LikeResult{Liked: liked, Count: count}
		publishBroadcast(ctx, s.events, notifications.Event{
			Type: notifications.EventLikeUpdated,
			Payload: map[string]any{
				"kind":      kind,
				"target_id": targetID,
				"count":     count,
			},
		})
		return result, nil
	}

	return LikeResult{}, models.NewTransientError(repository.ErrToggleRace)
}

// Status reports the target's like count and whether userID likes it.
// Anonymous callers always see Liked=false.
func (s *LikeService) Status(ctx context.Context, kind models.LikeKind, targetID, userID uint) (LikeResult, error) {
	if err := s.ensureTarget(ctx, kind, targetID, userID); err != nil {
		return LikeResult{}, err
	}

	count, err := s.likes.Count(ctx, kind, targetID)
	if err != nil {
		return LikeResult{}, err
	}
	result := LikeResult{Count: count}
	if userID != 0 {
		if result.Liked, err = s.likes.IsLiked(ctx, kind, targetID, userID); err != nil {
			return LikeResult{}, err
		}
	}
	return result, nil
}
