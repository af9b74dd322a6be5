package service

import (
	"context"

	"folio/internal/models"
	"folio/internal/notifications"
	"folio/internal/repository"
)

type VoteService struct {
	votes    repository.VoteRepository
	audience *Audience
	events   EventPublisher
}

func NewVoteService(votes repository.VoteRepository, audience *Audience, events EventPublisher) *VoteService {
	return &VoteService{votes: votes, audience: audience, events: events}
}

// Record stores the user's vote on a review, replacing any earlier vote.
func (s *VoteService) Record(ctx context.Context, reviewID uint, voteType string, userID uint) error {
	if userID == 0 {
		return models.NewAuthError("Sign in to vote")
	}
	if !models.ValidVoteType(voteType) {
		return models.NewValidationError("Vote must be helpful or not_helpful")
	}
	if err := s.audience.Check(ctx, models.ParentReview, reviewID, userID); err != nil {
		return err
	}

	helpful, err := s.votes.Upsert(ctx, reviewID, userID, voteType)
	if err != nil {
		return err
	}

	publishBroadcast(ctx, s.events, notifications.Event{
		Type: notifications.EventVoteRecorded,
		Payload: map[string]any{
			"review_id":     reviewID,
			"helpful_count": helpful,
		},
	})
	return nil
}

// Summary tallies the votes on a review along with the caller's own vote.
func (s *VoteService) Summary(ctx context.Context, reviewID, userID uint) (*models.VoteSummary, error) {
	if err := s.audience.Check(ctx, models.ParentReview, reviewID, userID); err != nil {
		return nil, err
	}
	return s.votes.Summary(ctx, reviewID, userID)
}
