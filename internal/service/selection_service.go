package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"folio/internal/cache"
	"folio/internal/discussions"
	"folio/internal/models"
	"folio/internal/observability"
	"folio/internal/repository"

	"github.com/redis/go-redis/v9"
)

const (
	selectionLockTTL  = 5 * time.Second
	selectionLockWait = time.Second
)

// ToggleIndex flips message index in a prefix-closed selection. Deselecting
// drops index and everything after it; selecting fills in every earlier index.
func ToggleIndex(current []int, index int) []int {
	if slices.Contains(current, index) {
		next := make([]int, 0, index)
		for _, i := range current {
			if i < index {
				next = append(next, i)
			}
		}
		slices.Sort(next)
		return slices.Compact(next)
	}

	next := make([]int, 0, index+1)
	for i := 0; i <= index; i++ {
		next = append(next, i)
	}
	for _, i := range current {
		if i > index {
			next = append(next, i)
		}
	}
	slices.Sort(next)
	return slices.Compact(next)
}

// clampSelection drops indices the discussion no longer has.
func clampSelection(current []int, length int) []int {
	out := make([]int, 0, len(current))
	for _, i := range current {
		if i >= 0 && i < length {
			out = append(out, i)
		}
	}
	return out
}

// SelectionService tracks which discussion points a reader has worked through.
type SelectionService struct {
	selections repository.SelectionRepository
	catalog    *discussions.Catalog
	rdb        *redis.Client
}

// NewSelectionService builds the service. With a nil rdb toggles are
// serialized by the store's row lock alone.
func NewSelectionService(selections repository.SelectionRepository, catalog *discussions.Catalog, rdb *redis.Client) *SelectionService {
	return &SelectionService{selections: selections, catalog: catalog, rdb: rdb}
}

func (s *SelectionService) discussionLength(discussionID string) (int, error) {
	n, ok := s.catalog.Length(discussionID)
	if !ok {
		return 0, models.NewNotFoundError("Discussion", discussionID)
	}
	return n, nil
}

// Toggle flips one message of a discussion for userID and returns the
// resulting selection.
func (s *SelectionService) Toggle(ctx context.Context, discussionID string, index int, userID uint) ([]int, error) {
	if userID == 0 {
		return nil, models.NewAuthError("Sign in to track discussion points")
	}
	n, err := s.discussionLength(discussionID)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= n {
		return nil, models.NewValidationError(fmt.Sprintf("Message index must be between 0 and %d", n-1))
	}

	lock, err := cache.Acquire(ctx, s.rdb, cache.SelectionKey(userID, discussionID), selectionLockTTL, selectionLockWait)
	switch {
	case err == nil:
		defer func() {
			if releaseErr := lock.Release(context.WithoutCancel(ctx)); releaseErr != nil {
				slog.WarnContext(ctx, "failed to release selection lock", "discussion_id", discussionID, "error", releaseErr)
			}
		}()
	case errors.Is(err, cache.ErrLockBusy):
		return nil, models.NewTransientError(err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return nil, models.NewTransientError(err)
	case errors.Is(err, cache.ErrNoRedis):
		observability.SelectionLockFallbacks.WithLabelValues("no_redis").Inc()
	default:
		observability.SelectionLockFallbacks.WithLabelValues("redis_error").Inc()
		slog.WarnContext(ctx, "selection lock unavailable, using row lock", "error", err)
	}

	return s.selections.Modify(ctx, userID, discussionID, func(current []int) []int {
		return ToggleIndex(clampSelection(current, n), index)
	})
}

// Get returns the reader's current selection. Anonymous readers have none.
func (s *SelectionService) Get(ctx context.Context, discussionID string, userID uint) ([]int, error) {
	n, err := s.discussionLength(discussionID)
	if err != nil {
		return nil, err
	}
	if userID == 0 {
		return []int{}, nil
	}
	current, err := s.selections.Get(ctx, userID, discussionID)
	if err != nil {
		return nil, err
	}
	return clampSelection(current, n), nil
}

// Discussions lists the catalog.
func (s *SelectionService) Discussions() []discussions.Summary {
	return s.catalog.List()
}

// Discussion returns one discussion with its messages.
func (s *SelectionService) Discussion(id string) (*discussions.Discussion, error) {
	d, ok := s.catalog.Get(id)
	if !ok {
		return nil, models.NewNotFoundError("Discussion", id)
	}
	return d, nil
}
