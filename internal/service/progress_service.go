package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"folio/internal/models"
	"folio/internal/repository"
	"folio/internal/textutil"
)

const maxProgressNotesLen = 2000

type ProgressService struct {
	progress repository.ProgressRepository
}

type UpdateProgressInput struct {
	UserID         uint
	Status         string
	CurrentChapter int
	Notes          string
}

func NewProgressService(progress repository.ProgressRepository) *ProgressService {
	return &ProgressService{progress: progress}
}

func (s *ProgressService) Get(ctx context.Context, userID uint) (*models.ReadingProgress, error) {
	if userID == 0 {
		return nil, models.NewAuthError("Sign in to track your reading")
	}
	return s.progress.Get(ctx, userID)
}

func (s *ProgressService) Upsert(ctx context.Context, in UpdateProgressInput) (*models.ReadingProgress, error) {
	if in.UserID == 0 {
		return nil, models.NewAuthError("Sign in to track your reading")
	}
	if !models.ValidProgressStatus(in.Status) {
		return nil, models.NewValidationError("Unknown reading status")
	}
	if in.CurrentChapter < 0 {
		return nil, models.NewValidationError("Chapter cannot be negative")
	}
	notes := strings.TrimSpace(in.Notes)
	if textutil.Length(notes) > maxProgressNotesLen {
		return nil, models.NewValidationError(fmt.Sprintf("Notes too long (max %d characters)", maxProgressNotesLen))
	}

	p := &models.ReadingProgress{
		UserID:         in.UserID,
		Status:         in.Status,
		CurrentChapter: in.CurrentChapter,
		Notes:          notes,
		UpdatedAt:      time.Now().UTC(),
	}
	if err := s.progress.Upsert(ctx, p); err != nil {
		return nil, err
	}
	return s.progress.Get(ctx, in.UserID)
}
