// Package seed provides helpers to create demo data for the application
// database. These helpers are intended for development and testing only.
package seed

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"folio/internal/models"
	"folio/internal/textutil"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
)

// Factory builds domain entities without persisting them. The Seeder
// decides how they are written.
type Factory struct {
	faker   *gofakeit.Faker
	rng     *rand.Rand
	maxDays int
	now     func() time.Time
}

// NewFactory creates a Factory. A zero seed picks one from the clock.
func NewFactory(seed int64, maxDays int) *Factory {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if maxDays <= 0 {
		maxDays = 90
	}
	return &Factory{
		faker: gofakeit.New(seed),
		//nolint:gosec // Weak random number generator is fine for seeding
		rng:     rand.New(rand.NewSource(seed)),
		maxDays: maxDays,
		now:     time.Now,
	}
}

// createdAt spreads timestamps over the last maxDays.
func (f *Factory) createdAt() time.Time {
	back := time.Duration(f.rng.Intn(f.maxDays))*24*time.Hour +
		time.Duration(f.rng.Intn(24))*time.Hour +
		time.Duration(f.rng.Intn(60))*time.Minute
	return f.now().Add(-back)
}

// BuildUser returns reader n. IDs are assigned explicitly because the
// identity provider owns them.
func (f *Factory) BuildUser(id uint) models.User {
	first, last := f.faker.FirstName(), f.faker.LastName()
	username := strings.ToLower(fmt.Sprintf("%s.%s%d", first, last, id))
	return models.User{
		ID:          id,
		Username:    username,
		DisplayName: first + " " + last,
		AvatarURL:   fmt.Sprintf("https://i.pravatar.cc/150?u=%s", username),
		Role:        models.RoleReader,
	}
}

// BuildEssay returns an essay by author in the given status.
func (f *Factory) BuildEssay(author uint, status models.ContentStatus) models.Essay {
	title := strings.TrimSuffix(f.faker.Sentence(f.rng.Intn(6)+3), ".")
	content := f.faker.Paragraph(f.rng.Intn(4)+2, 4, 12, "\n\n")

	slug := textutil.Slugify(title, 80)
	if slug == "" {
		slug = "essay"
	}
	essay := models.Essay{
		UserID:    author,
		Title:     title,
		Slug:      slug + "-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8],
		Excerpt:   textutil.Excerpt(content, 280),
		Content:   content,
		ViewCount: int64(f.rng.Intn(500)),
		CreatedAt: f.createdAt(),
	}
	essay.SetStatus(status)
	return essay
}

// BuildReview returns a review by author in the given status. Content always
// clears the minimum review length.
func (f *Factory) BuildReview(author uint, status models.ContentStatus) models.Review {
	review := models.Review{
		UserID:    author,
		Rating:    f.rng.Intn(5) + 1,
		Title:     strings.TrimSuffix(f.faker.Sentence(f.rng.Intn(4)+2), "."),
		Content:   f.faker.Paragraph(1, f.rng.Intn(3)+3, 12, " "),
		CreatedAt: f.createdAt(),
	}
	review.SetStatus(status)
	if status == models.StatusRejected {
		review.ModerationNotes = "Please focus on the book rather than the author."
	}
	return review
}

// BuildComment returns an approved comment on the given parent.
func (f *Factory) BuildComment(author uint, parentType models.ParentType, parentID uint) models.Comment {
	return models.Comment{
		UserID:     author,
		ParentType: parentType,
		ParentID:   parentID,
		Content:    f.faker.Sentence(f.rng.Intn(14) + 4),
		IsApproved: true,
		CreatedAt:  f.createdAt(),
	}
}

// BuildProgress returns a reading progress record for user.
func (f *Factory) BuildProgress(user uint) models.ReadingProgress {
	statuses := []string{
		models.ProgressPlanning, models.ProgressStarted, models.ProgressFirst4Chapters,
		models.ProgressFirst10Chapters, models.ProgressCompleted, models.ProgressReviewed,
	}
	status := statuses[f.rng.Intn(len(statuses))]
	chapter := 0
	switch status {
	case models.ProgressStarted:
		chapter = f.rng.Intn(3) + 1
	case models.ProgressFirst4Chapters:
		chapter = 4
	case models.ProgressFirst10Chapters:
		chapter = 10
	case models.ProgressCompleted, models.ProgressReviewed:
		chapter = 24
	}
	return models.ReadingProgress{
		UserID:         user,
		Status:         status,
		CurrentChapter: chapter,
		Notes:          f.faker.Sentence(8),
	}
}

// pick returns a random status weighted towards visible content.
func (f *Factory) pick(kind models.ContentKind) models.ContentStatus {
	roll := f.rng.Intn(10)
	switch kind {
	case models.KindReview:
		switch {
		case roll < 6:
			return models.StatusPublished
		case roll < 9:
			return models.StatusPendingReview
		default:
			return models.StatusRejected
		}
	default:
		if roll < 9 {
			return models.StatusPublished
		}
		return models.StatusUnpublished
	}
}

// Intn exposes the factory's random source to the seeder.
func (f *Factory) Intn(n int) int {
	return f.rng.Intn(n)
}
