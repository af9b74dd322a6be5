package seed

import (
	"context"
	"fmt"
	"log/slog"

	"folio/internal/database"
	"folio/internal/models"

	"gorm.io/gorm"
)

// Options configure a seeding run.
type Options struct {
	NumUsers   int
	NumEssays  int
	NumReviews int
	// MaxThread caps the comments written per essay or review.
	MaxThread int
	// MaxReplyDepth is the deepest reply level generated. Top-level
	// comments are depth 0.
	MaxReplyDepth int
	MaxDays       int
	Seed          int64
}

// DefaultOptions is a small, browsable dataset.
func DefaultOptions() Options {
	return Options{
		NumUsers:      25,
		NumEssays:     40,
		NumReviews:    30,
		MaxThread:     6,
		MaxReplyDepth: 4,
		MaxDays:       90,
	}
}

// Summary reports what a run wrote.
type Summary struct {
	Users    int
	Essays   int
	Reviews  int
	Comments int
	Likes    int
	Votes    int
}

// Seeder writes demo data through gorm.
type Seeder struct {
	db      *gorm.DB
	opts    Options
	factory *Factory
}

// NewSeeder creates a Seeder bound to db.
func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	if opts.MaxReplyDepth <= 0 {
		opts.MaxReplyDepth = DefaultOptions().MaxReplyDepth
	}
	return &Seeder{db: db, opts: opts, factory: NewFactory(opts.Seed, opts.MaxDays)}
}

// ClearAll removes every row from the schema-managed tables, children first.
func (s *Seeder) ClearAll(ctx context.Context) error {
	slog.Info("clearing existing data")
	all := database.PersistentModels()
	tx := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true})
	for i := len(all) - 1; i >= 0; i-- {
		if err := tx.Unscoped().Delete(all[i]).Error; err != nil {
			return fmt.Errorf("clear %T: %w", all[i], err)
		}
	}
	return nil
}

// Run seeds users, content, threads and engagement in one transaction.
func (s *Seeder) Run(ctx context.Context) (*Summary, error) {
	summary := &Summary{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users, err := s.seedUsers(tx)
		if err != nil {
			return err
		}
		summary.Users = len(users)
		if len(users) == 0 {
			return nil
		}

		essays, err := s.seedEssays(tx, users)
		if err != nil {
			return err
		}
		summary.Essays = len(essays)

		reviews, err := s.seedReviews(tx, users)
		if err != nil {
			return err
		}
		summary.Reviews = len(reviews)

		for _, e := range essays {
			if !e.Status.Visible() {
				continue
			}
			n, err := s.seedThread(tx, users, models.ParentEssay, e.ID)
			if err != nil {
				return err
			}
			summary.Comments += n

			liked, err := s.seedEssayLikes(tx, users, e.ID)
			if err != nil {
				return err
			}
			summary.Likes += liked
		}
		for _, r := range reviews {
			if !r.Status().Visible() {
				continue
			}
			n, err := s.seedThread(tx, users, models.ParentReview, r.ID)
			if err != nil {
				return err
			}
			summary.Comments += n

			votes, err := s.seedVotes(tx, users, r.ID)
			if err != nil {
				return err
			}
			summary.Votes += votes
		}

		return s.seedProgress(tx, users)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("seeding complete",
		"users", summary.Users,
		"essays", summary.Essays,
		"reviews", summary.Reviews,
		"comments", summary.Comments,
		"likes", summary.Likes,
		"votes", summary.Votes)
	return summary, nil
}

func (s *Seeder) seedUsers(tx *gorm.DB) ([]models.User, error) {
	var maxID uint
	if err := tx.Model(&models.User{}).Unscoped().Select("COALESCE(MAX(id), 0)").Scan(&maxID).Error; err != nil {
		return nil, fmt.Errorf("read user ids: %w", err)
	}

	users := make([]models.User, 0, s.opts.NumUsers)
	for i := 1; i <= s.opts.NumUsers; i++ {
		users = append(users, s.factory.BuildUser(maxID+uint(i)))
	}
	if len(users) == 0 {
		return users, nil
	}
	if err := tx.CreateInBatches(&users, 100).Error; err != nil {
		return nil, fmt.Errorf("create users: %w", err)
	}
	return users, nil
}

func (s *Seeder) randomUser(users []models.User) uint {
	return users[s.factory.Intn(len(users))].ID
}

func (s *Seeder) seedEssays(tx *gorm.DB, users []models.User) ([]models.Essay, error) {
	essays := make([]models.Essay, 0, s.opts.NumEssays)
	for i := 0; i < s.opts.NumEssays; i++ {
		essays = append(essays, s.factory.BuildEssay(s.randomUser(users), s.factory.pick(models.KindEssay)))
	}
	if len(essays) == 0 {
		return essays, nil
	}
	if err := tx.CreateInBatches(&essays, 100).Error; err != nil {
		return nil, fmt.Errorf("create essays: %w", err)
	}
	return essays, nil
}

func (s *Seeder) seedReviews(tx *gorm.DB, users []models.User) ([]models.Review, error) {
	reviews := make([]models.Review, 0, s.opts.NumReviews)
	for i := 0; i < s.opts.NumReviews; i++ {
		reviews = append(reviews, s.factory.BuildReview(s.randomUser(users), s.factory.pick(models.KindReview)))
	}
	if len(reviews) == 0 {
		return reviews, nil
	}
	if err := tx.CreateInBatches(&reviews, 100).Error; err != nil {
		return nil, fmt.Errorf("create reviews: %w", err)
	}
	return reviews, nil
}

// seedThread writes up to MaxThread comments under one root. Each comment
// either starts a new top-level branch or replies to an earlier one that is
// still shallower than MaxReplyDepth.
func (s *Seeder) seedThread(tx *gorm.DB, users []models.User, parentType models.ParentType, parentID uint) (int, error) {
	if s.opts.MaxThread <= 0 {
		return 0, nil
	}
	type node struct {
		id    uint
		depth int
	}
	var written []node
	count := s.factory.Intn(s.opts.MaxThread) + 1
	for i := 0; i < count; i++ {
		pt, pid, depth := parentType, parentID, 0
		if len(written) > 0 && s.factory.Intn(2) == 0 {
			parent := written[s.factory.Intn(len(written))]
			if parent.depth < s.opts.MaxReplyDepth {
				pt, pid, depth = models.ParentComment, parent.id, parent.depth+1
			}
		}
		c := s.factory.BuildComment(s.randomUser(users), pt, pid)
		if err := tx.Create(&c).Error; err != nil {
			return len(written), fmt.Errorf("create comment: %w", err)
		}
		written = append(written, node{id: c.ID, depth: depth})
	}
	return len(written), nil
}

func (s *Seeder) seedEssayLikes(tx *gorm.DB, users []models.User, essayID uint) (int, error) {
	var likes []models.EssayLike
	for _, u := range users {
		if s.factory.Intn(4) == 0 {
			likes = append(likes, models.EssayLike{UserID: u.ID, EssayID: essayID})
		}
	}
	if len(likes) == 0 {
		return 0, nil
	}
	if err := tx.Create(&likes).Error; err != nil {
		return 0, fmt.Errorf("create essay likes: %w", err)
	}
	err := tx.Model(&models.Essay{}).Where("id = ?", essayID).
		Update("like_count", int64(len(likes))).Error
	return len(likes), err
}

func (s *Seeder) seedVotes(tx *gorm.DB, users []models.User, reviewID uint) (int, error) {
	var (
		votes   []models.ReviewVote
		helpful int64
	)
	for _, u := range users {
		if s.factory.Intn(3) != 0 {
			continue
		}
		vote := models.VoteHelpful
		if s.factory.Intn(4) == 0 {
			vote = models.VoteNotHelpful
		} else {
			helpful++
		}
		votes = append(votes, models.ReviewVote{UserID: u.ID, ReviewID: reviewID, VoteType: vote})
	}
	if len(votes) == 0 {
		return 0, nil
	}
	if err := tx.Create(&votes).Error; err != nil {
		return 0, fmt.Errorf("create review votes: %w", err)
	}
	err := tx.Model(&models.Review{}).Where("id = ?", reviewID).
		Update("helpful_count", helpful).Error
	return len(votes), err
}

func (s *Seeder) seedProgress(tx *gorm.DB, users []models.User) error {
	progress := make([]models.ReadingProgress, 0, len(users))
	for _, u := range users {
		progress = append(progress, s.factory.BuildProgress(u.ID))
	}
	if err := tx.CreateInBatches(&progress, 100).Error; err != nil {
		return fmt.Errorf("create reading progress: %w", err)
	}
	return nil
}
