package repository

import (
	"context"
	"fmt"

	"folio/internal/cache"
	"folio/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	Ensure(ctx context.Context, user *models.User) error
	IsAdmin(ctx context.Context, id uint) (bool, error)
	Create(ctx context.Context, user *models.User) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	key := cache.UserKey(id)

	err := cache.Aside(ctx, key, &user, cache.UserTTL, func() error {
		return classify(r.db.WithContext(ctx).First(&user, id).Error, "User", id)
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Ensure inserts the user if no row with its ID exists yet. A non-empty Role
// is treated as asserted by the identity provider and overwrites the stored one.
func (r *userRepository) Ensure(ctx context.Context, user *models.User) error {
	if user.Username == "" {
		user.Username = fmt.Sprintf("reader-%d", user.ID)
	}

	conflict := clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}
	if user.Role != "" {
		conflict = clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"role", "updated_at"}),
		}
	} else {
		user.Role = models.RoleReader
	}

	err := r.db.WithContext(ctx).Clauses(conflict).Create(user).Error
	if isUniqueConstraintError(err) {
		// Username taken by another account; fall back to a stable handle.
		user.Username = fmt.Sprintf("reader-%d", user.ID)
		err = r.db.WithContext(ctx).Clauses(conflict).Create(user).Error
	}
	if err != nil {
		return classify(err, "User", user.ID)
	}
	cache.InvalidateUser(ctx, user.ID)
	return nil
}

func (r *userRepository) IsAdmin(ctx context.Context, id uint) (bool, error) {
	user, err := r.GetByID(ctx, id)
	if err != nil {
		if models.HasCode(err, models.CodeNotFound) {
			return false, nil
		}
		return false, err
	}
	return user.IsAdmin(), nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewValidationError("User already exists")
		}
		return classify(err, "User", user.ID)
	}
	return nil
}
