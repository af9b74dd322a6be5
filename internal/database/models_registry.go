package database

import "folio/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Essay{},
		&models.Review{},
		&models.Comment{},
		&models.EssayLike{},
		&models.CommentLike{},
		&models.ReviewVote{},
		&models.DiscussionSelection{},
		&models.ReadingProgress{},
	}
}
