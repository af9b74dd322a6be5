package models

import (
	"time"

	"gorm.io/gorm"
)

// Essay is long-form reader content. Status is authoritative; IsPublished and
// IsApproved are only ever written through SetStatus.
type Essay struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	UserID        uint           `gorm:"not null;index" json:"user_id"`
	User          User           `gorm:"foreignKey:UserID" json:"author"`
	Title         string         `gorm:"size:300;not null" json:"title"`
	Slug          string         `gorm:"uniqueIndex;not null" json:"slug"`
	Excerpt       string         `gorm:"size:500" json:"excerpt"`
	Content       string         `gorm:"type:text;not null" json:"content"`
	ContentHTML   string         `gorm:"-" json:"content_html,omitempty"`
	CoverImageURL string         `json:"cover_image_url"`
	Status        ContentStatus  `gorm:"size:32;not null;index" json:"status"`
	IsPublished   bool           `gorm:"not null;default:false;index" json:"is_published"`
	IsApproved    bool           `gorm:"not null;default:false" json:"is_approved"`
	ViewCount     int64          `gorm:"not null;default:0" json:"view_count"`
	LikeCount     int64          `gorm:"not null;default:0" json:"like_count"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

// SetStatus moves the essay to s and rewrites the boolean projections.
func (e *Essay) SetStatus(s ContentStatus) {
	e.Status = s
	e.IsPublished, e.IsApproved = s.Flags()
}
