package models

import (
	"time"

	"gorm.io/gorm"
)

// Review is a rated book review. Reviews enter the moderation queue on create.
type Review struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	UserID           uint           `gorm:"not null;index" json:"user_id"`
	User             User           `gorm:"foreignKey:UserID" json:"author"`
	Rating           int            `gorm:"not null" json:"rating"`
	Title            string         `gorm:"size:200" json:"title"`
	Content          string         `gorm:"type:text;not null" json:"content"`
	ModerationStatus string         `gorm:"size:16;not null;default:pending;index" json:"moderation_status"`
	IsApproved       bool           `gorm:"not null;default:false" json:"is_approved"`
	ModerationNotes  string         `gorm:"type:text" json:"moderation_notes,omitempty"`
	HelpfulCount     int64          `gorm:"not null;default:0" json:"helpful_count"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}

// Status lifts the stored moderation string into the shared lifecycle.
func (r *Review) Status() ContentStatus {
	return StatusFromModeration(r.ModerationStatus)
}

// SetStatus writes both stored projections of s.
func (r *Review) SetStatus(s ContentStatus) {
	r.ModerationStatus = s.ModerationStatus()
	_, r.IsApproved = s.Flags()
}
