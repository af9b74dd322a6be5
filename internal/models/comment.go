package models

import (
	"time"

	"gorm.io/gorm"
)

// ParentType names what a comment is attached to.
type ParentType string

const (
	ParentEssay   ParentType = "essay"
	ParentReview  ParentType = "review"
	ParentComment ParentType = "comment"
)

// ParseParentType accepts singular and plural route spellings.
func ParseParentType(raw string) (ParentType, bool) {
	switch raw {
	case "essay", "essays":
		return ParentEssay, true
	case "review", "reviews":
		return ParentReview, true
	case "comment", "comments":
		return ParentComment, true
	}
	return "", false
}

// Comment is a node in the discussion tree under an essay or review.
type Comment struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	UserID     uint           `gorm:"not null;index" json:"user_id"`
	User       User           `gorm:"foreignKey:UserID" json:"author"`
	ParentType ParentType     `gorm:"size:16;not null;index:idx_comments_parent" json:"parent_type"`
	ParentID   uint           `gorm:"not null;index:idx_comments_parent" json:"parent_id"`
	Content    string         `gorm:"type:text;not null" json:"content"`
	IsApproved bool           `gorm:"not null" json:"is_approved"`
	LikeCount  int64          `gorm:"not null;default:0" json:"like_count"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`

	// ReplyCount is filled from a grouped count query
	ReplyCount int64 `gorm:"-" json:"reply_count"`
	// Depth is 0 for top-level comments
	Depth    int  `gorm:"-" json:"depth"`
	CanReply bool `gorm:"-" json:"can_reply"`
}
