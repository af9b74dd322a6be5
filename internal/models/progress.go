package models

import "time"

// DiscussionSelection stores the prefix-closed set of discussion messages a
// reader has marked. MessageIndices is always sorted and equal to 0..k-1.
type DiscussionSelection struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	UserID         uint      `gorm:"not null;uniqueIndex:idx_selection_user_discussion" json:"user_id"`
	DiscussionID   string    `gorm:"size:64;not null;uniqueIndex:idx_selection_user_discussion" json:"discussion_id"`
	MessageIndices []int     `gorm:"type:text;serializer:json;not null" json:"message_indices"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Reading progress states.
const (
	ProgressPlanning        = "planning"
	ProgressStarted         = "started"
	ProgressFirst4Chapters  = "first_4_chapters"
	ProgressFirst10Chapters = "first_10_chapters"
	ProgressCompleted       = "completed"
	ProgressReviewed        = "reviewed"
)

// ValidProgressStatus reports whether s is a known reading state.
func ValidProgressStatus(s string) bool {
	switch s {
	case ProgressPlanning, ProgressStarted, ProgressFirst4Chapters,
		ProgressFirst10Chapters, ProgressCompleted, ProgressReviewed:
		return true
	}
	return false
}

// ReadingProgress tracks where a reader is in the promoted book.
type ReadingProgress struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	UserID         uint      `gorm:"not null;uniqueIndex" json:"user_id"`
	Status         string    `gorm:"size:32;not null" json:"status"`
	CurrentChapter int       `gorm:"not null;default:0" json:"current_chapter"`
	Notes          string    `gorm:"type:text" json:"notes"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TableName pins the singular table name used by migrations.
func (ReadingProgress) TableName() string {
	return "reading_progress"
}
