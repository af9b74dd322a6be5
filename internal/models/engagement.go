package models

import "time"

// EssayLike records that a user likes an essay.
type EssayLike struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_essay_likes_user_essay" json:"user_id"`
	EssayID   uint      `gorm:"not null;uniqueIndex:idx_essay_likes_user_essay;index" json:"essay_id"`
	CreatedAt time.Time `json:"created_at"`
}

// CommentLike records that a user likes a comment.
type CommentLike struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_comment_likes_user_comment" json:"user_id"`
	CommentID uint      `gorm:"not null;uniqueIndex:idx_comment_likes_user_comment;index" json:"comment_id"`
	CreatedAt time.Time `json:"created_at"`
}

// LikeKind names a likeable target.
type LikeKind string

const (
	LikeEssay   LikeKind = "essay"
	LikeComment LikeKind = "comment"
)

// Vote types on reviews.
const (
	VoteHelpful    = "helpful"
	VoteNotHelpful = "not_helpful"
)

// ValidVoteType reports whether v is a recognised vote.
func ValidVoteType(v string) bool {
	return v == VoteHelpful || v == VoteNotHelpful
}

// ReviewVote is one user's helpfulness verdict on a review.
type ReviewVote struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_review_votes_user_review" json:"user_id"`
	ReviewID  uint      `gorm:"not null;uniqueIndex:idx_review_votes_user_review;index" json:"review_id"`
	VoteType  string    `gorm:"size:16;not null" json:"vote_type"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// VoteSummary aggregates votes on a review.
type VoteSummary struct {
	ReviewID   uint   `json:"review_id"`
	Helpful    int64  `json:"helpful"`
	NotHelpful int64  `json:"not_helpful"`
	UserVote   string `json:"user_vote,omitempty"`
}
