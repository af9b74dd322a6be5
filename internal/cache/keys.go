package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	UserKeyPrefix    = "user:%d"
	EssayKeyPrefix   = "essay:%d"
	ReviewKeyPrefix  = "review:%d"
	SelectionLockKey = "lock:selection:%d:%s"
)

const (
	UserTTL   = 5 * time.Minute
	EssayTTL  = 10 * time.Minute
	ReviewTTL = 10 * time.Minute
)

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

func EssayKey(essayID uint) string {
	return fmt.Sprintf(EssayKeyPrefix, essayID)
}

func ReviewKey(reviewID uint) string {
	return fmt.Sprintf(ReviewKeyPrefix, reviewID)
}

func SelectionKey(userID uint, discussionID string) string {
	return fmt.Sprintf(SelectionLockKey, userID, discussionID)
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx, UserKey(userID))
}

func InvalidateEssay(ctx context.Context, essayID uint) {
	Invalidate(ctx, EssayKey(essayID))
}

func InvalidateReview(ctx context.Context, reviewID uint) {
	Invalidate(ctx, ReviewKey(reviewID))
}
