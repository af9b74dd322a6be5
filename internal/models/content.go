package models

// ContentItem carries either an essay or a review through the moderation
// operations, which are shared between the two kinds.
type ContentItem struct {
	Kind   ContentKind `json:"kind"`
	Essay  *Essay      `json:"essay,omitempty"`
	Review *Review     `json:"review,omitempty"`
}

func EssayItem(e *Essay) *ContentItem {
	return &ContentItem{Kind: KindEssay, Essay: e}
}

func ReviewItem(r *Review) *ContentItem {
	return &ContentItem{Kind: KindReview, Review: r}
}

// ID returns the primary key of the wrapped item.
func (c *ContentItem) ID() uint {
	if c.Essay != nil {
		return c.Essay.ID
	}
	if c.Review != nil {
		return c.Review.ID
	}
	return 0
}

// OwnerID returns the author of the wrapped item.
func (c *ContentItem) OwnerID() uint {
	if c.Essay != nil {
		return c.Essay.UserID
	}
	if c.Review != nil {
		return c.Review.UserID
	}
	return 0
}

// Status returns the lifecycle state of the wrapped item.
func (c *ContentItem) Status() ContentStatus {
	if c.Essay != nil {
		return c.Essay.Status
	}
	if c.Review != nil {
		return c.Review.Status()
	}
	return StatusDraft
}

// Value returns the wrapped essay or review for serialization.
func (c *ContentItem) Value() any {
	if c.Essay != nil {
		return c.Essay
	}
	return c.Review
}
