package models

// ContentKind names one of the two moderated content types.
type ContentKind string

const (
	KindEssay  ContentKind = "essay"
	KindReview ContentKind = "review"
)

// ParseContentKind accepts both singular and plural route spellings.
func ParseContentKind(raw string) (ContentKind, bool) {
	switch raw {
	case "essay", "essays":
		return KindEssay, true
	case "review", "reviews":
		return KindReview, true
	}
	return "", false
}

// ContentStatus is the single lifecycle state of an essay or review. The
// is_published / is_approved columns are projections of it, never set on
// their own.
type ContentStatus string

const (
	StatusDraft         ContentStatus = "draft"
	StatusPendingReview ContentStatus = "pending_review"
	StatusPublished     ContentStatus = "published"
	StatusUnpublished   ContentStatus = "unpublished"
	StatusRejected      ContentStatus = "rejected"
)

// ModerationAction is an admin-issued transition request.
type ModerationAction string

const (
	ActionApprove   ModerationAction = "approve"
	ActionReject    ModerationAction = "reject"
	ActionUnpublish ModerationAction = "unpublish"
)

// Moderation status strings stored on reviews.
const (
	ModerationPending  = "pending"
	ModerationApproved = "approved"
	ModerationRejected = "rejected"
)

// InitialStatus is the state a freshly created item of kind enters.
// Essays skip the queue; reviews wait for a moderator.
func InitialStatus(kind ContentKind) ContentStatus {
	if kind == KindEssay {
		return StatusPublished
	}
	return StatusPendingReview
}

// Valid reports whether s is a known state.
func (s ContentStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusPendingReview, StatusPublished, StatusUnpublished, StatusRejected:
		return true
	}
	return false
}

// Flags projects s onto the legacy (is_published, is_approved) pair.
// published implies approved in every state.
func (s ContentStatus) Flags() (published, approved bool) {
	switch s {
	case StatusPublished:
		return true, true
	case StatusUnpublished:
		return false, true
	default:
		return false, false
	}
}

// Visible reports whether the public may see an item in state s.
func (s ContentStatus) Visible() bool {
	return s == StatusPublished
}

// ModerationStatus projects s onto the pending/approved/rejected triple.
func (s ContentStatus) ModerationStatus() string {
	switch s {
	case StatusPublished, StatusUnpublished:
		return ModerationApproved
	case StatusRejected:
		return ModerationRejected
	default:
		return ModerationPending
	}
}

// StatusFromModeration is the inverse of ModerationStatus for reviews.
func StatusFromModeration(moderation string) ContentStatus {
	switch moderation {
	case ModerationApproved:
		return StatusPublished
	case ModerationRejected:
		return StatusRejected
	default:
		return StatusPendingReview
	}
}

// Transition returns the state reached from s when action is applied to an
// item of kind. Unsupported combinations return a validation error and leave
// the item unchanged.
func (s ContentStatus) Transition(kind ContentKind, action ModerationAction) (ContentStatus, error) {
	switch action {
	case ActionApprove:
		return StatusPublished, nil
	case ActionReject:
		return StatusRejected, nil
	case ActionUnpublish:
		if kind != KindEssay {
			return s, NewValidationError("Reviews cannot be unpublished; reject them instead")
		}
		switch s {
		case StatusPublished, StatusUnpublished:
			return StatusUnpublished, nil
		default:
			return s, NewValidationError("Only approved essays can be unpublished")
		}
	}
	return s, NewValidationError("Unknown moderation action")
}

// ParseModerationAction validates a raw action for kind.
func ParseModerationAction(kind ContentKind, raw string) (ModerationAction, error) {
	switch a := ModerationAction(raw); a {
	case ActionApprove, ActionReject:
		return a, nil
	case ActionUnpublish:
		if kind == KindEssay {
			return a, nil
		}
	}
	return "", NewValidationError("Invalid moderation action")
}
