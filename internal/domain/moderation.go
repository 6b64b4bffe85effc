package domain

import "time"

// Moderation log actions.
const (
	ModerationApproved = "approved"
	ModerationRejected = "rejected"
	ModerationPinned   = "pinned"
	ModerationUnpinned = "unpinned"
	ModerationEdited   = "edited"
	ModerationDeleted  = "deleted"
)

// Bulk moderation actions.
const (
	BulkApprove = "approve"
	BulkReject  = "reject"
	BulkPin     = "pin"
	BulkUnpin   = "unpin"
	BulkDelete  = "delete"
)

// MaxBulkReviews caps the number of reviews one bulk request may touch.
const MaxBulkReviews = 100

// ModerationLogEntry is one immutable audit record. ReviewID is not a
// foreign key so entries outlive deleted reviews.
type ModerationLogEntry struct {
	ID          string    `json:"id"`
	ReviewID    string    `json:"review_id"`
	ModeratorID string    `json:"moderator_id"`
	Action      string    `json:"action"`
	Reason      *string   `json:"reason,omitempty"`
	Notes       *string   `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// InferModerationAction picks the single action logged for an admin update.
// An approval change wins over a pin change, which wins over a plain edit.
func InferModerationAction(before, after *Review) string {
	switch {
	case before.IsApproved != after.IsApproved:
		if after.IsApproved {
			return ModerationApproved
		}
		return ModerationRejected
	case before.IsPinned != after.IsPinned:
		if after.IsPinned {
			return ModerationPinned
		}
		return ModerationUnpinned
	default:
		return ModerationEdited
	}
}

// ValidBulkActions returns the actions BulkModerate accepts.
func ValidBulkActions() []string {
	return []string{BulkApprove, BulkReject, BulkPin, BulkUnpin, BulkDelete}
}

// IsValidBulkAction checks action against ValidBulkActions.
func IsValidBulkAction(action string) bool {
	for _, a := range ValidBulkActions() {
		if a == action {
			return true
		}
	}
	return false
}
