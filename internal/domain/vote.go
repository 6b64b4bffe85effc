package domain

import "time"

// HelpfulVote is one voter's opinion of a review. A re-vote overwrites
// IsHelpful instead of adding a row.
type HelpfulVote struct {
	ID        string    `json:"id"`
	ReviewID  string    `json:"review_id"`
	UserID    *string   `json:"user_id,omitempty"`
	IPAddress *string   `json:"ip_address,omitempty"`
	IsHelpful bool      `json:"is_helpful"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Voter returns the key the vote is deduplicated on.
func (v *HelpfulVote) Voter() VoterKey {
	if v.UserID != nil {
		return UserVoter(*v.UserID)
	}
	if v.IPAddress != nil {
		return IPVoter(*v.IPAddress)
	}
	return VoterKey{}
}

// NewHelpfulVote builds a vote row for key. ID and timestamps are left to
// the caller.
func NewHelpfulVote(reviewID string, key VoterKey, isHelpful bool) *HelpfulVote {
	v := &HelpfulVote{ReviewID: reviewID, IsHelpful: isHelpful}
	if key.IsAnonymous() {
		ip := key.IPAddress
		v.IPAddress = &ip
	} else {
		id := key.UserID
		v.UserID = &id
	}
	return v
}
