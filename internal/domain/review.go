package domain

import (
	"strings"
	"time"
)

// Rating bounds.
const (
	MinRating = 1
	MaxRating = 5
)

// Review sort fields.
const (
	SortByCreatedAt    = "created_at"
	SortByRating       = "rating"
	SortByHelpfulCount = "helpful_count"
)

// Sort directions.
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// Review is a product evaluation written either by an authenticated user or
// by a guest identified by email and name. HelpfulCount and ReportCount are
// derived from the vote and report tables and only written by a recount.
type Review struct {
	ID             string    `json:"id"`
	ProductID      string    `json:"product_id"`
	UserID         *string   `json:"user_id,omitempty"`
	OrderID        *string   `json:"order_id,omitempty"`
	CustomerEmail  string    `json:"customer_email"`
	CustomerName   string    `json:"customer_name"`
	Rating         int       `json:"rating"`
	Title          string    `json:"title"`
	Content        string    `json:"content"`
	IsVerified     bool      `json:"is_verified"`
	IsApproved     bool      `json:"is_approved"`
	IsPinned       bool      `json:"is_pinned"`
	HelpfulCount   int       `json:"helpful_count"`
	ReportCount    int       `json:"report_count"`
	ModeratorNotes *string   `json:"moderator_notes,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// IsGuest reports whether the review was written without an account.
func (r *Review) IsGuest() bool {
	return r.UserID == nil
}

// IsOwnedBy reports whether userID authored the review. Guest reviews have
// no owner.
func (r *Review) IsOwnedBy(userID string) bool {
	return r.UserID != nil && userID != "" && *r.UserID == userID
}

// Identity returns the author identity the review was created with.
func (r *Review) Identity() Identity {
	if r.UserID != nil {
		return Authenticated{UserID: *r.UserID}
	}
	return Guest{Email: r.CustomerEmail, Name: r.CustomerName}
}

// Clone returns a deep copy of the review.
func (r *Review) Clone() *Review {
	c := *r
	c.UserID = cloneString(r.UserID)
	c.OrderID = cloneString(r.OrderID)
	c.ModeratorNotes = cloneString(r.ModeratorNotes)
	return &c
}

// IsValidRating reports whether rating is within [MinRating, MaxRating].
func IsValidRating(rating int) bool {
	return rating >= MinRating && rating <= MaxRating
}

// NormalizeEmail lower-cases and trims an email address so guest identities
// compare case-insensitively.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidSortFields returns the columns reviews can be ordered by.
func ValidSortFields() []string {
	return []string{SortByCreatedAt, SortByRating, SortByHelpfulCount}
}

// IsValidSortField reports whether field is a supported sort column. The
// empty string selects the default.
func IsValidSortField(field string) bool {
	if field == "" {
		return true
	}
	for _, f := range ValidSortFields() {
		if f == field {
			return true
		}
	}
	return false
}

// IsValidSortOrder reports whether order is "asc", "desc" or empty.
func IsValidSortOrder(order string) bool {
	return order == "" || order == SortAsc || order == SortDesc
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
