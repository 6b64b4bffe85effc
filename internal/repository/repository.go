package repository

import (
	"context"
	"time"

	"github.com/utafrali/review-service/internal/domain"
)

// ReviewFilter defines filter, sort and page criteria for listing reviews.
// Nil pointers and empty slices leave the predicate out.
type ReviewFilter struct {
	ProductID     *string
	UserID        *string
	CustomerEmail *string
	Ratings       []int
	IsVerified    *bool
	IsApproved    *bool
	IsPinned      *bool
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
	Search        *string

	SortBy      string
	SortOrder   string
	PinnedFirst bool

	Page    int
	PerPage int
}

// PurchaseQuery describes the completed order a verifier looks for. Exactly
// one of UserID and Email is set.
type PurchaseQuery struct {
	UserID    string
	Email     string
	ProductID string
	OrderID   *string
}

// ReviewRepository defines persistence operations for reviews. Lookups of a
// missing row return an error wrapping apperrors.ErrNotFound and inserts that
// hit a uniqueness rule return one wrapping apperrors.ErrAlreadyExists.
type ReviewRepository interface {
	Create(ctx context.Context, review *domain.Review) error
	GetByID(ctx context.Context, id string) (*domain.Review, error)

	// GetByIDForUpdate is GetByID that also locks the review until the
	// transaction ends. Counters on the review are recounted under this lock.
	GetByIDForUpdate(ctx context.Context, id string) (*domain.Review, error)

	// Update writes the mutable fields (rating, text, flags, notes, updated_at).
	Update(ctx context.Context, review *domain.Review) error
	Delete(ctx context.Context, id string) error

	ExistsForUser(ctx context.Context, userID, productID string) (bool, error)

	// ExistsForGuest matches the normalized email among reviews without a user.
	ExistsForGuest(ctx context.Context, email, productID string) (bool, error)

	// List returns one page of matching reviews and the total match count.
	List(ctx context.Context, filter ReviewFilter) ([]domain.Review, int, error)

	SetHelpfulCount(ctx context.Context, id string, count int) error
	SetReportCount(ctx context.Context, id string, count int) error

	// RatingCounts returns the number of approved reviews per star for a product.
	RatingCounts(ctx context.Context, productID string) (map[int]int, error)
}

// VoteRepository persists helpful votes.
type VoteRepository interface {
	// Upsert inserts the vote or overwrites is_helpful of the existing vote
	// with the same voter key.
	Upsert(ctx context.Context, vote *domain.HelpfulVote) error
	CountHelpful(ctx context.Context, reviewID string) (int, error)
}

// ReportRepository persists abuse reports.
type ReportRepository interface {
	Exists(ctx context.Context, userID, reviewID string) (bool, error)
	Create(ctx context.Context, report *domain.Report) error
	Count(ctx context.Context, reviewID string) (int, error)
}

// ModerationLogRepository is the append-only moderation audit trail.
type ModerationLogRepository interface {
	Append(ctx context.Context, entry *domain.ModerationLogEntry) error

	// ListByReview returns entries for a review, newest first.
	ListByReview(ctx context.Context, reviewID string) ([]domain.ModerationLogEntry, error)
}

// ProductRepository is the review service's narrow view of the catalog.
type ProductRepository interface {
	Exists(ctx context.Context, productID string) (bool, error)

	// LockForUpdate locks the product until the transaction ends so rating
	// recomputes of one product never interleave.
	LockForUpdate(ctx context.Context, productID string) error
	UpdateRatingAggregate(ctx context.Context, productID string, agg domain.RatingAggregate) error
}

// UserRepository resolves author profiles.
type UserRepository interface {
	GetProfile(ctx context.Context, userID string) (*domain.UserProfile, error)
}

// OrderRepository answers purchase verification queries.
type OrderRepository interface {
	// FindCompletedPurchase returns the id of a delivered order matching q, or
	// found=false when there is none.
	FindCompletedPurchase(ctx context.Context, q PurchaseQuery) (orderID string, found bool, err error)
}

// Store groups the repositories that share one connection or transaction.
type Store interface {
	Reviews() ReviewRepository
	Votes() VoteRepository
	Reports() ReportRepository
	ModerationLogs() ModerationLogRepository
	Products() ProductRepository
	Users() UserRepository
	Orders() OrderRepository
}

// Transactor runs fn against a Store bound to a single transaction. The
// transaction commits when fn returns nil and rolls back otherwise.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}
