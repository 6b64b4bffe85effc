// Package event publishes review domain events.
package event

import (
	"context"
	"time"

	"github.com/utafrali/review-service/internal/domain"
	pkgkafka "github.com/utafrali/review-service/pkg/kafka"
)

// Kafka topics for review domain events.
var (
	TopicReviewCreated        = pkgkafka.Topic("review", "created")
	TopicReviewUpdated        = pkgkafka.Topic("review", "updated")
	TopicReviewDeleted        = pkgkafka.Topic("review", "deleted")
	TopicReviewModerated      = pkgkafka.Topic("review", "moderated")
	TopicProductRatingUpdated = pkgkafka.Topic("product", "rating_updated")
)

const (
	AggregateTypeReview  = "review"
	AggregateTypeProduct = "product"
)

// SourceReviewService identifies events emitted by this service.
const SourceReviewService = "review-service"

// Publisher emits review events after the owning transaction commits.
type Publisher interface {
	ReviewCreated(ctx context.Context, review *domain.Review) error
	ReviewUpdated(ctx context.Context, review *domain.Review) error
	ReviewDeleted(ctx context.Context, review *domain.Review) error
	ReviewModerated(ctx context.Context, review *domain.Review, entry *domain.ModerationLogEntry) error
	RatingUpdated(ctx context.Context, productID string, agg domain.RatingAggregate) error
}

// ReviewData is the payload of review.created and review.updated.
type ReviewData struct {
	ReviewID   string    `json:"review_id"`
	ProductID  string    `json:"product_id"`
	UserID     *string   `json:"user_id,omitempty"`
	Rating     int       `json:"rating"`
	IsVerified bool      `json:"is_verified"`
	IsApproved bool      `json:"is_approved"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ReviewDeletedData is the payload of review.deleted.
type ReviewDeletedData struct {
	ReviewID  string `json:"review_id"`
	ProductID string `json:"product_id"`
}

// ReviewModeratedData is the payload of review.moderated.
type ReviewModeratedData struct {
	ReviewID    string  `json:"review_id"`
	ProductID   string  `json:"product_id"`
	ModeratorID string  `json:"moderator_id"`
	Action      string  `json:"action"`
	Reason      *string `json:"reason,omitempty"`
}

// RatingUpdatedData is the payload of product.rating_updated.
type RatingUpdatedData struct {
	ProductID          string      `json:"product_id"`
	ReviewCount        int         `json:"review_count"`
	AverageRating      float64     `json:"average_rating"`
	RatingDistribution map[int]int `json:"rating_distribution"`
}

func newReviewData(r *domain.Review) ReviewData {
	return ReviewData{
		ReviewID:   r.ID,
		ProductID:  r.ProductID,
		UserID:     r.UserID,
		Rating:     r.Rating,
		IsVerified: r.IsVerified,
		IsApproved: r.IsApproved,
		UpdatedAt:  r.UpdatedAt,
	}
}

// Noop discards every event. It is used when Kafka is disabled.
type Noop struct{}

func (Noop) ReviewCreated(context.Context, *domain.Review) error { return nil }
func (Noop) ReviewUpdated(context.Context, *domain.Review) error { return nil }
func (Noop) ReviewDeleted(context.Context, *domain.Review) error { return nil }
func (Noop) ReviewModerated(context.Context, *domain.Review, *domain.ModerationLogEntry) error {
	return nil
}
func (Noop) RatingUpdated(context.Context, string, domain.RatingAggregate) error { return nil }
