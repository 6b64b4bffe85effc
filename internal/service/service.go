// Package service implements review ingestion, mutation, voting, reporting,
// moderation and listing on top of the repository layer.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/utafrali/review-service/internal/domain"
	"github.com/utafrali/review-service/internal/event"
	"github.com/utafrali/review-service/internal/repository"
	apperrors "github.com/utafrali/review-service/pkg/errors"
)

// Policy holds the per-deployment approval rules.
type Policy struct {
	AutoApproveVerifiedUsers bool
	AutoApproveGuests        bool
	RequirePurchaseForReview bool
}

// DefaultPolicy auto-approves verified customers only and lets anyone review.
func DefaultPolicy() Policy {
	return Policy{AutoApproveVerifiedUsers: true}
}

// Sanitizer cleans free text. Clean must never fail.
type Sanitizer interface {
	Clean(text string) string
}

// ReviewService implements the business logic for reviews and their
// moderation. Every mutation runs in one transaction; when the set of
// approved reviews of a product can change, the product's rating aggregate
// is recomputed as the last step of that transaction.
type ReviewService struct {
	store     repository.Store
	tx        repository.Transactor
	verifier  *PurchaseVerifier
	sanitizer Sanitizer
	events    event.Publisher
	policy    Policy
	logger    *slog.Logger
	now       func() time.Time
}

// NewReviewService creates a new review service. store serves reads outside
// transactions; tx runs the mutations.
func NewReviewService(
	store repository.Store,
	tx repository.Transactor,
	sanitizer Sanitizer,
	events event.Publisher,
	policy Policy,
	logger *slog.Logger,
) *ReviewService {
	if events == nil {
		events = event.Noop{}
	}
	return &ReviewService{
		store:     store,
		tx:        tx,
		verifier:  NewPurchaseVerifier(store.Orders()),
		sanitizer: sanitizer,
		events:    events,
		policy:    policy,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Verifier exposes the purchase verifier the service uses.
func (s *ReviewService) Verifier() *PurchaseVerifier {
	return s.verifier
}

func (s *ReviewService) clean(text string) string {
	return s.sanitizer.Clean(text)
}

// loadReview fetches a review, turning a missing row into REVIEW_NOT_FOUND.
func loadReview(ctx context.Context, repo repository.ReviewRepository, id string) (*domain.Review, error) {
	review, err := repo.GetByID(ctx, id)
	return review, reviewLookupError(id, err)
}

// lockReview is loadReview for transactions that change the review or its
// counters. The row stays locked until the transaction ends.
func lockReview(ctx context.Context, repo repository.ReviewRepository, id string) (*domain.Review, error) {
	review, err := repo.GetByIDForUpdate(ctx, id)
	return review, reviewLookupError(id, err)
}

func reviewLookupError(id string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, apperrors.ErrNotFound):
		return domain.NewReviewNotFoundError(id)
	default:
		return fmt.Errorf("get review: %w", err)
	}
}

// published logs a post-commit publish failure. Events never fail the
// operation that produced them.
func (s *ReviewService) published(ctx context.Context, topic string, err error) {
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to publish event",
			slog.String("topic", topic),
			slog.String("error", err.Error()),
		)
	}
}

func (s *ReviewService) publishRating(ctx context.Context, productID string, agg *domain.RatingAggregate) {
	if agg == nil {
		return
	}
	s.published(ctx, event.TopicProductRatingUpdated, s.events.RatingUpdated(ctx, productID, *agg))
}
