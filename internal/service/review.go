package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/utafrali/review-service/internal/domain"
	"github.com/utafrali/review-service/internal/event"
	"github.com/utafrali/review-service/internal/metrics"
	"github.com/utafrali/review-service/internal/repository"
	apperrors "github.com/utafrali/review-service/pkg/errors"
)

// CreateReviewInput is a review submitted by a signed-in customer.
type CreateReviewInput struct {
	ProductID string
	OrderID   *string
	Rating    int
	Title     string
	Content   string
}

// GuestReviewInput is a review submitted without an account.
type GuestReviewInput struct {
	ProductID     string
	OrderID       *string
	CustomerEmail string
	CustomerName  string
	Rating        int
	Title         string
	Content       string
}

// UpdateReviewInput carries the fields an author may change. Nil fields are
// left alone.
type UpdateReviewInput struct {
	Rating  *int
	Title   *string
	Content *string
}

// CreateReview submits a review for userID. The author's email and name are
// copied from their profile, and the review is auto-approved when the policy
// allows it and a delivered order proves the purchase.
func (s *ReviewService) CreateReview(ctx context.Context, userID string, in CreateReviewInput) (*domain.Review, error) {
	if !domain.IsValidRating(in.Rating) {
		return nil, domain.NewInvalidRatingError(in.Rating)
	}

	exists, err := s.store.Reviews().ExistsForUser(ctx, userID, in.ProductID)
	if err != nil {
		return nil, fmt.Errorf("check existing review: %w", err)
	}
	if exists {
		return nil, domain.NewDuplicateReviewError(in.ProductID)
	}

	if err := s.requireProduct(ctx, in.ProductID); err != nil {
		return nil, err
	}

	profile, err := s.store.Users().GetProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, domain.NewUserNotFoundError(userID)
		}
		return nil, fmt.Errorf("get user profile: %w", err)
	}

	verification, err := s.verifier.Verify(ctx, domain.Authenticated{UserID: userID}, in.ProductID, in.OrderID)
	if err != nil {
		return nil, err
	}
	if s.policy.RequirePurchaseForReview && !verification.IsVerified {
		return nil, domain.NewPurchaseRequiredError(in.ProductID)
	}

	uid := userID
	review := &domain.Review{
		ProductID:     in.ProductID,
		UserID:        &uid,
		CustomerEmail: domain.NormalizeEmail(profile.Email),
		CustomerName:  profile.DisplayName(),
		Rating:        in.Rating,
		Title:         s.clean(in.Title),
		Content:       s.clean(in.Content),
	}
	s.applyVerification(review, verification, s.policy.AutoApproveVerifiedUsers)

	if err := s.insertReview(ctx, review, metrics.KindAuthenticated); err != nil {
		return nil, err
	}
	return review, nil
}

// CreateGuestReview submits a review identified only by email and name. The
// email is normalized, so guest uniqueness per product is case-insensitive.
func (s *ReviewService) CreateGuestReview(ctx context.Context, in GuestReviewInput) (*domain.Review, error) {
	if !domain.IsValidRating(in.Rating) {
		return nil, domain.NewInvalidRatingError(in.Rating)
	}

	email := domain.NormalizeEmail(in.CustomerEmail)
	name := s.clean(in.CustomerName)
	if email == "" {
		return nil, apperrors.InvalidInput("customer_email is required")
	}
	if name == "" {
		return nil, apperrors.InvalidInput("customer_name is required")
	}

	exists, err := s.store.Reviews().ExistsForGuest(ctx, email, in.ProductID)
	if err != nil {
		return nil, fmt.Errorf("check existing guest review: %w", err)
	}
	if exists {
		return nil, domain.NewDuplicateReviewError(in.ProductID)
	}

	if err := s.requireProduct(ctx, in.ProductID); err != nil {
		return nil, err
	}

	verification, err := s.verifier.Verify(ctx, domain.Guest{Email: email, Name: name}, in.ProductID, in.OrderID)
	if err != nil {
		return nil, err
	}
	if s.policy.RequirePurchaseForReview && !verification.IsVerified {
		return nil, domain.NewPurchaseRequiredError(in.ProductID)
	}

	review := &domain.Review{
		ProductID:     in.ProductID,
		CustomerEmail: email,
		CustomerName:  name,
		Rating:        in.Rating,
		Title:         s.clean(in.Title),
		Content:       s.clean(in.Content),
	}
	s.applyVerification(review, verification, s.policy.AutoApproveGuests)

	if err := s.insertReview(ctx, review, metrics.KindGuest); err != nil {
		return nil, err
	}
	return review, nil
}

// CanUserReview reports whether userID may review productID right now. A
// missing product is a negative answer, not an error.
func (s *ReviewService) CanUserReview(ctx context.Context, userID, productID string) (bool, error) {
	ok, err := s.store.Products().Exists(ctx, productID)
	if err != nil {
		return false, fmt.Errorf("check product: %w", err)
	}
	if !ok {
		return false, nil
	}

	exists, err := s.store.Reviews().ExistsForUser(ctx, userID, productID)
	if err != nil {
		return false, fmt.Errorf("check existing review: %w", err)
	}
	if exists {
		return false, nil
	}

	if !s.policy.RequirePurchaseForReview {
		return true, nil
	}
	verification, err := s.verifier.Verify(ctx, domain.Authenticated{UserID: userID}, productID, nil)
	if err != nil {
		return false, err
	}
	return verification.IsVerified, nil
}

// UpdateReview lets the author change rating, title or content. Changing the
// text sends the review back to moderation.
func (s *ReviewService) UpdateReview(ctx context.Context, userID, reviewID string, in UpdateReviewInput) (*domain.Review, error) {
	var (
		updated *domain.Review
		agg     *domain.RatingAggregate
	)

	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx repository.Store) error {
		current, err := lockReview(ctx, tx.Reviews(), reviewID)
		if err != nil {
			return err
		}
		if !current.IsOwnedBy(userID) {
			return domain.NewNotOwnerError()
		}
		if in.Rating != nil && !domain.IsValidRating(*in.Rating) {
			return domain.NewInvalidRatingError(*in.Rating)
		}

		next := current.Clone()
		if in.Rating != nil {
			next.Rating = *in.Rating
		}
		if in.Title != nil {
			next.Title = s.clean(*in.Title)
		}
		if in.Content != nil {
			next.Content = s.clean(*in.Content)
		}
		if next.Title != current.Title || next.Content != current.Content {
			next.IsApproved = false
		}
		next.UpdatedAt = s.now()

		if err := tx.Reviews().Update(ctx, next); err != nil {
			return fmt.Errorf("update review: %w", err)
		}

		ratingChanged := next.Rating != current.Rating
		unapproved := current.IsApproved && !next.IsApproved
		if (ratingChanged && current.IsApproved && next.IsApproved) || unapproved {
			if agg, err = s.recomputeProductAggregate(ctx, tx, next.ProductID); err != nil {
				return err
			}
		}
		updated = next
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.published(ctx, event.TopicReviewUpdated, s.events.ReviewUpdated(ctx, updated))
	s.publishRating(ctx, updated.ProductID, agg)

	s.logger.InfoContext(ctx, "review updated",
		slog.String("review_id", updated.ID),
		slog.String("user_id", userID),
		slog.Bool("is_approved", updated.IsApproved),
	)
	return updated, nil
}

// DeleteReview removes the author's own review and recomputes the product's
// aggregate.
func (s *ReviewService) DeleteReview(ctx context.Context, userID, reviewID string) error {
	var (
		deleted *domain.Review
		agg     *domain.RatingAggregate
	)

	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx repository.Store) error {
		current, err := lockReview(ctx, tx.Reviews(), reviewID)
		if err != nil {
			return err
		}
		if !current.IsOwnedBy(userID) {
			return domain.NewNotOwnerError()
		}

		if err := tx.Reviews().Delete(ctx, reviewID); err != nil {
			return fmt.Errorf("delete review: %w", err)
		}
		if agg, err = s.recomputeProductAggregate(ctx, tx, current.ProductID); err != nil {
			return err
		}
		deleted = current
		return nil
	})
	if err != nil {
		return err
	}

	s.published(ctx, event.TopicReviewDeleted, s.events.ReviewDeleted(ctx, deleted))
	s.publishRating(ctx, deleted.ProductID, agg)

	s.logger.InfoContext(ctx, "review deleted",
		slog.String("review_id", reviewID),
		slog.String("user_id", userID),
	)
	return nil
}

func (s *ReviewService) requireProduct(ctx context.Context, productID string) error {
	ok, err := s.store.Products().Exists(ctx, productID)
	if err != nil {
		return fmt.Errorf("check product: %w", err)
	}
	if !ok {
		return domain.NewProductNotFoundError(productID)
	}
	return nil
}

func (s *ReviewService) applyVerification(review *domain.Review, v domain.Verification, autoApprove bool) {
	now := s.now()
	review.ID = uuid.New().String()
	review.OrderID = v.OrderID
	review.IsVerified = v.IsVerified
	review.IsApproved = autoApprove && v.IsVerified
	review.CreatedAt = now
	review.UpdatedAt = now
}

// insertReview stores a new review and, when it is already approved, the
// product's refreshed aggregate.
func (s *ReviewService) insertReview(ctx context.Context, review *domain.Review, kind string) error {
	var agg *domain.RatingAggregate

	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx repository.Store) error {
		if err := tx.Reviews().Create(ctx, review); err != nil {
			if errors.Is(err, apperrors.ErrAlreadyExists) {
				return domain.NewDuplicateReviewError(review.ProductID)
			}
			return fmt.Errorf("create review: %w", err)
		}
		if !review.IsApproved {
			return nil
		}
		var err error
		agg, err = s.recomputeProductAggregate(ctx, tx, review.ProductID)
		return err
	})
	if err != nil {
		return err
	}

	metrics.ReviewsCreated.WithLabelValues(kind).Inc()
	s.published(ctx, event.TopicReviewCreated, s.events.ReviewCreated(ctx, review))
	s.publishRating(ctx, review.ProductID, agg)

	s.logger.InfoContext(ctx, "review created",
		slog.String("review_id", review.ID),
		slog.String("product_id", review.ProductID),
		slog.String("kind", kind),
		slog.Int("rating", review.Rating),
		slog.Bool("is_verified", review.IsVerified),
		slog.Bool("is_approved", review.IsApproved),
	)
	return nil
}

// trimmedPtr returns nil for nil or blank strings.
func trimmedPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
