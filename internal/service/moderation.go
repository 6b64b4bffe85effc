package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/utafrali/review-service/internal/domain"
	"github.com/utafrali/review-service/internal/event"
	"github.com/utafrali/review-service/internal/metrics"
	"github.com/utafrali/review-service/internal/repository"
	apperrors "github.com/utafrali/review-service/pkg/errors"
)

// AdminUpdateInput carries the moderation fields to apply. Nil fields are
// left alone. Reason is only written to the moderation log.
type AdminUpdateInput struct {
	IsApproved     *bool
	IsPinned       *bool
	ModeratorNotes *string
	Reason         *string
}

// BulkModerationInput applies one action to many reviews.
type BulkModerationInput struct {
	Action    string
	ReviewIDs []string
	Reason    *string
}

// BulkResult reports the outcome per review. Failed maps a review id to the
// reason it was not processed.
type BulkResult struct {
	Succeeded []string          `json:"succeeded"`
	Failed    map[string]string `json:"failed"`
}

// AdminUpdateReview applies moderation fields to any review and writes
// exactly one log entry. The logged action is approved/rejected when the
// approval flag changed, else pinned/unpinned when the pin flag changed,
// else edited.
func (s *ReviewService) AdminUpdateReview(ctx context.Context, moderatorID, reviewID string, in AdminUpdateInput) (*domain.Review, error) {
	if moderatorID == "" {
		return nil, domain.NewModeratorRequiredError()
	}

	var (
		updated *domain.Review
		entry   *domain.ModerationLogEntry
		agg     *domain.RatingAggregate
	)

	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx repository.Store) error {
		current, err := lockReview(ctx, tx.Reviews(), reviewID)
		if err != nil {
			return err
		}

		next := current.Clone()
		if in.IsApproved != nil {
			next.IsApproved = *in.IsApproved
		}
		if in.IsPinned != nil {
			next.IsPinned = *in.IsPinned
		}
		if in.ModeratorNotes != nil {
			next.ModeratorNotes = trimmedPtr(in.ModeratorNotes)
		}
		next.UpdatedAt = s.now()

		if err := tx.Reviews().Update(ctx, next); err != nil {
			return fmt.Errorf("update review: %w", err)
		}

		entry = s.newLogEntry(moderatorID, reviewID, domain.InferModerationAction(current, next), in.Reason)
		entry.Notes = trimmedPtr(in.ModeratorNotes)
		if err := tx.ModerationLogs().Append(ctx, entry); err != nil {
			return fmt.Errorf("append moderation log: %w", err)
		}

		if current.IsApproved != next.IsApproved {
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

	s.afterModeration(ctx, updated, entry, agg)
	return updated, nil
}

// AdminDeleteReview removes any review, logs the deletion and recomputes the
// product's aggregate.
func (s *ReviewService) AdminDeleteReview(ctx context.Context, moderatorID, reviewID string, reason *string) error {
	if moderatorID == "" {
		return domain.NewModeratorRequiredError()
	}

	var (
		deleted *domain.Review
		entry   *domain.ModerationLogEntry
		agg     *domain.RatingAggregate
	)

	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx repository.Store) error {
		current, err := lockReview(ctx, tx.Reviews(), reviewID)
		if err != nil {
			return err
		}

		if err := tx.Reviews().Delete(ctx, reviewID); err != nil {
			return fmt.Errorf("delete review: %w", err)
		}

		entry = s.newLogEntry(moderatorID, reviewID, domain.ModerationDeleted, reason)
		if err := tx.ModerationLogs().Append(ctx, entry); err != nil {
			return fmt.Errorf("append moderation log: %w", err)
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
	s.afterModeration(ctx, deleted, entry, agg)
	return nil
}

// BulkModerate runs the single-review operation for every id, each in its own
// transaction. A failing id does not stop the others.
func (s *ReviewService) BulkModerate(ctx context.Context, moderatorID string, in BulkModerationInput) (*BulkResult, error) {
	if moderatorID == "" {
		return nil, domain.NewModeratorRequiredError()
	}
	if !domain.IsValidBulkAction(in.Action) {
		return nil, domain.NewInvalidBulkRequestError(fmt.Sprintf("unknown bulk action %q", in.Action))
	}
	if len(in.ReviewIDs) == 0 {
		return nil, domain.NewInvalidBulkRequestError("at least one review id is required")
	}
	if len(in.ReviewIDs) > domain.MaxBulkReviews {
		return nil, domain.NewInvalidBulkRequestError(
			fmt.Sprintf("at most %d reviews can be moderated at once", domain.MaxBulkReviews))
	}

	result := &BulkResult{Succeeded: []string{}, Failed: map[string]string{}}
	seen := make(map[string]struct{}, len(in.ReviewIDs))

	for _, id := range in.ReviewIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		if err := s.moderateOne(ctx, moderatorID, id, in.Action, in.Reason); err != nil {
			result.Failed[id] = s.bulkFailure(ctx, id, err)
			continue
		}
		result.Succeeded = append(result.Succeeded, id)
	}

	s.logger.InfoContext(ctx, "bulk moderation completed",
		slog.String("moderator_id", moderatorID),
		slog.String("action", in.Action),
		slog.Int("succeeded", len(result.Succeeded)),
		slog.Int("failed", len(result.Failed)),
	)
	return result, nil
}

// ModerationHistory lists a review's moderation log, newest first. Entries
// of deleted reviews are still returned.
func (s *ReviewService) ModerationHistory(ctx context.Context, reviewID string) ([]domain.ModerationLogEntry, error) {
	entries, err := s.store.ModerationLogs().ListByReview(ctx, reviewID)
	if err != nil {
		return nil, fmt.Errorf("list moderation log: %w", err)
	}
	if entries == nil {
		entries = []domain.ModerationLogEntry{}
	}
	return entries, nil
}

func (s *ReviewService) moderateOne(ctx context.Context, moderatorID, reviewID, action string, reason *string) error {
	yes, no := true, false
	in := AdminUpdateInput{Reason: reason}

	switch action {
	case domain.BulkApprove:
		in.IsApproved = &yes
	case domain.BulkReject:
		in.IsApproved = &no
	case domain.BulkPin:
		in.IsPinned = &yes
	case domain.BulkUnpin:
		in.IsPinned = &no
	case domain.BulkDelete:
		return s.AdminDeleteReview(ctx, moderatorID, reviewID, reason)
	}

	_, err := s.AdminUpdateReview(ctx, moderatorID, reviewID, in)
	return err
}

// bulkFailure renders err for the Failed map. Internal errors are logged and
// replaced by a generic message.
func (s *ReviewService) bulkFailure(ctx context.Context, reviewID string, err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.Status < 500 {
		return appErr.Message
	}
	s.logger.ErrorContext(ctx, "bulk moderation item failed",
		slog.String("review_id", reviewID),
		slog.String("error", err.Error()),
	)
	return "an internal error occurred"
}

func (s *ReviewService) newLogEntry(moderatorID, reviewID, action string, reason *string) *domain.ModerationLogEntry {
	return &domain.ModerationLogEntry{
		ID:          uuid.New().String(),
		ReviewID:    reviewID,
		ModeratorID: moderatorID,
		Action:      action,
		Reason:      trimmedPtr(reason),
		CreatedAt:   s.now(),
	}
}

func (s *ReviewService) afterModeration(ctx context.Context, review *domain.Review, entry *domain.ModerationLogEntry, agg *domain.RatingAggregate) {
	metrics.ModerationActions.WithLabelValues(entry.Action).Inc()
	s.published(ctx, event.TopicReviewModerated, s.events.ReviewModerated(ctx, review, entry))
	s.publishRating(ctx, review.ProductID, agg)

	s.logger.InfoContext(ctx, "review moderated",
		slog.String("review_id", review.ID),
		slog.String("moderator_id", entry.ModeratorID),
		slog.String("action", entry.Action),
	)
}
