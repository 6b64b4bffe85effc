package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/utafrali/review-service/internal/domain"
	"github.com/utafrali/review-service/internal/metrics"
	"github.com/utafrali/review-service/internal/repository"
)

// VoteHelpful records userID's helpful/unhelpful vote. Authors cannot vote
// on their own reviews. Voting again overwrites the earlier vote.
func (s *ReviewService) VoteHelpful(ctx context.Context, userID, reviewID string, isHelpful bool) (*domain.Review, error) {
	return s.vote(ctx, domain.UserVoter(userID), reviewID, isHelpful)
}

// VoteHelpfulAnonymous records a vote keyed by the client's IP address.
func (s *ReviewService) VoteHelpfulAnonymous(ctx context.Context, ip, reviewID string, isHelpful bool) (*domain.Review, error) {
	return s.vote(ctx, domain.IPVoter(ip), reviewID, isHelpful)
}

func (s *ReviewService) vote(ctx context.Context, key domain.VoterKey, reviewID string, isHelpful bool) (*domain.Review, error) {
	var review *domain.Review

	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx repository.Store) error {
		current, err := lockReview(ctx, tx.Reviews(), reviewID)
		if err != nil {
			return err
		}
		if !key.IsAnonymous() && current.IsOwnedBy(key.UserID) {
			return domain.NewSelfVoteError()
		}

		now := s.now()
		vote := domain.NewHelpfulVote(reviewID, key, isHelpful)
		vote.ID = uuid.New().String()
		vote.CreatedAt = now
		vote.UpdatedAt = now
		if err := tx.Votes().Upsert(ctx, vote); err != nil {
			return fmt.Errorf("upsert vote: %w", err)
		}

		count, err := tx.Votes().CountHelpful(ctx, reviewID)
		if err != nil {
			return fmt.Errorf("count helpful votes: %w", err)
		}
		if err := tx.Reviews().SetHelpfulCount(ctx, reviewID, count); err != nil {
			return fmt.Errorf("set helpful count: %w", err)
		}

		current.HelpfulCount = count
		review = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.Votes.WithLabelValues(key.Kind()).Inc()
	s.logger.InfoContext(ctx, "review voted",
		slog.String("review_id", reviewID),
		slog.String("voter", key.Kind()),
		slog.Bool("is_helpful", isHelpful),
		slog.Int("helpful_count", review.HelpfulCount),
	)
	return review, nil
}
