package service

import (
	"context"
	"fmt"

	"github.com/utafrali/review-service/internal/domain"
	"github.com/utafrali/review-service/internal/repository"
)

// recomputeProductAggregate rebuilds the product's rating summary from its
// approved reviews and stores it. It must run inside the caller's
// transaction so the aggregate commits together with the change it reflects.
// The product row is locked before counting; a concurrent recompute waits
// and then counts this transaction's committed reviews.
func (s *ReviewService) recomputeProductAggregate(ctx context.Context, tx repository.Store, productID string) (*domain.RatingAggregate, error) {
	if err := tx.Products().LockForUpdate(ctx, productID); err != nil {
		return nil, fmt.Errorf("lock product: %w", err)
	}

	counts, err := tx.Reviews().RatingCounts(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("count ratings: %w", err)
	}

	agg := domain.NewRatingAggregate(counts)
	if err := tx.Products().UpdateRatingAggregate(ctx, productID, agg); err != nil {
		return nil, fmt.Errorf("update rating aggregate: %w", err)
	}
	return &agg, nil
}
