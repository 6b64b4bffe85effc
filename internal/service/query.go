package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/utafrali/review-service/internal/domain"
	"github.com/utafrali/review-service/internal/repository"
	apperrors "github.com/utafrali/review-service/pkg/errors"
	"github.com/utafrali/review-service/pkg/pagination"
)

// ReviewListQuery holds the optional predicates, ordering and page of a
// review listing.
type ReviewListQuery struct {
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

	SortBy    string
	SortOrder string

	Page    int
	PerPage int
}

// ListReviews returns one page of reviews matching q.
func (s *ReviewService) ListReviews(ctx context.Context, q ReviewListQuery) (*pagination.Result[domain.Review], error) {
	return s.list(ctx, q, false)
}

// GetProductReviews lists the approved reviews of a product. With the
// default ordering, pinned reviews come first.
func (s *ReviewService) GetProductReviews(ctx context.Context, productID string, q ReviewListQuery) (*pagination.Result[domain.Review], error) {
	approved := true
	q.ProductID = &productID
	q.IsApproved = &approved
	return s.list(ctx, q, true)
}

// GetPendingReviews is the moderation queue: unapproved reviews, oldest
// first.
func (s *ReviewService) GetPendingReviews(ctx context.Context, page, perPage int) (*pagination.Result[domain.Review], error) {
	pending := false
	return s.list(ctx, ReviewListQuery{
		IsApproved: &pending,
		SortBy:     domain.SortByCreatedAt,
		SortOrder:  domain.SortAsc,
		Page:       page,
		PerPage:    perPage,
	}, false)
}

// GetReview returns a single review by id.
func (s *ReviewService) GetReview(ctx context.Context, id string) (*domain.Review, error) {
	return loadReview(ctx, s.store.Reviews(), id)
}

func (s *ReviewService) list(ctx context.Context, q ReviewListQuery, pinnedFirst bool) (*pagination.Result[domain.Review], error) {
	if !domain.IsValidSortField(q.SortBy) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid sort field %q", q.SortBy))
	}
	order := strings.ToLower(q.SortOrder)
	if !domain.IsValidSortOrder(order) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid sort order %q", q.SortOrder))
	}
	for _, r := range q.Ratings {
		if !domain.IsValidRating(r) {
			return nil, domain.NewInvalidRatingError(r)
		}
	}
	if q.CreatedFrom != nil && q.CreatedTo != nil && q.CreatedFrom.After(*q.CreatedTo) {
		return nil, apperrors.InvalidInput("created_from must not be after created_to")
	}

	params := pagination.New(q.Page, q.PerPage)
	filter := repository.ReviewFilter{
		ProductID:   q.ProductID,
		UserID:      q.UserID,
		Ratings:     q.Ratings,
		IsVerified:  q.IsVerified,
		IsApproved:  q.IsApproved,
		IsPinned:    q.IsPinned,
		CreatedFrom: q.CreatedFrom,
		CreatedTo:   q.CreatedTo,
		Search:      trimmedPtr(q.Search),
		SortBy:      q.SortBy,
		SortOrder:   order,
		PinnedFirst: pinnedFirst,
		Page:        params.Page,
		PerPage:     params.PerPage,
	}
	if q.CustomerEmail != nil {
		email := domain.NormalizeEmail(*q.CustomerEmail)
		filter.CustomerEmail = &email
	}

	reviews, total, err := s.store.Reviews().List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}

	result := pagination.NewResult(reviews, total, params)
	return &result, nil
}
