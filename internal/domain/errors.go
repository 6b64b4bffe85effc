package domain

import (
	"fmt"
	"net/http"

	apperrors "github.com/utafrali/review-service/pkg/errors"
)

// Sentinels for review and moderation failures. Each wraps the generic
// apperrors sentinel of the same family.
var (
	ErrInvalidRating      = fmt.Errorf("%w: rating out of range", apperrors.ErrInvalidInput)
	ErrDuplicateReview    = fmt.Errorf("%w: review already submitted", apperrors.ErrAlreadyExists)
	ErrDuplicateReport    = fmt.Errorf("%w: review already reported", apperrors.ErrAlreadyExists)
	ErrProductNotFound    = fmt.Errorf("%w: product", apperrors.ErrNotFound)
	ErrUserNotFound       = fmt.Errorf("%w: user", apperrors.ErrNotFound)
	ErrReviewNotFound     = fmt.Errorf("%w: review", apperrors.ErrNotFound)
	ErrNotOwner           = fmt.Errorf("%w: not the review author", apperrors.ErrForbidden)
	ErrSelfVote           = fmt.Errorf("%w: vote on own review", apperrors.ErrForbidden)
	ErrPurchaseRequired   = fmt.Errorf("%w: verified purchase required", apperrors.ErrForbidden)
	ErrModeratorRequired  = fmt.Errorf("%w: moderator required", apperrors.ErrForbidden)
	ErrInvalidBulkRequest = fmt.Errorf("%w: bulk moderation request", apperrors.ErrInvalidInput)
)

// ReviewError is a failure the end user can fix by changing their request.
type ReviewError struct {
	*apperrors.AppError
}

// Unwrap exposes the AppError so errors.As finds it and errors.Is reaches the
// sentinels.
func (e *ReviewError) Unwrap() error { return e.AppError }

// ModerationError is a failure of an admin request.
type ModerationError struct {
	*apperrors.AppError
}

func (e *ModerationError) Unwrap() error { return e.AppError }

func reviewError(code, message string, status int, sentinel error) *ReviewError {
	return &ReviewError{AppError: apperrors.New(code, message, status, sentinel)}
}

func moderationError(code, message string, status int, sentinel error) *ModerationError {
	return &ModerationError{AppError: apperrors.New(code, message, status, sentinel)}
}

// NewInvalidRatingError reports a rating outside [MinRating, MaxRating].
func NewInvalidRatingError(rating int) *ReviewError {
	return reviewError("INVALID_RATING",
		fmt.Sprintf("rating must be between %d and %d, got %d", MinRating, MaxRating, rating),
		http.StatusBadRequest, ErrInvalidRating)
}

func NewDuplicateReviewError(productID string) *ReviewError {
	return reviewError("DUPLICATE_REVIEW",
		fmt.Sprintf("you have already reviewed product %s", productID),
		http.StatusConflict, ErrDuplicateReview)
}

func NewDuplicateReportError(reviewID string) *ReviewError {
	return reviewError("DUPLICATE_REPORT",
		fmt.Sprintf("you have already reported review %s", reviewID),
		http.StatusConflict, ErrDuplicateReport)
}

func NewProductNotFoundError(productID string) *ReviewError {
	return reviewError("PRODUCT_NOT_FOUND",
		fmt.Sprintf("product with id %s not found", productID),
		http.StatusNotFound, ErrProductNotFound)
}

func NewUserNotFoundError(userID string) *ReviewError {
	return reviewError("USER_NOT_FOUND",
		fmt.Sprintf("user with id %s not found", userID),
		http.StatusNotFound, ErrUserNotFound)
}

func NewReviewNotFoundError(reviewID string) *ReviewError {
	return reviewError("REVIEW_NOT_FOUND",
		fmt.Sprintf("review with id %s not found", reviewID),
		http.StatusNotFound, ErrReviewNotFound)
}

func NewNotOwnerError() *ReviewError {
	return reviewError("NOT_REVIEW_OWNER", "you can only modify your own reviews",
		http.StatusForbidden, ErrNotOwner)
}

func NewSelfVoteError() *ReviewError {
	return reviewError("SELF_VOTE", "you cannot vote on your own review",
		http.StatusForbidden, ErrSelfVote)
}

func NewPurchaseRequiredError(productID string) *ReviewError {
	return reviewError("PURCHASE_REQUIRED",
		fmt.Sprintf("a completed order containing product %s is required to review it", productID),
		http.StatusForbidden, ErrPurchaseRequired)
}

// NewInvalidReportReasonError uses the generic INVALID_INPUT code.
func NewInvalidReportReasonError(reason string) *ReviewError {
	return &ReviewError{AppError: apperrors.InvalidInput(
		fmt.Sprintf("invalid report reason %q", reason))}
}

func NewModeratorRequiredError() *ModerationError {
	return moderationError("MODERATOR_REQUIRED", "a moderator id is required",
		http.StatusForbidden, ErrModeratorRequired)
}

func NewInvalidBulkRequestError(message string) *ModerationError {
	return moderationError("INVALID_BULK_REQUEST", message,
		http.StatusBadRequest, ErrInvalidBulkRequest)
}
