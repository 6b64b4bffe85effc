package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/review-service/internal/domain"
	"github.com/utafrali/review-service/internal/service"
	"github.com/utafrali/review-service/pkg/httputil"
	"github.com/utafrali/review-service/pkg/middleware"
	"github.com/utafrali/review-service/pkg/validator"
)

// ReviewHandler serves the customer-facing review endpoints.
type ReviewHandler struct {
	service *service.ReviewService
	logger  *slog.Logger
}

// NewReviewHandler creates a new review HTTP handler.
func NewReviewHandler(svc *service.ReviewService, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// CreateReviewRequest is the JSON request body for creating a review. The
// rating range is checked by the service, which reports INVALID_RATING.
type CreateReviewRequest struct {
	OrderID *string `json:"order_id" validate:"omitempty,uuid"`
	Rating  int     `json:"rating"`
	Title   string  `json:"title" validate:"max=255"`
	Content string  `json:"content" validate:"max=10000"`
}

// GuestReviewRequest is the JSON request body for a review without an account.
type GuestReviewRequest struct {
	OrderID       *string `json:"order_id" validate:"omitempty,uuid"`
	CustomerEmail string  `json:"customer_email" validate:"required,email,max=255"`
	CustomerName  string  `json:"customer_name" validate:"required,max=255"`
	Rating        int     `json:"rating"`
	Title         string  `json:"title" validate:"max=255"`
	Content       string  `json:"content" validate:"max=10000"`
}

// UpdateReviewRequest is the JSON request body for editing one's own review.
type UpdateReviewRequest struct {
	Rating  *int    `json:"rating"`
	Title   *string `json:"title" validate:"omitempty,max=255"`
	Content *string `json:"content" validate:"omitempty,max=10000"`
}

// VoteRequest is the JSON request body for a helpfulness vote.
type VoteRequest struct {
	IsHelpful *bool `json:"is_helpful" validate:"required"`
}

// ReportRequest is the JSON request body for reporting a review.
type ReportRequest struct {
	Reason      string  `json:"reason" validate:"required"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
}

// --- Handlers ---

// ListProductReviews handles GET /api/v1/products/{productId}/reviews.
func (h *ReviewHandler) ListProductReviews(w http.ResponseWriter, r *http.Request) {
	productID, ok := httputil.ParseUUID(w, chi.URLParam(r, "productId"))
	if !ok {
		return
	}

	q, err := parseListQuery(r, false)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	result, err := h.service.GetProductReviews(r.Context(), productID, q)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}

// CanReview handles GET /api/v1/products/{productId}/reviews/eligibility.
func (h *ReviewHandler) CanReview(w http.ResponseWriter, r *http.Request) {
	productID, ok := httputil.ParseUUID(w, chi.URLParam(r, "productId"))
	if !ok {
		return
	}

	allowed, err := h.service.CanUserReview(r.Context(), middleware.UserIDFromContext(r.Context()), productID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, map[string]bool{"can_review": allowed})
}

// CreateReview handles POST /api/v1/products/{productId}/reviews.
func (h *ReviewHandler) CreateReview(w http.ResponseWriter, r *http.Request) {
	productID, ok := httputil.ParseUUID(w, chi.URLParam(r, "productId"))
	if !ok {
		return
	}

	var req CreateReviewRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	review, err := h.service.CreateReview(r.Context(), middleware.UserIDFromContext(r.Context()), service.CreateReviewInput{
		ProductID: productID,
		OrderID:   req.OrderID,
		Rating:    req.Rating,
		Title:     req.Title,
		Content:   req.Content,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusCreated, review)
}

// CreateGuestReview handles POST /api/v1/products/{productId}/reviews/guest.
func (h *ReviewHandler) CreateGuestReview(w http.ResponseWriter, r *http.Request) {
	productID, ok := httputil.ParseUUID(w, chi.URLParam(r, "productId"))
	if !ok {
		return
	}

	var req GuestReviewRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	review, err := h.service.CreateGuestReview(r.Context(), service.GuestReviewInput{
		ProductID:     productID,
		OrderID:       req.OrderID,
		CustomerEmail: req.CustomerEmail,
		CustomerName:  req.CustomerName,
		Rating:        req.Rating,
		Title:         req.Title,
		Content:       req.Content,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusCreated, review)
}

// GetReview handles GET /api/v1/reviews/{id}.
func (h *ReviewHandler) GetReview(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	review, err := h.service.GetReview(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, review)
}

// UpdateReview handles PUT /api/v1/reviews/{id}.
func (h *ReviewHandler) UpdateReview(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req UpdateReviewRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	review, err := h.service.UpdateReview(r.Context(), middleware.UserIDFromContext(r.Context()), id, service.UpdateReviewInput{
		Rating:  req.Rating,
		Title:   req.Title,
		Content: req.Content,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, review)
}

// DeleteReview handles DELETE /api/v1/reviews/{id}.
func (h *ReviewHandler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.service.DeleteReview(r.Context(), middleware.UserIDFromContext(r.Context()), id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// VoteHelpful handles POST /api/v1/reviews/{id}/helpful. Signed-in callers
// vote as themselves; anyone else votes by client IP.
func (h *ReviewHandler) VoteHelpful(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req VoteRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	var (
		review *domain.Review
		err    error
	)
	if userID := middleware.UserIDFromContext(r.Context()); userID != "" {
		review, err = h.service.VoteHelpful(r.Context(), userID, id, *req.IsHelpful)
	} else {
		review, err = h.service.VoteHelpfulAnonymous(r.Context(), httputil.ClientIP(r), id, *req.IsHelpful)
	}
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, review)
}

// ReportReview handles POST /api/v1/reviews/{id}/reports.
func (h *ReviewHandler) ReportReview(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req ReportRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	report, err := h.service.ReportReview(r.Context(), middleware.UserIDFromContext(r.Context()), service.CreateReportInput{
		ReviewID:    id,
		Reason:      req.Reason,
		Description: req.Description,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusCreated, report)
}
