package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/review-service/internal/service"
	"github.com/utafrali/review-service/pkg/httputil"
	"github.com/utafrali/review-service/pkg/middleware"
	"github.com/utafrali/review-service/pkg/pagination"
	"github.com/utafrali/review-service/pkg/validator"
)

// AdminHandler serves the moderation endpoints. Every route requires the
// admin role; the caller's user ID is recorded as the moderator.
type AdminHandler struct {
	service *service.ReviewService
	logger  *slog.Logger
}

// NewAdminHandler creates a new moderation HTTP handler.
func NewAdminHandler(svc *service.ReviewService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		service: svc,
		logger:  logger,
	}
}

// AdminUpdateRequest is the JSON request body for moderating a review.
type AdminUpdateRequest struct {
	IsApproved     *bool   `json:"is_approved"`
	IsPinned       *bool   `json:"is_pinned"`
	ModeratorNotes *string `json:"moderator_notes" validate:"omitempty,max=2000"`
	Reason         *string `json:"reason" validate:"omitempty,max=500"`
}

// BulkModerationRequest is the JSON request body for bulk moderation. Batch
// size and action are checked by the service (INVALID_BULK_REQUEST).
type BulkModerationRequest struct {
	Action    string   `json:"action"`
	ReviewIDs []string `json:"review_ids" validate:"dive,required,uuid"`
	Reason    *string  `json:"reason" validate:"omitempty,max=500"`
}

// ListReviews handles GET /api/v1/admin/reviews.
func (h *AdminHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	q, err := parseListQuery(r, true)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	result, err := h.service.ListReviews(r.Context(), q)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}

// PendingReviews handles GET /api/v1/admin/reviews/pending.
func (h *AdminHandler) PendingReviews(w http.ResponseWriter, r *http.Request) {
	params := pagination.FromRequest(r)

	result, err := h.service.GetPendingReviews(r.Context(), params.Page, params.PerPage)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}

// UpdateReview handles PATCH /api/v1/admin/reviews/{id}.
func (h *AdminHandler) UpdateReview(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req AdminUpdateRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	review, err := h.service.AdminUpdateReview(r.Context(), middleware.UserIDFromContext(r.Context()), id, service.AdminUpdateInput{
		IsApproved:     req.IsApproved,
		IsPinned:       req.IsPinned,
		ModeratorNotes: req.ModeratorNotes,
		Reason:         req.Reason,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, review)
}

// DeleteReview handles DELETE /api/v1/admin/reviews/{id}?reason=...
func (h *AdminHandler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	reason := optionalString(r.URL.Query(), "reason")
	if err := h.service.AdminDeleteReview(r.Context(), middleware.UserIDFromContext(r.Context()), id, reason); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// BulkModerate handles POST /api/v1/admin/reviews/bulk. Per-review failures
// are reported in the body; the request itself succeeds.
func (h *AdminHandler) BulkModerate(w http.ResponseWriter, r *http.Request) {
	var req BulkModerationRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	result, err := h.service.BulkModerate(r.Context(), middleware.UserIDFromContext(r.Context()), service.BulkModerationInput{
		Action:    req.Action,
		ReviewIDs: req.ReviewIDs,
		Reason:    req.Reason,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, result)
}

// History handles GET /api/v1/admin/reviews/{id}/history. Entries survive
// the review's deletion.
func (h *AdminHandler) History(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	entries, err := h.service.ModerationHistory(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, entries)
}
