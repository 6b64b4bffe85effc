package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/utafrali/review-service/internal/domain"
	"github.com/utafrali/review-service/internal/metrics"
	"github.com/utafrali/review-service/internal/repository"
	apperrors "github.com/utafrali/review-service/pkg/errors"
)

// CreateReportInput is an abuse report on a review.
type CreateReportInput struct {
	ReviewID    string
	Reason      string
	Description *string
}

// ReportReview files userID's report and refreshes the review's report
// count. Each user may report a review once. Reports never change approval.
func (s *ReviewService) ReportReview(ctx context.Context, userID string, in CreateReportInput) (*domain.Report, error) {
	var report *domain.Report

	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx repository.Store) error {
		if _, err := lockReview(ctx, tx.Reviews(), in.ReviewID); err != nil {
			return err
		}

		exists, err := tx.Reports().Exists(ctx, userID, in.ReviewID)
		if err != nil {
			return fmt.Errorf("check existing report: %w", err)
		}
		if exists {
			return domain.NewDuplicateReportError(in.ReviewID)
		}
		if !domain.IsValidReportReason(in.Reason) {
			return domain.NewInvalidReportReasonError(in.Reason)
		}

		report = &domain.Report{
			ID:          uuid.New().String(),
			ReviewID:    in.ReviewID,
			UserID:      userID,
			Reason:      in.Reason,
			Description: s.cleanPtr(in.Description),
			CreatedAt:   s.now(),
		}
		if err := tx.Reports().Create(ctx, report); err != nil {
			if errors.Is(err, apperrors.ErrAlreadyExists) {
				return domain.NewDuplicateReportError(in.ReviewID)
			}
			return fmt.Errorf("create report: %w", err)
		}

		count, err := tx.Reports().Count(ctx, in.ReviewID)
		if err != nil {
			return fmt.Errorf("count reports: %w", err)
		}
		if err := tx.Reviews().SetReportCount(ctx, in.ReviewID, count); err != nil {
			return fmt.Errorf("set report count: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.Reports.WithLabelValues(report.Reason).Inc()
	s.logger.InfoContext(ctx, "review reported",
		slog.String("review_id", report.ReviewID),
		slog.String("user_id", userID),
		slog.String("reason", report.Reason),
	)
	return report, nil
}

// cleanPtr sanitizes optional text, dropping it when nothing is left.
func (s *ReviewService) cleanPtr(text *string) *string {
	if text == nil {
		return nil
	}
	v := s.clean(*text)
	return trimmedPtr(&v)
}
