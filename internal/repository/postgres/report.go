package postgres

import (
	"context"
	"fmt"

	"github.com/utafrali/review-service/internal/domain"
	"github.com/utafrali/review-service/pkg/database"
	apperrors "github.com/utafrali/review-service/pkg/errors"
)

// ReportRepository implements repository.ReportRepository using PostgreSQL.
type ReportRepository struct {
	db database.DBTX
}

// NewReportRepository creates a new PostgreSQL-backed report repository.
func NewReportRepository(db database.DBTX) *ReportRepository {
	return &ReportRepository{db: db}
}

func (r *ReportRepository) Exists(ctx context.Context, userID, reviewID string) (_ bool, err error) {
	query := `SELECT EXISTS (SELECT 1 FROM review_reports WHERE user_id = $1 AND review_id = $2)`

	ctx, end := database.TraceQuery(ctx, "ExistsReport", query)
	defer func() { end(err) }()

	var exists bool
	if err = r.db.QueryRow(ctx, query, userID, reviewID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check report: %w", err)
	}
	return exists, nil
}

// Create inserts a report. A concurrent duplicate that slips past Exists is
// caught by the unique index and reported as apperrors.ErrAlreadyExists.
func (r *ReportRepository) Create(ctx context.Context, rp *domain.Report) (err error) {
	query := `
		INSERT INTO review_reports (id, review_id, user_id, reason, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	ctx, end := database.TraceQuery(ctx, "CreateReport", query)
	defer func() { end(err) }()

	_, err = r.db.Exec(ctx, query,
		rp.ID,
		rp.ReviewID,
		rp.UserID,
		rp.Reason,
		rp.Description,
		rp.CreatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return apperrors.AlreadyExists("report", "review_id", rp.ReviewID)
		}
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

func (r *ReportRepository) Count(ctx context.Context, reviewID string) (_ int, err error) {
	query := `SELECT count(*) FROM review_reports WHERE review_id = $1`

	ctx, end := database.TraceQuery(ctx, "CountReports", query)
	defer func() { end(err) }()

	var n int
	if err = r.db.QueryRow(ctx, query, reviewID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count reports: %w", err)
	}
	return n, nil
}
