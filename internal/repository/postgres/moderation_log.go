package postgres

import (
	"context"
	"fmt"

	"github.com/utafrali/review-service/internal/domain"
	"github.com/utafrali/review-service/pkg/database"
)

// ModerationLogRepository implements repository.ModerationLogRepository
// using PostgreSQL.
type ModerationLogRepository struct {
	db database.DBTX
}

// NewModerationLogRepository creates a new PostgreSQL-backed moderation log.
func NewModerationLogRepository(db database.DBTX) *ModerationLogRepository {
	return &ModerationLogRepository{db: db}
}

func (r *ModerationLogRepository) Append(ctx context.Context, e *domain.ModerationLogEntry) (err error) {
	query := `
		INSERT INTO review_moderation_logs (id, review_id, moderator_id, action, reason, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	ctx, end := database.TraceQuery(ctx, "AppendModerationLog", query)
	defer func() { end(err) }()

	_, err = r.db.Exec(ctx, query,
		e.ID,
		e.ReviewID,
		e.ModeratorID,
		e.Action,
		e.Reason,
		e.Notes,
		e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append moderation log: %w", err)
	}
	return nil
}

// ListByReview returns the audit trail of a review, newest first. It works
// for deleted reviews too.
func (r *ModerationLogRepository) ListByReview(ctx context.Context, reviewID string) (_ []domain.ModerationLogEntry, err error) {
	query := `
		SELECT id, review_id, moderator_id, action, reason, notes, created_at
		FROM review_moderation_logs
		WHERE review_id = $1
		ORDER BY created_at DESC, id DESC`

	ctx, end := database.TraceQuery(ctx, "ListModerationLogs", query)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, query, reviewID)
	if err != nil {
		return nil, fmt.Errorf("list moderation logs: %w", err)
	}
	defer rows.Close()

	entries := []domain.ModerationLogEntry{}
	for rows.Next() {
		var e domain.ModerationLogEntry
		if err = rows.Scan(&e.ID, &e.ReviewID, &e.ModeratorID, &e.Action, &e.Reason, &e.Notes, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan moderation log: %w", err)
		}
		entries = append(entries, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate moderation logs: %w", err)
	}
	return entries, nil
}
