package postgres

import (
	"context"
	"fmt"

	"github.com/utafrali/review-service/internal/domain"
	"github.com/utafrali/review-service/pkg/database"
)

// VoteRepository implements repository.VoteRepository using PostgreSQL.
type VoteRepository struct {
	db database.DBTX
}

// NewVoteRepository creates a new PostgreSQL-backed vote repository.
func NewVoteRepository(db database.DBTX) *VoteRepository {
	return &VoteRepository{db: db}
}

// Upsert targets the partial unique index matching the voter key, so two
// first-time votes from the same voter collapse into one row.
func (r *VoteRepository) Upsert(ctx context.Context, v *domain.HelpfulVote) (err error) {
	conflict := `(user_id, review_id) WHERE user_id IS NOT NULL`
	if v.UserID == nil {
		conflict = `(ip_address, review_id) WHERE ip_address IS NOT NULL`
	}

	query := `
		INSERT INTO review_helpful_votes (id, review_id, user_id, ip_address, is_helpful, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT ` + conflict + ` DO UPDATE SET
			is_helpful = EXCLUDED.is_helpful,
			updated_at = EXCLUDED.updated_at`

	ctx, end := database.TraceQuery(ctx, "UpsertHelpfulVote", query)
	defer func() { end(err) }()

	_, err = r.db.Exec(ctx, query,
		v.ID,
		v.ReviewID,
		v.UserID,
		v.IPAddress,
		v.IsHelpful,
		v.CreatedAt,
		v.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert helpful vote: %w", err)
	}
	return nil
}

// CountHelpful counts the votes on a review that are currently helpful.
func (r *VoteRepository) CountHelpful(ctx context.Context, reviewID string) (_ int, err error) {
	query := `SELECT count(*) FROM review_helpful_votes WHERE review_id = $1 AND is_helpful = true`

	ctx, end := database.TraceQuery(ctx, "CountHelpfulVotes", query)
	defer func() { end(err) }()

	var n int
	if err = r.db.QueryRow(ctx, query, reviewID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count helpful votes: %w", err)
	}
	return n, nil
}
