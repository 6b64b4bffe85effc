package postgres

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/utafrali/review-service/internal/domain"
	"github.com/utafrali/review-service/internal/repository"
	"github.com/utafrali/review-service/pkg/database"
	apperrors "github.com/utafrali/review-service/pkg/errors"
	"github.com/utafrali/review-service/pkg/pagination"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var reviewColumns = []string{
	"id", "product_id", "user_id", "order_id", "customer_email", "customer_name",
	"rating", "title", "content", "is_verified", "is_approved", "is_pinned",
	"helpful_count", "report_count", "moderator_notes", "created_at", "updated_at",
}

var sortColumns = map[string]string{
	domain.SortByCreatedAt:    "created_at",
	domain.SortByRating:       "rating",
	domain.SortByHelpfulCount: "helpful_count",
}

// ReviewRepository implements repository.ReviewRepository using PostgreSQL.
type ReviewRepository struct {
	db database.DBTX
}

// NewReviewRepository creates a new PostgreSQL-backed review repository.
func NewReviewRepository(db database.DBTX) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// Create inserts a review. A clash with either per-identity unique index is
// reported as apperrors.ErrAlreadyExists.
func (r *ReviewRepository) Create(ctx context.Context, rv *domain.Review) (err error) {
	query := `
		INSERT INTO reviews (` + strings.Join(reviewColumns, ", ") + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	ctx, end := database.TraceQuery(ctx, "CreateReview", query)
	defer func() { end(err) }()

	_, err = r.db.Exec(ctx, query,
		rv.ID,
		rv.ProductID,
		rv.UserID,
		rv.OrderID,
		rv.CustomerEmail,
		rv.CustomerName,
		rv.Rating,
		rv.Title,
		rv.Content,
		rv.IsVerified,
		rv.IsApproved,
		rv.IsPinned,
		rv.HelpfulCount,
		rv.ReportCount,
		rv.ModeratorNotes,
		rv.CreatedAt,
		rv.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return apperrors.AlreadyExists("review", "product_id", rv.ProductID)
		}
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}

// GetByID retrieves a review by its identifier.
func (r *ReviewRepository) GetByID(ctx context.Context, id string) (*domain.Review, error) {
	return r.get(ctx, "GetReview", `SELECT `+strings.Join(reviewColumns, ", ")+` FROM reviews WHERE id = $1`, id)
}

// GetByIDForUpdate retrieves a review and locks its row until the surrounding
// transaction ends. Counter recounts on the review run under this lock.
func (r *ReviewRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Review, error) {
	return r.get(ctx, "GetReviewForUpdate", `SELECT `+strings.Join(reviewColumns, ", ")+` FROM reviews WHERE id = $1 FOR UPDATE`, id)
}

func (r *ReviewRepository) get(ctx context.Context, operation, query, id string) (_ *domain.Review, err error) {
	ctx, end := database.TraceQuery(ctx, operation, query)
	defer func() { end(err) }()

	var rv domain.Review
	if err = scanReview(r.db.QueryRow(ctx, query, id), &rv); err != nil {
		if database.IsNoRows(err) {
			return nil, apperrors.NotFound("review", id)
		}
		return nil, fmt.Errorf("get review: %w", err)
	}
	return &rv, nil
}

// Update writes the author- and moderator-editable fields of a review.
func (r *ReviewRepository) Update(ctx context.Context, rv *domain.Review) (err error) {
	query := `
		UPDATE reviews
		SET rating = $2, title = $3, content = $4, is_approved = $5, is_pinned = $6,
		    moderator_notes = $7, updated_at = $8
		WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "UpdateReview", query)
	defer func() { end(err) }()

	tag, err := r.db.Exec(ctx, query,
		rv.ID,
		rv.Rating,
		rv.Title,
		rv.Content,
		rv.IsApproved,
		rv.IsPinned,
		rv.ModeratorNotes,
		rv.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update review: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("review", rv.ID)
	}
	return nil
}

// Delete removes a review; its votes and reports cascade.
func (r *ReviewRepository) Delete(ctx context.Context, id string) (err error) {
	query := `DELETE FROM reviews WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "DeleteReview", query)
	defer func() { end(err) }()

	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("review", id)
	}
	return nil
}

func (r *ReviewRepository) ExistsForUser(ctx context.Context, userID, productID string) (_ bool, err error) {
	query := `SELECT EXISTS (SELECT 1 FROM reviews WHERE user_id = $1 AND product_id = $2)`

	ctx, end := database.TraceQuery(ctx, "ExistsUserReview", query)
	defer func() { end(err) }()

	var exists bool
	if err = r.db.QueryRow(ctx, query, userID, productID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check user review: %w", err)
	}
	return exists, nil
}

func (r *ReviewRepository) ExistsForGuest(ctx context.Context, email, productID string) (_ bool, err error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM reviews
			WHERE lower(customer_email) = $1 AND product_id = $2 AND user_id IS NULL
		)`

	ctx, end := database.TraceQuery(ctx, "ExistsGuestReview", query)
	defer func() { end(err) }()

	var exists bool
	if err = r.db.QueryRow(ctx, query, domain.NormalizeEmail(email), productID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check guest review: %w", err)
	}
	return exists, nil
}

// List composes the filter into one query and reads the total with a window
// count, so an out-of-range page reports a total of zero.
func (r *ReviewRepository) List(ctx context.Context, filter repository.ReviewFilter) (_ []domain.Review, _ int, err error) {
	params := pagination.New(filter.Page, filter.PerPage)

	columns := append(append([]string{}, reviewColumns...), "count(*) OVER() AS total_count")
	builder := psql.
		Select(columns...).
		From("reviews").
		Where(reviewPredicates(filter)).
		OrderBy(reviewOrdering(filter)...).
		Limit(uint64(params.PerPage)).
		Offset(uint64(params.Offset))

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build review list query: %w", err)
	}

	ctx, end := database.TraceQuery(ctx, "ListReviews", query)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	var (
		reviews    []domain.Review
		totalCount int
	)
	for rows.Next() {
		var rv domain.Review
		if err = scanReview(rows, &rv, &totalCount); err != nil {
			return nil, 0, fmt.Errorf("scan review row: %w", err)
		}
		reviews = append(reviews, rv)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate review rows: %w", err)
	}

	if reviews == nil {
		reviews = []domain.Review{}
	}
	return reviews, totalCount, nil
}

func (r *ReviewRepository) SetHelpfulCount(ctx context.Context, id string, count int) error {
	return r.setCounter(ctx, "helpful_count", id, count)
}

func (r *ReviewRepository) SetReportCount(ctx context.Context, id string, count int) error {
	return r.setCounter(ctx, "report_count", id, count)
}

// setCounter writes a recounted column. column is never user input.
func (r *ReviewRepository) setCounter(ctx context.Context, column, id string, count int) (err error) {
	query := fmt.Sprintf(`UPDATE reviews SET %s = $2 WHERE id = $1`, column)

	ctx, end := database.TraceQuery(ctx, "SetReviewCounter", query)
	defer func() { end(err) }()

	tag, err := r.db.Exec(ctx, query, id, count)
	if err != nil {
		return fmt.Errorf("set %s: %w", column, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("review", id)
	}
	return nil
}

// RatingCounts groups a product's approved reviews by star.
func (r *ReviewRepository) RatingCounts(ctx context.Context, productID string) (_ map[int]int, err error) {
	query := `
		SELECT rating, count(*)
		FROM reviews
		WHERE product_id = $1 AND is_approved = true
		GROUP BY rating`

	ctx, end := database.TraceQuery(ctx, "RatingCounts", query)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("count ratings: %w", err)
	}
	defer rows.Close()

	counts := make(map[int]int, domain.MaxRating)
	for rows.Next() {
		var rating, n int
		if err = rows.Scan(&rating, &n); err != nil {
			return nil, fmt.Errorf("scan rating count: %w", err)
		}
		counts[rating] = n
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rating counts: %w", err)
	}
	return counts, nil
}

func reviewPredicates(f repository.ReviewFilter) sq.And {
	where := sq.And{}

	if f.ProductID != nil {
		where = append(where, sq.Eq{"product_id": *f.ProductID})
	}
	if f.UserID != nil {
		where = append(where, sq.Eq{"user_id": *f.UserID})
	}
	if f.CustomerEmail != nil {
		where = append(where, sq.Eq{"lower(customer_email)": domain.NormalizeEmail(*f.CustomerEmail)})
	}
	switch len(f.Ratings) {
	case 0:
	case 1:
		where = append(where, sq.Eq{"rating": f.Ratings[0]})
	default:
		where = append(where, sq.Eq{"rating": f.Ratings})
	}
	if f.IsVerified != nil {
		where = append(where, sq.Eq{"is_verified": *f.IsVerified})
	}
	if f.IsApproved != nil {
		where = append(where, sq.Eq{"is_approved": *f.IsApproved})
	}
	if f.IsPinned != nil {
		where = append(where, sq.Eq{"is_pinned": *f.IsPinned})
	}
	if f.CreatedFrom != nil {
		where = append(where, sq.GtOrEq{"created_at": *f.CreatedFrom})
	}
	if f.CreatedTo != nil {
		where = append(where, sq.LtOrEq{"created_at": *f.CreatedTo})
	}
	if f.Search != nil && strings.TrimSpace(*f.Search) != "" {
		pattern := "%" + likeEscaper.Replace(strings.TrimSpace(*f.Search)) + "%"
		where = append(where, sq.Or{
			sq.ILike{"title": pattern},
			sq.ILike{"content": pattern},
			sq.ILike{"customer_name": pattern},
			sq.ILike{"customer_email": pattern},
		})
	}

	return where
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func reviewOrdering(f repository.ReviewFilter) []string {
	column, ok := sortColumns[f.SortBy]
	if !ok {
		column = "created_at"
	}
	direction := "DESC"
	if f.SortOrder == domain.SortAsc {
		direction = "ASC"
	}

	var order []string
	if f.PinnedFirst && column == "created_at" {
		order = append(order, "is_pinned DESC")
	}
	return append(order, column+" "+direction, "id "+direction)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReview(row rowScanner, rv *domain.Review, extra ...any) error {
	dest := []any{
		&rv.ID,
		&rv.ProductID,
		&rv.UserID,
		&rv.OrderID,
		&rv.CustomerEmail,
		&rv.CustomerName,
		&rv.Rating,
		&rv.Title,
		&rv.Content,
		&rv.IsVerified,
		&rv.IsApproved,
		&rv.IsPinned,
		&rv.HelpfulCount,
		&rv.ReportCount,
		&rv.ModeratorNotes,
		&rv.CreatedAt,
		&rv.UpdatedAt,
	}
	return row.Scan(append(dest, extra...)...)
}
