package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/utafrali/review-service/internal/domain"
	"github.com/utafrali/review-service/internal/repository"
	"github.com/utafrali/review-service/pkg/database"
	apperrors "github.com/utafrali/review-service/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// helpers
// ─────────────────────────────────────────────────────────────────────────────

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	return mock
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

var now = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

var uniqueViolation = &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"}

var reviewColumnsWithCount = append(append([]string{}, reviewColumns...), "total_count")

func sampleReview() domain.Review {
	return domain.Review{
		ID:            "rev-1",
		ProductID:     "prod-1",
		UserID:        strPtr("user-1"),
		OrderID:       strPtr("order-1"),
		CustomerEmail: "jane@example.com",
		CustomerName:  "Jane Doe",
		Rating:        5,
		Title:         "Great",
		Content:       "Works as advertised",
		IsVerified:    true,
		IsApproved:    true,
		HelpfulCount:  2,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func reviewRow(rv domain.Review) []any {
	return []any{
		rv.ID, rv.ProductID, rv.UserID, rv.OrderID, rv.CustomerEmail, rv.CustomerName,
		rv.Rating, rv.Title, rv.Content, rv.IsVerified, rv.IsApproved, rv.IsPinned,
		rv.HelpfulCount, rv.ReportCount, rv.ModeratorNotes, rv.CreatedAt, rv.UpdatedAt,
	}
}

// ─── TxManager ──────────────────────────────────────────────────────────────

func TestTxManager_CommitsOnSuccess(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()

	mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	mock.ExpectExec("UPDATE reviews SET helpful_count").
		WithArgs("rev-1", 3).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	err := NewTxManager(mock).WithinTx(context.Background(), func(ctx context.Context, tx repository.Store) error {
		return tx.Reviews().SetHelpfulCount(ctx, "rev-1", 3)
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTxManager_RollsBackOnError(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()

	mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	mock.ExpectRollback()

	boom := errors.New("boom")
	err := NewTxManager(mock).WithinTx(context.Background(), func(ctx context.Context, tx repository.Store) error {
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTxManager_BeginFailure(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()

	mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.ReadCommitted}).WillReturnError(errors.New("pool exhausted"))

	called := false
	err := NewTxManager(mock).WithinTx(context.Background(), func(ctx context.Context, tx repository.Store) error {
		called = true
		return nil
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "begin transaction")
	assert.False(t, called)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTxManager_CommitFailure(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()

	mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	mock.ExpectCommit().WillReturnError(errors.New("serialization failure"))

	err := NewTxManager(mock).WithinTx(context.Background(), func(ctx context.Context, tx repository.Store) error {
		return nil
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "commit transaction")
}

// ─── ReviewRepository ───────────────────────────────────────────────────────

func TestReviewRepository_Create_Success(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewReviewRepository(mock)

	rv := sampleReview()
	mock.ExpectExec("INSERT INTO reviews").
		WithArgs(reviewRow(rv)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.Create(context.Background(), &rv))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_Create_UniqueViolation(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewReviewRepository(mock)

	rv := sampleReview()
	mock.ExpectExec("INSERT INTO reviews").
		WithArgs(reviewRow(rv)...).
		WillReturnError(uniqueViolation)

	err := repo.Create(context.Background(), &rv)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_GetByID_Success(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewReviewRepository(mock)

	rv := sampleReview()
	rv.ModeratorNotes = strPtr("checked")
	mock.ExpectQuery("SELECT .+ FROM reviews WHERE id").
		WithArgs(rv.ID).
		WillReturnRows(pgxmock.NewRows(reviewColumns).AddRow(reviewRow(rv)...))

	got, err := repo.GetByID(context.Background(), rv.ID)
	require.NoError(t, err)
	assert.Equal(t, rv.ID, got.ID)
	assert.Equal(t, rv.UserID, got.UserID)
	assert.Equal(t, rv.Rating, got.Rating)
	assert.Equal(t, "checked", *got.ModeratorNotes)
	assert.True(t, got.IsApproved)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_GetByID_NotFound(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewReviewRepository(mock)

	mock.ExpectQuery("SELECT .+ FROM reviews WHERE id").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	got, err := repo.GetByID(context.Background(), "missing")
	assert.Nil(t, got)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_GetByIDForUpdate_LocksRow(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewReviewRepository(mock)

	rv := sampleReview()
	mock.ExpectQuery(`SELECT .+ FROM reviews WHERE id = \$1 FOR UPDATE`).
		WithArgs(rv.ID).
		WillReturnRows(pgxmock.NewRows(reviewColumns).AddRow(reviewRow(rv)...))
	mock.ExpectQuery(`SELECT .+ FROM reviews WHERE id = \$1 FOR UPDATE`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	got, err := repo.GetByIDForUpdate(context.Background(), rv.ID)
	require.NoError(t, err)
	assert.Equal(t, rv.ID, got.ID)

	_, err = repo.GetByIDForUpdate(context.Background(), "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_Update_NotFound(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewReviewRepository(mock)

	rv := sampleReview()
	mock.ExpectExec("UPDATE reviews").
		WithArgs(rv.ID, rv.Rating, rv.Title, rv.Content, rv.IsApproved, rv.IsPinned, rv.ModeratorNotes, rv.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.Update(context.Background(), &rv)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_Delete(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewReviewRepository(mock)

	mock.ExpectExec("DELETE FROM reviews WHERE id").
		WithArgs("rev-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec("DELETE FROM reviews WHERE id").
		WithArgs("rev-2").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	assert.NoError(t, repo.Delete(context.Background(), "rev-1"))
	assert.ErrorIs(t, repo.Delete(context.Background(), "rev-2"), apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_ExistsForGuest_NormalizesEmail(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewReviewRepository(mock)

	mock.ExpectQuery("SELECT EXISTS .+ FROM reviews .+ user_id IS NULL").
		WithArgs("guest@example.com", "prod-1").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.ExistsForGuest(context.Background(), " Guest@Example.com", "prod-1")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_List_Defaults(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewReviewRepository(mock)

	rv := sampleReview()
	mock.ExpectQuery("SELECT .+ FROM reviews .*ORDER BY created_at DESC, id DESC LIMIT 20 OFFSET 0").
		WillReturnRows(pgxmock.NewRows(reviewColumnsWithCount).AddRow(append(reviewRow(rv), 1)...))

	reviews, total, err := repo.List(context.Background(), repository.ReviewFilter{})
	require.NoError(t, err)
	assert.Len(t, reviews, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, rv.ID, reviews[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_List_WithFilters(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewReviewRepository(mock)

	filter := repository.ReviewFilter{
		ProductID:   strPtr("prod-1"),
		Ratings:     []int{4, 5},
		IsApproved:  boolPtr(true),
		Search:      strPtr("great"),
		PinnedFirst: true,
		Page:        3,
		PerPage:     10,
	}

	// product_id=$1, rating IN $2,$3, is_approved=$4, four ILIKE patterns.
	mock.ExpectQuery("SELECT .+ FROM reviews WHERE .+ ORDER BY is_pinned DESC, created_at DESC, id DESC LIMIT 10 OFFSET 20").
		WithArgs("prod-1", 4, 5, true, "%great%", "%great%", "%great%", "%great%").
		WillReturnRows(pgxmock.NewRows(reviewColumnsWithCount))

	reviews, total, err := repo.List(context.Background(), filter)
	require.NoError(t, err)
	assert.NotNil(t, reviews)
	assert.Empty(t, reviews)
	assert.Equal(t, 0, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_List_SortByRatingAscending(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewReviewRepository(mock)

	mock.ExpectQuery("ORDER BY rating ASC, id ASC").
		WithArgs("user-1").
		WillReturnRows(pgxmock.NewRows(reviewColumnsWithCount))

	_, _, err := repo.List(context.Background(), repository.ReviewFilter{
		UserID:      strPtr("user-1"),
		SortBy:      domain.SortByRating,
		SortOrder:   domain.SortAsc,
		PinnedFirst: true,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_List_EscapesSearchWildcards(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewReviewRepository(mock)

	mock.ExpectQuery("ILIKE").
		WithArgs(`%100\%%`, `%100\%%`, `%100\%%`, `%100\%%`).
		WillReturnRows(pgxmock.NewRows(reviewColumnsWithCount))

	_, _, err := repo.List(context.Background(), repository.ReviewFilter{Search: strPtr(" 100% ")})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_RatingCounts(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewReviewRepository(mock)

	mock.ExpectQuery("SELECT rating, count.+ FROM reviews WHERE product_id = .+ AND is_approved = true GROUP BY rating").
		WithArgs("prod-1").
		WillReturnRows(pgxmock.NewRows([]string{"rating", "count"}).AddRow(5, 3).AddRow(2, 1))

	counts, err := repo.RatingCounts(context.Background(), "prod-1")
	require.NoError(t, err)
	assert.Equal(t, map[int]int{5: 3, 2: 1}, counts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_SetReportCount_NotFound(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewReviewRepository(mock)

	mock.ExpectExec("UPDATE reviews SET report_count").
		WithArgs("gone", 1).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	assert.ErrorIs(t, repo.SetReportCount(context.Background(), "gone", 1), apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ─── VoteRepository ─────────────────────────────────────────────────────────

func TestVoteRepository_Upsert_ConflictTargetFollowsVoterKey(t *testing.T) {
	tests := []struct {
		name     string
		key      domain.VoterKey
		conflict string
	}{
		{"user", domain.UserVoter("user-1"), "ON CONFLICT .user_id, review_id. WHERE user_id IS NOT NULL DO UPDATE"},
		{"ip", domain.IPVoter("10.0.0.1"), "ON CONFLICT .ip_address, review_id. WHERE ip_address IS NOT NULL DO UPDATE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMock(t)
			defer mock.Close()
			repo := NewVoteRepository(mock)

			vote := domain.NewHelpfulVote("rev-1", tt.key, true)
			vote.ID, vote.CreatedAt, vote.UpdatedAt = "vote-1", now, now

			mock.ExpectExec("INSERT INTO review_helpful_votes .+ "+tt.conflict).
				WithArgs("vote-1", "rev-1", vote.UserID, vote.IPAddress, true, now, now).
				WillReturnResult(pgxmock.NewResult("INSERT", 1))

			require.NoError(t, repo.Upsert(context.Background(), vote))
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestVoteRepository_CountHelpful(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewVoteRepository(mock)

	mock.ExpectQuery("SELECT count.+ FROM review_helpful_votes WHERE review_id = .+ AND is_helpful = true").
		WithArgs("rev-1").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(4))

	n, err := repo.CountHelpful(context.Background(), "rev-1")
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ─── ReportRepository ───────────────────────────────────────────────────────

func TestReportRepository_Create_UniqueViolation(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewReportRepository(mock)

	mock.ExpectExec("INSERT INTO review_reports").
		WithArgs("rep-1", "rev-1", "user-2", domain.ReportReasonSpam, (*string)(nil), now).
		WillReturnError(uniqueViolation)

	err := repo.Create(context.Background(), &domain.Report{
		ID: "rep-1", ReviewID: "rev-1", UserID: "user-2", Reason: domain.ReportReasonSpam, CreatedAt: now,
	})
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepository_ExistsAndCount(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewReportRepository(mock)

	mock.ExpectQuery("SELECT EXISTS .+ FROM review_reports").
		WithArgs("user-2", "rev-1").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery("SELECT count.+ FROM review_reports").
		WithArgs("rev-1").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(2))

	exists, err := repo.Exists(context.Background(), "user-2", "rev-1")
	require.NoError(t, err)
	assert.False(t, exists)

	n, err := repo.Count(context.Background(), "rev-1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ─── ModerationLogRepository ────────────────────────────────────────────────

func TestModerationLogRepository_AppendAndList(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewModerationLogRepository(mock)

	entry := &domain.ModerationLogEntry{
		ID: "log-1", ReviewID: "rev-1", ModeratorID: "admin-1",
		Action: domain.ModerationDeleted, Reason: strPtr("spam"), CreatedAt: now,
	}

	mock.ExpectExec("INSERT INTO review_moderation_logs").
		WithArgs("log-1", "rev-1", "admin-1", domain.ModerationDeleted, entry.Reason, entry.Notes, now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery("SELECT .+ FROM review_moderation_logs WHERE review_id = .+ ORDER BY created_at DESC").
		WithArgs("rev-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "review_id", "moderator_id", "action", "reason", "notes", "created_at"}).
			AddRow("log-1", "rev-1", "admin-1", domain.ModerationDeleted, entry.Reason, entry.Notes, now))

	require.NoError(t, repo.Append(context.Background(), entry))

	entries, err := repo.ListByReview(context.Background(), "rev-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.ModerationDeleted, entries[0].Action)
	assert.Equal(t, "spam", *entries[0].Reason)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ─── Catalog collaborators ──────────────────────────────────────────────────

func TestProductRepository_UpdateRatingAggregate(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewProductRepository(mock)

	agg := domain.NewRatingAggregate(map[int]int{3: 1, 5: 1})
	mock.ExpectExec("UPDATE products SET review_count").
		WithArgs("prod-1", 2, 4.0, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.UpdateRatingAggregate(context.Background(), "prod-1", agg))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_UpdateRatingAggregate_MissingProduct(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewProductRepository(mock)

	mock.ExpectExec("UPDATE products").
		WithArgs("gone", 0, 0.0, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.UpdateRatingAggregate(context.Background(), "gone", domain.NewRatingAggregate(nil))
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_LockForUpdate(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewProductRepository(mock)

	mock.ExpectQuery(`SELECT id FROM products WHERE id = \$1 FOR UPDATE`).
		WithArgs("prod-1").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("prod-1"))
	mock.ExpectQuery(`SELECT id FROM products WHERE id = \$1 FOR UPDATE`).
		WithArgs("gone").
		WillReturnError(pgx.ErrNoRows)

	require.NoError(t, repo.LockForUpdate(context.Background(), "prod-1"))
	assert.ErrorIs(t, repo.LockForUpdate(context.Background(), "gone"), apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetProfile(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewUserRepository(mock)

	mock.ExpectQuery("SELECT id, email, first_name, last_name FROM users WHERE id").
		WithArgs("user-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "email", "first_name", "last_name"}).
			AddRow("user-1", "jane@example.com", "Jane", "Doe"))
	mock.ExpectQuery("FROM users WHERE id").
		WithArgs("ghost").
		WillReturnError(pgx.ErrNoRows)

	p, err := repo.GetProfile(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", p.DisplayName())

	_, err = repo.GetProfile(context.Background(), "ghost")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_FindCompletedPurchase_User(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewOrderRepository(mock)

	mock.ExpectQuery("SELECT o.id FROM orders o JOIN order_items oi ON .+ WHERE o.status = .+ AND oi.product_id = .+ AND o.user_id = .+ AND o.id = ").
		WithArgs("delivered", "prod-1", "user-1", "order-9").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("order-9"))

	orderID, found, err := repo.FindCompletedPurchase(context.Background(), repository.PurchaseQuery{
		UserID: "user-1", ProductID: "prod-1", OrderID: strPtr("order-9"),
	})
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "order-9", orderID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_FindCompletedPurchase_GuestNoMatch(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewOrderRepository(mock)

	mock.ExpectQuery("JOIN users u ON .+ lower.u.email. = ").
		WithArgs("delivered", "prod-1", "guest@example.com").
		WillReturnError(pgx.ErrNoRows)

	_, found, err := repo.FindCompletedPurchase(context.Background(), repository.PurchaseQuery{
		Email: "Guest@Example.com", ProductID: "prod-1",
	})
	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ─── Tracing ────────────────────────────────────────────────────────────────

func TestRepositories_TraceEveryStatement(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(prev)
	})

	mock := newMock(t)
	defer mock.Close()
	store := NewStore(mock)
	ctx := context.Background()

	mock.ExpectExec("DELETE FROM reviews").WithArgs("rev-1").WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectQuery("SELECT EXISTS .+ FROM reviews WHERE user_id").
		WithArgs("user-1", "prod-1").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectExec("UPDATE reviews SET helpful_count").WithArgs("rev-1", 1).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectQuery("SELECT count.+ FROM review_reports").
		WithArgs("rev-1").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery("SELECT EXISTS .+ FROM products").
		WithArgs("prod-1").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery("FROM users WHERE id").
		WithArgs("user-1").
		WillReturnError(pgx.ErrNoRows)

	require.NoError(t, store.Reviews().Delete(ctx, "rev-1"))
	_, err := store.Reviews().ExistsForUser(ctx, "user-1", "prod-1")
	require.NoError(t, err)
	require.NoError(t, store.Reviews().SetHelpfulCount(ctx, "rev-1", 1))
	_, err = store.Reports().Count(ctx, "rev-1")
	require.NoError(t, err)
	_, err = store.Products().Exists(ctx, "prod-1")
	require.NoError(t, err)
	_, err = store.Users().GetProfile(ctx, "user-1")
	require.ErrorIs(t, err, apperrors.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())

	var names []string
	for _, span := range exporter.GetSpans() {
		names = append(names, span.Name)
	}
	assert.Equal(t, []string{
		"db.DeleteReview",
		"db.ExistsUserReview",
		"db.SetReviewCounter",
		"db.CountReports",
		"db.ExistsProduct",
		"db.GetUserProfile",
	}, names)
}
