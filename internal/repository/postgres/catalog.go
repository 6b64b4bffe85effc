package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/utafrali/review-service/internal/domain"
	"github.com/utafrali/review-service/internal/repository"
	"github.com/utafrali/review-service/pkg/database"
	apperrors "github.com/utafrali/review-service/pkg/errors"
)

// ProductRepository reads product existence and writes the rating aggregate
// columns owned by this service.
type ProductRepository struct {
	db database.DBTX
}

func NewProductRepository(db database.DBTX) *ProductRepository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) Exists(ctx context.Context, productID string) (_ bool, err error) {
	query := `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`

	ctx, end := database.TraceQuery(ctx, "ExistsProduct", query)
	defer func() { end(err) }()

	var exists bool
	if err = r.db.QueryRow(ctx, query, productID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check product: %w", err)
	}
	return exists, nil
}

// LockForUpdate locks the product row until the surrounding transaction
// ends, serializing rating recomputes of the same product.
func (r *ProductRepository) LockForUpdate(ctx context.Context, productID string) (err error) {
	query := `SELECT id FROM products WHERE id = $1 FOR UPDATE`

	ctx, end := database.TraceQuery(ctx, "LockProduct", query)
	defer func() { end(err) }()

	var id string
	if err = r.db.QueryRow(ctx, query, productID).Scan(&id); err != nil {
		if database.IsNoRows(err) {
			return apperrors.NotFound("product", productID)
		}
		return fmt.Errorf("lock product: %w", err)
	}
	return nil
}

// UpdateRatingAggregate overwrites all aggregate columns at once. The
// distribution is stored as a JSON object keyed by star.
func (r *ProductRepository) UpdateRatingAggregate(ctx context.Context, productID string, agg domain.RatingAggregate) (err error) {
	query := `
		UPDATE products
		SET review_count = $2, average_rating = $3, rating_distribution = $4, updated_at = $5
		WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "UpdateRatingAggregate", query)
	defer func() { end(err) }()

	dist := make(map[string]int, len(agg.Distribution))
	for star, pct := range agg.Distribution {
		dist[strconv.Itoa(star)] = pct
	}
	distJSON, err := json.Marshal(dist)
	if err != nil {
		return fmt.Errorf("marshal rating distribution: %w", err)
	}

	tag, err := r.db.Exec(ctx, query, productID, agg.ReviewCount, agg.AverageRating, distJSON, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update rating aggregate: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("product", productID)
	}
	return nil
}

// UserRepository reads author profiles from the shared users table.
type UserRepository struct {
	db database.DBTX
}

func NewUserRepository(db database.DBTX) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetProfile(ctx context.Context, userID string) (_ *domain.UserProfile, err error) {
	query := `SELECT id, email, first_name, last_name FROM users WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "GetUserProfile", query)
	defer func() { end(err) }()

	var p domain.UserProfile
	if err = r.db.QueryRow(ctx, query, userID).Scan(&p.ID, &p.Email, &p.FirstName, &p.LastName); err != nil {
		if database.IsNoRows(err) {
			return nil, apperrors.NotFound("user", userID)
		}
		return nil, fmt.Errorf("get user profile: %w", err)
	}
	return &p, nil
}

// OrderRepository looks up delivered orders for purchase verification.
type OrderRepository struct {
	db database.DBTX
}

func NewOrderRepository(db database.DBTX) *OrderRepository {
	return &OrderRepository{db: db}
}

// FindCompletedPurchase returns the most recent delivered order of the
// identity in q that contains q.ProductID.
func (r *OrderRepository) FindCompletedPurchase(ctx context.Context, q repository.PurchaseQuery) (_ string, _ bool, err error) {
	builder := psql.
		Select("o.id").
		From("orders o").
		Join("order_items oi ON oi.order_id = o.id").
		Where(sq.Eq{"o.status": domain.OrderStatusDelivered}).
		Where(sq.Eq{"oi.product_id": q.ProductID}).
		OrderBy("o.created_at DESC").
		Limit(1)

	if q.UserID != "" {
		builder = builder.Where(sq.Eq{"o.user_id": q.UserID})
	} else {
		builder = builder.
			Join("users u ON u.id = o.user_id").
			Where(sq.Eq{"lower(u.email)": domain.NormalizeEmail(q.Email)})
	}
	if q.OrderID != nil {
		builder = builder.Where(sq.Eq{"o.id": *q.OrderID})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return "", false, fmt.Errorf("build purchase query: %w", err)
	}

	ctx, end := database.TraceQuery(ctx, "FindCompletedPurchase", query)
	defer func() { end(err) }()

	var orderID string
	if err = r.db.QueryRow(ctx, query, args...).Scan(&orderID); err != nil {
		if database.IsNoRows(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("find completed purchase: %w", err)
	}
	return orderID, true, nil
}
