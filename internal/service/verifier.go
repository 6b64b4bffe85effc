package service

import (
	"context"
	"fmt"

	"github.com/utafrali/review-service/internal/domain"
	"github.com/utafrali/review-service/internal/repository"
)

// PurchaseVerifier decides whether an identity bought a product.
type PurchaseVerifier struct {
	orders repository.OrderRepository
}

// NewPurchaseVerifier creates a verifier over the order store.
func NewPurchaseVerifier(orders repository.OrderRepository) *PurchaseVerifier {
	return &PurchaseVerifier{orders: orders}
}

// Verify looks for a delivered order of identity containing productID,
// restricted to orderID when it is set. Finding nothing is a negative
// Verification, not an error.
func (v *PurchaseVerifier) Verify(ctx context.Context, identity domain.Identity, productID string, orderID *string) (domain.Verification, error) {
	q := repository.PurchaseQuery{ProductID: productID, OrderID: orderID}

	switch id := identity.(type) {
	case domain.Authenticated:
		q.UserID = id.UserID
	case domain.Guest:
		q.Email = domain.NormalizeEmail(id.Email)
	default:
		return domain.Verification{}, fmt.Errorf("verify purchase: unsupported identity %T", identity)
	}
	if q.UserID == "" && q.Email == "" {
		return domain.Verification{}, nil
	}

	found, ok, err := v.orders.FindCompletedPurchase(ctx, q)
	if err != nil {
		return domain.Verification{}, fmt.Errorf("verify purchase: %w", err)
	}
	if !ok {
		return domain.Verification{}, nil
	}
	return domain.Verification{IsVerified: true, OrderID: &found}, nil
}
