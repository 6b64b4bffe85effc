package domain

// OrderStatusDelivered is the order status that counts as a completed
// purchase.
const OrderStatusDelivered = "delivered"

// Verification is the outcome of a purchase check. A negative result is not
// an error.
type Verification struct {
	IsVerified bool
	OrderID    *string
}
