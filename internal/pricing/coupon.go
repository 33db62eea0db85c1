package pricing

import (
	"time"

	"github.com/shopfront-labs/shopfront/internal/domain"
)

// CouponResult is the outcome of evaluating a coupon against an order
// amount. Business-rule rejections come back as Valid=false with a
// human-readable message, never as an error, so the result is safe to
// render inline.
type CouponResult struct {
	Valid    bool   `json:"valid"`
	Code     string `json:"code,omitempty"`
	Message  string `json:"message,omitempty"`
	Discount int64  `json:"discount"`
	NewTotal int64  `json:"new_total"`
}

// EvaluateCoupon validates a coupon and computes the discounted total.
// It never mutates the coupon; incrementing the usage count is a
// transactional concern owned by order persistence, which keeps this
// function safe to call for live previews.
func EvaluateCoupon(c *domain.Coupon, orderAmount int64, now time.Time) CouponResult {
	if c == nil {
		return rejected("", orderAmount, "coupon not found")
	}
	if !c.IsActive {
		return rejected(c.Code, orderAmount, "coupon is not active")
	}
	if !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt) {
		return rejected(c.Code, orderAmount, "coupon has expired")
	}
	if c.UsageLimit > 0 && c.UsedCount >= c.UsageLimit {
		return rejected(c.Code, orderAmount, "coupon usage limit reached")
	}
	if c.MinOrder > 0 && orderAmount < c.MinOrder {
		return rejected(c.Code, orderAmount, "order total is below the coupon minimum")
	}

	var discount int64
	switch c.DiscountType {
	case domain.DiscountTypePercentage:
		discount = orderAmount * c.DiscountValue / 100
	case domain.DiscountTypeFixed:
		discount = c.DiscountValue
	default:
		return rejected(c.Code, orderAmount, "unknown discount type")
	}

	if discount < 0 {
		discount = 0
	}
	if c.MaxDiscount > 0 && discount > c.MaxDiscount {
		discount = c.MaxDiscount
	}
	// Never discount more than the order is worth.
	if discount > orderAmount {
		discount = orderAmount
	}

	return CouponResult{
		Valid:    true,
		Code:     c.Code,
		Discount: discount,
		NewTotal: orderAmount - discount,
	}
}

func rejected(code string, orderAmount int64, message string) CouponResult {
	return CouponResult{
		Code:     code,
		Message:  message,
		NewTotal: orderAmount,
	}
}
