package pricing

import (
	"testing"
	"time"

	"github.com/shopfront-labs/shopfront/internal/domain"
)

var evalNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func activeCoupon() *domain.Coupon {
	return &domain.Coupon{
		Code:          "SPRING10",
		DiscountType:  domain.DiscountTypePercentage,
		DiscountValue: 10,
		IsActive:      true,
		ExpiresAt:     evalNow.Add(24 * time.Hour),
	}
}

func TestEvaluateCouponRejections(t *testing.T) {
	tests := []struct {
		name        string
		coupon      *domain.Coupon
		orderAmount int64
		wantMessage string
	}{
		{
			name:        "nil coupon",
			coupon:      nil,
			orderAmount: 1000,
			wantMessage: "coupon not found",
		},
		{
			name: "inactive",
			coupon: func() *domain.Coupon {
				c := activeCoupon()
				c.IsActive = false
				return c
			}(),
			orderAmount: 1000,
			wantMessage: "coupon is not active",
		},
		{
			name: "expired",
			coupon: func() *domain.Coupon {
				c := activeCoupon()
				c.ExpiresAt = evalNow.Add(-time.Minute)
				return c
			}(),
			orderAmount: 1000,
			wantMessage: "coupon has expired",
		},
		{
			name: "usage exhausted",
			coupon: func() *domain.Coupon {
				c := activeCoupon()
				c.UsageLimit = 10
				c.UsedCount = 10
				return c
			}(),
			orderAmount: 1000,
			wantMessage: "coupon usage limit reached",
		},
		{
			name: "below minimum order",
			coupon: func() *domain.Coupon {
				c := activeCoupon()
				c.MinOrder = 5000
				return c
			}(),
			orderAmount: 4999,
			wantMessage: "order total is below the coupon minimum",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EvaluateCoupon(tt.coupon, tt.orderAmount, evalNow)

			if got.Valid {
				t.Fatal("expected coupon to be rejected")
			}
			if got.Message != tt.wantMessage {
				t.Errorf("expected message %q, got %q", tt.wantMessage, got.Message)
			}
			if got.Discount != 0 {
				t.Errorf("expected zero discount, got %d", got.Discount)
			}
			if got.NewTotal != tt.orderAmount {
				t.Errorf("expected new total %d, got %d", tt.orderAmount, got.NewTotal)
			}
		})
	}
}

func TestEvaluateCouponDiscounts(t *testing.T) {
	t.Run("percentage clamped to max discount", func(t *testing.T) {
		c := activeCoupon()
		c.MaxDiscount = 500

		got := EvaluateCoupon(c, 10000, evalNow)

		if !got.Valid {
			t.Fatalf("expected valid coupon, got rejection: %s", got.Message)
		}
		if got.Discount != 500 {
			t.Errorf("expected discount 500, got %d", got.Discount)
		}
		if got.NewTotal != 9500 {
			t.Errorf("expected new total 9500, got %d", got.NewTotal)
		}
	})

	t.Run("percentage without max discount", func(t *testing.T) {
		got := EvaluateCoupon(activeCoupon(), 10000, evalNow)

		if got.Discount != 1000 {
			t.Errorf("expected discount 1000, got %d", got.Discount)
		}
		if got.NewTotal != 9000 {
			t.Errorf("expected new total 9000, got %d", got.NewTotal)
		}
	})

	t.Run("fixed clamped to order amount", func(t *testing.T) {
		c := activeCoupon()
		c.DiscountType = domain.DiscountTypeFixed
		c.DiscountValue = 5000

		got := EvaluateCoupon(c, 3000, evalNow)

		if got.Discount != 3000 {
			t.Errorf("expected discount 3000, got %d", got.Discount)
		}
		if got.NewTotal != 0 {
			t.Errorf("expected new total 0, got %d", got.NewTotal)
		}
	})

	t.Run("fixed clamped to max discount", func(t *testing.T) {
		c := activeCoupon()
		c.DiscountType = domain.DiscountTypeFixed
		c.DiscountValue = 2000
		c.MaxDiscount = 1500

		got := EvaluateCoupon(c, 10000, evalNow)

		if got.Discount != 1500 {
			t.Errorf("expected discount 1500, got %d", got.Discount)
		}
	})

	t.Run("no expiry means never expires", func(t *testing.T) {
		c := activeCoupon()
		c.ExpiresAt = time.Time{}

		got := EvaluateCoupon(c, 1000, evalNow.AddDate(10, 0, 0))

		if !got.Valid {
			t.Fatalf("expected valid coupon, got rejection: %s", got.Message)
		}
	})

	t.Run("usage one below the limit is accepted", func(t *testing.T) {
		c := activeCoupon()
		c.UsageLimit = 10
		c.UsedCount = 9

		if got := EvaluateCoupon(c, 1000, evalNow); !got.Valid {
			t.Fatalf("expected valid coupon, got rejection: %s", got.Message)
		}
	})
}

func TestEvaluateCouponMonotonicity(t *testing.T) {
	coupons := []*domain.Coupon{
		activeCoupon(),
		{Code: "BIG", DiscountType: domain.DiscountTypePercentage, DiscountValue: 150, IsActive: true},
		{Code: "FLAT", DiscountType: domain.DiscountTypeFixed, DiscountValue: 700, IsActive: true},
		{Code: "NEG", DiscountType: domain.DiscountTypeFixed, DiscountValue: -50, IsActive: true},
	}
	amounts := []int64{0, 1, 99, 1000, 123456}

	for _, c := range coupons {
		for _, amount := range amounts {
			got := EvaluateCoupon(c, amount, evalNow)

			if got.Discount < 0 {
				t.Fatalf("%s/%d: negative discount %d", c.Code, amount, got.Discount)
			}
			if got.Discount > amount {
				t.Fatalf("%s/%d: discount %d exceeds order amount", c.Code, amount, got.Discount)
			}
			if got.NewTotal != amount-got.Discount {
				t.Fatalf("%s/%d: new total %d does not equal amount minus discount", c.Code, amount, got.NewTotal)
			}
		}
	}
}
