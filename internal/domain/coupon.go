package domain

import "time"

type DiscountType string

const (
	DiscountTypePercentage DiscountType = "percentage"
	DiscountTypeFixed      DiscountType = "fixed"
)

type Coupon struct {
	ID            string       `json:"id"`
	Code          string       `json:"code"`
	DiscountType  DiscountType `json:"discount_type"`
	DiscountValue int64        `json:"discount_value"`
	// MinOrder and MaxDiscount are minor currency units; 0 means unset.
	MinOrder    int64 `json:"min_order,omitempty"`
	MaxDiscount int64 `json:"max_discount,omitempty"`
	// UsageLimit of 0 means unlimited redemptions.
	UsageLimit int       `json:"usage_limit,omitempty"`
	UsedCount  int       `json:"used_count"`
	IsActive   bool      `json:"is_active"`
	ExpiresAt  time.Time `json:"expires_at,omitzero"`
	CreatedAt  time.Time `json:"created_at"`
}
