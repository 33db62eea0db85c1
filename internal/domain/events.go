package domain

import "time"

type OrderPlacedEvent struct {
	OrderID       string     `json:"order_id"`
	CustomerEmail string     `json:"customer_email"`
	Items         []LineItem `json:"items"`
	CouponCode    string     `json:"coupon_code,omitempty"`
	Total         int64      `json:"total"`
	Timestamp     time.Time  `json:"timestamp"`
}
