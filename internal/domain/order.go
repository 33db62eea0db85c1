package domain

import "time"

type OrderStatus string

const (
	OrderStatusPending         OrderStatus = "pending"
	OrderStatusAwaitingPayment OrderStatus = "awaiting_payment"
	OrderStatusPaid            OrderStatus = "paid"
	OrderStatusShipped         OrderStatus = "shipped"
	OrderStatusCancelled       OrderStatus = "cancelled"
)

// LineKey identifies a line within a cart or order. Two lines with the same
// product but a different size or color are distinct lines.
type LineKey struct {
	ProductID string
	Size      string
	Color     string
}

type LineItem struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name,omitempty"`
	Size      string `json:"size,omitempty"`
	Color     string `json:"color,omitempty"`
	Quantity  int    `json:"quantity"`
	Price     int64  `json:"price"`
	Image     string `json:"image,omitempty"`
}

func (li LineItem) Key() LineKey {
	return LineKey{ProductID: li.ProductID, Size: li.Size, Color: li.Color}
}

type Order struct {
	ID              string      `json:"id"`
	CustomerName    string      `json:"customer_name"`
	CustomerEmail   string      `json:"customer_email"`
	CustomerPhone   string      `json:"customer_phone,omitempty"`
	ShippingAddress string      `json:"shipping_address"`
	Items           []LineItem  `json:"items"`
	Subtotal        int64       `json:"subtotal"`
	Discount        int64       `json:"discount"`
	DeliveryFee     int64       `json:"delivery_fee"`
	Total           int64       `json:"total"`
	CouponCode      string      `json:"coupon_code,omitempty"`
	Status          OrderStatus `json:"status"`
	PaymentNote     string      `json:"payment_note,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

type Cart struct {
	ID        string     `json:"id"`
	Items     []LineItem `json:"items"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
