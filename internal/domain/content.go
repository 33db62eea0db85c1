package domain

import "time"

// CompanyInfo is the storefront's public contact card plus the bank account
// shown in bank-transfer payment instructions.
type CompanyInfo struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Address     string `json:"address"`
	About       string `json:"about,omitempty"`
	BankName    string `json:"bank_name,omitempty"`
	BankAccount string `json:"bank_account,omitempty"`
	BankHolder  string `json:"bank_holder,omitempty"`
}

type PromoModal struct {
	Enabled  bool   `json:"enabled"`
	Title    string `json:"title"`
	Body     string `json:"body"`
	Image    string `json:"image,omitempty"`
	LinkURL  string `json:"link_url,omitempty"`
	LinkText string `json:"link_text,omitempty"`
}

type DeliverySettings struct {
	FlatFee int64 `json:"flat_fee"`
	// FreeOver disables the fee for subtotals at or above the threshold;
	// 0 means the fee always applies.
	FreeOver int64 `json:"free_over,omitempty"`
}

type Founder struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	Bio       string    `json:"bio,omitempty"`
	Image     string    `json:"image,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type AnalyticsSummary struct {
	Days          int            `json:"days"`
	OrderCount    int            `json:"order_count"`
	Revenue       int64          `json:"revenue"`
	AverageOrder  int64          `json:"average_order"`
	StatusCounts  map[string]int `json:"status_counts"`
	TopProducts   []ProductSales `json:"top_products"`
	CouponedCount int            `json:"couponed_count"`
}

type ProductSales struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	Revenue   int64  `json:"revenue"`
}
