package domain

import (
	"strings"
	"time"
)

type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
	Image       string    `json:"image,omitempty"`
	Price       int64     `json:"price"`
	SalePrice   int64     `json:"sale_price,omitempty"`
	// StockQuantity is the tracked stock ceiling for the product across all
	// size/color variants. 0 means the stock is not tracked and quantity
	// checks never block.
	StockQuantity int       `json:"stock_quantity"`
	Reserved      int       `json:"reserved"`
	Sizes         []string  `json:"sizes,omitempty"`
	Colors        []string  `json:"colors,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// EffectivePrice returns the sale price when one is set.
func (p *Product) EffectivePrice() int64 {
	if p.SalePrice > 0 && p.SalePrice < p.Price {
		return p.SalePrice
	}
	return p.Price
}

// ParseColor splits a color entry encoded as "label|swatch" into its label
// and swatch. A bare string is returned as the label with an empty swatch.
func ParseColor(c string) (label, swatch string) {
	if i := strings.IndexByte(c, '|'); i >= 0 {
		return c[:i], c[i+1:]
	}
	return c, ""
}

type StockLevel struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Reserved  int    `json:"reserved"`
}
