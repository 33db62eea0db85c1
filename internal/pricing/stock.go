package pricing

import (
	"fmt"

	"github.com/shopfront-labs/shopfront/internal/domain"
)

// StockCheck is the advisory result of a stock ceiling check. It carries no
// side effects; callers decide whether to reject the mutation and how to
// surface the message.
type StockCheck struct {
	Allowed   bool   `json:"allowed"`
	Remaining int    `json:"remaining"`
	Message   string `json:"message,omitempty"`
}

// CheckStock decides whether a product-wide quantity total fits under the
// product's stock ceiling. requestedTotal is the quantity across every line
// of the product after the proposed change; requestedIncrement is how much
// of that total the change itself adds.
//
// A stock quantity of zero or less means stock is not tracked for the
// product and the check always passes.
func CheckStock(stockQty, requestedTotal, requestedIncrement int) StockCheck {
	if stockQty <= 0 {
		return StockCheck{Allowed: true}
	}

	held := requestedTotal - requestedIncrement
	if held < 0 {
		held = 0
	}

	remaining := stockQty - held
	if remaining < 0 {
		remaining = 0
	}

	var message string
	switch {
	case held == 0 || remaining == 0:
		message = fmt.Sprintf("Only %d in stock", stockQty)
	default:
		message = fmt.Sprintf("Only %d more in stock", remaining)
	}

	return StockCheck{
		Allowed:   requestedTotal <= stockQty,
		Remaining: remaining,
		Message:   message,
	}
}

// TotalForProduct sums quantities across every line of the given product.
// The stock ceiling is per product, so variant lines (different size or
// color) aggregate together. A non-nil exclude skips the line currently
// being edited so its old quantity does not count against the ceiling.
func TotalForProduct(lines []domain.LineItem, productID string, exclude *domain.LineKey) int {
	total := 0
	for _, line := range lines {
		if line.ProductID != productID {
			continue
		}
		if exclude != nil && line.Key() == *exclude {
			continue
		}
		total += line.Quantity
	}
	return total
}
