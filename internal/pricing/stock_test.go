package pricing

import (
	"testing"

	"github.com/shopfront-labs/shopfront/internal/domain"
)

func TestCheckStock(t *testing.T) {
	tests := []struct {
		name          string
		stockQty      int
		total         int
		increment     int
		wantAllowed   bool
		wantRemaining int
		wantMessage   string
	}{
		{
			name:        "untracked stock always allows",
			stockQty:    0,
			total:       9999,
			increment:   9999,
			wantAllowed: true,
		},
		{
			name:        "negative stock treated as untracked",
			stockQty:    -1,
			total:       5,
			increment:   5,
			wantAllowed: true,
		},
		{
			name:          "first add within stock",
			stockQty:      10,
			total:         3,
			increment:     3,
			wantAllowed:   true,
			wantRemaining: 10,
			wantMessage:   "Only 10 in stock",
		},
		{
			name:          "total exactly at ceiling",
			stockQty:      10,
			total:         10,
			increment:     2,
			wantAllowed:   true,
			wantRemaining: 2,
			wantMessage:   "Only 2 more in stock",
		},
		{
			name:          "total exceeds ceiling",
			stockQty:      10,
			total:         11,
			increment:     3,
			wantAllowed:   false,
			wantRemaining: 2,
			wantMessage:   "Only 2 more in stock",
		},
		{
			name:          "nothing left before increment",
			stockQty:      5,
			total:         6,
			increment:     1,
			wantAllowed:   false,
			wantRemaining: 0,
			wantMessage:   "Only 5 in stock",
		},
		{
			name:          "first add exceeding stock",
			stockQty:      2,
			total:         3,
			increment:     3,
			wantAllowed:   false,
			wantRemaining: 2,
			wantMessage:   "Only 2 in stock",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CheckStock(tt.stockQty, tt.total, tt.increment)

			if got.Allowed != tt.wantAllowed {
				t.Errorf("expected allowed=%v, got %v", tt.wantAllowed, got.Allowed)
			}
			if got.Remaining != tt.wantRemaining {
				t.Errorf("expected remaining=%d, got %d", tt.wantRemaining, got.Remaining)
			}
			if got.Message != tt.wantMessage {
				t.Errorf("expected message %q, got %q", tt.wantMessage, got.Message)
			}
		})
	}
}

func TestCheckStockCeilingInvariant(t *testing.T) {
	// For any tracked stock S, totals up to S are allowed and totals above
	// S are not, regardless of how the increment splits.
	const stock = 7
	for total := 0; total <= 2*stock; total++ {
		for increment := 0; increment <= total; increment++ {
			got := CheckStock(stock, total, increment)
			want := total <= stock
			if got.Allowed != want {
				t.Fatalf("stock=%d total=%d increment=%d: expected allowed=%v, got %v",
					stock, total, increment, want, got.Allowed)
			}
		}
	}
}

func TestTotalForProduct(t *testing.T) {
	lines := []domain.LineItem{
		{ProductID: "A", Size: "M", Quantity: 2},
		{ProductID: "A", Size: "L", Quantity: 3},
		{ProductID: "A", Size: "M", Color: "red|#f00", Quantity: 1},
		{ProductID: "B", Quantity: 10},
	}

	t.Run("aggregates all variant lines of the product", func(t *testing.T) {
		if got := TotalForProduct(lines, "A", nil); got != 6 {
			t.Errorf("expected 6, got %d", got)
		}
	})

	t.Run("excludes the line being edited", func(t *testing.T) {
		exclude := domain.LineKey{ProductID: "A", Size: "M"}
		if got := TotalForProduct(lines, "A", &exclude); got != 4 {
			t.Errorf("expected 4, got %d", got)
		}
	})

	t.Run("unknown product sums to zero", func(t *testing.T) {
		if got := TotalForProduct(lines, "C", nil); got != 0 {
			t.Errorf("expected 0, got %d", got)
		}
	})
}
