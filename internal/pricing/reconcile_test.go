package pricing

import (
	"reflect"
	"testing"

	"github.com/shopfront-labs/shopfront/internal/domain"
)

func TestDiffLineItems(t *testing.T) {
	t.Run("identical inputs produce no operations", func(t *testing.T) {
		items := []domain.LineItem{
			{ProductID: "A", Size: "M", Quantity: 2, Price: 1000},
			{ProductID: "B", Quantity: 1, Price: 500},
		}

		if ops := DiffLineItems(items, items); len(ops) != 0 {
			t.Fatalf("expected no operations, got %v", ops)
		}
	})

	t.Run("zero quantity removes and new key adds", func(t *testing.T) {
		original := []domain.LineItem{
			{ProductID: "A", Size: "M", Quantity: 2, Price: 1000},
		}
		draft := []domain.LineItem{
			{ProductID: "A", Size: "M", Quantity: 0, Price: 1000},
			{ProductID: "B", Quantity: 1, Price: 500},
		}

		ops := DiffLineItems(original, draft)

		want := []Operation{
			{Op: OpRemove, ProductID: "A", Size: "M"},
			{Op: OpAdd, ProductID: "B", Quantity: 1, Price: 500},
		}
		if !reflect.DeepEqual(ops, want) {
			t.Fatalf("expected %v, got %v", want, ops)
		}
	})

	t.Run("update only when a field changed", func(t *testing.T) {
		original := []domain.LineItem{
			{ProductID: "A", Size: "M", Quantity: 2, Price: 1000},
			{ProductID: "A", Size: "L", Quantity: 1, Price: 1000},
		}
		draft := []domain.LineItem{
			{ProductID: "A", Size: "M", Quantity: 3, Price: 1000},
			{ProductID: "A", Size: "L", Quantity: 1, Price: 1000},
		}

		ops := DiffLineItems(original, draft)

		want := []Operation{
			{Op: OpUpdate, ProductID: "A", Size: "M", Quantity: 3, Price: 1000},
		}
		if !reflect.DeepEqual(ops, want) {
			t.Fatalf("expected %v, got %v", want, ops)
		}
	})

	t.Run("variant change is a remove plus add", func(t *testing.T) {
		original := []domain.LineItem{
			{ProductID: "A", Size: "M", Quantity: 2, Price: 1000},
		}
		draft := []domain.LineItem{
			{ProductID: "A", Size: "L", Quantity: 2, Price: 1000},
		}

		ops := DiffLineItems(original, draft)

		want := []Operation{
			{Op: OpRemove, ProductID: "A", Size: "M"},
			{Op: OpAdd, ProductID: "A", Size: "L", Quantity: 2, Price: 1000},
		}
		if !reflect.DeepEqual(ops, want) {
			t.Fatalf("expected %v, got %v", want, ops)
		}
	})

	t.Run("draft items without product id are treated as absent", func(t *testing.T) {
		original := []domain.LineItem{
			{ProductID: "A", Quantity: 1, Price: 100},
		}
		draft := []domain.LineItem{
			{ProductID: "A", Quantity: 1, Price: 100},
			{ProductID: "", Quantity: 5, Price: 100},
		}

		if ops := DiffLineItems(original, draft); len(ops) != 0 {
			t.Fatalf("expected no operations, got %v", ops)
		}
	})

	t.Run("removes come before adds and updates", func(t *testing.T) {
		original := []domain.LineItem{
			{ProductID: "A", Quantity: 1, Price: 100},
			{ProductID: "B", Quantity: 1, Price: 100},
		}
		draft := []domain.LineItem{
			{ProductID: "B", Quantity: 2, Price: 100},
			{ProductID: "C", Quantity: 1, Price: 100},
		}

		ops := DiffLineItems(original, draft)

		if len(ops) != 3 {
			t.Fatalf("expected 3 operations, got %d", len(ops))
		}
		if ops[0].Op != OpRemove {
			t.Errorf("expected first operation to be a remove, got %s", ops[0].Op)
		}
	})
}

// applyOperations replays a plan against an item list the way the order
// repository does, for round-trip verification.
func applyOperations(items []domain.LineItem, ops []Operation) []domain.LineItem {
	byKey := make(map[domain.LineKey]domain.LineItem, len(items))
	var order []domain.LineKey
	for _, item := range items {
		key := item.Key()
		byKey[key] = item
		order = append(order, key)
	}

	for _, op := range ops {
		key := domain.LineKey{ProductID: op.ProductID, Size: op.Size, Color: op.Color}
		switch op.Op {
		case OpRemove:
			delete(byKey, key)
		case OpAdd:
			byKey[key] = domain.LineItem{
				ProductID: op.ProductID, Size: op.Size, Color: op.Color,
				Name: op.Name, Quantity: op.Quantity, Price: op.Price, Image: op.Image,
			}
			order = append(order, key)
		case OpUpdate:
			byKey[key] = domain.LineItem{
				ProductID: op.ProductID, Size: op.Size, Color: op.Color,
				Name: op.Name, Quantity: op.Quantity, Price: op.Price, Image: op.Image,
			}
		}
	}

	var result []domain.LineItem
	seen := make(map[domain.LineKey]bool)
	for _, key := range order {
		if seen[key] {
			continue
		}
		seen[key] = true
		if item, ok := byKey[key]; ok {
			result = append(result, item)
		}
	}
	return result
}

func TestDiffLineItemsRoundTrip(t *testing.T) {
	original := []domain.LineItem{
		{ProductID: "A", Size: "M", Quantity: 2, Price: 1000, Name: "Tee"},
		{ProductID: "A", Size: "L", Quantity: 1, Price: 1000, Name: "Tee"},
		{ProductID: "B", Color: "red|#f00", Quantity: 4, Price: 250, Name: "Mug"},
		{ProductID: "C", Quantity: 1, Price: 9900, Name: "Bag"},
	}
	draft := []domain.LineItem{
		{ProductID: "A", Size: "M", Quantity: 5, Price: 900, Name: "Tee"},
		{ProductID: "B", Color: "red|#f00", Quantity: 0, Price: 250, Name: "Mug"},
		{ProductID: "C", Quantity: 1, Price: 9900, Name: "Bag"},
		{ProductID: "D", Size: "S", Quantity: 2, Price: 1500, Name: "Cap"},
	}

	ops := DiffLineItems(original, draft)
	got := applyOperations(original, ops)

	wantByKey := make(map[domain.LineKey]domain.LineItem)
	for _, item := range draft {
		if item.Quantity > 0 {
			wantByKey[item.Key()] = item
		}
	}

	if len(got) != len(wantByKey) {
		t.Fatalf("expected %d items after apply, got %d", len(wantByKey), len(got))
	}
	for _, item := range got {
		want, ok := wantByKey[item.Key()]
		if !ok {
			t.Fatalf("unexpected item after apply: %+v", item)
		}
		if item != want {
			t.Fatalf("item mismatch for %+v: expected %+v, got %+v", item.Key(), want, item)
		}
	}

	// Diffing the same pair again yields the identical plan.
	if again := DiffLineItems(original, draft); !reflect.DeepEqual(ops, again) {
		t.Fatalf("expected identical plan on repeat diff, got %v then %v", ops, again)
	}
}
