package pricing

import "github.com/shopfront-labs/shopfront/internal/domain"

type OpKind string

const (
	OpAdd    OpKind = "add"
	OpUpdate OpKind = "update"
	OpRemove OpKind = "remove"
)

// Operation is one step of the plan that transforms a persisted item list
// into an edited draft. Remove operations carry only the identity key.
type Operation struct {
	Op        OpKind `json:"op"`
	ProductID string `json:"product_id"`
	Size      string `json:"size,omitempty"`
	Color     string `json:"color,omitempty"`
	Name      string `json:"name,omitempty"`
	Quantity  int    `json:"quantity,omitempty"`
	Price     int64  `json:"price,omitempty"`
	Image     string `json:"image,omitempty"`
}

// DiffLineItems computes the minimal add/update/remove plan that turns
// original into draft, keyed by (product, size, color). Draft lines with a
// quantity of zero or less count as removed, and draft lines without a
// product ID are ignored. Removes are emitted first so applying the plan
// sequentially never passes through a duplicate-key state. Neither input
// is mutated.
func DiffLineItems(original, draft []domain.LineItem) []Operation {
	draftByKey := make(map[domain.LineKey]domain.LineItem, len(draft))
	for _, item := range draft {
		if item.ProductID == "" {
			continue
		}
		draftByKey[item.Key()] = item
	}

	originalByKey := make(map[domain.LineKey]domain.LineItem, len(original))
	for _, item := range original {
		originalByKey[item.Key()] = item
	}

	var removes, changes []Operation
	seen := make(map[domain.LineKey]bool, len(original))
	for _, orig := range original {
		key := orig.Key()
		if seen[key] {
			continue
		}
		seen[key] = true

		edited, ok := draftByKey[key]
		if !ok || edited.Quantity <= 0 {
			removes = append(removes, Operation{
				Op:        OpRemove,
				ProductID: orig.ProductID,
				Size:      orig.Size,
				Color:     orig.Color,
			})
			continue
		}
		if edited != orig {
			changes = append(changes, operationFrom(OpUpdate, edited))
		}
	}

	added := make(map[domain.LineKey]bool)
	for _, item := range draft {
		if item.ProductID == "" || item.Quantity <= 0 {
			continue
		}
		key := item.Key()
		if _, ok := originalByKey[key]; ok || added[key] {
			continue
		}
		added[key] = true
		changes = append(changes, operationFrom(OpAdd, item))
	}

	return append(removes, changes...)
}

func operationFrom(op OpKind, item domain.LineItem) Operation {
	return Operation{
		Op:        op,
		ProductID: item.ProductID,
		Size:      item.Size,
		Color:     item.Color,
		Name:      item.Name,
		Quantity:  item.Quantity,
		Price:     item.Price,
		Image:     item.Image,
	}
}
