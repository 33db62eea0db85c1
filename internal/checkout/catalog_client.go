package checkout

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/shopfront-labs/shopfront/internal/domain"
)

// CatalogClient looks products up in the catalog service. Checkout never
// reads the catalog schema directly.
type CatalogClient struct {
	baseURL string
	client  *http.Client
}

func NewCatalogClient(baseURL string, client *http.Client) *CatalogClient {
	return &CatalogClient{
		baseURL: baseURL,
		client:  client,
	}
}

// GetProduct returns nil without error when the product does not exist.
func (c *CatalogClient) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/products/"+id, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get product %s: %w", id, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog service returned status %d for product %s", resp.StatusCode, id)
	}

	product := &domain.Product{}
	if err := json.NewDecoder(resp.Body).Decode(product); err != nil {
		return nil, fmt.Errorf("decode product %s: %w", id, err)
	}

	return product, nil
}
