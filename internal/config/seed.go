package config

import (
	"encoding/json"
	"fmt"
	"github.com/ariefcatur/go-cart-checkout/internal/orders"
	"os"
)

// LoadCatalog reads the CATALOG_SEED file: a JSON array of products with
// explicit ids. An empty path means no seed.
func LoadCatalog(path string) ([]orders.Product, error) {
	if path == "" {
		return nil, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog seed: %w", err)
	}
	var products []orders.Product
	if err := json.Unmarshal(b, &products); err != nil {
		return nil, fmt.Errorf("decode catalog seed %s: %w", path, err)
	}
	seen := make(map[int64]bool, len(products))
	for i, p := range products {
		switch {
		case p.ID <= 0:
			return nil, fmt.Errorf("catalog seed entry %d: id must be positive", i)
		case seen[p.ID]:
			return nil, fmt.Errorf("catalog seed entry %d: duplicate id %d", i, p.ID)
		case p.Name == "":
			return nil, fmt.Errorf("catalog seed entry %d: name is required", i)
		case p.Price.IsNegative() || p.Stock < 0:
			return nil, fmt.Errorf("catalog seed entry %d: price and stock must not be negative", i)
		}
		seen[p.ID] = true
	}
	return products, nil
}
