package products

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// SeedItem is one catalog entry in a seed file.
type SeedItem struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    string          `json:"imageUrl"`
	Category    string          `json:"category"`
	Sizes       []string        `json:"sizes"`
	Stock       int             `json:"stock"`
}

// ParseSeedCatalog decodes a JSON array of SeedItem and validates every entry.
// All invalid entries are reported together.
func ParseSeedCatalog(data []byte) ([]models.Product, error) {
	var items []SeedItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode seed catalog: %w", err)
	}

	var (
		out  = make([]models.Product, 0, len(items))
		errs error
	)
	for i, item := range items {
		product, err := item.toModel()
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("item %d (%q): %w", i, item.Name, err))
			continue
		}
		out = append(out, product)
	}
	if errs != nil {
		return nil, errs
	}
	return out, nil
}

func (s SeedItem) toModel() (models.Product, error) {
	name := strings.TrimSpace(s.Name)
	if name == "" {
		return models.Product{}, fmt.Errorf("name required")
	}
	if !s.Price.IsPositive() {
		return models.Product{}, fmt.Errorf("price must be positive")
	}
	if s.Stock < 0 {
		return models.Product{}, fmt.Errorf("stock cannot be negative")
	}
	category, err := enums.ParseProductCategory(s.Category)
	if err != nil {
		return models.Product{}, err
	}
	if len(s.Sizes) == 0 {
		return models.Product{}, fmt.Errorf("at least one size required")
	}
	sizes := make(pq.StringArray, 0, len(s.Sizes))
	for _, raw := range s.Sizes {
		size, err := enums.ParseProductSize(raw)
		if err != nil {
			return models.Product{}, err
		}
		sizes = append(sizes, size.String())
	}
	return models.Product{
		Name:        name,
		Description: strings.TrimSpace(s.Description),
		PriceCents:  types.DecimalToCents(s.Price),
		ImageURL:    strings.TrimSpace(s.ImageURL),
		Category:    category,
		Sizes:       sizes,
		Stock:       s.Stock,
		InStock:     s.Stock > 0,
	}, nil
}

// Seed inserts catalog through repo. An existing catalog is left untouched
// unless reset is set, in which case it is replaced. It returns the number of
// rows inserted.
func Seed(ctx context.Context, repo *Repository, catalog []models.Product, reset bool) (int, error) {
	existing, err := repo.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	if existing > 0 && !reset {
		return 0, nil
	}
	if reset {
		if err := repo.DeleteAll(ctx); err != nil {
			return 0, fmt.Errorf("clear products: %w", err)
		}
	}
	for i := range catalog {
		product := catalog[i]
		if err := repo.Create(ctx, &product); err != nil {
			return i, fmt.Errorf("insert %q: %w", product.Name, err)
		}
	}
	return len(catalog), nil
}
