package products

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

const (
	DefaultListLimit = 12
	MaxListLimit     = 100
	DefaultSort      = "-createdAt"
)

// ListFilters describe the supported filter knobs for the catalog endpoint.
type ListFilters struct {
	Search   string
	Category *enums.ProductCategory
	Size     *enums.ProductSize
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	InStock  *bool
}

// ListProductsInput captures paging, sorting and filtering for List.
type ListProductsInput struct {
	Filters ListFilters
	Page    int
	Limit   int
	Sort    string
}

// sortColumns maps the public sort keys onto columns.
var sortColumns = map[string]string{
	"price":     "price_cents",
	"name":      "name",
	"createdAt": "created_at",
}

type sortField struct {
	column string
	desc   bool
}

// parseSort accepts a comma separated list like "-price,name".
func parseSort(raw string) ([]sortField, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = DefaultSort
	}

	var fields []sortField
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		desc := strings.HasPrefix(part, "-")
		column, ok := sortColumns[strings.TrimPrefix(part, "-")]
		if !ok {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid sort field %q", part)
		}
		fields = append(fields, sortField{column: column, desc: desc})
	}
	return fields, nil
}

func (f sortField) clause() string {
	if f.desc {
		return f.column + " DESC"
	}
	return f.column + " ASC"
}

func (f ListFilters) validate() error {
	if f.MinPrice != nil && f.MinPrice.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "minPrice must be zero or greater")
	}
	if f.MaxPrice != nil && f.MaxPrice.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "maxPrice must be zero or greater")
	}
	if f.MinPrice != nil && f.MaxPrice != nil && f.MinPrice.GreaterThan(*f.MaxPrice) {
		return pkgerrors.New(pkgerrors.CodeValidation, "minPrice cannot be greater than maxPrice")
	}
	if len(f.Search) > 100 {
		return pkgerrors.New(pkgerrors.CodeValidation, "search cannot exceed 100 characters")
	}
	return nil
}
