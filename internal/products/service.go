package products

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// Service exposes the read side of the catalog.
type Service interface {
	List(ctx context.Context, input ListProductsInput) (*ProductListResult, error)
	Get(ctx context.Context, rawID string) (*ProductDTO, error)
}

type service struct {
	repo *Repository
}

// NewService constructs a catalog service instance.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context, input ListProductsInput) (*ProductListResult, error) {
	if err := input.Filters.validate(); err != nil {
		return nil, err
	}
	order, err := parseSort(input.Sort)
	if err != nil {
		return nil, err
	}

	page := pagination.Normalize(input.Page, input.Limit, DefaultListLimit, MaxListLimit)
	rows, total, err := s.repo.List(ctx, input.Filters, order, page)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list products")
	}

	out := make([]ProductDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, NewProductDTO(row))
	}
	return &ProductListResult{Products: out, Pagination: page.MetaFor(total)}, nil
}

func (s *service) Get(ctx context.Context, rawID string) (*ProductDTO, error) {
	id, err := uuid.Parse(strings.TrimSpace(rawID))
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Invalid product ID format")
	}

	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}

	dto := NewProductDTO(*product)
	return &dto, nil
}
