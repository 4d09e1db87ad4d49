package products

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

func newTestService(t *testing.T) (Service, *Repository) {
	t.Helper()
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	svc, err := NewService(repo)
	require.NoError(t, err)
	return svc, repo
}

func TestNewServiceRequiresRepository(t *testing.T) {
	_, err := NewService(nil)
	require.Error(t, err)
}

func TestListFiltersAndPaginates(t *testing.T) {
	ctx := context.Background()
	conn := dbtest.Open(t)
	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	dbtest.MustCreateProduct(t, conn, dbtest.WithName("Blue Denim Jacket"), dbtest.WithPriceCents(8999),
		dbtest.WithCategory(enums.ProductCategoryMen), dbtest.WithSizes(enums.ProductSizeM, enums.ProductSizeXL),
		dbtest.WithCreatedAt(base))
	dbtest.MustCreateProduct(t, conn, dbtest.WithName("Floral Dress"), dbtest.WithPriceCents(4999),
		dbtest.WithCategory(enums.ProductCategoryWomen), dbtest.WithSizes(enums.ProductSizeS),
		dbtest.WithDescription("Summer denim trim"), dbtest.WithCreatedAt(base.Add(time.Hour)))
	dbtest.MustCreateProduct(t, conn, dbtest.WithName("Kids Hoodie"), dbtest.WithPriceCents(2499),
		dbtest.WithCategory(enums.ProductCategoryKids), dbtest.WithSizes(enums.ProductSizeL), dbtest.WithStock(0),
		dbtest.WithCreatedAt(base.Add(2*time.Hour)))

	t.Run("default sort is newest first", func(t *testing.T) {
		res, err := svc.List(ctx, ListProductsInput{})
		require.NoError(t, err)
		require.Len(t, res.Products, 3)
		assert.Equal(t, "Kids Hoodie", res.Products[0].Name)
		assert.Equal(t, DefaultListLimit, res.Pagination.Limit)
		assert.Equal(t, int64(3), res.Pagination.Total)
	})

	t.Run("search matches name or description case-insensitively", func(t *testing.T) {
		res, err := svc.List(ctx, ListProductsInput{Filters: ListFilters{Search: "DENIM"}, Sort: "name"})
		require.NoError(t, err)
		require.Len(t, res.Products, 2)
		assert.Equal(t, "Blue Denim Jacket", res.Products[0].Name)
		assert.Equal(t, "Floral Dress", res.Products[1].Name)
	})

	t.Run("size filter does not confuse L with XL", func(t *testing.T) {
		size := enums.ProductSizeL
		res, err := svc.List(ctx, ListProductsInput{Filters: ListFilters{Size: &size}})
		require.NoError(t, err)
		require.Len(t, res.Products, 1)
		assert.Equal(t, "Kids Hoodie", res.Products[0].Name)
	})

	t.Run("price range and availability", func(t *testing.T) {
		minPrice := decimal.RequireFromString("20")
		maxPrice := decimal.RequireFromString("50")
		inStock := true
		res, err := svc.List(ctx, ListProductsInput{Filters: ListFilters{MinPrice: &minPrice, MaxPrice: &maxPrice, InStock: &inStock}})
		require.NoError(t, err)
		require.Len(t, res.Products, 1)
		assert.Equal(t, "49.99", res.Products[0].Price.StringFixed(2))
	})

	t.Run("price sort ascending", func(t *testing.T) {
		res, err := svc.List(ctx, ListProductsInput{Sort: "price"})
		require.NoError(t, err)
		require.Len(t, res.Products, 3)
		assert.Equal(t, "Kids Hoodie", res.Products[0].Name)
		assert.Equal(t, "Blue Denim Jacket", res.Products[2].Name)
	})

	t.Run("limit is clamped and pages report neighbours", func(t *testing.T) {
		res, err := svc.List(ctx, ListProductsInput{Page: 2, Limit: 1})
		require.NoError(t, err)
		require.Len(t, res.Products, 1)
		assert.True(t, res.Pagination.HasNextPage)
		assert.True(t, res.Pagination.HasPrevPage)
		assert.Equal(t, 3, res.Pagination.TotalPages)

		res, err = svc.List(ctx, ListProductsInput{Limit: 1000})
		require.NoError(t, err)
		assert.Equal(t, MaxListLimit, res.Pagination.Limit)
	})
}

func TestListRejectsBadInput(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	minPrice := decimal.RequireFromString("50")
	maxPrice := decimal.RequireFromString("10")
	_, err := svc.List(ctx, ListProductsInput{Filters: ListFilters{MinPrice: &minPrice, MaxPrice: &maxPrice}})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.List(ctx, ListProductsInput{Sort: "-stock"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestGet(t *testing.T) {
	ctx := context.Background()
	conn := dbtest.Open(t)
	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)
	product := dbtest.MustCreateProduct(t, conn)

	dto, err := svc.Get(ctx, product.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "29.99", dto.Price.StringFixed(2))
	assert.Equal(t, []string{"S", "M", "L"}, dto.Sizes)
	assert.True(t, dto.InStock)

	_, err = svc.Get(ctx, "not-a-uuid")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.Get(ctx, uuid.NewString())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestParseSort(t *testing.T) {
	fields, err := parseSort("-price, name")
	require.NoError(t, err)
	require.Len(t, fields, 2)
	assert.Equal(t, "price_cents DESC", fields[0].clause())
	assert.Equal(t, "name ASC", fields[1].clause())

	fields, err = parseSort("")
	require.NoError(t, err)
	assert.Equal(t, "created_at DESC", fields[0].clause())
}
