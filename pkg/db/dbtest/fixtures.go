package dbtest

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// MustCreateUser inserts a user with a unique email.
func MustCreateUser(t *testing.T, conn *gorm.DB) *models.User {
	t.Helper()
	user := &models.User{
		Name:         "Test Shopper",
		Email:        fmt.Sprintf("shopper_%s@example.com", uuid.NewString()),
		PasswordHash: "hash",
	}
	require.NoError(t, conn.Create(user).Error)
	return user
}

// ProductOption customizes MustCreateProduct.
type ProductOption func(*models.Product)

func WithName(name string) ProductOption {
	return func(p *models.Product) { p.Name = name }
}

func WithStock(stock int) ProductOption {
	return func(p *models.Product) { p.Stock = stock }
}

func WithPriceCents(cents int64) ProductOption {
	return func(p *models.Product) { p.PriceCents = cents }
}

func WithSizes(sizes ...enums.ProductSize) ProductOption {
	return func(p *models.Product) {
		p.Sizes = pq.StringArray{}
		for _, s := range sizes {
			p.Sizes = append(p.Sizes, string(s))
		}
	}
}

func WithCategory(category enums.ProductCategory) ProductOption {
	return func(p *models.Product) { p.Category = category }
}

func WithDescription(description string) ProductOption {
	return func(p *models.Product) { p.Description = description }
}

func WithCreatedAt(at time.Time) ProductOption {
	return func(p *models.Product) { p.CreatedAt = at }
}

// MustCreateProduct inserts a 29.99 Men's tee offered in S, M and L with
// ten units unless options say otherwise.
func MustCreateProduct(t *testing.T, conn *gorm.DB, opts ...ProductOption) *models.Product {
	t.Helper()
	product := &models.Product{
		Name:        "Classic Tee",
		Description: "Cotton t-shirt",
		PriceCents:  2999,
		ImageURL:    "https://img.example.com/tee.png",
		Category:    enums.ProductCategoryMen,
		Sizes:       pq.StringArray{"S", "M", "L"},
		Stock:       10,
	}
	for _, opt := range opts {
		opt(product)
	}
	require.NoError(t, conn.Create(product).Error)
	return product
}

// ReloadProduct reads the current row.
func ReloadProduct(t *testing.T, conn *gorm.DB, id uuid.UUID) models.Product {
	t.Helper()
	var product models.Product
	require.NoError(t, conn.First(&product, "id = ?", id).Error)
	return product
}
