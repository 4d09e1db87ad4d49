package db_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

func TestWithTxCommitsAndRollsBack(t *testing.T) {
	client := dbtest.Client(t)
	ctx := context.Background()

	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(&models.User{Name: "Ada", Email: "ada@example.com", PasswordHash: "x"}).Error
	}))

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&models.User{Name: "Bob", Email: "bob@example.com", PasswordHash: "x"}).Error; err != nil {
			return err
		}
		return errors.New("boom")
	})
	require.Error(t, err)

	var count int64
	require.NoError(t, client.DB().Model(&models.User{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestWithTxRollsBackOnPanic(t *testing.T) {
	client := dbtest.Client(t)

	assert.Panics(t, func() {
		_ = client.WithTx(context.Background(), func(tx *gorm.DB) error {
			tx.Create(&models.User{Name: "Ada", Email: "ada@example.com", PasswordHash: "x"})
			panic("kaboom")
		})
	})

	var count int64
	require.NoError(t, client.DB().Model(&models.User{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestPingAndDialect(t *testing.T) {
	client := dbtest.Client(t)
	require.NoError(t, client.Ping(context.Background()))
	assert.Equal(t, "sqlite", client.Dialect())
}

func TestProductHooksDeriveInStock(t *testing.T) {
	conn := dbtest.Open(t)

	product := &models.Product{
		Name:       "Tee",
		PriceCents: 1999,
		Category:   enums.ProductCategoryMen,
		Sizes:      pq.StringArray{"S", "M"},
		Stock:      0,
		InStock:    true,
	}
	require.NoError(t, conn.Create(product).Error)
	assert.NotEqual(t, uuid.Nil, product.ID)

	var stored models.Product
	require.NoError(t, conn.First(&stored, "id = ?", product.ID).Error)
	assert.False(t, stored.InStock)
	assert.Equal(t, pq.StringArray{"S", "M"}, stored.Sizes)
	assert.True(t, stored.OffersSize(enums.ProductSizeM))
	assert.False(t, stored.OffersSize(enums.ProductSizeXL))

	stored.Stock = 4
	require.NoError(t, conn.Save(&stored).Error)
	require.NoError(t, conn.First(&stored, "id = ?", product.ID).Error)
	assert.True(t, stored.InStock)
}

func TestIsUniqueViolation(t *testing.T) {
	conn := dbtest.Open(t)
	require.NoError(t, conn.Create(&models.User{Name: "Ada", Email: "ada@example.com", PasswordHash: "x"}).Error)
	err := conn.Create(&models.User{Name: "Ada", Email: "ada@example.com", PasswordHash: "x"}).Error
	require.Error(t, err)
	assert.True(t, db.IsUniqueViolation(err, ""))
	assert.True(t, db.IsUniqueViolation(err, "users.email"))
	assert.False(t, db.IsUniqueViolation(err, "orders.order_number"))

	pgErr := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "ux_orders_order_number"})
	assert.True(t, db.IsUniqueViolation(pgErr, "ux_orders_order_number"))
	assert.False(t, db.IsUniqueViolation(pgErr, "users_email_key"))

	pqErr := &pq.Error{Code: "23503", Constraint: "orders_user_id_fkey"}
	assert.False(t, db.IsUniqueViolation(pqErr, ""))

	assert.False(t, db.IsUniqueViolation(nil, ""))
	assert.False(t, db.IsUniqueViolation(errors.New("connection reset"), ""))
}

func TestSchemaConstraintsMatchMigrations(t *testing.T) {
	conn := dbtest.Open(t)

	err := conn.Exec(
		"INSERT INTO products (id, name, price_cents, category, sizes, stock, in_stock) VALUES (?, ?, ?, ?, ?, ?, ?)",
		uuid.NewString(), "Scarf", 1500, "Women", "{S}", 0, true,
	).Error
	require.Error(t, err, "in_stock must follow stock")

	user := dbtest.MustCreateUser(t, conn)
	err = conn.Create(&models.Order{
		OrderNumber:   "ORD-POS-000001",
		UserID:        user.ID,
		TotalCents:    5998,
		Status:        enums.OrderStatusPending,
		PaymentMethod: enums.DefaultPaymentMethod,
		Items: []models.OrderItem{
			{ProductID: uuid.New(), Name: "Tee", Size: enums.ProductSizeM, UnitPriceCents: 2999, Quantity: 1, Position: 0},
			{ProductID: uuid.New(), Name: "Cap", Size: enums.ProductSizeS, UnitPriceCents: 2999, Quantity: 1, Position: 0},
		},
	}).Error
	require.Error(t, err)
	assert.True(t, db.IsUniqueViolation(err, ""))
}
