// Package dbtest opens isolated in-memory SQLite databases carrying the
// storefront schema for package tests.
package dbtest

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/storefront-backend/pkg/db"
)

// schema is the SQLite rendition of pkg/migrate/migrations. Each table
// names the migration it mirrors; keep the constraints in step with it.
var schema = []string{
	// 20260105090000_create_users.sql
	`CREATE TABLE users (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  email TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  last_login_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
	// 20260105090100_create_products.sql
	`CREATE TABLE products (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  price_cents INTEGER NOT NULL CHECK (price_cents > 0),
  image_url TEXT NOT NULL DEFAULT '',
  category TEXT NOT NULL,
  sizes TEXT NOT NULL,
  stock INTEGER NOT NULL CHECK (stock >= 0),
  in_stock BOOLEAN NOT NULL,
  created_at DATETIME,
  updated_at DATETIME,
  CONSTRAINT products_in_stock_matches_stock CHECK (in_stock = (stock > 0))
);`,
	// 20260105090200_create_carts.sql
	`CREATE TABLE carts (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL UNIQUE,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE cart_items (
  id TEXT PRIMARY KEY,
  cart_id TEXT NOT NULL REFERENCES carts(id) ON DELETE CASCADE,
  product_id TEXT NOT NULL,
  size TEXT NOT NULL,
  quantity INTEGER NOT NULL CHECK (quantity >= 1),
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (cart_id, product_id, size)
);`,
	// 20260105090300_create_orders.sql
	`CREATE TABLE orders (
  id TEXT PRIMARY KEY,
  order_number TEXT NOT NULL UNIQUE,
  user_id TEXT NOT NULL REFERENCES users(id),
  total_cents INTEGER NOT NULL,
  status TEXT NOT NULL,
  shipping_address TEXT,
  payment_method TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
  product_id TEXT NOT NULL,
  name TEXT NOT NULL,
  size TEXT NOT NULL,
  unit_price_cents INTEGER NOT NULL,
  quantity INTEGER NOT NULL,
  image_url TEXT NOT NULL DEFAULT '',
  position INTEGER NOT NULL,
  created_at DATETIME,
  CONSTRAINT ux_order_items_position UNIQUE (order_id, position)
);`,
}

// Open returns a fresh database with the schema applied. The pool is pinned
// to one connection so concurrent transactions serialize the way row locks
// would serialize them in Postgres.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		require.NoError(t, conn.Exec(stmt).Error)
	}
	return conn
}

// Client wraps Open in a db.Client.
func Client(t *testing.T) *db.Client {
	t.Helper()
	return db.Wrap(Open(t))
}
