package reservation

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

func TestReserveStock(t *testing.T) {
	t.Parallel()

	db := dbtest.Open(t)
	ctx := context.Background()
	productA := dbtest.MustCreateProduct(t, db, dbtest.WithName("Tee"), dbtest.WithStock(5))
	productB := dbtest.MustCreateProduct(t, db, dbtest.WithName("Cap"), dbtest.WithStock(1))
	missing := uuid.New()

	requests := []StockRequest{
		{CartItemID: uuid.New(), ProductID: productA.ID, Size: enums.ProductSizeS, Quantity: 3},
		{CartItemID: uuid.New(), ProductID: productA.ID, Size: enums.ProductSizeM, Quantity: 4},
		{CartItemID: uuid.New(), ProductID: productB.ID, Size: enums.ProductSizeL, Quantity: 1},
		{CartItemID: uuid.New(), ProductID: missing, Size: enums.ProductSizeL, Quantity: 1},
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		results, terr := ReserveStock(ctx, tx, requests)
		if terr != nil {
			return terr
		}
		if len(results) != 4 {
			t.Fatalf("expected 4 results, got %d", len(results))
		}
		if !results[0].Reserved || results[0].Reason != "" {
			t.Fatalf("expected first reservation to succeed: %+v", results[0])
		}
		// sizes share the product's stock, so only 2 remain for the M line
		if results[1].Reserved || results[1].Reason != "Only 2 items available for Tee (Size: M). You requested 4" {
			t.Fatalf("expected second reservation to fail with reason, got %+v", results[1])
		}
		if !results[2].Reserved {
			t.Fatalf("expected third reservation to succeed")
		}
		if results[3].Reserved || results[3].Reason != "Product "+missing.String()+" no longer exists" {
			t.Fatalf("expected missing product reason, got %+v", results[3])
		}
		return nil
	})
	if err != nil {
		t.Fatalf("reserve transaction: %v", err)
	}

	a := dbtest.ReloadProduct(t, db, productA.ID)
	b := dbtest.ReloadProduct(t, db, productB.ID)
	if a.Stock != 2 || !a.InStock {
		t.Fatalf("unexpected product a state: stock=%d in_stock=%v", a.Stock, a.InStock)
	}
	if b.Stock != 0 || b.InStock {
		t.Fatalf("expected product b sold out with in_stock cleared: stock=%d in_stock=%v", b.Stock, b.InStock)
	}
}

func TestReserveStockInvalidQty(t *testing.T) {
	t.Parallel()

	db := dbtest.Open(t)
	product := dbtest.MustCreateProduct(t, db)

	_, err := ReserveStock(context.Background(), db, []StockRequest{{ProductID: product.ID, Quantity: 0}})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestShortfallReasonOutOfStock(t *testing.T) {
	t.Parallel()

	db := dbtest.Open(t)
	product := dbtest.MustCreateProduct(t, db, dbtest.WithName("Scarf"), dbtest.WithStock(0))

	if got := ShortfallReason(*product, enums.ProductSizeS, 1); got != "Scarf (Size: S) is out of stock" {
		t.Fatalf("unexpected reason %q", got)
	}
	if got := ShortfallReason(dbtest.ReloadProduct(t, db, product.ID), enums.ProductSizeS, 1); got == "" {
		t.Fatal("expected a reason for a sold out product")
	}
}
