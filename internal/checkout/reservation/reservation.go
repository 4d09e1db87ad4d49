// Package reservation decrements product stock inside a checkout transaction.
package reservation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// StockRequest asks for quantity units of a product for one cart line.
type StockRequest struct {
	CartItemID uuid.UUID
	ProductID  uuid.UUID
	Size       enums.ProductSize
	Quantity   int
}

// StockResult reports whether a request was satisfied and, if not, why.
type StockResult struct {
	StockRequest
	Reserved bool
	Reason   string
}

// ReserveStock applies a conditional decrement per request:
//
//	UPDATE products SET stock = stock - q, in_stock = (stock - q > 0)
//	WHERE id = ? AND stock >= q
//
// A request that touches no row is reported with a reason built from a fresh
// read of the product. Every request is attempted so the caller can report
// all shortfalls at once; the caller must roll back tx when any failed.
func ReserveStock(ctx context.Context, tx *gorm.DB, requests []StockRequest) ([]StockResult, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction required")
	}
	for _, req := range requests {
		if req.Quantity < 1 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "reservation quantity must be positive")
		}
	}

	results := make([]StockResult, 0, len(requests))
	for _, req := range requests {
		res := tx.WithContext(ctx).
			Model(&models.Product{}).
			Where("id = ? AND stock >= ?", req.ProductID, req.Quantity).
			UpdateColumns(map[string]any{
				"stock":      gorm.Expr("stock - ?", req.Quantity),
				"in_stock":   gorm.Expr("stock - ? > 0", req.Quantity),
				"updated_at": time.Now().UTC(),
			})
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 1 {
			results = append(results, StockResult{StockRequest: req, Reserved: true})
			continue
		}

		reason, err := shortfallReason(ctx, tx, req)
		if err != nil {
			return nil, err
		}
		results = append(results, StockResult{StockRequest: req, Reason: reason})
	}
	return results, nil
}

func shortfallReason(ctx context.Context, tx *gorm.DB, req StockRequest) (string, error) {
	var product models.Product
	err := tx.WithContext(ctx).First(&product, "id = ?", req.ProductID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return MissingProductReason(req.ProductID), nil
	}
	if err != nil {
		return "", err
	}
	return ShortfallReason(product, req.Size, req.Quantity), nil
}

// MissingProductReason is reported for lines whose product was deleted.
func MissingProductReason(productID uuid.UUID) string {
	return fmt.Sprintf("Product %s no longer exists", productID)
}

// ShortfallReason describes why product cannot cover requested units, or ""
// when it can.
func ShortfallReason(product models.Product, size enums.ProductSize, requested int) string {
	switch {
	case !product.InStock || product.Stock <= 0:
		return fmt.Sprintf("%s (Size: %s) is out of stock", product.Name, size)
	case product.Stock < requested:
		return fmt.Sprintf("Only %d items available for %s (Size: %s). You requested %d",
			product.Stock, product.Name, size, requested)
	default:
		return ""
	}
}
