package cart

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// CartView is the cart as returned to clients, priced against current products.
type CartView struct {
	ID         uuid.UUID       `json:"id"`
	UserID     uuid.UUID       `json:"userId"`
	Items      []LineView      `json:"items"`
	Total      decimal.Decimal `json:"total"`
	TotalItems int             `json:"totalItems"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// LineView is one priced cart line.
type LineView struct {
	ID       uuid.UUID       `json:"id"`
	Product  ProductSummary  `json:"product"`
	Size     string          `json:"size"`
	Quantity int             `json:"quantity"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// ProductSummary carries the product fields a cart line displays.
type ProductSummary struct {
	ID       uuid.UUID       `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	ImageURL string          `json:"imageUrl"`
	Category string          `json:"category"`
	Sizes    []string        `json:"sizes"`
	Stock    int             `json:"stock"`
	InStock  bool            `json:"inStock"`
}

// buildView prices the cart's lines. Lines whose product no longer exists are
// left out of the lines and the totals alike.
func buildView(cart *models.Cart, catalog map[uuid.UUID]models.Product) *CartView {
	view := &CartView{
		ID:        cart.ID,
		UserID:    cart.UserID,
		Items:     make([]LineView, 0, len(cart.Items)),
		Total:     decimal.Zero,
		CreatedAt: cart.CreatedAt,
		UpdatedAt: cart.UpdatedAt,
	}

	var totalCents int64
	for _, item := range cart.Items {
		product, ok := catalog[item.ProductID]
		if !ok {
			continue
		}
		subtotal := product.PriceCents * int64(item.Quantity)
		totalCents += subtotal
		view.TotalItems += item.Quantity
		view.Items = append(view.Items, LineView{
			ID: item.ID,
			Product: ProductSummary{
				ID:       product.ID,
				Name:     product.Name,
				Price:    types.CentsToDecimal(product.PriceCents),
				ImageURL: product.ImageURL,
				Category: string(product.Category),
				Sizes:    append([]string(nil), product.Sizes...),
				Stock:    product.Stock,
				InStock:  product.InStock,
			},
			Size:     string(item.Size),
			Quantity: item.Quantity,
			Subtotal: types.CentsToDecimal(subtotal),
		})
	}
	view.Total = types.CentsToDecimal(totalCents)
	return view
}

// GuestItem is one line of a client-held cart. Product arrives either as an
// id string or as an embedded snapshot object; anything unusable decodes to
// zero values so the line is skipped rather than failing the request.
type GuestItem struct {
	Product  string
	Size     string
	Quantity float64
}

func (g *GuestItem) UnmarshalJSON(data []byte) error {
	var raw struct {
		Product  json.RawMessage `json:"product"`
		Size     json.RawMessage `json:"size"`
		Quantity json.RawMessage `json:"quantity"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		// not an object: leave the item empty
		*g = GuestItem{}
		return nil
	}

	*g = GuestItem{
		Product: decodeProductRef(raw.Product),
		Size:    decodeString(raw.Size),
	}
	var qty float64
	if err := json.Unmarshal(raw.Quantity, &qty); err == nil {
		g.Quantity = qty
	}
	return nil
}

func decodeProductRef(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	if raw[0] == '{' {
		var snapshot struct {
			ID       json.RawMessage `json:"id"`
			LegacyID json.RawMessage `json:"_id"`
		}
		if err := json.Unmarshal(raw, &snapshot); err != nil {
			return ""
		}
		if id := decodeString(snapshot.ID); id != "" {
			return id
		}
		return decodeString(snapshot.LegacyID)
	}
	return decodeString(raw)
}

func decodeString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

// ValidatedGuestItem is a guest line that passed validation, clamped to stock.
type ValidatedGuestItem struct {
	Product  uuid.UUID `json:"product"`
	Size     string    `json:"size"`
	Quantity int       `json:"quantity"`
}
