package notifications

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// Recipient is who the confirmation is addressed to.
type Recipient struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// ConfirmationLine is one purchased line.
type ConfirmationLine struct {
	ProductID uuid.UUID       `json:"productId"`
	Name      string          `json:"name"`
	Size      string          `json:"size"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// OrderConfirmation is the payload handed to a Sender after checkout commits.
type OrderConfirmation struct {
	OrderID         uuid.UUID              `json:"orderId"`
	OrderNumber     string                 `json:"orderNumber"`
	Recipient       Recipient              `json:"recipient"`
	Items           []ConfirmationLine     `json:"items"`
	TotalAmount     decimal.Decimal        `json:"totalAmount"`
	ShippingAddress *types.ShippingAddress `json:"shippingAddress,omitempty"`
	PaymentMethod   string                 `json:"paymentMethod"`
	PlacedAt        time.Time              `json:"placedAt"`
}

func newConfirmation(order models.Order, user models.User) OrderConfirmation {
	msg := OrderConfirmation{
		OrderID:         order.ID,
		OrderNumber:     order.OrderNumber,
		Recipient:       Recipient{Name: user.Name, Email: user.Email},
		Items:           make([]ConfirmationLine, 0, len(order.Items)),
		TotalAmount:     types.CentsToDecimal(order.TotalCents),
		ShippingAddress: order.ShippingAddress,
		PaymentMethod:   string(order.PaymentMethod),
		PlacedAt:        order.CreatedAt,
	}
	for _, item := range order.Items {
		msg.Items = append(msg.Items, ConfirmationLine{
			ProductID: item.ProductID,
			Name:      item.Name,
			Size:      string(item.Size),
			Quantity:  item.Quantity,
			Price:     types.CentsToDecimal(item.UnitPriceCents),
			Subtotal:  types.CentsToDecimal(item.LineTotalCents()),
		})
	}
	return msg
}
