package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

const (
	DefaultListLimit = 10
	MaxListLimit     = 50
)

// ListFilters describe the inputs supported by the order history list.
type ListFilters struct {
	Status *enums.OrderStatus
}

// ListInput captures paging and filtering for ListForUser.
type ListInput struct {
	Page    int
	Limit   int
	Filters ListFilters
}

// UserSummary is the minimal owner info attached to an order.
type UserSummary struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

// OrderItemDTO is one snapshot line.
type OrderItemDTO struct {
	ProductID uuid.UUID       `json:"productId"`
	Name      string          `json:"name"`
	Size      string          `json:"size"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	ImageURL  string          `json:"imageUrl"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// OrderDTO is the order payload returned to clients.
type OrderDTO struct {
	ID              uuid.UUID              `json:"id"`
	OrderNumber     string                 `json:"orderNumber"`
	User            *UserSummary           `json:"user,omitempty"`
	Items           []OrderItemDTO         `json:"items"`
	TotalAmount     decimal.Decimal        `json:"totalAmount"`
	Status          string                 `json:"status"`
	ShippingAddress *types.ShippingAddress `json:"shippingAddress,omitempty"`
	PaymentMethod   string                 `json:"paymentMethod"`
	CreatedAt       time.Time              `json:"createdAt"`
	UpdatedAt       time.Time              `json:"updatedAt"`
}

// OrderList is one page of a user's order history.
type OrderList struct {
	Orders     []OrderDTO      `json:"orders"`
	Pagination pagination.Meta `json:"pagination"`
}

// NewOrderDTO maps an order row and its lines onto the API shape. user may be nil.
func NewOrderDTO(order models.Order, user *models.User) OrderDTO {
	dto := OrderDTO{
		ID:              order.ID,
		OrderNumber:     order.OrderNumber,
		Items:           make([]OrderItemDTO, 0, len(order.Items)),
		TotalAmount:     types.CentsToDecimal(order.TotalCents),
		Status:          string(order.Status),
		ShippingAddress: order.ShippingAddress,
		PaymentMethod:   string(order.PaymentMethod),
		CreatedAt:       order.CreatedAt,
		UpdatedAt:       order.UpdatedAt,
	}
	if user != nil {
		dto.User = &UserSummary{ID: user.ID, Name: user.Name, Email: user.Email}
	}
	for _, item := range order.Items {
		dto.Items = append(dto.Items, OrderItemDTO{
			ProductID: item.ProductID,
			Name:      item.Name,
			Size:      string(item.Size),
			Price:     types.CentsToDecimal(item.UnitPriceCents),
			Quantity:  item.Quantity,
			ImageURL:  item.ImageURL,
			Subtotal:  types.CentsToDecimal(item.LineTotalCents()),
		})
	}
	return dto
}
