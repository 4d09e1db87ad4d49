package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// Order is written once at checkout; only Status changes afterwards.
type Order struct {
	ID              uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber     string                 `gorm:"column:order_number;not null;uniqueIndex:ux_orders_order_number"`
	UserID          uuid.UUID              `gorm:"column:user_id;type:uuid;not null"`
	TotalCents      int64                  `gorm:"column:total_cents;not null"`
	Status          enums.OrderStatus      `gorm:"column:status;not null"`
	ShippingAddress *types.ShippingAddress `gorm:"column:shipping_address;type:jsonb"`
	PaymentMethod   enums.PaymentMethod    `gorm:"column:payment_method;not null"`
	Items           []OrderItem            `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// OrderItem is a snapshot of a cart line taken at checkout.
type OrderItem struct {
	ID             uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	OrderID        uuid.UUID         `gorm:"column:order_id;type:uuid;not null"`
	ProductID      uuid.UUID         `gorm:"column:product_id;type:uuid;not null"`
	Name           string            `gorm:"column:name;not null"`
	Size           enums.ProductSize `gorm:"column:size;not null"`
	UnitPriceCents int64             `gorm:"column:unit_price_cents;not null"`
	Quantity       int               `gorm:"column:quantity;not null"`
	ImageURL       string            `gorm:"column:image_url;not null"`
	Position       int               `gorm:"column:position;not null"`
	CreatedAt      time.Time         `gorm:"column:created_at;autoCreateTime"`
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// LineTotalCents is the unit price times quantity.
func (i OrderItem) LineTotalCents() int64 {
	return i.UnitPriceCents * int64(i.Quantity)
}
