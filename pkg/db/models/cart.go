package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Cart is the single server-side cart a user owns.
type Cart struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	UserID    uuid.UUID  `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	Items     []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Cart) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// CartItem is one (product, size) line. product_id carries no foreign key so a
// deleted product leaves a stale line behind.
type CartItem struct {
	ID        uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	CartID    uuid.UUID         `gorm:"column:cart_id;type:uuid;not null;uniqueIndex:ux_cart_items_line,priority:1"`
	ProductID uuid.UUID         `gorm:"column:product_id;type:uuid;not null;uniqueIndex:ux_cart_items_line,priority:2"`
	Size      enums.ProductSize `gorm:"column:size;not null;uniqueIndex:ux_cart_items_line,priority:3"`
	Quantity  int               `gorm:"column:quantity;not null"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (i *CartItem) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
