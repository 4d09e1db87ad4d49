package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Product is a catalog listing. Stock is a single pool shared by every size.
type Product struct {
	ID          uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	Name        string                `gorm:"column:name;not null"`
	Description string                `gorm:"column:description;not null"`
	PriceCents  int64                 `gorm:"column:price_cents;not null"`
	ImageURL    string                `gorm:"column:image_url;not null"`
	Category    enums.ProductCategory `gorm:"column:category;not null"`
	Sizes       pq.StringArray        `gorm:"column:sizes;type:text[];not null"`
	Stock       int                   `gorm:"column:stock;not null"`
	InStock     bool                  `gorm:"column:in_stock;not null"`
	CreatedAt   time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// BeforeSave keeps in_stock in step with stock for whole-row writes.
// Conditional decrements set both columns in SQL instead.
func (p *Product) BeforeSave(*gorm.DB) error {
	p.InStock = p.Stock > 0
	return nil
}

// OffersSize reports whether size is one of the product's listed sizes.
func (p *Product) OffersSize(size enums.ProductSize) bool {
	for _, s := range p.Sizes {
		if s == string(size) {
			return true
		}
	}
	return false
}
