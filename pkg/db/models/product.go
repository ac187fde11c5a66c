package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is a catalog entry. A missing price marks the product as not purchasable.
type Product struct {
	ID          string              `gorm:"column:id;type:text;primaryKey"`
	Name        string              `gorm:"column:name;not null"`
	Price       decimal.NullDecimal `gorm:"column:price;type:numeric(12,2)"`
	ImageURL    *string             `gorm:"column:image_url"`
	Brand       *string             `gorm:"column:brand"`
	Category    *string             `gorm:"column:category"`
	Description *string             `gorm:"column:description"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// Priced reports whether the product carries a usable price.
func (p *Product) Priced() bool {
	return p != nil && p.Price.Valid
}
