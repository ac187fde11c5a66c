package models

import (
	"time"

	"gorm.io/gorm"
)

// CartItem is one product line in a cart, owned by the user that added it.
type CartItem struct {
	ID        string    `gorm:"column:id;type:text;primaryKey"`
	CartID    string    `gorm:"column:cart_id;type:text;not null;uniqueIndex:idx_cart_items_owner,priority:1"`
	ProductID string    `gorm:"column:product_id;type:text;not null;uniqueIndex:idx_cart_items_owner,priority:2"`
	AddedBy   string    `gorm:"column:added_by;type:text;not null;index;uniqueIndex:idx_cart_items_owner,priority:3"`
	Quantity  int       `gorm:"column:quantity;not null"`
	Product   *Product  `gorm:"foreignKey:ProductID;references:ID"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *CartItem) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}
