package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/naili/storefront/pkg/enums"
)

// Cart is the server-side cart of a user. At most one open cart exists per user.
type Cart struct {
	ID        string           `gorm:"column:id;type:text;primaryKey"`
	UserID    string           `gorm:"column:user_id;type:text;not null;uniqueIndex:idx_carts_open_user,where:status = 'open'"`
	Status    enums.CartStatus `gorm:"column:status;type:text;not null;default:'open'"`
	CreatedAt time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Cart) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	if c.Status == "" {
		c.Status = enums.CartStatusOpen
	}
	return nil
}
