package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/naili/storefront/pkg/enums"
)

// Order is a placed order. Items are snapshotted at confirmation time.
type Order struct {
	ID              string            `gorm:"column:id;type:text;primaryKey"`
	CustomerID      string            `gorm:"column:customer_id;type:text;not null;index"`
	CartID          *string           `gorm:"column:cart_id;type:text"`
	Status          enums.OrderStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	DeliveryAddress string            `gorm:"column:delivery_address;not null"`
	DeliveryPhone   string            `gorm:"column:delivery_phone;not null"`
	DeliveryNote    *string           `gorm:"column:delivery_note"`
	TotalAmount     decimal.Decimal   `gorm:"column:total_amount;type:numeric(12,2);not null"`
	FailureReason   *string           `gorm:"column:failure_reason"`
	Items           []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	if o.Status == "" {
		o.Status = enums.OrderStatusPending
	}
	return nil
}

type OrderItem struct {
	ID        string          `gorm:"column:id;type:text;primaryKey"`
	OrderID   string          `gorm:"column:order_id;type:text;not null;index"`
	ProductID string          `gorm:"column:product_id;type:text;not null"`
	Quantity  int             `gorm:"column:quantity;not null"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (o *OrderItem) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}
