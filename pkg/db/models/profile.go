package models

import "time"

// Profile holds the customer details keyed by the auth user id.
type Profile struct {
	ID            string    `gorm:"column:id;type:text;primaryKey"`
	FullName      *string   `gorm:"column:full_name"`
	PhoneNumber   *string   `gorm:"column:phone_number"`
	Address       *string   `gorm:"column:address"`
	CurrentCartID *string   `gorm:"column:current_cart_id;type:text"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
