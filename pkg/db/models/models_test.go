package models

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/naili/storefront/pkg/enums"
)

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&Product{}, &Cart{}, &CartItem{}, &Order{}, &OrderItem{}, &Profile{}))
	return conn
}

func TestBeforeCreateAssignsIDsAndDefaults(t *testing.T) {
	conn := openDB(t)

	cart := &Cart{UserID: "user-1"}
	require.NoError(t, conn.Create(cart).Error)
	assert.NotEmpty(t, cart.ID)
	assert.Equal(t, enums.CartStatusOpen, cart.Status)

	order := &Order{CustomerID: "user-1", DeliveryAddress: "12 Allen Ave", DeliveryPhone: "0800", TotalAmount: decimal.NewFromInt(10)}
	require.NoError(t, conn.Create(order).Error)
	assert.NotEmpty(t, order.ID)
	assert.Equal(t, enums.OrderStatusPending, order.Status)
}

func TestOneOpenCartPerUser(t *testing.T) {
	conn := openDB(t)

	require.NoError(t, conn.Create(&Cart{UserID: "user-1"}).Error)
	require.Error(t, conn.Create(&Cart{UserID: "user-1"}).Error)
	require.NoError(t, conn.Create(&Cart{UserID: "user-1", Status: enums.CartStatus("checked_out")}).Error)
}

func TestCartItemCompositeKeyIsUnique(t *testing.T) {
	conn := openDB(t)

	item := CartItem{CartID: "cart-1", ProductID: "p1", AddedBy: "user-1", Quantity: 1}
	require.NoError(t, conn.Create(&item).Error)
	dup := CartItem{CartID: "cart-1", ProductID: "p1", AddedBy: "user-1", Quantity: 2}
	require.Error(t, conn.Create(&dup).Error)
}

func TestProductPriced(t *testing.T) {
	var nilProduct *Product
	assert.False(t, nilProduct.Priced())
	assert.False(t, (&Product{}).Priced())
	assert.True(t, (&Product{Price: decimal.NewNullDecimal(decimal.NewFromInt(5))}).Priced())
}
