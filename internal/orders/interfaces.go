package orders

import (
	"context"

	"github.com/naili/storefront/pkg/db/models"
	"github.com/naili/storefront/pkg/pagination"
)

// Repository defines persistence operations for the orders tables.
type Repository interface {
	CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	CreateOrderItems(ctx context.Context, items []models.OrderItem) error
	MarkFailed(ctx context.Context, orderID, reason string) error
	DeleteOrder(ctx context.Context, orderID string) error
	FindCustomerOrder(ctx context.Context, customerID, orderID string) (*models.Order, error)
	ListCustomerOrders(ctx context.Context, customerID string, params pagination.Params) (*OrderList, error)
}
