package cart

import (
	"context"

	"github.com/naili/storefront/pkg/db/models"
)

// Store is the remote cart store used by the reconciler. Empty results are not errors:
// ListItemsByUser returns an empty slice and FindOpenCart returns gorm.ErrRecordNotFound.
type Store interface {
	GetOrCreateOpenCart(ctx context.Context, userID string) (*models.Cart, error)
	ListItemsByUser(ctx context.Context, userID string) ([]Item, error)
	UpsertItem(ctx context.Context, input UpsertItemInput) error
	DeleteItem(ctx context.Context, cartID, productID, userID string) error
	DeleteItemsByUser(ctx context.Context, userID string) error
}

// UpsertItemInput identifies a cart line by its composite key plus the desired quantity.
type UpsertItemInput struct {
	CartID    string
	ProductID string
	UserID    string
	Quantity  int
}
