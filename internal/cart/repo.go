package cart

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/naili/storefront/internal/repo"
	"github.com/naili/storefront/pkg/db"
	"github.com/naili/storefront/pkg/db/models"
	"github.com/naili/storefront/pkg/enums"
)

const openCartIndex = "idx_carts_open_user"

// Repository exposes persistence operations for carts and cart items.
type Repository struct {
	repo.Base
}

// NewRepository constructs a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// FindOpenCart loads the open cart of the user.
func (r *Repository) FindOpenCart(ctx context.Context, userID string) (*models.Cart, error) {
	var cart models.Cart
	err := r.DB(ctx).
		Where("user_id = ? AND status = ?", userID, enums.CartStatusOpen).
		First(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// CreateCart inserts a new open cart for the user.
func (r *Repository) CreateCart(ctx context.Context, userID string) (*models.Cart, error) {
	cart := &models.Cart{UserID: userID, Status: enums.CartStatusOpen}
	if err := r.DB(ctx).Create(cart).Error; err != nil {
		return nil, err
	}
	return cart, nil
}

// GetOrCreateOpenCart returns the user's open cart, creating it when missing. A
// concurrent creator that wins the unique index is re-read instead of failing.
func (r *Repository) GetOrCreateOpenCart(ctx context.Context, userID string) (*models.Cart, error) {
	cart, err := r.FindOpenCart(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("find open cart: %w", err)
	}

	cart, err = r.CreateCart(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !db.IsUniqueViolation(err, openCartIndex) {
		return nil, fmt.Errorf("create cart: %w", err)
	}

	cart, err = r.FindOpenCart(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("reload open cart: %w", err)
	}
	return cart, nil
}

// ListItemsByUser returns every cart item added by the user with its product joined.
func (r *Repository) ListItemsByUser(ctx context.Context, userID string) ([]Item, error) {
	var rows []models.CartItem
	if err := r.DB(ctx).
		Joins("Product").
		Where("cart_items.added_by = ?", userID).
		Order("cart_items.created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(rows))
	for _, row := range rows {
		items = append(items, itemFromModel(row))
	}
	return items, nil
}

// UpsertItem inserts or updates the quantity keyed by (cart, product, user).
func (r *Repository) UpsertItem(ctx context.Context, input UpsertItemInput) error {
	if input.Quantity <= 0 {
		return fmt.Errorf("upsert quantity must be positive, got %d", input.Quantity)
	}
	row := models.CartItem{
		CartID:    input.CartID,
		ProductID: input.ProductID,
		AddedBy:   input.UserID,
		Quantity:  input.Quantity,
	}
	return r.DB(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "cart_id"}, {Name: "product_id"}, {Name: "added_by"}},
			DoUpdates: clause.AssignmentColumns([]string{"quantity", "updated_at"}),
		}).
		Create(&row).Error
}

// DeleteItem removes the line matching cart, product and user.
func (r *Repository) DeleteItem(ctx context.Context, cartID, productID, userID string) error {
	return r.DB(ctx).
		Where("cart_id = ? AND product_id = ? AND added_by = ?", cartID, productID, userID).
		Delete(&models.CartItem{}).Error
}

// DeleteItemsByUser removes every cart line added by the user.
func (r *Repository) DeleteItemsByUser(ctx context.Context, userID string) error {
	return r.DB(ctx).
		Where("added_by = ?", userID).
		Delete(&models.CartItem{}).Error
}
