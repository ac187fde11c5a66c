package cart

import (
	"github.com/shopspring/decimal"

	"github.com/naili/storefront/pkg/db/models"
)

// Product is the product snapshot joined onto a cart item.
type Product struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Price       decimal.NullDecimal `json:"price"`
	ImageURL    string              `json:"image_url,omitempty"`
	Brand       string              `json:"brand,omitempty"`
	Category    string              `json:"category,omitempty"`
	Description string              `json:"description,omitempty"`
}

// Item is one remote cart line. Product is nil when the referenced product no longer exists.
type Item struct {
	ID        string   `json:"id"`
	CartID    string   `json:"cart_id"`
	ProductID string   `json:"product_id"`
	Quantity  int      `json:"quantity"`
	Product   *Product `json:"product,omitempty"`
}

// Valid reports whether the item references an existing, priced product.
func (i Item) Valid() bool {
	return i.Product != nil && i.Product.Price.Valid
}

// UnitPrice is the product price, or zero for invalid items.
func (i Item) UnitPrice() decimal.Decimal {
	if !i.Valid() {
		return decimal.Zero
	}
	return i.Product.Price.Decimal
}

// LineTotal is quantity × unit price.
func (i Item) LineTotal() decimal.Decimal {
	return i.UnitPrice().Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Totals are derived from the local cart and the cached valid items; they are never stored.
type Totals struct {
	ItemCount      int             `json:"item_count"`
	ItemPriceTotal decimal.Decimal `json:"item_price_total"`
}

// FilterValid returns the valid items in order and how many were dropped as orphaned.
func FilterValid(items []Item) ([]Item, int) {
	valid := make([]Item, 0, len(items))
	for _, item := range items {
		if item.Valid() {
			valid = append(valid, item)
		}
	}
	return valid, len(items) - len(valid)
}

// ItemPriceTotal sums quantity × price over the valid items.
func ItemPriceTotal(items []Item) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		if item.Valid() {
			total = total.Add(item.LineTotal())
		}
	}
	return total
}

// ComputeTotals is a pure function of the quantity map and the cached items.
func ComputeTotals(local map[string]int, items []Item) Totals {
	count := 0
	for _, qty := range local {
		count += qty
	}
	return Totals{ItemCount: count, ItemPriceTotal: ItemPriceTotal(items)}
}

func itemFromModel(row models.CartItem) Item {
	item := Item{
		ID:        row.ID,
		CartID:    row.CartID,
		ProductID: row.ProductID,
		Quantity:  row.Quantity,
	}
	// a left join on a deleted product yields an empty struct rather than nil
	if row.Product != nil && row.Product.ID != "" {
		item.Product = &Product{
			ID:          row.Product.ID,
			Name:        row.Product.Name,
			Price:       row.Product.Price,
			ImageURL:    deref(row.Product.ImageURL),
			Brand:       deref(row.Product.Brand),
			Category:    deref(row.Product.Category),
			Description: deref(row.Product.Description),
		}
	}
	return item
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
