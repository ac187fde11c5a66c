package cart

import (
	"context"
	"errors"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/naili/storefront/pkg/db/models"
)

var errStoreDown = errors.New("store unreachable")

// stubStore is an in-memory Store keyed like the real table: (cart, product, user).
type stubStore struct {
	mu sync.Mutex

	cartID   string
	cartErr  error
	listErr  error
	upsertFn func(UpsertItemInput) error
	deleteFn func(productID string) error

	products map[string]*Product
	rows     map[string]Item

	ensureCalls int
	upserts     int
	deletes     int
	lists       int

	// gate blocks remote writes until closed when non-nil
	gate chan struct{}
}

func newStubStore() *stubStore {
	return &stubStore{
		cartID:   "cart-1",
		products: map[string]*Product{},
		rows:     map[string]Item{},
	}
}

func (s *stubStore) withProduct(id string, price int64) *stubStore {
	s.products[id] = &Product{ID: id, Name: "product " + id, Price: decimal.NewNullDecimal(decimal.NewFromInt(price))}
	return s
}

func (s *stubStore) seed(productID string, qty int) *stubStore {
	s.rows[productID] = Item{ID: "item-" + productID, CartID: s.cartID, ProductID: productID, Quantity: qty}
	return s
}

func (s *stubStore) GetOrCreateOpenCart(ctx context.Context, userID string) (*models.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureCalls++
	if s.cartErr != nil {
		return nil, s.cartErr
	}
	return &models.Cart{ID: s.cartID, UserID: userID}, nil
}

func (s *stubStore) ListItemsByUser(ctx context.Context, userID string) ([]Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists++
	if s.listErr != nil {
		return nil, s.listErr
	}
	items := make([]Item, 0, len(s.rows))
	for _, row := range s.rows {
		row.Product = s.products[row.ProductID]
		items = append(items, row)
	}
	return items, nil
}

func (s *stubStore) UpsertItem(ctx context.Context, input UpsertItemInput) error {
	s.wait()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserts++
	if s.upsertFn != nil {
		if err := s.upsertFn(input); err != nil {
			return err
		}
	}
	s.rows[input.ProductID] = Item{ID: "item-" + input.ProductID, CartID: input.CartID, ProductID: input.ProductID, Quantity: input.Quantity}
	return nil
}

func (s *stubStore) DeleteItem(ctx context.Context, cartID, productID, userID string) error {
	s.wait()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes++
	if s.deleteFn != nil {
		if err := s.deleteFn(productID); err != nil {
			return err
		}
	}
	delete(s.rows, productID)
	return nil
}

func (s *stubStore) DeleteItemsByUser(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = map[string]Item{}
	return nil
}

func (s *stubStore) wait() {
	s.mu.Lock()
	gate := s.gate
	s.mu.Unlock()
	if gate != nil {
		<-gate
	}
}

func (s *stubStore) counts() (upserts, deletes, lists int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upserts, s.deletes, s.lists
}
