package cart

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/naili/storefront/pkg/auth/session"
	pkgerrors "github.com/naili/storefront/pkg/errors"
	"github.com/naili/storefront/pkg/logger"
	"github.com/naili/storefront/pkg/metrics"
)

// ErrClosed is delivered for mutations issued after Close.
var ErrClosed = errors.New("cart reconciler closed")

// Option configures optional reconciler collaborators.
type Option func(*Reconciler)

func WithLogger(logg *logger.Logger) Option {
	return func(r *Reconciler) {
		if logg != nil {
			r.logg = logg
		}
	}
}

func WithMetrics(m *metrics.CartMetrics) Option {
	return func(r *Reconciler) {
		r.metrics = m
	}
}

// Reconciler owns the local quantity map and the cached valid items of one session and
// keeps the remote store eventually consistent with them. Local mutations are applied
// synchronously; remote writes run in the background and never roll local state back.
type Reconciler struct {
	store   Store
	session session.Session
	logg    *logger.Logger
	metrics *metrics.CartMetrics

	mountMu sync.Mutex

	mu           sync.Mutex
	local        map[string]int
	items        []Item
	cartID       string
	loaded       bool
	syncFailures int
	closed       bool

	// writes holds one channel per item sync in flight, closed once it settles
	writes map[chan struct{}]struct{}

	inflight sync.WaitGroup
}

// Snapshot is a copy of the reconciler state for rendering.
type Snapshot struct {
	CartID       string         `json:"cart_id,omitempty"`
	Quantities   map[string]int `json:"quantities"`
	Items        []Item         `json:"items"`
	Totals       Totals         `json:"totals"`
	SyncFailures int            `json:"sync_failures"`
}

// NewReconciler builds a reconciler for the session. Remote sync is only active for
// authenticated sessions with a store.
func NewReconciler(store Store, sess session.Session, opts ...Option) (*Reconciler, error) {
	if sess == nil {
		return nil, errors.New("session is required")
	}
	r := &Reconciler{
		store:   store,
		session: sess,
		logg:    logger.Discard(),
		local:   map[string]int{},
		writes:  map[chan struct{}]struct{}{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r, nil
}

// Session returns the session the reconciler was built for.
func (r *Reconciler) Session() session.Session {
	return r.session
}

// CartID returns the remote cart id, empty while in local-only mode.
func (r *Reconciler) CartID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cartID
}

// Mounted reports whether the remote items have been loaded since the last mount.
// Reconcilers without remote sync have nothing to load and always report true.
func (r *Reconciler) Mounted() bool {
	if !r.remoteEnabled() {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loaded
}

// Mount resolves the remote cart and loads its items. Guests stay local-only.
func (r *Reconciler) Mount(ctx context.Context) error {
	if !r.remoteEnabled() {
		return nil
	}
	r.mountMu.Lock()
	defer r.mountMu.Unlock()

	if _, err := r.EnsureCart(ctx); err != nil {
		return err
	}
	return r.LoadItems(ctx)
}

// EnsureCart returns the id of the user's open cart, creating it when missing. On
// failure the reconciler stays local-only until the next mount.
func (r *Reconciler) EnsureCart(ctx context.Context) (string, error) {
	userID := session.UserID(r.session)
	if userID == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "user id required").
			WithDetails(map[string]string{"user_id": "is required"})
	}
	if r.store == nil {
		return "", pkgerrors.New(pkgerrors.CodeRemoteUnavailable, "remote cart store not configured")
	}
	ctx = r.logg.WithUserID(ctx, userID)

	started := time.Now()
	cart, err := r.store.GetOrCreateOpenCart(ctx, userID)
	r.metrics.Observe("ensure_cart", time.Since(started), err)
	if err != nil {
		r.logg.Warn(r.logg.WithFields(ctx, pkgerrors.Dump(err).Fields()), "ensure cart failed; continuing local-only")
		return "", pkgerrors.Wrap(pkgerrors.CodeRemoteUnavailable, err, "ensure cart")
	}

	r.mu.Lock()
	r.cartID = cart.ID
	r.mu.Unlock()
	return cart.ID, nil
}

// LoadItems replaces the local quantities and the cached items with the valid remote
// items. It is the only operation that overwrites local quantities.
func (r *Reconciler) LoadItems(ctx context.Context) error {
	userID := session.UserID(r.session)
	if userID == "" {
		return nil
	}
	if r.CartID() == "" {
		return pkgerrors.New(pkgerrors.CodeRemoteUnavailable, "remote cart not resolved")
	}

	valid, err := r.fetchValid(ctx, userID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeRemoteUnavailable, err, "load cart items")
	}

	local := make(map[string]int, len(valid))
	for _, item := range valid {
		if item.Quantity > 0 {
			local[item.ProductID] = item.Quantity
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	r.local = local
	r.items = valid
	r.loaded = true
	return nil
}

// SetQuantity applies the quantity locally before returning; quantity <= 0 removes the
// product. The remote write runs in the background and its outcome is delivered on the
// returned channel, which is closed afterwards. A nil outcome means the write succeeded
// or remote sync is inactive.
func (r *Reconciler) SetQuantity(ctx context.Context, productID string, quantity int) <-chan error {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return settled(pkgerrors.New(pkgerrors.CodeValidation, "product id required"))
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return settled(ErrClosed)
	}
	if quantity <= 0 {
		delete(r.local, productID)
	} else {
		r.local[productID] = quantity
	}
	cartID := r.cartID
	remote := r.syncing(cartID)
	var written chan struct{}
	if remote {
		r.inflight.Add(1)
		written = make(chan struct{})
		r.writes[written] = struct{}{}
	}
	r.mu.Unlock()

	if !remote {
		return settled(nil)
	}

	done := make(chan error, 1)
	bg := context.WithoutCancel(ctx)
	go func() {
		defer r.inflight.Done()
		err := r.syncItem(bg, cartID, productID, quantity)
		r.refreshItems(bg)
		r.settleWrite(written)
		done <- err
		close(done)
	}()
	return done
}

// RemoveItem is SetQuantity with zero.
func (r *Reconciler) RemoveItem(ctx context.Context, productID string) <-chan error {
	return r.SetQuantity(ctx, productID, 0)
}

// Clear empties the local state immediately. In the background it waits for item syncs
// issued before it, deletes every product that was cached or held locally, and
// refreshes the cache once all deletions settle. Failed deletions are aggregated and
// delivered on the returned channel.
func (r *Reconciler) Clear(ctx context.Context) <-chan error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return settled(ErrClosed)
	}
	productIDs := r.clearTargets()
	pending := make([]chan struct{}, 0, len(r.writes))
	for written := range r.writes {
		pending = append(pending, written)
	}
	r.local = map[string]int{}
	r.items = nil
	cartID := r.cartID
	remote := r.syncing(cartID)
	if remote {
		r.inflight.Add(1)
	}
	r.mu.Unlock()

	if !remote {
		return settled(nil)
	}

	done := make(chan error, 1)
	bg := context.WithoutCancel(ctx)
	go func() {
		defer r.inflight.Done()
		for _, written := range pending {
			<-written
		}
		err := r.deleteAll(bg, cartID, productIDs)
		if err != nil {
			r.logg.Warn(r.logg.WithFields(bg, map[string]any{
				"cart_id":        cartID,
				"failed_deletes": len(multierr.Errors(err)),
				"error":          err.Error(),
			}), "clear cart left remote items behind")
			err = pkgerrors.Wrap(pkgerrors.CodeRemoteUnavailable, err, "clear cart")
		}
		r.refreshItems(bg)
		done <- err
		close(done)
	}()
	return done
}

// Totals returns the item count and price total of the current state.
func (r *Reconciler) Totals() Totals {
	r.mu.Lock()
	defer r.mu.Unlock()
	return ComputeTotals(r.local, r.items)
}

// ValidItems returns a copy of the cached valid items.
func (r *Reconciler) ValidItems() []Item {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Item(nil), r.items...)
}

// Snapshot copies the full state.
func (r *Reconciler) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	quantities := make(map[string]int, len(r.local))
	for id, qty := range r.local {
		quantities[id] = qty
	}
	return Snapshot{
		CartID:       r.cartID,
		Quantities:   quantities,
		Items:        append([]Item{}, r.items...),
		Totals:       ComputeTotals(r.local, r.items),
		SyncFailures: r.syncFailures,
	}
}

// Discard drops the local quantities and cached items without touching the remote
// store. Checkout calls it after it has removed the remote items itself.
func (r *Reconciler) Discard() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.local = map[string]int{}
	r.items = nil
}

// Wait blocks until in-flight background syncs have settled.
func (r *Reconciler) Wait() {
	r.inflight.Wait()
}

// Close rejects further mutations, waits for in-flight syncs and discards all state.
func (r *Reconciler) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	r.inflight.Wait()

	r.mu.Lock()
	r.local = map[string]int{}
	r.items = nil
	r.cartID = ""
	r.loaded = false
	r.mu.Unlock()
}

func (r *Reconciler) remoteEnabled() bool {
	return r.store != nil && session.IsAuthenticated(r.session)
}

// syncing must be called with mu held.
func (r *Reconciler) syncing(cartID string) bool {
	return r.remoteEnabled() && cartID != ""
}

func (r *Reconciler) syncItem(ctx context.Context, cartID, productID string, quantity int) error {
	userID := session.UserID(r.session)
	op := "upsert"
	started := time.Now()
	var err error
	if quantity > 0 {
		err = r.store.UpsertItem(ctx, UpsertItemInput{CartID: cartID, ProductID: productID, UserID: userID, Quantity: quantity})
	} else {
		op = "delete"
		err = r.store.DeleteItem(ctx, cartID, productID, userID)
	}
	r.metrics.Observe(op, time.Since(started), err)
	r.recordOutcome(err)
	if err != nil {
		fields := pkgerrors.Dump(err).Fields()
		fields["cart_id"] = cartID
		fields["product_id"] = productID
		fields["op"] = op
		r.logg.Warn(r.logg.WithFields(ctx, fields), "cart sync failed; keeping local quantity")
		return pkgerrors.Wrap(pkgerrors.CodeRemoteUnavailable, err, "sync cart item")
	}
	return nil
}

// clearTargets must be called with mu held. A product whose sync is still in flight is
// in the local map but not yet cached.
func (r *Reconciler) clearTargets() []string {
	seen := make(map[string]struct{}, len(r.items)+len(r.local))
	ids := make([]string, 0, len(r.items)+len(r.local))
	for _, item := range r.items {
		if _, ok := seen[item.ProductID]; !ok {
			seen[item.ProductID] = struct{}{}
			ids = append(ids, item.ProductID)
		}
	}
	for productID := range r.local {
		if _, ok := seen[productID]; !ok {
			seen[productID] = struct{}{}
			ids = append(ids, productID)
		}
	}
	return ids
}

func (r *Reconciler) settleWrite(written chan struct{}) {
	r.mu.Lock()
	delete(r.writes, written)
	r.mu.Unlock()
	close(written)
}

func (r *Reconciler) deleteAll(ctx context.Context, cartID string, productIDs []string) error {
	userID := session.UserID(r.session)
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		err error
	)
	for _, productID := range productIDs {
		wg.Add(1)
		go func(productID string) {
			defer wg.Done()
			started := time.Now()
			delErr := r.store.DeleteItem(ctx, cartID, productID, userID)
			r.metrics.Observe("delete", time.Since(started), delErr)
			if delErr != nil {
				mu.Lock()
				err = multierr.Append(err, delErr)
				mu.Unlock()
			}
		}(productID)
	}
	wg.Wait()
	r.recordOutcome(err)
	return err
}

// refreshItems replaces only the cached items; local quantities stay the intent of record.
func (r *Reconciler) refreshItems(ctx context.Context) {
	userID := session.UserID(r.session)
	valid, err := r.fetchValid(ctx, userID)
	if err != nil {
		r.logg.Warn(r.logg.WithFields(ctx, pkgerrors.Dump(err).Fields()), "cart refresh failed")
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.closed {
		r.items = valid
	}
}

func (r *Reconciler) fetchValid(ctx context.Context, userID string) ([]Item, error) {
	started := time.Now()
	items, err := r.store.ListItemsByUser(ctx, userID)
	r.metrics.Observe("list", time.Since(started), err)
	if err != nil {
		return nil, err
	}
	valid, dropped := FilterValid(items)
	if dropped > 0 {
		r.metrics.AddOrphaned(dropped)
		r.logg.Info(r.logg.WithField(ctx, "orphaned_items", dropped), "dropped cart items without a priced product")
	}
	return valid, nil
}

func (r *Reconciler) recordOutcome(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.syncFailures++
		return
	}
	r.syncFailures = 0
}

func settled(err error) <-chan error {
	ch := make(chan error, 1)
	ch <- err
	close(ch)
	return ch
}
