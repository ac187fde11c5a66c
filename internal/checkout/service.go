package checkout

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/naili/storefront/internal/cart"
	"github.com/naili/storefront/pkg/auth/session"
	pkgcheckout "github.com/naili/storefront/pkg/checkout"
	"github.com/naili/storefront/pkg/db/models"
	"github.com/naili/storefront/pkg/enums"
	pkgerrors "github.com/naili/storefront/pkg/errors"
	"github.com/naili/storefront/pkg/logger"
	"github.com/naili/storefront/pkg/metrics"
)

type orderWriter interface {
	CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	CreateOrderItems(ctx context.Context, items []models.OrderItem) error
	MarkFailed(ctx context.Context, orderID, reason string) error
	DeleteOrder(ctx context.Context, orderID string) error
}

type cartCleaner interface {
	DeleteItemsByUser(ctx context.Context, userID string) error
}

// CartView is the reconciled cart a confirmation reads from. *cart.Reconciler
// satisfies it.
type CartView interface {
	Session() session.Session
	CartID() string
	ValidItems() []cart.Item
	Discard()
}

// Service converts a reconciled cart into a persisted order.
type Service interface {
	ConfirmOrder(ctx context.Context, input ConfirmInput) (*Attempt, error)
	ConfirmCart(ctx context.Context, sess session.Session, view CartView, delivery pkgcheckout.Delivery) (*Attempt, error)
}

// ConfirmInput is everything needed to place an order. Items may contain
// orphaned lines; they are filtered before the emptiness check.
type ConfirmInput struct {
	UserID   string
	CartID   string
	Items    []cart.Item
	Delivery pkgcheckout.Delivery
}

// Config tunes order totals and partial-failure compensation.
type Config struct {
	DeliveryFee decimal.Decimal
	Strategy    enums.PartialFailureStrategy
}

type service struct {
	orders   orderWriter
	carts    cartCleaner
	fee      decimal.Decimal
	strategy enums.PartialFailureStrategy
	logg     *logger.Logger
	metrics  *metrics.CheckoutMetrics
}

// NewService builds the checkout service.
func NewService(orders orderWriter, carts cartCleaner, cfg Config, logg *logger.Logger, m *metrics.CheckoutMetrics) (Service, error) {
	if orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if carts == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if cfg.DeliveryFee.IsNegative() {
		return nil, fmt.Errorf("delivery fee must not be negative")
	}
	strategy := cfg.Strategy
	if strategy == "" {
		strategy = enums.PartialFailureMarkFailed
	}
	if !strategy.IsValid() {
		return nil, fmt.Errorf("invalid partial failure strategy %q", strategy)
	}
	if logg == nil {
		logg = logger.Discard()
	}
	return &service{
		orders:   orders,
		carts:    carts,
		fee:      cfg.DeliveryFee,
		strategy: strategy,
		logg:     logg,
		metrics:  m,
	}, nil
}

// ConfirmCart places the order for the cart of sess. Profile defaults come from sess,
// the session resolved for the current request, not the one the view was built for.
func (s *service) ConfirmCart(ctx context.Context, sess session.Session, view CartView, delivery pkgcheckout.Delivery) (*Attempt, error) {
	if view == nil {
		return s.ConfirmOrder(ctx, ConfirmInput{UserID: session.UserID(sess), Delivery: delivery})
	}
	if sess == nil {
		sess = view.Session()
	}
	if owner := view.Session(); owner != nil && owner.Key() != sess.Key() {
		attempt := newAttempt()
		_ = attempt.advance(StateValidating)
		attempt.reject("cart belongs to another session")
		s.metrics.IncAttempt(string(attempt.State))
		return attempt, pkgerrors.New(pkgerrors.CodeConflict, "cart belongs to another session")
	}
	attempt, err := s.ConfirmOrder(ctx, ConfirmInput{
		UserID:   session.UserID(sess),
		CartID:   view.CartID(),
		Items:    view.ValidItems(),
		Delivery: withProfileDefaults(delivery, sess),
	})
	if err == nil {
		view.Discard()
	}
	return attempt, err
}

// ConfirmOrder validates the input then writes the order followed by its lines.
// The returned attempt is always non-nil and in a terminal state.
func (s *service) ConfirmOrder(ctx context.Context, input ConfirmInput) (*Attempt, error) {
	attempt := newAttempt()
	defer func() { s.metrics.IncAttempt(string(attempt.State)) }()

	_ = attempt.advance(StateValidating)
	items, err := s.validate(ctx, input)
	if err != nil {
		attempt.reject(pkgerrors.As(err).Message())
		return attempt, err
	}
	delivery := input.Delivery.Normalized()
	attempt.PayableTotal = pkgcheckout.PayableTotal(cart.ItemPriceTotal(items), s.fee)

	_ = attempt.advance(StatePersisting)
	ctx = s.logg.WithUserID(ctx, input.UserID)

	order := &models.Order{
		CustomerID:      input.UserID,
		Status:          enums.OrderStatusPending,
		DeliveryAddress: delivery.Address,
		DeliveryPhone:   delivery.Phone,
		DeliveryNote:    delivery.NotePtr(),
		TotalAmount:     attempt.PayableTotal,
	}
	if cartID := strings.TrimSpace(input.CartID); cartID != "" {
		order.CartID = &cartID
	}
	created, err := s.orders.CreateOrder(ctx, order)
	if err != nil {
		s.logg.Error(ctx, "create order failed", err)
		attempt.fail("order could not be created")
		return attempt, pkgerrors.Wrap(pkgerrors.CodeRemoteUnavailable, err, "create order")
	}
	ctx = s.logg.WithOrderID(ctx, created.ID)

	lines := make([]models.OrderItem, 0, len(items))
	for _, item := range items {
		lines = append(lines, models.OrderItem{
			OrderID:   created.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice(),
		})
	}
	if err := s.orders.CreateOrderItems(ctx, lines); err != nil {
		s.logg.Error(ctx, "create order items failed", err)
		s.compensate(ctx, created.ID, err)
		attempt.OrderID = created.ID
		attempt.fail("order items could not be stored")
		return attempt, pkgerrors.Wrap(pkgerrors.CodePartialPersistence, err, "order items could not be stored").
			WithDetails(map[string]string{
				"order_id": created.ID,
				"strategy": s.strategy.String(),
			})
	}

	if err := s.carts.DeleteItemsByUser(ctx, input.UserID); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "cart cleanup after checkout failed")
	}

	attempt.confirm(created.ID)
	s.logg.Info(s.logg.WithField(ctx, "total", attempt.PayableTotal.String()), "order confirmed")
	return attempt, nil
}

func (s *service) validate(ctx context.Context, input ConfirmInput) ([]cart.Item, error) {
	if strings.TrimSpace(input.UserID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required").
			WithDetails(map[string]string{"user_id": "is required"})
	}
	if err := pkgcheckout.ValidateDelivery(input.Delivery); err != nil {
		return nil, err
	}
	items, dropped := cart.FilterValid(input.Items)
	if dropped > 0 {
		s.logg.Info(s.logg.WithField(ctx, "orphaned_items", dropped), "orphaned cart items skipped at checkout")
	}
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart has no items to order").
			WithDetails(map[string]string{"items": "at least one priced item is required"})
	}
	return items, nil
}

func (s *service) compensate(ctx context.Context, orderID string, cause error) {
	var err error
	switch s.strategy {
	case enums.PartialFailureLeave:
		return
	case enums.PartialFailureDelete:
		err = s.orders.DeleteOrder(ctx, orderID)
	default:
		err = s.orders.MarkFailed(ctx, orderID, truncate("order items not stored: "+cause.Error(), 500))
	}
	if err != nil {
		s.logg.Error(s.logg.WithField(ctx, "strategy", s.strategy.String()), "partial order compensation failed", err)
	}
}

// withProfileDefaults fills a blank address or phone from the signed-in profile.
func withProfileDefaults(delivery pkgcheckout.Delivery, sess session.Session) pkgcheckout.Delivery {
	auth, ok := sess.(session.Authenticated)
	if !ok || auth.Profile == nil {
		return delivery
	}
	if strings.TrimSpace(delivery.Address) == "" {
		delivery.Address = auth.Profile.Address
	}
	if strings.TrimSpace(delivery.Phone) == "" {
		delivery.Phone = auth.Profile.PhoneNumber
	}
	return delivery
}

// truncate shortens value to at most max bytes without splitting a rune.
func truncate(value string, max int) string {
	if len(value) <= max {
		return value
	}
	cut := 0
	for i := range value {
		if i > max {
			break
		}
		cut = i
	}
	return value[:cut]
}
