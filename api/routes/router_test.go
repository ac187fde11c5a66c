package routes

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/naili/storefront/internal/cart"
	checkoutsvc "github.com/naili/storefront/internal/checkout"
	"github.com/naili/storefront/internal/orders"
	"github.com/naili/storefront/pkg/auth/session"
	pkgcheckout "github.com/naili/storefront/pkg/checkout"
	"github.com/naili/storefront/pkg/config"
	"github.com/naili/storefront/pkg/logger"
	"github.com/naili/storefront/pkg/metrics"
	"github.com/naili/storefront/pkg/pagination"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubSessions struct{}

func (stubSessions) Resolve(ctx context.Context, token, deviceID string) (session.Session, error) {
	switch token {
	case "":
		return session.Guest{DeviceID: deviceID}, nil
	case "good":
		return session.Authenticated{UserID: "user-1", Email: "ada@example.com"}, nil
	}
	return nil, fmt.Errorf("invalid token")
}

func (stubSessions) Forget(ctx context.Context, userID string) {}

type memoryStore struct {
	data map[string]string
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (m *memoryStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key], _ = value.(string)
	return true, nil
}

func (m *memoryStore) IdempotencyKey(scope, id string) string {
	return scope + ":" + id
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

type countingCheckout struct {
	calls int
}

func (c *countingCheckout) ConfirmOrder(ctx context.Context, input checkoutsvc.ConfirmInput) (*checkoutsvc.Attempt, error) {
	return nil, nil
}

func (c *countingCheckout) ConfirmCart(ctx context.Context, sess session.Session, view checkoutsvc.CartView, delivery pkgcheckout.Delivery) (*checkoutsvc.Attempt, error) {
	c.calls++
	return &checkoutsvc.Attempt{
		State:        checkoutsvc.StateConfirmed,
		OrderID:      fmt.Sprintf("order-%d", c.calls),
		PayableTotal: decimal.NewFromInt(3500),
	}, nil
}

type emptyOrders struct{}

func (emptyOrders) ListForCustomer(ctx context.Context, userID string, params pagination.Params) (*orders.OrderList, error) {
	return &orders.OrderList{Orders: []orders.OrderSummary{}}, nil
}

func (emptyOrders) Get(ctx context.Context, userID, orderID string) (*orders.OrderDetail, error) {
	return &orders.OrderDetail{ID: orderID}, nil
}

func newTestRouter(t *testing.T, checkout *countingCheckout) http.Handler {
	t.Helper()
	cfg := &config.Config{
		App:      config.AppConfig{Env: "dev"},
		Auth:     config.AuthConfig{IdempotencyTTL: time.Hour},
		Checkout: config.CheckoutConfig{DeliveryFee: "1500"},
	}
	reg := prometheus.NewRegistry()
	metrics.NewCheckoutMetrics(reg).IncAttempt("confirmed")

	return NewRouter(
		cfg,
		logger.Discard(),
		stubPinger{},
		stubPinger{},
		&memoryStore{data: map[string]string{}},
		stubSessions{},
		cart.NewRegistry(nil, nil),
		checkout,
		emptyOrders{},
		nil,
		reg,
	)
}

func TestHealthAndMetricsArePublic(t *testing.T) {
	router := newTestRouter(t, &countingCheckout{})

	for _, path := range []string{"/health/live", "/health/ready", "/metrics"} {
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))
		if resp.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d", path, resp.Code)
		}
	}

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(resp.Body.String(), "checkout_attempts_total") {
		t.Fatalf("expected checkout metrics exposed")
	}
}

func TestAPIRequiresCredentials(t *testing.T) {
	router := newTestRouter(t, &countingCheckout{})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("Authorization", "Bearer forged")
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for invalid token got %d", resp.Code)
	}
}

func TestGuestCartRoundTrip(t *testing.T) {
	router := newTestRouter(t, &countingCheckout{})

	req := httptest.NewRequest(http.MethodPut, "/api/v1/cart/items/p1", strings.NewReader(`{"quantity":3}`))
	req.Header.Set("X-Device-Id", "device-1")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("X-Device-Id", "device-1")
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if !strings.Contains(resp.Body.String(), `"p1":3`) {
		t.Fatalf("expected guest cart to keep p1, got %s", resp.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("X-Device-Id", "device-2")
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if strings.Contains(resp.Body.String(), `"p1"`) {
		t.Fatalf("expected carts isolated per device, got %s", resp.Body.String())
	}
}

func TestGuestCannotCheckout(t *testing.T) {
	checkout := &countingCheckout{}
	router := newTestRouter(t, checkout)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(`{}`))
	req.Header.Set("X-Device-Id", "device-1")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
	if checkout.calls != 0 {
		t.Fatalf("checkout must not run for guests")
	}
}

func TestCheckoutIsIdempotent(t *testing.T) {
	checkout := &countingCheckout{}
	router := newTestRouter(t, checkout)

	var bodies []string
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(`{"delivery_address":"12 Palm St","delivery_phone":"0800000000"}`))
		req.Header.Set("Authorization", "Bearer good")
		req.Header.Set("Idempotency-Key", "checkout-1")
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusCreated {
			t.Fatalf("attempt %d: expected 201 got %d: %s", i, resp.Code, resp.Body.String())
		}
		bodies = append(bodies, resp.Body.String())
	}
	if checkout.calls != 1 {
		t.Fatalf("expected a single confirmation, got %d", checkout.calls)
	}
	if bodies[0] != bodies[1] {
		t.Fatalf("expected replayed body, got %q and %q", bodies[0], bodies[1])
	}
}

func TestPaymentWithoutProviderIsUnavailable(t *testing.T) {
	router := newTestRouter(t, &countingCheckout{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/order-1/payment", nil)
	req.Header.Set("Authorization", "Bearer good")
	req.Header.Set("Idempotency-Key", "pay-1")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d: %s", resp.Code, resp.Body.String())
	}
}
