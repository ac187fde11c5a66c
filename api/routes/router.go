package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/naili/storefront/api/controllers"
	"github.com/naili/storefront/api/middleware"
	"github.com/naili/storefront/internal/cart"
	checkoutsvc "github.com/naili/storefront/internal/checkout"
	"github.com/naili/storefront/internal/orders"
	"github.com/naili/storefront/internal/payments"
	"github.com/naili/storefront/pkg/config"
	"github.com/naili/storefront/pkg/db"
	"github.com/naili/storefront/pkg/logger"
	"github.com/naili/storefront/pkg/redis"
)

type sessionResolver interface {
	middleware.SessionResolver
	Forget(ctx context.Context, userID string)
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisP redis.Pinger,
	idempotency redis.IdempotencyStore,
	sessions sessionResolver,
	carts *cart.Registry,
	checkoutService checkoutsvc.Service,
	ordersService orders.Service,
	paymentsClient *payments.Client,
	gatherer prometheus.Gatherer,
) http.Handler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	fee := cfg.Checkout.DeliveryFeeAmount()
	payment := controllers.OrderPayment(ordersService, nil, logg)
	if paymentsClient != nil {
		payment = controllers.OrderPayment(ordersService, paymentsClient, logg)
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Session(sessions, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartFetch(carts, fee, logg))
			r.Delete("/", controllers.CartClear(carts, fee, logg))
			r.Put("/items/{productId}", controllers.CartSetItem(carts, fee, logg))
			r.Delete("/items/{productId}", controllers.CartRemoveItem(carts, fee, logg))
		})
		r.Post("/session/signout", controllers.SessionSignout(carts, sessions, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireUser(logg))
			r.Use(middleware.Idempotency(idempotency, cfg.Auth.IdempotencyTTL, logg))
			r.Post("/checkout", controllers.Checkout(carts, checkoutService, logg))
			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.OrdersList(ordersService, logg))
				r.Get("/{orderId}", controllers.OrderDetail(ordersService, logg))
				r.Post("/{orderId}/payment", payment)
			})
		})
	})

	return r
}
