package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/naili/storefront/api/routes"
	"github.com/naili/storefront/internal/cart"
	"github.com/naili/storefront/internal/checkout"
	"github.com/naili/storefront/internal/orders"
	"github.com/naili/storefront/internal/payments"
	"github.com/naili/storefront/internal/profiles"
	"github.com/naili/storefront/pkg/auth/session"
	"github.com/naili/storefront/pkg/config"
	"github.com/naili/storefront/pkg/db"
	"github.com/naili/storefront/pkg/instance"
	"github.com/naili/storefront/pkg/logger"
	"github.com/naili/storefront/pkg/metrics"
	"github.com/naili/storefront/pkg/migrate"
	"github.com/naili/storefront/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	resolver, err := session.NewResolver(cfg.Auth, profiles.NewRepository(dbClient.DB()), redisClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create session resolver", err)
		os.Exit(1)
	}

	cartRepo := cart.NewRepository(dbClient.DB())
	registry := cart.NewRegistry(cartRepo, logg, cart.WithMetrics(metrics.NewCartMetrics(prometheus.DefaultRegisterer)))
	defer registry.Close()

	checkoutService, err := checkout.NewService(
		orders.NewRepository(dbClient.DB()),
		cartRepo,
		checkout.Config{
			DeliveryFee: cfg.Checkout.DeliveryFeeAmount(),
			Strategy:    cfg.Checkout.Strategy(),
		},
		logg,
		metrics.NewCheckoutMetrics(prometheus.DefaultRegisterer),
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(orders.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	var paymentsClient *payments.Client
	if cfg.Payments.Enabled() {
		paymentsClient, err = payments.NewClient(cfg.Payments)
		if err != nil {
			logg.Error(context.Background(), "failed to create payments client", err)
			os.Exit(1)
		}
	} else {
		logg.Warn(context.Background(), "payments function url not set; order payment disabled")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
		"strategy": cfg.Checkout.Strategy().String(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			redisClient,
			resolver,
			registry,
			checkoutService,
			ordersService,
			paymentsClient,
			prometheus.DefaultGatherer,
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := registry.Run(sigCtx, cfg.Checkout.CartIdleTTL, cfg.Checkout.CartSweepInterval); err != nil && !errors.Is(err, context.Canceled) {
			logg.Error(ctx, "cart sweep stopped", err)
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-sigCtx.Done():
		logg.Info(ctx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
	}
}
