package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/contrib/instrumentation/runtime"
	_ "modernc.org/sqlite"

	"github.com/bluehouse-sports/storefront/internal/cart"
	"github.com/bluehouse-sports/storefront/internal/catalog"
	"github.com/bluehouse-sports/storefront/internal/checkout"
	"github.com/bluehouse-sports/storefront/internal/config"
	"github.com/bluehouse-sports/storefront/internal/kv"
	"github.com/bluehouse-sports/storefront/internal/messaging"
	"github.com/bluehouse-sports/storefront/internal/notify"
	"github.com/bluehouse-sports/storefront/internal/orders"
	"github.com/bluehouse-sports/storefront/internal/telemetry"
	"github.com/bluehouse-sports/storefront/internal/wishlist"
)

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	var cfg config.Storefront
	if err := config.Parse(&cfg); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, "storefront", "0.1.0")
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(ctx) }()

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider("storefront", "0.1.0")
	if err != nil {
		logger.Error("failed to initialize meter", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownMeter(ctx) }()

	if err := runtime.Start(); err != nil {
		logger.Error("failed to start runtime metrics", "error", err)
		os.Exit(1)
	}

	db, err := telemetry.OpenDB(cfg.KVDriver, cfg.KVDSN)
	if err != nil {
		logger.Error("failed to open blob store", "error", err, "driver", cfg.KVDriver)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	if err := db.Ping(); err != nil {
		logger.Error("failed to connect to blob store", "error", err)
		os.Exit(1)
	}
	if cfg.KVDriver == "sqlite" {
		// A single writer avoids SQLITE_BUSY on the shared file.
		db.SetMaxOpenConns(1)
	}

	store := kv.NewSQLStore(db)
	if err := store.Init(ctx); err != nil {
		logger.Error("failed to initialize blob store", "error", err)
		os.Exit(1)
	}

	var createdPublisher, statusPublisher *messaging.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		createdPublisher = messaging.NewPublisher(cfg.KafkaBrokers, "order.created")
		defer func() { _ = createdPublisher.Close() }()
		statusPublisher = messaging.NewPublisher(cfg.KafkaBrokers, "order.status_changed")
		defer func() { _ = statusPublisher.Close() }()
	}

	notifier := notify.NewLogNotifier(logger)
	httpClient := &http.Client{
		Timeout:   10 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	provider := catalog.NewProvider(cfg.CatalogURL, httpClient, store, notifier, logger)
	cartStore := cart.NewStore(ctx, provider, store, notifier, logger,
		cart.WithDiscountCodes(cfg.ParseDiscountCodes()))
	orderStore := orders.NewStore(ctx, store, logger)
	wishlistStore := wishlist.NewStore(ctx, store, logger)

	var flowPublisher checkout.Publisher
	if createdPublisher != nil {
		flowPublisher = createdPublisher
	}
	flow := checkout.NewFlow(cartStore, orderStore, flowPublisher, notifier, logger)

	catalogHandler := catalog.NewHandler(provider, logger)
	cartHandler := cart.NewHandler(cartStore, provider, logger)
	orderHandler := orders.NewHandler(orderStore, statusPublisher, logger)
	checkoutHandler := checkout.NewHandler(flow, logger)
	wishlistHandler := wishlist.NewHandler(wishlistStore, logger)

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", metricsHandler)

	mux.HandleFunc("GET /products", telemetry.WithHTTPRoute(catalogHandler.HandleList))
	mux.HandleFunc("GET /products/search", telemetry.WithHTTPRoute(catalogHandler.HandleSearch))
	mux.HandleFunc("GET /products/search/recent", telemetry.WithHTTPRoute(catalogHandler.HandleRecentSearches))
	mux.HandleFunc("GET /products/{id}", telemetry.WithHTTPRoute(catalogHandler.HandleGet))
	mux.HandleFunc("GET /products/{id}/recommended", telemetry.WithHTTPRoute(catalogHandler.HandleRecommended))
	mux.HandleFunc("POST /products/{id}/reviews", telemetry.WithHTTPRoute(catalogHandler.HandleAddReview))

	mux.HandleFunc("GET /cart", telemetry.WithHTTPRoute(cartHandler.HandleGet))
	mux.HandleFunc("POST /cart/items", telemetry.WithHTTPRoute(cartHandler.HandleAddItem))
	mux.HandleFunc("PATCH /cart/items", telemetry.WithHTTPRoute(cartHandler.HandleUpdateQuantity))
	mux.HandleFunc("DELETE /cart/items", telemetry.WithHTTPRoute(cartHandler.HandleRemoveItem))
	mux.HandleFunc("DELETE /cart", telemetry.WithHTTPRoute(cartHandler.HandleClear))
	mux.HandleFunc("POST /cart/discount", telemetry.WithHTTPRoute(cartHandler.HandleApplyDiscount))
	mux.HandleFunc("DELETE /cart/discount", telemetry.WithHTTPRoute(cartHandler.HandleRemoveDiscount))

	mux.HandleFunc("POST /checkout", telemetry.WithHTTPRoute(checkoutHandler.HandlePlaceOrder))

	mux.HandleFunc("GET /orders", telemetry.WithHTTPRoute(orderHandler.HandleList))
	mux.HandleFunc("GET /orders/{id}", telemetry.WithHTTPRoute(orderHandler.HandleGet))
	mux.HandleFunc("PATCH /orders/{id}/status", telemetry.WithHTTPRoute(orderHandler.HandleUpdateStatus))

	mux.HandleFunc("GET /wishlist", telemetry.WithHTTPRoute(wishlistHandler.HandleList))
	mux.HandleFunc("PUT /wishlist/{id}", telemetry.WithHTTPRoute(wishlistHandler.HandleAdd))
	mux.HandleFunc("DELETE /wishlist/{id}", telemetry.WithHTTPRoute(wishlistHandler.HandleRemove))
	mux.HandleFunc("POST /wishlist/{id}/toggle", telemetry.WithHTTPRoute(wishlistHandler.HandleToggle))

	server := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: otelhttp.NewHandler(mux, "storefront",
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				if r.Pattern != "" {
					return r.Pattern
				}
				return r.Method + " " + r.URL.Path
			}),
		),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting storefront service", "port", cfg.Port, "kv_driver", cfg.KVDriver)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
