package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/contrib/instrumentation/runtime"

	"github.com/shopfront-labs/shopfront/internal/checkout"
	"github.com/shopfront-labs/shopfront/internal/messaging"
	"github.com/shopfront-labs/shopfront/internal/telemetry"
)

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	tel, err := telemetry.Setup(ctx, telemetry.Config{
		ServiceName: "checkout",
		Version:     "0.1.0",
		Metrics:     true,
	})
	if err != nil {
		logger.Error("failed to initialize telemetry", "error", err)
		os.Exit(1)
	}
	defer func() { _ = tel.Shutdown(ctx) }()

	if err := runtime.Start(); err != nil {
		logger.Error("failed to start runtime instrumentation", "error", err)
		os.Exit(1)
	}

	postgresURL := os.Getenv("POSTGRES_URL")
	if postgresURL == "" {
		logger.Error("POSTGRES_URL environment variable is required")
		os.Exit(1)
	}

	catalogServiceURL := os.Getenv("CATALOG_SERVICE_URL")
	if catalogServiceURL == "" {
		logger.Error("CATALOG_SERVICE_URL environment variable is required")
		os.Exit(1)
	}

	db, err := telemetry.OpenDB("postgres", postgresURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	if err := db.Ping(); err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	if _, err := db.Exec("SET search_path TO checkout"); err != nil {
		logger.Error("failed to set search_path", "error", err)
		os.Exit(1)
	}

	var producer *messaging.Producer
	kafkaBrokers := os.Getenv("KAFKA_BROKERS")
	if kafkaBrokers != "" {
		brokers := strings.Split(kafkaBrokers, ",")
		producer = messaging.NewProducer(brokers, messaging.TopicOrderPlaced)
		defer func() { _ = producer.Close() }()
	}

	httpClient := &http.Client{
		Timeout:   10 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	repo := checkout.NewRepository(db)
	catalogClient := checkout.NewCatalogClient(catalogServiceURL, httpClient)

	screen := checkout.NewCodeScreen(1000)
	codes, err := repo.ListCouponCodes(ctx)
	if err != nil {
		logger.Error("failed to load coupon codes", "error", err)
		os.Exit(1)
	}
	screen.Load(codes)
	logger.Info("coupon screen loaded", "codes", len(codes))

	handler, err := checkout.NewHandler(repo, catalogClient, producer, screen, logger)
	if err != nil {
		logger.Error("failed to create handler", "error", err)
		os.Exit(1)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /carts", telemetry.WithHTTPRoute(handler.HandleCreateCart))
	mux.HandleFunc("GET /carts/{id}", telemetry.WithHTTPRoute(handler.HandleGetCart))
	mux.HandleFunc("PUT /carts/{id}/items", telemetry.WithHTTPRoute(handler.HandleUpsertCartItem))
	mux.HandleFunc("DELETE /carts/{id}", telemetry.WithHTTPRoute(handler.HandleDeleteCart))

	mux.HandleFunc("POST /quote", telemetry.WithHTTPRoute(handler.HandleQuote))

	mux.HandleFunc("GET /orders", telemetry.WithHTTPRoute(handler.HandleListOrders))
	mux.HandleFunc("POST /orders", telemetry.WithHTTPRoute(handler.HandleCreateOrder))
	mux.HandleFunc("GET /orders/{id}", telemetry.WithHTTPRoute(handler.HandleGetOrder))
	mux.HandleFunc("PATCH /orders/{id}/status", telemetry.WithHTTPRoute(handler.HandleUpdateOrderStatus))
	mux.HandleFunc("POST /orders/{id}/payment", telemetry.WithHTTPRoute(handler.HandleConfirmPayment))
	mux.HandleFunc("PUT /orders/{id}/items", telemetry.WithHTTPRoute(handler.HandleEditOrderItems))

	mux.HandleFunc("GET /coupons", telemetry.WithHTTPRoute(handler.HandleListCoupons))
	mux.HandleFunc("POST /coupons", telemetry.WithHTTPRoute(handler.HandleCreateCoupon))
	mux.HandleFunc("GET /coupons/{code}", telemetry.WithHTTPRoute(handler.HandleGetCoupon))
	mux.HandleFunc("PUT /coupons/{code}", telemetry.WithHTTPRoute(handler.HandleUpdateCoupon))
	mux.HandleFunc("DELETE /coupons/{code}", telemetry.WithHTTPRoute(handler.HandleDeleteCoupon))

	mux.Handle("GET /metrics", tel.MetricsHandler)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8081"
	}

	server := &http.Server{
		Addr: ":" + port,
		Handler: otelhttp.NewHandler(mux, "checkout",
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
		logger.Info("starting checkout service", "port", port)
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
