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

	"github.com/go-chi/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/shopfront-labs/shopfront/internal/gateway"
	"github.com/shopfront-labs/shopfront/internal/telemetry"
)

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	tel, err := telemetry.Setup(ctx, telemetry.Config{
		ServiceName: "gateway",
		Version:     "0.1.0",
	})
	if err != nil {
		logger.Error("failed to initialize telemetry", "error", err)
		os.Exit(1)
	}
	defer func() { _ = tel.Shutdown(ctx) }()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	catalogServiceURL := os.Getenv("CATALOG_SERVICE_URL")
	if catalogServiceURL == "" {
		logger.Error("CATALOG_SERVICE_URL is required")
		os.Exit(1)
	}

	checkoutServiceURL := os.Getenv("CHECKOUT_SERVICE_URL")
	if checkoutServiceURL == "" {
		logger.Error("CHECKOUT_SERVICE_URL is required")
		os.Exit(1)
	}

	backofficeServiceURL := os.Getenv("BACKOFFICE_SERVICE_URL")
	if backofficeServiceURL == "" {
		logger.Error("BACKOFFICE_SERVICE_URL is required")
		os.Exit(1)
	}

	httpClient := &http.Client{
		Timeout:   10 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	catalogProxy := gateway.NewServiceProxy(catalogServiceURL, httpClient)
	checkoutProxy := gateway.NewServiceProxy(checkoutServiceURL, httpClient)
	backofficeProxy := gateway.NewServiceProxy(backofficeServiceURL, httpClient)
	handler := gateway.NewHandler(catalogProxy, checkoutProxy, backofficeProxy, logger)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /products", telemetry.WithHTTPRoute(handler.HandleCatalog))
	mux.HandleFunc("POST /products", telemetry.WithHTTPRoute(handler.HandleCatalog))
	mux.HandleFunc("GET /products/{id}", telemetry.WithHTTPRoute(handler.HandleCatalog))
	mux.HandleFunc("PUT /products/{id}", telemetry.WithHTTPRoute(handler.HandleCatalog))
	mux.HandleFunc("DELETE /products/{id}", telemetry.WithHTTPRoute(handler.HandleCatalog))
	mux.HandleFunc("GET /products/{id}/stock", telemetry.WithHTTPRoute(handler.HandleCatalog))

	mux.HandleFunc("POST /carts", telemetry.WithHTTPRoute(handler.HandleCheckout))
	mux.HandleFunc("GET /carts/{id}", telemetry.WithHTTPRoute(handler.HandleCheckout))
	mux.HandleFunc("PUT /carts/{id}/items", telemetry.WithHTTPRoute(handler.HandleCheckout))
	mux.HandleFunc("DELETE /carts/{id}", telemetry.WithHTTPRoute(handler.HandleCheckout))
	mux.HandleFunc("POST /quote", telemetry.WithHTTPRoute(handler.HandleCheckout))
	mux.HandleFunc("GET /orders", telemetry.WithHTTPRoute(handler.HandleCheckout))
	mux.HandleFunc("POST /orders", telemetry.WithHTTPRoute(handler.HandleCheckout))
	mux.HandleFunc("GET /orders/{id}", telemetry.WithHTTPRoute(handler.HandleCheckout))
	mux.HandleFunc("PATCH /orders/{id}/status", telemetry.WithHTTPRoute(handler.HandleCheckout))
	mux.HandleFunc("POST /orders/{id}/payment", telemetry.WithHTTPRoute(handler.HandleCheckout))
	mux.HandleFunc("PUT /orders/{id}/items", telemetry.WithHTTPRoute(handler.HandleCheckout))
	mux.HandleFunc("GET /coupons", telemetry.WithHTTPRoute(handler.HandleCheckout))
	mux.HandleFunc("POST /coupons", telemetry.WithHTTPRoute(handler.HandleCheckout))
	mux.HandleFunc("GET /coupons/{code}", telemetry.WithHTTPRoute(handler.HandleCheckout))
	mux.HandleFunc("PUT /coupons/{code}", telemetry.WithHTTPRoute(handler.HandleCheckout))
	mux.HandleFunc("DELETE /coupons/{code}", telemetry.WithHTTPRoute(handler.HandleCheckout))

	mux.HandleFunc("GET /settings/{section}", telemetry.WithHTTPRoute(handler.HandleBackoffice))
	mux.HandleFunc("PUT /settings/{section}", telemetry.WithHTTPRoute(handler.HandleBackoffice))
	mux.HandleFunc("GET /founders", telemetry.WithHTTPRoute(handler.HandleBackoffice))
	mux.HandleFunc("POST /founders", telemetry.WithHTTPRoute(handler.HandleBackoffice))
	mux.HandleFunc("PUT /founders/{id}", telemetry.WithHTTPRoute(handler.HandleBackoffice))
	mux.HandleFunc("DELETE /founders/{id}", telemetry.WithHTTPRoute(handler.HandleBackoffice))
	mux.HandleFunc("GET /analytics/summary", telemetry.WithHTTPRoute(handler.HandleBackoffice))

	allowedOrigins := []string{"*"}
	if raw := os.Getenv("CORS_ALLOWED_ORIGINS"); raw != "" {
		allowedOrigins = strings.Split(raw, ",")
	}

	corsMiddleware := cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	})

	server := &http.Server{
		Addr: ":" + port,
		Handler: corsMiddleware(otelhttp.NewHandler(mux, "gateway",
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				if r.Pattern != "" {
					return r.Pattern
				}
				return r.Method + " " + r.URL.Path
			}),
		)),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting gateway service", "port", port)
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
