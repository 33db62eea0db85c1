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

	"github.com/shopfront-labs/shopfront/internal/catalog"
	"github.com/shopfront-labs/shopfront/internal/telemetry"
)

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	tel, err := telemetry.Setup(ctx, telemetry.Config{
		ServiceName: "catalog",
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

	if _, err := db.Exec("SET search_path TO catalog"); err != nil {
		logger.Error("failed to set search_path", "error", err)
		os.Exit(1)
	}

	repo := catalog.NewProductRepository(db)
	handler := catalog.NewHandler(repo, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /products", telemetry.WithHTTPRoute(handler.HandleList))
	mux.HandleFunc("POST /products", telemetry.WithHTTPRoute(handler.HandleCreate))
	mux.HandleFunc("GET /products/{id}", telemetry.WithHTTPRoute(handler.HandleGet))
	mux.HandleFunc("PUT /products/{id}", telemetry.WithHTTPRoute(handler.HandleUpdate))
	mux.HandleFunc("DELETE /products/{id}", telemetry.WithHTTPRoute(handler.HandleDelete))
	mux.HandleFunc("GET /products/{id}/stock", telemetry.WithHTTPRoute(handler.HandleGetStock))
	mux.HandleFunc("POST /products/{id}/stock/reserve", telemetry.WithHTTPRoute(handler.HandleReserve))
	mux.HandleFunc("POST /products/{id}/stock/release", telemetry.WithHTTPRoute(handler.HandleRelease))
	mux.Handle("GET /metrics", tel.MetricsHandler)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8082"
	}

	server := &http.Server{
		Addr: ":" + port,
		Handler: otelhttp.NewHandler(mux, "catalog",
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
		logger.Info("starting catalog service", "port", port)
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
