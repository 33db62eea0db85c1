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

	"github.com/shopfront-labs/shopfront/internal/backoffice"
	"github.com/shopfront-labs/shopfront/internal/telemetry"
)

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	tel, err := telemetry.Setup(ctx, telemetry.Config{
		ServiceName: "backoffice",
		Version:     "0.1.0",
		Metrics:     true,
	})
	if err != nil {
		logger.Error("failed to initialize telemetry", "error", err)
		os.Exit(1)
	}
	defer func() { _ = tel.Shutdown(ctx) }()

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

	// Analytics reads the checkout schema with explicit qualification, so
	// only the backoffice tables need to be on the search path.
	if _, err := db.Exec("SET search_path TO backoffice"); err != nil {
		logger.Error("failed to set search_path", "error", err)
		os.Exit(1)
	}

	repo := backoffice.NewRepository(db)
	handler := backoffice.NewHandler(repo, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /settings/company", telemetry.WithHTTPRoute(handler.HandleGetCompanyInfo))
	mux.HandleFunc("PUT /settings/company", telemetry.WithHTTPRoute(handler.HandlePutCompanyInfo))
	mux.HandleFunc("GET /settings/promo-modal", telemetry.WithHTTPRoute(handler.HandleGetPromoModal))
	mux.HandleFunc("PUT /settings/promo-modal", telemetry.WithHTTPRoute(handler.HandlePutPromoModal))
	mux.HandleFunc("GET /settings/delivery", telemetry.WithHTTPRoute(handler.HandleGetDeliverySettings))
	mux.HandleFunc("PUT /settings/delivery", telemetry.WithHTTPRoute(handler.HandlePutDeliverySettings))

	mux.HandleFunc("GET /founders", telemetry.WithHTTPRoute(handler.HandleListFounders))
	mux.HandleFunc("POST /founders", telemetry.WithHTTPRoute(handler.HandleCreateFounder))
	mux.HandleFunc("PUT /founders/{id}", telemetry.WithHTTPRoute(handler.HandleUpdateFounder))
	mux.HandleFunc("DELETE /founders/{id}", telemetry.WithHTTPRoute(handler.HandleDeleteFounder))

	mux.HandleFunc("GET /analytics/summary", telemetry.WithHTTPRoute(handler.HandleAnalyticsSummary))

	mux.Handle("GET /metrics", tel.MetricsHandler)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8083"
	}

	server := &http.Server{
		Addr: ":" + port,
		Handler: otelhttp.NewHandler(mux, "backoffice",
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
		logger.Info("starting backoffice service", "port", port)
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
