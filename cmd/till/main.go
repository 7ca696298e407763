package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/deliverpoint/pos/internal"
	"github.com/deliverpoint/pos/internal/cart"
	"github.com/deliverpoint/pos/internal/catalog"
	"github.com/deliverpoint/pos/internal/checkout"
	"github.com/deliverpoint/pos/internal/domain"
	"github.com/deliverpoint/pos/internal/handler"
	"github.com/deliverpoint/pos/internal/posapi"
	"github.com/deliverpoint/pos/internal/router"
	"github.com/deliverpoint/pos/internal/telemetry"
)

func run() error {
	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// Error tracking (no-op unless SENTRY_ENABLED=true)
	cleanupSentry, err := telemetry.InitSentry(telemetry.SentryConfig{
		DSN:         cfg.Sentry.DSN,
		Enabled:     cfg.Sentry.Enabled,
		Environment: cfg.Env,
	}, logger)
	if err != nil {
		return fmt.Errorf("sentry initialization failed: %w", err)
	}
	defer cleanupSentry()
	telemetry.SetCashier(cfg.Cashier.ID, cfg.Cashier.Name)

	// Metrics
	httpMetrics := router.NewMetrics("till")
	businessMetrics := telemetry.InitBusinessMetrics("till")

	// Backend client
	logger.Info("Connecting to Deliver Point backend...", "base_url", cfg.API.BaseURL)
	client, err := posapi.NewClient(posapi.Config{
		BaseURL: cfg.API.BaseURL,
		Token:   cfg.API.Token,
		Timeout: cfg.API.Timeout,
		Logger:  logger,
		Metrics: businessMetrics,
	})
	if err != nil {
		return fmt.Errorf("backend client initialization failed: %w", err)
	}

	// Catalog
	browser := catalog.NewBrowser(client.Products, cfg.PageSize)
	loadCtx, cancel := context.WithTimeout(context.Background(), cfg.API.Timeout)
	defer cancel()
	if err := browser.Refresh(loadCtx); err != nil {
		// The till still starts: the operator can retry the refresh once
		// the backend comes back.
		logger.Error("initial catalog load failed", "error", err)
		businessMetrics.CatalogRefreshes.WithLabelValues("failure").Inc()
	} else {
		logger.Info("catalog loaded", "products", len(browser.Visible()))
		businessMetrics.CatalogRefreshes.WithLabelValues("success").Inc()
	}

	// Cart and sale lifecycle
	store := cart.NewStore()
	coordinator := checkout.New(store, client.Transactions, checkout.Options{
		Cashier: domain.Cashier{ID: cfg.Cashier.ID, Name: cfg.Cashier.Name},
		Logger:  logger,
		Metrics: businessMetrics,
	})

	// HTTP facade
	till := handler.NewTillHandler(
		browser,
		store,
		coordinator,
		client.Products,
		client.Transactions,
		logger,
		businessMetrics,
	)

	r := router.New(
		router.Recovery(logger),
		router.RequestID,
		httpMetrics.Middleware,
		router.CORS([]string{"*"}),
		router.Logger(logger),
	)

	r.Get("/metrics", func(w http.ResponseWriter, req *http.Request) {
		httpMetrics.Handler().ServeHTTP(w, req)
	})

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	till.RegisterRoutes(r)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logger.Info("Starting till server", "address", addr, "page_size", cfg.PageSize)

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
