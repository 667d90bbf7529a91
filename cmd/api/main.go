// Package main is the entry point for the ZeusBolt API server.
//
// It loads configuration (environment, dotenv, SSM), connects the Postgres
// pool, builds the external service clients (Stripe, Supabase Auth, OpenAI),
// wires the HTTP handlers onto the core chassis, and serves until a shutdown
// signal arrives.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"zeusbolt/internal/api/handlers"
	"zeusbolt/internal/billing"
	"zeusbolt/internal/config"
	"zeusbolt/internal/core"
	"zeusbolt/internal/db"
	"zeusbolt/internal/external"
	"zeusbolt/internal/telemetry"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run encapsulates the startup lifecycle so that main() can cleanly exit on error.
func run() error {
	// The SSM provider region is read ahead of LoadConfig because secret
	// resolution happens during loading. Local mode skips SSM entirely.
	region := os.Getenv("AWS_REGION")
	if region == "" {
		region = "us-east-1"
	}
	cfg, err := config.LoadConfig(config.NewSSMProvider(region))
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("zeusbolt API starting",
		"environment", cfg.Environment,
		"version", cfg.Build.Version,
		"commit", cfg.Build.Commit,
		"port", cfg.Server.Port,
	)

	ctx := context.Background()

	// Database pool plus its health probe.
	pool, err := db.NewPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connecting database: %w", err)
	}

	subscriptionRepo := db.NewSubscriptionRepo(pool, logger)
	projectRepo := db.NewProjectRepo(pool, logger)

	// External service clients. Each gets its own http.Client so one slow
	// upstream cannot exhaust another's connections.
	stripeClient := external.NewStripeClient(
		&http.Client{Timeout: 20 * time.Second},
		external.StripeClientConfig{
			SecretKey:    cfg.Billing.StripeSecretKey.Unmask(),
			PriceID:      cfg.Billing.StripePriceID,
			DashboardURL: cfg.Server.DashboardURL,
			Logger:       logger,
		},
	)
	authClient := external.NewSupabaseAuthClient(
		&http.Client{Timeout: 10 * time.Second},
		external.SupabaseAuthConfig{
			ProjectURL: cfg.Auth.SupabaseURL,
			ServiceKey: cfg.Auth.SupabaseServiceKey.Unmask(),
			Logger:     logger,
		},
	)
	aiClient := external.NewOpenAIClient(
		&http.Client{Timeout: cfg.AI.Timeout},
		external.OpenAIClientConfig{
			APIKey:      cfg.AI.OpenAIAPIKey.Unmask(),
			Model:       cfg.AI.Model,
			MaxTokens:   cfg.AI.MaxTokens,
			Temperature: cfg.AI.Temperature,
			Logger:      logger,
		},
	)

	// Webhook pipeline: verify, normalize, reconcile.
	normalizer := billing.NewNormalizer(logger)
	reconciler := billing.NewReconciler(subscriptionRepo, logger)

	srv, err := core.NewServer(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	srv.Authenticator = authClient
	srv.HealthProbes = append(srv.HealthProbes, db.NewProbe(pool))
	srv.OnShutdown(func() error {
		pool.Close()
		return nil
	})

	if cfg.Observability.EnableMetrics {
		metrics, err := telemetry.NewCloudWatchMetricsFromRegion(
			ctx, cfg.AWS.Region, cfg.Observability.MetricNamespace, logger)
		if err != nil {
			return fmt.Errorf("creating metrics collector: %w", err)
		}
		srv.Metrics = metrics
	}

	webhookHandler := handlers.NewStripeWebhookHandler(
		&external.StripeVerifier{},
		normalizer,
		reconciler,
		cfg.Billing.StripeWebhookSecret.Unmask(),
		logger,
	)
	billingHandler := handlers.NewBillingHandler(stripeClient, subscriptionRepo, logger)
	projectsHandler := handlers.NewProjectsHandler(
		projectRepo, subscriptionRepo, srv.Validator, cfg.Limits.FreeProjectLimit, logger)
	blueprintHandler := handlers.NewBlueprintHandler(
		aiClient, subscriptionRepo, projectRepo, srv.Validator, cfg.Limits.FreeProjectLimit, logger)

	srv.V1RouteRegistrars = append(srv.V1RouteRegistrars,
		func(r chi.Router) { webhookHandler.RegisterRoutes(r) },
		func(r chi.Router) { billingHandler.RegisterRoutes(r) },
		func(r chi.Router) { projectsHandler.RegisterRoutes(r) },
		func(r chi.Router) { blueprintHandler.RegisterRoutes(r) },
	)

	srv.MountRoutes()

	return runHTTPServer(srv, cfg, logger)
}

// runHTTPServer starts the server in standard HTTP mode with graceful shutdown.
func runHTTPServer(srv *core.Server, cfg *config.Config, logger *slog.Logger) error {
	addr := ":" + cfg.Server.Port

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info("initiating graceful shutdown")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server resource shutdown error", "error", err)
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped cleanly")
	return nil
}

// newLogger creates a structured slog.Logger configured for the given log level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: lvl,
	})
	return slog.New(handler)
}
